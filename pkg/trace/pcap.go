// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package trace

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	log "github.com/sirupsen/logrus"
)

// Block type of the section header which starts every pcapng file.
var pcapngMagic = []byte{0x0a, 0x0d, 0x0d, 0x0a}

// SnapLen is the maximum number of bytes captured per packet in written
// files.
const SnapLen = 65536

// packetSource is implemented by both pcap and pcapng readers.
type packetSource interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
}

// ReadPcap reads all packets from a given pcap or pcapng file into memory.
func ReadPcap(filename string) (*Slice, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	//
	defer file.Close()
	//
	records, err := Decode(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	//
	log.Debugf("read %d packets from %s", len(records), filename)
	//
	return NewSlice(records...), nil
}

// Decode all packets from a pcap or pcapng stream.  The format is determined
// from the first block of the stream.
func Decode(r io.Reader) ([]Record, error) {
	var (
		reader  = bufio.NewReader(r)
		source  packetSource
		records []Record
	)
	//
	magic, err := reader.Peek(len(pcapngMagic))
	if err != nil {
		return nil, err
	} else if bytes.Equal(magic, pcapngMagic) {
		source, err = pcapgo.NewNgReader(reader, pcapgo.DefaultNgReaderOptions)
	} else {
		source, err = pcapgo.NewReader(reader)
	}
	//
	if err != nil {
		return nil, err
	}
	//
	for {
		data, ci, err := source.ReadPacketData()
		//
		if errors.Is(err, io.EOF) {
			return records, nil
		} else if err != nil {
			return nil, err
		}
		//
		records = append(records, Record{data, uint(max(ci.Length, len(data))), ci.Timestamp.UnixNano()})
	}
}

// WritePcap writes a given sequence of records as an Ethernet pcap file.
func WritePcap(filename string, records []Record) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	//
	defer file.Close()
	//
	return Encode(file, records)
}

// Encode a given sequence of records as an Ethernet pcap stream.
func Encode(w io.Writer, records []Record) error {
	var writer = pcapgo.NewWriterNanos(w)
	//
	if err := writer.WriteFileHeader(SnapLen, layers.LinkTypeEthernet); err != nil {
		return err
	}
	//
	for _, r := range records {
		ci := gopacket.CaptureInfo{
			Timestamp:     time.Unix(0, r.Timestamp),
			CaptureLength: len(r.Data),
			Length:        int(max(r.Length, uint(len(r.Data)))),
		}
		//
		if err := writer.WritePacket(ci, r.Data); err != nil {
			return err
		}
	}
	//
	return nil
}

// Describe summarises the layers of an Ethernet frame, such as
// "Ethernet/IPv4/UDP/Payload".
func Describe(data []byte) string {
	var (
		packet = gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.DecodeOptions{Lazy: true, NoCopy: true})
		names  []string
	)
	//
	for _, l := range packet.Layers() {
		names = append(names, l.LayerType().String())
	}
	//
	return strings.Join(names, "/")
}
