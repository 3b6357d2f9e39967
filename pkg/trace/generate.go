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
	"errors"
	"fmt"
	"math"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/iti/rngstream"
)

// HEADER_BYTES is the size of the Ethernet, IPv4 and UDP headers of a
// generated frame.
const HEADER_BYTES = 14 + 20 + 8

// Profile describes the shape of a synthetic trace.
type Profile struct {
	// Number of packets to generate.
	Packets uint
	// Number of distinct flows, where packets are spread uniformly at random
	// over flows.
	Flows uint
	// Smallest and largest frame size (in bytes).
	MinSize uint
	MaxSize uint
	// Mean inter-arrival time (in nanoseconds) of exponentially distributed
	// gaps.
	MeanGap float64
	// Timestamp of the first packet.
	Start int64
}

// Validate the profile.
func (p Profile) Validate() error {
	switch {
	case p.Flows == 0:
		return errors.New("at least one flow required")
	case p.Flows > 1<<16:
		return fmt.Errorf("too many flows (%d)", p.Flows)
	case p.MinSize < HEADER_BYTES:
		return fmt.Errorf("minimum frame size %d below header size %d", p.MinSize, HEADER_BYTES)
	case p.MaxSize < p.MinSize:
		return fmt.Errorf("maximum frame size %d below minimum %d", p.MaxSize, p.MinSize)
	case p.MeanGap < 0:
		return errors.New("negative inter-arrival time")
	}
	//
	return nil
}

// Generate a synthetic trace of UDP/IPv4 frames following a given profile,
// drawing all random choices from a given stream.
func Generate(profile Profile, rng *rngstream.RngStream) ([]Record, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	//
	var (
		records = make([]Record, profile.Packets)
		now     = profile.Start
	)
	//
	for i := range records {
		flow := uint(rng.RandInt(0, int(profile.Flows)-1))
		size := uint(rng.RandInt(int(profile.MinSize), int(profile.MaxSize)))
		//
		data, err := udpFrame(flow, size-HEADER_BYTES)
		if err != nil {
			return nil, err
		}
		//
		if i > 0 {
			now += int64(-profile.MeanGap * math.Log(1-rng.RandU01()))
		}
		//
		records[i] = NewRecord(data, now)
	}
	//
	return records, nil
}

// udpFrame constructs the frame of a given flow carrying a given number of
// payload bytes.  Flows differ in their source address and port.
func udpFrame(flow uint, payload uint) ([]byte, error) {
	var (
		buf  = gopacket.NewSerializeBuffer()
		opts = gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
		eth  = layers.Ethernet{
			SrcMAC:       net.HardwareAddr{0x02, 0, 0, 0, byte(flow >> 8), byte(flow)},
			DstMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 0x01},
			EthernetType: layers.EthernetTypeIPv4,
		}
		ip = layers.IPv4{
			Version:  4,
			TTL:      64,
			Protocol: layers.IPProtocolUDP,
			SrcIP:    net.IPv4(10, 1, byte(flow>>8), byte(flow)),
			DstIP:    net.IPv4(10, 2, 0, 1),
		}
		udp = layers.UDP{SrcPort: layers.UDPPort(1024 + flow), DstPort: 80}
	)
	//
	if err := udp.SetNetworkLayerForChecksum(&ip); err != nil {
		return nil, err
	}
	//
	err := gopacket.SerializeLayers(buf, opts, &eth, &ip, &udp, gopacket.Payload(make([]byte, payload)))
	//
	return buf.Bytes(), err
}
