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
package emulator

import (
	"fmt"

	"github.com/consensys/go-nfemu/pkg/report"
	"github.com/consensys/go-nfemu/pkg/trace"
	log "github.com/sirupsen/logrus"
)

// IPG_BYTES is the minimum Ethernet inter-packet gap (in bytes).
const IPG_BYTES = 20

// CRC_BYTES is the size of the Ethernet frame check sequence (in bytes).
const CRC_BYTES = 4

// Driver replays a trace through an emulator, pass after pass, managing the
// virtual clock and the warm-up pass.
type Driver struct {
	emulator *Emulator
	// Current virtual time (in nanoseconds).
	now int64
	// Timestamp of the previous packet (timestamp mode only).
	last    int64
	started bool
	// Bits put on the wire so far (rate mode only).
	bits uint64
}

// NewDriver constructs a driver for a given (initialised) emulator.
func NewDriver(emulator *Emulator) *Driver {
	return &Driver{emulator: emulator}
}

// Now returns the current virtual time (in nanoseconds).
func (d *Driver) Now() int64 {
	return d.now
}

// Run the emulator over a given trace according to its configuration.  When
// reporting is enabled, progress is pushed to the given reporter after every
// packet.  The reporter is told the number of packets in the warm-up pass (if
// any) before it starts, and the number in the measured passes after the
// warm-up has stopped.
func (d *Driver) Run(tr trace.Trace, reporter report.Reporter) error {
	var (
		config = d.emulator.Config()
		meta   = d.emulator.Meta()
		passes = config.Passes()
		warmup = config.Warmup
		total  = uint64(tr.Len()) * uint64(passes)
	)
	//
	if config.Report && warmup {
		reporter.SetTotalPackets(uint64(tr.Len()))
	} else if config.Report {
		reporter.SetTotalPackets(total)
	}
	//
	for pass := 0; warmup || passes > 0; pass++ {
		if err := d.pass(tr, reporter); err != nil {
			return err
		}
		//
		log.WithFields(log.Fields{
			"pass":     pass,
			"warmup":   warmup,
			"packets":  meta.Packets,
			"accepted": meta.Accepted,
			"rejected": meta.Rejected,
		}).Debug("completed pass")
		//
		if warmup {
			// Statistics are discarded, but not the machine state
			warmup = false
			meta.Reset()
			//
			if config.Report {
				reporter.StopWarmup()
				reporter.SetTotalPackets(total)
			}
		} else {
			passes--
		}
	}
	//
	if config.Report {
		reporter.Show(true)
	}
	//
	return nil
}

// pass runs every packet of the trace through the emulator once.
func (d *Driver) pass(tr trace.Trace, reporter report.Reporter) error {
	var (
		config = d.emulator.Config()
		meta   = d.emulator.Meta()
	)
	//
	if err := tr.Rewind(); err != nil {
		return err
	}
	//
	for {
		record, ok, err := tr.Next()
		if err != nil {
			return err
		} else if !ok {
			return nil
		}
		//
		dt, resetOrigin := d.advance(record, meta.Packets)
		//
		if config.Report && resetOrigin {
			reporter.SetTimeOrigin(d.now)
		}
		//
		packet := &Packet{Data: record.Data, Length: record.Length, Device: config.Device}
		//
		if err := d.emulator.Process(packet, d.now); err != nil {
			return fmt.Errorf("packet %d: %w", meta.Packets, err)
		}
		//
		meta.Packets++
		meta.Elapsed += dt
		//
		if config.Report {
			reporter.SetCurrentTime(d.now)
			reporter.IncPacketCounter()
			reporter.Show(false)
		}
	}
}

// advance the virtual clock for a given packet, returning the time elapsed
// since the previous packet and whether the reporter's time origin should be
// reset.
func (d *Driver) advance(record trace.Record, packets uint64) (int64, bool) {
	var (
		rate  = d.emulator.Config().Rate
		dt    int64
		reset = packets == 0
	)
	//
	if rate > 0 {
		// Time on the wire (in ns) at the given rate (in Gbps), rounded over
		// the whole run rather than per frame
		d.bits += uint64(record.Length+IPG_BYTES+CRC_BYTES) * 8
		dt = int64(float64(d.bits)/rate) - d.now
	} else if !d.started {
		// First packet defines the start of time
		d.now = record.Timestamp
	} else if record.Timestamp >= d.last {
		dt = record.Timestamp - d.last
	} else {
		// Trace restarted, so time continues from where it was
		reset = true
	}
	//
	d.started = true
	d.last = record.Timestamp
	d.now += dt
	//
	return dt, reset
}
