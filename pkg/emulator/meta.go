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
	"github.com/consensys/go-nfemu/pkg/bdd"
	"github.com/consensys/go-nfemu/pkg/report"
	"golang.org/x/exp/slices"
)

// Config captures the options controlling a run of the emulator.
type Config struct {
	// Ingress device of every packet.
	Device uint64
	// Number of passes over the trace, where anything less than one means a
	// single pass.
	Loops int
	// Whether to precede the real passes with a warm-up pass whose statistics
	// are discarded.
	Warmup bool
	// Link rate (in Gbps) used to synthesise packet arrival times.  When zero,
	// the timestamps recorded in the trace are used instead.
	Rate float64
	// Whether to push progress to the reporter.
	Report bool
}

// Passes returns the number of (real) passes over the trace.
func (c Config) Passes() uint {
	return uint(max(c.Loops, 1))
}

// Meta holds the statistics of a run.  Statistics are accumulated across all
// packets and passes, except that they are reset once at the end of the
// warm-up pass (if any).
type Meta struct {
	// Number of times each node was visited.
	Hits map[uint64]uint64
	// Number of packets reaching a forwarding or broadcasting route.
	Accepted uint64
	// Number of packets reaching a dropping route.
	Rejected uint64
	// Number of packets processed.
	Packets uint64
	// Virtual time elapsed (in nanoseconds).
	Elapsed int64
	// Number of indices successfully allocated (i.e. new flows).
	Allocations uint64
}

// NewMeta constructs an empty set of statistics.
func NewMeta() *Meta {
	return &Meta{Hits: make(map[uint64]uint64)}
}

// Reset all statistics to zero.
func (m *Meta) Reset() {
	*m = Meta{Hits: make(map[uint64]uint64)}
}

// IsZero checks whether all statistics are zero.
func (m *Meta) IsZero() bool {
	return len(m.Hits) == 0 && m.Accepted == 0 && m.Rejected == 0 && m.Packets == 0 && m.Elapsed == 0 &&
		m.Allocations == 0
}

// Statistics summarises these statistics for reporting, labelling nodes using
// a given graph (if any).
func (m *Meta) Statistics(g *bdd.Graph) report.Statistics {
	var (
		ids  = make([]uint64, 0, len(m.Hits))
		hits = make([]report.NodeHits, 0, len(m.Hits))
	)
	//
	for id := range m.Hits {
		ids = append(ids, id)
	}
	//
	slices.Sort(ids)
	//
	for _, id := range ids {
		var label string
		//
		if g != nil {
			if n, ok := g.Node(id); ok {
				label = n.String()
			}
		}
		//
		hits = append(hits, report.NodeHits{Node: id, Label: label, Hits: m.Hits[id]})
	}
	//
	return report.Statistics{
		Hits:        hits,
		Accepted:    m.Accepted,
		Rejected:    m.Rejected,
		Packets:     m.Packets,
		Elapsed:     m.Elapsed,
		Allocations: m.Allocations,
	}
}
