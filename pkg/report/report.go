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
package report

import (
	"fmt"
	"io"

	"github.com/consensys/go-nfemu/pkg/util/termio"
)

// Reporter receives progress updates during a run.  Reporters are write-only
// sinks: nothing pushed to them is ever read back.
type Reporter interface {
	// SetTotalPackets sets the number of packets expected in the current
	// phase, i.e. the warm-up pass or the measured passes which follow it.
	SetTotalPackets(total uint64)
	// SetTimeOrigin sets the virtual time from which elapsed time is measured.
	SetTimeOrigin(time int64)
	// SetCurrentTime sets the current virtual time.
	SetCurrentTime(time int64)
	// IncPacketCounter notes that another packet was processed.
	IncPacketCounter()
	// Show the progress made so far, or the final summary.
	Show(final bool)
	// StopWarmup notes that the warm-up pass has completed.
	StopWarmup()
}

// NodeHits records the number of times a given node was visited.
type NodeHits struct {
	Node  uint64
	Label string
	Hits  uint64
}

// Statistics summarises the outcome of a run.
type Statistics struct {
	// Hits per node, ordered by node identifier.
	Hits []NodeHits
	// Packets accepted (i.e. forwarded or broadcast).
	Accepted uint64
	// Packets dropped.
	Rejected uint64
	// Packets processed.
	Packets uint64
	// Virtual time elapsed (in nanoseconds).
	Elapsed int64
	// Indices allocated (i.e. new flows).
	Allocations uint64
}

// PrintStatistics writes a table of run statistics, followed by a table of
// node hits, to a given writer.
func PrintStatistics(w io.Writer, stats Statistics, escapes bool) error {
	var (
		summary = termio.NewTablePrinter(2)
		hits    = termio.NewTablePrinter(4)
		bold    = termio.BoldAnsiEscape()
	)
	//
	summary.AddRow("packets", fmt.Sprintf("%d", stats.Packets))
	summary.AddRow("accepted", fmt.Sprintf("%d", stats.Accepted))
	summary.AddRow("rejected", fmt.Sprintf("%d", stats.Rejected))
	summary.AddRow("allocations", fmt.Sprintf("%d", stats.Allocations))
	summary.AddRow("elapsed", FormatNanos(stats.Elapsed))
	summary.SetLeftAligned(0, true)
	summary.AnsiEscapes(escapes)
	//
	if err := summary.Print(w); err != nil {
		return err
	}
	//
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	//
	heading := hits.AddRow("node", "", "hits", "share")
	hits.SetRowEscape(heading, bold)
	//
	for _, h := range stats.Hits {
		share := 0.0
		//
		if stats.Packets > 0 {
			share = 100 * float64(h.Hits) / float64(stats.Packets)
		}
		//
		row := hits.AddRow(fmt.Sprintf("#%d", h.Node), h.Label, fmt.Sprintf("%d", h.Hits), fmt.Sprintf("%.1f%%", share))
		//
		if share >= 100 {
			hits.SetEscape(3, row, termio.AnsiEscape{}.FgColour(termio.TERM_GREEN))
		}
	}
	//
	hits.SetLeftAligned(1, true)
	hits.SetMaxWidth(1, 60)
	hits.AnsiEscapes(escapes)
	//
	return hits.Print(w)
}

// FormatNanos renders a duration given in nanoseconds using the largest
// sensible unit.
func FormatNanos(ns int64) string {
	switch {
	case ns >= 1_000_000_000:
		return fmt.Sprintf("%.3fs", float64(ns)/1e9)
	case ns >= 1_000_000:
		return fmt.Sprintf("%.3fms", float64(ns)/1e6)
	case ns >= 1_000:
		return fmt.Sprintf("%.3fus", float64(ns)/1e3)
	default:
		return fmt.Sprintf("%dns", ns)
	}
}
