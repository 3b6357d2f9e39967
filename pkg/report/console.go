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
	"time"

	"github.com/consensys/go-nfemu/pkg/util/termio"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/stat"
)

// Console reports progress on a terminal (or any other writer).  When the
// writer is interactive, progress is redrawn in place at most once per
// refresh period.  The final summary includes statistics over the virtual
// inter-arrival times of packets.
type Console struct {
	out         io.Writer
	interactive bool
	refresh     time.Duration
	// Progress
	total   uint64
	packets uint64
	warmup  bool
	// Virtual time
	origin int64
	now    int64
	gaps   []float64
	// Wall-clock time
	started  time.Time
	lastShow time.Time
}

// NOTE: This is used for compile time type checking if the given type
// satisfies the given interface.
var _ Reporter = (*Console)(nil)

// NewConsole constructs a console reporter writing to a given writer.  Set
// interactive when the writer is a terminal, such that progress can be redrawn
// in place.  Until StopWarmup is called, progress is reported as warm-up.
func NewConsole(out io.Writer, interactive bool, warmup bool) *Console {
	return &Console{
		out:         out,
		interactive: interactive,
		refresh:     250 * time.Millisecond,
		warmup:      warmup,
		started:     time.Now(),
	}
}

// SetTotalPackets implementation for Reporter interface.
func (p *Console) SetTotalPackets(total uint64) {
	p.total = total
}

// SetTimeOrigin implementation for Reporter interface.
func (p *Console) SetTimeOrigin(time int64) {
	p.origin = time
	p.now = time
}

// SetCurrentTime implementation for Reporter interface.
func (p *Console) SetCurrentTime(time int64) {
	if time >= p.now && p.packets > 0 {
		p.gaps = append(p.gaps, float64(time-p.now))
	}
	//
	p.now = time
}

// IncPacketCounter implementation for Reporter interface.
func (p *Console) IncPacketCounter() {
	p.packets++
}

// StopWarmup implementation for Reporter interface.
func (p *Console) StopWarmup() {
	p.warmup = false
	p.packets = 0
	p.gaps = p.gaps[:0]
	p.started = time.Now()
	//
	if p.interactive {
		fmt.Fprint(p.out, termio.CLEAR_LINE)
	}
}

// Show implementation for Reporter interface.
func (p *Console) Show(final bool) {
	if final {
		p.showSummary()
	} else if p.interactive && time.Since(p.lastShow) >= p.refresh {
		p.lastShow = time.Now()
		p.showProgress()
	}
}

// Summary returns the statistics over inter-arrival times observed so far:
// the mean, standard deviation, median and 99th percentile (in nanoseconds).
func (p *Console) Summary() (mean, stddev, median, p99 float64) {
	if len(p.gaps) == 0 {
		return 0, 0, 0, 0
	}
	//
	sorted := slices.Clone(p.gaps)
	slices.Sort(sorted)
	//
	mean, stddev = stat.MeanStdDev(sorted, nil)
	median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	p99 = stat.Quantile(0.99, stat.Empirical, sorted, nil)
	//
	return mean, stddev, median, p99
}

func (p *Console) showProgress() {
	var phase = "running"
	//
	if p.warmup {
		phase = "warming up"
	}
	//
	percent := 0.0
	//
	if p.total > 0 {
		percent = 100 * float64(p.packets) / float64(p.total)
	}
	//
	fmt.Fprintf(p.out, "%s%s: %d/%d packets (%.1f%%), virtual time %s", termio.CLEAR_LINE, phase, p.packets,
		p.total, percent, FormatNanos(p.now-p.origin))
}

func (p *Console) showSummary() {
	var (
		wall                     = time.Since(p.started).Seconds()
		mean, stddev, median, tl = p.Summary()
		rate                     float64
	)
	//
	if p.interactive {
		fmt.Fprint(p.out, termio.CLEAR_LINE)
	}
	//
	if wall > 0 {
		rate = float64(p.packets) / wall
	}
	//
	fmt.Fprintf(p.out, "processed %d packets in %.2fs (%.0f packets/s)\n", p.packets, wall, rate)
	fmt.Fprintf(p.out, "virtual time %s\n", FormatNanos(p.now-p.origin))
	//
	if len(p.gaps) > 0 {
		fmt.Fprintf(p.out, "inter-arrival mean %s (stddev %s), median %s, p99 %s\n", FormatNanos(int64(mean)),
			FormatNanos(int64(stddev)), FormatNanos(int64(median)), FormatNanos(int64(tl)))
	}
}
