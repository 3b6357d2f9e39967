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

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace of all exported metrics.
const Namespace = "nfemu"

// Metrics holds the Prometheus collectors describing a run.
type Metrics struct {
	registry    *prometheus.Registry
	packets     prometheus.Counter
	routed      *prometheus.CounterVec
	hits        *prometheus.CounterVec
	allocations prometheus.Counter
	elapsed     prometheus.Gauge
}

// NewMetrics constructs and registers the collectors for a run.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		packets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "packets_total",
			Help:      "Total number of packets processed.",
		}),
		routed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "routed_packets_total",
			Help:      "Total number of packets reaching a route, by disposition.",
		}, []string{"disposition"}),
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "node_hits_total",
			Help:      "Total number of visits per graph node.",
		}, []string{"node"}),
		allocations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "allocations_total",
			Help:      "Total number of allocator indices handed out.",
		}),
		elapsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "virtual_time_seconds",
			Help:      "Virtual time elapsed over the run.",
		}),
	}
	//
	m.registry.MustRegister(m.packets, m.routed, m.hits, m.allocations, m.elapsed)
	//
	return m
}

// Registry returns the registry holding these metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Record the statistics of a run.
func (m *Metrics) Record(stats Statistics) {
	m.packets.Add(float64(stats.Packets))
	m.routed.WithLabelValues("accepted").Add(float64(stats.Accepted))
	m.routed.WithLabelValues("rejected").Add(float64(stats.Rejected))
	m.allocations.Add(float64(stats.Allocations))
	m.elapsed.Set(float64(stats.Elapsed) / 1e9)
	//
	for _, h := range stats.Hits {
		m.hits.WithLabelValues(fmt.Sprintf("%d", h.Node)).Add(float64(h.Hits))
	}
}

// WriteMetrics writes the statistics of a run to a given file in the
// Prometheus text exposition format (e.g. for the node exporter's textfile
// collector).
func WriteMetrics(filename string, stats Statistics) error {
	m := NewMetrics()
	m.Record(stats)
	//
	return prometheus.WriteToTextfile(filename, m.registry)
}
