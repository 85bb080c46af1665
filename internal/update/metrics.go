// Copyright 2021 FerretDB Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package update

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Parts of Prometheus metric names.
const (
	namespace = "docupdate"
	subsystem = "update"
)

// Metrics represents update engine metrics.
type Metrics struct {
	Parsed         *prometheus.CounterVec
	Applied        *prometheus.CounterVec
	ShardKeyChecks *prometheus.CounterVec
}

// NewMetrics creates update engine metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		Parsed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "parsed_total",
				Help:      "Total number of parsed update specifications.",
			},
			[]string{"kind"},
		),
		Applied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "applied_total",
				Help:      "Total number of applied updates.",
			},
			[]string{"result"},
		),
		ShardKeyChecks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "shard_key_checks_total",
				Help:      "Total number of shard key invariance checks.",
			},
			[]string{"affects", "result"},
		),
	}
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.Parsed.Describe(ch)
	m.Applied.Describe(ch)
	m.ShardKeyChecks.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.Parsed.Collect(ch)
	m.Applied.Collect(ch)
	m.ShardKeyChecks.Collect(ch)
}

// parsed records parse result kind: "modifiers", "replacement", or "error".
func (m *Metrics) parsed(kind string) {
	if m == nil {
		return
	}

	m.Parsed.WithLabelValues(kind).Inc()
}

// applied records application result: "ok" or error code name.
func (m *Metrics) applied(result string) {
	if m == nil {
		return
	}

	m.Applied.WithLabelValues(result).Inc()
}

// shardKeyChecked records shard key check with the advisory flag.
func (m *Metrics) shardKeyChecked(affects bool, result string) {
	if m == nil {
		return
	}

	m.ShardKeyChecks.WithLabelValues(strconv.FormatBool(affects), result).Inc()
}

// check interfaces
var (
	_ prometheus.Collector = (*Metrics)(nil)
)
