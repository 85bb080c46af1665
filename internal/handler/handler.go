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
// Package handler executes update requests against a collection,
// enforcing _id immutability and shard key invariance.
package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/FerretDB/docupdate/internal/update"
)

// Parts of Prometheus metric names.
const (
	namespace = "docupdate"
	subsystem = "handler"
)

// Handler executes updates and write batches.
//
// Handler instance is safe for concurrent use;
// each update item is evaluated by its own update.Driver.
type Handler struct {
	*NewOpts

	tracer oteltrace.Tracer
	items  *prometheus.CounterVec
}

// NewOpts represents handler configuration.
type NewOpts struct {
	L *zap.Logger

	// Metrics are passed to update drivers; may be nil.
	Metrics *update.Metrics

	// ShardKey is the collection's shard key pattern; nil for unsharded collections.
	ShardKey *update.ShardKeyPattern

	// TracerProvider defaults to the global one.
	TracerProvider oteltrace.TracerProvider
}

// New returns a new handler.
func New(opts *NewOpts) *Handler {
	if opts == nil {
		opts = new(NewOpts)
	}

	if opts.L == nil {
		opts.L = zap.NewNop()
	}

	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	return &Handler{
		NewOpts: opts,
		tracer:  tp.Tracer("github.com/FerretDB/docupdate/internal/handler"),
		items: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "items_total",
				Help:      "Total number of processed update items.",
			},
			[]string{"result"},
		),
	}
}

// newDriver returns a new update driver for a single update item.
func (h *Handler) newDriver() *update.Driver {
	d := update.NewDriver(&update.DriverOpts{
		L:       h.L.Named("update"),
		Metrics: h.Metrics,
	})

	d.RefreshShardKeyPattern(h.ShardKey)

	return d
}

// Describe implements prometheus.Collector interface.
func (h *Handler) Describe(ch chan<- *prometheus.Desc) {
	h.items.Describe(ch)

	if h.Metrics != nil {
		h.Metrics.Describe(ch)
	}
}

// Collect implements prometheus.Collector interface.
func (h *Handler) Collect(ch chan<- prometheus.Metric) {
	h.items.Collect(ch)

	if h.Metrics != nil {
		h.Metrics.Collect(ch)
	}
}

// check interfaces
var (
	_ prometheus.Collector = (*Handler)(nil)
)
