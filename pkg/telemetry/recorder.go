// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName names the tracer and meter used by this module.
const InstrumentationName = "openbuilding"

// Recorder emits a span and metrics for each tracked operation.
//
// Thread Safety:
//
//	Safe for concurrent use.
type Recorder struct {
	tracer trace.Tracer

	duration metric.Float64Histogram
	total    metric.Int64Counter
	failures metric.Int64Counter
	nodes    metric.Int64Histogram
}

// NewRecorder builds a Recorder on explicit providers.
//
// Errors:
//
//	Returns an error if an instrument cannot be created.
func NewRecorder(tp trace.TracerProvider, mp metric.MeterProvider) (*Recorder, error) {
	meter := mp.Meter(InstrumentationName)
	r := &Recorder{tracer: tp.Tracer(InstrumentationName)}

	var err error
	if r.duration, err = meter.Float64Histogram(
		"openbuilding_operation_duration_seconds",
		metric.WithDescription("Duration of adapter and store operations"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if r.total, err = meter.Int64Counter(
		"openbuilding_operation_total",
		metric.WithDescription("Total number of adapter and store operations"),
	); err != nil {
		return nil, err
	}
	if r.failures, err = meter.Int64Counter(
		"openbuilding_operation_errors_total",
		metric.WithDescription("Number of failed operations"),
	); err != nil {
		return nil, err
	}
	if r.nodes, err = meter.Int64Histogram(
		"openbuilding_graph_nodes",
		metric.WithDescription("Nodes in the graph produced or consumed by an operation"),
	); err != nil {
		return nil, err
	}
	return r, nil
}

var (
	defaultRecorder *Recorder
	defaultOnce     sync.Once
)

// Default returns a Recorder bound to the global providers. Call Init
// before the first call to Default or the recorder stays a no-op.
func Default() *Recorder {
	defaultOnce.Do(func() {
		r, err := NewRecorder(otel.GetTracerProvider(), otel.GetMeterProvider())
		if err != nil {
			r = &Recorder{tracer: otel.GetTracerProvider().Tracer(InstrumentationName)}
		}
		defaultRecorder = r
	})
	return defaultRecorder
}

// Operation is one tracked call. End must be called exactly once.
type Operation struct {
	rec    *Recorder
	span   trace.Span
	name   string
	format string
	start  time.Time
}

// Start opens a span named op and starts the clock.
//
// Example:
//
//	ctx, op := rec.Start(ctx, "parse", "xml")
//	doc, err := xmlgraph.Parse(f)
//	op.End(ctx, doc.Graph().NodeCount(), err)
func (r *Recorder) Start(ctx context.Context, op, format string) (context.Context, *Operation) {
	ctx, span := r.tracer.Start(ctx, "openbuilding."+op,
		trace.WithAttributes(
			attribute.String("openbuilding.operation", op),
			attribute.String("openbuilding.format", format),
		),
	)
	return ctx, &Operation{rec: r, span: span, name: op, format: format, start: time.Now()}
}

// End closes the span and records duration, count and outcome.
func (o *Operation) End(ctx context.Context, nodes int, err error) {
	defer o.span.End()

	success := err == nil
	attrs := metric.WithAttributes(
		attribute.String("operation", o.name),
		attribute.String("format", o.format),
		attribute.Bool("success", success),
	)
	if o.rec.duration != nil {
		o.rec.duration.Record(ctx, time.Since(o.start).Seconds(), attrs)
		o.rec.total.Add(ctx, 1, attrs)
	}

	if !success {
		o.span.RecordError(err)
		o.span.SetStatus(codes.Error, err.Error())
		if o.rec.failures != nil {
			o.rec.failures.Add(ctx, 1, attrs)
		}
		return
	}
	o.span.SetAttributes(attribute.Int("graph.node_count", nodes))
	if o.rec.nodes != nil {
		o.rec.nodes.Record(ctx, int64(nodes), attrs)
	}
}
