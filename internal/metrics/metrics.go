// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package metrics exposes Prometheus counters for the streaming pipeline.
//
// All methods are safe on a nil *Metrics so components can be built without
// instrumentation in tests.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mucgpt"

// Stream outcomes recorded by StreamFinished.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeCanceled  = "canceled"
)

// Metrics holds the pipeline collectors.
type Metrics struct {
	registry *prometheus.Registry

	frames             prometheus.Counter
	decodeErrors       prometheus.Counter
	toolEvents         *prometheus.CounterVec
	protocolViolations prometheus.Counter
	streams            *prometheus.CounterVec
	tokens             *prometheus.CounterVec
	persistErrors      *prometheus.CounterVec
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "stream", Name: "frames_total",
			Help: "SSE frames read from backend responses.",
		}),
		decodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "stream", Name: "decode_errors_total",
			Help: "Malformed frames skipped by the decoder.",
		}),
		toolEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "tools", Name: "events_total",
			Help: "Tool stream events by state.",
		}, []string{"state"}),
		protocolViolations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "tools", Name: "implicit_starts_total",
			Help: "Tool events received before their STARTED event.",
		}),
		streams: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "stream", Name: "requests_total",
			Help: "Finished streaming requests by outcome.",
		}, []string{"outcome"}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "stream", Name: "tokens_total",
			Help: "Tokens reported by usage frames.",
		}, []string{"kind"}),
		persistErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "storage", Name: "errors_total",
			Help: "Failed persistence bridge operations.",
		}, []string{"op"}),
	}
	reg.MustRegister(m.frames, m.decodeErrors, m.toolEvents, m.protocolViolations,
		m.streams, m.tokens, m.persistErrors)
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the collectors in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// FrameRead counts one frame.
func (m *Metrics) FrameRead() {
	if m == nil {
		return
	}
	m.frames.Inc()
}

// DecodeError counts one skipped frame.
func (m *Metrics) DecodeError() {
	if m == nil {
		return
	}
	m.decodeErrors.Inc()
}

// ToolEvent counts one tool event.
func (m *Metrics) ToolEvent(state string) {
	if m == nil {
		return
	}
	m.toolEvents.WithLabelValues(state).Inc()
}

// ImplicitStart counts a tool buffer created without STARTED.
func (m *Metrics) ImplicitStart() {
	if m == nil {
		return
	}
	m.protocolViolations.Inc()
}

// StreamFinished counts a finished request.
func (m *Metrics) StreamFinished(outcome string) {
	if m == nil {
		return
	}
	m.streams.WithLabelValues(outcome).Inc()
}

// Tokens adds reported token usage.
func (m *Metrics) Tokens(prompt, completion int) {
	if m == nil {
		return
	}
	if prompt > 0 {
		m.tokens.WithLabelValues("prompt").Add(float64(prompt))
	}
	if completion > 0 {
		m.tokens.WithLabelValues("completion").Add(float64(completion))
	}
}

// PersistError counts a failed bridge operation.
func (m *Metrics) PersistError(op string) {
	if m == nil {
		return
	}
	m.persistErrors.WithLabelValues(op).Inc()
}
