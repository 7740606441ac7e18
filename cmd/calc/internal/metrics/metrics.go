// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

/*
Package metrics counts calculator activity with Prometheus collectors.

Collectors live on a private registry. Nothing is exported over the
network; the REPL "stats" command reads them back through Samples.

# Metrics

  - calc_operations_total: Counter by operation
  - calc_errors_total: Counter by error kind
  - calc_history_events_total: Counter by mutation event
  - calc_history_size: Gauge of the current history length
*/
package metrics

import (
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/AleutianAI/calcrepl/cmd/calc/internal/calcerr"
	"github.com/AleutianAI/calcrepl/cmd/calc/internal/observer"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	metricsNamespace = "calc"
	historySubsystem = "history"
)

// -----------------------------------------------------------------------------
// Recorder
// -----------------------------------------------------------------------------

// Recorder owns the calculator's collectors.
//
// # Description
//
// Recorder is also an observer.Watcher: registering it on the calculator's
// notifier keeps the history counters and gauge current without the
// calculator knowing about metrics.
//
// # Thread Safety
//
// Prometheus collectors are safe for concurrent use.
type Recorder struct {
	registry *prometheus.Registry

	// operationsTotal counts successful calculations by operation.
	operationsTotal *prometheus.CounterVec

	// errorsTotal counts failed commands by error kind.
	errorsTotal *prometheus.CounterVec

	// eventsTotal counts history mutations by event.
	eventsTotal *prometheus.CounterVec

	// historySize tracks the current history length.
	historySize prometheus.Gauge
}

// NewRecorder creates a Recorder with its collectors registered on a fresh
// registry.
//
// # Examples
//
//	rec := metrics.NewRecorder()
//	calc.Register(rec)
//	rec.RecordError(err)
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		operationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "operations_total",
				Help:      "Successful calculations by operation.",
			},
			[]string{"operation"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "errors_total",
				Help:      "Failed commands by error kind.",
			},
			[]string{"kind"},
		),
		eventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: historySubsystem,
				Name:      "events_total",
				Help:      "History mutations by event.",
			},
			[]string{"event"},
		),
		historySize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: historySubsystem,
				Name:      "size",
				Help:      "Current number of records in history.",
			},
		),
	}

	r.registry.MustRegister(r.operationsTotal, r.errorsTotal, r.eventsTotal, r.historySize)
	return r
}

// Notify implements observer.Watcher.
func (r *Recorder) Notify(e observer.Event) {
	r.eventsTotal.WithLabelValues(e.Kind.String()).Inc()
	r.historySize.Set(float64(e.Records))
	if e.Kind == observer.EventCalculated && e.Calculation != nil {
		r.operationsTotal.WithLabelValues(e.Calculation.Operation.String()).Inc()
	}
}

// RecordError counts err under its calcerr kind. A nil error is ignored.
func (r *Recorder) RecordError(err error) {
	if err == nil {
		return
	}
	r.errorsTotal.WithLabelValues(calcerr.KindOf(err).String()).Inc()
}

// Registry returns the private registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// -----------------------------------------------------------------------------
// Samples
// -----------------------------------------------------------------------------

// Sample is one flattened metric value.
type Sample struct {
	Name  string
	Label string
	Value float64
}

// Samples gathers every non-empty series, sorted by name then label.
//
// # Outputs
//
//   - []Sample: One entry per series. Label is "key=value" or "" for
//     unlabelled series.
//   - error: Non-nil if the registry fails to gather.
func (r *Recorder) Samples() ([]Sample, error) {
	families, err := r.registry.Gather()
	if err != nil {
		return nil, err
	}

	var out []Sample
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			out = append(out, Sample{
				Name:  mf.GetName(),
				Label: labelString(m.GetLabel()),
				Value: metricValue(m),
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Label < out[j].Label
	})
	return out, nil
}

func labelString(pairs []*dto.LabelPair) string {
	if len(pairs) == 0 {
		return ""
	}
	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(p.GetName())
		b.WriteString("=")
		b.WriteString(p.GetValue())
	}
	return b.String()
}

func metricValue(m *dto.Metric) float64 {
	switch {
	case m.GetCounter() != nil:
		return m.GetCounter().GetValue()
	case m.GetGauge() != nil:
		return m.GetGauge().GetValue()
	default:
		return 0
	}
}
