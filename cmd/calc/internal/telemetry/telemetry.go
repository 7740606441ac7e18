// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry sets up optional OpenTelemetry tracing.
//
// Spans are written as JSON lines to a local writer with a synchronous
// exporter, so no background goroutine outlives a command.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope used by the calculator.
const TracerName = "github.com/AleutianAI/calcrepl"

// ErrNilWriter is returned when tracing is enabled without a destination.
var ErrNilWriter = errors.New("telemetry: trace writer is nil")

// Config controls telemetry behavior.
type Config struct {
	// Enabled turns tracing on. When false Init installs nothing.
	Enabled bool

	// ServiceName identifies this process in spans.
	ServiceName string

	// ServiceVersion is the version string for this process.
	ServiceVersion string

	// Writer receives one JSON document per finished span.
	Writer io.Writer
}

// Init installs a global TracerProvider according to cfg.
//
// Description:
//
//	With tracing disabled the global provider is left as the otel no-op
//	default and shutdown does nothing. With tracing enabled spans are
//	exported synchronously to cfg.Writer.
//
// Outputs:
//
//	shutdown - Flushes and stops the provider. Must be called.
//	error - Non-nil if the exporter cannot be created.
//
// Example:
//
//	shutdown, err := telemetry.Init(ctx, telemetry.Config{Enabled: true, Writer: f})
//	if err != nil {
//	    return err
//	}
//	defer shutdown(context.Background())
func Init(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }
	if !cfg.Enabled {
		return noop, nil
	}
	if cfg.Writer == nil {
		return nil, ErrNilWriter
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(cfg.Writer))
	if err != nil {
		return nil, fmt.Errorf("create exporter: %w", err)
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "calc"
	}
	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", serviceName),
		attribute.String("service.version", cfg.ServiceVersion),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

// Tracer returns the calculator's tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}
