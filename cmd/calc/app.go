// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/AleutianAI/calcrepl/cmd/calc/config"
	"github.com/AleutianAI/calcrepl/cmd/calc/internal/calculator"
	"github.com/AleutianAI/calcrepl/cmd/calc/internal/metrics"
	"github.com/AleutianAI/calcrepl/cmd/calc/internal/observer"
	"github.com/AleutianAI/calcrepl/cmd/calc/internal/persistence"
	"github.com/AleutianAI/calcrepl/cmd/calc/internal/telemetry"
	"github.com/AleutianAI/calcrepl/pkg/logging"
)

const serviceName = "calc"

// appOptions selects which parts of the stack are wired.
type appOptions struct {
	// Persistent enables the history file, auto-save and startup load.
	Persistent bool
}

// app holds everything built from configuration for one process run.
type app struct {
	cfg      config.CalculatorConfig
	logger   *logging.Logger
	calc     *calculator.Calculator
	metrics  *metrics.Recorder
	autoSave *observer.AutoSaveWatcher

	traceFile *os.File
	shutdown  func(context.Context) error
}

// newApp wires logging, tracing, persistence, the calculator and its
// watchers from cfg.
func newApp(ctx context.Context, cfg config.CalculatorConfig, opts appOptions) (*app, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := logging.New(logging.Config{
		Level:   level,
		LogFile: cfg.LogFilePath(),
		Service: serviceName,
		Quiet:   true,
	})

	a := &app{
		cfg:      cfg,
		logger:   logger,
		shutdown: func(context.Context) error { return nil },
	}

	if cfg.Trace {
		path := cfg.TraceFilePath()
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			a.Close(ctx)
			return nil, fmt.Errorf("create trace directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
		if err != nil {
			a.Close(ctx)
			return nil, fmt.Errorf("open trace file: %w", err)
		}
		a.traceFile = f
	}
	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Trace,
		ServiceName:    serviceName,
		ServiceVersion: version,
		Writer:         traceWriter(a.traceFile),
	})
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.shutdown = shutdown

	calcOpts := calculator.Options{
		Precision:      cfg.Precision,
		MaxInputValue:  cfg.MaxInputValue,
		MaxHistorySize: cfg.MaxHistorySize,
		UndoDepth:      cfg.EffectiveUndoDepth(),
		Logger:         logger,
	}

	var store *persistence.CSVStore
	if opts.Persistent {
		store, err = persistence.NewCSVStore(afero.NewOsFs(), cfg.Encoding)
		if err != nil {
			a.Close(ctx)
			return nil, err
		}
		calcOpts.Persister = store
		calcOpts.HistoryPath = cfg.HistoryFilePath()
	}

	a.calc = calculator.New(calcOpts)
	a.metrics = metrics.NewRecorder()
	a.calc.Register(observer.NewLogWatcher(logger))
	a.calc.Register(a.metrics)
	if opts.Persistent && cfg.AutoSave {
		a.autoSave = observer.NewAutoSaveWatcher(a.calc, store, cfg.HistoryFilePath(), logger)
		a.calc.Register(a.autoSave)
	}

	logger.Info("calculator initialized",
		"version", version,
		"history_file", calcOpts.HistoryPath,
		"max_history_size", cfg.MaxHistorySize,
		"auto_save", opts.Persistent && cfg.AutoSave,
		"trace", cfg.Trace,
	)
	return a, nil
}

// Close flushes spans and closes the trace and log files.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	if a.shutdown != nil {
		if err := a.shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracing: %w", err))
		}
	}
	if a.traceFile != nil {
		if err := a.traceFile.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close trace file: %w", err))
		}
		a.traceFile = nil
	}
	a.logger.Info("calculator shut down")
	if err := a.logger.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// traceWriter avoids handing telemetry a typed-nil *os.File.
func traceWriter(f *os.File) io.Writer {
	if f == nil {
		return nil
	}
	return f
}
