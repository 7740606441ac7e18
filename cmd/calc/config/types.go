// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"path/filepath"
)

const (
	// DefaultConfigFile is read from the working directory when --config is
	// not given.
	DefaultConfigFile = "calculator.yaml"

	// DefaultEnvFile is read from the working directory when --env-file is
	// not given.
	DefaultEnvFile = ".env"

	defaultLogFileName     = "calculator.log"
	defaultHistoryFileName = "calc_history.csv"
	traceFileName          = "trace.jsonl"
)

// CalculatorConfig holds every tunable of the calculator.
type CalculatorConfig struct {
	// Logging
	LogDir   string `yaml:"log_dir" validate:"required"`
	LogFile  string `yaml:"log_file,omitempty"`
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn warning error"`

	// History
	HistoryDir     string `yaml:"history_dir" validate:"required"`
	HistoryFile    string `yaml:"history_file,omitempty"`
	MaxHistorySize int    `yaml:"max_history_size" validate:"gte=1"`
	UndoDepth      int    `yaml:"undo_depth" validate:"gte=0"`
	AutoSave       bool   `yaml:"auto_save"`
	Encoding       string `yaml:"encoding" validate:"required,encoding"`

	// Arithmetic
	Precision     int     `yaml:"precision" validate:"gte=0,lte=15"`
	MaxInputValue float64 `yaml:"max_input_value" validate:"gt=0"`

	// Trace writes otel spans to <log_dir>/trace.jsonl.
	Trace bool `yaml:"trace"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() CalculatorConfig {
	return CalculatorConfig{
		LogDir:         "logs",
		LogLevel:       "info",
		HistoryDir:     "history",
		MaxHistorySize: 100,
		UndoDepth:      0,
		AutoSave:       true,
		Encoding:       "utf-8",
		Precision:      2,
		MaxInputValue:  1e6,
		Trace:          false,
	}
}

// LogFilePath returns log_file, or <log_dir>/calculator.log when unset.
func (c CalculatorConfig) LogFilePath() string {
	if c.LogFile != "" {
		return c.LogFile
	}
	return filepath.Join(c.LogDir, defaultLogFileName)
}

// HistoryFilePath returns history_file, or <history_dir>/calc_history.csv
// when unset.
func (c CalculatorConfig) HistoryFilePath() string {
	if c.HistoryFile != "" {
		return c.HistoryFile
	}
	return filepath.Join(c.HistoryDir, defaultHistoryFileName)
}

// TraceFilePath returns where spans are written when Trace is on.
func (c CalculatorConfig) TraceFilePath() string {
	return filepath.Join(c.LogDir, traceFileName)
}

// EffectiveUndoDepth resolves undo_depth: zero means max_history_size.
func (c CalculatorConfig) EffectiveUndoDepth() int {
	if c.UndoDepth > 0 {
		return c.UndoDepth
	}
	return c.MaxHistorySize
}
