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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/calcrepl/cmd/calc/internal/calcerr"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

// baseOptions points every directory into a temp dir.
func baseOptions(t *testing.T) (LoadOptions, string) {
	t.Helper()
	dir := t.TempDir()
	return LoadOptions{
		ConfigPath: filepath.Join(dir, "calculator.yaml"),
		EnvFile:    filepath.Join(dir, ".env"),
		LookupEnv: envMap(map[string]string{
			"CALCULATOR_LOG_DIR":     filepath.Join(dir, "logs"),
			"CALCULATOR_HISTORY_DIR": filepath.Join(dir, "history"),
		}),
	}, dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// =============================================================================
// Defaults
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 100, cfg.MaxHistorySize)
	assert.Equal(t, 2, cfg.Precision)
	assert.Equal(t, 1e6, cfg.MaxInputValue)
	assert.True(t, cfg.AutoSave)
	assert.Equal(t, "utf-8", cfg.Encoding)
	assert.Equal(t, filepath.Join("logs", "calculator.log"), cfg.LogFilePath())
	assert.Equal(t, filepath.Join("history", "calc_history.csv"), cfg.HistoryFilePath())
	assert.Equal(t, filepath.Join("logs", "trace.jsonl"), cfg.TraceFilePath())
	assert.NoError(t, Validate(cfg))
}

func TestEffectiveUndoDepth(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 100, cfg.EffectiveUndoDepth())

	cfg.UndoDepth = 7
	assert.Equal(t, 7, cfg.EffectiveUndoDepth())
}

func TestExplicitFilePathsWin(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogFile = "/tmp/x.log"
	cfg.HistoryFile = "/tmp/h.csv"

	assert.Equal(t, "/tmp/x.log", cfg.LogFilePath())
	assert.Equal(t, "/tmp/h.csv", cfg.HistoryFilePath())
}

// =============================================================================
// Load
// =============================================================================

func TestLoad_MissingFilesUseDefaults(t *testing.T) {
	opts, dir := baseOptions(t)

	cfg, err := Load(opts)

	require.NoError(t, err)
	assert.Equal(t, 100, cfg.MaxHistorySize)
	assert.DirExists(t, filepath.Join(dir, "logs"))
	assert.DirExists(t, filepath.Join(dir, "history"))
	assert.NoFileExists(t, opts.ConfigPath)
}

func TestLoad_CreateDefault(t *testing.T) {
	opts, _ := baseOptions(t)
	opts.ConfigPath = filepath.Join(filepath.Dir(opts.ConfigPath), "nested", "calculator.yaml")
	opts.CreateDefault = true

	_, err := Load(opts)
	require.NoError(t, err)

	data, err := os.ReadFile(opts.ConfigPath)
	require.NoError(t, err)
	var written CalculatorConfig
	require.NoError(t, yaml.Unmarshal(data, &written))
	assert.Equal(t, DefaultConfig(), written)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	opts, _ := baseOptions(t)
	writeFile(t, opts.ConfigPath, "max_history_size: 5\nprecision: 4\nauto_save: false\nencoding: windows-1252\n")

	cfg, err := Load(opts)

	require.NoError(t, err)
	assert.Equal(t, 5, cfg.MaxHistorySize)
	assert.Equal(t, 4, cfg.Precision)
	assert.False(t, cfg.AutoSave)
	assert.Equal(t, "windows-1252", cfg.Encoding)
	assert.Equal(t, 1e6, cfg.MaxInputValue, "unset keys keep their defaults")
}

func TestLoad_Precedence(t *testing.T) {
	opts, dir := baseOptions(t)
	writeFile(t, opts.ConfigPath, "max_history_size: 5\nprecision: 4\nundo_depth: 3\n")
	writeFile(t, opts.EnvFile, "CALCULATOR_PRECISION=6\nCALCULATOR_UNDO_DEPTH=9\n")
	opts.LookupEnv = envMap(map[string]string{
		"CALCULATOR_LOG_DIR":     filepath.Join(dir, "logs"),
		"CALCULATOR_HISTORY_DIR": filepath.Join(dir, "history"),
		"CALCULATOR_UNDO_DEPTH":  "11",
	})
	opts.Apply = func(c *CalculatorConfig) { c.MaxHistorySize = 8 }

	cfg, err := Load(opts)

	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Precision, "env file beats yaml")
	assert.Equal(t, 11, cfg.UndoDepth, "real env beats env file")
	assert.Equal(t, 8, cfg.MaxHistorySize, "Apply beats everything")
}

func TestLoad_EnvOverrides(t *testing.T) {
	opts, dir := baseOptions(t)
	opts.LookupEnv = envMap(map[string]string{
		"CALCULATOR_LOG_DIR":          filepath.Join(dir, "l"),
		"CALCULATOR_LOG_FILE":         filepath.Join(dir, "l", "custom.log"),
		"CALCULATOR_HISTORY_DIR":      filepath.Join(dir, "h"),
		"CALCULATOR_HISTORY_FILE":     filepath.Join(dir, "h2", "custom.csv"),
		"CALCULATOR_MAX_HISTORY_SIZE": "3",
		"CALCULATOR_AUTO_SAVE":        "off",
		"CALCULATOR_PRECISION":        "0",
		"CALCULATOR_MAX_INPUT_VALUE":  "2.5e3",
		"CALCULATOR_DEFAULT_ENCODING": "utf-16le",
		"CALCULATOR_LOG_LEVEL":        "DEBUG",
		"CALCULATOR_TRACE":            "yes",
	})

	cfg, err := Load(opts)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "l", "custom.log"), cfg.LogFilePath())
	assert.Equal(t, filepath.Join(dir, "h2", "custom.csv"), cfg.HistoryFilePath())
	assert.Equal(t, 3, cfg.MaxHistorySize)
	assert.False(t, cfg.AutoSave)
	assert.Equal(t, 0, cfg.Precision)
	assert.Equal(t, 2500.0, cfg.MaxInputValue)
	assert.Equal(t, "utf-16le", cfg.Encoding)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.Trace)
	assert.DirExists(t, filepath.Join(dir, "h2"))
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		yaml string
	}{
		{name: "non-integer size", env: map[string]string{"CALCULATOR_MAX_HISTORY_SIZE": "lots"}},
		{name: "zero size", env: map[string]string{"CALCULATOR_MAX_HISTORY_SIZE": "0"}},
		{name: "negative undo depth", env: map[string]string{"CALCULATOR_UNDO_DEPTH": "-1"}},
		{name: "precision too high", env: map[string]string{"CALCULATOR_PRECISION": "16"}},
		{name: "non-positive max input", env: map[string]string{"CALCULATOR_MAX_INPUT_VALUE": "0"}},
		{name: "bad float", env: map[string]string{"CALCULATOR_MAX_INPUT_VALUE": "big"}},
		{name: "bad bool", env: map[string]string{"CALCULATOR_AUTO_SAVE": "maybe"}},
		{name: "unknown encoding", env: map[string]string{"CALCULATOR_DEFAULT_ENCODING": "klingon-8"}},
		{name: "unknown log level", env: map[string]string{"CALCULATOR_LOG_LEVEL": "loud"}},
		{name: "broken yaml", yaml: "max_history_size: [\n"},
		{name: "wrong yaml type", yaml: "max_history_size: many\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, dir := baseOptions(t)
			env := map[string]string{
				"CALCULATOR_LOG_DIR":     filepath.Join(dir, "logs"),
				"CALCULATOR_HISTORY_DIR": filepath.Join(dir, "history"),
			}
			for k, v := range tt.env {
				env[k] = v
			}
			opts.LookupEnv = envMap(env)
			if tt.yaml != "" {
				writeFile(t, opts.ConfigPath, tt.yaml)
			}

			_, err := Load(opts)

			require.Error(t, err)
			assert.Equal(t, calcerr.KindConfig, calcerr.KindOf(err))
		})
	}
}

func TestLoad_ValidationNamesYAMLKey(t *testing.T) {
	opts, _ := baseOptions(t)
	writeFile(t, opts.ConfigPath, "precision: 99\n")

	_, err := Load(opts)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidValue)
	assert.Contains(t, err.Error(), "precision")
}

func TestLoad_UnreadableDirectory(t *testing.T) {
	opts, dir := baseOptions(t)
	blocker := filepath.Join(dir, "blocker")
	writeFile(t, blocker, "x")
	opts.LookupEnv = envMap(map[string]string{
		"CALCULATOR_LOG_DIR":     filepath.Join(blocker, "logs"),
		"CALCULATOR_HISTORY_DIR": filepath.Join(dir, "history"),
	})

	_, err := Load(opts)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCreateDir)
}

func TestLoad_NoPathsAtAll(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(LoadOptions{
		LookupEnv: envMap(map[string]string{
			"CALCULATOR_LOG_DIR":     filepath.Join(dir, "logs"),
			"CALCULATOR_HISTORY_DIR": filepath.Join(dir, "history"),
		}),
	})

	require.NoError(t, err)
	assert.Equal(t, 100, cfg.MaxHistorySize)
}

// =============================================================================
// ParseBool
// =============================================================================

func TestParseBool(t *testing.T) {
	for _, s := range []string{"true", "TRUE", "1", "yes", "On"} {
		b, err := ParseBool(s)
		require.NoError(t, err, s)
		assert.True(t, b, s)
	}
	for _, s := range []string{"false", "0", "no", "OFF"} {
		b, err := ParseBool(s)
		require.NoError(t, err, s)
		assert.False(t, b, s)
	}
	_, err := ParseBool("perhaps")
	assert.Error(t, err)
}
