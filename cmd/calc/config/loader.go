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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/calcrepl/cmd/calc/internal/calcerr"
	"github.com/AleutianAI/calcrepl/cmd/calc/internal/persistence"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CALCULATOR_"

// Sentinel errors for configuration loading.
var (
	ErrReadConfig   = errors.New("failed to read config file")
	ErrParseConfig  = errors.New("failed to parse config file")
	ErrReadEnvFile  = errors.New("failed to read env file")
	ErrInvalidValue = errors.New("invalid configuration value")
	ErrCreateDir    = errors.New("failed to create directory")
)

// =============================================================================
// Validator
// =============================================================================

var configValidate *validator.Validate

func init() {
	configValidate = validator.New()
	_ = configValidate.RegisterValidation("encoding", validateEncoding)
}

// validateEncoding accepts any label golang.org/x/text can resolve.
func validateEncoding(fl validator.FieldLevel) bool {
	_, err := persistence.LookupEncoding(fl.Field().String())
	return err == nil
}

// =============================================================================
// Loading
// =============================================================================

// LoadOptions controls where configuration comes from.
type LoadOptions struct {
	// ConfigPath is the YAML file. A missing file is not an error.
	ConfigPath string

	// EnvFile is a dotenv file. A missing file is not an error. Its values
	// never override variables already set in the environment.
	EnvFile string

	// CreateDefault writes the defaults to ConfigPath when it is missing.
	CreateDefault bool

	// Apply runs after env overrides and before validation. The CLI uses it
	// for flags.
	Apply func(*CalculatorConfig)

	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Load builds a CalculatorConfig: defaults, then the YAML file, then the
// env file and environment, then Apply. The result is validated and the log
// and history directories are created.
//
// Every failure is a calcerr.KindConfig error.
func Load(opts LoadOptions) (CalculatorConfig, error) {
	cfg := DefaultConfig()

	if opts.ConfigPath != "" {
		if err := readYAML(opts.ConfigPath, opts.CreateDefault, &cfg); err != nil {
			return cfg, err
		}
	}

	dotenv := map[string]string{}
	if opts.EnvFile != "" {
		m, err := godotenv.Read(opts.EnvFile)
		switch {
		case err == nil:
			dotenv = m
		case errors.Is(err, os.ErrNotExist):
		default:
			return cfg, calcerr.Newf(calcerr.KindConfig, "config", "%w: %s: %v", ErrReadEnvFile, opts.EnvFile, err)
		}
	}

	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	env := func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := applyEnv(&cfg, env); err != nil {
		return cfg, err
	}

	if opts.Apply != nil {
		opts.Apply(&cfg)
	}
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.Encoding = strings.TrimSpace(cfg.Encoding)

	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	if err := EnsureDirectories(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks cfg against its validate tags.
func Validate(cfg CalculatorConfig) error {
	if err := configValidate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return calcerr.Newf(calcerr.KindConfig, "config", "%w: %s failed %q (value %v)",
				ErrInvalidValue, yamlName(fe.StructField()), fe.Tag(), fe.Value())
		}
		return calcerr.Newf(calcerr.KindConfig, "config", "%w: %v", ErrInvalidValue, err)
	}
	return nil
}

// EnsureDirectories creates the log and history directories, including the
// parents of explicitly configured files.
func EnsureDirectories(cfg CalculatorConfig) error {
	dirs := []string{
		cfg.LogDir,
		cfg.HistoryDir,
		filepath.Dir(cfg.LogFilePath()),
		filepath.Dir(cfg.HistoryFilePath()),
	}
	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0750); err != nil {
			return calcerr.Newf(calcerr.KindConfig, "config", "%w: %s: %v", ErrCreateDir, dir, err)
		}
	}
	return nil
}

func readYAML(path string, create bool, cfg *CalculatorConfig) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		if create {
			return createDefault(path)
		}
		return nil
	}
	if err != nil {
		return calcerr.Newf(calcerr.KindConfig, "config", "%w: %s: %v", ErrReadConfig, path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return calcerr.Newf(calcerr.KindConfig, "config", "%w: %s: %v", ErrParseConfig, path, err)
	}
	return nil
}

func createDefault(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return calcerr.Newf(calcerr.KindConfig, "config", "%w: %s: %v", ErrCreateDir, dir, err)
		}
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return calcerr.New(calcerr.KindConfig, "config", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return calcerr.Newf(calcerr.KindConfig, "config", "%w: %s: %v", ErrReadConfig, path, err)
	}
	return nil
}

// =============================================================================
// Environment overrides
// =============================================================================

func applyEnv(cfg *CalculatorConfig, env func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := env(EnvPrefix + key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("LOG_DIR", &cfg.LogDir)
	str("LOG_FILE", &cfg.LogFile)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("HISTORY_DIR", &cfg.HistoryDir)
	str("HISTORY_FILE", &cfg.HistoryFile)
	str("DEFAULT_ENCODING", &cfg.Encoding)

	ints := []struct {
		key string
		dst *int
	}{
		{"MAX_HISTORY_SIZE", &cfg.MaxHistorySize},
		{"UNDO_DEPTH", &cfg.UndoDepth},
		{"PRECISION", &cfg.Precision},
	}
	for _, it := range ints {
		v, ok := env(EnvPrefix + it.key)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return envError(it.key, v, "an integer")
		}
		*it.dst = n
	}

	if v, ok := env(EnvPrefix + "MAX_INPUT_VALUE"); ok && strings.TrimSpace(v) != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return envError("MAX_INPUT_VALUE", v, "a number")
		}
		cfg.MaxInputValue = f
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{"AUTO_SAVE", &cfg.AutoSave},
		{"TRACE", &cfg.Trace},
	}
	for _, it := range bools {
		v, ok := env(EnvPrefix + it.key)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		b, err := ParseBool(v)
		if err != nil {
			return envError(it.key, v, "a boolean")
		}
		*it.dst = b
	}
	return nil
}

// ParseBool accepts true/1/yes/on and false/0/no/off, case-insensitively.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("not a boolean: %q", s)
	}
}

func envError(key, value, want string) error {
	return calcerr.Newf(calcerr.KindConfig, "config", "%w: %s%s=%q is not %s",
		ErrInvalidValue, EnvPrefix, key, value, want)
}

// yamlName maps a struct field name to its yaml key for error messages.
func yamlName(field string) string {
	names := map[string]string{
		"LogDir":         "log_dir",
		"LogLevel":       "log_level",
		"HistoryDir":     "history_dir",
		"MaxHistorySize": "max_history_size",
		"UndoDepth":      "undo_depth",
		"Encoding":       "encoding",
		"Precision":      "precision",
		"MaxInputValue":  "max_input_value",
	}
	if n, ok := names[field]; ok {
		return n
	}
	return field
}
