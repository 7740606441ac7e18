// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

// PersonalityEnv overrides the detected personality level.
const PersonalityEnv = "CALCULATOR_PERSONALITY"

// PersonalityLevel defines the richness of CLI output
type PersonalityLevel string

const (
	// PersonalityFull enables icons, colors and the banner
	PersonalityFull PersonalityLevel = "full"

	// PersonalityStandard enables colors and icons without the banner
	PersonalityStandard PersonalityLevel = "standard"

	// PersonalityMinimal uses plain text with icons
	PersonalityMinimal PersonalityLevel = "minimal"

	// PersonalityMachine outputs plain text suitable for scripting and parsing
	PersonalityMachine PersonalityLevel = "machine"
)

var (
	currentLevel  = PersonalityFull
	personalityMu sync.RWMutex
)

// GetPersonalityLevel returns the process-wide personality level
func GetPersonalityLevel() PersonalityLevel {
	personalityMu.RLock()
	defer personalityMu.RUnlock()
	return currentLevel
}

// SetPersonalityLevel changes the process-wide personality level
func SetPersonalityLevel(level PersonalityLevel) {
	personalityMu.Lock()
	defer personalityMu.Unlock()
	currentLevel = level
}

// ParsePersonalityLevel converts a string to a PersonalityLevel.
// Unknown values yield PersonalityStandard.
func ParsePersonalityLevel(s string) PersonalityLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "full", "f":
		return PersonalityFull
	case "standard", "std", "s":
		return PersonalityStandard
	case "minimal", "min", "m":
		return PersonalityMinimal
	case "machine", "quiet", "q":
		return PersonalityMachine
	default:
		return PersonalityStandard
	}
}

// InitPersonality picks the level from, in order: flag (if non-empty),
// CALCULATOR_PERSONALITY, then whether stdout is a terminal.
func InitPersonality(flag string) PersonalityLevel {
	level := DetectPersonality(flag, os.Getenv(PersonalityEnv), IsTerminal(os.Stdout))
	SetPersonalityLevel(level)
	return level
}

// DetectPersonality is the pure decision behind InitPersonality.
func DetectPersonality(flag, env string, terminal bool) PersonalityLevel {
	if flag != "" {
		return ParsePersonalityLevel(flag)
	}
	if env != "" {
		return ParsePersonalityLevel(env)
	}
	if !terminal {
		return PersonalityMachine
	}
	return PersonalityFull
}

// IsTerminal reports whether f is attached to a terminal, including Cygwin
// and MSYS pseudo-terminals.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
