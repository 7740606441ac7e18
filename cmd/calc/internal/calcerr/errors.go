// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package calcerr classifies calculator failures.
//
// Packages declare their own sentinel errors and wrap them in an *Error
// carrying a Kind. The REPL uses the Kind to decide how to report a failure;
// only KindConfig is fatal, and only at startup.
//
//	err := calcerr.New(calcerr.KindDomain, "divide", ErrDivisionByZero)
//	errors.Is(err, ErrDivisionByZero) // true
//	calcerr.KindOf(err)               // KindDomain
package calcerr

import (
	"errors"
	"fmt"
)

// Exit codes for the calc binary.
const (
	ExitSuccess = 0 // Graceful exit
	ExitFailure = 1 // Unrecoverable startup or configuration error
)

// Kind is the category of a calculator error.
type Kind int

const (
	// KindUnknown is returned by KindOf for errors that were never classified.
	KindUnknown Kind = iota

	// KindInput covers malformed commands, wrong argument counts,
	// non-numeric operands and out-of-range magnitudes.
	KindInput

	// KindDomain covers mathematically undefined operations.
	KindDomain

	// KindState covers undo/redo with an empty stack.
	KindState

	// KindPersistence covers missing files, malformed rows and I/O failures.
	KindPersistence

	// KindConfig covers invalid configuration. Fatal at startup.
	KindConfig
)

// String returns the lowercase kind name used in logs and metric labels.
func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindDomain:
		return "domain"
	case KindState:
		return "state"
	case KindPersistence:
		return "persistence"
	case KindConfig:
		return "config"
	default:
		return "unknown"
	}
}

// Error wraps an underlying error with its Kind and the operation that failed.
type Error struct {
	Kind Kind   // Category
	Op   string // Operation or command that failed, e.g. "divide", "load"
	Err  error  // Underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

var _ error = (*Error)(nil)

// New wraps err with a kind and operation. Returns nil if err is nil.
func New(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf builds an error of the given kind from a format string. Use %w to keep
// a sentinel reachable through errors.Is.
func Newf(kind Kind, op string, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the Kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the user-facing text of err: the wrapped error's message
// without the operation prefix.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var ce *Error
	if errors.As(err, &ce) && ce.Err != nil {
		return ce.Err.Error()
	}
	return err.Error()
}
