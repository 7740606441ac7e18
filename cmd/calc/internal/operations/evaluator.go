// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package operations

import (
	"math"

	"github.com/AleutianAI/calcrepl/cmd/calc/internal/calcerr"
)

// Evaluator validates operands, applies an operation and rounds the result.
//
// # Description
//
// Operands are rejected when they are not finite or when their magnitude
// exceeds MaxMagnitude. Results are rounded half away from zero to
// Precision decimal places.
//
// # Examples
//
//	ev := NewEvaluator(2, 1e6)
//	v, err := ev.Evaluate(Divide, 1, 3) // 0.33, nil
//	_, err = ev.Evaluate(Divide, 5, 0)  // KindDomain, ErrDivisionByZero
//
// # Assumptions
//
//   - Precision is in [0, 15]; configuration validates this
//   - MaxMagnitude <= 0 disables the range check
type Evaluator struct {
	precision    int
	maxMagnitude float64
}

// NewEvaluator creates an evaluator. A negative precision is treated as 0.
func NewEvaluator(precision int, maxMagnitude float64) *Evaluator {
	if precision < 0 {
		precision = 0
	}
	return &Evaluator{precision: precision, maxMagnitude: maxMagnitude}
}

// Precision returns the number of decimal places results are rounded to.
func (e *Evaluator) Precision() int {
	return e.precision
}

// MaxMagnitude returns the largest accepted absolute operand value.
func (e *Evaluator) MaxMagnitude() float64 {
	return e.maxMagnitude
}

// ValidateOperand checks a single operand against the evaluator's limits.
func (e *Evaluator) ValidateOperand(op Operation, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return calcerr.Newf(calcerr.KindInput, string(op), "%w: %v", ErrNotFinite, v)
	}
	if e.maxMagnitude > 0 && math.Abs(v) > e.maxMagnitude {
		return calcerr.Newf(calcerr.KindInput, string(op), "%w: |%v| > %v", ErrOutOfRange, v, e.maxMagnitude)
	}
	return nil
}

// Evaluate applies op to a and b.
func (e *Evaluator) Evaluate(op Operation, a, b float64) (float64, error) {
	s, ok := registry[op]
	if !ok {
		return 0, calcerr.Newf(calcerr.KindInput, "evaluate", "%w: %q", ErrUnknownOperation, string(op))
	}
	if err := e.ValidateOperand(op, a); err != nil {
		return 0, err
	}
	if err := e.ValidateOperand(op, b); err != nil {
		return 0, err
	}

	raw, err := s.fn(a, b)
	if err != nil {
		return 0, calcerr.New(calcerr.KindDomain, string(op), err)
	}
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 0, calcerr.New(calcerr.KindDomain, string(op), ErrNonFiniteResult)
	}

	return Round(raw, e.precision), nil
}

// Round rounds v half away from zero to places decimal places. Values too
// large to scale are returned unchanged, and negative zero becomes zero.
func Round(v float64, places int) float64 {
	if places < 0 {
		places = 0
	}
	scale := math.Pow(10, float64(places))
	scaled := v * scale
	if math.IsInf(scaled, 0) {
		return v
	}
	r := math.Round(scaled) / scale
	if r == 0 {
		return 0
	}
	return r
}
