// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package operations implements the calculator's binary arithmetic
// operations and the evaluator that validates operands and rounds results.
//
// Every function here is pure. Failures are *calcerr.Error values of kind
// KindInput (bad operands) or KindDomain (undefined results) wrapping one of
// the sentinels below.
package operations

import (
	"errors"
	"math"
	"strings"

	"github.com/AleutianAI/calcrepl/cmd/calc/internal/calcerr"
)

// Sentinel errors for operation evaluation.
var (
	// Input errors
	ErrUnknownOperation = errors.New("unknown operation")
	ErrNotFinite        = errors.New("operand must be a finite number")
	ErrOutOfRange       = errors.New("operand exceeds maximum magnitude")

	// Domain errors
	ErrDivisionByZero         = errors.New("division by zero is not allowed")
	ErrModulusByZero          = errors.New("modulus by zero is undefined")
	ErrIntDivisionByZero      = errors.New("integer division by zero is not allowed")
	ErrPercentZeroDenominator = errors.New("cannot calculate percentage with denominator zero")
	ErrZeroRootDegree         = errors.New("cannot calculate the 0th root")
	ErrEvenRootOfNegative     = errors.New("even root of a negative number is undefined")
	ErrRootOfNegative         = errors.New("non-integer root of a negative number is undefined")
	ErrNonFiniteResult        = errors.New("result is not a finite number")
)

// Operation names a supported binary operation. The value is the REPL token.
type Operation string

const (
	Add       Operation = "add"
	Subtract  Operation = "subtract"
	Multiply  Operation = "multiply"
	Divide    Operation = "divide"
	Power     Operation = "power"
	Root      Operation = "root"
	Modulus   Operation = "modulus"
	IntDivide Operation = "int_divide"
	Percent   Operation = "percent"
	AbsDiff   Operation = "abs_diff"
)

// binaryFunc computes a raw, unrounded result.
type binaryFunc func(a, b float64) (float64, error)

type opDef struct {
	symbol string
	fn     binaryFunc
}

// registry is built once; lookups never mutate it.
var registry = map[Operation]opDef{
	Add:       {"+", func(a, b float64) (float64, error) { return a + b, nil }},
	Subtract:  {"-", func(a, b float64) (float64, error) { return a - b, nil }},
	Multiply:  {"*", func(a, b float64) (float64, error) { return a * b, nil }},
	Divide:    {"/", divide},
	Power:     {"^", func(a, b float64) (float64, error) { return math.Pow(a, b), nil }},
	Root:      {"√", root},
	Modulus:   {"%", modulus},
	IntDivide: {"//", intDivide},
	Percent:   {"%of", percent},
	AbsDiff:   {"|diff|", func(a, b float64) (float64, error) { return math.Abs(a - b), nil }},
}

// order is the canonical listing order used by help output.
var order = []Operation{
	Add, Subtract, Multiply, Divide, Power, Root, Modulus, IntDivide, Percent, AbsDiff,
}

// All returns every supported operation in canonical order.
func All() []Operation {
	out := make([]Operation, len(order))
	copy(out, order)
	return out
}

// Parse maps a case-insensitive token to an Operation.
func Parse(name string) (Operation, error) {
	op := Operation(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := registry[op]; !ok {
		return "", calcerr.Newf(calcerr.KindInput, "parse", "%w: %q", ErrUnknownOperation, name)
	}
	return op, nil
}

// IsValid reports whether op is a supported operation.
func (o Operation) IsValid() bool {
	_, ok := registry[o]
	return ok
}

// Symbol returns the display symbol, or the name itself for unknown values.
func (o Operation) Symbol() string {
	if s, ok := registry[o]; ok {
		return s.symbol
	}
	return string(o)
}

// String returns the REPL token.
func (o Operation) String() string {
	return string(o)
}

// =============================================================================
// Operation implementations
// =============================================================================

func divide(a, b float64) (float64, error) {
	if b == 0 {
		return 0, ErrDivisionByZero
	}
	return a / b, nil
}

// intDivide floors the quotient toward negative infinity.
func intDivide(a, b float64) (float64, error) {
	if b == 0 {
		return 0, ErrIntDivisionByZero
	}
	return math.Floor(a / b), nil
}

// modulus returns a remainder with the sign of the divisor.
func modulus(a, b float64) (float64, error) {
	if b == 0 {
		return 0, ErrModulusByZero
	}
	r := math.Mod(a, b)
	if r != 0 && (r < 0) != (b < 0) {
		r += b
	}
	return r, nil
}

func percent(a, b float64) (float64, error) {
	if b == 0 {
		return 0, ErrPercentZeroDenominator
	}
	return (a / b) * 100, nil
}

// root computes the b-th root of a. Negative radicands only have a real
// root for odd integer degrees.
func root(a, b float64) (float64, error) {
	if b == 0 {
		return 0, ErrZeroRootDegree
	}
	if a >= 0 {
		return math.Pow(a, 1/b), nil
	}
	if b != math.Trunc(b) {
		return 0, ErrRootOfNegative
	}
	if math.Mod(b, 2) == 0 {
		return 0, ErrEvenRootOfNegative
	}
	return -math.Pow(-a, 1/b), nil
}
