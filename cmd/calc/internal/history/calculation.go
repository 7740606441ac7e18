// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package history

import (
	"fmt"
	"strconv"
	"time"

	"github.com/AleutianAI/calcrepl/cmd/calc/internal/operations"
)

// displayTimeLayout is used by String; persistence uses RFC 3339.
const displayTimeLayout = "2006-01-02 15:04:05"

// Calculation is one evaluated operation and its result.
//
// Calculation is a plain value: copying it copies everything, which is what
// lets snapshots be taken with a slice copy.
type Calculation struct {
	Operation operations.Operation
	OperandA  float64
	OperandB  float64
	Result    float64
	Timestamp time.Time
}

// NewCalculation builds a record stamped with at.
func NewCalculation(op operations.Operation, a, b, result float64, at time.Time) Calculation {
	return Calculation{
		Operation: op,
		OperandA:  a,
		OperandB:  b,
		Result:    result,
		Timestamp: at,
	}
}

// String renders "[2006-01-02 15:04:05] 1 add 2 = 3".
func (c Calculation) String() string {
	return fmt.Sprintf("[%s] %s %s %s = %s",
		c.Timestamp.Format(displayTimeLayout),
		FormatNumber(c.OperandA),
		c.Operation,
		FormatNumber(c.OperandB),
		FormatNumber(c.Result),
	)
}

// Expression renders "1 + 2 = 3" using the operation symbol.
func (c Calculation) Expression() string {
	return fmt.Sprintf("%s %s %s = %s",
		FormatNumber(c.OperandA),
		c.Operation.Symbol(),
		FormatNumber(c.OperandB),
		FormatNumber(c.Result),
	)
}

// Equal reports whether two records are identical, comparing timestamps
// with time.Time.Equal.
func (c Calculation) Equal(other Calculation) bool {
	return c.Operation == other.Operation &&
		c.OperandA == other.OperandA &&
		c.OperandB == other.OperandB &&
		c.Result == other.Result &&
		c.Timestamp.Equal(other.Timestamp)
}

// FormatNumber prints v with the fewest digits that round-trip.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
