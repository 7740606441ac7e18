// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package calcerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errSentinel = errors.New("sentinel")

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindInput, "input"},
		{KindDomain, "domain"},
		{KindState, "state"},
		{KindPersistence, "persistence"},
		{KindConfig, "config"},
		{KindUnknown, "unknown"},
		{Kind(42), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.String())
		})
	}
}

func TestNew_NilPassthrough(t *testing.T) {
	assert.NoError(t, New(KindInput, "add", nil))
}

func TestNew_WrapsSentinel(t *testing.T) {
	err := New(KindDomain, "divide", errSentinel)

	assert.EqualError(t, err, "divide: sentinel")
	assert.ErrorIs(t, err, errSentinel)
	assert.Equal(t, KindDomain, KindOf(err))
	assert.True(t, Is(err, KindDomain))
	assert.False(t, Is(err, KindInput))
}

func TestNew_EmptyOp(t *testing.T) {
	err := New(KindState, "", errSentinel)
	assert.EqualError(t, err, "sentinel")
}

func TestNewf_KeepsWrappedSentinel(t *testing.T) {
	err := Newf(KindPersistence, "load", "line %d: %w", 3, errSentinel)

	assert.EqualError(t, err, "load: line 3: sentinel")
	assert.ErrorIs(t, err, errSentinel)
}

func TestKindOf_ThroughWrapping(t *testing.T) {
	inner := New(KindInput, "parse", errSentinel)
	outer := fmt.Errorf("command failed: %w", inner)

	assert.Equal(t, KindInput, KindOf(outer))
	assert.Equal(t, KindUnknown, KindOf(errSentinel))
	assert.False(t, Is(nil, KindUnknown))
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "sentinel", Message(New(KindDomain, "divide", errSentinel)))
	assert.Equal(t, "sentinel", Message(fmt.Errorf("wrapped: %w", New(KindDomain, "divide", errSentinel))))
	assert.Equal(t, "plain", Message(errors.New("plain")))
	assert.Equal(t, "", Message(nil))
}
