// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Constructor Tests
// =============================================================================

// TestNewRingBuffer verifies initial state of new buffer.
func TestNewRingBuffer(t *testing.T) {
	buffer := NewRingBuffer[int](10)

	if buffer.Capacity() != 10 {
		t.Errorf("Capacity() = %d, want 10", buffer.Capacity())
	}
	if buffer.Size() != 0 {
		t.Errorf("Size() = %d, want 0", buffer.Size())
	}
	if !buffer.IsEmpty() {
		t.Error("IsEmpty() should be true for new buffer")
	}
	if buffer.DroppedCount() != 0 {
		t.Errorf("DroppedCount() = %d, want 0", buffer.DroppedCount())
	}
}

// TestNewRingBuffer_PanicsOnZeroCapacity verifies panic on zero capacity.
func TestNewRingBuffer_PanicsOnZeroCapacity(t *testing.T) {
	assert.Panics(t, func() { NewRingBuffer[int](0) })
	assert.Panics(t, func() { NewRingBuffer[int](-1) })
}

// =============================================================================
// Push / Pop Tests
// =============================================================================

// TestRingBuffer_PushDropsOldest verifies FIFO eviction on overflow.
func TestRingBuffer_PushDropsOldest(t *testing.T) {
	buffer := NewRingBuffer[int](3)

	for i := 1; i <= 3; i++ {
		assert.False(t, buffer.Push(i), "Push(%d) should not drop", i)
	}
	assert.Equal(t, 3, buffer.Size())

	assert.True(t, buffer.Push(4), "Push(4) should drop the oldest item")
	assert.Equal(t, []int{2, 3, 4}, buffer.ToSlice())
	assert.Equal(t, int64(1), buffer.DroppedCount())
}

// TestRingBuffer_PopNewest verifies LIFO removal across the wrap point.
func TestRingBuffer_PopNewest(t *testing.T) {
	buffer := NewRingBuffer[int](3)
	for i := 1; i <= 5; i++ {
		buffer.Push(i)
	}

	top, ok := buffer.PeekNewest()
	require.True(t, ok)
	assert.Equal(t, 5, top)

	for _, want := range []int{5, 4, 3} {
		got, ok := buffer.PopNewest()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}

	_, ok = buffer.PopNewest()
	assert.False(t, ok)
	_, ok = buffer.PeekNewest()
	assert.False(t, ok)
	assert.True(t, buffer.IsEmpty())
}

// TestRingBuffer_MixedEnds verifies pushing after popping from the tail.
func TestRingBuffer_MixedEnds(t *testing.T) {
	buffer := NewRingBuffer[int](3)
	buffer.Push(1)
	buffer.Push(2)
	buffer.PopNewest()
	buffer.Push(3)
	buffer.Push(4)

	assert.Equal(t, []int{1, 3, 4}, buffer.ToSlice())
}

// =============================================================================
// Replace / Clear Tests
// =============================================================================

func TestRingBuffer_Replace(t *testing.T) {
	tests := []struct {
		name        string
		items       []int
		wantContent []int
		wantSkipped int
	}{
		{"empty", nil, []int{}, 0},
		{"fits", []int{7, 8}, []int{7, 8}, 0},
		{"exact", []int{1, 2, 3}, []int{1, 2, 3}, 0},
		{"overflow keeps newest", []int{1, 2, 3, 4, 5}, []int{3, 4, 5}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buffer := NewRingBuffer[int](3)
			buffer.Push(99)

			skipped := buffer.Replace(tt.items)

			assert.Equal(t, tt.wantSkipped, skipped)
			assert.Equal(t, tt.wantContent, buffer.ToSlice())
		})
	}
}

func TestRingBuffer_Clear(t *testing.T) {
	buffer := NewRingBuffer[int](2)
	buffer.Push(1)
	buffer.Push(2)
	buffer.Push(3)

	buffer.Clear()

	assert.True(t, buffer.IsEmpty())
	assert.Equal(t, int64(0), buffer.DroppedCount())
	assert.Empty(t, buffer.ToSlice())
	assert.NotNil(t, buffer.ToSlice())
}

// TestRingBuffer_ToSliceIsCopy verifies callers cannot mutate the buffer.
func TestRingBuffer_ToSliceIsCopy(t *testing.T) {
	buffer := NewRingBuffer[int](2)
	buffer.Push(1)

	out := buffer.ToSlice()
	out[0] = 42

	assert.Equal(t, []int{1}, buffer.ToSlice())
}
