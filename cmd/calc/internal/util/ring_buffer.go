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
	"sync"
)

// =============================================================================
// Ring Buffer Interface
// =============================================================================

// RingBufferable defines the bounded sequence used by the calculator's history
// store and snapshot stacks.
//
// # Description
//
// A fixed-capacity sequence that drops its oldest item when a push would
// exceed the capacity. PopNewest takes items back in LIFO order, which is
// what the snapshot stacks need; the history store only pushes and reads.
//
// # Example
//
//	var stack RingBufferable[string] = NewRingBuffer[string](3)
//	stack.Push("a")
//	stack.Push("b")
//	top, _ := stack.PopNewest() // "b"
//
// # Assumptions
//
//   - Items can be copied by value
//   - Dropping old items is acceptable
type RingBufferable[T any] interface {
	// Push appends item as the newest element, dropping the oldest if full.
	// Returns true if an item was dropped.
	Push(item T) bool

	// PopNewest removes and returns the newest item.
	PopNewest() (T, bool)

	// PeekNewest returns the newest item without removing it.
	PeekNewest() (T, bool)

	// Replace discards the contents and keeps the newest Capacity() items.
	Replace(items []T) int

	// ToSlice returns a copy of the contents, oldest first.
	ToSlice() []T

	Size() int
	Capacity() int
	IsEmpty() bool
	DroppedCount() int64
	Clear()
}

// =============================================================================
// Ring Buffer Struct
// =============================================================================

// RingBuffer is a fixed-size circular buffer that drops the oldest item
// when full.
//
// # How It Works
//
//  1. Items are added at the tail position
//  2. PopNewest removes from the tail
//  3. When full, Push advances the head, discarding the oldest item
//  4. DroppedCount tracks how many items were discarded that way
//
// # Thread Safety
//
// All operations are protected by a mutex. The calculator drives it from a
// single goroutine, so the lock is never contended there.
type RingBuffer[T any] struct {
	buffer   []T
	head     int
	tail     int
	size     int
	capacity int
	dropped  int64
	mu       sync.Mutex
}

var _ RingBufferable[int] = (*RingBuffer[int])(nil)

// NewRingBuffer creates a buffer holding at most capacity items.
//
// Panics if capacity is not positive; capacities come from validated
// configuration so a zero here is a programming error.
func NewRingBuffer[T any](capacity int) *RingBuffer[T] {
	if capacity <= 0 {
		panic("ring buffer capacity must be positive")
	}

	return &RingBuffer[T]{
		buffer:   make([]T, capacity),
		capacity: capacity,
	}
}

// Push adds an item as the newest element.
func (r *RingBuffer[T]) Push(item T) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pushLocked(item)
}

func (r *RingBuffer[T]) pushLocked(item T) bool {
	dropped := false

	if r.size == r.capacity {
		var zero T
		r.buffer[r.head] = zero
		r.head = (r.head + 1) % r.capacity
		r.size--
		r.dropped++
		dropped = true
	}

	r.buffer[r.tail] = item
	r.tail = (r.tail + 1) % r.capacity
	r.size++

	return dropped
}

// PopNewest removes and returns the most recently pushed item.
func (r *RingBuffer[T]) PopNewest() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero T
	if r.size == 0 {
		return zero, false
	}

	r.tail = (r.tail - 1 + r.capacity) % r.capacity
	item := r.buffer[r.tail]
	r.buffer[r.tail] = zero
	r.size--

	return item, true
}

// PeekNewest returns the most recently pushed item without removing it.
func (r *RingBuffer[T]) PeekNewest() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size == 0 {
		var zero T
		return zero, false
	}

	return r.buffer[(r.tail-1+r.capacity)%r.capacity], true
}

// Replace discards the current contents and pushes items in order. When
// items exceeds the capacity only the newest Capacity() survive. Returns the
// number of items that did not fit.
func (r *RingBuffer[T]) Replace(items []T) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.resetLocked()

	skipped := 0
	if len(items) > r.capacity {
		skipped = len(items) - r.capacity
		items = items[skipped:]
	}
	for _, item := range items {
		r.pushLocked(item)
	}
	return skipped
}

// ToSlice returns a copy of the buffer contents, oldest first.
// Returns an empty, non-nil slice for an empty buffer.
func (r *RingBuffer[T]) ToSlice() []T {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]T, r.size)
	idx := r.head

	for i := 0; i < r.size; i++ {
		result[i] = r.buffer[idx]
		idx = (idx + 1) % r.capacity
	}

	return result
}

// Size returns the number of items held.
func (r *RingBuffer[T]) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// Capacity returns the maximum number of items.
func (r *RingBuffer[T]) Capacity() int {
	return r.capacity // Immutable, no lock needed
}

// IsEmpty reports whether the buffer holds no items.
func (r *RingBuffer[T]) IsEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size == 0
}

// DroppedCount returns how many items Push discarded since the last Clear.
func (r *RingBuffer[T]) DroppedCount() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Clear removes all items and resets the dropped counter.
func (r *RingBuffer[T]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.resetLocked()
	r.dropped = 0
}

func (r *RingBuffer[T]) resetLocked() {
	var zero T
	for i := range r.buffer {
		r.buffer[i] = zero
	}

	r.head = 0
	r.tail = 0
	r.size = 0
}
