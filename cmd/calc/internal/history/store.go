// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package history holds calculation records in a bounded, ordered store.
//
// The store only knows about its own contents. Snapshot capture before a
// mutation is the caller's job (see package calculator); the store exposes
// List and Load so a caller can take and restore snapshots.
package history

import (
	"strconv"
	"strings"

	"github.com/AleutianAI/calcrepl/cmd/calc/internal/util"
)

// DefaultCapacity is used when NewStore is given a non-positive capacity.
const DefaultCapacity = 100

// Store is an insertion-ordered sequence of calculations capped at a fixed
// capacity. Appending past the cap evicts the oldest record.
type Store struct {
	records *util.RingBuffer[Calculation]
}

// NewStore creates an empty store.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{records: util.NewRingBuffer[Calculation](capacity)}
}

// Append adds c as the newest record. Returns true if the oldest record was
// evicted to make room.
func (s *Store) Append(c Calculation) bool {
	return s.records.Push(c)
}

// Clear removes every record.
func (s *Store) Clear() {
	s.records.Clear()
}

// List returns a copy of the records, oldest first.
func (s *Store) List() []Calculation {
	return s.records.ToSlice()
}

// Load replaces the contents with records, keeping the newest Capacity()
// entries. Returns how many leading records were dropped.
func (s *Store) Load(records []Calculation) int {
	return s.records.Replace(records)
}

// Len returns the number of records held.
func (s *Store) Len() int {
	return s.records.Size()
}

// Capacity returns the maximum number of records.
func (s *Store) Capacity() int {
	return s.records.Capacity()
}

// Last returns the newest record.
func (s *Store) Last() (Calculation, bool) {
	return s.records.PeekNewest()
}

// Evicted returns how many records have been evicted by Append since the
// store was created or last cleared.
func (s *Store) Evicted() int64 {
	return s.records.DroppedCount()
}

// String renders a numbered listing, one record per line.
func (s *Store) String() string {
	records := s.List()
	if len(records) == 0 {
		return "No calculations in history"
	}

	var b strings.Builder
	b.WriteString("Calculation History:")
	for i, c := range records {
		b.WriteString("\n")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(c.String())
	}
	return b.String()
}
