// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package memento implements snapshot-based undo/redo for the history store.
//
// # Architecture
//
//	  Capture(cur)   cur ──push──▶ [undo stack]      redo stack cleared
//	  Undo(cur)      [undo stack] ──pop──▶ restored   cur ──push──▶ [redo stack]
//	  Redo(cur)      [redo stack] ──pop──▶ restored   cur ──push──▶ [undo stack]
//
// A Snapshot is an immutable copy of the whole history. The Manager keeps two
// bounded LIFO stacks of snapshots; when a stack is full the oldest snapshot
// is discarded, so undo depth is bounded.
//
// # Invariants
//
//   - Each snapshot lives on exactly one stack at a time
//   - Capture (a fresh mutation) always empties the redo stack
//   - Undo followed by Redo restores the exact post-mutation state
//
// # Thread Safety
//
// Manager is not safe for concurrent use. The REPL drives it from a single
// goroutine.
package memento

import (
	"errors"

	"github.com/AleutianAI/calcrepl/cmd/calc/internal/calcerr"
	"github.com/AleutianAI/calcrepl/cmd/calc/internal/history"
	"github.com/AleutianAI/calcrepl/cmd/calc/internal/util"
)

// Common errors for undo/redo operations.
var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// DefaultDepth is used when NewManager is given a non-positive depth.
const DefaultDepth = 100

// =============================================================================
// Snapshot
// =============================================================================

// Snapshot is an immutable copy of the history at a point in time.
type Snapshot struct {
	records []history.Calculation
}

// NewSnapshot copies records into a new snapshot.
func NewSnapshot(records []history.Calculation) Snapshot {
	cp := make([]history.Calculation, len(records))
	copy(cp, records)
	return Snapshot{records: cp}
}

// Records returns a copy of the captured records.
func (s Snapshot) Records() []history.Calculation {
	cp := make([]history.Calculation, len(s.records))
	copy(cp, s.records)
	return cp
}

// Len returns the number of captured records.
func (s Snapshot) Len() int {
	return len(s.records)
}

// =============================================================================
// Manager
// =============================================================================

// Manager owns the undo and redo stacks.
type Manager struct {
	undo  *util.RingBuffer[Snapshot]
	redo  *util.RingBuffer[Snapshot]
	depth int
}

// NewManager creates a manager whose stacks each hold at most depth
// snapshots.
func NewManager(depth int) *Manager {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Manager{
		undo:  util.NewRingBuffer[Snapshot](depth),
		redo:  util.NewRingBuffer[Snapshot](depth),
		depth: depth,
	}
}

// Capture records the pre-mutation state and invalidates the redo branch.
// Call it immediately before a fresh mutation, never from Undo or Redo.
func (m *Manager) Capture(current []history.Calculation) {
	m.undo.Push(NewSnapshot(current))
	m.redo.Clear()
}

// Undo pops the newest undo snapshot, saves current onto the redo stack and
// returns the state to restore.
func (m *Manager) Undo(current []history.Calculation) ([]history.Calculation, error) {
	snap, ok := m.undo.PopNewest()
	if !ok {
		return nil, calcerr.New(calcerr.KindState, "undo", ErrNothingToUndo)
	}
	m.redo.Push(NewSnapshot(current))
	return snap.Records(), nil
}

// Redo pops the newest redo snapshot, saves current onto the undo stack and
// returns the state to restore.
func (m *Manager) Redo(current []history.Calculation) ([]history.Calculation, error) {
	snap, ok := m.redo.PopNewest()
	if !ok {
		return nil, calcerr.New(calcerr.KindState, "redo", ErrNothingToRedo)
	}
	m.undo.Push(NewSnapshot(current))
	return snap.Records(), nil
}

// CanUndo returns true if undo is available.
func (m *Manager) CanUndo() bool {
	return !m.undo.IsEmpty()
}

// CanRedo returns true if redo is available.
func (m *Manager) CanRedo() bool {
	return !m.redo.IsEmpty()
}

// UndoDepth returns the number of undo steps available.
func (m *Manager) UndoDepth() int {
	return m.undo.Size()
}

// RedoDepth returns the number of redo steps available.
func (m *Manager) RedoDepth() int {
	return m.redo.Size()
}

// MaxDepth returns the per-stack capacity.
func (m *Manager) MaxDepth() int {
	return m.depth
}

// Discarded returns how many undo snapshots fell off the bottom of the undo
// stack and are no longer recoverable.
func (m *Manager) Discarded() int64 {
	return m.undo.DroppedCount()
}

// Reset empties both stacks.
func (m *Manager) Reset() {
	m.undo.Clear()
	m.redo.Clear()
}
