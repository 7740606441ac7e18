// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package calculator ties the evaluator, history store, snapshot manager,
// persistence and notifier together.
//
// # Mutation Protocol
//
// Every user-driven mutation (calculate, clear, load) follows the same
// order:
//
//  1. Do everything that can fail first (evaluate, parse the file)
//  2. Capture a snapshot of the current history
//  3. Mutate the store
//  4. Notify watchers
//
// A failure in step 1 leaves both the history and the undo stack untouched.
// Undo and redo swap whole snapshots and never capture.
//
// # Thread Safety
//
// Calculator is not safe for concurrent use.
package calculator

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/calcrepl/cmd/calc/internal/calcerr"
	"github.com/AleutianAI/calcrepl/cmd/calc/internal/history"
	"github.com/AleutianAI/calcrepl/cmd/calc/internal/memento"
	"github.com/AleutianAI/calcrepl/cmd/calc/internal/observer"
	"github.com/AleutianAI/calcrepl/cmd/calc/internal/operations"
	"github.com/AleutianAI/calcrepl/cmd/calc/internal/telemetry"
	"github.com/AleutianAI/calcrepl/pkg/logging"
)

// ErrNoPersister is returned by Save and Load when no persister is set.
var ErrNoPersister = errors.New("history persistence is not configured")

// Persister saves and loads history files.
type Persister interface {
	Save(path string, records []history.Calculation) error
	Load(path string) ([]history.Calculation, error)
}

// Options configures a Calculator. Zero values fall back to the package
// defaults of the component they configure.
type Options struct {
	Precision      int
	MaxInputValue  float64
	MaxHistorySize int

	// UndoDepth bounds each undo/redo stack. Zero means MaxHistorySize.
	UndoDepth int

	// HistoryPath is used by Save and Load when no path is given.
	HistoryPath string

	Persister Persister
	Logger    *logging.Logger

	// Now stamps new records. Defaults to time.Now.
	Now func() time.Time
}

// LoadResult describes a successful Load.
type LoadResult struct {
	Path string

	// Loaded is the number of records now in history.
	Loaded int

	// Dropped is the number of oldest file records that did not fit.
	Dropped int
}

// Calculator is the facade the REPL drives.
type Calculator struct {
	evaluator   *operations.Evaluator
	store       *history.Store
	snapshots   *memento.Manager
	persister   Persister
	notifier    *observer.Notifier
	historyPath string
	logger      *logging.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// New creates a Calculator from opts.
func New(opts Options) *Calculator {
	depth := opts.UndoDepth
	if depth <= 0 {
		depth = opts.MaxHistorySize
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Calculator{
		evaluator:   operations.NewEvaluator(opts.Precision, opts.MaxInputValue),
		store:       history.NewStore(opts.MaxHistorySize),
		snapshots:   memento.NewManager(depth),
		persister:   opts.Persister,
		notifier:    observer.NewNotifier(),
		historyPath: opts.HistoryPath,
		logger:      logger,
		tracer:      telemetry.Tracer(),
		now:         now,
	}
}

// Register adds a watcher for mutation events.
func (c *Calculator) Register(w observer.Watcher) {
	c.notifier.Register(w)
}

// Calculate evaluates op and, on success, appends the record to history.
func (c *Calculator) Calculate(ctx context.Context, op operations.Operation, a, b float64) (history.Calculation, error) {
	_, span := c.tracer.Start(ctx, "calculator.Calculate", trace.WithAttributes(
		attribute.String("operation", op.String()),
		attribute.Float64("operand_a", a),
		attribute.Float64("operand_b", b),
	))
	defer span.End()

	result, err := c.evaluator.Evaluate(op, a, b)
	if err != nil {
		return history.Calculation{}, failSpan(span, err)
	}

	record := history.NewCalculation(op, a, b, result, c.now())

	c.snapshots.Capture(c.store.List())
	if evicted := c.store.Append(record); evicted {
		c.logger.Debug("oldest record evicted", "capacity", c.store.Capacity())
	}

	span.SetAttributes(attribute.Float64("result", result))
	c.notify(observer.EventCalculated, &record)
	return record, nil
}

// Clear empties the history. It is undoable.
func (c *Calculator) Clear(ctx context.Context) {
	_, span := c.tracer.Start(ctx, "calculator.Clear")
	defer span.End()

	c.snapshots.Capture(c.store.List())
	c.store.Clear()
	c.notify(observer.EventCleared, nil)
}

// Undo restores the history as it was before the last mutation.
func (c *Calculator) Undo(ctx context.Context) error {
	_, span := c.tracer.Start(ctx, "calculator.Undo")
	defer span.End()

	restored, err := c.snapshots.Undo(c.store.List())
	if err != nil {
		return failSpan(span, err)
	}
	c.store.Load(restored)
	c.notify(observer.EventUndone, nil)
	return nil
}

// Redo reapplies the last undone mutation.
func (c *Calculator) Redo(ctx context.Context) error {
	_, span := c.tracer.Start(ctx, "calculator.Redo")
	defer span.End()

	restored, err := c.snapshots.Redo(c.store.List())
	if err != nil {
		return failSpan(span, err)
	}
	c.store.Load(restored)
	c.notify(observer.EventRedone, nil)
	return nil
}

// Save writes the history to path, or to the default history path when
// path is empty. Returns the path written. Saving is not a mutation.
func (c *Calculator) Save(ctx context.Context, path string) (string, error) {
	path = c.resolvePath(path)
	_, span := c.tracer.Start(ctx, "calculator.Save", trace.WithAttributes(
		attribute.String("path", path),
	))
	defer span.End()

	if c.persister == nil {
		return path, failSpan(span, calcerr.New(calcerr.KindPersistence, "save", ErrNoPersister))
	}

	records := c.store.List()
	if err := c.persister.Save(path, records); err != nil {
		return path, failSpan(span, err)
	}
	c.logger.Info("history saved", "path", path, "records", len(records))
	return path, nil
}

// Load replaces the history with the contents of path, or of the default
// history path when path is empty. A failed load changes nothing. Load is
// undoable.
func (c *Calculator) Load(ctx context.Context, path string) (LoadResult, error) {
	return c.load(ctx, "calculator.Load", path, true)
}

// Restore loads path like Load but as the session's starting state: nothing
// is captured and both undo and redo stacks are emptied, so the first undo
// cannot discard the restored history.
func (c *Calculator) Restore(ctx context.Context, path string) (LoadResult, error) {
	return c.load(ctx, "calculator.Restore", path, false)
}

func (c *Calculator) load(ctx context.Context, spanName, path string, undoable bool) (LoadResult, error) {
	path = c.resolvePath(path)
	_, span := c.tracer.Start(ctx, spanName, trace.WithAttributes(
		attribute.String("path", path),
		attribute.Bool("undoable", undoable),
	))
	defer span.End()

	if c.persister == nil {
		return LoadResult{Path: path}, failSpan(span, calcerr.New(calcerr.KindPersistence, "load", ErrNoPersister))
	}

	records, err := c.persister.Load(path)
	if err != nil {
		return LoadResult{Path: path}, failSpan(span, err)
	}

	if undoable {
		c.snapshots.Capture(c.store.List())
	} else {
		c.snapshots.Reset()
	}
	dropped := c.store.Load(records)
	if dropped > 0 {
		c.logger.Warn("history trimmed on load",
			"path", path,
			"dropped", dropped,
			"capacity", c.store.Capacity(),
		)
	}

	res := LoadResult{Path: path, Loaded: c.store.Len(), Dropped: dropped}
	span.SetAttributes(attribute.Int("records", res.Loaded))
	c.notify(observer.EventLoaded, nil)
	return res, nil
}

// List returns a copy of the history, oldest first.
func (c *Calculator) List() []history.Calculation {
	return c.store.List()
}

// HistoryString renders the numbered history listing.
func (c *Calculator) HistoryString() string {
	return c.store.String()
}

// Len returns the number of records in history.
func (c *Calculator) Len() int {
	return c.store.Len()
}

// CanUndo reports whether Undo would succeed.
func (c *Calculator) CanUndo() bool {
	return c.snapshots.CanUndo()
}

// CanRedo reports whether Redo would succeed.
func (c *Calculator) CanRedo() bool {
	return c.snapshots.CanRedo()
}

// Stats describes the history and the undo/redo stacks.
type Stats struct {
	Records  int
	Capacity int

	// Evicted counts records pushed out by a full history since the last
	// clear.
	Evicted int64

	UndoSteps int
	RedoSteps int
	UndoLimit int

	// UndoDiscarded counts snapshots that fell off a full undo stack and
	// can no longer be reached.
	UndoDiscarded int64
}

// Stats returns the current history and undo/redo counters.
func (c *Calculator) Stats() Stats {
	return Stats{
		Records:       c.store.Len(),
		Capacity:      c.store.Capacity(),
		Evicted:       c.store.Evicted(),
		UndoSteps:     c.snapshots.UndoDepth(),
		RedoSteps:     c.snapshots.RedoDepth(),
		UndoLimit:     c.snapshots.MaxDepth(),
		UndoDiscarded: c.snapshots.Discarded(),
	}
}

// HistoryPath returns the default history file path.
func (c *Calculator) HistoryPath() string {
	return c.historyPath
}

// Evaluator returns the evaluator used by Calculate.
func (c *Calculator) Evaluator() *operations.Evaluator {
	return c.evaluator
}

func (c *Calculator) resolvePath(path string) string {
	if path == "" {
		return c.historyPath
	}
	return path
}

func (c *Calculator) notify(kind observer.EventKind, record *history.Calculation) {
	c.notifier.Notify(observer.Event{
		Kind:        kind,
		Calculation: record,
		Records:     c.store.Len(),
		At:          c.now(),
	})
}

func failSpan(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String("error.kind", calcerr.KindOf(err).String()))
	return err
}
