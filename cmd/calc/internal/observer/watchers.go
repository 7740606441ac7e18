// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package observer

import (
	"github.com/AleutianAI/calcrepl/cmd/calc/internal/calcerr"
	"github.com/AleutianAI/calcrepl/cmd/calc/internal/history"
	"github.com/AleutianAI/calcrepl/pkg/logging"
)

// =============================================================================
// LogWatcher
// =============================================================================

// LogWatcher writes one log entry per event.
type LogWatcher struct {
	logger *logging.Logger
}

// NewLogWatcher creates a LogWatcher. A nil logger discards.
func NewLogWatcher(logger *logging.Logger) *LogWatcher {
	if logger == nil {
		logger = logging.Discard()
	}
	return &LogWatcher{logger: logger}
}

// Notify logs e.
func (w *LogWatcher) Notify(e Event) {
	if e.Calculation != nil {
		c := e.Calculation
		w.logger.Info("calculation performed",
			"event", e.Kind.String(),
			"expression", c.Expression(),
			"operation", c.Operation.String(),
			"operand_a", c.OperandA,
			"operand_b", c.OperandB,
			"result", c.Result,
			"records", e.Records,
		)
		return
	}
	w.logger.Info("history changed",
		"event", e.Kind.String(),
		"records", e.Records,
	)
}

// =============================================================================
// AutoSaveWatcher
// =============================================================================

// Source supplies the records to save.
type Source interface {
	List() []history.Calculation
}

// Persister writes records to a path.
type Persister interface {
	Save(path string, records []history.Calculation) error
}

// AutoSaveWatcher saves the full history after every event.
//
// Saving is best-effort: a failure is logged at Warn and counted, never
// returned.
type AutoSaveWatcher struct {
	source    Source
	persister Persister
	path      string
	logger    *logging.Logger

	saves    int
	failures int
	lastErr  error
}

// NewAutoSaveWatcher creates a watcher that saves source to path.
func NewAutoSaveWatcher(source Source, persister Persister, path string, logger *logging.Logger) *AutoSaveWatcher {
	if logger == nil {
		logger = logging.Discard()
	}
	return &AutoSaveWatcher{
		source:    source,
		persister: persister,
		path:      path,
		logger:    logger,
	}
}

// Notify saves the current history.
func (w *AutoSaveWatcher) Notify(e Event) {
	records := w.source.List()
	if err := w.persister.Save(w.path, records); err != nil {
		w.failures++
		w.lastErr = err
		w.logger.Warn("auto-save failed",
			"event", e.Kind.String(),
			"path", w.path,
			"kind", calcerr.KindOf(err).String(),
			"error", err.Error(),
		)
		return
	}
	w.saves++
	w.logger.Debug("history auto-saved",
		"event", e.Kind.String(),
		"path", w.path,
		"records", len(records),
	)
}

// Path returns the file the watcher saves to.
func (w *AutoSaveWatcher) Path() string {
	return w.path
}

// Saves returns the number of successful saves.
func (w *AutoSaveWatcher) Saves() int {
	return w.saves
}

// Failures returns the number of failed saves.
func (w *AutoSaveWatcher) Failures() int {
	return w.failures
}

// LastError returns the most recent save error, or nil.
func (w *AutoSaveWatcher) LastError() error {
	return w.lastErr
}
