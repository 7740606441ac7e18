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
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/calcrepl/cmd/calc/internal/history"
	"github.com/AleutianAI/calcrepl/cmd/calc/internal/operations"
	"github.com/AleutianAI/calcrepl/cmd/calc/internal/persistence"
	"github.com/AleutianAI/calcrepl/pkg/logging"
)

type fakeSource []history.Calculation

func (s fakeSource) List() []history.Calculation { return s }

type fakePersister struct {
	err   error
	calls int
	path  string
	saved []history.Calculation
}

func (p *fakePersister) Save(path string, records []history.Calculation) error {
	p.calls++
	p.path = path
	p.saved = records
	return p.err
}

func sample() history.Calculation {
	return history.NewCalculation(operations.Add, 1, 2, 3, time.Unix(1700000000, 0).UTC())
}

// =============================================================================
// Notifier Tests
// =============================================================================

func TestEventKind_String(t *testing.T) {
	assert.Equal(t, "calculated", EventCalculated.String())
	assert.Equal(t, "cleared", EventCleared.String())
	assert.Equal(t, "loaded", EventLoaded.String())
	assert.Equal(t, "undone", EventUndone.String())
	assert.Equal(t, "redone", EventRedone.String())
	assert.Equal(t, "unknown", EventKind(42).String())
}

func TestNotifier_DeliversInOrder(t *testing.T) {
	var got []string
	n := NewNotifier(
		WatcherFunc(func(e Event) { got = append(got, "a:"+e.Kind.String()) }),
		nil,
		WatcherFunc(func(e Event) { got = append(got, "b:"+e.Kind.String()) }),
	)

	n.Notify(Event{Kind: EventCleared})

	assert.Equal(t, 2, n.Len())
	assert.Equal(t, []string{"a:cleared", "b:cleared"}, got)
}

func TestNotifier_StampsTime(t *testing.T) {
	var seen Event
	n := NewNotifier(WatcherFunc(func(e Event) { seen = e }))

	n.Notify(Event{Kind: EventUndone})
	assert.False(t, seen.At.IsZero())

	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	n.Notify(Event{Kind: EventUndone, At: at})
	assert.True(t, seen.At.Equal(at))
}

// =============================================================================
// LogWatcher Tests
// =============================================================================

func TestLogWatcher_LogsEvents(t *testing.T) {
	var buf bytes.Buffer
	w := NewLogWatcher(logging.New(logging.Config{Output: &buf}))
	c := sample()

	w.Notify(Event{Kind: EventCalculated, Calculation: &c, Records: 1})
	w.Notify(Event{Kind: EventCleared, Records: 0})

	out := buf.String()
	assert.Contains(t, out, "calculation performed")
	assert.Contains(t, out, "operation=add")
	assert.Contains(t, out, `expression="1 + 2 = 3"`)
	assert.Contains(t, out, "event=cleared")
}

// =============================================================================
// AutoSaveWatcher Tests
// =============================================================================

func TestAutoSaveWatcher_SavesFullHistory(t *testing.T) {
	src := fakeSource{sample(), sample()}
	p := &fakePersister{}
	w := NewAutoSaveWatcher(src, p, "h.csv", nil)

	w.Notify(Event{Kind: EventCalculated})

	assert.Equal(t, 1, p.calls)
	assert.Equal(t, "h.csv", p.path)
	assert.Len(t, p.saved, 2)
	assert.Equal(t, 1, w.Saves())
	assert.Equal(t, 0, w.Failures())
	assert.Equal(t, "h.csv", w.Path())
}

func TestAutoSaveWatcher_FailureIsLoggedNotPropagated(t *testing.T) {
	var buf bytes.Buffer
	p := &fakePersister{err: errors.New("disk full")}
	w := NewAutoSaveWatcher(fakeSource{}, p, "h.csv", logging.New(logging.Config{Output: &buf}))

	assert.NotPanics(t, func() { w.Notify(Event{Kind: EventLoaded}) })

	assert.Equal(t, 1, w.Failures())
	assert.EqualError(t, w.LastError(), "disk full")
	assert.Contains(t, buf.String(), "auto-save failed")
	assert.Contains(t, buf.String(), "level=WARN")
}

func TestAutoSaveWatcher_WithCSVStore(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, err := persistence.NewCSVStore(fs, "utf-8")
	require.NoError(t, err)

	w := NewAutoSaveWatcher(fakeSource{sample()}, store, "/hist/calc_history.csv", nil)
	w.Notify(Event{Kind: EventCalculated})

	got, err := store.Load("/hist/calc_history.csv")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, sample().Equal(got[0]))
}
