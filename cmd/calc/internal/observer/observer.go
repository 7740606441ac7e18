// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observer delivers history mutation events to watchers.
//
// Watchers run synchronously, in registration order, after a mutation has
// completed. A watcher must not fail the mutation that triggered it: errors
// are the watcher's own business (AutoSaveWatcher logs them).
package observer

import (
	"time"

	"github.com/AleutianAI/calcrepl/cmd/calc/internal/history"
)

// EventKind identifies which mutation happened.
type EventKind int

const (
	EventCalculated EventKind = iota
	EventCleared
	EventLoaded
	EventUndone
	EventRedone
)

// String returns the lowercase event name used in logs and metric labels.
func (k EventKind) String() string {
	switch k {
	case EventCalculated:
		return "calculated"
	case EventCleared:
		return "cleared"
	case EventLoaded:
		return "loaded"
	case EventUndone:
		return "undone"
	case EventRedone:
		return "redone"
	default:
		return "unknown"
	}
}

// Event describes a completed mutation.
type Event struct {
	Kind EventKind

	// Calculation is the appended record for EventCalculated, nil otherwise.
	Calculation *history.Calculation

	// Records is the history length after the mutation.
	Records int

	At time.Time
}

// Watcher receives mutation events.
type Watcher interface {
	Notify(Event)
}

// WatcherFunc adapts a function to Watcher.
type WatcherFunc func(Event)

// Notify calls f(e).
func (f WatcherFunc) Notify(e Event) {
	f(e)
}

// Notifier fans events out to registered watchers.
type Notifier struct {
	watchers []Watcher
}

// NewNotifier creates a Notifier with the given watchers.
func NewNotifier(watchers ...Watcher) *Notifier {
	n := &Notifier{}
	for _, w := range watchers {
		n.Register(w)
	}
	return n
}

// Register adds w. A nil watcher is ignored.
func (n *Notifier) Register(w Watcher) {
	if w == nil {
		return
	}
	n.watchers = append(n.watchers, w)
}

// Notify delivers e to every watcher in registration order.
func (n *Notifier) Notify(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	for _, w := range n.watchers {
		w.Notify(e)
	}
}

// Len returns the number of registered watchers.
func (n *Notifier) Len() int {
	return len(n.watchers)
}
