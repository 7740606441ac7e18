// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package repl

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/AleutianAI/calcrepl/cmd/calc/internal/calcerr"
	"github.com/AleutianAI/calcrepl/cmd/calc/internal/calculator"
	"github.com/AleutianAI/calcrepl/cmd/calc/internal/history"
	"github.com/AleutianAI/calcrepl/cmd/calc/internal/operations"
)

// Sentinel errors for command parsing.
var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrUsage          = errors.New("usage")
	ErrInvalidNumber  = errors.New("invalid number")
)

type command struct {
	usage   string
	help    string
	minArgs int
	maxArgs int
	run     func(ctx context.Context, s *Session, args []string) error
}

// commands is the dispatch table. It is filled once in init and only read
// afterwards.
var commands map[string]command

// helpOrder lists the non-operation commands in the order help shows them.
var helpOrder = []string{
	"history", "clear", "undo", "redo", "save", "load",
	"operations", "stats", "help", "exit", "quit",
}

func init() {
	commands = map[string]command{
		"history":    {usage: "history", help: "Show calculation history", run: cmdHistory},
		"clear":      {usage: "clear", help: "Clear calculation history", run: cmdClear},
		"undo":       {usage: "undo", help: "Undo the last change to history", run: cmdUndo},
		"redo":       {usage: "redo", help: "Redo the last undone change", run: cmdRedo},
		"save":       {usage: "save [path]", help: "Save history to a CSV file", maxArgs: 1, run: cmdSave},
		"load":       {usage: "load [path]", help: "Load history from a CSV file", maxArgs: 1, run: cmdLoad},
		"operations": {usage: "operations", help: "List available operations", run: cmdOperations},
		"stats":      {usage: "stats", help: "Show history, undo and session counters", run: cmdStats},
		"help":       {usage: "help", help: "Show this help message", run: cmdHelp},
		"exit":       {usage: "exit", help: "Exit the calculator", run: cmdExit},
		"quit":       {usage: "quit", help: "Exit the calculator", run: cmdExit},
	}
	for _, op := range operations.All() {
		commands[op.String()] = command{
			usage:   op.String() + " <a> <b>",
			help:    "Compute a " + op.Symbol() + " b",
			minArgs: 2,
			maxArgs: 2,
			run:     calculate(op),
		}
	}
}

func lookup(name string) (command, bool) {
	cmd, ok := commands[name]
	return cmd, ok
}

// CommandNames returns every command token, sorted.
func CommandNames() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// =============================================================================
// Handlers
// =============================================================================

func calculate(op operations.Operation) func(context.Context, *Session, []string) error {
	return func(ctx context.Context, s *Session, args []string) error {
		a, err := ParseNumber(op, args[0])
		if err != nil {
			return err
		}
		b, err := ParseNumber(op, args[1])
		if err != nil {
			return err
		}
		rec, err := s.calc.Calculate(ctx, op, a, b)
		if err != nil {
			return err
		}
		s.printer.Result(history.FormatNumber(rec.Result))
		return nil
	}
}

func cmdHistory(_ context.Context, s *Session, _ []string) error {
	s.printer.Line(s.calc.HistoryString())
	return nil
}

func cmdClear(ctx context.Context, s *Session, _ []string) error {
	s.calc.Clear(ctx)
	s.printer.Success("History cleared")
	return nil
}

func cmdUndo(ctx context.Context, s *Session, _ []string) error {
	if err := s.calc.Undo(ctx); err != nil {
		return err
	}
	s.printer.Success("Undo successful")
	s.printer.Line(s.calc.HistoryString())
	return nil
}

func cmdRedo(ctx context.Context, s *Session, _ []string) error {
	if err := s.calc.Redo(ctx); err != nil {
		return err
	}
	s.printer.Success("Redo successful")
	s.printer.Line(s.calc.HistoryString())
	return nil
}

func cmdSave(ctx context.Context, s *Session, args []string) error {
	path, err := s.calc.Save(ctx, optionalArg(args))
	if err != nil {
		return err
	}
	s.printer.Success(fmt.Sprintf("History saved to %s (%d records)", path, s.calc.Len()))
	return nil
}

func cmdLoad(ctx context.Context, s *Session, args []string) error {
	res, err := s.calc.Load(ctx, optionalArg(args))
	if err != nil {
		return err
	}
	s.printer.Success(loadedMessage(res))
	if res.Dropped > 0 {
		s.printer.Warning(fmt.Sprintf("%d oldest records did not fit in history and were skipped", res.Dropped))
	}
	return nil
}

func cmdOperations(_ context.Context, s *Session, _ []string) error {
	s.printer.Title("Available operations:")
	rows := make([][2]string, 0, len(operations.All()))
	for _, op := range operations.All() {
		rows = append(rows, [2]string{op.String(), op.Symbol()})
	}
	s.printer.Table(rows)
	return nil
}

func cmdStats(_ context.Context, s *Session, _ []string) error {
	st := s.calc.Stats()
	s.printer.Title("History:")
	s.printer.Table([][2]string{
		{"records", fmt.Sprintf("%d/%d", st.Records, st.Capacity)},
		{"evicted", strconv.FormatInt(st.Evicted, 10)},
		{"undo", fmt.Sprintf("%d/%d", st.UndoSteps, st.UndoLimit)},
		{"redo", fmt.Sprintf("%d/%d", st.RedoSteps, st.UndoLimit)},
		{"undo_discarded", strconv.FormatInt(st.UndoDiscarded, 10)},
	})

	if s.metrics == nil {
		return nil
	}
	samples, err := s.metrics.Samples()
	if err != nil {
		return calcerr.New(calcerr.KindUnknown, "stats", err)
	}
	if len(samples) == 0 {
		return nil
	}
	s.printer.Title("Session counters:")
	rows := make([][2]string, 0, len(samples))
	for _, smp := range samples {
		name := smp.Name
		if smp.Label != "" {
			name += "{" + smp.Label + "}"
		}
		rows = append(rows, [2]string{name, strconv.FormatFloat(smp.Value, 'f', -1, 64)})
	}
	s.printer.Table(rows)
	return nil
}

func cmdHelp(_ context.Context, s *Session, _ []string) error {
	s.printer.Title("Available commands:")
	rows := [][2]string{{"<operation> <a> <b>", "Perform a calculation"}}
	for _, name := range helpOrder {
		cmd := commands[name]
		rows = append(rows, [2]string{cmd.usage, cmd.help})
	}
	s.printer.Table(rows)

	names := make([]string, 0, len(operations.All()))
	for _, op := range operations.All() {
		names = append(names, op.String())
	}
	s.printer.Line("Operations: " + strings.Join(names, ", "))
	s.printer.Line("Example: add 5 3")
	return nil
}

func cmdExit(ctx context.Context, s *Session, _ []string) error {
	s.exit(ctx)
	return nil
}

// =============================================================================
// Helpers
// =============================================================================

// ParseNumber parses an operand token. Failures are input errors.
func ParseNumber(op operations.Operation, token string) (float64, error) {
	v, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, calcerr.Newf(calcerr.KindInput, op.String(), "%w: %q", ErrInvalidNumber, token)
	}
	return v, nil
}

func optionalArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func loadedMessage(res calculator.LoadResult) string {
	return fmt.Sprintf("Loaded %d records from %s", res.Loaded, res.Path)
}
