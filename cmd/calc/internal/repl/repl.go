// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package repl runs the interactive read-eval-print loop.
//
// # Description
//
// The loop reads one line at a time, splits it on whitespace, lowercases
// the first token and looks it up in a static command table. Every failure
// is printed as "Error: <message>", logged with its kind, and the loop
// continues. Only "exit", "quit" or end of input stop it.
//
// # Thread Safety
//
// A Session is driven by a single goroutine.
package repl

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/AleutianAI/calcrepl/cmd/calc/internal/calcerr"
	"github.com/AleutianAI/calcrepl/cmd/calc/internal/calculator"
	"github.com/AleutianAI/calcrepl/cmd/calc/internal/metrics"
	"github.com/AleutianAI/calcrepl/cmd/calc/internal/persistence"
	"github.com/AleutianAI/calcrepl/pkg/logging"
	"github.com/AleutianAI/calcrepl/pkg/ux"
)

// DefaultPrompt is shown before each line when the session is interactive.
const DefaultPrompt = "> "

// maxLineBytes bounds a single input line.
const maxLineBytes = 1 << 20

// Options configures a Session.
type Options struct {
	Calculator *calculator.Calculator
	Printer    *ux.Printer
	Logger     *logging.Logger

	// Metrics backs the "stats" command and counts errors. Optional.
	Metrics *metrics.Recorder

	// Input defaults to os.Stdin.
	Input io.Reader

	// Interactive shows the prompt before each line.
	Interactive bool
	Prompt      string

	// LoadOnStart loads the default history file before the first prompt.
	// A missing file is silently ignored.
	LoadOnStart bool

	// SaveOnExit saves to the default history file on exit or quit.
	SaveOnExit bool
}

// Session is one REPL run.
type Session struct {
	calc        *calculator.Calculator
	printer     *ux.Printer
	logger      *logging.Logger
	metrics     *metrics.Recorder
	in          io.Reader
	interactive bool
	prompt      string
	loadOnStart bool
	saveOnExit  bool

	done bool
}

// New creates a Session from opts.
func New(opts Options) *Session {
	printer := opts.Printer
	if printer == nil {
		printer = ux.NewPrinter(os.Stdout, ux.GetPersonalityLevel())
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	in := opts.Input
	if in == nil {
		in = os.Stdin
	}
	prompt := opts.Prompt
	if prompt == "" {
		prompt = DefaultPrompt
	}
	return &Session{
		calc:        opts.Calculator,
		printer:     printer,
		logger:      logger,
		metrics:     opts.Metrics,
		in:          in,
		interactive: opts.Interactive,
		prompt:      prompt,
		loadOnStart: opts.LoadOnStart,
		saveOnExit:  opts.SaveOnExit,
	}
}

// Run reads and executes commands until exit, quit, end of input or ctx
// cancellation. Command failures never end the loop; the returned error is
// non-nil only when reading input fails.
func (s *Session) Run(ctx context.Context) error {
	s.logger.Info("session started", "interactive", s.interactive)
	s.printer.Banner("Calculator", "Type 'help' for commands.")
	if s.printer.Level() != ux.PersonalityFull {
		s.printer.Title("Welcome to the calculator. Type 'help' for commands.")
	}

	if s.loadOnStart {
		s.startupLoad(ctx)
	}

	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)

	for !s.done {
		if err := ctx.Err(); err != nil {
			s.logger.Info("session cancelled", "reason", err.Error())
			return nil
		}
		if s.interactive {
			s.printer.Prompt(s.prompt)
		}
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				s.logger.Error("reading input failed", "error", err.Error())
				return err
			}
			// End of input behaves like exit.
			if s.interactive {
				s.printer.Line("")
			}
			s.exit(ctx)
			break
		}
		s.Execute(ctx, scanner.Text())
	}

	s.logger.Info("session ended", "records", s.calc.Len())
	return nil
}

// Execute runs a single input line. Blank lines are ignored.
func (s *Session) Execute(ctx context.Context, line string) {
	tokens := Tokenize(line)
	if len(tokens) == 0 {
		return
	}
	name := tokens[0]
	args := tokens[1:]

	cmd, ok := lookup(name)
	if !ok {
		s.fail(name, calcerr.Newf(calcerr.KindInput, name, "%w: %q. Type 'help' for commands", ErrUnknownCommand, name))
		return
	}
	if len(args) < cmd.minArgs || len(args) > cmd.maxArgs {
		s.fail(name, calcerr.Newf(calcerr.KindInput, name, "%w: %s", ErrUsage, cmd.usage))
		return
	}

	s.logger.Debug("dispatching command", "command", name, "args", len(args))
	if err := cmd.run(ctx, s, args); err != nil {
		s.fail(name, err)
	}
}

// Done reports whether exit or quit has been executed.
func (s *Session) Done() bool {
	return s.done
}

// Tokenize splits a line on whitespace and lowercases the command token.
// Arguments keep their case so file paths survive.
func Tokenize(line string) []string {
	tokens := strings.Fields(line)
	if len(tokens) > 0 {
		tokens[0] = strings.ToLower(tokens[0])
	}
	return tokens
}

func (s *Session) fail(command string, err error) {
	kind := calcerr.KindOf(err)
	s.logger.Error("command failed",
		"command", command,
		"kind", kind.String(),
		"error", err.Error(),
	)
	if s.metrics != nil {
		s.metrics.RecordError(err)
	}
	s.printer.Error(calcerr.Message(err))
}

func (s *Session) startupLoad(ctx context.Context) {
	res, err := s.calc.Restore(ctx, "")
	switch {
	case err == nil:
		s.logger.Info("history loaded at startup", "path", res.Path, "records", res.Loaded)
		if res.Loaded > 0 {
			s.printer.Success(loadedMessage(res))
		}
	case errors.Is(err, persistence.ErrFileNotFound):
		s.logger.Debug("no history file at startup", "path", s.calc.HistoryPath())
	default:
		s.logger.Warn("could not load history at startup", "error", err.Error())
		if s.metrics != nil {
			s.metrics.RecordError(err)
		}
		s.printer.Warning("Could not load history: " + calcerr.Message(err))
	}
}

func (s *Session) exit(ctx context.Context) {
	if s.saveOnExit {
		if path, err := s.calc.Save(ctx, ""); err != nil {
			s.logger.Warn("could not save history on exit", "path", path, "error", err.Error())
			s.printer.Warning("Could not save history: " + calcerr.Message(err))
		} else {
			s.printer.Success("History saved successfully")
		}
	}
	s.printer.Line("Goodbye!")
	s.done = true
}
