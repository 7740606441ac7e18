// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/calcrepl/cmd/calc/config"
	"github.com/AleutianAI/calcrepl/cmd/calc/internal/calcerr"
	"github.com/AleutianAI/calcrepl/cmd/calc/internal/history"
	"github.com/AleutianAI/calcrepl/cmd/calc/internal/operations"
	"github.com/AleutianAI/calcrepl/cmd/calc/internal/repl"
	"github.com/AleutianAI/calcrepl/pkg/ux"
)

// cliFlags holds the persistent flags shared by every command.
type cliFlags struct {
	configPath  string
	initConfig  bool
	envFile     string
	historyFile string
	logLevel    string
	noAutoSave  bool
	personality string
}

func newRootCmd() *cobra.Command {
	flags := &cliFlags{}

	rootCmd := &cobra.Command{
		Use:   "calc",
		Short: "An interactive calculator with undoable, persistent history",
		Long: `calc starts a read-eval-print loop. Type an operation and two numbers,
for example "add 5 3", or "help" for the full command list.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ux.InitPersonality(flags.personality)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPL(cmd, flags)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", config.DefaultConfigFile, "YAML configuration file")
	pf.BoolVar(&flags.initConfig, "init-config", false, "write the default configuration to --config if it does not exist")
	pf.StringVar(&flags.envFile, "env-file", config.DefaultEnvFile, "dotenv file with CALCULATOR_* overrides")
	pf.StringVar(&flags.historyFile, "history-file", "", "history CSV file (overrides history_file)")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.BoolVar(&flags.noAutoSave, "no-autosave", false, "disable saving history after every change")
	pf.StringVar(&flags.personality, "personality", "", "output style: full, standard, minimal, machine")

	rootCmd.AddCommand(newEvalCmd(flags), newVersionCmd())
	return rootCmd
}

func newEvalCmd(flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "eval <operation> <a> <b>",
		Short: "Evaluate a single operation without touching history",
		Example: `  calc eval add 2 3
  calc eval root 27 3`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd, flags, args)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the calculator version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "calc %s\n", version)
		},
	}
}

// =============================================================================
// Command implementations
// =============================================================================

func runREPL(cmd *cobra.Command, flags *cliFlags) error {
	ctx := commandContext(cmd)
	printer := ux.NewPrinter(cmd.OutOrStdout(), ux.GetPersonalityLevel())

	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		printer.Error(err.Error())
		return err
	}

	a, err := newApp(ctx, cfg, appOptions{Persistent: true})
	if err != nil {
		printer.Error(err.Error())
		return err
	}
	defer a.Close(context.Background())

	in := cmd.InOrStdin()
	session := repl.New(repl.Options{
		Calculator:  a.calc,
		Printer:     printer,
		Logger:      a.logger,
		Metrics:     a.metrics,
		Input:       in,
		Interactive: in == os.Stdin && ux.IsTerminal(os.Stdin),
		LoadOnStart: true,
		SaveOnExit:  cfg.AutoSave,
	})
	return session.Run(ctx)
}

func runEval(cmd *cobra.Command, flags *cliFlags, args []string) error {
	ctx := commandContext(cmd)
	printer := ux.NewPrinter(cmd.OutOrStdout(), ux.GetPersonalityLevel())

	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		printer.Error(err.Error())
		return err
	}

	a, err := newApp(ctx, cfg, appOptions{Persistent: false})
	if err != nil {
		printer.Error(err.Error())
		return err
	}
	defer a.Close(context.Background())

	rec, err := evaluate(ctx, a, args)
	if err != nil {
		a.metrics.RecordError(err)
		a.logger.Error("eval failed", "kind", calcerr.KindOf(err).String(), "error", err.Error())
		printer.Error(calcerr.Message(err))
		return err
	}
	printer.Result(history.FormatNumber(rec.Result))
	return nil
}

func evaluate(ctx context.Context, a *app, args []string) (history.Calculation, error) {
	op, err := operations.Parse(args[0])
	if err != nil {
		return history.Calculation{}, err
	}
	x, err := repl.ParseNumber(op, args[1])
	if err != nil {
		return history.Calculation{}, err
	}
	y, err := repl.ParseNumber(op, args[2])
	if err != nil {
		return history.Calculation{}, err
	}
	return a.calc.Calculate(ctx, op, x, y)
}

// loadConfig layers flags over the file and environment configuration.
func loadConfig(cmd *cobra.Command, flags *cliFlags) (config.CalculatorConfig, error) {
	changed := cmd.Flags().Changed
	return config.Load(config.LoadOptions{
		ConfigPath:    flags.configPath,
		EnvFile:       flags.envFile,
		CreateDefault: flags.initConfig,
		Apply: func(cfg *config.CalculatorConfig) {
			if changed("history-file") {
				cfg.HistoryFile = flags.historyFile
			}
			if changed("log-level") {
				cfg.LogLevel = flags.logLevel
			}
			if flags.noAutoSave {
				cfg.AutoSave = false
			}
		},
	})
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
