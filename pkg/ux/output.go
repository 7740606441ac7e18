// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ux provides terminal output styling for the calculator CLI.
package ux

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Calculator color palette - deep ocean teals
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7") // Bright teal - results, success
	ColorTealPrimary = lipgloss.Color("#20B9B4") // Primary teal - titles
	ColorTealDeep    = lipgloss.Color("#16858E") // Deep teal - borders
	ColorSlate       = lipgloss.Color("#2C4A54") // Slate - muted text

	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
)

// Styles provides pre-configured lipgloss styles
var Styles = struct {
	Title   lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Result  lipgloss.Style
	Prompt  lipgloss.Style
	Box     lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(ColorTealPrimary),
	Bold:    lipgloss.NewStyle().Bold(true),
	Muted:   lipgloss.NewStyle().Foreground(ColorSlate),
	Success: lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning: lipgloss.NewStyle().Foreground(ColorWarning),
	Error:   lipgloss.NewStyle().Foreground(ColorError),
	Result:  lipgloss.NewStyle().Bold(true).Foreground(ColorTealBright),
	Prompt:  lipgloss.NewStyle().Foreground(ColorTealPrimary),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorTealDeep).
		Padding(0, 1),
}

// Icon provides themed status icons
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconArrow   Icon = "→"
	IconBullet  Icon = "•"
)

// Render returns the icon with appropriate styling
func (i Icon) Render() string {
	switch i {
	case IconSuccess:
		return Styles.Success.Render(string(i))
	case IconWarning:
		return Styles.Warning.Render(string(i))
	case IconError:
		return Styles.Error.Render(string(i))
	default:
		return string(i)
	}
}

// Printer writes personality-aware output to a writer.
//
// In PersonalityMachine every line is plain text with a fixed prefix, so
// scripted sessions can be parsed line by line:
//
//	Result: 3
//	Error: division by zero is not allowed
type Printer struct {
	w     io.Writer
	level PersonalityLevel
}

// NewPrinter creates a Printer. A nil writer means os.Stdout.
func NewPrinter(w io.Writer, level PersonalityLevel) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{w: w, level: level}
}

// Level returns the printer's personality level.
func (p *Printer) Level() PersonalityLevel {
	return p.level
}

// Writer returns the underlying writer.
func (p *Printer) Writer() io.Writer {
	return p.w
}

// Result prints "Result: <value>".
func (p *Printer) Result(value string) {
	switch p.level {
	case PersonalityMachine, PersonalityMinimal:
		fmt.Fprintf(p.w, "Result: %s\n", value)
	default:
		fmt.Fprintf(p.w, "%s %s\n", Styles.Muted.Render("Result:"), Styles.Result.Render(value))
	}
}

// Error prints "Error: <msg>".
func (p *Printer) Error(msg string) {
	switch p.level {
	case PersonalityMachine:
		fmt.Fprintf(p.w, "Error: %s\n", msg)
	case PersonalityMinimal:
		fmt.Fprintf(p.w, "%s Error: %s\n", IconError, msg)
	default:
		fmt.Fprintf(p.w, "%s %s\n", IconError.Render(), Styles.Error.Render("Error: "+msg))
	}
}

// Success prints a success message with checkmark
func (p *Printer) Success(msg string) {
	switch p.level {
	case PersonalityMachine:
		fmt.Fprintln(p.w, msg)
	case PersonalityMinimal:
		fmt.Fprintf(p.w, "%s %s\n", IconSuccess, msg)
	default:
		fmt.Fprintf(p.w, "%s %s\n", IconSuccess.Render(), Styles.Success.Render(msg))
	}
}

// Warning prints a warning message
func (p *Printer) Warning(msg string) {
	switch p.level {
	case PersonalityMachine:
		fmt.Fprintf(p.w, "Warning: %s\n", msg)
	case PersonalityMinimal:
		fmt.Fprintf(p.w, "%s %s\n", IconWarning, msg)
	default:
		fmt.Fprintf(p.w, "%s %s\n", IconWarning.Render(), Styles.Warning.Render(msg))
	}
}

// Line prints text unchanged.
func (p *Printer) Line(text string) {
	fmt.Fprintln(p.w, text)
}

// Title prints a styled title. Machine mode prints nothing.
func (p *Printer) Title(text string) {
	switch p.level {
	case PersonalityMachine:
		return
	case PersonalityMinimal:
		fmt.Fprintln(p.w, text)
	default:
		fmt.Fprintln(p.w, Styles.Title.Render(text))
	}
}

// Banner prints a boxed welcome only in PersonalityFull.
func (p *Printer) Banner(title, content string) {
	if p.level != PersonalityFull {
		return
	}
	fmt.Fprintln(p.w, Styles.Box.Render(Styles.Title.Render(title)+"\n"+content))
}

// Table prints aligned two-column rows.
func (p *Printer) Table(rows [][2]string) {
	width := 0
	for _, r := range rows {
		if n := lipgloss.Width(r[0]); n > width {
			width = n
		}
	}
	for _, r := range rows {
		pad := strings.Repeat(" ", width-lipgloss.Width(r[0]))
		if p.level == PersonalityMachine || p.level == PersonalityMinimal {
			fmt.Fprintf(p.w, "  %s%s  %s\n", r[0], pad, r[1])
			continue
		}
		fmt.Fprintf(p.w, "  %s%s  %s\n", Styles.Bold.Render(r[0]), pad, Styles.Muted.Render(r[1]))
	}
}

// Prompt writes the input prompt without a trailing newline.
func (p *Printer) Prompt(text string) {
	if p.level == PersonalityMachine || p.level == PersonalityMinimal {
		fmt.Fprint(p.w, text)
		return
	}
	fmt.Fprint(p.w, Styles.Prompt.Render(text))
}
