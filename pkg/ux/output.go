// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux provides terminal output styling for the graphimport CLI.
//
// Output has two modes. Rich output uses colors, icons and boxes and is
// chosen when the writer is a terminal. Machine output is plain
// line-oriented text suitable for scripts and log capture.
package ux

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Aleutian color palette
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7") // highlights, success
	ColorTealPrimary = lipgloss.Color("#20B9B4") // main brand color
	ColorTealDeep    = lipgloss.Color("#16858E") // borders, accents
	ColorSlate       = lipgloss.Color("#2C4A54") // muted text

	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
)

// Styles provides pre-configured lipgloss styles
var Styles = struct {
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style

	Box        lipgloss.Style
	WarningBox lipgloss.Style
	ErrorBox   lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorTealBright),
	Subtitle:  lipgloss.NewStyle().Foreground(ColorTealPrimary),
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorSlate),
	Success:   lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarning),
	Error:     lipgloss.NewStyle().Foreground(ColorError),
	Highlight: lipgloss.NewStyle().Foreground(ColorTealBright).Bold(true),

	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorTealDeep).
		Padding(0, 1),
	WarningBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorWarning).
		Padding(0, 1),
	ErrorBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorError).
		Padding(0, 1),
}

// Icon provides themed status icons
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconArrow   Icon = "→"
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

// Mode selects how a Printer renders.
type Mode int

const (
	// ModeRich uses colors, icons and boxes.
	ModeRich Mode = iota

	// ModeMachine prints plain prefixed lines.
	ModeMachine
)

// ParseMode converts "rich", "machine" or "auto" to a Mode. "auto" and ""
// return ModeFor(w).
func ParseMode(s string, w io.Writer) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return ModeFor(w), nil
	case "rich":
		return ModeRich, nil
	case "machine", "plain":
		return ModeMachine, nil
	default:
		return ModeMachine, fmt.Errorf("unknown output mode %q", s)
	}
}

// ModeFor returns ModeRich when w is a terminal and ModeMachine otherwise.
func ModeFor(w io.Writer) Mode {
	if f, ok := w.(*os.File); ok && IsTerminal(f) {
		return ModeRich
	}
	return ModeMachine
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Printer writes styled messages to a writer.
type Printer struct {
	out  io.Writer
	mode Mode
}

// NewPrinter creates a printer on w using ModeFor(w).
func NewPrinter(w io.Writer) *Printer {
	return &Printer{out: w, mode: ModeFor(w)}
}

// NewPrinterMode creates a printer with an explicit mode.
func NewPrinterMode(w io.Writer, mode Mode) *Printer {
	return &Printer{out: w, mode: mode}
}

// Mode returns the printer's mode.
func (p *Printer) Mode() Mode {
	return p.mode
}

// Title prints a styled title. Suppressed in machine mode.
func (p *Printer) Title(text string) {
	if p.mode == ModeMachine {
		return
	}
	fmt.Fprintln(p.out, Styles.Title.Render(text))
}

// Success prints a success message with checkmark
func (p *Printer) Success(text string) {
	if p.mode == ModeMachine {
		fmt.Fprintf(p.out, "OK: %s\n", text)
		return
	}
	fmt.Fprintf(p.out, "%s %s\n", IconSuccess.Render(), Styles.Success.Render(text))
}

// Warning prints a warning message
func (p *Printer) Warning(text string) {
	if p.mode == ModeMachine {
		fmt.Fprintf(p.out, "WARN: %s\n", text)
		return
	}
	fmt.Fprintf(p.out, "%s %s\n", IconWarning.Render(), Styles.Warning.Render(text))
}

// Error prints an error message
func (p *Printer) Error(text string) {
	if p.mode == ModeMachine {
		fmt.Fprintf(p.out, "ERROR: %s\n", text)
		return
	}
	fmt.Fprintf(p.out, "%s %s\n", IconError.Render(), Styles.Error.Render(text))
}

// Info prints an informational message
func (p *Printer) Info(text string) {
	if p.mode == ModeMachine {
		fmt.Fprintln(p.out, text)
		return
	}
	fmt.Fprintf(p.out, "%s %s\n", Styles.Muted.Render("│"), text)
}

// Box prints text in a rounded box
func (p *Printer) Box(title, content string) {
	if p.mode == ModeMachine {
		fmt.Fprintf(p.out, "%s: %s\n", title, content)
		return
	}
	fmt.Fprintln(p.out, Styles.Box.Width(60).Render(Styles.Title.Render(title)+"\n"+content))
}

// ImportSummary is the data shown after an import.
type ImportSummary struct {
	Source        string
	State         string
	Project       string
	Relationships int
	Nodes         int
	Edges         int
	Duration      time.Duration
	CancelReason  string
}

// Summary prints the outcome of an import.
//
// Machine mode prints a single key=value line:
//
//	SUMMARY: state=done source=/data/graph project="Project 1" relationships=2 nodes=3 edges=2 duration=12ms
func (p *Printer) Summary(s ImportSummary) {
	if p.mode == ModeMachine {
		line := fmt.Sprintf("SUMMARY: state=%s source=%s project=%q relationships=%d nodes=%d edges=%d duration=%s",
			s.State, s.Source, s.Project, s.Relationships, s.Nodes, s.Edges, s.Duration.Round(time.Millisecond))
		if s.CancelReason != "" {
			line += fmt.Sprintf(" reason=%q", s.CancelReason)
		}
		fmt.Fprintln(p.out, line)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", Styles.Muted.Render("source "), s.Source)
	fmt.Fprintf(&b, "%s %s\n", Styles.Muted.Render("project"), Styles.Bold.Render(s.Project))
	fmt.Fprintf(&b, "%s %s %s  %s %s  %s %s\n", Styles.Muted.Render("counts "),
		Styles.Highlight.Render(fmt.Sprintf("%d", s.Relationships)), Styles.Muted.Render("relationships"),
		Styles.Highlight.Render(fmt.Sprintf("%d", s.Nodes)), Styles.Muted.Render("nodes"),
		Styles.Highlight.Render(fmt.Sprintf("%d", s.Edges)), Styles.Muted.Render("edges"))
	fmt.Fprintf(&b, "%s %s", Styles.Muted.Render("took   "), s.Duration.Round(time.Millisecond))

	box, title := Styles.Box, Styles.Title.Render("Import "+s.State)
	if s.CancelReason != "" {
		fmt.Fprintf(&b, "\n%s %s", Styles.Muted.Render("reason "), s.CancelReason)
		box, title = Styles.WarningBox, Styles.Warning.Bold(true).Render("Import "+s.State)
	}
	fmt.Fprintln(p.out, box.Width(60).Render(title+"\n"+b.String()))
}
