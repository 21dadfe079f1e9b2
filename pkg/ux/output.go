// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux renders CLI output.
//
// A Printer writes to one destination in one of three modes. Styled output
// uses the teal palette below and is only chosen for terminals; pipes and
// files get plain text, and machine mode emits stable "LEVEL: text" lines
// for scripts.
package ux

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Color palette.
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7")
	ColorTealPrimary = lipgloss.Color("#20B9B4")
	ColorTealDeep    = lipgloss.Color("#16858E")
	ColorSlate       = lipgloss.Color("#2C4A54")

	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
)

// Mode selects how a Printer renders.
type Mode int

const (
	// ModeStyled uses colors and icons.
	ModeStyled Mode = iota

	// ModePlain uses icons without colors.
	ModePlain

	// ModeMachine prints "OK:", "WARN:", "ERROR:" prefixed lines and omits
	// titles and muted text.
	ModeMachine
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeStyled:
		return "styled"
	case ModePlain:
		return "plain"
	case ModeMachine:
		return "machine"
	default:
		return "unknown"
	}
}

// ParseMode parses "auto", "styled", "plain" or "machine". "auto" and ""
// return ok=false so the caller can fall back to ModeFor.
func ParseMode(s string) (Mode, bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ModePlain, false, nil
	case "styled":
		return ModeStyled, true, nil
	case "plain":
		return ModePlain, true, nil
	case "machine":
		return ModeMachine, true, nil
	default:
		return ModePlain, false, fmt.Errorf("unknown output mode %q", s)
	}
}

// ModeFor returns ModeStyled when w is a terminal and ModePlain otherwise.
// NO_COLOR disables styling.
func ModeFor(w io.Writer) Mode {
	if os.Getenv("NO_COLOR") != "" {
		return ModePlain
	}
	f, ok := w.(*os.File)
	if !ok {
		return ModePlain
	}
	fd := f.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return ModeStyled
	}
	return ModePlain
}

// Icon is a status marker.
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconBullet  Icon = "•"
)

type styles struct {
	title   lipgloss.Style
	muted   lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	err     lipgloss.Style
	box     lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title:   r.NewStyle().Bold(true).Foreground(ColorTealBright),
		muted:   r.NewStyle().Foreground(ColorSlate),
		success: r.NewStyle().Foreground(ColorSuccess),
		warning: r.NewStyle().Foreground(ColorWarning),
		err:     r.NewStyle().Foreground(ColorError),
		box: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorTealDeep).
			Padding(0, 1),
	}
}

// Printer writes formatted lines to one destination.
//
// # Thread Safety
//
// Not safe for concurrent use. Callers serialize output themselves.
type Printer struct {
	w      io.Writer
	errW   io.Writer
	mode   Mode
	styles styles
}

// NewPrinter returns a Printer for w. Warnings and errors in machine mode
// go to errW; a nil errW means w.
func NewPrinter(w, errW io.Writer, mode Mode) *Printer {
	if errW == nil {
		errW = w
	}
	return &Printer{
		w:      w,
		errW:   errW,
		mode:   mode,
		styles: newStyles(lipgloss.NewRenderer(w)),
	}
}

// Mode returns the printer's mode.
func (p *Printer) Mode() Mode {
	return p.mode
}

// Writer returns the main destination.
func (p *Printer) Writer() io.Writer {
	return p.w
}

func (p *Printer) render(s lipgloss.Style, text string) string {
	if p.mode != ModeStyled {
		return text
	}
	return s.Render(text)
}

// Title prints a heading.
func (p *Printer) Title(text string) {
	if p.mode == ModeMachine {
		return
	}
	fmt.Fprintln(p.w, p.render(p.styles.title, text))
}

// Success prints a success line.
func (p *Printer) Success(text string) {
	p.status(p.w, "OK", IconSuccess, p.styles.success, text)
}

// Warning prints a warning line.
func (p *Printer) Warning(text string) {
	p.status(p.errW, "WARN", IconWarning, p.styles.warning, text)
}

// Error prints an error line.
func (p *Printer) Error(text string) {
	p.status(p.errW, "ERROR", IconError, p.styles.err, text)
}

func (p *Printer) status(machineW io.Writer, label string, icon Icon, s lipgloss.Style, text string) {
	switch p.mode {
	case ModeMachine:
		fmt.Fprintf(machineW, "%s: %s\n", label, text)
	case ModePlain:
		fmt.Fprintf(p.w, "%s %s\n", icon, text)
	default:
		fmt.Fprintf(p.w, "%s %s\n", s.Render(string(icon)), s.Render(text))
	}
}

// Item prints an indented list entry.
func (p *Printer) Item(text string) {
	if p.mode == ModeMachine {
		fmt.Fprintln(p.w, text)
		return
	}
	fmt.Fprintf(p.w, "  %s %s\n", IconBullet, text)
}

// Muted prints secondary text.
func (p *Printer) Muted(text string) {
	if p.mode == ModeMachine {
		return
	}
	fmt.Fprintln(p.w, p.render(p.styles.muted, text))
}

// Box prints content in a rounded box under a title. Outside styled mode
// the title and content are printed as plain lines.
func (p *Printer) Box(title, content string) {
	switch p.mode {
	case ModeMachine:
		fmt.Fprintln(p.w, content)
	case ModePlain:
		fmt.Fprintf(p.w, "%s\n%s\n", title, content)
	default:
		fmt.Fprintln(p.w, p.styles.box.Render(p.styles.title.Render(title)+"\n"+content))
	}
}

// Summary prints "N passed, M failed" with the failed count highlighted
// when non-zero.
func (p *Printer) Summary(passed, failed int) {
	text := fmt.Sprintf("%d passed, %d failed", passed, failed)
	if p.mode == ModeMachine {
		fmt.Fprintf(p.w, "SUMMARY: %s\n", text)
		return
	}
	if failed > 0 {
		fmt.Fprintln(p.w, p.render(p.styles.err, text))
		return
	}
	fmt.Fprintln(p.w, p.render(p.styles.success, text))
}
