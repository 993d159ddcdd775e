// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// SpinnerType defines the animation style
type SpinnerType int

const (
	SpinnerDots SpinnerType = iota
	SpinnerWave
	SpinnerCompass
)

var spinnerFrames = map[SpinnerType][]string{
	SpinnerDots:    {"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
	SpinnerWave:    {"~", "≈", "≋", "≈"},
	SpinnerCompass: {"◐", "◓", "◑", "◒"},
}

const spinnerTick = 80 * time.Millisecond

// Spinner is an animated progress indicator for a single task.
//
// Spinner satisfies the importer's progress sink: SetDisplayName sets the
// message, Start and Finish bracket the animation, and Progress appends
// running counts. In machine mode nothing is animated; Start and each
// Progress call print one PROGRESS line.
//
// Thread Safety: Safe for concurrent use. A finished spinner may be
// started again.
type Spinner struct {
	out      io.Writer
	mode     Mode
	spinType SpinnerType

	mu         sync.Mutex
	message    string
	counts     string
	running    bool
	stop       chan struct{}
	done       chan struct{}
	frameIndex int
}

// NewSpinner creates a spinner writing to out in ModeFor(out).
func NewSpinner(out io.Writer, message string) *Spinner {
	return NewSpinnerMode(out, ModeFor(out), message)
}

// NewSpinnerMode creates a spinner with an explicit mode.
func NewSpinnerMode(out io.Writer, mode Mode, message string) *Spinner {
	return &Spinner{out: out, mode: mode, message: message, spinType: SpinnerDots}
}

// WithType sets the spinner animation type
func (s *Spinner) WithType(t SpinnerType) *Spinner {
	s.spinType = t
	return s
}

// SetDisplayName changes the message.
func (s *Spinner) SetDisplayName(name string) {
	s.mu.Lock()
	s.message = name
	s.mu.Unlock()
}

// Start begins the animation. Calling Start on a running spinner is a no-op.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.counts = ""

	if s.mode == ModeMachine {
		fmt.Fprintf(s.out, "PROGRESS: %s\n", s.message)
		return
	}

	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.animate(s.stop, s.done)
}

func (s *Spinner) animate(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	frames := spinnerFrames[s.spinType]
	ticker := time.NewTicker(spinnerTick)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			// Clear the spinner line
			fmt.Fprint(s.out, "\r\033[K")
			return
		case <-ticker.C:
			s.mu.Lock()
			frame := Styles.Highlight.Render(frames[s.frameIndex])
			fmt.Fprintf(s.out, "\r\033[K%s %s%s", frame, s.message, s.counts)
			s.frameIndex = (s.frameIndex + 1) % len(frames)
			s.mu.Unlock()
		}
	}
}

// Progress updates the running counts.
func (s *Spinner) Progress(relationships, nodes, edges int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == ModeMachine {
		if s.running {
			fmt.Fprintf(s.out, "PROGRESS: %s relationships=%d nodes=%d edges=%d\n",
				s.message, relationships, nodes, edges)
		}
		return
	}
	s.counts = Styles.Muted.Render(fmt.Sprintf(" [%d relationships %s %d nodes %s %d edges]",
		relationships, IconArrow, nodes, IconArrow, edges))
}

// Finish stops the animation and clears the line. Safe to call when not
// running.
func (s *Spinner) Finish() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// Running reports whether the spinner has been started and not finished.
func (s *Spinner) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
