// Package ui provides terminal UI helpers: the plain-terminal display for
// streamed responses, the spinner shown while a model loads, theme palettes,
// and code and markdown rendering shared with the full-screen UI.
package ui

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/briandowns/spinner"
)

// Spinner wraps a terminal spinner for loading states.
type Spinner struct {
	mu      sync.Mutex
	s       *spinner.Spinner
	running bool
}

// NewSpinner creates a spinner with the given message on stderr.
func NewSpinner(msg string) *Spinner {
	return NewSpinnerTo(os.Stderr, msg)
}

// NewSpinnerTo creates a spinner writing to w.
func NewSpinnerTo(w io.Writer, msg string) *Spinner {
	s := spinner.New(spinner.CharSets[14], 80*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = "  " + msg
	s.Color("cyan")
	return &Spinner{s: s}
}

// Start begins the spinner animation.
func (sp *Spinner) Start() {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	if sp.running {
		return
	}
	sp.running = true
	sp.s.Start()
}

// Stop halts the spinner and clears the line. Stopping a stopped spinner
// does nothing, so the first output of a stream can always call it.
func (sp *Spinner) Stop() {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	if !sp.running {
		return
	}
	sp.running = false
	sp.s.Stop()
}
