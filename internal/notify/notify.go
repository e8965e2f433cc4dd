// Package notify reports user-facing status messages from the session
// controller.
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Kind classifies a notification
type Kind int

const (
	Info Kind = iota
	Success
	Warning
	Error
)

func (k Kind) String() string {
	switch k {
	case Info:
		return "info"
	case Success:
		return "success"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Sink receives notifications. Report must not block for long.
type Sink interface {
	Report(kind Kind, message string)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(kind Kind, message string)

func (f SinkFunc) Report(kind Kind, message string) { f(kind, message) }

// Discard drops every notification
var Discard Sink = SinkFunc(func(Kind, string) {})

// Multi fans a notification out to several sinks
type Multi []Sink

func (m Multi) Report(kind Kind, message string) {
	for _, s := range m {
		if s != nil {
			s.Report(kind, message)
		}
	}
}

// Logger writes notifications to a slog logger
type Logger struct {
	log *slog.Logger
}

// NewLogger returns a Sink logging through log
func NewLogger(log *slog.Logger) *Logger {
	return &Logger{log: log}
}

func (l *Logger) Report(kind Kind, message string) {
	level := slog.LevelInfo
	switch kind {
	case Warning:
		level = slog.LevelWarn
	case Error:
		level = slog.LevelError
	}
	l.log.Log(context.Background(), level, message, "kind", kind.String())
}

var (
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#7aa2f7"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ece6a"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#e0af68"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#f7768e")).Bold(true)
)

// Writer prints one styled line per notification
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter returns a Sink printing to w
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (w *Writer) Report(kind Kind, message string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, _ = fmt.Fprintln(w.w, Format(kind, message))
}

// Format renders a notification as a single styled line
func Format(kind Kind, message string) string {
	switch kind {
	case Success:
		return successStyle.Render("✓ " + message)
	case Warning:
		return warningStyle.Render("! " + message)
	case Error:
		return errorStyle.Render("✗ " + message)
	default:
		return infoStyle.Render("• " + message)
	}
}

// Entry is one notification captured by a Recorder
type Entry struct {
	Kind    Kind
	Message string
}

// Recorder keeps every notification in memory
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

func (r *Recorder) Report(kind Kind, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{Kind: kind, Message: message})
}

// Entries returns a copy of the recorded notifications
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}

// Count returns how many notifications of kind were recorded
func (r *Recorder) Count(kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.entries {
		if e.Kind == kind {
			n++
		}
	}
	return n
}
