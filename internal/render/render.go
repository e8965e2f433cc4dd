package render

import "github.com/charmbracelet/glamour"

// Renderer converts accumulated assistant text into display text. Render
// must be pure: the same input always yields the same output.
type Renderer interface {
	Render(text string) (string, error)
}

// Func adapts a function to Renderer
type Func func(text string) (string, error)

func (f Func) Render(text string) (string, error) { return f(text) }

// Markdown renders markdown for the terminal with a pooled renderer.
func Markdown(content string, opts Options) (string, error) {
	return withRenderer(opts, func(r *glamour.TermRenderer) (string, error) {
		return r.Render(content)
	})
}

// Terminal renders markdown with glamour
type Terminal struct {
	opts Options
}

// NewTerminal returns a terminal renderer using opts
func NewTerminal(opts Options) *Terminal {
	return &Terminal{opts: opts}
}

func (t *Terminal) Render(text string) (string, error) {
	return Markdown(text, t.opts)
}

// Options returns the renderer's options
func (t *Terminal) Options() Options {
	return t.opts
}

// Plain returns text unchanged
type Plain struct{}

func (Plain) Render(text string) (string, error) { return text, nil }
