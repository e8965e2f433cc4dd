// Package render turns assistant markdown into display text for the
// terminal, for HTML, or as-is.
package render

import "slices"

// Built-in glamour styles
const (
	StyleDark       = "dark"
	StyleLight      = "light"
	StyleDracula    = "dracula"
	StyleTokyoNight = "tokyo-night"
	StyleNoTTY      = "notty"
	StyleASCII      = "ascii"
	StyleAuto       = "auto"
)

// Styles returns the built-in style names. Any other value is treated as a
// path to a glamour JSON style.
func Styles() []string {
	return []string{StyleDark, StyleLight, StyleDracula, StyleTokyoNight, StyleNoTTY, StyleASCII, StyleAuto}
}

// IsBuiltinStyle reports whether name is one of Styles
func IsBuiltinStyle(name string) bool {
	return slices.Contains(Styles(), name)
}

// Options configures the terminal renderer.
type Options struct {
	// Width is the word wrap column (default: 80)
	Width int

	// Style is a built-in style name or a path to a JSON style
	Style string

	EnableEmoji      bool
	PreserveNewLines bool
	TableWrap        bool
	InlineTableLinks bool
}

// DefaultOptions returns the default configuration.
func DefaultOptions() Options {
	return Options{
		Width:            80,
		Style:            StyleDark,
		EnableEmoji:      true,
		PreserveNewLines: true,
		TableWrap:        true,
	}
}

// WithWidth returns Options with the specified width.
func (o Options) WithWidth(width int) Options {
	o.Width = width
	return o
}

// WithStyle returns Options with the specified style.
func (o Options) WithStyle(style string) Options {
	o.Style = style
	return o
}

// WithEmoji returns Options with emoji support enabled/disabled.
func (o Options) WithEmoji(enabled bool) Options {
	o.EnableEmoji = enabled
	return o
}
