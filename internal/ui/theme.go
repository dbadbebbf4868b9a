package ui

import (
	"github.com/lucasb-eyer/go-colorful"

	"github.com/dshills/esplay/internal/renderer/core"
	"github.com/dshills/esplay/internal/renderer/highlight"
)

// Theme holds the styles the screen draws with.
type Theme struct {
	Text       core.Style
	Muted      core.Style
	Title      core.Style
	Focused    core.Style
	Selected   core.Style
	Overridden core.Style
	Error      core.Style
	Status     core.Style
	// Syntax colors source in the input, output and export panes. Nil
	// draws source in Text.
	Syntax *highlight.Palette
}

// NewTheme derives a theme from an accent and a muted color.
func NewTheme(accent, muted colorful.Color) Theme {
	a := core.ColorFrom(accent)
	m := core.ColorFrom(muted)
	text := core.DefaultStyle()
	return Theme{
		Text:       text,
		Muted:      text.WithForeground(m),
		Title:      text.WithForeground(m).Bold(),
		Focused:    text.WithForeground(a).Bold(),
		Selected:   text.WithForeground(core.ColorFromRGB(0, 0, 0)).WithBackground(a),
		Overridden: text.WithForeground(a),
		Error:      text.WithForeground(core.ColorFromRGB(0xff, 0x5f, 0x5f)).Bold(),
		Status:     text.WithBackground(m.Blend(core.ColorFromRGB(0, 0, 0), 0.6)),
		Syntax:     highlight.NewPalette(text, accent, muted),
	}
}

// DefaultTheme uses the built-in colors.
func DefaultTheme() Theme {
	accent, _ := colorful.Hex("#5fafff")
	muted, _ := colorful.Hex("#808080")
	return NewTheme(accent, muted)
}
