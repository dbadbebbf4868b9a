package ui

import (
	"github.com/dshills/esplay/internal/renderer/backend"
	"github.com/dshills/esplay/internal/renderer/core"
	"github.com/dshills/esplay/internal/renderer/highlight"
)

// canvas draws text into a backend, clipped to a rect.
type canvas struct {
	b    backend.Backend
	clip core.Rect
}

func (c canvas) within(r core.Rect) canvas {
	clip := core.Rect{
		Top:    max(r.Top, c.clip.Top),
		Left:   max(r.Left, c.clip.Left),
		Bottom: min(r.Bottom, c.clip.Bottom),
		Right:  min(r.Right, c.clip.Right),
	}
	return canvas{b: c.b, clip: clip}
}

// text draws s at (x, y) and returns the column after it.
func (c canvas) text(x, y int, s string, style core.Style) int {
	if y < c.clip.Top || y >= c.clip.Bottom {
		return x
	}
	for _, cell := range core.CellsFromString(s, style) {
		if x >= c.clip.Right {
			break
		}
		if x >= c.clip.Left && x+max(cell.Width, 1) <= c.clip.Right {
			c.b.SetCell(x, y, cell)
		}
		x++
	}
	return x
}

// code draws a tokenized source line with tabs expanded. Bytes outside
// tokens use base; a nil palette draws everything in base.
func (c canvas) code(x, y int, line string, tokens []highlight.Token, pal *highlight.Palette, base core.Style) {
	start := x
	seg := func(s string, style core.Style) {
		if s != "" {
			x = c.text(x, y, expandTabsAt(s, x-start), style)
		}
	}
	if pal == nil {
		seg(line, base)
		return
	}
	pos := 0
	for _, t := range tokens {
		seg(line[pos:t.Start], base)
		seg(line[t.Start:t.End], pal.Style(t.Type))
		pos = t.End
	}
	seg(line[pos:], base)
}

// fill paints r with blanks in style.
func (c canvas) fill(r core.Rect, style core.Style) {
	blank := core.Cell{Rune: ' ', Width: 1, Style: style}
	for y := max(r.Top, c.clip.Top); y < min(r.Bottom, c.clip.Bottom); y++ {
		for x := max(r.Left, c.clip.Left); x < min(r.Right, c.clip.Right); x++ {
			c.b.SetCell(x, y, blank)
		}
	}
}

// box draws a frame around r with a title and returns the inner rect.
func (c canvas) box(r core.Rect, title string, style, titleStyle core.Style) core.Rect {
	if r.Width() < 2 || r.Height() < 2 {
		return core.Rect{}
	}
	right, bottom := r.Right-1, r.Bottom-1
	for x := r.Left + 1; x < right; x++ {
		c.text(x, r.Top, "─", style)
		c.text(x, bottom, "─", style)
	}
	for y := r.Top + 1; y < bottom; y++ {
		c.text(r.Left, y, "│", style)
		c.text(right, y, "│", style)
	}
	c.text(r.Left, r.Top, "┌", style)
	c.text(right, r.Top, "┐", style)
	c.text(r.Left, bottom, "└", style)
	c.text(right, bottom, "┘", style)
	if title != "" {
		c.within(core.Rect{Top: r.Top, Left: r.Left + 2, Bottom: r.Top + 1, Right: right - 1}).
			text(r.Left+2, r.Top, " "+title+" ", titleStyle)
	}
	return r.Inset(1, 1, 1, 1)
}
