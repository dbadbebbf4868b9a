// Package core provides the cell, style and geometry types shared by the
// terminal backends and the UI.
package core

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/rivo/uniseg"
)

// Attribute represents text attributes (bold, reverse, etc.).
type Attribute uint16

// Text attribute flags.
const (
	AttrNone      Attribute = 0
	AttrBold      Attribute = 1 << iota
	AttrDim                 // Faint text
	AttrItalic              // Italic text
	AttrUnderline           // Underlined text
	AttrReverse             // Swap foreground and background
)

// Has returns true if the attribute set contains attr.
func (a Attribute) Has(attr Attribute) bool {
	return a&attr != 0
}

// Color is a true color or the terminal's default color.
type Color struct {
	R, G, B uint8
	// Default indicates the terminal's default color.
	Default bool
}

// ColorDefault represents the terminal's default color.
var ColorDefault = Color{Default: true}

// ColorFromRGB creates a true color from RGB components.
func ColorFromRGB(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b}
}

// ColorFrom converts a colorful.Color, clamping it to the RGB gamut.
func ColorFrom(c colorful.Color) Color {
	r, g, b := c.Clamped().RGB255()
	return Color{R: r, G: g, B: b}
}

// ColorFromHex parses "#rrggbb" or "#rgb".
func ColorFromHex(hex string) (Color, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return Color{}, fmt.Errorf("invalid hex color: %s", hex)
	}
	return ColorFrom(c), nil
}

// IsDefault returns true if this is the default color.
func (c Color) IsDefault() bool {
	return c.Default
}

// Blend mixes c toward other in Lab space. amount 0 is c, 1 is other.
// Default colors are not blended.
func (c Color) Blend(other Color, amount float64) Color {
	switch {
	case amount <= 0:
		return c
	case amount >= 1:
		return other
	}
	if c.Default || other.Default {
		if amount < 0.5 {
			return c
		}
		return other
	}
	return ColorFrom(c.colorful().BlendLab(other.colorful(), amount))
}

func (c Color) colorful() colorful.Color {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
}

// String returns "#RRGGBB" or "default".
func (c Color) String() string {
	if c.Default {
		return "default"
	}
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// Style is the visual style of a cell.
type Style struct {
	Foreground Color
	Background Color
	Attributes Attribute
}

// DefaultStyle returns the terminal's default style.
func DefaultStyle() Style {
	return Style{Foreground: ColorDefault, Background: ColorDefault}
}

// WithForeground returns a copy with the foreground set.
func (s Style) WithForeground(fg Color) Style {
	s.Foreground = fg
	return s
}

// WithBackground returns a copy with the background set.
func (s Style) WithBackground(bg Color) Style {
	s.Background = bg
	return s
}

// Bold returns a copy with bold added.
func (s Style) Bold() Style {
	s.Attributes |= AttrBold
	return s
}

// Dim returns a copy with dim added.
func (s Style) Dim() Style {
	s.Attributes |= AttrDim
	return s
}

// Underline returns a copy with underline added.
func (s Style) Underline() Style {
	s.Attributes |= AttrUnderline
	return s
}

// Reverse returns a copy with reverse video added.
func (s Style) Reverse() Style {
	s.Attributes |= AttrReverse
	return s
}

// Cell is one screen cell: a grapheme cluster and its style. A wide
// cluster occupies its cell and Width-1 continuation cells.
type Cell struct {
	Rune  rune
	Comb  []rune
	Width int
	Style Style
}

// EmptyCell returns a blank cell in the default style.
func EmptyCell() Cell {
	return Cell{Rune: ' ', Width: 1, Style: DefaultStyle()}
}

// Text returns the cell's grapheme cluster.
func (c Cell) Text() string {
	if c.Width == 0 {
		return ""
	}
	return string(c.Rune) + string(c.Comb)
}

// CellsFromString splits s into cells by grapheme cluster. Control
// characters are shown as spaces.
func CellsFromString(s string, style Style) []Cell {
	var cells []Cell
	state := -1
	for len(s) > 0 {
		var cluster string
		var width int
		cluster, s, width, state = uniseg.FirstGraphemeClusterInString(s, state)
		runes := []rune(cluster)
		if runes[0] < ' ' || runes[0] == 0x7f {
			cells = append(cells, Cell{Rune: ' ', Width: 1, Style: style})
			continue
		}
		if width == 0 {
			width = 1
		}
		cell := Cell{Rune: runes[0], Width: width, Style: style}
		if len(runes) > 1 {
			cell.Comb = runes[1:]
		}
		cells = append(cells, cell)
		for i := 1; i < width; i++ {
			cells = append(cells, Cell{Style: style})
		}
	}
	return cells
}

// StringWidth returns the number of columns s occupies.
func StringWidth(s string) int {
	return uniseg.StringWidth(s)
}

// Truncate cuts s to at most width columns without splitting a
// grapheme cluster.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	used, end := 0, 0
	state := -1
	rest := s
	for len(rest) > 0 {
		var cluster string
		var w int
		cluster, rest, w, state = uniseg.FirstGraphemeClusterInString(rest, state)
		if used+w > width {
			break
		}
		used += w
		end += len(cluster)
	}
	return s[:end]
}

// Rect is a screen rectangle. Right and Bottom are exclusive.
type Rect struct {
	Top, Left, Bottom, Right int
}

// RectFromSize creates a rect from its top-left corner and size.
func RectFromSize(top, left, height, width int) Rect {
	return Rect{Top: top, Left: left, Bottom: top + height, Right: left + width}
}

// Width returns the rect's width, never negative.
func (r Rect) Width() int {
	return max(0, r.Right-r.Left)
}

// Height returns the rect's height, never negative.
func (r Rect) Height() int {
	return max(0, r.Bottom-r.Top)
}

// IsEmpty reports whether the rect has no area.
func (r Rect) IsEmpty() bool {
	return r.Width() == 0 || r.Height() == 0
}

// Contains reports whether (x, y) lies inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.Left && x < r.Right && y >= r.Top && y < r.Bottom
}

// Inset shrinks the rect on each side.
func (r Rect) Inset(top, right, bottom, left int) Rect {
	out := Rect{Top: r.Top + top, Left: r.Left + left, Bottom: r.Bottom - bottom, Right: r.Right - right}
	if out.Bottom < out.Top {
		out.Bottom = out.Top
	}
	if out.Right < out.Left {
		out.Right = out.Left
	}
	return out
}

// SplitH splits r into a left part of width w and the remainder.
func (r Rect) SplitH(w int) (Rect, Rect) {
	w = min(max(w, 0), r.Width())
	left := Rect{Top: r.Top, Left: r.Left, Bottom: r.Bottom, Right: r.Left + w}
	right := Rect{Top: r.Top, Left: r.Left + w, Bottom: r.Bottom, Right: r.Right}
	return left, right
}

// SplitV splits r into a top part of height h and the remainder.
func (r Rect) SplitV(h int) (Rect, Rect) {
	h = min(max(h, 0), r.Height())
	top := Rect{Top: r.Top, Left: r.Left, Bottom: r.Top + h, Right: r.Right}
	bottom := Rect{Top: r.Top + h, Left: r.Left, Bottom: r.Bottom, Right: r.Right}
	return top, bottom
}
