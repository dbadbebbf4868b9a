package highlight

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/dshills/esplay/internal/renderer/core"
)

// Palette maps token types to styles.
type Palette struct {
	styles [tokenTypeCount]core.Style
}

// NewPalette derives token colors from an accent by rotating its hue.
// Untyped text and identifiers keep base; comments use muted.
func NewPalette(base core.Style, accent, muted colorful.Color) *Palette {
	h, c, l := accent.Hcl()
	tint := func(shift float64) core.Style {
		hue := math.Mod(h+shift+360, 360)
		return base.WithForeground(core.ColorFrom(colorful.Hcl(hue, c, l).Clamped()))
	}

	p := &Palette{}
	for i := range p.styles {
		p.styles[i] = base
	}
	p.styles[TokenComment] = base.WithForeground(core.ColorFrom(muted))
	p.styles[TokenString] = tint(120)
	p.styles[TokenTemplate] = tint(120)
	p.styles[TokenRegexp] = tint(60)
	p.styles[TokenNumber] = tint(180)
	p.styles[TokenConstant] = tint(180)
	p.styles[TokenKeyword] = base.WithForeground(core.ColorFrom(accent)).Bold()
	p.styles[TokenProperty] = tint(-60)
	return p
}

// Style returns the style for t.
func (p *Palette) Style(t TokenType) core.Style {
	if t >= tokenTypeCount {
		return p.styles[TokenNone]
	}
	return p.styles[t]
}
