package highlight

import (
	"testing"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/dshills/esplay/internal/renderer/core"
)

func TestPalette(t *testing.T) {
	accent, _ := colorful.Hex("#5fafff")
	muted, _ := colorful.Hex("#808080")
	base := core.DefaultStyle()
	p := NewPalette(base, accent, muted)

	for _, typ := range []TokenType{TokenNone, TokenIdentifier, tokenTypeCount + 1} {
		if got := p.Style(typ); got != base {
			t.Errorf("Style(%v) = %+v, expected the base style", typ, got)
		}
	}
	if got := p.Style(TokenComment).Foreground; got != core.ColorFrom(muted) {
		t.Errorf("comment foreground = %v", got)
	}
	kw := p.Style(TokenKeyword)
	if kw.Foreground != core.ColorFrom(accent) || !kw.Attributes.Has(core.AttrBold) {
		t.Errorf("keyword style = %+v", kw)
	}
	if p.Style(TokenString) == p.Style(TokenNumber) || p.Style(TokenString) == base {
		t.Error("strings and numbers should get distinct tints")
	}
}
