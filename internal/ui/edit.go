package ui

import (
	"strings"

	"github.com/dshills/esplay/internal/renderer/backend"
	"github.com/dshills/esplay/internal/renderer/core"
	"github.com/dshills/esplay/internal/renderer/highlight"
)

// lineEdit is a single-line text input.
type lineEdit struct {
	text   []rune
	cursor int
}

func newLineEdit(s string) *lineEdit {
	r := []rune(s)
	return &lineEdit{text: r, cursor: len(r)}
}

func (e *lineEdit) String() string { return string(e.text) }

// handle applies an editing key and reports whether it was consumed.
func (e *lineEdit) handle(ev backend.Event) bool {
	switch ev.Key {
	case backend.KeyRune:
		e.text = append(e.text[:e.cursor], append([]rune{ev.Rune}, e.text[e.cursor:]...)...)
		e.cursor++
	case backend.KeyBackspace:
		if e.cursor > 0 {
			e.text = append(e.text[:e.cursor-1], e.text[e.cursor:]...)
			e.cursor--
		}
	case backend.KeyDelete:
		if e.cursor < len(e.text) {
			e.text = append(e.text[:e.cursor], e.text[e.cursor+1:]...)
		}
	case backend.KeyLeft:
		e.cursor = max(0, e.cursor-1)
	case backend.KeyRight:
		e.cursor = min(len(e.text), e.cursor+1)
	case backend.KeyHome, backend.KeyCtrlA:
		e.cursor = 0
	case backend.KeyEnd, backend.KeyCtrlE:
		e.cursor = len(e.text)
	case backend.KeyCtrlU:
		e.text, e.cursor = e.text[:0], 0
	default:
		return false
	}
	return true
}

// draw renders the input in r, scrolled so the cursor is visible, and
// returns the cursor's screen column.
func (e *lineEdit) draw(c canvas, x, y, width int, style core.Style) int {
	before := string(e.text[:e.cursor])
	skip := 0
	for core.StringWidth(string(e.text[skip:e.cursor])) >= width && skip < e.cursor {
		skip++
	}
	c.text(x, y, string(e.text[skip:]), style)
	return x + core.StringWidth(before) - core.StringWidth(string(e.text[:skip]))
}

// textArea is a multi-line editor for the input source.
type textArea struct {
	lines  [][]rune
	row    int
	col    int
	top    int
	height int
	lexer  *highlight.Lexer
}

func newTextArea(lexer *highlight.Lexer) *textArea {
	return &textArea{lines: [][]rune{{}}, lexer: lexer}
}

func (t *textArea) SetText(s string) {
	parts := strings.Split(s, "\n")
	t.lines = make([][]rune, len(parts))
	for i, p := range parts {
		t.lines[i] = []rune(p)
	}
	t.row, t.col, t.top = 0, 0, 0
}

func (t *textArea) Text() string {
	parts := make([]string, len(t.lines))
	for i, l := range t.lines {
		parts[i] = string(l)
	}
	return strings.Join(parts, "\n")
}

// handle applies an editing key and reports whether the text changed.
func (t *textArea) handle(ev backend.Event) (changed bool) {
	line := t.lines[t.row]
	switch ev.Key {
	case backend.KeyRune:
		t.insert(ev.Rune)
		return true
	case backend.KeyTab:
		t.insert('\t')
		return true
	case backend.KeyEnter:
		rest := append([]rune(nil), line[t.col:]...)
		t.lines[t.row] = line[:t.col]
		t.lines = append(t.lines[:t.row+1], append([][]rune{rest}, t.lines[t.row+1:]...)...)
		t.row++
		t.col = 0
		return true
	case backend.KeyBackspace:
		switch {
		case t.col > 0:
			t.lines[t.row] = append(line[:t.col-1], line[t.col:]...)
			t.col--
		case t.row > 0:
			prev := t.lines[t.row-1]
			t.col = len(prev)
			t.lines[t.row-1] = append(prev, line...)
			t.lines = append(t.lines[:t.row], t.lines[t.row+1:]...)
			t.row--
		default:
			return false
		}
		return true
	case backend.KeyDelete:
		switch {
		case t.col < len(line):
			t.lines[t.row] = append(line[:t.col], line[t.col+1:]...)
		case t.row < len(t.lines)-1:
			t.lines[t.row] = append(line, t.lines[t.row+1]...)
			t.lines = append(t.lines[:t.row+1], t.lines[t.row+2:]...)
		default:
			return false
		}
		return true
	case backend.KeyLeft:
		if t.col > 0 {
			t.col--
		} else if t.row > 0 {
			t.row--
			t.col = len(t.lines[t.row])
		}
	case backend.KeyRight:
		if t.col < len(line) {
			t.col++
		} else if t.row < len(t.lines)-1 {
			t.row++
			t.col = 0
		}
	case backend.KeyUp:
		t.moveRow(-1)
	case backend.KeyDown:
		t.moveRow(1)
	case backend.KeyPageUp:
		t.moveRow(-max(1, t.height-1))
	case backend.KeyPageDown:
		t.moveRow(max(1, t.height-1))
	case backend.KeyHome:
		t.col = 0
	case backend.KeyEnd:
		t.col = len(line)
	}
	return false
}

func (t *textArea) insert(r rune) {
	line := t.lines[t.row]
	t.lines[t.row] = append(line[:t.col], append([]rune{r}, line[t.col:]...)...)
	t.col++
}

func (t *textArea) moveRow(delta int) {
	t.row = min(max(t.row+delta, 0), len(t.lines)-1)
	t.col = min(t.col, len(t.lines[t.row]))
}

// draw renders the visible lines and returns the cursor position. The
// lexer state is carried from the first line so comments opened above
// the view are still colored.
func (t *textArea) draw(c canvas, r core.Rect, style core.Style, pal *highlight.Palette) (int, int) {
	t.height = r.Height()
	if t.row < t.top {
		t.top = t.row
	}
	if t.height > 0 && t.row >= t.top+t.height {
		t.top = t.row - t.height + 1
	}
	state := highlight.StateNormal
	for i := 0; i < len(t.lines) && i < t.top+t.height; i++ {
		line := string(t.lines[i])
		var tokens []highlight.Token
		if t.lexer != nil && pal != nil {
			tokens, state = t.lexer.Line(line, state)
		}
		if i >= t.top {
			c.code(r.Left, r.Top+i-t.top, line, tokens, pal, style)
		}
	}
	x := r.Left + core.StringWidth(expandTabs(string(t.lines[t.row][:t.col])))
	return x, r.Top + t.row - t.top
}

// viewer is a read-only scrollable text.
type viewer struct {
	text   string
	plain  bool
	lines  []string
	tokens [][]highlight.Token
	top    int
	height int
	lexer  *highlight.Lexer
}

// SetText replaces the text. plain skips highlighting, as for error
// messages.
func (v *viewer) SetText(s string, plain bool) {
	s = strings.TrimRight(s, "\n")
	if v.lines != nil && s == v.text && plain == v.plain {
		return
	}
	v.text, v.plain = s, plain
	v.lines = strings.Split(s, "\n")
	v.tokens = nil
	if v.lexer != nil && !plain {
		v.tokens = v.lexer.Text(s)
	}
	v.top = min(v.top, max(0, len(v.lines)-1))
}

func (v *viewer) handle(ev backend.Event) {
	page := max(1, v.height-1)
	switch ev.Key {
	case backend.KeyUp:
		v.top--
	case backend.KeyDown:
		v.top++
	case backend.KeyPageUp:
		v.top -= page
	case backend.KeyPageDown:
		v.top += page
	case backend.KeyHome:
		v.top = 0
	case backend.KeyEnd:
		v.top = len(v.lines) - v.height
	}
	v.top = min(max(v.top, 0), max(0, len(v.lines)-1))
}

func (v *viewer) draw(c canvas, r core.Rect, style core.Style, pal *highlight.Palette) {
	v.height = r.Height()
	for i := 0; i < v.height && v.top+i < len(v.lines); i++ {
		var tokens []highlight.Token
		if v.tokens != nil {
			tokens = v.tokens[v.top+i]
		}
		c.code(r.Left, r.Top+i, v.lines[v.top+i], tokens, pal, style)
	}
}

const tabWidth = 4

func expandTabs(s string) string {
	return expandTabsAt(s, 0)
}

// expandTabsAt expands tabs in s, which starts at display column col.
func expandTabsAt(s string, col int) string {
	if !strings.Contains(s, "\t") {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		if r == '\t' {
			n := tabWidth - col%tabWidth
			b.WriteString(strings.Repeat(" ", n))
			col += n
			continue
		}
		b.WriteRune(r)
		col += core.StringWidth(string(r))
	}
	return b.String()
}
