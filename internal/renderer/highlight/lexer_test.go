package highlight

import (
	"reflect"
	"testing"
)

// words renders tokens as "type:text" for compact comparison.
func words(line string, tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Type.String() + ":" + line[t.Start:t.End]
	}
	return out
}

func TestJavaScript_Line(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{
			name: "declaration",
			line: `var a = "x";`,
			want: []string{"keyword:var", "identifier:a", `string:"x"`},
		},
		{
			name: "line comment",
			line: `f(1) // call f`,
			want: []string{"identifier:f", "number:1", "comment:// call f"},
		},
		{
			name: "escaped quote",
			line: `'it\'s'`,
			want: []string{`string:'it\'s'`},
		},
		{
			name: "regexp after assignment",
			line: `x = /a\/b/g;`,
			want: []string{"identifier:x", `regexp:/a\/b/g`},
		},
		{
			name: "division is not a regexp",
			line: `a / b / c`,
			want: []string{"identifier:a", "identifier:b", "identifier:c"},
		},
		{
			name: "numbers",
			line: `[0xff, 1.5e3, .5, 10n]`,
			want: []string{"number:0xff", "number:1.5e3", "number:.5", "number:10n"},
		},
		{
			name: "constants",
			line: `return this || null`,
			want: []string{"keyword:return", "constant:this", "constant:null"},
		},
		{
			name: "identifier with digits",
			line: `$el2 = _x`,
			want: []string{"identifier:$el2", "identifier:_x"},
		},
		{
			name: "closed block comment",
			line: `a /* b */ c`,
			want: []string{"identifier:a", "comment:/* b */", "identifier:c"},
		},
		{
			name: "comment marker inside string",
			line: `"/*" + x`,
			want: []string{`string:"/*"`, "identifier:x"},
		},
		{
			name: "template literal",
			line: "`a${b}` + 1",
			want: []string{"template:`a${b}`", "number:1"},
		},
	}

	js := JavaScript()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, state := js.Line(tt.line, StateNormal)
			if state != StateNormal {
				t.Errorf("state = %d, expected normal", state)
			}
			if got := words(tt.line, tokens); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("tokens = %q, expected %q", got, tt.want)
			}
		})
	}
}

func TestJavaScript_MultiLine(t *testing.T) {
	js := JavaScript()
	lines := []string{
		"a /* one",
		"two",
		"three */ b",
		"s = `x",
		"y` + c",
	}
	want := [][]string{
		{"identifier:a", "comment:/* one"},
		{"comment:two"},
		{"comment:three */", "identifier:b"},
		{"identifier:s", "template:`x"},
		{"template:y`", "identifier:c"},
	}

	tokens := js.Text(joinLines(lines))
	if len(tokens) != len(lines) {
		t.Fatalf("got %d lines, expected %d", len(tokens), len(lines))
	}
	for i, line := range lines {
		if got := words(line, tokens[i]); !reflect.DeepEqual(got, want[i]) {
			t.Errorf("line %d = %q, expected %q", i, got, want[i])
		}
	}

	_, state := js.Line("/* open", StateNormal)
	if state != StateBlockComment {
		t.Errorf("state = %d, expected block comment", state)
	}
}

func TestJSON_Line(t *testing.T) {
	line := `  "indent": {"value": "\t", "n": -2, "on": true},`
	tokens, _ := JSON().Line(line, StateNormal)
	want := []string{
		`property:"indent"`, `property:"value"`, `string:"\t"`,
		`property:"n"`, "number:-2", `property:"on"`, "constant:true",
	}
	if got := words(line, tokens); !reflect.DeepEqual(got, want) {
		t.Errorf("tokens = %q, expected %q", got, want)
	}
}

func TestTypeAt(t *testing.T) {
	line := `var s = "x";`
	tokens, _ := JavaScript().Line(line, StateNormal)
	tests := []struct {
		off  int
		want TokenType
	}{
		{0, TokenKeyword},
		{2, TokenKeyword},
		{3, TokenNone},
		{4, TokenIdentifier},
		{8, TokenString},
		{10, TokenString},
		{11, TokenNone},
		{99, TokenNone},
	}
	for _, tt := range tests {
		if got := TypeAt(tokens, tt.off); got != tt.want {
			t.Errorf("TypeAt(%d) = %v, expected %v", tt.off, got, tt.want)
		}
	}
}

func joinLines(lines []string) string {
	s := ""
	for i, l := range lines {
		if i > 0 {
			s += "\n"
		}
		s += l
	}
	return s
}
