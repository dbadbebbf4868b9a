package highlight

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Rule matches a token at the current position.
type Rule struct {
	// Pattern is anchored at the current position when the rule is added.
	Pattern *regexp.Regexp
	Type    TokenType
	// Submatch selects the token's group; 0 is the whole match.
	Submatch int
	// NoOperand restricts the rule to positions where an operand cannot
	// precede, which separates a regexp literal from division.
	NoOperand bool
}

// span is a construct that may continue onto following lines.
type span struct {
	start   string
	end     string
	escapes bool
	typ     TokenType
	state   State
}

// Lexer is a rule-based line tokenizer.
type Lexer struct {
	name     string
	spans    []span
	rules    []Rule
	keywords map[string]TokenType
	// ident reports whether r may continue an identifier.
	ident func(r rune) bool
}

// NewLexer creates an empty lexer.
func NewLexer(name string) *Lexer {
	return &Lexer{
		name:     name,
		keywords: make(map[string]TokenType),
		ident: func(r rune) bool {
			return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '$'
		},
	}
}

// Name returns the language name.
func (l *Lexer) Name() string { return l.name }

// AddRule adds a rule. Rules are tried in the order added.
func (l *Lexer) AddRule(pattern string, typ TokenType) *Lexer {
	l.rules = append(l.rules, Rule{Pattern: anchor(pattern), Type: typ})
	return l
}

// AddSubmatchRule adds a rule whose token is the given group of the match.
func (l *Lexer) AddSubmatchRule(pattern string, typ TokenType, submatch int) *Lexer {
	l.rules = append(l.rules, Rule{Pattern: anchor(pattern), Type: typ, Submatch: submatch})
	return l
}

// AddOperatorRule adds a rule that only applies where an operator or
// the start of an expression is expected.
func (l *Lexer) AddOperatorRule(pattern string, typ TokenType) *Lexer {
	l.rules = append(l.rules, Rule{Pattern: anchor(pattern), Type: typ, NoOperand: true})
	return l
}

// AddKeywords assigns typ to whole-word identifiers.
func (l *Lexer) AddKeywords(typ TokenType, words ...string) *Lexer {
	for _, w := range words {
		l.keywords[w] = typ
	}
	return l
}

// AddSpan adds a delimited construct that may span lines. When escapes
// is set a backslash hides the following byte from the end search.
func (l *Lexer) AddSpan(start, end string, escapes bool, typ TokenType, state State) *Lexer {
	l.spans = append(l.spans, span{start: start, end: end, escapes: escapes, typ: typ, state: state})
	return l
}

func anchor(pattern string) *regexp.Regexp {
	return regexp.MustCompile(`\A(?:` + pattern + `)`)
}

// Line tokenizes one line. state is the state the previous line ended
// in; the returned state feeds the next line.
func (l *Lexer) Line(line string, state State) ([]Token, State) {
	var tokens []Token
	i := 0
	operand := false

	if state != StateNormal {
		sp, ok := l.spanFor(state)
		if !ok {
			state = StateNormal
		} else {
			end := findEnd(line, sp.end, sp.escapes)
			if end < 0 {
				return []Token{{Type: sp.typ, Start: 0, End: len(line)}}, state
			}
			i = end + len(sp.end)
			tokens = append(tokens, Token{Type: sp.typ, Start: 0, End: i})
			operand = sp.typ != TokenComment
		}
	}

	for i < len(line) {
		rest := line[i:]
		if c := rest[0]; c == ' ' || c == '\t' {
			i++
			continue
		}

		if sp, ok := l.spanAt(rest); ok {
			end := findEnd(rest[len(sp.start):], sp.end, sp.escapes)
			if end < 0 {
				return append(tokens, Token{Type: sp.typ, Start: i, End: len(line)}), sp.state
			}
			n := len(sp.start) + end + len(sp.end)
			tokens = append(tokens, Token{Type: sp.typ, Start: i, End: i + n})
			i += n
			operand = sp.typ != TokenComment
			continue
		}

		if tok, n, ok := l.matchRule(rest, operand); ok {
			tok.Start += i
			tok.End += i
			tokens = append(tokens, tok)
			i += n
			if tok.Type != TokenComment {
				operand = true
			}
			continue
		}

		r, size := utf8.DecodeRuneInString(rest)
		if l.ident(r) && !unicode.IsDigit(r) {
			n := size
			for n < len(rest) {
				r, size := utf8.DecodeRuneInString(rest[n:])
				if !l.ident(r) {
					break
				}
				n += size
			}
			typ, ok := l.keywords[rest[:n]]
			if !ok {
				typ = TokenIdentifier
			}
			tokens = append(tokens, Token{Type: typ, Start: i, End: i + n})
			i += n
			operand = typ != TokenKeyword
			continue
		}

		operand = r == ')' || r == ']'
		i += size
	}
	return tokens, StateNormal
}

// Text tokenizes every line of text.
func (l *Lexer) Text(text string) [][]Token {
	lines := strings.Split(text, "\n")
	out := make([][]Token, len(lines))
	state := StateNormal
	for i, line := range lines {
		out[i], state = l.Line(line, state)
	}
	return out
}

func (l *Lexer) spanFor(state State) (span, bool) {
	for _, sp := range l.spans {
		if sp.state == state {
			return sp, true
		}
	}
	return span{}, false
}

func (l *Lexer) spanAt(s string) (span, bool) {
	for _, sp := range l.spans {
		if strings.HasPrefix(s, sp.start) {
			return sp, true
		}
	}
	return span{}, false
}

// matchRule returns the first rule match at the start of s, relative
// to s, and how many bytes it consumes.
func (l *Lexer) matchRule(s string, operand bool) (Token, int, bool) {
	for _, rule := range l.rules {
		if rule.NoOperand && operand {
			continue
		}
		m := rule.Pattern.FindStringSubmatchIndex(s)
		if m == nil || m[1] == 0 {
			continue
		}
		start, end := m[0], m[1]
		if rule.Submatch > 0 && 2*rule.Submatch+1 < len(m) && m[2*rule.Submatch] >= 0 {
			start, end = m[2*rule.Submatch], m[2*rule.Submatch+1]
		}
		return Token{Type: rule.Type, Start: start, End: end}, end, true
	}
	return Token{}, 0, false
}

// findEnd returns the offset of the first delim in s, or -1.
func findEnd(s, delim string, escapes bool) int {
	if !escapes {
		return strings.Index(s, delim)
	}
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' {
			i++
			continue
		}
		if strings.HasPrefix(s[i:], delim) {
			return i
		}
	}
	return -1
}
