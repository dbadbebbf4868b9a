// Package highlight splits JavaScript and JSON source into tokens for
// the playground's input, output and export panes.
package highlight

// TokenType is the syntactic class of a token.
type TokenType uint8

const (
	TokenNone TokenType = iota
	TokenComment
	TokenString
	TokenTemplate
	TokenRegexp
	TokenNumber
	TokenKeyword
	TokenConstant
	TokenIdentifier
	// TokenProperty is a JSON object key.
	TokenProperty
	tokenTypeCount
)

var tokenTypeNames = [tokenTypeCount]string{
	TokenNone:       "none",
	TokenComment:    "comment",
	TokenString:     "string",
	TokenTemplate:   "template",
	TokenRegexp:     "regexp",
	TokenNumber:     "number",
	TokenKeyword:    "keyword",
	TokenConstant:   "constant",
	TokenIdentifier: "identifier",
	TokenProperty:   "property",
}

// String returns the token type name.
func (t TokenType) String() string {
	if t < tokenTypeCount {
		return tokenTypeNames[t]
	}
	return "unknown"
}

// Token is a typed byte range of one line.
type Token struct {
	Type  TokenType
	Start int
	End   int
}

// Contains reports whether the byte offset falls inside the token.
func (t Token) Contains(off int) bool {
	return off >= t.Start && off < t.End
}

// State carries an unterminated construct from one line to the next.
type State uint8

const (
	StateNormal State = iota
	StateBlockComment
	StateTemplate
)

// TypeAt returns the type of the token covering off. tokens must be
// sorted by Start, as Lexer.Line returns them.
func TypeAt(tokens []Token, off int) TokenType {
	lo, hi := 0, len(tokens)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case off < tokens[mid].Start:
			hi = mid
		case off >= tokens[mid].End:
			lo = mid + 1
		default:
			return tokens[mid].Type
		}
	}
	return TokenNone
}
