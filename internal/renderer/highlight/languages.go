package highlight

// JavaScript returns a lexer for JavaScript source.
func JavaScript() *Lexer {
	l := NewLexer("javascript")

	l.AddSpan("/*", "*/", false, TokenComment, StateBlockComment)
	l.AddSpan("`", "`", true, TokenTemplate, StateTemplate)

	l.AddRule(`//.*`, TokenComment)
	l.AddRule(`"(?:[^"\\]|\\.)*"?`, TokenString)
	l.AddRule(`'(?:[^'\\]|\\.)*'?`, TokenString)
	l.AddOperatorRule(`/(?:[^/\\\[\n]|\\.|\[(?:[^\]\\]|\\.)*\])+/[dgimsuvy]*`, TokenRegexp)
	l.AddRule(`0[xX][0-9a-fA-F_]+n?|0[oO][0-7_]+n?|0[bB][01_]+n?`, TokenNumber)
	l.AddRule(`(?:\d[\d_]*(?:\.\d*)?|\.\d+)(?:[eE][+-]?\d+)?n?`, TokenNumber)

	l.AddKeywords(TokenKeyword,
		"if", "else", "for", "while", "do", "switch", "case", "default",
		"break", "continue", "return", "throw", "try", "catch", "finally",
		"function", "var", "let", "const", "class", "extends", "async", "await",
		"import", "export", "from", "as", "new", "delete", "typeof", "instanceof",
		"in", "of", "void", "yield", "static", "get", "set", "debugger", "with")
	l.AddKeywords(TokenConstant,
		"true", "false", "null", "undefined", "NaN", "Infinity", "this", "super")
	return l
}

// JSON returns a lexer for JSON documents such as exported options.
func JSON() *Lexer {
	l := NewLexer("json")
	l.AddSubmatchRule(`("(?:[^"\\]|\\.)*")\s*:`, TokenProperty, 1)
	l.AddRule(`"(?:[^"\\]|\\.)*"?`, TokenString)
	l.AddRule(`-?\d+(?:\.\d+)?(?:[eE][+-]?\d+)?`, TokenNumber)
	l.AddKeywords(TokenConstant, "true", "false", "null")
	return l
}
