package parsers

import (
	"iter"
	"strings"
)

// TokenKind categorises a lexical token.
type TokenKind uint8

const (
	TokenIdent TokenKind = iota
	TokenKeyword
	TokenPunct
	TokenLBrace
	TokenRBrace
	TokenLParen
	TokenRParen
	TokenComment
	TokenLiteral
	TokenPreprocessor
	// TokenUnterminated holds the rest of the input after an unclosed block
	// comment or literal.
	TokenUnterminated
)

var tokenKindNames = [...]string{
	TokenIdent:        "ident",
	TokenKeyword:      "keyword",
	TokenPunct:        "punct",
	TokenLBrace:       "lbrace",
	TokenRBrace:       "rbrace",
	TokenLParen:       "lparen",
	TokenRParen:       "rparen",
	TokenComment:      "comment",
	TokenLiteral:      "literal",
	TokenPreprocessor: "preprocessor",
	TokenUnterminated: "unterminated",
}

func (k TokenKind) String() string {
	if int(k) < len(tokenKindNames) {
		return tokenKindNames[k]
	}
	return "unknown"
}

// Token is one lexeme with its position. Line and Column are 1-indexed;
// Column counts bytes.
type Token struct {
	Kind    TokenKind
	Text    string
	Offset  int
	Line    int
	Column  int
	EndLine int
}

// End returns the byte offset just past the token.
func (t Token) End() int {
	return t.Offset + len(t.Text)
}

// Is reports whether the token is punctuation or a keyword with the given text.
func (t Token) Is(text string) bool {
	return (t.Kind == TokenPunct || t.Kind == TokenKeyword) && t.Text == text
}

// Tokenize returns a lazy token sequence over src. Whitespace is skipped.
// The sequence never fails: input that ends inside a block comment or a
// literal yields one final TokenUnterminated. Each iteration starts over from
// the beginning of src.
func Tokenize(src string) iter.Seq[Token] {
	return func(yield func(Token) bool) {
		lx := &lexer{src: src, line: 1, atLineStart: true}
		for {
			tok, ok := lx.next()
			if !ok || !yield(tok) {
				return
			}
		}
	}
}

type lexer struct {
	src         string
	pos         int
	line        int
	lineStart   int
	atLineStart bool
}

func (lx *lexer) next() (Token, bool) {
	lx.skipSpace()
	if lx.pos >= len(lx.src) {
		return Token{}, false
	}

	start := lx.pos
	tok := Token{Offset: start, Line: lx.line, Column: start - lx.lineStart + 1}
	c := lx.src[start]

	var end int
	switch {
	case c == '#' && lx.atLineStart:
		tok.Kind = TokenPreprocessor
		end = lx.directiveEnd(start)
	case c == '/' && lx.peek(1) == '/':
		tok.Kind = TokenComment
		end = lineEnd(lx.src, start)
	case c == '/' && lx.peek(1) == '*':
		tok.Kind = TokenComment
		if i := strings.Index(lx.src[start+2:], "*/"); i >= 0 {
			end = start + 2 + i + 2
		} else {
			tok.Kind = TokenUnterminated
			end = len(lx.src)
		}
	case c == '"' || c == '\'':
		tok.Kind, end = lx.quoted(start, c)
	case isIdentStart(c):
		end = start + 1
		for end < len(lx.src) && isIdentPart(lx.src[end]) {
			end++
		}
		tok.Kind = TokenIdent
		if keywords[lx.src[start:end]] {
			tok.Kind = TokenKeyword
		}
	case isDigit(c) || (c == '.' && isDigit(lx.peek(1))):
		tok.Kind = TokenLiteral
		end = lx.number(start)
	case c == '{':
		tok.Kind, end = TokenLBrace, start+1
	case c == '}':
		tok.Kind, end = TokenRBrace, start+1
	case c == '(':
		tok.Kind, end = TokenLParen, start+1
	case c == ')':
		tok.Kind, end = TokenRParen, start+1
	default:
		tok.Kind = TokenPunct
		end = start + 1
		switch {
		case c == ':' && lx.peek(1) == ':':
			end = start + 2
		case c == '-' && lx.peek(1) == '>':
			end = start + 2
		case c == '.' && lx.peek(1) == '.' && lx.peek(2) == '.':
			end = start + 3
		}
	}

	tok.Text = lx.src[start:end]
	lx.advance(end)
	tok.EndLine = lx.line
	if tok.Kind != TokenComment {
		lx.atLineStart = false
	}
	return tok, true
}

func (lx *lexer) peek(n int) byte {
	if lx.pos+n < len(lx.src) {
		return lx.src[lx.pos+n]
	}
	return 0
}

func (lx *lexer) skipSpace() {
	for lx.pos < len(lx.src) {
		switch lx.src[lx.pos] {
		case '\n':
			lx.pos++
			lx.line++
			lx.lineStart = lx.pos
			lx.atLineStart = true
		case ' ', '\t', '\r', '\v', '\f':
			lx.pos++
		default:
			return
		}
	}
}

func (lx *lexer) advance(end int) {
	for lx.pos < end {
		if lx.src[lx.pos] == '\n' {
			lx.line++
			lx.lineStart = lx.pos + 1
		}
		lx.pos++
	}
}

// directiveEnd returns the end of a preprocessor line, following backslash
// continuations. The newline itself is not included.
func (lx *lexer) directiveEnd(start int) int {
	i := start
	for {
		e := lineEnd(lx.src, i)
		j := e
		if j > start && lx.src[j-1] == '\r' {
			j--
		}
		if j > start && lx.src[j-1] == '\\' && e < len(lx.src) {
			i = e + 1
			continue
		}
		return e
	}
}

// quoted scans a string or char literal. Literals stop at an unescaped
// newline; only end of input makes them unterminated.
func (lx *lexer) quoted(start int, q byte) (TokenKind, int) {
	i := start + 1
	for i < len(lx.src) {
		switch lx.src[i] {
		case '\\':
			i += 2
		case q:
			return TokenLiteral, i + 1
		case '\n':
			return TokenLiteral, i
		default:
			i++
		}
	}
	return TokenUnterminated, len(lx.src)
}

func (lx *lexer) number(start int) int {
	i := start + 1
	for i < len(lx.src) {
		c := lx.src[i]
		switch {
		case isIdentPart(c) || c == '.':
			i++
		case (c == '+' || c == '-') && strings.ContainsRune("eEpP", rune(lx.src[i-1])):
			i++
		case c == '\'' && i+1 < len(lx.src) && isIdentPart(lx.src[i+1]):
			i++
		default:
			return i
		}
	}
	return i
}

func lineEnd(src string, from int) int {
	if i := strings.IndexByte(src[from:], '\n'); i >= 0 {
		return from + i
	}
	return len(src)
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// keywords covers C11 and C++20. Contextual words such as override and final
// stay identifiers.
var keywords = toSet(
	"alignas", "alignof", "asm", "auto", "bool", "break", "case", "catch",
	"char", "char8_t", "char16_t", "char32_t", "class", "const", "consteval",
	"constexpr", "constinit", "const_cast", "continue", "decltype", "default",
	"delete", "do", "double", "dynamic_cast", "else", "enum", "explicit",
	"export", "extern", "false", "float", "for", "friend", "goto", "if",
	"inline", "int", "long", "mutable", "namespace", "new", "noexcept",
	"nullptr", "operator", "private", "protected", "public", "register",
	"reinterpret_cast", "requires", "restrict", "return", "short", "signed",
	"sizeof", "static", "static_assert", "static_cast", "struct", "switch",
	"template", "this", "thread_local", "throw", "true", "try", "typedef",
	"typeid", "typename", "union", "unsigned", "using", "virtual", "void",
	"volatile", "wchar_t", "while",
	"_Alignas", "_Alignof", "_Atomic", "_Bool", "_Complex", "_Noreturn",
	"_Static_assert", "_Thread_local",
)

// typeKeywords are keywords that can only appear in a type.
var typeKeywords = toSet(
	"auto", "bool", "char", "char8_t", "char16_t", "char32_t", "const",
	"double", "enum", "float", "int", "long", "short", "signed", "struct",
	"class", "typename", "union", "unsigned", "void", "volatile", "wchar_t",
	"_Atomic", "_Bool", "_Complex",
)

func toSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}
