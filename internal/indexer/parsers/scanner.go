package parsers

import (
	"strings"

	"github.com/mvp-joe/cdoc/internal/indexer/extraction"
)

// RawDecl is a scanned declaration before documentation is attached.
type RawDecl struct {
	Kind          extraction.DeclKind
	ContainerKind extraction.ContainerKind
	Name          string
	NameScope     string
	Params        string
	Arguments     []string
	ReturnType    string
	Qualifiers    []string
	HasBody       bool
	Text          string
	Members       []*RawDecl
	BodyStart     int // Offset just past the opening brace of a container or namespace
	Span          extraction.Span
	Truncated     bool
}

// ScanDeclarations groups code tokens into nested declarations. Comment tokens
// must already be removed. Scanning never fails: unterminated scopes are
// closed at end of input and flagged as truncated.
func ScanDeclarations(src string, code []Token) []*RawDecl {
	s := &scanner{src: src, toks: code}
	decls, _, _ := s.scope("", false)
	return decls
}

var (
	leadingQualifiers  = toSet("static", "inline", "virtual", "extern", "explicit", "constexpr", "friend")
	trailingQualifiers = toSet("const", "override", "final", "noexcept")
	containerKeywords  = toSet("struct", "class", "union", "enum")
	accessLabels       = toSet("public", "private", "protected")
	typeModifiers      = toSet("const", "volatile", "restrict", "register", "struct", "union", "enum", "class", "typename")

	// attributeCalls look like calls but never name a function.
	attributeCalls = toSet("__attribute__", "__declspec", "__asm__", "__asm", "_Pragma", "__pragma")
)

type scanner struct {
	src  string
	toks []Token
	pos  int
}

func (s *scanner) atEnd() bool {
	return s.pos >= len(s.toks)
}

func (s *scanner) last() Token {
	return s.toks[len(s.toks)-1]
}

// scope scans declarations up to the closing brace of a nested scope, or to
// end of input at top level. closed is false when input ran out first.
func (s *scanner) scope(owner string, nested bool) (decls []*RawDecl, closing Token, closed bool) {
	for !s.atEnd() {
		tok := s.toks[s.pos]
		if tok.Kind == TokenRBrace {
			s.pos++
			if nested {
				return decls, tok, true
			}
			continue
		}
		decls = append(decls, s.declaration(owner)...)
	}
	return decls, Token{}, false
}

// declaration collects one header run and dispatches on its terminator.
// A linkage block can yield several declarations.
func (s *scanner) declaration(owner string) []*RawDecl {
	var header []Token
	parens, inner := 0, 0
	for !s.atEnd() {
		t := s.toks[s.pos]
		switch t.Kind {
		case TokenPreprocessor:
			s.pos++
			continue
		case TokenLParen:
			parens++
		case TokenRParen:
			if parens > 0 {
				parens--
			}
		case TokenLBrace:
			if parens == 0 && inner == 0 && !memberInitBrace(header) {
				return s.block(owner, header)
			}
			inner++
		case TokenRBrace:
			if inner == 0 {
				return s.dangling(header)
			}
			inner--
		case TokenPunct:
			if t.Text == ";" && parens == 0 {
				s.pos++
				return s.statement(owner, header, t)
			}
			if t.Text == ":" && len(header) == 1 && accessLabels[header[0].Text] {
				header = header[:0]
				s.pos++
				continue
			}
		}
		header = append(header, t)
		s.pos++
	}
	return s.dangling(header)
}

// memberInitBrace reports whether a brace opening after header belongs to a
// constructor's member initialiser list, as in "A() : v{1}", rather than
// starting the body.
func memberInitBrace(header []Token) bool {
	n := len(header)
	if n == 0 || (header[n-1].Kind != TokenIdent && !header[n-1].Is(">")) {
		return false
	}
	body := stripTemplate(header)
	call := findCallable(body)
	if call.paren < 0 || call.close <= call.paren {
		return false
	}
	for i := call.close + 1; i < len(body); i++ {
		switch {
		case body[i].Is(":"):
			return true
		case body[i].Kind == TokenLParen:
			i = matchParen(body, i)
		}
	}
	return false
}

// dangling turns a header that never reached a terminator into a truncated
// Field.
func (s *scanner) dangling(header []Token) []*RawDecl {
	if len(header) == 0 {
		return nil
	}
	d := s.field(header, header[len(header)-1])
	d.Truncated = true
	return []*RawDecl{d}
}

func (s *scanner) statement(owner string, header []Token, semi Token) []*RawDecl {
	if len(header) == 0 {
		return nil
	}
	body := stripTemplate(header)
	call := findCallable(body)
	eq := firstAssign(body, call)
	if call.paren >= 0 && (eq < 0 || eq > call.paren) && (paramShaped(body, call) || typeOnlyParams(body, call)) {
		d := s.function(owner, body, call)
		d.Span = spanOf(header[0], semi)
		return []*RawDecl{d}
	}
	return []*RawDecl{s.field(header, semi)}
}

// block dispatches a header terminated by an opening brace. s.pos points at
// the brace.
func (s *scanner) block(owner string, header []Token) []*RawDecl {
	open := s.toks[s.pos]
	s.pos++

	if len(header) == 0 {
		closing, ok := s.skipBody()
		return []*RawDecl{{
			Kind:      extraction.KindField,
			Text:      "{...}",
			Span:      spanOf(open, closing),
			Truncated: !ok,
		}}
	}

	if header[0].Is("namespace") || (len(header) > 1 && header[0].Is("inline") && header[1].Is("namespace")) {
		return []*RawDecl{s.namespace(header, open)}
	}

	if len(header) == 2 && header[0].Is("extern") && header[1].Kind == TokenLiteral {
		members, _, _ := s.scope(owner, true)
		return members
	}

	body := stripTemplate(header)
	call := findCallable(body)

	if eq := firstAssign(body, call); eq >= 0 && (call.paren < 0 || eq < call.paren) {
		return []*RawDecl{s.opaque(header)}
	}

	if call.paren >= 0 && (paramShaped(body, call) || typeOnlyParams(body, call)) {
		d := s.function(owner, body, call)
		d.HasBody = true
		closing, ok := s.skipBody()
		d.Span = spanOf(header[0], closing)
		d.Truncated = !ok
		return []*RawDecl{d}
	}

	if ck := containerKeyword(body); ck >= 0 {
		return []*RawDecl{s.container(header, body, ck, open)}
	}

	return []*RawDecl{s.opaque(header)}
}

func (s *scanner) namespace(header []Token, open Token) *RawDecl {
	var name strings.Builder
	for _, t := range header {
		if t.Kind == TokenIdent || t.Is("::") {
			name.WriteString(t.Text)
		}
	}

	d := &RawDecl{
		Kind:      extraction.KindNamespace,
		Name:      name.String(),
		BodyStart: open.End(),
	}
	members, closing, closed := s.scope("", true)
	d.Members = members
	if !closed {
		closing = s.last()
		d.Truncated = true
	}
	d.Span = spanOf(header[0], closing)
	return d
}

func (s *scanner) container(header, body []Token, ck int, open Token) *RawDecl {
	d := &RawDecl{
		Kind:          extraction.KindContainer,
		ContainerKind: extraction.ContainerKind(body[ck].Text),
		Name:          containerName(body, ck),
		BodyStart:     open.End(),
	}

	var closing Token
	var closed bool
	if d.ContainerKind == extraction.ContainerEnum {
		closing, closed = s.skipBody()
	} else {
		owner := d.Name
		if i := strings.LastIndex(owner, "::"); i >= 0 {
			owner = owner[i+2:]
		}
		d.Members, closing, closed = s.scope(owner, true)
		if !closed {
			closing = s.last()
		}
	}

	end := closing
	if !closed {
		d.Truncated = true
	} else if semi, declarators, ok := s.trailer(); ok {
		end = semi
		if d.Name == "" {
			d.Name = declaratorName(declarators)
		}
	}
	d.Span = spanOf(header[0], end)
	return d
}

// opaque builds a Field for a header whose block is skipped without
// elaboration. A directly following semicolon belongs to the Field.
func (s *scanner) opaque(header []Token) *RawDecl {
	closing, ok := s.skipBody()
	end := closing
	if ok && !s.atEnd() && s.toks[s.pos].Is(";") {
		end = s.toks[s.pos]
		s.pos++
	}
	d := s.field(header, end)
	d.Truncated = !ok
	return d
}

func (s *scanner) field(header []Token, end Token) *RawDecl {
	return &RawDecl{
		Kind: extraction.KindField,
		Name: declaratorName(stripTemplate(header)),
		Text: joinTokens(header),
		Span: spanOf(header[0], end),
	}
}

// function builds a Function or Constructor from a header with a callable
// paren group. Span and body are filled in by the caller.
func (s *scanner) function(owner string, body []Token, call callable) *RawDecl {
	d := &RawDecl{
		Kind:      extraction.KindFunction,
		Name:      call.name,
		NameScope: call.scope,
		Params:    joinTokens(body[call.paren+1 : call.close]),
		Arguments: argumentNames(body[call.paren+1 : call.close]),
	}

	var rest []Token
	for i, t := range body[:call.nameStart] {
		if t.Kind == TokenKeyword && leadingQualifiers[t.Text] {
			d.Qualifiers = appendUnique(d.Qualifiers, t.Text)
			continue
		}
		if t.Kind == TokenLiteral && i > 0 && body[i-1].Is("extern") {
			continue
		}
		rest = append(rest, t)
	}
	d.ReturnType = joinTokens(rest)

	for i := call.close + 1; i < len(body); i++ {
		t := body[i]
		if t.Is(":") || t.Is("->") || t.Is("=") {
			break
		}
		if trailingQualifiers[t.Text] {
			d.Qualifiers = appendUnique(d.Qualifiers, t.Text)
		}
		if t.Kind == TokenLParen {
			i = matchParen(body, i)
		}
	}

	if d.ReturnType == "" && isConstructorName(owner, call) {
		d.Kind = extraction.KindConstructor
		d.NameScope = ""
	}
	return d
}

func isConstructorName(owner string, call callable) bool {
	if call.scope == "" {
		return owner != "" && call.name == owner
	}
	last := call.scope
	if i := strings.LastIndex(last, "::"); i >= 0 {
		last = last[i+2:]
	}
	return call.name == last
}

// skipBody consumes tokens up to the brace matching one already consumed.
// When input ends first it returns the last token and false.
func (s *scanner) skipBody() (Token, bool) {
	depth := 1
	for !s.atEnd() {
		t := s.toks[s.pos]
		s.pos++
		switch t.Kind {
		case TokenLBrace:
			depth++
		case TokenRBrace:
			depth--
			if depth == 0 {
				return t, true
			}
		}
	}
	return s.last(), false
}

// trailer consumes the declarators after a container body up to the
// semicolon. Nothing is consumed unless a semicolon is found before the next
// brace or directive.
func (s *scanner) trailer() (Token, []Token, bool) {
	start := s.pos
	depth := 0
	for i := start; i < len(s.toks); i++ {
		t := s.toks[i]
		switch t.Kind {
		case TokenLParen:
			depth++
		case TokenRParen:
			depth--
		case TokenLBrace, TokenRBrace, TokenPreprocessor:
			return Token{}, nil, false
		case TokenPunct:
			if t.Text == ";" && depth <= 0 {
				s.pos = i + 1
				return t, s.toks[start:i], true
			}
		}
	}
	return Token{}, nil, false
}

// callable locates the parameter list of a function-like header.
type callable struct {
	paren     int // Index of the opening paren, -1 when absent
	close     int // Index of the matching paren
	nameStart int // Index of the first token of the qualified name
	name      string
	scope     string
}

// findCallable finds the first top-level paren group preceded by an
// identifier, a destructor name or an operator name. Attribute-like calls
// and template argument lists are skipped.
func findCallable(h []Token) callable {
	depth, angle := 0, 0
	for i, t := range h {
		switch {
		case t.Kind == TokenLParen:
			if depth == 0 && angle == 0 && i > 0 && h[i-1].Kind == TokenIdent && !attributeCalls[h[i-1].Text] {
				return namedCall(h, i)
			}
			depth++
		case t.Kind == TokenRParen:
			if depth > 0 {
				depth--
			}
		case depth > 0:
		case t.Is("operator"):
			return operatorCall(h, i)
		case t.Is("<") && i > 0 && h[i-1].Kind == TokenIdent:
			angle++
		case t.Is(">") && angle > 0:
			angle--
		}
	}
	return callable{paren: -1}
}

func namedCall(h []Token, paren int) callable {
	n := paren - 1
	name := h[n].Text
	if n > 0 && h[n-1].Is("~") {
		name = "~" + name
		n--
	}
	scope, start := qualifierBefore(h, n)
	return callable{paren: paren, close: matchParen(h, paren), nameStart: start, name: name, scope: scope}
}

func operatorCall(h []Token, k int) callable {
	j := k + 1
	if j+1 < len(h) && h[j].Kind == TokenLParen && h[j+1].Kind == TokenRParen {
		j += 2
	}
	for j < len(h) && h[j].Kind != TokenLParen {
		j++
	}
	if j >= len(h) {
		return callable{paren: -1}
	}

	var name strings.Builder
	name.WriteString("operator")
	for _, t := range h[k+1 : j] {
		if t.Kind == TokenIdent || t.Kind == TokenKeyword {
			name.WriteByte(' ')
		}
		name.WriteString(t.Text)
	}
	scope, start := qualifierBefore(h, k)
	return callable{paren: j, close: matchParen(h, j), nameStart: start, name: name.String(), scope: scope}
}

// qualifierBefore collects an A::B:: prefix ending just before index n.
func qualifierBefore(h []Token, n int) (string, int) {
	var parts []string
	for n >= 2 && h[n-1].Is("::") && h[n-2].Kind == TokenIdent {
		parts = append([]string{h[n-2].Text}, parts...)
		n -= 2
	}
	if n >= 1 && h[n-1].Is("::") {
		n--
	}
	return strings.Join(parts, "::"), n
}

// matchParen returns the index of the paren closing the one at open, or the
// last index when it is never closed.
func matchParen(h []Token, open int) int {
	depth := 0
	for i := open; i < len(h); i++ {
		switch h[i].Kind {
		case TokenLParen:
			depth++
		case TokenRParen:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return len(h) - 1
}

// paramShaped reports whether the paren group reads as a parameter list
// rather than a call with arguments.
func paramShaped(h []Token, call callable) bool {
	if call.close <= call.paren {
		return false
	}
	inner := h[call.paren+1 : call.close]
	if len(inner) == 0 {
		return true
	}
	for _, entry := range splitTopLevel(inner, ",") {
		if eq := indexTopLevel(entry, "="); eq >= 0 {
			entry = entry[:eq]
		}
		if !paramEntryShaped(entry) {
			return false
		}
	}
	return true
}

// typeOnlyParams accepts parameter lists holding bare identifiers, as in
// "void f(Widget);", when the return type has a type keyword. Under a void
// return any identifier is a type; otherwise it must look like one
// (capitalised or ending in _t) so "int x(y);" stays a variable.
func typeOnlyParams(h []Token, call callable) bool {
	if call.close <= call.paren+1 {
		return false
	}
	void, keyword := false, false
	for _, t := range h[:call.nameStart] {
		if t.Kind == TokenKeyword && typeKeywords[t.Text] {
			keyword = true
			void = void || t.Text == "void"
		}
	}
	if !keyword {
		return false
	}

	for _, entry := range splitTopLevel(h[call.paren+1:call.close], ",") {
		if eq := indexTopLevel(entry, "="); eq >= 0 {
			entry = entry[:eq]
		}
		if paramEntryShaped(entry) {
			continue
		}
		if len(entry) != 1 || entry[0].Kind != TokenIdent {
			return false
		}
		if !void && !typeLikeName(entry[0].Text) {
			return false
		}
	}
	return true
}

func typeLikeName(name string) bool {
	return strings.HasSuffix(name, "_t") || (name[0] >= 'A' && name[0] <= 'Z')
}

func paramEntryShaped(entry []Token) bool {
	if len(entry) == 1 && entry[0].Is("...") {
		return true
	}
	names, typed, pointer := 0, false, false
	for _, t := range entry {
		switch t.Kind {
		case TokenLiteral, TokenUnterminated:
			return false
		case TokenIdent:
			names++
		case TokenKeyword:
			names++
			if typeKeywords[t.Text] {
				typed = true
			}
		case TokenPunct:
			if t.Text == "*" || t.Text == "&" {
				pointer = true
			}
		}
	}
	return names >= 2 || typed || (pointer && names >= 1)
}

// argumentNames lists the declared parameter names. Entries without a name,
// such as "void", "int" or "const Widget&", are skipped; a variadic tail is
// recorded as "...".
func argumentNames(params []Token) []string {
	if len(params) == 0 {
		return nil
	}
	var names []string
	for _, entry := range splitTopLevel(params, ",") {
		if eq := indexTopLevel(entry, "="); eq >= 0 {
			entry = entry[:eq]
		}
		if len(entry) == 1 && entry[0].Is("...") {
			names = append(names, "...")
			continue
		}
		if name := parameterName(entry); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// parameterName returns the declarator name of one parameter entry, or ""
// when the entry only names a type.
func parameterName(entry []Token) string {
	name := declaratorName(entry)
	if name == "" {
		return ""
	}
	for i, t := range entry {
		if t.Kind == TokenIdent && t.Text == name {
			return typedBefore(entry[:i], name)
		}
	}
	return ""
}

// typedBefore returns name when h holds a type for it: an identifier or
// keyword that is neither a cv or tag keyword nor a namespace qualifier.
func typedBefore(h []Token, name string) string {
	for j, t := range h {
		if t.Kind != TokenIdent && t.Kind != TokenKeyword {
			continue
		}
		if typeModifiers[t.Text] || (j+1 < len(h) && h[j+1].Is("::")) {
			continue
		}
		return name
	}
	return ""
}

// firstAssign returns the index of the first top-level '=' outside an
// operator name, or -1.
func firstAssign(h []Token, call callable) int {
	depth := 0
	for i, t := range h {
		switch {
		case t.Kind == TokenLParen:
			depth++
		case t.Kind == TokenRParen:
			depth--
		case depth == 0 && t.Is("="):
			if call.paren >= 0 && i >= call.nameStart && i < call.paren {
				continue
			}
			return i
		}
	}
	return -1
}

func containerKeyword(h []Token) int {
	depth := 0
	for i, t := range h {
		switch {
		case t.Kind == TokenLParen:
			depth++
		case t.Kind == TokenRParen:
			depth--
		case depth == 0 && t.Kind == TokenKeyword && containerKeywords[t.Text]:
			return i
		}
	}
	return -1
}

// containerName reads the name after a container keyword, skipping
// attributes and export macros. It returns "" for anonymous containers.
func containerName(h []Token, ck int) string {
	j := ck + 1
	for j < len(h) {
		t := h[j]
		switch {
		case t.Is("class") || t.Is("struct"):
			j++
		case (attributeCalls[t.Text] || t.Is("alignas")) && j+1 < len(h) && h[j+1].Kind == TokenLParen:
			j = matchParen(h, j+1) + 1
		case t.Is("["):
			for j < len(h) && !h[j].Is("]") {
				j++
			}
			for j < len(h) && h[j].Is("]") {
				j++
			}
		case t.Kind == TokenIdent:
			if j+1 < len(h) && h[j+1].Kind == TokenIdent && h[j+1].Text != "final" {
				j++
				continue
			}
			name := t.Text
			j++
			for j+1 < len(h) && h[j].Is("::") && h[j+1].Kind == TokenIdent {
				name += "::" + h[j+1].Text
				j += 2
			}
			return name
		default:
			return ""
		}
	}
	return ""
}

// declaratorName returns the first declarator's name, best effort: the last
// identifier before a separator, outside template arguments.
func declaratorName(h []Token) string {
	depth, angle := 0, 0
	name := ""
	for i, t := range h {
		switch {
		case t.Kind == TokenLParen:
			if depth == 0 && name != "" {
				return name
			}
			depth++
		case t.Kind == TokenRParen:
			depth--
		case t.Is("<") && i > 0 && h[i-1].Kind == TokenIdent:
			angle++
		case t.Is(">") && angle > 0:
			angle--
		case angle > 0:
		case depth == 0 && (t.Is(",") || t.Is("=") || t.Is("[") || t.Is(":")):
			if name != "" {
				return name
			}
		case t.Kind == TokenIdent && !attributeCalls[t.Text]:
			name = t.Text
		}
	}
	return name
}

// stripTemplate drops leading template<...> clauses.
func stripTemplate(h []Token) []Token {
	for len(h) > 1 && h[0].Is("template") && h[1].Is("<") {
		angle, i := 0, 1
		for ; i < len(h); i++ {
			if h[i].Is("<") {
				angle++
			} else if h[i].Is(">") {
				angle--
				if angle == 0 {
					break
				}
			}
		}
		if i+1 >= len(h) {
			return h
		}
		h = h[i+1:]
	}
	return h
}

func splitTopLevel(h []Token, sep string) [][]Token {
	var parts [][]Token
	depth, angle, start := 0, 0, 0
	for i, t := range h {
		switch {
		case t.Kind == TokenLParen || t.Kind == TokenLBrace:
			depth++
		case t.Kind == TokenRParen || t.Kind == TokenRBrace:
			depth--
		case t.Is("<") && i > 0 && h[i-1].Kind == TokenIdent:
			angle++
		case t.Is(">") && angle > 0:
			angle--
		case depth == 0 && angle == 0 && t.Is(sep):
			parts = append(parts, h[start:i])
			start = i + 1
		}
	}
	return append(parts, h[start:])
}

func indexTopLevel(h []Token, text string) int {
	depth := 0
	for i, t := range h {
		switch {
		case t.Kind == TokenLParen || t.Kind == TokenLBrace:
			depth++
		case t.Kind == TokenRParen || t.Kind == TokenRBrace:
			depth--
		case depth == 0 && t.Is(text):
			return i
		}
	}
	return -1
}

// joinTokens renders tokens on one line, keeping a single space wherever the
// source had a gap.
func joinTokens(toks []Token) string {
	var b strings.Builder
	for i, t := range toks {
		if i > 0 && t.Offset > toks[i-1].End() {
			b.WriteByte(' ')
		}
		b.WriteString(t.Text)
	}
	return b.String()
}

func spanOf(first, last Token) extraction.Span {
	return extraction.Span{
		StartLine:   first.Line,
		EndLine:     last.EndLine,
		StartOffset: first.Offset,
		EndOffset:   last.End(),
	}
}

func appendUnique(list []string, s string) []string {
	for _, have := range list {
		if have == s {
			return list
		}
	}
	return append(list, s)
}
