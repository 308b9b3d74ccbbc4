package parsers

import (
	"sort"
	"strings"

	"github.com/mvp-joe/cdoc/internal/indexer/extraction"
)

// BuildInventory attaches documentation to scanned declarations and converts
// them to the inventory model. comments must be in source order.
func BuildInventory(src string, decls []*RawDecl, comments []extraction.Comment, opts Options) *extraction.Inventory {
	b := &builder{src: src, comments: comments, opts: opts}
	return &extraction.Inventory{
		Entries:    b.entries(decls, 0, ""),
		SourceSize: len(src),
	}
}

type builder struct {
	src      string
	comments []extraction.Comment
	opts     Options

	inComment []bool // Per byte of src, built on first use
}

// entries converts one scope. lower is the offset no attached comment may
// start before: the end of the previous sibling or the scope's opening brace.
func (b *builder) entries(decls []*RawDecl, lower int, scope string) []extraction.SymbolEntry {
	out := make([]extraction.SymbolEntry, 0, len(decls))
	for _, d := range decls {
		doc := b.docFor(lower, d.Span.StartOffset)
		if doc == nil {
			doc = b.trailingDocFor(d.Span)
		}
		out = append(out, extraction.SymbolEntry{
			Decl:    b.declaration(d, scope),
			Doc:     doc,
			Scope:   scope,
			Metrics: b.metrics(d.Span),
		})
		lower = d.Span.EndOffset
	}
	return out
}

func (b *builder) declaration(d *RawDecl, scope string) extraction.Declaration {
	switch d.Kind {
	case extraction.KindFunction:
		return &extraction.Function{
			Name:       d.Name,
			Scope:      d.NameScope,
			Params:     d.Params,
			Arguments:  d.Arguments,
			ReturnType: d.ReturnType,
			Qualifiers: d.Qualifiers,
			HasBody:    d.HasBody,
			Span:       d.Span,
			Truncated:  d.Truncated,
		}
	case extraction.KindConstructor:
		return &extraction.Constructor{
			Owner:      d.Name,
			Params:     d.Params,
			Arguments:  d.Arguments,
			Qualifiers: d.Qualifiers,
			HasBody:    d.HasBody,
			Span:       d.Span,
			Truncated:  d.Truncated,
		}
	case extraction.KindContainer:
		return &extraction.Container{
			ContainerKind: d.ContainerKind,
			Name:          d.Name,
			Members:       b.entries(d.Members, d.BodyStart, childScope(scope, d.Name)),
			Span:          d.Span,
			Truncated:     d.Truncated,
		}
	case extraction.KindNamespace:
		return &extraction.Namespace{
			Name:      d.Name,
			Members:   b.entries(d.Members, d.BodyStart, childScope(scope, d.Name)),
			Span:      d.Span,
			Truncated: d.Truncated,
		}
	default:
		return &extraction.Field{
			Name:      d.Name,
			Text:      d.Text,
			Span:      d.Span,
			Truncated: d.Truncated,
		}
	}
}

// docFor returns the comment documenting a declaration starting at start.
// Only the nearest comment at or after lower is considered; it attaches when
// it is a doc comment separated from the declaration by whitespace holding
// at least one newline and at most MaxBlankLines blank lines.
func (b *builder) docFor(lower, start int) *extraction.Comment {
	i := sort.Search(len(b.comments), func(i int) bool {
		return b.comments[i].EndOffset > start
	}) - 1
	if i < 0 {
		return nil
	}

	c := b.comments[i]
	if c.StartOffset < lower || !c.Kind.IsDoc() || c.Trailing {
		return nil
	}
	gap := b.src[c.EndOffset:start]
	if strings.TrimSpace(gap) != "" {
		return nil
	}
	if n := strings.Count(gap, "\n"); n < 1 || n > b.opts.MaxBlankLines+1 {
		return nil
	}
	return &c
}

// trailingDocFor returns a ///< or /**< comment that opens on the last line
// of span with only blanks between them.
func (b *builder) trailingDocFor(span extraction.Span) *extraction.Comment {
	i := sort.Search(len(b.comments), func(i int) bool {
		return b.comments[i].StartOffset >= span.EndOffset
	})
	if i == len(b.comments) {
		return nil
	}

	c := b.comments[i]
	if !c.Trailing || c.StartLine != span.EndLine {
		return nil
	}
	if strings.TrimSpace(b.src[span.EndOffset:c.StartOffset]) != "" {
		return nil
	}
	return &c
}

// metrics counts code and comment lines within span. A line is a comment
// line when every non-blank byte on it lies inside a comment.
func (b *builder) metrics(span extraction.Span) extraction.Metrics {
	if b.inComment == nil {
		b.inComment = make([]bool, len(b.src))
		for _, c := range b.comments {
			for i := c.StartOffset; i < c.EndOffset && i < len(b.src); i++ {
				b.inComment[i] = true
			}
		}
	}

	var m extraction.Metrics
	start, end := max(span.StartOffset, 0), min(span.EndOffset, len(b.src))
	for start < end {
		lineEnd := strings.IndexByte(b.src[start:end], '\n')
		if lineEnd < 0 {
			lineEnd = end
		} else {
			lineEnd += start
		}

		blank, code := true, false
		for i := start; i < lineEnd; i++ {
			switch b.src[i] {
			case ' ', '\t', '\r', '\f', '\v':
				continue
			}
			blank = false
			if !b.inComment[i] {
				code = true
				break
			}
		}
		switch {
		case code:
			m.LOC++
		case !blank:
			m.CommentLines++
		}
		start = lineEnd + 1
	}
	return m
}

func childScope(scope, name string) string {
	switch {
	case name == "":
		return scope
	case scope == "":
		return name
	default:
		return scope + "::" + name
	}
}
