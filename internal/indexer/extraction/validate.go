package extraction

import (
	"errors"
	"fmt"
)

var (
	// ErrSpanOutsideParent indicates a member span that escapes its container.
	ErrSpanOutsideParent = errors.New("span outside parent")

	// ErrSpanOverlap indicates two sibling spans sharing bytes.
	ErrSpanOverlap = errors.New("sibling spans overlap")

	// ErrSpanInverted indicates a span whose end precedes its start.
	ErrSpanInverted = errors.New("inverted span")

	// ErrSpanOutOfRange indicates a span beyond the source text.
	ErrSpanOutOfRange = errors.New("span out of range")
)

// Validate checks the span invariants of an inventory: every span is
// well-formed, children lie inside their parent and siblings never overlap.
// All violations are reported together.
func Validate(inv *Inventory) error {
	if inv == nil {
		return nil
	}
	var errs []error
	validateEntries(inv.Entries, nil, "", inv.SourceSize, &errs)
	return errors.Join(errs...)
}

func validateEntries(entries []SymbolEntry, parent *Span, path string, size int, errs *[]error) {
	var prev *Span
	prevName := ""
	for _, e := range entries {
		span := e.Decl.DeclSpan()
		name := qualify(path, e.Decl.DeclName())

		if span.EndOffset < span.StartOffset || span.EndLine < span.StartLine {
			*errs = append(*errs, fmt.Errorf("%w: %s %q", ErrSpanInverted, e.Decl.Kind(), name))
		}
		if span.StartOffset < 0 || (size > 0 && span.EndOffset > size) {
			*errs = append(*errs, fmt.Errorf("%w: %s %q [%d,%d) of %d", ErrSpanOutOfRange, e.Decl.Kind(), name, span.StartOffset, span.EndOffset, size))
		}
		if parent != nil && !strictlyInside(*parent, span) {
			*errs = append(*errs, fmt.Errorf("%w: %s %q", ErrSpanOutsideParent, e.Decl.Kind(), name))
		}
		if prev != nil && prev.Overlaps(span) {
			*errs = append(*errs, fmt.Errorf("%w: %q and %q", ErrSpanOverlap, prevName, name))
		}

		if members := e.Members(); len(members) > 0 {
			s := span
			validateEntries(members, &s, name, size, errs)
		}

		s := span
		prev = &s
		prevName = name
	}
}

// strictlyInside requires the child to be contained and not identical to the
// parent; a member can never cover its container's braces.
func strictlyInside(parent, child Span) bool {
	if !parent.Contains(child) {
		return false
	}
	return child.StartOffset > parent.StartOffset || child.EndOffset < parent.EndOffset
}

func qualify(path, name string) string {
	if path == "" {
		return name
	}
	return path + "::" + name
}
