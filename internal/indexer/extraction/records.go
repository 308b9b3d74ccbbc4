package extraction

import (
	"fmt"
	"strings"
)

// Record is the flat, serialisable form of one SymbolEntry. Records of an
// inventory are ordered depth-first; Parent refers to the Index of the
// enclosing record or is -1 at top level.
type Record struct {
	Index         int      `json:"index" msgpack:"i"`
	Parent        int      `json:"parent" msgpack:"p"`
	Kind          DeclKind `json:"kind" msgpack:"k"`
	Name          string   `json:"name" msgpack:"n"`
	Scope         string   `json:"scope,omitempty" msgpack:"s,omitempty"`
	NameScope     string   `json:"name_scope,omitempty" msgpack:"ns,omitempty"`
	ContainerKind string   `json:"container_kind,omitempty" msgpack:"ck,omitempty"`
	Params        string   `json:"params,omitempty" msgpack:"pa,omitempty"`
	Arguments     []string `json:"arguments,omitempty" msgpack:"a,omitempty"`
	ReturnType    string   `json:"return_type,omitempty" msgpack:"rt,omitempty"`
	Qualifiers    []string `json:"qualifiers,omitempty" msgpack:"q,omitempty"`
	HasBody       bool     `json:"has_body,omitempty" msgpack:"b,omitempty"`
	Text          string   `json:"text,omitempty" msgpack:"t,omitempty"`
	Span          Span     `json:"span" msgpack:"sp"`
	Truncated     bool     `json:"truncated,omitempty" msgpack:"tr,omitempty"`
	LOC           int      `json:"loc" msgpack:"lc"`
	CommentLines  int      `json:"comment_lines" msgpack:"cl"`
	Doc           *Comment `json:"doc,omitempty" msgpack:"d,omitempty"`
}

// Flatten converts an inventory to records.
func Flatten(inv *Inventory) []Record {
	if inv == nil {
		return nil
	}
	records := []Record{}
	flattenEntries(inv.Entries, -1, &records)
	return records
}

func flattenEntries(entries []SymbolEntry, parent int, out *[]Record) {
	for _, e := range entries {
		rec := Record{
			Index:        len(*out),
			Parent:       parent,
			Kind:         e.Decl.Kind(),
			Name:         e.Decl.DeclName(),
			Scope:        e.Scope,
			Span:         e.Decl.DeclSpan(),
			Truncated:    e.Decl.IsTruncated(),
			LOC:          e.Metrics.LOC,
			CommentLines: e.Metrics.CommentLines,
			Doc:          e.Doc,
		}

		switch d := e.Decl.(type) {
		case *Function:
			rec.NameScope = d.Scope
			rec.Params = d.Params
			rec.Arguments = d.Arguments
			rec.ReturnType = d.ReturnType
			rec.Qualifiers = d.Qualifiers
			rec.HasBody = d.HasBody
		case *Constructor:
			rec.Params = d.Params
			rec.Arguments = d.Arguments
			rec.Qualifiers = d.Qualifiers
			rec.HasBody = d.HasBody
		case *Container:
			rec.ContainerKind = string(d.ContainerKind)
		case *Namespace:
		case *Field:
			rec.Text = d.Text
		}

		*out = append(*out, rec)
		if members := e.Members(); len(members) > 0 {
			flattenEntries(members, rec.Index, out)
		}
	}
}

// Unflatten rebuilds an inventory from records produced by Flatten.
func Unflatten(records []Record, sourceSize int) (*Inventory, error) {
	inv := &Inventory{SourceSize: sourceSize, Entries: []SymbolEntry{}}

	// Containers are rebuilt bottom-up: children are collected per parent
	// index first, then attached when the parent itself is materialised.
	children := make(map[int][]int)
	var roots []int
	for i, rec := range records {
		if rec.Index != i {
			return nil, fmt.Errorf("record %d has index %d", i, rec.Index)
		}
		if rec.Parent < 0 {
			roots = append(roots, i)
			continue
		}
		if rec.Parent >= i {
			return nil, fmt.Errorf("record %d refers to later parent %d", i, rec.Parent)
		}
		children[rec.Parent] = append(children[rec.Parent], i)
	}

	var build func(i int) (SymbolEntry, error)
	build = func(i int) (SymbolEntry, error) {
		rec := records[i]
		entry := SymbolEntry{
			Scope:   rec.Scope,
			Doc:     rec.Doc,
			Metrics: Metrics{LOC: rec.LOC, CommentLines: rec.CommentLines},
		}

		var members []SymbolEntry
		for _, c := range children[i] {
			child, err := build(c)
			if err != nil {
				return SymbolEntry{}, err
			}
			members = append(members, child)
		}

		decl, err := rec.declaration(members)
		if err != nil {
			return SymbolEntry{}, fmt.Errorf("record %d: %w", i, err)
		}
		entry.Decl = decl
		return entry, nil
	}

	for _, r := range roots {
		entry, err := build(r)
		if err != nil {
			return nil, err
		}
		inv.Entries = append(inv.Entries, entry)
	}
	return inv, nil
}

func (rec Record) declaration(members []SymbolEntry) (Declaration, error) {
	switch rec.Kind {
	case KindFunction:
		return &Function{
			Name:       rec.Name,
			Scope:      rec.NameScope,
			Params:     rec.Params,
			Arguments:  rec.Arguments,
			ReturnType: rec.ReturnType,
			Qualifiers: rec.Qualifiers,
			HasBody:    rec.HasBody,
			Span:       rec.Span,
			Truncated:  rec.Truncated,
		}, nil
	case KindConstructor:
		return &Constructor{
			Owner:      rec.Name,
			Params:     rec.Params,
			Arguments:  rec.Arguments,
			Qualifiers: rec.Qualifiers,
			HasBody:    rec.HasBody,
			Span:       rec.Span,
			Truncated:  rec.Truncated,
		}, nil
	case KindContainer:
		return &Container{
			ContainerKind: ContainerKind(rec.ContainerKind),
			Name:          rec.Name,
			Members:       members,
			Span:          rec.Span,
			Truncated:     rec.Truncated,
		}, nil
	case KindNamespace:
		return &Namespace{
			Name:      rec.Name,
			Members:   members,
			Span:      rec.Span,
			Truncated: rec.Truncated,
		}, nil
	case KindField:
		return &Field{
			Name:      rec.Name,
			Text:      rec.Text,
			Span:      rec.Span,
			Truncated: rec.Truncated,
		}, nil
	default:
		return nil, fmt.Errorf("unknown kind %q", rec.Kind)
	}
}

// Signature renders the record's declaration without its members.
// Unknown kinds render as the bare name.
func (rec Record) Signature() string {
	d, err := rec.declaration(nil)
	if err != nil {
		return rec.Name
	}
	return Signature(d)
}

// Label returns the display kind of the record: "function" or "prototype"
// for functions, the keyword for containers, and the kind otherwise.
func (rec Record) Label() string {
	d, err := rec.declaration(nil)
	if err != nil {
		return string(rec.Kind)
	}
	return Label(d)
}

// Label names a declaration for display.
func Label(d Declaration) string {
	switch d := d.(type) {
	case *Function:
		if d.HasBody {
			return "function"
		}
		return "prototype"
	case *Constructor:
		return "constructor"
	case *Container:
		return string(d.ContainerKind)
	case *Namespace:
		return "namespace"
	case *Field:
		return "field"
	default:
		return "unknown"
	}
}

// Signature renders a one-line signature for functions and constructors and
// the keyword form for containers and namespaces.
func Signature(d Declaration) string {
	switch d := d.(type) {
	case *Function:
		core := d.Name + "(" + d.Params + ")"
		if d.Scope != "" {
			core = d.Scope + "::" + core
		}
		if d.ReturnType != "" {
			core = d.ReturnType + " " + core
		}
		return withQualifiers(d.Qualifiers, core)
	case *Constructor:
		return withQualifiers(d.Qualifiers, d.Owner+"("+d.Params+")")
	case *Container:
		return strings.TrimSpace(string(d.ContainerKind) + " " + d.Name)
	case *Namespace:
		return strings.TrimSpace("namespace " + d.Name)
	case *Field:
		return d.Text
	default:
		return ""
	}
}

func withQualifiers(qualifiers []string, core string) string {
	var b strings.Builder
	for _, q := range qualifiers {
		if !isTrailingQualifier(q) {
			b.WriteString(q)
			b.WriteByte(' ')
		}
	}
	b.WriteString(core)
	for _, q := range qualifiers {
		if isTrailingQualifier(q) {
			b.WriteByte(' ')
			b.WriteString(q)
		}
	}
	return b.String()
}

func isTrailingQualifier(q string) bool {
	switch q {
	case "const", "override", "final", "noexcept":
		return true
	}
	return false
}
