package extraction

// Span locates a declaration in its translation unit.
// Lines are 1-indexed; offsets are byte offsets with End exclusive.
type Span struct {
	StartLine   int
	EndLine     int
	StartOffset int
	EndOffset   int
}

// Contains reports whether other lies entirely within s.
func (s Span) Contains(other Span) bool {
	return other.StartOffset >= s.StartOffset && other.EndOffset <= s.EndOffset
}

// Overlaps reports whether s and other share at least one byte.
func (s Span) Overlaps(other Span) bool {
	return s.StartOffset < other.EndOffset && other.StartOffset < s.EndOffset
}

// CommentKind classifies a comment by its opening marker.
type CommentKind string

const (
	CommentBlockDoc CommentKind = "block-doc" // /** ... */ or /*! ... */
	CommentLineDoc  CommentKind = "line-doc"  // /// or //! runs
	CommentPlain    CommentKind = "plain"
)

// IsDoc reports whether the kind marks documentation.
func (k CommentKind) IsDoc() bool {
	return k == CommentBlockDoc || k == CommentLineDoc
}

// Comment is a comment with its markers stripped.
type Comment struct {
	Kind        CommentKind
	Text        string   // Non-empty lines joined by a single space
	Lines       []string // Non-empty lines, markers stripped
	StartLine   int
	EndLine     int
	StartOffset int
	EndOffset   int
	Truncated   bool // Block comment still open at end of input
	Trailing    bool // ///< or /**< member doc that follows its declaration
}

// DeclKind names a Declaration variant.
type DeclKind string

const (
	KindFunction    DeclKind = "function"
	KindConstructor DeclKind = "constructor"
	KindContainer   DeclKind = "container"
	KindNamespace   DeclKind = "namespace"
	KindField       DeclKind = "field"
)

// Declaration is the closed set of declaration variants:
// *Function, *Constructor, *Container, *Namespace and *Field.
type Declaration interface {
	Kind() DeclKind
	DeclName() string
	DeclSpan() Span
	IsTruncated() bool

	declaration()
}

// Function is a free function, method, or prototype.
type Function struct {
	Name       string
	Scope      string   // Qualifier written in the name itself, e.g. "Calculator" for Calculator::add
	Params     string   // Raw text between the parentheses
	Arguments  []string // Parameter names in order; unnamed parameters are skipped
	ReturnType string   // Raw text before the name with leading qualifiers removed
	Qualifiers []string // static, inline, virtual, ..., const, override
	HasBody    bool
	Span       Span
	Truncated  bool
}

// Constructor is a function named after its owning type with no return type.
type Constructor struct {
	Owner      string
	Params     string
	Arguments  []string
	Qualifiers []string
	HasBody    bool
	Span       Span
	Truncated  bool
}

// ContainerKind distinguishes the aggregate keywords.
type ContainerKind string

const (
	ContainerStruct ContainerKind = "struct"
	ContainerClass  ContainerKind = "class"
	ContainerUnion  ContainerKind = "union"
	ContainerEnum   ContainerKind = "enum"
)

// Container is a struct, class, union or enum. Visibility sections are not
// modelled: members appear flattened in source order. Enum bodies are not
// elaborated.
type Container struct {
	ContainerKind ContainerKind
	Name          string
	Members       []SymbolEntry
	Span          Span
	Truncated     bool
}

// Namespace is a C++ namespace block. Name is empty for anonymous namespaces.
type Namespace struct {
	Name      string
	Members   []SymbolEntry
	Span      Span
	Truncated bool
}

// Field is any declaration the scanner could not elaborate: data members,
// globals, typedefs, using-directives and the like.
type Field struct {
	Name      string
	Text      string
	Span      Span
	Truncated bool
}

func (*Function) Kind() DeclKind    { return KindFunction }
func (*Constructor) Kind() DeclKind { return KindConstructor }
func (*Container) Kind() DeclKind   { return KindContainer }
func (*Namespace) Kind() DeclKind   { return KindNamespace }
func (*Field) Kind() DeclKind       { return KindField }

func (d *Function) DeclName() string    { return d.Name }
func (d *Constructor) DeclName() string { return d.Owner }
func (d *Container) DeclName() string   { return d.Name }
func (d *Namespace) DeclName() string   { return d.Name }
func (d *Field) DeclName() string       { return d.Name }

func (d *Function) DeclSpan() Span    { return d.Span }
func (d *Constructor) DeclSpan() Span { return d.Span }
func (d *Container) DeclSpan() Span   { return d.Span }
func (d *Namespace) DeclSpan() Span   { return d.Span }
func (d *Field) DeclSpan() Span       { return d.Span }

func (d *Function) IsTruncated() bool    { return d.Truncated }
func (d *Constructor) IsTruncated() bool { return d.Truncated }
func (d *Container) IsTruncated() bool   { return d.Truncated }
func (d *Namespace) IsTruncated() bool   { return d.Truncated }
func (d *Field) IsTruncated() bool       { return d.Truncated }

func (*Function) declaration()    {}
func (*Constructor) declaration() {}
func (*Container) declaration()   {}
func (*Namespace) declaration()   {}
func (*Field) declaration()       {}

// HasQualifier reports whether q was recorded on the function.
func (d *Function) HasQualifier(q string) bool {
	for _, have := range d.Qualifiers {
		if have == q {
			return true
		}
	}
	return false
}

// Metrics are line counts over a declaration's span. Blank lines count as
// neither code nor comment.
type Metrics struct {
	LOC          int // Lines holding code
	CommentLines int // Lines holding only comments
}

// SymbolEntry pairs a declaration with at most one documentation comment.
type SymbolEntry struct {
	Decl    Declaration
	Doc     *Comment
	Scope   string // Enclosing container path for display, e.g. "Helper" or "outer::Inner"
	Metrics Metrics
}

// DocText returns the attached documentation or "".
func (e SymbolEntry) DocText() string {
	if e.Doc == nil {
		return ""
	}
	return e.Doc.Text
}

// Members returns the nested entries of a container or namespace entry.
func (e SymbolEntry) Members() []SymbolEntry {
	switch d := e.Decl.(type) {
	case *Container:
		return d.Members
	case *Namespace:
		return d.Members
	default:
		return nil
	}
}

// Inventory is the extraction result for one translation unit.
type Inventory struct {
	Entries    []SymbolEntry
	SourceSize int
}

// Walk visits every entry depth-first in source order. Returning false from
// visit skips the entry's members.
func (inv *Inventory) Walk(visit func(entry SymbolEntry, depth int) bool) {
	if inv == nil {
		return
	}
	walkEntries(inv.Entries, 0, visit)
}

func walkEntries(entries []SymbolEntry, depth int, visit func(SymbolEntry, int) bool) {
	for _, e := range entries {
		if !visit(e, depth) {
			continue
		}
		walkEntries(e.Members(), depth+1, visit)
	}
}

// Count returns the total number of entries at every depth.
func (inv *Inventory) Count() int {
	n := 0
	inv.Walk(func(SymbolEntry, int) bool {
		n++
		return true
	})
	return n
}

// TruncatedCount returns how many entries carry the truncated flag.
func (inv *Inventory) TruncatedCount() int {
	n := 0
	inv.Walk(func(e SymbolEntry, _ int) bool {
		if e.Decl.IsTruncated() {
			n++
		}
		return true
	})
	return n
}
