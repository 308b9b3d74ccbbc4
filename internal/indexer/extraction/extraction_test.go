package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Inventory Model:
// - Validate accepts nested, ordered spans
// - Validate reports overlap, escape from parent, inversion and range errors
// - Flatten orders records depth-first with parent indices
// - Unflatten rebuilds an equivalent inventory and rejects bad parents
// - Arguments and line counts survive Flatten and Unflatten
// - Record.Signature renders a single record without members
// - Label names every variant for display
// - Signature renders every declaration variant
// - Walk visits depth-first and can skip members
// - Count and TruncatedCount include nested entries

func span(start, end int) Span {
	return Span{StartLine: 1, EndLine: 1, StartOffset: start, EndOffset: end}
}

// sampleInventory models:
//
//	/** A class */ class Calc { int r; Calc(); static int mul(int a, int b); };
//	namespace H { int f(); }
func sampleInventory() *Inventory {
	return &Inventory{
		SourceSize: 100,
		Entries: []SymbolEntry{
			{
				Doc: &Comment{Kind: CommentBlockDoc, Text: "A class", Lines: []string{"A class"}},
				Decl: &Container{
					ContainerKind: ContainerClass,
					Name:          "Calc",
					Span:          span(10, 60),
					Members: []SymbolEntry{
						{Scope: "Calc", Decl: &Field{Name: "r", Text: "int r", Span: span(22, 28)}},
						{Scope: "Calc", Decl: &Constructor{Owner: "Calc", Span: span(29, 36)}},
						{Scope: "Calc", Metrics: Metrics{LOC: 1}, Decl: &Function{
							Name: "mul", Params: "int a, int b", ReturnType: "int",
							Qualifiers: []string{"static"}, Arguments: []string{"a", "b"}, Span: span(37, 58),
						}},
					},
				},
			},
			{
				Decl: &Namespace{
					Name: "H",
					Span: span(61, 90),
					Members: []SymbolEntry{
						{Scope: "H", Decl: &Function{Name: "f", ReturnType: "int", Span: span(75, 84), Truncated: true}},
					},
				},
			},
		},
	}
}

func TestValidate_Accepts(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Validate(sampleInventory()))
	assert.NoError(t, Validate(&Inventory{}))
	assert.NoError(t, Validate(nil))
}

func TestValidate_Violations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		entries []SymbolEntry
		want    error
	}{
		{
			name: "overlapping siblings",
			entries: []SymbolEntry{
				{Decl: &Field{Name: "a", Span: span(0, 10)}},
				{Decl: &Field{Name: "b", Span: span(5, 15)}},
			},
			want: ErrSpanOverlap,
		},
		{
			name: "member escapes container",
			entries: []SymbolEntry{
				{Decl: &Container{Name: "S", Span: span(0, 10), Members: []SymbolEntry{
					{Decl: &Field{Name: "x", Span: span(5, 12)}},
				}}},
			},
			want: ErrSpanOutsideParent,
		},
		{
			name: "member equals container",
			entries: []SymbolEntry{
				{Decl: &Namespace{Name: "n", Span: span(0, 10), Members: []SymbolEntry{
					{Decl: &Field{Name: "x", Span: span(0, 10)}},
				}}},
			},
			want: ErrSpanOutsideParent,
		},
		{
			name:    "inverted",
			entries: []SymbolEntry{{Decl: &Field{Name: "x", Span: span(10, 5)}}},
			want:    ErrSpanInverted,
		},
		{
			name:    "past end of source",
			entries: []SymbolEntry{{Decl: &Field{Name: "x", Span: span(90, 120)}}},
			want:    ErrSpanOutOfRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Validate(&Inventory{SourceSize: 100, Entries: tt.entries})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestFlatten_DepthFirst(t *testing.T) {
	t.Parallel()

	records := Flatten(sampleInventory())
	require.Len(t, records, 6)

	var names []string
	var parents []int
	for i, r := range records {
		assert.Equal(t, i, r.Index)
		names = append(names, r.Name)
		parents = append(parents, r.Parent)
	}
	assert.Equal(t, []string{"Calc", "r", "Calc", "mul", "H", "f"}, names)
	assert.Equal(t, []int{-1, 0, 0, 0, -1, 4}, parents)

	assert.Equal(t, KindContainer, records[0].Kind)
	assert.Equal(t, "class", records[0].ContainerKind)
	assert.Equal(t, "A class", records[0].Doc.Text)
	assert.Equal(t, KindConstructor, records[2].Kind)
	assert.Equal(t, []string{"static"}, records[3].Qualifiers)
	assert.Equal(t, []string{"a", "b"}, records[3].Arguments)
	assert.Equal(t, 1, records[3].LOC)
	assert.True(t, records[5].Truncated)
	assert.Equal(t, "H", records[5].Scope)

	assert.Nil(t, Flatten(nil))
}

func TestUnflatten_RoundTrip(t *testing.T) {
	t.Parallel()

	original := sampleInventory()
	records := Flatten(original)

	rebuilt, err := Unflatten(records, original.SourceSize)
	require.NoError(t, err)
	assert.Equal(t, records, Flatten(rebuilt))
	assert.Equal(t, original.Count(), rebuilt.Count())
	assert.NoError(t, Validate(rebuilt))

	mul := rebuilt.Entries[0].Members()[2]
	assert.Equal(t, Metrics{LOC: 1}, mul.Metrics)
	assert.Equal(t, []string{"a", "b"}, mul.Decl.(*Function).Arguments)
}

func TestUnflatten_Rejects(t *testing.T) {
	t.Parallel()

	_, err := Unflatten([]Record{{Index: 0, Parent: 0, Kind: KindField}}, 10)
	assert.Error(t, err)

	_, err = Unflatten([]Record{{Index: 3, Parent: -1, Kind: KindField}}, 10)
	assert.Error(t, err)

	_, err = Unflatten([]Record{{Index: 0, Parent: -1, Kind: "macro"}}, 10)
	assert.Error(t, err)
}

func TestSignature(t *testing.T) {
	t.Parallel()

	tests := []struct {
		decl Declaration
		want string
	}{
		{&Function{Name: "add", Params: "int a, int b", ReturnType: "int"}, "int add(int a, int b)"},
		{&Function{Name: "get", Scope: "Foo", ReturnType: "int", Qualifiers: []string{"virtual", "const"}}, "virtual int Foo::get() const"},
		{&Function{Name: "~Foo"}, "~Foo()"},
		{&Constructor{Owner: "Foo", Params: "int v", Qualifiers: []string{"explicit", "noexcept"}}, "explicit Foo(int v) noexcept"},
		{&Container{ContainerKind: ContainerStruct, Name: "Point"}, "struct Point"},
		{&Container{ContainerKind: ContainerUnion}, "union"},
		{&Namespace{Name: "a::b"}, "namespace a::b"},
		{&Namespace{}, "namespace"},
		{&Field{Name: "x", Text: "int x = 1"}, "int x = 1"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Signature(tt.decl))
	}
}

func TestRecord_Signature(t *testing.T) {
	t.Parallel()

	for _, rec := range Flatten(sampleInventory()) {
		if rec.Kind == KindContainer || rec.Kind == KindNamespace {
			continue
		}
		assert.NotEmpty(t, rec.Signature(), rec.Name)
	}

	fn := Record{Kind: KindFunction, Name: "area", NameScope: "Shape", ReturnType: "int", Qualifiers: []string{"const"}}
	assert.Equal(t, "int Shape::area() const", fn.Signature())
	assert.Equal(t, "m", Record{Kind: "macro", Name: "m"}.Signature())
}

func TestLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "function", Label(&Function{HasBody: true}))
	assert.Equal(t, "prototype", Label(&Function{}))
	assert.Equal(t, "constructor", Label(&Constructor{}))
	assert.Equal(t, "union", Label(&Container{ContainerKind: ContainerUnion}))
	assert.Equal(t, "namespace", Label(&Namespace{}))
	assert.Equal(t, "field", Label(&Field{}))

	assert.Equal(t, "class", Record{Kind: KindContainer, ContainerKind: "class"}.Label())
	assert.Equal(t, "macro", Record{Kind: "macro"}.Label())
}

func TestInventory_Walk(t *testing.T) {
	t.Parallel()

	inv := sampleInventory()

	var visited []string
	var depths []int
	inv.Walk(func(e SymbolEntry, depth int) bool {
		visited = append(visited, e.Decl.DeclName())
		depths = append(depths, depth)
		return e.Decl.Kind() != KindNamespace
	})
	assert.Equal(t, []string{"Calc", "r", "Calc", "mul", "H"}, visited)
	assert.Equal(t, []int{0, 1, 1, 1, 0}, depths)

	assert.Equal(t, 6, inv.Count())
	assert.Equal(t, 1, inv.TruncatedCount())

	var nilInv *Inventory
	assert.Zero(t, nilInv.Count())
}

func TestCommentKind_IsDoc(t *testing.T) {
	t.Parallel()

	assert.True(t, CommentBlockDoc.IsDoc())
	assert.True(t, CommentLineDoc.IsDoc())
	assert.False(t, CommentPlain.IsDoc())
}
