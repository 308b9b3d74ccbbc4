package parsers

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/cdoc/internal/indexer/extraction"
)

// Test Plan for Heuristic Extractor:
// - sample.c: greet and add documented, no_args undocumented
// - sample.cpp: std::string return type and namespace-qualified params
// - with_class.cpp: class members, constructor, static method, namespace
// - with_struct.c: typedef'd anonymous struct named by its declarator,
//   static function, plain comment never attaches
// - Inventories of every fixture pass extraction.Validate
// - Top-level spans cover every code token exactly once
// - Two runs over the same input yield identical inventories
// - Doc attachment respects the blank-line tolerance
// - Body comments never document the next declaration
// - Trailing ///< docs attach to the declaration they follow, never forward
// - ParseSource records metadata and honours cancellation
// - Line counts split code lines from comment-only lines inside the span

const fixtureDir = "../../../testdata/code/c"

func extractFixture(t *testing.T, name string) *extraction.Inventory {
	t.Helper()
	src, err := os.ReadFile(filepath.Join(fixtureDir, name))
	require.NoError(t, err)
	return Extract(string(src))
}

// entryByName finds an entry among entries by declared name.
func entryByName(t *testing.T, entries []extraction.SymbolEntry, name string) extraction.SymbolEntry {
	t.Helper()
	for _, e := range entries {
		if e.Decl.DeclName() == name {
			return e
		}
	}
	require.Failf(t, "entry not found", "no entry named %q", name)
	return extraction.SymbolEntry{}
}

func TestExtract_SampleC(t *testing.T) {
	t.Parallel()

	inv := extractFixture(t, "sample.c")
	require.Len(t, inv.Entries, 3)

	greet := entryByName(t, inv.Entries, "greet")
	fn, ok := greet.Decl.(*extraction.Function)
	require.True(t, ok)
	assert.Equal(t, "Greet a person by name", greet.DocText())
	assert.Equal(t, "char*", fn.ReturnType)
	assert.Equal(t, "char* name", fn.Params)
	assert.True(t, fn.HasBody)
	assert.Equal(t, 8, fn.Span.StartLine)
	assert.Equal(t, 12, fn.Span.EndLine)

	add := entryByName(t, inv.Entries, "add")
	assert.Equal(t, "Add two numbers", add.DocText())
	assert.Equal(t, "int add(int a, int b)", extraction.Signature(add.Decl))

	noArgs := entryByName(t, inv.Entries, "no_args")
	assert.Nil(t, noArgs.Doc)
	assert.Equal(t, "void", noArgs.Decl.(*extraction.Function).ReturnType)
}

func TestExtract_SampleCpp(t *testing.T) {
	t.Parallel()

	inv := extractFixture(t, "sample.cpp")
	require.Len(t, inv.Entries, 3)

	greet := entryByName(t, inv.Entries, "greet")
	fn := greet.Decl.(*extraction.Function)
	assert.Equal(t, "Greet a person by name", greet.DocText())
	assert.Equal(t, "std::string", fn.ReturnType)
	assert.Equal(t, "std::string name", fn.Params)

	assert.Nil(t, entryByName(t, inv.Entries, "noArgs").Doc)
}

func TestExtract_WithClass(t *testing.T) {
	t.Parallel()

	inv := extractFixture(t, "with_class.cpp")
	require.Len(t, inv.Entries, 2)

	class := entryByName(t, inv.Entries, "Calculator")
	container, ok := class.Decl.(*extraction.Container)
	require.True(t, ok)
	assert.Equal(t, extraction.ContainerClass, container.ContainerKind)
	assert.Equal(t, "A simple calculator class", class.DocText())
	assert.False(t, container.Truncated)

	members := container.Members
	require.Len(t, members, 5)

	result := members[0]
	assert.Equal(t, extraction.KindField, result.Decl.Kind())
	assert.Equal(t, "result", result.Decl.DeclName())
	assert.Nil(t, result.Doc)
	assert.Equal(t, "Calculator", result.Scope)

	ctor, ok := members[1].Decl.(*extraction.Constructor)
	require.True(t, ok)
	assert.Equal(t, "Calculator", ctor.Owner)
	assert.Equal(t, "Constructor", members[1].DocText())
	assert.True(t, ctor.HasBody)

	add := members[2].Decl.(*extraction.Function)
	assert.Equal(t, "add", add.Name)
	assert.Equal(t, "Add two numbers", members[2].DocText())

	multiply := members[3].Decl.(*extraction.Function)
	assert.Equal(t, "multiply", multiply.Name)
	assert.True(t, multiply.HasQualifier("static"))
	assert.Equal(t, "int", multiply.ReturnType)
	assert.Equal(t, "Multiply two numbers", members[3].DocText())

	reset := members[4].Decl.(*extraction.Function)
	assert.Equal(t, "reset", reset.Name)
	assert.Equal(t, "Reset the calculator", members[4].DocText())

	helper := entryByName(t, inv.Entries, "Helper")
	ns, ok := helper.Decl.(*extraction.Namespace)
	require.True(t, ok)
	assert.Equal(t, "A namespace function", helper.DocText())
	require.Len(t, ns.Members, 1)
	assert.Equal(t, "standaloneFunction", ns.Members[0].Decl.DeclName())
	assert.Equal(t, "Helper", ns.Members[0].Scope)
	assert.Nil(t, ns.Members[0].Doc)
}

func TestExtract_WithStruct(t *testing.T) {
	t.Parallel()

	inv := extractFixture(t, "with_struct.c")
	require.Len(t, inv.Entries, 5)

	calc := inv.Entries[0]
	container, ok := calc.Decl.(*extraction.Container)
	require.True(t, ok)
	assert.Equal(t, extraction.ContainerStruct, container.ContainerKind)
	assert.Equal(t, "Calculator", container.Name)
	assert.Equal(t, "A simple calculator structure", calc.DocText())
	require.Len(t, container.Members, 1)
	assert.Equal(t, "result", container.Members[0].Decl.DeclName())
	// The trailing declarator and semicolon belong to the container.
	assert.Equal(t, 8, container.Span.StartLine)
	assert.Equal(t, 10, container.Span.EndLine)

	create := entryByName(t, inv.Entries, "create_calculator")
	assert.Equal(t, "Create a new calculator", create.DocText())
	assert.Equal(t, "Calculator*", create.Decl.(*extraction.Function).ReturnType)

	add := entryByName(t, inv.Entries, "calculator_add")
	assert.Equal(t, "Add two numbers", add.DocText())
	assert.Equal(t, "Calculator* calc, int x, int y", add.Decl.(*extraction.Function).Params)

	multiply := entryByName(t, inv.Entries, "multiply")
	assert.Equal(t, "Multiply two numbers", multiply.DocText())
	assert.True(t, multiply.Decl.(*extraction.Function).HasQualifier("static"))

	reset := entryByName(t, inv.Entries, "reset")
	assert.Nil(t, reset.Doc, "plain comments never attach")
}

func TestExtract_FixturesValidate(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"sample.c", "sample.cpp", "with_class.cpp", "with_struct.c"} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			inv := extractFixture(t, name)
			assert.NoError(t, extraction.Validate(inv))
			assert.Zero(t, inv.TruncatedCount())
		})
	}
}

func TestExtract_SpansCoverCodeTokens(t *testing.T) {
	t.Parallel()

	src := `/** Point in space */
struct Point {
    int x; // abscissa
    int y;
};

namespace geo {
    /// Distance between points
    double distance(const Point& a, const Point& b) {
        return 0;
    }

    class Shape {
    public:
        virtual ~Shape() {}
        virtual double area() const = 0;
    };
}

int counter = 0;
static const char* names[] = {"a", "b"};
`
	code, _ := SplitComments(Tokenize(src), DefaultOptions())
	inv := Extract(src)
	require.NoError(t, extraction.Validate(inv))

	var covered []Token
	for _, e := range inv.Entries {
		span := e.Decl.DeclSpan()
		for _, tok := range code {
			if tok.Offset >= span.StartOffset && tok.End() <= span.EndOffset {
				covered = append(covered, tok)
			}
		}
	}
	assert.Equal(t, texts(code), texts(covered))
}

func TestExtract_Idempotent(t *testing.T) {
	t.Parallel()

	src, err := os.ReadFile(filepath.Join(fixtureDir, "with_class.cpp"))
	require.NoError(t, err)

	first := Extract(string(src))
	second := Extract(string(src))
	assert.Equal(t, first, second)
	assert.Equal(t, extraction.Flatten(first), extraction.Flatten(second))
}

func TestExtract_BlankLineTolerance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		blank    int
		maxBlank int
		attached bool
	}{
		{"adjacent", 0, 1, true},
		{"one blank line", 1, 1, true},
		{"two blank lines", 2, 1, false},
		{"one blank line strict", 1, 0, false},
		{"three blank lines relaxed", 3, 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := "/** Documented */\n"
			for i := 0; i < tt.blank; i++ {
				src += "\n"
			}
			src += "int f(void);\n"

			opts := DefaultOptions()
			opts.MaxBlankLines = tt.maxBlank
			inv := NewHeuristicExtractor(opts).Extract(src)

			require.Len(t, inv.Entries, 1)
			if tt.attached {
				assert.Equal(t, "Documented", inv.Entries[0].DocText())
			} else {
				assert.Nil(t, inv.Entries[0].Doc)
			}
		})
	}
}

func TestExtract_AttachmentRules(t *testing.T) {
	t.Parallel()

	t.Run("body comments stay inside", func(t *testing.T) {
		t.Parallel()
		src := "void f() {\n    /** not a doc for g */\n}\nvoid g();\n"
		inv := Extract(src)
		require.Len(t, inv.Entries, 2)
		assert.Nil(t, inv.Entries[0].Doc)
		assert.Nil(t, inv.Entries[1].Doc)
	})

	t.Run("nearest plain comment shadows doc", func(t *testing.T) {
		t.Parallel()
		src := "/** Doc */\n// note\nint x;\n"
		inv := Extract(src)
		require.Len(t, inv.Entries, 1)
		assert.Nil(t, inv.Entries[0].Doc)
	})

	t.Run("same line comment does not attach forward", func(t *testing.T) {
		t.Parallel()
		src := "int a; /** trailing */ int b;\n"
		inv := Extract(src)
		require.Len(t, inv.Entries, 2)
		assert.Nil(t, inv.Entries[1].Doc)
	})

	t.Run("trailing member docs attach backward", func(t *testing.T) {
		t.Parallel()
		src := "struct S {\n    int a; ///< First\n    int b; /**< Second */\n    int c;\n};\n"
		inv := Extract(src)
		require.Len(t, inv.Entries, 1)
		members := inv.Entries[0].Members()
		require.Len(t, members, 3)
		assert.Equal(t, "First", members[0].DocText())
		assert.Equal(t, "Second", members[1].DocText())
		assert.True(t, members[1].Doc.Trailing)
		assert.Nil(t, members[2].Doc)
	})

	t.Run("trailing doc never attaches forward", func(t *testing.T) {
		t.Parallel()
		src := "int x; //!< count\nvoid f(void);\n/**< stray */\nint y;\n"
		inv := Extract(src)
		require.Len(t, inv.Entries, 3)
		assert.Equal(t, "count", inv.Entries[0].DocText())
		assert.Nil(t, inv.Entries[1].Doc)
		assert.Nil(t, inv.Entries[2].Doc)
	})

	t.Run("line doc run", func(t *testing.T) {
		t.Parallel()
		src := "/// Adds numbers.\n/// Returns the sum.\nint add(int a, int b);\n"
		inv := Extract(src)
		require.Len(t, inv.Entries, 1)
		assert.Equal(t, "Adds numbers. Returns the sum.", inv.Entries[0].DocText())
		assert.Equal(t, extraction.CommentLineDoc, inv.Entries[0].Doc.Kind)
	})

	t.Run("first member uses the opening brace as bound", func(t *testing.T) {
		t.Parallel()
		src := "/** Outer */\nstruct S {\n    /** Inner */\n    int v;\n};\n"
		inv := Extract(src)
		require.Len(t, inv.Entries, 1)
		assert.Equal(t, "Outer", inv.Entries[0].DocText())
		members := inv.Entries[0].Members()
		require.Len(t, members, 1)
		assert.Equal(t, "Inner", members[0].DocText())
	})

	t.Run("directive between doc and declaration", func(t *testing.T) {
		t.Parallel()
		src := "/** Doc */\n#ifdef X\nint f(void);\n#endif\n"
		inv := Extract(src)
		require.Len(t, inv.Entries, 1)
		assert.Nil(t, inv.Entries[0].Doc)
	})
}

func TestHeuristicExtractor_ParseSource(t *testing.T) {
	t.Parallel()

	e := NewHeuristicExtractor(DefaultOptions())
	src := []byte("/** Doc */\nint f(void);\n")

	result, err := e.ParseSource(context.Background(), "src/f.h", "c", src)
	require.NoError(t, err)
	assert.Equal(t, BackendHeuristic, result.Backend)
	assert.Equal(t, "c", result.Language)
	assert.Equal(t, "src/f.h", result.FilePath)
	assert.Equal(t, 1, result.StartLine)
	assert.Equal(t, 3, result.EndLine)
	require.Len(t, result.Inventory.Entries, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.ParseSource(ctx, "src/f.h", "c", src)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtract_EmptyInput(t *testing.T) {
	t.Parallel()

	for _, src := range []string{"", "   \n\n", "// only a comment\n", "#include <x.h>\n"} {
		inv := Extract(src)
		assert.Empty(t, inv.Entries)
		assert.Equal(t, len(src), inv.SourceSize)
	}
}

func TestExtract_Metrics(t *testing.T) {
	t.Parallel()

	src := "/** Doc */\nint f(int a) {\n  // step\n  return a; /* tail */\n\n  /* one\n     two */\n}\nint g;\n"
	inv := Extract(src)
	require.Len(t, inv.Entries, 2)

	f := entryByName(t, inv.Entries, "f")
	assert.Equal(t, "Doc", f.DocText())
	assert.Equal(t, extraction.Metrics{LOC: 3, CommentLines: 3}, f.Metrics)

	g := entryByName(t, inv.Entries, "g")
	assert.Equal(t, extraction.Metrics{LOC: 1}, g.Metrics)
}
