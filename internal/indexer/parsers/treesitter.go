package parsers

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	c "github.com/tree-sitter/tree-sitter-c/bindings/go"

	"github.com/mvp-joe/cdoc/internal/indexer/extraction"
)

// TreeSitterExtractor extracts C declarations from a tree-sitter CST.
// Comments are still classified and attached by the shared comment pipeline,
// so both backends document the same declarations the same way.
type TreeSitterExtractor struct {
	language *sitter.Language
	opts     Options
}

// NewTreeSitterExtractor creates a tree-sitter backend for C.
func NewTreeSitterExtractor(opts Options) *TreeSitterExtractor {
	return &TreeSitterExtractor{
		language: sitter.NewLanguage(c.Language()),
		opts:     opts,
	}
}

func (e *TreeSitterExtractor) Name() string {
	return BackendTreeSitter
}

// ParseSource implements Extractor. Only C is understood; callers route C++
// to the heuristic backend.
func (e *TreeSitterExtractor) ParseSource(ctx context.Context, filePath, language string, source []byte) (*FileExtraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if language != "c" {
		return nil, fmt.Errorf("tree-sitter backend does not support %s: %s", language, filePath)
	}

	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(e.language); err != nil {
		return nil, fmt.Errorf("failed to load C grammar: %w", err)
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse c file: %s", filePath)
	}
	defer tree.Close()

	src := string(source)
	w := &cstWalker{source: source}
	decls := w.items(tree.RootNode())

	_, comments := SplitComments(Tokenize(src), e.opts)
	inv := BuildInventory(src, decls, comments, e.opts)
	return NewFileExtraction(filePath, language, e.Name(), source, inv), nil
}

type cstWalker struct {
	source []byte
}

// items converts the top-level items of a translation unit, preprocessor
// conditional or linkage block.
func (w *cstWalker) items(node *sitter.Node) []*RawDecl {
	var decls []*RawDecl
	count := int(node.ChildCount())
	for i := 0; i < count; i++ {
		child := node.Child(uint(i))
		if child == nil {
			continue
		}

		switch child.Kind() {
		case "preproc_if", "preproc_ifdef", "preproc_else", "preproc_elif", "preproc_elifdef":
			decls = append(decls, w.items(child)...)
		case "linkage_specification":
			// extern "C" members belong to the enclosing scope.
			if body := child.ChildByFieldName("body"); body != nil && body.Kind() == "declaration_list" {
				decls = append(decls, w.items(body)...)
			} else {
				decls = append(decls, w.items(child)...)
			}
		case "function_definition":
			decls = append(decls, w.function(child, true))
		case "declaration":
			if fn := functionDeclarator(child.ChildByFieldName("declarator")); fn != nil {
				decls = append(decls, w.function(child, false))
			} else {
				decls = append(decls, w.field(child))
			}
		case "type_definition":
			decls = append(decls, w.typeDefinition(child))
		case "struct_specifier", "union_specifier", "enum_specifier":
			d := w.container(child, child, "")
			// A bare specifier is followed by its own semicolon.
			if i+1 < count {
				if next := node.Child(uint(i + 1)); next != nil && next.Kind() == ";" {
					d.Span = w.span(child, next)
					i++
				}
			}
			decls = append(decls, d)
		case "ERROR":
			d := w.field(child)
			d.Truncated = true
			decls = append(decls, d)
		}
	}
	return decls
}

func (w *cstWalker) function(node *sitter.Node, hasBody bool) *RawDecl {
	declarator := node.ChildByFieldName("declarator")
	fn := functionDeclarator(declarator)

	d := &RawDecl{
		Kind:    extraction.KindFunction,
		HasBody: hasBody,
		Span:    w.span(node, node),
	}
	if fn != nil {
		d.Name = w.text(fn.ChildByFieldName("declarator"))
		d.Params = strings.TrimSuffix(strings.TrimPrefix(w.text(fn.ChildByFieldName("parameters")), "("), ")")
		d.Params = collapse(d.Params)
		d.Arguments = w.arguments(fn.ChildByFieldName("parameters"))
	}

	var returnType []string
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(uint(i))
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "storage_class_specifier":
			d.Qualifiers = appendUnique(d.Qualifiers, w.text(child))
		case "type_qualifier":
			returnType = append(returnType, w.text(child))
		}
	}
	returnType = append(returnType, w.text(node.ChildByFieldName("type")))
	d.ReturnType = strings.Join(returnType, " ") + pointerSuffix(declarator)
	d.Truncated = node.HasError()
	return d
}

// arguments lists the named parameters of a parameter_list.
func (w *cstWalker) arguments(params *sitter.Node) []string {
	if params == nil {
		return nil
	}
	var names []string
	for i := 0; i < int(params.NamedChildCount()); i++ {
		child := params.NamedChild(uint(i))
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "variadic_parameter":
			names = append(names, "...")
		case "identifier":
			names = append(names, w.text(child))
		case "parameter_declaration":
			if name := parameterIdent(child.ChildByFieldName("declarator")); name != nil {
				names = append(names, w.text(name))
			}
		}
	}
	return names
}

func (w *cstWalker) typeDefinition(node *sitter.Node) *RawDecl {
	typ := node.ChildByFieldName("type")
	if typ != nil && typ.ChildByFieldName("body") != nil {
		switch typ.Kind() {
		case "struct_specifier", "union_specifier", "enum_specifier":
			return w.container(node, typ, w.text(innermostName(node.ChildByFieldName("declarator"))))
		}
	}
	return w.field(node)
}

// container converts a struct, union or enum specifier. outer is the node
// whose extent becomes the span, which differs from specifier for typedefs.
func (w *cstWalker) container(outer, specifier *sitter.Node, fallbackName string) *RawDecl {
	d := &RawDecl{
		Kind:          extraction.KindContainer,
		ContainerKind: extraction.ContainerKind(strings.TrimSuffix(specifier.Kind(), "_specifier")),
		Name:          w.text(specifier.ChildByFieldName("name")),
		Span:          w.span(outer, outer),
		Truncated:     outer.HasError(),
	}
	if d.Name == "" {
		d.Name = fallbackName
	}

	body := specifier.ChildByFieldName("body")
	if body == nil {
		return d
	}
	d.BodyStart = int(body.StartByte()) + 1
	if d.ContainerKind == extraction.ContainerEnum {
		return d
	}

	for i := 0; i < int(body.ChildCount()); i++ {
		child := body.Child(uint(i))
		if child != nil && child.Kind() == "field_declaration" {
			d.Members = append(d.Members, w.field(child))
		}
	}
	return d
}

func (w *cstWalker) field(node *sitter.Node) *RawDecl {
	return &RawDecl{
		Kind: extraction.KindField,
		Name: w.text(innermostName(node.ChildByFieldName("declarator"))),
		Text: strings.TrimSuffix(collapse(w.text(node)), ";"),
		Span: w.span(node, node),
	}
}

func (w *cstWalker) text(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return string(w.source[node.StartByte():node.EndByte()])
}

func (w *cstWalker) span(first, last *sitter.Node) extraction.Span {
	return extraction.Span{
		StartLine:   int(first.StartPosition().Row) + 1,
		EndLine:     int(last.EndPosition().Row) + 1,
		StartOffset: int(first.StartByte()),
		EndOffset:   int(last.EndByte()),
	}
}

// functionDeclarator unwraps pointer declarators down to a function
// declarator, or returns nil.
func functionDeclarator(node *sitter.Node) *sitter.Node {
	for node != nil {
		switch node.Kind() {
		case "function_declarator":
			return node
		case "pointer_declarator":
			node = node.ChildByFieldName("declarator")
		default:
			return nil
		}
	}
	return nil
}

// innermostName follows declarator fields down to the declared identifier.
func innermostName(node *sitter.Node) *sitter.Node {
	for node != nil {
		next := node.ChildByFieldName("declarator")
		if next == nil {
			return node
		}
		node = next
	}
	return nil
}

// parameterIdent finds the identifier of a parameter declarator. Abstract
// declarators have none.
func parameterIdent(node *sitter.Node) *sitter.Node {
	for node != nil {
		switch node.Kind() {
		case "identifier":
			return node
		case "parenthesized_declarator":
			node = node.NamedChild(0)
		default:
			node = node.ChildByFieldName("declarator")
		}
	}
	return nil
}

func pointerSuffix(node *sitter.Node) string {
	var b strings.Builder
	for node != nil && node.Kind() == "pointer_declarator" {
		b.WriteByte('*')
		node = node.ChildByFieldName("declarator")
	}
	return b.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
