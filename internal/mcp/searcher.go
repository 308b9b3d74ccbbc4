package mcp

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
)

const (
	defaultSearchLimit = 15
	maxSearchLimit     = 100
)

// SymbolSearcher defines the interface for full-text search over stored symbols.
type SymbolSearcher interface {
	// Search executes a bleve query-string search.
	// Supports field scoping, boolean operators, phrase search, wildcards, and fuzzy matching.
	// Options parameter may be nil (defaults will be applied).
	Search(ctx context.Context, queryStr string, options *SearchOptions) ([]*SearchResult, error)

	// Reload rebuilds the index from the symbol source.
	Reload(ctx context.Context) error

	// Count returns the number of indexed symbols.
	Count() (uint64, error)

	// Close releases resources held by the searcher.
	Close() error
}

// SymbolSource loads every symbol to index.
type SymbolSource func(ctx context.Context) ([]*Symbol, error)

// SearchOptions narrows a search.
type SearchOptions struct {
	Limit    int
	Kind     string // exact kind label
	Language string // c or cpp
	FilePath string // wildcard pattern over the full relative path
}

// SearchResult represents a single search hit with highlighting.
type SearchResult struct {
	Symbol     *Symbol  `json:"symbol"`
	Score      float64  `json:"score"`
	Highlights []string `json:"highlights,omitempty"` // Matching snippets with <em> tags
}

// symbolSearcher implements SymbolSearcher using an in-memory bleve index.
type symbolSearcher struct {
	source SymbolSource
	index  bleve.Index
	mu     sync.RWMutex // Protects index during reloads
}

// NewSymbolSearcher builds an in-memory index over everything source returns.
func NewSymbolSearcher(ctx context.Context, source SymbolSource) (SymbolSearcher, error) {
	index, err := buildIndex(ctx, source)
	if err != nil {
		return nil, err
	}
	return &symbolSearcher{source: source, index: index}, nil
}

func buildIndex(ctx context.Context, source SymbolSource) (bleve.Index, error) {
	symbols, err := source(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load symbols: %w", err)
	}

	index, err := bleve.NewMemOnly(buildBleveMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create bleve index: %w", err)
	}

	if err := indexSymbols(ctx, index, symbols); err != nil {
		index.Close()
		return nil, fmt.Errorf("failed to index symbols: %w", err)
	}
	return index, nil
}

// buildBleveMapping creates the index mapping for symbol documents.
// Names, scopes, signatures and docs are analyzed; kind, language and path
// are keywords so filters match exactly.
func buildBleveMapping() *mapping.IndexMappingImpl {
	indexMapping := bleve.NewIndexMapping()

	textField := func() *mapping.FieldMapping {
		m := bleve.NewTextFieldMapping()
		m.Analyzer = "standard"
		m.Store = true
		m.Index = true
		return m
	}
	keywordField := func() *mapping.FieldMapping {
		m := bleve.NewTextFieldMapping()
		m.Analyzer = "keyword"
		m.Store = true
		m.Index = true
		return m
	}

	// Doc text carries term vectors for phrase search and highlighting
	docMapping := textField()
	docMapping.IncludeTermVectors = true

	numberMapping := bleve.NewNumericFieldMapping()
	numberMapping.Store = true
	numberMapping.Index = false

	boolMapping := bleve.NewBooleanFieldMapping()
	boolMapping.Store = true

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("name", textField())
	doc.AddFieldMappingsAt("scope", textField())
	doc.AddFieldMappingsAt("signature", textField())
	doc.AddFieldMappingsAt("doc", docMapping)
	doc.AddFieldMappingsAt("kind", keywordField())
	doc.AddFieldMappingsAt("language", keywordField())
	doc.AddFieldMappingsAt("file_path", keywordField())
	doc.AddFieldMappingsAt("index", numberMapping)
	doc.AddFieldMappingsAt("start_line", numberMapping)
	doc.AddFieldMappingsAt("end_line", numberMapping)
	doc.AddFieldMappingsAt("truncated", boolMapping)
	doc.AddFieldMappingsAt("arguments", textField())
	doc.AddFieldMappingsAt("loc", numberMapping)
	doc.AddFieldMappingsAt("comment_lines", numberMapping)

	indexMapping.DefaultMapping = doc
	return indexMapping
}

// indexSymbols adds symbols to the bleve index in batches.
func indexSymbols(ctx context.Context, index bleve.Index, symbols []*Symbol) error {
	const batchSize = 1000

	batch := index.NewBatch()
	for i, s := range symbols {
		// Check cancellation periodically
		if i%batchSize == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		if err := batch.Index(s.ID, symbolToDocument(s)); err != nil {
			return fmt.Errorf("failed to add symbol %s to batch: %w", s.ID, err)
		}

		if batch.Size() >= batchSize {
			if err := index.Batch(batch); err != nil {
				return fmt.Errorf("failed to execute batch: %w", err)
			}
			batch = index.NewBatch()
		}
	}

	if batch.Size() > 0 {
		if err := index.Batch(batch); err != nil {
			return fmt.Errorf("failed to execute final batch: %w", err)
		}
	}
	return nil
}

func symbolToDocument(s *Symbol) map[string]interface{} {
	return map[string]interface{}{
		"name":          s.Name,
		"scope":         s.Scope,
		"signature":     s.Signature,
		"doc":           s.Doc,
		"kind":          s.Kind,
		"language":      s.Language,
		"file_path":     s.FilePath,
		"index":         s.Index,
		"start_line":    s.StartLine,
		"end_line":      s.EndLine,
		"truncated":     s.Truncated,
		"arguments":     strings.Join(s.Arguments, " "),
		"loc":           s.LOC,
		"comment_lines": s.CommentLines,
	}
}

// Search executes a query-string search with optional exact filters.
func (s *symbolSearcher) Search(ctx context.Context, queryStr string, options *SearchOptions) ([]*SearchResult, error) {
	if options == nil {
		options = &SearchOptions{}
	}
	limit := options.Limit
	if limit <= 0 || limit > maxSearchLimit {
		limit = defaultSearchLimit
	}

	queries := []query.Query{bleve.NewQueryStringQuery(queryStr)}
	if options.Kind != "" {
		q := bleve.NewTermQuery(options.Kind)
		q.SetField("kind")
		queries = append(queries, q)
	}
	if options.Language != "" {
		q := bleve.NewTermQuery(options.Language)
		q.SetField("language")
		queries = append(queries, q)
	}
	if options.FilePath != "" {
		q := bleve.NewWildcardQuery(options.FilePath)
		q.SetField("file_path")
		queries = append(queries, q)
	}

	var finalQuery query.Query = queries[0]
	if len(queries) > 1 {
		finalQuery = bleve.NewConjunctionQuery(queries...)
	}

	req := bleve.NewSearchRequestOptions(finalQuery, limit, 0, false)
	highlightStyle := "html"
	req.Highlight = bleve.NewHighlight()
	req.Highlight.Style = &highlightStyle
	req.Highlight.Fields = []string{"doc"}
	req.Fields = []string{"*"}

	s.mu.RLock()
	defer s.mu.RUnlock()

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bleve search failed: %w", err)
	}

	results := make([]*SearchResult, 0, len(res.Hits))
	for _, hit := range res.Hits {
		results = append(results, &SearchResult{
			Symbol:     symbolFromFields(hit.ID, hit.Fields),
			Score:      hit.Score,
			Highlights: extractHighlights(hit.Fragments),
		})
	}
	return results, nil
}

// symbolFromFields rebuilds a symbol from stored fields.
func symbolFromFields(id string, fields map[string]interface{}) *Symbol {
	str := func(key string) string {
		v, _ := fields[key].(string)
		return v
	}
	num := func(key string) int {
		v, _ := fields[key].(float64)
		return int(v)
	}
	truncated, _ := fields["truncated"].(bool)

	return &Symbol{
		ID:           id,
		FilePath:     str("file_path"),
		Language:     str("language"),
		Index:        num("index"),
		Kind:         str("kind"),
		Name:         str("name"),
		Scope:        str("scope"),
		Signature:    str("signature"),
		Doc:          str("doc"),
		StartLine:    num("start_line"),
		EndLine:      num("end_line"),
		Truncated:    truncated,
		Arguments:    strings.Fields(str("arguments")),
		LOC:          num("loc"),
		CommentLines: num("comment_lines"),
	}
}

// extractHighlights flattens bleve fragments, at most 3 per result.
func extractHighlights(fragments map[string][]string) []string {
	var highlights []string
	for _, snippets := range fragments {
		highlights = append(highlights, snippets...)
	}
	if len(highlights) > 3 {
		highlights = highlights[:3]
	}
	return highlights
}

// Reload rebuilds the index off to the side and swaps it in. On failure
// the old index keeps serving.
func (s *symbolSearcher) Reload(ctx context.Context) error {
	index, err := buildIndex(ctx, s.source)
	if err != nil {
		return err
	}

	s.mu.Lock()
	old := s.index
	s.index = index
	s.mu.Unlock()

	return old.Close()
}

// Count returns the number of indexed symbols.
func (s *symbolSearcher) Count() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Close releases resources held by the searcher.
func (s *symbolSearcher) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index != nil {
		return s.index.Close()
	}
	return nil
}
