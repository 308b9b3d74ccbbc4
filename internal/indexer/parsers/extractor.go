package parsers

import (
	"context"

	"github.com/mvp-joe/cdoc/internal/indexer/extraction"
)

// HeuristicExtractor is the token-based backend. It handles C and C++ alike
// and never fails on malformed input.
type HeuristicExtractor struct {
	opts Options
}

// NewHeuristicExtractor creates a heuristic extractor.
func NewHeuristicExtractor(opts Options) *HeuristicExtractor {
	return &HeuristicExtractor{opts: opts}
}

// Extract runs the full pipeline with default options.
func Extract(src string) *extraction.Inventory {
	return NewHeuristicExtractor(DefaultOptions()).Extract(src)
}

func (e *HeuristicExtractor) Name() string {
	return BackendHeuristic
}

// Extract tokenizes src, separates comments, scans declarations and attaches
// documentation.
func (e *HeuristicExtractor) Extract(src string) *extraction.Inventory {
	code, comments := SplitComments(Tokenize(src), e.opts)
	decls := ScanDeclarations(src, code)
	return BuildInventory(src, decls, comments, e.opts)
}

// ParseSource implements Extractor.
func (e *HeuristicExtractor) ParseSource(ctx context.Context, filePath, language string, source []byte) (*FileExtraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	inv := e.Extract(string(source))
	return NewFileExtraction(filePath, language, e.Name(), source, inv), nil
}
