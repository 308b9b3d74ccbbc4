package indexer

import (
	"context"
	"log"
	"strings"

	"github.com/mvp-joe/cdoc/internal/indexer/parsers"
)

// multiLanguageParser routes files to an extraction backend by language.
// The tree-sitter backend only understands C; everything else, and any
// tree-sitter failure, goes through the heuristic backend.
type multiLanguageParser struct {
	backend    string
	heuristic  *parsers.HeuristicExtractor
	treeSitter *parsers.TreeSitterExtractor
}

// NewParser creates a parser for the configured backend name.
func NewParser(backend string, opts parsers.Options) Parser {
	p := &multiLanguageParser{
		backend:   strings.ToLower(backend),
		heuristic: parsers.NewHeuristicExtractor(opts),
	}
	if p.backend == parsers.BackendTreeSitter {
		p.treeSitter = parsers.NewTreeSitterExtractor(opts)
	}
	return p
}

// ParseSource implements Parser.
func (p *multiLanguageParser) ParseSource(ctx context.Context, filePath, language string, source []byte) (*parsers.FileExtraction, error) {
	if p.treeSitter != nil && language == "c" {
		result, err := p.treeSitter.ParseSource(ctx, filePath, language, source)
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("Warning: tree-sitter failed on %s, using heuristic backend: %v", filePath, err)
	}
	return p.heuristic.ParseSource(ctx, filePath, language, source)
}

// SupportsLanguage checks if this parser supports the given language.
func (p *multiLanguageParser) SupportsLanguage(language string) bool {
	switch language {
	case "c", "cpp":
		return true
	default:
		return false
	}
}
