package mcp

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/mvp-joe/cdoc/internal/storage"
)

// ResolveDatabasePath joins a relative database path to the project root.
func ResolveDatabasePath(projectPath, dbPath string) string {
	if filepath.IsAbs(dbPath) {
		return dbPath
	}
	return filepath.Join(projectPath, dbPath)
}

// StorageSource loads every stored symbol through reader.
func StorageSource(reader *storage.FileReader) SymbolSource {
	return func(ctx context.Context) ([]*Symbol, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := reader.ReadSymbols(storage.SymbolFilter{})
		if err != nil {
			return nil, fmt.Errorf("failed to read symbols: %w", err)
		}
		symbols := make([]*Symbol, len(rows))
		for i, row := range rows {
			symbols[i] = symbolFromRow(row)
		}
		return symbols, nil
	}
}
