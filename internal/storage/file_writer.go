package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/mvp-joe/cdoc/internal/indexer/extraction"
)

// FileWriter handles writing per-file inventories to SQLite.
type FileWriter struct {
	db *sql.DB
}

// FileStats represents file-level information for storage.
type FileStats struct {
	FilePath       string
	Language       string
	Backend        string
	FileHash       string // SHA-256
	SizeBytes      int64
	LineCount      int
	SymbolCount    int
	TruncatedCount int
	RunID          string
	IndexedAt      time.Time
}

// NewFileWriter creates a FileWriter instance.
// DB must have schema already created via CreateSchema().
func NewFileWriter(db *sql.DB) *FileWriter {
	return &FileWriter{db: db}
}

var symbolColumns = []string{
	"file_path", "idx", "parent_idx", "kind", "name", "scope", "name_scope",
	"container_kind", "params", "return_type", "qualifiers", "has_body", "text",
	"start_line", "end_line", "start_offset", "end_offset", "truncated",
	"arguments", "loc", "comment_lines", "doc_text", "doc",
}

// WriteFile replaces the stored inventory of one file. The file row and all
// of its symbols are written in a single transaction, so readers see either
// the old or the new inventory.
func (w *FileWriter) WriteFile(stats *FileStats, records []extraction.Record) error {
	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	if err := writeFileTx(tx, stats, records); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s: %w", stats.FilePath, err)
	}
	return nil
}

func writeFileTx(tx *sql.Tx, stats *FileStats, records []extraction.Record) error {
	// Symbols first: OR REPLACE on files would cascade anyway, but an
	// explicit delete keeps this correct with foreign keys disabled.
	if _, err := sq.Delete("symbols").
		Where(sq.Eq{"file_path": stats.FilePath}).
		RunWith(tx).
		Exec(); err != nil {
		return fmt.Errorf("failed to delete symbols for %s: %w", stats.FilePath, err)
	}

	var runID any
	if stats.RunID != "" {
		runID = stats.RunID
	}

	_, err := sq.Insert("files").
		Columns(
			"file_path", "language", "backend", "file_hash", "size_bytes",
			"line_count", "symbol_count", "truncated_count", "run_id", "indexed_at",
		).
		Values(
			stats.FilePath,
			stats.Language,
			stats.Backend,
			stats.FileHash,
			stats.SizeBytes,
			stats.LineCount,
			stats.SymbolCount,
			stats.TruncatedCount,
			runID,
			stats.IndexedAt.UTC().Format(time.RFC3339),
		).
		Options("OR REPLACE").
		RunWith(tx).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to write file stats for %s: %w", stats.FilePath, err)
	}

	if len(records) == 0 {
		return nil
	}

	// Build the query once with Squirrel, then prepare it for the batch
	sqlStr, _, err := sq.Insert("symbols").
		Columns(symbolColumns...).
		Values(make([]any, len(symbolColumns))...).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build SQL: %w", err)
	}

	stmt, err := tx.Prepare(sqlStr)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		args, err := symbolArgs(stats.FilePath, rec)
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("failed to insert symbol %s in %s: %w", rec.Name, stats.FilePath, err)
		}
	}
	return nil
}

func symbolArgs(filePath string, rec extraction.Record) ([]any, error) {
	var doc any
	docText := ""
	if rec.Doc != nil {
		data, err := json.Marshal(rec.Doc)
		if err != nil {
			return nil, fmt.Errorf("failed to encode doc of %s: %w", rec.Name, err)
		}
		doc = string(data)
		docText = rec.Doc.Text
	}

	return []any{
		filePath,
		rec.Index,
		rec.Parent,
		string(rec.Kind),
		rec.Name,
		rec.Scope,
		rec.NameScope,
		rec.ContainerKind,
		rec.Params,
		rec.ReturnType,
		strings.Join(rec.Qualifiers, " "),
		rec.HasBody,
		rec.Text,
		rec.Span.StartLine,
		rec.Span.EndLine,
		rec.Span.StartOffset,
		rec.Span.EndOffset,
		rec.Truncated,
		strings.Join(rec.Arguments, " "),
		rec.LOC,
		rec.CommentLines,
		docText,
		doc,
	}, nil
}

// DeleteFile removes a file and, through the cascade, its symbols.
func (w *FileWriter) DeleteFile(filePath string) error {
	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := sq.Delete("symbols").
		Where(sq.Eq{"file_path": filePath}).
		RunWith(tx).
		Exec(); err != nil {
		return fmt.Errorf("failed to delete symbols for %s: %w", filePath, err)
	}

	if _, err := sq.Delete("files").
		Where(sq.Eq{"file_path": filePath}).
		RunWith(tx).
		Exec(); err != nil {
		return fmt.Errorf("failed to delete file %s: %w", filePath, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete of %s: %w", filePath, err)
	}
	return nil
}
