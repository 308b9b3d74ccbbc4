package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/mvp-joe/cdoc/internal/indexer/extraction"
)

// ErrFileNotFound is returned when a file has no stored inventory.
var ErrFileNotFound = errors.New("file not indexed")

// FileReader handles reading stored inventories from SQLite.
type FileReader struct {
	db *sql.DB
}

// NewFileReader creates a FileReader instance.
// DB should have schema already created.
func NewFileReader(db *sql.DB) *FileReader {
	return &FileReader{db: db}
}

// SymbolRow is one stored record together with the file it belongs to.
type SymbolRow struct {
	FilePath string
	Language string
	Record   extraction.Record
}

var fileColumns = []string{
	"file_path", "language", "backend", "file_hash", "size_bytes",
	"line_count", "symbol_count", "truncated_count", "run_id", "indexed_at",
}

func scanFileStats(row sq.RowScanner) (*FileStats, error) {
	stats := &FileStats{}
	var runID sql.NullString
	var indexedAt string

	err := row.Scan(
		&stats.FilePath,
		&stats.Language,
		&stats.Backend,
		&stats.FileHash,
		&stats.SizeBytes,
		&stats.LineCount,
		&stats.SymbolCount,
		&stats.TruncatedCount,
		&runID,
		&indexedAt,
	)
	if err != nil {
		return nil, err
	}

	stats.RunID = runID.String
	stats.IndexedAt, _ = time.Parse(time.RFC3339, indexedAt)
	return stats, nil
}

// GetFileStats retrieves information for a single file.
// Returns (nil, nil) if file not found.
func (r *FileReader) GetFileStats(filePath string) (*FileStats, error) {
	row := sq.Select(fileColumns...).
		From("files").
		Where(sq.Eq{"file_path": filePath}).
		RunWith(r.db).
		QueryRow()

	stats, err := scanFileStats(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file stats for %s: %w", filePath, err)
	}
	return stats, nil
}

// GetAllFiles retrieves all file rows ordered by path.
func (r *FileReader) GetAllFiles() ([]*FileStats, error) {
	rows, err := sq.Select(fileColumns...).
		From("files").
		OrderBy("file_path").
		RunWith(r.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query all files: %w", err)
	}
	defer rows.Close()

	var files []*FileStats
	for rows.Next() {
		stats, err := scanFileStats(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file row: %w", err)
		}
		files = append(files, stats)
	}
	return files, rows.Err()
}

// GetFileHashes returns file_path → file_hash for every stored file.
func (r *FileReader) GetFileHashes() (map[string]string, error) {
	rows, err := sq.Select("file_path", "file_hash").
		From("files").
		RunWith(r.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query file hashes: %w", err)
	}
	defer rows.Close()

	hashes := make(map[string]string)
	for rows.Next() {
		var path, hash string
		if err := rows.Scan(&path, &hash); err != nil {
			return nil, fmt.Errorf("failed to scan file hash: %w", err)
		}
		hashes[path] = hash
	}
	return hashes, rows.Err()
}

func symbolSelect() sq.SelectBuilder {
	cols := make([]string, 0, len(symbolColumns)+1)
	for _, c := range symbolColumns {
		cols = append(cols, "s."+c)
	}
	cols = append(cols, "f.language")
	return sq.Select(cols...).
		From("symbols s").
		Join("files f ON f.file_path = s.file_path")
}

func scanSymbol(row sq.RowScanner) (*SymbolRow, error) {
	var (
		sr         SymbolRow
		kind       string
		qualifiers string
		arguments  string
		docText    string
		doc        sql.NullString
	)
	rec := &sr.Record

	err := row.Scan(
		&sr.FilePath,
		&rec.Index,
		&rec.Parent,
		&kind,
		&rec.Name,
		&rec.Scope,
		&rec.NameScope,
		&rec.ContainerKind,
		&rec.Params,
		&rec.ReturnType,
		&qualifiers,
		&rec.HasBody,
		&rec.Text,
		&rec.Span.StartLine,
		&rec.Span.EndLine,
		&rec.Span.StartOffset,
		&rec.Span.EndOffset,
		&rec.Truncated,
		&arguments,
		&rec.LOC,
		&rec.CommentLines,
		&docText,
		&doc,
		&sr.Language,
	)
	if err != nil {
		return nil, err
	}

	rec.Kind = extraction.DeclKind(kind)
	if qualifiers != "" {
		rec.Qualifiers = strings.Fields(qualifiers)
	}
	if arguments != "" {
		rec.Arguments = strings.Fields(arguments)
	}
	if doc.Valid {
		rec.Doc = &extraction.Comment{}
		if err := json.Unmarshal([]byte(doc.String), rec.Doc); err != nil {
			return nil, fmt.Errorf("failed to decode doc of %s: %w", rec.Name, err)
		}
	}
	return &sr, nil
}

// ReadRecords returns the stored records of one file in depth-first order.
func (r *FileReader) ReadRecords(filePath string) ([]extraction.Record, error) {
	rows, err := symbolSelect().
		Where(sq.Eq{"s.file_path": filePath}).
		OrderBy("s.idx").
		RunWith(r.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols for %s: %w", filePath, err)
	}
	defer rows.Close()

	records := []extraction.Record{}
	for rows.Next() {
		sr, err := scanSymbol(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		records = append(records, sr.Record)
	}
	return records, rows.Err()
}

// ReadInventory rebuilds the stored inventory of one file.
func (r *FileReader) ReadInventory(filePath string) (*extraction.Inventory, error) {
	stats, err := r.GetFileStats(filePath)
	if err != nil {
		return nil, err
	}
	if stats == nil {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, filePath)
	}

	records, err := r.ReadRecords(filePath)
	if err != nil {
		return nil, err
	}

	inv, err := extraction.Unflatten(records, int(stats.SizeBytes))
	if err != nil {
		return nil, fmt.Errorf("corrupt inventory for %s: %w", filePath, err)
	}
	return inv, nil
}

// SymbolFilter narrows ReadSymbols. Zero values match everything.
type SymbolFilter struct {
	FilePath string
	Kind     extraction.DeclKind
	Name     string // exact match
	Limit    uint64
}

// ReadSymbols returns stored symbols across files, ordered by file and
// position.
func (r *FileReader) ReadSymbols(filter SymbolFilter) ([]*SymbolRow, error) {
	query := symbolSelect()
	if filter.FilePath != "" {
		query = query.Where(sq.Eq{"s.file_path": filter.FilePath})
	}
	if filter.Kind != "" {
		query = query.Where(sq.Eq{"s.kind": string(filter.Kind)})
	}
	if filter.Name != "" {
		query = query.Where(sq.Eq{"s.name": filter.Name})
	}
	query = query.OrderBy("s.file_path", "s.idx")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	rows, err := query.RunWith(r.db).Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	var out []*SymbolRow
	for rows.Next() {
		sr, err := scanSymbol(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		out = append(out, sr)
	}
	return out, rows.Err()
}
