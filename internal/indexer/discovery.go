package indexer

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/gobwas/glob"
)

// binarySniffLen is how much of a file is inspected for NUL bytes.
const binarySniffLen = 8 * 1024

// stateDir is the per-project directory holding config and the database.
const stateDir = ".cdoc"

// compiledPattern holds both the pattern string and compiled glob
type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

// FileDiscovery handles file discovery with glob patterns and ignore rules.
type FileDiscovery struct {
	rootDir         string
	includePatterns []compiledPattern
	ignorePatterns  []compiledPattern
	ignoreFile      gitignore.Matcher // nil without an ignore file
}

// NewFileDiscovery creates a new file discovery instance. ignoreFile names a
// gitignore-style file relative to rootDir; a missing file is not an error.
func NewFileDiscovery(rootDir string, includePatterns, ignorePatterns []string, ignoreFile string) (*FileDiscovery, error) {
	fd := &FileDiscovery{
		rootDir: rootDir,
	}

	var err error
	if fd.includePatterns, err = compilePatterns(includePatterns); err != nil {
		return nil, err
	}

	if fd.ignorePatterns, err = compilePatterns(ignorePatterns); err != nil {
		return nil, err
	}
	if ignoreFile != "" {
		fromFile, err := LoadIgnoreFile(filepath.Join(rootDir, ignoreFile))
		if err != nil {
			return nil, err
		}
		if len(fromFile) > 0 {
			fd.ignoreFile = gitignore.NewMatcher(fromFile)
		}
	}

	return fd, nil
}

func compilePatterns(patterns []string) ([]compiledPattern, error) {
	compiled := make([]compiledPattern, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		compiled = append(compiled, compiledPattern{pattern: pattern, glob: g})
	}
	return compiled, nil
}

// DiscoverFiles walks the directory tree and returns matching source files in
// lexical path order. Binary files and files of unknown language are skipped.
func (fd *FileDiscovery) DiscoverFiles() ([]SourceFile, error) {
	files := []SourceFile{}

	err := filepath.Walk(fd.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		// Get relative path for pattern matching
		relPath, err := filepath.Rel(fd.rootDir, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if info.IsDir() {
			if fd.shouldIgnore(relPath, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if !fd.Matches(relPath) {
			return nil
		}

		binary, err := IsBinary(path)
		if err != nil {
			log.Printf("Warning: failed to inspect %s: %v", relPath, err)
			return nil
		}
		if binary {
			log.Printf("Warning: skipping binary file %s", relPath)
			return nil
		}

		files = append(files, SourceFile{
			Path:     path,
			RelPath:  relPath,
			Language: DetectLanguage(path),
		})
		return nil
	})

	return files, err
}

// Matches reports whether relPath (slash-separated, relative to the root) is
// an included source file that is not ignored.
func (fd *FileDiscovery) Matches(relPath string) bool {
	if DetectLanguage(relPath) == "" {
		return false
	}
	if fd.shouldIgnore(relPath, false) {
		return false
	}
	return fd.matchesAnyPattern(relPath, fd.includePatterns)
}

// shouldIgnore checks if a path matches any ignore pattern or is excluded
// by the ignore file. The root itself is never ignored.
func (fd *FileDiscovery) shouldIgnore(relPath string, isDir bool) bool {
	if relPath == "." {
		return false
	}

	// Always ignore the state directory
	if strings.HasPrefix(relPath, stateDir+"/") || relPath == stateDir {
		return true
	}

	if fd.ignoreFile != nil && fd.ignoreFile.Match(strings.Split(relPath, "/"), isDir) {
		return true
	}

	if fd.matchesAnyPattern(relPath, fd.ignorePatterns) {
		return true
	}

	// Also check if this is a directory that would match with /** suffix
	// For example, "node_modules" should match pattern "node_modules/**"
	return fd.matchesAnyPattern(relPath+"/**", fd.ignorePatterns)
}

// matchesAnyPattern checks if a path matches any of the given patterns.
func (fd *FileDiscovery) matchesAnyPattern(path string, patterns []compiledPattern) bool {
	for _, cp := range patterns {
		if cp.glob.Match(path) {
			return true
		}
	}

	// Special handling: if path is in root (no slash), also try matching against
	// patterns with **/ prefix removed. This makes "**/*.c" match both "main.c"
	// and "src/main.c" as users would expect.
	if !strings.Contains(path, "/") {
		for _, cp := range patterns {
			if strings.HasPrefix(cp.pattern, "**/") {
				simplified := strings.TrimPrefix(cp.pattern, "**/")
				if simplifiedGlob, err := glob.Compile(simplified, '/'); err == nil {
					if simplifiedGlob.Match(path) {
						return true
					}
				}
			}
		}
	}

	return false
}

// LoadIgnoreFile reads gitignore-style patterns. Blank lines and # comments
// are skipped; "!" negations re-include paths excluded by earlier lines. A
// missing file yields no patterns.
func LoadIgnoreFile(path string) ([]gitignore.Pattern, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open ignore file: %w", err)
	}
	defer f.Close()

	var patterns []gitignore.Pattern
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ignore file: %w", err)
	}
	return patterns, nil
}

// DetectLanguage maps a file extension to "c" or "cpp". Unknown extensions
// return "".
func DetectLanguage(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".c", ".h":
		return "c"
	case ".cpp", ".cc", ".cxx", ".hpp", ".hh", ".hxx":
		return "cpp"
	default:
		return ""
	}
}

// IsBinary reports whether the first 8 KiB of the file contain a NUL byte.
func IsBinary(path string) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer file.Close()

	buf := make([]byte, binarySniffLen)
	n, err := io.ReadFull(file, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return false, err
	}

	for _, b := range buf[:n] {
		if b == 0 {
			return true, nil
		}
	}
	return false, nil
}
