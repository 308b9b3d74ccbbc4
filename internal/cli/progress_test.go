package cli

// Test Plan for CLIProgressReporter:
// - Quiet mode prints nothing
// - The completion summary goes to the configured writer
// - Failures and truncated entries are highlighted in the summary
// - OnFileProcessed is safe to call from many goroutines

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/mvp-joe/cdoc/internal/indexer"
	"github.com/stretchr/testify/assert"
)

func TestCLIProgressReporter_Quiet(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	p := newProgressReporter(&out, true, false)
	p.OnDiscoveryStart()
	p.OnDiscoveryComplete(3)
	p.OnFileProcessingStart(3)
	p.OnFileProcessed("a.c")
	p.OnWritingResults()
	p.OnComplete(&indexer.Stats{Symbols: 10})

	assert.Empty(t, out.String())
}

func TestCLIProgressReporter_Summary(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	p := newProgressReporter(&out, false, false)
	p.OnFileProcessingStart(2)
	p.OnFileProcessed("a.c")
	p.OnFileProcessed("b.c")
	p.OnWritingResults()
	p.OnComplete(&indexer.Stats{
		FilesExtracted: 2,
		FilesCached:    1,
		FilesFailed:    1,
		Symbols:        1500,
		Truncated:      2,
		Duration:       1500 * time.Millisecond,
	})

	text := out.String()
	assert.Contains(t, text, "✓ Indexing complete: 1,500 symbols from 2 files in 1.5s")
	assert.Contains(t, text, "Cached:    1")
	assert.Contains(t, text, "Failed:    1")
	assert.Contains(t, text, "Truncated: 2")
}

func TestCLIProgressReporter_SummaryOmitsZeroCounters(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	printIndexSummary(&out, &indexer.Stats{FilesExtracted: 1, Symbols: 3})

	assert.NotContains(t, out.String(), "Failed")
	assert.NotContains(t, out.String(), "Truncated")
}

func TestCLIProgressReporter_Concurrent(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	p := newProgressReporter(&out, false, false)
	p.OnFileProcessingStart(100)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.OnFileProcessed("f.c")
		}()
	}
	wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	assert.Equal(t, 100, p.processedFiles)
}
