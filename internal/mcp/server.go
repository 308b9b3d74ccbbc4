package mcp

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/cdoc/internal/storage"
)

// MCPServer manages the MCP server lifecycle.
type MCPServer struct {
	config   *MCPServerConfig
	db       *sql.DB
	searcher SymbolSearcher
	watcher  *DatabaseWatcher
	mcp      *server.MCPServer
}

// NewMCPServer opens the inventory read-only, builds the symbol index and
// registers the cdoc tools.
func NewMCPServer(ctx context.Context, config *MCPServerConfig, version string) (*MCPServer, error) {
	if config == nil {
		config = DefaultMCPServerConfig()
	}

	dbPath := ResolveDatabasePath(config.ProjectPath, config.DatabasePath)
	db, err := storage.Open(dbPath, true)
	if err != nil {
		return nil, err
	}
	reader := storage.NewFileReader(db)

	searcher, err := NewSymbolSearcher(ctx, StorageSource(reader))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create searcher: %w", err)
	}

	mcpServer := server.NewMCPServer(
		"cdoc-mcp",
		version,
		server.WithToolCapabilities(true),
	)
	AddSearchTool(mcpServer, searcher)
	AddSymbolsTool(mcpServer, reader)

	watcher, err := NewDatabaseWatcher(searcher, dbPath)
	if err != nil {
		searcher.Close()
		db.Close()
		return nil, fmt.Errorf("failed to create database watcher: %w", err)
	}

	return &MCPServer{
		config:   config,
		db:       db,
		searcher: searcher,
		watcher:  watcher,
		mcp:      mcpServer,
	}, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown.
func (s *MCPServer) Serve(ctx context.Context) error {
	s.watcher.Start(ctx)
	defer s.watcher.Stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting MCP server on stdio...")
		if err := server.ServeStdio(s.mcp); err != nil {
			errCh <- fmt.Errorf("MCP server error: %w", err)
		}
	}()

	select {
	case <-sigCh:
		log.Printf("Received shutdown signal, stopping gracefully...")
		return nil
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases all resources.
func (s *MCPServer) Close() error {
	if s.watcher != nil {
		s.watcher.Stop()
	}
	if s.searcher != nil {
		s.searcher.Close()
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
