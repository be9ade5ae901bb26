package library

import (
	"context"
	"fmt"

	"github.com/slrkit/slrkit/internal/storage"
	"go.uber.org/zap"
)

// Store is the persistence a library run needs.
type Store interface {
	GetSearchQuery(id int64) (*storage.SearchQuery, error)
	EnsureLibrary(name, baseURL, usageMethod string) (*storage.DigitalLibrary, error)
	RecordLibrarySearch(queryID, libraryID int64, totalFound int, results []storage.SearchResult) (*storage.LibrarySearch, []storage.SearchResult, error)
}

// Searcher is a digital library that can be queried.
type Searcher interface {
	Search(ctx context.Context, query string, start, limit int) (*Page, error)
}

// Run executes the stored query queryID against arXiv and records the
// search with its results. Nothing is recorded when the search fails.
func Run(ctx context.Context, store Store, client *Arxiv, queryID int64, limit int) (*storage.LibrarySearch, []storage.SearchResult, error) {
	return run(ctx, store, client, ArxivName, client.BaseURL(), queryID, limit, client.logger)
}

func run(ctx context.Context, store Store, searcher Searcher, name, baseURL string, queryID int64, limit int, logger *zap.Logger) (*storage.LibrarySearch, []storage.SearchResult, error) {
	q, err := store.GetSearchQuery(queryID)
	if err != nil {
		return nil, nil, err
	}

	page, err := searcher.Search(ctx, q.QueryString, 0, limit)
	if err != nil {
		return nil, nil, err
	}

	lib, err := store.EnsureLibrary(name, baseURL, "api")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to register library: %w", err)
	}
	search, results, err := store.RecordLibrarySearch(q.ID, lib.ID, page.Total, page.Results)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to record search: %w", err)
	}

	logger.Info("library search recorded",
		zap.String("library", name),
		zap.Int64("query_id", q.ID),
		zap.Int("total_found", page.Total),
		zap.Int("stored", len(results)),
	)
	return search, results, nil
}
