package search

import (
	"errors"
	"testing"

	"github.com/slrkit/slrkit/internal/storage"
)

func newTestIndexer(t *testing.T) *Indexer {
	t.Helper()
	indexer, err := NewIndexer(nil)
	if err != nil {
		t.Fatalf("failed to create indexer: %v", err)
	}
	t.Cleanup(func() { indexer.Close() })
	return indexer
}

func TestIndexStudies(t *testing.T) {
	indexer := newTestIndexer(t)

	studies := []storage.PrimaryStudy{
		{ID: 1, ReviewID: 1, Title: "Measuring developer productivity", Abstract: "A survey of metrics"},
		{ID: 2, ReviewID: 1, Title: "Code review at scale", Venue: "ICSE"},
	}
	if err := indexer.IndexStudies(studies); err != nil {
		t.Fatalf("failed to index studies: %v", err)
	}

	hits, err := indexer.SearchBM25("productivity review", Filter{}, 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(hits) != 2 {
		t.Errorf("expected 2 indexed documents, got %d", len(hits))
	}

	// Re-indexing replaces rather than duplicates.
	studies[0].Title = "Measuring developer happiness"
	if err := indexer.IndexStudies(studies[:1]); err != nil {
		t.Fatalf("failed to re-index: %v", err)
	}
	if hits, _ = indexer.SearchBM25("measuring", Filter{}, 10); len(hits) != 1 || hits[0].Title != "Measuring developer happiness" {
		t.Errorf("expected one replaced document, got %+v", hits)
	}
	if hits, _ = indexer.SearchBM25("productivity", Filter{}, 10); len(hits) != 0 {
		t.Errorf("expected old title gone after re-index, got %+v", hits)
	}
}

func TestSearchBM25(t *testing.T) {
	indexer := newTestIndexer(t)

	if err := indexer.IndexStudies([]storage.PrimaryStudy{
		{ID: 1, ReviewID: 1, Title: "Measuring developer productivity", URL: "https://example.org/1", Source: "ACM"},
		{ID: 2, ReviewID: 1, Title: "Static analysis tools", Abstract: "We study false positives"},
		{ID: 3, ReviewID: 2, Title: "Developer productivity in open source"},
	}); err != nil {
		t.Fatalf("failed to index studies: %v", err)
	}
	if err := indexer.IndexResults(1, []storage.SearchResult{
		{ID: 7, Title: "Productivity of remote developers", Authors: "Doe, J."},
	}); err != nil {
		t.Fatalf("failed to index results: %v", err)
	}

	hits, err := indexer.SearchBM25("productivity", Filter{}, 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("expected 3 hits across reviews, got %d", len(hits))
	}

	hits, err = indexer.SearchBM25("productivity", Filter{ReviewID: 1, Kind: KindStudy}, 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	h := hits[0]
	if h.Kind != KindStudy || h.ID != 1 || h.ReviewID != 1 {
		t.Errorf("unexpected hit identity: %+v", h)
	}
	if h.Title != "Measuring developer productivity" || h.URL != "https://example.org/1" || h.Source != "ACM" {
		t.Errorf("stored fields not returned: %+v", h)
	}
	if h.Score <= 0 {
		t.Errorf("expected positive score, got %f", h.Score)
	}

	hits, err = indexer.SearchBM25("doe", Filter{Kind: KindResult}, 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != 7 || hits[0].ReviewID != 1 {
		t.Errorf("expected result 7 by author match, got %+v", hits)
	}
}

func TestSearchBM25EmptyText(t *testing.T) {
	indexer := newTestIndexer(t)
	if _, err := indexer.SearchBM25("   ", Filter{}, 5); err == nil {
		t.Error("expected error for empty search text")
	}
}

type fakeSource struct {
	studies []storage.PrimaryStudy
	results []storage.SearchResult
	err     error
}

func (f fakeSource) ListStudies(int64) ([]storage.PrimaryStudy, error) {
	return f.studies, f.err
}

func (f fakeSource) ListReviewResults(int64) ([]storage.SearchResult, error) {
	return f.results, nil
}

func TestBuildForReview(t *testing.T) {
	src := fakeSource{
		studies: []storage.PrimaryStudy{{ID: 1, ReviewID: 3, Title: "Test flakiness"}},
		results: []storage.SearchResult{{ID: 2, Title: "Flaky tests in CI"}},
	}
	idx, err := BuildForReview(src, 3, nil)
	if err != nil {
		t.Fatalf("BuildForReview failed: %v", err)
	}
	defer idx.Close()

	hits, err := idx.SearchBM25("flaky flakiness", Filter{ReviewID: 3}, 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(hits) != 2 {
		t.Errorf("expected study and result hits, got %+v", hits)
	}
	hits, err = idx.SearchBM25("flaky", Filter{ReviewID: 3}, 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(hits) != 1 || hits[0].Kind != KindResult {
		t.Errorf("expected the search result hit, got %+v", hits)
	}

	boom := errors.New("boom")
	if _, err := BuildForReview(fakeSource{err: boom}, 3, nil); !errors.Is(err, boom) {
		t.Errorf("expected source error, got %v", err)
	}
}
