package search

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/slrkit/slrkit/internal/storage"
	"go.uber.org/zap"
)

// Indexer manages the search index for studies and search results.
type Indexer struct {
	bleveIndex bleve.Index
	mu         sync.RWMutex
	logger     *zap.Logger
}

// NewIndexer creates a new search indexer with an in-memory Bleve index.
func NewIndexer(logger *zap.Logger) (*Indexer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create bleve index: %w", err)
	}

	return &Indexer{
		bleveIndex: index,
		logger:     logger.Named("search"),
	}, nil
}

// buildIndexMapping creates the Bleve index mapping.
func buildIndexMapping() mapping.IndexMapping {
	docMapping := bleve.NewDocumentMapping()

	for _, field := range []string{"title", "abstract", "keywords", "venue", "authors"} {
		docMapping.AddFieldMappingsAt(field, bleve.NewTextFieldMapping())
	}

	// Filter fields match exactly and stay out of free-text matching.
	for _, field := range []string{"kind", "review"} {
		fm := bleve.NewKeywordFieldMapping()
		fm.IncludeInAll = false
		docMapping.AddFieldMappingsAt(field, fm)
	}

	// Stored for display only.
	for _, field := range []string{"source", "url"} {
		fm := bleve.NewTextFieldMapping()
		fm.Index = false
		fm.IncludeInAll = false
		docMapping.AddFieldMappingsAt(field, fm)
	}

	indexMapping := bleve.NewIndexMapping()
	indexMapping.AddDocumentMapping("_default", docMapping)
	return indexMapping
}

func docID(kind Kind, id int64) string {
	return fmt.Sprintf("%s/%d", kind, id)
}

// Index adds or replaces documents in one batch.
func (i *Indexer) Index(docs []Document) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	batch := i.bleveIndex.NewBatch()
	for _, d := range docs {
		fields := map[string]interface{}{
			"kind":     string(d.Kind),
			"review":   strconv.FormatInt(d.ReviewID, 10),
			"title":    d.Title,
			"abstract": d.Abstract,
			"keywords": d.Keywords,
			"venue":    d.Venue,
			"authors":  d.Authors,
			"source":   d.Source,
			"url":      d.URL,
		}
		if err := batch.Index(docID(d.Kind, d.ID), fields); err != nil {
			i.logger.Warn("failed to index document", zap.String("id", docID(d.Kind, d.ID)), zap.Error(err))
		}
	}

	if err := i.bleveIndex.Batch(batch); err != nil {
		return fmt.Errorf("failed to batch index documents: %w", err)
	}
	return nil
}

// IndexStudies indexes primary studies.
func (i *Indexer) IndexStudies(studies []storage.PrimaryStudy) error {
	docs := make([]Document, len(studies))
	for n, st := range studies {
		docs[n] = Document{
			Kind:     KindStudy,
			ID:       st.ID,
			ReviewID: st.ReviewID,
			Title:    st.Title,
			Abstract: st.Abstract,
			Keywords: st.Keywords,
			Venue:    st.Venue,
			Source:   st.Source,
			URL:      st.URL,
		}
	}
	return i.Index(docs)
}

// IndexResults indexes library search results under reviewID.
func (i *Indexer) IndexResults(reviewID int64, results []storage.SearchResult) error {
	docs := make([]Document, len(results))
	for n, r := range results {
		docs[n] = Document{
			Kind:     KindResult,
			ID:       r.ID,
			ReviewID: reviewID,
			Title:    r.Title,
			Abstract: r.Abstract,
			Authors:  r.Authors,
			URL:      r.URL,
		}
	}
	return i.Index(docs)
}

// Close closes the index and releases resources.
func (i *Indexer) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.bleveIndex != nil {
		return i.bleveIndex.Close()
	}
	return nil
}

// buildMatchQuery creates a match query for BM25 search.
func (i *Indexer) buildMatchQuery(searchText string) query.Query {
	return bleve.NewMatchQuery(searchText)
}
