package search

import (
	"fmt"

	"github.com/slrkit/slrkit/internal/storage"
	"go.uber.org/zap"
)

// Source is the part of the store a review index is built from.
type Source interface {
	ListStudies(reviewID int64) ([]storage.PrimaryStudy, error)
	ListReviewResults(reviewID int64) ([]storage.SearchResult, error)
}

// BuildForReview returns an index holding every study and library
// search result of one review. The caller closes it.
func BuildForReview(src Source, reviewID int64, logger *zap.Logger) (*Indexer, error) {
	studies, err := src.ListStudies(reviewID)
	if err != nil {
		return nil, err
	}
	results, err := src.ListReviewResults(reviewID)
	if err != nil {
		return nil, err
	}

	idx, err := NewIndexer(logger)
	if err != nil {
		return nil, err
	}
	if err := idx.IndexStudies(studies); err != nil {
		idx.Close()
		return nil, fmt.Errorf("failed to index studies: %w", err)
	}
	if err := idx.IndexResults(reviewID, results); err != nil {
		idx.Close()
		return nil, fmt.Errorf("failed to index search results: %w", err)
	}

	idx.logger.Debug("review index built",
		zap.Int64("review_id", reviewID),
		zap.Int("studies", len(studies)),
		zap.Int("results", len(results)),
	)
	return idx, nil
}
