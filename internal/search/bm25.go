package search

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

var hitFields = []string{"kind", "review", "title", "source", "url"}

// Filter narrows a search. Zero values match everything.
type Filter struct {
	ReviewID int64
	Kind     Kind
}

// SearchBM25 performs BM25 keyword search using Bleve.
func (i *Indexer) SearchBM25(text string, filter Filter, limit int) ([]Hit, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("search text is empty")
	}

	conjuncts := []query.Query{i.buildMatchQuery(text)}
	if filter.ReviewID != 0 {
		q := bleve.NewTermQuery(strconv.FormatInt(filter.ReviewID, 10))
		q.SetField("review")
		conjuncts = append(conjuncts, q)
	}
	if filter.Kind != "" {
		q := bleve.NewTermQuery(string(filter.Kind))
		q.SetField("kind")
		conjuncts = append(conjuncts, q)
	}

	var q query.Query = conjuncts[0]
	if len(conjuncts) > 1 {
		q = bleve.NewConjunctionQuery(conjuncts...)
	}

	searchRequest := bleve.NewSearchRequestOptions(q, limit, 0, false)
	searchRequest.Fields = hitFields

	results, err := i.bleveIndex.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("bleve search failed: %w", err)
	}
	return convertBleveResults(results), nil
}

// convertBleveResults converts Bleve search results to hits.
func convertBleveResults(results *bleve.SearchResult) []Hit {
	hits := make([]Hit, 0, len(results.Hits))

	for _, h := range results.Hits {
		kind, _ := h.Fields["kind"].(string)
		review, _ := h.Fields["review"].(string)
		title, _ := h.Fields["title"].(string)
		source, _ := h.Fields["source"].(string)
		url, _ := h.Fields["url"].(string)

		var id int64
		if slash := strings.LastIndexByte(h.ID, '/'); slash >= 0 {
			id, _ = strconv.ParseInt(h.ID[slash+1:], 10, 64)
		}
		reviewID, _ := strconv.ParseInt(review, 10, 64)

		hits = append(hits, Hit{
			Kind:     Kind(kind),
			ID:       id,
			ReviewID: reviewID,
			Title:    title,
			Source:   source,
			URL:      url,
			Score:    h.Score,
		})
	}
	return hits
}
