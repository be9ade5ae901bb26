/*
Package search implements BM25 full-text search over a review's primary
studies and library search results.

The index is built with bleve and kept in memory; it is rebuilt from the
store whenever a search is run, so it never drifts from the database.
*/
package search

// Kind distinguishes the record types held in the index.
type Kind string

const (
	KindStudy  Kind = "study"
	KindResult Kind = "result"
)

// Hit is a single search hit with its relevance score.
type Hit struct {
	Kind     Kind    `json:"kind"`
	ID       int64   `json:"id"`
	ReviewID int64   `json:"review_id"`
	Title    string  `json:"title"`
	URL      string  `json:"url,omitempty"`
	Source   string  `json:"source,omitempty"`
	Score    float64 `json:"score"`
}

// Document is a record as stored in the index.
type Document struct {
	Kind     Kind
	ID       int64
	ReviewID int64
	Title    string
	Abstract string
	Keywords string
	Venue    string
	Authors  string
	Source   string
	URL      string
}
