package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// EnsureLibrary returns the digital library with the given name, creating
// it when absent.
func (s *SQLiteStorage) EnsureLibrary(name, baseURL, usageMethod string) (*DigitalLibrary, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: library name is required", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lib := DigitalLibrary{Name: name}
	var base, usage sql.NullString
	err := s.db.QueryRow("SELECT id, base_url, usage_method FROM digital_libraries WHERE name = ?", name).
		Scan(&lib.ID, &base, &usage)
	if err == nil {
		lib.BaseURL = base.String
		lib.UsageMethod = usage.String
		return &lib, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to look up library %q: %w", name, err)
	}

	res, err := s.db.Exec(
		"INSERT INTO digital_libraries (name, base_url, usage_method) VALUES (?, ?, ?)",
		name, nullString(baseURL), nullString(usageMethod),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create library %q: %w", name, err)
	}
	lib.ID, _ = res.LastInsertId()
	lib.BaseURL = baseURL
	lib.UsageMethod = usageMethod
	return &lib, nil
}

// ListLibraries returns all known digital libraries.
func (s *SQLiteStorage) ListLibraries() ([]DigitalLibrary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query("SELECT id, name, base_url, usage_method FROM digital_libraries ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list libraries: %w", err)
	}
	defer rows.Close()

	var out []DigitalLibrary
	for rows.Next() {
		var (
			lib         DigitalLibrary
			base, usage sql.NullString
		)
		if err := rows.Scan(&lib.ID, &lib.Name, &base, &usage); err != nil {
			return nil, err
		}
		lib.BaseURL = base.String
		lib.UsageMethod = usage.String
		out = append(out, lib)
	}
	return out, rows.Err()
}

// RecordLibrarySearch stores one execution of a query against a library
// together with its results, in a single transaction.
func (s *SQLiteStorage) RecordLibrarySearch(queryID, libraryID int64, totalFound int, results []SearchResult) (*LibrarySearch, []SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	search := &LibrarySearch{QueryID: queryID, LibraryID: libraryID, TotalFound: totalFound}
	stored := make([]SearchResult, 0, len(results))
	err := s.withTx(func(tx *sql.Tx) error {
		if err := requireRow(tx, "search_queries", "search query", queryID); err != nil {
			return err
		}
		if err := tx.QueryRow("SELECT name FROM digital_libraries WHERE id = ?", libraryID).Scan(&search.LibraryName); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("library %d: %w", libraryID, ErrNotFound)
			}
			return err
		}

		ts := now()
		res, err := tx.Exec(
			"INSERT INTO library_searches (query_id, library_id, searched_at, total_found) VALUES (?, ?, ?, ?)",
			queryID, libraryID, ts, totalFound,
		)
		if err != nil {
			return fmt.Errorf("failed to record library search: %w", err)
		}
		search.ID, _ = res.LastInsertId()
		search.SearchedAt = parseTime(ts)

		for _, r := range results {
			if strings.TrimSpace(r.URL) == "" {
				return fmt.Errorf("%w: search result has no URL", ErrValidation)
			}
			res, err := tx.Exec(
				"INSERT INTO search_results (search_id, url, title, authors, abstract) VALUES (?, ?, ?, ?, ?)",
				search.ID, r.URL, nullString(r.Title), nullString(r.Authors), nullString(r.Abstract),
			)
			if err != nil {
				return fmt.Errorf("failed to store search result: %w", err)
			}
			r.ID, _ = res.LastInsertId()
			r.SearchID = search.ID
			stored = append(stored, r)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return search, stored, nil
}

// ListLibrarySearches returns the searches run for a query.
func (s *SQLiteStorage) ListLibrarySearches(queryID int64) ([]LibrarySearch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := requireRow(s.db, "search_queries", "search query", queryID); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(`
		SELECT ls.id, ls.query_id, ls.library_id, dl.name, ls.searched_at, ls.total_found
		FROM library_searches ls
		JOIN digital_libraries dl ON dl.id = ls.library_id
		WHERE ls.query_id = ?
		ORDER BY ls.id`, queryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list library searches: %w", err)
	}
	defer rows.Close()

	var out []LibrarySearch
	for rows.Next() {
		var (
			ls LibrarySearch
			ts string
		)
		if err := rows.Scan(&ls.ID, &ls.QueryID, &ls.LibraryID, &ls.LibraryName, &ts, &ls.TotalFound); err != nil {
			return nil, err
		}
		ls.SearchedAt = parseTime(ts)
		out = append(out, ls)
	}
	return out, rows.Err()
}

const resultColumns = "id, search_id, url, title, authors, abstract"

func scanResult(row interface{ Scan(...any) error }) (*SearchResult, error) {
	var (
		r                        SearchResult
		title, authors, abstract sql.NullString
	)
	if err := row.Scan(&r.ID, &r.SearchID, &r.URL, &title, &authors, &abstract); err != nil {
		return nil, err
	}
	r.Title = title.String
	r.Authors = authors.String
	r.Abstract = abstract.String
	return &r, nil
}

// ListSearchResults returns the results of one library search.
func (s *SQLiteStorage) ListSearchResults(searchID int64) ([]SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query("SELECT "+resultColumns+" FROM search_results WHERE search_id = ? ORDER BY id", searchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list search results: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// ListReviewResults returns every search result recorded for a review's
// queries.
func (s *SQLiteStorage) ListReviewResults(reviewID int64) ([]SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT sr.id, sr.search_id, sr.url, sr.title, sr.authors, sr.abstract
		FROM search_results sr
		JOIN library_searches ls ON ls.id = sr.search_id
		JOIN search_queries sq ON sq.id = ls.query_id
		WHERE sq.review_id = ?
		ORDER BY sr.id`, reviewID)
	if err != nil {
		return nil, fmt.Errorf("failed to list review results: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// PromoteResult copies a search result into the owning review as a new
// primary study. The study's source is the library's name.
func (s *SQLiteStorage) PromoteResult(resultID int64) (*PrimaryStudy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var study PrimaryStudy
	err := s.withTx(func(tx *sql.Tx) error {
		var (
			result                   SearchResult
			title, authors, abstract sql.NullString
			reviewID                 int64
			library                  string
		)
		err := tx.QueryRow(`
			SELECT sr.url, sr.title, sr.authors, sr.abstract, sq.review_id, dl.name
			FROM search_results sr
			JOIN library_searches ls ON ls.id = sr.search_id
			JOIN search_queries sq ON sq.id = ls.query_id
			JOIN digital_libraries dl ON dl.id = ls.library_id
			WHERE sr.id = ?`, resultID).
			Scan(&result.URL, &title, &authors, &abstract, &reviewID, &library)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("search result %d: %w", resultID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to load search result %d: %w", resultID, err)
		}

		study = PrimaryStudy{
			ReviewID:  reviewID,
			Title:     strings.TrimSpace(title.String),
			Source:    library,
			URL:       result.URL,
			Abstract:  abstract.String,
			Relevancy: RelevancyNotEvaluated,
		}
		if study.Title == "" {
			study.Title = result.URL
		}
		study.ID, err = insertStudy(tx, reviewID, study)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &study, nil
}
