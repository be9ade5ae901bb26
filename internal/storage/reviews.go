package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// CreateReview creates a review project. Names are unique.
func (s *SQLiteStorage) CreateReview(name, problemStatement string) (*Review, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: review name is required", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var existing int64
	err := s.db.QueryRow("SELECT id FROM reviews WHERE name = ?", name).Scan(&existing)
	if err == nil {
		return nil, fmt.Errorf("%w: review %q already exists (id %d)", ErrValidation, name, existing)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to check review name: %w", err)
	}

	ts := now()
	res, err := s.db.Exec(
		"INSERT INTO reviews (name, problem_statement, created_at, updated_at) VALUES (?, ?, ?, ?)",
		name, nullString(problemStatement), ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create review: %w", err)
	}
	id, _ := res.LastInsertId()
	s.logger.Debug("review created", zap.Int64("id", id), zap.String("name", name))

	return &Review{
		ID:               id,
		Name:             name,
		ProblemStatement: problemStatement,
		CreatedAt:        parseTime(ts),
		UpdatedAt:        parseTime(ts),
	}, nil
}

const reviewColumns = "id, name, problem_statement, created_at, updated_at"

func scanReview(row interface{ Scan(...any) error }) (*Review, error) {
	var (
		r                Review
		problem          sql.NullString
		created, updated string
	)
	if err := row.Scan(&r.ID, &r.Name, &problem, &created, &updated); err != nil {
		return nil, err
	}
	r.ProblemStatement = problem.String
	r.CreatedAt = parseTime(created)
	r.UpdatedAt = parseTime(updated)
	return &r, nil
}

// GetReview returns the review with the given id.
func (s *SQLiteStorage) GetReview(id int64) (*Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getReview(id)
}

func (s *SQLiteStorage) getReview(id int64) (*Review, error) {
	r, err := scanReview(s.db.QueryRow("SELECT "+reviewColumns+" FROM reviews WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("review %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get review %d: %w", id, err)
	}
	return r, nil
}

// ListReviews returns all reviews ordered by id.
func (s *SQLiteStorage) ListReviews() ([]Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query("SELECT " + reviewColumns + " FROM reviews ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []Review
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, *r)
	}
	return reviews, rows.Err()
}

// UpdateReview replaces the problem statement of a review.
func (s *SQLiteStorage) UpdateReview(id int64, problemStatement string) (*Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		"UPDATE reviews SET problem_statement = ?, updated_at = ? WHERE id = ?",
		nullString(problemStatement), now(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update review %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("review %d: %w", id, ErrNotFound)
	}
	return s.getReview(id)
}

// DeleteReview deletes a review and everything it owns.
func (s *SQLiteStorage) DeleteReview(id int64) error {
	return s.deleteRow("reviews", "review", id)
}

// CreateResearchQuestions stores one question per text in a single
// transaction. Either all are created or none.
func (s *SQLiteStorage) CreateResearchQuestions(reviewID int64, texts []string) ([]ResearchQuestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := make([]ResearchQuestion, 0, len(texts))
	err := s.withTx(func(tx *sql.Tx) error {
		if err := requireRow(tx, "reviews", "review", reviewID); err != nil {
			return err
		}
		for _, text := range texts {
			if strings.TrimSpace(text) == "" {
				return fmt.Errorf("%w: research question text is empty", ErrValidation)
			}
			res, err := tx.Exec("INSERT INTO research_questions (review_id, question) VALUES (?, ?)", reviewID, text)
			if err != nil {
				return fmt.Errorf("failed to create research question: %w", err)
			}
			id, _ := res.LastInsertId()
			created = append(created, ResearchQuestion{ID: id, ReviewID: reviewID, Text: text})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ListResearchQuestions returns the questions of a review in creation order.
func (s *SQLiteStorage) ListResearchQuestions(reviewID int64) ([]ResearchQuestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listResearchQuestions(reviewID)
}

func (s *SQLiteStorage) listResearchQuestions(reviewID int64) ([]ResearchQuestion, error) {
	rows, err := s.db.Query("SELECT id, review_id, question FROM research_questions WHERE review_id = ? ORDER BY id", reviewID)
	if err != nil {
		return nil, fmt.Errorf("failed to list research questions: %w", err)
	}
	defer rows.Close()

	var out []ResearchQuestion
	for rows.Next() {
		var q ResearchQuestion
		if err := rows.Scan(&q.ID, &q.ReviewID, &q.Text); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// DeleteResearchQuestion deletes one research question.
func (s *SQLiteStorage) DeleteResearchQuestion(id int64) error {
	return s.deleteRow("research_questions", "research question", id)
}

// AddKeyword attaches a keyword to a review.
func (s *SQLiteStorage) AddKeyword(reviewID int64, keyword string) (*Keyword, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, fmt.Errorf("%w: keyword is empty", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := requireRow(s.db, "reviews", "review", reviewID); err != nil {
		return nil, err
	}
	res, err := s.db.Exec("INSERT INTO keywords (review_id, keyword) VALUES (?, ?)", reviewID, keyword)
	if err != nil {
		return nil, fmt.Errorf("failed to add keyword: %w", err)
	}
	id, _ := res.LastInsertId()
	return &Keyword{ID: id, ReviewID: reviewID, Keyword: keyword}, nil
}

// ListKeywords returns the keywords of a review.
func (s *SQLiteStorage) ListKeywords(reviewID int64) ([]Keyword, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listKeywords(reviewID)
}

func (s *SQLiteStorage) listKeywords(reviewID int64) ([]Keyword, error) {
	rows, err := s.db.Query("SELECT id, review_id, keyword FROM keywords WHERE review_id = ? ORDER BY id", reviewID)
	if err != nil {
		return nil, fmt.Errorf("failed to list keywords: %w", err)
	}
	defer rows.Close()

	var out []Keyword
	for rows.Next() {
		var k Keyword
		if err := rows.Scan(&k.ID, &k.ReviewID, &k.Keyword); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// DeleteKeyword removes every occurrence of keyword from a review and
// returns how many rows were deleted.
func (s *SQLiteStorage) DeleteKeyword(reviewID int64, keyword string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("DELETE FROM keywords WHERE review_id = ? AND keyword = ?", reviewID, strings.TrimSpace(keyword))
	if err != nil {
		return 0, fmt.Errorf("failed to delete keyword: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return 0, fmt.Errorf("keyword %q: %w", keyword, ErrNotFound)
	}
	return n, nil
}

// CreateSearchQueries stores one query per text in a single transaction.
func (s *SQLiteStorage) CreateSearchQueries(reviewID int64, texts []string) ([]SearchQuery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := make([]SearchQuery, 0, len(texts))
	err := s.withTx(func(tx *sql.Tx) error {
		if err := requireRow(tx, "reviews", "review", reviewID); err != nil {
			return err
		}
		for _, text := range texts {
			if strings.TrimSpace(text) == "" {
				return fmt.Errorf("%w: search query text is empty", ErrValidation)
			}
			ts := now()
			res, err := tx.Exec("INSERT INTO search_queries (review_id, query_string, created_at) VALUES (?, ?, ?)", reviewID, text, ts)
			if err != nil {
				return fmt.Errorf("failed to create search query: %w", err)
			}
			id, _ := res.LastInsertId()
			created = append(created, SearchQuery{ID: id, ReviewID: reviewID, QueryString: text, CreatedAt: parseTime(ts)})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetSearchQuery returns one search query.
func (s *SQLiteStorage) GetSearchQuery(id int64) (*SearchQuery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		q  SearchQuery
		ts string
	)
	err := s.db.QueryRow("SELECT id, review_id, query_string, created_at FROM search_queries WHERE id = ?", id).
		Scan(&q.ID, &q.ReviewID, &q.QueryString, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("search query %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get search query %d: %w", id, err)
	}
	q.CreatedAt = parseTime(ts)
	return &q, nil
}

// ListSearchQueries returns the search queries of a review.
func (s *SQLiteStorage) ListSearchQueries(reviewID int64) ([]SearchQuery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listSearchQueries(reviewID)
}

func (s *SQLiteStorage) listSearchQueries(reviewID int64) ([]SearchQuery, error) {
	rows, err := s.db.Query("SELECT id, review_id, query_string, created_at FROM search_queries WHERE review_id = ? ORDER BY id", reviewID)
	if err != nil {
		return nil, fmt.Errorf("failed to list search queries: %w", err)
	}
	defer rows.Close()

	var out []SearchQuery
	for rows.Next() {
		var (
			q  SearchQuery
			ts string
		)
		if err := rows.Scan(&q.ID, &q.ReviewID, &q.QueryString, &ts); err != nil {
			return nil, err
		}
		q.CreatedAt = parseTime(ts)
		out = append(out, q)
	}
	return out, rows.Err()
}

// DeleteSearchQuery deletes one search query and its library searches.
func (s *SQLiteStorage) DeleteSearchQuery(id int64) error {
	return s.deleteRow("search_queries", "search query", id)
}

// ExportReview gathers a review and all of its children.
func (s *SQLiteStorage) ExportReview(id int64) (*ReviewExport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.getReview(id)
	if err != nil {
		return nil, err
	}
	export := &ReviewExport{Review: *r}
	if export.ResearchQuestions, err = s.listResearchQuestions(id); err != nil {
		return nil, err
	}
	if export.Keywords, err = s.listKeywords(id); err != nil {
		return nil, err
	}
	if export.SearchQueries, err = s.listSearchQueries(id); err != nil {
		return nil, err
	}
	if export.PrimaryStudies, err = s.listStudies(id); err != nil {
		return nil, err
	}
	reviewID := id
	if export.QueryLogs, err = s.listQueryLogs(&reviewID); err != nil {
		return nil, err
	}
	return export, nil
}
