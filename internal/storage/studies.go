package storage

import (
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const studyColumns = `id, review_id, title, source, url, abstract, keywords, venue,
	publication_type, publication_year, citations, relevancy`

func scanStudy(row interface{ Scan(...any) error }) (*PrimaryStudy, error) {
	var (
		st                                                   PrimaryStudy
		source, url, abstract, keywords, venue, pubType, rel sql.NullString
		year, citations                                      sql.NullInt64
	)
	if err := row.Scan(&st.ID, &st.ReviewID, &st.Title, &source, &url, &abstract,
		&keywords, &venue, &pubType, &year, &citations, &rel); err != nil {
		return nil, err
	}
	st.Source = source.String
	st.URL = url.String
	st.Abstract = abstract.String
	st.Keywords = keywords.String
	st.Venue = venue.String
	st.PublicationType = pubType.String
	st.PublicationYear = intPtr(year)
	st.Citations = intPtr(citations)
	st.Relevancy = Relevancy(rel.String)
	if st.Relevancy == "" {
		st.Relevancy = RelevancyNotEvaluated
	}
	return &st, nil
}

func insertStudy(tx *sql.Tx, reviewID int64, st PrimaryStudy) (int64, error) {
	res, err := tx.Exec(`
		INSERT INTO primary_studies (review_id, title, source, url, abstract, keywords, venue,
			publication_type, publication_year, citations, relevancy)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		reviewID, st.Title, nullString(st.Source), nullString(st.URL), nullString(st.Abstract),
		nullString(st.Keywords), nullString(st.Venue), nullString(st.PublicationType),
		nullInt(st.PublicationYear), nullInt(st.Citations), string(RelevancyNotEvaluated),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create primary study: %w", err)
	}
	return res.LastInsertId()
}

// CreateStudies stores studies under a review in one transaction. New
// studies always start as Not Evaluated.
func (s *SQLiteStorage) CreateStudies(reviewID int64, studies []PrimaryStudy) ([]PrimaryStudy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := make([]PrimaryStudy, 0, len(studies))
	err := s.withTx(func(tx *sql.Tx) error {
		if err := requireRow(tx, "reviews", "review", reviewID); err != nil {
			return err
		}
		for _, st := range studies {
			st.Title = strings.TrimSpace(st.Title)
			if st.Title == "" {
				return fmt.Errorf("%w: study title is required", ErrValidation)
			}
			id, err := insertStudy(tx, reviewID, st)
			if err != nil {
				return err
			}
			st.ID = id
			st.ReviewID = reviewID
			st.Relevancy = RelevancyNotEvaluated
			created = append(created, st)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("studies created", zap.Int64("review_id", reviewID), zap.Int("count", len(created)))
	return created, nil
}

// GetStudy returns one primary study.
func (s *SQLiteStorage) GetStudy(id int64) (*PrimaryStudy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := scanStudy(s.db.QueryRow("SELECT "+studyColumns+" FROM primary_studies WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("primary study %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get primary study %d: %w", id, err)
	}
	return st, nil
}

// ListStudies returns the studies of a review.
func (s *SQLiteStorage) ListStudies(reviewID int64) ([]PrimaryStudy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listStudies(reviewID)
}

func (s *SQLiteStorage) listStudies(reviewID int64) ([]PrimaryStudy, error) {
	rows, err := s.db.Query("SELECT "+studyColumns+" FROM primary_studies WHERE review_id = ? ORDER BY id", reviewID)
	if err != nil {
		return nil, fmt.Errorf("failed to list primary studies: %w", err)
	}
	defer rows.Close()

	var out []PrimaryStudy
	for rows.Next() {
		st, err := scanStudy(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan primary study: %w", err)
		}
		out = append(out, *st)
	}
	return out, rows.Err()
}

// DeleteStudy deletes a primary study and its evaluations.
func (s *SQLiteStorage) DeleteStudy(id int64) error {
	return s.deleteRow("primary_studies", "primary study", id)
}

// EvaluateStudy records an evaluation and sets the study's level to the
// decision. An exclusion sets the level to Excluded, distinct from Not
// Evaluated.
func (s *SQLiteStorage) EvaluateStudy(studyID int64, evaluator string, decision Relevancy, notes string) (*Evaluation, error) {
	switch decision {
	case RelevancyHigh, RelevancyMedium, RelevancyLow, RelevancyExcluded:
	default:
		return nil, fmt.Errorf("%w: invalid relevancy %q (must be one of H, M, L, X)", ErrValidation, decision)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ev := &Evaluation{StudyID: studyID, Evaluator: evaluator, Decision: decision, Notes: notes}
	err := s.withTx(func(tx *sql.Tx) error {
		if err := requireRow(tx, "primary_studies", "primary study", studyID); err != nil {
			return err
		}
		ts := now()
		res, err := tx.Exec(
			"INSERT INTO relevancy_evaluations (study_id, evaluator, decision, notes, evaluated_at) VALUES (?, ?, ?, ?, ?)",
			studyID, nullString(evaluator), string(decision), nullString(notes), ts,
		)
		if err != nil {
			return fmt.Errorf("failed to record evaluation: %w", err)
		}
		ev.ID, _ = res.LastInsertId()
		ev.EvaluatedAt = parseTime(ts)

		if _, err := tx.Exec("UPDATE primary_studies SET relevancy = ? WHERE id = ?", string(decision), studyID); err != nil {
			return fmt.Errorf("failed to update study relevancy: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// ListEvaluations returns the evaluation history of a study, oldest first.
func (s *SQLiteStorage) ListEvaluations(studyID int64) ([]Evaluation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		"SELECT id, study_id, evaluator, decision, notes, evaluated_at FROM relevancy_evaluations WHERE study_id = ? ORDER BY id",
		studyID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluations: %w", err)
	}
	defer rows.Close()

	var out []Evaluation
	for rows.Next() {
		var (
			ev               Evaluation
			evaluator, notes sql.NullString
			decision, ts     string
		)
		if err := rows.Scan(&ev.ID, &ev.StudyID, &evaluator, &decision, &notes, &ts); err != nil {
			return nil, err
		}
		ev.Evaluator = evaluator.String
		ev.Decision = Relevancy(decision)
		ev.Notes = notes.String
		ev.EvaluatedAt = parseTime(ts)
		out = append(out, ev)
	}
	return out, rows.Err()
}

// ParseStudiesCSV reads studies from a CSV file with a header row. Known
// columns are title, url, abstract, publication_year, citations, source,
// venue, publication_type and keywords; others are ignored. Rows with a
// blank title are skipped and counted.
func ParseStudiesCSV(r io.Reader) (studies []PrimaryStudy, skipped int, err error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, 0, fmt.Errorf("%w: CSV file is empty", ErrValidation)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read CSV header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	if _, ok := cols["title"]; !ok {
		return nil, 0, fmt.Errorf("%w: CSV header has no title column", ErrValidation)
	}

	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, skipped, fmt.Errorf("failed to read CSV line %d: %w", line, err)
		}

		field := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		title := field("title")
		if title == "" {
			skipped++
			continue
		}
		year, err := optionalInt(field("publication_year"))
		if err != nil {
			return nil, skipped, fmt.Errorf("%w: line %d: publication_year: %v", ErrValidation, line, err)
		}
		citations, err := optionalInt(field("citations"))
		if err != nil {
			return nil, skipped, fmt.Errorf("%w: line %d: citations: %v", ErrValidation, line, err)
		}

		studies = append(studies, PrimaryStudy{
			Title:           title,
			URL:             field("url"),
			Abstract:        field("abstract"),
			Source:          field("source"),
			Venue:           field("venue"),
			PublicationType: field("publication_type"),
			Keywords:        field("keywords"),
			PublicationYear: year,
			Citations:       citations,
		})
	}
	return studies, skipped, nil
}

func optionalInt(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
