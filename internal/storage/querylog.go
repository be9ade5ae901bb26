package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateQueryLog appends an audit record of one LLM exchange. ReviewID and
// ModelID are optional, but when set they must exist. ExchangeID is
// assigned when empty.
func (s *SQLiteStorage) CreateQueryLog(entry QueryLog) (*QueryLog, error) {
	if !entry.Phase.Valid() {
		return nil, fmt.Errorf("%w: phase must be between 1 and 6, got %d", ErrValidation, int(entry.Phase))
	}
	if entry.ExchangeID == "" {
		entry.ExchangeID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.withTx(func(tx *sql.Tx) error {
		if entry.ReviewID != nil {
			if err := requireRow(tx, "reviews", "review", *entry.ReviewID); err != nil {
				return err
			}
		}
		if entry.ModelID != nil {
			if err := requireRow(tx, "llm_models", "model", *entry.ModelID); err != nil {
				return err
			}
		}

		ts := now()
		res, err := tx.Exec(`
			INSERT INTO llm_query_logs (exchange_id, review_id, model_id, model_label, phase, prompt, response, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			entry.ExchangeID, nullID(entry.ReviewID), nullID(entry.ModelID), nullString(entry.ModelLabel),
			int(entry.Phase), entry.Prompt, entry.Response, ts,
		)
		if err != nil {
			return fmt.Errorf("failed to write query log: %w", err)
		}
		entry.ID, _ = res.LastInsertId()
		entry.CreatedAt = parseTime(ts)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("query logged",
		zap.Int64("id", entry.ID),
		zap.String("exchange_id", entry.ExchangeID),
		zap.Stringer("phase", entry.Phase),
	)
	return &entry, nil
}

const logColumns = "id, exchange_id, review_id, model_id, model_label, phase, prompt, response, created_at"

func scanQueryLog(row interface{ Scan(...any) error }) (*QueryLog, error) {
	var (
		l                 QueryLog
		reviewID, modelID sql.NullInt64
		label             sql.NullString
		ts                string
	)
	if err := row.Scan(&l.ID, &l.ExchangeID, &reviewID, &modelID, &label, &l.Phase, &l.Prompt, &l.Response, &ts); err != nil {
		return nil, err
	}
	l.ReviewID = idPtr(reviewID)
	l.ModelID = idPtr(modelID)
	l.ModelLabel = label.String
	l.CreatedAt = parseTime(ts)
	return &l, nil
}

// GetQueryLog returns one log entry.
func (s *SQLiteStorage) GetQueryLog(id int64) (*QueryLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := scanQueryLog(s.db.QueryRow("SELECT "+logColumns+" FROM llm_query_logs WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("query log %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get query log %d: %w", id, err)
	}
	return l, nil
}

// ListQueryLogs returns log entries oldest first, for one review when
// reviewID is set.
func (s *SQLiteStorage) ListQueryLogs(reviewID *int64) ([]QueryLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listQueryLogs(reviewID)
}

func (s *SQLiteStorage) listQueryLogs(reviewID *int64) ([]QueryLog, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if reviewID != nil {
		rows, err = s.db.Query("SELECT "+logColumns+" FROM llm_query_logs WHERE review_id = ? ORDER BY id", *reviewID)
	} else {
		rows, err = s.db.Query("SELECT " + logColumns + " FROM llm_query_logs ORDER BY id")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list query logs: %w", err)
	}
	defer rows.Close()

	var out []QueryLog
	for rows.Next() {
		l, err := scanQueryLog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

// DeleteQueryLog removes one log entry.
func (s *SQLiteStorage) DeleteQueryLog(id int64) error {
	return s.deleteRow("llm_query_logs", "query log", id)
}
