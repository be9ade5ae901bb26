package storage

import (
	"fmt"

	"go.uber.org/zap"
)

// migration represents a single forward-only schema change.
type migration struct {
	version int
	name    string
	stmts   []string
}

var migrations = []migration{
	{version: 1, name: "initial_schema", stmts: schemaV1},
}

// runMigrations applies every migration newer than the recorded version.
func (s *SQLiteStorage) runMigrations() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	var current int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return err
	}

	for _, m := range migrations {
		if current >= m.version {
			continue
		}
		s.logger.Info("running migration", zap.Int("version", m.version), zap.String("name", m.name))
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		for _, stmt := range m.stmts {
			if _, err := tx.Exec(stmt); err != nil {
				tx.Rollback()
				return fmt.Errorf("migration %d failed: %w", m.version, err)
			}
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version, name) VALUES (?, ?)", m.version, m.name); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

var schemaV1 = []string{
	`CREATE TABLE reviews (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		problem_statement TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE research_questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		review_id INTEGER NOT NULL REFERENCES reviews(id) ON DELETE CASCADE,
		question TEXT NOT NULL
	)`,
	`CREATE INDEX idx_research_questions_review ON research_questions(review_id)`,
	`CREATE TABLE keywords (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		review_id INTEGER NOT NULL REFERENCES reviews(id) ON DELETE CASCADE,
		keyword TEXT NOT NULL
	)`,
	`CREATE INDEX idx_keywords_review ON keywords(review_id)`,
	`CREATE TABLE search_queries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		review_id INTEGER NOT NULL REFERENCES reviews(id) ON DELETE CASCADE,
		query_string TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX idx_search_queries_review ON search_queries(review_id)`,
	`CREATE TABLE primary_studies (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		review_id INTEGER NOT NULL REFERENCES reviews(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		source TEXT,
		url TEXT,
		abstract TEXT,
		keywords TEXT,
		venue TEXT,
		publication_type TEXT,
		publication_year INTEGER,
		citations INTEGER,
		relevancy TEXT NOT NULL DEFAULT 'N'
	)`,
	`CREATE INDEX idx_primary_studies_review ON primary_studies(review_id)`,
	`CREATE TABLE relevancy_evaluations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		study_id INTEGER NOT NULL REFERENCES primary_studies(id) ON DELETE CASCADE,
		evaluator TEXT,
		decision TEXT NOT NULL,
		notes TEXT,
		evaluated_at TEXT NOT NULL
	)`,
	`CREATE TABLE digital_libraries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		base_url TEXT,
		usage_method TEXT
	)`,
	`CREATE TABLE library_searches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		query_id INTEGER NOT NULL REFERENCES search_queries(id) ON DELETE CASCADE,
		library_id INTEGER NOT NULL REFERENCES digital_libraries(id) ON DELETE CASCADE,
		searched_at TEXT NOT NULL,
		total_found INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE search_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		search_id INTEGER NOT NULL REFERENCES library_searches(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		title TEXT,
		authors TEXT,
		abstract TEXT
	)`,
	`CREATE TABLE llm_providers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		base_url TEXT,
		description TEXT
	)`,
	`CREATE TABLE llm_models (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		provider_id INTEGER NOT NULL REFERENCES llm_providers(id) ON DELETE CASCADE,
		model_name TEXT NOT NULL,
		version TEXT NOT NULL DEFAULT '',
		usage_method TEXT,
		credentials TEXT,
		usage_instructions TEXT,
		UNIQUE (provider_id, model_name, version)
	)`,
	`CREATE TABLE llm_query_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		exchange_id TEXT NOT NULL UNIQUE,
		review_id INTEGER REFERENCES reviews(id) ON DELETE CASCADE,
		model_id INTEGER REFERENCES llm_models(id) ON DELETE SET NULL,
		model_label TEXT,
		phase INTEGER NOT NULL CHECK (phase BETWEEN 1 AND 6),
		prompt TEXT NOT NULL,
		response TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX idx_llm_query_logs_review ON llm_query_logs(review_id)`,
}
