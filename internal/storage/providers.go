package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// CreateProvider registers an LLM provider. Names are unique.
func (s *SQLiteStorage) CreateProvider(name, baseURL, description string) (*Provider, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: provider name is required", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var existing int64
	err := s.db.QueryRow("SELECT id FROM llm_providers WHERE name = ?", name).Scan(&existing)
	if err == nil {
		return nil, fmt.Errorf("%w: provider %q already exists (id %d)", ErrValidation, name, existing)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to check provider name: %w", err)
	}

	res, err := s.db.Exec(
		"INSERT INTO llm_providers (name, base_url, description) VALUES (?, ?, ?)",
		name, nullString(baseURL), nullString(description),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}
	id, _ := res.LastInsertId()
	return &Provider{ID: id, Name: name, BaseURL: baseURL, Description: description}, nil
}

// ListProviders returns all providers.
func (s *SQLiteStorage) ListProviders() ([]Provider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query("SELECT id, name, base_url, description FROM llm_providers ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	defer rows.Close()

	var out []Provider
	for rows.Next() {
		var (
			p          Provider
			base, desc sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.Name, &base, &desc); err != nil {
			return nil, err
		}
		p.BaseURL = base.String
		p.Description = desc.String
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeleteProvider deletes a provider and its models.
func (s *SQLiteStorage) DeleteProvider(id int64) error {
	return s.deleteRow("llm_providers", "provider", id)
}

// CreateModel registers a model under a provider. The (provider, name,
// version) triple is unique.
func (s *SQLiteStorage) CreateModel(m Model) (*Model, error) {
	m.Name = strings.TrimSpace(m.Name)
	m.Version = strings.TrimSpace(m.Version)
	if m.Name == "" {
		return nil, fmt.Errorf("%w: model name is required", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var base sql.NullString
	err := s.db.QueryRow("SELECT name, base_url FROM llm_providers WHERE id = ?", m.ProviderID).Scan(&m.ProviderName, &base)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("provider %d: %w", m.ProviderID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up provider %d: %w", m.ProviderID, err)
	}
	m.ProviderBaseURL = base.String

	var existing int64
	err = s.db.QueryRow(
		"SELECT id FROM llm_models WHERE provider_id = ? AND model_name = ? AND version = ?",
		m.ProviderID, m.Name, m.Version,
	).Scan(&existing)
	if err == nil {
		return nil, fmt.Errorf("%w: model %s already exists (id %d)", ErrValidation, m.String(), existing)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to check model: %w", err)
	}

	res, err := s.db.Exec(`
		INSERT INTO llm_models (provider_id, model_name, version, usage_method, credentials, usage_instructions)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.ProviderID, m.Name, m.Version, nullString(m.UsageMethod), nullString(m.Credentials), nullString(m.UsageInstructions),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create model: %w", err)
	}
	m.ID, _ = res.LastInsertId()
	return &m, nil
}

const modelSelect = `
	SELECT m.id, m.provider_id, p.name, p.base_url, m.model_name, m.version,
		m.usage_method, m.credentials, m.usage_instructions
	FROM llm_models m
	JOIN llm_providers p ON p.id = m.provider_id`

func scanModel(row interface{ Scan(...any) error }) (*Model, error) {
	var (
		m                         Model
		base, usage, creds, instr sql.NullString
	)
	if err := row.Scan(&m.ID, &m.ProviderID, &m.ProviderName, &base, &m.Name, &m.Version,
		&usage, &creds, &instr); err != nil {
		return nil, err
	}
	m.ProviderBaseURL = base.String
	m.UsageMethod = usage.String
	m.Credentials = creds.String
	m.UsageInstructions = instr.String
	return &m, nil
}

// GetModel returns a model with its provider's name and base URL.
func (s *SQLiteStorage) GetModel(id int64) (*Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := scanModel(s.db.QueryRow(modelSelect+" WHERE m.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("model %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get model %d: %w", id, err)
	}
	return m, nil
}

// ListModels returns every registered model.
func (s *SQLiteStorage) ListModels() ([]Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(modelSelect + " ORDER BY m.id")
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	defer rows.Close()

	var out []Model
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// DeleteModel deletes a model. Query logs that used it keep their model
// label but lose the reference.
func (s *SQLiteStorage) DeleteModel(id int64) error {
	return s.deleteRow("llm_models", "model", id)
}
