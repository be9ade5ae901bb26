/*
Package storage provides data models for systematic review records.

Every record is keyed by a numeric identifier. Child records reference their
ReviewProject; the parent is checked before any child is created.
*/
package storage

import (
	"fmt"
	"strings"
	"time"
)

// Review is a systematic review project.
type Review struct {
	ID               int64     `json:"id" yaml:"id"`
	Name             string    `json:"name" yaml:"name"`
	ProblemStatement string    `json:"problem_statement,omitempty" yaml:"problem_statement,omitempty"`
	CreatedAt        time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" yaml:"updated_at"`
}

// ResearchQuestion is a question formulated during problem formulation.
type ResearchQuestion struct {
	ID       int64  `json:"id" yaml:"id"`
	ReviewID int64  `json:"review_id" yaml:"review_id"`
	Text     string `json:"text" yaml:"text"`
}

// Keyword is a term selected for the initial hypotheses.
type Keyword struct {
	ID       int64  `json:"id" yaml:"id"`
	ReviewID int64  `json:"review_id" yaml:"review_id"`
	Keyword  string `json:"keyword" yaml:"keyword"`
}

// SearchQuery is a query string meant for digital libraries.
type SearchQuery struct {
	ID          int64     `json:"id" yaml:"id"`
	ReviewID    int64     `json:"review_id" yaml:"review_id"`
	QueryString string    `json:"query_string" yaml:"query_string"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}

// Relevancy is the screening level of a primary study.
type Relevancy string

const (
	RelevancyHigh         Relevancy = "H"
	RelevancyMedium       Relevancy = "M"
	RelevancyLow          Relevancy = "L"
	RelevancyNotEvaluated Relevancy = "N"
	RelevancyExcluded     Relevancy = "X"
)

// String returns the display name of the level.
func (r Relevancy) String() string {
	switch r {
	case RelevancyHigh:
		return "High"
	case RelevancyMedium:
		return "Medium"
	case RelevancyLow:
		return "Low"
	case RelevancyNotEvaluated:
		return "Not Evaluated"
	case RelevancyExcluded:
		return "Excluded"
	default:
		return string(r)
	}
}

// ParseDecision parses an evaluator's verdict: H, M, L, or X (exclude).
func ParseDecision(s string) (Relevancy, error) {
	switch r := Relevancy(strings.ToUpper(strings.TrimSpace(s))); r {
	case RelevancyHigh, RelevancyMedium, RelevancyLow, RelevancyExcluded:
		return r, nil
	default:
		return "", fmt.Errorf("%w: invalid relevancy %q (must be one of H, M, L, X)", ErrValidation, s)
	}
}

// PrimaryStudy is a candidate study collected for screening.
type PrimaryStudy struct {
	ID              int64     `json:"id" yaml:"id"`
	ReviewID        int64     `json:"review_id" yaml:"review_id"`
	Title           string    `json:"title" yaml:"title"`
	Source          string    `json:"source,omitempty" yaml:"source,omitempty"`
	URL             string    `json:"url,omitempty" yaml:"url,omitempty"`
	Abstract        string    `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	Keywords        string    `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Venue           string    `json:"venue,omitempty" yaml:"venue,omitempty"`
	PublicationType string    `json:"publication_type,omitempty" yaml:"publication_type,omitempty"`
	PublicationYear *int      `json:"publication_year,omitempty" yaml:"publication_year,omitempty"`
	Citations       *int      `json:"citations,omitempty" yaml:"citations,omitempty"`
	Relevancy       Relevancy `json:"relevancy" yaml:"relevancy"`
}

// Evaluation records one relevancy decision on a study.
type Evaluation struct {
	ID          int64     `json:"id" yaml:"id"`
	StudyID     int64     `json:"study_id" yaml:"study_id"`
	Evaluator   string    `json:"evaluator,omitempty" yaml:"evaluator,omitempty"`
	Decision    Relevancy `json:"decision" yaml:"decision"`
	Notes       string    `json:"notes,omitempty" yaml:"notes,omitempty"`
	EvaluatedAt time.Time `json:"evaluated_at" yaml:"evaluated_at"`
}

// DigitalLibrary is a bibliographic database that queries run against.
type DigitalLibrary struct {
	ID          int64  `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	BaseURL     string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	UsageMethod string `json:"usage_method,omitempty" yaml:"usage_method,omitempty"`
}

// LibrarySearch is one execution of a SearchQuery against a library.
type LibrarySearch struct {
	ID          int64     `json:"id" yaml:"id"`
	QueryID     int64     `json:"query_id" yaml:"query_id"`
	LibraryID   int64     `json:"library_id" yaml:"library_id"`
	LibraryName string    `json:"library_name" yaml:"library_name"`
	SearchedAt  time.Time `json:"searched_at" yaml:"searched_at"`
	TotalFound  int       `json:"total_found" yaml:"total_found"`
}

// SearchResult is one hit returned by a LibrarySearch.
type SearchResult struct {
	ID       int64  `json:"id" yaml:"id"`
	SearchID int64  `json:"search_id" yaml:"search_id"`
	URL      string `json:"url" yaml:"url"`
	Title    string `json:"title,omitempty" yaml:"title,omitempty"`
	Authors  string `json:"authors,omitempty" yaml:"authors,omitempty"`
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`
}

// Provider hosts one or more LLMs.
type Provider struct {
	ID          int64  `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	BaseURL     string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Model identifies an LLM on a provider.
type Model struct {
	ID                int64  `json:"id" yaml:"id"`
	ProviderID        int64  `json:"provider_id" yaml:"provider_id"`
	ProviderName      string `json:"provider_name" yaml:"provider_name"`
	ProviderBaseURL   string `json:"provider_base_url,omitempty" yaml:"provider_base_url,omitempty"`
	Name              string `json:"model_name" yaml:"model_name"`
	Version           string `json:"version,omitempty" yaml:"version,omitempty"`
	UsageMethod       string `json:"usage_method,omitempty" yaml:"usage_method,omitempty"`
	Credentials       string `json:"-" yaml:"-"`
	UsageInstructions string `json:"usage_instructions,omitempty" yaml:"usage_instructions,omitempty"`
}

// String renders "provider - name (vversion)".
func (m Model) String() string {
	s := fmt.Sprintf("%s - %s", m.ProviderName, m.Name)
	if m.Version != "" {
		s += fmt.Sprintf(" (v%s)", m.Version)
	}
	return s
}

// Phase is a numbered stage of the review process.
type Phase int

const (
	PhaseProblemFormulation Phase = iota + 1
	PhaseInitialHypotheses
	PhaseInitialDataCollection
	PhaseQueryStringDefinition
	PhaseLibraryExploration
	PhaseRelevancyEvaluation
)

var phaseNames = map[Phase]string{
	PhaseProblemFormulation:    "Problem Formulation",
	PhaseInitialHypotheses:     "Initial Hypotheses",
	PhaseInitialDataCollection: "Initial Data Collection",
	PhaseQueryStringDefinition: "Query String Definition",
	PhaseLibraryExploration:    "Digital Library Exploration",
	PhaseRelevancyEvaluation:   "Relevancy Evaluation",
}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	_, ok := phaseNames[p]
	return ok
}

// String returns the phase's display name.
func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Phase %d", int(p))
}

// QueryLog is the audit record of one LLM exchange. It is never updated.
type QueryLog struct {
	ID         int64     `json:"id" yaml:"id"`
	ExchangeID string    `json:"exchange_id" yaml:"exchange_id"`
	ReviewID   *int64    `json:"review_id,omitempty" yaml:"review_id,omitempty"`
	ModelID    *int64    `json:"model_id,omitempty" yaml:"model_id,omitempty"`
	ModelLabel string    `json:"model,omitempty" yaml:"model,omitempty"`
	Phase      Phase     `json:"phase" yaml:"phase"`
	Prompt     string    `json:"prompt" yaml:"prompt"`
	Response   string    `json:"response" yaml:"response"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
}

// ReviewExport bundles a review with all of its children.
type ReviewExport struct {
	Review            Review             `json:"review" yaml:"review"`
	ResearchQuestions []ResearchQuestion `json:"research_questions" yaml:"research_questions"`
	Keywords          []Keyword          `json:"keywords" yaml:"keywords"`
	SearchQueries     []SearchQuery      `json:"search_queries" yaml:"search_queries"`
	PrimaryStudies    []PrimaryStudy     `json:"primary_studies" yaml:"primary_studies"`
	QueryLogs         []QueryLog         `json:"query_logs" yaml:"query_logs"`
}
