/*
Package workflow drives the interactive generation of review items with a
language model.

One run moves through a fixed sequence of states:

	AwaitingTopic -> AwaitingModelSelection -> PromptSent ->
	AwaitingUserSelection -> Persisted

with Aborted as the only other terminal state. Every answer the run needs
comes through an Operator, so the same logic serves a terminal session, a
headless invocation, or a scripted test.

Exactly one query log entry is written per successful model call, before
the response is segmented, so the audit trail records that a call was made
even when nothing usable came back or the operator keeps nothing.
*/
package workflow

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/slrkit/slrkit/internal/segment"
	"github.com/slrkit/slrkit/internal/storage"
	"go.uber.org/zap"
)

var (
	// ErrAborted is returned when the operator ends a run early.
	ErrAborted = errors.New("aborted")

	// ErrValidation is returned for an unusable menu choice.
	ErrValidation = errors.New("validation error")
)

// State is a step of a run.
type State int

const (
	AwaitingTopic State = iota
	AwaitingModelSelection
	PromptSent
	AwaitingUserSelection
	Persisted
	Aborted
)

func (s State) String() string {
	switch s {
	case AwaitingTopic:
		return "AwaitingTopic"
	case AwaitingModelSelection:
		return "AwaitingModelSelection"
	case PromptSent:
		return "PromptSent"
	case AwaitingUserSelection:
		return "AwaitingUserSelection"
	case Persisted:
		return "Persisted"
	case Aborted:
		return "Aborted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Menu is a numbered list the operator picks one entry from.
type Menu struct {
	Title   string
	Options []string
}

// Operator supplies every answer a run needs.
type Operator interface {
	// Choose presents a menu and returns the raw answer, normally a
	// 1-based number.
	Choose(menu Menu) (string, error)
	// Ask poses a free-text question.
	Ask(question string) (string, error)
	// ShowItems presents the parsed items, numbered from 1.
	ShowItems(title string, items []string)
	Info(msg string)
	Warn(msg string)
}

// Sender sends a prompt to a model.
type Sender interface {
	Send(ctx context.Context, model storage.Model, prompt string) (string, error)
}

// Store is the persistence a run needs.
type Store interface {
	GetReview(id int64) (*storage.Review, error)
	ListReviews() ([]storage.Review, error)
	GetModel(id int64) (*storage.Model, error)
	ListModels() ([]storage.Model, error)
	CreateQueryLog(entry storage.QueryLog) (*storage.QueryLog, error)
	CreateResearchQuestions(reviewID int64, texts []string) ([]storage.ResearchQuestion, error)
	CreateSearchQueries(reviewID int64, texts []string) ([]storage.SearchQuery, error)
}

// Request carries the answers already known before a run starts. Zero
// ids and nil strings are asked for through the Operator.
type Request struct {
	ReviewID int64
	ModelID  int64
	Topic    *string
	Count    int
	Keep     *string
	// Strategy overrides the target's segmentation strategy.
	Strategy segment.Strategy
}

// Result describes how a run ended.
type Result struct {
	State      State
	Review     *storage.Review
	Model      *storage.Model
	Log        *storage.QueryLog
	Items      []string
	ParseEmpty bool
	Kept       []int
	Created    int
}

// Runner executes runs against one store, sender and operator.
type Runner struct {
	store  Store
	sender Sender
	op     Operator
	logger *zap.Logger
}

// New creates a Runner.
func New(store Store, sender Sender, op Operator, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{store: store, sender: sender, op: op, logger: logger.Named("workflow")}
}

// Run generates items for target. The returned Result is never nil; its
// State is Aborted whenever err is non-nil.
func (r *Runner) Run(ctx context.Context, target Target, req Request) (*Result, error) {
	res := &Result{State: AwaitingTopic}
	abort := func(err error) (*Result, error) {
		res.State = Aborted
		r.logger.Debug("run aborted", zap.String("target", target.Name), zap.Error(err))
		return res, err
	}

	review, err := r.selectReview(req.ReviewID)
	if err != nil {
		return abort(err)
	}
	res.Review = review

	topic, err := r.topic(req.Topic)
	if err != nil {
		return abort(err)
	}
	count, err := r.count(req.Count, target)
	if err != nil {
		return abort(err)
	}

	res.State = AwaitingModelSelection
	model, err := r.selectModel(req.ModelID)
	if err != nil {
		return abort(err)
	}
	res.Model = model

	strategy := req.Strategy
	if strategy == nil {
		strategy = target.Strategy
	}
	prompt := target.Prompt(PromptInput{
		Topic:  topic,
		Count:  count,
		Format: strategy.Name(),
		Review: *review,
	})

	res.State = PromptSent
	r.op.Info(fmt.Sprintf("Generating %s with %s, please wait...", target.Name, model.String()))
	response, err := r.sender.Send(ctx, *model, prompt)
	if err != nil {
		return abort(err)
	}

	reviewID, modelID := review.ID, model.ID
	entry, err := r.store.CreateQueryLog(storage.QueryLog{
		ReviewID:   &reviewID,
		ModelID:    &modelID,
		ModelLabel: model.String(),
		Phase:      target.Phase,
		Prompt:     prompt,
		Response:   response,
	})
	if err != nil {
		return abort(fmt.Errorf("failed to log exchange: %w", err))
	}
	res.Log = entry

	items, err := segment.Split(strategy, response)
	if errors.Is(err, segment.ErrParseEmpty) {
		r.op.Warn(fmt.Sprintf("No %s could be parsed from the response. Check the model's output format.", target.Name))
		res.ParseEmpty = true
		res.State = Persisted
		return res, nil
	}
	res.Items = items

	res.State = AwaitingUserSelection
	r.op.ShowItems("Generated "+target.Name, items)
	keep, err := r.keep(req.Keep, target)
	if err != nil {
		return abort(err)
	}

	kept, warnings := ParseKept(keep, len(items))
	for _, w := range warnings {
		r.op.Warn(w)
	}
	res.Kept = kept
	if len(kept) == 0 {
		r.op.Warn(fmt.Sprintf("No %s selected. None will be saved.", target.Name))
		res.State = Persisted
		return res, nil
	}

	texts := make([]string, len(kept))
	for i, idx := range kept {
		texts[i] = items[idx-1]
	}
	created, err := target.Materialize(r.store, review.ID, texts)
	if err != nil {
		return abort(err)
	}
	res.Created = created
	res.State = Persisted

	r.logger.Info("items persisted",
		zap.String("target", target.Name),
		zap.Int64("review_id", review.ID),
		zap.Int("parsed", len(items)),
		zap.Int("created", created),
	)
	return res, nil
}

func (r *Runner) selectReview(id int64) (*storage.Review, error) {
	if id != 0 {
		return r.store.GetReview(id)
	}
	reviews, err := r.store.ListReviews()
	if err != nil {
		return nil, err
	}
	if len(reviews) == 0 {
		return nil, fmt.Errorf("no review found, create one first: %w", storage.ErrNotFound)
	}
	options := make([]string, len(reviews))
	for i, rv := range reviews {
		options[i] = fmt.Sprintf("%s (ID: %d)", rv.Name, rv.ID)
	}
	i, err := r.choose(Menu{Title: "Available reviews", Options: options})
	if err != nil {
		return nil, err
	}
	return &reviews[i], nil
}

func (r *Runner) selectModel(id int64) (*storage.Model, error) {
	if id != 0 {
		return r.store.GetModel(id)
	}
	models, err := r.store.ListModels()
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("no model found, create one first: %w", storage.ErrNotFound)
	}
	options := make([]string, len(models))
	for i, m := range models {
		options[i] = fmt.Sprintf("%s (Provider: %s)", m.String(), m.ProviderName)
	}
	i, err := r.choose(Menu{Title: "Available models", Options: options})
	if err != nil {
		return nil, err
	}
	return &models[i], nil
}

// choose returns the 0-based index of the operator's menu answer.
func (r *Runner) choose(menu Menu) (int, error) {
	answer, err := r.op.Choose(menu)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(answer))
	if err != nil || n < 1 || n > len(menu.Options) {
		return 0, fmt.Errorf("%w: invalid choice %q for %s (1-%d)", ErrValidation, answer, strings.ToLower(menu.Title), len(menu.Options))
	}
	return n - 1, nil
}

func (r *Runner) topic(given *string) (string, error) {
	var topic string
	if given != nil {
		topic = *given
	} else {
		answer, err := r.op.Ask("Enter a topic or base question")
		if err != nil {
			return "", err
		}
		topic = answer
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", fmt.Errorf("%w: no topic given", ErrAborted)
	}
	return topic, nil
}

// count falls back to the target default on a blank or unusable answer.
func (r *Runner) count(given int, target Target) (int, error) {
	if given > 0 {
		return given, nil
	}
	answer, err := r.op.Ask(fmt.Sprintf("How many %s should be generated? [Press Enter for %d]", target.Name, target.DefaultCount))
	if err != nil {
		return 0, err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return target.DefaultCount, nil
	}
	n, err := strconv.Atoi(answer)
	if err != nil || n < 1 {
		r.op.Warn(fmt.Sprintf("Invalid count %q, using %d.", answer, target.DefaultCount))
		return target.DefaultCount, nil
	}
	return n, nil
}

func (r *Runner) keep(given *string, target Target) (string, error) {
	if given != nil {
		return *given, nil
	}
	return r.op.Ask(fmt.Sprintf("Which %s should be added to the review? (comma-separated, e.g. 1,2,4)", target.Name))
}

// ParseKept turns a comma-separated list of 1-based indices into a sorted
// set of valid indices. Out-of-range and unparseable tokens are dropped
// with one warning each; empty tokens are ignored.
func ParseKept(input string, itemCount int) (kept []int, warnings []string) {
	seen := make(map[int]bool)
	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 1 || n > itemCount {
			warnings = append(warnings, fmt.Sprintf("Invalid selection: %q (must be between 1 and %d). Ignoring.", part, itemCount))
			continue
		}
		if !seen[n] {
			seen[n] = true
			kept = append(kept, n)
		}
	}
	slices.Sort(kept)
	return kept, warnings
}
