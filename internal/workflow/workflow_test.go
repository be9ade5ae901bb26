package workflow

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/slrkit/slrkit/internal/llm"
	"github.com/slrkit/slrkit/internal/segment"
	"github.com/slrkit/slrkit/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedOperator answers menus and questions from fixed queues and
// records everything shown to it.
type scriptedOperator struct {
	choices  []string
	answers  []string
	shown    []string
	infos    []string
	warnings []string
}

func (o *scriptedOperator) Choose(menu Menu) (string, error) {
	if len(o.choices) == 0 {
		return "", errors.New("unexpected menu: " + menu.Title)
	}
	c := o.choices[0]
	o.choices = o.choices[1:]
	return c, nil
}

func (o *scriptedOperator) Ask(question string) (string, error) {
	if len(o.answers) == 0 {
		return "", errors.New("unexpected question: " + question)
	}
	a := o.answers[0]
	o.answers = o.answers[1:]
	return a, nil
}

func (o *scriptedOperator) ShowItems(title string, items []string) { o.shown = items }
func (o *scriptedOperator) Info(msg string)                        { o.infos = append(o.infos, msg) }
func (o *scriptedOperator) Warn(msg string)                        { o.warnings = append(o.warnings, msg) }

// fakeSender returns a canned response and counts calls.
type fakeSender struct {
	response string
	err      error
	calls    int
	prompts  []string
}

func (s *fakeSender) Send(ctx context.Context, model storage.Model, prompt string) (string, error) {
	s.calls++
	s.prompts = append(s.prompts, prompt)
	return s.response, s.err
}

type fixture struct {
	store  *storage.SQLiteStorage
	review *storage.Review
	model  *storage.Model
}

func newFixture(t *testing.T, providerName string) *fixture {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "slrkit.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	review, err := store.CreateReview("DevProd", "")
	require.NoError(t, err)
	provider, err := store.CreateProvider(providerName, "", "")
	require.NoError(t, err)
	model, err := store.CreateModel(storage.Model{ProviderID: provider.ID, Name: "deepseek-r1"})
	require.NoError(t, err)

	return &fixture{store: store, review: review, model: model}
}

func (f *fixture) logs(t *testing.T) []storage.QueryLog {
	t.Helper()
	logs, err := f.store.ListQueryLogs(&f.review.ID)
	require.NoError(t, err)
	return logs
}

func (f *fixture) questions(t *testing.T) []storage.ResearchQuestion {
	t.Helper()
	qs, err := f.store.ListResearchQuestions(f.review.ID)
	require.NoError(t, err)
	return qs
}

func str(s string) *string { return &s }

const fiveTagged = `--1-- First question?
--2-- Second question?
--3-- Third question
spanning two lines?
--4-- Fourth question?
--5-- Fifth question?`

func TestScenarioNumberedResearchQuestion(t *testing.T) {
	f := newFixture(t, "ollama")
	sender := &fakeSender{response: "1. How does X affect Y?\n2. What role does Z play?"}
	op := &scriptedOperator{}

	res, err := New(f.store, sender, op, nil).Run(context.Background(), ResearchQuestions, Request{
		ReviewID: f.review.ID,
		ModelID:  f.model.ID,
		Topic:    str("developer productivity metrics"),
		Count:    2,
		Keep:     str("1"),
		Strategy: segment.NumberedLines{},
	})
	require.NoError(t, err)

	assert.Equal(t, Persisted, res.State)
	assert.Equal(t, []string{"How does X affect Y?", "What role does Z play?"}, res.Items)
	assert.Equal(t, 1, res.Created)

	qs := f.questions(t)
	require.Len(t, qs, 1)
	assert.Equal(t, "How does X affect Y?", qs[0].Text)

	logs := f.logs(t)
	require.Len(t, logs, 1)
	assert.Equal(t, storage.PhaseProblemFormulation, logs[0].Phase)
	assert.Equal(t, sender.response, logs[0].Response)
	assert.Equal(t, sender.prompts[0], logs[0].Prompt)
	assert.Contains(t, logs[0].Prompt, "developer productivity metrics")
	assert.Contains(t, logs[0].Prompt, "1. <Question #1>")
}

func TestKeepSubsetMaterializesVerbatim(t *testing.T) {
	f := newFixture(t, "ollama")
	op := &scriptedOperator{}

	res, err := New(f.store, &fakeSender{response: fiveTagged}, op, nil).Run(context.Background(), ResearchQuestions, Request{
		ReviewID: f.review.ID,
		ModelID:  f.model.ID,
		Topic:    str("topic"),
		Count:    5,
		Keep:     str("3, 1,3"),
	})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 3}, res.Kept)
	assert.Equal(t, 2, res.Created)
	assert.Len(t, op.shown, 5)

	qs := f.questions(t)
	require.Len(t, qs, 2)
	assert.Equal(t, "First question?", qs[0].Text)
	assert.Equal(t, "Third question spanning two lines?", qs[1].Text)
	assert.Len(t, f.logs(t), 1)
}

func TestEmptyKeepStillLogsOnce(t *testing.T) {
	f := newFixture(t, "ollama")
	op := &scriptedOperator{}

	res, err := New(f.store, &fakeSender{response: fiveTagged}, op, nil).Run(context.Background(), ResearchQuestions, Request{
		ReviewID: f.review.ID,
		ModelID:  f.model.ID,
		Topic:    str("topic"),
		Count:    5,
		Keep:     str(""),
	})
	require.NoError(t, err)

	assert.Equal(t, Persisted, res.State)
	assert.Zero(t, res.Created)
	assert.Empty(t, f.questions(t))
	assert.Len(t, f.logs(t), 1)
	require.NotEmpty(t, op.warnings)
	assert.Contains(t, op.warnings[len(op.warnings)-1], "None will be saved")
}

func TestOutOfRangeIndicesAreDroppedWithWarning(t *testing.T) {
	f := newFixture(t, "ollama")
	op := &scriptedOperator{}

	res, err := New(f.store, &fakeSender{response: fiveTagged}, op, nil).Run(context.Background(), ResearchQuestions, Request{
		ReviewID: f.review.ID,
		ModelID:  f.model.ID,
		Topic:    str("topic"),
		Count:    5,
		Keep:     str("0,2,6"),
	})
	require.NoError(t, err)

	assert.Equal(t, []int{2}, res.Kept)
	assert.Equal(t, 1, res.Created)
	assert.Len(t, op.warnings, 2)
	qs := f.questions(t)
	require.Len(t, qs, 1)
	assert.Equal(t, "Second question?", qs[0].Text)
}

func TestParseEmptyWarnsAndKeepsLog(t *testing.T) {
	f := newFixture(t, "ollama")
	op := &scriptedOperator{}

	res, err := New(f.store, &fakeSender{response: "I cannot help with that."}, op, nil).Run(context.Background(), ResearchQuestions, Request{
		ReviewID: f.review.ID,
		ModelID:  f.model.ID,
		Topic:    str("topic"),
		Count:    3,
	})
	require.NoError(t, err)

	assert.True(t, res.ParseEmpty)
	assert.Equal(t, Persisted, res.State)
	assert.Empty(t, f.questions(t))
	assert.Len(t, f.logs(t), 1)
	require.Len(t, op.warnings, 1)
	assert.Contains(t, op.warnings[0], "could be parsed")
}

func TestEmptyTopicAborts(t *testing.T) {
	f := newFixture(t, "ollama")
	sender := &fakeSender{response: fiveTagged}
	op := &scriptedOperator{answers: []string{"   "}}

	res, err := New(f.store, sender, op, nil).Run(context.Background(), ResearchQuestions, Request{
		ReviewID: f.review.ID,
		ModelID:  f.model.ID,
	})

	assert.ErrorIs(t, err, ErrAborted)
	assert.Equal(t, Aborted, res.State)
	assert.Zero(t, sender.calls)
	assert.Empty(t, f.logs(t))
}

func TestUnsupportedProviderWritesNoLog(t *testing.T) {
	f := newFixture(t, "openai")
	client := llm.NewClient(llm.Options{})

	res, err := New(f.store, client, &scriptedOperator{}, nil).Run(context.Background(), ResearchQuestions, Request{
		ReviewID: f.review.ID,
		ModelID:  f.model.ID,
		Topic:    str("topic"),
		Count:    3,
		Keep:     str("1"),
	})

	assert.ErrorIs(t, err, llm.ErrProviderUnsupported)
	assert.Equal(t, Aborted, res.State)
	assert.Empty(t, f.logs(t))
}

func TestRequestFailureWritesNoLog(t *testing.T) {
	f := newFixture(t, "ollama")
	sender := &fakeSender{err: llm.ErrRequestFailed}

	_, err := New(f.store, sender, &scriptedOperator{}, nil).Run(context.Background(), SearchQueries, Request{
		ReviewID: f.review.ID,
		ModelID:  f.model.ID,
		Topic:    str("topic"),
		Count:    3,
	})

	assert.ErrorIs(t, err, llm.ErrRequestFailed)
	assert.Equal(t, 1, sender.calls)
	assert.Empty(t, f.logs(t))
}

func TestInteractiveMenusAndDefaults(t *testing.T) {
	f := newFixture(t, "ollama")
	sender := &fakeSender{response: "Here you go:\n1. \"metrics\" AND \"developer\"\n2. productivity OR output\n3. DORA AND metrics"}
	op := &scriptedOperator{
		choices: []string{"1", " 1 "},
		answers: []string{"developer productivity", "", "2,3"},
	}

	res, err := New(f.store, sender, op, nil).Run(context.Background(), SearchQueries, Request{})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Created)
	assert.Contains(t, sender.prompts[0], "generate 3 advanced boolean search queries")

	queries, err := f.store.ListSearchQueries(f.review.ID)
	require.NoError(t, err)
	require.Len(t, queries, 2)
	assert.Equal(t, "productivity OR output", queries[0].QueryString)

	logs := f.logs(t)
	require.Len(t, logs, 1)
	assert.Equal(t, storage.PhaseQueryStringDefinition, logs[0].Phase)
	assert.Equal(t, "ollama - deepseek-r1", logs[0].ModelLabel)
}

func TestInvalidMenuChoiceAborts(t *testing.T) {
	f := newFixture(t, "ollama")
	sender := &fakeSender{response: fiveTagged}

	for _, choice := range []string{"0", "2", "abc"} {
		t.Run(choice, func(t *testing.T) {
			op := &scriptedOperator{choices: []string{choice}}
			res, err := New(f.store, sender, op, nil).Run(context.Background(), ResearchQuestions, Request{
				Topic: str("topic"),
				Count: 3,
			})
			assert.ErrorIs(t, err, ErrValidation)
			assert.Equal(t, Aborted, res.State)
		})
	}
	assert.Zero(t, sender.calls)
}

func TestMissingReviewIsNotFound(t *testing.T) {
	f := newFixture(t, "ollama")

	_, err := New(f.store, &fakeSender{}, &scriptedOperator{}, nil).Run(context.Background(), ResearchQuestions, Request{
		ReviewID: 999,
		ModelID:  f.model.ID,
		Topic:    str("topic"),
	})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestInvalidCountFallsBackToDefault(t *testing.T) {
	f := newFixture(t, "ollama")
	sender := &fakeSender{response: fiveTagged}
	op := &scriptedOperator{answers: []string{"many"}}

	_, err := New(f.store, sender, op, nil).Run(context.Background(), ResearchQuestions, Request{
		ReviewID: f.review.ID,
		ModelID:  f.model.ID,
		Topic:    str("topic"),
		Keep:     str(""),
	})
	require.NoError(t, err)
	assert.Contains(t, sender.prompts[0], "generate 10 possible research questions")
	assert.True(t, strings.Contains(op.warnings[0], "Invalid count"))
}

func TestParseKept(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		count        int
		want         []int
		wantWarnings int
	}{
		{"empty", "", 5, nil, 0},
		{"single", "1", 5, []int{1}, 0},
		{"sorted and deduplicated", "3, 1,3,1", 5, []int{1, 3}, 0},
		{"boundaries", "0,1,5,6", 5, []int{1, 5}, 2},
		{"garbage token", "2,x, 4", 5, []int{2, 4}, 1},
		{"empty tokens ignored", ",,2,", 5, []int{2}, 0},
		{"negative", "-1", 5, nil, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, warnings := ParseKept(tt.input, tt.count)
			assert.Equal(t, tt.want, got)
			assert.Len(t, warnings, tt.wantWarnings)
		})
	}
}

func TestPromptsAskForChosenFormat(t *testing.T) {
	in := PromptInput{Topic: "t", Count: 4, Format: "tagged"}
	assert.Contains(t, ResearchQuestions.Prompt(in), "--1-- <Question #1>")
	assert.Contains(t, ResearchQuestions.Prompt(in), "(Up to --4--)")

	in.Format = "numbered"
	p := ResearchQuestions.Prompt(in)
	assert.Contains(t, p, "1. <Question #1>")
	assert.Contains(t, p, "1. How do researchers design")
	assert.NotContains(t, p, "--1--")
}
