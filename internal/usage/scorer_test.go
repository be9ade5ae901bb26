package usage

import (
	"math"
	"testing"
	"time"

	"github.com/slrkit/slrkit/internal/storage"
)

func logAt(modelID int64, phase storage.Phase, at time.Time) storage.QueryLog {
	id := modelID
	return storage.QueryLog{ModelID: &id, Phase: phase, CreatedAt: at}
}

func TestScore_EmptyHistory(t *testing.T) {
	if score := Score(nil, time.Now()); score != 0.0 {
		t.Errorf("expected score 0.0 for empty history, got %f", score)
	}
}

func TestCalculateFrequency(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name    string
		history []storage.QueryLog
		want    float64
	}{
		{"within window", []storage.QueryLog{
			logAt(1, 1, now.Add(-time.Hour)),
			logAt(1, 1, now.Add(-2*time.Hour)),
			logAt(1, 1, now.Add(-24*time.Hour)),
		}, 3.0 / frequencyCeiling},
		{"outside window", []storage.QueryLog{logAt(1, 1, now.Add(-8*24*time.Hour))}, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := calculateFrequency(tt.history, now); math.Abs(got-tt.want) > 0.001 {
				t.Errorf("expected frequency ~%f, got %f", tt.want, got)
			}
		})
	}

	var many []storage.QueryLog
	for i := 0; i < 80; i++ {
		many = append(many, logAt(1, 1, now.Add(-time.Minute)))
	}
	if got := calculateFrequency(many, now); got != 1.0 {
		t.Errorf("expected frequency capped at 1.0, got %f", got)
	}
}

func TestCalculateRecency_ExponentialDecay(t *testing.T) {
	now := time.Now()
	recent := calculateRecency([]storage.QueryLog{logAt(1, 1, now)}, now)
	dayOld := calculateRecency([]storage.QueryLog{logAt(1, 1, now.Add(-24*time.Hour))}, now)

	if math.Abs(recent-1.0) > 0.001 {
		t.Errorf("expected recency ~1.0 for a fresh exchange, got %f", recent)
	}
	if math.Abs(dayOld-0.5) > 0.01 {
		t.Errorf("expected recency ~0.5 after one half-life, got %f", dayOld)
	}
}

func TestSummarize(t *testing.T) {
	now := time.Now()
	models := []storage.Model{
		{ID: 1, ProviderName: "ollama", Name: "llama3"},
		{ID: 2, ProviderName: "anthropic", Name: "claude"},
		{ID: 3, ProviderName: "gemini", Name: "flash"},
	}
	logs := []storage.QueryLog{
		logAt(2, storage.PhaseProblemFormulation, now.Add(-time.Hour)),
		logAt(2, storage.PhaseQueryStringDefinition, now.Add(-2*time.Hour)),
		logAt(1, storage.PhaseProblemFormulation, now.Add(-10*24*time.Hour)),
		{Phase: storage.PhaseProblemFormulation, CreatedAt: now}, // deleted model
	}

	stats := Summarize(models, logs, now)
	if len(stats) != 3 {
		t.Fatalf("expected 3 stats, got %d", len(stats))
	}

	order := []int64{stats[0].Model.ID, stats[1].Model.ID, stats[2].Model.ID}
	if order[0] != 2 || order[1] != 1 || order[2] != 3 {
		t.Errorf("unexpected ranking %v", order)
	}

	top := stats[0]
	if top.Exchanges != 2 || top.Recent != 2 {
		t.Errorf("expected 2 exchanges, 2 recent; got %d, %d", top.Exchanges, top.Recent)
	}
	if top.ByPhase[storage.PhaseProblemFormulation] != 1 || top.ByPhase[storage.PhaseQueryStringDefinition] != 1 {
		t.Errorf("unexpected phase breakdown %v", top.ByPhase)
	}
	if !top.LastUsed.Equal(now.Add(-time.Hour)) {
		t.Errorf("unexpected last used %v", top.LastUsed)
	}

	if stats[1].Recent != 0 || stats[1].Exchanges != 1 {
		t.Errorf("old exchange should count overall but not recently: %+v", stats[1])
	}
	if stats[2].Exchanges != 0 || !stats[2].LastUsed.IsZero() {
		t.Errorf("unused model should have no history: %+v", stats[2])
	}
}
