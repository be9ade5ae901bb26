/*
Package usage summarises how registered models have been used, from the
query log.

A model's score blends how often it was called in the last week with how
recently it was called, so the models an operator actually relies on sort
first.
*/
package usage

import (
	"math"
	"sort"
	"time"

	"github.com/slrkit/slrkit/internal/storage"
)

const (
	// frequencyWeight is the weight for frequency in the score (0.7 = 70%).
	frequencyWeight = 0.7

	// recencyWeight is the weight for recency in the score (0.3 = 30%).
	recencyWeight = 0.3

	// frequencyWindow is the time window to consider for frequency (7 days).
	frequencyWindow = 7 * 24 * time.Hour

	// recencyHalfLife is the half-life for exponential decay (24 hours).
	recencyHalfLife = 24 * time.Hour

	// frequencyCeiling is the call count treated as maximal frequency.
	frequencyCeiling = 50.0
)

// Stat summarises one model's exchanges.
type Stat struct {
	Model     storage.Model
	Exchanges int
	Recent    int
	LastUsed  time.Time
	ByPhase   map[storage.Phase]int
	Score     float64
}

// Score calculates a score from one model's exchanges.
// Formula: 0.7*frequency + 0.3*recency
func Score(history []storage.QueryLog, now time.Time) float64 {
	if len(history) == 0 {
		return 0.0
	}
	return frequencyWeight*calculateFrequency(history, now) + recencyWeight*calculateRecency(history, now)
}

// calculateFrequency counts exchanges in the last 7 days (normalized 0-1).
func calculateFrequency(history []storage.QueryLog, now time.Time) float64 {
	windowStart := now.Add(-frequencyWindow)
	count := 0
	for _, entry := range history {
		if entry.CreatedAt.After(windowStart) {
			count++
		}
	}
	return math.Min(float64(count)/frequencyCeiling, 1.0)
}

// calculateRecency averages an exponential decay over exchange ages
// (normalized 0-1). After 24 hours an exchange weighs 0.5.
func calculateRecency(history []storage.QueryLog, now time.Time) float64 {
	if len(history) == 0 {
		return 0.0
	}
	weightedSum := 0.0
	for _, entry := range history {
		hoursSince := math.Max(now.Sub(entry.CreatedAt).Hours(), 0)
		weightedSum += math.Exp(-math.Ln2 * hoursSince / recencyHalfLife.Hours())
	}
	return math.Min(weightedSum/float64(len(history)), 1.0)
}

// Summarize builds one Stat per model, sorted by score (descending), then
// by model id. Exchanges whose model was deleted are not attributed.
func Summarize(models []storage.Model, logs []storage.QueryLog, now time.Time) []Stat {
	byModel := make(map[int64][]storage.QueryLog)
	for _, entry := range logs {
		if entry.ModelID != nil {
			byModel[*entry.ModelID] = append(byModel[*entry.ModelID], entry)
		}
	}

	stats := make([]Stat, 0, len(models))
	for _, m := range models {
		history := byModel[m.ID]
		st := Stat{
			Model:     m,
			Exchanges: len(history),
			ByPhase:   make(map[storage.Phase]int),
			Score:     Score(history, now),
		}
		for _, entry := range history {
			st.ByPhase[entry.Phase]++
			if entry.CreatedAt.After(now.Add(-frequencyWindow)) {
				st.Recent++
			}
			if entry.CreatedAt.After(st.LastUsed) {
				st.LastUsed = entry.CreatedAt
			}
		}
		stats = append(stats, st)
	}

	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].Score != stats[j].Score {
			return stats[i].Score > stats[j].Score
		}
		return stats[i].Model.ID < stats[j].Model.ID
	})
	return stats
}
