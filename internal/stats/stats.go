// Package stats tracks per-turn metrics (latency, fragment counts, outcome)
// and persists them to ~/.gallery-chat/stats.json. Message text is never
// recorded.
package stats

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/arin/gallery-chat/internal/chat"
	"github.com/arin/gallery-chat/internal/config"
)

const (
	fileName   = "stats.json"
	maxRecords = 1000
)

// Record is a single instrumented turn.
type Record struct {
	Timestamp       time.Time `json:"timestamp"`
	Surface         string    `json:"surface"` // "chat", "ask" or "serve"
	Provider        string    `json:"provider"`
	Model           string    `json:"model"`
	Outcome         string    `json:"outcome"`
	Fragments       int       `json:"fragments"`
	Chars           int       `json:"chars"`
	FirstFragmentMs int64     `json:"first_fragment_ms,omitempty"`
	DurationMs      int64     `json:"duration_ms"`
}

// Summary is the aggregated stats dashboard.
type Summary struct {
	TotalTurns         int            `json:"total_turns"`
	CompletionRate     float64        `json:"completion_rate"`
	AvgFirstFragmentMs int64          `json:"avg_first_fragment_ms"`
	AvgDurationMs      int64          `json:"avg_duration_ms"`
	AvgFragments       float64        `json:"avg_fragments"`
	OutcomeBreakdown   map[string]int `json:"outcome_breakdown"`
	SurfaceBreakdown   map[string]int `json:"surface_breakdown"`
	TopModels          []ModelCount   `json:"top_models"`
	TodayCount         int            `json:"today_count"`
	ThisWeekCount      int            `json:"this_week_count"`
}

// ModelCount pairs a provider/model with its usage count.
type ModelCount struct {
	Model string `json:"model"`
	Count int    `json:"count"`
}

// FromTurn builds a record from a finished turn.
func FromTurn(r chat.TurnReport, surface string, cfg *config.Config) Record {
	rec := Record{
		Surface:    surface,
		Outcome:    r.Outcome.String(),
		Fragments:  r.Fragments,
		Chars:      r.Chars,
		DurationMs: r.Duration.Milliseconds(),
	}
	if r.FirstFragment > 0 {
		rec.FirstFragmentMs = r.FirstFragment.Milliseconds()
	}
	if cfg != nil {
		rec.Provider = cfg.Provider
		rec.Model = cfg.Model
	}
	return rec
}

var fileMu sync.Mutex

func statsPath() string {
	return filepath.Join(config.Dir(), fileName)
}

// Save appends a new record to the stats file.
func Save(r Record) error {
	fileMu.Lock()
	defer fileMu.Unlock()

	r.Timestamp = time.Now()

	records, _ := loadAll()
	records = append(records, r)

	if len(records) > maxRecords {
		records = records[len(records)-maxRecords:]
	}

	if err := os.MkdirAll(config.Dir(), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(statsPath(), data, 0o600)
}

// LoadAll returns all stored records.
func LoadAll() ([]Record, error) {
	fileMu.Lock()
	defer fileMu.Unlock()
	return loadAll()
}

func loadAll() ([]Record, error) {
	data, err := os.ReadFile(statsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Summarize computes aggregated stats from all records.
func Summarize() (*Summary, error) {
	records, err := LoadAll()
	if err != nil {
		return nil, err
	}

	s := &Summary{
		TotalTurns:       len(records),
		OutcomeBreakdown: map[string]int{},
		SurfaceBreakdown: map[string]int{},
	}
	if len(records) == 0 {
		return s, nil
	}

	var totalFirst, totalDuration int64
	var firstCount, completed, fragments int
	modelFreq := map[string]int{}
	now := time.Now()
	today := now.Truncate(24 * time.Hour)
	weekAgo := now.AddDate(0, 0, -7)

	for _, r := range records {
		if r.Outcome == chat.OutcomeCompleted.String() {
			completed++
		}
		if r.FirstFragmentMs > 0 {
			totalFirst += r.FirstFragmentMs
			firstCount++
		}
		totalDuration += r.DurationMs
		fragments += r.Fragments
		if r.Outcome != "" {
			s.OutcomeBreakdown[r.Outcome]++
		}
		if r.Surface != "" {
			s.SurfaceBreakdown[r.Surface]++
		}
		if r.Model != "" {
			modelFreq[r.Provider+"/"+r.Model]++
		}
		if r.Timestamp.After(today) {
			s.TodayCount++
		}
		if r.Timestamp.After(weekAgo) {
			s.ThisWeekCount++
		}
	}

	s.CompletionRate = float64(completed) / float64(len(records)) * 100
	s.AvgDurationMs = totalDuration / int64(len(records))
	s.AvgFragments = float64(fragments) / float64(len(records))
	if firstCount > 0 {
		s.AvgFirstFragmentMs = totalFirst / int64(firstCount)
	}

	s.TopModels = topN(modelFreq, 5)

	return s, nil
}

func topN(freq map[string]int, n int) []ModelCount {
	var all []ModelCount
	for model, count := range freq {
		all = append(all, ModelCount{Model: model, Count: count})
	}
	// Simple selection sort for small N.
	for i := 0; i < len(all) && i < n; i++ {
		maxIdx := i
		for j := i + 1; j < len(all); j++ {
			if all[j].Count > all[maxIdx].Count {
				maxIdx = j
			}
		}
		all[i], all[maxIdx] = all[maxIdx], all[i]
	}
	if len(all) > n {
		all = all[:n]
	}
	return all
}
