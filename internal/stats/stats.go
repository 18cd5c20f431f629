// Package stats tracks per-stream metrics (time to first chunk, stream
// duration, chunk count, success/failure) and persists them to
// ~/.ochat/stats.json.
package stats

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/arin/ollama-chat/internal/config"
)

const (
	fileName   = "stats.json"
	maxRecords = 1000
)

// Record is a single streamed response.
type Record struct {
	Timestamp   time.Time     `json:"timestamp"`
	SessionID   string        `json:"session_id,omitempty"`
	Model       string        `json:"model"`
	FirstChunk  time.Duration `json:"first_chunk_ms"`
	Elapsed     time.Duration `json:"elapsed_ms"`
	Chunks      int           `json:"chunks"`
	Skipped     int           `json:"skipped,omitempty"`
	AnswerChars int           `json:"answer_chars"`
	Thinking    bool          `json:"thinking"`
	Success     bool          `json:"success"`
	Cancelled   bool          `json:"cancelled,omitempty"`
	Frontend    string        `json:"frontend,omitempty"` // "tui", "chat", "ask"
}

// Summary is the aggregated stats dashboard.
type Summary struct {
	TotalStreams      int            `json:"total_streams"`
	SuccessRate       float64        `json:"success_rate"`
	Cancelled         int            `json:"cancelled"`
	AvgFirstChunkMs   int64          `json:"avg_first_chunk_ms"`
	AvgElapsedMs      int64          `json:"avg_elapsed_ms"`
	ThinkingShare     float64        `json:"thinking_share"`
	FrontendBreakdown map[string]int `json:"frontend_breakdown"`
	Models            []ModelSummary `json:"models"`
	TodayCount        int            `json:"today_count"`
	ThisWeekCount     int            `json:"this_week_count"`
}

// ModelSummary is the per-model part of a Summary.
type ModelSummary struct {
	Model           string  `json:"model"`
	Streams         int     `json:"streams"`
	SuccessRate     float64 `json:"success_rate"`
	AvgFirstChunkMs int64   `json:"avg_first_chunk_ms"`
	AvgElapsedMs    int64   `json:"avg_elapsed_ms"`
}

var fileMu sync.Mutex

func statsPath() string {
	return filepath.Join(config.Dir(), fileName)
}

// Save appends a new record to the stats file.
func Save(r Record) error {
	fileMu.Lock()
	defer fileMu.Unlock()

	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	// Store durations as milliseconds for readability.
	r.FirstChunk = r.FirstChunk / time.Millisecond
	r.Elapsed = r.Elapsed / time.Millisecond

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
	return summarize(records, time.Now()), nil
}

func summarize(records []Record, now time.Time) *Summary {
	s := &Summary{FrontendBreakdown: map[string]int{}}
	if len(records) == 0 {
		return s
	}
	s.TotalStreams = len(records)

	type acc struct {
		streams, ok, firstCount int
		first, elapsed          int64
	}
	var all acc
	var thinking int
	perModel := map[string]*acc{}

	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	weekAgo := now.AddDate(0, 0, -7)

	for _, r := range records {
		ma := perModel[r.Model]
		if ma == nil {
			ma = &acc{}
			perModel[r.Model] = ma
		}
		for _, a := range []*acc{&all, ma} {
			a.streams++
			a.elapsed += int64(r.Elapsed)
			if r.Success {
				a.ok++
			}
			// Streams that never produced output have no first-chunk time.
			if r.Chunks > 0 {
				a.first += int64(r.FirstChunk)
				a.firstCount++
			}
		}
		if r.Cancelled {
			s.Cancelled++
		}
		if r.Thinking {
			thinking++
		}
		if r.Frontend != "" {
			s.FrontendBreakdown[r.Frontend]++
		}
		if !r.Timestamp.Before(today) {
			s.TodayCount++
		}
		if r.Timestamp.After(weekAgo) {
			s.ThisWeekCount++
		}
	}

	s.SuccessRate = pct(all.ok, all.streams)
	s.ThinkingShare = pct(thinking, all.streams)
	s.AvgElapsedMs = all.elapsed / int64(all.streams)
	if all.firstCount > 0 {
		s.AvgFirstChunkMs = all.first / int64(all.firstCount)
	}

	for model, a := range perModel {
		ms := ModelSummary{
			Model:        model,
			Streams:      a.streams,
			SuccessRate:  pct(a.ok, a.streams),
			AvgElapsedMs: a.elapsed / int64(a.streams),
		}
		if a.firstCount > 0 {
			ms.AvgFirstChunkMs = a.first / int64(a.firstCount)
		}
		s.Models = append(s.Models, ms)
	}
	sort.Slice(s.Models, func(i, j int) bool {
		if s.Models[i].Streams != s.Models[j].Streams {
			return s.Models[i].Streams > s.Models[j].Streams
		}
		return s.Models[i].Model < s.Models[j].Model
	})

	return s
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}
