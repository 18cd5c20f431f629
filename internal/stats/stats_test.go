package stats

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/arin/ollama-chat/internal/config"
)

func setupTestDir(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
}

func TestSaveAndLoadAll(t *testing.T) {
	setupTestDir(t)

	err := Save(Record{
		Model:      "deepseek-r1:14b",
		FirstChunk: 1500 * time.Millisecond,
		Elapsed:    4 * time.Second,
		Chunks:     42,
		Thinking:   true,
		Success:    true,
		Frontend:   "tui",
	})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	records, err := LoadAll()
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	r := records[0]
	if r.Model != "deepseek-r1:14b" || r.Chunks != 42 {
		t.Errorf("unexpected record: %+v", r)
	}
	// Durations are persisted as plain milliseconds.
	if r.FirstChunk != 1500 || r.Elapsed != 4000 {
		t.Errorf("expected millisecond values, got first=%d elapsed=%d", r.FirstChunk, r.Elapsed)
	}
	if r.Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
}

func TestSave_CapsRecords(t *testing.T) {
	setupTestDir(t)

	// Seed the file directly so the test does not rewrite it a thousand times.
	seed := make([]Record, maxRecords)
	for i := range seed {
		seed[i] = Record{Model: "old", Success: true}
	}
	if err := os.MkdirAll(config.Dir(), 0o700); err != nil {
		t.Fatal(err)
	}
	data, _ := json.Marshal(seed)
	if err := os.WriteFile(statsPath(), data, 0o600); err != nil {
		t.Fatal(err)
	}

	if err := Save(Record{Model: "new", Success: true}); err != nil {
		t.Fatal(err)
	}

	records, _ := LoadAll()
	if len(records) != maxRecords {
		t.Fatalf("expected %d records, got %d", maxRecords, len(records))
	}
	if records[len(records)-1].Model != "new" {
		t.Error("expected newest record to be kept")
	}
}

func TestLoadAll_NoFile(t *testing.T) {
	setupTestDir(t)

	records, err := LoadAll()
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if records != nil {
		t.Errorf("expected nil records, got %v", records)
	}
}

func TestSummarize_Empty(t *testing.T) {
	setupTestDir(t)

	s, err := Summarize()
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if s.TotalStreams != 0 {
		t.Errorf("expected 0 streams, got %d", s.TotalStreams)
	}
	if s.FrontendBreakdown == nil {
		t.Error("expected non-nil breakdown map")
	}
}

func TestSummarize_PerModel(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	records := []Record{
		{Timestamp: now.Add(-time.Hour), Model: "deepseek-r1:14b", FirstChunk: 1000, Elapsed: 5000, Chunks: 10, Thinking: true, Success: true, Frontend: "tui"},
		{Timestamp: now.Add(-2 * time.Hour), Model: "deepseek-r1:14b", FirstChunk: 3000, Elapsed: 7000, Chunks: 10, Thinking: true, Success: true, Frontend: "tui"},
		{Timestamp: now.AddDate(0, 0, -3), Model: "llama3:8b", Elapsed: 100, Success: false, Frontend: "ask"},
		{Timestamp: now.AddDate(0, 0, -30), Model: "deepseek-r1:14b", FirstChunk: 2000, Elapsed: 3000, Chunks: 3, Cancelled: true, Frontend: "chat"},
	}

	s := summarize(records, now)

	if s.TotalStreams != 4 {
		t.Errorf("expected 4 streams, got %d", s.TotalStreams)
	}
	if s.SuccessRate != 50 {
		t.Errorf("expected 50%% success, got %.1f", s.SuccessRate)
	}
	if s.ThinkingShare != 50 {
		t.Errorf("expected 50%% thinking, got %.1f", s.ThinkingShare)
	}
	if s.Cancelled != 1 {
		t.Errorf("expected 1 cancelled, got %d", s.Cancelled)
	}
	// The llama3 stream failed before any chunk and is left out of the average.
	if s.AvgFirstChunkMs != 2000 {
		t.Errorf("expected avg first chunk 2000, got %d", s.AvgFirstChunkMs)
	}
	if s.TodayCount != 2 || s.ThisWeekCount != 3 {
		t.Errorf("unexpected today/week counts: %d/%d", s.TodayCount, s.ThisWeekCount)
	}
	if s.FrontendBreakdown["tui"] != 2 {
		t.Errorf("expected 2 tui streams, got %d", s.FrontendBreakdown["tui"])
	}

	if len(s.Models) != 2 {
		t.Fatalf("expected 2 models, got %d", len(s.Models))
	}
	top := s.Models[0]
	if top.Model != "deepseek-r1:14b" || top.Streams != 3 {
		t.Errorf("expected deepseek first with 3 streams, got %+v", top)
	}
	if top.AvgElapsedMs != 5000 {
		t.Errorf("expected avg elapsed 5000, got %d", top.AvgElapsedMs)
	}
	if s.Models[1].SuccessRate != 0 || s.Models[1].AvgFirstChunkMs != 0 {
		t.Errorf("unexpected llama3 summary: %+v", s.Models[1])
	}
}
