package history

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/arin/ollama-chat/internal/chat"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_PutGet(t *testing.T) {
	s := openTestStore(t)

	err := s.Put(Record{ID: "abc-123", Model: "deepseek-r1:14b", Messages: conversation()})
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	rec, err := s.Get("abc-123")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if rec.Model != "deepseek-r1:14b" || len(rec.Messages) != 2 {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.Title != "What is 2+2?" {
		t.Errorf("expected title from first user message, got %q", rec.Title)
	}
	if rec.CreatedAt.IsZero() || rec.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
}

func TestStore_PutKeepsCreatedAt(t *testing.T) {
	s := openTestStore(t)
	first := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	s.Put(Record{ID: "x", UpdatedAt: first, Messages: conversation()[:1]})
	s.Put(Record{ID: "x", UpdatedAt: first.Add(time.Hour), Messages: conversation()})

	rec, err := s.Get("x")
	if err != nil {
		t.Fatal(err)
	}
	if !rec.CreatedAt.Equal(first) {
		t.Errorf("expected CreatedAt %v, got %v", first, rec.CreatedAt)
	}
	if len(rec.Messages) != 2 {
		t.Errorf("expected updated messages, got %d", len(rec.Messages))
	}
}

func TestStore_GetByPrefix(t *testing.T) {
	s := openTestStore(t)
	s.Put(Record{ID: "aaaa-1111"})
	s.Put(Record{ID: "aaaa-2222"})
	s.Put(Record{ID: "bbbb-3333"})

	rec, err := s.Get("bbbb")
	if err != nil {
		t.Fatalf("expected unique prefix to match: %v", err)
	}
	if rec.ID != "bbbb-3333" {
		t.Errorf("unexpected record %q", rec.ID)
	}

	if _, err := s.Get("aaaa"); err == nil || !strings.Contains(err.Error(), "ambiguous") {
		t.Errorf("expected ambiguous error, got %v", err)
	}
	if _, err := s.Get("cccc"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_ListNewestFirst(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "newest", "middle"} {
		offsets := []time.Duration{0, 2 * time.Hour, time.Hour}
		if err := s.Put(Record{ID: id, UpdatedAt: base.Add(offsets[i])}); err != nil {
			t.Fatal(err)
		}
	}

	recs, err := s.List(0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	var ids []string
	for _, r := range recs {
		ids = append(ids, r.ID)
	}
	if strings.Join(ids, ",") != "newest,middle,old" {
		t.Errorf("unexpected order %v", ids)
	}

	recs, _ = s.List(2)
	if len(recs) != 2 {
		t.Errorf("expected limit 2, got %d", len(recs))
	}
}

func TestStore_Delete(t *testing.T) {
	s := openTestStore(t)
	s.Put(Record{ID: "gone"})

	if err := s.Delete("gone"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Get("gone"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Delete("never-existed"); err != nil {
		t.Errorf("deleting unknown id should not fail: %v", err)
	}
}

func TestStore_PutRequiresID(t *testing.T) {
	s := openTestStore(t)
	var perr *PersistenceError
	if err := s.Put(Record{}); !errors.As(err, &perr) {
		t.Errorf("expected PersistenceError, got %v", err)
	}
}

func TestStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	s.Put(Record{ID: "kept", Messages: conversation()})
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if _, err := s.Get("kept"); err != nil {
		t.Errorf("record lost across reopen: %v", err)
	}
}

func TestTitle(t *testing.T) {
	long := strings.Repeat("word ", 30)
	tests := []struct {
		name string
		msgs []chat.Message
		want string
	}{
		{"empty", nil, "(empty)"},
		{"skips system", []chat.Message{{Role: chat.RoleSystem, Content: "sys"}, {Role: chat.RoleUser, Content: "hi\n  there"}}, "hi there"},
		{"truncates", []chat.Message{{Role: chat.RoleUser, Content: long}}, strings.Repeat("word ", 11) + "wo..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Title(tt.msgs); got != tt.want {
				t.Errorf("Title() = %q, want %q", got, tt.want)
			}
		})
	}
}
