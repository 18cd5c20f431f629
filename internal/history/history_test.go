package history

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/arin/ollama-chat/internal/chat"
)

func conversation() []chat.Message {
	return []chat.Message{
		{Role: chat.RoleUser, Content: "What is 2+2?"},
		{Role: chat.RoleAssistant, Content: "The answer is 4"},
	}
}

func TestSaveFile_LoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.json")

	if err := SaveFile(path, conversation()); err != nil {
		t.Fatalf("SaveFile failed: %v", err)
	}

	got, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(got))
	}
	if got[1].Role != chat.RoleAssistant || got[1].Content != "The answer is 4" {
		t.Errorf("unexpected message: %+v", got[1])
	}
}

func TestSaveFile_Format(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.json")
	if err := SaveFile(path, conversation()); err != nil {
		t.Fatalf("SaveFile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := `[
  {
    "role": "user",
    "content": "What is 2+2?"
  },
  {
    "role": "assistant",
    "content": "The answer is 4"
  }
]
`
	if string(data) != want {
		t.Errorf("unexpected file contents:\n%s", data)
	}
}

func TestSaveFile_ReplacesAndLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chat.json")

	if err := SaveFile(path, conversation()); err != nil {
		t.Fatal(err)
	}
	if err := SaveFile(path, conversation()[:1]); err != nil {
		t.Fatal(err)
	}

	got, _ := LoadFile(path)
	if len(got) != 1 {
		t.Errorf("expected the second save to replace the first, got %d messages", len(got))
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected only the conversation file, found %d entries", len(entries))
	}
}

func TestSaveFile_Unwritable(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	err := SaveFile(filepath.Join(blocker, "chat.json"), conversation())
	var perr *PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
	if perr.Op != "save" {
		t.Errorf("expected op save, got %q", perr.Op)
	}
}

func TestSaveNew_UsesTimestampName(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)

	path, err := SaveNew(dir, conversation(), now)
	if err != nil {
		t.Fatalf("SaveNew failed: %v", err)
	}
	if filepath.Base(path) != "ollama_chat_20240309-140507.json" {
		t.Errorf("unexpected file name %q", filepath.Base(path))
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("file not written: %v", err)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.json"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
}

func TestLoadFile_Malformed(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"not json":  "{oops",
		"bad role":  `[{"role":"wizard","content":"x"}]`,
		"not array": `{"role":"user","content":"x"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(name, " ", "_")+".json")
			os.WriteFile(path, []byte(body), 0o600)

			_, err := LoadFile(path)
			var perr *PersistenceError
			if !errors.As(err, &perr) || perr.Op != "load" {
				t.Errorf("expected load PersistenceError, got %v", err)
			}
		})
	}
}
