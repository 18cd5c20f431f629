// Package history persists conversations: single conversations saved to
// and loaded from JSON files, and an archive of every session kept in a
// bbolt database in the user's config directory.
package history

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/arin/ollama-chat/internal/chat"
)

// fileTimeLayout is the timestamp part of saved conversation names.
const fileTimeLayout = "20060102-150405"

// fileMu serializes writes of conversation files.
var fileMu sync.Mutex

// PersistenceError reports a failed save or load.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// DefaultFileName is the name a conversation saved at now gets.
func DefaultFileName(now time.Time) string {
	return "ollama_chat_" + now.Format(fileTimeLayout) + ".json"
}

// SaveFile writes messages to path as a JSON array of {role, content}
// records. The file is replaced atomically so a failed save never leaves a
// truncated conversation behind.
func SaveFile(path string, messages []chat.Message) error {
	fileMu.Lock()
	defer fileMu.Unlock()

	data, err := chat.MarshalMessages(messages)
	if err != nil {
		return &PersistenceError{Op: "save", Path: path, Err: err}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &PersistenceError{Op: "save", Path: path, Err: err}
	}

	tmp, err := os.CreateTemp(dir, ".ochat-*.json")
	if err != nil {
		return &PersistenceError{Op: "save", Path: path, Err: err}
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return &PersistenceError{Op: "save", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &PersistenceError{Op: "save", Path: path, Err: err}
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return &PersistenceError{Op: "save", Path: path, Err: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return &PersistenceError{Op: "save", Path: path, Err: err}
	}
	return nil
}

// SaveNew writes messages to a timestamped file in dir and returns its path.
func SaveNew(dir string, messages []chat.Message, now time.Time) (string, error) {
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, DefaultFileName(now))
	return path, SaveFile(path, messages)
}

// LoadFile reads a conversation saved by SaveFile.
func LoadFile(path string) ([]chat.Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &PersistenceError{Op: "load", Path: path, Err: fs.ErrNotExist}
		}
		return nil, &PersistenceError{Op: "load", Path: path, Err: err}
	}

	messages, err := chat.UnmarshalMessages(data)
	if err != nil {
		return nil, &PersistenceError{Op: "load", Path: path, Err: err}
	}
	return messages, nil
}
