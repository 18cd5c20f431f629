package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	bolt "go.etcd.io/bbolt"

	"github.com/arin/ollama-chat/internal/chat"
	"github.com/arin/ollama-chat/internal/config"
)

const (
	dbFileName = "history.db"
	titleLen   = 60
)

var sessionsBucket = []byte("sessions")

// ErrNotFound means no archived session has the requested id.
var ErrNotFound = errors.New("session not found")

// Record is one archived conversation.
type Record struct {
	ID        string         `json:"id"`
	Model     string         `json:"model"`
	Title     string         `json:"title"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Messages  []chat.Message `json:"messages"`
}

// Store archives sessions in a bbolt database keyed by session id.
type Store struct {
	db   *bolt.DB
	path string
}

// DefaultPath returns the archive location in the config directory.
func DefaultPath() string {
	return filepath.Join(config.Dir(), dbFileName)
}

// Open opens (creating if needed) the archive at path. It gives up after a
// second if another ochat process holds the database.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, &PersistenceError{Op: "open", Path: path, Err: err}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, &PersistenceError{Op: "open", Path: path, Err: err}
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, &PersistenceError{Op: "open", Path: path, Err: err}
	}

	return &Store{db: db, path: path}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put archives rec, replacing any earlier version of the same session.
// CreatedAt of an existing record is preserved.
func (s *Store) Put(rec Record) error {
	if rec.ID == "" {
		return &PersistenceError{Op: "archive", Path: s.path, Err: errors.New("empty session id")}
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}
	if rec.Title == "" {
		rec.Title = Title(rec.Messages)
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(sessionsBucket)

		if old := b.Get([]byte(rec.ID)); old != nil {
			var prev Record
			if err := json.Unmarshal(old, &prev); err == nil && !prev.CreatedAt.IsZero() {
				rec.CreatedAt = prev.CreatedAt
			}
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = rec.UpdatedAt
		}

		v, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}
		return b.Put([]byte(rec.ID), v)
	})
	if err != nil {
		return &PersistenceError{Op: "archive", Path: s.path, Err: err}
	}
	return nil
}

// Get returns the archived session with id. A unique id prefix is accepted
// so users can type the short ids `history` prints.
func (s *Store) Get(id string) (Record, error) {
	var rec Record
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(sessionsBucket)

		v := b.Get([]byte(id))
		if v == nil {
			var err error
			if v, err = findPrefix(b, id); err != nil {
				return err
			}
		}
		if err := json.Unmarshal(v, &rec); err != nil {
			return fmt.Errorf("failed to unmarshal session: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Record{}, fmt.Errorf("%w: %q", ErrNotFound, id)
		}
		return Record{}, &PersistenceError{Op: "read", Path: s.path, Err: err}
	}
	return rec, nil
}

func findPrefix(b *bolt.Bucket, prefix string) ([]byte, error) {
	if prefix == "" {
		return nil, ErrNotFound
	}
	var match []byte
	c := b.Cursor()
	for k, v := c.Seek([]byte(prefix)); k != nil && strings.HasPrefix(string(k), prefix); k, v = c.Next() {
		if match != nil {
			return nil, fmt.Errorf("ambiguous session id %q", prefix)
		}
		match = v
	}
	if match == nil {
		return nil, ErrNotFound
	}
	return match, nil
}

// List returns archived sessions, most recently updated first. limit <= 0
// returns all of them.
func (s *Store) List(limit int) ([]Record, error) {
	var recs []Record
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(sessionsBucket).ForEach(func(_, v []byte) error {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to unmarshal session: %w", err)
			}
			recs = append(recs, rec)
			return nil
		})
	})
	if err != nil {
		return nil, &PersistenceError{Op: "read", Path: s.path, Err: err}
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].UpdatedAt.After(recs[j].UpdatedAt)
	})
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

// Delete removes a session. Deleting an unknown id is not an error.
func (s *Store) Delete(id string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(sessionsBucket).Delete([]byte(id))
	})
	if err != nil {
		return &PersistenceError{Op: "delete", Path: s.path, Err: err}
	}
	return nil
}

// Title derives a one-line title from the first user message.
func Title(messages []chat.Message) string {
	for _, m := range messages {
		if m.Role != chat.RoleUser {
			continue
		}
		t := strings.Join(strings.Fields(m.Content), " ")
		if utf8.RuneCountInString(t) > titleLen {
			r := []rune(t)
			t = string(r[:titleLen-3]) + "..."
		}
		return t
	}
	return "(empty)"
}
