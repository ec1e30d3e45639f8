// Package memstore is a small JSON-backed store for the prompt memories a
// chat deployment accumulates: reusable system prompts, per-character
// information, and banned-word lists.
package memstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

var ErrNotFound = errors.New("memstore: entry not found")

// Entry types used by the seeders and the API.
const (
	TypeSystemPrompt  = "systemPrompt"
	TypeCharacterInfo = "characterInformation"
	TypeBannedWords   = "bannedWords"
)

type Entry struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Identifier string    `json:"identifier"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store keeps entries in memory and mirrors every mutation to a JSON file.
// An empty path keeps the store purely in memory, which the tests and the
// API's ephemeral mode rely on.
type Store struct {
	path string

	mu      sync.Mutex
	entries []Entry
}

func Open(path string) (*Store, error) {
	s := &Store{path: path}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("memstore: read %s: %w", path, err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &s.entries); err != nil {
			return nil, fmt.Errorf("memstore: parse %s: %w", path, err)
		}
	}
	return s, nil
}

// Add appends an entry and persists the store. The returned entry carries
// its assigned id.
func (s *Store) Add(typ, identifier, content string) (Entry, error) {
	e := Entry{
		ID:         uuid.NewString(),
		Type:       typ,
		Identifier: identifier,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	if err := s.save(); err != nil {
		s.entries = s.entries[:len(s.entries)-1]
		return Entry{}, err
	}
	return e, nil
}

// List returns entries of the given type, or every entry when typ is empty.
func (s *Store) List(typ string) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if typ == "" || e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// Find returns entries matching both type and identifier.
func (s *Store) Find(typ, identifier string) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Entry
	for _, e := range s.entries {
		if e.Type == typ && e.Identifier == identifier {
			out = append(out, e)
		}
	}
	return out
}

func (s *Store) Get(id string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return Entry{}, ErrNotFound
}

func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.entries {
		if e.ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return s.save()
		}
	}
	return ErrNotFound
}

// Len reports the number of stored entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// save writes the store through a temp file so a crash mid-write never
// truncates the existing file. Callers hold s.mu.
func (s *Store) save() error {
	if s.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("memstore: encode: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("memstore: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("memstore: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("memstore: replace %s: %w", s.path, err)
	}
	return nil
}
