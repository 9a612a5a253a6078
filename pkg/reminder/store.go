// Package reminder provides the durable reminder store and the background
// scheduler that turns due reminders into spoken notifications.
package reminder

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Reminder is a stored reminder. Each one gets a generated ID at creation
// so removal is unambiguous even when name and fire time collide.
type Reminder struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"created_at"`
	RemindAt  int64  `json:"reminder_at"`
}

// Store is a JSON-file-backed reminder list. All mutations are serialized
// through an in-process lock and persisted as a single whole-file replace.
type Store struct {
	path string

	mu  sync.Mutex
	now func() time.Time
}

// NewStore creates a store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// Add creates and persists a reminder firing at the given time.
func (s *Store) Add(name string, at time.Time) (Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := Reminder{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: s.now().Unix(),
		RemindAt:  at.Unix(),
	}

	reminders := s.load()
	reminders = append(reminders, r)
	if err := s.save(reminders); err != nil {
		return Reminder{}, err
	}
	return r, nil
}

// All returns every stored reminder. A missing or corrupt file reads as an
// empty list, never an error.
func (s *Store) All() []Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Due returns reminders whose fire time is at or before now.
func (s *Store) Due(now time.Time) []Reminder {
	var due []Reminder
	for _, r := range s.All() {
		if r.RemindAt <= now.Unix() {
			due = append(due, r)
		}
	}
	return due
}

// Remove deletes the reminder with the given ID. Removing an absent ID is
// a no-op; the scheduler may race the reminder tool and last writer wins.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	reminders := s.load()
	kept := reminders[:0]
	for _, r := range reminders {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	return s.save(kept)
}

// Upcoming returns reminders firing after now, soonest first.
func (s *Store) Upcoming(now time.Time) []Reminder {
	var upcoming []Reminder
	for _, r := range s.All() {
		if r.RemindAt > now.Unix() {
			upcoming = append(upcoming, r)
		}
	}
	sort.Slice(upcoming, func(i, j int) bool { return upcoming[i].RemindAt < upcoming[j].RemindAt })
	return upcoming
}

// Recent returns all reminders, most recently created first.
func (s *Store) Recent() []Reminder {
	reminders := s.All()
	sort.Slice(reminders, func(i, j int) bool { return reminders[i].CreatedAt > reminders[j].CreatedAt })
	return reminders
}

func (s *Store) load() []Reminder {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil
	}
	var reminders []Reminder
	if err := json.Unmarshal(data, &reminders); err != nil {
		return nil
	}
	return reminders
}

// save writes the whole list atomically: temp file in the same directory,
// then rename over the target.
func (s *Store) save(reminders []Reminder) error {
	if reminders == nil {
		reminders = []Reminder{}
	}
	data, err := json.Marshal(reminders)
	if err != nil {
		return fmt.Errorf("encode reminders: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".reminders-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write reminders: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace reminders file: %w", err)
	}
	return nil
}
