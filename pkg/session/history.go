// Package session implements the conversation-bearing dialogue session:
// the rolling history, its trimming invariants, and the tool-call
// resolution loop that turns model output into spoken fragments.
package session

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/aria-voice/aria/pkg/core/types"
)

// Tool results are normalized to JSON-compatible values before they enter
// a turn, so maps and slices of any are the only interface-valued shapes
// the encoder ever sees.
func init() {
	gob.Register(types.TextPart{})
	gob.Register(types.AudioPart{})
	gob.Register(types.ToolCallPart{})
	gob.Register(types.ToolResultPart{})
	gob.Register(map[string]any{})
	gob.Register([]any{})
}

// HistoryStore persists the conversation history to a single binary file.
// Writes replace the whole file atomically; a missing or corrupt file
// reads as an empty history.
type HistoryStore struct {
	path  string
	limit int

	mu    sync.Mutex
	turns []types.Turn
}

// OpenHistory loads the history at path, trimmed to limit turns.
func OpenHistory(path string, limit int) *HistoryStore {
	s := &HistoryStore{path: path, limit: limit}
	s.turns = trimTurns(s.load(), limit)
	return s
}

// Turns returns a copy of the current trimmed history.
func (s *HistoryStore) Turns() []types.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.Turn(nil), s.turns...)
}

// Len reports the number of turns currently held.
func (s *HistoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

// Append adds completed turns, re-trims, and rewrites the file.
func (s *HistoryStore) Append(turns ...types.Turn) error {
	if len(turns) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = trimTurns(append(s.turns, turns...), s.limit)
	return s.save()
}

// trimTurns keeps at most limit of the most recent turns, then walks
// forward past any turn that opens with a tool result so the transport
// never sees a dangling tool-call continuation at the head of history.
func trimTurns(turns []types.Turn, limit int) []types.Turn {
	start := 0
	if limit > 0 && len(turns) > limit {
		start = len(turns) - limit
	}
	for start < len(turns) && turns[start].StartsWithToolResult() {
		start++
	}
	return turns[start:]
}

func (s *HistoryStore) load() []types.Turn {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil
	}
	var turns []types.Turn
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&turns); err != nil {
		return nil
	}
	return turns
}

func (s *HistoryStore) save() error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s.turns); err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".history-*.bin")
	if err != nil {
		return fmt.Errorf("create temp history file: %w", err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close history file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace history file: %w", err)
	}
	return nil
}
