package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/aria-voice/aria/pkg/core/types"
)

// Note is one saved note.
type Note struct {
	Date    string `json:"date"` // ISO-8601
	Content string `json:"content"`
}

// NotesService takes and searches notes in a JSON file.
type NotesService struct {
	path string

	mu  sync.Mutex
	now func() time.Time
}

// NewNotesService creates a notes service backed by the given file.
func NewNotesService(path string) *NotesService {
	return &NotesService{path: path, now: time.Now}
}

// Descriptor declares the take_notes tool.
func (s *NotesService) Descriptor() types.ToolDescriptor {
	return types.ToolDescriptor{
		Name:        "take_notes",
		Description: "Take notes or search existing notes.",
		Parameters: types.ObjectSchema(map[string]*types.Schema{
			"notes":  types.StringSchema("The notes to take. Omit when searching."),
			"search": types.BoolSchema("Whether to search existing notes instead of saving."),
			"query":  types.StringSchema("The search query, free text or a date (YYYY-MM-DD)."),
		}),
	}
}

// Handle implements the take_notes tool.
func (s *NotesService) Handle(ctx context.Context, args map[string]any) any {
	if boolArg(args, "search", false) {
		return s.search(stringArg(args, "query", ""))
	}
	return s.take(stringArg(args, "notes", ""))
}

func (s *NotesService) take(content string) any {
	if content == "" {
		return Errorf("no notes provided to save")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	notes := s.load()
	notes = append(notes, Note{Date: s.now().Format(time.RFC3339), Content: content})
	if err := s.save(notes); err != nil {
		return Errorf("failed to write notes file: %v", err)
	}
	return fmt.Sprintf("Note saved: %s", content)
}

func (s *NotesService) search(query string) any {
	if query == "" {
		return Errorf("no search query provided")
	}

	s.mu.Lock()
	notes := s.load()
	s.mu.Unlock()

	var matches []Note
	for _, note := range notes {
		if strings.Contains(note.Date, query) || fuzzy.MatchNormalizedFold(query, note.Content) {
			matches = append(matches, note)
		}
	}

	// Most recent first, capped at 5.
	sort.Slice(matches, func(i, j int) bool { return matches[i].Date > matches[j].Date })
	if len(matches) > 5 {
		matches = matches[:5]
	}

	if len(matches) == 0 {
		return "No matching notes found."
	}

	var b strings.Builder
	b.WriteString("Matching notes (up to 5 most recent):\n")
	for _, note := range matches {
		date := note.Date
		if parsed, err := time.Parse(time.RFC3339, note.Date); err == nil {
			date = parsed.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(&b, "\nDate: %s\nContent: %s\n", date, note.Content)
	}
	return strings.TrimSpace(b.String())
}

func (s *NotesService) load() []Note {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil
	}
	var notes []Note
	if err := json.Unmarshal(data, &notes); err != nil {
		return nil
	}
	return notes
}

func (s *NotesService) save(notes []Note) error {
	data, err := json.MarshalIndent(notes, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".notes-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
