package tools

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func TestNotesTakeAndSearch(t *testing.T) {
	s := NewNotesService(filepath.Join(t.TempDir(), "notes.json"))
	ctx := context.Background()

	result := s.Handle(ctx, map[string]any{"notes": "buy oat milk on Friday"})
	if msg, ok := result.(string); !ok || !strings.Contains(msg, "Note saved") {
		t.Fatalf("take result = %v", result)
	}
	s.Handle(ctx, map[string]any{"notes": "dentist appointment next month"})

	result = s.Handle(ctx, map[string]any{"search": true, "query": "oat milk"})
	msg, ok := result.(string)
	if !ok {
		t.Fatalf("search result = %T", result)
	}
	if !strings.Contains(msg, "buy oat milk on Friday") {
		t.Errorf("search missed note: %q", msg)
	}
	if strings.Contains(msg, "dentist") {
		t.Errorf("search matched unrelated note: %q", msg)
	}
}

func TestNotesSearchNoMatch(t *testing.T) {
	s := NewNotesService(filepath.Join(t.TempDir(), "notes.json"))
	ctx := context.Background()
	s.Handle(ctx, map[string]any{"notes": "water the plants"})

	result := s.Handle(ctx, map[string]any{"search": true, "query": "zzzzqqqq"})
	if result != "No matching notes found." {
		t.Errorf("result = %v", result)
	}
}

func TestNotesEmptyInputs(t *testing.T) {
	s := NewNotesService(filepath.Join(t.TempDir(), "notes.json"))
	ctx := context.Background()

	if _, ok := s.Handle(ctx, map[string]any{}).(ErrorResult); !ok {
		t.Error("taking an empty note should fail")
	}
	if _, ok := s.Handle(ctx, map[string]any{"search": true}).(ErrorResult); !ok {
		t.Error("searching without a query should fail")
	}
}

func TestNotesCorruptFileReadsAsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.json")
	if err := writeFile(path, "{not json"); err != nil {
		t.Fatal(err)
	}

	s := NewNotesService(path)
	result := s.Handle(context.Background(), map[string]any{"search": true, "query": "anything"})
	if result != "No matching notes found." {
		t.Errorf("result = %v", result)
	}
}
