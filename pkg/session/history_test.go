package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aria-voice/aria/pkg/core/types"
)

func tempHistoryPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "history.bin")
}

func TestHistoryRoundTrip(t *testing.T) {
	path := tempHistoryPath(t)

	store := OpenHistory(path, 10)
	err := store.Append(
		types.UserTurn(types.NewText("what's the weather?")),
		types.ModelTurn(types.ToolCallPart{Type: "tool_call", Name: "get_weather", Args: map[string]any{"city": "London"}}),
		types.UserTurn(types.ToolResultPart{Type: "tool_result", Name: "get_weather", Result: map[string]any{"temp": 18.5}}),
		types.ModelTurn(types.NewText("It's 18 degrees.")),
	)
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	reopened := OpenHistory(path, 10)
	turns := reopened.Turns()
	if len(turns) != 4 {
		t.Fatalf("reloaded %d turns, want 4", len(turns))
	}
	if turns[0].Text() != "what's the weather?" {
		t.Errorf("turn 0 text = %q", turns[0].Text())
	}
	call, ok := turns[1].Parts[0].(types.ToolCallPart)
	if !ok {
		t.Fatalf("turn 1 part = %T, want ToolCallPart", turns[1].Parts[0])
	}
	if call.Args["city"] != "London" {
		t.Errorf("call args = %v", call.Args)
	}
	if turns[3].Text() != "It's 18 degrees." {
		t.Errorf("turn 3 text = %q", turns[3].Text())
	}
}

func TestHistoryMissingFileIsEmpty(t *testing.T) {
	store := OpenHistory(tempHistoryPath(t), 10)
	if store.Len() != 0 {
		t.Fatalf("len = %d, want 0", store.Len())
	}
}

func TestHistoryCorruptFileIsEmpty(t *testing.T) {
	path := tempHistoryPath(t)
	if err := os.WriteFile(path, []byte("not gob data"), 0o644); err != nil {
		t.Fatal(err)
	}
	store := OpenHistory(path, 10)
	if store.Len() != 0 {
		t.Fatalf("len = %d, want 0", store.Len())
	}
}

func TestTrimKeepsMostRecentTurns(t *testing.T) {
	turns := []types.Turn{
		types.UserTurn(types.NewText("one")),
		types.ModelTurn(types.NewText("two")),
		types.UserTurn(types.NewText("three")),
		types.ModelTurn(types.NewText("four")),
	}
	got := trimTurns(turns, 2)
	if len(got) != 2 || got[0].Text() != "three" || got[1].Text() != "four" {
		t.Fatalf("trimmed to %v", got)
	}
}

func TestTrimNeverStartsWithToolResult(t *testing.T) {
	turns := []types.Turn{
		types.UserTurn(types.NewText("question")),
		types.ModelTurn(types.ToolCallPart{Type: "tool_call", Name: "get_news"}),
		types.UserTurn(types.ToolResultPart{Type: "tool_result", Name: "get_news", Result: "headlines"}),
		types.ModelTurn(types.NewText("here is the news")),
		types.UserTurn(types.NewText("thanks")),
	}

	// A limit of 3 would leave the tool-result turn at the head; trimming
	// must drop it and keep only genuine exchanges.
	got := trimTurns(turns, 3)
	if len(got) != 2 {
		t.Fatalf("trimmed to %d turns, want 2", len(got))
	}
	if got[0].StartsWithToolResult() {
		t.Fatal("trimmed history begins with a tool result")
	}
	if got[0].Text() != "here is the news" {
		t.Errorf("first kept turn = %q", got[0].Text())
	}
}

func TestTrimUnderLimitUnchanged(t *testing.T) {
	turns := []types.Turn{
		types.UserTurn(types.NewText("hi")),
		types.ModelTurn(types.NewText("hello")),
	}
	if got := trimTurns(turns, 13); len(got) != 2 {
		t.Fatalf("trimmed to %d turns, want 2", len(got))
	}
}

func TestHistoryAppendTrims(t *testing.T) {
	store := OpenHistory(tempHistoryPath(t), 2)
	for i := 0; i < 3; i++ {
		if err := store.Append(types.UserTurn(types.NewText("q")), types.ModelTurn(types.NewText("a"))); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if store.Len() != 2 {
		t.Fatalf("len = %d, want 2", store.Len())
	}
}
