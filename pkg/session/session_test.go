package session

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aria-voice/aria/pkg/core/types"
	"github.com/aria-voice/aria/pkg/provider"
	"github.com/aria-voice/aria/pkg/tools"
)

// scriptedChat returns a fixed sequence of replies or errors, recording
// what was sent at each step.
type scriptedChat struct {
	steps []scriptedStep
	sent  [][]types.Part
}

type scriptedStep struct {
	reply *provider.Reply
	err   error
}

func (c *scriptedChat) Send(_ context.Context, parts []types.Part) (*provider.Reply, error) {
	c.sent = append(c.sent, parts)
	if len(c.steps) == 0 {
		return nil, errors.New("script exhausted")
	}
	step := c.steps[0]
	c.steps = c.steps[1:]
	return step.reply, step.err
}

type scriptedTransport struct {
	chat       *scriptedChat
	startErrs  []error
	startCalls int
	lastOpts   provider.ChatOptions
}

func (t *scriptedTransport) StartChat(_ context.Context, opts provider.ChatOptions) (provider.Chat, error) {
	t.startCalls++
	t.lastOpts = opts
	if len(t.startErrs) > 0 {
		err := t.startErrs[0]
		t.startErrs = t.startErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return t.chat, nil
}

func newTestSession(t *testing.T, transport provider.Transport, registry *tools.Registry) *Session {
	t.Helper()
	if registry == nil {
		registry = tools.NewRegistry()
	}
	history := OpenHistory(tempHistoryPath(t), DefaultMaxHistory)
	s := New(transport, registry, history, PromptSpec{Persona: "Test persona."}, slog.New(slog.DiscardHandler),
		WithRetryDelay(0))
	s.sleep = func(time.Duration) {}
	return s
}

func textReply(text string) *provider.Reply {
	return &provider.Reply{Parts: []types.Part{types.NewText(text)}}
}

func TestStartTurnResolutionLoop(t *testing.T) {
	registry := tools.NewRegistry()
	var invocations int
	registry.MustRegister(types.ToolDescriptor{Name: "get_weather", Description: "weather"},
		func(_ context.Context, args map[string]any) any {
			invocations++
			if args["city"] != "London" {
				t.Errorf("args = %v", args)
			}
			return map[string]any{"summary": "sunny"}
		})

	chat := &scriptedChat{steps: []scriptedStep{
		{reply: &provider.Reply{Parts: []types.Part{
			types.ToolCallPart{Type: "tool_call", Name: "get_weather", Args: map[string]any{"city": "London"}},
		}}},
		{reply: textReply("It's sunny in London.")},
	}}
	transport := &scriptedTransport{chat: chat}
	s := newTestSession(t, transport, registry)

	var fragments []string
	err := s.StartTurn(context.Background(), []types.Part{types.NewText("weather in London?")},
		func(text string) { fragments = append(fragments, text) })
	if err != nil {
		t.Fatalf("StartTurn: %v", err)
	}

	if invocations != 1 {
		t.Errorf("tool invoked %d times, want 1", invocations)
	}
	if len(fragments) != 1 || fragments[0] != "It's sunny in London." {
		t.Errorf("fragments = %v", fragments)
	}

	// Second protocol round must carry the tool result batch.
	if len(chat.sent) != 2 {
		t.Fatalf("sent %d messages, want 2", len(chat.sent))
	}
	result, ok := chat.sent[1][0].(types.ToolResultPart)
	if !ok {
		t.Fatalf("follow-up part = %T, want ToolResultPart", chat.sent[1][0])
	}
	if result.Name != "get_weather" {
		t.Errorf("result name = %q", result.Name)
	}

	// Both round-trips persisted: user input, tool-call reply, tool
	// results, final answer.
	turns := s.history.Turns()
	if len(turns) != 4 {
		t.Fatalf("persisted %d turns, want 4", len(turns))
	}
	if turns[0].Role != types.RoleUser || turns[1].Role != types.RoleModel {
		t.Errorf("roles = %q, %q", turns[0].Role, turns[1].Role)
	}
	if !turns[2].StartsWithToolResult() {
		t.Error("third turn should carry the tool result batch")
	}
	if turns[3].Text() != "It's sunny in London." {
		t.Errorf("final turn = %q", turns[3].Text())
	}

	// The tool surface was advertised at context construction.
	if len(transport.lastOpts.Tools) != 1 || transport.lastOpts.Tools[0].Name != "get_weather" {
		t.Errorf("advertised tools = %v", transport.lastOpts.Tools)
	}
}

func TestStartTurnBatchesToolResultsPerWave(t *testing.T) {
	registry := tools.NewRegistry()
	for _, name := range []string{"get_news", "get_weather"} {
		name := name
		registry.MustRegister(types.ToolDescriptor{Name: name, Description: name},
			func(_ context.Context, _ map[string]any) any { return name + " ok" })
	}

	chat := &scriptedChat{steps: []scriptedStep{
		{reply: &provider.Reply{Parts: []types.Part{
			types.ToolCallPart{Type: "tool_call", Name: "get_news"},
			types.ToolCallPart{Type: "tool_call", Name: "get_weather"},
		}}},
		{reply: textReply("Here you go.")},
	}}
	s := newTestSession(t, &scriptedTransport{chat: chat}, registry)

	if err := s.StartTurn(context.Background(), []types.Part{types.NewText("news and weather")}, nil); err != nil {
		t.Fatalf("StartTurn: %v", err)
	}

	if len(chat.sent) != 2 {
		t.Fatalf("sent %d messages, want 2 (one batch per wave)", len(chat.sent))
	}
	if len(chat.sent[1]) != 2 {
		t.Fatalf("batch carried %d results, want 2", len(chat.sent[1]))
	}
}

func TestStartTurnRetriesThenFallback(t *testing.T) {
	boom := errors.New("transport down")
	chat := &scriptedChat{steps: []scriptedStep{
		{err: boom}, {err: boom}, {err: boom},
	}}
	s := newTestSession(t, &scriptedTransport{chat: chat}, nil)

	var fragments []string
	err := s.StartTurn(context.Background(), []types.Part{types.NewText("hello")},
		func(text string) { fragments = append(fragments, text) })
	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}

	if len(chat.sent) != 3 {
		t.Errorf("attempted %d sends, want 3 (initial + 2 retries)", len(chat.sent))
	}
	if len(fragments) != 1 || fragments[0] != fallbackMessage {
		t.Errorf("fragments = %v, want single fallback", fragments)
	}
	if s.history.Len() != 0 {
		t.Errorf("history has %d turns, want 0 (failed exchange never persisted)", s.history.Len())
	}
}

func TestStartTurnRecoversOnRetry(t *testing.T) {
	chat := &scriptedChat{steps: []scriptedStep{
		{err: errors.New("flaky")},
		{reply: textReply("Recovered.")},
	}}
	s := newTestSession(t, &scriptedTransport{chat: chat}, nil)

	var fragments []string
	err := s.StartTurn(context.Background(), []types.Part{types.NewText("hi")},
		func(text string) { fragments = append(fragments, text) })
	if err != nil {
		t.Fatalf("StartTurn: %v", err)
	}
	if len(fragments) != 1 || fragments[0] != "Recovered." {
		t.Errorf("fragments = %v", fragments)
	}
	if s.history.Len() != 2 {
		t.Errorf("history has %d turns, want 2", s.history.Len())
	}
}

func TestStartTurnMidLoopFailureKeepsCompletedRounds(t *testing.T) {
	registry := tools.NewRegistry()
	registry.MustRegister(types.ToolDescriptor{Name: "get_news", Description: "news"},
		func(_ context.Context, _ map[string]any) any { return "headlines" })

	boom := errors.New("transport down")
	chat := &scriptedChat{steps: []scriptedStep{
		{reply: &provider.Reply{Parts: []types.Part{
			types.ToolCallPart{Type: "tool_call", Name: "get_news"},
		}}},
		{err: boom}, {err: boom}, {err: boom},
	}}
	s := newTestSession(t, &scriptedTransport{chat: chat}, registry)

	var fragments []string
	err := s.StartTurn(context.Background(), []types.Part{types.NewText("news?")},
		func(text string) { fragments = append(fragments, text) })
	if err == nil {
		t.Fatal("expected error")
	}
	if len(fragments) != 1 || fragments[0] != fallbackMessage {
		t.Errorf("fragments = %v", fragments)
	}
	if s.history.Len() != 2 {
		t.Errorf("history has %d turns, want 2 (the completed round-trip)", s.history.Len())
	}
}

func TestStartTurnSanitizesFragments(t *testing.T) {
	chat := &scriptedChat{steps: []scriptedStep{
		{reply: textReply("**Sunny** today! \U0001F31E")},
	}}
	s := newTestSession(t, &scriptedTransport{chat: chat}, nil)

	var fragments []string
	if err := s.StartTurn(context.Background(), []types.Part{types.NewText("weather?")},
		func(text string) { fragments = append(fragments, text) }); err != nil {
		t.Fatalf("StartTurn: %v", err)
	}
	if len(fragments) != 1 || fragments[0] != "Sunny today!" {
		t.Errorf("fragments = %v", fragments)
	}
}

func TestStartTurnUnknownToolFeedsErrorBack(t *testing.T) {
	chat := &scriptedChat{steps: []scriptedStep{
		{reply: &provider.Reply{Parts: []types.Part{
			types.ToolCallPart{Type: "tool_call", Name: "no_such_tool"},
		}}},
		{reply: textReply("Sorry, I can't do that.")},
	}}
	s := newTestSession(t, &scriptedTransport{chat: chat}, nil)

	if err := s.StartTurn(context.Background(), []types.Part{types.NewText("do the thing")}, nil); err != nil {
		t.Fatalf("StartTurn: %v", err)
	}

	result := chat.sent[1][0].(types.ToolResultPart)
	errMap, ok := result.Result.(map[string]any)
	if !ok {
		t.Fatalf("fed back %T, want a map with an error key", result.Result)
	}
	if msg, _ := errMap["error"].(string); msg == "" {
		t.Error("error message should not be empty")
	}
}

func TestStartTurnNormalizesToolResults(t *testing.T) {
	type place struct {
		Name   string  `json:"name"`
		Rating float64 `json:"rating"`
	}
	registry := tools.NewRegistry()
	registry.MustRegister(types.ToolDescriptor{Name: "get_reminders", Description: "reminders"},
		func(_ context.Context, _ map[string]any) any {
			return []map[string]any{{"name": "stretch"}, {"name": "hydrate"}}
		})
	registry.MustRegister(types.ToolDescriptor{Name: "get_place_information", Description: "places"},
		func(_ context.Context, _ map[string]any) any {
			return map[string]any{"results": []place{{Name: "cafe", Rating: 4.5}}}
		})

	chat := &scriptedChat{steps: []scriptedStep{
		{reply: &provider.Reply{Parts: []types.Part{
			types.ToolCallPart{Type: "tool_call", Name: "get_reminders"},
			types.ToolCallPart{Type: "tool_call", Name: "get_place_information"},
		}}},
		{reply: textReply("Done.")},
	}}
	historyPath := tempHistoryPath(t)
	history := OpenHistory(historyPath, DefaultMaxHistory)
	s := New(&scriptedTransport{chat: chat}, registry, history, PromptSpec{Persona: "Test persona."},
		slog.New(slog.DiscardHandler), WithRetryDelay(0))
	s.sleep = func(time.Duration) {}

	if err := s.StartTurn(context.Background(), []types.Part{types.NewText("reminders, then a cafe")}, nil); err != nil {
		t.Fatalf("StartTurn: %v", err)
	}

	// Results fed back to the model carry only plain JSON shapes.
	batch := chat.sent[1]
	if _, ok := batch[0].(types.ToolResultPart).Result.([]any); !ok {
		t.Errorf("reminders result = %T, want []any", batch[0].(types.ToolResultPart).Result)
	}
	nested := batch[1].(types.ToolResultPart).Result.(map[string]any)["results"]
	if _, ok := nested.([]any); !ok {
		t.Errorf("places result = %T, want []any", nested)
	}

	// The whole exchange survives a round trip through the history file.
	if got := OpenHistory(historyPath, DefaultMaxHistory).Len(); got != 4 {
		t.Fatalf("reloaded %d turns, want 4", got)
	}

	// Later appends keep working with the tool round-trip still in history.
	if err := s.history.Append(types.UserTurn(types.NewText("still there?")), types.ModelTurn(types.NewText("yes"))); err != nil {
		t.Fatalf("later append: %v", err)
	}
}

func TestStartTurnRetriesFailedChatOpen(t *testing.T) {
	boom := errors.New("transport down")
	chat := &scriptedChat{steps: []scriptedStep{{reply: textReply("Back online.")}}}
	transport := &scriptedTransport{chat: chat, startErrs: []error{boom, boom}}
	s := newTestSession(t, transport, nil)

	var fragments []string
	if err := s.StartTurn(context.Background(), []types.Part{types.NewText("hi")},
		func(text string) { fragments = append(fragments, text) }); err != nil {
		t.Fatalf("StartTurn: %v", err)
	}
	if transport.startCalls != 3 {
		t.Errorf("StartChat called %d times, want 3 (initial + 2 retries)", transport.startCalls)
	}
	if len(fragments) != 1 || fragments[0] != "Back online." {
		t.Errorf("fragments = %v", fragments)
	}
}

func TestStartTurnChatOpenExhaustsRetries(t *testing.T) {
	boom := errors.New("transport down")
	transport := &scriptedTransport{startErrs: []error{boom, boom, boom}}
	s := newTestSession(t, transport, nil)

	var fragments []string
	err := s.StartTurn(context.Background(), []types.Part{types.NewText("hi")},
		func(text string) { fragments = append(fragments, text) })
	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}
	if transport.startCalls != 3 {
		t.Errorf("StartChat called %d times, want 3", transport.startCalls)
	}
	if len(fragments) != 1 || fragments[0] != fallbackMessage {
		t.Errorf("fragments = %v, want single fallback", fragments)
	}
	if s.history.Len() != 0 {
		t.Errorf("history has %d turns, want 0", s.history.Len())
	}
}

func TestStartTurnPicksUpPersonaEdits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt.txt")
	if err := os.WriteFile(path, []byte("You are cheerful."), 0o644); err != nil {
		t.Fatal(err)
	}

	chat := &scriptedChat{steps: []scriptedStep{
		{reply: textReply("Hi!")},
		{reply: textReply("Hello!")},
	}}
	transport := &scriptedTransport{chat: chat}
	history := OpenHistory(tempHistoryPath(t), DefaultMaxHistory)
	s := New(transport, tools.NewRegistry(), history, PromptSpec{PersonaFile: path},
		slog.New(slog.DiscardHandler), WithRetryDelay(0))
	s.sleep = func(time.Duration) {}

	if err := s.StartTurn(context.Background(), []types.Part{types.NewText("hi")}, nil); err != nil {
		t.Fatalf("StartTurn: %v", err)
	}
	if !strings.Contains(transport.lastOpts.SystemInstruction, "You are cheerful.") {
		t.Fatalf("system instruction = %q", transport.lastOpts.SystemInstruction)
	}

	if err := os.WriteFile(path, []byte("You are grumpy."), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := s.StartTurn(context.Background(), []types.Part{types.NewText("hi again")}, nil); err != nil {
		t.Fatalf("StartTurn: %v", err)
	}
	if !strings.Contains(transport.lastOpts.SystemInstruction, "You are grumpy.") {
		t.Fatalf("system instruction = %q", transport.lastOpts.SystemInstruction)
	}
}

func TestStartTurnEmptyInput(t *testing.T) {
	s := newTestSession(t, &scriptedTransport{chat: &scriptedChat{}}, nil)
	if err := s.StartTurn(context.Background(), nil, nil); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestReminderNotice(t *testing.T) {
	chat := &scriptedChat{steps: []scriptedStep{
		{reply: textReply("Your reminder to stretch is due now!")},
	}}
	s := newTestSession(t, &scriptedTransport{chat: chat}, nil)

	text, err := s.ReminderNotice(context.Background(), "stretch", time.Now())
	if err != nil {
		t.Fatalf("ReminderNotice: %v", err)
	}
	if text != "Your reminder to stretch is due now!" {
		t.Errorf("text = %q", text)
	}
	if s.history.Len() != 2 {
		t.Errorf("history has %d turns, want 2 (announcement exchange persisted)", s.history.Len())
	}
}

func TestReminderNoticeTransportFailure(t *testing.T) {
	chat := &scriptedChat{}
	s := newTestSession(t, &scriptedTransport{chat: chat}, nil)

	if _, err := s.ReminderNotice(context.Background(), "stretch", time.Now()); err == nil {
		t.Fatal("expected error when transport fails")
	}
	if s.history.Len() != 0 {
		t.Errorf("history has %d turns, want 0", s.history.Len())
	}
}
