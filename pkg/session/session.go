package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aria-voice/aria/pkg/core/types"
	"github.com/aria-voice/aria/pkg/provider"
	"github.com/aria-voice/aria/pkg/tools"
)

// Defaults for the retry policy and history bound. All are tunable via
// options or configuration.
const (
	DefaultMaxHistory = 13
	DefaultMaxRetries = 2
	DefaultRetryDelay = 3 * time.Second
)

// fallbackMessage is spoken when the transport stays unreachable through
// all retries. The failed exchange itself is never persisted.
const fallbackMessage = "It seems there was an error, please try again later."

// EmitFunc receives each sanitized spoken fragment as soon as it arrives,
// in the order the model produced it.
type EmitFunc func(text string)

// Session owns the rolling conversation history and runs the tool-call
// resolution loop for each user turn. At most one turn is in flight at a
// time; concurrent callers serialize.
type Session struct {
	transport  provider.Transport
	registry   *tools.Registry
	history    *HistoryStore
	prompt     PromptSpec
	maxRetries int
	retryDelay time.Duration
	logger     *slog.Logger
	sleep      func(time.Duration)

	mu sync.Mutex
}

// Option configures a session.
type Option func(*Session)

// WithMaxRetries sets how many times a failed transport call is retried.
func WithMaxRetries(n int) Option {
	return func(s *Session) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// WithRetryDelay sets the fixed delay between transport retries.
func WithRetryDelay(d time.Duration) Option {
	return func(s *Session) {
		if d >= 0 {
			s.retryDelay = d
		}
	}
}

// New creates a dialogue session over the given transport, tool registry
// and history store.
func New(transport provider.Transport, registry *tools.Registry, history *HistoryStore, prompt PromptSpec, logger *slog.Logger, opts ...Option) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		transport:  transport,
		registry:   registry,
		history:    history,
		prompt:     prompt,
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		logger:     logger,
		sleep:      time.Sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartTurn submits user input (audio or text parts) and runs the
// resolution loop until the model yields a final answer. Each text part
// is sanitized and pushed through emit as it arrives; each tool call is
// dispatched to the registry, with all results from one response sent
// back together as a single batch.
//
// On success the full exchange, including every tool round-trip, is
// appended to persisted history. On transport failure after retries a
// single fallback fragment is emitted and only the round-trips completed
// before the failure are persisted.
func (s *Session) StartTurn(ctx context.Context, input []types.Part, emit EmitFunc) error {
	if len(input) == 0 {
		return errors.New("empty turn input")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, err := s.startChatWithRetry(ctx, provider.ChatOptions{
		SystemInstruction: s.prompt.Render(),
		History:           s.history.Turns(),
		Tools:             s.registry.DescribeAll(),
	})
	if err != nil {
		s.emit(emit, fallbackMessage)
		return fmt.Errorf("open dialogue context: %w", err)
	}

	var completed []types.Turn
	pending := input
	for {
		reply, err := s.sendWithRetry(ctx, chat, pending)
		if err != nil {
			s.emit(emit, fallbackMessage)
			s.persist(completed)
			return fmt.Errorf("dialogue exchange failed: %w", err)
		}
		if reply.TotalTokens > 0 {
			s.logger.Debug("model reply received", "total_tokens", reply.TotalTokens)
		}
		completed = append(completed,
			types.UserTurn(pending...),
			types.ModelTurn(reply.Parts...),
		)

		var results []types.Part
		for _, part := range reply.Parts {
			switch v := part.(type) {
			case types.TextPart:
				s.emit(emit, v.Text)
			case types.ToolCallPart:
				s.logger.Info("invoking tool", "tool", v.Name)
				res := s.registry.Invoke(ctx, v.Name, v.Args)
				results = append(results, types.ToolResultPart{
					Type:   "tool_result",
					Name:   v.Name,
					Result: normalizeResult(res),
				})
			}
		}
		if len(results) == 0 {
			break
		}
		pending = results
	}

	s.persist(completed)
	return nil
}

// ReminderNotice asks the model, with full conversational context, to
// phrase a short spoken announcement for a due reminder. The exchange is
// appended to history so follow-up questions about the reminder work.
func (s *Session) ReminderNotice(ctx context.Context, name string, at time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, err := s.startChatWithRetry(ctx, provider.ChatOptions{
		SystemInstruction: s.prompt.Render(),
		History:           s.history.Turns(),
	})
	if err != nil {
		return "", fmt.Errorf("open dialogue context: %w", err)
	}

	request := types.NewText(fmt.Sprintf(
		"A reminder named %q that was set for %s is due right now. Tell the user about it in one short spoken sentence.",
		name, at.Format("15:04"),
	))
	reply, err := s.sendWithRetry(ctx, chat, []types.Part{request})
	if err != nil {
		return "", fmt.Errorf("render reminder notice: %w", err)
	}

	text := Sanitize(types.ModelTurn(reply.Parts...).Text())
	if text == "" {
		return "", errors.New("model returned no announcement text")
	}

	s.persist([]types.Turn{
		types.UserTurn(request),
		types.ModelTurn(reply.Parts...),
	})
	return text, nil
}

// startChatWithRetry opens a dialogue context under the same retry policy
// as individual exchanges.
func (s *Session) startChatWithRetry(ctx context.Context, opts provider.ChatOptions) (provider.Chat, error) {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			s.logger.Warn("opening dialogue context failed, retrying",
				"attempt", attempt, "max_retries", s.maxRetries, "error", lastErr)
			s.sleep(s.retryDelay)
		}
		chat, err := s.transport.StartChat(ctx, opts)
		if err == nil {
			return chat, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func (s *Session) sendWithRetry(ctx context.Context, chat provider.Chat, parts []types.Part) (*provider.Reply, error) {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			s.logger.Warn("model request failed, retrying",
				"attempt", attempt, "max_retries", s.maxRetries, "error", lastErr)
			s.sleep(s.retryDelay)
		}
		reply, err := chat.Send(ctx, parts)
		if err == nil {
			return reply, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func (s *Session) emit(emit EmitFunc, text string) {
	if emit == nil {
		return
	}
	if clean := Sanitize(text); clean != "" {
		emit(clean)
	}
}

// normalizeResult rounds a tool result through JSON so only plain
// JSON-compatible values (maps, slices, strings, numbers, bools) ever
// reach history or the transport. Tools return whatever concrete shape
// is convenient, including typed struct slices, which the gob-backed
// history cannot encode as interface values.
func normalizeResult(res any) any {
	data, err := json.Marshal(res)
	if err != nil {
		return map[string]any{"error": fmt.Sprintf("tool result not serializable: %v", err)}
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return map[string]any{"error": fmt.Sprintf("tool result not serializable: %v", err)}
	}
	return out
}

func (s *Session) persist(turns []types.Turn) {
	if len(turns) == 0 {
		return
	}
	if err := s.history.Append(turns...); err != nil {
		s.logger.Error("failed to persist history", "error", err)
	}
}
