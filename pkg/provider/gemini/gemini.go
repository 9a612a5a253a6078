// Package gemini implements the dialogue transport over the Gemini API.
package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/aria-voice/aria/pkg/core/types"
	"github.com/aria-voice/aria/pkg/provider"
)

// DefaultModel is the model used when none is configured.
const DefaultModel = "gemini-2.0-flash"

// Transport opens Gemini chat sessions.
type Transport struct {
	client *genai.Client
	model  string

	temperature     float32
	topP            float32
	topK            float32
	maxOutputTokens int32
}

// Option configures the transport.
type Option func(*Transport)

// WithModel overrides the model name.
func WithModel(model string) Option {
	return func(t *Transport) {
		if model != "" {
			t.model = model
		}
	}
}

// WithMaxOutputTokens caps the response length.
func WithMaxOutputTokens(n int32) Option {
	return func(t *Transport) { t.maxOutputTokens = n }
}

// New creates a Gemini transport authenticated with the given API key.
func New(ctx context.Context, apiKey string, opts ...Option) (*Transport, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	t := &Transport{
		client:          client,
		model:           DefaultModel,
		temperature:     1.0,
		topP:            0.95,
		topK:            64,
		maxOutputTokens: 4096,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// StartChat opens a dialogue context pre-seeded with the system instruction
// and prior history.
func (t *Transport) StartChat(ctx context.Context, opts provider.ChatOptions) (provider.Chat, error) {
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(t.temperature),
		TopP:            genai.Ptr(t.topP),
		TopK:            genai.Ptr(t.topK),
		MaxOutputTokens: t.maxOutputTokens,
		SafetySettings:  permissiveSafetySettings(),
	}
	if opts.SystemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(opts.SystemInstruction, genai.RoleUser)
	}
	if len(opts.Tools) > 0 {
		config.Tools = []*genai.Tool{{FunctionDeclarations: toFunctionDeclarations(opts.Tools)}}
	}

	history, err := toContents(opts.History)
	if err != nil {
		return nil, fmt.Errorf("encode history: %w", err)
	}

	chat, err := t.client.Chats.Create(ctx, t.model, config, history)
	if err != nil {
		return nil, fmt.Errorf("start chat: %w", err)
	}
	return &chatSession{chat: chat}, nil
}

// Spoken replies are filtered downstream, not blocked upstream.
func permissiveSafetySettings() []*genai.SafetySetting {
	categories := []genai.HarmCategory{
		genai.HarmCategoryDangerousContent,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryHateSpeech,
		genai.HarmCategoryHarassment,
	}
	settings := make([]*genai.SafetySetting, len(categories))
	for i, c := range categories {
		settings[i] = &genai.SafetySetting{
			Category:  c,
			Threshold: genai.HarmBlockThresholdBlockNone,
		}
	}
	return settings
}

type chatSession struct {
	chat *genai.Chat
}

func (s *chatSession) Send(ctx context.Context, parts []types.Part) (*provider.Reply, error) {
	encoded, err := toGenaiParts(parts)
	if err != nil {
		return nil, fmt.Errorf("encode parts: %w", err)
	}

	msgParts := make([]genai.Part, len(encoded))
	for i, p := range encoded {
		msgParts[i] = *p
	}

	resp, err := s.chat.SendMessage(ctx, msgParts...)
	if err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	return fromResponse(resp)
}
