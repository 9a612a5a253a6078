// Package provider defines the dialogue transport contract consumed by the
// dialogue session. Implementations translate between the engine's turn/part
// model and a concrete backend.
package provider

import (
	"context"

	"github.com/aria-voice/aria/pkg/core/types"
)

// ChatOptions configures a dialogue context for one turn.
type ChatOptions struct {
	// SystemInstruction is the fixed persona and tool-usage policy, pre-seeded
	// before any history.
	SystemInstruction string

	// History is the trimmed prior conversation, oldest first.
	History []types.Turn

	// Tools advertises the callable tool surface to the model.
	Tools []types.ToolDescriptor
}

// Reply is one model response: an ordered sequence of text and tool-call
// parts plus usage accounting.
type Reply struct {
	Parts       []types.Part
	TotalTokens int
}

// Chat is an open dialogue context. Send submits parts (user input or a
// batch of tool results) and blocks until the model responds.
type Chat interface {
	Send(ctx context.Context, parts []types.Part) (*Reply, error)
}

// Transport opens dialogue contexts against a model backend.
type Transport interface {
	StartChat(ctx context.Context, opts ChatOptions) (Chat, error)
}
