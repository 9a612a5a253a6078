// Package types defines the content model shared by the dialogue session,
// the model transport and the tool layer.
package types

import (
	"encoding/json"
	"fmt"
)

// Part is the interface for all turn content.
// USER:  text, audio, tool_result
// MODEL: text, tool_call
type Part interface {
	PartType() string
}

// TextPart represents text content.
type TextPart struct {
	Type string `json:"type"` // "text"
	Text string `json:"text"`
}

func (p TextPart) PartType() string { return "text" }

// AudioPart represents a recorded audio clip sent to the model.
type AudioPart struct {
	Type     string `json:"type"` // "audio"
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

func (p AudioPart) PartType() string { return "audio" }

// ToolCallPart represents a function invocation requested by the model.
type ToolCallPart struct {
	Type string         `json:"type"` // "tool_call"
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

func (p ToolCallPart) PartType() string { return "tool_call" }

// ToolResultPart carries a tool's return value back to the model.
type ToolResultPart struct {
	Type   string `json:"type"` // "tool_result"
	Name   string `json:"name"`
	Result any    `json:"result"`
}

func (p ToolResultPart) PartType() string { return "tool_result" }

// NewText creates a text part.
func NewText(text string) TextPart {
	return TextPart{Type: "text", Text: text}
}

// NewAudio creates an audio part.
func NewAudio(mimeType string, data []byte) AudioPart {
	return AudioPart{Type: "audio", MIMEType: mimeType, Data: data}
}

// UnmarshalPart decodes a single part, dispatching on its "type" tag.
func UnmarshalPart(data []byte) (Part, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode part: %w", err)
	}

	switch probe.Type {
	case "text":
		var p TextPart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case "audio":
		var p AudioPart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case "tool_call":
		var p ToolCallPart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case "tool_result":
		var p ToolResultPart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown part type %q", probe.Type)
	}
}

// UnmarshalParts decodes an ordered sequence of parts.
func UnmarshalParts(raw []json.RawMessage) ([]Part, error) {
	parts := make([]Part, 0, len(raw))
	for _, r := range raw {
		p, err := UnmarshalPart(r)
		if err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	return parts, nil
}
