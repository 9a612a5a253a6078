package types

import (
	"encoding/json"
	"strings"
)

// Conversation roles as the model transport expects them.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Turn is one exchange unit in conversation history: a role and an
// ordered sequence of parts. Turns are immutable once appended.
type Turn struct {
	Role  string
	Parts []Part
}

// UserTurn creates a user-role turn.
func UserTurn(parts ...Part) Turn {
	return Turn{Role: RoleUser, Parts: parts}
}

// ModelTurn creates a model-role turn.
func ModelTurn(parts ...Part) Turn {
	return Turn{Role: RoleModel, Parts: parts}
}

// StartsWithToolResult reports whether the turn's first part is a tool
// result. History must never begin with such a turn after trimming.
func (t Turn) StartsWithToolResult() bool {
	if len(t.Parts) == 0 {
		return false
	}
	_, ok := t.Parts[0].(ToolResultPart)
	return ok
}

// Text joins the turn's text parts with newlines.
func (t Turn) Text() string {
	var texts []string
	for _, p := range t.Parts {
		if tp, ok := p.(TextPart); ok {
			texts = append(texts, tp.Text)
		}
	}
	return strings.Join(texts, "\n")
}

type turnJSON struct {
	Role  string            `json:"role"`
	Parts []json.RawMessage `json:"parts"`
}

func (t Turn) MarshalJSON() ([]byte, error) {
	raw := turnJSON{Role: t.Role, Parts: make([]json.RawMessage, 0, len(t.Parts))}
	for _, p := range t.Parts {
		data, err := json.Marshal(p)
		if err != nil {
			return nil, err
		}
		raw.Parts = append(raw.Parts, data)
	}
	return json.Marshal(raw)
}

func (t *Turn) UnmarshalJSON(data []byte) error {
	var raw turnJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parts, err := UnmarshalParts(raw.Parts)
	if err != nil {
		return err
	}
	t.Role = raw.Role
	t.Parts = parts
	return nil
}
