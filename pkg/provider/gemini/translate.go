package gemini

import (
	"fmt"

	"google.golang.org/genai"

	"github.com/aria-voice/aria/pkg/core/types"
	"github.com/aria-voice/aria/pkg/provider"
)

// toContents converts history turns to Gemini content records.
func toContents(turns []types.Turn) ([]*genai.Content, error) {
	contents := make([]*genai.Content, 0, len(turns))
	for _, turn := range turns {
		parts, err := toGenaiParts(turn.Parts)
		if err != nil {
			return nil, err
		}
		contents = append(contents, &genai.Content{
			Role:  toGenaiRole(turn.Role),
			Parts: parts,
		})
	}
	return contents, nil
}

func toGenaiRole(role string) string {
	if role == types.RoleModel {
		return string(genai.RoleModel)
	}
	return string(genai.RoleUser)
}

func toGenaiParts(parts []types.Part) ([]*genai.Part, error) {
	out := make([]*genai.Part, 0, len(parts))
	for _, p := range parts {
		switch v := p.(type) {
		case types.TextPart:
			out = append(out, &genai.Part{Text: v.Text})
		case types.AudioPart:
			out = append(out, &genai.Part{InlineData: &genai.Blob{
				MIMEType: v.MIMEType,
				Data:     v.Data,
			}})
		case types.ToolCallPart:
			out = append(out, &genai.Part{FunctionCall: &genai.FunctionCall{
				Name: v.Name,
				Args: v.Args,
			}})
		case types.ToolResultPart:
			out = append(out, &genai.Part{FunctionResponse: &genai.FunctionResponse{
				Name:     v.Name,
				Response: map[string]any{"result": v.Result},
			}})
		default:
			return nil, fmt.Errorf("unsupported part type %T", p)
		}
	}
	return out, nil
}

// fromResponse converts a Gemini response to an ordered reply.
func fromResponse(resp *genai.GenerateContentResponse) (*provider.Reply, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("empty response from model")
	}

	reply := &provider.Reply{}
	for _, p := range resp.Candidates[0].Content.Parts {
		if p == nil {
			continue
		}
		switch {
		case p.FunctionCall != nil:
			reply.Parts = append(reply.Parts, types.ToolCallPart{
				Type: "tool_call",
				Name: p.FunctionCall.Name,
				Args: p.FunctionCall.Args,
			})
		case p.Text != "":
			reply.Parts = append(reply.Parts, types.NewText(p.Text))
		}
	}

	if resp.UsageMetadata != nil {
		reply.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return reply, nil
}

// toFunctionDeclarations converts tool descriptors to Gemini declarations.
func toFunctionDeclarations(descriptors []types.ToolDescriptor) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(descriptors))
	for _, d := range descriptors {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  toGenaiSchema(d.Parameters),
		})
	}
	return decls
}

func toGenaiSchema(s *types.Schema) *genai.Schema {
	if s == nil {
		return nil
	}

	out := &genai.Schema{
		Type:        toGenaiType(s.Type),
		Description: s.Description,
		Required:    s.Required,
		Items:       toGenaiSchema(s.Items),
	}
	if len(s.Enum) > 0 {
		out.Enum = s.Enum
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toGenaiSchema(prop)
		}
	}
	return out
}

func toGenaiType(t string) genai.Type {
	switch t {
	case types.TypeObject:
		return genai.TypeObject
	case types.TypeString:
		return genai.TypeString
	case types.TypeInteger:
		return genai.TypeInteger
	case types.TypeNumber:
		return genai.TypeNumber
	case types.TypeBoolean:
		return genai.TypeBoolean
	case types.TypeArray:
		return genai.TypeArray
	default:
		return genai.TypeString
	}
}
