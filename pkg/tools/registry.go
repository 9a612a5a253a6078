// Package tools provides the assistant's tool surface: an explicit registry
// mapping tool names to handlers, and the individual tool implementations
// (weather, news, search, directions, places, notes, reminders, messaging).
//
// Tools never return Go errors across the registry boundary. Failures are
// encoded as an ErrorResult so the dialogue loop can always feed something
// back to the model.
package tools

import (
	"context"
	"fmt"

	"github.com/aria-voice/aria/pkg/core/types"
)

// ErrorResult is the structured failure value returned by tools and by the
// registry itself for unknown names.
type ErrorResult struct {
	Error string `json:"error"`
}

// Errorf builds an ErrorResult from a format string.
func Errorf(format string, args ...any) ErrorResult {
	return ErrorResult{Error: fmt.Sprintf(format, args...)}
}

// Handler executes one tool call. Implementations must be total: any
// failure comes back as an ErrorResult, never a panic or a Go error.
type Handler func(ctx context.Context, args map[string]any) any

// Registry is an explicit name-to-handler mapping built once at startup.
// It is not safe for concurrent registration; register everything before use.
type Registry struct {
	order   []string
	entries map[string]entry
}

type entry struct {
	descriptor types.ToolDescriptor
	handler    Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register adds a tool. Duplicate names are rejected.
func (r *Registry) Register(descriptor types.ToolDescriptor, handler Handler) error {
	if descriptor.Name == "" {
		return fmt.Errorf("tool descriptor missing name")
	}
	if handler == nil {
		return fmt.Errorf("tool %q has nil handler", descriptor.Name)
	}
	if _, exists := r.entries[descriptor.Name]; exists {
		return fmt.Errorf("tool %q already registered", descriptor.Name)
	}

	r.entries[descriptor.Name] = entry{descriptor: descriptor, handler: handler}
	r.order = append(r.order, descriptor.Name)
	return nil
}

// MustRegister registers a tool and panics on conflict. Intended for
// startup wiring where a duplicate is a programming error.
func (r *Registry) MustRegister(descriptor types.ToolDescriptor, handler Handler) {
	if err := r.Register(descriptor, handler); err != nil {
		panic(err)
	}
}

// DescribeAll returns the descriptors of every registered tool in
// registration order. The slice is a copy.
func (r *Registry) DescribeAll() []types.ToolDescriptor {
	out := make([]types.ToolDescriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name].descriptor)
	}
	return out
}

// Invoke dispatches a call by name. An unknown name yields an ErrorResult
// rather than an error so the resolution loop's control flow stays uniform.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) any {
	e, ok := r.entries[name]
	if !ok {
		return Errorf("unknown function: %s", name)
	}
	if args == nil {
		args = map[string]any{}
	}
	return e.handler(ctx, args)
}

// Len returns the number of registered tools.
func (r *Registry) Len() int { return len(r.entries) }
