package tools

import (
	"context"
	"reflect"
	"testing"

	"github.com/aria-voice/aria/pkg/core/types"
)

func TestRegistryInvokeUnknown(t *testing.T) {
	r := NewRegistry()

	result := r.Invoke(context.Background(), "unknown_tool_xyz", map[string]any{})
	errResult, ok := result.(ErrorResult)
	if !ok {
		t.Fatalf("result = %T, want ErrorResult", result)
	}
	if errResult.Error == "" {
		t.Error("error message should not be empty")
	}
}

func TestRegistryDispatch(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(
		types.ToolDescriptor{Name: "echo", Description: "echoes its input"},
		func(ctx context.Context, args map[string]any) any {
			return args["value"]
		},
	)

	got := r.Invoke(context.Background(), "echo", map[string]any{"value": "hello"})
	if got != "hello" {
		t.Errorf("Invoke() = %v, want hello", got)
	}
}

func TestRegistryNilArgs(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(
		types.ToolDescriptor{Name: "probe", Description: "probes arguments"},
		func(ctx context.Context, args map[string]any) any {
			if args == nil {
				t.Error("handler received nil args")
			}
			return "ok"
		},
	)
	r.Invoke(context.Background(), "probe", nil)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	desc := types.ToolDescriptor{Name: "dup", Description: "d"}
	handler := func(ctx context.Context, args map[string]any) any { return nil }

	if err := r.Register(desc, handler); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := r.Register(desc, handler); err == nil {
		t.Error("expected error registering duplicate name")
	}
}

func TestDescribeAllIdempotent(t *testing.T) {
	r := NewRegistry()
	handler := func(ctx context.Context, args map[string]any) any { return nil }
	r.MustRegister(types.ToolDescriptor{Name: "alpha", Description: "a"}, handler)
	r.MustRegister(types.ToolDescriptor{Name: "beta", Description: "b"}, handler)

	first := r.DescribeAll()
	second := r.DescribeAll()

	if !reflect.DeepEqual(first, second) {
		t.Error("DescribeAll() should be stable across calls")
	}
	if first[0].Name != "alpha" || first[1].Name != "beta" {
		t.Errorf("registration order not preserved: %v", first)
	}
}

func TestArgHelpers(t *testing.T) {
	args := map[string]any{
		"city":   " Leeds ",
		"count":  float64(7),
		"strnum": "12",
		"flag":   true,
		"blank":  "",
	}

	if got := stringArg(args, "city", ""); got != "Leeds" {
		t.Errorf("stringArg = %q", got)
	}
	if got := stringArg(args, "blank", "fallback"); got != "fallback" {
		t.Errorf("stringArg blank = %q", got)
	}
	if got := intArg(args, "count", 0); got != 7 {
		t.Errorf("intArg float = %d", got)
	}
	if got := intArg(args, "strnum", 0); got != 12 {
		t.Errorf("intArg string = %d", got)
	}
	if got := intArg(args, "missing", 3); got != 3 {
		t.Errorf("intArg missing = %d", got)
	}
	if got := boolArg(args, "flag", false); !got {
		t.Error("boolArg = false, want true")
	}
}
