package tool

import (
	"context"
	"reflect"
	"strings"
	"testing"
)

func noopHandler(_ context.Context, _ map[string]any, _ ExecutionContext) (Result, error) {
	return Result{}, nil
}

func TestNewRegistry(t *testing.T) {
	tests := []struct {
		name    string
		tools   []Tool
		wantErr string
	}{
		{
			name: "valid tools",
			tools: []Tool{
				{Name: "echo", Handler: noopHandler},
				{Key: "custom-key", Name: "custom-tool-name", Handler: noopHandler},
			},
		},
		{
			name:    "empty name",
			tools:   []Tool{{Key: "k", Handler: noopHandler}},
			wantErr: "tool name must not be empty",
		},
		{
			name:    "missing handler",
			tools:   []Tool{{Name: "echo"}},
			wantErr: "tool echo has no handler",
		},
		{
			name: "duplicate key",
			tools: []Tool{
				{Key: "same", Name: "a", Handler: noopHandler},
				{Key: "same", Name: "b", Handler: noopHandler},
			},
			wantErr: "duplicate tool key: same",
		},
		{
			name: "duplicate name under different keys",
			tools: []Tool{
				{Key: "a", Name: "same", Handler: noopHandler},
				{Key: "b", Name: "same", Handler: noopHandler},
			},
			wantErr: "duplicate tool name: same",
		},
		{
			// key defaults to name, so this collides with the first tool's key
			name: "defaulted key collides with explicit key",
			tools: []Tool{
				{Key: "echo", Name: "echo-v1", Handler: noopHandler},
				{Name: "echo", Handler: noopHandler},
			},
			wantErr: "duplicate tool key: echo",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRegistry(tt.tools...)
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("expected error containing %q, got nil", tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("expected error containing %q, got %q", tt.wantErr, err.Error())
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if r.Len() != len(tt.tools) {
				t.Errorf("expected %d tools, got %d", len(tt.tools), r.Len())
			}
		})
	}
}

func TestRegistryLookupByNameOnly(t *testing.T) {
	r := MustNewRegistry(
		Tool{Key: "custom-key", Name: "custom-tool-name", Handler: noopHandler},
	)

	got, ok := r.Lookup("custom-tool-name")
	if !ok {
		t.Fatal("expected tool to be found by its name")
	}
	if got.Key != "custom-key" {
		t.Errorf("expected key custom-key, got %s", got.Key)
	}

	if _, ok := r.Lookup("custom-key"); ok {
		t.Error("expected lookup by registry key to fail")
	}
}

func TestRegistryPreservesInsertionOrder(t *testing.T) {
	r := MustNewRegistry(
		Tool{Name: "zeta", Handler: noopHandler},
		Tool{Name: "alpha", Handler: noopHandler},
		Tool{Name: "mid", Handler: noopHandler},
	)

	want := []string{"zeta", "alpha", "mid"}
	if got := r.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}

	tools := r.Tools()
	for i, tl := range tools {
		if tl.Name != want[i] {
			t.Errorf("Tools()[%d].Name = %s, want %s", i, tl.Name, want[i])
		}
	}

	// mutating the returned slice must not affect the registry
	tools[0].Name = "changed"
	if r.Names()[0] != "zeta" {
		t.Error("registry was mutated through the slice returned by Tools()")
	}
}

func TestMustNewRegistryPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected MustNewRegistry to panic on invalid input")
		}
	}()
	MustNewRegistry(Tool{Name: "no-handler"})
}

func TestEnvIsASnapshot(t *testing.T) {
	vars := map[string]string{"API_KEY": "secret"}
	env := NewEnv(vars)

	vars["API_KEY"] = "changed"
	vars["NEW"] = "value"

	if got := env.Get("API_KEY"); got != "secret" {
		t.Errorf("expected snapshot value 'secret', got %q", got)
	}
	if _, ok := env.Lookup("NEW"); ok {
		t.Error("expected variable added after snapshot to be absent")
	}
	if env.Len() != 1 {
		t.Errorf("expected 1 variable, got %d", env.Len())
	}
}

func TestValidateMode(t *testing.T) {
	tests := []struct {
		input   string
		want    Mode
		wantErr bool
	}{
		{"", ModeExecute, false},
		{"execute", ModeExecute, false},
		{"estimate", ModeEstimate, false},
		{"dry-run", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ValidateMode(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateMode(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ValidateMode(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
