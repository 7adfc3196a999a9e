package policy

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

const testRegoPolicy = `# Flags steps that emit to more than ten topics.
package stepforge.policies.fanout

import rego.v1

deny contains violation if {
	count(input.step.emits) > 10
	violation := {
		"message": sprintf("Step %s emits to %d topics", [input.step.name, count(input.step.emits)]),
		"severity": "warning",
		"step": input.step.name,
	}
}`

func writePolicyFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write policy file: %v", err)
	}
	return path
}

func TestLoader_LoadRegoFile(t *testing.T) {
	dir := t.TempDir()
	loader := NewLoader(zerolog.Nop())
	path := writePolicyFile(t, dir, "fanout.rego", testRegoPolicy)

	policies, err := loader.LoadFromPaths(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(policies) != 1 {
		t.Fatalf("expected 1 policy, got %d", len(policies))
	}

	p := policies[0]
	if p.Name != "fanout" {
		t.Errorf("Name = %q, want fanout", p.Name)
	}
	if p.Severity != SeverityWarning {
		t.Errorf("Severity = %s, want default warning", p.Severity)
	}
	if !p.Enabled {
		t.Error("loaded policy must be enabled by default")
	}
	if p.Description == "" {
		t.Error("expected description from leading comment")
	}
}

func TestLoader_LoadJSONFile(t *testing.T) {
	dir := t.TempDir()
	loader := NewLoader(zerolog.Nop())

	policy := Policy{
		Name:     "custom",
		Rego:     testRegoPolicy,
		Severity: SeverityError,
		Enabled:  true,
	}
	data, err := json.Marshal(policy)
	if err != nil {
		t.Fatalf("failed to marshal policy: %v", err)
	}
	path := writePolicyFile(t, dir, "custom.json", string(data))

	policies, err := loader.LoadFromPaths(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(policies) != 1 {
		t.Fatalf("expected 1 policy, got %d", len(policies))
	}
	if policies[0].Severity != SeverityError {
		t.Errorf("Severity = %s, want error", policies[0].Severity)
	}
	if policies[0].CreatedAt.IsZero() {
		t.Error("expected CreatedAt default")
	}
}

func TestLoader_LoadDirectory(t *testing.T) {
	dir := t.TempDir()
	loader := NewLoader(zerolog.Nop())

	writePolicyFile(t, dir, "fanout.rego", testRegoPolicy)
	writePolicyFile(t, dir, filepath.Join("nested", "other.rego"), testRegoPolicy)
	writePolicyFile(t, dir, "readme.md", "not a policy")
	writePolicyFile(t, dir, "broken.json", "{not json")

	policies, err := loader.LoadFromPaths(context.Background(), []string{dir})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The broken JSON file is skipped, not fatal.
	if len(policies) != 2 {
		t.Errorf("expected 2 policies, got %d", len(policies))
	}
}

func TestLoader_MissingPath(t *testing.T) {
	loader := NewLoader(zerolog.Nop())

	_, err := loader.LoadFromPaths(context.Background(), []string{filepath.Join(t.TempDir(), "absent")})
	if err == nil {
		t.Fatal("expected error for missing path")
	}
}

func TestLoader_Cache(t *testing.T) {
	dir := t.TempDir()
	loader := NewLoader(zerolog.Nop())
	path := writePolicyFile(t, dir, "fanout.rego", testRegoPolicy)
	ctx := context.Background()

	first, err := loader.LoadFromPaths(ctx, []string{path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A rewrite without a cache clear still serves the cached policy.
	writePolicyFile(t, dir, "fanout.rego", "# changed\npackage stepforge.policies.fanout\nimport rego.v1\n")
	second, err := loader.LoadFromPaths(ctx, []string{path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first[0].Rego != second[0].Rego {
		t.Error("expected cached policy before ClearCache")
	}

	loader.ClearCache()
	third, err := loader.LoadFromPaths(ctx, []string{path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first[0].Rego == third[0].Rego {
		t.Error("expected fresh policy after ClearCache")
	}
}

func TestExtractDescription(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "leading comment block",
			content: "# First line.\n# Second line.\npackage x\n",
			want:    "First line. Second line.",
		},
		{
			name:    "no comments",
			content: "package x\n",
			want:    "",
		},
		{
			name:    "stops at code",
			content: "# Header.\npackage x\n# trailing comment\n",
			want:    "Header.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractDescription(tt.content); got != tt.want {
				t.Errorf("extractDescription() = %q, want %q", got, tt.want)
			}
		})
	}
}
