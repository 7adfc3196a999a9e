package steps

import (
	"testing"

	"github.com/stepforge/stepforge/pkg/infra"
)

func hasErrorAt(errs []StepError, path string) bool {
	for _, e := range errs {
		if e.Path == path {
			return true
		}
	}
	return false
}

func TestValidateStep(t *testing.T) {
	v := NewStepValidator()

	tests := []struct {
		name        string
		def         *Definition
		wantSuccess bool
		wantPath    string
	}{
		{
			name:        "valid noop",
			def:         &Definition{Name: "stub", Kind: KindNoop},
			wantSuccess: true,
		},
		{
			name: "valid event",
			def: &Definition{
				Name:       "order-processor",
				Kind:       KindEvent,
				Subscribes: []string{"order.created"},
			},
			wantSuccess: true,
		},
		{
			name: "valid api",
			def: &Definition{
				Name:   "create-order",
				Kind:   KindAPI,
				Path:   "/orders",
				Method: "POST",
			},
			wantSuccess: true,
		},
		{
			name:        "valid cron",
			def:         &Definition{Name: "nightly-report", Kind: KindCron, Cron: "0 2 * * *"},
			wantSuccess: true,
		},
		{
			name:     "missing name",
			def:      &Definition{Kind: KindNoop},
			wantPath: "name",
		},
		{
			name:     "unknown kind",
			def:      &Definition{Name: "stub", Kind: "lambda"},
			wantPath: "kind",
		},
		{
			name:     "api with bad method",
			def:      &Definition{Name: "create-order", Kind: KindAPI, Path: "/orders", Method: "FETCH"},
			wantPath: "method",
		},
		{
			name:     "api with relative path",
			def:      &Definition{Name: "create-order", Kind: KindAPI, Path: "orders"},
			wantPath: "path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := v.ValidateStep(tt.def)
			if res.Success != tt.wantSuccess {
				t.Fatalf("Success = %v, want %v (errors: %+v)", res.Success, tt.wantSuccess, res.Errors)
			}
			if tt.wantPath != "" && !hasErrorAt(res.Errors, tt.wantPath) {
				t.Errorf("expected an error at path %q, got %+v", tt.wantPath, res.Errors)
			}
		})
	}
}

func TestValidateStep_NilDefinition(t *testing.T) {
	v := NewStepValidator()

	res := v.ValidateStep(nil)
	if res.Success {
		t.Fatal("expected failure for nil definition")
	}
	if len(res.Errors) != 1 {
		t.Fatalf("expected exactly one error, got %d", len(res.Errors))
	}
}

func TestValidateStep_EventWithoutSubscriptions(t *testing.T) {
	v := NewStepValidator()

	res := v.ValidateStep(&Definition{Name: "order-processor", Kind: KindEvent})
	if res.Success {
		t.Fatal("expected event step without subscriptions to fail")
	}
	if res.Error == "" {
		t.Error("expected a summary error message")
	}
}

func TestValidateInfrastructure(t *testing.T) {
	v := NewStepValidator()

	t.Run("no infrastructure is valid", func(t *testing.T) {
		res := v.ValidateInfrastructure(&Definition{Name: "stub", Kind: KindNoop})
		if !res.Valid {
			t.Errorf("expected valid result, got %+v", res.Violations)
		}
	})

	t.Run("nil definition is valid", func(t *testing.T) {
		if res := v.ValidateInfrastructure(nil); !res.Valid {
			t.Errorf("expected valid result, got %+v", res.Violations)
		}
	})

	t.Run("descriptor violations surface", func(t *testing.T) {
		def := &Definition{
			Name: "order-processor",
			Kind: KindEvent,
			Infrastructure: map[string]any{
				"handler": map[string]any{"ram": 64},
			},
		}
		res := v.ValidateInfrastructure(def)
		if res.Valid {
			t.Fatal("expected ram violation")
		}
		if res.Violations[0].Path != "handler.ram" {
			t.Errorf("Path = %q, want handler.ram", res.Violations[0].Path)
		}
	})

	t.Run("grouping key resolved against input schema", func(t *testing.T) {
		def := &Definition{
			Name: "order-processor",
			Kind: KindEvent,
			Input: &InputSchema{
				Type: "object",
				Properties: map[string]*InputField{
					"orderId": {Type: "string"},
				},
			},
			Infrastructure: map[string]any{
				"queue": map[string]any{
					"type":              "fifo",
					"messageGroupId":    "orderId",
					"visibilityTimeout": 60,
				},
			},
		}
		if res := v.ValidateInfrastructure(def); !res.Valid {
			t.Errorf("expected valid result, got %+v", res.Violations)
		}
	})

	t.Run("missing input schema reported as unavailable", func(t *testing.T) {
		def := &Definition{
			Name: "order-processor",
			Kind: KindEvent,
			Infrastructure: map[string]any{
				"queue": map[string]any{
					"type":           "fifo",
					"messageGroupId": "orderId",
				},
			},
		}
		res := v.ValidateInfrastructure(def)
		if res.Valid {
			t.Fatal("expected schema-unavailable violation")
		}
		found := false
		for _, viol := range res.Violations {
			if viol.Kind == infra.KindSchemaUnavailable {
				found = true
			}
			if viol.Kind == infra.KindKeyNotFound {
				t.Errorf("nil input schema must not be queried, got %+v", viol)
			}
		}
		if !found {
			t.Errorf("expected %s violation, got %+v", infra.KindSchemaUnavailable, res.Violations)
		}
	})
}

func TestValidate_MergedReport(t *testing.T) {
	v := NewStepValidator()

	def := &Definition{
		Name:       "order-processor",
		Kind:       KindEvent,
		Subscribes: []string{"order.created"},
		SourceFile: "steps/order-processor.step.yaml",
		Infrastructure: map[string]any{
			"handler": map[string]any{"ram": 1024, "timeout": 60},
			"queue":   map[string]any{"visibilityTimeout": 30},
		},
	}

	report := v.Validate(def)
	if report.Valid {
		t.Fatal("expected cross-field violation in report")
	}
	if report.Step != "order-processor" {
		t.Errorf("Step = %q, want order-processor", report.Step)
	}
	if report.SourceFile != "steps/order-processor.step.yaml" {
		t.Errorf("SourceFile = %q", report.SourceFile)
	}
	if !hasErrorAt(report.Errors, "infrastructure.queue.visibilityTimeout") {
		t.Errorf("expected infrastructure-prefixed path, got %+v", report.Errors)
	}
}

func TestValidate_ValidStep(t *testing.T) {
	v := NewStepValidator()

	def := &Definition{
		Name: "create-order",
		Kind: KindAPI,
		Path: "/orders",
		Infrastructure: map[string]any{
			"handler": map[string]any{"ram": 2048, "cpu": 1.0, "timeout": 30},
		},
	}

	report := v.Validate(def)
	if !report.Valid {
		t.Fatalf("expected valid report, got %+v", report.Errors)
	}
	if len(report.Errors) != 0 {
		t.Errorf("expected no errors, got %+v", report.Errors)
	}
}

func TestValidate_NilDefinition(t *testing.T) {
	v := NewStepValidator()

	report := v.Validate(nil)
	if report.Valid {
		t.Fatal("expected invalid report for nil definition")
	}
	if report.Step != "unknown" {
		t.Errorf("Step = %q, want unknown", report.Step)
	}
}

func TestValidate_NamelessStepKeyedBySourceFile(t *testing.T) {
	v := NewStepValidator()

	def := &Definition{Kind: KindNoop, SourceFile: "steps/broken.step.yaml"}
	report := v.Validate(def)
	if report.Valid {
		t.Fatal("expected invalid report for nameless step")
	}
	if report.Step != "steps/broken.step.yaml" {
		t.Errorf("Step = %q, want source file fallback", report.Step)
	}
}

func TestHasQueue(t *testing.T) {
	tests := []struct {
		name string
		def  Definition
		want bool
	}{
		{
			name: "queue present",
			def:  Definition{Infrastructure: map[string]any{"queue": map[string]any{"type": "fifo"}}},
			want: true,
		},
		{
			name: "handler only",
			def:  Definition{Infrastructure: map[string]any{"handler": map[string]any{"ram": 512}}},
		},
		{
			name: "nil queue",
			def:  Definition{Infrastructure: map[string]any{"queue": nil}},
		},
		{
			name: "no infrastructure",
			def:  Definition{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.def.HasQueue(); got != tt.want {
				t.Errorf("HasQueue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInputSchema_HasField(t *testing.T) {
	schema := &InputSchema{
		Type: "object",
		Properties: map[string]*InputField{
			"orderId": {Type: "string"},
		},
	}

	if !schema.HasField("orderId") {
		t.Error("expected declared field to be found")
	}
	if schema.HasField("userId") {
		t.Error("expected undeclared field to be missing")
	}

	var nilSchema *InputSchema
	if nilSchema.HasField("orderId") {
		t.Error("nil schema must report no fields")
	}
}
