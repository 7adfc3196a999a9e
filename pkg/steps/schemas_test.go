package steps

import (
	"strings"
	"testing"
)

func TestNewSchemaRegistry_BuiltinKinds(t *testing.T) {
	sr := NewSchemaRegistry()

	for _, kind := range []Kind{KindNoop, KindEvent, KindAPI, KindCron} {
		if _, ok := sr.GetSchema(kind); !ok {
			t.Errorf("expected built-in schema for kind %s", kind)
		}
	}

	if _, ok := sr.GetSchema(Kind("lambda")); ok {
		t.Error("expected no schema for unregistered kind")
	}
}

func TestRegisterSchema_Invalid(t *testing.T) {
	sr := NewSchemaRegistry()

	err := sr.RegisterSchema(Kind("custom"), `#Custom: { name: string & }`)
	if err == nil {
		t.Fatal("expected error for malformed schema")
	}
	if !strings.Contains(err.Error(), "custom") {
		t.Errorf("expected error to name the kind, got: %v", err)
	}
}

func TestRegisterSchema_Replace(t *testing.T) {
	sr := NewSchemaRegistry()

	schema := `
#Noop: {
	name: string
	kind: "noop"
	description: string
	...
}
#Noop
`
	if err := sr.RegisterSchema(KindNoop, schema); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The replacement makes description required, so a bare noop step
	// should now fail.
	def := &Definition{Name: "stub", Kind: KindNoop}
	if err := sr.ValidateAgainstKind(KindNoop, def); err == nil {
		t.Error("expected replaced schema to reject step without description")
	}

	def.Description = "placeholder"
	if err := sr.ValidateAgainstKind(KindNoop, def); err != nil {
		t.Errorf("expected replaced schema to accept step with description, got: %v", err)
	}
}

func TestValidateAgainstKind(t *testing.T) {
	sr := NewSchemaRegistry()

	tests := []struct {
		name    string
		kind    Kind
		def     *Definition
		wantErr bool
	}{
		{
			name: "valid noop",
			kind: KindNoop,
			def:  &Definition{Name: "placeholder", Kind: KindNoop},
		},
		{
			name: "valid event",
			kind: KindEvent,
			def: &Definition{
				Name:       "order-processor",
				Kind:       KindEvent,
				Subscribes: []string{"order.created"},
				Emits:      []string{"order.processed"},
			},
		},
		{
			name:    "event without subscriptions",
			kind:    KindEvent,
			def:     &Definition{Name: "order-processor", Kind: KindEvent},
			wantErr: true,
		},
		{
			name: "valid api",
			kind: KindAPI,
			def: &Definition{
				Name:   "create-order",
				Kind:   KindAPI,
				Path:   "/orders",
				Method: "POST",
			},
		},
		{
			name:    "api without path",
			kind:    KindAPI,
			def:     &Definition{Name: "create-order", Kind: KindAPI},
			wantErr: true,
		},
		{
			name:    "api with relative path",
			kind:    KindAPI,
			def:     &Definition{Name: "create-order", Kind: KindAPI, Path: "orders"},
			wantErr: true,
		},
		{
			name: "valid cron",
			kind: KindCron,
			def:  &Definition{Name: "nightly-report", Kind: KindCron, Cron: "0 2 * * *"},
		},
		{
			name:    "cron without schedule",
			kind:    KindCron,
			def:     &Definition{Name: "nightly-report", Kind: KindCron},
			wantErr: true,
		},
		{
			name:    "name with spaces",
			kind:    KindNoop,
			def:     &Definition{Name: "bad name", Kind: KindNoop},
			wantErr: true,
		},
		{
			name:    "kind mismatch",
			kind:    KindEvent,
			def:     &Definition{Name: "create-order", Kind: KindAPI, Path: "/orders"},
			wantErr: true,
		},
		{
			name: "infrastructure accepted as open struct",
			kind: KindEvent,
			def: &Definition{
				Name:       "order-processor",
				Kind:       KindEvent,
				Subscribes: []string{"order.created"},
				Infrastructure: map[string]any{
					"handler": map[string]any{"ram": 1024},
					"queue":   map[string]any{"type": "fifo"},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sr.ValidateAgainstKind(tt.kind, tt.def)
			if tt.wantErr && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestValidateAgainstKind_UnknownKind(t *testing.T) {
	sr := NewSchemaRegistry()

	err := sr.ValidateAgainstKind(Kind("lambda"), &Definition{Name: "x", Kind: "lambda"})
	if err == nil {
		t.Fatal("expected error for unknown kind")
	}
	if !strings.Contains(err.Error(), "lambda") {
		t.Errorf("expected error to name the kind, got: %v", err)
	}
}
