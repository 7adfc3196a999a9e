package infra

import (
	"reflect"
	"strings"
	"testing"
)

func intPtr(v int) *int                    { return &v }
func floatPtr(v float64) *float64          { return &v }
func strPtr(v string) *string              { return &v }
func machinePtr(v MachineType) *MachineType { return &v }
func queuePtr(v QueueType) *QueueType       { return &v }
func retryPtr(v RetryStrategy) *RetryStrategy { return &v }

// findViolation returns the first violation matching path and kind, or nil.
func findViolation(res Result, path string, kind ViolationKind) *Violation {
	for i := range res.Violations {
		if res.Violations[i].Path == path && res.Violations[i].Kind == kind {
			return &res.Violations[i]
		}
	}
	return nil
}

func TestValidateConfig_EmptyDescriptorSucceeds(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"nil config", nil},
		{"empty config", &Config{}},
		{"empty handler and queue", &Config{Handler: &HandlerConfig{}, Queue: &QueueConfig{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidateConfig(tt.cfg, nil)
			if !res.Valid {
				t.Errorf("expected success, got violations: %+v", res.Violations)
			}
		})
	}
}

func TestValidateConfig_HandlerFields(t *testing.T) {
	tests := []struct {
		name     string
		handler  HandlerConfig
		wantPath string
		wantKind ViolationKind
		wantIn   string
	}{
		{
			name:     "ram below minimum",
			handler:  HandlerConfig{RAM: intPtr(64), Timeout: intPtr(30), MachineType: machinePtr(MachineTypeCPU)},
			wantPath: "handler.ram",
			wantKind: KindRange,
			wantIn:   "128",
		},
		{
			name:     "ram above maximum",
			handler:  HandlerConfig{RAM: intPtr(20480)},
			wantPath: "handler.ram",
			wantKind: KindRange,
			wantIn:   "10240",
		},
		{
			name:     "timeout below minimum",
			handler:  HandlerConfig{Timeout: intPtr(0)},
			wantPath: "handler.timeout",
			wantKind: KindRange,
			wantIn:   "900",
		},
		{
			name:     "timeout above maximum",
			handler:  HandlerConfig{Timeout: intPtr(901)},
			wantPath: "handler.timeout",
			wantKind: KindRange,
			wantIn:   "901",
		},
		{
			name:     "cpu out of proportion",
			handler:  HandlerConfig{RAM: intPtr(2048), CPU: floatPtr(3), Timeout: intPtr(30), MachineType: machinePtr(MachineTypeCPU)},
			wantPath: "handler.cpu",
			wantKind: KindProportionality,
			wantIn:   "1",
		},
		{
			name:     "unknown machine type",
			handler:  HandlerConfig{MachineType: machinePtr("turbo")},
			wantPath: "handler.machineType",
			wantKind: KindEnum,
			wantIn:   "turbo",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidateConfig(&Config{Handler: &tt.handler}, nil)
			if res.Valid {
				t.Fatal("expected validation failure, got success")
			}
			v := findViolation(res, tt.wantPath, tt.wantKind)
			if v == nil {
				t.Fatalf("missing violation path=%s kind=%s in %+v", tt.wantPath, tt.wantKind, res.Violations)
			}
			if !strings.Contains(v.Message, tt.wantIn) {
				t.Errorf("message %q does not mention %q", v.Message, tt.wantIn)
			}
		})
	}
}

func TestValidateConfig_ProportionalityMessageNamesBothValues(t *testing.T) {
	res := ValidateConfig(&Config{Handler: &HandlerConfig{RAM: intPtr(2048), CPU: floatPtr(3)}}, nil)

	v := findViolation(res, "handler.cpu", KindProportionality)
	if v == nil {
		t.Fatalf("expected proportionality violation, got %+v", res.Violations)
	}
	if !strings.Contains(v.Message, "3") || !strings.Contains(v.Message, "1") {
		t.Errorf("message %q must name both the observed (3) and expected (1) values", v.Message)
	}
}

func TestValidateConfig_CPUWithinTolerance(t *testing.T) {
	tests := []struct {
		name             string
		ram              int
		cpu              float64
		wantCPUViolation bool
	}{
		{"exact", 2048, 1, false},
		{"just inside tolerance", 2048, 1.09, false},
		{"outside tolerance", 2048, 1.15, true},
		{"interpolated ram", 1792, 0.875, false},
		// The ram range check fails independently, but the cpu matches the
		// clamped expectation so no proportionality violation is emitted.
		{"clamped ram", 64, 0.0625, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidateConfig(&Config{Handler: &HandlerConfig{RAM: intPtr(tt.ram), CPU: floatPtr(tt.cpu)}}, nil)
			got := findViolation(res, "handler.cpu", KindProportionality) != nil
			if got != tt.wantCPUViolation {
				t.Errorf("cpu violation = %v, want %v (violations: %+v)", got, tt.wantCPUViolation, res.Violations)
			}
		})
	}
}

func TestValidateConfig_QueueFields(t *testing.T) {
	tests := []struct {
		name     string
		queue    QueueConfig
		wantPath string
		wantKind ViolationKind
	}{
		{
			name:     "unknown queue type",
			queue:    QueueConfig{Type: queuePtr("priority")},
			wantPath: "queue.type",
			wantKind: KindEnum,
		},
		{
			name:     "negative max retries",
			queue:    QueueConfig{MaxRetries: intPtr(-1)},
			wantPath: "queue.maxRetries",
			wantKind: KindRange,
		},
		{
			name:     "unknown retry strategy",
			queue:    QueueConfig{RetryStrategy: retryPtr("linear")},
			wantPath: "queue.retryStrategy",
			wantKind: KindEnum,
		},
		{
			name:     "fifo without group id",
			queue:    QueueConfig{Type: queuePtr(QueueTypeFifo), VisibilityTimeout: intPtr(60), MaxRetries: intPtr(3), RetryStrategy: retryPtr(RetryStrategyNone)},
			wantPath: "queue.messageGroupId",
			wantKind: KindRequiredField,
		},
		{
			name:     "fifo with empty group id",
			queue:    QueueConfig{Type: queuePtr(QueueTypeFifo), MessageGroupID: strPtr("")},
			wantPath: "queue.messageGroupId",
			wantKind: KindRequiredField,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidateConfig(&Config{Queue: &tt.queue}, nil)
			if res.Valid {
				t.Fatal("expected validation failure, got success")
			}
			if findViolation(res, tt.wantPath, tt.wantKind) == nil {
				t.Errorf("missing violation path=%s kind=%s in %+v", tt.wantPath, tt.wantKind, res.Violations)
			}
		})
	}
}

func TestValidateConfig_VisibilityTimeoutHasNoStandaloneBound(t *testing.T) {
	// An enormous visibilityTimeout with no handler timeout to compare
	// against is not a violation.
	res := ValidateConfig(&Config{Queue: &QueueConfig{Type: queuePtr(QueueTypeStandard), VisibilityTimeout: intPtr(1 << 20)}}, nil)
	if !res.Valid {
		t.Errorf("expected success, got %+v", res.Violations)
	}
}

func TestValidateConfig_CrossField(t *testing.T) {
	base := func(visibility int) *Config {
		return &Config{
			Handler: &HandlerConfig{RAM: intPtr(2048), Timeout: intPtr(30), MachineType: machinePtr(MachineTypeCPU)},
			Queue: &QueueConfig{
				Type:              queuePtr(QueueTypeStandard),
				VisibilityTimeout: intPtr(visibility),
				MaxRetries:        intPtr(3),
				RetryStrategy:     retryPtr(RetryStrategyNone),
			},
		}
	}

	t.Run("equal timeouts fail", func(t *testing.T) {
		res := ValidateConfig(base(30), nil)
		v := findViolation(res, "queue.visibilityTimeout", KindCrossField)
		if v == nil {
			t.Fatalf("expected cross-field violation, got %+v", res.Violations)
		}
		if !strings.Contains(v.Message, "30") {
			t.Errorf("message %q must name both observed values", v.Message)
		}
	})

	t.Run("strictly greater succeeds", func(t *testing.T) {
		res := ValidateConfig(base(31), nil)
		if !res.Valid {
			t.Errorf("expected success, got %+v", res.Violations)
		}
	})

	t.Run("runs even when field checks failed", func(t *testing.T) {
		cfg := base(10)
		cfg.Handler.RAM = intPtr(64) // range violation on top
		res := ValidateConfig(cfg, nil)
		if findViolation(res, "handler.ram", KindRange) == nil {
			t.Error("expected ram range violation")
		}
		if findViolation(res, "queue.visibilityTimeout", KindCrossField) == nil {
			t.Error("expected cross-field violation alongside field violation")
		}
	})
}

func TestValidateConfig_MessageGroupKey(t *testing.T) {
	schema := FieldSchemaFunc(func(name string) bool { return name == "traceId" })

	queue := func(key string) *Config {
		return &Config{Queue: &QueueConfig{
			Type:              queuePtr(QueueTypeFifo),
			VisibilityTimeout: intPtr(60),
			MessageGroupID:    strPtr(key),
		}}
	}

	t.Run("declared field exists", func(t *testing.T) {
		res := ValidateConfig(queue("traceId"), schema)
		if !res.Valid {
			t.Errorf("expected success, got %+v", res.Violations)
		}
	})

	t.Run("nested path rejected", func(t *testing.T) {
		res := ValidateConfig(queue("user.id"), schema)
		if findViolation(res, "queue.messageGroupId", KindKeyPath) == nil {
			t.Errorf("expected key-path violation, got %+v", res.Violations)
		}
	})

	t.Run("index access rejected", func(t *testing.T) {
		res := ValidateConfig(queue("items[0]"), schema)
		if findViolation(res, "queue.messageGroupId", KindKeyPath) == nil {
			t.Errorf("expected key-path violation, got %+v", res.Violations)
		}
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		res := ValidateConfig(queue("userId"), schema)
		v := findViolation(res, "queue.messageGroupId", KindKeyNotFound)
		if v == nil {
			t.Fatalf("expected key-not-found violation, got %+v", res.Violations)
		}
		if !strings.Contains(v.Message, "userId") {
			t.Errorf("message %q must name the missing key", v.Message)
		}
	})

	t.Run("missing schema is an explicit violation", func(t *testing.T) {
		res := ValidateConfig(queue("traceId"), nil)
		if findViolation(res, "queue.messageGroupId", KindSchemaUnavailable) == nil {
			t.Errorf("expected schema-unavailable violation, got %+v", res.Violations)
		}
	})

	t.Run("at most one grouping-key violation", func(t *testing.T) {
		res := ValidateConfig(queue("user.id"), nil)
		count := 0
		for _, v := range res.Violations {
			if v.Path == "queue.messageGroupId" {
				count++
			}
		}
		if count != 1 {
			t.Errorf("expected exactly one grouping-key violation, got %d: %+v", count, res.Violations)
		}
	})

	t.Run("absent key checks nothing", func(t *testing.T) {
		res := ValidateConfig(&Config{Queue: &QueueConfig{Type: queuePtr(QueueTypeStandard)}}, nil)
		if !res.Valid {
			t.Errorf("expected success, got %+v", res.Violations)
		}
	})
}

func TestValidateConfig_PanickingSchemaIsIsolated(t *testing.T) {
	schema := FieldSchemaFunc(func(name string) bool {
		panic("malformed schema object")
	})

	cfg := &Config{Queue: &QueueConfig{MessageGroupID: strPtr("traceId")}}

	res := ValidateConfig(cfg, schema)
	v := findViolation(res, "queue.messageGroupId", KindIntrospection)
	if v == nil {
		t.Fatalf("expected introspection-failure violation, got %+v", res.Violations)
	}
	if !strings.Contains(v.Message, "malformed schema object") {
		t.Errorf("message %q must carry the underlying failure description", v.Message)
	}
}

func TestValidate_UntrustedInput(t *testing.T) {
	tests := []struct {
		name     string
		raw      any
		wantPath string
	}{
		{"non-object descriptor", "not a config", ""},
		{"array descriptor", []any{1, 2}, ""},
		{"unknown top-level field", map[string]any{"handlers": map[string]any{}}, "handlers"},
		{"miss-shaped handler", map[string]any{"handler": "big"}, "handler"},
		{"miss-shaped queue", map[string]any{"queue": 42}, "queue"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Validate(tt.raw, nil)
			if res.Valid {
				t.Fatal("expected structural violation, got success")
			}
			if findViolation(res, tt.wantPath, KindStructural) == nil {
				t.Errorf("missing structural violation at %q in %+v", tt.wantPath, res.Violations)
			}
		})
	}
}

func TestValidate_UntrustedInputStillValidatesGoodParts(t *testing.T) {
	raw := map[string]any{
		"handler": map[string]any{"ram": 64},
		"queue":   "oops",
	}

	res := Validate(raw, nil)
	if findViolation(res, "queue", KindStructural) == nil {
		t.Error("expected structural violation for queue")
	}
	if findViolation(res, "handler.ram", KindRange) == nil {
		t.Error("expected handler.ram validation despite the broken queue")
	}
}

func TestValidate_PlainDataDescriptor(t *testing.T) {
	raw := map[string]any{
		"handler": map[string]any{"ram": 2048, "timeout": 30, "machineType": "cpu"},
		"queue": map[string]any{
			"type":              "standard",
			"visibilityTimeout": 31,
			"maxRetries":        3,
			"retryStrategy":     "none",
		},
	}

	res := Validate(raw, nil)
	if !res.Valid {
		t.Errorf("expected success, got %+v", res.Violations)
	}

	if res := Validate(nil, nil); !res.Valid {
		t.Errorf("nil descriptor must succeed, got %+v", res.Violations)
	}
	if res := Validate(map[string]any{}, nil); !res.Valid {
		t.Errorf("empty descriptor must succeed, got %+v", res.Violations)
	}
}

func TestValidate_AccumulatesAcrossPasses(t *testing.T) {
	cfg := &Config{
		Handler: &HandlerConfig{RAM: intPtr(64), Timeout: intPtr(1000), MachineType: machinePtr("quantum")},
		Queue: &QueueConfig{
			Type:              queuePtr(QueueTypeFifo),
			VisibilityTimeout: intPtr(500),
			MaxRetries:        intPtr(-2),
			RetryStrategy:     retryPtr("bogus"),
		},
	}

	res := ValidateConfig(cfg, nil)
	wantKinds := []ViolationKind{KindRange, KindRange, KindEnum, KindRange, KindEnum, KindRequiredField, KindCrossField}
	if len(res.Violations) != len(wantKinds) {
		t.Fatalf("expected %d violations, got %d: %+v", len(wantKinds), len(res.Violations), res.Violations)
	}
}

func TestValidate_Idempotent(t *testing.T) {
	cfg := &Config{
		Handler: &HandlerConfig{RAM: intPtr(64), CPU: floatPtr(9), Timeout: intPtr(30)},
		Queue:   &QueueConfig{Type: queuePtr(QueueTypeFifo)},
	}

	first := ValidateConfig(cfg, nil)
	second := ValidateConfig(cfg, nil)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("validation is not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}
