package infra

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// Provider-imposed bounds on handler compute resources.
const (
	minRAMMB      = 128
	maxRAMMB      = 10240
	minTimeoutSec = 1
	maxTimeoutSec = 900

	// cpuTolerance is the maximum absolute difference allowed between a
	// declared CPU allocation and the value the calibration table implies
	// for the declared RAM. The tolerance is deliberately absolute, not
	// relative, matching the provider's published behavior.
	cpuTolerance = 0.1
)

// Validator validates infrastructure descriptors against provider constraints
// and internal consistency rules. It is stateless apart from the immutable
// calibration table, so a single instance may be shared by concurrent callers.
type Validator struct {
	resolver *CPUResolver
}

// NewValidator creates a validator backed by the built-in calibration table.
func NewValidator() *Validator {
	return &Validator{resolver: NewCPUResolver()}
}

var defaultValidator = NewValidator()

// Validate validates an untrusted infrastructure descriptor with the default
// validator. See Validator.Validate.
func Validate(raw any, schema FieldSchema) Result {
	return defaultValidator.Validate(raw, schema)
}

// ValidateConfig validates a typed infrastructure descriptor with the default
// validator. See Validator.ValidateConfig.
func ValidateConfig(cfg *Config, schema FieldSchema) Result {
	return defaultValidator.ValidateConfig(cfg, schema)
}

// Validate validates a whole infrastructure descriptor supplied as untrusted
// plain data. Structural mismatches (non-object descriptors, miss-shaped
// sub-objects, unknown top-level fields) are reported as violations, not
// panics. All validation passes run and every violation is accumulated;
// schema may be nil when the caller has no input contract to check against.
func (v *Validator) Validate(raw any, schema FieldSchema) Result {
	if raw == nil {
		return ok()
	}

	switch c := raw.(type) {
	case Config:
		return v.ValidateConfig(&c, schema)
	case *Config:
		return v.ValidateConfig(c, schema)
	}

	cfg, violations := decodeConfig(raw)
	res := v.ValidateConfig(cfg, schema)
	violations = append(violations, res.Violations...)
	if len(violations) == 0 {
		return ok()
	}
	return invalid(violations)
}

// ValidateConfig runs the four validation passes over a typed descriptor:
// handler fields, queue fields, cross-field consistency, and the
// message-grouping key against the supplied input schema. A nil or empty
// descriptor always succeeds; absent fields are never flagged or defaulted.
func (v *Validator) ValidateConfig(cfg *Config, schema FieldSchema) Result {
	if cfg == nil {
		return ok()
	}

	var violations []Violation
	v.checkHandler(cfg.Handler, &violations)
	v.checkQueue(cfg.Queue, &violations)

	// Cross-field and grouping-key checks run even when the field passes
	// already failed: the fields they involve may individually be valid.
	v.checkCrossField(cfg.Handler, cfg.Queue, &violations)
	v.checkMessageGroupKey(cfg.Queue, schema, &violations)

	if len(violations) == 0 {
		return ok()
	}
	return invalid(violations)
}

// checkHandler validates the handler compute shape. Each rule is independent;
// one failure never suppresses the others.
func (v *Validator) checkHandler(h *HandlerConfig, violations *[]Violation) {
	if h == nil {
		return
	}

	if h.RAM != nil && (*h.RAM < minRAMMB || *h.RAM > maxRAMMB) {
		*violations = append(*violations, Violation{
			Path: "handler.ram",
			Kind: KindRange,
			Message: fmt.Sprintf("ram must be between %d and %d MB, got %d",
				minRAMMB, maxRAMMB, *h.RAM),
		})
	}

	if h.Timeout != nil && (*h.Timeout < minTimeoutSec || *h.Timeout > maxTimeoutSec) {
		*violations = append(*violations, Violation{
			Path: "handler.timeout",
			Kind: KindRange,
			Message: fmt.Sprintf("timeout must be between %d and %d seconds, got %d",
				minTimeoutSec, maxTimeoutSec, *h.Timeout),
		})
	}

	if h.RAM != nil && h.CPU != nil {
		expected := v.resolver.Resolve(*h.RAM)
		if math.Abs(*h.CPU-expected) > cpuTolerance {
			*violations = append(*violations, Violation{
				Path: "handler.cpu",
				Kind: KindProportionality,
				Message: fmt.Sprintf("cpu %s does not match the %s compute units expected for %d MB (tolerance %s)",
					formatUnits(*h.CPU), formatUnits(expected), *h.RAM, formatUnits(cpuTolerance)),
			})
		}
	}

	if h.MachineType != nil && !slices.Contains(validMachineTypes, *h.MachineType) {
		*violations = append(*violations, Violation{
			Path: "handler.machineType",
			Kind: KindEnum,
			Message: fmt.Sprintf("machineType must be one of %s, got %q",
				joinEnum(validMachineTypes), *h.MachineType),
		})
	}
}

// checkQueue validates the queue behavior fields. visibilityTimeout carries
// no standalone bound; its only constraint is the cross-field rule.
func (v *Validator) checkQueue(q *QueueConfig, violations *[]Violation) {
	if q == nil {
		return
	}

	if q.Type != nil && !slices.Contains(validQueueTypes, *q.Type) {
		*violations = append(*violations, Violation{
			Path: "queue.type",
			Kind: KindEnum,
			Message: fmt.Sprintf("type must be one of %s, got %q",
				joinEnum(validQueueTypes), *q.Type),
		})
	}

	if q.MaxRetries != nil && *q.MaxRetries < 0 {
		*violations = append(*violations, Violation{
			Path:    "queue.maxRetries",
			Kind:    KindRange,
			Message: fmt.Sprintf("maxRetries must be >= 0, got %d", *q.MaxRetries),
		})
	}

	if q.RetryStrategy != nil && !slices.Contains(validRetryStrategies, *q.RetryStrategy) {
		*violations = append(*violations, Violation{
			Path: "queue.retryStrategy",
			Kind: KindEnum,
			Message: fmt.Sprintf("retryStrategy must be one of %s, got %q",
				joinEnum(validRetryStrategies), *q.RetryStrategy),
		})
	}

	if q.Type != nil && *q.Type == QueueTypeFifo {
		if q.MessageGroupID == nil || *q.MessageGroupID == "" {
			*violations = append(*violations, Violation{
				Path:    "queue.messageGroupId",
				Kind:    KindRequiredField,
				Message: "messageGroupId is required for fifo queues",
			})
		}
	}
}

// checkCrossField enforces the relationship between queue redelivery timing
// and handler runtime: a message must not become visible again while the
// handler invocation that received it can still be running.
func (v *Validator) checkCrossField(h *HandlerConfig, q *QueueConfig, violations *[]Violation) {
	if h == nil || q == nil || h.Timeout == nil || q.VisibilityTimeout == nil {
		return
	}

	if *q.VisibilityTimeout <= *h.Timeout {
		*violations = append(*violations, Violation{
			Path: "queue.visibilityTimeout",
			Kind: KindCrossField,
			Message: fmt.Sprintf("visibilityTimeout (%d) must be strictly greater than handler timeout (%d) to prevent redelivery of an in-flight message",
				*q.VisibilityTimeout, *h.Timeout),
		})
	}
}

// checkMessageGroupKey validates the declared message-grouping key against
// the step's input schema. First match wins; at most one violation is
// emitted. An empty key is left to the fifo required-field rule.
func (v *Validator) checkMessageGroupKey(q *QueueConfig, schema FieldSchema, violations *[]Violation) {
	if q == nil || q.MessageGroupID == nil || *q.MessageGroupID == "" {
		return
	}
	key := *q.MessageGroupID

	if schema == nil {
		*violations = append(*violations, Violation{
			Path:    "queue.messageGroupId",
			Kind:    KindSchemaUnavailable,
			Message: fmt.Sprintf("cannot verify messageGroupId %q: no input schema is available", key),
		})
		return
	}

	if strings.ContainsAny(key, ".[") {
		*violations = append(*violations, Violation{
			Path:    "queue.messageGroupId",
			Kind:    KindKeyPath,
			Message: fmt.Sprintf("messageGroupId %q must be a bare field name; nested paths and index access are not supported", key),
		})
		return
	}

	found, err := queryField(schema, key)
	if err != nil {
		*violations = append(*violations, Violation{
			Path:    "queue.messageGroupId",
			Kind:    KindIntrospection,
			Message: fmt.Sprintf("failed to inspect input schema for %q: %v", key, err),
		})
		return
	}
	if !found {
		*violations = append(*violations, Violation{
			Path:    "queue.messageGroupId",
			Kind:    KindKeyNotFound,
			Message: fmt.Sprintf("messageGroupId references unknown input field %q", key),
		})
	}
}

// decodeConfig converts an untrusted descriptor value into a typed Config,
// reporting structural problems as violations. Decoding is best-effort: a
// miss-shaped sub-object is flagged but does not stop the other sub-object
// from being decoded and validated.
func decodeConfig(raw any) (*Config, []Violation) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, []Violation{{
			Path:    "",
			Kind:    KindStructural,
			Message: fmt.Sprintf("infrastructure descriptor is not plain data: %v", err),
		}}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, []Violation{{
			Path:    "",
			Kind:    KindStructural,
			Message: fmt.Sprintf("infrastructure descriptor must be an object, got %s", jsonTypeName(data)),
		}}
	}

	cfg := &Config{}
	var violations []Violation

	// Deterministic violation order for unknown fields.
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		switch key {
		case "handler":
			var h HandlerConfig
			if err := json.Unmarshal(fields[key], &h); err != nil {
				violations = append(violations, Violation{
					Path:    "handler",
					Kind:    KindStructural,
					Message: fmt.Sprintf("invalid handler configuration: %v", err),
				})
				continue
			}
			cfg.Handler = &h
		case "queue":
			var q QueueConfig
			if err := json.Unmarshal(fields[key], &q); err != nil {
				violations = append(violations, Violation{
					Path:    "queue",
					Kind:    KindStructural,
					Message: fmt.Sprintf("invalid queue configuration: %v", err),
				})
				continue
			}
			cfg.Queue = &q
		default:
			violations = append(violations, Violation{
				Path:    key,
				Kind:    KindStructural,
				Message: fmt.Sprintf("unknown infrastructure field %q", key),
			})
		}
	}

	return cfg, violations
}

// jsonTypeName names the JSON type of an encoded value for error messages.
func jsonTypeName(data []byte) string {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return "empty input"
	}
	switch trimmed[0] {
	case '{':
		return "object"
	case '[':
		return "array"
	case '"':
		return "string"
	case 't', 'f':
		return "boolean"
	case 'n':
		return "null"
	default:
		return "number"
	}
}

// formatUnits renders a compute-unit value without trailing zeros.
func formatUnits(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// joinEnum renders an enum value set for error messages.
func joinEnum[T ~string](set []T) string {
	parts := make([]string, len(set))
	for i, v := range set {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}
