package infra

// ViolationKind classifies a validation violation for programmatic handling.
// All kinds are non-fatal: the validator collects every violation it finds
// and returns them in one batch.
type ViolationKind string

const (
	// KindStructural indicates the descriptor itself was miss-shaped: not an
	// object, a sub-object of the wrong type, or an unknown top-level field.
	KindStructural ViolationKind = "structural"

	// KindRange indicates a numeric field outside its allowed bounds.
	KindRange ViolationKind = "range"

	// KindProportionality indicates a CPU allocation that does not match the
	// value implied by the RAM allocation.
	KindProportionality ViolationKind = "proportionality"

	// KindEnum indicates a field value outside its permitted set.
	KindEnum ViolationKind = "enum"

	// KindRequiredField indicates a conditionally required field is missing.
	KindRequiredField ViolationKind = "required_field"

	// KindCrossField indicates an invalid relationship between queue and
	// handler fields.
	KindCrossField ViolationKind = "cross_field"

	// KindKeyPath indicates a message-grouping key using nested-path or
	// index-access syntax.
	KindKeyPath ViolationKind = "key_path"

	// KindSchemaUnavailable indicates a message-grouping key was declared but
	// no input schema was supplied to verify it against.
	KindSchemaUnavailable ViolationKind = "schema_unavailable"

	// KindKeyNotFound indicates a message-grouping key naming a field the
	// input schema does not declare.
	KindKeyNotFound ViolationKind = "key_not_found"

	// KindIntrospection indicates the input schema query itself failed
	// unexpectedly. The failure is surfaced as a violation, never as a panic.
	KindIntrospection ViolationKind = "introspection_failure"
)

// Violation is a single structured validation failure.
type Violation struct {
	// Path is the dotted field path, e.g. "handler.ram" or
	// "queue.messageGroupId".
	Path string `json:"path"`

	// Kind classifies the violation.
	Kind ViolationKind `json:"kind"`

	// Message is a human-readable description including the observed values.
	Message string `json:"message"`
}

// Result is the outcome of validating one infrastructure descriptor.
type Result struct {
	// Valid is true when no violations were found.
	Valid bool `json:"valid"`

	// Violations lists every violation from every validation pass. A failed
	// pass never suppresses the others.
	Violations []Violation `json:"violations,omitempty"`
}

// ok returns a successful result.
func ok() Result {
	return Result{Valid: true}
}

// invalid wraps a violation list in a failed result.
func invalid(violations []Violation) Result {
	return Result{Valid: false, Violations: violations}
}
