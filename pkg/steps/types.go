package steps

// Kind is the trigger type of a step.
type Kind string

const (
	// KindNoop is a step with no trigger, used as a placeholder during design.
	KindNoop Kind = "noop"

	// KindEvent is a step triggered by messages on its subscribed topics.
	KindEvent Kind = "event"

	// KindAPI is a step triggered by an HTTP request.
	KindAPI Kind = "api"

	// KindCron is a step triggered on a schedule.
	KindCron Kind = "cron"
)

// Definition is a single step definition as declared in a step file.
type Definition struct {
	// Name is the unique step name within the project.
	Name string `json:"name" yaml:"name" validate:"required"`

	// Kind is the trigger type (noop, event, api, cron).
	Kind Kind `json:"kind" yaml:"kind" validate:"required,oneof=noop event api cron"`

	// Description is a human-readable summary.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Subscribes lists the topics an event step consumes.
	Subscribes []string `json:"subscribes,omitempty" yaml:"subscribes,omitempty"`

	// Emits lists the topics the step may publish to.
	Emits []string `json:"emits,omitempty" yaml:"emits,omitempty"`

	// Path is the HTTP route of an api step (e.g. "/orders").
	Path string `json:"path,omitempty" yaml:"path,omitempty" validate:"omitempty,startswith=/"`

	// Method is the HTTP method of an api step.
	Method string `json:"method,omitempty" yaml:"method,omitempty" validate:"omitempty,oneof=GET POST PUT PATCH DELETE"`

	// Cron is the schedule expression of a cron step.
	Cron string `json:"cron,omitempty" yaml:"cron,omitempty"`

	// Input is the step's declared input contract.
	Input *InputSchema `json:"input,omitempty" yaml:"input,omitempty"`

	// Infrastructure is the step's infrastructure descriptor. It is kept as
	// plain data here; pkg/infra owns its shape and validation.
	Infrastructure any `json:"infrastructure,omitempty" yaml:"infrastructure,omitempty"`

	// SourceFile is the step file this definition was loaded from. Set by
	// the loader, not part of the declared configuration.
	SourceFile string `json:"-" yaml:"-"`
}

// InputSchema is a JSON-schema style description of a step's input object.
// Only the pieces the validators need are modeled.
type InputSchema struct {
	// Type is the schema type, normally "object".
	Type string `json:"type,omitempty" yaml:"type,omitempty"`

	// Properties maps field names to their declarations.
	Properties map[string]*InputField `json:"properties,omitempty" yaml:"properties,omitempty"`

	// Required lists the field names that must be present at runtime.
	Required []string `json:"required,omitempty" yaml:"required,omitempty"`
}

// InputField declares a single input field.
type InputField struct {
	// Type is the field's JSON type.
	Type string `json:"type,omitempty" yaml:"type,omitempty"`

	// Description is a human-readable summary.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// HasField reports whether the schema declares a top-level field with the
// given name. It implements infra.FieldSchema.
func (s *InputSchema) HasField(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s.Properties[name]
	return ok
}

// HasQueue reports whether the definition carries queue configuration.
// Used by policy checks; the infrastructure validator itself is kind-agnostic.
func (d *Definition) HasQueue() bool {
	m, ok := d.Infrastructure.(map[string]any)
	if !ok {
		return false
	}
	q, ok := m["queue"]
	return ok && q != nil
}
