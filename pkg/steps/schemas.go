package steps

import (
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// SchemaRegistry manages the CUE schemas used for structural step validation.
// One schema is registered per step kind; custom schemas can be added for
// project-specific step types.
type SchemaRegistry struct {
	ctx     *cue.Context
	schemas map[Kind]cue.Value
	mu      sync.RWMutex
}

// NewSchemaRegistry creates a registry with the built-in per-kind schemas.
func NewSchemaRegistry() *SchemaRegistry {
	sr := &SchemaRegistry{
		ctx:     cuecontext.New(),
		schemas: make(map[Kind]cue.Value),
	}

	// Built-in schemas compile from constants; a failure here is a
	// programming error, not a runtime condition.
	mustRegister := func(kind Kind, schema string) {
		if err := sr.RegisterSchema(kind, schema); err != nil {
			panic(fmt.Sprintf("steps: built-in schema for %s: %v", kind, err))
		}
	}
	mustRegister(KindNoop, builtinNoopSchema)
	mustRegister(KindEvent, builtinEventSchema)
	mustRegister(KindAPI, builtinAPISchema)
	mustRegister(KindCron, builtinCronSchema)

	return sr
}

// RegisterSchema compiles and registers a CUE schema for a step kind,
// replacing any existing registration.
func (sr *SchemaRegistry) RegisterSchema(kind Kind, schema string) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	val := sr.ctx.CompileString(schema)
	if err := val.Err(); err != nil {
		return fmt.Errorf("failed to compile schema for kind %s: %w", kind, err)
	}

	sr.schemas[kind] = val
	return nil
}

// GetSchema retrieves the schema registered for a step kind.
func (sr *SchemaRegistry) GetSchema(kind Kind) (cue.Value, bool) {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	val, ok := sr.schemas[kind]
	return val, ok
}

// ValidateAgainstKind validates a step definition against the structural
// schema of its kind by unifying the encoded definition with the schema.
func (sr *SchemaRegistry) ValidateAgainstKind(kind Kind, def *Definition) error {
	schema, ok := sr.GetSchema(kind)
	if !ok {
		return fmt.Errorf("no schema registered for step kind %q", kind)
	}

	dataVal := sr.ctx.Encode(def)
	if err := dataVal.Err(); err != nil {
		return fmt.Errorf("failed to encode step definition: %w", err)
	}

	unified := schema.Unify(dataVal)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return err
	}

	return nil
}

// Built-in schema definitions. The infrastructure block is accepted as an
// open struct everywhere; pkg/infra owns its validation.

const builtinNoopSchema = `
// Noop steps have no trigger; they exist to stub out flows during design.
#Noop: {
	name: string & =~"^[a-zA-Z0-9_-]+$"
	kind: "noop"
	description?: string
	emits?: [...string]
	input?: {...}
	infrastructure?: {...}
}
#Noop
`

const builtinEventSchema = `
// Event steps consume messages from at least one subscribed topic.
#Event: {
	name: string & =~"^[a-zA-Z0-9_-]+$"
	kind: "event"
	description?: string
	subscribes: [string, ...string]
	emits?: [...string]
	input?: {...}
	infrastructure?: {...}
}
#Event
`

const builtinAPISchema = `
// API steps are triggered by an HTTP request on a declared route.
#API: {
	name: string & =~"^[a-zA-Z0-9_-]+$"
	kind: "api"
	description?: string
	path: string & =~"^/"
	method?: "GET" | "POST" | "PUT" | "PATCH" | "DELETE"
	emits?: [...string]
	input?: {...}
	infrastructure?: {...}
}
#API
`

const builtinCronSchema = `
// Cron steps run on a schedule given as a standard cron expression.
#Cron: {
	name: string & =~"^[a-zA-Z0-9_-]+$"
	kind: "cron"
	description?: string
	cron: string & !=""
	emits?: [...string]
	input?: {...}
	infrastructure?: {...}
}
#Cron
`
