package steps

import (
	"errors"
	"fmt"
	"strings"

	cueerrors "cuelang.org/go/cue/errors"
	"github.com/go-playground/validator/v10"

	"github.com/stepforge/stepforge/pkg/infra"
)

// StepError is a single step-level validation failure.
type StepError struct {
	// Path is the dotted field path within the step definition.
	Path string `json:"path"`

	// Message describes the failure.
	Message string `json:"message"`
}

// StepResult is the outcome of structural step validation.
type StepResult struct {
	// Success is true when the definition conforms to its kind's schema.
	Success bool `json:"success"`

	// Error summarizes the failure when Success is false.
	Error string `json:"error,omitempty"`

	// Errors lists the individual failures.
	Errors []StepError `json:"errors,omitempty"`
}

// Report is the combined validation outcome for one step: structural kind
// validation plus infrastructure validation, merged into a single per-step
// error list for the build pipeline to render.
type Report struct {
	// Step is the step name (or the source file when the name is missing).
	Step string `json:"step"`

	// Kind is the step's declared kind, when known.
	Kind Kind `json:"kind,omitempty"`

	// SourceFile is the file the definition came from, when known.
	SourceFile string `json:"sourceFile,omitempty"`

	// Valid is true when no errors were found.
	Valid bool `json:"valid"`

	// Errors merges structural and infrastructure failures.
	Errors []StepError `json:"errors,omitempty"`
}

// StepValidator validates step definitions. It is safe for concurrent use.
type StepValidator struct {
	registry *SchemaRegistry
	tags     *validator.Validate
	infra    *infra.Validator
}

// NewStepValidator creates a validator with the built-in kind schemas.
func NewStepValidator() *StepValidator {
	return &StepValidator{
		registry: NewSchemaRegistry(),
		tags:     validator.New(),
		infra:    infra.NewValidator(),
	}
}

// ValidateStep validates a definition against the structural schema of its
// declared kind, independent of infrastructure. Unknown kinds fail with a
// single error naming the kind.
func (v *StepValidator) ValidateStep(def *Definition) StepResult {
	if def == nil {
		return StepResult{
			Success: false,
			Error:   "step definition is missing",
			Errors:  []StepError{{Path: "", Message: "step definition is missing"}},
		}
	}

	if _, ok := v.registry.GetSchema(def.Kind); !ok {
		msg := fmt.Sprintf("unknown step kind %q (expected noop, event, api, or cron)", def.Kind)
		return StepResult{
			Success: false,
			Error:   msg,
			Errors:  []StepError{{Path: "kind", Message: msg}},
		}
	}

	var errs []StepError

	// Struct-tag validation catches the cheap field-level mistakes with
	// better paths than the schema unification does.
	if err := v.tags.Struct(def); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				errs = append(errs, StepError{
					Path:    fieldPath(fe),
					Message: fmt.Sprintf("failed %q validation (value %v)", fe.Tag(), fe.Value()),
				})
			}
		} else {
			errs = append(errs, StepError{Path: "", Message: err.Error()})
		}
	}

	if err := v.registry.ValidateAgainstKind(def.Kind, def); err != nil {
		errs = append(errs, cueStepErrors(err)...)
	}

	if len(errs) == 0 {
		return StepResult{Success: true}
	}
	return StepResult{
		Success: false,
		Error:   fmt.Sprintf("step %q is not a valid %s step", def.Name, def.Kind),
		Errors:  errs,
	}
}

// ValidateInfrastructure validates the definition's infrastructure descriptor
// against provider constraints, using the step's own input contract as the
// grouping-key schema. A definition without infrastructure succeeds.
func (v *StepValidator) ValidateInfrastructure(def *Definition) infra.Result {
	if def == nil || def.Infrastructure == nil {
		return infra.Result{Valid: true}
	}

	// A nil *InputSchema must become a nil interface so the infrastructure
	// validator reports the schema as unavailable rather than querying it.
	var schema infra.FieldSchema
	if def.Input != nil {
		schema = def.Input
	}

	return v.infra.Validate(def.Infrastructure, schema)
}

// Validate runs both structural and infrastructure validation and merges the
// results into one report keyed by step name.
func (v *StepValidator) Validate(def *Definition) Report {
	report := Report{Step: "unknown"}
	if def != nil {
		if def.Name != "" {
			report.Step = def.Name
		} else if def.SourceFile != "" {
			report.Step = def.SourceFile
		}
		report.Kind = def.Kind
		report.SourceFile = def.SourceFile
	}

	structural := v.ValidateStep(def)
	report.Errors = append(report.Errors, structural.Errors...)

	infraRes := v.ValidateInfrastructure(def)
	for _, violation := range infraRes.Violations {
		path := "infrastructure"
		if violation.Path != "" {
			path = "infrastructure." + violation.Path
		}
		report.Errors = append(report.Errors, StepError{Path: path, Message: violation.Message})
	}

	report.Valid = len(report.Errors) == 0
	return report
}

// cueStepErrors flattens a CUE validation error into per-path step errors.
func cueStepErrors(err error) []StepError {
	list := cueerrors.Errors(err)
	if len(list) == 0 {
		return []StepError{{Path: "", Message: err.Error()}}
	}

	errs := make([]StepError, 0, len(list))
	for _, e := range list {
		errs = append(errs, StepError{
			Path:    strings.Join(e.Path(), "."),
			Message: e.Error(),
		})
	}
	return errs
}

// fieldPath converts a validator namespace like "Definition.Method" into the
// lower-camel path used in step files.
func fieldPath(fe validator.FieldError) string {
	field := fe.Field()
	if field == "" {
		return ""
	}
	return strings.ToLower(field[:1]) + field[1:]
}
