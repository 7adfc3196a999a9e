package policy

import (
	"time"

	"github.com/stepforge/stepforge/pkg/steps"
)

// Severity is the severity level of a policy advisory.
type Severity string

const (
	// SeverityInfo is for informational advisories.
	SeverityInfo Severity = "info"

	// SeverityWarning is for advisories that should be reviewed.
	SeverityWarning Severity = "warning"

	// SeverityError is for advisories that should block a deployment.
	SeverityError Severity = "error"
)

// Policy is a single advisory rule with its Rego code.
type Policy struct {
	// Name is the unique name of the policy.
	Name string `json:"name"`

	// Description provides a human-readable description.
	Description string `json:"description"`

	// Rego contains the Rego policy code.
	Rego string `json:"rego"`

	// Severity is the default severity for advisories the policy raises.
	Severity Severity `json:"severity"`

	// Enabled indicates if the policy is active.
	Enabled bool `json:"enabled"`

	// Tags are labels for organizing policies.
	Tags []string `json:"tags,omitempty"`

	// Metadata contains additional policy metadata.
	Metadata map[string]any `json:"metadata,omitempty"`

	// CreatedAt is when the policy was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the policy was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// Advisory is a single policy finding against a step. Advisories are
// distinct from infrastructure violations: they flag configurations that
// are legal but probably unintended.
type Advisory struct {
	// Policy is the name of the policy that raised the advisory.
	Policy string `json:"policy"`

	// Step is the name of the step the advisory applies to.
	Step string `json:"step,omitempty"`

	// Message is a human-readable description of the finding.
	Message string `json:"message"`

	// Severity is the advisory severity level.
	Severity Severity `json:"severity"`

	// Remediation suggests a fix.
	Remediation string `json:"remediation,omitempty"`

	// Details contains additional structured context.
	Details map[string]any `json:"details,omitempty"`
}

// Result is the outcome of evaluating the policy set against one or more
// steps.
type Result struct {
	// Allowed is false when any error-severity advisory was raised.
	Allowed bool `json:"allowed"`

	// Advisories lists all findings, regardless of severity.
	Advisories []Advisory `json:"advisories,omitempty"`

	// Warnings lists evaluation problems (a policy that failed to run),
	// which never block by themselves.
	Warnings []string `json:"warnings,omitempty"`

	// EvaluatedPolicies lists the names of policies that were evaluated.
	EvaluatedPolicies []string `json:"evaluated_policies"`

	// EvaluatedAt is when the evaluation ran.
	EvaluatedAt time.Time `json:"evaluated_at"`

	// Duration is how long the evaluation took.
	Duration time.Duration `json:"duration"`
}

// Input is the document handed to Rego for evaluation.
type Input struct {
	// Step is the step definition under evaluation.
	Step *steps.Definition `json:"step,omitempty"`

	// Infrastructure is the step's infrastructure descriptor as plain data.
	Infrastructure any `json:"infrastructure,omitempty"`

	// Context provides additional evaluation context.
	Context *Context `json:"context"`
}

// Context carries environment information into policy evaluation.
type Context struct {
	// Environment is the deployment environment (e.g. "production").
	Environment string `json:"environment,omitempty"`

	// Timestamp is when the evaluation is occurring.
	Timestamp time.Time `json:"timestamp"`

	// Metadata contains additional context metadata.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Summary aggregates advisory counts across an evaluation run.
type Summary struct {
	// TotalPolicies is the number of policies evaluated.
	TotalPolicies int `json:"total_policies"`

	// TotalAdvisories is the number of advisories raised.
	TotalAdvisories int `json:"total_advisories"`

	// BySeverity breaks advisories down by severity.
	BySeverity map[Severity]int `json:"by_severity"`
}

// Summarize builds a Summary from a Result.
func Summarize(res *Result) *Summary {
	s := &Summary{
		TotalPolicies:   len(res.EvaluatedPolicies),
		TotalAdvisories: len(res.Advisories),
		BySeverity:      make(map[Severity]int),
	}
	for _, a := range res.Advisories {
		s.BySeverity[a.Severity]++
	}
	return s
}
