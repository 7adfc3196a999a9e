package stores

import (
	"context"
	"database/sql"
	"time"
)

// DeploymentStatus represents the status of a validation/deployment run.
type DeploymentStatus string

const (
	DeploymentStatusPending    DeploymentStatus = "pending"
	DeploymentStatusValidating DeploymentStatus = "validating"
	DeploymentStatusValidated  DeploymentStatus = "validated"
	DeploymentStatusFailed     DeploymentStatus = "failed"
)

// EventLevel represents the severity level of an event.
type EventLevel string

const (
	EventLevelDebug   EventLevel = "debug"
	EventLevelInfo    EventLevel = "info"
	EventLevelWarning EventLevel = "warning"
	EventLevelError   EventLevel = "error"
)

// Deployment represents one validation run over a project's step files.
type Deployment struct {
	ID          string           `json:"id"`
	ProjectRoot string           `json:"project_root"`
	Status      DeploymentStatus `json:"status"`
	StepCount   int              `json:"step_count"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	Error       *string          `json:"error,omitempty"`
	Metadata    string           `json:"metadata"` // JSON blob
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// StepState records the validation outcome for one step in a deployment.
type StepState struct {
	ID           string    `json:"id"`
	DeploymentID string    `json:"deployment_id"`
	StepName     string    `json:"step_name"`
	Kind         string    `json:"kind"`
	SourceFile   string    `json:"source_file"`
	Valid        bool      `json:"valid"`
	Errors       *string   `json:"errors,omitempty"`     // JSON blob of validation errors
	Advisories   *string   `json:"advisories,omitempty"` // JSON blob of policy advisories
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Event represents an append-only log event in the deployment stream.
type Event struct {
	ID           int64      `json:"id"`
	DeploymentID *string    `json:"deployment_id,omitempty"`
	StepName     *string    `json:"step_name,omitempty"`
	Level        EventLevel `json:"level"`
	Message      string     `json:"message"`
	Details      *string    `json:"details,omitempty"` // JSON blob
	Timestamp    time.Time  `json:"timestamp"`
}

// Store defines the interface for the persistence layer.
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Transaction support
	BeginTx(ctx context.Context) (*sql.Tx, error)
	CommitTx(tx *sql.Tx) error
	RollbackTx(tx *sql.Tx) error

	// Deployment operations
	CreateDeployment(ctx context.Context, dep *Deployment) error
	GetDeployment(ctx context.Context, id string) (*Deployment, error)
	UpdateDeploymentStatus(ctx context.Context, id string, status DeploymentStatus, err *string) error
	ListDeployments(ctx context.Context, limit, offset int) ([]*Deployment, error)
	DeleteDeployment(ctx context.Context, id string) error

	// StepState operations
	UpsertStepState(ctx context.Context, state *StepState) error
	GetStepState(ctx context.Context, deploymentID, stepName string) (*StepState, error)
	ListStepStates(ctx context.Context, deploymentID string) ([]*StepState, error)

	// Event operations
	AppendEvent(ctx context.Context, event *Event) error
	GetEvents(ctx context.Context, deploymentID *string, level *EventLevel, limit, offset int) ([]*Event, error)

	// Utility
	HealthCheck(ctx context.Context) error
}
