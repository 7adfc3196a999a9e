package stores

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stepforge/stepforge/pkg/policy"
	"github.com/stepforge/stepforge/pkg/steps"
)

// Recorder writes validation runs into the deployment state stream.
type Recorder struct {
	store Store
}

// NewRecorder creates a recorder backed by the given store.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

// RecordRun persists one validation run: a deployment row, a step state per
// report, and an event per invalid step. It returns the deployment ID.
func (r *Recorder) RecordRun(ctx context.Context, projectRoot string, reports []steps.Report, advisories []policy.Advisory) (string, error) {
	now := time.Now()
	dep := &Deployment{
		ID:          uuid.New().String(),
		ProjectRoot: projectRoot,
		Status:      DeploymentStatusValidating,
		StepCount:   len(reports),
		StartedAt:   now,
		Metadata:    "{}",
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := r.store.CreateDeployment(ctx, dep); err != nil {
		return "", err
	}

	advisoriesByStep := make(map[string][]policy.Advisory)
	for _, a := range advisories {
		advisoriesByStep[a.Step] = append(advisoriesByStep[a.Step], a)
	}

	failed := 0
	for _, report := range reports {
		state := &StepState{
			ID:           uuid.New().String(),
			DeploymentID: dep.ID,
			StepName:     report.Step,
			Kind:         string(report.Kind),
			SourceFile:   report.SourceFile,
			Valid:        report.Valid,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if len(report.Errors) > 0 {
			blob, err := json.Marshal(report.Errors)
			if err != nil {
				return "", fmt.Errorf("failed to encode errors for step %s: %w", report.Step, err)
			}
			s := string(blob)
			state.Errors = &s
		}
		if found := advisoriesByStep[report.Step]; len(found) > 0 {
			blob, err := json.Marshal(found)
			if err != nil {
				return "", fmt.Errorf("failed to encode advisories for step %s: %w", report.Step, err)
			}
			s := string(blob)
			state.Advisories = &s
		}

		if err := r.store.UpsertStepState(ctx, state); err != nil {
			return "", err
		}

		if !report.Valid {
			failed++
			name := report.Step
			if err := r.store.AppendEvent(ctx, &Event{
				DeploymentID: &dep.ID,
				StepName:     &name,
				Level:        EventLevelError,
				Message:      fmt.Sprintf("step %s failed validation with %d error(s)", report.Step, len(report.Errors)),
				Timestamp:    time.Now(),
			}); err != nil {
				return "", err
			}
		}
	}

	status := DeploymentStatusValidated
	var errMsg *string
	if failed > 0 {
		status = DeploymentStatusFailed
		msg := fmt.Sprintf("%d of %d steps failed validation", failed, len(reports))
		errMsg = &msg
	}

	if err := r.store.UpdateDeploymentStatus(ctx, dep.ID, status, errMsg); err != nil {
		return "", err
	}

	return dep.ID, nil
}
