package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// Config holds SQLite store configuration.
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance.
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 25
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}

	return &SQLiteStore{
		path: cfg.Path,
	}, nil
}

// Init initializes the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", s.path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Foreign keys are a connection-level setting in SQLite.
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations from the embedded migration files.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// BeginTx starts a new transaction.
func (s *SQLiteStore) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelSerializable,
	})
}

// CommitTx commits a transaction.
func (s *SQLiteStore) CommitTx(tx *sql.Tx) error {
	return tx.Commit()
}

// RollbackTx rolls back a transaction.
func (s *SQLiteStore) RollbackTx(tx *sql.Tx) error {
	return tx.Rollback()
}

// CreateDeployment creates a new deployment record.
func (s *SQLiteStore) CreateDeployment(ctx context.Context, dep *Deployment) error {
	query := `
		INSERT INTO deployments (id, project_root, status, step_count, started_at, completed_at, error, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		dep.ID,
		dep.ProjectRoot,
		dep.Status,
		dep.StepCount,
		dep.StartedAt,
		dep.CompletedAt,
		dep.Error,
		dep.Metadata,
		dep.CreatedAt,
		dep.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create deployment: %w", err)
	}

	return nil
}

// GetDeployment retrieves a deployment by ID.
func (s *SQLiteStore) GetDeployment(ctx context.Context, id string) (*Deployment, error) {
	query := `
		SELECT id, project_root, status, step_count, started_at, completed_at, error, metadata, created_at, updated_at
		FROM deployments
		WHERE id = ?
	`

	dep := &Deployment{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&dep.ID,
		&dep.ProjectRoot,
		&dep.Status,
		&dep.StepCount,
		&dep.StartedAt,
		&dep.CompletedAt,
		&dep.Error,
		&dep.Metadata,
		&dep.CreatedAt,
		&dep.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("deployment not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deployment: %w", err)
	}

	return dep, nil
}

// UpdateDeploymentStatus updates the status of a deployment. Terminal
// statuses also set the completion time.
func (s *SQLiteStore) UpdateDeploymentStatus(ctx context.Context, id string, status DeploymentStatus, errMsg *string) error {
	query := `
		UPDATE deployments
		SET status = ?, error = ?, completed_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	var completedAt *time.Time
	if status == DeploymentStatusValidated || status == DeploymentStatusFailed {
		now := time.Now()
		completedAt = &now
	}

	result, err := s.db.ExecContext(ctx, query, status, errMsg, completedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update deployment status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("deployment not found: %s", id)
	}

	return nil
}

// ListDeployments lists deployments with pagination, newest first.
func (s *SQLiteStore) ListDeployments(ctx context.Context, limit, offset int) ([]*Deployment, error) {
	query := `
		SELECT id, project_root, status, step_count, started_at, completed_at, error, metadata, created_at, updated_at
		FROM deployments
		ORDER BY started_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list deployments: %w", err)
	}
	defer rows.Close()

	deployments := []*Deployment{}
	for rows.Next() {
		dep := &Deployment{}
		err := rows.Scan(
			&dep.ID,
			&dep.ProjectRoot,
			&dep.Status,
			&dep.StepCount,
			&dep.StartedAt,
			&dep.CompletedAt,
			&dep.Error,
			&dep.Metadata,
			&dep.CreatedAt,
			&dep.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deployment: %w", err)
		}
		deployments = append(deployments, dep)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deployments: %w", err)
	}

	return deployments, nil
}

// DeleteDeployment deletes a deployment by ID. Step states and events
// cascade.
func (s *SQLiteStore) DeleteDeployment(ctx context.Context, id string) error {
	query := `DELETE FROM deployments WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete deployment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("deployment not found: %s", id)
	}

	return nil
}

// UpsertStepState inserts or updates a step's validation outcome within a
// deployment.
func (s *SQLiteStore) UpsertStepState(ctx context.Context, state *StepState) error {
	query := `
		INSERT INTO step_states (
			id, deployment_id, step_name, kind, source_file, valid, errors, advisories, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(deployment_id, step_name) DO UPDATE SET
			kind = excluded.kind,
			source_file = excluded.source_file,
			valid = excluded.valid,
			errors = excluded.errors,
			advisories = excluded.advisories,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		state.ID,
		state.DeploymentID,
		state.StepName,
		state.Kind,
		state.SourceFile,
		state.Valid,
		state.Errors,
		state.Advisories,
		state.CreatedAt,
		state.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert step state: %w", err)
	}

	return nil
}

// GetStepState retrieves a step's state within a deployment.
func (s *SQLiteStore) GetStepState(ctx context.Context, deploymentID, stepName string) (*StepState, error) {
	query := `
		SELECT id, deployment_id, step_name, kind, source_file, valid, errors, advisories, created_at, updated_at
		FROM step_states
		WHERE deployment_id = ? AND step_name = ?
	`

	state := &StepState{}
	err := s.db.QueryRowContext(ctx, query, deploymentID, stepName).Scan(
		&state.ID,
		&state.DeploymentID,
		&state.StepName,
		&state.Kind,
		&state.SourceFile,
		&state.Valid,
		&state.Errors,
		&state.Advisories,
		&state.CreatedAt,
		&state.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("step state not found: %s/%s", deploymentID, stepName)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get step state: %w", err)
	}

	return state, nil
}

// ListStepStates lists all step states for a deployment.
func (s *SQLiteStore) ListStepStates(ctx context.Context, deploymentID string) ([]*StepState, error) {
	query := `
		SELECT id, deployment_id, step_name, kind, source_file, valid, errors, advisories, created_at, updated_at
		FROM step_states
		WHERE deployment_id = ?
		ORDER BY step_name ASC
	`

	rows, err := s.db.QueryContext(ctx, query, deploymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list step states: %w", err)
	}
	defer rows.Close()

	states := []*StepState{}
	for rows.Next() {
		state := &StepState{}
		err := rows.Scan(
			&state.ID,
			&state.DeploymentID,
			&state.StepName,
			&state.Kind,
			&state.SourceFile,
			&state.Valid,
			&state.Errors,
			&state.Advisories,
			&state.CreatedAt,
			&state.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step state: %w", err)
		}
		states = append(states, state)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating step states: %w", err)
	}

	return states, nil
}

// AppendEvent appends a new event to the log.
func (s *SQLiteStore) AppendEvent(ctx context.Context, event *Event) error {
	query := `
		INSERT INTO events (deployment_id, step_name, level, message, details, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		event.DeploymentID,
		event.StepName,
		event.Level,
		event.Message,
		event.Details,
		event.Timestamp,
	)

	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get event ID: %w", err)
	}

	event.ID = id
	return nil
}

// GetEvents retrieves events with optional filters and pagination.
func (s *SQLiteStore) GetEvents(ctx context.Context, deploymentID *string, level *EventLevel, limit, offset int) ([]*Event, error) {
	query := `
		SELECT id, deployment_id, step_name, level, message, details, timestamp
		FROM events
		WHERE (? IS NULL OR deployment_id = ?)
		  AND (? IS NULL OR level = ?)
		ORDER BY timestamp DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, deploymentID, deploymentID, level, level, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	events := []*Event{}
	for rows.Next() {
		event := &Event{}
		err := rows.Scan(
			&event.ID,
			&event.DeploymentID,
			&event.StepName,
			&event.Level,
			&event.Message,
			&event.Details,
			&event.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

// HealthCheck verifies the database connection is healthy.
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	return s.db.PingContext(ctx)
}
