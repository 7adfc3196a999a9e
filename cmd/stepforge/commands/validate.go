package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/stepforge/stepforge/pkg/policy"
	"github.com/stepforge/stepforge/pkg/steps"
	"github.com/stepforge/stepforge/pkg/stores"
	"github.com/stepforge/stepforge/pkg/telemetry"
)

// validationOutput is the JSON shape of one validation run.
type validationOutput struct {
	Valid        bool              `json:"valid"`
	Steps        []steps.Report    `json:"steps"`
	Advisories   []policy.Advisory `json:"advisories,omitempty"`
	DeploymentID string            `json:"deploymentId,omitempty"`
}

func newValidateCommand() *cobra.Command {
	var (
		strict      bool
		watch       bool
		record      bool
		dbPath      string
		policyPaths []string
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "validate [path]",
		Short: "Validate step definitions and their infrastructure",
		Long: `Validate every step definition found under a project path.

Each *.step.yaml file is checked structurally against the schema of its
declared kind, then its infrastructure descriptor is validated: handler
RAM, CPU, and timeout ranges, RAM-proportional CPU, queue configuration,
and cross-field consistency. All violations are reported, not just the
first. Advisory policies run on top and warn about legal-but-suspicious
configurations.`,
		Example: `  # Validate steps in the current directory
  stepforge validate

  # Validate a specific project and fail on advisories too
  stepforge validate --strict ./orders

  # Re-validate whenever a step file changes
  stepforge validate --watch ./orders

  # Record the run in the deployment state stream
  stepforge validate --record --db ./stepforge.db ./orders`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) > 0 {
				root = args[0]
			}

			engine, err := policy.NewEngine(log.Logger)
			if err != nil {
				return fmt.Errorf("failed to create policy engine: %w", err)
			}
			if len(policyPaths) > 0 {
				if err := engine.LoadPolicies(cmd.Context(), policyPaths); err != nil {
					return err
				}
			}

			var recorder *stores.Recorder
			if record {
				store, err := openStore(cmd.Context(), dbPath)
				if err != nil {
					return err
				}
				defer store.Close()
				recorder = stores.NewRecorder(store)
			}

			metrics, err := telemetry.NewMetrics(telemetry.MetricsConfig{
				Enabled:       metricsAddr != "",
				ListenAddress: metricsAddr,
				Namespace:     "stepforge",
			})
			if err != nil {
				return fmt.Errorf("failed to create metrics: %w", err)
			}
			if metricsAddr != "" {
				if err := metrics.StartMetricsServer(); err != nil {
					return err
				}
				log.Info().Str("addr", metricsAddr).Msg("Metrics endpoint started")
			}

			run := func(ctx context.Context) error {
				return runValidation(ctx, root, engine, recorder, metrics, strict)
			}

			if watch {
				return watchAndValidate(cmd.Context(), root, metrics, run)
			}
			return run(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "fail on warning advisories as well as errors")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "re-validate when step files change")
	cmd.Flags().BoolVar(&record, "record", false, "record the run in the deployment state stream")
	cmd.Flags().StringVar(&dbPath, "db", "stepforge.db", "path to the state database (with --record)")
	cmd.Flags().StringSliceVar(&policyPaths, "policy", nil, "additional policy file or directory (repeatable)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "expose Prometheus metrics on this address (useful with --watch)")

	return cmd
}

// openStore opens and migrates the deployment state store.
func openStore(ctx context.Context, path string) (*stores.SQLiteStore, error) {
	store, err := stores.NewSQLiteStore(stores.Config{Path: path})
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// runValidation performs one full validation pass over the project.
func runValidation(ctx context.Context, root string, engine *policy.Engine, recorder *stores.Recorder, metrics *telemetry.Metrics, strict bool) error {
	started := time.Now()
	metrics.RecordRunStarted()

	loader := steps.NewLoader(log.Logger)
	defs, failures, err := loader.LoadAll(root)
	if err != nil {
		return err
	}
	if len(defs) == 0 && len(failures) == 0 {
		log.Warn().Str("path", root).Msg("No step files found")
	}
	metrics.SetStepsDiscovered(float64(len(defs) + len(failures)))

	validator := steps.NewStepValidator()
	reports := append([]steps.Report{}, failures...)
	for _, def := range defs {
		stepStart := time.Now()
		report := validator.Validate(def)
		result := "valid"
		if !report.Valid {
			result = "invalid"
		}
		metrics.RecordStepValidated(string(report.Kind), result, time.Since(stepStart))
		reports = append(reports, report)
	}

	policyResult, err := engine.EvaluateSteps(ctx, defs)
	if err != nil {
		return err
	}

	for _, a := range policyResult.Advisories {
		metrics.RecordAdvisory(a.Policy, string(a.Severity))
	}

	out := validationOutput{Valid: true, Steps: reports, Advisories: policyResult.Advisories}
	for _, report := range reports {
		if !report.Valid {
			out.Valid = false
		}
	}

	if recorder != nil {
		depID, err := recorder.RecordRun(ctx, root, reports, policyResult.Advisories)
		if err != nil {
			return fmt.Errorf("failed to record run: %w", err)
		}
		out.DeploymentID = depID
		log.Info().Str("deployment_id", depID).Msg("Run recorded")
	}

	status := "valid"
	if !out.Valid {
		status = "invalid"
	}
	metrics.RecordRunCompleted(status, time.Since(started))

	if jsonOutput {
		if err := json.NewEncoder(os.Stdout).Encode(out); err != nil {
			return err
		}
	} else {
		printReports(out)
	}

	if !out.Valid {
		return fmt.Errorf("validation failed")
	}
	if !policyResult.Allowed {
		return fmt.Errorf("blocked by policy")
	}
	if strict {
		for _, a := range policyResult.Advisories {
			if a.Severity == policy.SeverityWarning {
				return fmt.Errorf("advisory warnings present (strict mode)")
			}
		}
	}
	return nil
}

// printReports renders a human-readable summary of the run.
func printReports(out validationOutput) {
	failed := 0
	for _, report := range out.Steps {
		if report.Valid {
			fmt.Printf("  ok  %s\n", report.Step)
			continue
		}
		failed++
		fmt.Printf("  FAIL  %s", report.Step)
		if report.SourceFile != "" {
			fmt.Printf(" (%s)", report.SourceFile)
		}
		fmt.Println()
		for _, e := range report.Errors {
			if e.Path != "" {
				fmt.Printf("        %s: %s\n", e.Path, e.Message)
			} else {
				fmt.Printf("        %s\n", e.Message)
			}
		}
	}

	for _, a := range out.Advisories {
		fmt.Printf("  %s  [%s] %s\n", strings.ToUpper(string(a.Severity)), a.Policy, a.Message)
	}

	fmt.Printf("\n%d step(s) validated, %d failed, %d advisories\n",
		len(out.Steps), failed, len(out.Advisories))
	if out.DeploymentID != "" {
		fmt.Printf("deployment: %s\n", out.DeploymentID)
	}
}

// watchAndValidate runs validation, then re-runs it whenever a step file
// under root changes. Validation failures are reported but do not stop the
// watch loop.
func watchAndValidate(ctx context.Context, root string, metrics *telemetry.Metrics, run func(context.Context) error) error {
	if err := run(ctx); err != nil {
		log.Error().Err(err).Msg("Validation failed")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch every directory under root; fsnotify is not recursive.
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if name := d.Name(); name != "." && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", root, err)
	}

	log.Info().Str("path", root).Msg("Watching for step file changes")

	var debounce *time.Timer
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !strings.HasSuffix(event.Name, ".step.yaml") && !strings.HasSuffix(event.Name, ".step.yml") {
				continue
			}

			log.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("Step file changed")

			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(300*time.Millisecond, func() {
				metrics.RecordWatchReload()
				if err := run(ctx); err != nil {
					log.Error().Err(err).Msg("Validation failed")
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Msg("Watcher error")
		}
	}
}
