package policy

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/open-policy-agent/opa/ast"
	"github.com/open-policy-agent/opa/rego"
	"github.com/open-policy-agent/opa/storage"
	"github.com/open-policy-agent/opa/storage/inmem"
	"github.com/rs/zerolog"

	"github.com/stepforge/stepforge/pkg/steps"
)

// Engine evaluates Rego policies against step definitions.
type Engine struct {
	mu              sync.RWMutex
	policies        map[string]*compiledPolicy
	store           storage.Store
	logger          zerolog.Logger
	builtinPolicies []Policy
}

// compiledPolicy is a policy with its parsed module and prepared query.
type compiledPolicy struct {
	policy   *Policy
	module   *ast.Module
	query    rego.PreparedEvalQuery
	compiled time.Time
}

// NewEngine creates a policy engine with the built-in policies loaded.
func NewEngine(logger zerolog.Logger) (*Engine, error) {
	e := &Engine{
		policies:        make(map[string]*compiledPolicy),
		store:           inmem.New(),
		logger:          logger.With().Str("component", "policy-engine").Logger(),
		builtinPolicies: GetBuiltinPolicies(),
	}

	if err := e.loadBuiltinPolicies(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to load built-in policies: %w", err)
	}

	return e, nil
}

// EvaluateStep evaluates all enabled policies against a single step.
func (e *Engine) EvaluateStep(ctx context.Context, def *steps.Definition) (*Result, error) {
	startTime := time.Now()
	e.mu.RLock()
	defer e.mu.RUnlock()

	var advisories []Advisory
	var warnings []string
	evaluatedPolicies := make([]string, 0, len(e.policies))

	input := &Input{
		Step:           def,
		Infrastructure: def.Infrastructure,
		Context: &Context{
			Timestamp: time.Now(),
		},
	}

	for _, cp := range e.policies {
		if !cp.policy.Enabled {
			continue
		}

		evaluatedPolicies = append(evaluatedPolicies, cp.policy.Name)

		found, err := e.evaluatePolicy(ctx, cp, input)
		if err != nil {
			e.logger.Error().Err(err).
				Str("policy", cp.policy.Name).
				Str("step", def.Name).
				Msg("Policy evaluation failed")
			warnings = append(warnings, fmt.Sprintf("policy %s evaluation failed: %v", cp.policy.Name, err))
			continue
		}

		advisories = append(advisories, found...)
	}

	duration := time.Since(startTime)
	e.logger.Debug().
		Str("step", def.Name).
		Int("advisories", len(advisories)).
		Dur("duration", duration).
		Msg("Step policy evaluation completed")

	return &Result{
		Allowed:           allowed(advisories),
		Advisories:        advisories,
		Warnings:          warnings,
		EvaluatedPolicies: evaluatedPolicies,
		EvaluatedAt:       time.Now(),
		Duration:          duration,
	}, nil
}

// EvaluateSteps evaluates all enabled policies against every step and merges
// the outcomes into a single result.
func (e *Engine) EvaluateSteps(ctx context.Context, defs []*steps.Definition) (*Result, error) {
	startTime := time.Now()

	merged := &Result{Allowed: true, EvaluatedAt: time.Now()}
	seen := make(map[string]bool)

	for _, def := range defs {
		res, err := e.EvaluateStep(ctx, def)
		if err != nil {
			return nil, err
		}

		merged.Advisories = append(merged.Advisories, res.Advisories...)
		merged.Warnings = append(merged.Warnings, res.Warnings...)
		for _, name := range res.EvaluatedPolicies {
			if !seen[name] {
				seen[name] = true
				merged.EvaluatedPolicies = append(merged.EvaluatedPolicies, name)
			}
		}
	}

	merged.Allowed = allowed(merged.Advisories)
	merged.Duration = time.Since(startTime)
	return merged, nil
}

// allowed reports whether no error-severity advisory is present.
func allowed(advisories []Advisory) bool {
	for i := range advisories {
		if advisories[i].Severity == SeverityError {
			return false
		}
	}
	return true
}

// LoadPolicies loads and compiles policy files from the given paths,
// adding them to the active set.
func (e *Engine) LoadPolicies(ctx context.Context, paths []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	loader := NewLoader(e.logger)
	policies, err := loader.LoadFromPaths(ctx, paths)
	if err != nil {
		return fmt.Errorf("failed to load policies: %w", err)
	}

	for i := range policies {
		if err := e.compileAndStorePolicy(ctx, &policies[i]); err != nil {
			e.logger.Error().Err(err).
				Str("policy", policies[i].Name).
				Msg("Failed to compile policy")
			return fmt.Errorf("failed to compile policy %s: %w", policies[i].Name, err)
		}
	}

	e.logger.Info().
		Int("count", len(policies)).
		Msg("Policies loaded successfully")

	return nil
}

// ReplacePolicies swaps the loaded policy set for the given one, keeping the
// built-in policies. Used by the watch path on reload.
func (e *Engine) ReplacePolicies(ctx context.Context, policies []Policy) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.policies = make(map[string]*compiledPolicy)
	if err := e.loadBuiltinPolicies(ctx); err != nil {
		return err
	}

	for i := range policies {
		if err := e.compileAndStorePolicy(ctx, &policies[i]); err != nil {
			return fmt.Errorf("failed to compile policy %s: %w", policies[i].Name, err)
		}
	}

	return nil
}

// evaluatePolicy runs one compiled policy against the input and collects the
// advisories its deny rules produced.
func (e *Engine) evaluatePolicy(ctx context.Context, cp *compiledPolicy, input *Input) ([]Advisory, error) {
	packageName := extractPackageName(cp.policy.Rego)
	query := fmt.Sprintf("data.%s.deny", packageName)

	r := rego.New(
		rego.Module(cp.policy.Name, cp.policy.Rego),
		rego.Query(query),
		rego.Input(input),
	)

	results, err := r.Eval(ctx)
	if err != nil {
		return nil, fmt.Errorf("policy evaluation error: %w", err)
	}

	var advisories []Advisory

	for _, result := range results {
		if len(result.Expressions) == 0 {
			continue
		}
		denySet, ok := result.Expressions[0].Value.([]interface{})
		if !ok {
			continue
		}
		for _, d := range denySet {
			advisories = append(advisories, e.createAdvisory(cp.policy, d, input))
		}
	}

	return advisories, nil
}

// extractPackageName extracts the package name from Rego code.
func extractPackageName(rego string) string {
	for _, line := range strings.Split(rego, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "package ") {
			parts := strings.Fields(trimmed)
			if len(parts) >= 2 {
				return parts[1]
			}
		}
	}
	return "stepforge.policies"
}

// createAdvisory builds an Advisory from a deny-rule result.
func (e *Engine) createAdvisory(policy *Policy, result interface{}, input *Input) Advisory {
	advisory := Advisory{
		Policy:   policy.Name,
		Severity: policy.Severity,
	}

	if input.Step != nil {
		advisory.Step = input.Step.Name
	}

	switch v := result.(type) {
	case string:
		advisory.Message = v
	case map[string]interface{}:
		if msg, ok := v["message"].(string); ok {
			advisory.Message = msg
		}
		if sev, ok := v["severity"].(string); ok {
			advisory.Severity = Severity(sev)
		}
		if step, ok := v["step"].(string); ok {
			advisory.Step = step
		}
		if fix, ok := v["remediation"].(string); ok {
			advisory.Remediation = fix
		}
	default:
		advisory.Message = fmt.Sprintf("%v", result)
	}

	return advisory
}

// compileAndStorePolicy compiles a policy and adds it to the active set.
func (e *Engine) compileAndStorePolicy(ctx context.Context, policy *Policy) error {
	module, err := ast.ParseModule(policy.Name, policy.Rego)
	if err != nil {
		return fmt.Errorf("failed to parse policy: %w", err)
	}

	r := rego.New(
		rego.Module(policy.Name, policy.Rego),
		rego.Store(e.store),
		rego.Query("data"),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return fmt.Errorf("failed to prepare query: %w", err)
	}

	e.policies[policy.Name] = &compiledPolicy{
		policy:   policy,
		module:   module,
		query:    query,
		compiled: time.Now(),
	}

	e.logger.Debug().
		Str("policy", policy.Name).
		Msg("Policy compiled successfully")

	return nil
}

// loadBuiltinPolicies compiles the built-in policy set.
func (e *Engine) loadBuiltinPolicies(ctx context.Context) error {
	for i := range e.builtinPolicies {
		if err := e.compileAndStorePolicy(ctx, &e.builtinPolicies[i]); err != nil {
			return fmt.Errorf("failed to compile built-in policy %s: %w", e.builtinPolicies[i].Name, err)
		}
	}

	e.logger.Debug().
		Int("count", len(e.builtinPolicies)).
		Msg("Built-in policies loaded")

	return nil
}

// GetPolicy returns a policy by name.
func (e *Engine) GetPolicy(name string) (*Policy, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	cp, exists := e.policies[name]
	if !exists {
		return nil, fmt.Errorf("policy not found: %s", name)
	}

	return cp.policy, nil
}

// ListPolicies returns all loaded policies.
func (e *Engine) ListPolicies() []Policy {
	e.mu.RLock()
	defer e.mu.RUnlock()

	policies := make([]Policy, 0, len(e.policies))
	for _, cp := range e.policies {
		policies = append(policies, *cp.policy)
	}

	return policies
}

// EnablePolicy enables a policy by name.
func (e *Engine) EnablePolicy(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cp, exists := e.policies[name]
	if !exists {
		return fmt.Errorf("policy not found: %s", name)
	}

	cp.policy.Enabled = true
	e.logger.Info().Str("policy", name).Msg("Policy enabled")

	return nil
}

// DisablePolicy disables a policy by name.
func (e *Engine) DisablePolicy(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cp, exists := e.policies[name]
	if !exists {
		return fmt.Errorf("policy not found: %s", name)
	}

	cp.policy.Enabled = false
	e.logger.Info().Str("policy", name).Msg("Policy disabled")

	return nil
}
