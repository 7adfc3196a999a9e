// Package steps models step definitions and validates them.
//
// A step file declares a step's name, trigger kind (noop, event, api, cron),
// topics, input contract, and an optional infrastructure descriptor. The
// loader discovers *.step.yaml files under a project root; the StepValidator
// then checks each definition structurally against the CUE schema of its
// kind and hands the infrastructure descriptor to pkg/infra, merging both
// outcomes into a single per-step report.
package steps
