// Package policy evaluates advisory rules against step definitions using
// Open Policy Agent's Rego.
//
// Advisories sit one layer above infrastructure validation. pkg/infra
// answers "is this descriptor well-formed and internally consistent"; this
// package answers "is this configuration sensible for this kind of step".
// A queue block on a cron step is perfectly valid data, but the deployment
// service will never read it, so the built-in policy set raises a warning.
//
// Policies are Rego modules whose deny rules yield advisory objects:
//
//	package stepforge.policies.queue
//
//	import rego.v1
//
//	deny contains violation if {
//		input.step.kind != "event"
//		input.infrastructure.queue
//		violation := {
//			"message": "...",
//			"severity": "warning",
//			"step": input.step.name,
//		}
//	}
//
// The Engine ships with built-in policies and can load additional .rego or
// .json policy files from disk. The Loader can watch those paths and hand
// freshly compiled sets back to the engine, so policy edits take effect
// without restarting a validate --watch session.
package policy
