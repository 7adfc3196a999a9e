package policy

import (
	"time"
)

// GetBuiltinPolicies returns all built-in policies.
func GetBuiltinPolicies() []Policy {
	return []Policy{
		queueOnNonEventPolicy(),
		apiHandlerTimeoutPolicy(),
		highMemoryMachineTypePolicy(),
	}
}

// queueOnNonEventPolicy flags queue configuration on steps that are not
// triggered by events. The infrastructure validator accepts it (the shape is
// legal); the deployment service will silently ignore it, which is almost
// never what the author meant.
func queueOnNonEventPolicy() Policy {
	return Policy{
		Name:        "queue-on-non-event-step",
		Description: "Flags queue configuration on steps whose kind never consumes from a queue",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"queue", "infrastructure"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package stepforge.policies.queue

import rego.v1

deny contains violation if {
	input.step
	input.step.kind != "event"
	input.infrastructure.queue

	violation := {
		"message": sprintf("Step %s declares queue configuration but its kind is %s; only event steps consume from a queue", [input.step.name, input.step.kind]),
		"severity": "warning",
		"step": input.step.name,
		"remediation": "Remove the queue block or change the step kind to event",
	}
}`,
	}
}

// apiHandlerTimeoutPolicy nudges api steps toward an explicit handler
// timeout so gateway and handler timeouts do not silently diverge.
func apiHandlerTimeoutPolicy() Policy {
	return Policy{
		Name:        "api-handler-timeout",
		Description: "Suggests an explicit handler timeout on api steps",
		Severity:    SeverityInfo,
		Enabled:     true,
		Tags:        []string{"handler", "timeouts"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package stepforge.policies.timeouts

import rego.v1

deny contains violation if {
	input.step
	input.step.kind == "api"
	input.infrastructure.handler
	not input.infrastructure.handler.timeout

	violation := {
		"message": sprintf("API step %s does not declare a handler timeout; the provider default will apply", [input.step.name]),
		"severity": "info",
		"step": input.step.name,
		"remediation": "Set infrastructure.handler.timeout to match the gateway timeout",
	}
}`,
	}
}

// highMemoryMachineTypePolicy suggests a memory-optimized machine type for
// handlers at the top of the RAM range.
func highMemoryMachineTypePolicy() Policy {
	return Policy{
		Name:        "high-memory-machine-type",
		Description: "Suggests a memory-optimized machine type for handlers with 8 GB of RAM or more",
		Severity:    SeverityInfo,
		Enabled:     true,
		Tags:        []string{"handler", "sizing"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package stepforge.policies.sizing

import rego.v1

deny contains violation if {
	input.step
	input.infrastructure.handler.ram >= 8192
	not input.infrastructure.handler.machineType

	violation := {
		"message": sprintf("Step %s requests %d MB of RAM without a machine type; consider machineType: memory", [input.step.name, input.infrastructure.handler.ram]),
		"severity": "info",
		"step": input.step.name,
		"remediation": "Set infrastructure.handler.machineType to memory",
	}
}`,
	}
}
