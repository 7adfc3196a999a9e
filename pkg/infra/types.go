package infra

// MachineType is the compute flavor a handler runs on.
type MachineType string

const (
	MachineTypeCPU    MachineType = "cpu"
	MachineTypeMemory MachineType = "memory"
	MachineTypeGPU    MachineType = "gpu"
)

// QueueType is the message ordering mode of a queue.
type QueueType string

const (
	// QueueTypeStandard delivers messages at-least-once with no ordering guarantee.
	QueueTypeStandard QueueType = "standard"

	// QueueTypeFifo preserves strict order within a message group.
	QueueTypeFifo QueueType = "fifo"
)

// RetryStrategy is the redelivery backoff policy of a queue.
type RetryStrategy string

const (
	RetryStrategyNone        RetryStrategy = "none"
	RetryStrategyExponential RetryStrategy = "exponential"
	RetryStrategyJitter      RetryStrategy = "jitter"
)

// HandlerConfig describes the compute shape of a step handler. Every field is
// optional: the validator only checks fields that are present and never
// applies defaults — defaulting is the deployment service's job.
type HandlerConfig struct {
	// RAM is the memory allocation in megabytes.
	RAM *int `json:"ram,omitempty" yaml:"ram,omitempty"`

	// CPU is the compute-unit allocation. When set alongside RAM it must
	// agree with the provider's calibration table.
	CPU *float64 `json:"cpu,omitempty" yaml:"cpu,omitempty"`

	// Timeout is the maximum invocation duration in seconds.
	Timeout *int `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// MachineType selects the compute flavor (cpu, memory, gpu).
	MachineType *MachineType `json:"machineType,omitempty" yaml:"machineType,omitempty"`
}

// QueueConfig describes the message-queue behavior feeding a step. Every
// field is optional.
type QueueConfig struct {
	// Type is the queue ordering mode (standard, fifo).
	Type *QueueType `json:"type,omitempty" yaml:"type,omitempty"`

	// VisibilityTimeout is how long a delivered-but-unacknowledged message
	// stays hidden from redelivery, in seconds. It has no standalone bound;
	// its only constraint is relative to the handler timeout.
	VisibilityTimeout *int `json:"visibilityTimeout,omitempty" yaml:"visibilityTimeout,omitempty"`

	// MessageGroupID names the input field whose runtime value selects the
	// ordering group. It is a field-name reference, not a literal value.
	MessageGroupID *string `json:"messageGroupId,omitempty" yaml:"messageGroupId,omitempty"`

	// MaxRetries is the maximum number of redelivery attempts.
	MaxRetries *int `json:"maxRetries,omitempty" yaml:"maxRetries,omitempty"`

	// RetryStrategy is the redelivery backoff policy (none, exponential, jitter).
	RetryStrategy *RetryStrategy `json:"retryStrategy,omitempty" yaml:"retryStrategy,omitempty"`
}

// Config is a step's infrastructure descriptor: an optional handler compute
// shape and an optional queue behavior.
type Config struct {
	Handler *HandlerConfig `json:"handler,omitempty" yaml:"handler,omitempty"`
	Queue   *QueueConfig   `json:"queue,omitempty" yaml:"queue,omitempty"`
}

// validMachineTypes lists the accepted machineType literals in message order.
var validMachineTypes = []MachineType{MachineTypeCPU, MachineTypeMemory, MachineTypeGPU}

// validQueueTypes lists the accepted queue type literals in message order.
var validQueueTypes = []QueueType{QueueTypeStandard, QueueTypeFifo}

// validRetryStrategies lists the accepted retryStrategy literals in message order.
var validRetryStrategies = []RetryStrategy{RetryStrategyNone, RetryStrategyExponential, RetryStrategyJitter}
