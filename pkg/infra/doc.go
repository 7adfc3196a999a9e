// Package infra validates the infrastructure descriptors attached to step
// definitions before deployment: the handler compute shape (RAM, CPU,
// timeout, machine type) and the queue behavior (ordering mode, redelivery
// timing, retry policy), plus the consistency rules between them.
//
// The validator is pure and synchronous. It accepts plain data, collects
// every violation from every pass into a single Result, and never panics
// across its boundary: even a caller-supplied input schema that misbehaves
// is reported as a violation rather than propagated. It also never applies
// defaults; filling in absent fields is the deployment service's job.
//
// CPU allocations are proportional to memory on the target provider. The
// CPUResolver reproduces that relationship from a fixed calibration table,
// interpolating linearly between known tiers and clamping outside them, so
// a declared cpu value can be checked against the value ram implies.
//
// The validator knows nothing about step kinds. Whether a queue descriptor
// is appropriate for a given kind of step is a policy decision made by the
// caller (see pkg/policy).
package infra
