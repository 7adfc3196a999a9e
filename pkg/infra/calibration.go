package infra

// calibrationPoint is a single entry in the provider's RAM to compute-unit
// allocation table.
type calibrationPoint struct {
	ramMB int
	cpu   float64
}

// calibrationTable maps memory allocations to the compute units the provider
// grants for them. Sorted ascending by RAM. The table is fixed at startup and
// never mutated, so it is safe for concurrent readers.
var calibrationTable = []calibrationPoint{
	{128, 0.0625},
	{256, 0.125},
	{512, 0.25},
	{1024, 0.5},
	{1536, 0.75},
	{2048, 1},
	{3008, 1.5},
	{4096, 2},
	{5120, 2.5},
	{6144, 3},
	{7168, 3.5},
	{8192, 4},
	{9216, 4.5},
	{10240, 5},
}

// CPUResolver resolves the expected compute-unit allocation for a given
// memory allocation using the provider's calibration table.
type CPUResolver struct {
	table []calibrationPoint
}

// NewCPUResolver creates a resolver backed by the built-in calibration table.
func NewCPUResolver() *CPUResolver {
	return &CPUResolver{table: calibrationTable}
}

// Resolve returns the compute units expected for ramMB. Exact table entries
// are returned as-is; values between two entries are linearly interpolated;
// values outside the table are clamped to the nearest endpoint rather than
// extrapolated. Resolve is a total function and never fails.
func (r *CPUResolver) Resolve(ramMB int) float64 {
	table := r.table

	if ramMB <= table[0].ramMB {
		return table[0].cpu
	}
	if ramMB >= table[len(table)-1].ramMB {
		return table[len(table)-1].cpu
	}

	// The table is small enough that a linear scan beats the bookkeeping of a
	// binary search.
	for i := 1; i < len(table); i++ {
		if ramMB == table[i].ramMB {
			return table[i].cpu
		}
		if ramMB < table[i].ramMB {
			low, high := table[i-1], table[i]
			ratio := float64(ramMB-low.ramMB) / float64(high.ramMB-low.ramMB)
			return low.cpu + (high.cpu-low.cpu)*ratio
		}
	}

	// Unreachable: the clamp above covers everything past the last entry.
	return table[len(table)-1].cpu
}

// MinRAM returns the smallest calibrated memory allocation in megabytes.
func (r *CPUResolver) MinRAM() int {
	return r.table[0].ramMB
}

// MaxRAM returns the largest calibrated memory allocation in megabytes.
func (r *CPUResolver) MaxRAM() int {
	return r.table[len(r.table)-1].ramMB
}
