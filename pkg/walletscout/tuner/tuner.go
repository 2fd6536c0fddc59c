// Package tuner provides resource detection and worker pool sizing for the
// wallet scanner. It detects CPU cores and RAM, then derives a worker count
// and task buffer suited to classification work, which is I/O bound with
// short CPU bursts for pattern matching.
package tuner

// SystemResources contains detected system resources.
type SystemResources struct {
	// CPUCores is the number of logical CPU cores available.
	CPUCores int

	// TotalRAM is the total physical RAM in bytes.
	TotalRAM int64

	// AvailableRAM is the available (free) RAM in bytes.
	// This may be an estimate based on system heuristics.
	AvailableRAM int64
}

// Worker configuration limits.
const (
	// maxWorkers caps the classification pool to avoid excessive
	// concurrent file handles on external media.
	maxWorkers = 16

	// minWorkers keeps at least two classifiers in flight so a slow file
	// never stalls the whole scan.
	minWorkers = 2

	// minTaskBuffer and maxTaskBuffer bound the dispatch channel.
	minTaskBuffer = 64
	maxTaskBuffer = 8192
)

// Memory-based buffer sizing constants.
const (
	// bytesPerTask estimates memory per queued candidate path.
	bytesPerTask = 512

	// bufferMemoryFraction is the fraction of available RAM dedicated to
	// the dispatch buffer. Classification reads dominate memory use, so
	// the buffer share is kept small.
	bufferMemoryFraction = 0.01
)

// OptimalConfig contains the tuned pool configuration.
type OptimalConfig struct {
	// Workers is the classification worker count.
	Workers int

	// TaskBuffer is the candidate dispatch channel capacity.
	TaskBuffer int
}

// Calculate returns pool configuration based on system resources.
//
// Workers scale with CPU count: classification is mostly I/O wait, so two
// workers per core keeps disks busy without thrashing, bounded to
// [minWorkers, maxWorkers]. The task buffer scales with available RAM.
func Calculate(resources SystemResources) OptimalConfig {
	workers := resources.CPUCores * 2
	workers = max(workers, minWorkers)
	workers = min(workers, maxWorkers)

	return OptimalConfig{
		Workers:    workers,
		TaskBuffer: calculateTaskBuffer(resources.AvailableRAM),
	}
}

// CalculateWithOverrides applies a user worker override to the optimal
// config. An override of 0 or less keeps the calculated value; positive
// overrides are still capped at the maximum.
func CalculateWithOverrides(resources SystemResources, workerOverride int) OptimalConfig {
	config := Calculate(resources)

	if workerOverride > 0 {
		config.Workers = min(workerOverride, maxWorkers)
	}

	return config
}

// calculateTaskBuffer determines dispatch capacity from available memory.
func calculateTaskBuffer(availableRAM int64) int {
	bufferMemory := float64(availableRAM) * bufferMemoryFraction
	entries := int(bufferMemory / bytesPerTask)

	entries = max(entries, minTaskBuffer)
	entries = min(entries, maxTaskBuffer)
	return entries
}
