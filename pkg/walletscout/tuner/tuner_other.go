//go:build !darwin

package tuner

import (
	"runtime"

	"github.com/shirou/gopsutil/v3/mem"
)

// defaultTotalRAM is the fallback when memory detection fails.
const defaultTotalRAM = 8 * 1024 * 1024 * 1024

// Detect detects available system resources (CPU and RAM).
// On non-darwin platforms memory comes from gopsutil, falling back to a
// fixed default when the probe fails.
func Detect() (SystemResources, error) {
	resources := SystemResources{
		CPUCores: runtime.NumCPU(),
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		resources.TotalRAM = defaultTotalRAM
		resources.AvailableRAM = defaultTotalRAM / 2
		return resources, nil
	}

	resources.TotalRAM = int64(vm.Total)
	resources.AvailableRAM = int64(vm.Available)
	return resources, nil
}
