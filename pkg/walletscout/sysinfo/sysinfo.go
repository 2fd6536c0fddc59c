// Package sysinfo reports host and volume information for the scan target
// picker and the control API.
package sysinfo

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// Volume describes one mounted or attached volume.
type Volume struct {
	Name        string  `json:"name"`
	Path        string  `json:"path"`
	Filesystem  string  `json:"filesystem,omitempty"`
	TotalBytes  uint64  `json:"total_bytes"`
	FreeBytes   uint64  `json:"free_bytes"`
	UsedPercent float64 `json:"used_percent"`
}

// Memory describes host memory pressure.
type Memory struct {
	TotalBytes     uint64  `json:"total_bytes"`
	AvailableBytes uint64  `json:"available_bytes"`
	UsedPercent    float64 `json:"used_percent"`
}

// Info is the full system snapshot.
type Info struct {
	Hostname string   `json:"hostname"`
	Platform string   `json:"platform"`
	CPUs     int      `json:"cpus"`
	Memory   Memory   `json:"memory"`
	Volumes  []Volume `json:"volumes"`
}

// Collect gathers a system snapshot. Volume enumeration is rooted at
// volumeBase (typically the external-volume mount directory).
func Collect(volumeBase string) (Info, error) {
	info := Info{
		Platform: runtime.GOOS,
		CPUs:     runtime.NumCPU(),
	}

	if hostname, err := os.Hostname(); err == nil {
		info.Hostname = hostname
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		info.Memory = Memory{
			TotalBytes:     vm.Total,
			AvailableBytes: vm.Available,
			UsedPercent:    vm.UsedPercent,
		}
	}

	volumes, err := ListVolumes(volumeBase)
	if err != nil {
		return info, err
	}
	info.Volumes = volumes
	return info, nil
}

// ListVolumes enumerates the directories directly under base and resolves
// usage for each. A base that does not exist yields an empty list, not an
// error: external volume directories appear only when something mounts.
func ListVolumes(base string) ([]Volume, error) {
	entries, err := os.ReadDir(base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	mounts := mountpoints()

	var volumes []Volume
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(base, entry.Name())
		vol := Volume{Name: entry.Name(), Path: path}

		if usage, err := disk.Usage(path); err == nil {
			vol.TotalBytes = usage.Total
			vol.FreeBytes = usage.Free
			vol.UsedPercent = usage.UsedPercent
		}
		if fstype, ok := mounts[path]; ok {
			vol.Filesystem = fstype
		}
		volumes = append(volumes, vol)
	}

	sort.Slice(volumes, func(i, j int) bool { return volumes[i].Name < volumes[j].Name })
	return volumes, nil
}

// mountpoints maps mountpoint path to filesystem type.
func mountpoints() map[string]string {
	out := make(map[string]string)
	partitions, err := disk.Partitions(false)
	if err != nil {
		return out
	}
	for _, p := range partitions {
		out[p.Mountpoint] = p.Fstype
	}
	return out
}
