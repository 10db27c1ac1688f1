// Package system reports process and host memory figures for session logs.
package system

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// MemoryStats is a point-in-time memory snapshot.
type MemoryStats struct {
	ProcessRSSMB  uint64  `json:"processRssMb"`
	RAMPercent    float64 `json:"ramPercent"`
	RAMUsedMB     uint64  `json:"ramUsedMb"`
	RAMAvailMB    uint64  `json:"ramAvailableMb"`
	collectFailed bool
}

// Memory collects the current process RSS and host memory usage. Fields
// that cannot be read are left at zero.
func Memory() MemoryStats {
	var stats MemoryStats

	vmem, err := mem.VirtualMemory()
	if err == nil {
		stats.RAMPercent = vmem.UsedPercent
		stats.RAMUsedMB = vmem.Used / 1024 / 1024
		stats.RAMAvailMB = vmem.Available / 1024 / 1024
	} else {
		stats.collectFailed = true
	}

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err == nil {
		if info, err := proc.MemoryInfo(); err == nil {
			stats.ProcessRSSMB = info.RSS / 1024 / 1024
		} else {
			stats.collectFailed = true
		}
	} else {
		stats.collectFailed = true
	}

	return stats
}

// MarshalZerologObject lets a snapshot be attached with Event.Object.
func (s MemoryStats) MarshalZerologObject(e *zerolog.Event) {
	e.Uint64("process_rss_mb", s.ProcessRSSMB).
		Float64("ram_percent", s.RAMPercent).
		Uint64("ram_used_mb", s.RAMUsedMB).
		Uint64("ram_available_mb", s.RAMAvailMB)
	if s.collectFailed {
		e.Bool("partial", true)
	}
}
