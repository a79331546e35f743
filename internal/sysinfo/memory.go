// Package sysinfo samples process-level facts that get embedded into this
// instance's registry entry.
package sysinfo

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// MemoryMB returns this process's current memory footprint in megabytes.
// The figure is self-reported and approximate: it is the Go runtime's
// total obtained-from-OS bytes, which tracks RSS closely enough for a
// dashboard-style display.
func MemoryMB() float64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return float64(ms.Sys) / (1024 * 1024)
}

// ProcessStart approximates when this process started. The value is
// captured once at package init so it is stable across calls; entries
// derive uptime from it.
func ProcessStart() time.Time {
	return processStart
}

var processStart = time.Now()

// DisplayName derives a human label for this instance from the workspace
// path, falling back to the executable name.
func DisplayName(workspacePath string) string {
	if workspacePath != "" {
		return filepath.Base(workspacePath)
	}
	if exe, err := os.Executable(); err == nil {
		return filepath.Base(exe)
	}
	return "roster"
}
