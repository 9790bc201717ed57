// Package resource implements the optional CPU/memory-aware admission
// policy from SPEC_FULL.md §4.12, grounded in go-server-2/server.go's
// collectMetrics (periodic gopsutil/process sampling of CPU percent and
// RSS) narrowed to a boolean admission check instead of a dashboard
// stat.
package resource

import (
	"context"
	"math"
	"os"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// Guard samples process CPU percent and resident memory on an interval
// and reports whether a new connection should be admitted.
type Guard struct {
	maxCPUPercent  float64 // 0 disables the CPU check
	maxMemoryBytes int64   // 0 disables the memory check
	proc           *process.Process
	cpuPercentBits uint64 // atomic, math.Float64bits-encoded
	memoryBytes    int64  // atomic
}

// NewGuard builds a guard for the current process. maxCPUPercent <= 0
// disables the CPU check; maxMemoryBytes <= 0 disables the memory check.
// A guard with both disabled always admits and does not start a sampling
// goroutine.
func NewGuard(maxCPUPercent float64, maxMemoryBytes int64) (*Guard, error) {
	g := &Guard{maxCPUPercent: maxCPUPercent, maxMemoryBytes: maxMemoryBytes}
	if maxCPUPercent <= 0 && maxMemoryBytes <= 0 {
		return g, nil
	}
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	g.proc = proc
	return g, nil
}

// Run samples CPU/memory every interval until ctx is cancelled. Callers
// that built a Guard with both thresholds disabled may skip calling Run.
func (g *Guard) Run(ctx context.Context, interval time.Duration) {
	if g.proc == nil {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	g.sample()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.sample()
		}
	}
}

func (g *Guard) sample() {
	if pct, err := g.proc.Percent(0); err == nil {
		atomic.StoreUint64(&g.cpuPercentBits, math.Float64bits(pct))
	}
	if mem, err := g.proc.MemoryInfo(); err == nil && mem != nil {
		atomic.StoreInt64(&g.memoryBytes, int64(mem.RSS))
	}
}

// Admit reports whether a new connection should be accepted given the
// most recently sampled CPU/memory usage.
func (g *Guard) Admit() bool {
	if g.proc == nil {
		return true
	}
	if g.maxCPUPercent > 0 && math.Float64frombits(atomic.LoadUint64(&g.cpuPercentBits)) > g.maxCPUPercent {
		return false
	}
	if g.maxMemoryBytes > 0 && atomic.LoadInt64(&g.memoryBytes) > g.maxMemoryBytes {
		return false
	}
	return true
}
