// Package health periodically snapshots process and host resource usage,
// grounded on the teacher's nova_abordagem/metrics.go EnhancedMetrics
// system-metrics loop (gopsutil CPU sampling between two Times() calls,
// runtime.MemStats for heap/goroutines), trimmed to the fields relevant
// to a single-process ingest/encode/decode pipeline.
package health

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/sirupsen/logrus"

	"joedb/pkg/metrics"
)

// Snapshot is one point-in-time resource reading.
type Snapshot struct {
	Timestamp    time.Time
	CPUPercent   float64
	MemUsedBytes uint64
	HeapBytes    uint64
	Goroutines   int
	GCRuns       uint32
}

// Monitor periodically collects Snapshots and keeps the latest one
// available for a health endpoint to report.
type Monitor struct {
	interval time.Duration
	logger   *logrus.Logger

	mu       sync.RWMutex
	latest   Snapshot
	lastCPU  cpu.TimesStat
	haveCPU  bool

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewMonitor builds a Monitor that samples every interval.
func NewMonitor(interval time.Duration, logger *logrus.Logger) *Monitor {
	return &Monitor{interval: interval, logger: logger}
}

// Start launches the sampling loop in the background.
func (m *Monitor) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		m.sample()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.sample()
			}
		}
	}()
}

// Stop halts the sampling loop.
func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}

// Latest returns the most recent snapshot.
func (m *Monitor) Latest() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest
}

func (m *Monitor) sample() {
	start := time.Now()
	defer func() { metrics.HealthSnapshotDuration.Observe(time.Since(start).Seconds()) }()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	snap := Snapshot{
		Timestamp:  time.Now(),
		HeapBytes:  memStats.HeapAlloc,
		Goroutines: runtime.NumGoroutine(),
		GCRuns:     memStats.NumGC,
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		snap.MemUsedBytes = vm.Used
	}

	if times, err := cpu.Times(false); err == nil && len(times) > 0 {
		m.mu.Lock()
		if m.haveCPU {
			total := times[0].Total() - m.lastCPU.Total()
			idle := times[0].Idle - m.lastCPU.Idle
			if total > 0 {
				snap.CPUPercent = 100.0 * (total - idle) / total
			}
		}
		m.lastCPU = times[0]
		m.haveCPU = true
		m.mu.Unlock()
	} else if err != nil {
		m.logger.WithError(err).Debug("failed to sample cpu times")
	}

	m.mu.Lock()
	m.latest = snap
	m.mu.Unlock()
}
