package metrics

import (
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
)

// SystemSampler tracks process-level resource usage for Collector.Run.
// Adapted from the teacher's SystemMetrics: same gopsutil CPU sampling
// and exponential smoothing, trimmed to the three values Collector
// exposes as gauges (goroutines, heap, CPU) rather than a JSON dashboard
// snapshot.
type SystemSampler struct {
	mu         sync.RWMutex
	memStats   runtime.MemStats
	cpuPercent float64
}

// NewSystemSampler creates a sampler with an initial CPU reading.
func NewSystemSampler() *SystemSampler {
	s := &SystemSampler{}
	s.Update()
	return s
}

// Update refreshes the memory and CPU readings.
func (s *SystemSampler) Update() {
	s.mu.Lock()
	defer s.mu.Unlock()

	runtime.ReadMemStats(&s.memStats)

	cpuPercents, err := cpu.Percent(time.Second, false)
	if err != nil || len(cpuPercents) == 0 {
		return
	}
	current := cpuPercents[0]
	if s.cpuPercent == 0 {
		s.cpuPercent = current
	} else {
		const alpha = 0.3
		s.cpuPercent = alpha*current + (1-alpha)*s.cpuPercent
	}
}

// MemoryMB returns heap memory in use, in megabytes.
func (s *SystemSampler) MemoryMB() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return float64(s.memStats.HeapAlloc) / 1024 / 1024
}

// CPUPercent returns the smoothed process CPU usage percentage.
func (s *SystemSampler) CPUPercent() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cpuPercent
}

// Goroutines returns the current goroutine count.
func (s *SystemSampler) Goroutines() int {
	return runtime.NumGoroutine()
}
