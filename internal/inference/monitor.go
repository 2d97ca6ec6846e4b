package inference

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/mem"

	"lexgraph/internal/config"
	"lexgraph/internal/logging"
)

// Monitor samples GPU and host memory on a fixed interval. It is
// best-effort: a missing nvidia-smi is tolerated and host memory is
// still tracked. At most one sampling loop runs process-wide.
type Monitor struct {
	cfg      config.ResourcesConfig
	interval time.Duration
	warn     *logging.RateLimited

	pressure atomic.Bool
	gpuUtil  atomic.Uint64 // utilization * 10000
	hostUtil atomic.Uint64

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
	stopped   chan struct{}
}

// NewMonitor builds a monitor; call Start to begin sampling.
func NewMonitor(cfg config.ResourcesConfig) *Monitor {
	interval := time.Duration(cfg.SampleIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Monitor{
		cfg:      cfg,
		interval: interval,
		warn:     logging.NewRateLimited(logging.CategoryGPU, 5*time.Minute),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Start launches the sampling loop. Safe to call more than once.
func (m *Monitor) Start() {
	m.startOnce.Do(func() {
		go m.run()
	})
}

// Stop terminates the sampling loop and waits for it to exit.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.done) })
	m.startOnce.Do(func() { close(m.stopped) }) // never started
	<-m.stopped
}

// UnderPressure reports whether the last sample exceeded the memory
// threshold. Only consulted for admission when RejectOnPressure is set.
func (m *Monitor) UnderPressure() bool {
	return m.pressure.Load()
}

// RejectsRequests reports whether admission control is enabled.
func (m *Monitor) RejectsRequests() bool {
	return m.cfg.RejectOnPressure
}

// GPUUtilization returns the last sampled GPU memory utilization in
// [0,1], or 0 when no GPU is visible.
func (m *Monitor) GPUUtilization() float64 {
	return float64(m.gpuUtil.Load()) / 10000
}

func (m *Monitor) run() {
	defer close(m.stopped)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.sample()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.sample()
		}
	}
}

func (m *Monitor) sample() {
	gpu, gpuOK := sampleGPU()
	host := sampleHost()

	if gpuOK {
		m.gpuUtil.Store(uint64(gpu * 10000))
	}
	m.hostUtil.Store(uint64(host * 10000))

	over := (gpuOK && gpu > m.cfg.GPUMemoryThreshold) || host > m.cfg.GPUMemoryThreshold
	m.pressure.Store(over)

	if over {
		m.warn.Warn("memory", "memory pressure: gpu=%.1f%% host=%.1f%% threshold=%.1f%%",
			gpu*100, host*100, m.cfg.GPUMemoryThreshold*100)
	}
	logging.GPU("sample: gpu=%.3f (visible=%v) host=%.3f pressure=%v", gpu, gpuOK, host, over)
}

// sampleGPU shells out to nvidia-smi. Returns utilization in [0,1] and
// whether a GPU was visible.
func sampleGPU() (float64, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, "nvidia-smi",
		"--query-gpu=memory.used,memory.total", "--format=csv,noheader,nounits").Output()
	if err != nil {
		return 0, false
	}

	var used, total float64
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), ",")
		if len(fields) != 2 {
			continue
		}
		u, err1 := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
		t, err2 := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		if err1 != nil || err2 != nil || t <= 0 {
			continue
		}
		used += u
		total += t
	}
	if total <= 0 {
		return 0, false
	}
	return used / total, true
}

// sampleHost reads host memory utilization via gopsutil.
func sampleHost() float64 {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0
	}
	return vm.UsedPercent / 100
}
