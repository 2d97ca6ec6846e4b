package inference

import (
	"sync"

	"lexgraph/internal/config"
)

// Factory hands out one shared client per service, plus the process-wide
// resource monitor.
type Factory struct {
	cfg     *config.Config
	monitor *Monitor

	mu      sync.Mutex
	clients map[Service]Client
}

// NewFactory builds a factory and starts the resource monitor.
func NewFactory(cfg *config.Config) *Factory {
	monitor := NewMonitor(cfg.Resources)
	monitor.Start()
	return &Factory{
		cfg:     cfg,
		monitor: monitor,
		clients: make(map[Service]Client),
	}
}

// Client returns the shared client for a service, creating it on first
// use. Creation does not connect; the client connects lazily.
func (f *Factory) Client(service Service) Client {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.clients[service]; ok {
		return c
	}
	c := NewHTTPClient(service, f.cfg, f.monitor)
	f.clients[service] = c
	return c
}

// Monitor exposes the shared resource monitor.
func (f *Factory) Monitor() *Monitor { return f.monitor }

// Stats snapshots the counters of every client created so far.
func (f *Factory) Stats() map[Service]Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[Service]Stats, len(f.clients))
	for svc, c := range f.clients {
		out[svc] = c.Stats()
	}
	return out
}

// Close shuts down all clients and the monitor.
func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var firstErr error
	for _, c := range f.clients {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	f.clients = make(map[Service]Client)
	f.monitor.Stop()
	return firstErr
}
