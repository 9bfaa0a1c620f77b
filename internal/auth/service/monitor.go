package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/sessiongate/internal/auth/telemetry"
)

// Pinger is anything the monitor can health check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StoreMonitor periodically pings the backing stores, logs when one goes
// down or comes back, and keeps the store_up gauge current.
type StoreMonitor struct {
	Stores   map[string]Pinger
	Logger   *slog.Logger
	Metrics  *telemetry.Metrics
	Interval time.Duration
	Timeout  time.Duration

	mu    sync.Mutex
	state map[string]bool

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewStoreMonitor creates a monitor over stores. If interval is 0 or
// negative, defaults to 30 seconds.
func NewStoreMonitor(stores map[string]Pinger, logger *slog.Logger, metrics *telemetry.Metrics, interval time.Duration) *StoreMonitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	return &StoreMonitor{
		Stores:   stores,
		Logger:   logger,
		Metrics:  metrics,
		Interval: interval,
		Timeout:  2 * time.Second,
		state:    make(map[string]bool, len(stores)),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Call Stop to shut it down.
func (m *StoreMonitor) Start() {
	go m.run()
	m.Logger.Info("store monitor started", "interval", m.Interval)
}

// Stop shuts down the worker and waits for an in-flight check to finish.
func (m *StoreMonitor) Stop() {
	close(m.stopCh)
	<-m.doneCh
	m.Logger.Info("store monitor stopped")
}

func (m *StoreMonitor) run() {
	defer close(m.doneCh)

	ticker := time.NewTicker(m.Interval)
	defer ticker.Stop()

	m.Check(context.Background())

	for {
		select {
		case <-ticker.C:
			m.Check(context.Background())
		case <-m.stopCh:
			return
		}
	}
}

// Check pings every store once and returns which are up. Stores are
// checked independently; one failing does not skip the others.
func (m *StoreMonitor) Check(ctx context.Context) map[string]bool {
	timeout := m.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	result := make(map[string]bool, len(m.Stores))
	for name, p := range m.Stores {
		pctx, cancel := context.WithTimeout(ctx, timeout)
		err := p.Ping(pctx)
		cancel()

		up := err == nil
		result[name] = up
		m.Metrics.SetStoreUp(name, up)
		m.transition(name, up, err)
	}
	return result
}

// Up reports the last observed state of the named store.
func (m *StoreMonitor) Up(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state[name]
}

func (m *StoreMonitor) transition(name string, up bool, err error) {
	m.mu.Lock()
	if m.state == nil {
		m.state = make(map[string]bool)
	}
	prev, seen := m.state[name]
	m.state[name] = up
	m.mu.Unlock()

	switch {
	case !up && (!seen || prev):
		m.Logger.Error("store unreachable", "store", name, "error", err)
	case up && seen && !prev:
		m.Logger.Info("store recovered", "store", name)
	case up && !seen:
		m.Logger.Debug("store reachable", "store", name)
	}
}
