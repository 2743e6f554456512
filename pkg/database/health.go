package database

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Pinger is satisfied by *sqlx.DB and *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthStatus is the outcome of the most recent probe.
type HealthStatus struct {
	Healthy   bool      `json:"healthy"`
	CheckedAt time.Time `json:"checkedAt"`
	Error     string    `json:"error,omitempty"`
	Failures  int       `json:"consecutiveFailures"`
}

// HealthMonitor pings the database on a fixed interval and records the
// result. It only reports; requests are never rejected because of it.
type HealthMonitor struct {
	db       Pinger
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger

	mu     sync.RWMutex
	status HealthStatus

	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
}

// NewHealthMonitor builds a monitor; interval defaults to 30s.
func NewHealthMonitor(db Pinger, interval time.Duration, logger *zap.Logger) *HealthMonitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := 5 * time.Second
	if interval < timeout {
		timeout = interval
	}
	return &HealthMonitor{
		db:       db,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start probes once immediately and then on every tick until ctx ends or Stop is called.
func (m *HealthMonitor) Start(ctx context.Context) {
	go m.run(ctx)
}

// Stop halts the probe loop and waits for it to exit.
func (m *HealthMonitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopChan) })
	<-m.done
}

// Status returns the last recorded probe result.
func (m *HealthMonitor) Status() HealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Check runs a single probe and records its result.
func (m *HealthMonitor) Check(ctx context.Context) HealthStatus {
	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	err := m.db.PingContext(probeCtx)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.status.CheckedAt = time.Now().UTC()
	if err != nil {
		m.status.Healthy = false
		m.status.Error = err.Error()
		m.status.Failures++
		m.logger.Warn("database health probe failed", zap.Error(err), zap.Int("consecutive_failures", m.status.Failures))
	} else {
		if !m.status.Healthy && m.status.Failures > 0 {
			m.logger.Info("database health restored", zap.Int("after_failures", m.status.Failures))
		}
		m.status.Healthy = true
		m.status.Error = ""
		m.status.Failures = 0
	}
	return m.status
}

func (m *HealthMonitor) run(ctx context.Context) {
	defer close(m.done)
	m.Check(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Check(ctx)
		case <-m.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}
