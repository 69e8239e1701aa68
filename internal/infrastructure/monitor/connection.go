package monitor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// PingFunc reports whether a dependency is reachable.
type PingFunc func(ctx context.Context) error

// Check is one monitored dependency. The service is healthy only while
// every required check passes.
type Check struct {
	Name     string
	Ping     PingFunc
	Required bool
	Timeout  time.Duration
}

type Monitor struct {
	checks []Check

	status   Status
	mu       sync.RWMutex
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	logger   *zap.Logger
}

func New(checks []Check, interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		checks:   checks,
		interval: interval,
		stopCh:   make(chan struct{}),
		logger:   logger,
	}
}

func (m *Monitor) Start() {
	go m.loop()
}

func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.Healthy
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	services := make(map[string]bool, len(m.status.Services))
	for name, ok := range m.status.Services {
		services[name] = ok
	}
	status := m.status
	status.Services = services
	return status
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Refresh()
	for {
		select {
		case <-ticker.C:
			m.Refresh()
		case <-m.stopCh:
			return
		}
	}
}

// Refresh runs every check once and records the result.
func (m *Monitor) Refresh() {
	status := Status{
		Healthy:   true,
		Services:  make(map[string]bool, len(m.checks)),
		LastCheck: time.Now(),
	}
	for _, check := range m.checks {
		ok := m.run(check)
		status.Services[check.Name] = ok
		if !ok && check.Required {
			status.Healthy = false
		}
	}

	m.mu.Lock()
	previous := m.status
	m.status = status
	m.mu.Unlock()

	if previous.LastCheck.IsZero() || previous.Healthy != status.Healthy {
		m.logger.Info("dependency status", zap.Bool("healthy", status.Healthy), zap.Any("services", status.Services))
	}
}

func (m *Monitor) run(check Check) bool {
	if check.Ping == nil {
		return false
	}
	timeout := check.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := check.Ping(ctx); err != nil {
		m.logger.Debug("dependency check failed", zap.String("service", check.Name), zap.Error(err))
		return false
	}
	return true
}
