package lifecycle

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// StopFunc releases one component of the running server.
type StopFunc func(ctx context.Context) error

type component struct {
	name string
	stop StopFunc
}

// Manager tracks the components started by the serve command and stops
// them in reverse start order.
type Manager struct {
	timeout time.Duration
	logger  *zap.Logger

	mu         sync.Mutex
	components []component
	stopped    bool
}

// New creates a manager whose Shutdown gives up after timeout.
func New(timeout time.Duration, logger *zap.Logger) *Manager {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		timeout: timeout,
		logger:  logger,
	}
}

// Register adds a component. Registering after Shutdown stops it immediately.
func (m *Manager) Register(name string, stop StopFunc) {
	if stop == nil {
		return
	}
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		m.logger.Warn("component registered after shutdown", zap.String("component", name))
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()
		m.stop(ctx, component{name: name, stop: stop})
		return
	}
	m.components = append(m.components, component{name: name, stop: stop})
	m.mu.Unlock()
}

// RegisterCloser registers an io.Closer such as a database handle or store.
func (m *Manager) RegisterCloser(name string, c io.Closer) {
	if c == nil {
		return
	}
	m.Register(name, func(context.Context) error { return c.Close() })
}

// Shutdown stops every registered component once. Later calls return nil.
func (m *Manager) Shutdown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return nil
	}
	m.stopped = true
	components := m.components
	m.components = nil
	m.mu.Unlock()

	var result error
	for i := len(components) - 1; i >= 0; i-- {
		result = errors.Join(result, m.stop(ctx, components[i]))
	}
	return result
}

func (m *Manager) stop(ctx context.Context, c component) error {
	started := time.Now()
	if err := c.stop(ctx); err != nil {
		m.logger.Error("component stop failed", zap.String("component", c.name), zap.Error(err))
		return err
	}
	m.logger.Info("component stopped",
		zap.String("component", c.name),
		zap.Duration("took", time.Since(started)),
	)
	return nil
}

// Listen returns a context cancelled on SIGINT or SIGTERM.
func (m *Manager) Listen(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			m.logger.Info("shutdown signal received", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// Wait blocks until ctx is cancelled or serveErr yields, then shuts down.
// The serve error takes precedence over shutdown failures.
func (m *Manager) Wait(ctx context.Context, serveErr <-chan error) error {
	var err error
	select {
	case <-ctx.Done():
	case err = <-serveErr:
		if err != nil {
			m.logger.Error("server stopped unexpectedly", zap.Error(err))
		}
	}

	if shutdownErr := m.Shutdown(context.Background()); shutdownErr != nil {
		m.logger.Error("graceful shutdown error", zap.Error(shutdownErr))
		if err == nil {
			err = shutdownErr
		}
	}
	return err
}
