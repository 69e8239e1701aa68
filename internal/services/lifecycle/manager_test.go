package lifecycle

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestShutdownStopsInReverseOrder(t *testing.T) {
	m := New(time.Second, nil)

	var order []string
	for _, name := range []string{"database", "monitor", "http_server"} {
		name := name
		m.Register(name, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	if err := m.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	want := []string{"http_server", "monitor", "database"}
	if !reflect.DeepEqual(order, want) {
		t.Fatalf("expected %v, got %v", want, order)
	}

	if err := m.Shutdown(context.Background()); err != nil {
		t.Fatalf("second shutdown: %v", err)
	}
	if len(order) != 3 {
		t.Errorf("components stopped twice: %v", order)
	}
}

func TestShutdownJoinsErrors(t *testing.T) {
	m := New(time.Second, nil)
	errStore := errors.New("store close failed")
	closed := false

	m.RegisterCloser("store", closerFunc(func() error { return errStore }))
	m.RegisterCloser("pool", closerFunc(func() error {
		closed = true
		return nil
	}))

	err := m.Shutdown(context.Background())
	if !errors.Is(err, errStore) {
		t.Fatalf("expected store error, got %v", err)
	}
	if !closed {
		t.Error("failure of one component must not skip the rest")
	}
}

func TestRegisterAfterShutdownStopsImmediately(t *testing.T) {
	m := New(time.Second, nil)
	if err := m.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}

	stopped := false
	m.Register("late", func(context.Context) error {
		stopped = true
		return nil
	})
	if !stopped {
		t.Error("late component was not stopped")
	}
}

func TestShutdownAppliesTimeout(t *testing.T) {
	m := New(20*time.Millisecond, nil)
	m.Register("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	err := m.Shutdown(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestWaitReturnsServeError(t *testing.T) {
	m := New(time.Second, nil)
	stopped := false
	m.Register("http_server", func(context.Context) error {
		stopped = true
		return nil
	})

	errListen := errors.New("address in use")
	serveErr := make(chan error, 1)
	serveErr <- errListen

	if err := m.Wait(context.Background(), serveErr); !errors.Is(err, errListen) {
		t.Fatalf("expected listen error, got %v", err)
	}
	if !stopped {
		t.Error("components were not stopped")
	}
}

func TestWaitOnCancel(t *testing.T) {
	m := New(time.Second, nil)
	ctx, cancel := m.Listen(context.Background())
	cancel()

	if err := m.Wait(ctx, make(chan error)); err != nil {
		t.Fatalf("expected clean shutdown, got %v", err)
	}
}
