package shutdown

import (
	"context"
	"errors"
	"strings"
	"syscall"
	"testing"
	"time"
)

func TestSequence_Order(t *testing.T) {
	s := NewSequence(time.Second)
	var got []string
	for _, name := range []string{"http", "admin", "watcher"} {
		name := name
		s.Add(name, func(context.Context) error {
			got = append(got, name)
			return nil
		})
	}

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if strings.Join(got, ",") != "http,admin,watcher" {
		t.Errorf("order = %v", got)
	}
}

func TestSequence_ErrorsJoined(t *testing.T) {
	errAdmin := errors.New("listener closed twice")
	s := NewSequence(time.Second)
	later := false
	s.Add("admin", func(context.Context) error { return errAdmin })
	s.Add("watcher", func(context.Context) error {
		later = true
		return nil
	})

	err := s.Run(context.Background())
	if !errors.Is(err, errAdmin) {
		t.Fatalf("Run() = %v, want %v", err, errAdmin)
	}
	if !strings.HasPrefix(err.Error(), "admin: ") {
		t.Errorf("error %q lacks the step name", err)
	}
	if !later {
		t.Error("a failing step stopped the ones after it")
	}
}

func TestSequence_Grace(t *testing.T) {
	s := NewSequence(50 * time.Millisecond)
	s.Add("http", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	start := time.Now()
	err := s.Run(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run() = %v, want deadline exceeded", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Run() took %v", elapsed)
	}
}

func TestSequence_ParentCancel(t *testing.T) {
	s := NewSequence(time.Minute)
	s.Add("http", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() = %v, want canceled", err)
	}
}

func TestSequence_RunOnce(t *testing.T) {
	s := NewSequence(time.Second)
	calls := 0
	s.Add("http", func(context.Context) error {
		calls++
		return nil
	})

	_ = s.Run(context.Background())
	s.Add("late", func(context.Context) error {
		calls++
		return nil
	})
	_ = s.Run(context.Background())
	if calls != 1 {
		t.Errorf("steps ran %d times, want 1", calls)
	}
}

func TestWithSignals(t *testing.T) {
	ctx, stop := WithSignals(context.Background())
	defer stop()

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("Kill() error = %v", err)
	}
	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context not cancelled by SIGTERM")
	}
}
