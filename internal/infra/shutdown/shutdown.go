package shutdown

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// Signals are the termination signals that start a graceful shutdown.
var Signals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}

// WithSignals returns a context that is cancelled on the first
// termination signal. A second signal is left to the default handler,
// which kills the process.
func WithSignals(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, Signals...)
}

// Step is one named part of a shutdown.
type Step struct {
	Name string
	Fn   func(context.Context) error
}

// Sequence runs shutdown steps in registration order under one deadline.
type Sequence struct {
	grace time.Duration

	mu    sync.Mutex
	steps []Step
	ran   bool
}

// NewSequence creates a sequence whose steps share grace.
func NewSequence(grace time.Duration) *Sequence {
	return &Sequence{grace: grace}
}

// Add appends a step. Steps added after Run are ignored.
func (s *Sequence) Add(name string, fn func(context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ran {
		s.steps = append(s.steps, Step{Name: name, Fn: fn})
	}
}

// Run executes every step, in order, with a context that expires after
// the grace period or when parent is done. A failing step does not stop
// later ones. Errors are prefixed with the step name and joined. Only
// the first call does anything.
func (s *Sequence) Run(parent context.Context) error {
	s.mu.Lock()
	if s.ran {
		s.mu.Unlock()
		return nil
	}
	s.ran = true
	steps := s.steps
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(parent, s.grace)
	defer cancel()

	var errs []error
	for _, st := range steps {
		if err := st.Fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", st.Name, err))
		}
	}
	return errors.Join(errs...)
}
