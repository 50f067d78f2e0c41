// Package poller implements the fixed-interval polling primitive used to
// drive upstream generation jobs to a terminal state.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Defaults applied when the config leaves them zero. The upstream has no
// cap of its own, so polling is bounded here.
const (
	DefaultMaxConsecutiveErrors = 3
	DefaultTimeout              = 10 * time.Minute
)

var (
	// ErrTimeout is returned when a job does not reach a terminal state
	// within the overall timeout.
	ErrTimeout = errors.New("poller: timed out waiting for terminal state")

	// ErrJobFailed is returned when the job reports a terminal failure.
	ErrJobFailed = errors.New("poller: job reported failure")

	// ErrStopped is returned when the caller cancels polling.
	ErrStopped = errors.New("poller: stopped")
)

// Config parameterizes a poller over one snapshot type.
type Config[T any] struct {
	// Fetch issues one status request.
	Fetch func(ctx context.Context) (T, error)

	// IsSuccess and IsFailure classify a snapshot as terminal.
	IsSuccess func(T) bool
	IsFailure func(T) bool

	// Interval between observations. The first fetch happens
	// immediately, not after a full interval.
	Interval time.Duration

	// Timeout bounds the whole poll; zero means DefaultTimeout.
	Timeout time.Duration

	// MaxConsecutiveErrors bounds tolerated transport failures before
	// the poll aborts; zero means DefaultMaxConsecutiveErrors.
	MaxConsecutiveErrors int

	// OnUpdate observes every successfully fetched snapshot, terminal
	// or not. Optional.
	OnUpdate func(T)

	// OnError observes transient transport failures that did not yet
	// abort the poll. Optional.
	OnError func(error)

	// Clock is swapped out by tests; nil means wall clock.
	Clock Clock
}

// Poller drives one job to a terminal state.
type Poller[T any] struct {
	cfg Config[T]

	mu      sync.Mutex
	stopped bool
	cancel  context.CancelFunc
}

// New validates the config and builds a poller.
func New[T any](cfg Config[T]) (*Poller[T], error) {
	if cfg.Fetch == nil {
		return nil, errors.New("poller: Fetch is required")
	}
	if cfg.IsSuccess == nil {
		return nil, errors.New("poller: IsSuccess is required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: Interval must be positive")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxConsecutiveErrors == 0 {
		cfg.MaxConsecutiveErrors = DefaultMaxConsecutiveErrors
	}
	if cfg.Clock == nil {
		cfg.Clock = RealClock{}
	}
	return &Poller[T]{cfg: cfg}, nil
}

// Run polls until a terminal state and returns the terminal snapshot.
// A terminal failure returns the snapshot together with ErrJobFailed.
// Transient transport errors are tolerated up to the configured cap.
func (p *Poller[T]) Run(ctx context.Context) (T, error) {
	var zero T

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return zero, ErrStopped
	}
	p.cancel = cancel
	p.mu.Unlock()

	timeout := p.cfg.Clock.After(p.cfg.Timeout)
	consecutive := 0

	for {
		snap, err := p.cfg.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return zero, p.stopReason(ctx)
			}
			consecutive++
			if consecutive >= p.cfg.MaxConsecutiveErrors {
				return zero, fmt.Errorf("poller: %d consecutive fetch failures: %w", consecutive, err)
			}
			p.notifyError(err)
		} else {
			consecutive = 0
			p.notifyUpdate(snap)
			if p.cfg.IsSuccess(snap) {
				return snap, nil
			}
			if p.cfg.IsFailure != nil && p.cfg.IsFailure(snap) {
				return snap, ErrJobFailed
			}
		}

		select {
		case <-ctx.Done():
			return zero, p.stopReason(ctx)
		case <-timeout:
			return zero, ErrTimeout
		case <-p.cfg.Clock.After(p.cfg.Interval):
		}
	}
}

// Stop cancels the poll. No callback fires after Stop returns.
func (p *Poller[T]) Stop() {
	p.mu.Lock()
	p.stopped = true
	cancel := p.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (p *Poller[T]) stopReason(ctx context.Context) error {
	p.mu.Lock()
	stopped := p.stopped
	p.mu.Unlock()
	if stopped {
		return ErrStopped
	}
	return ctx.Err()
}

// notifyUpdate and notifyError suppress callbacks once Stop was called,
// so an in-flight fetch cannot leak effects past cancellation.
func (p *Poller[T]) notifyUpdate(snap T) {
	p.mu.Lock()
	stopped := p.stopped
	p.mu.Unlock()
	if !stopped && p.cfg.OnUpdate != nil {
		p.cfg.OnUpdate(snap)
	}
}

func (p *Poller[T]) notifyError(err error) {
	p.mu.Lock()
	stopped := p.stopped
	p.mu.Unlock()
	if !stopped && p.cfg.OnError != nil {
		p.cfg.OnError(err)
	}
}
