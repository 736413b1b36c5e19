// Package shutdown provides the broadcast cancellation signal observed by
// the accept loop and by every connection task.
//
// A Signal has one producer and any number of observers. Firing latches it:
// every current and future observer sees it fired, and firing again is a
// no-op.
package shutdown

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
)

// ErrCancelled is returned by Run when the signal fires before the
// operation completes.
var ErrCancelled = errors.New("operation cancelled by shutdown")

// Signal is a one-shot, latched broadcast. The zero value is not usable;
// create one with New. A *Signal is safe to share between goroutines.
type Signal struct {
	once sync.Once
	done chan struct{}
}

// New returns an unfired Signal.
func New() *Signal {
	return &Signal{done: make(chan struct{})}
}

// Fire latches the signal. Safe to call any number of times from any goroutine.
func (s *Signal) Fire() {
	s.once.Do(func() { close(s.done) })
}

// Done returns a channel that is closed once the signal has fired.
func (s *Signal) Done() <-chan struct{} {
	return s.done
}

// Fired reports whether the signal has fired.
func (s *Signal) Fired() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Context returns a child of parent that is cancelled when the signal fires.
func (s *Signal) Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(parent)
	go func() {
		select {
		case <-s.done:
			cancel(ErrCancelled)
		case <-ctx.Done():
		}
	}()
	return ctx, func() { cancel(context.Canceled) }
}

// Run races op against the signal. op receives a context that is cancelled
// when the signal fires so it can release whatever it is blocked on. If the
// signal fires first Run returns ErrCancelled without waiting for op.
func Run[T any](s *Signal, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if s.Fired() {
		return zero, ErrCancelled
	}

	ctx, cancel := s.Context(context.Background())

	type result struct {
		val T
		err error
	}
	results := make(chan result, 1)
	go func() {
		defer cancel()
		v, err := op(ctx)
		results <- result{val: v, err: err}
	}()

	select {
	case r := <-results:
		return r.val, r.err
	case <-s.done:
		return zero, ErrCancelled
	}
}

// NotifyOnSignal fires s when the process receives one of sigs. The returned
// stop function releases the OS signal registration.
func NotifyOnSignal(s *Signal, sigs ...os.Signal) (stop func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)

	quit := make(chan struct{})
	go func() {
		select {
		case <-ch:
			s.Fire()
		case <-quit:
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(ch)
			close(quit)
		})
	}
}
