package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// ErrClosed is returned by Dispatch after the store has been closed.
var ErrClosed = errors.New("store: closed")

// Store is a single-writer state container. Actions are queued on a channel and
// applied one at a time by the dispatch loop, so the resulting order is dispatch
// order, not response order.
type Store struct {
	logger *zap.Logger
	queue  chan envelope
	done   chan struct{}
	exited chan struct{}

	closeOnce sync.Once

	mu    sync.RWMutex
	state State

	tokens atomic.Uint64
}

type envelope struct {
	action Action
	reply  chan State
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for dispatch tracing.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithInitialState seeds the store, e.g. with a restored current account.
func WithInitialState(st State) Option {
	return func(s *Store) { s.state = st }
}

// New creates a Store and starts its dispatch loop. Call Close to stop it.
func New(opts ...Option) *Store {
	s := &Store{
		logger: zap.NewNop(),
		queue:  make(chan envelope),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
		state:  NewState(),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.loop()
	return s
}

func (s *Store) loop() {
	defer close(s.exited)
	for {
		select {
		case <-s.done:
			return
		case env := <-s.queue:
			s.mu.Lock()
			next := Reduce(s.state, env.action)
			s.state = next
			s.mu.Unlock()

			s.logger.Debug("dispatch", zap.String("type", env.action.Type()), zap.String("cache_key", env.action.CacheKey))
			env.reply <- next
		}
	}
}

// Dispatch queues a and blocks until it has been reduced, returning the
// resulting state.
func (s *Store) Dispatch(ctx context.Context, a Action) (State, error) {
	env := envelope{action: a, reply: make(chan State, 1)}
	select {
	case <-s.done:
		return State{}, ErrClosed
	case <-ctx.Done():
		return State{}, ctx.Err()
	case s.queue <- env:
	}
	select {
	case st := <-env.reply:
		return st, nil
	case <-s.exited:
		// The loop may have replied just before exiting.
		select {
		case st := <-env.reply:
			return st, nil
		default:
			return State{}, ErrClosed
		}
	}
}

// State returns the latest state snapshot.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// IssueToken returns a new request token, greater than every token issued before.
func (s *Store) IssueToken() uint64 {
	return s.tokens.Add(1)
}

// Close stops the dispatch loop and waits for it to exit. It is safe to call
// more than once.
func (s *Store) Close() {
	s.closeOnce.Do(func() { close(s.done) })
	<-s.exited
}
