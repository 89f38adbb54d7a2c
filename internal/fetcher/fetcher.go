// Package fetcher orchestrates list requests for one mounted view: it debounces
// query changes, renders cached data when a request is slow, and re-fetches
// every cached page of an entity on demand.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/smileynet/ledgerdeck/internal/ledger"
	"github.com/smileynet/ledgerdeck/internal/store"
)

const (
	DefaultDebounce  = 300 * time.Millisecond
	DefaultSlowAfter = 3 * time.Second
)

// ErrFetchAll indicates at least one key of a FetchAll failed.
var ErrFetchAll = errors.New("fetcher: fetch all failed")

// ListFunc issues the list request for q and dispatches its result.
type ListFunc func(ctx context.Context, q store.Query) (store.Action, error)

// Source reads store snapshots.
type Source interface {
	State() store.State
}

// View is what a fetcher renders.
type View[T ledger.Record] struct {
	Data       []T
	Pagination ledger.Pagination
	Status     store.Status
	CacheKey   string
	Query      store.Query
}

type options struct {
	clock      Clock
	logger     *zap.Logger
	debounce   time.Duration
	slowAfter  time.Duration
	onComplete func()
}

// Option configures a Fetcher.
type Option func(*options)

// WithClock sets the clock driving the debounce and slow timers.
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithDebounce sets the debounce window for query changes.
func WithDebounce(d time.Duration) Option {
	return func(o *options) { o.debounce = d }
}

// WithSlowAfter sets how long a fetch may run before cached data is rendered.
func WithSlowAfter(d time.Duration) Option {
	return func(o *options) { o.slowAfter = d }
}

// WithOnFetchComplete registers a hook run after each successful fetch.
func WithOnFetchComplete(fn func()) Option {
	return func(o *options) { o.onComplete = fn }
}

// Fetcher keeps one view of an entity in sync with the store.
type Fetcher[T ledger.Record] struct {
	entity ledger.Entity
	list   ListFunc
	src    Source
	render func(View[T])
	opts   options

	debouncer *Debouncer
	renderMu  sync.Mutex

	mu         sync.Mutex
	ctx        context.Context
	query      store.Query
	key        string
	status     store.Status
	data       []T
	pagination ledger.Pagination
	gen        uint64
	closed     bool
}

// New creates a Fetcher for entity. render receives every view change.
func New[T ledger.Record](entity ledger.Entity, list ListFunc, src Source, render func(View[T]), opts ...Option) *Fetcher[T] {
	o := options{
		clock:      RealClock(),
		logger:     zap.NewNop(),
		debounce:   DefaultDebounce,
		slowAfter:  DefaultSlowAfter,
		onComplete: func() {},
	}
	for _, opt := range opts {
		opt(&o)
	}
	f := &Fetcher[T]{
		entity: entity,
		list:   list,
		src:    src,
		render: render,
		opts:   o,
		ctx:    context.Background(),
		status: store.StatusDefault,
		data:   []T{},
	}
	f.debouncer = NewDebouncer(o.clock, o.debounce, f.fetchInBackground)
	return f
}

// Mount starts the fetcher with q: status INITIATED, a render, and an
// immediate fetch. ctx bounds every background fetch.
func (f *Fetcher[T]) Mount(ctx context.Context, q store.Query) {
	f.mu.Lock()
	f.ctx = ctx
	f.query = q
	f.key = store.CacheKey(f.entity, q)
	f.status = store.StatusInitiated
	f.mu.Unlock()

	f.emit()
	f.fetchInBackground()
}

// SetQuery changes the query. If the cache key changed, the status becomes
// PENDING and a debounced fetch is scheduled. Fetches still in flight for the
// old key no longer settle the status.
func (f *Fetcher[T]) SetQuery(q store.Query) {
	key := store.CacheKey(f.entity, q)
	f.mu.Lock()
	if f.closed || key == f.key {
		f.mu.Unlock()
		return
	}
	f.query = q
	f.key = key
	f.status = store.StatusPending
	f.gen++
	f.mu.Unlock()

	f.emit()
	f.debouncer.Call()
}

// Query returns the current query.
func (f *Fetcher[T]) Query() store.Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.query
}

// View returns the current view.
func (f *Fetcher[T]) View() View[T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	return View[T]{
		Data:       f.data,
		Pagination: f.pagination,
		Status:     f.status,
		CacheKey:   f.key,
		Query:      f.query,
	}
}

// Close stops pending debounced fetches and further renders. In-flight
// requests still settle in the store.
func (f *Fetcher[T]) Close() {
	f.debouncer.Stop()
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

// attempt is one issued fetch: its generation and the query it was issued for.
type attempt struct {
	gen uint64
	q   store.Query
	key string
}

// begin issues a new generation for the current query.
func (f *Fetcher[T]) begin() (attempt, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return attempt{}, false
	}
	f.gen++
	return attempt{gen: f.gen, q: f.query, key: f.key}, true
}

// fetchInBackground issues a fetch for the current query and runs it on its
// own goroutine.
func (f *Fetcher[T]) fetchInBackground() {
	at, ok := f.begin()
	if !ok {
		return
	}
	f.mu.Lock()
	ctx := f.ctx
	f.mu.Unlock()
	go func() {
		if err := f.run(ctx, at); err != nil {
			f.opts.logger.Debug("fetch failed", zap.String("entity", string(f.entity)), zap.Error(err))
		}
	}()
}

// Fetch requests the current query and waits for it to settle. If it takes
// longer than the slow threshold, cached data is rendered in the meantime.
// Only the most recently issued fetch settles the status.
func (f *Fetcher[T]) Fetch(ctx context.Context) error {
	at, ok := f.begin()
	if !ok {
		return nil
	}
	return f.run(ctx, at)
}

func (f *Fetcher[T]) run(ctx context.Context, at attempt) error {
	var settled bool
	slow := f.opts.clock.AfterFunc(f.opts.slowAfter, func() {
		f.mu.Lock()
		if settled || at.gen != f.gen || at.key != f.key || f.closed {
			f.mu.Unlock()
			return
		}
		f.refreshLocked()
		f.mu.Unlock()
		f.opts.logger.Warn("fetching data taking too long, using cached data",
			zap.String("entity", string(f.entity)),
			zap.String("cache_key", at.key),
			zap.Duration("after", f.opts.slowAfter),
		)
		f.emit()
	})

	act, err := f.list(ctx, at.q)
	slow.Stop()
	ok := err == nil && act.Succeeded()

	f.mu.Lock()
	settled = true
	latest := at.gen == f.gen && at.key == f.key
	if latest {
		if ok {
			f.status = store.StatusSuccess
		} else {
			f.status = store.StatusFailed
		}
		f.refreshLocked()
	}
	f.mu.Unlock()

	if latest {
		f.emit()
		if ok {
			f.opts.onComplete()
		}
	}
	if err != nil {
		return fmt.Errorf("fetcher: %s: %w", f.entity, err)
	}
	if !ok {
		return fmt.Errorf("fetcher: %s: request ended with %s", f.entity, act.Status)
	}
	return nil
}

// KeyError is the failure of one cache key during FetchAll.
type KeyError struct {
	CacheKey string
	Err      error
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("fetcher: key %s: %v", e.CacheKey, e.Err)
}

func (e *KeyError) Unwrap() error { return e.Err }

// Results reports every key re-fetched by FetchAll.
type Results struct {
	Keys   []string
	Errors map[string]error
}

// Failed returns the keys that failed, in Keys order.
func (r Results) Failed() []string {
	var out []string
	for _, k := range r.Keys {
		if _, ok := r.Errors[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

// FetchAll re-fetches every cached page of the entity with the current query
// and waits for all of them. The returned error wraps ErrFetchAll and a
// *KeyError per failed key. Status becomes SUCCESS only if every key succeeded.
func (f *Fetcher[T]) FetchAll(ctx context.Context) (Results, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return Results{Errors: map[string]error{}}, nil
	}
	base := f.query
	gen := f.gen
	f.mu.Unlock()

	var queries []store.Query
	seen := map[string]bool{}
	for _, cached := range store.KeysForEntity(f.src.State(), f.entity) {
		_, cq, err := store.ParseCacheKey(cached)
		if err != nil {
			continue
		}
		q := base.WithPage(cq.Page)
		key := store.CacheKey(f.entity, q)
		if seen[key] {
			continue
		}
		seen[key] = true
		queries = append(queries, q)
	}

	res := Results{Keys: make([]string, len(queries)), Errors: map[string]error{}}
	errs := make([]error, len(queries))
	var wg sync.WaitGroup
	for i, q := range queries {
		res.Keys[i] = store.CacheKey(f.entity, q)
		wg.Add(1)
		go func() {
			defer wg.Done()
			act, err := f.list(ctx, q)
			if err == nil && !act.Succeeded() {
				err = fmt.Errorf("request ended with %s", act.Status)
			}
			if err != nil {
				errs[i] = &KeyError{CacheKey: res.Keys[i], Err: err}
			}
		}()
	}
	wg.Wait()

	var failed []error
	for i, err := range errs {
		if err != nil {
			res.Errors[res.Keys[i]] = err
			failed = append(failed, err)
		}
	}
	if len(failed) > 0 {
		f.opts.logger.Warn("cannot fetch all cached queries",
			zap.String("entity", string(f.entity)),
			zap.Int("failed", len(failed)),
			zap.Int("total", len(queries)),
		)
		return res, fmt.Errorf("%w: %w", ErrFetchAll, errors.Join(failed...))
	}

	f.mu.Lock()
	if gen == f.gen && !f.closed {
		f.status = store.StatusSuccess
	}
	f.refreshLocked()
	f.mu.Unlock()
	f.emit()
	return res, nil
}

// refreshLocked copies the store's data for the current key into the view.
// Must be called with mu held.
func (f *Fetcher[T]) refreshLocked() {
	f.data, f.pagination = store.SelectCached[T](f.src.State(), f.entity, f.key)
}

// emit renders the current view. Renders are serialized so each one reflects
// state at least as new as the one before.
func (f *Fetcher[T]) emit() {
	f.renderMu.Lock()
	defer f.renderMu.Unlock()
	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()
	if closed {
		return
	}
	f.render(f.View())
}
