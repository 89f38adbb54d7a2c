// Package action turns API service calls into store actions. Every creator
// dispatches INITIATED before the call and exactly one of SUCCESS or FAILED
// after it, so the store always sees a settled request.
package action

import (
	"context"
	"errors"
	"fmt"

	"github.com/smileynet/ledgerdeck/internal/api"
	"github.com/smileynet/ledgerdeck/internal/ledger"
	"github.com/smileynet/ledgerdeck/internal/store"
)

// ErrPanic wraps a panic raised by a service call.
var ErrPanic = errors.New("action: service panicked")

// Dispatcher is the part of the store the action creators need.
type Dispatcher interface {
	Dispatch(ctx context.Context, a store.Action) (store.State, error)
	IssueToken() uint64
}

// Spec names the entity and operation an action creator reports on.
type Spec struct {
	Entity ledger.Entity
	Op     store.Op
}

// Create runs a single-record service. On success the record is merged into
// the entity map; on failure the FAILED action carries the error.
func Create[T ledger.Record](ctx context.Context, d Dispatcher, spec Spec, service func(context.Context) (T, error)) (store.Action, error) {
	base := store.Action{Entity: spec.Entity, Op: spec.Op, Token: d.IssueToken()}
	return settle(ctx, d, base, func(ctx context.Context, a *store.Action) error {
		rec, err := service(ctx)
		if err != nil {
			return err
		}
		a.Record = rec
		return nil
	})
}

// CreateMany runs a service that returns several records outside any cache key,
// such as a batch update.
func CreateMany[T ledger.Record](ctx context.Context, d Dispatcher, spec Spec, service func(context.Context) ([]T, error)) (store.Action, error) {
	base := store.Action{Entity: spec.Entity, Op: spec.Op, Token: d.IssueToken()}
	return settle(ctx, d, base, func(ctx context.Context, a *store.Action) error {
		items, err := service(ctx)
		if err != nil {
			return err
		}
		a.Data = ledger.Records(items)
		return nil
	})
}

// CreatePaginated runs a list service for cacheKey. The SUCCESS action carries
// the page's records and pagination so the cache reducer can record them.
func CreatePaginated[T ledger.Record](ctx context.Context, d Dispatcher, spec Spec, cacheKey string, service func(context.Context) (api.Page[T], error)) (store.Action, error) {
	base := store.Action{Entity: spec.Entity, Op: spec.Op, CacheKey: cacheKey, Token: d.IssueToken()}
	return settle(ctx, d, base, func(ctx context.Context, a *store.Action) error {
		page, err := service(ctx)
		if err != nil {
			return err
		}
		a.Data = ledger.Records(page.Data)
		a.Pagination = page.Pagination
		return nil
	})
}

func settle(ctx context.Context, d Dispatcher, base store.Action, call func(context.Context, *store.Action) error) (store.Action, error) {
	initiated := base
	initiated.Status = store.StatusInitiated
	if _, err := d.Dispatch(ctx, initiated); err != nil {
		return initiated, fmt.Errorf("action: dispatching %s: %w", initiated.Type(), err)
	}

	result := base
	err := safeCall(ctx, &result, call)
	if err != nil {
		result = base
		result.Status = store.StatusFailed
		result.Err = err
	} else {
		result.Status = store.StatusSuccess
	}

	// The terminal action must be recorded even if the caller's context ended
	// while the service ran.
	if _, derr := d.Dispatch(context.WithoutCancel(ctx), result); derr != nil {
		return result, errors.Join(err, fmt.Errorf("action: dispatching %s: %w", result.Type(), derr))
	}
	return result, err
}

func safeCall(ctx context.Context, a *store.Action, call func(context.Context, *store.Action) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return call(ctx, a)
}

// SwitchAccount emits the process-wide account switch. Responses to requests
// issued before the switch are discarded by the store.
func SwitchAccount(ctx context.Context, d Dispatcher, accountID string) (store.State, error) {
	st, err := d.Dispatch(ctx, store.SwitchAccount(accountID, d.IssueToken()))
	if err != nil {
		return st, fmt.Errorf("action: switching account: %w", err)
	}
	return st, nil
}
