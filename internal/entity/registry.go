// Package entity describes the console's list pages: which entity each page
// shows, how its rows render, and how its fetcher is built.
package entity

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/smileynet/ledgerdeck/internal/action"
	"github.com/smileynet/ledgerdeck/internal/fetcher"
	"github.com/smileynet/ledgerdeck/internal/ledger"
	"github.com/smileynet/ledgerdeck/internal/store"
)

// Column is one rendered field of a row.
type Column struct {
	Title string
	Width int
	Value func(ledger.Record) string
}

// View is the type-erased form of a fetcher view, what a page renders.
type View struct {
	Entity     ledger.Entity
	Records    []ledger.Record
	Pagination ledger.Pagination
	Status     store.Status
	Query      store.Query
	// Mount identifies the mounted page that rendered the view. Zero until
	// the dashboard stamps it.
	Mount uint64
}

// Page is a mounted list page. *fetcher.Fetcher satisfies it.
type Page interface {
	Mount(ctx context.Context, q store.Query)
	SetQuery(q store.Query)
	Query() store.Query
	FetchAll(ctx context.Context) (fetcher.Results, error)
	Close()
}

// Deps are what a page needs to fetch.
type Deps struct {
	Actions *action.Actions
	Source  fetcher.Source
	Options []fetcher.Option
}

// Factory builds a page that reports every view change to render.
type Factory func(deps Deps, render func(View)) Page

// Lister is an Actions list method, e.g. (*action.Actions).ListTokens.
type Lister func(a *action.Actions, ctx context.Context, q store.Query) (store.Action, error)

// Definition is a registered page.
type Definition struct {
	Name    ledger.Entity
	Title   string
	Columns []Column
	// Switchable pages let the selected record become the current account.
	Switchable bool
	// List fetches one page of records without a fetcher.
	List Lister
	New  Factory
}

// Row renders r with d's columns.
func (d Definition) Row(r ledger.Record) []string {
	cells := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		cells[i] = c.Value(r)
	}
	return cells
}

// Registry maps entity names to page definitions, remembering registration
// order for tab navigation.
// It is not safe for concurrent use; registration should happen at startup.
type Registry struct {
	defs  map[ledger.Entity]Definition
	order []ledger.Entity
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[ledger.Entity]Definition)}
}

// Register adds a page definition. Overwrites if the name already exists.
// Panics if the name is empty or the factory is nil (programmer error).
func (r *Registry) Register(d Definition) {
	if d.Name == "" {
		panic("entity: Register called with empty name")
	}
	if d.New == nil {
		panic("entity: Register called with nil factory")
	}
	if _, ok := r.defs[d.Name]; !ok {
		r.order = append(r.order, d.Name)
	}
	r.defs[d.Name] = d
}

// Lookup returns the definition registered under name.
func (r *Registry) Lookup(name string) (Definition, error) {
	d, ok := r.defs[ledger.Entity(name)]
	if !ok {
		return Definition{}, &UnknownEntityError{
			Name:      name,
			Available: r.Available(),
		}
	}
	return d, nil
}

// Tabs returns the definitions in registration order.
func (r *Registry) Tabs() []Definition {
	out := make([]Definition, len(r.order))
	for i, name := range r.order {
		out[i] = r.defs[name]
	}
	return out
}

// Available returns registered entity names in sorted order.
func (r *Registry) Available() []string {
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, string(name))
	}
	sort.Strings(names)
	return names
}

// UnknownEntityError indicates an entity name is not registered.
type UnknownEntityError struct {
	Name      string
	Available []string
}

func (e *UnknownEntityError) Error() string {
	return fmt.Sprintf("unknown entity %q (available: %s)", e.Name, strings.Join(e.Available, ", "))
}

// pageOf returns a factory that builds a typed fetcher and erases its views.
func pageOf[T ledger.Record](entity ledger.Entity, list Lister) Factory {
	return func(deps Deps, render func(View)) Page {
		bound := func(ctx context.Context, q store.Query) (store.Action, error) {
			return list(deps.Actions, ctx, q)
		}
		return fetcher.New[T](entity, bound, deps.Source, func(v fetcher.View[T]) {
			render(Erase(entity, v))
		}, deps.Options...)
	}
}

// Erase converts a typed fetcher view into a View.
func Erase[T ledger.Record](entity ledger.Entity, v fetcher.View[T]) View {
	records := make([]ledger.Record, len(v.Data))
	for i, r := range v.Data {
		records[i] = r
	}
	return View{
		Entity:     entity,
		Records:    records,
		Pagination: v.Pagination,
		Status:     v.Status,
		Query:      v.Query,
	}
}
