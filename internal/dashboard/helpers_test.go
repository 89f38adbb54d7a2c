package dashboard

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/smileynet/ledgerdeck/internal/entity"
	"github.com/smileynet/ledgerdeck/internal/fetcher"
	"github.com/smileynet/ledgerdeck/internal/ledger"
	"github.com/smileynet/ledgerdeck/internal/session"
	"github.com/smileynet/ledgerdeck/internal/store"
)

// stripANSI removes ANSI escape sequences from a string.
func stripANSI(s string) string {
	var out []byte
	i := 0
	for i < len(s) {
		if s[i] == '\x1b' && i+1 < len(s) && s[i+1] == '[' {
			j := i + 2
			for j < len(s) && (s[j] < 'A' || s[j] > 'Z') && (s[j] < 'a' || s[j] > 'z') {
				j++
			}
			if j < len(s) {
				j++
			}
			i = j
		} else {
			out = append(out, s[i])
			i++
		}
	}
	return string(out)
}

// containsPlainText checks if s contains sub after stripping ANSI escapes.
func containsPlainText(s, sub string) bool {
	return strings.Contains(stripANSI(s), sub)
}

// execBatch executes a tea.Cmd, handling both single commands and batch
// commands. It returns all resulting messages. Spinner ticks are skipped
// to avoid infinite recursion.
func execBatch(t *testing.T, cmd tea.Cmd) []tea.Msg {
	t.Helper()
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var msgs []tea.Msg
		for _, c := range batch {
			if c != nil {
				result := c()
				// Skip spinner ticks to avoid recursion.
				if _, isTick := result.(spinner.TickMsg); !isTick {
					msgs = append(msgs, result)
				}
			}
		}
		return msgs
	}
	return []tea.Msg{msg}
}

// --- fakes ---

// fakePage renders a SUCCESS view of its records for every query it is given.
type fakePage struct {
	entity  ledger.Entity
	render  func(entity.View)
	records []ledger.Record
	pages   int

	mu          sync.Mutex
	q           store.Query
	queries     []store.Query
	closed      bool
	fetchAllErr error
}

func (p *fakePage) show(q store.Query) {
	p.mu.Lock()
	p.q = q
	p.queries = append(p.queries, q)
	p.mu.Unlock()
	p.render(entity.View{
		Entity:     p.entity,
		Records:    p.records,
		Status:     store.StatusSuccess,
		Query:      q,
		Pagination: ledger.Pagination{Page: q.Page, PerPage: q.PerPage, TotalPages: p.pages, IsFirstPage: q.Page <= 1, IsLastPage: q.Page >= p.pages},
	})
}

func (p *fakePage) Mount(_ context.Context, q store.Query) { p.show(q) }
func (p *fakePage) SetQuery(q store.Query)                 { p.show(q) }

func (p *fakePage) Query() store.Query {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.q
}

func (p *fakePage) FetchAll(context.Context) (fetcher.Results, error) {
	res := fetcher.Results{Keys: []string{"k1", "k2"}}
	if p.fetchAllErr != nil {
		res.Errors = map[string]error{"k2": p.fetchAllErr}
		return res, errors.Join(fetcher.ErrFetchAll, p.fetchAllErr)
	}
	return res, nil
}

func (p *fakePage) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

func (p *fakePage) lastQuery() store.Query {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queries[len(p.queries)-1]
}

// pageSet records every page the registry builds, newest last per entity.
type pageSet struct {
	mu    sync.Mutex
	built map[ledger.Entity][]*fakePage
}

func (s *pageSet) factory(e ledger.Entity, records []ledger.Record) entity.Factory {
	return func(_ entity.Deps, render func(entity.View)) entity.Page {
		p := &fakePage{entity: e, render: render, records: records, pages: 3}
		s.mu.Lock()
		s.built[e] = append(s.built[e], p)
		s.mu.Unlock()
		return p
	}
}

func (s *pageSet) latest(e ledger.Entity) *fakePage {
	s.mu.Lock()
	defer s.mu.Unlock()
	ps := s.built[e]
	if len(ps) == 0 {
		return nil
	}
	return ps[len(ps)-1]
}

func (s *pageSet) count(e ledger.Entity) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.built[e])
}

var testAccounts = []ledger.Record{
	ledger.Account{ID: "acc_1", Name: "Acme"},
	ledger.Account{ID: "acc_2", Name: "Globex"},
	ledger.Account{ID: "acc_3", Name: "Initech"},
}

// testRegistry has a switchable accounts tab and a tokens tab.
func testRegistry(ps *pageSet) *entity.Registry {
	reg := entity.NewRegistry()
	reg.Register(entity.Definition{
		Name:       ledger.Accounts,
		Title:      "Accounts",
		Switchable: true,
		Columns: []entity.Column{
			{Title: "ID", Width: 8, Value: func(r ledger.Record) string { return r.RecordID() }},
			{Title: "Name", Width: 10, Value: func(r ledger.Record) string { return r.(ledger.Account).Name }},
		},
		New: ps.factory(ledger.Accounts, testAccounts),
	})
	reg.Register(entity.Definition{
		Name:  ledger.Tokens,
		Title: "Tokens",
		Columns: []entity.Column{
			{Title: "ID", Width: 8, Value: func(r ledger.Record) string { return r.RecordID() }},
		},
		New: ps.factory(ledger.Tokens, []ledger.Record{ledger.Token{ID: "tok_1", Symbol: "OMG"}}),
	})
	return reg
}

type fakeSwitcher struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (s *fakeSwitcher) SwitchAccount(_ context.Context, id string) (store.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = append(s.ids, id)
	return store.State{CurrentAccount: id}, s.err
}

type fakeSaver struct {
	mu    sync.Mutex
	saved []session.Session
}

func (s *fakeSaver) Save(sess session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, sess)
	return nil
}

func (s *fakeSaver) last() (session.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.saved) == 0 {
		return session.Session{}, false
	}
	return s.saved[len(s.saved)-1], true
}

type fixture struct {
	pages    *pageSet
	switcher *fakeSwitcher
	saver    *fakeSaver
}

// newTestModel returns a sized model with its opening tab mounted and rendered.
func newTestModel(t *testing.T, sess session.Session) (Model, *fixture) {
	t.Helper()
	f := &fixture{
		pages:    &pageSet{built: map[ledger.Entity][]*fakePage{}},
		switcher: &fakeSwitcher{},
		saver:    &fakeSaver{},
	}
	m := NewModel(
		WithRegistry(testRegistry(f.pages)),
		WithAccountSwitcher(f.switcher),
		WithSession(f.saver, sess),
	)
	t.Cleanup(m.Close)
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m = update(t, m, activateMsg{tab: m.active})
	return pump(t, m), f
}

// update applies msg and returns the resulting Model.
func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

// pump delivers every view queued on the bridge.
func pump(t *testing.T, m Model) Model {
	t.Helper()
	return update(t, m, ViewsMsg{Views: m.bridge.drain()})
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}
