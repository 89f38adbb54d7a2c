package dashboard

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/smileynet/ledgerdeck/internal/entity"
	"github.com/smileynet/ledgerdeck/internal/ledger"
	"github.com/smileynet/ledgerdeck/internal/session"
	"github.com/smileynet/ledgerdeck/internal/store"
)

func TestNewModel_Defaults(t *testing.T) {
	m := NewModel(WithRegistry(testRegistry(&pageSet{built: map[ledger.Entity][]*fakePage{}})))
	t.Cleanup(m.Close)

	if m.focus != PaneLeft {
		t.Errorf("focus = %d, want PaneLeft", m.focus)
	}
	if m.active != 0 || len(m.tabs) != 2 {
		t.Errorf("active = %d, tabs = %d", m.active, len(m.tabs))
	}
	if m.Init() == nil {
		t.Error("Init() returned nil command")
	}
	if got := m.View(); got != "Initializing..." {
		t.Errorf("unsized View() = %q", got)
	}
}

func TestModel_MountsOpeningTab(t *testing.T) {
	// Given a fresh session
	m, f := newTestModel(t, session.Session{})

	// Then the accounts page is mounted on page 1 with the default page size
	p := f.pages.latest(ledger.Accounts)
	if p == nil {
		t.Fatal("accounts page not built")
	}
	q := p.lastQuery()
	if q.Page != 1 || q.PerPage != DefaultPerPage {
		t.Errorf("mount query = %+v", q)
	}
	// And its records are listed
	view := m.View()
	for _, want := range []string{"Accounts", "acc_1", "Globex", "page 1 of 3"} {
		if !containsPlainText(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
	if f.pages.count(ledger.Tokens) != 0 {
		t.Error("tokens page mounted before it was visited")
	}
}

func TestModel_RestoresSessionTabAndQuery(t *testing.T) {
	// Given a session last on tokens, searching page 2
	sess := session.Session{Profile: "p"}
	sess.Remember(ledger.Tokens, store.Query{Page: 2, PerPage: 25, Search: "omg"})

	// When the model opens
	m, f := newTestModel(t, sess)

	// Then it opens on tokens with the remembered query
	if m.tabs[m.active].Name != ledger.Tokens {
		t.Fatalf("active tab = %s", m.tabs[m.active].Name)
	}
	q := f.pages.latest(ledger.Tokens).lastQuery()
	if q.Page != 2 || q.PerPage != 25 || q.Search != "omg" {
		t.Errorf("mount query = %+v", q)
	}
	if m.search.Value() != "omg" {
		t.Errorf("search input = %q", m.search.Value())
	}
}

func TestModel_CursorMovesAndWraps(t *testing.T) {
	m, _ := newTestModel(t, session.Session{})

	// Down selects the second account and the detail follows
	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	st, _ := m.current()
	if r, _ := st.Selected(); r.RecordID() != "acc_2" {
		t.Fatalf("selected = %v, want acc_2", r)
	}
	if !containsPlainText(m.viewport.View(), "acc_2") {
		t.Error("detail pane does not show acc_2")
	}

	// Up twice wraps to the last account
	m = update(t, m, runeKey('k'))
	m = update(t, m, runeKey('k'))
	st, _ = m.current()
	if r, _ := st.Selected(); r.RecordID() != "acc_3" {
		t.Errorf("selected = %v, want acc_3", r)
	}
}

func TestModel_TabTogglesFocus(t *testing.T) {
	m, _ := newTestModel(t, session.Session{})

	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.focus != PaneRight {
		t.Errorf("after first Tab: focus = %d, want PaneRight", m.focus)
	}
	// Down scrolls the detail instead of moving the cursor.
	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if st, _ := m.current(); st.cursor != 0 {
		t.Errorf("cursor moved to %d while detail focused", st.cursor)
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.focus != PaneLeft {
		t.Errorf("after second Tab: focus = %d, want PaneLeft", m.focus)
	}
}

func TestModel_EntityTabs(t *testing.T) {
	m, f := newTestModel(t, session.Session{})

	// ] mounts the tokens tab
	m = pump(t, update(t, m, runeKey(']')))
	if m.tabs[m.active].Name != ledger.Tokens {
		t.Fatalf("active = %s, want tokens", m.tabs[m.active].Name)
	}
	if f.pages.count(ledger.Tokens) != 1 {
		t.Errorf("tokens built %d times", f.pages.count(ledger.Tokens))
	}
	if !containsPlainText(m.View(), "tok_1") {
		t.Error("tokens not listed")
	}

	// ] wraps back to accounts without remounting it
	m = update(t, m, runeKey(']'))
	if m.tabs[m.active].Name != ledger.Accounts {
		t.Errorf("active = %s, want accounts", m.tabs[m.active].Name)
	}
	if f.pages.count(ledger.Accounts) != 1 {
		t.Errorf("accounts built %d times", f.pages.count(ledger.Accounts))
	}

	// [ wraps backwards
	m = update(t, m, runeKey('['))
	if m.tabs[m.active].Name != ledger.Tokens {
		t.Errorf("active = %s, want tokens", m.tabs[m.active].Name)
	}
}

func TestModel_Paging(t *testing.T) {
	m, f := newTestModel(t, session.Session{})
	p := f.pages.latest(ledger.Accounts)

	// p on the first page does nothing
	m = pump(t, update(t, m, runeKey('p')))
	if n := len(p.queries); n != 1 {
		t.Fatalf("queries = %d after p on page 1", n)
	}

	// n twice reaches the last page
	m = pump(t, update(t, m, runeKey('n')))
	m = pump(t, update(t, m, runeKey('n')))
	if got := p.lastQuery().Page; got != 3 {
		t.Fatalf("page = %d, want 3", got)
	}

	// n on the last page does nothing
	m = pump(t, update(t, m, runeKey('n')))
	if n := len(p.queries); n != 3 {
		t.Errorf("queries = %d after n on last page", n)
	}

	// p goes back
	m = pump(t, update(t, m, runeKey('p')))
	if got := p.lastQuery().Page; got != 2 {
		t.Errorf("page = %d, want 2", got)
	}
	if !containsPlainText(m.View(), "page 2 of 3") {
		t.Error("footer not updated")
	}
}

func TestModel_Search(t *testing.T) {
	m, f := newTestModel(t, session.Session{})
	p := f.pages.latest(ledger.Accounts)
	m = pump(t, update(t, m, runeKey('n')))

	// Given search mode
	m = update(t, m, runeKey('/'))
	if !m.searching {
		t.Fatal("/ did not start searching")
	}

	// When a term is typed
	m = update(t, m, runeKey('a'))
	m = update(t, m, runeKey('c'))

	// Then each edit re-queries from page 1
	q := p.lastQuery()
	if q.Search != "ac" || q.Page != 1 {
		t.Errorf("query = %+v", q)
	}
	// And keys are not treated as commands
	if m.tabs[m.active].Name != ledger.Accounts {
		t.Error("typing switched tabs")
	}

	// Enter keeps the term, esc clears it
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.searching || p.lastQuery().Search != "ac" {
		t.Errorf("after enter: searching=%v query=%+v", m.searching, p.lastQuery())
	}
	m = update(t, m, runeKey('/'))
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.searching || p.lastQuery().Search != "" {
		t.Errorf("after esc: searching=%v query=%+v", m.searching, p.lastQuery())
	}
}

func TestModel_RefreshAll(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantNotice string
		wantErr    bool
	}{
		{name: "all pages refreshed", wantNotice: "Refreshed 2 pages"},
		{name: "partial failure", err: errors.New("boom"), wantNotice: "Refresh failed for 1 of 2 pages", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, f := newTestModel(t, session.Session{})
			f.pages.latest(ledger.Accounts).fetchAllErr = tt.err

			next, cmd := m.Update(runeKey('r'))
			m = next.(Model)
			msgs := execBatch(t, cmd)
			if len(msgs) != 1 {
				t.Fatalf("r produced %d messages", len(msgs))
			}
			done, ok := msgs[0].(RefreshDoneMsg)
			if !ok || done.Entity != ledger.Accounts {
				t.Fatalf("msg = %#v", msgs[0])
			}

			m = update(t, m, done)
			if m.notice != tt.wantNotice || m.noticeErr != tt.wantErr {
				t.Errorf("notice = %q (err %v), want %q (err %v)", m.notice, m.noticeErr, tt.wantNotice, tt.wantErr)
			}
		})
	}
}

func TestModel_SwitchAccount(t *testing.T) {
	// Given the accounts page with acc_2 selected and tokens visited
	m, f := newTestModel(t, session.Session{Profile: "p"})
	m = pump(t, update(t, m, runeKey(']')))
	m = update(t, m, runeKey('['))
	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	oldAccounts := f.pages.latest(ledger.Accounts)
	oldTokens := f.pages.latest(ledger.Tokens)

	// When enter is pressed and the switch completes
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	msgs := execBatch(t, cmd)
	if len(msgs) != 1 {
		t.Fatalf("enter produced %d messages", len(msgs))
	}
	m = pump(t, update(t, m, msgs[0]))

	// Then the switcher ran for acc_2
	if len(f.switcher.ids) != 1 || f.switcher.ids[0] != "acc_2" {
		t.Fatalf("switched to %v", f.switcher.ids)
	}
	// And every page was closed, the current one remounted
	if !oldAccounts.closed || !oldTokens.closed {
		t.Error("pages not closed on switch")
	}
	if f.pages.count(ledger.Accounts) != 2 || f.pages.count(ledger.Tokens) != 1 {
		t.Errorf("builds: accounts %d, tokens %d", f.pages.count(ledger.Accounts), f.pages.count(ledger.Tokens))
	}
	// And the session remembers the account
	saved, ok := f.saver.last()
	if !ok || saved.AccountID != "acc_2" {
		t.Errorf("saved session = %+v", saved)
	}
	if !containsPlainText(m.View(), "account: acc_2") {
		t.Error("header does not show the new account")
	}
}

func TestModel_SwitchAccountDropsEarlierViews(t *testing.T) {
	// Given a render of page 2 drained from the bridge but not yet applied
	m, _ := newTestModel(t, session.Session{})
	m = update(t, m, runeKey('n'))
	stale := ViewsMsg{Views: m.bridge.drain()}
	if len(stale.Views) != 1 {
		t.Fatalf("drained %d views, want 1", len(stale.Views))
	}

	// When the account switches and the earlier render then arrives
	m = update(t, m, AccountSwitchedMsg{AccountID: "acc_2"})
	m = update(t, m, stale)

	// Then the remounted page ignores it
	if st := m.states[ledger.Accounts]; st.view.Status != store.StatusInitiated {
		t.Errorf("view after earlier render = %+v, want INITIATED", st.view)
	}

	// And its own render applies
	m = pump(t, m)
	st := m.states[ledger.Accounts]
	if st.view.Status != store.StatusSuccess || st.view.Query.Page != 1 {
		t.Errorf("view = %+v, want SUCCESS for page 1", st.view)
	}
}

func TestModel_SwitchAccountFailure(t *testing.T) {
	m, f := newTestModel(t, session.Session{})
	f.switcher.err = errors.New("forbidden")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	m = update(t, m, execBatch(t, cmd)[0])

	if !m.noticeErr || f.pages.count(ledger.Accounts) != 1 {
		t.Errorf("notice = %q err=%v, builds = %d", m.notice, m.noticeErr, f.pages.count(ledger.Accounts))
	}
}

func TestModel_EnterOnNonSwitchablePage(t *testing.T) {
	m, _ := newTestModel(t, session.Session{})
	m = pump(t, update(t, m, runeKey(']')))

	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
		t.Error("enter on tokens should do nothing")
	}
}

func TestModel_QuitSavesSession(t *testing.T) {
	m, f := newTestModel(t, session.Session{Profile: "p"})
	m = pump(t, update(t, m, runeKey('n')))

	_, cmd := m.Update(runeKey('q'))
	if cmd == nil {
		t.Fatal("q should return a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q command did not quit")
	}

	saved, ok := f.saver.last()
	if !ok {
		t.Fatal("session not saved")
	}
	if saved.Entity != ledger.Accounts || saved.Query(ledger.Accounts).Page != 2 {
		t.Errorf("saved = %+v", saved)
	}
}

func TestModel_ViewsForClosedPagesIgnored(t *testing.T) {
	m, _ := newTestModel(t, session.Session{})

	m = update(t, m, ViewsMsg{Views: []entity.View{{Entity: ledger.Users, Status: store.StatusSuccess}}})
	if _, ok := m.states[ledger.Users]; ok {
		t.Error("view for an unmounted page created state")
	}
}
