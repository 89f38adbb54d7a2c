package dashboard

import (
	"fmt"
	"strings"
	"testing"

	"github.com/smileynet/ledgerdeck/internal/entity"
	"github.com/smileynet/ledgerdeck/internal/ledger"
	"github.com/smileynet/ledgerdeck/internal/store"
)

var accountsDef = entity.Definition{
	Name:  ledger.Accounts,
	Title: "Accounts",
	Columns: []entity.Column{
		{Title: "ID", Width: 6, Value: func(r ledger.Record) string { return r.RecordID() }},
	},
}

func TestPageState_EmptyStates(t *testing.T) {
	tests := []struct {
		name string
		view entity.View
		want string
	}{
		{name: "loading", view: entity.View{Status: store.StatusInitiated}, want: "Loading accounts..."},
		{name: "pending", view: entity.View{Status: store.StatusPending}, want: "Loading accounts..."},
		{name: "failed", view: entity.View{Status: store.StatusFailed}, want: "Press r to retry"},
		{name: "no match", view: entity.View{Status: store.StatusSuccess, Query: store.Query{Search: "zz"}}, want: `No accounts match "zz"`},
		{name: "empty", view: entity.View{Status: store.StatusSuccess}, want: "No accounts found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ps := newPageState(accountsDef, 1).apply(tt.view)
			if got := ps.View(60, 20, "*"); !containsPlainText(got, tt.want) {
				t.Errorf("View() = %q, want to contain %q", got, tt.want)
			}
		})
	}
}

func TestPageState_FailedWithCachedRecords(t *testing.T) {
	// Given a failed fetch that still has cached records
	ps := newPageState(accountsDef, 1).apply(entity.View{
		Status:  store.StatusFailed,
		Records: []ledger.Record{ledger.Account{ID: "acc_1"}},
	})

	// Then the records are shown with a cached-data note
	got := ps.View(60, 20, "")
	if !containsPlainText(got, "acc_1") || !containsPlainText(got, "showing cached data") {
		t.Errorf("View() = %q", got)
	}
}

func TestPageState_ApplyClampsCursor(t *testing.T) {
	ps := newPageState(accountsDef, 1).apply(entity.View{Records: accountRecords(5)})
	ps = ps.move(4)

	ps = ps.apply(entity.View{Records: accountRecords(2)})
	if ps.cursor != 1 {
		t.Errorf("cursor = %d, want 1", ps.cursor)
	}
	ps = ps.apply(entity.View{})
	if ps.cursor != 0 {
		t.Errorf("cursor = %d, want 0", ps.cursor)
	}
	if _, ok := ps.Selected(); ok {
		t.Error("Selected() on empty page returned a record")
	}
}

func TestPageState_ScrollsToCursor(t *testing.T) {
	// Given 20 rows in a pane showing 5
	ps := newPageState(accountsDef, 1).apply(entity.View{Status: store.StatusSuccess, Records: accountRecords(20)})
	ps = ps.move(12)

	// When rendered
	got := stripANSI(ps.View(40, 5+pageChrome, ""))

	// Then the window ends at the cursor
	if !strings.Contains(got, CursorMarker+"a12") {
		t.Errorf("cursor row missing:\n%s", got)
	}
	if strings.Contains(got, "a07") || !strings.Contains(got, "a08") {
		t.Errorf("window not scrolled to cursor:\n%s", got)
	}
}

func TestCell_PadsAndTruncates(t *testing.T) {
	if got := cell("ab", 4); got != "ab  " {
		t.Errorf("cell pad = %q", got)
	}
	if got := cell("abcdef", 4); got != "abc…" {
		t.Errorf("cell truncate = %q", got)
	}
}

func accountRecords(n int) []ledger.Record {
	out := make([]ledger.Record, n)
	for i := range out {
		out[i] = ledger.Account{ID: fmt.Sprintf("a%02d", i)}
	}
	return out
}
