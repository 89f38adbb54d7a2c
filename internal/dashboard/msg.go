// Package dashboard implements the two-pane TUI for browsing ledger entities.
// The left pane lists the active entity page; the right pane shows the
// selected record.
package dashboard

import (
	"context"

	"github.com/smileynet/ledgerdeck/internal/entity"
	"github.com/smileynet/ledgerdeck/internal/fetcher"
	"github.com/smileynet/ledgerdeck/internal/ledger"
	"github.com/smileynet/ledgerdeck/internal/session"
	"github.com/smileynet/ledgerdeck/internal/store"
)

// Focus represents which pane has keyboard focus.
type Focus int

const (
	PaneLeft  Focus = iota // Left pane (record list) has focus.
	PaneRight              // Right pane (record detail) has focus.
)

// --- Consumer-side interfaces ---

// AccountSwitcher changes the current account. *action.Actions satisfies it.
type AccountSwitcher interface {
	SwitchAccount(ctx context.Context, accountID string) (store.State, error)
}

// SessionSaver persists the session on quit and account switch.
type SessionSaver interface {
	Save(s session.Session) error
}

// --- tea.Msg types ---

// ViewsMsg carries the latest view of every page that rendered since the
// previous ViewsMsg.
type ViewsMsg struct {
	Views []entity.View
}

// BridgeClosedMsg signals that no more views will arrive.
type BridgeClosedMsg struct{}

// activateMsg asks the model to show (and mount, on first visit) a tab.
type activateMsg struct {
	tab int
}

// RefreshDoneMsg carries the outcome of a refresh-all.
type RefreshDoneMsg struct {
	Entity  ledger.Entity
	Results fetcher.Results
	Err     error
}

// AccountSwitchedMsg carries the outcome of an account switch.
type AccountSwitchedMsg struct {
	AccountID string
	Err       error
}
