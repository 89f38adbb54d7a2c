// Package store holds the console's client-side state: normalized entity maps,
// the query-result cache, and per-entity loading status. All mutation goes through
// reducers applied by a single dispatch loop.
package store

import (
	"fmt"
	"strings"

	"github.com/smileynet/ledgerdeck/internal/ledger"
)

// Status is the lifecycle state of a request or a fetcher.
type Status string

const (
	StatusDefault   Status = "DEFAULT"
	StatusInitiated Status = "INITIATED"
	StatusPending   Status = "PENDING"
	StatusSuccess   Status = "SUCCESS"
	StatusFailed    Status = "FAILED"
)

// Op is the operation an action reports on.
type Op string

const (
	OpRequest        Op = "REQUEST"
	OpCreate         Op = "CREATE"
	OpUpdate         Op = "UPDATE"
	OpMint           Op = "MINT"
	OpApprove        Op = "APPROVE"
	OpReject         Op = "REJECT"
	OpEnable         Op = "ENABLE"
	OpSwitch         Op = "SWITCH"
	OpSetExist       Op = "SET_EXIST"
	OpUpdateSettings Op = "UPDATE_SETTINGS"
)

// Pseudo-entities that carry no records.
const (
	CurrentAccount ledger.Entity = "current_account"
	Metamask       ledger.Entity = "metamask"
)

// Action is a single state transition request.
type Action struct {
	Entity ledger.Entity
	Op     Op
	Status Status

	// Data holds list results; Record holds a single-record result.
	Data       []ledger.Record
	Record     ledger.Record
	Pagination ledger.Pagination
	CacheKey   string

	// Token orders requests for the same cache key. Zero means untracked.
	Token uint64
	Err   error

	AccountID string
	Metamask  *MetamaskState
}

// Type renders the action as ENTITY/OP/STATUS, e.g. ACCOUNTS/REQUEST/SUCCESS.
func (a Action) Type() string {
	if a.Status == "" {
		return fmt.Sprintf("%s/%s", strings.ToUpper(string(a.Entity)), a.Op)
	}
	return fmt.Sprintf("%s/%s/%s", strings.ToUpper(string(a.Entity)), a.Op, a.Status)
}

// Succeeded reports whether a is a SUCCESS action.
func (a Action) Succeeded() bool {
	return a.Status == StatusSuccess
}

// SwitchAccount returns the process-wide account-switch action.
// token should be freshly issued so that responses to earlier requests are discarded.
func SwitchAccount(accountID string, token uint64) Action {
	return Action{Entity: CurrentAccount, Op: OpSwitch, AccountID: accountID, Token: token}
}

// IsAccountSwitch reports whether a is the account-switch signal.
func IsAccountSwitch(a Action) bool {
	return a.Entity == CurrentAccount && a.Op == OpSwitch
}
