// Package ledger defines the records exchanged with the ledger admin API.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ErrMissingID indicates a decoded record carries no identifier.
var ErrMissingID = errors.New("ledger: record has no id")

// Entity names a category of records held in the store.
type Entity string

const (
	Accounts             Entity = "accounts"
	Tokens               Entity = "tokens"
	Transactions         Entity = "transactions"
	Wallets              Entity = "wallets"
	Users                Entity = "users"
	AccessKeys           Entity = "access_keys"
	MembershipAccessKeys Entity = "membership_access_keys"
	APIKeys              Entity = "api_keys"
	Categories           Entity = "categories"
	Consumptions         Entity = "consumptions"
	Exports              Entity = "exports"
	ExchangePairs        Entity = "exchange_pairs"
	Configurations       Entity = "configurations"
	BlockchainWallets    Entity = "blockchain_wallets"
	BlockchainBalances   Entity = "blockchain_balances"
)

// Record is any entity that can be stored in an entity map.
type Record interface {
	RecordID() string
}

// Validator is implemented by records with checks beyond a non-empty id.
type Validator interface {
	Validate() error
}

// Pagination describes one page of a list response.
type Pagination struct {
	Page        int  `json:"current_page"`
	PerPage     int  `json:"per_page"`
	TotalCount  int  `json:"total_count,omitempty"`
	TotalPages  int  `json:"total_pages,omitempty"`
	IsFirstPage bool `json:"is_first_page"`
	IsLastPage  bool `json:"is_last_page"`
}

// Condition is a single match_all / match_any filter clause.
type Condition struct {
	Field      string `json:"field"`
	Comparator string `json:"comparator"`
	Value      any    `json:"value"`
}

// Account is a ledger account (tenant).
type Account struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ParentID    string    `json:"parent_id,omitempty"`
	Master      bool      `json:"master"`
	CategoryIDs []string  `json:"category_ids,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (a Account) RecordID() string { return a.ID }

// Token is a minted currency tracked by the ledger.
type Token struct {
	ID            string    `json:"id"`
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name"`
	SubunitToUnit string    `json:"subunit_to_unit"`
	TotalSupply   string    `json:"total_supply,omitempty"`
	Enabled       bool      `json:"enabled"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (t Token) RecordID() string { return t.ID }

// TransactionSide is the source or destination leg of a transaction.
type TransactionSide struct {
	Address   string `json:"address"`
	AccountID string `json:"account_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	Amount    string `json:"amount"`
	TokenID   string `json:"token_id"`
	Token     *Token `json:"token,omitempty"`
}

// Transaction is a transfer between two wallets.
type Transaction struct {
	ID        string          `json:"id"`
	Status    string          `json:"status"`
	From      TransactionSide `json:"from"`
	To        TransactionSide `json:"to"`
	CreatedAt time.Time       `json:"created_at"`
}

func (t Transaction) RecordID() string { return t.ID }

// WalletBalance is a single token balance held in a wallet.
type WalletBalance struct {
	Amount string `json:"amount"`
	Token  Token  `json:"token"`
}

// Wallet is identified by its address rather than an id.
type Wallet struct {
	Address    string          `json:"address"`
	Name       string          `json:"name"`
	Identifier string          `json:"identifier"`
	AccountID  string          `json:"account_id,omitempty"`
	UserID     string          `json:"user_id,omitempty"`
	Balances   []WalletBalance `json:"balances,omitempty"`
}

func (w Wallet) RecordID() string { return w.Address }

// User is an end user of the wallet platform.
type User struct {
	ID         string    `json:"id"`
	Username   string    `json:"username,omitempty"`
	Email      string    `json:"email,omitempty"`
	ProviderID string    `json:"provider_user_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func (u User) RecordID() string { return u.ID }

// AccessKey is an admin access/secret key pair.
type AccessKey struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	AccessKey string    `json:"access_key"`
	SecretKey string    `json:"secret_key,omitempty"`
	Role      string    `json:"global_role,omitempty"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
}

func (k AccessKey) RecordID() string { return k.ID }

// MembershipAccessKey is an access key as seen through an account membership.
// It is keyed by the embedded key's id.
type MembershipAccessKey struct {
	AccountID string    `json:"account_id"`
	Role      string    `json:"role"`
	Key       AccessKey `json:"key"`
}

func (m MembershipAccessKey) RecordID() string { return m.Key.ID }

// APIKey is a client API key for end-user applications.
type APIKey struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	AccountID string    `json:"account_id,omitempty"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
}

func (k APIKey) RecordID() string { return k.ID }

// Category groups accounts.
type Category struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	AccountIDs  []string `json:"account_ids,omitempty"`
}

func (c Category) RecordID() string { return c.ID }

// Consumption is a transaction request consumption awaiting approval.
type Consumption struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Amount    string    `json:"amount"`
	TokenID   string    `json:"token_id"`
	AccountID string    `json:"account_id,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (c Consumption) RecordID() string { return c.ID }

// ExportFile is a generated CSV export.
type ExportFile struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	Schema      string    `json:"schema"`
	Status      string    `json:"status"`
	Completion  float64   `json:"completion"`
	Adapter     string    `json:"adapter"`
	DownloadURL string    `json:"download_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (e ExportFile) RecordID() string { return e.ID }

// ExchangePair is a conversion rate between two tokens.
type ExchangePair struct {
	ID          string  `json:"id"`
	FromTokenID string  `json:"from_token_id"`
	ToTokenID   string  `json:"to_token_id"`
	Rate        float64 `json:"rate"`
	FromToken   *Token  `json:"from_token,omitempty"`
	ToToken     *Token  `json:"to_token,omitempty"`
}

func (p ExchangePair) RecordID() string { return p.ID }

// Configuration is a single platform setting.
type Configuration struct {
	ID          string          `json:"id"`
	Key         string          `json:"key"`
	Value       json.RawMessage `json:"value"`
	Type        string          `json:"type"`
	Description string          `json:"description,omitempty"`
	Position    int             `json:"position"`
}

// Configurations are keyed by their setting key.
func (c Configuration) RecordID() string { return c.Key }

// BlockchainWallet is an on-chain wallet registered with the platform.
type BlockchainWallet struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Type    string `json:"type"`
}

func (w BlockchainWallet) RecordID() string { return w.Address }

// Validate rejects non-hex addresses.
func (w BlockchainWallet) Validate() error {
	if !common.IsHexAddress(w.Address) {
		return fmt.Errorf("ledger: blockchain wallet address %q is not a hex address", w.Address)
	}
	return nil
}

// Balance is an on-chain balance fetched through a Web3 backend.
type Balance struct {
	Address string `json:"address"`
	Token   string `json:"token"`
	Amount  string `json:"balance"`
	Decimal int    `json:"decimal"`
}

func (b Balance) RecordID() string { return b.Address }

// Validate checks that r has an id and passes its own Validate, if any.
func Validate(r Record) error {
	if r.RecordID() == "" {
		return fmt.Errorf("%w: %T", ErrMissingID, r)
	}
	if v, ok := r.(Validator); ok {
		return v.Validate()
	}
	return nil
}

// Decode unmarshals a JSON array of T and validates every element.
func Decode[T Record](raw json.RawMessage) ([]T, error) {
	var items []T
	if len(raw) == 0 || string(raw) == "null" {
		return items, nil
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("ledger: decoding %T list: %w", *new(T), err)
	}
	for i, item := range items {
		if err := Validate(item); err != nil {
			return nil, fmt.Errorf("ledger: item %d: %w", i, err)
		}
	}
	return items, nil
}

// DecodeOne unmarshals and validates a single T.
func DecodeOne[T Record](raw json.RawMessage) (T, error) {
	var item T
	if err := json.Unmarshal(raw, &item); err != nil {
		return item, fmt.Errorf("ledger: decoding %T: %w", item, err)
	}
	if err := Validate(item); err != nil {
		return item, err
	}
	return item, nil
}

// Records converts a typed slice into a slice of Record.
func Records[T Record](items []T) []Record {
	out := make([]Record, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}
