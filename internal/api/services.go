package api

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/smileynet/ledgerdeck/internal/ledger"
)

// Accounts

func (c *Client) ListAccounts(ctx context.Context, p ListParams) (Page[ledger.Account], error) {
	return List[ledger.Account](ctx, c, "account.all", p)
}

func (c *Client) GetAccount(ctx context.Context, id string) (ledger.Account, error) {
	return Get[ledger.Account](ctx, c, "account.get", map[string]string{"id": id})
}

// CreateAccountParams are the fields of a new account.
type CreateAccountParams struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	CategoryIDs []string `json:"category_ids,omitempty"`
}

func (c *Client) CreateAccount(ctx context.Context, p CreateAccountParams) (ledger.Account, error) {
	return Get[ledger.Account](ctx, c, "account.create", p)
}

// UpdateAccountParams are the editable fields of an account.
type UpdateAccountParams struct {
	ID          string   `json:"id"`
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	CategoryIDs []string `json:"category_ids,omitempty"`
}

func (c *Client) UpdateAccount(ctx context.Context, p UpdateAccountParams) (ledger.Account, error) {
	return Get[ledger.Account](ctx, c, "account.update", p)
}

// Tokens

func (c *Client) ListTokens(ctx context.Context, p ListParams) (Page[ledger.Token], error) {
	return List[ledger.Token](ctx, c, "token.all", p)
}

func (c *Client) GetToken(ctx context.Context, id string) (ledger.Token, error) {
	return Get[ledger.Token](ctx, c, "token.get", map[string]string{"id": id})
}

// CreateTokenParams are the fields of a new token. Amount is the initial
// supply in subunits.
type CreateTokenParams struct {
	Name          string `json:"name"`
	Symbol        string `json:"symbol"`
	SubunitToUnit string `json:"subunit_to_unit"`
	Amount        string `json:"amount,omitempty"`
}

func (c *Client) CreateToken(ctx context.Context, p CreateTokenParams) (ledger.Token, error) {
	return Get[ledger.Token](ctx, c, "token.create", p)
}

// MintToken adds amount subunits to a token's supply.
func (c *Client) MintToken(ctx context.Context, id, amount string) (ledger.Token, error) {
	return Get[ledger.Token](ctx, c, "token.mint", map[string]string{"id": id, "amount": amount})
}

// Transactions

func (c *Client) ListTransactions(ctx context.Context, p ListParams) (Page[ledger.Transaction], error) {
	return List[ledger.Transaction](ctx, c, "transaction.all", p)
}

// CreateTransactionParams describe a transfer between two addresses.
type CreateTransactionParams struct {
	FromAddress    string `json:"from_address"`
	ToAddress      string `json:"to_address"`
	TokenID        string `json:"token_id"`
	Amount         string `json:"amount"`
	IdempotencyKey string `json:"idempotency_token"`
}

func (c *Client) CreateTransaction(ctx context.Context, p CreateTransactionParams) (ledger.Transaction, error) {
	return Get[ledger.Transaction](ctx, c, "transaction.create", p)
}

// Wallets

func (c *Client) ListWallets(ctx context.Context, p ListParams) (Page[ledger.Wallet], error) {
	return List[ledger.Wallet](ctx, c, "wallet.all", p)
}

// ListAccountWallets lists the wallets owned by an account.
func (c *Client) ListAccountWallets(ctx context.Context, accountID string, p ListParams) (Page[ledger.Wallet], error) {
	p.Extra = withExtra(p.Extra, "id", accountID)
	return List[ledger.Wallet](ctx, c, "account.get_wallets", p)
}

// Users

func (c *Client) ListUsers(ctx context.Context, p ListParams) (Page[ledger.User], error) {
	return List[ledger.User](ctx, c, "user.all", p)
}

// Access keys

func (c *Client) ListAccessKeys(ctx context.Context, p ListParams) (Page[ledger.AccessKey], error) {
	return List[ledger.AccessKey](ctx, c, "access_key.all", p)
}

// CreateAccessKeyParams are the fields of a new admin key pair. The secret is
// only returned by this call.
type CreateAccessKeyParams struct {
	Name      string `json:"name,omitempty"`
	Role      string `json:"global_role,omitempty"`
	AccountID string `json:"account_id,omitempty"`
}

func (c *Client) CreateAccessKey(ctx context.Context, p CreateAccessKeyParams) (ledger.AccessKey, error) {
	return Get[ledger.AccessKey](ctx, c, "access_key.create", p)
}

// EnableAccessKey enables or disables an access key.
func (c *Client) EnableAccessKey(ctx context.Context, id string, enabled bool) (ledger.AccessKey, error) {
	return Get[ledger.AccessKey](ctx, c, "access_key.enable_or_disable", map[string]any{"id": id, "enabled": enabled})
}

// ListMembershipAccessKeys lists the access keys that are members of an account.
func (c *Client) ListMembershipAccessKeys(ctx context.Context, accountID string, p ListParams) (Page[ledger.MembershipAccessKey], error) {
	p.Extra = withExtra(p.Extra, "id", accountID)
	return List[ledger.MembershipAccessKey](ctx, c, "account.get_keys", p)
}

// API keys

func (c *Client) ListAPIKeys(ctx context.Context, p ListParams) (Page[ledger.APIKey], error) {
	return List[ledger.APIKey](ctx, c, "api_key.all", p)
}

func (c *Client) CreateAPIKey(ctx context.Context) (ledger.APIKey, error) {
	return Get[ledger.APIKey](ctx, c, "api_key.create", nil)
}

// EnableAPIKey enables or disables an API key.
func (c *Client) EnableAPIKey(ctx context.Context, id string, enabled bool) (ledger.APIKey, error) {
	return Get[ledger.APIKey](ctx, c, "api_key.enable_or_disable", map[string]any{"id": id, "enabled": enabled})
}

// Categories

func (c *Client) ListCategories(ctx context.Context, p ListParams) (Page[ledger.Category], error) {
	return List[ledger.Category](ctx, c, "category.all", p)
}

// CreateCategoryParams are the fields of a new category.
type CreateCategoryParams struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (c *Client) CreateCategory(ctx context.Context, p CreateCategoryParams) (ledger.Category, error) {
	return Get[ledger.Category](ctx, c, "category.create", p)
}

// Consumptions

func (c *Client) ListConsumptions(ctx context.Context, p ListParams) (Page[ledger.Consumption], error) {
	return List[ledger.Consumption](ctx, c, "transaction_consumption.all", p)
}

func (c *Client) GetConsumption(ctx context.Context, id string) (ledger.Consumption, error) {
	return Get[ledger.Consumption](ctx, c, "transaction_consumption.get", map[string]string{"id": id})
}

func (c *Client) ApproveConsumption(ctx context.Context, id string) (ledger.Consumption, error) {
	return Get[ledger.Consumption](ctx, c, "transaction_consumption.approve", map[string]string{"id": id})
}

func (c *Client) RejectConsumption(ctx context.Context, id string) (ledger.Consumption, error) {
	return Get[ledger.Consumption](ctx, c, "transaction_consumption.reject", map[string]string{"id": id})
}

// Exports

func (c *Client) ListExports(ctx context.Context, p ListParams) (Page[ledger.ExportFile], error) {
	return List[ledger.ExportFile](ctx, c, "export.all", p)
}

func (c *Client) GetExport(ctx context.Context, id string) (ledger.ExportFile, error) {
	return Get[ledger.ExportFile](ctx, c, "export.get", map[string]string{"id": id})
}

// DownloadExport returns the content of a locally stored export file.
func (c *Client) DownloadExport(ctx context.Context, id string) ([]byte, error) {
	return c.Download(ctx, "export.download", map[string]string{"id": id})
}

// Exchange pairs

func (c *Client) ListExchangePairs(ctx context.Context, p ListParams) (Page[ledger.ExchangePair], error) {
	return List[ledger.ExchangePair](ctx, c, "exchange_pair.all", p)
}

// CreateExchangePairParams are the fields of a new exchange pair.
type CreateExchangePairParams struct {
	FromTokenID  string  `json:"from_token_id"`
	ToTokenID    string  `json:"to_token_id"`
	Rate         float64 `json:"rate"`
	SyncOpposite bool    `json:"sync_opposite,omitempty"`
}

// CreateExchangePair returns the created pair and, with SyncOpposite, its opposite.
func (c *Client) CreateExchangePair(ctx context.Context, p CreateExchangePairParams) ([]ledger.ExchangePair, error) {
	raw, err := c.Call(ctx, "exchange_pair.create", p)
	if err != nil {
		return nil, err
	}
	var rp rawPage
	if err := json.Unmarshal(raw, &rp); err != nil {
		return nil, fmt.Errorf("api: exchange_pair.create: decoding: %w", err)
	}
	return ledger.Decode[ledger.ExchangePair](rp.Data)
}

// Configurations

func (c *Client) ListConfigurations(ctx context.Context, p ListParams) (Page[ledger.Configuration], error) {
	return List[ledger.Configuration](ctx, c, "configuration.all", p)
}

// UpdateConfigurations sets the given keys and returns the updated settings
// ordered by position.
func (c *Client) UpdateConfigurations(ctx context.Context, values map[string]any) ([]ledger.Configuration, error) {
	raw, err := c.Call(ctx, "configuration.update", values)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Data map[string]ledger.Configuration `json:"data"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("api: configuration.update: decoding: %w", err)
	}
	out := make([]ledger.Configuration, 0, len(resp.Data))
	for key, cfg := range resp.Data {
		if cfg.Key == "" {
			cfg.Key = key
		}
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].Key < out[j].Key
	})
	return out, nil
}

// Blockchain wallets

func (c *Client) ListBlockchainWallets(ctx context.Context, p ListParams) (Page[ledger.BlockchainWallet], error) {
	return List[ledger.BlockchainWallet](ctx, c, "blockchain_wallet.all", p)
}

func withExtra(extra map[string]any, key string, value any) map[string]any {
	out := make(map[string]any, len(extra)+1)
	for k, v := range extra {
		out[k] = v
	}
	out[key] = value
	return out
}
