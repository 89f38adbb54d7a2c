package action

import (
	"context"

	"go.uber.org/zap"

	"github.com/smileynet/ledgerdeck/internal/api"
	"github.com/smileynet/ledgerdeck/internal/ledger"
	"github.com/smileynet/ledgerdeck/internal/store"
)

// AccountParam is the query param that scopes a list to one account.
const AccountParam = "account_id"

// Actions binds the action creators to an API client and a store.
type Actions struct {
	client *api.Client
	d      Dispatcher
	logger *zap.Logger
}

// Option configures Actions.
type Option func(*Actions)

// WithLogger sets the logger used to report failed requests.
func WithLogger(l *zap.Logger) Option {
	return func(a *Actions) { a.logger = l }
}

// New creates Actions dispatching into d.
func New(client *api.Client, d Dispatcher, opts ...Option) *Actions {
	a := &Actions{client: client, d: d, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ListParams converts a store query into API list parameters. The account
// scope param is consumed by the account-scoped endpoints and not forwarded.
func ListParams(q store.Query) api.ListParams {
	p := api.ListParams{
		Page:       q.Page,
		PerPage:    q.PerPage,
		SortBy:     q.SortBy,
		SortDir:    q.SortDir,
		SearchTerm: q.Search,
		MatchAll:   q.MatchAll,
		MatchAny:   q.MatchAny,
	}
	for k, v := range q.Params {
		if k == AccountParam {
			continue
		}
		if p.Extra == nil {
			p.Extra = map[string]any{}
		}
		p.Extra[k] = v
	}
	return p
}

func (a *Actions) report(act store.Action, err error) (store.Action, error) {
	if err != nil {
		a.logger.Warn("request failed",
			zap.String("type", act.Type()),
			zap.String("cache_key", act.CacheKey),
			zap.Error(err),
		)
	}
	return act, err
}

func list[T ledger.Record](ctx context.Context, a *Actions, entity ledger.Entity, q store.Query, call func(context.Context, api.ListParams) (api.Page[T], error)) (store.Action, error) {
	p := ListParams(q)
	act, err := CreatePaginated(ctx, a.d, Spec{Entity: entity, Op: store.OpRequest}, store.CacheKey(entity, q),
		func(ctx context.Context) (api.Page[T], error) { return call(ctx, p) })
	return a.report(act, err)
}

func one[T ledger.Record](ctx context.Context, a *Actions, entity ledger.Entity, op store.Op, call func(context.Context) (T, error)) (store.Action, error) {
	act, err := Create(ctx, a.d, Spec{Entity: entity, Op: op}, call)
	return a.report(act, err)
}

// SwitchAccount points the client at accountID and resets the store.
func (a *Actions) SwitchAccount(ctx context.Context, accountID string) (store.State, error) {
	a.client.SetAccount(accountID)
	return SwitchAccount(ctx, a.d, accountID)
}

func (a *Actions) ListAccounts(ctx context.Context, q store.Query) (store.Action, error) {
	return list(ctx, a, ledger.Accounts, q, a.client.ListAccounts)
}

func (a *Actions) GetAccount(ctx context.Context, id string) (store.Action, error) {
	return one(ctx, a, ledger.Accounts, store.OpRequest, func(ctx context.Context) (ledger.Account, error) {
		return a.client.GetAccount(ctx, id)
	})
}

func (a *Actions) CreateAccount(ctx context.Context, p api.CreateAccountParams) (store.Action, error) {
	return one(ctx, a, ledger.Accounts, store.OpCreate, func(ctx context.Context) (ledger.Account, error) {
		return a.client.CreateAccount(ctx, p)
	})
}

func (a *Actions) UpdateAccount(ctx context.Context, p api.UpdateAccountParams) (store.Action, error) {
	return one(ctx, a, ledger.Accounts, store.OpUpdate, func(ctx context.Context) (ledger.Account, error) {
		return a.client.UpdateAccount(ctx, p)
	})
}

func (a *Actions) ListTokens(ctx context.Context, q store.Query) (store.Action, error) {
	return list(ctx, a, ledger.Tokens, q, a.client.ListTokens)
}

func (a *Actions) GetToken(ctx context.Context, id string) (store.Action, error) {
	return one(ctx, a, ledger.Tokens, store.OpRequest, func(ctx context.Context) (ledger.Token, error) {
		return a.client.GetToken(ctx, id)
	})
}

func (a *Actions) CreateToken(ctx context.Context, p api.CreateTokenParams) (store.Action, error) {
	return one(ctx, a, ledger.Tokens, store.OpCreate, func(ctx context.Context) (ledger.Token, error) {
		return a.client.CreateToken(ctx, p)
	})
}

func (a *Actions) MintToken(ctx context.Context, id, amount string) (store.Action, error) {
	return one(ctx, a, ledger.Tokens, store.OpMint, func(ctx context.Context) (ledger.Token, error) {
		return a.client.MintToken(ctx, id, amount)
	})
}

func (a *Actions) ListTransactions(ctx context.Context, q store.Query) (store.Action, error) {
	return list(ctx, a, ledger.Transactions, q, a.client.ListTransactions)
}

func (a *Actions) CreateTransaction(ctx context.Context, p api.CreateTransactionParams) (store.Action, error) {
	return one(ctx, a, ledger.Transactions, store.OpCreate, func(ctx context.Context) (ledger.Transaction, error) {
		return a.client.CreateTransaction(ctx, p)
	})
}

// ListWallets lists all wallets, or one account's wallets when the query
// carries the account param.
func (a *Actions) ListWallets(ctx context.Context, q store.Query) (store.Action, error) {
	if accountID := q.Params[AccountParam]; accountID != "" {
		return list(ctx, a, ledger.Wallets, q, func(ctx context.Context, p api.ListParams) (api.Page[ledger.Wallet], error) {
			return a.client.ListAccountWallets(ctx, accountID, p)
		})
	}
	return list(ctx, a, ledger.Wallets, q, a.client.ListWallets)
}

func (a *Actions) ListUsers(ctx context.Context, q store.Query) (store.Action, error) {
	return list(ctx, a, ledger.Users, q, a.client.ListUsers)
}

func (a *Actions) ListAccessKeys(ctx context.Context, q store.Query) (store.Action, error) {
	return list(ctx, a, ledger.AccessKeys, q, a.client.ListAccessKeys)
}

func (a *Actions) CreateAccessKey(ctx context.Context, p api.CreateAccessKeyParams) (store.Action, error) {
	return one(ctx, a, ledger.AccessKeys, store.OpCreate, func(ctx context.Context) (ledger.AccessKey, error) {
		return a.client.CreateAccessKey(ctx, p)
	})
}

func (a *Actions) EnableAccessKey(ctx context.Context, id string, enabled bool) (store.Action, error) {
	return one(ctx, a, ledger.AccessKeys, store.OpUpdate, func(ctx context.Context) (ledger.AccessKey, error) {
		return a.client.EnableAccessKey(ctx, id, enabled)
	})
}

// ListMembershipAccessKeys lists the access keys of the account named by the
// query's account param.
func (a *Actions) ListMembershipAccessKeys(ctx context.Context, q store.Query) (store.Action, error) {
	accountID := q.Params[AccountParam]
	return list(ctx, a, ledger.MembershipAccessKeys, q, func(ctx context.Context, p api.ListParams) (api.Page[ledger.MembershipAccessKey], error) {
		return a.client.ListMembershipAccessKeys(ctx, accountID, p)
	})
}

func (a *Actions) ListAPIKeys(ctx context.Context, q store.Query) (store.Action, error) {
	return list(ctx, a, ledger.APIKeys, q, a.client.ListAPIKeys)
}

func (a *Actions) CreateAPIKey(ctx context.Context) (store.Action, error) {
	return one(ctx, a, ledger.APIKeys, store.OpCreate, a.client.CreateAPIKey)
}

func (a *Actions) EnableAPIKey(ctx context.Context, id string, enabled bool) (store.Action, error) {
	return one(ctx, a, ledger.APIKeys, store.OpUpdate, func(ctx context.Context) (ledger.APIKey, error) {
		return a.client.EnableAPIKey(ctx, id, enabled)
	})
}

func (a *Actions) ListCategories(ctx context.Context, q store.Query) (store.Action, error) {
	return list(ctx, a, ledger.Categories, q, a.client.ListCategories)
}

func (a *Actions) CreateCategory(ctx context.Context, p api.CreateCategoryParams) (store.Action, error) {
	return one(ctx, a, ledger.Categories, store.OpCreate, func(ctx context.Context) (ledger.Category, error) {
		return a.client.CreateCategory(ctx, p)
	})
}

func (a *Actions) ListConsumptions(ctx context.Context, q store.Query) (store.Action, error) {
	return list(ctx, a, ledger.Consumptions, q, a.client.ListConsumptions)
}

func (a *Actions) GetConsumption(ctx context.Context, id string) (store.Action, error) {
	return one(ctx, a, ledger.Consumptions, store.OpRequest, func(ctx context.Context) (ledger.Consumption, error) {
		return a.client.GetConsumption(ctx, id)
	})
}

func (a *Actions) ApproveConsumption(ctx context.Context, id string) (store.Action, error) {
	return one(ctx, a, ledger.Consumptions, store.OpApprove, func(ctx context.Context) (ledger.Consumption, error) {
		return a.client.ApproveConsumption(ctx, id)
	})
}

func (a *Actions) RejectConsumption(ctx context.Context, id string) (store.Action, error) {
	return one(ctx, a, ledger.Consumptions, store.OpReject, func(ctx context.Context) (ledger.Consumption, error) {
		return a.client.RejectConsumption(ctx, id)
	})
}

func (a *Actions) ListExports(ctx context.Context, q store.Query) (store.Action, error) {
	return list(ctx, a, ledger.Exports, q, a.client.ListExports)
}

func (a *Actions) GetExport(ctx context.Context, id string) (store.Action, error) {
	return one(ctx, a, ledger.Exports, store.OpRequest, func(ctx context.Context) (ledger.ExportFile, error) {
		return a.client.GetExport(ctx, id)
	})
}

func (a *Actions) ListExchangePairs(ctx context.Context, q store.Query) (store.Action, error) {
	return list(ctx, a, ledger.ExchangePairs, q, a.client.ListExchangePairs)
}

func (a *Actions) CreateExchangePair(ctx context.Context, p api.CreateExchangePairParams) (store.Action, error) {
	act, err := CreateMany(ctx, a.d, Spec{Entity: ledger.ExchangePairs, Op: store.OpCreate}, func(ctx context.Context) ([]ledger.ExchangePair, error) {
		return a.client.CreateExchangePair(ctx, p)
	})
	return a.report(act, err)
}

func (a *Actions) ListConfigurations(ctx context.Context, q store.Query) (store.Action, error) {
	return list(ctx, a, ledger.Configurations, q, a.client.ListConfigurations)
}

func (a *Actions) UpdateConfigurations(ctx context.Context, values map[string]any) (store.Action, error) {
	act, err := CreateMany(ctx, a.d, Spec{Entity: ledger.Configurations, Op: store.OpUpdate}, func(ctx context.Context) ([]ledger.Configuration, error) {
		return a.client.UpdateConfigurations(ctx, values)
	})
	return a.report(act, err)
}

func (a *Actions) ListBlockchainWallets(ctx context.Context, q store.Query) (store.Action, error) {
	return list(ctx, a, ledger.BlockchainWallets, q, a.client.ListBlockchainWallets)
}
