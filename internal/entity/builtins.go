package entity

import (
	"strconv"
	"strings"
	"time"

	"github.com/smileynet/ledgerdeck/internal/action"
	"github.com/smileynet/ledgerdeck/internal/format"
	"github.com/smileynet/ledgerdeck/internal/ledger"
	"github.com/smileynet/ledgerdeck/internal/settings"
)

const timeLayout = "2006-01-02 15:04"

func col[T ledger.Record](title string, width int, f func(T) string) Column {
	return Column{Title: title, Width: width, Value: func(r ledger.Record) string {
		v, ok := r.(T)
		if !ok {
			return ""
		}
		return f(v)
	}}
}

func idCol[T ledger.Record]() Column {
	return col("ID", 30, func(r T) string { return r.RecordID() })
}

func when(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(timeLayout)
}

func enabled(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}

// displayAmount renders subunits with the token's decimals, falling back to
// the raw value for tokens without a usable subunit.
func displayAmount(amount string, token *ledger.Token) string {
	if token == nil {
		return amount
	}
	out, err := format.ReceiveAmountToTotal(amount, token.SubunitToUnit)
	if err != nil {
		return amount
	}
	return out + " " + token.Symbol
}

func sideName(s ledger.TransactionSide) string {
	switch {
	case s.AccountID != "":
		return s.AccountID
	case s.UserID != "":
		return s.UserID
	default:
		return s.Address
	}
}

// RegisterBuiltins registers every list page the console offers.
func RegisterBuiltins(reg *Registry) {
	reg.Register(Definition{
		Name:       ledger.Accounts,
		Title:      "Accounts",
		Switchable: true,
		Columns: []Column{
			idCol[ledger.Account](),
			col("Name", 24, func(a ledger.Account) string { return a.Name }),
			col("Master", 6, func(a ledger.Account) string { return strconv.FormatBool(a.Master) }),
			col("Created", 16, func(a ledger.Account) string { return when(a.CreatedAt) }),
		},
		List: (*action.Actions).ListAccounts,
		New:  pageOf[ledger.Account](ledger.Accounts, (*action.Actions).ListAccounts),
	})
	reg.Register(Definition{
		Name:  ledger.Tokens,
		Title: "Tokens",
		Columns: []Column{
			idCol[ledger.Token](),
			col("Symbol", 8, func(t ledger.Token) string { return t.Symbol }),
			col("Name", 20, func(t ledger.Token) string { return t.Name }),
			col("Decimals", 8, func(t ledger.Token) string { return strconv.Itoa(format.Decimals(t.SubunitToUnit)) }),
			col("Supply", 20, func(t ledger.Token) string { return displayAmount(t.TotalSupply, &t) }),
		},
		List: (*action.Actions).ListTokens,
		New:  pageOf[ledger.Token](ledger.Tokens, (*action.Actions).ListTokens),
	})
	reg.Register(Definition{
		Name:  ledger.Transactions,
		Title: "Transactions",
		Columns: []Column{
			idCol[ledger.Transaction](),
			col("From", 24, func(t ledger.Transaction) string { return sideName(t.From) }),
			col("To", 24, func(t ledger.Transaction) string { return sideName(t.To) }),
			col("Amount", 20, func(t ledger.Transaction) string { return displayAmount(t.From.Amount, t.From.Token) }),
			col("Status", 10, func(t ledger.Transaction) string { return t.Status }),
			col("Created", 16, func(t ledger.Transaction) string { return when(t.CreatedAt) }),
		},
		List: (*action.Actions).ListTransactions,
		New:  pageOf[ledger.Transaction](ledger.Transactions, (*action.Actions).ListTransactions),
	})
	reg.Register(Definition{
		Name:  ledger.Wallets,
		Title: "Wallets",
		Columns: []Column{
			col("Address", 20, func(w ledger.Wallet) string { return w.Address }),
			col("Name", 20, func(w ledger.Wallet) string { return w.Name }),
			col("Identifier", 16, func(w ledger.Wallet) string { return w.Identifier }),
			col("Owner", 30, func(w ledger.Wallet) string {
				if w.AccountID != "" {
					return w.AccountID
				}
				return w.UserID
			}),
		},
		List: (*action.Actions).ListWallets,
		New:  pageOf[ledger.Wallet](ledger.Wallets, (*action.Actions).ListWallets),
	})
	reg.Register(Definition{
		Name:  ledger.Users,
		Title: "Users",
		Columns: []Column{
			idCol[ledger.User](),
			col("Username", 20, func(u ledger.User) string { return u.Username }),
			col("Email", 28, func(u ledger.User) string { return u.Email }),
			col("Created", 16, func(u ledger.User) string { return when(u.CreatedAt) }),
		},
		List: (*action.Actions).ListUsers,
		New:  pageOf[ledger.User](ledger.Users, (*action.Actions).ListUsers),
	})
	reg.Register(Definition{
		Name:  ledger.Consumptions,
		Title: "Consumptions",
		Columns: []Column{
			idCol[ledger.Consumption](),
			col("Amount", 16, func(c ledger.Consumption) string { return c.Amount }),
			col("Token", 30, func(c ledger.Consumption) string { return c.TokenID }),
			col("Status", 10, func(c ledger.Consumption) string { return c.Status }),
			col("Created", 16, func(c ledger.Consumption) string { return when(c.CreatedAt) }),
		},
		List: (*action.Actions).ListConsumptions,
		New:  pageOf[ledger.Consumption](ledger.Consumptions, (*action.Actions).ListConsumptions),
	})
	reg.Register(Definition{
		Name:  ledger.AccessKeys,
		Title: "Access keys",
		Columns: []Column{
			col("Access key", 24, func(k ledger.AccessKey) string { return k.AccessKey }),
			col("Name", 16, func(k ledger.AccessKey) string { return k.Name }),
			col("Role", 10, func(k ledger.AccessKey) string { return k.Role }),
			col("Status", 8, func(k ledger.AccessKey) string { return enabled(k.Enabled) }),
		},
		List: (*action.Actions).ListAccessKeys,
		New:  pageOf[ledger.AccessKey](ledger.AccessKeys, (*action.Actions).ListAccessKeys),
	})
	reg.Register(Definition{
		Name:  ledger.MembershipAccessKeys,
		Title: "Members",
		Columns: []Column{
			col("Access key", 24, func(m ledger.MembershipAccessKey) string { return m.Key.AccessKey }),
			col("Account", 30, func(m ledger.MembershipAccessKey) string { return m.AccountID }),
			col("Role", 10, func(m ledger.MembershipAccessKey) string { return m.Role }),
		},
		List: (*action.Actions).ListMembershipAccessKeys,
		New:  pageOf[ledger.MembershipAccessKey](ledger.MembershipAccessKeys, (*action.Actions).ListMembershipAccessKeys),
	})
	reg.Register(Definition{
		Name:  ledger.APIKeys,
		Title: "API keys",
		Columns: []Column{
			idCol[ledger.APIKey](),
			col("Key", 30, func(k ledger.APIKey) string { return k.Key }),
			col("Status", 8, func(k ledger.APIKey) string { return enabled(k.Enabled) }),
		},
		List: (*action.Actions).ListAPIKeys,
		New:  pageOf[ledger.APIKey](ledger.APIKeys, (*action.Actions).ListAPIKeys),
	})
	reg.Register(Definition{
		Name:  ledger.Categories,
		Title: "Categories",
		Columns: []Column{
			idCol[ledger.Category](),
			col("Name", 20, func(c ledger.Category) string { return c.Name }),
			col("Accounts", 8, func(c ledger.Category) string { return strconv.Itoa(len(c.AccountIDs)) }),
		},
		List: (*action.Actions).ListCategories,
		New:  pageOf[ledger.Category](ledger.Categories, (*action.Actions).ListCategories),
	})
	reg.Register(Definition{
		Name:  ledger.Exports,
		Title: "Exports",
		Columns: []Column{
			idCol[ledger.ExportFile](),
			col("File", 28, func(e ledger.ExportFile) string { return e.Filename }),
			col("Status", 10, func(e ledger.ExportFile) string { return e.Status }),
			col("Done", 5, func(e ledger.ExportFile) string { return strconv.FormatFloat(e.Completion, 'f', 0, 64) + "%" }),
		},
		List: (*action.Actions).ListExports,
		New:  pageOf[ledger.ExportFile](ledger.Exports, (*action.Actions).ListExports),
	})
	reg.Register(Definition{
		Name:  ledger.ExchangePairs,
		Title: "Exchange pairs",
		Columns: []Column{
			idCol[ledger.ExchangePair](),
			col("Pair", 16, func(p ledger.ExchangePair) string {
				if p.FromToken != nil && p.ToToken != nil {
					return p.FromToken.Symbol + "/" + p.ToToken.Symbol
				}
				return p.FromTokenID + "/" + p.ToTokenID
			}),
			col("Rate", 12, func(p ledger.ExchangePair) string { return strconv.FormatFloat(p.Rate, 'f', -1, 64) }),
		},
		List: (*action.Actions).ListExchangePairs,
		New:  pageOf[ledger.ExchangePair](ledger.ExchangePairs, (*action.Actions).ListExchangePairs),
	})
	reg.Register(Definition{
		Name:  ledger.Configurations,
		Title: "Settings",
		Columns: []Column{
			col("Key", 30, func(c ledger.Configuration) string {
				if s, ok := settings.Lookup(c.Key); ok {
					return s.DisplayName
				}
				return c.Key
			}),
			col("Value", 30, func(c ledger.Configuration) string { return settings.DisplayValue(c.Value) }),
			col("Description", 30, func(c ledger.Configuration) string { return strings.TrimSpace(c.Description) }),
		},
		List: (*action.Actions).ListConfigurations,
		New:  pageOf[ledger.Configuration](ledger.Configurations, (*action.Actions).ListConfigurations),
	})
	reg.Register(Definition{
		Name:  ledger.BlockchainWallets,
		Title: "Blockchain wallets",
		Columns: []Column{
			col("Address", 42, func(w ledger.BlockchainWallet) string { return w.Address }),
			col("Name", 20, func(w ledger.BlockchainWallet) string { return w.Name }),
			col("Type", 8, func(w ledger.BlockchainWallet) string { return w.Type }),
		},
		List: (*action.Actions).ListBlockchainWallets,
		New:  pageOf[ledger.BlockchainWallet](ledger.BlockchainWallets, (*action.Actions).ListBlockchainWallets),
	})
}

// Builtin returns a registry holding every built-in page.
func Builtin() *Registry {
	reg := NewRegistry()
	RegisterBuiltins(reg)
	return reg
}
