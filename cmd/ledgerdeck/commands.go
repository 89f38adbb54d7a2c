package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/mattn/go-isatty"

	"github.com/smileynet/ledgerdeck/internal/action"
	"github.com/smileynet/ledgerdeck/internal/api"
	"github.com/smileynet/ledgerdeck/internal/dashboard"
	"github.com/smileynet/ledgerdeck/internal/entity"
	"github.com/smileynet/ledgerdeck/internal/fetcher"
	"github.com/smileynet/ledgerdeck/internal/filter"
	"github.com/smileynet/ledgerdeck/internal/format"
	"github.com/smileynet/ledgerdeck/internal/ledger"
	"github.com/smileynet/ledgerdeck/internal/logging"
	"github.com/smileynet/ledgerdeck/internal/settings"
	"github.com/smileynet/ledgerdeck/internal/store"
	"github.com/smileynet/ledgerdeck/internal/web3"
)

// settingsPerPage covers the whole settings catalogue in one request.
const settingsPerPage = 100

// withApp runs fn against an app built from the global flags.
func withApp(g *Globals, fn func(ctx context.Context, a *app) error) error {
	a, err := setup(g)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx, stop := commandContext()
	defer stop()
	return fn(ctx, a)
}

// --- dashboard ---

// DashboardCmd opens the interactive console.
type DashboardCmd struct{}

// teaRunner abstracts Bubble Tea program execution for testing.
type teaRunner interface {
	Run() (tea.Model, error)
}

// Run builds real dependencies and launches the dashboard TUI. Logs go to the
// configured file so they do not corrupt the screen.
func (d *DashboardCmd) Run(g *Globals) error {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return errors.New("dashboard: requires a terminal (TTY)")
	}

	cfg, err := loadConfig(g)
	if err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	logger, closeLog, err := logging.NewFile(cfg.Log.File, level)
	if err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	defer func() { _ = closeLog() }()

	a, err := newApp(cfg, logger, newClient(cfg, logger), g.Profile)
	if err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	defer a.Close()

	ctx, stop := commandContext()
	defer stop()

	prog := tea.NewProgram(a.dashboardModel(ctx), tea.WithAltScreen(), tea.WithContext(ctx))
	return d.run(true, prog)
}

// run executes the tea program and stops the final model's pages.
func (d *DashboardCmd) run(isTTY bool, prog teaRunner) error {
	if !isTTY {
		return errors.New("dashboard: requires a terminal (TTY)")
	}
	final, err := prog.Run()
	if m, ok := final.(dashboard.Model); ok {
		m.Close()
	}
	return err
}

// dashboardModel wires the app into a dashboard model.
func (a *app) dashboardModel(ctx context.Context) dashboard.Model {
	return dashboard.NewModel(
		dashboard.WithContext(ctx),
		dashboard.WithRegistry(a.registry),
		dashboard.WithDeps(entity.Deps{
			Actions: a.actions,
			Source:  a.store,
			Options: a.fetcherOptions(),
		}),
		dashboard.WithAccountSwitcher(a.actions),
		dashboard.WithSession(a.sessions, a.session),
		dashboard.WithLogger(logging.For(a.logger, logging.ComponentUI)),
		dashboard.WithPerPage(a.cfg.Fetcher.PerPage),
	)
}

func (a *app) fetcherOptions() []fetcher.Option {
	return []fetcher.Option{
		fetcher.WithDebounce(a.cfg.Fetcher.Debounce),
		fetcher.WithSlowAfter(a.cfg.Fetcher.SlowAfter),
		fetcher.WithLogger(logging.For(a.logger, logging.ComponentFetcher)),
	}
}

// --- list ---

// ListCmd prints one page of an entity as a table.
type ListCmd struct {
	Entity  string            `arg:"" help:"Entity to list, e.g. accounts or transactions."`
	Page    int               `help:"Page number." default:"1"`
	PerPage int               `help:"Records per page. Defaults to fetcher.per_page."`
	Search  string            `help:"Search term."`
	SortBy  string            `help:"Field to sort by."`
	SortDir string            `help:"Sort direction (asc or desc)."`
	Token   string            `help:"Transactions: sending token symbol." group:"Transaction filters"`
	Account string            `help:"Transactions: sending account id." group:"Transaction filters"`
	Status  []string          `help:"Transactions: statuses (pending, confirmed, failed)." group:"Transaction filters"`
	To      string            `help:"Transactions: destination account id, user id or address." group:"Transaction filters"`
	Param   map[string]string `help:"Extra query params, e.g. account_id=acc_1."`
}

func (l *ListCmd) Run(g *Globals) error {
	return withApp(g, func(ctx context.Context, a *app) error {
		return l.run(ctx, os.Stdout, a)
	})
}

func (l *ListCmd) run(ctx context.Context, w io.Writer, a *app) error {
	def, err := a.registry.Lookup(l.Entity)
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}
	q, err := l.query(def.Name, a.cfg.Fetcher.PerPage)
	if err != nil {
		return err
	}

	act, err := def.List(a.actions, ctx, q)
	if err != nil {
		return request("list "+l.Entity, err)
	}
	if len(act.Data) == 0 {
		if q.Search != "" {
			_, _ = fmt.Fprintf(w, "No %s match %q\n", l.Entity, q.Search)
		} else {
			_, _ = fmt.Fprintf(w, "No %s found\n", l.Entity)
		}
		return nil
	}
	printRecords(w, def, act.Data)
	printPagination(w, act.Pagination)
	return nil
}

// query builds the store query for entity from the flags.
func (l *ListCmd) query(name ledger.Entity, defaultPerPage int) (store.Query, error) {
	if l.Page < 1 {
		return store.Query{}, fmt.Errorf("list: --page must be at least 1, got %d", l.Page)
	}
	switch l.SortDir {
	case "", "asc", "desc":
	default:
		return store.Query{}, fmt.Errorf("list: --sort-dir must be asc or desc, got %q", l.SortDir)
	}
	q := store.Query{
		Page:    l.Page,
		PerPage: defaultPerPage,
		Search:  l.Search,
		SortBy:  l.SortBy,
		SortDir: l.SortDir,
	}
	if l.PerPage > 0 {
		q.PerPage = l.PerPage
	}
	if len(l.Param) > 0 {
		q.Params = l.Param
	}

	filters := map[string][]string{
		"token":   {l.Token},
		"account": {l.Account},
		"status":  l.Status,
		"to":      {l.To},
	}
	set := filter.NewSet(filter.TransactionFilters())
	for key, values := range filters {
		if err := set.Update(key, values...); err != nil {
			return store.Query{}, fmt.Errorf("list: %w", err)
		}
	}
	if len(set.Values()) == 0 {
		return q, nil
	}
	if name != ledger.Transactions {
		return store.Query{}, fmt.Errorf("list: transaction filters do not apply to %s", name)
	}
	q = set.Apply(q)
	q.Page = l.Page
	return q, nil
}

func printRecords(w io.Writer, def entity.Definition, records []ledger.Record) {
	headers := make([]string, len(def.Columns))
	for i, c := range def.Columns {
		headers[i] = c.Title
	}
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = def.Row(r)
	}
	printTable(w, headers, rows)
}

func printTable(w io.Writer, headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...)
	_, _ = fmt.Fprintln(w, t.Render())
}

func printPagination(w io.Writer, p ledger.Pagination) {
	line := fmt.Sprintf("page %d", p.Page)
	if p.TotalPages > 0 {
		line += fmt.Sprintf(" of %d", p.TotalPages)
	}
	if !p.IsLastPage {
		line += fmt.Sprintf(" · next: --page %d", p.Page+1)
	}
	_, _ = fmt.Fprintln(w, line)
}

// --- get ---

// getters fetch one record by id.
var getters = map[ledger.Entity]func(a *action.Actions, ctx context.Context, id string) (store.Action, error){
	ledger.Accounts:     (*action.Actions).GetAccount,
	ledger.Tokens:       (*action.Actions).GetToken,
	ledger.Consumptions: (*action.Actions).GetConsumption,
	ledger.Exports:      (*action.Actions).GetExport,
}

// GetCmd prints one record with its labelled columns and full JSON.
type GetCmd struct {
	Entity string `arg:"" help:"Entity: accounts, tokens, consumptions or exports."`
	ID     string `arg:"" help:"Record id."`
}

func (c *GetCmd) Run(g *Globals) error {
	return withApp(g, func(ctx context.Context, a *app) error {
		return c.run(ctx, os.Stdout, a)
	})
}

func (c *GetCmd) run(ctx context.Context, w io.Writer, a *app) error {
	def, err := a.registry.Lookup(c.Entity)
	if err != nil {
		return fmt.Errorf("get: %w", err)
	}
	get, ok := getters[def.Name]
	if !ok {
		return fmt.Errorf("get: %s cannot be fetched by id", def.Name)
	}
	act, err := get(a.actions, ctx, c.ID)
	if err != nil {
		return request("get "+c.Entity, err)
	}
	r, ok := store.SelectByID[ledger.Record](a.store.State(), def.Name, c.ID)
	if !ok {
		r = act.Record
	}
	return printDetail(w, def, r)
}

func printDetail(w io.Writer, def entity.Definition, r ledger.Record) error {
	width := 0
	for _, col := range def.Columns {
		width = max(width, len(col.Title))
	}
	for _, col := range def.Columns {
		_, _ = fmt.Fprintf(w, "%-*s  %s\n", width, col.Title, col.Value(r))
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("get: encoding %s: %w", r.RecordID(), err)
	}
	_, _ = fmt.Fprintf(w, "\n%s\n", data)
	return nil
}

// --- switch-account ---

// SwitchAccountCmd makes an account current and saves it in the session.
type SwitchAccountCmd struct {
	ID string `arg:"" help:"Account id."`
}

func (c *SwitchAccountCmd) Run(g *Globals) error {
	return withApp(g, func(ctx context.Context, a *app) error {
		return c.run(ctx, os.Stdout, a)
	})
}

func (c *SwitchAccountCmd) run(ctx context.Context, w io.Writer, a *app) error {
	act, err := a.actions.GetAccount(ctx, c.ID)
	if err != nil {
		return request("switch-account", err)
	}
	if _, err := a.actions.SwitchAccount(ctx, c.ID); err != nil {
		return fmt.Errorf("switch-account: %w", err)
	}
	a.session.AccountID = c.ID
	if err := a.sessions.Save(a.session); err != nil {
		return fmt.Errorf("switch-account: %w", err)
	}
	name := c.ID
	if acc, ok := act.Record.(ledger.Account); ok && acc.Name != "" {
		name = fmt.Sprintf("%s (%s)", acc.Name, c.ID)
	}
	_, _ = fmt.Fprintf(w, "Switched to account %s\n", name)
	return nil
}

// --- settings ---

// SettingsCmd groups the settings subcommands.
type SettingsCmd struct {
	Show SettingsShowCmd `cmd:"" help:"Show the catalogued settings."`
	Set  SettingsSetCmd  `cmd:"" help:"Change a writable setting."`
}

// SettingsShowCmd prints every catalogued setting.
type SettingsShowCmd struct{}

func (c *SettingsShowCmd) Run(g *Globals) error {
	return withApp(g, func(ctx context.Context, a *app) error {
		return c.run(ctx, os.Stdout, a)
	})
}

func (c *SettingsShowCmd) run(ctx context.Context, w io.Writer, a *app) error {
	if _, err := a.actions.ListConfigurations(ctx, store.Query{Page: 1, PerPage: settingsPerPage}); err != nil {
		return request("settings", err)
	}
	rows := settings.Rows(store.SelectAll[ledger.Configuration](a.store.State(), ledger.Configurations))
	out := make([][]string, len(rows))
	for i, r := range rows {
		access := ""
		if r.ReadOnly {
			access = "read-only"
		}
		out[i] = []string{r.DisplayName, r.Key, r.Value, access}
	}
	printTable(w, []string{"Setting", "Key", "Value", ""}, out)
	return nil
}

// SettingsSetCmd changes one setting.
type SettingsSetCmd struct {
	Key   string `arg:"" help:"Setting key."`
	Value string `arg:"" help:"New value."`
}

func (c *SettingsSetCmd) Run(g *Globals) error {
	return withApp(g, func(ctx context.Context, a *app) error {
		return c.run(ctx, os.Stdout, a)
	})
}

func (c *SettingsSetCmd) run(ctx context.Context, w io.Writer, a *app) error {
	value, err := settings.ValidateUpdate(c.Key, c.Value)
	if err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	act, err := a.actions.UpdateConfigurations(ctx, map[string]any{c.Key: value})
	if err != nil {
		return request("settings", err)
	}
	shown := c.Value
	for _, cfg := range recordsOf[ledger.Configuration](act.Data) {
		if cfg.Key == c.Key {
			shown = settings.DisplayValue(cfg.Value)
		}
	}
	_, _ = fmt.Fprintf(w, "%s = %s\n", c.Key, shown)
	return nil
}

// --- keys ---

// KeysCmd groups the key subcommands.
type KeysCmd struct {
	Create KeysCreateCmd `cmd:"" help:"Create an API key, or an admin access key pair with --access."`
}

// KeysCreateCmd creates a key and prints it once.
type KeysCreateCmd struct {
	Access bool   `help:"Create an admin access key pair instead of an API key."`
	Name   string `help:"Access key name."`
	Role   string `help:"Access key global role."`
}

func (c *KeysCreateCmd) Run(g *Globals) error {
	return withApp(g, func(ctx context.Context, a *app) error {
		return c.run(ctx, os.Stdout, a)
	})
}

func (c *KeysCreateCmd) run(ctx context.Context, w io.Writer, a *app) error {
	if !c.Access {
		act, err := a.actions.CreateAPIKey(ctx)
		if err != nil {
			return request("keys create", err)
		}
		k, _ := act.Record.(ledger.APIKey)
		_, _ = fmt.Fprintf(w, "API key %s\nkey: %s\n", k.ID, k.Key)
		return nil
	}

	act, err := a.actions.CreateAccessKey(ctx, api.CreateAccessKeyParams{
		Name:      c.Name,
		Role:      c.Role,
		AccountID: a.session.AccountID,
	})
	if err != nil {
		return request("keys create", err)
	}
	k, _ := act.Record.(ledger.AccessKey)
	_, _ = fmt.Fprintf(w, "Access key %s\naccess key: %s\nsecret key: %s\nThe secret key is not shown again.\n", k.ID, k.AccessKey, k.SecretKey)
	return nil
}

// --- consumption ---

// ConsumptionCmd groups the consumption subcommands.
type ConsumptionCmd struct {
	Approve ConsumptionApproveCmd `cmd:"" help:"Approve a pending consumption."`
	Reject  ConsumptionRejectCmd  `cmd:"" help:"Reject a pending consumption."`
}

// ConsumptionApproveCmd approves a consumption.
type ConsumptionApproveCmd struct {
	ID string `arg:"" help:"Consumption id."`
}

func (c *ConsumptionApproveCmd) Run(g *Globals) error {
	return withApp(g, func(ctx context.Context, a *app) error {
		return decideConsumption(ctx, os.Stdout, a, c.ID, true)
	})
}

// ConsumptionRejectCmd rejects a consumption.
type ConsumptionRejectCmd struct {
	ID string `arg:"" help:"Consumption id."`
}

func (c *ConsumptionRejectCmd) Run(g *Globals) error {
	return withApp(g, func(ctx context.Context, a *app) error {
		return decideConsumption(ctx, os.Stdout, a, c.ID, false)
	})
}

func decideConsumption(ctx context.Context, w io.Writer, a *app, id string, approve bool) error {
	decide, verb := a.actions.RejectConsumption, "reject"
	if approve {
		decide, verb = a.actions.ApproveConsumption, "approve"
	}
	act, err := decide(ctx, id)
	if err != nil {
		return request("consumption "+verb, err)
	}
	status := verb + "d"
	if c, ok := act.Record.(ledger.Consumption); ok && c.Status != "" {
		status = c.Status
	}
	_, _ = fmt.Fprintf(w, "Consumption %s: %s\n", id, status)
	return nil
}

// --- export ---

// ExportCmd groups the export subcommands.
type ExportCmd struct {
	Download ExportDownloadCmd `cmd:"" help:"Download a locally stored export."`
}

// ExportDownloadCmd saves an export's content to a file.
type ExportDownloadCmd struct {
	ID     string `arg:"" help:"Export id."`
	Output string `short:"o" type:"path" help:"Destination file. Defaults to the export's filename."`
}

func (c *ExportDownloadCmd) Run(g *Globals) error {
	return withApp(g, func(ctx context.Context, a *app) error {
		return c.run(ctx, os.Stdout, a)
	})
}

func (c *ExportDownloadCmd) run(ctx context.Context, w io.Writer, a *app) error {
	out := c.Output
	if out == "" {
		act, err := a.actions.GetExport(ctx, c.ID)
		if err != nil {
			return request("export download", err)
		}
		out = c.ID + ".csv"
		if exp, ok := act.Record.(ledger.ExportFile); ok && exp.Filename != "" {
			out = filepath.Base(exp.Filename)
		}
	}

	data, err := a.client.DownloadExport(ctx, c.ID)
	if err != nil {
		return request("export download", err)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("export download: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Saved %d bytes to %s\n", len(data), out)
	return nil
}

// --- wallet ---

// WalletCmd groups the blockchain subcommands.
type WalletCmd struct {
	Accounts    WalletAccountsCmd    `cmd:"" help:"Enable the node's accounts and list them."`
	Balance     WalletBalanceCmd     `cmd:"" help:"Show the native balance of an address."`
	EstimateGas WalletEstimateGasCmd `cmd:"" name:"estimate-gas" help:"Estimate the gas of a native transfer."`
	Network     WalletNetworkCmd     `cmd:"" help:"Show the node's network id."`
}

// withWallet dials the configured node, records that a provider exists and
// runs fn against a wallet.
func withWallet(g *Globals, fn func(ctx context.Context, wallet *web3.Wallet) error) error {
	return withApp(g, func(ctx context.Context, a *app) error {
		if a.cfg.Blockchain.RPCURL == "" {
			return errors.New("wallet: blockchain.rpc_url is not set")
		}
		client, err := web3.Dial(ctx, a.cfg.Blockchain.RPCURL)
		if err != nil {
			return request("wallet", err)
		}
		defer client.Close()
		wallet := web3.New(client, a.store, web3.WithLogger(logging.For(a.logger, logging.ComponentWeb3)))
		if _, err := wallet.Detect(ctx); err != nil {
			return err
		}
		return fn(ctx, wallet)
	})
}

// WalletAccountsCmd prints the accounts the node manages.
type WalletAccountsCmd struct{}

func (c *WalletAccountsCmd) Run(g *Globals) error {
	return withWallet(g, func(ctx context.Context, wallet *web3.Wallet) error {
		return c.run(ctx, os.Stdout, wallet)
	})
}

func (c *WalletAccountsCmd) run(ctx context.Context, w io.Writer, wallet *web3.Wallet) error {
	accounts, err := wallet.Enable(ctx)
	if err != nil {
		return request("wallet accounts", err)
	}
	if len(accounts) == 0 {
		_, _ = fmt.Fprintln(w, "No accounts on this node.")
		return nil
	}
	for _, acct := range accounts {
		_, _ = fmt.Fprintln(w, acct)
	}
	return nil
}

// WalletBalanceCmd prints an address's balance.
type WalletBalanceCmd struct {
	Address string `arg:"" help:"Hex address."`
}

func (c *WalletBalanceCmd) Run(g *Globals) error {
	return withWallet(g, func(ctx context.Context, wallet *web3.Wallet) error {
		return c.run(ctx, os.Stdout, wallet)
	})
}

func (c *WalletBalanceCmd) run(ctx context.Context, w io.Writer, wallet *web3.Wallet) error {
	act, err := wallet.Balance(ctx, c.Address)
	if errors.Is(err, web3.ErrInvalidAddress) {
		return fmt.Errorf("wallet balance: %w", err)
	}
	if err != nil {
		return request("wallet balance", err)
	}
	b, _ := act.Record.(ledger.Balance)
	amount, err := format.ReceiveAmountToTotal(b.Amount, "1"+strings.Repeat("0", b.Decimal))
	if err != nil {
		amount = b.Amount
	}
	_, _ = fmt.Fprintf(w, "%s  %s %s\n", b.Address, amount, b.Token)
	return nil
}

// WalletEstimateGasCmd prints the gas a transfer of value wei would use.
type WalletEstimateGasCmd struct {
	From  string `required:"" help:"Sender address."`
	To    string `required:"" help:"Recipient address."`
	Value string `default:"0" help:"Amount in wei, decimal or 0x hex."`
}

func (c *WalletEstimateGasCmd) Run(g *Globals) error {
	return withWallet(g, func(ctx context.Context, wallet *web3.Wallet) error {
		return c.run(ctx, os.Stdout, wallet)
	})
}

func (c *WalletEstimateGasCmd) run(ctx context.Context, w io.Writer, wallet *web3.Wallet) error {
	value, ok := math.ParseBig256(c.Value)
	if !ok {
		return fmt.Errorf("wallet estimate-gas: invalid value %q", c.Value)
	}
	gas, err := wallet.EstimateGas(ctx, c.From, c.To, value)
	if errors.Is(err, web3.ErrInvalidAddress) {
		return fmt.Errorf("wallet estimate-gas: %w", err)
	}
	if err != nil {
		return request("wallet estimate-gas", err)
	}
	_, _ = fmt.Fprintf(w, "gas: %d\n", gas)
	return nil
}

// WalletNetworkCmd prints the node's network id.
type WalletNetworkCmd struct{}

func (c *WalletNetworkCmd) Run(g *Globals) error {
	return withWallet(g, func(ctx context.Context, wallet *web3.Wallet) error {
		return c.run(ctx, os.Stdout, wallet)
	})
}

func (c *WalletNetworkCmd) run(ctx context.Context, w io.Writer, wallet *web3.Wallet) error {
	id, err := wallet.NetworkID(ctx)
	if err != nil {
		return request("wallet network", err)
	}
	_, _ = fmt.Fprintf(w, "network id: %s\n", id)
	return nil
}

func recordsOf[T ledger.Record](rs []ledger.Record) []T {
	out := make([]T, 0, len(rs))
	for _, r := range rs {
		if v, ok := r.(T); ok {
			out = append(out, v)
		}
	}
	return out
}
