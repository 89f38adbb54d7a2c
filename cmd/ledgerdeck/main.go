package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"github.com/smileynet/ledgerdeck/internal/action"
	"github.com/smileynet/ledgerdeck/internal/api"
	"github.com/smileynet/ledgerdeck/internal/config"
	"github.com/smileynet/ledgerdeck/internal/entity"
	"github.com/smileynet/ledgerdeck/internal/logging"
	"github.com/smileynet/ledgerdeck/internal/session"
	"github.com/smileynet/ledgerdeck/internal/store"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Globals are flags shared by every command.
type Globals struct {
	Config  string `help:"Extra config file layered over the user and project configs." type:"path" placeholder:"FILE"`
	Profile string `help:"Session profile to restore and save." default:"default"`
}

// CLI is the top-level command structure for ledgerdeck.
type CLI struct {
	Globals

	Version       kong.VersionFlag `help:"Show version." short:"V"`
	Dashboard     DashboardCmd     `cmd:"" help:"Open the interactive console."`
	List          ListCmd          `cmd:"" help:"List records of an entity."`
	Get           GetCmd           `cmd:"" help:"Show one record."`
	SwitchAccount SwitchAccountCmd `cmd:"" name:"switch-account" help:"Make an account current for later commands."`
	Settings      SettingsCmd      `cmd:"" help:"Show or change platform settings."`
	Keys          KeysCmd          `cmd:"" help:"Manage API and access keys."`
	Consumption   ConsumptionCmd   `cmd:"" help:"Approve or reject transaction consumptions."`
	Export        ExportCmd        `cmd:"" help:"Work with CSV exports."`
	Wallet        WalletCmd        `cmd:"" help:"Query the configured blockchain node."`
}

// loadConfig loads layered config from user and project paths, then the
// --config file, with env overrides.
func loadConfig(g *Globals) (*config.Config, error) {
	paths := config.DefaultPaths()
	if g.Config != "" {
		if _, err := os.Stat(g.Config); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		paths = append(paths, g.Config)
	}
	cfg, err := config.LoadLayered(paths...)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// app is what a command runs against: a client, a store, and the restored
// session.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	client   *api.Client
	store    *store.Store
	actions  *action.Actions
	registry *entity.Registry
	sessions *session.FileStore
	session  session.Session
}

// newApp restores profile's session and binds a store and actions to client.
func newApp(cfg *config.Config, logger *zap.Logger, client *api.Client, profile string) (*app, error) {
	sessions := session.NewFileStore(cfg.Session.Dir)
	sess, found, err := sessions.Load(profile)
	if err != nil {
		return nil, err
	}
	if !found {
		sess = session.Session{Profile: profile}
	}
	client.SetAccount(sess.AccountID)

	st := store.New(
		store.WithLogger(logging.For(logger, logging.ComponentStore)),
		store.WithInitialState(session.InitialState(sess)),
	)
	return &app{
		cfg:      cfg,
		logger:   logger,
		client:   client,
		store:    st,
		actions:  action.New(client, st, action.WithLogger(logging.For(logger, logging.ComponentAPI))),
		registry: entity.Builtin(),
		sessions: sessions,
		session:  sess,
	}, nil
}

// newClient builds the API client described by cfg.
func newClient(cfg *config.Config, logger *zap.Logger) *api.Client {
	return api.NewClient(cfg.API.BaseURL,
		api.WithTimeout(cfg.API.Timeout),
		api.WithCredentials(cfg.Auth.UserID, cfg.Auth.AuthToken),
		api.WithLogger(logging.For(logger, logging.ComponentAPI)),
	)
}

// setup loads config and builds an app that logs to stderr.
func setup(g *Globals) (*app, error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, err
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	logger := logging.New(os.Stderr, level)
	return newApp(cfg, logger, newClient(cfg, logger), g.Profile)
}

func (a *app) Close() {
	a.store.Close()
	_ = a.logger.Sync()
}

// requestError marks a failure reported by the API or on the way to it.
type requestError struct {
	err error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

// request wraps a failed call so that it maps to the API exit code.
func request(op string, err error) error {
	if err == nil {
		return nil
	}
	return &requestError{err: fmt.Errorf("%s: %w", op, err)}
}

const (
	exitSuccess = 0
	exitAPI     = 1
	exitSetup   = 2
)

// exitCode maps an error to the appropriate exit code.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var re *requestError
	if errors.As(err, &re) {
		return exitAPI
	}
	var ae *api.APIError
	if errors.As(err, &ae) {
		return exitAPI
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return exitAPI
	}
	return exitSetup
}

// commandContext is cancelled by the first interrupt.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("ledgerdeck"),
		kong.Description("Admin console for a ledger platform."),
		kong.UsageOnError(),
		kong.Vars{"version": version + " " + commit + " " + date},
	)
	err := ctx.Run(&cli.Globals)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(exitCode(err))
	}
}
