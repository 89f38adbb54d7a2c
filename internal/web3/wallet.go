// Package web3 reads on-chain data through an Ethereum JSON-RPC node and
// reports it to the store the way a browser wallet provider would.
package web3

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/smileynet/ledgerdeck/internal/action"
	"github.com/smileynet/ledgerdeck/internal/ledger"
	"github.com/smileynet/ledgerdeck/internal/store"
)

const (
	NativeToken   = "ETH"
	NativeDecimal = 18
)

var (
	// ErrInvalidAddress indicates an address is not 20 hex-encoded bytes.
	ErrInvalidAddress = errors.New("web3: invalid address")
	// ErrNoProvider indicates no RPC endpoint is configured.
	ErrNoProvider = errors.New("web3: no provider configured")
)

// Backend is the subset of an Ethereum node the wallet uses. *Node
// satisfies it.
type Backend interface {
	Accounts(ctx context.Context) ([]common.Address, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	NetworkID(ctx context.Context) (*big.Int, error)
}

// Node is an ethclient connection that can also list the node's accounts.
type Node struct {
	*ethclient.Client
}

var _ Backend = (*Node)(nil)

// Accounts returns the accounts the node manages (eth_accounts).
func (n *Node) Accounts(ctx context.Context) ([]common.Address, error) {
	var accounts []common.Address
	if err := n.Client.Client().CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, err
	}
	return accounts, nil
}

// Dial connects to a JSON-RPC endpoint.
func Dial(ctx context.Context, rpcURL string) (*Node, error) {
	if rpcURL == "" {
		return nil, ErrNoProvider
	}
	c, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("web3: dialing %s: %w", rpcURL, err)
	}
	return &Node{Client: c}, nil
}

// Wallet reports balances and provider state into the store.
type Wallet struct {
	backend Backend
	d       action.Dispatcher
	logger  *zap.Logger
}

// Option configures a Wallet.
type Option func(*Wallet)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Wallet) { w.logger = l }
}

// New creates a Wallet. backend may be nil when no provider is configured.
func New(backend Backend, d action.Dispatcher, opts ...Option) *Wallet {
	w := &Wallet{backend: backend, d: d, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Detect records whether a provider is available.
func (w *Wallet) Detect(ctx context.Context) (bool, error) {
	exist := w.backend != nil
	_, err := w.d.Dispatch(ctx, store.Action{
		Entity:   store.Metamask,
		Op:       store.OpSetExist,
		Metamask: &store.MetamaskState{Exist: exist},
	})
	if err != nil {
		return exist, fmt.Errorf("web3: detect: %w", err)
	}
	return exist, nil
}

// Enable asks the node for its accounts and records them as the enabled
// provider accounts. A failure leaves the provider disabled.
func (w *Wallet) Enable(ctx context.Context) ([]string, error) {
	if w.backend == nil {
		return nil, ErrNoProvider
	}
	base := store.Action{Entity: store.Metamask, Op: store.OpEnable, Token: w.d.IssueToken()}
	initiated := base
	initiated.Status = store.StatusInitiated
	if _, err := w.d.Dispatch(ctx, initiated); err != nil {
		return nil, fmt.Errorf("web3: enable: %w", err)
	}

	result := base
	addrs, err := w.backend.Accounts(ctx)
	if err != nil {
		result.Status = store.StatusFailed
		result.Err = err
		_, _ = w.d.Dispatch(context.WithoutCancel(ctx), result)
		w.logger.Warn("cannot enable provider", zap.Error(err))
		return nil, fmt.Errorf("web3: enable: %w", err)
	}
	accounts := make([]string, len(addrs))
	for i, a := range addrs {
		accounts[i] = a.Hex()
	}
	result.Status = store.StatusSuccess
	result.Metamask = &store.MetamaskState{Accounts: accounts}
	if _, err := w.d.Dispatch(context.WithoutCancel(ctx), result); err != nil {
		return accounts, fmt.Errorf("web3: enable: %w", err)
	}
	return accounts, nil
}

// NetworkID returns the chain's network id and records it in the provider
// settings.
func (w *Wallet) NetworkID(ctx context.Context) (*big.Int, error) {
	if w.backend == nil {
		return nil, ErrNoProvider
	}
	id, err := w.backend.NetworkID(ctx)
	if err != nil {
		return nil, fmt.Errorf("web3: network id: %w", err)
	}
	_, err = w.d.Dispatch(ctx, store.Action{
		Entity:   store.Metamask,
		Op:       store.OpUpdateSettings,
		Metamask: &store.MetamaskState{Settings: map[string]string{"network_id": id.String()}},
	})
	if err != nil {
		return id, fmt.Errorf("web3: network id: %w", err)
	}
	return id, nil
}

// Balance fetches the native balance of address and stores it as a
// BLOCKCHAIN_BALANCES/REQUEST result.
func (w *Wallet) Balance(ctx context.Context, address string) (store.Action, error) {
	act, err := action.Create(ctx, w.d, action.Spec{Entity: ledger.BlockchainBalances, Op: store.OpRequest},
		func(ctx context.Context) (ledger.Balance, error) {
			if w.backend == nil {
				return ledger.Balance{}, ErrNoProvider
			}
			if !common.IsHexAddress(address) {
				return ledger.Balance{}, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
			}
			addr := common.HexToAddress(address)
			wei, err := w.backend.BalanceAt(ctx, addr, nil)
			if err != nil {
				return ledger.Balance{}, fmt.Errorf("web3: balance of %s: %w", addr.Hex(), err)
			}
			return ledger.Balance{
				Address: addr.Hex(),
				Token:   NativeToken,
				Amount:  wei.String(),
				Decimal: NativeDecimal,
			}, nil
		})
	if err != nil {
		w.logger.Warn("balance request failed", zap.String("address", address), zap.Error(err))
	}
	return act, err
}

// EstimateGas estimates the gas needed to send value wei from one address to
// another.
func (w *Wallet) EstimateGas(ctx context.Context, from, to string, value *big.Int) (uint64, error) {
	if w.backend == nil {
		return 0, ErrNoProvider
	}
	for _, a := range []string{from, to} {
		if !common.IsHexAddress(a) {
			return 0, fmt.Errorf("%w: %q", ErrInvalidAddress, a)
		}
	}
	dest := common.HexToAddress(to)
	gas, err := w.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  common.HexToAddress(from),
		To:    &dest,
		Value: value,
	})
	if err != nil {
		return 0, fmt.Errorf("web3: estimate gas: %w", err)
	}
	return gas, nil
}
