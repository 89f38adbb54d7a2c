// Package settings describes the blockchain configuration keys the console
// shows and which of them may be edited.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/smileynet/ledgerdeck/internal/ledger"
)

var (
	// ErrUnknownKey indicates a key outside the blockchain settings catalogue.
	ErrUnknownKey = errors.New("settings: unknown key")
	// ErrReadOnly indicates a key that cannot be updated from the console.
	ErrReadOnly = errors.New("settings: key is read-only")
	// ErrNotPositiveInteger is returned by PositiveInteger.
	ErrNotPositiveInteger = errors.New("settings: value must be a positive integer")
)

// Validator checks a raw input value.
type Validator func(value string) error

// Setting is a catalogue entry.
type Setting struct {
	Key         string
	DisplayName string
	ReadOnly    bool
	Validate    Validator
}

// PositiveInteger accepts whole numbers greater than zero.
func PositiveInteger(value string) error {
	n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || n <= 0 || n != float64(int64(n)) {
		return fmt.Errorf("%w: %q", ErrNotPositiveInteger, value)
	}
	return nil
}

var catalogue = []Setting{
	{Key: "blockchain_json_rpc_url", DisplayName: "Blockchain JSON-RPC URL", ReadOnly: true},
	{Key: "blockchain_chain_id", DisplayName: "Blockchain Chain ID", ReadOnly: true},
	{Key: "blockchain_confirmations_threshold", DisplayName: "Blockchain Confirmations Threshold", Validate: PositiveInteger},
	{Key: "blockchain_deposit_pooling_interval", DisplayName: "Blockchain Deposit Polling Interval", Validate: PositiveInteger},
	{Key: "blockchain_transaction_poll_interval", DisplayName: "Blockchain Transaction Poll Interval", Validate: PositiveInteger},
	{Key: "blockchain_state_save_interval", DisplayName: "Blockchain State Save Interval", Validate: PositiveInteger},
	{Key: "blockchain_sync_interval", DisplayName: "Blockchain Sync Interval", Validate: PositiveInteger},
	{Key: "blockchain_poll_interval", DisplayName: "Blockchain Poll Interval", Validate: PositiveInteger},
	{Key: "omisego_childchain_url", DisplayName: "OMG Network Child Chain URL", ReadOnly: true},
	{Key: "omisego_erc20_vault_address", DisplayName: "OMG Network ERC20 Vault Address", ReadOnly: true},
	{Key: "omisego_eth_vault_address", DisplayName: "OMG Network ETH Vault Address", ReadOnly: true},
	{Key: "omisego_plasma_framework_address", DisplayName: "OMG Network Plasma Framework Address", ReadOnly: true},
	{Key: "omisego_watcher_url", DisplayName: "OMG Network Information Service URL", ReadOnly: true},
}

// Catalogue returns every known setting.
func Catalogue() []Setting {
	return append([]Setting(nil), catalogue...)
}

// Lookup returns the catalogue entry for key.
func Lookup(key string) (Setting, bool) {
	for _, s := range catalogue {
		if s.Key == key {
			return s, true
		}
	}
	return Setting{}, false
}

// Row is a configuration value paired with its catalogue entry.
type Row struct {
	Setting
	Description string
	Value       string
	Position    int
}

// Rows picks the catalogued keys out of configs, sorted by position.
func Rows(configs []ledger.Configuration) []Row {
	var rows []Row
	for _, c := range configs {
		s, ok := Lookup(c.Key)
		if !ok {
			continue
		}
		rows = append(rows, Row{
			Setting:     s,
			Description: c.Description,
			Value:       DisplayValue(c.Value),
			Position:    c.Position,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Position < rows[j].Position })
	return rows
}

// DisplayValue renders a raw JSON value: strings unquoted, null as empty.
func DisplayValue(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// ValidateUpdate checks that key may be set to value and returns the value to
// send: integers for validated numeric keys.
func ValidateUpdate(key, value string) (any, error) {
	s, ok := Lookup(key)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	if s.ReadOnly {
		return nil, fmt.Errorf("%w: %s", ErrReadOnly, key)
	}
	if s.Validate != nil {
		if err := s.Validate(value); err != nil {
			return nil, fmt.Errorf("settings: %s: %w", key, err)
		}
		n, _ := strconv.ParseFloat(strings.TrimSpace(value), 64)
		return int64(n), nil
	}
	return value, nil
}
