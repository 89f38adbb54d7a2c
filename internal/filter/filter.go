// Package filter builds match_all / match_any conditions from the advanced
// transaction filters.
package filter

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/smileynet/ledgerdeck/internal/ledger"
	"github.com/smileynet/ledgerdeck/internal/store"
)

// ErrUnknownFilter indicates a filter key that is not configured.
var ErrUnknownFilter = errors.New("filter: unknown filter")

// Kind selects how a filter's values become conditions.
type Kind string

const (
	// KindToken matches one token symbol.
	KindToken Kind = "select-token"
	// KindAccount matches one account id.
	KindAccount Kind = "select-account"
	// KindMultiSelect matches any of several values.
	KindMultiSelect Kind = "multi-select"
	// KindTransferTo matches the destination by account or user id, or by
	// wallet address.
	KindTransferTo Kind = "transfer-to"
)

// Config is one available filter.
type Config struct {
	Key     string
	Title   string
	Kind    Kind
	Field   string
	Options []string
}

// TransactionFilters are the filters offered on the transactions page.
func TransactionFilters() []Config {
	return []Config{
		{Key: "token", Title: "Token", Kind: KindToken, Field: "from_token.symbol"},
		{Key: "account", Title: "Account", Kind: KindAccount, Field: "from_account.id"},
		{Key: "status", Title: "Status", Kind: KindMultiSelect, Field: "status", Options: []string{"pending", "confirmed", "failed"}},
		{Key: "to", Title: "Transfer to", Kind: KindTransferTo},
	}
}

// Set holds the current value of each configured filter.
type Set struct {
	configs []Config
	values  map[string][]string
}

// NewSet creates an empty Set over configs.
func NewSet(configs []Config) *Set {
	return &Set{configs: configs, values: map[string][]string{}}
}

func (s *Set) config(key string) (Config, bool) {
	for _, c := range s.configs {
		if c.Key == key {
			return c, true
		}
	}
	return Config{}, false
}

// Update sets key's values. Empty values clear the key. Single-value filters
// keep only the first value; multi-select values must be among the options.
func (s *Set) Update(key string, values ...string) error {
	c, ok := s.config(key)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownFilter, key)
	}
	var kept []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		s.Clear(key)
		return nil
	}
	if c.Kind == KindMultiSelect {
		for _, v := range kept {
			if len(c.Options) > 0 && !slices.Contains(c.Options, v) {
				return fmt.Errorf("filter: %s: %q is not one of %v", key, v, c.Options)
			}
		}
	} else {
		kept = kept[:1]
	}
	s.values[key] = kept
	return nil
}

// Clear removes key's value.
func (s *Set) Clear(key string) {
	delete(s.values, key)
}

// Values returns a copy of the current values.
func (s *Set) Values() map[string][]string {
	out := make(map[string][]string, len(s.values))
	for k, v := range s.values {
		out[k] = slices.Clone(v)
	}
	return out
}

// Conditions returns the match_all and match_any clauses for the current
// values, in filter order.
func (s *Set) Conditions() (matchAll, matchAny []ledger.Condition) {
	for _, c := range s.configs {
		values := s.values[c.Key]
		if len(values) == 0 {
			continue
		}
		switch c.Kind {
		case KindMultiSelect:
			for _, v := range values {
				matchAny = append(matchAny, ledger.Condition{Field: c.Field, Comparator: "eq", Value: v})
			}
		case KindTransferTo:
			matchAll = append(matchAll, ledger.Condition{Field: transferField(values[0]), Comparator: "eq", Value: values[0]})
		default:
			matchAll = append(matchAll, ledger.Condition{Field: c.Field, Comparator: "eq", Value: values[0]})
		}
	}
	return matchAll, matchAny
}

// Apply returns q with the filter conditions and the first page.
func (s *Set) Apply(q store.Query) store.Query {
	q.MatchAll, q.MatchAny = s.Conditions()
	if q.Page > 0 {
		q.Page = 1
	}
	return q
}

func transferField(v string) string {
	switch {
	case strings.HasPrefix(v, "acc_"):
		return "to_account.id"
	case strings.HasPrefix(v, "usr_"):
		return "to_user.id"
	default:
		return "to_wallet.address"
	}
}
