package store

import (
	"encoding/json"
	"fmt"

	"github.com/smileynet/ledgerdeck/internal/ledger"
)

// Query is the set of list parameters a cache key is derived from.
type Query struct {
	Page     int                `json:"page,omitempty"`
	PerPage  int                `json:"perPage,omitempty"`
	Search   string             `json:"search,omitempty"`
	SortBy   string             `json:"sortBy,omitempty"`
	SortDir  string             `json:"sortDir,omitempty"`
	MatchAll []ledger.Condition `json:"matchAll,omitempty"`
	MatchAny []ledger.Condition `json:"matchAny,omitempty"`
	Params   map[string]string  `json:"params,omitempty"`
}

// WithPage returns a copy of q for another page.
func (q Query) WithPage(page int) Query {
	q.Page = page
	return q
}

type keyedQuery struct {
	Query
	Entity ledger.Entity `json:"entity"`
}

// CacheKey serializes q together with the entity name. Struct fields encode in
// declaration order and map keys sorted, so equal queries give equal keys.
func CacheKey(entity ledger.Entity, q Query) string {
	b, err := json.Marshal(keyedQuery{Query: q, Entity: entity})
	if err != nil {
		// Only reachable with unencodable condition values.
		return fmt.Sprintf("%s:%v", entity, q)
	}
	return string(b)
}

// ParseCacheKey recovers the entity and query from a key built by CacheKey.
func ParseCacheKey(key string) (ledger.Entity, Query, error) {
	var kq keyedQuery
	if err := json.Unmarshal([]byte(key), &kq); err != nil {
		return "", Query{}, fmt.Errorf("store: parsing cache key: %w", err)
	}
	return kq.Entity, kq.Query, nil
}
