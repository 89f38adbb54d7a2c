package store

import (
	"maps"

	"github.com/smileynet/ledgerdeck/internal/ledger"
)

// CacheEntry is the cached result of one list query.
type CacheEntry struct {
	IDs        []string
	Pagination ledger.Pagination
}

// MetamaskState tracks the Web3 provider as seen by the console.
type MetamaskState struct {
	Exist    bool
	Enabled  bool
	Accounts []string
	Settings map[string]string
}

// State is an immutable snapshot. Reducers never modify maps in place; they copy
// the maps they change, so a State handed out by the store stays valid.
type State struct {
	Entities       map[ledger.Entity]map[string]ledger.Record
	Cache          map[string]CacheEntry
	Loading        map[ledger.Entity]Status
	Tokens         map[string]uint64
	TokenFloor     uint64
	CurrentAccount string
	Metamask       MetamaskState
}

// NewState returns an empty state.
func NewState() State {
	return State{
		Entities: map[ledger.Entity]map[string]ledger.Record{},
		Cache:    map[string]CacheEntry{},
		Loading:  map[ledger.Entity]Status{},
		Tokens:   map[string]uint64{},
	}
}

// Reduce is the root reducer.
func Reduce(s State, a Action) State {
	if IsAccountSwitch(a) {
		s.Entities = ReduceEntities(s.Entities, a)
		s.Cache = ReduceCache(s.Cache, a)
		s.Loading = map[ledger.Entity]Status{}
		s.Tokens = map[string]uint64{}
		if a.Token > s.TokenFloor {
			s.TokenFloor = a.Token
		}
		s.CurrentAccount = a.AccountID
		return s
	}
	if a.Entity == Metamask {
		s.Metamask = reduceMetamask(s.Metamask, a)
		return s
	}
	if isStale(s, a) {
		return s
	}
	s.Tokens = reduceTokens(s.Tokens, a)
	s.Entities = ReduceEntities(s.Entities, a)
	s.Cache = ReduceCache(s.Cache, a)
	s.Loading = reduceLoading(s.Loading, a)
	return s
}

// isStale reports whether a carries a request token older than the latest one
// issued for its cache key, or one issued before the last account switch.
func isStale(s State, a Action) bool {
	if a.Token == 0 {
		return false
	}
	if a.Token <= s.TokenFloor {
		return true
	}
	if a.Status == StatusSuccess || a.Status == StatusFailed {
		if a.CacheKey != "" && s.Tokens[a.CacheKey] > a.Token {
			return true
		}
	}
	return false
}

func reduceTokens(tokens map[string]uint64, a Action) map[string]uint64 {
	if a.Status != StatusInitiated || a.CacheKey == "" || a.Token == 0 {
		return tokens
	}
	if tokens[a.CacheKey] >= a.Token {
		return tokens
	}
	next := maps.Clone(tokens)
	next[a.CacheKey] = a.Token
	return next
}

// ReduceEntities merges successful results into the entity maps and clears
// them all on an account switch.
func ReduceEntities(entities map[ledger.Entity]map[string]ledger.Record, a Action) map[ledger.Entity]map[string]ledger.Record {
	if IsAccountSwitch(a) {
		return map[ledger.Entity]map[string]ledger.Record{}
	}
	if a.Status != StatusSuccess || (len(a.Data) == 0 && a.Record == nil) {
		return entities
	}
	next := maps.Clone(entities)
	records := maps.Clone(entities[a.Entity])
	if records == nil {
		records = map[string]ledger.Record{}
	}
	for _, r := range a.Data {
		records[r.RecordID()] = r
	}
	if a.Record != nil {
		records[a.Record.RecordID()] = a.Record
	}
	next[a.Entity] = records
	return next
}

// ReduceCache records the ids and pagination of a successful list result
// under its cache key, leaving every other key untouched. An account switch
// empties the cache. Failures never change it.
func ReduceCache(cache map[string]CacheEntry, a Action) map[string]CacheEntry {
	if IsAccountSwitch(a) {
		return map[string]CacheEntry{}
	}
	if a.Status != StatusSuccess || a.CacheKey == "" || a.Record != nil {
		return cache
	}
	ids := make([]string, len(a.Data))
	for i, r := range a.Data {
		ids[i] = r.RecordID()
	}
	next := maps.Clone(cache)
	if next == nil {
		next = map[string]CacheEntry{}
	}
	next[a.CacheKey] = CacheEntry{IDs: ids, Pagination: a.Pagination}
	return next
}

func reduceLoading(loading map[ledger.Entity]Status, a Action) map[ledger.Entity]Status {
	switch a.Status {
	case StatusInitiated, StatusSuccess, StatusFailed:
	default:
		return loading
	}
	if a.Op != OpRequest || loading[a.Entity] == a.Status {
		return loading
	}
	next := maps.Clone(loading)
	if next == nil {
		next = map[ledger.Entity]Status{}
	}
	next[a.Entity] = a.Status
	return next
}

func reduceMetamask(m MetamaskState, a Action) MetamaskState {
	switch a.Op {
	case OpSetExist:
		if a.Metamask != nil {
			m.Exist = a.Metamask.Exist
		}
	case OpUpdateSettings:
		if a.Metamask != nil {
			m.Settings = maps.Clone(a.Metamask.Settings)
		}
	case OpEnable:
		if a.Status == StatusSuccess && a.Metamask != nil {
			m.Enabled = true
			m.Accounts = append([]string(nil), a.Metamask.Accounts...)
		}
	}
	return m
}
