package store

import (
	"sort"

	"github.com/smileynet/ledgerdeck/internal/ledger"
)

// Lookup returns the cache entry for key. A missing key yields an entry with
// no ids rather than an error.
func Lookup(s State, key string) CacheEntry {
	entry, ok := s.Cache[key]
	if !ok {
		return CacheEntry{IDs: []string{}}
	}
	return entry
}

// KeysForEntity lists every cache key recorded for entity, sorted.
func KeysForEntity(s State, entity ledger.Entity) []string {
	var keys []string
	for key := range s.Cache {
		e, _, err := ParseCacheKey(key)
		if err != nil || e != entity {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// SelectCached resolves the ids cached under key to records of type T.
// Ids whose record is no longer present are skipped.
func SelectCached[T ledger.Record](s State, entity ledger.Entity, key string) ([]T, ledger.Pagination) {
	entry := Lookup(s, key)
	records := s.Entities[entity]
	out := make([]T, 0, len(entry.IDs))
	for _, id := range entry.IDs {
		if r, ok := records[id].(T); ok {
			out = append(out, r)
		}
	}
	return out, entry.Pagination
}

// SelectByID returns the record of entity with the given id.
func SelectByID[T ledger.Record](s State, entity ledger.Entity, id string) (T, bool) {
	r, ok := s.Entities[entity][id].(T)
	return r, ok
}

// SelectAll returns every record of entity, sorted by id.
func SelectAll[T ledger.Record](s State, entity ledger.Entity) []T {
	records := s.Entities[entity]
	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if r, ok := records[id].(T); ok {
			out = append(out, r)
		}
	}
	return out
}

// LoadingStatus returns the request status of entity, DEFAULT if none.
func LoadingStatus(s State, entity ledger.Entity) Status {
	if st, ok := s.Loading[entity]; ok {
		return st
	}
	return StatusDefault
}
