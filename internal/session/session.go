// Package session persists the console session between runs.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/smileynet/ledgerdeck/internal/ledger"
	"github.com/smileynet/ledgerdeck/internal/store"
)

// DefaultProfile names the session used when no admin user is configured.
const DefaultProfile = "default"

// Session is what the console remembers for one profile.
type Session struct {
	Profile   string                        `json:"profile"`
	AccountID string                        `json:"account_id,omitempty"`
	Entity    ledger.Entity                 `json:"entity,omitempty"`
	Queries   map[ledger.Entity]store.Query `json:"queries,omitempty"`
	SavedAt   time.Time                     `json:"saved_at"`
}

// Query returns the last query used for entity, or the zero Query.
func (s Session) Query(entity ledger.Entity) store.Query {
	return s.Queries[entity]
}

// Remember records q as the last query for entity.
func (s *Session) Remember(entity ledger.Entity, q store.Query) {
	if s.Queries == nil {
		s.Queries = map[ledger.Entity]store.Query{}
	}
	s.Queries[entity] = q
	s.Entity = entity
}

// FileStore persists sessions as JSON files under a base directory.
type FileStore struct {
	baseDir string
	now     func() time.Time
}

// NewFileStore creates a FileStore that saves sessions under baseDir.
func NewFileStore(baseDir string) *FileStore {
	return &FileStore{baseDir: baseDir, now: time.Now}
}

// Save writes s to a JSON file named by its profile and stamps SavedAt.
func (fs *FileStore) Save(s Session) error {
	p, err := fs.path(s.Profile)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(fs.baseDir, 0o700); err != nil {
		return fmt.Errorf("session: creating directory: %w", err)
	}

	s.SavedAt = fs.now().UTC()
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("session: marshaling: %w", err)
	}

	// Replaced atomically; readers never see a partial file.
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("session: writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return fmt.Errorf("session: replacing %s: %w", p, err)
	}
	return nil
}

// Load reads the session for profile.
// Returns (session, true, nil) if found, (zero, false, nil) if not found.
func (fs *FileStore) Load(profile string) (Session, bool, error) {
	p, err := fs.path(profile)
	if err != nil {
		return Session{}, false, err
	}

	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Session{}, false, nil
		}
		return Session{}, false, fmt.Errorf("session: reading %s: %w", p, err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, false, fmt.Errorf("session: parsing %s: %w", p, err)
	}
	return s, true, nil
}

// Remove deletes the session file for profile.
func (fs *FileStore) Remove(profile string) error {
	p, err := fs.path(profile)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("session: removing %s: %w", p, err)
	}
	return nil
}

// ErrInvalidProfile indicates a profile name is empty or contains path traversal components.
var ErrInvalidProfile = errors.New("session: invalid profile")

// path returns the filesystem path for a profile's session file.
// It rejects names that are empty, dot-segments, or contain path separators.
func (fs *FileStore) path(profile string) (string, error) {
	if profile == "" || profile == "." || profile == ".." || profile != filepath.Base(profile) {
		return "", fmt.Errorf("%w: %q", ErrInvalidProfile, profile)
	}
	return filepath.Join(fs.baseDir, profile+".json"), nil
}

// InitialState returns a store state that starts on the session's account.
func InitialState(s Session) store.State {
	st := store.NewState()
	st.CurrentAccount = s.AccountID
	return st
}
