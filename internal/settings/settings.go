// Package settings persists credentials, method selections, and cached
// model lists as a generic key-value style store backed by a JSON file.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jbird-nerd/CalendarCaptureExtension/internal/provider"
)

// StoreFileVersion guards against loading an incompatible settings file.
const StoreFileVersion = 1

// Selection is a persisted (provider, model) pair for one capability.
// Membership of Model in the provider's cached model list is advisory and
// not enforced at store time.
type Selection struct {
	Provider provider.ID `json:"provider"`
	Model    string      `json:"model"`
}

// data is the on-disk shape of the store.
type data struct {
	Version     int                                `json:"version"`
	Credentials map[provider.Vendor]string         `json:"credentials"`
	Selections  map[provider.Capability]Selection  `json:"selections"`
	ModelLists  map[provider.ID][]string           `json:"modelLists"`
	Extra       map[string]string                  `json:"extra,omitempty"`
}

func newData() *data {
	return &data{
		Version:     StoreFileVersion,
		Credentials: map[provider.Vendor]string{},
		Selections:  map[provider.Capability]Selection{},
		ModelLists:  map[provider.ID][]string{},
	}
}

// Store is the configuration store facade. Reads and writes are
// read-modify-write without transactional guarantees; concurrent writers
// race and the last write wins.
type Store struct {
	mu       sync.RWMutex
	data     *data
	filePath string
}

// NewStore creates a store persisting to filePath.
func NewStore(filePath string) *Store {
	return &Store{
		data:     newData(),
		filePath: filePath,
	}
}

// Load reads the settings file. A missing file yields an empty store, not
// an error.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.filePath); os.IsNotExist(err) {
		s.data = newData()
		return nil
	}

	raw, err := os.ReadFile(s.filePath)
	if err != nil {
		return fmt.Errorf("failed to read settings file: %w", err)
	}

	var d data
	if err := json.Unmarshal(raw, &d); err != nil {
		return fmt.Errorf("failed to parse settings file: %w", err)
	}
	if d.Version != StoreFileVersion {
		return fmt.Errorf("unsupported settings file version %d (expected %d)", d.Version, StoreFileVersion)
	}

	if d.Credentials == nil {
		d.Credentials = map[provider.Vendor]string{}
	}
	if d.Selections == nil {
		d.Selections = map[provider.Capability]Selection{}
	}
	if d.ModelLists == nil {
		d.ModelLists = map[provider.ID][]string{}
	}

	s.data = &d
	return nil
}

// Save writes the settings file atomically (temp file + rename).
func (s *Store) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	tmpFile := s.filePath + ".tmp"
	if err := os.WriteFile(tmpFile, raw, 0600); err != nil {
		return fmt.Errorf("failed to write temp settings file: %w", err)
	}
	if err := os.Rename(tmpFile, s.filePath); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to rename temp settings file: %w", err)
	}

	return nil
}

// Credential returns the stored secret for a vendor, "" when absent.
func (s *Store) Credential(v provider.Vendor) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Credentials[v]
}

// SetCredential stores a vendor secret. An empty secret removes the entry.
func (s *Store) SetCredential(v provider.Vendor, secret string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if secret == "" {
		delete(s.data.Credentials, v)
		return
	}
	s.data.Credentials[v] = secret
}

// Credentials returns a copy of all stored vendor secrets.
func (s *Store) Credentials() provider.Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	creds := make(provider.Credentials, len(s.data.Credentials))
	for v, secret := range s.data.Credentials {
		creds[v] = secret
	}
	return creds
}

// HasAnyCredential reports whether at least one vendor secret is stored.
func (s *Store) HasAnyCredential() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data.Credentials) > 0
}

// Selection returns the persisted selection for a capability.
func (s *Store) Selection(c provider.Capability) (Selection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sel, ok := s.data.Selections[c]
	return sel, ok
}

// SetSelection persists the selection for a capability.
func (s *Store) SetSelection(c provider.Capability, sel Selection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Selections[c] = sel
}

// ModelList returns a copy of the cached model list for a provider.
// Order is discovery order; the first entry is the preferred default.
func (s *Store) ModelList(id provider.ID) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	models := s.data.ModelLists[id]
	out := make([]string, len(models))
	copy(out, models)
	return out
}

// SetModelList caches a discovered model list for a provider.
func (s *Store) SetModelList(id provider.ID, models []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(models))
	copy(out, models)
	s.data.ModelLists[id] = out
}

// Get reads a free-form settings key.
func (s *Store) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data.Extra == nil {
		return "", false
	}
	v, ok := s.data.Extra[key]
	return v, ok
}

// Set writes a free-form settings key.
func (s *Store) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.Extra == nil {
		s.data.Extra = map[string]string{}
	}
	s.data.Extra[key] = value
}

// Reset clears all stored settings in memory; Save persists the wipe.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = newData()
}

// LoadOrCreate loads an existing settings file or creates a fresh one.
func LoadOrCreate(filePath string) (*Store, error) {
	store := NewStore(filePath)
	if err := store.Load(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		if err := store.Save(); err != nil {
			return nil, fmt.Errorf("failed to save initial settings: %w", err)
		}
	}
	return store, nil
}
