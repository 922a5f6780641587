package router

import (
	"sync"

	"github.com/jbird-nerd/CalendarCaptureExtension/internal/provider"
)

// State is the session-scoped mutable state held by the dispatcher: key
// validity per vendor and nothing else. It replaces free-floating globals;
// everything that needs it goes through accessors.
type State struct {
	mu          sync.RWMutex
	keyValidity map[provider.Vendor]bool
}

// NewState creates session state. Vendors with a stored credential start
// out assumed valid until an explicit validation pass says otherwise.
func NewState(creds provider.Credentials) *State {
	validity := map[provider.Vendor]bool{}
	for vendor, secret := range creds {
		if secret != "" {
			validity[vendor] = true
		}
	}
	return &State{keyValidity: validity}
}

// KeyValid reports the last known validity for a vendor's credential.
// There is no TTL; the value only changes on an explicit validation pass.
func (s *State) KeyValid(v provider.Vendor) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keyValidity[v]
}

// SetKeyValid records the outcome of an explicit validation pass.
func (s *State) SetKeyValid(v provider.Vendor, valid bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keyValidity[v] = valid
}

// KeyValidity returns a copy of the full validity map.
func (s *State) KeyValidity() map[provider.Vendor]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[provider.Vendor]bool, len(s.keyValidity))
	for v, ok := range s.keyValidity {
		out[v] = ok
	}
	return out
}
