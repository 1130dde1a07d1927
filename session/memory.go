package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps session records in process memory. This is the baseline
// deployment shape: one dashboard process, explicit ownership, no external
// state. The limitation is deliberate: revocation does not propagate across
// instances.
type MemoryStore struct {
	now func() time.Time

	mu          sync.Mutex
	byToken     map[string]Record
	byPrincipal map[string]map[string]struct{}
}

// NewMemoryStore returns an empty store. now supplies the expiry clock and
// defaults to time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		now:         now,
		byToken:     make(map[string]Record),
		byPrincipal: make(map[string]map[string]struct{}),
	}
}

// Register implements [Store].
func (s *MemoryStore) Register(_ context.Context, rec Record) error {
	if !rec.ExpiresAt.After(s.now()) {
		// Already dead on arrival; it would never pass Valid.
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.byToken[rec.TokenID] = rec
	set, ok := s.byPrincipal[rec.PrincipalID]
	if !ok {
		set = make(map[string]struct{})
		s.byPrincipal[rec.PrincipalID] = set
	}
	set[rec.TokenID] = struct{}{}
	return nil
}

// Valid implements [Store].
func (s *MemoryStore) Valid(_ context.Context, principalID, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byToken[tokenID]
	if !ok || rec.PrincipalID != principalID {
		return false, nil
	}
	return rec.ExpiresAt.After(s.now()), nil
}

// Revoke implements [Store].
func (s *MemoryStore) Revoke(_ context.Context, tokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dropLocked(tokenID)
	return nil
}

// RevokeAll implements [Store].
func (s *MemoryStore) RevokeAll(_ context.Context, principalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for tokenID := range s.byPrincipal[principalID] {
		delete(s.byToken, tokenID)
	}
	delete(s.byPrincipal, principalID)
	return nil
}

// SweepExpired implements [Store]. Expiry is re-checked under the same lock
// that guards Register, so a concurrent insert with a fresh deadline can never
// be lost to a sweep that read the old one.
func (s *MemoryStore) SweepExpired(_ context.Context) (int, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for tokenID, rec := range s.byToken {
		if rec.ExpiresAt.After(now) {
			continue
		}
		s.dropLocked(tokenID)
		removed++
	}
	return removed, nil
}

// Len reports the number of live records. Test and diagnostics helper.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byToken)
}

func (s *MemoryStore) dropLocked(tokenID string) {
	rec, ok := s.byToken[tokenID]
	if !ok {
		return
	}
	delete(s.byToken, tokenID)
	if set, ok := s.byPrincipal[rec.PrincipalID]; ok {
		delete(set, tokenID)
		if len(set) == 0 {
			delete(s.byPrincipal, rec.PrincipalID)
		}
	}
}
