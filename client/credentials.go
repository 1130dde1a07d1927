package client

import "sync"

// Credentials is the persisted client-side session state.
type Credentials struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// CredentialStore persists credentials across process restarts. The
// Coordinator saves after every successful refresh and clears on terminal
// failure. Implementations must be safe for concurrent use.
type CredentialStore interface {
	Load() (Credentials, error)
	Save(Credentials) error
	Clear() error
}

// MemoryCredentialStore keeps credentials in process memory. The zero value
// is ready to use.
type MemoryCredentialStore struct {
	mu    sync.Mutex
	creds Credentials
}

func (s *MemoryCredentialStore) Load() (Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds, nil
}

func (s *MemoryCredentialStore) Save(creds Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = creds
	return nil
}

func (s *MemoryCredentialStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = Credentials{}
	return nil
}
