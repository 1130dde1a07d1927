package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrSessionExpired is the terminal failure: the refresh token itself was
	// rejected, so no amount of retrying will produce a valid access token.
	ErrSessionExpired = errors.New("session expired")

	// ErrNoSession means the coordinator holds no credentials; the caller
	// must sign in first.
	ErrNoSession = errors.New("no session")
)

// RefreshFunc performs one refresh exchange and returns the new access
// token. A [ErrSessionExpired] return is terminal; any other error is
// treated as transient (network trouble) and does not end the session.
type RefreshFunc func(ctx context.Context, refreshToken string) (string, error)

type coordinatorState int

const (
	stateIdle coordinatorState = iota
	stateRefreshing
)

type renewOutcome struct {
	accessToken string
	err         error
}

// Coordinator serializes refresh exchanges: whatever the request concurrency,
// at most one refresh is in flight, and every caller that hit expiry in the
// meantime resolves with that single exchange's outcome.
type Coordinator struct {
	refresh RefreshFunc
	store   CredentialStore

	signOutHook func()

	mu           sync.Mutex
	state        coordinatorState
	creds        Credentials
	signedOut    bool
	signOutFired bool
	waiters      []chan renewOutcome

	// gen counts session replacements. An in-flight exchange records the
	// generation it started under and discards its outcome if Reset or
	// SetCredentials moved the coordinator on in the meantime.
	gen uint64
}

// CoordinatorConfig wires a [Coordinator].
type CoordinatorConfig struct {
	// Refresh performs the exchange. Required. See [NewHTTPRefresher].
	Refresh RefreshFunc
	// Store persists credentials. When nil an in-memory store is used.
	Store CredentialStore
	// OnSignOut fires exactly once when a terminal refresh failure forces
	// sign-out. Optional. Called outside the coordinator lock.
	OnSignOut func()
}

// NewCoordinator builds a Coordinator seeded from the store's persisted
// credentials.
func NewCoordinator(cfg CoordinatorConfig) (*Coordinator, error) {
	if cfg.Refresh == nil {
		return nil, errors.New("refresh func required")
	}

	store := cfg.Store
	if store == nil {
		store = &MemoryCredentialStore{}
	}

	creds, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}

	return &Coordinator{
		refresh:     cfg.Refresh,
		store:       store,
		signOutHook: cfg.OnSignOut,
		creds:       creds,
	}, nil
}

// SetCredentials installs a fresh pair, typically right after login. It
// clears any previous forced sign-out, supersedes any in-flight exchange,
// and resolves parked waiters with the new access token.
func (c *Coordinator) SetCredentials(creds Credentials) error {
	c.mu.Lock()
	c.creds = creds
	c.signedOut = false
	c.signOutFired = false
	c.state = stateIdle
	c.gen++
	waiters := c.waiters
	c.waiters = nil
	c.mu.Unlock()

	for _, ch := range waiters {
		ch <- renewOutcome{accessToken: creds.AccessToken}
	}
	return c.store.Save(creds)
}

// AccessToken returns the current access token.
func (c *Coordinator) AccessToken() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.signedOut {
		return "", ErrSessionExpired
	}
	if c.creds.AccessToken == "" {
		return "", ErrNoSession
	}
	return c.creds.AccessToken, nil
}

// Renew exchanges the refresh token for a new access token. staleToken is
// the access token the caller just had rejected; if another caller already
// completed a refresh, Renew returns the newer token without a second
// exchange. While an exchange is in flight, callers park on a waiter queue
// and resolve with its outcome; ctx cancellation only unparks the caller,
// it does not abort the shared exchange.
func (c *Coordinator) Renew(ctx context.Context, staleToken string) (string, error) {
	c.mu.Lock()

	if c.signedOut {
		c.mu.Unlock()
		return "", ErrSessionExpired
	}
	if c.creds.RefreshToken == "" {
		c.mu.Unlock()
		return "", ErrNoSession
	}
	if c.creds.AccessToken != "" && c.creds.AccessToken != staleToken {
		token := c.creds.AccessToken
		c.mu.Unlock()
		return token, nil
	}

	if c.state == stateRefreshing {
		ch := make(chan renewOutcome, 1)
		c.waiters = append(c.waiters, ch)
		c.mu.Unlock()

		select {
		case out := <-ch:
			return out.accessToken, out.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	c.state = stateRefreshing
	refreshToken := c.creds.RefreshToken
	gen := c.gen
	c.mu.Unlock()

	accessToken, err := c.refresh(ctx, refreshToken)

	c.mu.Lock()
	if gen != c.gen {
		// Reset or SetCredentials replaced the session while the exchange
		// was in flight. The session that issued refreshToken is gone, so
		// the outcome must not be applied. Waiters were already resolved.
		c.mu.Unlock()
		return "", ErrNoSession
	}
	c.state = stateIdle
	waiters := c.waiters
	c.waiters = nil

	if err != nil {
		fireSignOut := false
		if errors.Is(err, ErrSessionExpired) {
			c.creds = Credentials{}
			c.signedOut = true
			fireSignOut = !c.signOutFired
			c.signOutFired = true
		}
		c.mu.Unlock()

		for _, ch := range waiters {
			ch <- renewOutcome{err: err}
		}
		if fireSignOut {
			_ = c.store.Clear()
			if c.signOutHook != nil {
				c.signOutHook()
			}
		}
		return "", err
	}

	c.creds.AccessToken = accessToken
	creds := c.creds
	c.mu.Unlock()

	// Persistence failure does not invalidate the in-memory session.
	_ = c.store.Save(creds)

	for _, ch := range waiters {
		ch <- renewOutcome{accessToken: accessToken}
	}
	return accessToken, nil
}

// Reset drops all local session state without firing the sign-out hook.
// Use it for a user-initiated logout. The coordinator returns to idle,
// parked waiters resolve with ErrNoSession, and an in-flight exchange is
// discarded when it completes instead of resurrecting the session.
func (c *Coordinator) Reset() error {
	c.mu.Lock()
	c.creds = Credentials{}
	c.signedOut = false
	c.signOutFired = false
	c.state = stateIdle
	c.gen++
	waiters := c.waiters
	c.waiters = nil
	c.mu.Unlock()

	for _, ch := range waiters {
		ch <- renewOutcome{err: ErrNoSession}
	}
	return c.store.Clear()
}
