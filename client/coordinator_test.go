package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRenewSingleFlight(t *testing.T) {
	var exchanges atomic.Int64
	started := make(chan struct{})
	release := make(chan struct{})

	refresh := func(ctx context.Context, refreshToken string) (string, error) {
		if n := exchanges.Add(1); n == 1 {
			close(started)
		}
		<-release
		return "access-2", nil
	}

	coord, err := NewCoordinator(CoordinatorConfig{Refresh: refresh})
	if err != nil {
		t.Fatalf("new coordinator failed: %v", err)
	}
	if err := coord.SetCredentials(Credentials{AccessToken: "access-1", RefreshToken: "refresh-1"}); err != nil {
		t.Fatalf("set credentials failed: %v", err)
	}

	const callers = 16
	results := make(chan string, callers)
	errs := make(chan error, callers)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		tok, err := coord.Renew(context.Background(), "access-1")
		if err != nil {
			errs <- err
			return
		}
		results <- tok
	}()

	// Wait until the leader is inside the exchange, then pile on waiters.
	<-started
	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := coord.Renew(context.Background(), "access-1")
			if err != nil {
				errs <- err
				return
			}
			results <- tok
		}()
	}

	// Give the waiters time to park before releasing the exchange.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		t.Fatalf("renew failed: %v", err)
	}
	count := 0
	for tok := range results {
		count++
		if tok != "access-2" {
			t.Fatalf("expected access-2, got %q", tok)
		}
	}
	if count != callers {
		t.Fatalf("expected %d resolutions, got %d", callers, count)
	}
	if got := exchanges.Load(); got != 1 {
		t.Fatalf("expected exactly 1 refresh exchange, got %d", got)
	}
}

func TestRenewStaleTokenShortCircuits(t *testing.T) {
	var exchanges atomic.Int64
	refresh := func(ctx context.Context, refreshToken string) (string, error) {
		exchanges.Add(1)
		return "access-2", nil
	}

	coord, err := NewCoordinator(CoordinatorConfig{Refresh: refresh})
	if err != nil {
		t.Fatalf("new coordinator failed: %v", err)
	}
	_ = coord.SetCredentials(Credentials{AccessToken: "access-1", RefreshToken: "refresh-1"})

	if _, err := coord.Renew(context.Background(), "access-1"); err != nil {
		t.Fatalf("renew failed: %v", err)
	}

	// A straggler still holding the old token gets the fresh one without a
	// second exchange.
	tok, err := coord.Renew(context.Background(), "access-1")
	if err != nil {
		t.Fatalf("straggler renew failed: %v", err)
	}
	if tok != "access-2" {
		t.Fatalf("expected access-2, got %q", tok)
	}
	if got := exchanges.Load(); got != 1 {
		t.Fatalf("expected 1 exchange, got %d", got)
	}
}

func TestRenewTerminalFailureSignsOutOnce(t *testing.T) {
	var signOuts atomic.Int64
	store := &MemoryCredentialStore{}

	release := make(chan struct{})
	refresh := func(ctx context.Context, refreshToken string) (string, error) {
		<-release
		return "", ErrSessionExpired
	}

	coord, err := NewCoordinator(CoordinatorConfig{
		Refresh:   refresh,
		Store:     store,
		OnSignOut: func() { signOuts.Add(1) },
	})
	if err != nil {
		t.Fatalf("new coordinator failed: %v", err)
	}
	_ = coord.SetCredentials(Credentials{AccessToken: "access-1", RefreshToken: "refresh-1"})

	const callers = 8
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := coord.Renew(context.Background(), "access-1")
			errs <- err
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if !errors.Is(err, ErrSessionExpired) {
			t.Fatalf("expected ErrSessionExpired for every caller, got %v", err)
		}
	}
	if got := signOuts.Load(); got != 1 {
		t.Fatalf("expected sign-out hook to fire once, got %d", got)
	}

	creds, err := store.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if creds != (Credentials{}) {
		t.Fatalf("expected cleared store, got %+v", creds)
	}

	// No retry loop: further renewals fail immediately.
	if _, err := coord.Renew(context.Background(), "access-1"); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected immediate ErrSessionExpired after sign-out, got %v", err)
	}
	if _, err := coord.AccessToken(); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected AccessToken to report expired session, got %v", err)
	}
}

func TestRenewTransientFailureDoesNotSignOut(t *testing.T) {
	var signOuts atomic.Int64
	transient := errors.New("connection refused")
	refresh := func(ctx context.Context, refreshToken string) (string, error) {
		return "", transient
	}

	coord, err := NewCoordinator(CoordinatorConfig{
		Refresh:   refresh,
		OnSignOut: func() { signOuts.Add(1) },
	})
	if err != nil {
		t.Fatalf("new coordinator failed: %v", err)
	}
	_ = coord.SetCredentials(Credentials{AccessToken: "access-1", RefreshToken: "refresh-1"})

	if _, err := coord.Renew(context.Background(), "access-1"); !errors.Is(err, transient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if signOuts.Load() != 0 {
		t.Fatal("transient failure must not force sign-out")
	}

	// The session survives; a later renew can succeed.
	if tok, err := coord.AccessToken(); err != nil || tok != "access-1" {
		t.Fatalf("expected access-1 to survive, got %q, %v", tok, err)
	}
}

func TestRenewWaiterCancellation(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	refresh := func(ctx context.Context, refreshToken string) (string, error) {
		close(started)
		<-release
		return "access-2", nil
	}

	coord, err := NewCoordinator(CoordinatorConfig{Refresh: refresh})
	if err != nil {
		t.Fatalf("new coordinator failed: %v", err)
	}
	_ = coord.SetCredentials(Credentials{AccessToken: "access-1", RefreshToken: "refresh-1"})

	go func() {
		_, _ = coord.Renew(context.Background(), "access-1")
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	waiterErr := make(chan error, 1)
	go func() {
		_, err := coord.Renew(ctx, "access-1")
		waiterErr <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-waiterErr:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("cancelled waiter did not return")
	}

	// The shared exchange still completes for everyone else.
	close(release)
	tok, err := coord.Renew(context.Background(), "access-1")
	if err != nil {
		t.Fatalf("renew after cancellation failed: %v", err)
	}
	if tok != "access-2" {
		t.Fatalf("expected access-2, got %q", tok)
	}
}

func TestRenewWithoutSession(t *testing.T) {
	coord, err := NewCoordinator(CoordinatorConfig{
		Refresh: func(context.Context, string) (string, error) {
			return "", fmt.Errorf("must not be called")
		},
	})
	if err != nil {
		t.Fatalf("new coordinator failed: %v", err)
	}

	if _, err := coord.Renew(context.Background(), ""); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	if _, err := coord.AccessToken(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestSignInAfterForcedSignOut(t *testing.T) {
	var signOuts atomic.Int64
	fail := true
	refresh := func(ctx context.Context, refreshToken string) (string, error) {
		if fail {
			return "", ErrSessionExpired
		}
		return "access-2", nil
	}

	coord, err := NewCoordinator(CoordinatorConfig{
		Refresh:   refresh,
		OnSignOut: func() { signOuts.Add(1) },
	})
	if err != nil {
		t.Fatalf("new coordinator failed: %v", err)
	}
	_ = coord.SetCredentials(Credentials{AccessToken: "a1", RefreshToken: "r1"})

	if _, err := coord.Renew(context.Background(), "a1"); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected terminal failure, got %v", err)
	}

	// New login restores the session; the next terminal failure fires the
	// hook again.
	fail = false
	_ = coord.SetCredentials(Credentials{AccessToken: "a2", RefreshToken: "r2"})
	if tok, err := coord.Renew(context.Background(), "a2"); err != nil || tok != "access-2" {
		t.Fatalf("renew after re-login failed: %q, %v", tok, err)
	}

	fail = true
	if _, err := coord.Renew(context.Background(), "access-2"); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected terminal failure, got %v", err)
	}
	if got := signOuts.Load(); got != 2 {
		t.Fatalf("expected 2 sign-outs across 2 sessions, got %d", got)
	}
}

func TestResetDuringInFlightRenew(t *testing.T) {
	store := &MemoryCredentialStore{}
	started := make(chan struct{})
	release := make(chan struct{})
	refresh := func(ctx context.Context, refreshToken string) (string, error) {
		close(started)
		<-release
		return "access-2", nil
	}

	coord, err := NewCoordinator(CoordinatorConfig{Refresh: refresh, Store: store})
	if err != nil {
		t.Fatalf("new coordinator failed: %v", err)
	}
	_ = coord.SetCredentials(Credentials{AccessToken: "access-1", RefreshToken: "refresh-1"})

	leaderErr := make(chan error, 1)
	go func() {
		_, err := coord.Renew(context.Background(), "access-1")
		leaderErr <- err
	}()
	<-started

	waiterErr := make(chan error, 1)
	go func() {
		_, err := coord.Renew(context.Background(), "access-1")
		waiterErr <- err
	}()
	time.Sleep(20 * time.Millisecond)

	// Logout while the exchange is still blocked. The parked waiter must
	// resolve right away instead of hanging on the abandoned exchange.
	if err := coord.Reset(); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	select {
	case err := <-waiterErr:
		if !errors.Is(err, ErrNoSession) {
			t.Fatalf("expected ErrNoSession for parked waiter, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("waiter still parked after reset")
	}

	// Letting the exchange finish must not resurrect the session.
	close(release)
	if err := <-leaderErr; !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession for superseded leader, got %v", err)
	}
	if _, err := coord.AccessToken(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected no session after reset, got %v", err)
	}
	creds, err := store.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if creds != (Credentials{}) {
		t.Fatalf("store must stay clear after reset, got %+v", creds)
	}
}

func TestSetCredentialsSupersedesInFlightRenew(t *testing.T) {
	store := &MemoryCredentialStore{}
	started := make(chan struct{})
	release := make(chan struct{})
	refresh := func(ctx context.Context, refreshToken string) (string, error) {
		close(started)
		<-release
		return "stale-access", nil
	}

	coord, err := NewCoordinator(CoordinatorConfig{Refresh: refresh, Store: store})
	if err != nil {
		t.Fatalf("new coordinator failed: %v", err)
	}
	_ = coord.SetCredentials(Credentials{AccessToken: "access-1", RefreshToken: "refresh-1"})

	leaderErr := make(chan error, 1)
	go func() {
		_, err := coord.Renew(context.Background(), "access-1")
		leaderErr <- err
	}()
	<-started

	waiterTok := make(chan string, 1)
	go func() {
		tok, err := coord.Renew(context.Background(), "access-1")
		if err != nil {
			t.Errorf("waiter renew failed: %v", err)
		}
		waiterTok <- tok
	}()
	time.Sleep(20 * time.Millisecond)

	// A fresh login replaces the session; parked waiters get the new token.
	_ = coord.SetCredentials(Credentials{AccessToken: "access-new", RefreshToken: "refresh-new"})
	select {
	case tok := <-waiterTok:
		if tok != "access-new" {
			t.Fatalf("expected waiter to get access-new, got %q", tok)
		}
	case <-time.After(time.Second):
		t.Fatal("waiter still parked after new login")
	}

	// The old exchange completing must not clobber the new session.
	close(release)
	if err := <-leaderErr; !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession for superseded leader, got %v", err)
	}
	if tok, err := coord.AccessToken(); err != nil || tok != "access-new" {
		t.Fatalf("expected access-new to survive, got %q, %v", tok, err)
	}
	creds, err := store.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if creds.AccessToken != "access-new" {
		t.Fatalf("expected access-new persisted, got %+v", creds)
	}
}

func TestCoordinatorSeedsFromStore(t *testing.T) {
	store := &MemoryCredentialStore{}
	if err := store.Save(Credentials{AccessToken: "persisted-a", RefreshToken: "persisted-r"}); err != nil {
		t.Fatalf("seed store failed: %v", err)
	}

	coord, err := NewCoordinator(CoordinatorConfig{
		Refresh: func(context.Context, string) (string, error) { return "", nil },
		Store:   store,
	})
	if err != nil {
		t.Fatalf("new coordinator failed: %v", err)
	}

	tok, err := coord.AccessToken()
	if err != nil {
		t.Fatalf("access token failed: %v", err)
	}
	if tok != "persisted-a" {
		t.Fatalf("expected persisted token, got %q", tok)
	}
}
