package tokengate

import (
	"context"
	"errors"
	"fmt"
	"time"

	internalaudit "tokengate/internal/audit"
	"tokengate/internal/flows"
	"tokengate/session"
	"tokengate/token"
)

// Audit event types emitted by the Engine.
const (
	auditPairIssued = "token.pair_issued"
	auditVerify     = "token.verify"
	auditRefresh    = "token.refresh"
	auditLogout     = "session.logout"
	auditLogoutAll  = "session.logout_all"
)

// Engine is the token lifecycle authority: it issues access/refresh pairs,
// verifies access tokens statelessly, exchanges refresh tokens, and revokes
// sessions. Construct it through [Builder.Build]. All methods are safe for
// concurrent use.
type Engine struct {
	config   Config
	codec    *token.Codec
	store    session.Store
	provider PrincipalProvider
	now      func() time.Time

	audit   *internalaudit.Dispatcher
	metrics *Metrics
	sweeper *session.Sweeper
}

// IssuePair issues a fresh access/refresh token pair for the principal and
// registers the refresh token's session record. The caller has already
// authenticated the principal; the Engine does not check credentials.
func (e *Engine) IssuePair(ctx context.Context, p Principal) (TokenPair, error) {
	if e == nil {
		return TokenPair{}, ErrEngineNotReady
	}

	sub := p.subject()

	access, accessClaims, err := e.codec.Encode(token.KindAccess, sub, e.config.Token.AccessTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("encode access token: %w", err)
	}

	refresh, refreshClaims, err := e.codec.Encode(token.KindRefresh, sub, e.config.Token.RefreshTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("encode refresh token: %w", err)
	}

	err = e.store.Register(ctx, session.Record{
		PrincipalID: p.ID,
		TokenID:     refreshClaims.TokenID,
		IssuedAt:    refreshClaims.IssuedAt,
		ExpiresAt:   refreshClaims.ExpiresAt,
	})
	if err != nil {
		// An unregistered refresh token is dead on arrival; do not hand it out.
		e.emit(ctx, auditPairIssued, p.ID, refreshClaims.TokenID, false, err)
		return TokenPair{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metrics.Inc(MetricPairIssued)
	e.emit(ctx, auditPairIssued, p.ID, refreshClaims.TokenID, true, nil)

	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessClaims.ExpiresAt,
		RefreshExpiresAt: refreshClaims.ExpiresAt,
	}, nil
}

// VerifyAccess validates an access token and returns the authenticated
// principal. This is the per-request hot path: it is purely computational
// plus one principal lookup, and never consults the session store, so a
// revoked session's access token keeps verifying until it expires.
func (e *Engine) VerifyAccess(ctx context.Context, accessToken string) (AuthResult, error) {
	if e == nil {
		return AuthResult{}, ErrEngineNotReady
	}

	res := flows.RunVerify(ctx, accessToken, flows.VerifyDeps{
		DecodeAccess:      func(s string) (*token.Claims, error) { return e.codec.Decode(s, token.KindAccess) },
		PrincipalActive:   e.principalActive,
		PrincipalNotFound: ErrPrincipalNotFound,
	})

	switch res.Failure {
	case flows.VerifyFailureNone:
		e.metrics.Inc(MetricVerifySuccess)
		return AuthResult{
			Principal: principalFromSubject(res.Claims.Subject),
			TokenID:   res.Claims.TokenID,
			ExpiresAt: res.Claims.ExpiresAt,
		}, nil

	case flows.VerifyFailureExpired:
		e.metrics.Inc(MetricVerifyExpired)
		return AuthResult{}, fmt.Errorf("%w: %w", ErrTokenExpired, res.Err)

	case flows.VerifyFailureMalformed:
		e.metrics.Inc(MetricVerifyFailure)
		return AuthResult{}, fmt.Errorf("%w: %w", ErrTokenInvalid, res.Err)

	case flows.VerifyFailurePrincipalNotFound:
		e.metrics.Inc(MetricVerifyFailure)
		e.emit(ctx, auditVerify, res.Claims.Subject.PrincipalID, res.Claims.TokenID, false, res.Err)
		return AuthResult{}, fmt.Errorf("%w: %v", ErrPrincipalNotFound, res.Err)

	case flows.VerifyFailurePrincipalInactive:
		e.metrics.Inc(MetricVerifyFailure)
		e.emit(ctx, auditVerify, res.Claims.Subject.PrincipalID, res.Claims.TokenID, false, ErrPrincipalInactive)
		return AuthResult{}, ErrPrincipalInactive

	default:
		e.metrics.Inc(MetricVerifyFailure)
		return AuthResult{}, fmt.Errorf("principal lookup: %w", res.Err)
	}
}

// Refresh exchanges a valid, unrevoked refresh token for a fresh access
// token. The refresh token is not rotated: the same token stays usable until
// its own expiry or revocation.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (AccessGrant, error) {
	if e == nil {
		return AccessGrant{}, ErrEngineNotReady
	}

	res := flows.RunRefresh(ctx, refreshToken, flows.RefreshDeps{
		DecodeRefresh:     func(s string) (*token.Claims, error) { return e.codec.Decode(s, token.KindRefresh) },
		SessionValid:      e.store.Valid,
		PrincipalActive:   e.principalActive,
		PrincipalNotFound: ErrPrincipalNotFound,
		IssueAccess: func(sub token.Subject) (string, *token.Claims, error) {
			return e.codec.Encode(token.KindAccess, sub, e.config.Token.AccessTTL)
		},
	})

	switch res.Failure {
	case flows.RefreshFailureNone:
		e.metrics.Inc(MetricRefreshSuccess)
		e.emit(ctx, auditRefresh, res.PrincipalID, res.TokenID, true, nil)
		return AccessGrant{
			AccessToken:     res.AccessToken,
			AccessExpiresAt: res.AccessExpiresAt,
		}, nil

	case flows.RefreshFailureDecode:
		e.metrics.Inc(MetricRefreshFailure)
		if errors.Is(res.Err, token.ErrExpired) {
			return AccessGrant{}, fmt.Errorf("%w: %w", ErrTokenExpired, res.Err)
		}
		return AccessGrant{}, fmt.Errorf("%w: %w", ErrTokenInvalid, res.Err)

	case flows.RefreshFailureSessionRevoked:
		e.metrics.Inc(MetricRefreshRevoked)
		e.emit(ctx, auditRefresh, res.PrincipalID, res.TokenID, false, ErrSessionRevoked)
		return AccessGrant{}, ErrSessionRevoked

	case flows.RefreshFailureStoreUnavailable:
		e.metrics.Inc(MetricRefreshFailure)
		return AccessGrant{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Err)

	case flows.RefreshFailurePrincipalNotFound:
		e.metrics.Inc(MetricRefreshFailure)
		e.emit(ctx, auditRefresh, res.PrincipalID, res.TokenID, false, res.Err)
		return AccessGrant{}, fmt.Errorf("%w: %v", ErrPrincipalNotFound, res.Err)

	case flows.RefreshFailurePrincipalInactive:
		e.metrics.Inc(MetricRefreshFailure)
		e.emit(ctx, auditRefresh, res.PrincipalID, res.TokenID, false, ErrPrincipalInactive)
		return AccessGrant{}, ErrPrincipalInactive

	default:
		e.metrics.Inc(MetricRefreshFailure)
		return AccessGrant{}, fmt.Errorf("refresh: %w", res.Err)
	}
}

// Logout revokes the presented refresh token. Other devices' sessions are
// untouched. Outstanding access tokens remain valid until expiry.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	res := flows.RunLogout(ctx, refreshToken, e.logoutDeps())

	switch res.Failure {
	case flows.LogoutFailureNone:
		e.metrics.Inc(MetricLogout)
		e.emit(ctx, auditLogout, res.PrincipalID, res.TokenID, true, nil)
		return nil
	case flows.LogoutFailureDecode:
		if errors.Is(res.Err, token.ErrExpired) {
			return fmt.Errorf("%w: %w", ErrTokenExpired, res.Err)
		}
		return fmt.Errorf("%w: %w", ErrTokenInvalid, res.Err)
	default:
		e.emit(ctx, auditLogout, res.PrincipalID, res.TokenID, false, res.Err)
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Err)
	}
}

// LogoutAll revokes every session record for the principal, signing out all
// of their devices at once.
func (e *Engine) LogoutAll(ctx context.Context, principalID string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	res := flows.RunLogoutAll(ctx, principalID, e.logoutDeps())
	if res.Failure != flows.LogoutFailureNone {
		e.emit(ctx, auditLogoutAll, principalID, "", false, res.Err)
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Err)
	}

	e.metrics.Inc(MetricLogoutAll)
	e.emit(ctx, auditLogoutAll, principalID, "", true, nil)
	return nil
}

func (e *Engine) logoutDeps() flows.LogoutDeps {
	return flows.LogoutDeps{
		DecodeRefresh: func(s string) (*token.Claims, error) { return e.codec.Decode(s, token.KindRefresh) },
		Revoke:        e.store.Revoke,
		RevokeAll:     e.store.RevokeAll,
	}
}

// Sweep removes expired session records immediately, independent of the
// background sweeper. It returns the number of records removed.
func (e *Engine) Sweep(ctx context.Context) (int, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}
	removed, err := e.store.SweepExpired(ctx)
	if err != nil {
		return removed, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	e.metrics.Add(MetricSweepRemoved, uint64(removed))
	return removed, nil
}

// AccessTTL reports the configured access-token lifetime.
func (e *Engine) AccessTTL() time.Duration {
	if e == nil {
		return 0
	}
	return e.config.Token.AccessTTL
}

// MetricsSnapshot returns a point-in-time copy of the lifecycle counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

// AuditDropped reports how many audit events were discarded because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// Close stops the background sweeper and flushes the audit dispatcher. The
// Engine must not be used afterwards.
func (e *Engine) Close() error {
	if e == nil {
		return nil
	}
	if e.sweeper != nil {
		e.sweeper.Stop()
	}
	e.audit.Close()
	return nil
}

func (e *Engine) principalActive(ctx context.Context, principalID string) (bool, error) {
	rec, err := e.provider.GetPrincipal(ctx, principalID)
	if err != nil {
		return false, err
	}
	return rec.Active, nil
}

func (e *Engine) emit(ctx context.Context, eventType, principalID, tokenID string, success bool, failure error) {
	if e.audit == nil {
		return
	}
	event := internalaudit.Event{
		Timestamp:   e.now().UTC(),
		EventType:   eventType,
		PrincipalID: principalID,
		TokenID:     tokenID,
		IP:          clientIPFromContext(ctx),
		Success:     success,
	}
	if failure != nil {
		event.Error = failure.Error()
	}
	e.audit.Emit(ctx, event)
}
