package flows

import (
	"context"
	"errors"
	"testing"
	"time"

	"tokengate/token"
)

var errNotFound = errors.New("principal not found")

func goodClaims() *token.Claims {
	return &token.Claims{
		Subject:   token.Subject{PrincipalID: "u1", Email: "alice@example.com", Role: "admin"},
		Kind:      token.KindRefresh,
		TokenID:   "jti-1",
		IssuedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		ExpiresAt: time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC),
	}
}

func workingRefreshDeps() RefreshDeps {
	return RefreshDeps{
		DecodeRefresh: func(string) (*token.Claims, error) { return goodClaims(), nil },
		SessionValid: func(ctx context.Context, principalID, tokenID string) (bool, error) {
			return true, nil
		},
		PrincipalActive: func(ctx context.Context, principalID string) (bool, error) {
			return true, nil
		},
		PrincipalNotFound: errNotFound,
		IssueAccess: func(sub token.Subject) (string, *token.Claims, error) {
			issued := goodClaims()
			issued.Kind = token.KindAccess
			issued.TokenID = "jti-access"
			return "new-access", issued, nil
		},
	}
}

func TestRunRefreshSuccess(t *testing.T) {
	res := RunRefresh(context.Background(), "refresh-token", workingRefreshDeps())
	if res.Failure != RefreshFailureNone {
		t.Fatalf("expected success, got %v (%v)", res.Failure, res.Err)
	}
	if res.AccessToken != "new-access" {
		t.Fatalf("expected issued access token, got %q", res.AccessToken)
	}
	if res.PrincipalID != "u1" || res.TokenID != "jti-1" {
		t.Fatalf("expected claims metadata carried through, got %q/%q", res.PrincipalID, res.TokenID)
	}
}

func TestRunRefreshFailureClassification(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RefreshDeps)
		want   RefreshFailureKind
	}{
		{
			name: "decode failure",
			mutate: func(d *RefreshDeps) {
				d.DecodeRefresh = func(string) (*token.Claims, error) { return nil, token.ErrMalformed }
			},
			want: RefreshFailureDecode,
		},
		{
			name: "session revoked",
			mutate: func(d *RefreshDeps) {
				d.SessionValid = func(context.Context, string, string) (bool, error) { return false, nil }
			},
			want: RefreshFailureSessionRevoked,
		},
		{
			name: "store unavailable",
			mutate: func(d *RefreshDeps) {
				d.SessionValid = func(context.Context, string, string) (bool, error) {
					return false, errors.New("store down")
				}
			},
			want: RefreshFailureStoreUnavailable,
		},
		{
			name: "principal not found",
			mutate: func(d *RefreshDeps) {
				d.PrincipalActive = func(context.Context, string) (bool, error) { return false, errNotFound }
			},
			want: RefreshFailurePrincipalNotFound,
		},
		{
			name: "principal inactive",
			mutate: func(d *RefreshDeps) {
				d.PrincipalActive = func(context.Context, string) (bool, error) { return false, nil }
			},
			want: RefreshFailurePrincipalInactive,
		},
		{
			name: "provider failure",
			mutate: func(d *RefreshDeps) {
				d.PrincipalActive = func(context.Context, string) (bool, error) {
					return false, errors.New("directory offline")
				}
			},
			want: RefreshFailureProvider,
		},
		{
			name: "issue failure",
			mutate: func(d *RefreshDeps) {
				d.IssueAccess = func(token.Subject) (string, *token.Claims, error) {
					return "", nil, errors.New("sign failed")
				}
			},
			want: RefreshFailureIssueAccess,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := workingRefreshDeps()
			tt.mutate(&deps)

			res := RunRefresh(context.Background(), "refresh-token", deps)
			if res.Failure != tt.want {
				t.Fatalf("expected failure %v, got %v (%v)", tt.want, res.Failure, res.Err)
			}
			if res.AccessToken != "" {
				t.Fatalf("failed refresh must not carry an access token, got %q", res.AccessToken)
			}
		})
	}
}

func TestRunVerifyNeverChecksSession(t *testing.T) {
	claims := goodClaims()
	claims.Kind = token.KindAccess

	res := RunVerify(context.Background(), "access-token", VerifyDeps{
		DecodeAccess:      func(string) (*token.Claims, error) { return claims, nil },
		PrincipalActive:   func(context.Context, string) (bool, error) { return true, nil },
		PrincipalNotFound: errNotFound,
	})
	if res.Failure != VerifyFailureNone {
		t.Fatalf("expected success, got %v (%v)", res.Failure, res.Err)
	}
	if res.Claims == nil || res.Claims.TokenID != "jti-1" {
		t.Fatal("expected claims on success")
	}
}

func TestRunVerifyExpiredIsDistinct(t *testing.T) {
	res := RunVerify(context.Background(), "access-token", VerifyDeps{
		DecodeAccess: func(string) (*token.Claims, error) {
			return nil, &token.ExpiredError{ExpiredAt: time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)}
		},
		PrincipalActive: func(context.Context, string) (bool, error) {
			t.Error("principal lookup must not run for an expired token")
			return false, nil
		},
	})
	if res.Failure != VerifyFailureExpired {
		t.Fatalf("expected expired classification, got %v", res.Failure)
	}

	res = RunVerify(context.Background(), "access-token", VerifyDeps{
		DecodeAccess: func(string) (*token.Claims, error) { return nil, token.ErrKindMismatch },
		PrincipalActive: func(context.Context, string) (bool, error) {
			t.Error("principal lookup must not run for a rejected token")
			return false, nil
		},
	})
	if res.Failure != VerifyFailureMalformed {
		t.Fatalf("kind mismatch must classify as malformed, got %v", res.Failure)
	}
}

func TestRunLogoutRevokesPresentedToken(t *testing.T) {
	var revoked string
	res := RunLogout(context.Background(), "refresh-token", LogoutDeps{
		DecodeRefresh: func(string) (*token.Claims, error) { return goodClaims(), nil },
		Revoke: func(_ context.Context, tokenID string) error {
			revoked = tokenID
			return nil
		},
	})
	if res.Failure != LogoutFailureNone {
		t.Fatalf("expected success, got %v (%v)", res.Failure, res.Err)
	}
	if revoked != "jti-1" {
		t.Fatalf("expected exactly the presented token revoked, got %q", revoked)
	}
}
