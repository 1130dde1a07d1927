package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"tokengate"
)

// Messages carried in the 401 body. MessageExpired is the one clients are
// allowed to branch on.
const (
	MessageExpired      = "TOKEN_EXPIRED"
	MessageInvalidToken = "INVALID_TOKEN"
	MessageUnauthorized = "unauthorized"
)

type authResultContextKey struct{}

// PrincipalFromContext returns the principal attached by [Guard].
func PrincipalFromContext(ctx context.Context) (tokengate.Principal, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*tokengate.AuthResult)
	if !ok {
		return tokengate.Principal{}, false
	}
	return res.Principal, true
}

// AuthResultFromContext returns the full verification result attached by
// [Guard], including the token id and expiry.
func AuthResultFromContext(ctx context.Context) (*tokengate.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*tokengate.AuthResult)
	return res, ok
}

// Guard wraps a handler with access-token enforcement.
func Guard(engine *tokengate.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				writeUnauthorized(w, MessageUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeUnauthorized(w, MessageUnauthorized)
				return
			}

			res, err := engine.VerifyAccess(r.Context(), token)
			if err != nil {
				switch {
				case errors.Is(err, tokengate.ErrTokenExpired):
					writeUnauthorized(w, MessageExpired)
				case errors.Is(err, tokengate.ErrTokenInvalid):
					writeUnauthorized(w, MessageInvalidToken)
				default:
					// Unknown, inactive, or unreachable principal. Same
					// generic rejection as a missing token.
					writeUnauthorized(w, MessageUnauthorized)
				}
				return
			}

			ctx := context.WithValue(r.Context(), authResultContextKey{}, &res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}
