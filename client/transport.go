package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// expiredMessage is the server's distinguished 401 body message for an
// expired access token. It is the only signal the transport acts on.
const expiredMessage = "TOKEN_EXPIRED"

// maxSniffBody bounds how much of a 401 body is read to look for the
// expiry signature.
const maxSniffBody = 1 << 16

// NewHTTPRefresher returns a [RefreshFunc] that performs the wire exchange:
// POST refreshURL with {"refreshToken": ...}, expecting {"accessToken": ...}.
// A 401 means the server rejected the refresh token itself and maps to
// [ErrSessionExpired].
func NewHTTPRefresher(httpClient *http.Client, refreshURL string) RefreshFunc {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return func(ctx context.Context, refreshToken string) (string, error) {
		body, err := json.Marshal(map[string]string{"refreshToken": refreshToken})
		if err != nil {
			return "", fmt.Errorf("encode refresh request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, refreshURL, bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("build refresh request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := httpClient.Do(req)
		if err != nil {
			return "", fmt.Errorf("refresh exchange: %w", err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			var out struct {
				AccessToken string `json:"accessToken"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				return "", fmt.Errorf("decode refresh response: %w", err)
			}
			if out.AccessToken == "" {
				return "", fmt.Errorf("refresh response missing access token")
			}
			return out.AccessToken, nil

		case resp.StatusCode == http.StatusUnauthorized:
			return "", ErrSessionExpired

		default:
			return "", fmt.Errorf("refresh exchange: unexpected status %d", resp.StatusCode)
		}
	}
}

// Transport is an http.RoundTripper that attaches the coordinator's access
// token to every request and transparently renews on the TOKEN_EXPIRED
// signal. Each request is replayed at most once: a second TOKEN_EXPIRED is
// returned to the caller as-is.
type Transport struct {
	// Base performs the actual round trips. nil means
	// http.DefaultTransport.
	Base http.RoundTripper
	// Coordinator supplies tokens and single-flight renewal. Required.
	Coordinator *Coordinator
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Coordinator == nil {
		return nil, fmt.Errorf("transport: coordinator required")
	}

	token, err := t.Coordinator.AccessToken()
	if err != nil {
		return nil, err
	}

	resp, err := t.send(req, token)
	if err != nil {
		return nil, err
	}

	expired, err := isTokenExpired(resp)
	if err != nil {
		resp.Body.Close()
		return nil, err
	}
	if !expired {
		return resp, nil
	}
	resp.Body.Close()

	renewed, err := t.Coordinator.Renew(req.Context(), token)
	if err != nil {
		return nil, err
	}

	// Exactly one replay. If the renewed token also comes back expired the
	// response is handed to the caller untouched.
	return t.send(req, renewed)
}

func (t *Transport) send(req *http.Request, token string) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	clone := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("transport: reread request body: %w", err)
		}
		clone.Body = body
	}
	clone.Header.Set("Authorization", "Bearer "+token)

	return base.RoundTrip(clone)
}

// isTokenExpired reports whether resp is the expired-access-token signature.
// For any other 401 the body is restored so the caller can still read it.
func isTokenExpired(resp *http.Response) (bool, error) {
	if resp.StatusCode != http.StatusUnauthorized {
		return false, nil
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxSniffBody))
	if err != nil {
		return false, fmt.Errorf("transport: read 401 body: %w", err)
	}
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(raw))

	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return false, nil
	}
	return body.Message == expiredMessage, nil
}
