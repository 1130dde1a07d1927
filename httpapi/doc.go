// Package httpapi provides the wire surface for the token lifecycle:
//
//	POST /auth/login       {email, password}  -> {accessToken, refreshToken, expiresIn}
//	POST /auth/refresh     {refreshToken}     -> {accessToken, expiresIn}
//	POST /auth/logout      {refreshToken}     -> 204
//	POST /auth/logout-all  (bearer access)    -> 204
//
// Failures are JSON with a message field; authentication failures are 401
// with the same message vocabulary the middleware guard uses.
//
// Credential verification is the host's job: the login handler delegates to
// an injected [CredentialVerifier] and only turns its verdict into a token
// pair. This package never sees password hashes.
package httpapi
