// Package auth verifies the bearer tokens presented to the HTTP API.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthorized is returned for any token that fails verification.
var ErrUnauthorized = errors.New("auth: unauthorized")

// Claims carries the verified identity attached to a request.
type Claims struct {
	Subject  string
	Internal bool
}

// Verifier checks HS256 bearer tokens.
type Verifier struct {
	secret          []byte
	issuer          string
	audience        string
	requireInternal bool
	now             func() time.Time
}

// NewVerifier builds a verifier. Issuer and audience are only enforced when
// non-empty; requireInternal additionally demands an `internal: true` claim,
// restricting the API to service-to-service callers.
func NewVerifier(secret, issuer, audience string, requireInternal bool) (*Verifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: secret is required")
	}
	return &Verifier{
		secret:          []byte(secret),
		issuer:          issuer,
		audience:        audience,
		requireInternal: requireInternal,
		now:             time.Now,
	}, nil
}

// Verify parses and validates the token string.
func (v *Verifier) Verify(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, ErrUnauthorized
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	parsed, err := jwt.Parse(token, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return Claims{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrUnauthorized
	}
	claims := Claims{}
	if sub, err := mapClaims.GetSubject(); err == nil {
		claims.Subject = sub
	}
	if internal, ok := mapClaims["internal"].(bool); ok {
		claims.Internal = internal
	}
	if v.requireInternal && !claims.Internal {
		return Claims{}, fmt.Errorf("%w: internal claim required", ErrUnauthorized)
	}
	return claims, nil
}

// FromAuthorizationHeader extracts the bearer token from an Authorization
// header value.
func FromAuthorizationHeader(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}
