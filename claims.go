package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims is the decoded, verified content of a bearer token
type AuthClaims interface {
	Subject() string
	Expires() time.Time
	Issued() time.Time
}

// JWTClaims is the concrete claim set carried by issued tokens. Tokens are
// self contained: subject, issued-at, and expiry are the only state the
// server ever trusts.
type JWTClaims struct {
	jwt.RegisteredClaims
}

var _ AuthClaims = (*JWTClaims)(nil)

// Subject returns the token subject, the account username
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// Expires returns the expiration instant, zero when absent
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// Issued returns the issued-at instant, zero when absent
func (c *JWTClaims) Issued() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
