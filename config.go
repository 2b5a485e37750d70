package auth

import (
	"os"
	"strconv"
	"time"
)

// SimpleConfig is the concrete Config used by the server binary. It is
// built once at startup and never mutated; the signing secret lives here
// for the process lifetime.
type SimpleConfig struct {
	SigningKey    string
	SigningMethod string
	ContextKey    string
	AuthScheme    string
	Issuer        string
	Audience      []string
	TokenTTL      time.Duration
	OTPTTL        time.Duration
}

var _ Config = (*SimpleConfig)(nil)

func (c *SimpleConfig) GetSigningKey() string    { return c.SigningKey }
func (c *SimpleConfig) GetSigningMethod() string { return c.SigningMethod }
func (c *SimpleConfig) GetContextKey() string    { return c.ContextKey }
func (c *SimpleConfig) GetAuthScheme() string    { return c.AuthScheme }
func (c *SimpleConfig) GetIssuer() string        { return c.Issuer }
func (c *SimpleConfig) GetAudience() []string    { return c.Audience }

func (c *SimpleConfig) GetTokenTTL() time.Duration {
	if c.TokenTTL <= 0 {
		return 24 * time.Hour
	}
	return c.TokenTTL
}

func (c *SimpleConfig) GetOTPTTL() time.Duration {
	if c.OTPTTL <= 0 {
		return DefaultOTPTTL
	}
	return c.OTPTTL
}

// ConfigFromEnv assembles a SimpleConfig from the process environment.
// JWT_EXPIRATION_MS keeps the legacy millisecond unit.
func ConfigFromEnv() *SimpleConfig {
	cfg := &SimpleConfig{
		SigningKey:    os.Getenv("JWT_SECRET"),
		SigningMethod: "HS256",
		ContextKey:    envOr("AUTH_CONTEXT_KEY", "user"),
		AuthScheme:    "Bearer",
		Issuer:        os.Getenv("JWT_ISSUER"),
		TokenTTL:      24 * time.Hour,
		OTPTTL:        DefaultOTPTTL,
	}

	if raw := os.Getenv("JWT_EXPIRATION_MS"); raw != "" {
		if ms, err := strconv.ParseInt(raw, 10, 64); err == nil && ms > 0 {
			cfg.TokenTTL = time.Duration(ms) * time.Millisecond
		}
	}

	if raw := os.Getenv("OTP_TTL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			cfg.OTPTTL = d
		}
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
