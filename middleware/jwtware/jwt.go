// Package jwtware is the request gate: it turns a valid bearer token into
// request scoped identity. It deliberately never writes an error response;
// requests that fail extraction or validation continue unauthenticated and
// downstream authorization decides their fate.
package jwtware

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

var (
	defaultTokenLookup       = "header:" + fiber.HeaderAuthorization
	ErrJWTMissingOrMalformed = errors.New("missing or malformed JWT")
)

// TokenValidator validates tokens without import cycles.
// This mirrors the TokenService.Validate method from the auth package.
type TokenValidator interface {
	Validate(tokenString string) (AuthClaims, error)
}

// AuthClaims mirrors the AuthClaims interface from the auth package
type AuthClaims interface {
	Subject() string
	Expires() time.Time
	Issued() time.Time
}

// Identity mirrors the Identity interface from the auth package
type Identity interface {
	ID() string
	Username() string
	Email() string
}

// IdentityResolver confirms the token subject still exists in the account
// store and returns the caller identity to attach to the request.
type IdentityResolver func(ctx context.Context, subject string) (Identity, error)

type Config struct {
	// Filter skips the gate entirely when it returns true
	Filter func(*fiber.Ctx) bool

	// TokenValidator is required for token validation
	TokenValidator TokenValidator

	// ResolveIdentity is required; a subject that no longer resolves
	// leaves the request unauthenticated
	ResolveIdentity IdentityResolver

	// Logger receives the reason a request stayed unauthenticated.
	// Signature matches the auth package Logger methods.
	Logger func(format string, args ...any)

	ContextKey  string
	TokenLookup string
	AuthScheme  string

	// ContextEnricher propagates the identity to the standard Go context
	// so non-HTTP layers can read it
	ContextEnricher func(ctx context.Context, identity Identity) context.Context
}

// New builds the gate middleware. On any failure the request proceeds
// without identity; on success the identity lands in ctx.Locals under
// ContextKey and, when an enricher is configured, in the user context.
func New(config ...Config) fiber.Handler {
	cfg := GetDefaultConfig(config...)

	return func(ctx *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(ctx) {
			return ctx.Next()
		}

		raw, err := ExtractRawToken(ctx, cfg.getExtractors())
		if err != nil || raw == "" {
			return ctx.Next()
		}

		claims, err := cfg.TokenValidator.Validate(raw)
		if err != nil {
			cfg.Logger("request gate rejected token", "error", err)
			return ctx.Next()
		}

		identity, err := cfg.ResolveIdentity(ctx.Context(), claims.Subject())
		if err != nil {
			cfg.Logger("request gate could not resolve subject", "subject", claims.Subject(), "error", err)
			return ctx.Next()
		}

		ctx.Locals(cfg.ContextKey, identity)

		if cfg.ContextEnricher != nil {
			ctx.SetUserContext(cfg.ContextEnricher(ctx.UserContext(), identity))
		}

		return ctx.Next()
	}
}

// RequireAuthenticated is the downstream enforcement half of the gate:
// routes that demand identity mount it after New and reject anonymous
// calls with a 401.
func RequireAuthenticated(contextKey string) fiber.Handler {
	if contextKey == "" {
		contextKey = "user"
	}

	return func(ctx *fiber.Ctx) error {
		if _, ok := ctx.Locals(contextKey).(Identity); !ok {
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or missing token",
			})
		}
		return ctx.Next()
	}
}

// IdentityFromLocals recovers the identity the gate attached, if any
func IdentityFromLocals(ctx *fiber.Ctx, contextKey string) (Identity, bool) {
	if contextKey == "" {
		contextKey = "user"
	}
	identity, ok := ctx.Locals(contextKey).(Identity)
	return identity, ok
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.TokenValidator == nil {
		panic("AUTH: JWT middleware configuration: TokenValidator is required.")
	}

	if cfg.ResolveIdentity == nil {
		panic("AUTH: JWT middleware configuration: ResolveIdentity is required.")
	}

	if cfg.Logger == nil {
		cfg.Logger = func(format string, args ...any) {}
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "user"
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	return cfg
}

func (cfg *Config) getExtractors() []JWTExtractor {
	return GetExtractors(cfg.TokenLookup, cfg.AuthScheme)
}

// ExtractRawToken walks the extractors until one produces a token
func ExtractRawToken(ctx *fiber.Ctx, extractors []JWTExtractor) (string, error) {
	var raw string
	var err error

	for _, extractor := range extractors {
		raw, err = extractor(ctx)
		if raw != "" && err == nil {
			break
		}
	}

	return raw, err
}

// GetExtractors parses a lookup spec such as
// "header:Authorization,cookie:jwt,query:auth_token" into extractors
func GetExtractors(tokenLookup string, authSchemes ...string) []JWTExtractor {
	extractors := make([]JWTExtractor, 0)

	authScheme := "Bearer"
	if len(authSchemes) > 0 {
		authScheme = authSchemes[0]
	}

	rootParts := strings.Split(tokenLookup, ",")
	for _, rootPart := range rootParts {
		parts := strings.Split(strings.TrimSpace(rootPart), ":")
		if len(parts) < 2 {
			continue
		}

		for i, el := range parts {
			parts[i] = strings.TrimSpace(el)
		}

		switch parts[0] {
		case "header":
			extractors = append(extractors, jwtFromHeader(parts[1], authScheme))
		case "query":
			extractors = append(extractors, jwtFromQuery(parts[1]))
		case "param":
			extractors = append(extractors, jwtFromParam(parts[1]))
		case "cookie":
			extractors = append(extractors, jwtFromCookie(parts[1]))
		}
	}

	return extractors
}

type JWTExtractor func(c *fiber.Ctx) (string, error)

// jwtFromHeader returns a function that extracts token from the request header.
func jwtFromHeader(header string, authScheme string) JWTExtractor {
	return func(c *fiber.Ctx) (string, error) {
		a := c.Get(header)
		l := len(authScheme)
		if l == 0 {
			return "", ErrJWTMissingOrMalformed
		}
		authScheme = strings.TrimSpace(authScheme)
		if len(a) > l+1 && strings.EqualFold(a[:l], authScheme) {
			return strings.TrimSpace(a[l:]), nil
		}
		return "", ErrJWTMissingOrMalformed
	}
}

// jwtFromQuery returns a function that extracts token from the query string.
func jwtFromQuery(param string) JWTExtractor {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Query(param)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}

// jwtFromParam returns a function that extracts token from the url param string.
func jwtFromParam(param string) JWTExtractor {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Params(param)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}

// jwtFromCookie returns a function that extracts token from the named cookie.
func jwtFromCookie(name string) JWTExtractor {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Cookies(name)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}
