package auth

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identity holds the attributes of an authenticated caller
type Identity interface {
	ID() string
	Username() string
	Email() string
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetContextKey() string
	GetAuthScheme() string
	GetIssuer() string
	GetAudience() []string
	GetTokenTTL() time.Duration
	GetOTPTTL() time.Duration
}

// Notifier delivers a verification code to a destination address.
// Implementations must be safe for concurrent use.
type Notifier interface {
	Send(ctx context.Context, address, code string) error
}

// CodeGenerator produces one time passcodes
type CodeGenerator interface {
	Generate() (string, error)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// UserStore is the durable mapping from username/email to account records.
// Save is insert-or-update and returns the persisted record with its
// assigned ID on first insert. Username and email uniqueness is enforced
// at the storage layer.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Save(ctx context.Context, user *User) (*User, error)
}

// TokenService issues and validates signed, time bound bearer tokens
type TokenService interface {
	Generate(subject string) (string, error)
	Validate(token string) (AuthClaims, error)
	ExtractSubject(token string) (string, error)
	IsExpired(token string) bool
	ValidateForSubject(token, subject string) bool
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
