package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// Authenticator is the account verification state machine: signup, OTP
// confirmation, resend, login, and token introspection.
type Authenticator interface {
	Signup(ctx context.Context, req SignupRequest) (*User, error)
	VerifyOTP(ctx context.Context, username, code string) (string, error)
	ResendOTP(ctx context.Context, username string) error
	Login(ctx context.Context, username, password string) (string, error)
	ValidateToken(ctx context.Context, token string) (Identity, error)
}

// SignupRequest carries the profile fields collected at registration
type SignupRequest struct {
	Username string
	Email    string
	Password string
	Phone    string
	DOB      string
}

type Auther struct {
	store    UserStore
	tokens   TokenService
	hasher   PasswordAuthenticator
	codes    CodeGenerator
	notifier Notifier
	logger   Logger
	otpTTL   time.Duration
	now      func() time.Time
}

// NewAuthenticator returns a new Authenticator. The zero configuration
// uses bcrypt hashing, crypto/rand codes, a no-op notifier, and the five
// minute OTP window.
func NewAuthenticator(store UserStore, tokens TokenService) *Auther {
	return &Auther{
		store:    store,
		tokens:   tokens,
		hasher:   BcryptHasher{},
		codes:    NewOTPGenerator(),
		notifier: NoopNotifier{},
		logger:   defLogger{},
		otpTTL:   DefaultOTPTTL,
		now:      time.Now,
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

func (s *Auther) WithNotifier(notifier Notifier) *Auther {
	if notifier != nil {
		s.notifier = notifier
	}
	return s
}

func (s *Auther) WithHasher(hasher PasswordAuthenticator) *Auther {
	if hasher != nil {
		s.hasher = hasher
	}
	return s
}

func (s *Auther) WithCodeGenerator(codes CodeGenerator) *Auther {
	if codes != nil {
		s.codes = codes
	}
	return s
}

func (s *Auther) WithOTPTTL(ttl time.Duration) *Auther {
	if ttl > 0 {
		s.otpTTL = ttl
	}
	return s
}

// WithClock injects a custom clock (useful for tests)
func (s *Auther) WithClock(clock func() time.Time) *Auther {
	if clock != nil {
		s.now = clock
	}
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokens
}

// Signup creates an unverified account with a fresh active OTP and emails
// the code. The acknowledgement never contains the token or the code.
func (s *Auther) Signup(ctx context.Context, req SignupRequest) (*User, error) {
	if _, err := s.store.GetByUsername(ctx, req.Username); err == nil {
		return nil, ErrDuplicateUsername
	} else if !goerrors.IsNotFound(err) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check username availability")
	}

	if _, err := s.store.GetByEmail(ctx, req.Email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !goerrors.IsNotFound(err) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email availability")
	}

	code, err := s.codes.Generate()
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.HashPassword(req.Password)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	user := &User{
		Username:     req.Username,
		Email:        req.Email,
		Phone:        req.Phone,
		DOB:          req.DOB,
		PasswordHash: hash,
		Verified:     false,
	}
	user.StampOTP(code, s.now())

	saved, err := s.store.Save(ctx, user)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
	}

	s.dispatchCode(ctx, saved.Email, code)

	return saved, nil
}

// VerifyOTP confirms the emailed code. On success the account becomes
// verified (terminal) and a fresh token is returned. A stale code flips
// the persisted expired flag before failing.
func (s *Auther) VerifyOTP(ctx context.Context, username, code string) (string, error) {
	user, err := s.getAccount(ctx, username)
	if err != nil {
		return "", err
	}

	if user.Verified {
		return "", ErrAlreadyVerified
	}

	if user.OTPGeneratedAt == nil || s.now().After(user.OTPDeadline(s.otpTTL)) {
		user.OTPExpired = true
		if _, err := s.store.Save(ctx, user); err != nil {
			s.logger.Error("VerifyOTP failed to persist expired flag", "username", username, "error", err)
		}
		return "", ErrOTPExpired
	}

	if user.OTP != code {
		return "", ErrOTPMismatch
	}

	user.MarkVerified()
	if _, err := s.store.Save(ctx, user); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist verification")
	}

	token, err := s.tokens.Generate(user.Username)
	if err != nil {
		return "", err
	}

	return token, nil
}

// ResendOTP issues a replacement code. The previous code is invalidated
// the moment the new one is persisted, regardless of its expiry state.
func (s *Auther) ResendOTP(ctx context.Context, username string) error {
	user, err := s.getAccount(ctx, username)
	if err != nil {
		return err
	}

	if user.Verified {
		return ErrAlreadyVerified
	}

	code, err := s.codes.Generate()
	if err != nil {
		return err
	}

	user.StampOTP(code, s.now())
	if _, err := s.store.Save(ctx, user); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist replacement OTP")
	}

	s.dispatchCode(ctx, user.Email, code)

	return nil
}

// Login exchanges username/password for a token. Unknown usernames and
// wrong passwords produce the same error so the endpoint cannot be used
// to enumerate accounts.
func (s *Auther) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return "", ErrInvalidCredentials
		}
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user during login")
	}

	if err := s.hasher.ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		return "", ErrInvalidCredentials
	}

	if !user.Verified {
		return "", ErrNotVerified
	}

	token, err := s.tokens.Generate(user.Username)
	if err != nil {
		return "", err
	}

	return token, nil
}

// ValidateToken decodes the subject, checks expiry, and confirms the
// subject still exists. Every failure collapses to the same uniform
// error; only the logs distinguish the cause.
func (s *Auther) ValidateToken(ctx context.Context, token string) (Identity, error) {
	subject, err := s.tokens.ExtractSubject(token)
	if err != nil {
		s.logger.Warn("ValidateToken rejected token", "error", err)
		return nil, ErrTokenInvalid
	}

	user, err := s.store.GetByUsername(ctx, subject)
	if err != nil {
		s.logger.Warn("ValidateToken subject no longer exists", "subject", subject)
		return nil, ErrTokenInvalid
	}

	return IdentityOf(user), nil
}

func (s *Auther) getAccount(ctx context.Context, username string) (*User, error) {
	user, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user")
	}
	return user, nil
}

// dispatchCode delivers the OTP without letting transport failures leak
// into the calling flow. The account is already persisted; delivery is
// best effort and observable only in logs.
func (s *Auther) dispatchCode(ctx context.Context, address, code string) {
	if err := s.notifier.Send(ctx, address, code); err != nil {
		s.logger.Error("failed to send OTP email", "address", address, "error", err)
	}
}

// IdentityOf adapts a stored account to the Identity interface
func IdentityOf(u *User) Identity {
	return authIdentity{
		id:       u.ID.String(),
		username: u.Username,
		email:    u.Email,
	}
}

type authIdentity struct {
	id       string
	username string
	email    string
}

func (a authIdentity) ID() string       { return a.id }
func (a authIdentity) Username() string { return a.username }
func (a authIdentity) Email() string    { return a.email }

var _ Identity = authIdentity{}
var _ Authenticator = (*Auther)(nil)
