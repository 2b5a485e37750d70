package auth

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/nyaruka/phonenumbers"
)

// AuthController exposes the verification state machine over HTTP. Route
// handlers are thin request/response mapping; every transition lives in
// the Authenticator.
type AuthController struct {
	Logger Logger
	Auther Authenticator
	Store  UserStore
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = logger
		return c
	}
}

func WithAuthenticator(auther Authenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

func WithUserStore(store UserStore) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Store = store
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	if c.Store == nil {
		panic("Missing UserStore in auth controller...")
	}

	return c
}

// RegisterAuthRoutes mounts the auth surface on the given router, usually
// an app.Group("/auth"). The /register and /verify aliases keep the
// legacy client contract alive.
func RegisterAuthRoutes(app fiber.Router, controller *AuthController) {
	app.Post("/signup", controller.SignupPost)
	app.Post("/register", controller.SignupPost)
	app.Post("/verify-otp", controller.VerifyOTPPost)
	app.Post("/verify", controller.VerifyLegacyPost)
	app.Post("/resend-otp", controller.ResendOTPPost)
	app.Post("/login", controller.LoginPost)
	app.Get("/validate-token", controller.ValidateTokenGet)
	app.Get("/test", controller.TestGet)
}

// SignupPayload is the registration body
type SignupPayload struct {
	Username string `form:"username" json:"username"`
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
	Phone    string `form:"phone" json:"phone"`
	DOB      string `form:"dob" json:"dob"`
}

// Validate will run validation rules
func (r SignupPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(3, 100)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(&r.Phone, validation.By(validOptionalPhone)),
	)
}

func validOptionalPhone(value any) error {
	raw, _ := value.(string)
	if raw == "" {
		return nil
	}

	num, err := phonenumbers.Parse(raw, "US")
	if err != nil {
		return err
	}
	if !phonenumbers.IsValidNumber(num) {
		return goerrors.New("invalid phone number", goerrors.CategoryValidation)
	}
	return nil
}

func (a *AuthController) SignupPost(c *fiber.Ctx) error {
	payload := new(SignupPayload)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("signup parse payload", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid input: " + err.Error(),
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Info("signup validation failed", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid input: " + err.Error(),
		})
	}

	if _, err := a.Auther.Signup(c.Context(), SignupRequest{
		Username: payload.Username,
		Email:    payload.Email,
		Password: payload.Password,
		Phone:    payload.Phone,
		DOB:      payload.DOB,
	}); err != nil {
		return a.handleError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "OTP sent to your email",
		"email":   payload.Email,
	})
}

// VerifyOTPPayload confirms an emailed code
type VerifyOTPPayload struct {
	Username string `form:"username" json:"username"`
	OTP      string `form:"otp" json:"otp"`
}

func (r VerifyOTPPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.OTP, validation.Required, validation.Length(6, 6), is.Digit),
	)
}

func (a *AuthController) VerifyOTPPost(c *fiber.Ctx) error {
	payload := new(VerifyOTPPayload)

	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid input: " + err.Error(),
		})
	}

	if err := payload.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid input: " + err.Error(),
		})
	}

	token, err := a.Auther.VerifyOTP(c.Context(), payload.Username, payload.OTP)
	if err != nil {
		return a.handleError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "User verified successfully",
		"token":   token,
	})
}

// VerifyLegacyPayload is the old email keyed verification body
type VerifyLegacyPayload struct {
	Email string `form:"email" json:"email"`
	OTP   string `form:"otp" json:"otp"`
}

// VerifyLegacyPost resolves the username from the email before delegating
// to the canonical verify flow
func (a *AuthController) VerifyLegacyPost(c *fiber.Ctx) error {
	payload := new(VerifyLegacyPayload)

	if err := c.BodyParser(payload); err != nil || payload.Email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request format",
		})
	}

	user, err := a.Store.GetByEmail(c.Context(), payload.Email)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request format",
		})
	}

	token, err := a.Auther.VerifyOTP(c.Context(), user.Username, payload.OTP)
	if err != nil {
		return a.handleError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "User verified successfully",
		"token":   token,
	})
}

// ResendOTPPayload requests a replacement code
type ResendOTPPayload struct {
	Username string `form:"username" json:"username"`
}

func (a *AuthController) ResendOTPPost(c *fiber.Ctx) error {
	payload := new(ResendOTPPayload)

	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid input: " + err.Error(),
		})
	}

	if err := a.Auther.ResendOTP(c.Context(), payload.Username); err != nil {
		return a.handleError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "New OTP sent to your email",
	})
}

// LoginPayload is the credential exchange body
type LoginPayload struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

func (r LoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *AuthController) LoginPost(c *fiber.Ctx) error {
	payload := new(LoginPayload)

	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid input: " + err.Error(),
		})
	}

	if err := payload.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid input: " + err.Error(),
		})
	}

	token, err := a.Auther.Login(c.Context(), payload.Username, payload.Password)
	if err != nil {
		return a.handleError(c, err)
	}

	return c.JSON(fiber.Map{
		"token": token,
	})
}

// ValidateTokenGet is the self validating introspection endpoint: every
// failure mode collapses to the same 401 body
func (a *AuthController) ValidateTokenGet(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		a.Logger.Warn("validate-token missing or malformed Authorization header")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"valid":   false,
			"message": "Invalid or missing token",
		})
	}

	token := strings.TrimPrefix(header, "Bearer ")

	identity, err := a.Auther.ValidateToken(c.Context(), token)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"valid":   false,
			"message": "Token expired or invalid",
		})
	}

	return c.JSON(fiber.Map{
		"valid":     true,
		"username":  identity.Username(),
		"timestamp": time.Now(),
	})
}

func (a *AuthController) TestGet(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message":   "Authentication service is working",
		"timestamp": time.Now(),
	})
}

func (a *AuthController) handleError(c *fiber.Ctx, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	a.Logger.Info(
		"auth request rejected",
		"category", richErr.Category,
		"text_code", richErr.TextCode,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	status := richErr.Code
	if status == 0 {
		status = fiber.StatusInternalServerError
	}

	return c.Status(status).JSON(fiber.Map{
		"message": richErr.Message,
	})
}
