package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	"github.com/quantfolio/auth"
)

func newHTTPFixture() (*authFixture, *fiber.App) {
	f := newAuthFixture()

	controller := auth.NewAuthController(
		auth.WithControllerLogger(nopLogger{}),
		auth.WithAuthenticator(f.auther),
		auth.WithUserStore(f.store),
	)

	app := fiber.New()
	auth.RegisterAuthRoutes(app.Group("/auth"), controller)

	return f, app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any, headers ...map[string]string) (int, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		assert.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	for _, set := range headers {
		for k, v := range set {
			req.Header.Set(k, v)
		}
	}

	res, err := app.Test(req, -1)
	assert.NoError(t, err)
	defer res.Body.Close()

	out := map[string]any{}
	assert.NoError(t, json.NewDecoder(res.Body).Decode(&out))

	return res.StatusCode, out
}

func signupBody(username, email string) map[string]string {
	return map[string]string{
		"username": username,
		"email":    email,
		"password": "s3cret-passw0rd",
	}
}

func TestSignupEndpoint(t *testing.T) {
	t.Run("acknowledges without leaking code or token", func(t *testing.T) {
		_, app := newHTTPFixture()

		status, body := doJSON(t, app, http.MethodPost, "/auth/signup", signupBody("peter", "peter@example.com"))

		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "OTP sent to your email", body["message"])
		assert.Equal(t, "peter@example.com", body["email"])
		assert.NotContains(t, body, "token")
		assert.NotContains(t, body, "otp")
	})

	t.Run("register alias behaves identically", func(t *testing.T) {
		_, app := newHTTPFixture()

		status, body := doJSON(t, app, http.MethodPost, "/auth/register", signupBody("peter", "peter@example.com"))

		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "OTP sent to your email", body["message"])
	})

	t.Run("validation failures are a 400", func(t *testing.T) {
		_, app := newHTTPFixture()

		status, body := doJSON(t, app, http.MethodPost, "/auth/signup", map[string]string{
			"username": "peter",
			"email":    "peter@example.com",
			"password": "short",
		})

		assert.Equal(t, http.StatusBadRequest, status)
		assert.Contains(t, body["message"], "Invalid input")
	})

	t.Run("duplicate username is a 400", func(t *testing.T) {
		_, app := newHTTPFixture()

		doJSON(t, app, http.MethodPost, "/auth/signup", signupBody("peter", "peter@example.com"))
		status, body := doJSON(t, app, http.MethodPost, "/auth/signup", signupBody("peter", "other@example.com"))

		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "Username already exists", body["message"])
	})

	t.Run("duplicate email is a 400", func(t *testing.T) {
		_, app := newHTTPFixture()

		doJSON(t, app, http.MethodPost, "/auth/signup", signupBody("peter", "peter@example.com"))
		status, body := doJSON(t, app, http.MethodPost, "/auth/signup", signupBody("other", "peter@example.com"))

		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "Email already registered", body["message"])
	})
}

func TestVerifyOTPEndpoint(t *testing.T) {
	t.Run("correct code returns a token", func(t *testing.T) {
		f, app := newHTTPFixture()
		doJSON(t, app, http.MethodPost, "/auth/signup", signupBody("peter", "peter@example.com"))

		status, body := doJSON(t, app, http.MethodPost, "/auth/verify-otp", map[string]string{
			"username": "peter",
			"otp":      "123456",
		})

		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "User verified successfully", body["message"])
		token, _ := body["token"].(string)
		assert.True(t, f.tokens.ValidateForSubject(token, "peter"))
	})

	t.Run("wrong code is a 401", func(t *testing.T) {
		_, app := newHTTPFixture()
		doJSON(t, app, http.MethodPost, "/auth/signup", signupBody("peter", "peter@example.com"))

		status, body := doJSON(t, app, http.MethodPost, "/auth/verify-otp", map[string]string{
			"username": "peter",
			"otp":      "999999",
		})

		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "Invalid OTP", body["message"])
	})

	t.Run("expired code is a 401", func(t *testing.T) {
		f, app := newHTTPFixture()
		doJSON(t, app, http.MethodPost, "/auth/signup", signupBody("peter", "peter@example.com"))

		f.now = f.now.Add(6 * time.Minute)

		status, body := doJSON(t, app, http.MethodPost, "/auth/verify-otp", map[string]string{
			"username": "peter",
			"otp":      "123456",
		})

		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "OTP expired. Please request a new one.", body["message"])
	})

	t.Run("unknown username is a 404", func(t *testing.T) {
		_, app := newHTTPFixture()

		status, body := doJSON(t, app, http.MethodPost, "/auth/verify-otp", map[string]string{
			"username": "ghost",
			"otp":      "123456",
		})

		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, "User not found", body["message"])
	})

	t.Run("already verified is a 400", func(t *testing.T) {
		_, app := newHTTPFixture()
		doJSON(t, app, http.MethodPost, "/auth/signup", signupBody("peter", "peter@example.com"))
		doJSON(t, app, http.MethodPost, "/auth/verify-otp", map[string]string{"username": "peter", "otp": "123456"})

		status, body := doJSON(t, app, http.MethodPost, "/auth/verify-otp", map[string]string{
			"username": "peter",
			"otp":      "123456",
		})

		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "User already verified", body["message"])
	})

	t.Run("malformed code shape is a 400", func(t *testing.T) {
		_, app := newHTTPFixture()
		doJSON(t, app, http.MethodPost, "/auth/signup", signupBody("peter", "peter@example.com"))

		status, _ := doJSON(t, app, http.MethodPost, "/auth/verify-otp", map[string]string{
			"username": "peter",
			"otp":      "12345",
		})

		assert.Equal(t, http.StatusBadRequest, status)
	})
}

func TestVerifyLegacyEndpoint(t *testing.T) {
	t.Run("verifies by email", func(t *testing.T) {
		_, app := newHTTPFixture()
		doJSON(t, app, http.MethodPost, "/auth/signup", signupBody("peter", "peter@example.com"))

		status, body := doJSON(t, app, http.MethodPost, "/auth/verify", map[string]string{
			"email": "peter@example.com",
			"otp":   "123456",
		})

		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "User verified successfully", body["message"])
		assert.NotEmpty(t, body["token"])
	})

	t.Run("unknown email is a 400", func(t *testing.T) {
		_, app := newHTTPFixture()

		status, body := doJSON(t, app, http.MethodPost, "/auth/verify", map[string]string{
			"email": "ghost@example.com",
			"otp":   "123456",
		})

		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "Invalid request format", body["message"])
	})

	t.Run("missing email is a 400", func(t *testing.T) {
		_, app := newHTTPFixture()

		status, body := doJSON(t, app, http.MethodPost, "/auth/verify", map[string]string{
			"otp": "123456",
		})

		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "Invalid request format", body["message"])
	})
}

func TestResendOTPEndpoint(t *testing.T) {
	t.Run("issues a replacement code", func(t *testing.T) {
		f, app := newHTTPFixture()
		doJSON(t, app, http.MethodPost, "/auth/signup", signupBody("peter", "peter@example.com"))

		f.auther.WithCodeGenerator(auth.StaticCodeGenerator("654321"))

		status, body := doJSON(t, app, http.MethodPost, "/auth/resend-otp", map[string]string{
			"username": "peter",
		})

		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "New OTP sent to your email", body["message"])

		stored, err := f.store.GetByUsername(context.Background(), "peter")
		assert.NoError(t, err)
		assert.Equal(t, "654321", stored.OTP)
	})

	t.Run("unknown username is a 404", func(t *testing.T) {
		_, app := newHTTPFixture()

		status, _ := doJSON(t, app, http.MethodPost, "/auth/resend-otp", map[string]string{
			"username": "ghost",
		})

		assert.Equal(t, http.StatusNotFound, status)
	})
}

func TestLoginEndpoint(t *testing.T) {
	setupVerified := func(t *testing.T, app *fiber.App) {
		doJSON(t, app, http.MethodPost, "/auth/signup", signupBody("peter", "peter@example.com"))
		doJSON(t, app, http.MethodPost, "/auth/verify-otp", map[string]string{"username": "peter", "otp": "123456"})
	}

	t.Run("returns a token", func(t *testing.T) {
		f, app := newHTTPFixture()
		setupVerified(t, app)

		status, body := doJSON(t, app, http.MethodPost, "/auth/login", map[string]string{
			"username": "peter",
			"password": "s3cret-passw0rd",
		})

		assert.Equal(t, http.StatusOK, status)
		token, _ := body["token"].(string)
		assert.True(t, f.tokens.ValidateForSubject(token, "peter"))
	})

	t.Run("bad credentials are a uniform 401", func(t *testing.T) {
		_, app := newHTTPFixture()
		setupVerified(t, app)

		wrongStatus, wrongBody := doJSON(t, app, http.MethodPost, "/auth/login", map[string]string{
			"username": "peter",
			"password": "bad-password",
		})
		unknownStatus, unknownBody := doJSON(t, app, http.MethodPost, "/auth/login", map[string]string{
			"username": "ghost",
			"password": "s3cret-passw0rd",
		})

		assert.Equal(t, http.StatusUnauthorized, wrongStatus)
		assert.Equal(t, http.StatusUnauthorized, unknownStatus)
		assert.Equal(t, "Invalid username or password", wrongBody["message"])
		assert.Equal(t, wrongBody["message"], unknownBody["message"])
	})

	t.Run("unverified account is a 401 with a distinct message", func(t *testing.T) {
		_, app := newHTTPFixture()
		doJSON(t, app, http.MethodPost, "/auth/signup", signupBody("peter", "peter@example.com"))

		status, body := doJSON(t, app, http.MethodPost, "/auth/login", map[string]string{
			"username": "peter",
			"password": "s3cret-passw0rd",
		})

		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "Account not verified. Please verify your email first.", body["message"])
	})

	t.Run("missing fields are a 400", func(t *testing.T) {
		_, app := newHTTPFixture()

		status, _ := doJSON(t, app, http.MethodPost, "/auth/login", map[string]string{
			"username": "peter",
		})

		assert.Equal(t, http.StatusBadRequest, status)
	})
}

func TestValidateTokenEndpoint(t *testing.T) {
	issueToken := func(t *testing.T, app *fiber.App) string {
		doJSON(t, app, http.MethodPost, "/auth/signup", signupBody("peter", "peter@example.com"))
		_, body := doJSON(t, app, http.MethodPost, "/auth/verify-otp", map[string]string{"username": "peter", "otp": "123456"})
		token, _ := body["token"].(string)
		assert.NotEmpty(t, token)
		return token
	}

	t.Run("valid bearer token", func(t *testing.T) {
		_, app := newHTTPFixture()
		token := issueToken(t, app)

		status, body := doJSON(t, app, http.MethodGet, "/auth/validate-token", nil, map[string]string{
			fiber.HeaderAuthorization: "Bearer " + token,
		})

		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, true, body["valid"])
		assert.Equal(t, "peter", body["username"])
		assert.NotEmpty(t, body["timestamp"])
	})

	t.Run("missing header", func(t *testing.T) {
		_, app := newHTTPFixture()

		status, body := doJSON(t, app, http.MethodGet, "/auth/validate-token", nil)

		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, false, body["valid"])
		assert.Equal(t, "Invalid or missing token", body["message"])
	})

	t.Run("wrong scheme", func(t *testing.T) {
		_, app := newHTTPFixture()
		token := issueToken(t, app)

		status, body := doJSON(t, app, http.MethodGet, "/auth/validate-token", nil, map[string]string{
			fiber.HeaderAuthorization: "Basic " + token,
		})

		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, false, body["valid"])
	})

	t.Run("undecodable token", func(t *testing.T) {
		_, app := newHTTPFixture()

		status, body := doJSON(t, app, http.MethodGet, "/auth/validate-token", nil, map[string]string{
			fiber.HeaderAuthorization: "Bearer garbage",
		})

		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, false, body["valid"])
		assert.Equal(t, "Token expired or invalid", body["message"])
	})
}

func TestHealthEndpoint(t *testing.T) {
	_, app := newHTTPFixture()

	status, body := doJSON(t, app, http.MethodGet, "/auth/test", nil)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Authentication service is working", body["message"])
	assert.NotEmpty(t, body["timestamp"])
}
