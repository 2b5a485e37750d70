package auth

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// DefaultOTPTTL is the window in which an issued code can be confirmed
const DefaultOTPTTL = 5 * time.Minute

const (
	otpMin  = 100_000
	otpSpan = 900_000
)

// OTPGenerator produces six digit numeric codes drawn uniformly from
// [100000, 999999]. The leading digit is never zero, so the code survives
// any integer round trip without losing digits.
type OTPGenerator struct{}

// NewOTPGenerator returns the default crypto/rand backed generator
func NewOTPGenerator() OTPGenerator {
	return OTPGenerator{}
}

// Generate returns a fresh code
func (OTPGenerator) Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpSpan))
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to draw OTP")
	}
	return strconv.FormatInt(otpMin+n.Int64(), 10), nil
}

var _ CodeGenerator = OTPGenerator{}

// StaticCodeGenerator always returns the same code. Test helper.
type StaticCodeGenerator string

func (s StaticCodeGenerator) Generate() (string, error) {
	return string(s), nil
}

var _ CodeGenerator = StaticCodeGenerator("")
