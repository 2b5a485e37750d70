package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the account model. OTP fields describe the single active code:
// a new code always overwrites the previous one. Once Verified is true the
// OTP fields are stale but intentionally left in place; verification is
// terminal and the fields are never consulted again.
type User struct {
	bun.BaseModel  `bun:"table:users,alias:usr"`
	ID             uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Username       string     `bun:"username,notnull,unique" json:"username,omitempty"`
	Email          string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Phone          string     `bun:"phone_number" json:"phone_number,omitempty"`
	DOB            string     `bun:"dob" json:"dob,omitempty"`
	PasswordHash   string     `bun:"password_hash" json:"-"`
	Verified       bool       `bun:"is_verified" json:"is_verified"`
	OTP            string     `bun:"otp,nullzero" json:"-"`
	OTPGeneratedAt *time.Time `bun:"otp_generated_at,nullzero" json:"-"`
	OTPExpired     bool       `bun:"otp_expired" json:"-"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// StampOTP installs a freshly issued code, invalidating any previous one
func (u *User) StampOTP(code string, issuedAt time.Time) *User {
	u.OTP = code
	u.OTPGeneratedAt = &issuedAt
	u.OTPExpired = false
	return u
}

// OTPDeadline is the instant the current code stops being acceptable
func (u *User) OTPDeadline(ttl time.Duration) time.Time {
	if u.OTPGeneratedAt == nil {
		return time.Time{}
	}
	return u.OTPGeneratedAt.Add(ttl)
}

// MarkVerified flips the account into its terminal verified state. The
// stored OTP is kept around, matching the legacy contract.
func (u *User) MarkVerified() *User {
	u.Verified = true
	u.OTPExpired = false
	return u
}
