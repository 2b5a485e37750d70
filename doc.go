// Package auth implements email based account verification and stateless
// bearer token authentication.
//
// Account lifecycle:
//   - Accounts are created unverified at signup. A six digit one time
//     passcode (OTP) is emailed to the account address and must be confirmed
//     within its TTL before the account can log in. Verification is terminal;
//     re-verifying an already verified account is rejected as a no-op guard.
//   - At most one OTP is active per account. Resending a code overwrites the
//     previous one, which is invalidated immediately.
//
// Tokens:
//   - Tokens are HS256 signed JWTs carrying subject, issued-at, and expiry.
//     There is no server side session or revocation list; expiry is the only
//     invalidation channel. The middleware/jwtware package turns a valid
//     bearer token into request scoped identity without ever rejecting the
//     request itself.
package auth
