//go:build race

package auth

import "golang.org/x/crypto/bcrypt"

func passwordHashCost() int {
	// Race-enabled builds pay a heavy instrumentation tax; drop to the
	// library default so the suite stays inside strict timeouts.
	return bcrypt.DefaultCost
}
