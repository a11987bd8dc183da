package crew

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// maxPasswordBytes is the bcrypt input limit
const maxPasswordBytes = 72

// HashPassword will generate a password hash with the given cost. A cost
// outside the bcrypt range falls back to the default.
func HashPassword(password string, cost int) (string, error) {
	if err := validatePassword(password); err != nil {
		return "", err
	}

	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", wrapInternal(err, "failed to hash password")
	}
	return string(h), nil
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidCredentials
		}
		return wrapInternal(err, "failed to compare password")
	}
	return nil
}

func validatePassword(password string) error {
	if password == "" {
		return newValidationError("password", "password is required")
	}
	if len(password) > maxPasswordBytes {
		return newValidationError("password", "password must be at most 72 bytes")
	}
	return nil
}
