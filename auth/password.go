package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is used when hashing admin passwords.
const DefaultBcryptCost = 12

// HashPassword produces a bcrypt hash suitable for the ADMIN_PASSWORD_HASH
// configuration value.
func HashPassword(plain []byte, cost int) (string, error) {
	if cost <= 0 {
		cost = DefaultBcryptCost
	}
	hash, err := bcrypt.GenerateFromPassword(plain, cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// ComparePassword verifies plain against a bcrypt hash.
func ComparePassword(hash string, plain []byte) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), plain)
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return err
	}
	return nil
}
