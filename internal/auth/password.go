package auth

import (
	"errors"
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost is the fixed work factor for new digests. Old digests keep
// the cost they were created with, so raising it later only affects new
// passwords.
const bcryptCost = bcrypt.DefaultCost

const (
	minPasswordLength = 8
	maxPasswordLength = 72 // bcrypt input limit
)

// ErrPasswordTooLong is returned when a password exceeds the bcrypt
// input limit. Inputs past the limit are rejected, never truncated.
var ErrPasswordTooLong = fmt.Errorf("password exceeds %d bytes", maxPasswordLength)

// HashPassword produces a salted one-way digest of the password.
func HashPassword(password string) (string, error) {
	if len(password) > maxPasswordLength {
		return "", ErrPasswordTooLong
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// VerifyPassword reports whether password matches digest. A malformed
// digest verifies as false rather than erroring.
func VerifyPassword(password, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}

// ValidatePassword enforces the signup password policy: 8-72 bytes with
// at least one lowercase letter, one uppercase letter, and one special
// (non-alphanumeric, non-space) character.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	if len(password) > maxPasswordLength {
		return ErrPasswordTooLong
	}

	var hasLower, hasUpper, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r):
			hasSpecial = true
		}
	}
	if !hasLower {
		return errors.New("password must contain a lowercase letter")
	}
	if !hasUpper {
		return errors.New("password must contain an uppercase letter")
	}
	if !hasSpecial {
		return errors.New("password must contain a special character")
	}
	return nil
}
