package services

import (
	"errors"
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// Password requirements
const (
	MinPasswordLength = 12
	BcryptCost        = 12
)

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

// CheckPassword verifies a password against a hash
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidatePassword requires MinPasswordLength characters mixing upper and
// lower case letters, digits and symbols.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLength)
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}

	var missing []error
	if !hasUpper {
		missing = append(missing, errors.New("an uppercase letter"))
	}
	if !hasLower {
		missing = append(missing, errors.New("a lowercase letter"))
	}
	if !hasNumber {
		missing = append(missing, errors.New("a number"))
	}
	if !hasSpecial {
		missing = append(missing, errors.New("a special character"))
	}
	if len(missing) > 0 {
		return fmt.Errorf("password must contain %w", errors.Join(missing...))
	}
	return nil
}
