package utils

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// AdminPasswordCost is the bcrypt cost used for ADMIN_PASSWORD_HASH.
const AdminPasswordCost = 12

// ErrEmptyPassword is returned when hashing an empty password.
var ErrEmptyPassword = errors.New("password must not be empty")

// HashPassword hashes an admin password with AdminPasswordCost.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), AdminPasswordCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether plain matches hashed.
func CheckPassword(plain, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}

// IsPasswordHash reports whether s parses as a bcrypt hash, so a plain password
// pasted into ADMIN_PASSWORD_HASH is caught at startup.
func IsPasswordHash(s string) bool {
	_, err := bcrypt.Cost([]byte(s))
	return err == nil
}
