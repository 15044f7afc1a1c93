package auth

import (
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/deptforge/agent-departments/pkg/util/errorutil"
)

// bcrypt ignores input past 72 bytes.
const (
	MinPasswordLength = 8
	maxPasswordBytes  = 72
)

// HashPassword hashes a plaintext password with configured cost.
func HashPassword(password string, cost int) (string, error) {
	if len(password) < MinPasswordLength || len(password) > maxPasswordBytes {
		return "", apperrors.NewValidationError("password must be between 8 and 72 bytes", map[string]any{"password": "length"})
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}
