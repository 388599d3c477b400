package usecase

import (
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"cuecards_backend/internal/feature/auth/domain"
	"cuecards_backend/internal/feature/auth/domain/entity"
)

const (
	// minPasswordLength はパスワードの最低文字数を定義します。
	minPasswordLength = 8
	// maxPasswordBytes is the bcrypt input limit.
	maxPasswordBytes = 72
)

// dummyHash keeps login timing constant when the user does not exist.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// validatePassword requires an uppercase letter, a lowercase letter, and a digit or symbol.
func validatePassword(password string) error {
	if len([]rune(password)) < minPasswordLength || len(password) > maxPasswordBytes {
		return fmt.Errorf("%w: length must be between %d characters and %d bytes",
			domain.ErrInvalidPasswordFormat, minPasswordLength, maxPasswordBytes)
	}

	var upper, lower, digitOrSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsSpace(r):
			return fmt.Errorf("%w: whitespace is not allowed", domain.ErrInvalidPasswordFormat)
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r), unicode.IsPunct(r), unicode.IsSymbol(r):
			digitOrSymbol = true
		}
	}
	if !upper || !lower || !digitOrSymbol {
		return domain.ErrInvalidPasswordFormat
	}
	return nil
}

// hashPassword hashes password with the configured bcrypt cost.
func (u *AuthUsecase) hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), u.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// passwordMatches compares a plaintext candidate against a stored bcrypt hash.
func passwordMatches(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// verifyNotReused reports domain.ErrPasswordReused when candidate equals the
// current or the previous password in creds. bcrypt hashes are salted, so the
// candidate plaintext is compared against each stored hash.
func verifyNotReused(creds *entity.Credentials, candidate string) error {
	if creds == nil {
		return nil
	}
	if passwordMatches(creds.PasswordHash, candidate) {
		return domain.ErrPasswordReused
	}
	if creds.LastPasswordHash != nil && passwordMatches(*creds.LastPasswordHash, candidate) {
		return domain.ErrPasswordReused
	}
	return nil
}
