package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/argon2"
)

const (
	PasswordMinimumLength = 8
	PasswordMaximumLength = 128
)

type hashParams struct {
	memory  uint32
	time    uint32
	threads uint8
	keyLen  uint32
	saltLen int
}

var passwordHashParams = hashParams{
	memory:  64 * 1024, // 64 MB
	time:    3,
	threads: 4,
	keyLen:  32,
	saltLen: 16,
}

// backup codes are high entropy and checked in a loop so they get a
// lighter cost than passwords
var backupCodeHashParams = hashParams{
	memory:  8 * 1024,
	time:    1,
	threads: 2,
	keyLen:  32,
	saltLen: 16,
}

func HashPassword(password string) (string, error) {
	return hash(password, passwordHashParams)
}

func hash(value string, params hashParams) (string, error) {
	salt := make([]byte, params.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	hash := argon2.IDKey([]byte(value), salt, params.time, params.memory, params.threads, params.keyLen)
	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		params.memory, params.time, params.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)
	return encoded, nil
}

// ValidatePassword checks password against an encoded argon2id hash
// produced by HashPassword
func ValidatePassword(password, encoded string) bool {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false
	}

	var mem uint32
	var t uint32
	var p uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &t, &p); err != nil {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}

	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}

	hash := argon2.IDKey([]byte(password), salt, t, mem, p, uint32(len(expectedHash)))

	return subtle.ConstantTimeCompare(hash, expectedHash) == 1
}

// ValidatePasswordStrength returns every rule password breaks
func ValidatePasswordStrength(password string) error {
	if len(password) < PasswordMinimumLength {
		return ErrorPasswordTooShort
	}
	if len(password) > PasswordMaximumLength {
		return ErrorPasswordTooLong
	}
	var hasUpper, hasLower, hasNumber, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasNumber = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	errs := []error{}
	if !hasUpper {
		errs = append(errs, ErrorPasswordNoUppercase)
	}
	if !hasLower {
		errs = append(errs, ErrorPasswordNoLowercase)
	}
	if !hasNumber {
		errs = append(errs, ErrorPasswordNoNumber)
	}
	if !hasSymbol {
		errs = append(errs, ErrorPasswordNoSymbol)
	}
	return errors.Join(errs...)
}
