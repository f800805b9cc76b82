package common

import (
	"crypto/rand"
	"fmt"
)

const (
	CharsetAlphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// CharsetUnambiguous drops characters that are easily misread when a
	// code is typed back from paper, used for backup codes
	CharsetUnambiguous = "abcdefghjkmnpqrstuvwxyz23456789"
)

// GenerateRandomString returns length characters drawn uniformly from
// CharsetAlphanumeric
func GenerateRandomString(length int) (string, error) {
	return GenerateRandomStringFrom(CharsetAlphanumeric, length)
}

// GenerateRandomStringFrom draws from charset with rejection sampling so
// every character is equally likely
func GenerateRandomStringFrom(charset string, length int) (string, error) {
	if len(charset) == 0 || len(charset) > 256 {
		return "", fmt.Errorf("charset of %v characters is not supported", len(charset))
	}
	// bytes at or above limit would favour the start of charset
	limit := 256 - 256%len(charset)
	output := make([]byte, 0, length)
	buffer := make([]byte, length+length/2+1)
	for len(output) < length {
		if _, err := rand.Read(buffer); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		for _, b := range buffer {
			if int(b) >= limit {
				continue
			}
			output = append(output, charset[int(b)%len(charset)])
			if len(output) == length {
				break
			}
		}
	}
	return string(output), nil
}
