package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"dotmac/internal/common"
)

const opaqueTokenLength = 48

// CreateOpaqueToken returns a random token and the digest it is stored
// under, used for email verification and pending two factor logins
func CreateOpaqueToken() (token, digest string, err error) {
	token, err = common.GenerateRandomString(opaqueTokenLength)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate token: %w", err)
	}
	return token, DigestOpaqueToken(token), nil
}

func DigestOpaqueToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
