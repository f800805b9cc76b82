package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("noc.team@isp-example.co.ke"))
	assert.ErrorIs(t, ValidateEmail("a@"), ErrorEmailMissing)
	assert.ErrorIs(t, ValidateEmail("user.example.com"), ErrorEmailInvalidAt)
	assert.ErrorIs(t, ValidateEmail("user+tag@example.com"), ErrorEmailAliasesNotAllowed)
	assert.ErrorIs(t, ValidateEmail(".user@example.com"), ErrorEmailUserPartLeadingSymbols)
	assert.ErrorIs(t, ValidateEmail("us..er@example.com"), ErrorEmailUserPartConsecutiveSymbols)
	assert.ErrorIs(t, ValidateEmail("user@localhost"), ErrorEmailDomainInvalid)
	assert.Equal(t, "ops@example.com", NormalizeEmail("  Ops@Example.COM "))
}

func TestPasswordHashing(t *testing.T) {
	hashed, err := HashPassword("Sup3r!secret")
	require.NoError(t, err)
	assert.True(t, ValidatePassword("Sup3r!secret", hashed))
	assert.False(t, ValidatePassword("Sup3r!secreT", hashed))
	assert.False(t, ValidatePassword("Sup3r!secret", "$bcrypt$nope"))
}

func TestValidatePasswordStrength(t *testing.T) {
	assert.NoError(t, ValidatePasswordStrength("Sup3r!secret"))
	assert.ErrorIs(t, ValidatePasswordStrength("Ab1!"), ErrorPasswordTooShort)
	err := ValidatePasswordStrength("alllowercase")
	assert.ErrorIs(t, err, ErrorPasswordNoUppercase)
	assert.ErrorIs(t, err, ErrorPasswordNoNumber)
	assert.ErrorIs(t, err, ErrorPasswordNoSymbol)
}

func TestJwtRoundTrip(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	token, err := GenerateJwt(GenerateJwtOpts{
		Email:     "ops@example.com",
		ExpiresAt: now.Add(time.Hour),
		IssuedAt:  now,
		SessionId: "session-1",
		Secret:    "secret",
		UserId:    "user-1",
	})
	require.NoError(t, err)

	claims, err := ValidateJwt("secret", token, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "session-1", claims.ID)
	assert.Equal(t, "user-1", claims.UserId)

	_, err = ValidateJwt("other", token, now)
	assert.ErrorIs(t, err, ErrorJwtTokenSignature)

	_, err = ValidateJwt("secret", token, now.Add(2*time.Hour))
	assert.ErrorIs(t, err, ErrorJwtTokenExpired)

	_, err = ValidateJwt("secret", "not-a-token", now)
	assert.ErrorIs(t, err, ErrorJwtClaimsInvalid)
}

func TestTotp(t *testing.T) {
	secret, err := CreateTotpSeed("dotmac", "ops@example.com")
	require.NoError(t, err)
	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	code, err := CreateTotpToken(secret, at)
	require.NoError(t, err)
	ok, err := ValidateTotpToken(secret, code, at.Add(20*time.Second))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = ValidateTotpToken(secret, code, at.Add(5*time.Minute))
	assert.False(t, ok)

	codes, err := CreateTotpTokens(secret, at, 2*time.Minute)
	require.NoError(t, err)
	assert.Len(t, codes, 4)
	assert.Equal(t, code, codes[0])

	uri := GetTotpUri(GetTotpUriOpts{Issuer: "dotmac", AccountId: "ops@example.com", Secret: secret})
	assert.Contains(t, uri, "otpauth://totp/dotmac:ops@example.com?")
	assert.Contains(t, uri, "digits=6")

	qr, err := GetTotpQrCode(GetTotpUriOpts{Issuer: "dotmac", AccountId: "ops@example.com", Secret: secret})
	require.NoError(t, err)
	assert.NotEmpty(t, qr)
}

func TestBackupCodes(t *testing.T) {
	codes, err := GenerateBackupCodes(3)
	require.NoError(t, err)
	require.Len(t, codes.Plain, 3)
	require.Len(t, codes.Hashes, 3)
	assert.Regexp(t, `^[a-z0-9]{5}-[a-z0-9]{5}$`, codes.Plain[0])

	assert.Equal(t, 1, MatchBackupCode(codes.Plain[1], codes.Hashes))
	assert.Equal(t, 2, MatchBackupCode(" "+codes.Plain[2]+" ", codes.Hashes))
	assert.Equal(t, -1, MatchBackupCode("00000-00000", codes.Hashes))
}

func TestOpaqueToken(t *testing.T) {
	token, digest, err := CreateOpaqueToken()
	require.NoError(t, err)
	assert.Len(t, token, opaqueTokenLength)
	assert.Equal(t, digest, DigestOpaqueToken(token))
	assert.NotEqual(t, token, digest)
}
