package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const SessionTokenIssuer = "dotmac/auth"

// Claims is the payload of a session token, the session id travels in
// the registered `jti` claim
type Claims struct {
	UserId string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

type GenerateJwtOpts struct {
	Audience  string
	Email     string
	ExpiresAt time.Time
	IssuedAt  time.Time
	SessionId string
	Secret    string
	UserId    string
}

// GenerateJwt signs a session token with HS256
func GenerateJwt(opts GenerateJwtOpts) (string, error) {
	if opts.Secret == "" {
		return "", fmt.Errorf("failed to receive a signing secret: %w", ErrorJwtTokenSignature)
	}
	issuedAt := opts.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = time.Now()
	}
	claims := Claims{
		UserId: opts.UserId,
		Email:  opts.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        opts.SessionId,
			Issuer:    SessionTokenIssuer,
			Subject:   opts.UserId,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(opts.ExpiresAt),
		},
	}
	if opts.Audience != "" {
		claims.Audience = jwt.ClaimStrings{opts.Audience}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(opts.Secret))
}

// ValidateJwt verifies the signature and expiry of tokenString as of
// now and returns its claims
func ValidateJwt(secret, tokenString string, now time.Time) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method[%v]", token.Header["alg"])
			}
			return []byte(secret), nil
		},
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithIssuer(SessionTokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("failed to validate token: %w", ErrorJwtTokenExpired)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return nil, fmt.Errorf("failed to validate token: %w", ErrorJwtTokenSignature)
		}
		return nil, fmt.Errorf("failed to parse token claims: %w: %w", ErrorJwtClaimsInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.ID == "" || claims.UserId == "" {
		return nil, ErrorJwtClaimsInvalid
	}
	return claims, nil
}
