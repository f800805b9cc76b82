package auth

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/skip2/go-qrcode"
)

var totpOpts = totp.ValidateOpts{
	Period:    30,
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

type GetTotpUriOpts struct {
	Issuer    string
	AccountId string
	Secret    string
}

// GetTotpUri returns the otpauth:// uri authenticator apps enroll from
func GetTotpUri(opts GetTotpUriOpts) string {
	label := url.PathEscape(fmt.Sprintf("%s:%s", opts.Issuer, opts.AccountId))
	q := url.Values{}
	q.Set("secret", strings.ToUpper(opts.Secret)) // most apps expect uppercase
	q.Set("issuer", opts.Issuer)
	q.Set("algorithm", totpOpts.Algorithm.String())
	q.Set("digits", totpOpts.Digits.String())
	q.Set("period", fmt.Sprintf("%d", totpOpts.Period))
	return fmt.Sprintf("otpauth://totp/%s?%s", label, q.Encode())
}

// GetTotpQrCode renders the enrollment uri as a terminal friendly qr
// code using half block characters
func GetTotpQrCode(opts GetTotpUriOpts) (string, error) {
	qr, err := qrcode.New(GetTotpUri(opts), qrcode.Low)
	if err != nil {
		return "", fmt.Errorf("failed to create qr code: %w", err)
	}
	var b strings.Builder
	bitmap := qr.Bitmap()
	for y := 0; y < len(bitmap); y += 2 {
		for x := 0; x < len(bitmap[y]); x++ {
			top := bitmap[y][x]
			bottom := false
			if y+1 < len(bitmap) {
				bottom = bitmap[y+1][x]
			}
			switch {
			case top && bottom:
				b.WriteString("█")
			case top && !bottom:
				b.WriteString("▀")
			case !top && bottom:
				b.WriteString("▄")
			default:
				b.WriteString(" ")
			}
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

// GetTotpQrCodePng renders the enrollment uri as a png for browsers
func GetTotpQrCodePng(opts GetTotpUriOpts, size int) ([]byte, error) {
	png, err := qrcode.Encode(GetTotpUri(opts), qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr code: %w", err)
	}
	return png, nil
}

func CreateTotpSeed(issuer, accountName string) (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: accountName,
		Period:      totpOpts.Period,
		Digits:      totpOpts.Digits,
		Algorithm:   totpOpts.Algorithm,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate totp seed: %w", err)
	}
	return key.Secret(), nil
}

// ValidateTotpToken checks token against secret at the given time with
// one period of skew either side
func ValidateTotpToken(secret, token string, at time.Time) (bool, error) {
	return totp.ValidateCustom(token, secret, at.UTC(), totpOpts)
}

// CreateTotpToken returns the code valid for secret at the given time
func CreateTotpToken(secret string, at time.Time) (string, error) {
	code, err := totp.GenerateCodeCustom(secret, at.UTC(), totpOpts)
	if err != nil {
		return "", fmt.Errorf("failed to generate totp token: %w", err)
	}
	return code, nil
}

// CreateTotpTokens returns the codes for every period starting at from
// until validity has elapsed
func CreateTotpTokens(secret string, from time.Time, validity time.Duration) ([]string, error) {
	period := time.Duration(totpOpts.Period) * time.Second
	results := []string{}
	for at := from.Truncate(period); at.Before(from.Add(validity)); at = at.Add(period) {
		code, err := CreateTotpToken(secret, at)
		if err != nil {
			return nil, err
		}
		results = append(results, code)
	}
	return results, nil
}
