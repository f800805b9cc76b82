package auth

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
)

var domainRegex = regexp.MustCompile(
	`^(?i:[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?)(?:\.(?i:[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?))*\.[a-z]{2,}$`,
)

// NormalizeEmail trims and lowercases an address so that lookups are
// case insensitive
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail returns every problem found with email joined into one
// error, nil means the address is acceptable
func ValidateEmail(email string) error {
	if len(email) <= 3 {
		return ErrorEmailMissing
	}

	errs := []error{}
	at := strings.IndexByte(email, '@')
	if at <= 0 || at != strings.LastIndexByte(email, '@') {
		return ErrorEmailInvalidAt
	}

	user := email[:at]
	domain := email[at+1:]
	if len(domain) == 0 {
		errs = append(errs, ErrorEmailEmptyDomain)
	} else if !domainRegex.MatchString(domain) {
		errs = append(errs, ErrorEmailDomainInvalid)
	}

	if len(user) < 1 || len(user) > 64 {
		errs = append(errs, ErrorEmailUserPartInvalidLength)
	}

	var prev rune
	for i, r := range user {
		if r > unicode.MaxASCII {
			errs = append(errs, ErrorEmailUserPartNonAscii)
			break
		}
		if r == '+' {
			errs = append(errs, ErrorEmailAliasesNotAllowed)
		} else if !(isASCIILetterOrDigit(byte(r)) || r == '.' || r == '-' || r == '_') {
			errs = append(errs, ErrorEmailUserPartIllegalChar)
		}
		if (r == '.' && prev == '.') || (r == '-' && prev == '-') {
			errs = append(errs, ErrorEmailUserPartConsecutiveSymbols)
		}
		if i == 0 && (r == '.' || r == '-' || r == '_') {
			errs = append(errs, ErrorEmailUserPartLeadingSymbols)
		}
		if i == len(user)-1 && (r == '.' || r == '-' || r == '_') {
			errs = append(errs, ErrorEmailUserPartTrailingSymbols)
		}
		prev = r
	}

	return errors.Join(errs...)
}

func isASCIILetterOrDigit(b byte) bool {
	return (b >= 'A' && b <= 'Z') ||
		(b >= 'a' && b <= 'z') ||
		(b >= '0' && b <= '9')
}
