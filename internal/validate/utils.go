package validate

import (
	"errors"
	"strings"
)

var (
	ErrorConsecutiveReservedCharacters = errors.New("consecutive_reserved_characters")
	ErrorNotInAllowlistedCharacters    = errors.New("not_in_allowlisted_characters")
	ErrorNotLowercaseLatinAlnum        = errors.New("not_lowercase_latin_alphanumeric")
	ErrorPostfixedWithNonLatinAlnum    = errors.New("cannot_end_with_non_latin_alphanumeric")
	ErrorPrefixedWithNonLatinAlnum     = errors.New("cannot_start_with_non_latin_alphanumeric")
	ErrorReservedWord                  = errors.New("reserved_word")
	ErrorStringTooShort                = errors.New("string_too_short")
	ErrorStringTooLong                 = errors.New("string_too_long")

	ErrorInvalidUuid = errors.New("invalid_uuid")
)

func hasLengthBetween(min, max int) StringRule {
	return func(s string) error {
		switch {
		case len(s) < min:
			return ErrorStringTooShort
		case len(s) > max:
			return ErrorStringTooLong
		}
		return nil
	}
}

// hasLatinAlnumEdges rejects separators at either end, the first and
// last byte are enough since anything non-ascii fails the rune rules
func hasLatinAlnumEdges() StringRule {
	return func(s string) error {
		if s == "" {
			return nil
		}
		errs := []error{}
		if !isLowerLatinAlnum(rune(s[0])) {
			errs = append(errs, ErrorPrefixedWithNonLatinAlnum)
		}
		if !isLowerLatinAlnum(rune(s[len(s)-1])) {
			errs = append(errs, ErrorPostfixedWithNonLatinAlnum)
		}
		return errors.Join(errs...)
	}
}

func hasNoConsecutive(r rune) StringRule {
	return func(s string) error {
		if strings.Contains(s, string([]rune{r, r})) {
			return ErrorConsecutiveReservedCharacters
		}
		return nil
	}
}

// isNotReserved matches whole words and the leading segment before the
// first separator, so `api` and `api-gateway` are both refused
func isNotReserved(separator string, words map[string]struct{}) StringRule {
	return func(s string) error {
		leading, _, _ := strings.Cut(s, separator)
		if _, ok := words[leading]; ok {
			return ErrorReservedWord
		}
		return nil
	}
}

func isOneOf(runes ...rune) RuneRule {
	return func(curr rune, prev rune) error {
		if strings.ContainsRune(string(runes), curr) {
			return nil
		}
		return ErrorNotInAllowlistedCharacters
	}
}

func isLowerLatinAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}

func isLowercaseLatinAlnum() RuneRule {
	return func(curr rune, prev rune) error {
		if isLowerLatinAlnum(curr) {
			return nil
		}
		return ErrorNotLowercaseLatinAlnum
	}
}
