package validate

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"
)

var (
	ErrorInvalidCharacter = errors.New("invalid_character")
	ErrorTooShort         = errors.New("too_short")
	ErrorTooLong          = errors.New("too_long")

	allowedSymbolsInOrgName = map[rune]bool{
		'.': true,
		',': true,
		'-': true,
		' ': true,
		'&': true,
		'\'': true,
		'(': true,
		')': true,
	}
)

const (
	OrgNameMinLength = 2
	OrgNameMaxLength = 255
)

func OrgName(orgName string) error {
	var errs []error
	orgName = strings.TrimSpace(orgName)

	if len(orgName) < OrgNameMinLength {
		errs = append(errs, ErrorTooShort)
	}
	if len(orgName) > OrgNameMaxLength {
		errs = append(errs, ErrorTooLong)
	}

	invalidCharacters := map[rune]struct{}{}
	for _, r := range orgName {
		if !isRuneAllowedInOrgName(r) {
			invalidCharacters[r] = struct{}{}
		}
	}
	sortedCharacters := make([]rune, 0, len(invalidCharacters))
	for invalidCharacter := range invalidCharacters {
		sortedCharacters = append(sortedCharacters, invalidCharacter)
	}
	sort.Slice(sortedCharacters, func(i, j int) bool { return sortedCharacters[i] < sortedCharacters[j] })
	for _, invalidCharacter := range sortedCharacters {
		errs = append(errs, fmt.Errorf("%w: character[%q] is not allowed", ErrorInvalidCharacter, invalidCharacter))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func isRuneAllowedInOrgName(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	if _, ok := allowedSymbolsInOrgName[r]; ok {
		return true
	}
	return false
}
