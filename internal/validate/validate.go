package validate

import (
	"errors"
	"sort"
)

type StringRule func(string) error
type RuneRule func(rune, rune) error

func andS(input ...StringRule) StringRule {
	return func(s string) error {
		errs := []error{}
		for _, runValidator := range input {
			if err := runValidator(s); err != nil {
				errs = append(errs, err)
			}
		}
		if len(errs) > 0 {
			return errors.Join(errs...)
		}
		return nil
	}
}

func orR(input ...RuneRule) RuneRule {
	return func(r rune, p rune) error {
		errs := []error{}
		for _, runValidator := range input {
			if err := runValidator(r, p); err != nil {
				errs = append(errs, err)
			} else {
				return nil
			}
		}
		return errors.Join(errs...)
	}
}

// do applies every StringRule to the whole input and every RuneRule to
// each rune, reporting each distinct failure once
func do(input string, validators ...any) error {
	errs := map[string]error{}

	stringRules := []StringRule{}
	runeRules := []RuneRule{}
	for _, validator := range validators {
		if stringRuleValidator, ok := validator.(StringRule); ok {
			stringRules = append(stringRules, stringRuleValidator)
		} else if runeRuleValidator, ok := validator.(RuneRule); ok {
			runeRules = append(runeRules, runeRuleValidator)
		}
	}

	for _, stringRule := range stringRules {
		if err := stringRule(input); err != nil {
			errs[err.Error()] = err
		}
	}

	var p rune
	for _, i := range input {
		for _, runeRule := range runeRules {
			if err := runeRule(i, p); err != nil {
				errs[err.Error()] = err
			}
		}
		p = i
	}

	if len(errs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(errs))
	for key := range errs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	outputErrors := make([]error, 0, len(keys))
	for _, key := range keys {
		outputErrors = append(outputErrors, errs[key])
	}
	return errors.Join(outputErrors...)
}
