package session

import (
	"errors"
	"fmt"
)

var (
	ErrorEmailNotVerified     = errors.New("email_not_verified")
	ErrorInvalidCredentials   = errors.New("invalid_credentials")
	ErrorInvalidSession       = errors.New("invalid_session")
	ErrorInvalidToken         = errors.New("invalid_token")
	ErrorInvalidTwoFactorCode = errors.New("invalid_two_factor_code")
	ErrorMissingCache         = errors.New("missing_cache")
	ErrorMissingSecret        = errors.New("missing_secret")
	ErrorMissingStore         = errors.New("missing_store")
	ErrorSessionExpired       = errors.New("session_expired")
	ErrorTwoFactorEnabled     = errors.New("two_factor_already_enabled")
	ErrorTwoFactorNotEnabled  = errors.New("two_factor_not_enabled")
	ErrorTwoFactorRequired    = errors.New("two_factor_required")
	ErrorUserExists           = errors.New("user_exists")
	ErrorUserSuspended        = errors.New("user_suspended")
)

// TwoFactorRequiredError is returned by SignInEmail for users with 2FA
// enabled, LoginId is exchanged through SignInTwoFactor
type TwoFactorRequiredError struct {
	LoginId string
}

func (e *TwoFactorRequiredError) Error() string {
	return fmt.Sprintf("%s: second factor required", ErrorTwoFactorRequired)
}

func (e *TwoFactorRequiredError) Is(target error) bool {
	return target == ErrorTwoFactorRequired
}
