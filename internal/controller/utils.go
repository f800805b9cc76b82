package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"dotmac/internal/auth"
	"dotmac/internal/org"
	"dotmac/internal/session"
	"dotmac/internal/store"
)

const maxRequestBodyBytes = 1 << 20

func readBody(r *http.Request, into any) error {
	requestBody, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err != nil {
		return fmt.Errorf("failed to read request body: %w", ErrorInvalidBody)
	}
	if len(requestBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(requestBody, into); err != nil {
		return fmt.Errorf("failed to parse request body: %w", ErrorInvalidBody)
	}
	return nil
}

var errorStatusCodes = []struct {
	err        error
	statusCode int
}{
	{ErrorInvalidBody, http.StatusBadRequest},
	{session.ErrorInvalidCredentials, http.StatusUnauthorized},
	{session.ErrorInvalidSession, http.StatusUnauthorized},
	{session.ErrorSessionExpired, http.StatusUnauthorized},
	{session.ErrorInvalidTwoFactorCode, http.StatusUnauthorized},
	{session.ErrorEmailNotVerified, http.StatusLocked},
	{session.ErrorUserSuspended, http.StatusForbidden},
	{session.ErrorUserExists, http.StatusConflict},
	{session.ErrorInvalidToken, http.StatusBadRequest},
	{session.ErrorTwoFactorEnabled, http.StatusConflict},
	{session.ErrorTwoFactorNotEnabled, http.StatusBadRequest},
	{org.ErrorForbidden, http.StatusForbidden},
	{org.ErrorNotMember, http.StatusForbidden},
	{org.ErrorInvalidInput, http.StatusBadRequest},
	{org.ErrorInvalidRole, http.StatusBadRequest},
	{org.ErrorLastOwner, http.StatusConflict},
	{store.ErrorNotFound, http.StatusNotFound},
	{store.ErrorDuplicateEntry, http.StatusConflict},
}

var validationErrors = []error{
	auth.ErrorEmailAliasesNotAllowed,
	auth.ErrorEmailDomainInvalid,
	auth.ErrorEmailEmptyDomain,
	auth.ErrorEmailInvalidAt,
	auth.ErrorEmailMissing,
	auth.ErrorEmailUserPartInvalidLength,
	auth.ErrorEmailUserPartNonAscii,
	auth.ErrorEmailUserPartIllegalChar,
	auth.ErrorEmailUserPartConsecutiveSymbols,
	auth.ErrorEmailUserPartLeadingSymbols,
	auth.ErrorEmailUserPartTrailingSymbols,
	auth.ErrorPasswordTooShort,
	auth.ErrorPasswordTooLong,
	auth.ErrorPasswordNoUppercase,
	auth.ErrorPasswordNoLowercase,
	auth.ErrorPasswordNoNumber,
	auth.ErrorPasswordNoSymbol,
}

// getStatusCode maps domain errors to a response status, anything
// unrecognised is a 500
func getStatusCode(err error) int {
	for _, mapping := range errorStatusCodes {
		if errors.Is(err, mapping.err) {
			return mapping.statusCode
		}
	}
	for _, validationError := range validationErrors {
		if errors.Is(err, validationError) {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

func isInternalError(err error) bool {
	return getStatusCode(err) == http.StatusInternalServerError
}
