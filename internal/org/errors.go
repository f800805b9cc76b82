package org

import "errors"

var (
	ErrorForbidden            = errors.New("forbidden")
	ErrorInvalidInput         = errors.New("invalid_input")
	ErrorInvalidRole          = errors.New("invalid_role")
	ErrorLastOwner            = errors.New("last_owner")
	ErrorMissingRegistry      = errors.New("missing_registry")
	ErrorMissingStore         = errors.New("missing_store")
	ErrorNoActiveOrganization = errors.New("no_active_organization")
	ErrorNotMember            = errors.New("not_member")
)
