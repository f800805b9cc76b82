package accesscontrol

import "errors"

var (
	ErrorDuplicateRole      = errors.New("duplicate_role")
	ErrorEmptyRoleName      = errors.New("empty_role_name")
	ErrorEmptyStatement     = errors.New("empty_statement")
	ErrorInvalidPermission  = errors.New("invalid_permission")
	ErrorUndeclaredAction   = errors.New("undeclared_action")
	ErrorUndeclaredResource = errors.New("undeclared_resource")
	ErrorUnknownRole        = errors.New("unknown_role")
)
