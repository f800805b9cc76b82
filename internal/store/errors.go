package store

import "errors"

var (
	ErrorDatabaseUndefined       = errors.New("database_undefined")
	ErrorDeleteFailed            = errors.New("delete_failed")
	ErrorDuplicateEntry          = errors.New("duplicate_entry")
	ErrorExpired                 = errors.New("expired")
	ErrorInsertFailed            = errors.New("insert_failed")
	ErrorInvalidInput            = errors.New("invalid_input")
	ErrorNotFound                = errors.New("not_found")
	ErrorRowsAffectedCheckFailed = errors.New("rows_affected_check_failed")
	ErrorSelectFailed            = errors.New("select_failed")
	ErrorSelectsFailed           = errors.New("selects_failed")
	ErrorTransactionFailed       = errors.New("transaction_failed")
	ErrorUpdateFailed            = errors.New("update_failed")

	mysqlErrorDuplicateEntryCode uint16 = 1062
	postgresUniqueViolationCode         = "23505"
)
