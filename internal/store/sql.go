package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"dotmac/internal/database"
	"dotmac/internal/persistence"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

type NewSqlOpts struct {
	Db      *sql.DB
	Dialect persistence.Dialect
}

func NewSql(opts NewSqlOpts) (*Sql, error) {
	if opts.Db == nil {
		return nil, ErrorDatabaseUndefined
	}
	dialect := opts.Dialect
	if dialect == "" {
		dialect = persistence.DialectPostgres
	}
	return &Sql{db: opts.Db, dialect: dialect}, nil
}

// Sql implements Store over database/sql. Statements are written with ?
// placeholders and rebound for postgres
type Sql struct {
	db      *sql.DB
	dialect persistence.Dialect
}

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func oneRowAffected(observed int64) bool {
	return observed == 1
}

func atMostOneRowAffected(observed int64) bool {
	return observed <= 1
}

type queryInput struct {
	Db           querier
	Stmt         string
	Args         []any
	RowsAffected func(int64) bool
	FnSource     string
	ProcessRows  func(*sql.Rows) error
	ProcessRow   func(*sql.Row) error
}

func (s *Sql) input(fnSource, stmt string, args ...any) queryInput {
	return queryInput{Db: s.db, Stmt: stmt, Args: args, FnSource: fnSource}
}

func (s *Sql) prepare(opts queryInput, allowedOp string) (querier, string, error) {
	if opts.Db == nil {
		return nil, "", fmt.Errorf("%s: missing db input: %w", opts.FnSource, ErrorDatabaseUndefined)
	}
	inputStmt := strings.TrimSpace(opts.Stmt)
	inputOp := strings.SplitN(strings.ReplaceAll(inputStmt, "\n", " "), " ", 2)
	if !strings.EqualFold(inputOp[0], allowedOp) {
		return nil, "", fmt.Errorf("%s: only '%s' statements are allowed: %w", opts.FnSource, allowedOp, ErrorInvalidInput)
	}
	return opts.Db, database.Rebind(s.dialect, inputStmt), nil
}

func (s *Sql) executeExec(ctx context.Context, opts queryInput, allowedOp string, failure error) (int64, error) {
	db, stmt, err := s.prepare(opts, allowedOp)
	if err != nil {
		return 0, err
	}
	results, err := db.ExecContext(ctx, stmt, opts.Args...)
	if err != nil {
		if isDuplicateError(err) {
			return 0, fmt.Errorf("%s: duplicate detected: %w: %w", opts.FnSource, ErrorDuplicateEntry, err)
		}
		return 0, fmt.Errorf("%s: failed to execute %s statement: %w (%w)", opts.FnSource, allowedOp, failure, err)
	}
	rowsAffected, err := results.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to get n(rows) affected: %w (%w)", opts.FnSource, ErrorRowsAffectedCheckFailed, err)
	}
	if opts.RowsAffected != nil && !opts.RowsAffected(rowsAffected) {
		return rowsAffected, fmt.Errorf("%s: n(rows) affected was wrong (got %v): %w", opts.FnSource, rowsAffected, ErrorRowsAffectedCheckFailed)
	}
	return rowsAffected, nil
}

func (s *Sql) executeInsert(ctx context.Context, opts queryInput) error {
	_, err := s.executeExec(ctx, opts, "insert", ErrorInsertFailed)
	return err
}

func (s *Sql) executeUpdate(ctx context.Context, opts queryInput) (int64, error) {
	return s.executeExec(ctx, opts, "update", ErrorUpdateFailed)
}

func (s *Sql) executeDelete(ctx context.Context, opts queryInput) (int64, error) {
	return s.executeExec(ctx, opts, "delete", ErrorDeleteFailed)
}

func (s *Sql) executeSelect(ctx context.Context, opts queryInput) error {
	db, stmt, err := s.prepare(opts, "select")
	if err != nil {
		return err
	}
	if opts.ProcessRow == nil {
		return fmt.Errorf("%s: ProcessRow is undefined: %w", opts.FnSource, ErrorInvalidInput)
	}
	row := db.QueryRowContext(ctx, stmt, opts.Args...)
	if err := opts.ProcessRow(row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s: no rows: %w", opts.FnSource, ErrorNotFound)
		}
		return fmt.Errorf("%s: failed to process row: %w (%w)", opts.FnSource, ErrorSelectFailed, err)
	}
	return nil
}

func (s *Sql) executeSelects(ctx context.Context, opts queryInput) error {
	db, stmt, err := s.prepare(opts, "select")
	if err != nil {
		return err
	}
	if opts.ProcessRows == nil {
		return fmt.Errorf("%s: ProcessRows is undefined: %w", opts.FnSource, ErrorInvalidInput)
	}
	rows, err := db.QueryContext(ctx, stmt, opts.Args...)
	if err != nil {
		return fmt.Errorf("%s: failed to execute select statement: %w (%w)", opts.FnSource, ErrorSelectsFailed, err)
	}
	defer rows.Close()
	counter := 0
	for rows.Next() {
		if err := opts.ProcessRows(rows); err != nil {
			return fmt.Errorf("%s: failed to process row[%v]: %w", opts.FnSource, counter, err)
		}
		counter++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%s: failed to iterate rows: %w (%w)", opts.FnSource, ErrorSelectsFailed, err)
	}
	return nil
}

// inTx runs fn inside a transaction that is rolled back when fn errors
func (s *Sql) inTx(ctx context.Context, fnSource string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: failed to begin transaction: %w (%w)", fnSource, ErrorTransactionFailed, err)
	}
	if err := fn(tx); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return errors.Join(err, fmt.Errorf("%s: failed to rollback: %w", fnSource, rollbackErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: failed to commit: %w (%w)", fnSource, ErrorTransactionFailed, err)
	}
	return nil
}

func isDuplicateError(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrorDuplicateEntryCode {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == postgresUniqueViolationCode {
		return true
	}
	return false
}
