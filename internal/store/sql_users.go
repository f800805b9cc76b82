package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const userColumns = `id, email, name, password_hash, email_verified, is_active, mfa_enabled, roles, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var user User
	var roles string
	if err := row.Scan(
		&user.Id,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&user.EmailVerified,
		&user.IsActive,
		&user.MfaEnabled,
		&roles,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if roles != "" {
		if err := json.Unmarshal([]byte(roles), &user.Roles); err != nil {
			return nil, fmt.Errorf("failed to parse roles of user[%s]: %w", user.Id, err)
		}
	}
	return &user, nil
}

func marshalList(values []string) string {
	if values == nil {
		values = []string{}
	}
	encoded, _ := json.Marshal(values)
	return string(encoded)
}

func (s *Sql) CreateUser(ctx context.Context, user User) error {
	input := s.input(
		"store.Sql.CreateUser",
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.Id,
		user.Email,
		user.Name,
		user.PasswordHash,
		user.EmailVerified,
		user.IsActive,
		user.MfaEnabled,
		marshalList(user.Roles),
		user.CreatedAt.UTC(),
		user.UpdatedAt.UTC(),
	)
	input.RowsAffected = oneRowAffected
	return s.executeInsert(ctx, input)
}

func (s *Sql) getUser(ctx context.Context, fnSource, column, value string) (*User, error) {
	var output *User
	input := s.input(fnSource, `SELECT `+userColumns+` FROM users WHERE `+column+` = ?`, value)
	input.ProcessRow = func(row *sql.Row) (err error) {
		output, err = scanUser(row)
		return err
	}
	if err := s.executeSelect(ctx, input); err != nil {
		return nil, err
	}
	return output, nil
}

func (s *Sql) GetUserById(ctx context.Context, id string) (*User, error) {
	return s.getUser(ctx, "store.Sql.GetUserById", "id", id)
}

func (s *Sql) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.getUser(ctx, "store.Sql.GetUserByEmail", "email", email)
}

func (s *Sql) updateUserFlag(ctx context.Context, fnSource, column string, id string, value bool) error {
	input := s.input(fnSource, `UPDATE users SET `+column+` = ?, updated_at = ? WHERE id = ?`, value, time.Now().UTC(), id)
	rowsAffected, err := s.executeUpdate(ctx, input)
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: user[%s]: %w", fnSource, id, ErrorNotFound)
	}
	return nil
}

func (s *Sql) SetUserEmailVerified(ctx context.Context, id string) error {
	return s.updateUserFlag(ctx, "store.Sql.SetUserEmailVerified", "email_verified", id, true)
}

func (s *Sql) SetUserMfaEnabled(ctx context.Context, id string, enabled bool) error {
	return s.updateUserFlag(ctx, "store.Sql.SetUserMfaEnabled", "mfa_enabled", id, enabled)
}

func (s *Sql) CreateVerificationToken(ctx context.Context, token VerificationToken) error {
	input := s.input(
		"store.Sql.CreateVerificationToken",
		`INSERT INTO verification_tokens (digest, user_id, purpose, expires_at) VALUES (?, ?, ?, ?)`,
		token.Digest,
		token.UserId,
		string(token.Purpose),
		token.ExpiresAt.UTC(),
	)
	input.RowsAffected = oneRowAffected
	return s.executeInsert(ctx, input)
}

// ConsumeVerificationToken deletes the token and returns it, expired
// tokens are deleted too but reported as ErrorExpired
func (s *Sql) ConsumeVerificationToken(ctx context.Context, digest string, purpose TokenPurpose, now time.Time) (*VerificationToken, error) {
	fnSource := "store.Sql.ConsumeVerificationToken"
	var output VerificationToken
	err := s.inTx(ctx, fnSource, func(tx *sql.Tx) error {
		input := s.input(fnSource, `SELECT digest, user_id, purpose, expires_at FROM verification_tokens WHERE digest = ? AND purpose = ?`, digest, string(purpose))
		input.Db = tx
		input.ProcessRow = func(row *sql.Row) error {
			var tokenPurpose string
			if err := row.Scan(&output.Digest, &output.UserId, &tokenPurpose, &output.ExpiresAt); err != nil {
				return err
			}
			output.Purpose = TokenPurpose(tokenPurpose)
			return nil
		}
		if err := s.executeSelect(ctx, input); err != nil {
			return err
		}
		deleteInput := s.input(fnSource, `DELETE FROM verification_tokens WHERE digest = ?`, digest)
		deleteInput.Db = tx
		deleteInput.RowsAffected = oneRowAffected
		_, err := s.executeDelete(ctx, deleteInput)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !now.Before(output.ExpiresAt) {
		return nil, fmt.Errorf("%s: %w", fnSource, ErrorExpired)
	}
	return &output, nil
}
