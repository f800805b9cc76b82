package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const sessionColumns = `id, user_id, active_org_id, ip_address, user_agent, created_at, refreshed_at, expires_at`

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

func scanSession(row rowScanner) (*Session, error) {
	var session Session
	var activeOrgId sql.NullString
	if err := row.Scan(
		&session.Id,
		&session.UserId,
		&activeOrgId,
		&session.IpAddress,
		&session.UserAgent,
		&session.CreatedAt,
		&session.RefreshedAt,
		&session.ExpiresAt,
	); err != nil {
		return nil, err
	}
	session.ActiveOrgId = activeOrgId.String
	return &session, nil
}

func (s *Sql) CreateSession(ctx context.Context, session Session) error {
	input := s.input(
		"store.Sql.CreateSession",
		`INSERT INTO sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		session.Id,
		session.UserId,
		nullString(session.ActiveOrgId),
		session.IpAddress,
		session.UserAgent,
		session.CreatedAt.UTC(),
		session.RefreshedAt.UTC(),
		session.ExpiresAt.UTC(),
	)
	input.RowsAffected = oneRowAffected
	return s.executeInsert(ctx, input)
}

func (s *Sql) GetSession(ctx context.Context, id string) (*Session, error) {
	var output *Session
	input := s.input("store.Sql.GetSession", `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	input.ProcessRow = func(row *sql.Row) (err error) {
		output, err = scanSession(row)
		return err
	}
	if err := s.executeSelect(ctx, input); err != nil {
		return nil, err
	}
	return output, nil
}

func (s *Sql) ListUserSessions(ctx context.Context, userId string) ([]Session, error) {
	output := []Session{}
	input := s.input("store.Sql.ListUserSessions", `SELECT `+sessionColumns+` FROM sessions WHERE user_id = ? ORDER BY created_at`, userId)
	input.ProcessRows = func(rows *sql.Rows) error {
		session, err := scanSession(rows)
		if err != nil {
			return err
		}
		output = append(output, *session)
		return nil
	}
	if err := s.executeSelects(ctx, input); err != nil {
		return nil, err
	}
	return output, nil
}

func (s *Sql) RefreshSession(ctx context.Context, id string, refreshedAt, expiresAt time.Time) error {
	input := s.input("store.Sql.RefreshSession", `UPDATE sessions SET refreshed_at = ?, expires_at = ? WHERE id = ?`, refreshedAt.UTC(), expiresAt.UTC(), id)
	input.RowsAffected = oneRowAffected
	_, err := s.executeUpdate(ctx, input)
	return err
}

func (s *Sql) SetSessionActiveOrganization(ctx context.Context, id string, orgId string) error {
	input := s.input("store.Sql.SetSessionActiveOrganization", `UPDATE sessions SET active_org_id = ? WHERE id = ?`, nullString(orgId), id)
	rowsAffected, err := s.executeUpdate(ctx, input)
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("store.Sql.SetSessionActiveOrganization: session[%s]: %w", id, ErrorNotFound)
	}
	return nil
}

func (s *Sql) DeleteSession(ctx context.Context, id string) error {
	input := s.input("store.Sql.DeleteSession", `DELETE FROM sessions WHERE id = ?`, id)
	input.RowsAffected = atMostOneRowAffected
	_, err := s.executeDelete(ctx, input)
	return err
}

// DeleteUserSessions removes every session of the user and returns the
// removed ids so their cache entries can be invalidated
func (s *Sql) DeleteUserSessions(ctx context.Context, userId string) ([]string, error) {
	fnSource := "store.Sql.DeleteUserSessions"
	ids := []string{}
	err := s.inTx(ctx, fnSource, func(tx *sql.Tx) error {
		input := s.input(fnSource, `SELECT id FROM sessions WHERE user_id = ?`, userId)
		input.Db = tx
		input.ProcessRows = func(rows *sql.Rows) error {
			var id string
			if err := rows.Scan(&id); err != nil {
				return err
			}
			ids = append(ids, id)
			return nil
		}
		if err := s.executeSelects(ctx, input); err != nil {
			return err
		}
		deleteInput := s.input(fnSource, `DELETE FROM sessions WHERE user_id = ?`, userId)
		deleteInput.Db = tx
		_, err := s.executeDelete(ctx, deleteInput)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Sql) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	fnSource := "store.Sql.DeleteExpiredSessions"
	var total int64
	for _, stmt := range []string{
		`DELETE FROM sessions WHERE expires_at <= ?`,
		`DELETE FROM pending_logins WHERE expires_at <= ?`,
		`DELETE FROM verification_tokens WHERE expires_at <= ?`,
	} {
		rowsAffected, err := s.executeDelete(ctx, s.input(fnSource, stmt, now.UTC()))
		if err != nil {
			return total, err
		}
		total += rowsAffected
	}
	return total, nil
}

func (s *Sql) CreatePendingLogin(ctx context.Context, login PendingLogin) error {
	input := s.input(
		"store.Sql.CreatePendingLogin",
		`INSERT INTO pending_logins (digest, user_id, ip_address, user_agent, expires_at) VALUES (?, ?, ?, ?, ?)`,
		login.Digest,
		login.UserId,
		login.IpAddress,
		login.UserAgent,
		login.ExpiresAt.UTC(),
	)
	input.RowsAffected = oneRowAffected
	return s.executeInsert(ctx, input)
}

func (s *Sql) ConsumePendingLogin(ctx context.Context, digest string, now time.Time) (*PendingLogin, error) {
	fnSource := "store.Sql.ConsumePendingLogin"
	var output PendingLogin
	err := s.inTx(ctx, fnSource, func(tx *sql.Tx) error {
		input := s.input(fnSource, `SELECT digest, user_id, ip_address, user_agent, expires_at FROM pending_logins WHERE digest = ?`, digest)
		input.Db = tx
		input.ProcessRow = func(row *sql.Row) error {
			return row.Scan(&output.Digest, &output.UserId, &output.IpAddress, &output.UserAgent, &output.ExpiresAt)
		}
		if err := s.executeSelect(ctx, input); err != nil {
			return err
		}
		deleteInput := s.input(fnSource, `DELETE FROM pending_logins WHERE digest = ?`, digest)
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
