package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

func (s *Sql) GetTwoFactor(ctx context.Context, userId string) (*TwoFactor, error) {
	var output TwoFactor
	input := s.input("store.Sql.GetTwoFactor", `SELECT user_id, secret, backup_codes, confirmed, created_at FROM two_factor WHERE user_id = ?`, userId)
	input.ProcessRow = func(row *sql.Row) error {
		var backupCodes string
		if err := row.Scan(&output.UserId, &output.Secret, &backupCodes, &output.Confirmed, &output.CreatedAt); err != nil {
			return err
		}
		return json.Unmarshal([]byte(backupCodes), &output.BackupCodes)
	}
	if err := s.executeSelect(ctx, input); err != nil {
		return nil, err
	}
	return &output, nil
}

// UpsertTwoFactor replaces any existing enrolment of the user with an
// unconfirmed one
func (s *Sql) UpsertTwoFactor(ctx context.Context, twoFactor TwoFactor) error {
	fnSource := "store.Sql.UpsertTwoFactor"
	return s.inTx(ctx, fnSource, func(tx *sql.Tx) error {
		deleteInput := s.input(fnSource, `DELETE FROM two_factor WHERE user_id = ?`, twoFactor.UserId)
		deleteInput.Db = tx
		if _, err := s.executeDelete(ctx, deleteInput); err != nil {
			return err
		}
		input := s.input(
			fnSource,
			`INSERT INTO two_factor (user_id, secret, backup_codes, confirmed, created_at) VALUES (?, ?, ?, ?, ?)`,
			twoFactor.UserId,
			twoFactor.Secret,
			marshalList(twoFactor.BackupCodes),
			twoFactor.Confirmed,
			twoFactor.CreatedAt.UTC(),
		)
		input.Db = tx
		input.RowsAffected = oneRowAffected
		return s.executeInsert(ctx, input)
	})
}

func (s *Sql) ConfirmTwoFactor(ctx context.Context, userId string) error {
	fnSource := "store.Sql.ConfirmTwoFactor"
	rowsAffected, err := s.executeUpdate(ctx, s.input(fnSource, `UPDATE two_factor SET confirmed = ? WHERE user_id = ?`, true, userId))
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: user[%s]: %w", fnSource, userId, ErrorNotFound)
	}
	return nil
}

func (s *Sql) UpdateBackupCodes(ctx context.Context, userId string, hashes []string) error {
	fnSource := "store.Sql.UpdateBackupCodes"
	rowsAffected, err := s.executeUpdate(ctx, s.input(fnSource, `UPDATE two_factor SET backup_codes = ? WHERE user_id = ?`, marshalList(hashes), userId))
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: user[%s]: %w", fnSource, userId, ErrorNotFound)
	}
	return nil
}

func (s *Sql) DeleteTwoFactor(ctx context.Context, userId string) error {
	input := s.input("store.Sql.DeleteTwoFactor", `DELETE FROM two_factor WHERE user_id = ?`, userId)
	input.RowsAffected = atMostOneRowAffected
	_, err := s.executeDelete(ctx, input)
	return err
}
