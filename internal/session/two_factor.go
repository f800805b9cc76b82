package session

import (
	"context"
	"errors"
	"fmt"

	"dotmac/internal/auth"
	"dotmac/internal/common"
	"dotmac/internal/store"
)

func (m *Manager) checkPassword(ctx context.Context, userId, password string) (*store.User, error) {
	user, err := m.store.GetUserById(ctx, userId)
	if err != nil {
		return nil, fmt.Errorf("failed to load user[%s]: %w", userId, err)
	}
	if !auth.ValidatePassword(password, user.PasswordHash) {
		return nil, ErrorInvalidCredentials
	}
	return user, nil
}

// EnableTwoFactor starts a TOTP enrolment. The returned secret and backup
// codes are shown once, 2FA only applies after ConfirmTwoFactor. An
// unconfirmed enrolment is replaced, a confirmed one must be disabled first
func (m *Manager) EnableTwoFactor(ctx context.Context, userId, password string) (*TwoFactorSetup, error) {
	user, err := m.checkPassword(ctx, userId, password)
	if err != nil {
		return nil, err
	}
	existing, err := m.store.GetTwoFactor(ctx, userId)
	if err != nil && !errors.Is(err, store.ErrorNotFound) {
		return nil, fmt.Errorf("failed to load two factor of user[%s]: %w", userId, err)
	}
	if err == nil && existing.Confirmed {
		return nil, ErrorTwoFactorEnabled
	}
	secret, err := auth.CreateTotpSeed(m.totpIssuer, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to create totp seed: %w", err)
	}
	backupCodes, err := auth.GenerateBackupCodes(auth.BackupCodeCount)
	if err != nil {
		return nil, err
	}
	if err := m.store.UpsertTwoFactor(ctx, store.TwoFactor{
		UserId:      user.Id,
		Secret:      secret,
		BackupCodes: backupCodes.Hashes,
		CreatedAt:   m.now(),
	}); err != nil {
		return nil, fmt.Errorf("failed to store two factor enrolment: %w", err)
	}
	uriOpts := auth.GetTotpUriOpts{Issuer: m.totpIssuer, AccountId: user.Email, Secret: secret}
	qrCode, err := auth.GetTotpQrCode(uriOpts)
	if err != nil {
		m.serviceLogs <- common.ServiceLogf(common.LogLevelWarn, "failed to render totp qr code: %s", err)
	}
	return &TwoFactorSetup{
		Secret:      secret,
		Uri:         auth.GetTotpUri(uriOpts),
		QrCode:      qrCode,
		BackupCodes: backupCodes.Plain,
	}, nil
}

// ConfirmTwoFactor proves the authenticator was enrolled and turns 2FA on
func (m *Manager) ConfirmTwoFactor(ctx context.Context, userId, code string) error {
	twoFactor, err := m.store.GetTwoFactor(ctx, userId)
	if err != nil {
		if errors.Is(err, store.ErrorNotFound) {
			return ErrorTwoFactorNotEnabled
		}
		return fmt.Errorf("failed to load two factor of user[%s]: %w", userId, err)
	}
	if ok, err := auth.ValidateTotpToken(twoFactor.Secret, code, m.now()); err != nil || !ok {
		return ErrorInvalidTwoFactorCode
	}
	if err := m.store.ConfirmTwoFactor(ctx, userId); err != nil {
		return fmt.Errorf("failed to confirm two factor of user[%s]: %w", userId, err)
	}
	if err := m.store.SetUserMfaEnabled(ctx, userId, true); err != nil {
		return fmt.Errorf("failed to enable mfa for user[%s]: %w", userId, err)
	}
	m.invalidateUser(ctx, userId)
	m.serviceLogs <- common.ServiceLogf(common.LogLevelInfo, "user[%s] enabled two factor authentication", userId)
	return nil
}

func (m *Manager) DisableTwoFactor(ctx context.Context, userId, password string) error {
	if _, err := m.checkPassword(ctx, userId, password); err != nil {
		return err
	}
	if err := m.store.DeleteTwoFactor(ctx, userId); err != nil {
		return fmt.Errorf("failed to delete two factor of user[%s]: %w", userId, err)
	}
	if err := m.store.SetUserMfaEnabled(ctx, userId, false); err != nil {
		return fmt.Errorf("failed to disable mfa for user[%s]: %w", userId, err)
	}
	m.invalidateUser(ctx, userId)
	return nil
}

func (m *Manager) RemainingBackupCodes(ctx context.Context, userId string) (int, error) {
	twoFactor, err := m.store.GetTwoFactor(ctx, userId)
	if err != nil {
		if errors.Is(err, store.ErrorNotFound) {
			return 0, ErrorTwoFactorNotEnabled
		}
		return 0, fmt.Errorf("failed to load two factor of user[%s]: %w", userId, err)
	}
	return len(twoFactor.BackupCodes), nil
}
