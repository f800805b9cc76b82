package auth

import (
	"fmt"
	"strings"

	"dotmac/internal/common"
)

const (
	BackupCodeCount  = 10
	backupCodeLength = 10
)

// BackupCodes pairs the codes shown to the user once with the hashes
// kept at rest
type BackupCodes struct {
	Plain  []string
	Hashes []string
}

// GenerateBackupCodes returns count codes of the form `xxxxx-xxxxx`
func GenerateBackupCodes(count int) (*BackupCodes, error) {
	output := &BackupCodes{}
	for i := 0; i < count; i++ {
		raw, err := common.GenerateRandomStringFrom(common.CharsetUnambiguous, backupCodeLength)
		if err != nil {
			return nil, fmt.Errorf("failed to generate backup code: %w", err)
		}
		code := raw[:backupCodeLength/2] + "-" + raw[backupCodeLength/2:]
		hashed, err := hash(normalizeBackupCode(code), backupCodeHashParams)
		if err != nil {
			return nil, fmt.Errorf("failed to hash backup code: %w", err)
		}
		output.Plain = append(output.Plain, code)
		output.Hashes = append(output.Hashes, hashed)
	}
	return output, nil
}

// MatchBackupCode returns the index of the hash code matches or -1
func MatchBackupCode(code string, hashes []string) int {
	normalized := normalizeBackupCode(code)
	for index, hashed := range hashes {
		if ValidatePassword(normalized, hashed) {
			return index
		}
	}
	return -1
}

func normalizeBackupCode(code string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(code), "-", ""))
}
