package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ToAbsolutePath resolves a user supplied path such as the --config
// default. Environment variables are expanded first, then a leading ~ or
// ~/ becomes the home directory
func ToAbsolutePath(path string) (string, error) {
	path = os.ExpandEnv(path)
	if path == "~" || strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve home directory: %w", err)
		}
		path = filepath.Join(homeDir, strings.TrimPrefix(path, "~"))
	}
	absolutePath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path[%s]: %w", path, err)
	}
	return absolutePath, nil
}
