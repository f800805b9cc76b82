package common

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToAbsolutePath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("DOTMAC_CONFIG_DIR", filepath.Join(home, "etc"))

	resolved, err := ToAbsolutePath("~/.dotmac/config")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".dotmac", "config"), resolved)

	resolved, err = ToAbsolutePath("~")
	require.NoError(t, err)
	assert.Equal(t, home, resolved)

	resolved, err = ToAbsolutePath("$DOTMAC_CONFIG_DIR/dotmac.yaml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "etc", "dotmac.yaml"), resolved)

	resolved, err = ToAbsolutePath("relative/config")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(resolved))
}
