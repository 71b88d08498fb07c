package database

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSourceURL(t *testing.T) {
	url, err := sourceURL("migrations")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "file://"))
	assert.True(t, strings.HasSuffix(url, "/migrations"))

	abs, err := filepath.Abs("migrations")
	require.NoError(t, err)
	assert.Equal(t, "file://"+filepath.ToSlash(abs), url)
}

func TestNewMigratorDefaultsPath(t *testing.T) {
	m := NewMigrator(nil, zap.NewNop(), "")
	assert.Equal(t, "migrations", m.migrationsPath)
}
