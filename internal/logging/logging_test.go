package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "kai.log")

	logger, closeFn, err := New(Config{Level: "warn", File: path})
	require.NoError(t, err)
	logger.Debug("debug goes to file only")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "debug goes to file only"))
}

func TestNew_InvalidLevel(t *testing.T) {
	_, _, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestRepoLogPath(t *testing.T) {
	assert.Equal(t, filepath.Join("/repo", ".kai", "logs", "kai.log"), RepoLogPath("/repo"))
}
