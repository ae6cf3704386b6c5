package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	t.Run("Missing corpus returns an ingest error instead of exiting", func(t *testing.T) {
		dir := t.TempDir()
		logFile := filepath.Join(dir, "docqa.log")
		cfgPath := writeConfig(t, fmt.Sprintf(`corpus:
  dir: %s
index:
  type: file
  path: %s
logging:
  format: text
  file: %s
`, filepath.Join(dir, "missing"), filepath.Join(dir, "index"), logFile))
		var stdout, stderr bytes.Buffer

		err := run(ctx, []string{"-config", cfgPath, "-ask", "how long is the warranty?"}, &stdout, &stderr)

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrIngest)
		assert.Contains(t, err.Error(), "index not ready")
		assert.Empty(t, stdout.String())
		logged, readErr := os.ReadFile(logFile)
		require.NoError(t, readErr)
		assert.Contains(t, string(logged), "index not ready")
	})

	t.Run("Invalid config is reported", func(t *testing.T) {
		cfgPath := writeConfig(t, "chunker:\n  type: bogus\n")

		err := run(ctx, []string{"-config", cfgPath}, &bytes.Buffer{}, &bytes.Buffer{})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load config")
		assert.Contains(t, err.Error(), "unknown chunker")
	})

	t.Run("Unknown flag is rejected", func(t *testing.T) {
		var stderr bytes.Buffer

		err := run(ctx, []string{"-nope"}, &bytes.Buffer{}, &stderr)

		require.Error(t, err)
		assert.Contains(t, stderr.String(), "-nope")
	})
}
