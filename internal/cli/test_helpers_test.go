package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// captureOutput captures stdout during fn execution and returns it as a string.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

// writeTestConfig writes a config pointing storage and every source at the
// given temp dir, so command execution never touches the real machine.
func writeTestConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	content := `
storage:
  path: ` + dir + `
  sqlite_file: test.db
sources:
  browser:
    enabled: false
  prefetch:
    enabled: false
  userassist:
    enabled: false
  sessions:
    enabled: false
  recent_files:
    enabled: false
  roblox:
    enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}
