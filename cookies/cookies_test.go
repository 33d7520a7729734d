package cookies

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleExport = `[
  {"domain": ".youtube.com", "path": "/", "secure": true, "expires": 1893456000.25, "name": "SID", "value": "abc123"},
  {"domain": "accounts.google.com", "path": "", "secure": false, "expires": -1, "name": "session", "value": "xyz"}
]`

func TestConvert(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "cookies.json")
	dst := filepath.Join(dir, "cookies.txt")
	require.NoError(t, os.WriteFile(src, []byte(sampleExport), 0o600))

	require.NoError(t, Convert(src, dst))

	raw, err := os.ReadFile(dst)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "# Netscape HTTP Cookie File", lines[0])
	assert.Equal(t, ".youtube.com\tTRUE\t/\tTRUE\t1893456000\tSID\tabc123", lines[1])
	assert.Equal(t, "accounts.google.com\tFALSE\t/\tFALSE\t0\tsession\txyz", lines[2])

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm(), "jar holds live credentials")
}

func TestConvertRejectsBadJSON(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "cookies.json")
	require.NoError(t, os.WriteFile(src, []byte("{not an array}"), 0o600))

	assert.Error(t, Convert(src, filepath.Join(dir, "cookies.txt")))
}

func TestRefreshIfNewer(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "cookies.json")
	dst := filepath.Join(dir, "cookies.txt")
	require.NoError(t, os.WriteFile(src, []byte(sampleExport), 0o600))

	// first run converts: the jar does not exist yet
	converted, err := RefreshIfNewer(src, dst)
	require.NoError(t, err)
	assert.True(t, converted)

	// jar now newer than the export: nothing to do
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(dst, future, future))
	converted, err = RefreshIfNewer(src, dst)
	require.NoError(t, err)
	assert.False(t, converted)

	// fresher export wins again
	later := future.Add(time.Hour)
	require.NoError(t, os.Chtimes(src, later, later))
	converted, err = RefreshIfNewer(src, dst)
	require.NoError(t, err)
	assert.True(t, converted)
}

func TestRefreshIfNewerNoExport(t *testing.T) {
	dir := t.TempDir()
	converted, err := RefreshIfNewer(filepath.Join(dir, "missing.json"), filepath.Join(dir, "cookies.txt"))
	require.NoError(t, err)
	assert.False(t, converted)
}
