package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestState(t *testing.T) (*SQLiteState, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLite(filepath.Join(dir, "state.db"), filepath.Join(dir, "installed.json"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, dir
}

func TestKVRoundTrip(t *testing.T) {
	s, _ := newTestState(t)

	value, err := s.Get("update.last_check")
	require.NoError(t, err)
	assert.Empty(t, value, "missing key reads as empty")

	require.NoError(t, s.Set("update.last_check", "2025-06-01T12:00:00Z"))
	require.NoError(t, s.Set("update.last_check", "2025-06-02T12:00:00Z"))

	value, err = s.Get("update.last_check")
	require.NoError(t, err)
	assert.Equal(t, "2025-06-02T12:00:00Z", value)
}

func TestInstallJournal(t *testing.T) {
	s, dir := newTestState(t)

	require.NoError(t, s.BeginInstall("v1.0.0", filepath.Join(dir, "binaries", "v1.0.0")))

	// Pending installs are invisible to readers.
	records, err := s.Installs()
	require.NoError(t, err)
	assert.Empty(t, records)

	binPath := filepath.Join(dir, "binaries", "v1.0.0", "rockide")
	require.NoError(t, s.CompleteInstall("v1.0.0", binPath))

	records, err = s.Installs()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "v1.0.0", records[0].Tag)
	assert.Equal(t, binPath, records[0].Path)
	assert.False(t, records[0].InstalledAt.IsZero())

	require.NoError(t, s.DiscardInstall("v1.0.0"))
	records, err = s.Installs()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestManifestExport(t *testing.T) {
	s, dir := newTestState(t)

	require.NoError(t, s.BeginInstall("v1.0.0", filepath.Join(dir, "v1.0.0")))
	require.NoError(t, s.CompleteInstall("v1.0.0", filepath.Join(dir, "v1.0.0", "rockide")))

	m, err := ReadManifest(filepath.Join(dir, "installed.json"))
	require.NoError(t, err)
	require.Len(t, m.Installed, 1)
	assert.Equal(t, "v1.0.0", m.Installed[0].Tag)
	assert.Equal(t, filepath.Join(dir, "v1.0.0", "rockide"), m.Installed[0].Path)
}

func TestReadManifestMissingFile(t *testing.T) {
	m, err := ReadManifest(filepath.Join(t.TempDir(), "installed.json"))
	require.NoError(t, err)
	assert.Empty(t, m.Installed)
}

func TestRecoverDeletesPendingDirectories(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "state.db")
	manifestPath := filepath.Join(dir, "installed.json")

	versionDir := filepath.Join(dir, "binaries", "v2.0.0")
	require.NoError(t, os.MkdirAll(versionDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(versionDir, "rockide.part"), []byte("half"), 0644))

	s, err := NewSQLite(dbPath, manifestPath, nil)
	require.NoError(t, err)
	require.NoError(t, s.BeginInstall("v2.0.0", versionDir))
	// Simulate a crash: close without completing.
	require.NoError(t, s.Close())

	s, err = NewSQLite(dbPath, manifestPath, nil)
	require.NoError(t, err)
	defer s.Close()

	assert.NoDirExists(t, versionDir, "pending version directory should be cleaned on open")

	records, err := s.Installs()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestCompletedInstallSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "state.db")
	manifestPath := filepath.Join(dir, "installed.json")

	s, err := NewSQLite(dbPath, manifestPath, nil)
	require.NoError(t, err)
	require.NoError(t, s.BeginInstall("v1.0.0", filepath.Join(dir, "v1.0.0")))
	require.NoError(t, s.CompleteInstall("v1.0.0", filepath.Join(dir, "v1.0.0", "rockide")))
	require.NoError(t, s.Close())

	s, err = NewSQLite(dbPath, manifestPath, nil)
	require.NoError(t, err)
	defer s.Close()

	records, err := s.Installs()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "v1.0.0", records[0].Tag)
}
