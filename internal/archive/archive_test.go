package archive

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veedy-dev/rockup/internal/domain"
)

type tarEntry struct {
	name    string
	content string
	mode    int64
}

func writeTarGz(t *testing.T, path string, entries []tarEntry) {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	for _, e := range entries {
		mode := e.mode
		if mode == 0 {
			mode = 0644
		}
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name: e.name,
			Mode: mode,
			Size: int64(len(e.content)),
		}))
		_, err := tw.Write([]byte(e.content))
		require.NoError(t, err)
	}

	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
}

func writeZip(t *testing.T, path string, entries []tarEntry) {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.Create(e.name)
		require.NoError(t, err)
		_, err = w.Write([]byte(e.content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
}

func TestExtractTarGz(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "rockide-linux-amd64.tar.gz")
	writeTarGz(t, archive, []tarEntry{
		{name: "rockide-1.4.0/README.md", content: "docs"},
		// Deliberately shipped without the execute bit.
		{name: "rockide-1.4.0/rockide", content: "#!/bin/sh\necho rockide\n", mode: 0644},
	})

	dest := filepath.Join(dir, "v1.4.0")
	binPath, err := New().Extract(archive, dest, "rockide")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dest, "rockide-1.4.0", "rockide"), binPath)

	info, err := os.Stat(binPath)
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		assert.NotZero(t, info.Mode()&0111, "execute bit should be repaired")
	}
}

func TestExtractZip(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "rockide-windows-amd64.zip")
	writeZip(t, archive, []tarEntry{
		{name: "rockide.exe", content: "MZ fake binary"},
	})

	dest := filepath.Join(dir, "v1.4.0")
	binPath, err := New().Extract(archive, dest, "rockide.exe")
	require.NoError(t, err)
	assert.FileExists(t, binPath)
}

func TestExtractRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "evil.tar.gz")
	writeTarGz(t, archive, []tarEntry{
		{name: "../outside", content: "escape"},
	})

	_, err := New().Extract(archive, filepath.Join(dir, "out"), "rockide")
	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
	assert.NoFileExists(t, filepath.Join(dir, "outside"))
}

func TestExtractBinaryMissing(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "rockide-linux-amd64.tar.gz")
	writeTarGz(t, archive, []tarEntry{
		{name: "README.md", content: "docs only"},
	})

	_, err := New().Extract(archive, filepath.Join(dir, "out"), "rockide")
	assert.ErrorIs(t, err, domain.ErrInvalidBinary)
}

func TestExtractCorruptArchive(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "rockide-linux-amd64.tar.gz")
	require.NoError(t, os.WriteFile(archive, []byte("this is not an archive"), 0644))

	_, err := New().Extract(archive, filepath.Join(dir, "out"), "rockide")
	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
}

func TestExtractUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "rockide.dmg")
	require.NoError(t, os.WriteFile(archive, []byte("whatever"), 0644))

	_, err := New().Extract(archive, filepath.Join(dir, "out"), "rockide")
	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
}

func TestRemoveMissingPath(t *testing.T) {
	// Removing something that never existed must not blow up.
	New().Remove(filepath.Join(t.TempDir(), "nope"))
}
