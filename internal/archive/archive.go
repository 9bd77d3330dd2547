package archive

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/veedy-dev/rockup/internal/domain"
)

type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

// Extract unpacks src into destDir and returns the path of the executable
// named binaryName inside the output. destDir is created if needed; callers
// discard it on error. The execute bit is repaired on non-Windows targets
// because not every transport path preserves tar modes.
func (e *Extractor) Extract(src, destDir, binaryName string) (string, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrExtractionFailed, err)
	}

	if err := unpack(src, destDir); err != nil {
		return "", err
	}

	binPath, err := locateBinary(destDir, binaryName)
	if err != nil {
		return "", err
	}

	if runtime.GOOS != "windows" {
		if err := os.Chmod(binPath, 0755); err != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrExtractionFailed, err)
		}
	}
	return binPath, nil
}

func unpack(src, destDir string) error {
	lower := strings.ToLower(src)

	switch {
	case strings.HasSuffix(lower, ".zip"):
		return unpackZip(src, destDir)
	case isTarArchive(lower):
		return unpackTar(src, destDir)
	default:
		return fmt.Errorf("%w: unsupported archive format: %s", domain.ErrExtractionFailed, filepath.Base(src))
	}
}

// writeFile streams r into target, creating parent directories as needed.
// Shared by the tar and zip entry writers.
func writeFile(target string, perm fs.FileMode, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Remove deletes path and everything under it, best-effort. A path that is
// already gone is not an error.
func (e *Extractor) Remove(path string) {
	os.RemoveAll(path)
}

func isTarArchive(name string) bool {
	tarExts := []string{".tar.gz", ".tar.zst", ".tar.xz", ".tar.bz2", ".tgz", ".txz", ".tzst", ".tbz2", ".tar"}
	for _, ext := range tarExts {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// locateBinary finds the file named binaryName anywhere inside dir. Release
// archives differ on whether the executable sits at the top level or under a
// versioned subdirectory, so the whole tree is searched.
func locateBinary(dir, binaryName string) (string, error) {
	var found string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == binaryName {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrExtractionFailed, err)
	}
	if found == "" {
		return "", fmt.Errorf("%w: %s not present in archive", domain.ErrInvalidBinary, binaryName)
	}
	return found, nil
}
