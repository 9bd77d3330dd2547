package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/veedy-dev/rockup/internal/domain"
)

func unpackZip(src, dst string) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrExtractionFailed, err)
	}
	defer r.Close()

	for _, f := range r.File {
		if err := writeZipEntry(f, dst); err != nil {
			return fmt.Errorf("%w: entry %s: %v", domain.ErrExtractionFailed, f.Name, err)
		}
	}
	return nil
}

func writeZipEntry(f *zip.File, dst string) error {
	if !filepath.IsLocal(filepath.FromSlash(f.Name)) {
		return errors.New("path escapes the archive root")
	}
	target := filepath.Join(dst, filepath.FromSlash(f.Name))

	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0755)
	}

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	perm := f.Mode().Perm()
	if perm == 0 {
		perm = 0644
	}
	return writeFile(target, perm, rc)
}
