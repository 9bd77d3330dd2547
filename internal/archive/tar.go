package archive

import (
	"archive/tar"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/veedy-dev/rockup/internal/domain"
)

// Compression magic bytes. Release pipelines rename assets freely, so the
// stream is identified by content, never by file extension.
var (
	magicZstd  = []byte{0x28, 0xb5, 0x2f, 0xfd}
	magicGzip  = []byte{0x1f, 0x8b}
	magicXz    = []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}
	magicBzip2 = []byte{0x42, 0x5a, 0x68}
)

func unpackTar(src, dst string) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrExtractionFailed, err)
	}
	defer f.Close()

	r, closer, err := sniffReader(f)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrExtractionFailed, err)
	}
	if closer != nil {
		defer closer()
	}

	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: reading archive: %v", domain.ErrExtractionFailed, err)
		}
		if err := writeTarEntry(tr, hdr, dst); err != nil {
			return fmt.Errorf("%w: entry %s: %v", domain.ErrExtractionFailed, hdr.Name, err)
		}
	}
}

func writeTarEntry(tr *tar.Reader, hdr *tar.Header, dst string) error {
	if !filepath.IsLocal(filepath.FromSlash(hdr.Name)) {
		return errors.New("path escapes the archive root")
	}
	target := filepath.Join(dst, filepath.FromSlash(hdr.Name))

	switch hdr.Typeflag {
	case tar.TypeDir:
		return os.MkdirAll(target, 0755)
	case tar.TypeReg:
		return writeFile(target, hdr.FileInfo().Mode().Perm(), tr)
	case tar.TypeSymlink:
		// The link target must also stay inside the archive root, resolved
		// relative to the entry's own directory.
		if filepath.IsAbs(hdr.Linkname) ||
			!filepath.IsLocal(filepath.FromSlash(path.Join(path.Dir(hdr.Name), hdr.Linkname))) {
			return errors.New("symlink escapes the archive root")
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}
		os.Remove(target)
		return os.Symlink(hdr.Linkname, target)
	default:
		// Hard links, devices, pax headers: none of these appear in release
		// tarballs; skip rather than fail.
		return nil
	}
}

// sniffReader wraps f in the decompressor its leading magic bytes call for.
// A stream with no recognized magic is read as plain tar.
func sniffReader(f *os.File) (io.Reader, func(), error) {
	head := make([]byte, 6)
	n, _ := io.ReadFull(f, head)
	head = head[:n]
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, nil, err
	}

	switch {
	case bytes.HasPrefix(head, magicZstd):
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, nil, err
		}
		return zr, func() { zr.Close() }, nil

	case bytes.HasPrefix(head, magicGzip):
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, nil, err
		}
		return gz, func() { gz.Close() }, nil

	case bytes.HasPrefix(head, magicXz):
		xr, err := xz.NewReader(f)
		if err != nil {
			return nil, nil, err
		}
		return xr, nil, nil

	case bytes.HasPrefix(head, magicBzip2):
		return bzip2.NewReader(f), nil, nil

	default:
		return f, nil, nil
	}
}
