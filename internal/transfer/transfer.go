package transfer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/veedy-dev/rockup/internal/domain"
)

const copyChunkSize = 32 * 1024

type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	logger    domain.Logger
}

// New builds a fetcher. The client carries no overall timeout: downloads can
// legitimately run for minutes, and cancellation arrives through the context.
func New(userAgent string, logger domain.Logger) *HTTPFetcher {
	if logger == nil {
		logger = domain.NopLogger()
	}
	return &HTTPFetcher{
		client:    &http.Client{},
		userAgent: userAgent,
		logger:    logger,
	}
}

// Fetch streams url into dest. The body is written to dest.part and renamed
// into place at the end, so dest either holds a complete payload or nothing.
// progress runs at every chunk boundary, which is also where cancellation is
// observed; a cancelled fetch removes the partial file.
func (f *HTTPFetcher) Fetch(ctx context.Context, url, dest string, progress domain.ProgressFunc) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: creating request: %v", domain.ErrTransferFailed, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", domain.ErrCancelled, ctx.Err())
		}
		return fmt.Errorf("%w: %v", domain.ErrTransferFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status %d for %s", domain.ErrTransferFailed, resp.StatusCode, url)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransferFailed, err)
	}

	part := dest + ".part"
	file, err := os.Create(part)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransferFailed, err)
	}

	if err := f.copyBody(ctx, file, resp.Body, resp.ContentLength, progress); err != nil {
		file.Close()
		os.Remove(part)
		return err
	}

	if err := file.Close(); err != nil {
		os.Remove(part)
		return fmt.Errorf("%w: %v", domain.ErrTransferFailed, err)
	}
	if err := os.Rename(part, dest); err != nil {
		os.Remove(part)
		return fmt.Errorf("%w: %v", domain.ErrTransferFailed, err)
	}
	return nil
}

// copyBody copies in fixed-size chunks instead of io.Copy so every chunk is a
// progress report and a cancellation point.
func (f *HTTPFetcher) copyBody(ctx context.Context, dst io.Writer, src io.Reader, total int64, progress domain.ProgressFunc) error {
	if total <= 0 {
		total = -1
	}

	buf := make([]byte, copyChunkSize)
	var received int64
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrCancelled, err)
		}

		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return fmt.Errorf("%w: %v", domain.ErrTransferFailed, werr)
			}
			received += int64(n)
			if progress != nil {
				progress(domain.Progress{Received: received, Total: total})
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("%w: %v", domain.ErrCancelled, ctx.Err())
			}
			return fmt.Errorf("%w: %v", domain.ErrTransferFailed, err)
		}
	}
}

// Checksum downloads the manifest at url and returns the digest it records
// for filename. An entry missing from the manifest is not an error; the
// caller falls back to an unverified install.
func (f *HTTPFetcher) Checksum(ctx context.Context, url, filename string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: creating request: %v", domain.ErrTransferFailed, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrCancelled, ctx.Err())
		}
		return "", fmt.Errorf("%w: %v", domain.ErrTransferFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: unexpected status %d for %s", domain.ErrTransferFailed, resp.StatusCode, url)
	}

	// Manifests are a handful of lines; cap the read all the same.
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrTransferFailed, err)
	}

	digest, ok := FindDigest(string(body), filename)
	if !ok {
		f.logger.Debug("no manifest entry", "file", filename)
		return "", nil
	}
	return digest, nil
}

// FindDigest scans checksum-manifest content for the line naming filename.
// Lines look like "<64-hex-digest>  [*]<name>"; the "*" marks binary mode and
// is ignored. Only an entry whose name (or base name, for manifests written
// with paths) equals filename exactly yields a digest. Malformed lines are
// skipped.
func FindDigest(manifest, filename string) (string, bool) {
	for _, line := range strings.Split(manifest, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		if !isHexDigest(fields[0]) {
			continue
		}

		name := strings.TrimPrefix(fields[1], "*")
		if name == filename || filepath.Base(name) == filename {
			return strings.ToLower(fields[0]), true
		}
	}
	return "", false
}

func isHexDigest(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// Verify compares path's SHA-256 against wantHex, case-insensitively. A file
// that fails verification is removed before the error returns so it can never
// reach extraction.
func (f *HTTPFetcher) Verify(path, wantHex string) error {
	got, err := computeChecksum(path)
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("%w: %v", domain.ErrChecksumMismatch, err)
	}

	if !strings.EqualFold(got, wantHex) {
		os.Remove(path)
		return fmt.Errorf("%w: want %s, got %s", domain.ErrChecksumMismatch, strings.ToLower(wantHex), got)
	}
	return nil
}

func computeChecksum(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	h := sha256.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
