package installer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/veedy-dev/rockup/internal/domain"
	"github.com/veedy-dev/rockup/internal/platform"
	"github.com/veedy-dev/rockup/internal/release"
)

// minBinarySize guards against truncated or placeholder artifacts; no real
// build of the managed executable is this small.
const minBinarySize = 1024

type Installer struct {
	mu        sync.Mutex
	source    domain.Source
	fetcher   domain.Fetcher
	extractor domain.Extractor
	store     domain.Store
	state     domain.StateStore
	product   domain.Product
	platform  platform.Info
	keep      int
	pinned    string
	logger    domain.Logger
}

type Options struct {
	Product  domain.Product
	Platform platform.Info
	// Keep is the retention limit applied after each successful install.
	Keep int
	// Pinned, when set, is installed instead of the latest release whenever
	// the caller does not name a version.
	Pinned string
	Logger domain.Logger
}

func New(
	source domain.Source,
	fetcher domain.Fetcher,
	extractor domain.Extractor,
	store domain.Store,
	state domain.StateStore,
	opts Options,
) *Installer {

	logger := opts.Logger
	if logger == nil {
		logger = domain.NopLogger()
	}
	keep := opts.Keep
	if keep <= 0 {
		keep = 5
	}

	return &Installer{
		source:    source,
		fetcher:   fetcher,
		extractor: extractor,
		store:     store,
		state:     state,
		product:   opts.Product,
		platform:  opts.Platform,
		keep:      keep,
		pinned:    opts.Pinned,
		logger:    logger,
	}
}

type InstallOptions struct {
	// Version names a release tag; empty means the pinned version if one is
	// configured, otherwise the latest release.
	Version string
	// Force reinstalls even when the version is already on disk.
	Force    bool
	Progress domain.ProgressFunc
}

// Install ensures the requested version is on disk and returns its binary
// path. Installs are serialized per instance; a concurrent call waits.
// The already-installed path performs no asset transfer.
func (ins *Installer) Install(ctx context.Context, opts InstallOptions) (string, error) {
	ins.mu.Lock()
	defer ins.mu.Unlock()

	desired := opts.Version
	if desired == "" {
		desired = ins.pinned
	}

	// An explicitly named version that is already installed resolves with no
	// network traffic at all.
	if desired != "" && desired != "latest" && !opts.Force {
		if path, ok := ins.store.IsInstalled(desired); ok {
			return path, nil
		}
	}

	rel, err := ins.resolveRelease(ctx, desired)
	if err != nil {
		return "", err
	}

	if !opts.Force {
		if path, ok := ins.store.IsInstalled(rel.Tag); ok {
			ins.logger.Debug("already installed", "tag", rel.Tag)
			return path, nil
		}
	}

	archivePath, err := ins.fetchVerified(ctx, rel, opts.Progress)
	if err != nil {
		return "", err
	}

	binPath, err := ins.installArchive(rel.Tag, archivePath)
	if err != nil {
		return "", err
	}

	ins.pruneOld(rel.Tag)

	ins.logger.Info("installed", "tag", rel.Tag, "path", binPath)
	return binPath, nil
}

func (ins *Installer) resolveRelease(ctx context.Context, version string) (*domain.Release, error) {
	if version == "" || version == "latest" {
		return ins.source.Latest(ctx)
	}
	return ins.source.ByTag(ctx, version)
}

// fetchVerified downloads the platform asset into staging and verifies it
// when a digest can be obtained. The archive and the checksum manifest
// download concurrently; a manifest that cannot be fetched degrades to an
// unverified install, a digest that fails to match is fatal.
func (ins *Installer) fetchVerified(ctx context.Context, rel *domain.Release, progress domain.ProgressFunc) (string, error) {
	asset, ok := release.PickAsset(rel, ins.platform, ins.product.Binary)
	if !ok {
		return "", fmt.Errorf("%w: release %s has no asset for %s", domain.ErrUnsupportedPlatform, rel.Tag, ins.platform.Key())
	}

	archivePath := filepath.Join(ins.store.StagingDir(), asset.Name)
	digest := asset.Digest

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ins.fetcher.Fetch(gctx, asset.DownloadURL, archivePath, progress)
	})
	if digest == "" {
		if sums, found := release.PickChecksums(rel); found {
			g.Go(func() error {
				d, err := ins.fetcher.Checksum(gctx, sums.DownloadURL, asset.Name)
				if err != nil {
					ins.logger.Warn("checksum manifest unavailable", "error", err)
					return nil
				}
				digest = d
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		os.Remove(archivePath)
		return "", fmt.Errorf("%w: %v", domain.ErrCancelled, err)
	}

	if digest == "" {
		ins.logger.Warn("no checksum published, installing unverified", "asset", asset.Name)
		return archivePath, nil
	}
	if err := ins.fetcher.Verify(archivePath, digest); err != nil {
		return "", err
	}
	return archivePath, nil
}

// installArchive unpacks the staged archive into a scratch directory,
// validates the result, and only then renames it into the version directory.
// A failed extraction never touches whatever is already installed under that
// tag, so a forced reinstall cannot lose a working binary. The scratch
// directory is journaled pending first and rolled back on any failure, so a
// partial install is never discoverable.
func (ins *Installer) installArchive(tag, archivePath string) (string, error) {
	stageDir, err := os.MkdirTemp(ins.store.StagingDir(), "extract-")
	if err != nil {
		os.Remove(archivePath)
		return "", err
	}

	if err := ins.state.BeginInstall(tag, stageDir); err != nil {
		os.Remove(archivePath)
		ins.extractor.Remove(stageDir)
		return "", err
	}

	binPath, err := ins.extractor.Extract(archivePath, stageDir, ins.platform.ExeName(ins.product.Binary))
	os.Remove(archivePath)
	if err != nil {
		ins.rollback(tag, stageDir)
		return "", err
	}

	if err := ins.validateBinary(binPath); err != nil {
		ins.rollback(tag, stageDir)
		return "", err
	}

	binPath, err = ins.promote(tag, stageDir, binPath)
	if err != nil {
		ins.rollback(tag, stageDir)
		return "", err
	}

	if err := ins.state.CompleteInstall(tag, binPath); err != nil {
		// The install itself is good; drop the pending row so the next
		// startup's recovery cannot delete a valid version directory.
		ins.logger.Warn("journal update failed", "tag", tag, "error", err)
		if derr := ins.state.DiscardInstall(tag); derr != nil {
			ins.logger.Warn("journal cleanup failed", "tag", tag, "error", derr)
		}
	}
	return binPath, nil
}

// promote renames the validated scratch directory into its final place under
// the version root, replacing any previous install of the same tag. Staging
// lives under the same root, so the rename stays on one filesystem.
func (ins *Installer) promote(tag, stageDir, binPath string) (string, error) {
	versionDir := ins.store.VersionDir(tag)

	rel, err := filepath.Rel(stageDir, binPath)
	if err != nil {
		return "", err
	}
	if err := os.RemoveAll(versionDir); err != nil {
		return "", err
	}
	if err := os.Rename(stageDir, versionDir); err != nil {
		return "", err
	}

	// Directory mtime is install recency; the rename keeps the scratch
	// directory's timestamps, which are already current.
	return filepath.Join(versionDir, rel), nil
}

func (ins *Installer) rollback(tag, stageDir string) {
	ins.extractor.Remove(stageDir)
	if err := ins.state.DiscardInstall(tag); err != nil {
		ins.logger.Warn("failed to clear journal entry", "tag", tag, "error", err)
	}
}

func (ins *Installer) validateBinary(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidBinary, err)
	}
	if info.Size() < minBinarySize {
		return fmt.Errorf("%w: %s is %d bytes", domain.ErrInvalidBinary, filepath.Base(path), info.Size())
	}
	return nil
}

// pruneOld applies the retention limit. Pruning never fails an install that
// already succeeded; problems are logged and left for the next run.
func (ins *Installer) pruneOld(justInstalled string) {
	protect := []string{justInstalled}
	if current, ok := ins.store.CurrentVersion(); ok {
		protect = append(protect, current)
	}

	result, err := ins.store.Prune(ins.keep, protect...)
	if err != nil {
		ins.logger.Warn("prune failed", "error", err)
		return
	}
	for _, skipped := range result.Skipped {
		ins.logger.Warn("prune left entry behind", "path", skipped.Path, "error", skipped.Err)
	}
}

// Resolve ensure-installs the configured version and answers with the binary
// path, bounded by timeout so a stalled network can never hang the caller.
// On deadline the result is empty and the install keeps running detached; a
// later call finds whatever it managed to complete.
func (ins *Installer) Resolve(ctx context.Context, timeout time.Duration) (string, error) {
	type outcome struct {
		path string
		err  error
	}

	done := make(chan outcome, 1)
	go func() {
		path, err := ins.Install(context.Background(), InstallOptions{})
		done <- outcome{path: path, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-done:
		return res.path, res.err
	case <-timer.C:
		ins.logger.Warn("binary resolution timed out, install continues in background", "timeout", timeout)
		return "", nil
	case <-ctx.Done():
		return "", nil
	}
}

// ReplaceAt installs the resolved release's binary at a fixed caller-chosen
// path instead of the version store. The new binary is staged next to the
// destination and swapped in by rename, with any existing file renamed aside
// to <path>.old first; the superseded file is kept, not deleted.
func (ins *Installer) ReplaceAt(ctx context.Context, destPath string, opts InstallOptions) error {
	ins.mu.Lock()
	defer ins.mu.Unlock()

	desired := opts.Version
	if desired == "" {
		desired = ins.pinned
	}
	rel, err := ins.resolveRelease(ctx, desired)
	if err != nil {
		return err
	}

	archivePath, err := ins.fetchVerified(ctx, rel, opts.Progress)
	if err != nil {
		return err
	}

	workDir, err := os.MkdirTemp(ins.store.StagingDir(), "replace-")
	if err != nil {
		os.Remove(archivePath)
		return err
	}
	defer ins.extractor.Remove(workDir)

	binPath, err := ins.extractor.Extract(archivePath, workDir, ins.platform.ExeName(ins.product.Binary))
	os.Remove(archivePath)
	if err != nil {
		return err
	}
	if err := ins.validateBinary(binPath); err != nil {
		return err
	}

	return swapIntoPlace(binPath, destPath)
}

// swapIntoPlace copies src next to dest and renames it in. Staging in the
// destination directory keeps the final rename on one filesystem.
func swapIntoPlace(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}

	staged := dest + ".new"
	if err := copyFile(src, staged, 0755); err != nil {
		os.Remove(staged)
		return err
	}

	if _, err := os.Stat(dest); err == nil {
		if err := os.Rename(dest, dest+".old"); err != nil {
			os.Remove(staged)
			return err
		}
	}
	return os.Rename(staged, dest)
}

func copyFile(src, dest string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
