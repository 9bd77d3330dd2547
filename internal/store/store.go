package store

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/veedy-dev/rockup/internal/domain"
)

const (
	binariesDir = "binaries"
	tempDir     = "temp"
)

// VersionStore keeps one directory per installed release tag under
// <root>/binaries and resolves which binary is active. A directory missing
// its executable counts as not installed, so interrupted installs are never
// handed to callers.
type VersionStore struct {
	sync.RWMutex
	root       string
	binaryName string
	override   string
	logger     domain.Logger
}

// New creates the on-disk layout if needed. binaryName is the expected
// platform executable name inside each version directory; override, when
// non-empty, is a user-managed binary path that wins over every managed
// version.
func New(root, binaryName, override string, logger domain.Logger) (*VersionStore, error) {
	if logger == nil {
		logger = domain.NopLogger()
	}
	if err := os.MkdirAll(filepath.Join(root, binariesDir), 0755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(root, tempDir), 0755); err != nil {
		return nil, err
	}
	return &VersionStore{
		root:       root,
		binaryName: binaryName,
		override:   override,
		logger:     logger,
	}, nil
}

func (s *VersionStore) VersionDir(tag string) string {
	return filepath.Join(s.root, binariesDir, tag)
}

func (s *VersionStore) StagingDir() string {
	return filepath.Join(s.root, tempDir)
}

func (s *VersionStore) binaryPath(tag string) string {
	return filepath.Join(s.VersionDir(tag), s.binaryName)
}

// List returns every version directory, most recently installed first. Each
// install creates a fresh directory, so modification time is install
// recency. BinaryPath is empty for a directory with no executable.
func (s *VersionStore) List() ([]domain.InstalledVersion, error) {
	s.RLock()
	defer s.RUnlock()
	return s.list()
}

func (s *VersionStore) list() ([]domain.InstalledVersion, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, binariesDir))
	if err != nil {
		return nil, err
	}

	versions := make([]domain.InstalledVersion, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}

		v := domain.InstalledVersion{
			Tag:         e.Name(),
			InstalledAt: info.ModTime(),
		}
		if fileExists(s.binaryPath(e.Name())) {
			v.BinaryPath = s.binaryPath(e.Name())
		}
		versions = append(versions, v)
	}

	slices.SortFunc(versions, func(a, b domain.InstalledVersion) int {
		return b.InstalledAt.Compare(a.InstalledAt)
	})
	return versions, nil
}

// IsInstalled reports whether tag is fully installed, matching "v1.2.3"
// against a directory named "1.2.3" and vice versa. The executable must
// actually exist; a bare directory is a partial install.
func (s *VersionStore) IsInstalled(tag string) (string, bool) {
	s.RLock()
	defer s.RUnlock()

	if path := s.binaryPath(tag); fileExists(path) {
		return path, true
	}

	versions, err := s.list()
	if err != nil {
		return "", false
	}
	for _, v := range versions {
		if domain.SameTag(v.Tag, tag) && v.BinaryPath != "" {
			return v.BinaryPath, true
		}
	}
	return "", false
}

// ActiveBinary resolves the binary to run: the override path when configured
// and present, otherwise the most recently installed version's executable.
func (s *VersionStore) ActiveBinary() (string, bool) {
	s.RLock()
	defer s.RUnlock()

	if s.override != "" {
		if fileExists(s.override) {
			return s.override, true
		}
		s.logger.Warn("override binary missing, falling back to managed versions", "path", s.override)
	}

	versions, err := s.list()
	if err != nil || len(versions) == 0 {
		return "", false
	}
	if versions[0].BinaryPath == "" {
		return "", false
	}
	return versions[0].BinaryPath, true
}

// CurrentVersion is the tag backing ActiveBinary's managed result.
func (s *VersionStore) CurrentVersion() (string, bool) {
	s.RLock()
	defer s.RUnlock()

	versions, err := s.list()
	if err != nil || len(versions) == 0 {
		return "", false
	}
	if versions[0].BinaryPath == "" {
		return "", false
	}
	return versions[0].Tag, true
}

// Prune deletes all but the keep most recent version directories. Tags in
// protect are never deleted regardless of age. Files held open elsewhere are
// skipped and reported, not fatal; their directory stays behind for a later
// attempt.
func (s *VersionStore) Prune(keep int, protect ...string) (domain.CleanupResult, error) {
	s.Lock()
	defer s.Unlock()

	var result domain.CleanupResult

	if keep < 0 {
		keep = 0
	}

	versions, err := s.list()
	if err != nil {
		return result, err
	}

	for i, v := range versions {
		if i < keep || isProtected(v.Tag, protect) {
			continue
		}
		s.logger.Info("pruning version", "tag", v.Tag)
		s.removeTree(s.VersionDir(v.Tag), &result)
	}
	return result, nil
}

// RemoveVersion deletes one version's directory with the same locked-file
// tolerance as Prune.
func (s *VersionStore) RemoveVersion(tag string) (domain.CleanupResult, error) {
	s.Lock()
	defer s.Unlock()

	var result domain.CleanupResult

	dir := s.VersionDir(tag)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		// Accept the prefix variants IsInstalled does.
		versions, lerr := s.list()
		if lerr != nil {
			return result, lerr
		}
		found := false
		for _, v := range versions {
			if domain.SameTag(v.Tag, tag) {
				dir = s.VersionDir(v.Tag)
				found = true
				break
			}
		}
		if !found {
			return result, fmt.Errorf("%w: version %s", domain.ErrNotFound, tag)
		}
	}

	s.removeTree(dir, &result)
	return result, nil
}

// DiskUsage sums the size of everything under the store root.
func (s *VersionStore) DiskUsage() (int64, error) {
	s.RLock()
	defer s.RUnlock()

	var size int64
	err := filepath.Walk(s.root, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}

// removeTree deletes path recursively, file by file. Entries that cannot be
// removed (locked by another process, typically the running binary on
// Windows) are logged, recorded as skipped, and left in place; a directory
// with leftovers survives too.
func (s *VersionStore) removeTree(path string, result *domain.CleanupResult) {
	entries, err := os.ReadDir(path)
	if os.IsNotExist(err) {
		return
	}
	if err != nil {
		s.logger.Warn("cannot read directory during cleanup", "path", path, "error", err)
		result.Skipped = append(result.Skipped, domain.SkippedPath{
			Path: path,
			Err:  fmt.Errorf("%w: %v", domain.ErrLockedResource, err),
		})
		return
	}

	before := len(result.Skipped)
	for _, e := range entries {
		child := filepath.Join(path, e.Name())
		if e.IsDir() {
			s.removeTree(child, result)
			continue
		}
		if err := os.Remove(child); err != nil {
			s.logger.Warn("skipping locked file", "path", child, "error", err)
			result.Skipped = append(result.Skipped, domain.SkippedPath{
				Path: child,
				Err:  fmt.Errorf("%w: %v", domain.ErrLockedResource, err),
			})
			continue
		}
		result.Removed = append(result.Removed, child)
	}

	if len(result.Skipped) > before {
		return
	}
	if err := os.Remove(path); err != nil {
		result.Skipped = append(result.Skipped, domain.SkippedPath{
			Path: path,
			Err:  fmt.Errorf("%w: %v", domain.ErrLockedResource, err),
		})
		return
	}
	result.Removed = append(result.Removed, path)
}

func isProtected(tag string, protect []string) bool {
	for _, p := range protect {
		if domain.SameTag(tag, p) {
			return true
		}
	}
	return false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
