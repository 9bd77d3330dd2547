package domain

import (
	"context"
)

type Source interface {
	Latest(ctx context.Context) (*Release, error)
	ByTag(ctx context.Context, tag string) (*Release, error)
	List(ctx context.Context) ([]Release, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, url, dest string, progress ProgressFunc) error
	Checksum(ctx context.Context, url, filename string) (string, error)
	Verify(path, wantHex string) error
}

type Extractor interface {
	Extract(archivePath, destDir, binaryName string) (string, error)
	Remove(path string)
}

type Store interface {
	List() ([]InstalledVersion, error)
	IsInstalled(tag string) (string, bool)
	ActiveBinary() (string, bool)
	CurrentVersion() (string, bool)
	VersionDir(tag string) string
	StagingDir() string
	Prune(keep int, protect ...string) (CleanupResult, error)
	RemoveVersion(tag string) (CleanupResult, error)
	DiskUsage() (int64, error)
}

type StateStore interface {
	Get(key string) (string, error)
	Set(key, value string) error
	BeginInstall(tag, dir string) error
	CompleteInstall(tag, binaryPath string) error
	DiscardInstall(tag string) error
	Close() error
}
