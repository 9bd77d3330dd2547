package domain

import "time"

// Product identifies the managed executable and where its releases live.
type Product struct {
	Owner  string
	Repo   string
	Binary string
}

type Release struct {
	Tag         string
	PublishedAt time.Time
	Prerelease  bool
	Assets      []Asset
}

type Asset struct {
	Name        string
	Size        int64
	DownloadURL string
	Digest      string
}

type InstalledVersion struct {
	Tag         string
	BinaryPath  string
	InstalledAt time.Time
}

// Progress reports transfer state. Total is -1 when the remote end did not
// announce a content length.
type Progress struct {
	Received int64
	Total    int64
}

func (p Progress) Fraction() float64 {
	if p.Total <= 0 {
		return 0
	}
	return float64(p.Received) / float64(p.Total)
}

type ProgressFunc func(Progress)

// CleanupResult reports which filesystem entries a best-effort delete
// actually removed and which it had to leave behind.
type CleanupResult struct {
	Removed []string
	Skipped []SkippedPath
}

type SkippedPath struct {
	Path string
	Err  error
}

type InstallRecord struct {
	Tag         string    `json:"tag"`
	Path        string    `json:"path"`
	InstalledAt time.Time `json:"installed_at"`
}
