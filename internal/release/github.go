package release

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/veedy-dev/rockup/internal/domain"
	"github.com/veedy-dev/rockup/internal/platform"
)

const (
	DefaultEndpoint = "https://api.github.com"

	// ChecksumsAsset is the conventional checksum manifest shipped next to
	// the platform archives in each release.
	ChecksumsAsset = "checksums.txt"
)

type GitHubSource struct {
	client    *http.Client
	endpoint  string
	product   domain.Product
	userAgent string
}

func NewGitHub(product domain.Product, endpoint string, timeout time.Duration) *GitHubSource {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &GitHubSource{
		client:    &http.Client{Timeout: timeout},
		endpoint:  strings.TrimSuffix(endpoint, "/"),
		product:   product,
		userAgent: "rockup",
	}
}

type releaseJSON struct {
	TagName     string      `json:"tag_name"`
	Draft       bool        `json:"draft"`
	Prerelease  bool        `json:"prerelease"`
	PublishedAt time.Time   `json:"published_at"`
	Assets      []assetJSON `json:"assets"`
}

type assetJSON struct {
	Name               string `json:"name"`
	Size               int64  `json:"size"`
	BrowserDownloadURL string `json:"browser_download_url"`
	Digest             string `json:"digest"`
}

func (g *GitHubSource) Latest(ctx context.Context) (*domain.Release, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/releases/latest", g.endpoint, g.product.Owner, g.product.Repo)

	var rel releaseJSON
	if err := g.getJSON(ctx, url, &rel); err != nil {
		return nil, err
	}
	return g.toRelease(&rel), nil
}

func (g *GitHubSource) ByTag(ctx context.Context, tag string) (*domain.Release, error) {
	rel, err := g.byExactTag(ctx, tag)
	if err == nil {
		return rel, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	// Accept "1.2.3" for a release tagged "v1.2.3" and vice versa.
	alt := "v" + tag
	if strings.HasPrefix(tag, "v") {
		alt = strings.TrimPrefix(tag, "v")
	}
	return g.byExactTag(ctx, alt)
}

func (g *GitHubSource) byExactTag(ctx context.Context, tag string) (*domain.Release, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/releases/tags/%s", g.endpoint, g.product.Owner, g.product.Repo, tag)

	var rel releaseJSON
	if err := g.getJSON(ctx, url, &rel); err != nil {
		return nil, err
	}
	return g.toRelease(&rel), nil
}

func (g *GitHubSource) List(ctx context.Context) ([]domain.Release, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/releases?per_page=30", g.endpoint, g.product.Owner, g.product.Repo)

	var raw []releaseJSON
	if err := g.getJSON(ctx, url, &raw); err != nil {
		return nil, err
	}

	// Drafts are unpublished and never listed; prereleases are listed but
	// carry their flag so callers can present them as such.
	releases := make([]domain.Release, 0, len(raw))
	for i := range raw {
		if raw[i].Draft {
			continue
		}
		releases = append(releases, *g.toRelease(&raw[i]))
	}

	slices.SortFunc(releases, func(a, b domain.Release) int {
		return b.PublishedAt.Compare(a.PublishedAt)
	})

	return releases, nil
}

func (g *GitHubSource) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: creating request: %v", domain.ErrSourceUnavailable, err)
	}
	req.Header.Set("User-Agent", g.userAgent)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s/%s", domain.ErrNotFound, g.product.Owner, g.product.Repo)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status %d", domain.ErrSourceUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", domain.ErrSourceUnavailable, err)
	}
	return nil
}

func (g *GitHubSource) toRelease(r *releaseJSON) *domain.Release {
	rel := &domain.Release{
		Tag:         r.TagName,
		PublishedAt: r.PublishedAt,
		Prerelease:  r.Prerelease,
		Assets:      make([]domain.Asset, 0, len(r.Assets)),
	}
	for _, a := range r.Assets {
		rel.Assets = append(rel.Assets, domain.Asset{
			Name:        a.Name,
			Size:        a.Size,
			DownloadURL: a.BrowserDownloadURL,
			Digest:      normalizeDigest(a.Digest),
		})
	}
	return rel
}

// normalizeDigest keeps the bare hex of a sha256 digest and drops anything
// else; the catalog reports digests as "<algo>:<hex>".
func normalizeDigest(d string) string {
	if d == "" {
		return ""
	}
	algo, hex, ok := strings.Cut(d, ":")
	if !ok || !strings.EqualFold(algo, "sha256") {
		return ""
	}
	return strings.ToLower(hex)
}

// PickAsset selects the platform archive for info from rel, trying each
// candidate name in preference order. Absence is a normal outcome, not an
// error; the caller decides what missing support means.
func PickAsset(rel *domain.Release, info platform.Info, binary string) (domain.Asset, bool) {
	for _, name := range info.AssetCandidates(binary) {
		for _, a := range rel.Assets {
			if a.Name == name {
				return a, true
			}
		}
	}
	return domain.Asset{}, false
}

// PickChecksums finds the release's checksum manifest, if one was published.
func PickChecksums(rel *domain.Release) (domain.Asset, bool) {
	for _, a := range rel.Assets {
		if a.Name == ChecksumsAsset {
			return a, true
		}
	}
	return domain.Asset{}, false
}
