package updates

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veedy-dev/rockup/internal/domain"
	"github.com/veedy-dev/rockup/internal/release"
	"github.com/veedy-dev/rockup/internal/store"
)

var testProduct = domain.Product{Owner: "rockide", Repo: "rockide", Binary: "rockide"}

// memState is an in-memory StateStore; the checker only touches Get/Set.
type memState struct {
	m map[string]string
}

func newMemState() *memState { return &memState{m: make(map[string]string)} }

func (s *memState) Get(key string) (string, error)         { return s.m[key], nil }
func (s *memState) Set(key, value string) error            { s.m[key] = value; return nil }
func (s *memState) BeginInstall(tag, dir string) error     { return nil }
func (s *memState) CompleteInstall(tag, path string) error { return nil }
func (s *memState) DiscardInstall(tag string) error        { return nil }
func (s *memState) Close() error                           { return nil }

func newTestStore(t *testing.T, installedTag string) *store.VersionStore {
	t.Helper()
	s, err := store.New(t.TempDir(), "rockide", "", nil)
	require.NoError(t, err)
	if installedTag != "" {
		dir := s.VersionDir(installedTag)
		require.NoError(t, os.MkdirAll(dir, 0755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "rockide"), []byte("bin"), 0755))
	}
	return s
}

func latestServer(t *testing.T, tag string, hits *atomic.Int64) *release.GitHubSource {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		fmt.Fprintf(w, `{"tag_name": %q, "published_at": "2025-06-01T00:00:00Z", "assets": []}`, tag)
	}))
	t.Cleanup(server.Close)
	return release.NewGitHub(testProduct, server.URL, 5*time.Second)
}

func TestHasUpdate(t *testing.T) {
	var hits atomic.Int64
	c := NewChecker(latestServer(t, "v1.1.0", &hits), newTestStore(t, "v1.0.0"), newMemState(), CheckInterval, nil)

	assert.True(t, c.HasUpdate(context.Background()))
	assert.Equal(t, int64(1), hits.Load())
	assert.Equal(t, "v1.1.0", c.LastSeen())
}

func TestHasUpdateGateSuppressesSecondCheck(t *testing.T) {
	var hits atomic.Int64
	c := NewChecker(latestServer(t, "v1.1.0", &hits), newTestStore(t, "v1.0.0"), newMemState(), CheckInterval, nil)

	assert.True(t, c.HasUpdate(context.Background()))

	// Within the gate the answer is "no update" and no request happens,
	// even though an update exists upstream.
	assert.False(t, c.HasUpdate(context.Background()))
	assert.Equal(t, int64(1), hits.Load())
}

func TestHasUpdateGateExpires(t *testing.T) {
	var hits atomic.Int64
	c := NewChecker(latestServer(t, "v1.1.0", &hits), newTestStore(t, "v1.0.0"), newMemState(), CheckInterval, nil)

	require.True(t, c.HasUpdate(context.Background()))

	// Move the clock past the gate.
	c.now = func() time.Time { return time.Now().Add(CheckInterval + time.Minute) }
	assert.True(t, c.HasUpdate(context.Background()))
	assert.Equal(t, int64(2), hits.Load())
}

func TestHasUpdateNothingInstalled(t *testing.T) {
	c := NewChecker(latestServer(t, "v1.0.0", nil), newTestStore(t, ""), newMemState(), CheckInterval, nil)
	assert.True(t, c.HasUpdate(context.Background()))
}

func TestHasUpdateSourceUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	src := release.NewGitHub(testProduct, server.URL, time.Second)
	st := newMemState()
	c := NewChecker(src, newTestStore(t, "v1.0.0"), st, CheckInterval, nil)

	assert.False(t, c.HasUpdate(context.Background()), "catalog failure reads as no update")
	assert.Empty(t, st.m[keyLastCheck], "failed checks do not stamp the gate")
}

func TestCheckNowBypassesGate(t *testing.T) {
	var hits atomic.Int64
	c := NewChecker(latestServer(t, "v1.1.0", &hits), newTestStore(t, "v1.0.0"), newMemState(), CheckInterval, nil)

	require.True(t, c.HasUpdate(context.Background()))

	rel, newer, err := c.CheckNow(context.Background())
	require.NoError(t, err)
	assert.True(t, newer)
	assert.Equal(t, "v1.1.0", rel.Tag)
	assert.Equal(t, int64(2), hits.Load())
}

func TestIsNewer(t *testing.T) {
	tests := []struct {
		name      string
		current   string
		candidate string
		want      bool
	}{
		{name: "upgrade", current: "v1.0.0", candidate: "v1.1.0", want: true},
		{name: "equal_retag", current: "v1.0.0", candidate: "1.0.0", want: false},
		{name: "downgrade", current: "v2.0.0", candidate: "v1.9.0", want: false},
		{name: "prerelease_to_release", current: "v1.0.0-rc.1", candidate: "v1.0.0", want: true},
		{name: "opaque_tags_differ", current: "nightly-a", candidate: "nightly-b", want: true},
		{name: "opaque_tags_equal", current: "nightly-a", candidate: "nightly-a", want: false},
		{name: "mixed_parseability_differs", current: "nightly-a", candidate: "v1.0.0", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNewer(tt.current, tt.candidate))
		})
	}
}
