package updates

import (
	"context"
	"time"

	"github.com/Masterminds/semver/v3"
	"golang.org/x/sync/singleflight"

	"github.com/veedy-dev/rockup/internal/domain"
)

// CheckInterval gates automatic checks so an editor that activates many
// times a day produces at most one catalog query.
const CheckInterval = 24 * time.Hour

const (
	keyLastCheck = "update.last_check"
	keyLastSeen  = "update.last_seen_tag"
)

type Checker struct {
	source   domain.Source
	store    domain.Store
	state    domain.StateStore
	interval time.Duration
	logger   domain.Logger
	group    singleflight.Group
	now      func() time.Time
}

func NewChecker(source domain.Source, store domain.Store, state domain.StateStore, interval time.Duration, logger domain.Logger) *Checker {
	if interval <= 0 {
		interval = CheckInterval
	}
	if logger == nil {
		logger = domain.NopLogger()
	}
	return &Checker{
		source:   source,
		store:    store,
		state:    state,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// HasUpdate reports whether a release newer than the active version exists.
// Inside the gate interval it answers false with no network traffic, and a
// failing catalog also answers false: this runs opportunistically in the
// background and never surfaces errors.
func (c *Checker) HasUpdate(ctx context.Context) bool {
	if c.withinGate() {
		return false
	}

	_, newer, err := c.CheckNow(ctx)
	if err != nil {
		c.logger.Debug("update check failed", "error", err)
		return false
	}
	return newer
}

func (c *Checker) withinGate() bool {
	raw, err := c.state.Get(keyLastCheck)
	if err != nil || raw == "" {
		return false
	}
	last, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return false
	}
	return c.now().Sub(last) < c.interval
}

// CheckNow queries the catalog regardless of the gate, records the check,
// and reports the latest release plus whether it is newer than the active
// version. Concurrent calls coalesce onto a single catalog request.
func (c *Checker) CheckNow(ctx context.Context) (*domain.Release, bool, error) {
	v, err, _ := c.group.Do("latest", func() (any, error) {
		return c.source.Latest(ctx)
	})
	if err != nil {
		return nil, false, err
	}
	rel := v.(*domain.Release)

	c.stamp(rel.Tag)

	current, ok := c.store.CurrentVersion()
	if !ok {
		// Nothing installed yet, so whatever exists upstream is an update.
		return rel, true, nil
	}
	return rel, IsNewer(current, rel.Tag), nil
}

func (c *Checker) stamp(tag string) {
	if err := c.state.Set(keyLastCheck, c.now().Format(time.RFC3339)); err != nil {
		c.logger.Warn("failed to persist last-check time", "error", err)
	}
	if err := c.state.Set(keyLastSeen, tag); err != nil {
		c.logger.Warn("failed to persist last-seen tag", "error", err)
	}
}

// LastSeen returns the latest tag any previous check discovered.
func (c *Checker) LastSeen() string {
	tag, _ := c.state.Get(keyLastSeen)
	return tag
}

// IsNewer compares two release tags by semantic version when both parse,
// falling back to plain tag inequality otherwise. Under semver an equal
// re-tagged release or a downgrade is not an update; for opaque tags any
// different tag is.
func IsNewer(current, candidate string) bool {
	cur, errCur := semver.NewVersion(domain.NormalizeTag(current))
	cand, errCand := semver.NewVersion(domain.NormalizeTag(candidate))
	if errCur == nil && errCand == nil {
		return cand.GreaterThan(cur)
	}
	return !domain.SameTag(current, candidate)
}
