package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
)

// ErrNoInstances is returned by Resolve when a reasoner has no live
// instance that fits.
var ErrNoInstances = errors.New("no reasoner instances registered")

// Resolve returns the base URL of the most recently started instance of a
// reasoner. When version is not empty, only instances that list it (or list
// no versions at all) are considered.
func Resolve(ctx context.Context, d Discoverer, reasonerID, version string) (string, error) {
	instances, err := d.Discover(ctx, reasonerID)
	if err != nil {
		return "", err
	}
	best, ok := newest(instances, version)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoInstances, reasonerID)
	}
	return strings.TrimRight(best.URL, "/"), nil
}

func newest(instances []ReasonerInfo, version string) (ReasonerInfo, bool) {
	var (
		best  ReasonerInfo
		found bool
	)
	for _, info := range instances {
		if info.URL == "" {
			continue
		}
		if version != "" && len(info.TRAPIVersions) > 0 && !slices.Contains(info.TRAPIVersions, version) {
			continue
		}
		if !found || info.StartedAt.After(best.StartedAt) ||
			(info.StartedAt.Equal(best.StartedAt) && info.InstanceID < best.InstanceID) {
			best, found = info, true
		}
	}
	return best, found
}

// Follower keeps the resolved URL of one reasoner current from a Watch
// stream, so resolving an endpoint costs no registry round trip.
type Follower struct {
	reasonerID string
	version    string
	logger     *slog.Logger

	mu    sync.RWMutex
	url   string
	found bool

	stop context.CancelFunc
	done chan struct{}
}

// Follow starts watching a reasoner and returns once the first set of
// instances has been applied. The watch runs until ctx is canceled or Stop
// is called. version filters instances as in Resolve.
func Follow(ctx context.Context, w Watcher, reasonerID, version string, logger *slog.Logger) (*Follower, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(ctx)
	updates, err := w.Watch(ctx, reasonerID)
	if err != nil {
		cancel()
		return nil, err
	}

	f := &Follower{
		reasonerID: reasonerID,
		version:    version,
		logger:     logger,
		stop:       cancel,
		done:       make(chan struct{}),
	}
	select {
	case first, ok := <-updates:
		if !ok {
			cancel()
			return nil, fmt.Errorf("watch of %s closed before the first update", reasonerID)
		}
		f.apply(first)
	case <-ctx.Done():
		cancel()
		return nil, ctx.Err()
	}

	go f.run(ctx, updates)
	return f, nil
}

func (f *Follower) run(ctx context.Context, updates <-chan []ReasonerInfo) {
	defer close(f.done)
	for {
		select {
		case <-ctx.Done():
			return
		case instances, ok := <-updates:
			if !ok {
				return
			}
			f.apply(instances)
		}
	}
}

func (f *Follower) apply(instances []ReasonerInfo) {
	best, found := newest(instances, f.version)
	url := strings.TrimRight(best.URL, "/")

	f.mu.Lock()
	changed := url != f.url || found != f.found
	f.url, f.found = url, found
	f.mu.Unlock()

	if changed {
		f.logger.Info("reasoner endpoint changed",
			"reasoner_id", f.reasonerID,
			"url", url,
			"instances", len(instances))
	}
}

// URL returns the base URL of the newest fitting instance, or false when
// none is registered.
func (f *Follower) URL() (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.url, f.found
}

// Stop ends the watch and waits for the follower to exit.
func (f *Follower) Stop() {
	f.stop()
	<-f.done
}
