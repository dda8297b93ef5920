package realtime

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/encoding/protojson"
)

// marshalOpts matches the endpoint's own encoding so the cache files stay
// readable by anything that reads the feed directly.
var marshalOpts = protojson.MarshalOptions{
	Multiline:    true,
	Indent:       "    ",
	AllowPartial: true,
}

// FeedCache tracks one live feed: the adopted in-memory snapshot, its header
// timestamp, and the file it persists to. A new fetch result is adopted only
// when its feed timestamp has advanced by at least the minimum refresh
// interval, throttling writes to the feed's own publication cadence rather
// than to polling frequency.
type FeedCache struct {
	name       string // feed document name, e.g. "trip_updates.json"
	path       string
	minRefresh int64                        // seconds of feed-timestamp delta
	filter     func(*gtfsrt.FeedMessage)    // applied before adoption, may be nil
	logger     *slog.Logger

	mu       sync.RWMutex
	snapshot *gtfsrt.FeedMessage
	adopted  int64 // header timestamp of the adopted snapshot, 0 = none
}

// NewFeedCache creates a cache for one feed persisted under dir.
func NewFeedCache(name, dir string, minRefresh int64, filter func(*gtfsrt.FeedMessage), logger *slog.Logger) *FeedCache {
	return &FeedCache{
		name:       name,
		path:       filepath.Join(dir, name),
		minRefresh: minRefresh,
		filter:     filter,
		logger:     logger,
	}
}

// LoadFromDisk restores the persisted snapshot. It reports true when a
// snapshot was adopted. An absent file is the normal first-run state; any
// other failure logs and leaves the cache empty.
func (fc *FeedCache) LoadFromDisk() bool {
	data, err := os.ReadFile(fc.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fc.logger.Warn("cache file unreadable, starting empty", "feed", fc.name, "error", err)
		}
		return false
	}

	feed := &gtfsrt.FeedMessage{}
	if err := unmarshalOpts.Unmarshal(data, feed); err != nil {
		fc.logger.Warn("cache file corrupt, starting empty", "feed", fc.name, "error", err)
		return false
	}

	fc.mu.Lock()
	fc.snapshot = feed
	fc.adopted = int64(feed.GetHeader().GetTimestamp())
	fc.mu.Unlock()

	fc.logger.Info("live cache restored", "feed", fc.name, "timestamp", feed.GetHeader().GetTimestamp())
	return true
}

// Refresh fetches the feed and adopts the result if it is fresh enough.
// Fetch or decode failures leave the prior snapshot authoritative.
func (fc *FeedCache) Refresh(ctx context.Context, client *Client) {
	feed, err := client.Fetch(ctx, fc.name)
	if err != nil {
		fc.logger.Warn("live feed fetch failed, keeping cached data", "feed", fc.name, "error", err)
		return
	}

	fetched := int64(feed.GetHeader().GetTimestamp())

	fc.mu.Lock()
	if fc.adopted != 0 && fetched-fc.adopted < fc.minRefresh {
		fc.mu.Unlock()
		fc.logger.Debug("live feed unchanged within refresh interval",
			"feed", fc.name, "fetched", fetched, "adopted", fc.adopted)
		return
	}
	if fc.filter != nil {
		fc.filter(feed)
	}
	fc.snapshot = feed
	fc.adopted = fetched
	fc.mu.Unlock()

	fc.persist(feed)
	fc.logger.Info("live feed adopted", "feed", fc.name, "timestamp", fetched, "entities", len(feed.GetEntity()))
}

func (fc *FeedCache) persist(feed *gtfsrt.FeedMessage) {
	data, err := marshalOpts.Marshal(feed)
	if err != nil {
		fc.logger.Error("encode cache file", "feed", fc.name, "error", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(fc.path), 0755); err != nil {
		fc.logger.Error("create cache dir", "feed", fc.name, "error", err)
		return
	}
	if err := os.WriteFile(fc.path, data, 0644); err != nil {
		fc.logger.Error("write cache file", "feed", fc.name, "error", err)
	}
}

// Snapshot returns the adopted feed, or nil when nothing has been adopted.
func (fc *FeedCache) Snapshot() *gtfsrt.FeedMessage {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	return fc.snapshot
}

// AdoptedTimestamp returns the header timestamp of the adopted snapshot.
func (fc *FeedCache) AdoptedTimestamp() int64 {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	return fc.adopted
}

// TripUpdateFilter narrows a trip-update feed to the station's routes and
// stops: entities off the route allow-list are dropped, stop-time updates
// off the stop allow-list are removed, and entities left with no stop-time
// updates are dropped too.
func TripUpdateFilter(routeIDs, stopIDs []string) func(*gtfsrt.FeedMessage) {
	routes := make(map[string]struct{}, len(routeIDs))
	for _, id := range routeIDs {
		routes[id] = struct{}{}
	}
	stops := make(map[string]struct{}, len(stopIDs))
	for _, id := range stopIDs {
		stops[id] = struct{}{}
	}

	return func(feed *gtfsrt.FeedMessage) {
		kept := feed.Entity[:0]
		for _, entity := range feed.GetEntity() {
			tu := entity.GetTripUpdate()
			if tu == nil {
				continue
			}
			if _, ok := routes[tu.GetTrip().GetRouteId()]; !ok {
				continue
			}
			stus := tu.StopTimeUpdate[:0]
			for _, stu := range tu.GetStopTimeUpdate() {
				if _, ok := stops[stu.GetStopId()]; ok {
					stus = append(stus, stu)
				}
			}
			tu.StopTimeUpdate = stus
			if len(stus) == 0 {
				continue
			}
			kept = append(kept, entity)
		}
		feed.Entity = kept
	}
}
