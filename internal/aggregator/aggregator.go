package aggregator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/pulse-feed-service/internal/adapter/feeds"
	"github.com/couchcryptid/pulse-feed-service/internal/domain"
	"github.com/couchcryptid/pulse-feed-service/internal/observability"
)

// Fetcher returns one upstream feed as a FeatureCollection.
type Fetcher interface {
	Source() string
	Fetch(ctx context.Context) (domain.FeatureCollection, error)
}

// ReportSource is the read side of the report store.
type ReportSource interface {
	FindNear(ctx context.Context, q domain.NearQuery) ([]domain.Feature, error)
	All(ctx context.Context) ([]domain.Feature, error)
}

// Feeds are the four upstream fetchers. A nil fetcher contributes nothing.
type Feeds struct {
	Quake   Fetcher
	Alert   Fetcher
	Event   Fetcher
	Hotspot Fetcher
}

// fetched holds one collection per feed, in fetch order.
type fetched struct {
	quake, alert, event, hotspot domain.FeatureCollection
}

// Aggregator merges stored reports and live feeds into one update list.
type Aggregator struct {
	store   ReportSource
	feeds   Feeds
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates an Aggregator.
func New(store ReportSource, f Feeds, logger *slog.Logger, metrics *observability.Metrics) *Aggregator {
	return &Aggregator{
		store:   store,
		feeds:   f,
		logger:  logger,
		metrics: metrics,
	}
}

// Local returns updates within the radius of the point whose age is at most
// q.MaxAge, newest first. Only a store failure fails the query; a failing feed
// contributes no updates.
func (a *Aggregator) Local(ctx context.Context, q LocalQuery) (Result, error) {
	if err := q.Validate(); err != nil {
		return Result{}, err
	}
	start := time.Now()
	now := domain.Now()
	radiusKm := domain.MilesToKm(q.RadiusMiles)

	reports, live, err := a.gather(ctx, func(ctx context.Context) ([]domain.Feature, error) {
		return a.store.FindNear(ctx, domain.NearQuery{
			Lat:      q.Lat,
			Lon:      q.Lon,
			RadiusKm: radiusKm,
			Limit:    q.Limit,
			MaxAge:   q.MaxAge,
		})
	})
	if err != nil {
		return Result{}, err
	}

	keep := func(u domain.Update) bool {
		return withinAge(u, now, q.MaxAge) && domain.HaversineKm(q.Lat, q.Lon, u.Lat, u.Lon) <= radiusKm
	}

	var updates []domain.Update
	updates = appendKept(updates, a.normalizeReports(reports, now), keep)
	updates = appendKept(updates, a.normalizeEach(live.quake, now, feeds.SourceUSGS, domain.NormalizeQuake), keep)
	updates = appendKept(updates, a.normalizeAlerts(live.alert, now), keep)
	updates = appendKept(updates, a.normalizeEach(live.event, now, feeds.SourceEONET, domain.NormalizeEvent), keep)
	updates = appendKept(updates, a.normalizeEach(live.hotspot, now, feeds.SourceFIRMS, domain.NormalizeHotspot), keep)

	return a.finish("local", updates, q.Limit, start), nil
}

// Global returns updates from every stored report and every feed, newest
// first, optionally limited to those no older than q.MaxAge.
func (a *Aggregator) Global(ctx context.Context, q GlobalQuery) (Result, error) {
	if err := q.Validate(); err != nil {
		return Result{}, err
	}
	start := time.Now()
	now := domain.Now()

	reports, live, err := a.gather(ctx, a.store.All)
	if err != nil {
		return Result{}, err
	}

	keep := func(u domain.Update) bool {
		return q.MaxAge == nil || withinAge(u, now, *q.MaxAge)
	}

	var updates []domain.Update
	updates = appendKept(updates, a.normalizeReports(reports, now), keep)
	updates = appendKept(updates, a.normalizeAlerts(live.alert, now), keep)
	updates = appendKept(updates, a.normalizeEach(live.quake, now, feeds.SourceUSGS, domain.NormalizeQuake), keep)
	updates = appendKept(updates, a.normalizeEach(live.event, now, feeds.SourceEONET, domain.NormalizeEvent), keep)
	updates = appendKept(updates, a.normalizeEach(live.hotspot, now, feeds.SourceFIRMS, domain.NormalizeHotspot), keep)

	return a.finish("global", updates, q.Limit, start), nil
}

// gather reads reports and fetches the four feeds concurrently. Feed failures
// are folded into empty collections; the store error is returned wrapped.
func (a *Aggregator) gather(ctx context.Context, readReports func(context.Context) ([]domain.Feature, error)) ([]domain.Feature, fetched, error) {
	var (
		g       errgroup.Group
		reports []domain.Feature
		out     fetched
	)

	g.Go(func() error {
		var err error
		reports, err = readReports(ctx)
		return err
	})
	for _, slot := range []struct {
		fetcher Fetcher
		dst     *domain.FeatureCollection
	}{
		{a.feeds.Quake, &out.quake},
		{a.feeds.Alert, &out.alert},
		{a.feeds.Event, &out.event},
		{a.feeds.Hotspot, &out.hotspot},
	} {
		if slot.fetcher == nil {
			continue
		}
		g.Go(func() error {
			*slot.dst = a.fetch(ctx, slot.fetcher)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fetched{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return reports, out, nil
}

// fetch runs one fetcher and records the outcome. Errors yield an empty collection.
func (a *Aggregator) fetch(ctx context.Context, f Fetcher) domain.FeatureCollection {
	source := f.Source()
	start := time.Now()
	fc, err := f.Fetch(ctx)
	a.metrics.FeedFetchDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())

	if err != nil {
		outcome := Outcome(err)
		a.metrics.FeedRequests.WithLabelValues(source, outcome).Inc()
		a.logger.Warn("feed fetch failed", "source", source, "kind", outcome, "error", err)
		return domain.NewFeatureCollection(nil)
	}

	a.metrics.FeedRequests.WithLabelValues(source, "success").Inc()
	a.metrics.FeedFeatures.WithLabelValues(source).Add(float64(len(fc.Features)))
	return fc
}

// Outcome labels a fetch error for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case feeds.IsUnavailable(err):
		return feeds.Unavailable.String()
	default:
		return feeds.Upstream.String()
	}
}

func (a *Aggregator) normalizeReports(reports []domain.Feature, now time.Time) []domain.Update {
	return a.normalizeEach(domain.FeatureCollection{Features: reports}, now, "reports", domain.NormalizeReport)
}

func (a *Aggregator) normalizeEach(fc domain.FeatureCollection, now time.Time, source string, normalize func(domain.Feature, time.Time) (domain.Update, bool)) []domain.Update {
	out := make([]domain.Update, 0, len(fc.Features))
	for _, f := range fc.Features {
		u, ok := normalize(f, now)
		if !ok {
			a.metrics.NormalizeDropped.WithLabelValues(source).Inc()
			continue
		}
		out = append(out, u)
	}
	return out
}

func (a *Aggregator) normalizeAlerts(fc domain.FeatureCollection, now time.Time) []domain.Update {
	out := domain.NormalizeAlerts(fc, now)
	if dropped := len(fc.Features) - len(out); dropped > 0 {
		a.metrics.NormalizeDropped.WithLabelValues(feeds.SourceNWS).Add(float64(dropped))
	}
	return out
}

// finish sorts newest first, keeping merge order among equal instants, and
// truncates to limit.
func (a *Aggregator) finish(scope string, updates []domain.Update, limit int, start time.Time) Result {
	sort.SliceStable(updates, func(i, j int) bool {
		return updates[i].Time.After(updates[j].Time)
	})
	if len(updates) > limit {
		updates = updates[:limit]
	}
	if updates == nil {
		updates = []domain.Update{}
	}

	a.metrics.QueryDuration.WithLabelValues(scope).Observe(time.Since(start).Seconds())
	a.metrics.UpdatesReturned.WithLabelValues(scope).Observe(float64(len(updates)))
	a.logger.Debug("updates aggregated", "scope", scope, "count", len(updates))
	return Result{Count: len(updates), Updates: updates}
}

func withinAge(u domain.Update, now time.Time, maxAge time.Duration) bool {
	return now.Sub(u.Time) <= maxAge
}

func appendKept(dst, src []domain.Update, keep func(domain.Update) bool) []domain.Update {
	for _, u := range src {
		if keep(u) {
			dst = append(dst, u)
		}
	}
	return dst
}
