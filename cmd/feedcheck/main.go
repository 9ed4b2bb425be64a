// Command feedcheck queries the live upstream feeds once and checks the
// properties every merged update list must have: count matches the list,
// the limit holds, times are non-increasing, every record is well formed
// and, for a local query, inside the radius and age window.
//
// Usage:
//
//	go run ./cmd/feedcheck -limit 200
//	go run ./cmd/feedcheck -lat 37.77 -lon -122.42 -radius-miles 100 -max-age-hours 72
//
// Reports are not read; the check runs without a database.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/pulse-feed-service/internal/adapter/feeds"
	"github.com/couchcryptid/pulse-feed-service/internal/aggregator"
	"github.com/couchcryptid/pulse-feed-service/internal/config"
	"github.com/couchcryptid/pulse-feed-service/internal/domain"
	"github.com/couchcryptid/pulse-feed-service/internal/observability"
)

// noReports stands in for the report store.
type noReports struct{}

func (noReports) FindNear(context.Context, domain.NearQuery) ([]domain.Feature, error) {
	return nil, nil
}

func (noReports) All(context.Context) ([]domain.Feature, error) {
	return nil, nil
}

func main() {
	limit := flag.Int("limit", aggregator.DefaultGlobalLimit, "maximum updates to request")
	lat := flag.Float64("lat", 0, "latitude for the local query")
	lon := flag.Float64("lon", 0, "longitude for the local query")
	local := flag.Bool("local", false, "also run a local query at -lat/-lon")
	radius := flag.Float64("radius-miles", aggregator.DefaultRadiusMiles, "local query radius")
	maxAgeHours := flag.Float64("max-age-hours", 0, "age window in hours; 0 leaves the global query unbounded and uses 48 for local")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load config: %v\n", err)
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg)

	opts := options{
		limit:       *limit,
		local:       *local,
		lat:         *lat,
		lon:         *lon,
		radiusMiles: *radius,
		maxAge:      domain.HoursDuration(*maxAgeHours),
	}
	if code := run(context.Background(), cfg, opts, logger); code != 0 {
		os.Exit(code)
	}
}

type options struct {
	limit       int
	local       bool
	lat, lon    float64
	radiusMiles float64
	maxAge      time.Duration
}

func run(ctx context.Context, cfg *config.Config, opts options, logger *slog.Logger) int {
	feedConfig := func(f config.Feed) feeds.Config {
		return feeds.Config{URL: f.URL, Timeout: f.Timeout, UserAgent: cfg.FeedUserAgent}
	}
	live := aggregator.Feeds{
		Quake:   feeds.NewQuakeFetcher(feedConfig(cfg.Feeds.Quake), logger),
		Alert:   feeds.NewAlertFetcher(feedConfig(cfg.Feeds.Alert), logger),
		Event:   feeds.NewEventFetcher(feedConfig(cfg.Feeds.Event), logger),
		Hotspot: feeds.NewHotspotFetcher(feedConfig(cfg.Feeds.Hotspot), cfg.FIRMSMapKey, cfg.HotspotMaxRows, logger),
	}
	agg := aggregator.New(noReports{}, live, logger, observability.NewMetrics())

	fmt.Println("=== Live Feed Invariant Check ===")
	fmt.Println()

	for _, f := range []aggregator.Fetcher{live.Quake, live.Alert, live.Event, live.Hotspot} {
		fc, err := f.Fetch(ctx)
		if err != nil {
			fmt.Printf("  %-8s %s (%v)\n", f.Source(), aggregator.Outcome(err), err)
			continue
		}
		fmt.Printf("  %-8s %d features\n", f.Source(), len(fc.Features))
	}

	limit := min(opts.limit, aggregator.MaxLimit)
	gq := aggregator.GlobalQuery{Limit: limit}
	if opts.maxAge > 0 {
		gq.MaxAge = &opts.maxAge
	}
	// Ages are measured from before the query so the window is never tighter
	// than the one the aggregator applied.
	queryTime := domain.Now()
	global, err := agg.Global(ctx, gq)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: global query: %v\n", err)
		return 1
	}

	phases := []*phase{
		checkShape("global: result shape", global, limit),
		checkOrdering("global: newest first", global.Updates),
		checkRecords("global: record validity", global.Updates),
		checkWire("global: wire shape", global.Updates),
	}
	if gq.MaxAge != nil {
		phases = append(phases, checkAge("global: age window", global.Updates, queryTime, *gq.MaxAge))
	}

	if opts.local {
		lq := aggregator.LocalQuery{
			Lat:         opts.lat,
			Lon:         opts.lon,
			RadiusMiles: opts.radiusMiles,
			MaxAge:      aggregator.DefaultLocalMaxAge,
			Limit:       limit,
		}
		if opts.maxAge > 0 {
			lq.MaxAge = opts.maxAge
		}
		localTime := domain.Now()
		res, err := agg.Local(ctx, lq)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: local query: %v\n", err)
			return 1
		}
		phases = append(phases,
			checkShape("local: result shape", res, lq.Limit),
			checkOrdering("local: newest first", res.Updates),
			checkRecords("local: record validity", res.Updates),
			checkAge("local: age window", res.Updates, localTime, lq.MaxAge),
			checkRadius("local: radius", res.Updates, lq.Lat, lq.Lon, lq.RadiusMiles*domain.KmPerMile),
		)
	}

	return report(phases, global.Count)
}

func report(phases []*phase, count int) int {
	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-32s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Updates: %d global\n", count)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll checks passed.")
		return 0
	}
	fmt.Println("\nCheck FAILED.")
	return 1
}
