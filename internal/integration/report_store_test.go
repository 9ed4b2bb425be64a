//go:build integration

package integration_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/pulse-feed-service/internal/adapter/postgres"
	"github.com/couchcryptid/pulse-feed-service/internal/aggregator"
	"github.com/couchcryptid/pulse-feed-service/internal/classify"
	"github.com/couchcryptid/pulse-feed-service/internal/domain"
	"github.com/couchcryptid/pulse-feed-service/internal/observability"
	"github.com/couchcryptid/pulse-feed-service/internal/reports"
)

func openStore(ctx context.Context, t *testing.T) *postgres.Store {
	t.Helper()
	store, err := postgres.New(ctx, startPostgres(ctx, t), 4, discardLogger())
	require.NoError(t, err)
	t.Cleanup(store.Close)

	require.NoError(t, store.WaitReady(ctx, time.Second))
	require.NoError(t, store.EnsureSchema(ctx))
	require.NoError(t, store.EnsureSchema(ctx), "schema creation is idempotent")
	return store
}

// TestReportStoreRoundTrip exercises add, findNear, all and clear against a
// real database.
func TestReportStoreRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	store := openStore(ctx, t)
	require.NoError(t, store.CheckReadiness(ctx))

	clock := clockwork.NewFakeClockAt(time.Date(2024, 4, 26, 12, 0, 0, 0, time.UTC))
	domain.SetClock(clock)
	t.Cleanup(func() { domain.SetClock(nil) })

	// Austin downtown, 5 km north, and Dallas (~300 km away).
	first, err := store.Add(ctx, 30.2672, -97.7431, "tree down", domain.Properties{"category": domain.CategoryBlocked})
	require.NoError(t, err)
	clock.Advance(time.Hour)
	second, err := store.Add(ctx, 30.3122, -97.7431, "flooded road", nil)
	require.NoError(t, err)
	clock.Advance(time.Hour)
	_, err = store.Add(ctx, 32.7767, -96.7970, "far away", nil)
	require.NoError(t, err)

	firstID := first.Properties.String(domain.PropID)
	secondID := second.Properties.String(domain.PropID)
	require.NotEmpty(t, firstID)
	assert.Equal(t, firstID, first.Properties.String(domain.PropRID))
	assert.Equal(t, domain.ReportFeatureType, first.Properties["type"])
	assert.Equal(t, domain.CategoryBlocked, first.Properties["category"])
	assert.Equal(t, "2024-04-26T12:00:00Z", first.Properties["reported_at"])

	a, _ := strconv.Atoi(firstID)
	b, _ := strconv.Atoi(secondID)
	assert.Greater(t, b, a, "ids increase with insertion")

	all, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "far away", all[0].Properties["text"], "newest first")

	near, err := store.FindNear(ctx, domain.NearQuery{Lat: 30.2672, Lon: -97.7431, RadiusKm: 10, Limit: 20})
	require.NoError(t, err)
	require.Len(t, near, 2)
	assert.Equal(t, firstID, near[0].Properties.String(domain.PropID), "nearest first")
	assert.Equal(t, secondID, near[1].Properties.String(domain.PropID))

	capped, err := store.FindNear(ctx, domain.NearQuery{Lat: 30.2672, Lon: -97.7431, RadiusKm: 10, Limit: 0})
	require.NoError(t, err)
	assert.Len(t, capped, 1, "limit floors at one")

	// created_at for the first report is two hours before now.
	recent, err := store.FindNear(ctx, domain.NearQuery{Lat: 30.2672, Lon: -97.7431, RadiusKm: 10, Limit: 20, MaxAge: 90 * time.Minute})
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, secondID, recent[0].Properties.String(domain.PropID))

	res, err := store.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.ClearResult{OK: true, Message: "All reports cleared."}, res)

	all, err = store.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

// TestSubmittedReportsReachLocalUpdates runs a submission through the real
// store and reads it back through the aggregator with no live feeds.
func TestSubmittedReportsReachLocalUpdates(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	store := openStore(ctx, t)
	metrics := observability.NewMetricsForTesting()

	svc := reports.NewService(store, classify.NewKeyword(), nil, nil, discardLogger(), metrics)
	_, err := svc.Submit(ctx, reports.Submission{Lat: 30.2672, Lon: -97.7431, Text: "car crash on the highway"})
	require.NoError(t, err)

	agg := aggregator.New(store, aggregator.Feeds{}, discardLogger(), metrics)
	res, err := agg.Local(ctx, aggregator.LocalQuery{
		Lat:         30.27,
		Lon:         -97.74,
		RadiusMiles: aggregator.DefaultRadiusMiles,
		MaxAge:      aggregator.DefaultLocalMaxAge,
		Limit:       aggregator.DefaultLocalLimit,
	})
	require.NoError(t, err)

	require.Equal(t, 1, res.Count)
	u := res.Updates[0]
	assert.Equal(t, domain.KindReport, u.Kind())
	assert.Equal(t, "Car accident", u.Title)
	assert.Equal(t, "🚗", u.Emoji)
	assert.Equal(t, "medium", u.Severity)
}
