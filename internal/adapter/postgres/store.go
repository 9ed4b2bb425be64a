package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/couchcryptid/pulse-feed-service/internal/domain"
)

// scanCap bounds how many of the newest candidate rows FindNear ranks.
const scanCap = 2000

const schema = `
CREATE TABLE IF NOT EXISTS reports (
	id          BIGSERIAL PRIMARY KEY,
	lat         DOUBLE PRECISION NOT NULL,
	lon         DOUBLE PRECISION NOT NULL,
	text        TEXT NOT NULL,
	properties  JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS reports_created_at_idx ON reports (created_at);
`

// Store implements domain.ReportStore on PostgreSQL. The pool is safe for
// concurrent use.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New opens a connection pool for connString.
func New(ctx context.Context, connString string, maxConns int32, logger *slog.Logger) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	return &Store{pool: pool, logger: logger}, nil
}

// EnsureSchema creates the reports table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// CheckReadiness implements the readiness probe.
func (s *Store) CheckReadiness(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("database ping: %w", err)
	}
	return nil
}

// WaitReady pings until the database answers or ctx ends, doubling the pause
// between attempts up to maxBackoff.
func (s *Store) WaitReady(ctx context.Context, maxBackoff time.Duration) error {
	backoff := 250 * time.Millisecond
	for {
		err := s.pool.Ping(ctx)
		if err == nil {
			return nil
		}
		s.logger.Warn("database not ready", "error", err, "retry_in", backoff)
		if !retry.SleepWithContext(ctx, backoff) {
			return fmt.Errorf("wait for database: %w", err)
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Add inserts a report and returns it as a feature with its generated id.
func (s *Store) Add(ctx context.Context, lat, lon float64, text string, props domain.Properties) (domain.Feature, error) {
	if !domain.ValidCoordinate(lat, lon) {
		return domain.Feature{}, fmt.Errorf("add report: invalid coordinate %v,%v", lat, lon)
	}
	if props == nil {
		props = domain.Properties{}
	}
	encoded, err := json.Marshal(props)
	if err != nil {
		return domain.Feature{}, fmt.Errorf("encode properties: %w", err)
	}

	createdAt := domain.Now()
	var id int64
	err = s.pool.QueryRow(ctx, `
		INSERT INTO reports (lat, lon, text, properties, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, lat, lon, text, encoded, createdAt).Scan(&id)
	if err != nil {
		return domain.Feature{}, fmt.Errorf("insert report: %w", err)
	}

	s.logger.Debug("report stored", "id", id, "lat", lat, "lon", lon)
	return reportRow{ID: id, Lat: lat, Lon: lon, Text: text, Props: props, CreatedAt: createdAt}.feature(), nil
}

// FindNear returns reports within q.RadiusKm of the point, nearest first,
// capped at max(1, q.Limit). Only the newest rows in the coarse bounding box
// are ranked.
func (s *Store) FindNear(ctx context.Context, q domain.NearQuery) ([]domain.Feature, error) {
	var since *time.Time
	if q.MaxAge > 0 {
		cut := domain.Now().Add(-q.MaxAge)
		since = &cut
	}
	box := boundingBox(q.Lat, q.Lon, q.RadiusKm)

	rows, err := s.pool.Query(ctx, `
		SELECT id, lat, lon, text, properties, created_at
		FROM reports
		WHERE ($1::timestamptz IS NULL OR created_at >= $1)
		  AND lat BETWEEN $2 AND $3
		  AND lon BETWEEN $4 AND $5
		ORDER BY id DESC
		LIMIT $6
	`, since, box.minLat, box.maxLat, box.minLon, box.maxLon, scanCap)
	if err != nil {
		return nil, fmt.Errorf("query reports near: %w", err)
	}
	candidates, err := collectReports(rows)
	if err != nil {
		return nil, err
	}
	return rankNear(candidates, q), nil
}

// All returns every report, newest first.
func (s *Store) All(ctx context.Context) ([]domain.Feature, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, lat, lon, text, properties, created_at
		FROM reports
		ORDER BY id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	reports, err := collectReports(rows)
	if err != nil {
		return nil, err
	}
	features := make([]domain.Feature, len(reports))
	for i, r := range reports {
		features[i] = r.feature()
	}
	return features, nil
}

// Clear deletes every report.
func (s *Store) Clear(ctx context.Context) (domain.ClearResult, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM reports`)
	if err != nil {
		return domain.ClearResult{}, fmt.Errorf("clear reports: %w", err)
	}
	s.logger.Info("reports cleared", "count", tag.RowsAffected())
	return domain.ClearResult{OK: true, Message: "All reports cleared."}, nil
}

type reportRow struct {
	ID        int64
	Lat       float64
	Lon       float64
	Text      string
	Props     domain.Properties
	CreatedAt time.Time
}

func (r reportRow) feature() domain.Feature {
	id := strconv.FormatInt(r.ID, 10)
	return domain.NewPointFeature(r.Lat, r.Lon, domain.ReportProperties(id, r.Text, r.CreatedAt, r.Props))
}

func collectReports(rows pgx.Rows) ([]reportRow, error) {
	defer rows.Close()

	var out []reportRow
	for rows.Next() {
		var (
			r   reportRow
			raw []byte
		)
		if err := rows.Scan(&r.ID, &r.Lat, &r.Lon, &r.Text, &raw, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &r.Props); err != nil {
				return nil, fmt.Errorf("decode report %d properties: %w", r.ID, err)
			}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return out, nil
}

// rankNear keeps candidates within the radius, orders them by ascending
// distance and caps the result at max(1, limit).
func rankNear(candidates []reportRow, q domain.NearQuery) []domain.Feature {
	type ranked struct {
		row  reportRow
		dist float64
	}
	var hits []ranked
	for _, r := range candidates {
		d := domain.HaversineKm(q.Lat, q.Lon, r.Lat, r.Lon)
		if d <= q.RadiusKm {
			hits = append(hits, ranked{row: r, dist: d})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })

	limit := max(1, q.Limit)
	if len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]domain.Feature, len(hits))
	for i, h := range hits {
		out[i] = h.row.feature()
	}
	return out
}

type bbox struct {
	minLat, maxLat, minLon, maxLon float64
}

// kmPerDegree is the length of one degree of latitude.
const kmPerDegree = domain.EarthRadiusKm * math.Pi / 180

// boundingBox returns a lat/lon box containing every point within radiusKm.
// Near the poles or across the antimeridian the longitude range is left open.
func boundingBox(lat, lon, radiusKm float64) bbox {
	dLat := radiusKm / kmPerDegree
	box := bbox{
		minLat: math.Max(-90, lat-dLat),
		maxLat: math.Min(90, lat+dLat),
		minLon: -180,
		maxLon: 180,
	}
	if box.minLat <= -90 || box.maxLat >= 90 {
		return box
	}

	cosLat := math.Cos(math.Max(math.Abs(box.minLat), math.Abs(box.maxLat)) * math.Pi / 180)
	dLon := dLat / cosLat
	if lon-dLon < -180 || lon+dLon > 180 || dLon >= 180 {
		return box
	}
	box.minLon = lon - dLon
	box.maxLon = lon + dLon
	return box
}
