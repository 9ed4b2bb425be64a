package aggregator

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/couchcryptid/pulse-feed-service/internal/domain"
)

// Query defaults and bounds.
const (
	DefaultRadiusMiles = 25.0
	DefaultLocalMaxAge = 48 * time.Hour
	DefaultLocalLimit  = 100
	DefaultGlobalLimit = 200
	MaxLimit           = 1000
)

var (
	// ErrInvalidQuery wraps every query validation failure.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrStoreUnavailable wraps report store failures; they fail the query.
	ErrStoreUnavailable = errors.New("report store unavailable")
)

// LocalQuery selects recent updates around a point.
type LocalQuery struct {
	Lat         float64
	Lon         float64
	RadiusMiles float64
	MaxAge      time.Duration
	Limit       int
}

// Validate checks the query bounds.
func (q LocalQuery) Validate() error {
	if !domain.ValidCoordinate(q.Lat, q.Lon) {
		return fmt.Errorf("%w: lat/lon must be finite and within [-90,90]/[-180,180]", ErrInvalidQuery)
	}
	if math.IsNaN(q.RadiusMiles) || math.IsInf(q.RadiusMiles, 0) || q.RadiusMiles <= 0 {
		return fmt.Errorf("%w: radius must be a positive number", ErrInvalidQuery)
	}
	if q.MaxAge < 0 {
		return fmt.Errorf("%w: max age must not be negative", ErrInvalidQuery)
	}
	return validateLimit(q.Limit)
}

// GlobalQuery selects updates everywhere. A nil MaxAge disables the age filter.
type GlobalQuery struct {
	Limit  int
	MaxAge *time.Duration
}

// Validate checks the query bounds.
func (q GlobalQuery) Validate() error {
	if q.MaxAge != nil && *q.MaxAge < 0 {
		return fmt.Errorf("%w: max age must not be negative", ErrInvalidQuery)
	}
	return validateLimit(q.Limit)
}

func validateLimit(limit int) error {
	if limit < 1 || limit > MaxLimit {
		return fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidQuery, MaxLimit)
	}
	return nil
}

// Result is the response of both queries. Count always equals len(Updates).
type Result struct {
	Count   int             `json:"count"`
	Updates []domain.Update `json:"updates"`
}
