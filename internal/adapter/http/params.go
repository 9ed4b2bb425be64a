package http

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/pulse-feed-service/internal/aggregator"
	"github.com/couchcryptid/pulse-feed-service/internal/domain"
)

// paramError is a query parameter problem reported to the client as a 400.
type paramError struct {
	msg string
}

func (e *paramError) Error() string { return e.msg }

func badParam(format string, args ...any) error {
	return &paramError{msg: fmt.Sprintf(format, args...)}
}

// floatParam parses a finite float. Missing values take def unless required.
func floatParam(q url.Values, name string, def float64, required bool) (float64, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		if required {
			return 0, badParam("%s is required", name)
		}
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, badParam("%s must be a number", name)
	}
	return v, nil
}

func positiveFloatParam(q url.Values, name string, def float64) (float64, error) {
	v, err := floatParam(q, name, def, false)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, badParam("%s must be positive", name)
	}
	return v, nil
}

// limitParam parses an integer limit in [1, MaxLimit].
func limitParam(q url.Values, def int) (int, error) {
	raw := strings.TrimSpace(q.Get("limit"))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badParam("limit must be an integer")
	}
	if n < 1 || n > aggregator.MaxLimit {
		return 0, badParam("limit must be between 1 and %d", aggregator.MaxLimit)
	}
	return n, nil
}

// maxAgeParam parses max_age_hours. ok is false when the parameter is absent.
func maxAgeParam(q url.Values) (age time.Duration, ok bool, err error) {
	if strings.TrimSpace(q.Get("max_age_hours")) == "" {
		return 0, false, nil
	}
	hours, err := floatParam(q, "max_age_hours", 0, true)
	if err != nil {
		return 0, false, err
	}
	if hours < 0 {
		return 0, false, badParam("max_age_hours must not be negative")
	}
	return domain.HoursDuration(hours), true, nil
}

func coordinateParams(q url.Values) (lat, lon float64, err error) {
	if lat, err = floatParam(q, "lat", 0, true); err != nil {
		return 0, 0, err
	}
	if lon, err = floatParam(q, "lon", 0, true); err != nil {
		return 0, 0, err
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, badParam("lat/lon out of range")
	}
	return lat, lon, nil
}

func localQuery(q url.Values) (aggregator.LocalQuery, error) {
	lat, lon, err := coordinateParams(q)
	if err != nil {
		return aggregator.LocalQuery{}, err
	}
	radius, err := positiveFloatParam(q, "radius_miles", aggregator.DefaultRadiusMiles)
	if err != nil {
		return aggregator.LocalQuery{}, err
	}
	limit, err := limitParam(q, aggregator.DefaultLocalLimit)
	if err != nil {
		return aggregator.LocalQuery{}, err
	}
	maxAge, ok, err := maxAgeParam(q)
	if err != nil {
		return aggregator.LocalQuery{}, err
	}
	if !ok {
		maxAge = aggregator.DefaultLocalMaxAge
	}
	return aggregator.LocalQuery{Lat: lat, Lon: lon, RadiusMiles: radius, MaxAge: maxAge, Limit: limit}, nil
}

func globalQuery(q url.Values) (aggregator.GlobalQuery, error) {
	limit, err := limitParam(q, aggregator.DefaultGlobalLimit)
	if err != nil {
		return aggregator.GlobalQuery{}, err
	}
	maxAge, ok, err := maxAgeParam(q)
	if err != nil {
		return aggregator.GlobalQuery{}, err
	}
	gq := aggregator.GlobalQuery{Limit: limit}
	if ok {
		gq.MaxAge = &maxAge
	}
	return gq, nil
}
