package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/couchcryptid/pulse-feed-service/internal/aggregator"
	"github.com/couchcryptid/pulse-feed-service/internal/domain"
)

// phase tracks pass/fail for one check.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func checkShape(name string, res aggregator.Result, limit int) *phase {
	p := &phase{name: name}
	if res.Count != len(res.Updates) {
		p.errorf("count %d != len(updates) %d", res.Count, len(res.Updates))
	}
	if len(res.Updates) > limit {
		p.errorf("%d updates exceed limit %d", len(res.Updates), limit)
	}
	if res.Updates == nil {
		p.errorf("updates is nil, want empty list")
	}
	return p
}

func checkOrdering(name string, updates []domain.Update) *phase {
	p := &phase{name: name}
	for i := 1; i < len(updates); i++ {
		if updates[i].Time.After(updates[i-1].Time) {
			p.errorf("[%d] %s is newer than [%d] %s", i, updates[i].Time.Format(time.RFC3339), i-1, updates[i-1].Time.Format(time.RFC3339))
		}
	}
	return p
}

func checkRecords(name string, updates []domain.Update) *phase {
	p := &phase{name: name}
	for i, u := range updates {
		if !u.Kind().Valid() {
			p.errorf("[%d] unknown kind %q", i, u.Kind())
		}
		if !domain.ValidCoordinate(u.Lat, u.Lon) {
			p.errorf("[%d] %s: invalid coordinate (%v, %v)", i, u.Kind(), u.Lat, u.Lon)
		}
		if u.Title == "" {
			p.errorf("[%d] %s: empty title", i, u.Kind())
		}
		if u.Emoji == "" {
			p.errorf("[%d] %s: empty emoji", i, u.Kind())
		}
		if u.Time.IsZero() || u.Time.Location() != time.UTC {
			p.errorf("[%d] %s: time %v is not a UTC instant", i, u.Kind(), u.Time)
		}
	}
	return p
}

var wireKeys = []string{"kind", "title", "emoji", "time", "lat", "lon", "severity", "sourceUrl", "raw"}

func checkWire(name string, updates []domain.Update) *phase {
	p := &phase{name: name}
	for i, u := range updates {
		data, err := json.Marshal(u)
		if err != nil {
			p.errorf("[%d] marshal: %v", i, err)
			continue
		}
		var fields map[string]any
		if err := json.Unmarshal(data, &fields); err != nil {
			p.errorf("[%d] unmarshal: %v", i, err)
			continue
		}
		for _, k := range wireKeys {
			if _, ok := fields[k]; !ok {
				p.errorf("[%d] missing key %q", i, k)
			}
		}
		if len(fields) != len(wireKeys) {
			p.errorf("[%d] %d keys, want %d", i, len(fields), len(wireKeys))
		}
		ts, _ := fields["time"].(string)
		if parsed, err := time.Parse(time.RFC3339, ts); err != nil || parsed.Location() != time.UTC {
			p.errorf("[%d] time %q is not RFC 3339 UTC", i, ts)
		}
	}
	return p
}

func checkAge(name string, updates []domain.Update, now time.Time, maxAge time.Duration) *phase {
	p := &phase{name: name}
	for i, u := range updates {
		if age := now.Sub(u.Time); age > maxAge {
			p.errorf("[%d] %s %q is %s old, window %s", i, u.Kind(), u.Title, age.Round(time.Second), maxAge)
		}
	}
	return p
}

func checkRadius(name string, updates []domain.Update, lat, lon, radiusKm float64) *phase {
	p := &phase{name: name}
	for i, u := range updates {
		if d := domain.HaversineKm(lat, lon, u.Lat, u.Lon); d > radiusKm {
			p.errorf("[%d] %s %q is %.1f km away, radius %.1f km", i, u.Kind(), u.Title, d, radiusKm)
		}
	}
	return p
}
