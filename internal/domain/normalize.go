package domain

import (
	"strconv"
	"time"
)

// Each source is parsed into a typed record first; a feature that cannot be
// reduced to a valid point never becomes a record. The record is then mapped
// onto an Update. now stands in for any timestamp the source does not supply.

type reportRecord struct {
	at         Coord
	title      string
	glyph      string
	reportedAt string
	severity   string
	props      Properties
}

func parseReport(f Feature) (reportRecord, bool) {
	if f.Geometry == nil || f.Geometry.Point == nil {
		return reportRecord{}, false
	}
	p := f.Properties
	return reportRecord{
		at:         *f.Geometry.Point,
		title:      p.String("title", "text"),
		glyph:      p.String("emoji"),
		reportedAt: p.String("reported_at"),
		severity:   p.Text("severity"),
		props:      p,
	}, true
}

// NormalizeReport maps a stored report feature onto an Update.
func NormalizeReport(f Feature, now time.Time) (Update, bool) {
	rec, ok := parseReport(f)
	if !ok {
		return Update{}, false
	}
	u, ok := NewUpdate(KindReport, rec.at.Lat, rec.at.Lon, timestampOr(rec.reportedAt, now))
	if !ok {
		return Update{}, false
	}
	u.Title = firstNonEmpty(rec.title, "User report")
	u.Emoji = firstNonEmpty(rec.glyph, GlyphReport)
	u.Severity = rec.severity
	u.Raw = rec.props
	return u, true
}

type quakeRecord struct {
	at        Coord
	place     string
	magnitude *float64
	epochMS   *float64
	updated   string
	updatedMS *float64
	url       string
	props     Properties
}

func parseQuake(f Feature) (quakeRecord, bool) {
	if f.Geometry == nil || f.Geometry.Type != GeometryPoint || f.Geometry.Point == nil {
		return quakeRecord{}, false
	}
	p := f.Properties
	rec := quakeRecord{
		at:      *f.Geometry.Point,
		place:   p.String("place", "title"),
		updated: p.String("updated"),
		url:     p.String("url", "detail"),
		props:   p,
	}
	if mag, ok := p.Number("mag", "Magnitude", "m"); ok {
		rec.magnitude = &mag
	}
	if ms, ok := numberField(p, "time"); ok {
		rec.epochMS = &ms
	}
	if ms, ok := numberField(p, "updated"); ok {
		rec.updatedMS = &ms
	}
	return rec, true
}

// NormalizeQuake maps a USGS feature onto an Update. Time comes from the epoch
// millisecond "time" property, then "updated", then now.
func NormalizeQuake(f Feature, now time.Time) (Update, bool) {
	rec, ok := parseQuake(f)
	if !ok {
		return Update{}, false
	}

	t := now
	switch {
	case rec.epochMS != nil:
		if parsed, ok := FromEpochMillis(*rec.epochMS); ok {
			t = parsed
		}
	case rec.updated != "":
		t = timestampOr(rec.updated, now)
	case rec.updatedMS != nil:
		if parsed, ok := FromEpochMillis(*rec.updatedMS); ok {
			t = parsed
		}
	}

	u, ok := NewUpdate(KindQuake, rec.at.Lat, rec.at.Lon, t)
	if !ok {
		return Update{}, false
	}
	u.Title = firstNonEmpty(rec.place, "Earthquake")
	u.Emoji = GlyphQuake
	if rec.magnitude != nil {
		u.Severity = "M" + strconv.FormatFloat(*rec.magnitude, 'f', -1, 64)
	}
	u.SourceURL = rec.url
	u.Raw = rec.props
	return u, true
}

type alertRecord struct {
	at       Coord
	event    string
	severity string
	issued   []string // effective, onset, sent
	id       string
	props    Properties
}

func parseAlert(f Feature) (alertRecord, bool) {
	at, ok := f.Geometry.Representative()
	if !ok {
		return alertRecord{}, false
	}
	p := f.Properties
	return alertRecord{
		at:       at,
		event:    p.String("event"),
		severity: p.String("severity"),
		issued:   []string{p.String("effective"), p.String("onset"), p.String("sent")},
		id:       p.String("@id", "id"),
		props:    p,
	}, true
}

// NormalizeAlerts maps an NWS alert collection onto Updates. Polygon alerts
// are placed at their centroid; alerts with neither a Polygon nor a Point are
// skipped.
func NormalizeAlerts(fc FeatureCollection, now time.Time) []Update {
	out := make([]Update, 0, len(fc.Features))
	for _, f := range fc.Features {
		rec, ok := parseAlert(f)
		if !ok {
			continue
		}

		t := now
		for _, s := range rec.issued {
			if parsed, ok := ParseTimestamp(s); ok {
				t = parsed
				break
			}
		}

		u, ok := NewUpdate(KindAlert, rec.at.Lat, rec.at.Lon, t)
		if !ok {
			continue
		}
		u.Title = firstNonEmpty(rec.event, "NWS Alert")
		u.Emoji = GlyphAlert
		u.Severity = firstNonEmpty(rec.severity, "Unknown")
		u.SourceURL = rec.id
		u.Raw = rec.props
		out = append(out, u)
	}
	return out
}

type eventRecord struct {
	at       Coord
	title    string
	category string
	when     string
	url      string
	severity string
	props    Properties
}

func parseEvent(f Feature) (eventRecord, bool) {
	if f.Geometry == nil || f.Geometry.Type != GeometryPoint || f.Geometry.Point == nil {
		return eventRecord{}, false
	}
	p := f.Properties
	rec := eventRecord{
		at:       *f.Geometry.Point,
		category: p.String("category"),
		when:     p.String("time", "updated", "date"),
		url:      p.String("link", "url"),
		props:    p,
	}
	if rec.category == "" {
		rec.category = firstCategoryTitle(p["categories"])
	}
	rec.title = firstNonEmpty(p.String("title"), rec.category, "Event")
	if v := p.Text("magnitudeValue"); v != "" {
		rec.severity = v
		if unit := p.String("magnitudeUnit"); unit != "" {
			rec.severity += " " + unit
		}
	}
	return rec, true
}

// NormalizeEvent maps an EONET feature onto an Update, choosing the glyph by
// category keyword.
func NormalizeEvent(f Feature, now time.Time) (Update, bool) {
	rec, ok := parseEvent(f)
	if !ok {
		return Update{}, false
	}
	u, ok := NewUpdate(KindEvent, rec.at.Lat, rec.at.Lon, timestampOr(rec.when, now))
	if !ok {
		return Update{}, false
	}
	u.Title = rec.title
	u.Emoji = EventGlyph(rec.category)
	u.Severity = rec.severity
	u.SourceURL = rec.url
	u.Raw = rec.props
	return u, true
}

type hotspotRecord struct {
	at       Coord
	severity string
	datetime string
	date     string
	hhmm     string
	props    Properties
}

func parseHotspot(f Feature) (hotspotRecord, bool) {
	if f.Geometry == nil || f.Geometry.Type != GeometryPoint || f.Geometry.Point == nil {
		return hotspotRecord{}, false
	}
	p := f.Properties
	return hotspotRecord{
		at:       *f.Geometry.Point,
		severity: p.Text("confidence", "brightness", "frp"),
		datetime: p.String("acq_datetime"),
		date:     p.String("acq_date"),
		hhmm:     p.Text("acq_time"),
		props:    p,
	}, true
}

// NormalizeHotspot maps a FIRMS detection onto an Update.
func NormalizeHotspot(f Feature, now time.Time) (Update, bool) {
	rec, ok := parseHotspot(f)
	if !ok {
		return Update{}, false
	}

	t := now
	if parsed, ok := ParseTimestamp(rec.datetime); ok {
		t = parsed
	} else if parsed, ok := combineDateHHMM(rec.date, rec.hhmm); ok {
		t = parsed
	}

	u, ok := NewUpdate(KindHotspot, rec.at.Lat, rec.at.Lon, t)
	if !ok {
		return Update{}, false
	}
	u.Title = "Fire hotspot"
	u.Emoji = GlyphHotspot
	u.Severity = rec.severity
	u.Raw = rec.props
	return u, true
}

// numberField reads a property only when it is a JSON number, not a string.
func numberField(p Properties, key string) (float64, bool) {
	switch p[key].(type) {
	case float64, int, int64:
		return p.Number(key)
	default:
		return 0, false
	}
}

func firstCategoryTitle(v any) string {
	list, ok := v.([]any)
	if !ok || len(list) == 0 {
		return ""
	}
	first, ok := list[0].(map[string]any)
	if !ok {
		return ""
	}
	return Properties(first).String("title")
}

func timestampOr(s string, fallback time.Time) time.Time {
	if t, ok := ParseTimestamp(s); ok {
		return t
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
