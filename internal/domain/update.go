package domain

import (
	"encoding/json"
	"time"
)

// Kind tags which normalizer produced an Update.
type Kind string

const (
	KindReport  Kind = "report"
	KindQuake   Kind = "quake"
	KindAlert   Kind = "nws-alert"
	KindEvent   Kind = "eonet-event"
	KindHotspot Kind = "fire-hotspot"
)

// Kinds lists every kind in a stable order.
var Kinds = []Kind{KindReport, KindQuake, KindAlert, KindEvent, KindHotspot}

// Valid reports whether k is one of the defined kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindReport, KindQuake, KindAlert, KindEvent, KindHotspot:
		return true
	default:
		return false
	}
}

// Update is the normalized record shared by every source. Its kind is fixed
// at construction; the remaining fields are plain data.
type Update struct {
	kind Kind

	Title     string
	Emoji     string
	Time      time.Time // UTC
	Lat       float64
	Lon       float64
	Severity  string // empty when the source has none
	SourceURL string // empty when the source has none
	Raw       Properties
}

// NewUpdate builds an Update. It returns false when the kind is unknown or the
// coordinates are not finite WGS-84 values, so no partially valid record exists.
func NewUpdate(kind Kind, lat, lon float64, t time.Time) (Update, bool) {
	if !kind.Valid() || !ValidCoordinate(lat, lon) {
		return Update{}, false
	}
	return Update{kind: kind, Lat: lat, Lon: lon, Time: t.UTC()}, true
}

// Kind returns the source kind the update was built from.
func (u Update) Kind() Kind {
	return u.kind
}

type updateJSON struct {
	Kind      Kind       `json:"kind"`
	Title     string     `json:"title"`
	Emoji     string     `json:"emoji"`
	Time      string     `json:"time"`
	Lat       float64    `json:"lat"`
	Lon       float64    `json:"lon"`
	Severity  *string    `json:"severity"`
	SourceURL *string    `json:"sourceUrl"`
	Raw       Properties `json:"raw"`
}

// MarshalJSON renders the wire shape. Time is RFC 3339 in UTC; empty severity
// and sourceUrl render as null.
func (u Update) MarshalJSON() ([]byte, error) {
	raw := u.Raw
	if raw == nil {
		raw = Properties{}
	}
	return json.Marshal(updateJSON{
		Kind:      u.kind,
		Title:     u.Title,
		Emoji:     u.Emoji,
		Time:      u.Time.UTC().Format(time.RFC3339),
		Lat:       u.Lat,
		Lon:       u.Lon,
		Severity:  optional(u.Severity),
		SourceURL: optional(u.SourceURL),
		Raw:       raw,
	})
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
