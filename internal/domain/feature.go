package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Geometry type tags as they appear on the wire.
const (
	GeometryPoint   = "Point"
	GeometryPolygon = "Polygon"
)

// Coord is a single WGS-84 position. GeoJSON orders it [lon, lat].
type Coord struct {
	Lon float64
	Lat float64
}

// Geometry is a decoded GeoJSON geometry. Exactly one of Point or Ring is set
// when the geometry is usable; both are empty when the coordinates failed
// validation or the type is not supported.
type Geometry struct {
	Type  string
	Point *Coord
	Ring  []Coord // outer ring of a Polygon

	raw json.RawMessage
}

type geometryJSON struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// PointGeometry builds a Point geometry.
func PointGeometry(lat, lon float64) *Geometry {
	return &Geometry{Type: GeometryPoint, Point: &Coord{Lon: lon, Lat: lat}}
}

// UnmarshalJSON decodes and validates coordinates for the supported types.
// Invalid coordinates do not fail decoding; they leave the shape empty.
func (g *Geometry) UnmarshalJSON(data []byte) error {
	var wire geometryJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("decode geometry: %w", err)
	}
	*g = Geometry{Type: wire.Type, raw: wire.Coordinates}

	switch wire.Type {
	case GeometryPoint:
		var pos []float64
		if json.Unmarshal(wire.Coordinates, &pos) != nil {
			return nil
		}
		if c, ok := coordFromPosition(pos); ok {
			g.Point = &c
		}
	case GeometryPolygon:
		var rings [][][]float64
		if json.Unmarshal(wire.Coordinates, &rings) != nil || len(rings) == 0 {
			return nil
		}
		for _, pos := range rings[0] {
			if c, ok := coordFromPosition(pos); ok {
				g.Ring = append(g.Ring, c)
			}
		}
	}
	return nil
}

// MarshalJSON writes Points and Polygons from their decoded shape and passes
// any other geometry through unchanged.
func (g Geometry) MarshalJSON() ([]byte, error) {
	wire := geometryJSON{Type: g.Type, Coordinates: g.raw}
	switch {
	case g.Point != nil:
		coords, err := json.Marshal([]float64{g.Point.Lon, g.Point.Lat})
		if err != nil {
			return nil, err
		}
		wire.Coordinates = coords
	case len(g.Ring) > 0:
		ring := make([][]float64, len(g.Ring))
		for i, c := range g.Ring {
			ring[i] = []float64{c.Lon, c.Lat}
		}
		coords, err := json.Marshal([][][]float64{ring})
		if err != nil {
			return nil, err
		}
		wire.Coordinates = coords
	}
	if len(wire.Coordinates) == 0 {
		wire.Coordinates = json.RawMessage("null")
	}
	return json.Marshal(wire)
}

// Representative reduces the geometry to one point: a Point is itself, a
// Polygon is the arithmetic mean of its outer ring vertices. A closing vertex
// that repeats the first one is not counted twice.
func (g *Geometry) Representative() (Coord, bool) {
	if g == nil {
		return Coord{}, false
	}
	if g.Point != nil {
		return *g.Point, true
	}
	if g.Type == GeometryPolygon && len(g.Ring) > 0 {
		ring := g.Ring
		if len(ring) > 1 && ring[0] == ring[len(ring)-1] {
			ring = ring[:len(ring)-1]
		}
		var sumLat, sumLon float64
		for _, c := range ring {
			sumLat += c.Lat
			sumLon += c.Lon
		}
		n := float64(len(ring))
		return Coord{Lat: sumLat / n, Lon: sumLon / n}, true
	}
	return Coord{}, false
}

func coordFromPosition(pos []float64) (Coord, bool) {
	if len(pos) < 2 {
		return Coord{}, false
	}
	c := Coord{Lon: pos[0], Lat: pos[1]}
	if !ValidCoordinate(c.Lat, c.Lon) {
		return Coord{}, false
	}
	return c, true
}

// Properties is the loosely typed property bag of a feature.
type Properties map[string]any

// String returns the first key holding a non-blank string, trimmed.
func (p Properties) String(keys ...string) string {
	for _, k := range keys {
		if s, ok := p[k].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

// Number returns the first key holding a finite number. Numeric strings count.
func (p Properties) Number(keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := toFloat(p[k]); ok {
			return v, true
		}
	}
	return 0, false
}

// Text returns the first present, non-blank value rendered as text. Numbers
// are formatted without trailing zeros.
func (p Properties) Text(keys ...string) string {
	for _, k := range keys {
		switch v := p[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				return strconv.FormatFloat(v, 'f', -1, 64)
			}
		case json.Number:
			return v.String()
		case int:
			return strconv.Itoa(v)
		case int64:
			return strconv.FormatInt(v, 10)
		case bool:
			return strconv.FormatBool(v)
		}
	}
	return ""
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Feature pairs a geometry with its property bag.
type Feature struct {
	Type       string     `json:"type"`
	Geometry   *Geometry  `json:"geometry"`
	Properties Properties `json:"properties"`
}

// NewPointFeature builds a Point feature with the given properties.
func NewPointFeature(lat, lon float64, props Properties) Feature {
	if props == nil {
		props = Properties{}
	}
	return Feature{Type: "Feature", Geometry: PointGeometry(lat, lon), Properties: props}
}

// FeatureCollection is an ordered list of features from one source.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
	Note     string    `json:"_note,omitempty"`
}

// NewFeatureCollection wraps features, never producing a nil slice on the wire.
func NewFeatureCollection(features []Feature) FeatureCollection {
	if features == nil {
		features = []Feature{}
	}
	return FeatureCollection{Type: "FeatureCollection", Features: features}
}
