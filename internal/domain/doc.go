// Package domain models live hazard signals and the unified update feed built
// from them.
//
// # Data Sources
//
// Four upstream feeds are merged with user-submitted reports:
//
//	quake        USGS earthquake summary feed (GeoJSON Points).
//	nws-alert    NWS active alerts (GeoJSON, Polygon or Point geometry).
//	eonet-event  NASA EONET open natural events (GeoJSON Points, category tagged).
//	fire-hotspot NASA FIRMS VIIRS detections (CSV rows converted to Points).
//	report       User reports read back from the report store.
//
// Every source is decoded into a [FeatureCollection] first. Geometry is
// validated when it is decoded: a Point must carry two finite numbers inside
// WGS-84 bounds, a Polygon must carry at least one valid vertex in its outer
// ring. Anything else decodes to a geometry with no usable shape and the
// normalizer for that source drops the feature.
//
// # Coordinates
//
// GeoJSON positions are [lon, lat]. [Coord] keeps them named to avoid the
// usual swap bugs. NWS polygons are reduced to the arithmetic mean of their
// distinct outer ring vertices; the closing vertex that repeats the first is
// skipped so a square ring lands on its true center.
//
// # Time
//
// Upstream timestamps arrive as epoch milliseconds (USGS), RFC 3339 with
// arbitrary offsets (NWS, EONET), or split date and HHMM columns (FIRMS).
// All of them are parsed into UTC instants by [ParseTimestamp] before they are
// compared. A source record without a usable timestamp is stamped with the
// query instant instead of being dropped, so it sorts as "just now".
//
// # Distance
//
// Distances use the haversine formula on a sphere of radius 6371 km. The HTTP
// boundary accepts miles and converts with [KmPerMile].
package domain
