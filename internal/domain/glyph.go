package domain

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Fixed glyphs per source kind.
const (
	GlyphReport  = "📝"
	GlyphQuake   = "💥"
	GlyphAlert   = "⚠️"
	GlyphHotspot = "🔥"
)

// eventGlyphRules is matched in order against the folded EONET category.
var eventGlyphRules = []struct {
	keywords []string
	glyph    string
}{
	{[]string{"wildfire"}, "🔥"},
	{[]string{"volcano"}, "🌋"},
	{[]string{"earthquake", "seismic"}, "💥"},
	{[]string{"storm", "cyclone", "hurricane", "typhoon"}, "🌀"},
	{[]string{"flood"}, "🌊"},
	{[]string{"landslide"}, "🏔️"},
	{[]string{"ice", "snow", "blizzard"}, "❄️"},
	{[]string{"dust", "smoke", "haze"}, "🌫️"},
}

// EventGlyph picks the glyph for an EONET category string. Unmatched
// categories get the generic warning glyph.
func EventGlyph(category string) string {
	folded := FoldText(category)
	for _, rule := range eventGlyphRules {
		for _, kw := range rule.keywords {
			if strings.Contains(folded, kw) {
				return rule.glyph
			}
		}
	}
	return GlyphAlert
}

// FoldText normalizes text for keyword matching: NFKC compatibility
// composition, then lower case.
func FoldText(s string) string {
	return strings.ToLower(norm.NFKC.String(s))
}

// Report taxonomy categories.
const (
	CategoryGunshot       = "crime.gunshot"
	CategoryRobbery       = "crime.robbery"
	CategorySexOffender   = "crime.sex_offender"
	CategorySuspicious    = "crime.suspicious"
	CategoryMissingPerson = "incident.missing_person"
	CategoryLostItem      = "incident.lost_item"
	CategoryMedical       = "incident.medical"
	CategoryCarAccident   = "incident.car_accident"
	CategoryFlood         = "road.flood"
	CategoryBlocked       = "road.blocked"
	CategoryConstruction  = "road.construction"
	CategoryHelpGeneral   = "help.general"
	CategoryHelpRide      = "help.ride"
	CategoryUnknown       = "other.unknown"
)

type categoryPresentation struct {
	glyph string
	icon  string // map marker icon id used by the web client
}

var categoryPresentations = map[string]categoryPresentation{
	CategoryGunshot:       {"🔫", "3d-gun"},
	CategoryRobbery:       {"🦹", "3d-robbery"},
	CategorySexOffender:   {"🛡️", "3d-sex"},
	CategorySuspicious:    {"👀", "3d-alert"},
	CategoryMissingPerson: {"🧍", "3d-user_search"},
	CategoryLostItem:      {"🔎", "3d-search"},
	CategoryMedical:       {"🚑", "3d-ambulance"},
	CategoryCarAccident:   {"🚗", "3d-car"},
	CategoryFlood:         {"🌊", "3d-flood"},
	CategoryBlocked:       {"🚧", "3d-traffic"},
	CategoryConstruction:  {"🏗️", "3d-construction"},
	CategoryHelpGeneral:   {"🆘", "3d-help"},
	CategoryHelpRide:      {"🚙", "3d-ride"},
	CategoryUnknown:       {"ℹ️", "3d-info"},
}

// CategoryGlyph returns the glyph for a report category, falling back to the
// plain report glyph for categories outside the taxonomy.
func CategoryGlyph(category string) string {
	if p, ok := categoryPresentations[category]; ok {
		return p.glyph
	}
	return GlyphReport
}

// CategoryIcon returns the marker icon id for a report category.
func CategoryIcon(category string) string {
	if p, ok := categoryPresentations[category]; ok {
		return p.icon
	}
	return categoryPresentations[CategoryUnknown].icon
}

// KnownCategory reports whether category belongs to the report taxonomy.
func KnownCategory(category string) bool {
	_, ok := categoryPresentations[category]
	return ok
}
