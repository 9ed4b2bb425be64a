// Package classify assigns report text to the report taxonomy by keyword.
package classify

import (
	"context"
	"strings"
	"unicode"

	"github.com/couchcryptid/pulse-feed-service/internal/domain"
)

// Confidence levels.
const (
	ConfidenceStrong = 0.9 // two or more keywords of the winning category
	ConfidenceWeak   = 0.6 // one keyword
)

type rule struct {
	category string
	label    string
	keywords []string
}

// rules are listed in taxonomy order; ties on hit count go to the earlier rule.
var rules = []rule{
	{domain.CategoryGunshot, "Gunshots reported", []string{"gunshot", "gunshots", "gunfire", "shots", "shots fired", "shooting", "shooter", "gun"}},
	{domain.CategoryRobbery, "Robbery reported", []string{"robbery", "robbed", "mugged", "mugging", "stole", "stolen", "theft", "burglary", "break in", "broke into"}},
	{domain.CategorySexOffender, "Sexual misconduct reported", []string{"sex offender", "groped", "indecent", "flasher", "predator", "harassed", "harassment", "sexual"}},
	{domain.CategorySuspicious, "Suspicious activity", []string{"suspicious", "prowler", "loitering", "lurking", "trespassing", "casing"}},
	{domain.CategoryMissingPerson, "Missing person", []string{"missing person", "missing child", "lost child", "runaway", "have you seen", "missing"}},
	{domain.CategoryLostItem, "Lost item", []string{"lost", "wallet", "keys", "phone", "purse", "backpack", "dropped"}},
	{domain.CategoryMedical, "Medical emergency", []string{"ambulance", "medical", "collapsed", "unconscious", "heart attack", "injured", "bleeding", "overdose", "seizure", "not breathing"}},
	{domain.CategoryCarAccident, "Car accident", []string{"crash", "accident", "collision", "wreck", "hit and run", "rear ended", "fender bender"}},
	{domain.CategoryFlood, "Flooded road", []string{"flood", "flooded", "flooding", "high water", "submerged", "underwater"}},
	{domain.CategoryBlocked, "Road blocked", []string{"blocked", "blocking", "closed", "closure", "tree down", "debris", "detour", "traffic jam"}},
	{domain.CategoryConstruction, "Road construction", []string{"construction", "roadwork", "road work", "work zone", "paving", "crane"}},
	{domain.CategoryHelpGeneral, "Help needed", []string{"help", "assistance", "sos", "stuck", "volunteer"}},
	{domain.CategoryHelpRide, "Ride needed", []string{"ride", "lift", "carpool", "stranded"}},
}

var severities = map[string]string{
	domain.CategoryGunshot:     "high",
	domain.CategoryMedical:     "high",
	domain.CategoryCarAccident: "medium",
	domain.CategoryFlood:       "medium",
	domain.CategoryRobbery:     "medium",
}

// Keyword implements domain.Classifier without any external model.
type Keyword struct{}

// NewKeyword creates a keyword classifier.
func NewKeyword() *Keyword {
	return &Keyword{}
}

// Classify picks the category with the most keyword hits in text.
func (k *Keyword) Classify(ctx context.Context, text string) (domain.Classification, error) {
	if err := ctx.Err(); err != nil {
		return domain.Classification{}, err
	}

	padded := " " + strings.Join(tokens(text), " ") + " "

	best, bestHits := -1, 0
	for i, r := range rules {
		hits := 0
		for _, kw := range r.keywords {
			if strings.Contains(padded, " "+kw+" ") {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = i, hits
		}
	}
	if best < 0 {
		return domain.UnknownClassification(), nil
	}

	r := rules[best]
	c := domain.Classification{
		Category:   r.category,
		Label:      r.label,
		Severity:   severityOf(r.category),
		Confidence: ConfidenceWeak,
	}
	if bestHits > 1 {
		c.Confidence = ConfidenceStrong
	}
	return c, nil
}

func severityOf(category string) string {
	if s, ok := severities[category]; ok {
		return s
	}
	return "low"
}

// tokens folds text and splits it into words.
func tokens(text string) []string {
	return strings.FieldsFunc(domain.FoldText(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
