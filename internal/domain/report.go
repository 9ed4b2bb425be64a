package domain

import (
	"context"
	"time"
)

// Classification is the classifier's reading of a report's free text.
type Classification struct {
	Category    string
	Label       string
	Description string // optional
	Severity    string // optional
	Confidence  float64
}

// Classifier assigns a taxonomy category to report text.
type Classifier interface {
	Classify(ctx context.Context, text string) (Classification, error)
}

// UnknownClassification is used when text matches nothing or the classifier fails.
func UnknownClassification() Classification {
	return Classification{
		Category:   CategoryUnknown,
		Label:      "Report",
		Severity:   "low",
		Confidence: 0.2,
	}
}

// NearQuery selects stored reports around a point. MaxAge <= 0 means no age cut.
type NearQuery struct {
	Lat      float64
	Lon      float64
	RadiusKm float64
	Limit    int
	MaxAge   time.Duration
}

// ClearResult reports the outcome of deleting every stored report.
type ClearResult struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// ReportStore persists user reports as point features.
type ReportStore interface {
	// Add inserts a report and returns it as a feature carrying its new id.
	Add(ctx context.Context, lat, lon float64, text string, props Properties) (Feature, error)

	// FindNear returns reports within the radius, nearest first.
	FindNear(ctx context.Context, q NearQuery) ([]Feature, error)

	// All returns every report, newest first.
	All(ctx context.Context) ([]Feature, error)

	// Clear deletes every report.
	Clear(ctx context.Context) (ClearResult, error)
}

// Report property keys shared by the store, the submission path and the
// report normalizer.
const (
	PropType       = "type"
	PropText       = "text"
	PropTitle      = "title"
	PropReportedAt = "reported_at"
	PropID         = "id"
	PropRID        = "rid"

	ReportFeatureType = "user_report"
)

// ReportProperties builds the base property bag of a stored report and
// overlays the caller's properties on it. id fields are filled only when the
// caller did not set them.
func ReportProperties(id, text string, reportedAt time.Time, extra Properties) Properties {
	props := Properties{
		PropType:       ReportFeatureType,
		PropText:       text,
		PropReportedAt: reportedAt.UTC().Format(time.RFC3339),
	}
	for k, v := range extra {
		props[k] = v
	}
	if _, ok := props[PropRID]; !ok {
		props[PropRID] = id
	}
	if _, ok := props[PropID]; !ok {
		props[PropID] = id
	}
	return props
}
