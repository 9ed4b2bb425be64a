// Package reports implements the user report submission path.
package reports

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/pulse-feed-service/internal/domain"
	"github.com/couchcryptid/pulse-feed-service/internal/observability"
)

// DefaultText stands in for a report submitted without text.
const DefaultText = "User report"

// ErrInvalidReport wraps submission validation failures.
var ErrInvalidReport = errors.New("invalid report")

// Submission is a report as received from a client.
type Submission struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Text     string  `json:"text"`
	PhotoURL string  `json:"photo_url,omitempty"`
}

// Writer stores reports.
type Writer interface {
	Add(ctx context.Context, lat, lon float64, text string, props domain.Properties) (domain.Feature, error)
}

// Publisher announces stored reports to downstream consumers.
type Publisher interface {
	PublishReport(ctx context.Context, report domain.Feature) error
}

// Service classifies, enriches, stores and publishes reports. The geocoder
// and publisher are optional.
type Service struct {
	store      Writer
	classifier domain.Classifier
	geocoder   domain.ReverseGeocoder
	publisher  Publisher
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewService creates a Service. Pass nil geocoder or publisher to disable them.
func NewService(store Writer, classifier domain.Classifier, geocoder domain.ReverseGeocoder, publisher Publisher, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		store:      store,
		classifier: classifier,
		geocoder:   geocoder,
		publisher:  publisher,
		logger:     logger,
		metrics:    metrics,
	}
}

// Submit stores a report and returns the stored feature. Classification,
// geocoding and publishing failures degrade the report but never fail it.
func (s *Service) Submit(ctx context.Context, sub Submission) (domain.Feature, error) {
	if !domain.ValidCoordinate(sub.Lat, sub.Lon) {
		return domain.Feature{}, fmt.Errorf("%w: lat/lon must be finite and within [-90,90]/[-180,180]", ErrInvalidReport)
	}
	text := strings.TrimSpace(sub.Text)
	if text == "" {
		text = DefaultText
	}

	class := s.classify(ctx, text)
	props := reportProperties(class, text, strings.TrimSpace(sub.PhotoURL), domain.Now())
	props = domain.EnrichWithPlace(ctx, props, sub.Lat, sub.Lon, s.geocoder, s.logger)

	feature, err := s.store.Add(ctx, sub.Lat, sub.Lon, text, props)
	if err != nil {
		return domain.Feature{}, fmt.Errorf("store report: %w", err)
	}
	s.metrics.ReportsSubmitted.Inc()
	s.logger.Info("report submitted",
		"id", feature.Properties.String(domain.PropID),
		"category", class.Category,
		"confidence", class.Confidence,
	)

	if s.publisher != nil {
		if err := s.publisher.PublishReport(ctx, feature); err != nil {
			s.metrics.ReportPublishErrors.Inc()
			s.logger.Warn("report publish failed", "id", feature.Properties.String(domain.PropID), "error", err)
		}
	}
	return feature, nil
}

func (s *Service) classify(ctx context.Context, text string) domain.Classification {
	if s.classifier == nil {
		return domain.UnknownClassification()
	}
	class, err := s.classifier.Classify(ctx, text)
	if err != nil {
		s.logger.Warn("report classification failed", "error", err)
		return domain.UnknownClassification()
	}
	if !domain.KnownCategory(class.Category) {
		s.logger.Warn("classifier returned unknown category", "category", class.Category)
		fallback := domain.UnknownClassification()
		fallback.Description = class.Description
		return fallback
	}
	return class
}

func reportProperties(class domain.Classification, text, photoURL string, now time.Time) domain.Properties {
	props := domain.Properties{
		domain.PropTitle:      class.Label,
		domain.PropText:       firstNonEmpty(strings.TrimSpace(class.Description), text),
		"category":            class.Category,
		"emoji":               domain.CategoryGlyph(class.Category),
		"icon":                domain.CategoryIcon(class.Category),
		"confidence":          class.Confidence,
		"source":              "user",
		domain.PropReportedAt: now.UTC().Format(time.RFC3339),
	}
	if class.Severity != "" {
		props["severity"] = class.Severity
	}
	if photoURL != "" {
		props["photo_url"] = photoURL
	}
	return props
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
