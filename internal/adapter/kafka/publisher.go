// Package kafka publishes stored user reports to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/pulse-feed-service/internal/domain"
)

// Message header keys.
const (
	HeaderKind       = "kind"
	HeaderReportedAt = "reported_at"
)

// ReportPublisher produces one message per stored report.
// It implements reports.Publisher.
type ReportPublisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewReportPublisher creates a producer for the report topic.
func NewReportPublisher(brokers []string, topic string, logger *slog.Logger) *ReportPublisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &ReportPublisher{writer: w, logger: logger}
}

// PublishReport writes the report feature as GeoJSON, keyed by report id.
func (p *ReportPublisher) PublishReport(ctx context.Context, report domain.Feature) error {
	msg, err := reportMessage(report)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish report %s: %w", string(msg.Key), err)
	}
	p.logger.Debug("report published", "id", string(msg.Key), "topic", p.writer.Topic)
	return nil
}

// Close flushes pending writes and releases the writer.
func (p *ReportPublisher) Close() error {
	return p.writer.Close()
}

func reportMessage(report domain.Feature) (kafkago.Message, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize report: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(report.Properties.String(domain.PropID, domain.PropRID)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: HeaderKind, Value: []byte(domain.KindReport)},
			{Key: HeaderReportedAt, Value: []byte(report.Properties.String(domain.PropReportedAt))},
		},
	}, nil
}
