//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/pulse-feed-service/internal/adapter/kafka"
	"github.com/couchcryptid/pulse-feed-service/internal/domain"
)

const testReportTopic = "test-user-reports"

// TestReportPublisher verifies a published report arrives keyed by id with
// its headers and GeoJSON body intact.
func TestReportPublisher(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testReportTopic)

	publisher := kafka.NewReportPublisher([]string{broker}, testReportTopic, discardLogger())
	t.Cleanup(func() { _ = publisher.Close() })

	at := time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)
	report := domain.NewPointFeature(30.2672, -97.7431, domain.ReportProperties("17", "shots fired", at, domain.Properties{
		"category": domain.CategoryGunshot,
	}))
	require.NoError(t, publisher.PublishReport(ctx, report))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testReportTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
	defer readCancel()
	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from report topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "17", string(msg.Key))
	assert.Equal(t, "report", headers[kafka.HeaderKind])
	assert.Equal(t, "2024-04-26T15:10:00Z", headers[kafka.HeaderReportedAt])

	var got domain.Feature
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	require.NotNil(t, got.Geometry)
	require.NotNil(t, got.Geometry.Point)
	assert.InDelta(t, 30.2672, got.Geometry.Point.Lat, 1e-9)
	assert.Equal(t, domain.CategoryGunshot, got.Properties["category"])
}
