package kafka

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"cloud.google.com/go/civil"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/noc-kpi-engine/internal/config"
	"github.com/couchcryptid/noc-kpi-engine/internal/domain"
)

func testAlarm() domain.ClassifiedRow {
	return domain.ClassifiedRow{
		MetricRow: domain.MetricRow{
			Date:         civil.Date{Year: 2025, Month: 1, Day: 5},
			Site:         "SITE_A",
			Sector:       "2",
			Band:         "L1800",
			PRB:          90,
			Availability: 99.5,
		},
		Status:        domain.StatusCongested,
		CongestedFlag: true,
		Consecutive:   5,
	}
}

func TestSerializeToMessage(t *testing.T) {
	msg, err := serializeToMessage(testAlarm())
	require.NoError(t, err)

	assert.Equal(t, []byte("SITE_A|2"), msg.Key)

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, "SITE_A", body["site"])
	assert.Equal(t, "2025-01-05", body["date"])
	assert.Equal(t, "Congested", body["status"])
	assert.InDelta(t, 5, body["consecutive"], 0)
	assert.NotContains(t, body, "lat")

	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "status", msg.Headers[0].Key)
	assert.Equal(t, []byte("Congested"), msg.Headers[0].Value)
	assert.Equal(t, "date", msg.Headers[1].Key)
	assert.Equal(t, []byte("2025-01-05"), msg.Headers[1].Value)
	assert.Equal(t, "consecutive", msg.Headers[2].Key)
	assert.Equal(t, []byte("5"), msg.Headers[2].Value)
}

func TestNewWriter_UsesAlarmTopic(t *testing.T) {
	cfg := &config.Config{KafkaBrokers: []string{"localhost:9092"}, KafkaAlarmTopic: "noc-major-alarms"}
	w := NewWriter(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { _ = w.Close() })

	assert.Equal(t, "noc-major-alarms", w.writer.Topic)
	assert.IsType(t, &kafkago.Hash{}, w.writer.Balancer, "alarms must be partitioned by sector key")
}

func TestNewWriter_SameSectorSamePartition(t *testing.T) {
	cfg := &config.Config{KafkaBrokers: []string{"localhost:9092"}, KafkaAlarmTopic: "noc-major-alarms"}
	w := NewWriter(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { _ = w.Close() })

	partitions := []int{0, 1, 2, 3, 4, 5}
	first, err := serializeToMessage(testAlarm())
	require.NoError(t, err)

	later := testAlarm()
	later.Date = civil.Date{Year: 2025, Month: 1, Day: 6}
	later.PRB = 97
	later.Consecutive = 6
	second, err := serializeToMessage(later)
	require.NoError(t, err)

	assert.Equal(t,
		w.writer.Balancer.Balance(first, partitions...),
		w.writer.Balancer.Balance(second, partitions...),
	)
}

func TestLoadBatch_EmptyIsNoop(t *testing.T) {
	cfg := &config.Config{KafkaBrokers: []string{"localhost:1"}, KafkaAlarmTopic: "noc-major-alarms"}
	w := NewWriter(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { _ = w.Close() })

	require.NoError(t, w.LoadBatch(context.Background(), nil))
}
