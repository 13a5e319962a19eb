package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/noc-kpi-engine/internal/config"
	"github.com/couchcryptid/noc-kpi-engine/internal/domain"
)

// Writer produces major alarm messages to a Kafka topic.
// It implements pipeline.AlarmLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured alarm topic. Messages
// are partitioned by key hash so each sector's alarms stay ordered.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaAlarmTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch serializes and publishes multiple alarms to the alarm topic in a
// single WriteMessages call.
func (w *Writer) LoadBatch(ctx context.Context, alarms []domain.ClassifiedRow) error {
	if len(alarms) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(alarms))
	for i := range alarms {
		msg, err := serializeToMessage(alarms[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write alarms: %w", err)
	}
	w.logger.Debug("alarms written", "topic", w.writer.Topic, "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an alarm row into a Kafka message keyed by
// sector, so all alarms for one sector land on the same partition.
func serializeToMessage(alarm domain.ClassifiedRow) (kafkago.Message, error) {
	data, err := json.Marshal(alarm)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize alarm: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(alarm.Site + "|" + alarm.Sector),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "status", Value: []byte(alarm.Status)},
			{Key: "date", Value: []byte(alarm.Date.String())},
			{Key: "consecutive", Value: []byte(strconv.Itoa(alarm.Consecutive))},
		},
	}, nil
}
