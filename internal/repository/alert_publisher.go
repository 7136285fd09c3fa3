package repository

import (
	"context"

	"TapeWatch/internal/domain/models"
	"TapeWatch/internal/domain/repository"
	pkgkafka "TapeWatch/pkg/kafka"
)

// KafkaAlertSink implements AlertSink over a Kafka topic. Keys by security
// code so one security's alerts stay ordered on a partition.
type KafkaAlertSink struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaAlertSink creates a Kafka-backed alert sink.
func NewKafkaAlertSink(producer *pkgkafka.Producer, topic string) repository.AlertSink {
	return &KafkaAlertSink{producer: producer, topic: topic}
}

func (s *KafkaAlertSink) Publish(ctx context.Context, a *models.Alert) error {
	return s.producer.Publish(ctx, s.topic, []byte(a.Code), map[string]interface{}{
		"code":        a.Code,
		"name":        a.Name,
		"detector":    a.Detector,
		"direction":   a.Direction.String(),
		"t":           a.Time.Unix(),
		"description": a.Description,
		"run_count":   a.RunCount,
		"qualifying":  a.QualifyingCount,
		"turnover":    a.Turnover,
		"mv_pct":      a.MarketValuePct,
		"window_pct":  a.WindowPct,
	})
}

func (s *KafkaAlertSink) Close() error {
	if s.producer != nil {
		return s.producer.Close()
	}
	return nil
}
