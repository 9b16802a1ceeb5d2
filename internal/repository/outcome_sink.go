package repository

import (
	"context"
	"fmt"

	"EthTicker/internal/domain/models"
	applogger "EthTicker/pkg/logger"
)

// Publisher is the producer surface the Kafka sink needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaOutcomeSink writes publish outcomes to a topic keyed by group, so a
// group's outcomes stay ordered on one partition.
type KafkaOutcomeSink struct {
	producer Publisher
	topic    string
	l        *applogger.Logger
}

func NewKafkaOutcomeSink(p Publisher, topic string, l *applogger.Logger) *KafkaOutcomeSink {
	if l == nil {
		l = applogger.NewNop()
	}
	return &KafkaOutcomeSink{producer: p, topic: topic, l: l}
}

func (s *KafkaOutcomeSink) Emit(ctx context.Context, o *models.PublishOutcome) error {
	if o == nil {
		return nil
	}
	if err := s.producer.Publish(ctx, s.topic, []byte(o.Group), o); err != nil {
		s.l.Error("kafka outcome publish failed",
			applogger.String("topic", s.topic),
			applogger.String("batch_id", o.BatchID),
			applogger.String("group", o.Group),
			applogger.Error(err),
		)
		return fmt.Errorf("emit outcome %s: %w", o.BatchID, err)
	}
	return nil
}

func (s *KafkaOutcomeSink) Close() error {
	return s.producer.Close()
}

// LogOutcomeSink records outcomes in the application log only.
type LogOutcomeSink struct {
	l *applogger.Logger
}

func NewLogOutcomeSink(l *applogger.Logger) *LogOutcomeSink {
	if l == nil {
		l = applogger.NewNop()
	}
	return &LogOutcomeSink{l: l}
}

func (s *LogOutcomeSink) Emit(_ context.Context, o *models.PublishOutcome) error {
	if o == nil {
		return nil
	}
	fields := []applogger.Field{
		applogger.String("batch_id", o.BatchID),
		applogger.String("group", o.Group),
		applogger.String("status", string(o.Status)),
		applogger.Strings("artifacts", o.Artifacts),
		applogger.Bool("finalized", o.Finalized),
		applogger.Int64("bytes", o.Bytes),
		applogger.Int64("duration_ms", o.DurationMs),
	}
	if o.Error != "" {
		fields = append(fields, applogger.String("error", o.Error))
	}
	s.l.Info("publish outcome", fields...)
	return nil
}

func (s *LogOutcomeSink) Close() error { return nil }
