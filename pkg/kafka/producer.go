package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer the producer needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer writes JSON events to Kafka and records per-topic delivery metrics.
type Producer struct {
	writer  MessageWriter
	comp    string
	metrics *producerMetrics
}

// NewProducer builds a kafka.Writer from opts. Brokers are required.
func NewProducer(reg prometheus.Registerer, opts ...ProducerOption) (*Producer, error) {
	cfg := defaultProducerConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}
	return NewProducerWithWriter(cfg.writer(), cfg.Compression, reg), nil
}

// NewProducerWithWriter wraps an existing writer. A nil reg keeps metrics unregistered.
func NewProducerWithWriter(w MessageWriter, compression string, reg prometheus.Registerer) *Producer {
	return &Producer{writer: w, comp: compression, metrics: newProducerMetrics(reg)}
}

// Publish writes one message. []byte and string values are sent raw, anything
// else is JSON encoded and tagged with a content-type header.
func (p *Producer) Publish(ctx context.Context, topic string, key []byte, value interface{}) error {
	msg := kafka.Message{Topic: topic, Key: key, Time: time.Now()}
	switch val := value.(type) {
	case []byte:
		msg.Value = val
	case string:
		msg.Value = []byte(val)
	default:
		b, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("encode %s message: %w", topic, err)
		}
		msg.Value = b
		msg.Headers = []kafka.Header{{Key: "content-type", Value: []byte("application/json")}}
	}

	start := time.Now()
	err := p.writer.WriteMessages(ctx, msg)
	p.metrics.observe(topic, p.comp, len(msg.Value), time.Since(start), err)
	return err
}

func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

func parseCompression(s string) kafka.Compression {
	switch s {
	case "none":
		return 0
	case "snappy":
		return kafka.Snappy
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	default:
		return kafka.Gzip
	}
}

type producerMetrics struct {
	messages *prometheus.CounterVec
	bytes    *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func newProducerMetrics(reg prometheus.Registerer) *producerMetrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &producerMetrics{
		messages: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ethticker_kafka_producer_messages_total",
			Help: "Messages written to Kafka by result.",
		}, []string{"topic", "compression", "result"}),
		bytes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ethticker_kafka_producer_bytes_total",
			Help: "Payload bytes written to Kafka.",
		}, []string{"topic"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ethticker_kafka_producer_write_seconds",
			Help:    "WriteMessages latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"topic"}),
	}
}

func (m *producerMetrics) observe(topic, comp string, size int, dur time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	} else {
		m.bytes.WithLabelValues(topic).Add(float64(size))
	}
	m.messages.WithLabelValues(topic, comp, result).Inc()
	m.latency.WithLabelValues(topic).Observe(dur.Seconds())
}
