package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaLogChannel publishes workflow events to a Kafka topic so other
// systems can follow the review log.
type KafkaLogChannel struct {
	client *kgo.Client
	topic  string
	log    *slog.Logger
}

// NewKafkaLogChannel connects a producer to the given brokers and topic.
func NewKafkaLogChannel(brokers []string, topic string, log *slog.Logger) (*KafkaLogChannel, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers not configured")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.RecordRetries(3),
		kgo.ProducerLinger(5*time.Millisecond),
		kgo.RecordDeliveryTimeout(30*time.Second),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	return &KafkaLogChannel{client: client, topic: topic, log: log}, nil
}

// Post publishes the event keyed by requester so per-requester ordering holds.
func (c *KafkaLogChannel) Post(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode log event: %w", err)
	}

	record := &kgo.Record{
		Topic: c.topic,
		Key:   []byte(event.RequesterID),
		Value: value,
	}

	results := c.client.ProduceSync(ctx, record)
	if err := results.FirstErr(); err != nil {
		return fmt.Errorf("produce log event: %w", err)
	}
	return nil
}

// Healthy reports whether the brokers are reachable.
func (c *KafkaLogChannel) Healthy(ctx context.Context) bool {
	return c.client.Ping(ctx) == nil
}

// Close flushes buffered events and shuts down the producer.
func (c *KafkaLogChannel) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.client.Flush(ctx); err != nil {
		c.log.Warn("kafka log channel closed with unflushed events", "error", err)
	}
	c.client.Close()
	return nil
}
