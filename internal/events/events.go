// Package events publishes cart lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

type Publisher interface {
	Publish(ctx context.Context, event, key string, payload map[string]any) error
	Close() error
}

// Envelope is the JSON body of every message.
type Envelope struct {
	EventID    string         `json:"event_id"`
	Type       string         `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload"`
}

func NewEnvelope(event string, payload map[string]any) Envelope {
	return Envelope{
		EventID:    uuid.NewString(),
		Type:       event,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

type KafkaPublisher struct {
	writer *kafka.Writer
}

// New returns a Kafka publisher, or a no-op one when brokersCSV is empty.
func New(brokersCSV, topic string) Publisher {
	brokers := ParseBrokers(brokersCSV)
	if len(brokers) == 0 {
		return Nop{}
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func ParseBrokers(csv string) []string {
	brokers := []string{}
	for _, b := range strings.Split(csv, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// Publish keys messages by company so one company's events stay ordered.
func (p *KafkaPublisher) Publish(ctx context.Context, event, key string, payload map[string]any) error {
	data, err := json.Marshal(NewEnvelope(event, payload))
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  time.Now().UTC(),
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event)},
		},
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

type Nop struct{}

func (Nop) Publish(context.Context, string, string, map[string]any) error { return nil }
func (Nop) Close() error                                                  { return nil }
