// Package publish forwards finished analysis reports to Kafka so downstream
// case-management systems can pick up flagged accounts and rings.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/vanshika/muletrace/internal/domain"
)

// TypeReport is the envelope type of a published analysis.
const TypeReport = "analysis.report"

// Envelope wraps every message written to the topic.
type Envelope struct {
	Type string          `json:"type"`
	TS   int64           `json:"ts"`
	Data json.RawMessage `json:"data"`
}

// ReportPayload is the published subset of a report. The visualization
// payload stays with the HTTP response.
type ReportPayload struct {
	Summary            domain.Summary             `json:"summary"`
	SuspiciousAccounts []domain.SuspiciousAccount `json:"suspicious_accounts"`
	FraudRings         []domain.FraudRing         `json:"fraud_rings"`
}

// KafkaPublisher writes one message per report, keyed by analysis id.
type KafkaPublisher struct {
	topic string
	p     sarama.SyncProducer
	now   func() time.Time
}

// NewKafkaPublisher dials the brokers with a synchronous producer.
func NewKafkaPublisher(brokers []string, topic, clientID string) (*KafkaPublisher, error) {
	if topic == "" {
		return nil, errors.New("topic empty")
	}
	if len(brokers) == 0 {
		return nil, errors.New("no brokers")
	}

	cfg := sarama.NewConfig()
	if clientID != "" {
		cfg.ClientID = clientID
	}
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Retry.Backoff = 200 * time.Millisecond
	// SyncProducer requires both.
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	// Reports can carry thousands of accounts.
	cfg.Producer.MaxMessageBytes = 4 << 20
	cfg.Producer.Compression = sarama.CompressionSnappy

	p, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return NewWithProducer(p, topic), nil
}

// NewWithProducer wraps an existing producer.
func NewWithProducer(p sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{topic: topic, p: p, now: time.Now}
}

// Publish sends the report and waits for the broker acknowledgement.
func (k *KafkaPublisher) Publish(ctx context.Context, report domain.Report) error {
	// SyncProducer does not take a context; honour cancellation before sending.
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(ReportPayload{
		Summary:            report.Summary,
		SuspiciousAccounts: report.SuspiciousAccounts,
		FraudRings:         report.FraudRings,
	})
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	b, err := json.Marshal(Envelope{
		Type: TypeReport,
		TS:   k.now().UnixMilli(),
		Data: data,
	})
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(report.Summary.AnalysisID),
		Value: sarama.ByteEncoder(b),
	}
	if _, _, err := k.p.SendMessage(msg); err != nil {
		return fmt.Errorf("kafka publish failed: %w", err)
	}
	return nil
}

// Close flushes and closes the producer.
func (k *KafkaPublisher) Close() error {
	if k.p != nil {
		return k.p.Close()
	}
	return nil
}
