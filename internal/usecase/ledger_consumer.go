package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"TradePull/internal/domain/models"
	drepo "TradePull/internal/domain/repository"
	"TradePull/pkg/logger"
)

// LedgerConsumer persists ledger entries arriving on the Kafka topic
// when the scheduler runs with the kafka ledger backend. Implements
// kafka.MessageHandler.
type LedgerConsumer struct {
	topic   string
	sink    drepo.Ledger
	metrics drepo.Metrics
	log     *logger.Logger
}

// NewLedgerConsumer creates a handler writing entries into sink.
func NewLedgerConsumer(topic string, sink drepo.Ledger, metrics drepo.Metrics, log *logger.Logger) *LedgerConsumer {
	return &LedgerConsumer{topic: topic, sink: sink, metrics: metrics, log: log}
}

// Topic returns the subscribed topic name.
func (c *LedgerConsumer) Topic() string {
	return c.topic
}

// Handle decodes and persists one ledger entry. Decode failures are
// returned so the consumer's retry and DLQ policy applies.
func (c *LedgerConsumer) Handle(ctx context.Context, data []byte) error {
	var entry models.LedgerEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.metrics.RecordError("ledger_consumer_decode")
		return fmt.Errorf("decode ledger entry: %w", err)
	}
	if entry.UserID == "" {
		c.metrics.RecordError("ledger_consumer_invalid")
		return fmt.Errorf("ledger entry missing user_id")
	}

	if err := c.sink.Append(ctx, entry); err != nil {
		c.metrics.RecordError("ledger_consumer_persist")
		return err
	}
	c.log.Debug("ledger entry persisted",
		logger.String("user", entry.UserID),
		logger.String("action", entry.Decision.Action))
	return nil
}
