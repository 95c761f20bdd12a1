package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"TradePull/internal/domain/models"
	"TradePull/internal/domain/repository"
	pkgkafka "TradePull/pkg/kafka"
)

// LedgerSchema returns idempotent DDL for the trade ledger table.
func LedgerSchema(database, table string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
			user_id String,
			symbol String,
			interval String,
			action String,
			confidence Float64,
			leverage Float64,
			stop_loss Float64,
			take_profit Float64,
			reason String,
			order_success UInt8,
			order_id String,
			order_status String,
			side String,
			qty String,
			price String,
			order_error String,
			executed_at DateTime64(3)
		) ENGINE = MergeTree()
		ORDER BY (user_id, executed_at)`, database, table),
	}
}

// ClickHouseLedger persists ledger entries directly to ClickHouse.
type ClickHouseLedger struct {
	db    *sql.DB
	table string
}

// NewClickHouseLedger creates a ClickHouse-backed ledger.
func NewClickHouseLedger(db *sql.DB, table string) repository.Ledger {
	return &ClickHouseLedger{db: db, table: table}
}

func (l *ClickHouseLedger) Append(ctx context.Context, e models.LedgerEntry) error {
	q := fmt.Sprintf(`INSERT INTO %s
		(user_id, symbol, interval, action, confidence, leverage, stop_loss, take_profit, reason,
		 order_success, order_id, order_status, side, qty, price, order_error, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, l.table)

	success := uint8(0)
	if e.Order.Success {
		success = 1
	}

	_, err := l.db.ExecContext(ctx, q,
		e.UserID,
		e.Symbol,
		e.Interval,
		e.Decision.Action,
		e.Decision.Confidence,
		e.Decision.Leverage,
		e.Decision.StopLoss,
		e.Decision.TakeProfit,
		e.Decision.Reason,
		success,
		e.Order.OrderID,
		e.Order.Status,
		e.Order.Side,
		e.Order.Qty,
		e.Order.Price,
		e.Order.Error,
		e.ExecutedAt,
	)
	if err != nil {
		return fmt.Errorf("ledger insert: %w", err)
	}
	return nil
}

func (l *ClickHouseLedger) Query(ctx context.Context, userID string, limit int) ([]models.LedgerEntry, error) {
	q := fmt.Sprintf(`SELECT user_id, symbol, interval, action, confidence, leverage, stop_loss,
		take_profit, reason, order_success, order_id, order_status, side, qty, price, order_error, executed_at
		FROM %s`, l.table)

	args := []interface{}{}
	if userID != "" {
		q += " WHERE user_id = ?"
		args = append(args, userID)
	}
	q += " ORDER BY executed_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("ledger query: %w", err)
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		var success uint8
		var executedAt time.Time
		if err := rows.Scan(
			&e.UserID,
			&e.Symbol,
			&e.Interval,
			&e.Decision.Action,
			&e.Decision.Confidence,
			&e.Decision.Leverage,
			&e.Decision.StopLoss,
			&e.Decision.TakeProfit,
			&e.Decision.Reason,
			&success,
			&e.Order.OrderID,
			&e.Order.Status,
			&e.Order.Side,
			&e.Order.Qty,
			&e.Order.Price,
			&e.Order.Error,
			&executedAt,
		); err != nil {
			return nil, err
		}
		e.Order.Success = success == 1
		e.ExecutedAt = executedAt
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (l *ClickHouseLedger) Close() error {
	return nil // pool managed by pkg
}

// KafkaLedger publishes ledger entries to a topic; a consumer persists
// them to ClickHouse out of band.
type KafkaLedger struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaLedger creates a Kafka-publishing ledger.
func NewKafkaLedger(producer *pkgkafka.Producer, topic string) repository.Ledger {
	return &KafkaLedger{producer: producer, topic: topic}
}

func (l *KafkaLedger) Append(ctx context.Context, e models.LedgerEntry) error {
	return l.producer.Publish(ctx, l.topic, []byte(e.UserID), e)
}

func (l *KafkaLedger) Query(ctx context.Context, userID string, limit int) ([]models.LedgerEntry, error) {
	return nil, fmt.Errorf("ledger queries require the clickhouse backend")
}

func (l *KafkaLedger) Close() error {
	if l.producer != nil {
		return l.producer.Close()
	}
	return nil
}
