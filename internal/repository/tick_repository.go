package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"StockPulse/internal/domain/models"
	drepo "StockPulse/internal/domain/repository"
	pkgkafka "StockPulse/pkg/kafka"
)

// ClickHouseTickStore writes accepted live ticks into a column store table.
type ClickHouseTickStore struct {
	db    *sql.DB
	table string
}

// NewClickHouseTickStore creates ClickHouse tick storage.
func NewClickHouseTickStore(db *sql.DB, table string) drepo.TickSink {
	return &ClickHouseTickStore{db: db, table: table}
}

// SchemaStatements returns the idempotent DDL for the tick table.
func SchemaStatements(table string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			ts DateTime,
			symbol LowCardinality(String),
			price Float64,
			change Float64,
			event_id String
		) ENGINE = ReplacingMergeTree
		PARTITION BY toYYYYMMDD(ts)
		ORDER BY (symbol, ts, event_id)`, table),
	}
}

func (s *ClickHouseTickStore) Write(ctx context.Context, t *models.LiveTick) error {
	q := fmt.Sprintf("INSERT INTO %s (ts, symbol, price, change, event_id) VALUES (?, ?, ?, ?, ?)", s.table)
	_, err := s.db.ExecContext(ctx, q,
		time.Unix(t.Timestamp, 0),
		t.Symbol,
		t.Price,
		t.Change,
		eventID(t),
	)
	return err
}

func (s *ClickHouseTickStore) WriteBatch(ctx context.Context, ticks []*models.LiveTick) error {
	if len(ticks) == 0 {
		return nil
	}
	// Multi-row VALUES insert to cut round-trips. 2000 rows per chunk.
	const chunkSize = 2000
	for start := 0; start < len(ticks); start += chunkSize {
		end := start + chunkSize
		if end > len(ticks) {
			end = len(ticks)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*5)
		for _, t := range ticks[start:end] {
			if t == nil || t.Symbol == "" || t.Timestamp == 0 {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?)")
			args = append(args,
				time.Unix(t.Timestamp, 0),
				t.Symbol,
				t.Price,
				t.Change,
				eventID(t),
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (ts, symbol, price, change, event_id) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *ClickHouseTickStore) Close() error {
	return nil // pool managed by pkg client
}

func eventID(t *models.LiveTick) string {
	return fmt.Sprintf("%s-%d", t.Symbol, t.Timestamp)
}

// KafkaTickPublisher publishes accepted live ticks to a broker topic, keyed
// by symbol so per-symbol ordering survives partitioning.
type KafkaTickPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaTickPublisher creates a Kafka tick sink.
func NewKafkaTickPublisher(producer *pkgkafka.Producer, topic string) drepo.TickSink {
	return &KafkaTickPublisher{producer: producer, topic: topic}
}

func (p *KafkaTickPublisher) Write(ctx context.Context, t *models.LiveTick) error {
	return p.producer.Publish(ctx, p.topic, []byte(t.Symbol), t)
}

func (p *KafkaTickPublisher) WriteBatch(ctx context.Context, ticks []*models.LiveTick) error {
	if len(ticks) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(ticks))
	for i, t := range ticks {
		msgs[i] = pkgkafka.Message{Key: []byte(t.Symbol), Value: t}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaTickPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
