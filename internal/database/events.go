package database

import (
	"context"
	"database/sql"
	"fmt"

	"file-access-ledger-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultEventPage = 100
	maxEventPage     = 1000
)

func insertEvent(ctx context.Context, tx *sql.Tx, event *models.LedgerEvent) error {
	result, err := tx.ExecContext(ctx, queryInsertEvent,
		event.Type, event.TokenId, event.Seller, event.Buyer, event.From, event.To,
		event.ContentId, event.Price.String(), event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record %s event: %w", event.Type, err)
	}

	seq, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read event sequence: %w", err)
	}
	event.Seq = seq
	return nil
}

// publish hands committed events to the configured publisher. The ledger_events
// table stays the source of truth, so failures are only logged.
func (s *Service) publish(ctx context.Context, events ...models.LedgerEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		zap.L().Warn("Failed to publish ledger events", zap.Int("count", len(events)), zap.Error(err))
	}
}

// GetEvents returns notifications with a sequence number greater than afterSeq.
func (s *Service) GetEvents(ctx context.Context, afterSeq int64, limit int) ([]models.LedgerEvent, error) {
	if limit <= 0 {
		limit = defaultEventPage
	}
	if limit > maxEventPage {
		limit = maxEventPage
	}

	rows, err := s.db.QueryContext(ctx, queryGetEvents, afterSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("unable to query events: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	events := make([]models.LedgerEvent, 0)
	for rows.Next() {
		var e models.LedgerEvent
		var priceStr string
		err := rows.Scan(&e.Seq, &e.Type, &e.TokenId, &e.Seller, &e.Buyer, &e.From, &e.To,
			&e.ContentId, &priceStr, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("unable to scan event row: %w", err)
		}
		if e.Price, err = decimal.NewFromString(priceStr); err != nil {
			return nil, fmt.Errorf("failed to parse event price '%s': %w", priceStr, err)
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event rows: %w", err)
	}
	return events, nil
}
