package database

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// TokensOfOwner returns the ids identity currently owns, in the order they were added.
func (s *Service) TokensOfOwner(ctx context.Context, identity string) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, queryGetTokensOfOwner, identity)
	if err != nil {
		zap.L().Error("Failed to query owner index", zap.String("identity", identity), zap.Error(err))
		return nil, fmt.Errorf("unable to query owner index: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	tokenIds := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("unable to scan owner index row: %w", err)
		}
		tokenIds = append(tokenIds, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating owner index rows: %w", err)
	}
	return tokenIds, nil
}

func appendOwnerIndex(ctx context.Context, tx *sql.Tx, identity string, tokenId int64) error {
	if _, err := tx.ExecContext(ctx, queryAppendOwnerIndex, identity, tokenId); err != nil {
		return fmt.Errorf("failed to add token %d to owner index of %s: %w", tokenId, identity, err)
	}
	return nil
}

// moveOwnerIndex removes tokenId from one identity's entry and appends it to another's
func moveOwnerIndex(ctx context.Context, tx *sql.Tx, from, to string, tokenId int64) error {
	result, err := tx.ExecContext(ctx, queryRemoveOwnerIndex, from, tokenId)
	if err != nil {
		return fmt.Errorf("failed to remove token %d from owner index of %s: %w", tokenId, from, err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	} else if n != 1 {
		return fmt.Errorf("owner index out of sync for token %d - %w", tokenId, ErrConcurrentModification)
	}
	return appendOwnerIndex(ctx, tx, to, tokenId)
}
