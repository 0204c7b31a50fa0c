package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"file-access-ledger-go/internal/models"
	"file-access-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Mint registers contentId as a new token owned and sold by caller and returns its id.
func (s *Service) Mint(ctx context.Context, caller, contentId string, price decimal.Decimal) (int64, error) {
	if caller == store.NoSeller {
		return 0, fmt.Errorf("%w: caller identity is required", store.ErrInvalidSeller)
	}
	if price.IsNegative() {
		return 0, fmt.Errorf("%w: price cannot be negative, got %s", store.ErrInvalidAmount, price.String())
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var tokenId int64
	if err := tx.QueryRowContext(ctx, queryGetCounter, counterTotalMinted).Scan(&tokenId); err != nil {
		return 0, fmt.Errorf("failed to read total minted: %w", err)
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, queryInsertToken, tokenId, contentId, price.String(), caller, caller, now, now); err != nil {
		return 0, fmt.Errorf("failed to insert token: %w", err)
	}

	if err := appendOwnerIndex(ctx, tx, caller, tokenId); err != nil {
		return 0, err
	}

	result, err := tx.ExecContext(ctx, queryAdvanceCounter, counterTotalMinted, tokenId)
	if err != nil {
		return 0, fmt.Errorf("failed to advance total minted: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	} else if n == 0 {
		return 0, fmt.Errorf("total minted update failed - %w", ErrConcurrentModification)
	}

	event := models.LedgerEvent{
		Type:      models.EventMinted,
		TokenId:   tokenId,
		Seller:    caller,
		ContentId: contentId,
		Price:     price,
		CreatedAt: now,
	}
	if err := insertEvent(ctx, tx, &event); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit mint: %w", err)
	}

	zap.L().Info("Token minted",
		zap.Int64("token_id", tokenId),
		zap.String("seller", caller),
		zap.String("content_id", contentId),
		zap.String("price", price.String()))

	s.publish(ctx, event)
	return tokenId, nil
}

// TransferToken moves ownership of tokenId from one identity to another. Only the
// current owner may move it. Purchase records are unaffected.
func (s *Service) TransferToken(ctx context.Context, caller, from, to string, tokenId int64) error {
	if to == "" {
		return fmt.Errorf("%w: recipient identity is required", store.ErrInvalidRecipient)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	token, err := getToken(ctx, tx, tokenId)
	if err != nil {
		return err
	}
	if token.Owner != from {
		return fmt.Errorf("%w: token %d is owned by %s, not %s", store.ErrNotOwner, tokenId, token.Owner, from)
	}
	if caller != from {
		return fmt.Errorf("%w: caller %s cannot move token %d", store.ErrNotOwner, caller, tokenId)
	}

	now := time.Now().UTC()
	if from != to {
		result, err := tx.ExecContext(ctx, queryUpdateTokenOwner, to, now, tokenId, from)
		if err != nil {
			return fmt.Errorf("failed to update token owner: %w", err)
		}
		if n, err := result.RowsAffected(); err != nil {
			return fmt.Errorf("failed to check rows affected: %w", err)
		} else if n == 0 {
			return fmt.Errorf("owner update failed - %w", ErrConcurrentModification)
		}

		if err := moveOwnerIndex(ctx, tx, from, to, tokenId); err != nil {
			return err
		}
	}

	event := models.LedgerEvent{
		Type:      models.EventOwnershipChanged,
		TokenId:   tokenId,
		From:      from,
		To:        to,
		Price:     decimal.Zero,
		CreatedAt: now,
	}
	if err := insertEvent(ctx, tx, &event); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transfer: %w", err)
	}

	zap.L().Info("Token ownership changed",
		zap.Int64("token_id", tokenId),
		zap.String("from", from),
		zap.String("to", to))

	s.publish(ctx, event)
	return nil
}

func (s *Service) GetToken(ctx context.Context, tokenId int64) (*models.Token, error) {
	return getToken(ctx, s.db, tokenId)
}

func (s *Service) TokenPrice(ctx context.Context, tokenId int64) (decimal.Decimal, error) {
	token, err := s.GetToken(ctx, tokenId)
	if err != nil {
		return decimal.Zero, err
	}
	return token.Price, nil
}

func (s *Service) TokenSeller(ctx context.Context, tokenId int64) (string, error) {
	token, err := s.GetToken(ctx, tokenId)
	if err != nil {
		return "", err
	}
	return token.Seller, nil
}

func (s *Service) TokenContentId(ctx context.Context, tokenId int64) (string, error) {
	token, err := s.GetToken(ctx, tokenId)
	if err != nil {
		return "", err
	}
	return token.ContentId, nil
}

func (s *Service) OwnerOf(ctx context.Context, tokenId int64) (string, error) {
	token, err := s.GetToken(ctx, tokenId)
	if err != nil {
		return "", err
	}
	return token.Owner, nil
}

func (s *Service) TotalMinted(ctx context.Context) (int64, error) {
	var total int64
	if err := s.db.QueryRowContext(ctx, queryGetCounter, counterTotalMinted).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to read total minted: %w", err)
	}
	return total, nil
}

func getToken(ctx context.Context, q dbtx, tokenId int64) (*models.Token, error) {
	var token models.Token
	var priceStr string
	err := q.QueryRowContext(ctx, queryGetToken, tokenId).Scan(
		&token.Id, &token.ContentId, &priceStr, &token.Seller, &token.Owner, &token.CreatedAt, &token.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", store.ErrNotFound, tokenId)
		}
		zap.L().Error("Failed to query token", zap.Int64("token_id", tokenId), zap.Error(err))
		return nil, fmt.Errorf("unable to query token: %w", err)
	}

	token.Price, err = decimal.NewFromString(priceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse price '%s': %w", priceStr, err)
	}
	return &token, nil
}
