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

// revertTimeout bounds the compensating call made after the caller may have gone away.
const revertTimeout = 30 * time.Second

// PurchaseReference identifies the single allowed purchase of tokenId by buyer.
func PurchaseReference(tokenId int64, buyer string) string {
	return fmt.Sprintf("purchase:%d:%s", tokenId, buyer)
}

// BuyAccess pays the token's seller exactly its price and records a permanent
// access grant for caller. Either both happen or neither does.
func (s *Service) BuyAccess(ctx context.Context, caller string, tokenId int64, paid decimal.Decimal) error {
	zap.L().Info("Processing access purchase",
		zap.Int64("token_id", tokenId),
		zap.String("buyer", caller),
		zap.String("paid", paid.String()))

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	token, err := getToken(ctx, tx, tokenId)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %w", store.ErrInvalidSeller, err)
		}
		return err
	}

	seller := token.EffectiveSeller()
	if seller == store.NoSeller {
		return fmt.Errorf("%w: token %d has no seller", store.ErrInvalidSeller, tokenId)
	}
	if caller == seller {
		return fmt.Errorf("%w: token %d", store.ErrSelfPurchase, tokenId)
	}
	if !paid.Equal(token.Price) {
		return fmt.Errorf("%w: token %d costs %s, paid %s", store.ErrIncorrectPrice, tokenId, token.Price.String(), paid.String())
	}

	purchased, err := hasPurchased(ctx, tx, tokenId, caller)
	if err != nil {
		return err
	}
	if purchased {
		return fmt.Errorf("%w: token %d by %s", store.ErrAlreadyPurchased, tokenId, caller)
	}

	params := store.TransferParams{
		From:      caller,
		To:        seller,
		Amount:    paid,
		Reference: PurchaseReference(tokenId, caller),
		TokenId:   tokenId,
	}

	var settlementId string
	if s.rail == nil {
		settlementId, err = s.subledger.transferTx(ctx, tx, params)
	} else {
		settlementId, err = s.rail.Transfer(ctx, params)
		if err != nil && !errors.Is(err, store.ErrTransferFailed) {
			err = fmt.Errorf("%w: %w", store.ErrTransferFailed, err)
		}
	}
	if err != nil {
		zap.L().Warn("Purchase payment failed",
			zap.Int64("token_id", tokenId),
			zap.String("buyer", caller),
			zap.Error(err))
		return err
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, queryInsertPurchase, tokenId, caller, seller, paid.String(), settlementId, now); err != nil {
		s.revertSettlement(ctx, settlementId)
		return fmt.Errorf("failed to insert purchase: %w", err)
	}

	event := models.LedgerEvent{
		Type:      models.EventPurchased,
		TokenId:   tokenId,
		Seller:    seller,
		Buyer:     caller,
		Price:     token.Price,
		CreatedAt: now,
	}
	if err := insertEvent(ctx, tx, &event); err != nil {
		s.revertSettlement(ctx, settlementId)
		return err
	}

	if err := tx.Commit(); err != nil {
		s.revertSettlement(ctx, settlementId)
		return fmt.Errorf("failed to commit purchase: %w", err)
	}

	zap.L().Info("Access purchased",
		zap.Int64("token_id", tokenId),
		zap.String("seller", seller),
		zap.String("buyer", caller),
		zap.String("price", token.Price.String()),
		zap.String("settlement_id", settlementId))

	s.publish(ctx, event)
	return nil
}

// revertSettlement undoes an external payment whose purchase could not be recorded.
// Subledger settlements roll back with the SQL transaction. The revert outlives
// cancellation of ctx, which is the usual reason the purchase failed.
func (s *Service) revertSettlement(ctx context.Context, receipt string) {
	if s.rail == nil {
		return
	}
	revertCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), revertTimeout)
	defer cancel()
	if err := s.rail.Revert(revertCtx, receipt); err != nil {
		zap.L().Error("Failed to revert purchase payment; manual reconciliation required",
			zap.String("receipt", receipt),
			zap.Error(err))
	}
}

// HasUserPurchased reports whether identity bought access to tokenId.
func (s *Service) HasUserPurchased(ctx context.Context, tokenId int64, identity string) (bool, error) {
	return hasPurchased(ctx, s.db, tokenId, identity)
}

// GetPurchases lists every access grant recorded for tokenId.
func (s *Service) GetPurchases(ctx context.Context, tokenId int64) ([]models.Purchase, error) {
	if _, err := s.GetToken(ctx, tokenId); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, queryGetPurchases, tokenId)
	if err != nil {
		return nil, fmt.Errorf("unable to query purchases: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	purchases := make([]models.Purchase, 0)
	for rows.Next() {
		var p models.Purchase
		var priceStr string
		if err := rows.Scan(&p.TokenId, &p.Buyer, &p.Seller, &priceStr, &p.SettlementId, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("unable to scan purchase row: %w", err)
		}
		if p.Price, err = decimal.NewFromString(priceStr); err != nil {
			return nil, fmt.Errorf("failed to parse price '%s': %w", priceStr, err)
		}
		purchases = append(purchases, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating purchase rows: %w", err)
	}
	return purchases, nil
}

func hasPurchased(ctx context.Context, q dbtx, tokenId int64, identity string) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, queryCheckPurchase, tokenId, identity).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("unable to query purchase status: %w", err)
	}
	return true, nil
}
