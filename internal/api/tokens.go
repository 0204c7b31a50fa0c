package api

import (
	"context"
	"errors"
	"fmt"

	"file-access-ledger-go/internal/models"
	"file-access-ledger-go/internal/store"

	"go.uber.org/zap"
)

var ErrUnauthenticated = errors.New("caller identity is required")

// Mint registers a file for the calling identity
func (s *LedgerService) Mint(ctx context.Context, req models.MintRequest) (*models.MintResult, error) {
	caller := models.CallerFromContext(ctx)
	if caller == "" {
		return nil, ErrUnauthenticated
	}

	id, err := s.store.Mint(ctx, caller, req.ContentId, req.Price)
	if err != nil {
		zap.L().Warn("Mint rejected", zap.String("caller", caller), zap.Error(err))
		return nil, err
	}
	return &models.MintResult{TokenId: id}, nil
}

// BuyAccess purchases access to a token for the calling identity
func (s *LedgerService) BuyAccess(ctx context.Context, tokenId int64, req models.PurchaseRequest) error {
	caller := models.CallerFromContext(ctx)
	if caller == "" {
		return ErrUnauthenticated
	}

	if err := s.store.BuyAccess(ctx, caller, tokenId, req.Amount); err != nil {
		zap.L().Warn("Purchase rejected",
			zap.String("caller", caller),
			zap.Int64("token_id", tokenId),
			zap.Error(err))
		return err
	}
	return nil
}

// TransferToken moves ownership of a token on behalf of the calling identity
func (s *LedgerService) TransferToken(ctx context.Context, tokenId int64, req models.TransferRequest) error {
	caller := models.CallerFromContext(ctx)
	if caller == "" {
		return ErrUnauthenticated
	}

	if err := s.store.TransferToken(ctx, caller, req.From, req.To, tokenId); err != nil {
		zap.L().Warn("Transfer rejected",
			zap.String("caller", caller),
			zap.Int64("token_id", tokenId),
			zap.Error(err))
		return err
	}
	return nil
}

func (s *LedgerService) GetToken(ctx context.Context, tokenId int64) (*models.Token, error) {
	return s.store.GetToken(ctx, tokenId)
}

func (s *LedgerService) PurchaseStatus(ctx context.Context, tokenId int64, identity string) (*models.PurchaseStatus, error) {
	if identity == "" {
		return nil, fmt.Errorf("%w: identity is required", store.ErrInvalidRecipient)
	}

	purchased, err := s.store.HasUserPurchased(ctx, tokenId, identity)
	if err != nil {
		return nil, err
	}
	return &models.PurchaseStatus{TokenId: tokenId, Identity: identity, Purchased: purchased}, nil
}

func (s *LedgerService) TokensOfOwner(ctx context.Context, identity string) (*models.OwnedTokens, error) {
	ids, err := s.store.TokensOfOwner(ctx, identity)
	if err != nil {
		return nil, err
	}
	return &models.OwnedTokens{Identity: identity, TokenIds: ids}, nil
}

func (s *LedgerService) Stats(ctx context.Context) (*models.LedgerStats, error) {
	total, err := s.store.TotalMinted(ctx)
	if err != nil {
		return nil, err
	}
	return &models.LedgerStats{TotalMinted: total}, nil
}

func (s *LedgerService) Events(ctx context.Context, afterSeq int64, limit int) ([]models.LedgerEvent, error) {
	if afterSeq < 0 {
		afterSeq = 0
	}
	return s.store.GetEvents(ctx, afterSeq, limit)
}
