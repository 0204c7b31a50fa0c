package formance

import (
	"context"
	"fmt"
	"math/big"

	"file-access-ledger-go/internal/store"

	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Buyer accounts may not overdraft, so an underfunded purchase is rejected
// by the ledger with INSUFFICIENT_FUND.
const numscriptPurchase = `vars {
  asset $asset
  number $amount
  account $buyer
  account $seller
  string $purchase_ref
  string $token_id
}

send [$asset $amount] (
  source = @users:$buyer
  destination = @users:$seller
)

set_tx_meta("event_type", "purchase")
set_tx_meta("purchase_ref", $purchase_ref)
set_tx_meta("token_id", $token_id)
`

const numscriptFund = `vars {
  asset $asset
  number $amount
  account $identity
  string $fund_ref
}

send [$asset $amount] (
  source = @world
  destination = @users:$identity
)

set_tx_meta("event_type", "fund")
set_tx_meta("fund_ref", $fund_ref)
`

// Transfer posts the purchase payment and returns the Formance transaction id
// as the settlement receipt.
func (s *Service) Transfer(ctx context.Context, params store.TransferParams) (string, error) {
	buyer, err := userAccount(params.From)
	if err != nil {
		return "", fmt.Errorf("%w: %w", store.ErrTransferFailed, err)
	}
	seller, err := userAccount(params.To)
	if err != nil {
		return "", fmt.Errorf("%w: %w", store.ErrTransferFailed, err)
	}
	smallAmt, err := s.smallestUnits(params.Amount)
	if err != nil {
		return "", err
	}

	vars := map[string]string{
		"asset":        formanceAsset(s.asset),
		"amount":       smallAmt,
		"buyer":        buyer,
		"seller":       seller,
		"purchase_ref": params.Reference,
		"token_id":     fmt.Sprintf("%d", params.TokenId),
	}

	id, err := s.post(ctx, params.Reference, numscriptPurchase, vars)
	if err != nil && isConflictError(err) {
		id, err = s.recoverConflict(ctx, params.Reference, vars)
	}
	if err != nil {
		if isInsufficientFundsError(err) {
			return "", fmt.Errorf("%w: %w: %s cannot pay %s", store.ErrTransferFailed, store.ErrInsufficientFunds, params.From, params.Amount.String())
		}
		return "", fmt.Errorf("%w: error posting purchase: %w", store.ErrTransferFailed, err)
	}

	zap.L().Info("Purchase settled in Formance",
		zap.String("buyer", params.From),
		zap.String("seller", params.To),
		zap.String("amount", params.Amount.String()),
		zap.String("reference", params.Reference),
		zap.String("tx_id", id))
	return id, nil
}

// recoverConflict handles a reference that was already posted. A live
// transaction means an earlier attempt settled but was never recorded, so it
// is reused. A reverted one cannot be reposted under the same reference.
func (s *Service) recoverConflict(ctx context.Context, reference string, vars map[string]string) (string, error) {
	existing, err := s.findByReference(ctx, reference)
	if err != nil {
		return "", err
	}
	if existing != nil && !existing.Reverted {
		zap.L().Warn("Reusing existing settlement for reference", zap.String("reference", reference))
		return existing.ID.String(), nil
	}

	retryRef := reference + ":" + uuid.NewString()
	zap.L().Info("Reference consumed by reverted settlement, reposting",
		zap.String("reference", reference),
		zap.String("retry_reference", retryRef))
	return s.post(ctx, retryRef, numscriptPurchase, vars)
}

// Revert undoes a settlement by its Formance transaction id. Reverting an
// already reverted transaction is not an error.
func (s *Service) Revert(ctx context.Context, receipt string) error {
	id, ok := new(big.Int).SetString(receipt, 10)
	if !ok {
		return fmt.Errorf("invalid settlement receipt %q", receipt)
	}

	zap.L().Info("Reverting settlement in Formance", zap.String("tx_id", receipt))

	_, err := s.client.Ledger.V2.RevertTransaction(ctx, operations.V2RevertTransactionRequest{
		Ledger:          s.ledger,
		ID:              id,
		AtEffectiveDate: ptrBool(true),
	})
	if err != nil {
		if isConflictError(err) || isAlreadyRevertedError(err) {
			zap.L().Info("Settlement already reverted", zap.String("tx_id", receipt))
			return nil
		}
		return fmt.Errorf("failed to revert transaction %s: %w", receipt, err)
	}

	zap.L().Info("Settlement reverted in Formance", zap.String("tx_id", receipt))
	return nil
}

// Fund credits an identity from @world. Replaying a reference is a no-op.
func (s *Service) Fund(ctx context.Context, identity string, amount decimal.Decimal, reference string) error {
	account, err := userAccount(identity)
	if err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidRecipient, err)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: deposit amount must be positive, got %s", store.ErrInvalidAmount, amount.String())
	}
	smallAmt, err := s.smallestUnits(amount)
	if err != nil {
		return err
	}

	_, err = s.post(ctx, "fund:"+reference, numscriptFund, map[string]string{
		"asset":    formanceAsset(s.asset),
		"amount":   smallAmt,
		"identity": account,
		"fund_ref": reference,
	})
	if err != nil {
		if isConflictError(err) {
			return nil // idempotent
		}
		return fmt.Errorf("error funding identity: %w", err)
	}

	zap.L().Info("Identity funded in Formance",
		zap.String("identity", identity),
		zap.String("amount", amount.String()),
		zap.String("reference", reference))
	return nil
}

func (s *Service) post(ctx context.Context, reference, script string, vars map[string]string) (string, error) {
	resp, err := s.client.Ledger.V2.CreateTransaction(ctx, operations.V2CreateTransactionRequest{
		Ledger: s.ledger,
		V2PostTransaction: shared.V2PostTransaction{
			Reference: strPtr(reference),
			Script: &shared.V2PostTransactionScript{
				Plain: script,
				Vars:  vars,
			},
		},
	})
	if err != nil {
		return "", err
	}
	return resp.V2CreateTransactionResponse.Data.ID.String(), nil
}

func (s *Service) findByReference(ctx context.Context, reference string) (*shared.V2Transaction, error) {
	pageSize := int64(1)
	resp, err := s.client.Ledger.V2.ListTransactions(ctx, operations.V2ListTransactionsRequest{
		Ledger:   s.ledger,
		PageSize: &pageSize,
		RequestBody: map[string]any{
			"$match": map[string]any{
				"reference": reference,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find transaction by reference %s: %w", reference, err)
	}
	if len(resp.V2TransactionsCursorResponse.Cursor.Data) == 0 {
		return nil, nil
	}
	return &resp.V2TransactionsCursorResponse.Cursor.Data[0], nil
}

// smallestUnits converts a decimal amount into the asset's integer minor units.
func (s *Service) smallestUnits(amount decimal.Decimal) (string, error) {
	shifted := amount.Shift(int32(precisionFor(s.asset)))
	if !shifted.IsInteger() {
		return "", fmt.Errorf("%w: %s has more precision than %s allows", store.ErrInvalidAmount, amount.String(), formanceAsset(s.asset))
	}
	return shifted.BigInt().String(), nil
}

func strPtr(s string) *string { return &s }
func ptrBool(v bool) *bool    { return &v }
