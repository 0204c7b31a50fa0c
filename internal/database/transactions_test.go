package database

import (
	"context"
	"errors"
	"testing"

	"file-access-ledger-go/internal/store"

	"github.com/shopspring/decimal"
)

func TestProcessTransaction_Deposit(t *testing.T) {
	service := setupTestService(t)
	ctx := context.Background()

	tx, err := service.subledger.ProcessTransaction(ctx, ProcessTransactionParams{
		Identity:        "alice",
		TransactionType: TxTypeDeposit,
		Amount:          decimal.RequireFromString("12.25"),
		Reference:       "dep-1",
	})
	if err != nil {
		t.Fatalf("ProcessTransaction failed: %v", err)
	}
	if !tx.BalanceBefore.IsZero() || !tx.BalanceAfter.Equal(decimal.RequireFromString("12.25")) {
		t.Errorf("Unexpected balances: before %s after %s", tx.BalanceBefore.String(), tx.BalanceAfter.String())
	}
	requireBalance(t, service, "alice", "12.25")
}

func TestProcessTransaction_DuplicateReference(t *testing.T) {
	service := setupTestService(t)
	ctx := context.Background()

	params := ProcessTransactionParams{
		Identity:        "alice",
		TransactionType: TxTypeDeposit,
		Amount:          decimal.NewFromInt(5),
		Reference:       "dep-dup",
	}
	if _, err := service.subledger.ProcessTransaction(ctx, params); err != nil {
		t.Fatalf("First ProcessTransaction failed: %v", err)
	}
	_, err := service.subledger.ProcessTransaction(ctx, params)
	if !errors.Is(err, ErrDuplicateTransaction) {
		t.Fatalf("Expected ErrDuplicateTransaction, got %v", err)
	}
	requireBalance(t, service, "alice", "5")

	// Same reference for a different identity is not a duplicate
	params.Identity = "bob"
	if _, err := service.subledger.ProcessTransaction(ctx, params); err != nil {
		t.Errorf("ProcessTransaction for bob failed: %v", err)
	}
}

func TestProcessTransaction_RequireFunds(t *testing.T) {
	service := setupTestService(t)
	ctx := context.Background()

	fund(t, service, "alice", "1")
	_, err := service.subledger.ProcessTransaction(ctx, ProcessTransactionParams{
		Identity:        "alice",
		TransactionType: TxTypePurchaseDebit,
		Amount:          decimal.NewFromInt(-2),
		Reference:       "debit-1",
		RequireFunds:    true,
	})
	if !errors.Is(err, store.ErrInsufficientFunds) {
		t.Fatalf("Expected ErrInsufficientFunds, got %v", err)
	}
	requireBalance(t, service, "alice", "1")
}

func TestGetTransactionHistory_Pagination(t *testing.T) {
	service := setupTestService(t)
	ctx := context.Background()

	for _, amount := range []string{"1", "2", "3"} {
		fund(t, service, "alice", amount)
	}

	page, err := service.GetTransactionHistory(ctx, "alice", 2, 0)
	if err != nil {
		t.Fatalf("GetTransactionHistory failed: %v", err)
	}
	if len(page) != 2 {
		t.Errorf("Expected 2 transactions, got %d", len(page))
	}

	rest, _ := service.GetTransactionHistory(ctx, "alice", 2, 2)
	if len(rest) != 1 {
		t.Errorf("Expected 1 transaction on second page, got %d", len(rest))
	}

	none, _ := service.GetTransactionHistory(ctx, "nobody", 10, 0)
	if len(none) != 0 {
		t.Errorf("Expected no history for unknown identity, got %d", len(none))
	}
}
