package database

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
)

func TestGetBalance_UnknownIdentity(t *testing.T) {
	service := setupTestService(t)

	balance, err := service.GetBalance(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if !balance.IsZero() {
		t.Errorf("Expected zero balance, got %s", balance.String())
	}
}

func TestGetAllBalances(t *testing.T) {
	service := setupTestService(t)

	fund(t, service, "alice", "3")
	fund(t, service, "bob", "4")

	balances, err := service.GetAllBalances(context.Background())
	if err != nil {
		t.Fatalf("GetAllBalances failed: %v", err)
	}
	if len(balances) != 2 {
		t.Fatalf("Expected 2 balances, got %d", len(balances))
	}

	total := decimal.Zero
	for _, b := range balances {
		total = total.Add(b.Balance)
	}
	if !total.Equal(decimal.NewFromInt(7)) {
		t.Errorf("Expected total 7, got %s", total.String())
	}
}

func TestReconcileBalance(t *testing.T) {
	service := setupTestService(t)
	ctx := context.Background()

	fund(t, service, "alice", "0.1")
	fund(t, service, "alice", "0.2")

	if err := service.ReconcileBalance(ctx, "alice"); err != nil {
		t.Errorf("Expected balance to reconcile, got %v", err)
	}

	// Corrupt the stored balance
	if _, err := service.db.Exec(`UPDATE account_balances SET balance = '9' WHERE identity = 'alice'`); err != nil {
		t.Fatalf("Failed to corrupt balance: %v", err)
	}
	if err := service.ReconcileBalance(ctx, "alice"); err == nil {
		t.Error("Expected reconciliation mismatch error")
	}
}
