package database

import (
	"context"
	"errors"
	"testing"

	"file-access-ledger-go/internal/models"
	"file-access-ledger-go/internal/store"

	"github.com/shopspring/decimal"
)

func TestBuyAccess_Success(t *testing.T) {
	publisher := &recordingPublisher{}
	service := setupTestService(t, WithPublisher(publisher))
	ctx := context.Background()

	id, err := service.Mint(ctx, "seller", "cid-1", decimal.NewFromInt(1))
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}
	fund(t, service, "buyer", "5")

	if err := service.BuyAccess(ctx, "buyer", id, decimal.NewFromInt(1)); err != nil {
		t.Fatalf("BuyAccess failed: %v", err)
	}

	purchased, err := service.HasUserPurchased(ctx, id, "buyer")
	if err != nil || !purchased {
		t.Errorf("HasUserPurchased = %v, %v; want true", purchased, err)
	}
	requireBalance(t, service, "seller", "1")
	requireBalance(t, service, "buyer", "4")

	// Buying access never moves ownership
	if owner, _ := service.OwnerOf(ctx, id); owner != "seller" {
		t.Errorf("Expected owner seller after purchase, got %q", owner)
	}

	purchases, err := service.GetPurchases(ctx, id)
	if err != nil {
		t.Fatalf("GetPurchases failed: %v", err)
	}
	if len(purchases) != 1 || purchases[0].Buyer != "buyer" || purchases[0].Seller != "seller" {
		t.Errorf("Unexpected purchases: %+v", purchases)
	}
	if purchases[0].SettlementId == "" {
		t.Error("Expected settlement id for subledger purchase")
	}

	last := publisher.events[len(publisher.events)-1]
	if last.Type != models.EventPurchased || last.Buyer != "buyer" || last.Seller != "seller" || !last.Price.Equal(decimal.NewFromInt(1)) {
		t.Errorf("Unexpected purchased event: %+v", last)
	}
}

func TestBuyAccess_AlreadyPurchased(t *testing.T) {
	service := setupTestService(t)
	ctx := context.Background()

	id, _ := service.Mint(ctx, "seller", "cid", decimal.NewFromInt(1))
	fund(t, service, "buyer", "5")

	if err := service.BuyAccess(ctx, "buyer", id, decimal.NewFromInt(1)); err != nil {
		t.Fatalf("First BuyAccess failed: %v", err)
	}
	err := service.BuyAccess(ctx, "buyer", id, decimal.NewFromInt(1))
	if !errors.Is(err, store.ErrAlreadyPurchased) {
		t.Fatalf("Expected ErrAlreadyPurchased, got %v", err)
	}

	requireBalance(t, service, "seller", "1")
	requireBalance(t, service, "buyer", "4")
}

func TestBuyAccess_IncorrectPrice(t *testing.T) {
	service := setupTestService(t)
	ctx := context.Background()

	price := decimal.RequireFromString("10.5")
	id, _ := service.Mint(ctx, "seller", "cid", price)
	fund(t, service, "buyer", "100")

	for _, paid := range []decimal.Decimal{price.Sub(decimal.NewFromInt(1)), price.Add(decimal.NewFromInt(1)), decimal.Zero} {
		err := service.BuyAccess(ctx, "buyer", id, paid)
		if !errors.Is(err, store.ErrIncorrectPrice) {
			t.Errorf("paid %s: expected ErrIncorrectPrice, got %v", paid.String(), err)
		}
	}

	// Equal values with a different scale are accepted
	if err := service.BuyAccess(ctx, "buyer", id, decimal.RequireFromString("10.50")); err != nil {
		t.Fatalf("BuyAccess with exact price failed: %v", err)
	}
	requireBalance(t, service, "buyer", "89.5")
}

func TestBuyAccess_SelfPurchase(t *testing.T) {
	service := setupTestService(t)
	ctx := context.Background()

	id, _ := service.Mint(ctx, "seller", "cid", decimal.NewFromInt(1))
	fund(t, service, "seller", "5")

	err := service.BuyAccess(ctx, "seller", id, decimal.NewFromInt(1))
	if !errors.Is(err, store.ErrSelfPurchase) {
		t.Fatalf("Expected ErrSelfPurchase, got %v", err)
	}
	if purchased, _ := service.HasUserPurchased(ctx, id, "seller"); purchased {
		t.Error("Self purchase must not be recorded")
	}
}

func TestBuyAccess_ZeroPriceHasNoSeller(t *testing.T) {
	service := setupTestService(t)
	ctx := context.Background()

	id, _ := service.Mint(ctx, "seller", "free", decimal.Zero)

	err := service.BuyAccess(ctx, "buyer", id, decimal.Zero)
	if !errors.Is(err, store.ErrInvalidSeller) {
		t.Fatalf("Expected ErrInvalidSeller, got %v", err)
	}
	if errors.Is(err, store.ErrNotFound) {
		t.Errorf("Zero-price token exists and must not report ErrNotFound: %v", err)
	}
}

func TestBuyAccess_UnknownToken(t *testing.T) {
	service := setupTestService(t)

	err := service.BuyAccess(context.Background(), "buyer", 7, decimal.NewFromInt(1))
	if !errors.Is(err, store.ErrInvalidSeller) {
		t.Errorf("Expected ErrInvalidSeller, got %v", err)
	}
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestBuyAccess_InsufficientFunds(t *testing.T) {
	publisher := &recordingPublisher{}
	service := setupTestService(t, WithPublisher(publisher))
	ctx := context.Background()

	id, _ := service.Mint(ctx, "seller", "cid", decimal.NewFromInt(3))
	fund(t, service, "buyer", "2")
	published := len(publisher.events)

	err := service.BuyAccess(ctx, "buyer", id, decimal.NewFromInt(3))
	if !errors.Is(err, store.ErrTransferFailed) {
		t.Fatalf("Expected ErrTransferFailed, got %v", err)
	}
	if !errors.Is(err, store.ErrInsufficientFunds) {
		t.Errorf("Expected ErrInsufficientFunds, got %v", err)
	}

	if purchased, _ := service.HasUserPurchased(ctx, id, "buyer"); purchased {
		t.Error("Failed payment must not record a purchase")
	}
	requireBalance(t, service, "buyer", "2")
	requireBalance(t, service, "seller", "0")
	if len(publisher.events) != published {
		t.Errorf("Failed purchase must not publish events, got %d new", len(publisher.events)-published)
	}

	history, _ := service.GetTransactionHistory(ctx, "buyer", 10, 0)
	if len(history) != 1 {
		t.Errorf("Expected only the deposit in history, got %d entries", len(history))
	}
}

func TestBuyAccess_SameBuyerDifferentTokens(t *testing.T) {
	service := setupTestService(t)
	ctx := context.Background()

	first, _ := service.Mint(ctx, "seller", "a", decimal.NewFromInt(1))
	second, _ := service.Mint(ctx, "seller", "b", decimal.NewFromInt(2))
	fund(t, service, "buyer", "10")

	if err := service.BuyAccess(ctx, "buyer", first, decimal.NewFromInt(1)); err != nil {
		t.Fatalf("BuyAccess(first) failed: %v", err)
	}
	if err := service.BuyAccess(ctx, "buyer", second, decimal.NewFromInt(2)); err != nil {
		t.Fatalf("BuyAccess(second) failed: %v", err)
	}

	requireBalance(t, service, "buyer", "7")
	requireBalance(t, service, "seller", "3")
	if err := service.ReconcileBalance(ctx, "buyer"); err != nil {
		t.Errorf("Buyer balance does not reconcile: %v", err)
	}
	if err := service.ReconcileBalance(ctx, "seller"); err != nil {
		t.Errorf("Seller balance does not reconcile: %v", err)
	}
}

func TestBuyAccess_PaysSellerNotOwner(t *testing.T) {
	service := setupTestService(t)
	ctx := context.Background()

	id, _ := service.Mint(ctx, "seller", "cid", decimal.NewFromInt(4))
	if err := service.TransferToken(ctx, "seller", "seller", "holder", id); err != nil {
		t.Fatalf("TransferToken failed: %v", err)
	}
	fund(t, service, "buyer", "4")

	if err := service.BuyAccess(ctx, "buyer", id, decimal.NewFromInt(4)); err != nil {
		t.Fatalf("BuyAccess failed: %v", err)
	}
	requireBalance(t, service, "seller", "4")
	requireBalance(t, service, "holder", "0")
}

func TestBuyAccess_ExternalRail(t *testing.T) {
	rail := &fakeRail{}
	service := setupTestService(t, WithPaymentRail(rail))
	ctx := context.Background()

	id, _ := service.Mint(ctx, "seller", "cid", decimal.NewFromInt(2))

	if err := service.BuyAccess(ctx, "buyer", id, decimal.NewFromInt(2)); err != nil {
		t.Fatalf("BuyAccess failed: %v", err)
	}

	if len(rail.transfers) != 1 {
		t.Fatalf("Expected one rail transfer, got %d", len(rail.transfers))
	}
	got := rail.transfers[0]
	if got.From != "buyer" || got.To != "seller" || !got.Amount.Equal(decimal.NewFromInt(2)) ||
		got.Reference != PurchaseReference(id, "buyer") || got.TokenId != id {
		t.Errorf("Unexpected transfer params: %+v", got)
	}

	purchases, _ := service.GetPurchases(ctx, id)
	if len(purchases) != 1 || purchases[0].SettlementId != "receipt-"+got.Reference {
		t.Errorf("Expected rail receipt as settlement id, got %+v", purchases)
	}

	// The subledger is bypassed entirely
	requireBalance(t, service, "buyer", "0")
	requireBalance(t, service, "seller", "0")
}

func TestBuyAccess_ExternalRailFailure(t *testing.T) {
	rail := &fakeRail{err: errors.New("ledger unavailable")}
	service := setupTestService(t, WithPaymentRail(rail))
	ctx := context.Background()

	id, _ := service.Mint(ctx, "seller", "cid", decimal.NewFromInt(2))

	err := service.BuyAccess(ctx, "buyer", id, decimal.NewFromInt(2))
	if !errors.Is(err, store.ErrTransferFailed) {
		t.Fatalf("Expected ErrTransferFailed, got %v", err)
	}
	if purchased, _ := service.HasUserPurchased(ctx, id, "buyer"); purchased {
		t.Error("Failed rail transfer must not record a purchase")
	}
	if len(rail.reverted) != 0 {
		t.Errorf("Nothing settled so nothing should be reverted, got %v", rail.reverted)
	}

	events, _ := service.GetEvents(ctx, 0, 0)
	for _, e := range events {
		if e.Type == models.EventPurchased {
			t.Errorf("Unexpected purchased event: %+v", e)
		}
	}
}

func TestBuyAccess_CallerCancelledAfterSettlement(t *testing.T) {
	rail := &fakeRail{}
	service := setupTestService(t, WithPaymentRail(rail))

	id, _ := service.Mint(context.Background(), "seller", "cid", decimal.NewFromInt(2))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rail.onTransfer = cancel

	if err := service.BuyAccess(ctx, "buyer", id, decimal.NewFromInt(2)); err == nil {
		t.Fatal("Expected BuyAccess to fail once the caller went away")
	}

	if purchased, _ := service.HasUserPurchased(context.Background(), id, "buyer"); purchased {
		t.Error("Purchase must not be recorded")
	}
	want := "receipt-" + PurchaseReference(id, "buyer")
	if len(rail.reverted) != 1 || rail.reverted[0] != want {
		t.Fatalf("Expected settlement %s to be reverted, got %v", want, rail.reverted)
	}
	if rail.revertErrs[0] != nil {
		t.Errorf("Revert ran on a dead context: %v", rail.revertErrs[0])
	}
}

func TestGetPurchases_UnknownToken(t *testing.T) {
	service := setupTestService(t)

	if _, err := service.GetPurchases(context.Background(), 3); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestHasUserPurchased_Defaults(t *testing.T) {
	service := setupTestService(t)

	purchased, err := service.HasUserPurchased(context.Background(), 99, "anyone")
	if err != nil {
		t.Fatalf("HasUserPurchased failed: %v", err)
	}
	if purchased {
		t.Error("Expected false for unknown token")
	}
}
