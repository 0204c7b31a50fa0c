package common

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"file-access-ledger-go/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
)

func testConfig(t *testing.T) *models.Config {
	return &models.Config{
		Database: models.DatabaseConfig{
			Path:         filepath.Join(t.TempDir(), "ledger.db"),
			MaxOpenConns: 1,
			MaxIdleConns: 1,
			PingTimeout:  time.Second,
		},
		Payments: models.PaymentsConfig{Rail: models.RailSQLite},
	}
}

func TestInitializeServices_SeedAccounts(t *testing.T) {
	ctx := context.Background()
	services, err := InitializeServices(ctx, testConfig(t))
	if err != nil {
		t.Fatalf("InitializeServices failed: %v", err)
	}
	defer services.Close()

	seeds := []AccountSeed{
		{Identity: "alice", Amount: decimal.NewFromInt(10)},
		{Identity: "bob", Amount: decimal.NewFromInt(5)},
	}

	funded, err := services.SeedAccounts(ctx, seeds)
	if err != nil || funded != 2 {
		t.Fatalf("SeedAccounts = %d, %v; want 2, nil", funded, err)
	}

	// Re-running setup must not double fund
	funded, err = services.SeedAccounts(ctx, seeds)
	if err != nil || funded != 0 {
		t.Fatalf("second SeedAccounts = %d, %v; want 0, nil", funded, err)
	}

	balance, err := services.Balances().GetBalance(ctx, "alice")
	if err != nil || !balance.Equal(decimal.NewFromInt(10)) {
		t.Errorf("alice balance = %s, %v; want 10", balance.String(), err)
	}
}

func TestInitializeServices_WithRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()

	cfg := testConfig(t)
	cfg.Redis = models.RedisConfig{Enabled: true, Addr: mr.Addr(), Channel: "test:events", Backlog: 10}

	ctx := context.Background()
	services, err := InitializeServices(ctx, cfg)
	if err != nil {
		t.Fatalf("InitializeServices failed: %v", err)
	}
	defer services.Close()

	if _, err := services.DbService.Mint(ctx, "seller", "cid", decimal.NewFromInt(1)); err != nil {
		t.Fatalf("Mint failed: %v", err)
	}

	recent, err := services.Publisher.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recent) != 1 || recent[0].Type != models.EventMinted {
		t.Errorf("Expected minted event in backlog, got %+v", recent)
	}
}

func TestInitializeServices_RedisUnavailable(t *testing.T) {
	cfg := testConfig(t)
	cfg.Redis = models.RedisConfig{Enabled: true, Addr: "127.0.0.1:1"}

	if _, err := InitializeServices(context.Background(), cfg); err == nil {
		t.Error("Expected error when redis is unreachable")
	}
}
