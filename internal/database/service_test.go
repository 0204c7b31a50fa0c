package database

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"file-access-ledger-go/internal/models"
	"file-access-ledger-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

func setupTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// Every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)

	service, err := NewServiceFromDB(db, opts...)
	if err != nil {
		db.Close()
		t.Fatalf("Failed to initialize service: %v", err)
	}
	t.Cleanup(service.Close)

	return service
}

func fund(t *testing.T, service *Service, identity string, amount string) {
	t.Helper()
	if _, err := service.Fund(context.Background(), identity, decimal.RequireFromString(amount), "fund-"+identity+"-"+amount); err != nil {
		t.Fatalf("Fund(%s, %s) failed: %v", identity, amount, err)
	}
}

func requireBalance(t *testing.T, service *Service, identity string, want string) {
	t.Helper()
	got, err := service.GetBalance(context.Background(), identity)
	if err != nil {
		t.Fatalf("GetBalance(%s) failed: %v", identity, err)
	}
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Errorf("Expected %s balance %s, got %s", identity, want, got.String())
	}
}

// fakeRail is an in-memory PaymentRail
type fakeRail struct {
	mu         sync.Mutex
	err        error
	onTransfer func()
	transfers  []store.TransferParams
	reverted   []string
	revertErrs []error
}

func (r *fakeRail) Transfer(_ context.Context, params store.TransferParams) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.onTransfer != nil {
		r.onTransfer()
	}
	if r.err != nil {
		return "", r.err
	}
	r.transfers = append(r.transfers, params)
	return "receipt-" + params.Reference, nil
}

func (r *fakeRail) Revert(ctx context.Context, receipt string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reverted = append(r.reverted, receipt)
	r.revertErrs = append(r.revertErrs, ctx.Err())
	return ctx.Err()
}

// recordingPublisher captures published events
type recordingPublisher struct {
	mu     sync.Mutex
	err    error
	events []models.LedgerEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...models.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return p.err
}

func TestNewService_ConfigValidation(t *testing.T) {
	ctx := context.Background()
	valid := models.DatabaseConfig{
		Path:         ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		PingTimeout:  time.Second,
	}

	tests := []struct {
		name   string
		mutate func(*models.DatabaseConfig)
	}{
		{"empty path", func(c *models.DatabaseConfig) { c.Path = "" }},
		{"zero max open conns", func(c *models.DatabaseConfig) { c.MaxOpenConns = 0 }},
		{"negative idle conns", func(c *models.DatabaseConfig) { c.MaxIdleConns = -1 }},
		{"zero ping timeout", func(c *models.DatabaseConfig) { c.PingTimeout = 0 }},
	}
	for _, tt := range tests {
		cfg := valid
		tt.mutate(&cfg)
		if _, err := NewService(ctx, cfg); err == nil {
			t.Errorf("%s: expected error, got nil", tt.name)
		}
	}
}

func TestNewService_SeedsDummyIdentities(t *testing.T) {
	ctx := context.Background()
	service, err := NewService(ctx, models.DatabaseConfig{
		Path:             t.TempDir() + "/ledger.db",
		MaxOpenConns:     1,
		MaxIdleConns:     1,
		PingTimeout:      time.Second,
		CreateDummyUsers: true,
	})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	defer service.Close()

	for _, identity := range dummyIdentities {
		requireBalance(t, service, identity, "100")
	}

	if funded := service.seedDummyIdentities(ctx); funded != 0 {
		t.Errorf("Expected reseeding to fund nobody, funded %d", funded)
	}
	for _, identity := range dummyIdentities {
		requireBalance(t, service, identity, "100")
	}

	total, err := service.TotalMinted(ctx)
	if err != nil {
		t.Fatalf("TotalMinted failed: %v", err)
	}
	if total != 0 {
		t.Errorf("Expected empty ledger, got %d tokens", total)
	}
}

func TestNewServiceFromDB_SchemaCheck(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	defer db.Close()

	if _, err := NewServiceFromDB(db, WithSchemaCheck()); err == nil {
		t.Fatal("Expected an unmigrated database to be refused")
	}

	if _, err := NewServiceFromDB(db); err != nil {
		t.Fatalf("Migration failed: %v", err)
	}

	service, err := NewServiceFromDB(db, WithSchemaCheck())
	if err != nil {
		t.Fatalf("Expected current schema to pass the check: %v", err)
	}
	if _, err := service.TotalMinted(context.Background()); err != nil {
		t.Errorf("TotalMinted failed: %v", err)
	}
}

func TestFund_RejectsInvalidInput(t *testing.T) {
	service := setupTestService(t)
	ctx := context.Background()

	if _, err := service.Fund(ctx, "", decimal.NewFromInt(1), "x"); !errors.Is(err, store.ErrInvalidRecipient) {
		t.Errorf("Expected ErrInvalidRecipient, got %v", err)
	}
	if _, err := service.Fund(ctx, "alice", decimal.Zero, "y"); !errors.Is(err, store.ErrInvalidAmount) {
		t.Errorf("Expected ErrInvalidAmount, got %v", err)
	}
}
