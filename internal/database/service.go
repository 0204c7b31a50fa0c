/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"file-access-ledger-go/internal/database/migrations"
	"file-access-ledger-go/internal/models"
	"file-access-ledger-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.LedgerStore.
var _ store.LedgerStore = (*Service)(nil)

// Service is the SQLite-backed ledger. Mutations are serialized through writeMu
// and each one runs in a single SQL transaction.
type Service struct {
	db        *sql.DB
	subledger *SubledgerService
	rail      store.PaymentRail
	publisher store.EventPublisher
	writeMu   sync.Mutex

	checkOnly bool
}

// Option customizes a Service
type Option func(*Service)

// WithPaymentRail settles purchases through an external rail instead of the
// built-in subledger.
func WithPaymentRail(rail store.PaymentRail) Option {
	return func(s *Service) { s.rail = rail }
}

// WithSchemaCheck refuses a database whose schema is not at the latest version
// instead of migrating it. Used by read-only tools.
func WithSchemaCheck() Option {
	return func(s *Service) { s.checkOnly = true }
}

// WithPublisher forwards committed events to publisher.
func WithPublisher(publisher store.EventPublisher) Option {
	return func(s *Service) { s.publisher = publisher }
}

var dummyIdentities = []string{"alice", "bob", "carol"}

func NewService(ctx context.Context, cfg models.DatabaseConfig, opts ...Option) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			zap.L().Warn("Failed to close database after ping failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service, err := NewServiceFromDB(db, opts...)
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			zap.L().Warn("Failed to close database after schema failure", zap.Error(closeErr))
		}
		return nil, err
	}

	if cfg.CreateDummyUsers {
		service.seedDummyIdentities(ctx)
	} else {
		zap.L().Info("Skipping dummy identity funding (CREATE_DUMMY_USERS=false)")
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

// NewServiceFromDB wraps an already opened database and brings its schema up to date.
func NewServiceFromDB(db *sql.DB, opts ...Option) (*Service, error) {
	service := &Service{db: db, subledger: NewSubledgerService(db)}
	for _, opt := range opts {
		opt(service)
	}

	if service.checkOnly {
		if err := migrations.CheckDBMigrationStatus(db); err != nil {
			return nil, fmt.Errorf("schema is not current: %w", err)
		}
		return service, nil
	}
	if err := migrations.MigrateUp(db); err != nil {
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}
	return service, nil
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

// Ping reports whether the database is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// seedDummyIdentities funds each dummy identity once and returns how many were funded.
func (s *Service) seedDummyIdentities(ctx context.Context) int {
	amount := decimal.NewFromInt(100)
	funded := 0
	for _, identity := range dummyIdentities {
		_, err := s.Fund(ctx, identity, amount, "seed-"+identity)
		if errors.Is(err, ErrDuplicateTransaction) {
			zap.L().Info("Dummy identity already seeded", zap.String("identity", identity))
			continue
		}
		if err != nil {
			zap.L().Error("Failed to fund dummy identity", zap.String("identity", identity), zap.Error(err))
			continue
		}
		funded++
		zap.L().Info("Dummy identity funded", zap.String("identity", identity), zap.String("amount", amount.String()))
	}
	return funded
}

// Subledger convenience methods

// Fund credits identity from outside the ledger. reference makes the deposit idempotent.
func (s *Service) Fund(ctx context.Context, identity string, amount decimal.Decimal, reference string) (*models.Transaction, error) {
	if identity == "" {
		return nil, fmt.Errorf("%w: identity is required", store.ErrInvalidRecipient)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: deposit amount must be positive, got %s", store.ErrInvalidAmount, amount.String())
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.subledger.ProcessTransaction(ctx, ProcessTransactionParams{
		Identity:        identity,
		TransactionType: TxTypeDeposit,
		Amount:          amount,
		Reference:       reference,
	})
}

func (s *Service) GetBalance(ctx context.Context, identity string) (decimal.Decimal, error) {
	return s.subledger.GetBalance(ctx, identity)
}

func (s *Service) GetAllBalances(ctx context.Context) ([]models.AccountBalance, error) {
	return s.subledger.GetAllBalances(ctx)
}

func (s *Service) GetTransactionHistory(ctx context.Context, identity string, limit, offset int) ([]models.Transaction, error) {
	return s.subledger.GetTransactionHistory(ctx, identity, limit, offset)
}

func (s *Service) ReconcileBalance(ctx context.Context, identity string) error {
	return s.subledger.ReconcileBalance(ctx, identity)
}
