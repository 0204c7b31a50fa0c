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

package api

import (
	"context"
	"fmt"

	"file-access-ledger-go/internal/store"

	"github.com/shopspring/decimal"
)

// BalanceReader reports the spendable balance of an identity on the active payment rail
type BalanceReader interface {
	GetBalance(ctx context.Context, identity string) (decimal.Decimal, error)
}

// Pinger is implemented by stores that can check their backing connection
type Pinger interface {
	Ping(ctx context.Context) error
}

// LedgerService validates requests and forwards them to the ledger store
type LedgerService struct {
	store    store.LedgerStore
	balances BalanceReader
}

func NewLedgerService(ledger store.LedgerStore, balances BalanceReader) *LedgerService {
	return &LedgerService{
		store:    ledger,
		balances: balances,
	}
}

func (s *LedgerService) HealthCheck(ctx context.Context) error {
	if p, ok := s.store.(Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("database health check failed: %w", err)
		}
		return nil
	}
	if _, err := s.store.TotalMinted(ctx); err != nil {
		return fmt.Errorf("ledger health check failed: %w", err)
	}
	return nil
}
