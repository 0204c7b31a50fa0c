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

	"file-access-ledger-go/internal/models"

	"go.uber.org/zap"
)

// Balance returns the calling identity's spendable balance
func (s *LedgerService) Balance(ctx context.Context) (*models.IdentityBalance, error) {
	caller := models.CallerFromContext(ctx)
	if caller == "" {
		return nil, ErrUnauthenticated
	}

	balance, err := s.balances.GetBalance(ctx, caller)
	if err != nil {
		zap.L().Error("Failed to get identity balance", zap.String("identity", caller), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve balance")
	}

	return &models.IdentityBalance{Identity: caller, Balance: balance}, nil
}
