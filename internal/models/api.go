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

package models

import "github.com/shopspring/decimal"

// MintRequest is the body of POST /v1/tokens
type MintRequest struct {
	ContentId string          `json:"contentId"`
	Price     decimal.Decimal `json:"price"`
}

// MintResult is returned after a successful mint
type MintResult struct {
	TokenId int64 `json:"tokenId"`
}

// PurchaseRequest is the body of POST /v1/tokens/{id}/purchase
type PurchaseRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// TransferRequest is the body of POST /v1/tokens/{id}/transfer
type TransferRequest struct {
	From string `json:"from" validate:"required"`
	To   string `json:"to" validate:"required"`
}

// PurchaseStatus answers hasUserPurchased
type PurchaseStatus struct {
	TokenId   int64  `json:"tokenId"`
	Identity  string `json:"identity"`
	Purchased bool   `json:"purchased"`
}

// OwnedTokens lists the ids an identity currently owns
type OwnedTokens struct {
	Identity string  `json:"identity"`
	TokenIds []int64 `json:"tokenIds"`
}

// LedgerStats carries global counters
type LedgerStats struct {
	TotalMinted int64 `json:"totalMinted"`
}

// IdentityBalance represents an identity's spendable balance
type IdentityBalance struct {
	Identity string          `json:"identity"`
	Balance  decimal.Decimal `json:"balance"`
}
