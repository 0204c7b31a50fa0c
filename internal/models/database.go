package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Token is one registered file and its sale terms
type Token struct {
	Id        int64           `db:"id" json:"id"`
	ContentId string          `db:"content_id" json:"contentId"`
	Price     decimal.Decimal `db:"price" json:"price"`
	Seller    string          `db:"seller" json:"seller"`
	Owner     string          `db:"owner" json:"owner"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time       `db:"updated_at" json:"updatedAt"`
}

// EffectiveSeller is the identity that can be paid for access. A zero price
// leaves the token without one, which makes it unpurchasable.
func (t Token) EffectiveSeller() string {
	if t.Price.IsZero() {
		return ""
	}
	return t.Seller
}

// Purchase is a permanent (token, buyer) access grant
type Purchase struct {
	TokenId      int64           `db:"token_id" json:"tokenId"`
	Buyer        string          `db:"buyer" json:"buyer"`
	Seller       string          `db:"seller" json:"seller"`
	Price        decimal.Decimal `db:"price" json:"price"`
	SettlementId string          `db:"settlement_id" json:"settlementId"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
}

const (
	EventMinted           = "minted"
	EventPurchased        = "purchased"
	EventOwnershipChanged = "ownership_changed"
)

// LedgerEvent is an append-only notification emitted by a successful mutation
type LedgerEvent struct {
	Seq       int64           `db:"seq" json:"seq"`
	Type      string          `db:"event_type" json:"type"`
	TokenId   int64           `db:"token_id" json:"tokenId"`
	Seller    string          `db:"seller" json:"seller,omitempty"`
	Buyer     string          `db:"buyer" json:"buyer,omitempty"`
	From      string          `db:"from_identity" json:"from,omitempty"`
	To        string          `db:"to_identity" json:"to,omitempty"`
	ContentId string          `db:"content_id" json:"contentId,omitempty"`
	Price     decimal.Decimal `db:"price" json:"price"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
}

// AccountBalance represents current balance state (hot data)
type AccountBalance struct {
	Id                string          `db:"id"`
	Identity          string          `db:"identity"`
	Balance           decimal.Decimal `db:"balance"`
	LastTransactionId string          `db:"last_transaction_id"`
	Version           int64           `db:"version"`
	UpdatedAt         time.Time       `db:"updated_at"`
}

// Transaction represents immutable value-transfer history (cold data)
type Transaction struct {
	Id              string          `db:"id"`
	Identity        string          `db:"identity"`
	TransactionType string          `db:"transaction_type"`
	Amount          decimal.Decimal `db:"amount"`
	BalanceBefore   decimal.Decimal `db:"balance_before"`
	BalanceAfter    decimal.Decimal `db:"balance_after"`
	Reference       string          `db:"reference"`
	Counterparty    string          `db:"counterparty"`
	Status          string          `db:"status"`
	CreatedAt       time.Time       `db:"created_at"`
}
