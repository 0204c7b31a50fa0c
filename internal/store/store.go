package store

import (
	"context"
	"errors"

	"file-access-ledger-go/internal/models"

	"github.com/shopspring/decimal"
)

// NoSeller marks a token without an effective seller.
const NoSeller = ""

// Sentinel errors shared across all backend implementations.
var (
	ErrNotFound          = errors.New("token not found")
	ErrInvalidSeller     = errors.New("invalid seller")
	ErrSelfPurchase      = errors.New("cannot buy your own file")
	ErrIncorrectPrice    = errors.New("incorrect price")
	ErrAlreadyPurchased  = errors.New("already purchased")
	ErrTransferFailed    = errors.New("value transfer failed")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotOwner          = errors.New("caller is not the token owner")
	ErrInvalidRecipient  = errors.New("invalid recipient")
	ErrInvalidAmount     = errors.New("invalid amount")
)

// TransferParams describes one value movement requested by a purchase.
type TransferParams struct {
	From      string
	To        string
	Amount    decimal.Decimal
	Reference string // unique per (token, buyer)
	TokenId   int64
}

// PaymentRail moves value between identities outside the ledger database.
// Transfer returns a receipt that Revert accepts when the surrounding
// purchase could not be committed.
type PaymentRail interface {
	Transfer(ctx context.Context, params TransferParams) (string, error)
	Revert(ctx context.Context, receipt string) error
}

// EventPublisher receives notifications after they have been committed.
type EventPublisher interface {
	Publish(ctx context.Context, events ...models.LedgerEvent) error
}

// LedgerStore defines the contract that every backend must satisfy.
type LedgerStore interface {
	// --- Mutations ---
	Mint(ctx context.Context, caller, contentId string, price decimal.Decimal) (int64, error)
	BuyAccess(ctx context.Context, caller string, tokenId int64, paid decimal.Decimal) error
	TransferToken(ctx context.Context, caller, from, to string, tokenId int64) error

	// --- Queries ---
	GetToken(ctx context.Context, tokenId int64) (*models.Token, error)
	TokenPrice(ctx context.Context, tokenId int64) (decimal.Decimal, error)
	TokenSeller(ctx context.Context, tokenId int64) (string, error)
	TokenContentId(ctx context.Context, tokenId int64) (string, error)
	OwnerOf(ctx context.Context, tokenId int64) (string, error)
	TotalMinted(ctx context.Context) (int64, error)
	HasUserPurchased(ctx context.Context, tokenId int64, identity string) (bool, error)
	TokensOfOwner(ctx context.Context, identity string) ([]int64, error)
	GetPurchases(ctx context.Context, tokenId int64) ([]models.Purchase, error)
	GetEvents(ctx context.Context, afterSeq int64, limit int) ([]models.LedgerEvent, error)

	// --- Lifecycle ---
	Close()
}
