package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"file-access-ledger-go/internal/models"
	"file-access-ledger-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProcessTransactionParams contains the parameters for processing a transaction
type ProcessTransactionParams struct {
	Identity        string
	TransactionType string
	Amount          decimal.Decimal
	Reference       string
	Counterparty    string
	// RequireFunds rejects the transaction when it would leave a negative balance
	RequireFunds bool
}

// ProcessTransaction atomically updates balance and records transaction
func (s *SubledgerService) ProcessTransaction(ctx context.Context, params ProcessTransactionParams) (*models.Transaction, error) {
	zap.L().Info("Processing transaction",
		zap.String("identity", params.Identity),
		zap.String("type", params.TransactionType),
		zap.String("amount", params.Amount.String()),
		zap.String("reference", params.Reference))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Check for duplicate reference
	if params.Reference != "" {
		var existingTxId string
		err := tx.QueryRowContext(ctx, queryCheckDuplicateTransaction, params.Reference, params.Identity).Scan(&existingTxId)
		if err == nil {
			zap.L().Warn("Duplicate reference detected, skipping",
				zap.String("reference", params.Reference),
				zap.String("existing_tx_id", existingTxId))
			return nil, fmt.Errorf("%w: reference %s already exists", ErrDuplicateTransaction, params.Reference)
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to check for duplicate transaction: %w", err)
		}
	}

	transaction, err := s.applyTransaction(ctx, tx, params)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Transaction processed successfully",
		zap.String("transaction_id", transaction.Id),
		zap.String("identity", params.Identity),
		zap.String("old_balance", transaction.BalanceBefore.String()),
		zap.String("new_balance", transaction.BalanceAfter.String()))

	return transaction, nil
}

// transferTx moves value between two identities inside an open transaction and
// returns the id of the debit leg. Nothing is persisted unless the caller commits.
func (s *SubledgerService) transferTx(ctx context.Context, tx *sql.Tx, params store.TransferParams) (string, error) {
	if !params.Amount.IsPositive() {
		return "", fmt.Errorf("%w: transfer amount must be positive, got %s", store.ErrInvalidAmount, params.Amount.String())
	}

	debit, err := s.applyTransaction(ctx, tx, ProcessTransactionParams{
		Identity:        params.From,
		TransactionType: TxTypePurchaseDebit,
		Amount:          params.Amount.Neg(),
		Reference:       params.Reference,
		Counterparty:    params.To,
		RequireFunds:    true,
	})
	if err != nil {
		return "", err
	}

	_, err = s.applyTransaction(ctx, tx, ProcessTransactionParams{
		Identity:        params.To,
		TransactionType: TxTypePurchaseCredit,
		Amount:          params.Amount,
		Reference:       params.Reference,
		Counterparty:    params.From,
	})
	if err != nil {
		return "", err
	}

	return debit.Id, nil
}

// applyTransaction updates one identity's balance and records the movement
func (s *SubledgerService) applyTransaction(ctx context.Context, tx *sql.Tx, params ProcessTransactionParams) (*models.Transaction, error) {
	var currentBalanceStr string
	var accountId string
	var version int64
	now := time.Now().UTC()

	err := tx.QueryRowContext(ctx, queryGetAccountBalance, params.Identity).Scan(&accountId, &currentBalanceStr, &version)

	var currentBalance decimal.Decimal
	if errors.Is(err, sql.ErrNoRows) {
		// Create new account balance record
		accountId = uuid.New().String()
		currentBalance = decimal.Zero
		version = 1

		_, err = tx.ExecContext(ctx, queryInsertAccountBalance, accountId, params.Identity, "0", 1, now)
		if err != nil {
			return nil, fmt.Errorf("failed to create account balance: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to get current balance: %w", err)
	} else {
		currentBalance, err = decimal.NewFromString(currentBalanceStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse current balance '%s': %w", currentBalanceStr, err)
		}
	}

	newBalance := currentBalance.Add(params.Amount)
	if params.RequireFunds && newBalance.IsNegative() {
		zap.L().Warn("Insufficient funds",
			zap.String("identity", params.Identity),
			zap.String("balance", currentBalance.String()),
			zap.String("amount", params.Amount.Neg().String()))
		return nil, fmt.Errorf("%w: %w: balance %s, required %s",
			store.ErrTransferFailed, store.ErrInsufficientFunds, currentBalance.String(), params.Amount.Neg().String())
	}

	transaction := &models.Transaction{
		Id:              uuid.New().String(),
		Identity:        params.Identity,
		TransactionType: params.TransactionType,
		Amount:          params.Amount,
		BalanceBefore:   currentBalance,
		BalanceAfter:    newBalance,
		Reference:       params.Reference,
		Counterparty:    params.Counterparty,
		Status:          "confirmed",
		CreatedAt:       now,
	}

	_, err = tx.ExecContext(ctx, queryInsertTransaction,
		transaction.Id, transaction.Identity, transaction.TransactionType,
		transaction.Amount.String(), transaction.BalanceBefore.String(), transaction.BalanceAfter.String(),
		transaction.Reference, transaction.Counterparty, transaction.Status, transaction.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert transaction: %w", err)
	}

	// Update account balance (with optimistic locking)
	result, err := tx.ExecContext(ctx, queryUpdateAccountBalance, newBalance.String(), transaction.Id, now, params.Identity, version)
	if err != nil {
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("balance update failed - %w", ErrConcurrentModification)
	}

	if err := s.addJournalEntries(ctx, tx, transaction); err != nil {
		return nil, fmt.Errorf("failed to add journal entries: %w", err)
	}

	return transaction, nil
}

type journalEntry struct {
	accountType  string
	accountId    string
	debitAmount  decimal.Decimal
	creditAmount decimal.Decimal
}

// addJournalEntries creates double-entry bookkeeping entries
func (s *SubledgerService) addJournalEntries(ctx context.Context, tx *sql.Tx, transaction *models.Transaction) error {
	var entries []journalEntry

	switch transaction.TransactionType {
	case TxTypeDeposit:
		// Identity balance increases, funded from outside the ledger
		entries = append(entries,
			journalEntry{"identity_balance", transaction.Identity, transaction.Amount, decimal.Zero},
			journalEntry{"external_funding", "deposits", decimal.Zero, transaction.Amount})

	case TxTypePurchaseDebit:
		// Buyer balance decreases into the purchase clearing account
		entries = append(entries,
			journalEntry{"identity_balance", transaction.Identity, decimal.Zero, transaction.Amount.Neg()},
			journalEntry{"purchase_clearing", transaction.Reference, transaction.Amount.Neg(), decimal.Zero})

	case TxTypePurchaseCredit:
		// Clearing account settles to the seller
		entries = append(entries,
			journalEntry{"purchase_clearing", transaction.Reference, decimal.Zero, transaction.Amount},
			journalEntry{"identity_balance", transaction.Identity, transaction.Amount, decimal.Zero})
	}

	for _, entry := range entries {
		_, err := tx.ExecContext(ctx, queryInsertJournalEntry,
			uuid.New().String(), transaction.Id, entry.accountType, entry.accountId,
			entry.debitAmount.String(), entry.creditAmount.String())
		if err != nil {
			return err
		}
	}

	return nil
}

// GetTransactionHistory returns paginated transaction history for an identity
func (s *SubledgerService) GetTransactionHistory(ctx context.Context, identity string, limit, offset int) ([]models.Transaction, error) {
	zap.L().Debug("Getting transaction history",
		zap.String("identity", identity),
		zap.Int("limit", limit),
		zap.Int("offset", offset))

	rows, err := s.db.QueryContext(ctx, queryGetTransactionHistory, identity, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction history: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var transactions []models.Transaction
	for rows.Next() {
		var tx models.Transaction
		var amountStr, balanceBeforeStr, balanceAfterStr string
		err := rows.Scan(&tx.Id, &tx.Identity, &tx.TransactionType,
			&amountStr, &balanceBeforeStr, &balanceAfterStr,
			&tx.Reference, &tx.Counterparty, &tx.Status, &tx.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		if tx.Amount, err = decimal.NewFromString(amountStr); err != nil {
			return nil, fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
		}
		if tx.BalanceBefore, err = decimal.NewFromString(balanceBeforeStr); err != nil {
			return nil, fmt.Errorf("failed to parse balance before '%s': %w", balanceBeforeStr, err)
		}
		if tx.BalanceAfter, err = decimal.NewFromString(balanceAfterStr); err != nil {
			return nil, fmt.Errorf("failed to parse balance after '%s': %w", balanceAfterStr, err)
		}

		transactions = append(transactions, tx)
	}

	if err := rows.Err(); err != nil {
		zap.L().Error("Error during transaction row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}

	return transactions, nil
}
