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

const (
	counterTotalMinted = "total_minted"

	// Counter queries
	queryGetCounter = `
		SELECT value FROM ledger_counters WHERE name = ?`

	queryAdvanceCounter = `
		UPDATE ledger_counters SET value = value + 1 WHERE name = ? AND value = ?`

	// Token queries
	queryInsertToken = `
		INSERT INTO tokens (id, content_id, price, seller, owner, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	queryGetToken = `
		SELECT id, content_id, price, seller, owner, created_at, updated_at
		FROM tokens
		WHERE id = ?`

	queryUpdateTokenOwner = `
		UPDATE tokens SET owner = ?, updated_at = ? WHERE id = ? AND owner = ?`

	// Owner index queries
	queryAppendOwnerIndex = `
		INSERT INTO owner_index (identity, token_id) VALUES (?, ?)`

	queryRemoveOwnerIndex = `
		DELETE FROM owner_index WHERE identity = ? AND token_id = ?`

	queryGetTokensOfOwner = `
		SELECT token_id FROM owner_index WHERE identity = ? ORDER BY seq`

	// Purchase queries
	queryCheckPurchase = `
		SELECT 1 FROM purchases WHERE token_id = ? AND buyer = ? LIMIT 1`

	queryInsertPurchase = `
		INSERT INTO purchases (token_id, buyer, seller, price, settlement_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	queryGetPurchases = `
		SELECT token_id, buyer, seller, price, settlement_id, created_at
		FROM purchases
		WHERE token_id = ?
		ORDER BY created_at, buyer`

	// Event queries
	queryInsertEvent = `
		INSERT INTO ledger_events (event_type, token_id, seller, buyer, from_identity, to_identity, content_id, price, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetEvents = `
		SELECT seq, event_type, token_id, seller, buyer, from_identity, to_identity, content_id, price, created_at
		FROM ledger_events
		WHERE seq > ?
		ORDER BY seq
		LIMIT ?`

	// Balance queries
	queryGetBalance = `
		SELECT balance
		FROM account_balances
		WHERE identity = ?`

	queryGetAllBalances = `
		SELECT id, identity, balance, last_transaction_id, version, updated_at
		FROM account_balances
		ORDER BY identity`

	queryReconcileBalance = `
		SELECT amount
		FROM transactions
		WHERE identity = ? AND status = 'confirmed'`

	// Transaction queries
	queryCheckDuplicateTransaction = `
		SELECT id FROM transactions WHERE reference = ? AND identity = ? LIMIT 1`

	queryGetAccountBalance = `
		SELECT id, balance, version
		FROM account_balances
		WHERE identity = ?`

	queryInsertAccountBalance = `
		INSERT INTO account_balances (id, identity, balance, version, updated_at)
		VALUES (?, ?, ?, ?, ?)`

	queryInsertTransaction = `
		INSERT INTO transactions (
			id, identity, transaction_type, amount, balance_before, balance_after,
			reference, counterparty, status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryUpdateAccountBalance = `
		UPDATE account_balances
		SET balance = ?, last_transaction_id = ?, version = version + 1, updated_at = ?
		WHERE identity = ? AND version = ?`

	queryInsertJournalEntry = `
		INSERT INTO journal_entries (id, transaction_id, account_type, account_id, debit_amount, credit_amount)
		VALUES (?, ?, ?, ?, ?, ?)`

	queryGetTransactionHistory = `
		SELECT id, identity, transaction_type, amount, balance_before, balance_after,
		       reference, counterparty, status, created_at
		FROM transactions
		WHERE identity = ?
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?`
)
