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

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"file-access-ledger-go/internal/common"
	"file-access-ledger-go/internal/config"
	"file-access-ledger-go/internal/database"
	"file-access-ledger-go/internal/models"

	"go.uber.org/zap"
)

type balanceStats struct {
	identities    int
	reconciled    int
	mismatches    int
	tokensTracked int
}

func formatTransactionId(txId string) string {
	if txId == "" {
		return "none"
	}
	if len(txId) > 8 {
		return txId[:8] + "..."
	}
	return txId
}

func balanceItem(ctx context.Context, dbService *database.Service, balance models.AccountBalance, reconcile bool, stats *balanceStats) common.TreeItem {
	details := []string{
		fmt.Sprintf("balance: %s (v%d, last_tx: %s, updated: %s)",
			balance.Balance.String(),
			balance.Version,
			formatTransactionId(balance.LastTransactionId),
			balance.UpdatedAt.Format("2006-01-02 15:04:05")),
	}

	owned, err := dbService.TokensOfOwner(ctx, balance.Identity)
	if err != nil {
		zap.L().Error("Failed to list owned tokens", zap.String("identity", balance.Identity), zap.Error(err))
	} else {
		details = append(details, fmt.Sprintf("owns: %v", owned))
		stats.tokensTracked += len(owned)
	}

	if reconcile {
		if err := dbService.ReconcileBalance(ctx, balance.Identity); err != nil {
			stats.mismatches++
			details = append(details, "reconcile: MISMATCH ("+err.Error()+")")
		} else {
			stats.reconciled++
			details = append(details, "reconcile: ok")
		}
	}

	return common.TreeItem{Label: balance.Identity, Details: details}
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	identityFlag := flag.String("identity", "", "Filter by a single identity (optional)")
	reconcileFlag := flag.Bool("reconcile", false, "Verify each balance against its transaction history")
	flag.Parse()

	logger.Info("Starting balance query")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Reports never write, so the schema must already be current
	cfg.Database.CreateDummyUsers = false
	logger.Info("Connecting to database", zap.String("path", cfg.Database.Path))
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg, database.WithSchemaCheck())
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	balances, err := dbService.GetAllBalances(ctx)
	if err != nil {
		logger.Fatal("Failed to load balances", zap.Error(err))
	}

	stats := balanceStats{}
	var items []common.TreeItem
	for _, balance := range balances {
		if *identityFlag != "" && balance.Identity != *identityFlag {
			continue
		}
		stats.identities++
		items = append(items, balanceItem(ctx, dbService, balance, *reconcileFlag, &stats))
	}

	common.PrintHeader(os.Stdout, "IDENTITY BALANCE REPORT", common.DefaultWidth)
	common.PrintTree(os.Stdout, items)

	total, err := dbService.TotalMinted(ctx)
	if err != nil {
		logger.Error("Failed to read total minted", zap.Error(err))
	}

	summary := fmt.Sprintf("SUMMARY: %d identities, %d tokens held of %d minted", stats.identities, stats.tokensTracked, total)
	if *reconcileFlag {
		summary += fmt.Sprintf(", %d reconciled, %d mismatched", stats.reconciled, stats.mismatches)
	}
	common.PrintFooter(os.Stdout, summary, common.DefaultWidth)

	logger.Info("Balance query completed",
		zap.Int("identities", stats.identities),
		zap.Int("mismatches", stats.mismatches))

	if stats.mismatches > 0 {
		os.Exit(1)
	}
}
