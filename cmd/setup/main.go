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

	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	accountsFlag := flag.String("accounts", "", "Accounts file to seed (defaults to ACCOUNTS_FILE)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	accountsFile := cfg.Payments.AccountsFile
	if *accountsFlag != "" {
		accountsFile = *accountsFlag
	}

	logger.Info("Loading accounts", zap.String("file", accountsFile))
	seeds, err := common.LoadAccountsConfig(accountsFile)
	if err != nil {
		logger.Fatal("Failed to load accounts config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	funded, err := services.SeedAccounts(ctx, seeds)
	if err != nil {
		logger.Error("Setup stopped early", zap.Int("funded", funded), zap.Error(err))
		services.Close()
		loggerCleanup()
		os.Exit(1)
	}

	common.PrintFooter(os.Stdout, fmt.Sprintf("SETUP COMPLETE: %d of %d accounts funded on the %s rail",
		funded, len(seeds), cfg.Payments.Rail), common.DefaultWidth)
}
