package common

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

// AccountConfig is one identity to fund during setup
type AccountConfig struct {
	Identity string `yaml:"identity"`
	Amount   string `yaml:"amount"`
}

type AccountsConfig struct {
	Accounts []AccountConfig `yaml:"accounts"`
}

// AccountSeed is a validated AccountConfig
type AccountSeed struct {
	Identity string
	Amount   decimal.Decimal
}

func LoadAccountsConfig(accountsFile string) ([]AccountSeed, error) {
	var accountsPath string
	if filepath.IsAbs(accountsFile) {
		accountsPath = accountsFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		accountsPath = filepath.Join(wd, accountsFile)
	}

	data, err := os.ReadFile(accountsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", accountsFile, err)
	}

	return ParseAccountsConfig(data)
}

func ParseAccountsConfig(data []byte) ([]AccountSeed, error) {
	var config AccountsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse accounts: %w", err)
	}

	seen := make(map[string]bool, len(config.Accounts))
	seeds := make([]AccountSeed, 0, len(config.Accounts))
	for i, account := range config.Accounts {
		if account.Identity == "" {
			return nil, fmt.Errorf("account at index %d missing identity", i)
		}
		if seen[account.Identity] {
			return nil, fmt.Errorf("account %q listed more than once", account.Identity)
		}
		seen[account.Identity] = true

		amount, err := decimal.NewFromString(account.Amount)
		if err != nil {
			return nil, fmt.Errorf("account %q has invalid amount %q: %w", account.Identity, account.Amount, err)
		}
		if !amount.IsPositive() {
			return nil, fmt.Errorf("account %q amount must be positive, got %s", account.Identity, amount.String())
		}
		seeds = append(seeds, AccountSeed{Identity: account.Identity, Amount: amount})
	}

	return seeds, nil
}
