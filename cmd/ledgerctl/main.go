package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"file-access-ledger-go/internal/common"
	"file-access-ledger-go/internal/config"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var callerFlag string

func main() {
	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		loggerCleanup()
		os.Exit(1)
	}
}

// newServices loads the config and wires the ledger. The caller must defer services.Close().
func newServices(ctx context.Context) (*common.Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing services: %w", err)
	}
	return services, nil
}

// withServices runs fn against freshly initialized services.
func withServices(cmd *cobra.Command, fn func(ctx context.Context, services *common.Services) error) error {
	ctx := cmd.Context()
	services, err := newServices(ctx)
	if err != nil {
		return err
	}
	defer services.Close()
	return fn(ctx, services)
}

func requireCaller() (string, error) {
	if callerFlag == "" {
		return "", fmt.Errorf("--as is required for this command")
	}
	return callerFlag, nil
}

func parseTokenId(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("invalid token id %q", arg)
	}
	return id, nil
}

func parseAmount(arg string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(arg)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", arg, err)
	}
	return amount, nil
}

// printJSON pretty-prints for terminals and emits one compact line otherwise
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

var rootCmd = &cobra.Command{
	Use:           "ledgerctl",
	Short:         "Operate the file access ledger",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&callerFlag, "as", "", "Identity performing the operation")

	rootCmd.AddCommand(mintCmd, buyCmd, transferCmd)
	rootCmd.AddCommand(tokenCmd, tokensCmd, purchasedCmd, purchasesCmd, statsCmd, eventsCmd)
	rootCmd.AddCommand(balanceCmd, fundCmd, issueTokenCmd, watchCmd)

	eventsCmd.Flags().Int64("after", 0, "Only events with a sequence number above this")
	eventsCmd.Flags().Int("limit", 100, "Maximum number of events")
	fundCmd.Flags().String("ref", "", "Idempotency reference (defaults to a generated one)")
	issueTokenCmd.Flags().Duration("ttl", 0, "Token lifetime (defaults to JWT_TOKEN_TTL)")
}
