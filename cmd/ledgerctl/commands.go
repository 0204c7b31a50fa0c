package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"file-access-ledger-go/internal/auth"
	"file-access-ledger-go/internal/common"
	"file-access-ledger-go/internal/config"
	"file-access-ledger-go/internal/models"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var mintCmd = &cobra.Command{
	Use:   "mint <content-id> <price>",
	Short: "Register a file for sale",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		caller, err := requireCaller()
		if err != nil {
			return err
		}
		price, err := parseAmount(args[1])
		if err != nil {
			return err
		}
		return withServices(cmd, func(ctx context.Context, services *common.Services) error {
			id, err := services.DbService.Mint(ctx, caller, args[0], price)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), models.MintResult{TokenId: id})
		})
	},
}

var buyCmd = &cobra.Command{
	Use:   "buy <token-id> <amount>",
	Short: "Purchase access to a file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		caller, err := requireCaller()
		if err != nil {
			return err
		}
		id, err := parseTokenId(args[0])
		if err != nil {
			return err
		}
		amount, err := parseAmount(args[1])
		if err != nil {
			return err
		}
		return withServices(cmd, func(ctx context.Context, services *common.Services) error {
			if err := services.DbService.BuyAccess(ctx, caller, id, amount); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), models.PurchaseStatus{TokenId: id, Identity: caller, Purchased: true})
		})
	},
}

var transferCmd = &cobra.Command{
	Use:   "transfer <token-id> <to>",
	Short: "Move ownership of a token you own",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		caller, err := requireCaller()
		if err != nil {
			return err
		}
		id, err := parseTokenId(args[0])
		if err != nil {
			return err
		}
		return withServices(cmd, func(ctx context.Context, services *common.Services) error {
			if err := services.DbService.TransferToken(ctx, caller, caller, args[1], id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "token %d transferred from %s to %s\n", id, caller, args[1])
			return nil
		})
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token <token-id>",
	Short: "Show a token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseTokenId(args[0])
		if err != nil {
			return err
		}
		return withServices(cmd, func(ctx context.Context, services *common.Services) error {
			token, err := services.DbService.GetToken(ctx, id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), token)
		})
	},
}

var tokensCmd = &cobra.Command{
	Use:   "tokens <identity>",
	Short: "List the tokens an identity owns",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, services *common.Services) error {
			ids, err := services.DbService.TokensOfOwner(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), models.OwnedTokens{Identity: args[0], TokenIds: ids})
		})
	},
}

var purchasedCmd = &cobra.Command{
	Use:   "purchased <token-id> <identity>",
	Short: "Check whether an identity bought access",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseTokenId(args[0])
		if err != nil {
			return err
		}
		return withServices(cmd, func(ctx context.Context, services *common.Services) error {
			purchased, err := services.DbService.HasUserPurchased(ctx, id, args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), models.PurchaseStatus{TokenId: id, Identity: args[1], Purchased: purchased})
		})
	},
}

var purchasesCmd = &cobra.Command{
	Use:   "purchases <token-id>",
	Short: "List every access grant for a token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseTokenId(args[0])
		if err != nil {
			return err
		}
		return withServices(cmd, func(ctx context.Context, services *common.Services) error {
			purchases, err := services.DbService.GetPurchases(ctx, id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), purchases)
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show ledger counters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, services *common.Services) error {
			total, err := services.DbService.TotalMinted(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), models.LedgerStats{TotalMinted: total})
		})
	},
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List ledger events",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		after, _ := cmd.Flags().GetInt64("after")
		limit, _ := cmd.Flags().GetInt("limit")
		return withServices(cmd, func(ctx context.Context, services *common.Services) error {
			events, err := services.DbService.GetEvents(ctx, after, limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), events)
		})
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance [identity]",
	Short: "Show a spendable balance on the active payment rail",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		identity := callerFlag
		if len(args) == 1 {
			identity = args[0]
		}
		if identity == "" {
			return fmt.Errorf("an identity argument or --as is required")
		}
		return withServices(cmd, func(ctx context.Context, services *common.Services) error {
			balance, err := services.Balances().GetBalance(ctx, identity)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), models.IdentityBalance{Identity: identity, Balance: balance})
		})
	},
}

var fundCmd = &cobra.Command{
	Use:   "fund <identity> <amount>",
	Short: "Credit an identity on the active payment rail",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := parseAmount(args[1])
		if err != nil {
			return err
		}
		ref, _ := cmd.Flags().GetString("ref")
		if ref == "" {
			ref = "manual-" + uuid.NewString()
		}
		return withServices(cmd, func(ctx context.Context, services *common.Services) error {
			if err := services.Fund(ctx, args[0], amount, ref); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "funded %s with %s (ref %s)\n", args[0], amount.String(), ref)
			return nil
		})
	},
}

var issueTokenCmd = &cobra.Command{
	Use:   "token-issue <identity>",
	Short: "Issue a bearer token for the HTTP API",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		ttl, _ := cmd.Flags().GetDuration("ttl")
		if ttl == 0 {
			ttl = cfg.Server.TokenTTL
		}

		tokens, err := auth.NewTokenService(cfg.Server.JWTSecret, ttl)
		if err != nil {
			return err
		}
		token, err := tokens.Issue(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream ledger events from Redis",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, services *common.Services) error {
			if services.Publisher == nil {
				return fmt.Errorf("watch requires REDIS_ENABLED=true")
			}

			recent, err := services.Publisher.Recent(ctx, 20)
			if err != nil {
				return err
			}
			for _, event := range recent {
				if err := printJSON(cmd.OutOrStdout(), event); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "watching for events since %s (Ctrl+C to stop)\n", time.Now().Format(time.RFC3339))
			err = services.Publisher.Watch(ctx, func(event models.LedgerEvent) error {
				return printJSON(cmd.OutOrStdout(), event)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	},
}
