package common

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"file-access-ledger-go/internal/api"
	"file-access-ledger-go/internal/database"
	"file-access-ledger-go/internal/formance"
	"file-access-ledger-go/internal/models"
	"file-access-ledger-go/internal/notify"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Environment variables can be set via other means (shell export, docker, etc.)
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

type Services struct {
	DbService   *database.Service
	Formance    *formance.Service
	Publisher   *notify.RedisPublisher
	redisClient *redis.Client
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeServices wires the ledger database with the configured payment
// rail and event publisher.
func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	services := &Services{}
	var opts []database.Option

	if cfg.Redis.Enabled {
		client, err := notify.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		services.redisClient = client
		services.Publisher = notify.NewRedisPublisher(client, cfg.Redis.Channel, cfg.Redis.Backlog)
		opts = append(opts, database.WithPublisher(services.Publisher))
	}

	if cfg.Payments.Rail == models.RailFormance {
		rail, err := formance.NewService(ctx, cfg.Formance)
		if err != nil {
			services.Close()
			return nil, err
		}
		services.Formance = rail
		opts = append(opts, database.WithPaymentRail(rail))
	}

	dbService, err := database.NewService(ctx, cfg.Database, opts...)
	if err != nil {
		services.Close()
		return nil, err
	}
	services.DbService = dbService

	zap.L().Info("Services initialized",
		zap.String("payment_rail", cfg.Payments.Rail),
		zap.Bool("redis", cfg.Redis.Enabled))
	return services, nil
}

// InitializeDatabaseOnly initializes just the database service.
// Useful for read-only operations like querying balances
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config, opts ...database.Option) (*database.Service, error) {
	return database.NewService(ctx, cfg.Database, opts...)
}

// Balances returns the balance source of the active payment rail
func (cs *Services) Balances() api.BalanceReader {
	if cs.Formance != nil {
		return cs.Formance
	}
	return cs.DbService
}

// Fund credits an identity on the active payment rail
func (cs *Services) Fund(ctx context.Context, identity string, amount decimal.Decimal, reference string) error {
	if cs.Formance != nil {
		return cs.Formance.Fund(ctx, identity, amount, reference)
	}
	_, err := cs.DbService.Fund(ctx, identity, amount, reference)
	return err
}

// SeedAccounts funds every account once; already seeded accounts are skipped.
func (cs *Services) SeedAccounts(ctx context.Context, seeds []AccountSeed) (int, error) {
	funded := 0
	for _, seed := range seeds {
		err := cs.Fund(ctx, seed.Identity, seed.Amount, "seed-"+seed.Identity)
		if errors.Is(err, database.ErrDuplicateTransaction) {
			zap.L().Info("Account already seeded", zap.String("identity", seed.Identity))
			continue
		}
		if err != nil {
			return funded, fmt.Errorf("failed to fund %s: %w", seed.Identity, err)
		}
		funded++
		zap.L().Info("Account funded",
			zap.String("identity", seed.Identity),
			zap.String("amount", seed.Amount.String()))
	}
	return funded, nil
}

func (cs *Services) Close() {
	if cs.DbService != nil {
		cs.DbService.Close()
	}
	if cs.Formance != nil {
		cs.Formance.Close()
	}
	if cs.redisClient != nil {
		if err := cs.redisClient.Close(); err != nil {
			zap.L().Warn("Failed to close redis client", zap.Error(err))
		}
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
