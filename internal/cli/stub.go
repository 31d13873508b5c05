package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"prepsnap-quiz/internal/app"
	"prepsnap-quiz/internal/auth"
	"prepsnap-quiz/internal/config"
	"prepsnap-quiz/internal/infra/memory"
	pgloader "prepsnap-quiz/internal/infra/postgres"
	redisstore "prepsnap-quiz/internal/infra/redis"
	"prepsnap-quiz/internal/stub"
)

const (
	defaultStubPort   = "8081"
	defaultStubSecret = "prepsnap-dev-secret"
)

// NewStubCmd builds the subcommand that runs the local stand-in quiz backend.
func NewStubCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stub",
		Short: "Run the local stub quiz backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStub(cmd.Context(), *configPath, *port)
		},
	}
}

func runStub(ctx context.Context, configPath, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return err
	}

	var loader memory.BankLoader = memory.NewStaticBankLoader(cfg.Stub.Banks)
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("stub: connect postgres: %w", err)
		}
		defer pool.Close()
		loader = pgloader.NewBankLoader(pool)
	}

	var attempts stub.AttemptStore = memory.NewAttemptStore()
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("stub: ping redis: %w", err)
		}
		attempts = redisstore.NewAttemptStore(client, config.TTLDuration(cfg.Redis.TTL, 24*time.Hour))
	}

	service := stub.NewService(stub.Config{
		Banks:    memory.NewBankRepository(loader, config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)),
		Attempts: attempts,
		Duration: config.TTLDuration(cfg.Quiz.Duration, app.DefaultDuration),
	})

	if cfg.Stub.Secret == "" {
		slog.Warn("stub: no secret configured, using the development secret")
	}
	router := stub.NewRouter(service, newIssuer(cfg))

	return serveHTTP(ctx, "stub quiz backend", resolvePort(portFlag, cfg.Stub.Port, defaultStubPort), router, nil)
}

func newIssuer(cfg config.Config) *auth.Issuer {
	secret := cfg.Stub.Secret
	if secret == "" {
		secret = defaultStubSecret
	}
	return auth.NewIssuer(secret, config.TTLDuration(cfg.Stub.TokenTTL, 24*time.Hour))
}
