package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/iho/blockpay/internal/adapter/chain/evm"
	httpAdapter "github.com/iho/blockpay/internal/adapter/http"
	"github.com/iho/blockpay/internal/adapter/http/handler"
	"github.com/iho/blockpay/internal/adapter/http/middleware"
	"github.com/iho/blockpay/internal/adapter/identity"
	postgresRepo "github.com/iho/blockpay/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/blockpay/internal/adapter/repository/redis"
	"github.com/iho/blockpay/internal/infrastructure/auth"
	"github.com/iho/blockpay/internal/infrastructure/config"
	"github.com/iho/blockpay/internal/infrastructure/eventpublisher"
	"github.com/iho/blockpay/internal/infrastructure/logger"
	"github.com/iho/blockpay/internal/infrastructure/metrics"
	"github.com/iho/blockpay/internal/infrastructure/postgres"
	"github.com/iho/blockpay/internal/infrastructure/redis"
	"github.com/iho/blockpay/internal/usecase"
)

const limiterCleanupInterval = 10 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logg := logger.New(logger.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: "blockpay",
	})

	if err := cfg.Validate(); err != nil {
		logg.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Fatal().Err(err).Msg("server failed")
	}
	logg.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, logg zerolog.Logger) error {
	m := metrics.New()

	// Connect to PostgreSQL
	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		MinConns:       cfg.DatabaseMinConns,
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()
	logg.Info().Msg("connected to postgres")

	if err := postgres.NewMigrator(cfg.DatabaseURL, cfg.MigrationsPath, logg).Up(); err != nil {
		return err
	}

	// Connect to Redis
	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()
	logg.Info().Msg("connected to redis")

	// Connect to the chain node
	chain, err := evm.Dial(evm.Config{
		RPCURL:       cfg.ChainRPCURL,
		APIKey:       cfg.ChainAPIKey,
		RateLimit:    cfg.ChainRateLimit,
		PollInterval: cfg.ConfirmationPollInterval,
	}, logg, m)
	if err != nil {
		return fmt.Errorf("connect to chain node: %w", err)
	}
	defer chain.Close()

	signers, err := evm.NewSignerProvider(chain, evm.PaymentABI, logg)
	if err != nil {
		return err
	}

	sink, closeSink := newSink(cfg, logg)
	defer closeSink()
	publisher := eventpublisher.NewEventPublisher(eventpublisher.Config{Sink: sink, Logger: logg})

	// Initialize repositories
	txManager := postgresRepo.NewTxManager(pool)
	walletRepo := postgresRepo.NewWalletRepository(pool)
	ledgerRepo := postgresRepo.NewLedgerRepository(pool)
	userRepo := postgresRepo.NewUserRepository(pool)
	idGen := postgresRepo.NewULIDGenerator()
	sessions := redisRepo.NewSessionStore(redisClient, cfg.SessionTTL)
	lock := redisRepo.NewInFlightLock(redisClient)

	// Initialize use cases
	users := usecase.NewUserUseCase(userRepo, idGen)
	directory := usecase.NewDirectoryUseCase(walletRepo, idGen, publisher, logg, m)
	registries := usecase.NewRegistrySet(directory, sessions, logg)
	balances := usecase.NewBalanceSync(chain, logg, m)
	ledger := usecase.NewLedgerUseCase(txManager, ledgerRepo, idGen, balances, logg, m).
		WithRetrier(postgresRepo.NewRetrier(logg))
	gate := usecase.NewReauthGate(identity.NewProvider(users), logg)
	engine := usecase.NewTransferEngine(
		directory, gate, signers, chain, ledger, lock, publisher, idGen,
		usecase.TransferEngineConfig{
			ContractAddress:     cfg.PaymentContractAddress,
			ConfirmationTimeout: cfg.ConfirmationTimeout,
			LockTTL:             cfg.TransferLockTTL,
		},
		logg, m,
	).WithPendingStore(sessions)

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration)
	rateLimiter := middleware.NewRateLimiter(cfg.HTTPRateLimit, cfg.HTTPRateBurst, m)

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		AuthHandler:     handler.NewAuthHandler(users, jwtManager),
		WalletHandler:   handler.NewWalletHandler(directory, registries, logg),
		BalanceHandler:  handler.NewBalanceHandler(registries, balances),
		TransferHandler: handler.NewTransferHandler(registries, engine, logg),
		HistoryHandler:  handler.NewHistoryHandler(registries, ledger),
		HealthHandler: handler.NewHealthHandler(
			handler.Check{Name: "postgres", Ping: pingPool(pool)},
			handler.Check{Name: "redis", Ping: redis.Ping(redisClient)},
		),
		TokenVerifier:   jwtManager,
		Logger:          logg,
		Metrics:         m,
		MetricsHandler:  promhttp.Handler(),
		RateLimiter:     rateLimiter,
		TransferTimeout: cfg.ConfirmationTimeout + 30*time.Second,
	})

	server := newHTTPServer(cfg, router)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := publisher.Start(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		ticker := time.NewTicker(limiterCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				rateLimiter.CleanupLimiters(limiterCleanupInterval)
			}
		}
	})

	g.Go(func() error {
		logg.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logg.Info().Msg("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      h,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}
}

// newSink picks Kafka when brokers are configured and the log otherwise.
func newSink(cfg *config.Config, logg zerolog.Logger) (eventpublisher.Sink, func()) {
	if len(cfg.KafkaBrokers) == 0 {
		logg.Info().Msg("no kafka brokers configured, events go to the log")
		return eventpublisher.NewLogSink(logg), func() {}
	}

	sink := eventpublisher.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic)
	return sink, func() {
		if err := sink.Close(); err != nil {
			logg.Warn().Err(err).Msg("failed to close kafka writer")
		}
	}
}

func pingPool(pool *pgxpool.Pool) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return pool.Ping(ctx)
	}
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}
