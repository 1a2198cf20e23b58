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

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/iho/balanceledger/internal/adapter/chain"
	httpAdapter "github.com/iho/balanceledger/internal/adapter/http"
	"github.com/iho/balanceledger/internal/adapter/http/handler"
	"github.com/iho/balanceledger/internal/adapter/http/middleware"
	postgresRepo "github.com/iho/balanceledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/balanceledger/internal/adapter/repository/redis"
	"github.com/iho/balanceledger/internal/domain"
	"github.com/iho/balanceledger/internal/infrastructure/auth"
	"github.com/iho/balanceledger/internal/infrastructure/config"
	"github.com/iho/balanceledger/internal/infrastructure/eventpublisher"
	"github.com/iho/balanceledger/internal/infrastructure/logger"
	"github.com/iho/balanceledger/internal/infrastructure/metrics"
	"github.com/iho/balanceledger/internal/infrastructure/postgres"
	"github.com/iho/balanceledger/internal/infrastructure/redis"
	"github.com/iho/balanceledger/internal/infrastructure/sweeper"
	"github.com/iho/balanceledger/internal/usecase"
)

const (
	outboxRetention    = 7 * 24 * time.Hour
	rateLimiterIdleTTL = 10 * time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: "balanceledger",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}

	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	if err := postgres.RunMigrations(cfg.DatabaseURL, log); err != nil {
		return err
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	m := metrics.New()

	// Repositories
	txManager := postgresRepo.NewTxManager(pool)
	retrier := postgresRepo.NewRetrier(log)
	entryRepo := postgresRepo.NewEntryRepository(pool)
	orderRepo := postgresRepo.NewOrderRepository(pool)
	withdrawalRepo := postgresRepo.NewWithdrawalRepository(pool)
	walletRepo := postgresRepo.NewWalletRepository(pool)
	depositRepo := postgresRepo.NewDepositRepository(pool)
	outboxRepo := postgresRepo.NewOutboxRepository(pool)
	idGen := postgresRepo.NewULIDGenerator()

	// Use cases
	aggregator, err := usecase.NewBalanceAggregator(cfg.Mode(), entryRepo, depositRepo)
	if err != nil {
		return err
	}

	balanceUC := usecase.NewBalanceUseCase(aggregator)
	adjustmentUC := usecase.NewAdjustmentUseCase(txManager, retrier, entryRepo, outboxRepo, idGen, m)
	orderUC := usecase.NewOrderUseCase(txManager, retrier, entryRepo, orderRepo, outboxRepo, aggregator, idGen, cfg.FailurePolicy(), m)
	withdrawalUC := usecase.NewWithdrawalUseCase(txManager, retrier, entryRepo, withdrawalRepo, outboxRepo, aggregator, idGen, cfg.WithdrawalFee, m)
	depositUC := newDepositUseCase(cfg, usecase.DepositReconciliationDeps{
		TxManager:   txManager,
		Retrier:     retrier,
		WalletRepo:  walletRepo,
		DepositRepo: depositRepo,
		OutboxRepo:  outboxRepo,
		TickLock:    redisRepo.NewTickLock(redisClient, ulid.Make().String()),
		IDGen:       idGen,
		Metrics:     m,
		Logger:      log,
	})

	publisher, closePublisher, err := newEventSink(cfg, log)
	if err != nil {
		return err
	}
	defer closePublisher()

	outbox := eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: outboxRepo,
		Publisher:  publisher,
		Logger:     log,
		Metrics:    m,
		Interval:   cfg.OutboxInterval,
		Retention:  outboxRetention,
	})

	var rateLimiter *middleware.RateLimiter
	if cfg.RateLimitRPS > 0 {
		rateLimiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		BalanceHandler:    handler.NewBalanceHandler(balanceUC, adjustmentUC),
		OrderHandler:      handler.NewOrderHandler(orderUC),
		WithdrawalHandler: handler.NewWithdrawalHandler(withdrawalUC),
		DepositHandler:    handler.NewDepositHandler(depositUC),
		HealthHandler: handler.NewHealthHandler(map[string]handler.Check{
			"postgres": pool.Ping,
			"redis": func(ctx context.Context) error {
				return redis.Ping(ctx, redisClient)
			},
		}),
		TokenVerifier:    newTokenVerifier(cfg),
		IdempotencyStore: redisRepo.NewIdempotencyStore(redisClient),
		IdempotencyTTL:   cfg.IdempotencyTTL,
		RateLimiter:      rateLimiter,
		Logger:           log,
	})

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("port", cfg.HTTPPort).Str("mode", string(cfg.Mode())).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return ignoreCanceled(outbox.Start(gctx))
	})

	if depositUC.Enabled() {
		g.Go(func() error {
			return ignoreCanceled(sweeper.New(depositUC, cfg.SweepInterval, log).Start(gctx))
		})
	}

	if rateLimiter != nil {
		g.Go(func() error {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					rateLimiter.Cleanup(rateLimiterIdleTTL)
				}
			}
		})
	}

	return g.Wait()
}

// newDepositUseCase wires the chain client only in forwarding mode; in
// manual mode the worker stays disabled.
func newDepositUseCase(cfg *config.Config, deps usecase.DepositReconciliationDeps) *usecase.DepositReconciliationUseCase {
	if cfg.Mode() == domain.AccountingForwarding {
		client := chain.NewClient(chain.Config{
			IndexerURL:    cfg.ChainIndexerURL,
			GatewayURL:    cfg.ChainGatewayURL,
			APIKey:        cfg.ChainAPIKey,
			TokenContract: cfg.TokenContract,
			Timeout:       cfg.ChainRequestTimeout,
			Logger:        deps.Logger,
		})
		deps.Indexer = client
		deps.Submitter = client
		deps.Receipts = client
	}

	return usecase.NewDepositReconciliationUseCase(cfg.Mode(), deps, usecase.SweepConfig{
		TokenContract:         cfg.TokenContract,
		MasterAddress:         cfg.MasterWalletAddress,
		Concurrency:           cfg.SweepConcurrency,
		ConfirmAttempts:       cfg.ConfirmAttempts,
		ConfirmDelay:          cfg.ConfirmDelay,
		RequireReceiptSuccess: cfg.RequireReceiptSuccess,
		LockTTL:               2 * cfg.SweepInterval,
		StaleAfter:            cfg.SweepStaleAfter,
	})
}

// newEventSink publishes outbox events to Kafka when brokers are configured
// and to the log otherwise.
func newEventSink(cfg *config.Config, log zerolog.Logger) (eventpublisher.Publisher, func(), error) {
	if len(cfg.KafkaBrokers) == 0 {
		return eventpublisher.NewLogPublisher(log), func() {}, nil
	}

	producer, err := eventpublisher.NewSyncProducer(cfg.KafkaBrokers)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	publisher := eventpublisher.NewKafkaPublisher(producer, cfg.KafkaTopic)
	return publisher, func() {
		if err := publisher.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close kafka producer")
		}
	}, nil
}

func newTokenVerifier(cfg *config.Config) middleware.TokenVerifier {
	if !cfg.AuthEnabled {
		return nil
	}
	return auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration)
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
