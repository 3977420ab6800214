package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	httpAdapter "github.com/iho/pnlstats/internal/adapter/http"
	"github.com/iho/pnlstats/internal/adapter/http/handler"
	postgresRepo "github.com/iho/pnlstats/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/pnlstats/internal/adapter/repository/redis"
	"github.com/iho/pnlstats/internal/domain"
	"github.com/iho/pnlstats/internal/infrastructure/config"
	"github.com/iho/pnlstats/internal/infrastructure/logger"
	"github.com/iho/pnlstats/internal/infrastructure/metrics"
	"github.com/iho/pnlstats/internal/infrastructure/postgres"
	"github.com/iho/pnlstats/internal/infrastructure/redis"
	"github.com/iho/pnlstats/internal/usecase"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pnlworker",
		Short: "Member PnL aggregation worker",
		Long:  `Incrementally folds ledger liabilities into per-member profit and loss rows.`,
	}

	rootCmd.AddCommand(runCmd(), migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the aggregation loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				log.Fatal().Err(err).Msg("failed to load configuration")
			}

			log.Logger = logger.New(logger.Config{
				Level:  cfg.LogLevel,
				Format: cfg.LogFormat,
			})

			paths, err := domain.ParseConversionPaths(cfg.ConversionPaths)
			if err != nil {
				log.Fatal().Err(err).Msg("failed to parse conversion paths")
			}

			ctx := context.Background()

			pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
			if err != nil {
				log.Fatal().Err(err).Msg("failed to connect to postgres")
			}
			defer pool.Close()
			log.Info().Msg("connected to postgres")

			redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
			if err != nil {
				log.Fatal().Err(err).Msg("failed to connect to redis")
			}
			defer redisClient.Close()
			log.Info().Msg("connected to redis")

			// Repositories
			txManager := postgresRepo.NewTxManager(pool)
			liabilityRepo := postgresRepo.NewLiabilityRepository(pool)
			tradeRepo := postgresRepo.NewTradeRepository(pool)
			depositRepo := postgresRepo.NewDepositRepository(pool)
			withdrawRepo := postgresRepo.NewWithdrawRepository(pool)
			adjustmentRepo := postgresRepo.NewAdjustmentRepository(pool)
			revenueRepo := postgresRepo.NewRevenueRepository(pool)
			memberRepo := postgresRepo.NewMemberRepository(pool)
			marketRepo := postgresRepo.NewMarketRepository(pool)
			priceRepo := postgresRepo.NewTradePriceRepository(pool)
			pnlRepo := postgresRepo.NewPnLRepository(pool)
			runnerLock := redisRepo.NewRunnerLock(redisClient, cfg.RunnerLockTTL)

			// Use cases
			m := metrics.New()
			resolver := usecase.NewConversionResolver(paths, marketRepo, priceRepo)
			decomposer := usecase.NewEventDecomposer(
				tradeRepo, depositRepo, withdrawRepo, adjustmentRepo,
				memberRepo, resolver, log.Logger,
			)
			matcher := usecase.NewTransferMatcher(revenueRepo, log.Logger)
			processor := usecase.NewBatchProcessor(usecase.BatchProcessorParams{
				PnLCurrencies: cfg.PnLCurrencies,
				BatchSize:     cfg.BatchSize,
				Liabilities:   liabilityRepo,
				Decomposer:    decomposer,
				Matcher:       matcher,
				PnL:           pnlRepo,
				TxManager:     txManager,
				Retrier:       postgresRepo.NewRetrier(log.Logger),
				Observer:      m,
				Logger:        log.Logger,
			})
			runner := usecase.NewRunner(processor, runnerLock, cfg.IdleDelay, log.Logger)

			// Operational HTTP endpoint (health probes, metrics)
			router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
				HealthHandler: handler.NewHealthHandler(pool, redisClient),
			})
			server := &http.Server{
				Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
				Handler:      router,
				ReadTimeout:  cfg.HTTPReadTimeout,
				WriteTimeout: cfg.HTTPWriteTimeout,
				IdleTimeout:  cfg.HTTPIdleTimeout,
			}
			go func() {
				log.Info().Str("port", cfg.HTTPPort).Msg("starting health server")
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal().Err(err).Msg("health server failed")
				}
			}()

			runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log.Info().
				Strs("pnl_currencies", cfg.PnLCurrencies).
				Int("batch_size", cfg.BatchSize).
				Msg("starting aggregation loop")

			if err := runner.Run(runCtx); err != nil {
				log.Error().Err(err).Msg("aggregation loop stopped")
			}

			log.Info().Msg("shutting down...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("health server forced to shutdown")
			}

			log.Info().Msg("worker stopped")
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	var down bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			if down {
				return postgres.RunMigrationsDown(cfg.DatabaseURL, cfg.MigrationsPath)
			}
			return postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath)
		},
	}

	cmd.Flags().BoolVar(&down, "down", false, "Roll back the last migration")

	return cmd
}
