package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"cloudshare/internal/config"
	"cloudshare/internal/domain/ports/adapter"
	"cloudshare/internal/domain/ports/repository"
	"cloudshare/internal/infra/adapters/payment"
	"cloudshare/internal/infra/api/apiv1"
	"cloudshare/internal/infra/auth"
	"cloudshare/internal/infra/db/memory"
	pg "cloudshare/internal/infra/db/postgres"
	httpserver "cloudshare/internal/infra/http"
	"cloudshare/internal/infra/logging"
	"cloudshare/internal/infra/metrics"
	red "cloudshare/internal/infra/redis"
	"cloudshare/internal/infra/sched"
	"cloudshare/internal/infra/security"
	"cloudshare/internal/usecase"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const shutdownGrace = 10 * time.Second

func serveCmd() *cobra.Command {
	var dev bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the API and admin listeners",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			return serve(cmd.Context(), cfgPath, dev)
		},
	}
	cmd.Flags().BoolVar(&dev, "dev", false, "run on in-memory stores with a no-op payment gateway")
	return cmd
}

// stores is everything that differs between dev and production wiring.
type stores struct {
	orders   repository.PaymentOrderRepository
	ledger   repository.CreditLedger
	profiles repository.ProfileRepository
	tm       repository.TransactionManager
	locker   adapter.Locker
	limiter  adapter.RateLimiter
	gateway  adapter.PaymentGateway
	checks   map[string]httpserver.HealthCheck
	close    func()
}

func serve(ctx context.Context, cfgPath string, dev bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.LoadConfig(cfgPath, dev)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.SetBuildInfo(version, commit)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] in-memory stores and no-op payment gateway")
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var st *stores
	if cfg.Runtime.Dev {
		st = devStores()
	} else {
		st, err = prodStores(ctx, cfg, logger)
		if err != nil {
			return err
		}
	}
	defer st.close()

	// ---- Authentication ----
	keys := auth.NewKeyCache(auth.KeyCacheOptions{
		URL:                cfg.Auth.JWKSURL,
		TTL:                cfg.Auth.KeyTTL,
		RefreshInterval:    cfg.Auth.RefreshInterval,
		MinRefreshInterval: cfg.Auth.MinRefreshInterval,
		FetchTimeout:       cfg.Auth.FetchTimeout,
	}, logger)
	if err := keys.Refresh(ctx); err != nil {
		// the first request retries the fetch
		logger.Warn().Err(err).Msg("initial key set fetch failed")
	}
	go keys.Run(ctx)
	verifier := auth.NewVerifier(keys, auth.VerifierOptions{Issuer: cfg.Auth.Issuer, ClockSkew: cfg.Auth.ClockSkew})

	webhook, err := security.NewWebhookVerifier(cfg.Webhook.Secret, cfg.Webhook.Tolerance)
	if err != nil {
		return err
	}

	// ---- Use cases ----
	settlement := usecase.NewSettlementUseCase(
		st.orders, st.ledger, st.profiles, st.tm, st.gateway,
		security.NewPaymentSigner(cfg.Payment.Razorpay.KeySecret), st.locker, st.limiter,
		usecase.SettlementOptions{
			OrderRateLimit:  cfg.Payment.OrderRateLimit,
			OrderRateWindow: cfg.Payment.OrderRateWindow,
			LockTTL:         cfg.Payment.LockTTL,
		},
		logger,
	)
	ledger := usecase.NewLedgerUseCase(st.ledger, logger)
	profiles := usecase.NewProfileUseCase(st.profiles, st.ledger, st.tm, logger)

	// ---- Workers ----
	expiry := sched.NewOrderExpiryWorker(st.orders, cfg.Payment.ExpiryInterval, cfg.Payment.PendingTTL, logger)
	go expiry.Start(ctx)

	// ---- HTTP ----
	api := apiv1.NewServer(settlement, ledger, profiles, webhook, logger)
	public := httpserver.NewRouter(cfg.Server, cfg.Auth, verifier, api, logger)
	srv := httpserver.NewServer(cfg, public, httpserver.NewAdminRouter(st.checks, logger), logger)

	logger.Info().Str("version", version).Str("gateway", st.gateway.Name()).Msg("cloudshare starting")
	if err := srv.Start(ctx, shutdownGrace); err != nil {
		return fmt.Errorf("http: %w", err)
	}
	logger.Info().Msg("shutdown complete")
	return nil
}

func devStores() *stores {
	return &stores{
		orders:   memory.NewOrderRepo(),
		ledger:   memory.NewCreditLedger(),
		profiles: memory.NewProfileRepo(),
		tm:       memory.NewTxManager(),
		locker:   memory.NewLocker(),
		limiter:  memory.NewRateLimiter(),
		gateway:  payment.NewNoopPaymentGateway(),
		checks:   map[string]httpserver.HealthCheck{},
		close:    func() {},
	}
}

func prodStores(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*stores, error) {
	if _, err := pg.Migrate(cfg.Database.URL); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	pool, err := pg.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	go pg.ReportPoolStats(ctx, pool, 15*time.Second)

	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}

	gateway, err := payment.NewRazorpayGateway(cfg.Payment.Razorpay)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, err
	}

	logger.Info().Str("redis", cfg.Redis.URL).Msg("connected to postgres and redis")
	return &stores{
		orders:   pg.NewPaymentOrderRepo(pool),
		ledger:   pg.NewCreditLedgerRepo(pool),
		profiles: pg.NewProfileRepoCacheDecorator(pg.NewProfileRepo(pool), redisClient, cfg.Redis.TTL),
		tm:       pg.NewTxManager(pool),
		locker:   red.NewLocker(redisClient),
		limiter:  red.NewRateLimiter(redisClient),
		gateway:  gateway,
		checks: map[string]httpserver.HealthCheck{
			"postgres": pool.Ping,
			"redis":    redisClient.Ping,
		},
		close: func() {
			_ = redisClient.Close()
			pool.Close()
		},
	}, nil
}
