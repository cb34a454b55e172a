// Command server runs the blockship receiver gateway: dual-identity
// authorization (account sign-in plus wallet binding) in front of the
// shipment provenance disclosure flow.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"blockship/internal/disclosure"
	dischandler "blockship/internal/disclosure/handler"
	discmetrics "blockship/internal/disclosure/metrics"
	"blockship/internal/disclosure/ports"
	"blockship/internal/explorer"
	gwhttp "blockship/internal/http"
	"blockship/internal/identity"
	"blockship/internal/identity/devidp"
	jwttoken "blockship/internal/jwt_token"
	"blockship/internal/notification"
	notifhandler "blockship/internal/notification/handler"
	"blockship/internal/platform/config"
	"blockship/internal/platform/httpserver"
	"blockship/internal/platform/kafka"
	platformlogger "blockship/internal/platform/logger"
	platformmetrics "blockship/internal/platform/metrics"
	"blockship/internal/platform/postgres"
	platformredis "blockship/internal/platform/redis"
	"blockship/internal/session"
	"blockship/internal/session/device"
	sessionstore "blockship/internal/session/store"
	"blockship/internal/shipment"
	shipmetrics "blockship/internal/shipment/metrics"
	"blockship/internal/shipment/receipts"
	"blockship/internal/wallet"
	"blockship/internal/wallet/rpcwallet"
	id "blockship/pkg/domain"
	"blockship/pkg/platform/audit"
	"blockship/pkg/platform/audit/consumer"
	"blockship/pkg/platform/audit/outbox"
	"blockship/pkg/platform/audit/publisher"
	auditmem "blockship/pkg/platform/audit/store/memory"
	auditpg "blockship/pkg/platform/audit/store/postgres"
)

func main() {
	cfg := config.FromEnv()
	logger := platformlogger.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Backends ---------------------------------------------------------

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		logger.Error("redis initialization failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	db, err := postgres.Open(cfg.Postgres)
	if err != nil {
		logger.Error("postgres initialization failed", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	pool, err := postgres.OpenPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Error("postgres pool initialization failed", "error", err)
		os.Exit(1)
	}
	if pool != nil {
		defer pool.Close()
	}

	// --- Session store ----------------------------------------------------

	var sessions sessionstore.Store
	if redisClient != nil {
		sessions = sessionstore.NewRedis(redisClient.Client)
		logger.Info("session store: redis")
	} else {
		sessions = sessionstore.NewInMemory()
		logger.Info("session store: in-memory")
	}

	// --- Audit trail ------------------------------------------------------

	var auditStore audit.Store
	var pgAudit *auditpg.Store
	if db != nil {
		if err := outbox.Migrate(ctx, db); err != nil {
			logger.Error("audit schema migration failed", "error", err)
			os.Exit(1)
		}
		pgAudit = auditpg.New(db)
		auditStore = pgAudit
		logger.Info("audit store: postgres outbox")
	} else {
		auditStore = auditmem.NewInMemoryStore()
		logger.Info("audit store: in-memory")
	}
	auditPublisher := publisher.NewPublisher(auditStore, publisher.WithAsyncBuffer(256))
	defer auditPublisher.Close()

	// --- Resolution receipts ----------------------------------------------

	var receiptStore receipts.Store
	if pool != nil {
		pgReceipts := receipts.NewPostgres(pool)
		if err := pgReceipts.Migrate(ctx); err != nil {
			logger.Error("receipts migration failed", "error", err)
			os.Exit(1)
		}
		receiptStore = pgReceipts
	} else {
		receiptStore = receipts.NewInMemory()
	}

	// --- Providers and gates ----------------------------------------------

	idp, err := devidp.New(map[string]string{
		// Development accounts; a production deployment swaps the provider.
		"demo@blockship.dev": "demo-password",
	})
	if err != nil {
		logger.Error("identity provider initialization failed", "error", err)
		os.Exit(1)
	}

	var walletProvider wallet.Provider
	if cfg.Wallet.RPCURL != "" {
		walletProvider = rpcwallet.NewClient(cfg.Wallet.RPCURL, cfg.Wallet.Timeout)
		logger.Info("wallet provider: json-rpc", "endpoint", cfg.Wallet.RPCURL)
	} else {
		logger.Info("wallet provider: none")
	}
	walletGate := wallet.NewGate(walletProvider, sessions, logger)

	resolver := shipment.NewResolver(cfg.Store.BaseURL, cfg.Store.Timeout, logger, shipmetrics.New())

	jwtSvc := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, "blockship", "blockship-api")
	notifier := notification.NewCenter()

	svc := disclosure.NewService(disclosure.Deps{
		Sessions: sessions,
		Resolver: resolver,
		Wallet:   walletGate,
		NewIdentityGate: func(sessionID id.SessionID) ports.IdentityGate {
			return identity.NewGate(idp, sessions, logger, sessionID)
		},
		Notifier:   notifier,
		Audit:      auditPublisher,
		Receipts:   receiptStore,
		Explorer:   explorer.New(cfg.Explorer.BaseURL, cfg.Explorer.ContractAddress),
		Tokens:     jwtSvc,
		Devices:    device.NewService(cfg.Session.DeviceBinding),
		Metrics:    discmetrics.New(),
		Logger:     logger,
		SessionTTL: cfg.Session.TTL,
	})

	// --- HTTP surface -------------------------------------------------------

	healthChecks := []gwhttp.HealthCheck{
		{Name: "identity_provider", Check: idp.Health},
		{Name: "wallet_provider", Check: walletGate.Health},
	}
	if redisClient != nil {
		healthChecks = append(healthChecks, gwhttp.HealthCheck{Name: "redis", Check: redisClient.Health})
	}
	if db != nil {
		healthChecks = append(healthChecks, gwhttp.HealthCheck{Name: "postgres", Check: db.PingContext})
	}

	router := gwhttp.NewRouter(gwhttp.Deps{
		Logger:         logger,
		Metrics:        platformmetrics.New(),
		Disclosure:     dischandler.New(svc, logger),
		Notifications:  notifhandler.New(notifier, logger),
		Validator:      jwttoken.NewValidatorAdapter(jwtSvc),
		Liveness:       sessions,
		HealthChecks:   healthChecks,
		RequestTimeout: cfg.Store.Timeout + 5*time.Second,
	})
	server := httpserver.New(cfg.Server.Addr, router)

	// --- Background workers -------------------------------------------------

	g, gctx := errgroup.WithContext(ctx)

	reaper := session.NewReaper(sessions, cfg.Session.ReapInterval, logger)
	reaper.OnExpire = svc.HandleExpiry
	g.Go(func() error {
		reaper.Run(gctx)
		return nil
	})

	if cfg.Kafka.Configured() && db != nil {
		kafkaClient, err := kafka.NewClient(cfg.Kafka)
		if err != nil {
			logger.Error("kafka initialization failed", "error", err)
			os.Exit(1)
		}
		defer kafkaClient.Close()

		if err := kafka.EnsureTopic(ctx, kafkaClient, cfg.Kafka.AuditTopic); err != nil {
			logger.Error("kafka topic creation failed", "error", err)
			os.Exit(1)
		}

		relay := outbox.NewRelay(db, outbox.NewKafkaPublisher(kafkaClient, cfg.Kafka.AuditTopic), time.Second, logger)
		g.Go(func() error {
			err := relay.Run(gctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})

		materializer, err := consumer.New(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic, cfg.Kafka.Group, pgAudit, logger)
		if err != nil {
			logger.Error("audit consumer initialization failed", "error", err)
			os.Exit(1)
		}
		g.Go(func() error {
			err := materializer.Run(gctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
		logger.Info("audit pipeline started", "topic", cfg.Kafka.AuditTopic, "group", cfg.Kafka.Group)
	}

	g.Go(func() error {
		logger.Info("gateway listening", "addr", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("gateway terminated", "error", err)
		os.Exit(1)
	}
	logger.Info("gateway stopped")
}
