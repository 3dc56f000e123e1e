package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Enchanted-Dev-stack/live-trade-api-zinoova/internal/archive"
	s3blob "github.com/Enchanted-Dev-stack/live-trade-api-zinoova/internal/blob/s3"
	"github.com/Enchanted-Dev-stack/live-trade-api-zinoova/internal/bus"
	"github.com/Enchanted-Dev-stack/live-trade-api-zinoova/internal/cache/redis"
	"github.com/Enchanted-Dev-stack/live-trade-api-zinoova/internal/config"
	"github.com/Enchanted-Dev-stack/live-trade-api-zinoova/internal/domain"
	"github.com/Enchanted-Dev-stack/live-trade-api-zinoova/internal/notify"
	"github.com/Enchanted-Dev-stack/live-trade-api-zinoova/internal/server"
	"github.com/Enchanted-Dev-stack/live-trade-api-zinoova/internal/server/handler"
	"github.com/Enchanted-Dev-stack/live-trade-api-zinoova/internal/server/ws"
	"github.com/Enchanted-Dev-stack/live-trade-api-zinoova/internal/service"
	"github.com/Enchanted-Dev-stack/live-trade-api-zinoova/internal/settle"
	"github.com/Enchanted-Dev-stack/live-trade-api-zinoova/internal/store/postgres"
)

// Dependencies bundles every long-lived component the application runs. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	TradeStore domain.TradeStore
	SignalBus  domain.SignalBus

	Scheduler    *settle.Scheduler
	TradeService *service.TradeService

	Hub    *ws.Hub
	Server *server.Server

	// Relay is nil when no notification channels are configured.
	Relay *notify.Relay

	// Archiver is nil unless completed-trade archival is enabled.
	Archiver *archive.Archiver
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.PoolMaxConns,
		MinConns: cfg.Database.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Database.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}
	deps.TradeStore = postgres.NewTradeStore(pgClient.Pool())

	// --- Signal bus (Redis Pub/Sub, or in-process when Redis is disabled) ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		deps.SignalBus = redis.NewSignalBus(redisClient)
	} else {
		deps.SignalBus = bus.NewMemory()
	}

	// --- Settlement ---
	resolver := settle.NewCoinFlip(cfg.Settlement.WinProbability)
	deps.Scheduler = settle.NewScheduler(deps.TradeStore, resolver, deps.SignalBus, logger)

	// --- Trade service ---
	deps.TradeService = service.NewTradeService(deps.TradeStore, deps.SignalBus, deps.Scheduler, logger)

	// --- HTTP + WebSocket server ---
	deps.Hub = ws.NewHub(deps.SignalBus, logger)
	deps.Server = server.NewServer(
		server.Config{
			Port:        cfg.Server.Port,
			CORSOrigins: cfg.Server.CORSOrigins,
		},
		server.Handlers{
			Health: handler.NewHealthHandler(logger),
			Trades: handler.NewTradeHandler(deps.TradeService, logger),
		},
		deps.Hub,
		logger,
	)

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	if len(senders) > 0 {
		notifier := notify.NewNotifier(senders, cfg.Notify.Events, logger)
		deps.Relay = notify.NewRelay(deps.SignalBus, notifier, logger)
	}

	// --- Completed-trade archival ---
	if cfg.Archive.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.Archiver = archive.New(
			deps.TradeStore,
			s3blob.NewWriter(s3Client),
			cfg.Archive.RetentionDays,
			cfg.Archive.Interval.Duration,
			logger,
		)
	}

	return deps, cleanup, nil
}
