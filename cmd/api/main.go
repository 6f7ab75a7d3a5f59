package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	v1 "go-chatsync/cmd/api/router/v1"
	"go-chatsync/internal/infrastructure/auth"
	cacheAdapter "go-chatsync/internal/infrastructure/cache/adapter"
	cachePort "go-chatsync/internal/infrastructure/cache/port"
	"go-chatsync/internal/infrastructure/config"
	"go-chatsync/internal/infrastructure/database"
	"go-chatsync/internal/infrastructure/health"
	"go-chatsync/internal/infrastructure/logger"
	"go-chatsync/internal/infrastructure/metrics"
	"go-chatsync/internal/infrastructure/presence"
	"go-chatsync/internal/infrastructure/pubsub"
	queueAdapter "go-chatsync/internal/infrastructure/queue/adapter"
	"go-chatsync/internal/infrastructure/realtime"
	"go-chatsync/internal/pkg/chat/application/fanout"
	"go-chatsync/internal/pkg/chat/application/task"
	"go-chatsync/internal/pkg/chat/application/usecase"
	repoAdapter "go-chatsync/internal/pkg/chat/persistence/repository/adapter"
	"go-chatsync/internal/pkg/chat/persistence/repository/memory"
	repository "go-chatsync/internal/pkg/chat/persistence/repository/port"
	"go-chatsync/internal/pkg/chat/presentation/controller"
	httpHandler "go-chatsync/internal/pkg/chat/presentation/http"
	"go-chatsync/internal/pkg/chat/presentation/middleware"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.IsDevelopment(), cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zl); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, zl *zap.Logger) error {
	metrics.Init()
	var cleanup []func()
	defer func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}()

	// Participation store
	var (
		repo     repository.ChatRepository
		dbHealth health.Pinger
	)
	switch cfg.Chat.Store {
	case config.StorePostgres:
		connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		pool, err := database.NewPool(connectCtx, cfg.Database)
		cancel()
		if err != nil {
			return err
		}
		cleanup = append(cleanup, pool.Close)
		if cfg.Database.Migrate {
			applied, err := database.Migrate(ctx, pool)
			if err != nil {
				return err
			}
			zl.Info("schema migrated", zap.Strings("applied", applied))
		}
		repo = repoAdapter.NewPgChatRepository(pool)
		dbHealth = pool
	default:
		zl.Warn("using the in-memory store; data is lost on restart")
		repo = memory.NewMemoryChatRepository(nil)
	}

	// Presence
	var (
		cache       cachePort.Cache = cacheAdapter.NewMemoryCache(nil)
		cacheHealth health.Pinger
	)
	if cfg.Redis.URL != "" {
		rc, err := cacheAdapter.NewRedisAdapter(ctx, cfg.Redis)
		if err != nil {
			zl.Warn("redis unavailable, presence is node-local", zap.Error(err))
		} else {
			cache = rc
			cacheHealth = rc
			cleanup = append(cleanup, func() { _ = rc.Close() })
		}
	}
	tracker := presence.NewTracker(cache, cfg.Chat.PresenceTTL)

	// Realtime broadcast, cluster-wide when NATS is configured
	router := realtime.NewRouter()
	cleanup = append(cleanup, router.Close)
	var (
		broadcaster fanout.Broadcaster = router
		natsHealth  health.ConnState
	)
	if cfg.NATS.URL != "" {
		nc, err := pubsub.NewClient(cfg.NATS, zl)
		if err != nil {
			return err
		}
		cleanup = append(cleanup, nc.Close)
		relay := pubsub.NewRelay(nc, cfg.NATS.Subject, router, zl)
		if err := relay.Start(nc); err != nil {
			return err
		}
		cleanup = append(cleanup, func() { _ = relay.Stop() })
		broadcaster = relay
		natsHealth = nc
	}

	// Fan-out publisher
	direct := fanout.NewDirectPublisher(broadcaster)
	var publisher fanout.Publisher = direct
	if cfg.Queue.Enabled {
		client, err := queueAdapter.NewAsynqClient(cfg.Redis)
		if err != nil {
			return err
		}
		cleanup = append(cleanup, func() { _ = client.Close() })
		queued := fanout.NewQueuePublisher(client, cfg.Queue.Name, cfg.Queue.MaxRetry)
		queued.StaleAfter = cfg.Queue.StaleAfter
		publisher = &fanout.FallbackPublisher{
			Primary:   queued,
			Secondary: direct,
			Log:       zl.Named("fanout"),
		}

		worker, err := queueAdapter.NewAsynqServer(cfg.Redis, cfg.Queue, zl.Named("worker"))
		if err != nil {
			return err
		}
		task.RegisterDeliverEventsTask(worker, broadcaster, zl.Named("worker"))
		go func() {
			if err := worker.Run(ctx); err != nil {
				zl.Error("queue worker stopped", zap.Error(err))
			}
		}()
	}

	aggregator := usecase.NewConversationAggregator(repo, tracker, cfg.Chat.ForwardedLabel, zl.Named("aggregator"))
	deps := usecase.Deps{
		Repo:       repo,
		Aggregator: aggregator,
		Notifier:   usecase.NewNotifier(aggregator, publisher, zl.Named("fanout")),
		Log:        zl.Named("usecase"),
	}

	verifier, err := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	if err != nil {
		return err
	}

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.Recovery(zl), middleware.RequestLogger(zl.Named("http")), metrics.Middleware())

	r.GET("/health", health.NewChecker(dbHealth, cacheHealth, natsHealth).Handler())
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	controller.SetRequestTimeout(cfg.HTTP.RequestTimeout)
	v1.RegisterRoutes(r,
		middleware.Authenticate(verifier, usecase.NewSyncUserUseCase(deps), zl.Named("auth")),
		httpHandler.Dependencies{UseCases: deps, Router: router, Presence: tracker, Log: zl},
	)

	srv := &http.Server{Addr: cfg.HTTP.Addr, Handler: r}
	errCh := make(chan error, 1)
	go func() {
		zl.Info("listening", zap.String("addr", cfg.HTTP.Addr), zap.String("store", cfg.Chat.Store))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
