package app

import (
	"context"
	"database/sql"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"parkspot/backend/libs/broker"
	libdb "parkspot/backend/libs/db"
	libredis "parkspot/backend/libs/redis"
	"parkspot/backend/services/parking-service/internal/clock"
	"parkspot/backend/services/parking-service/internal/config"
	httpserver "parkspot/backend/services/parking-service/internal/http"
	"parkspot/backend/services/parking-service/internal/http/handlers"
	"parkspot/backend/services/parking-service/internal/http/middleware"
	"parkspot/backend/services/parking-service/internal/metrics"
	"parkspot/backend/services/parking-service/internal/notify"
	redisstore "parkspot/backend/services/parking-service/internal/redis"
	"parkspot/backend/services/parking-service/internal/repository/postgres"
	"parkspot/backend/services/parking-service/internal/service"
	"parkspot/backend/services/parking-service/internal/ws"
)

const migrateTimeout = 30 * time.Second

// App wires parking-service dependencies.
type App struct {
	server      *httpserver.Server
	emitter     *notify.Emitter
	expiry      *service.BookingExpiryJob
	hub         *ws.Hub
	db          *sql.DB
	redisClient *redis.Client
	publisher   *broker.Publisher
	logger      *zap.Logger
}

// New constructs the application graph.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{logger: logger}

	sqlDB, err := libdb.NewPostgresDB(cfg.Database.DSN, libdb.PoolOptions{
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
		ConnLifetime: cfg.Database.ConnLifetime,
	})
	if err != nil {
		return nil, err
	}
	a.db = sqlDB

	migrateCtx, cancel := context.WithTimeout(context.Background(), migrateTimeout)
	defer cancel()
	if err := postgres.Migrate(migrateCtx, sqlDB); err != nil {
		a.Close()
		return nil, err
	}
	store := postgres.NewStore(sqlDB)

	var cache service.ActiveSessionCache
	if cfg.Redis.Addr != "" {
		client, err := libredis.NewRedisClient(libredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		a.redisClient = client
		cache = redisstore.NewStore(client, cfg.Redis.TTL)
	} else {
		logger.Warn("redis addr not set, active session cache disabled")
	}

	var publisher notify.Publisher
	if cfg.Broker.URL != "" {
		p, err := broker.NewPublisher(cfg.Broker.URL, cfg.Broker.Exchange, logger)
		if err != nil {
			logger.Warn("amqp broker unavailable, notification fan-out disabled", zap.Error(err))
		} else {
			a.publisher = p
			publisher = p
		}
	}

	m := metrics.New()
	a.hub = ws.NewHub(logger)
	a.emitter = notify.NewEmitter(store.Notifications(), a.hub, publisher, m, logger, notify.Options{
		Workers:   cfg.Notifications.Workers,
		QueueSize: cfg.Notifications.QueueSize,
	})

	sessionsService := service.NewSessionsService(service.SessionsDeps{
		Store:    store,
		Cache:    cache,
		Notifier: a.emitter,
		Clock:    clock.System{},
		Metrics:  m,
		Logger:   logger,
		Currency: cfg.Billing.Currency,
	})
	lotsService := service.NewLotsService(store, m, logger)
	notificationsService := service.NewNotificationsService(store)
	a.expiry = service.NewBookingExpiryJob(sessionsService, clock.System{}, cfg.Booking.SweepInterval, cfg.Booking.GracePeriod, logger)

	socket := ws.NewServer(a.hub, middleware.UserIDFromRequest, cfg.Notifications.WriteTimeout, logger)

	router := httpserver.NewRouter(httpserver.RouterDeps{
		Lots:          handlers.NewLotsHandler(lotsService, logger),
		AdminLots:     handlers.NewAdminLotsHandler(lotsService, logger),
		Sessions:      handlers.NewSessionsHandler(sessionsService, logger),
		Guard:         handlers.NewGuardHandler(sessionsService, logger),
		Notifications: handlers.NewNotificationsHandler(notificationsService, logger),
		Socket:        socket.HandleWS,
		Health:        handlers.NewHealthHandler(sqlDB),
		Metrics:       m.Handler(),
		JWTSecret:     cfg.JWT.Secret,
	})

	a.server = httpserver.NewServer(
		cfg.HTTPAddress(),
		router,
		logger,
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.MetricsMiddleware(m),
	)
	return a, nil
}

// Run serves HTTP traffic and runs background workers until ctx is done.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.emitter.Run(ctx)
		return nil
	})
	g.Go(func() error {
		a.expiry.Run(ctx)
		return nil
	})
	g.Go(func() error {
		defer a.hub.CloseAll()
		return a.server.Run(ctx)
	})
	return g.Wait()
}

// Close releases resources.
func (a *App) Close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("failed to close amqp publisher", zap.Error(err))
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
}
