package microservices

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Temutjin2k/taxi-dispatch/config"
	"github.com/Temutjin2k/taxi-dispatch/internal/adapter/http/handler"
	"github.com/Temutjin2k/taxi-dispatch/internal/adapter/http/server"
	wshandler "github.com/Temutjin2k/taxi-dispatch/internal/adapter/http/ws"
	"github.com/Temutjin2k/taxi-dispatch/internal/adapter/locationIQ"
	repo "github.com/Temutjin2k/taxi-dispatch/internal/adapter/postgres"
	rabbitadapter "github.com/Temutjin2k/taxi-dispatch/internal/adapter/rabbit"
	cache "github.com/Temutjin2k/taxi-dispatch/internal/adapter/redis"
	"github.com/Temutjin2k/taxi-dispatch/internal/domain/models"
	"github.com/Temutjin2k/taxi-dispatch/internal/domain/types"
	"github.com/Temutjin2k/taxi-dispatch/internal/service/auth"
	"github.com/Temutjin2k/taxi-dispatch/internal/service/calculator"
	"github.com/Temutjin2k/taxi-dispatch/internal/service/tracking"
	"github.com/Temutjin2k/taxi-dispatch/internal/service/trip"
	"github.com/Temutjin2k/taxi-dispatch/migrations"
	"github.com/Temutjin2k/taxi-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/taxi-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/taxi-dispatch/pkg/postgres"
	"github.com/Temutjin2k/taxi-dispatch/pkg/rabbit"
	"github.com/Temutjin2k/taxi-dispatch/pkg/redis"
	"github.com/Temutjin2k/taxi-dispatch/pkg/trm"
	ws "github.com/Temutjin2k/taxi-dispatch/pkg/wsHub"
)

// notifier fans domain events out to realtime subscribers.
type notifier interface {
	NotifyTrip(ctx context.Context, event types.EventType, trip *models.Trip) error
	NotifyLocation(ctx context.Context, fix *models.Fix) error
}

// locationStore is the location persistence used by both services.
type locationStore interface {
	trip.LocationStore
	tracking.FixStore
}

type DispatchService struct {
	postgresDB  *postgres.PostgreDB
	redisClient *goredis.Client
	rabbitMQ    *rabbit.RabbitMQ
	broker      *rabbitadapter.EventBroker
	hub         *ws.Hub
	httpServer  *server.API

	cfg config.Config
	log logger.Logger
}

func NewDispatch(ctx context.Context, cfg config.Config, log logger.Logger) (_ *DispatchService, err error) {
	s := &DispatchService{
		cfg: cfg,
		log: log,
	}
	// release whatever was opened when a later step fails
	defer func() {
		if err != nil {
			s.close(ctx)
		}
	}()

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(cfg.Database.MigrateDSN(), migrations.FS); err != nil {
			log.Error(ctx, "Failed to apply migrations", err)
			return nil, err
		}
		log.Info(ctx, "database migrations applied")
	}

	s.postgresDB, err = postgres.New(ctx, cfg.Database)
	if err != nil {
		log.Error(ctx, "Failed to setup database", err)
		return nil, err
	}
	pool := s.postgresDB.Pool

	checks := map[string]handler.Check{
		"postgres": pool.Ping,
	}

	var locations locationStore = repo.NewLocationRepo(pool)
	if cfg.Redis.Enabled {
		s.redisClient, err = redis.New(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Error(ctx, "Failed to setup redis", err)
			return nil, err
		}
		locations = cache.NewLocationCache(locations, s.redisClient, cfg.Redis.FixTTL, log)
		checks["redis"] = func(ctx context.Context) error {
			return s.redisClient.Ping(ctx).Err()
		}
	}

	s.hub = ws.NewHub(log)
	var events notifier = wshandler.NewNotifier(s.hub, log)

	if cfg.RabbitMQ.Enabled {
		s.rabbitMQ, err = rabbit.New(ctx, cfg.RabbitMQ.GetDSN(), log)
		if err != nil {
			log.Error(ctx, "Failed to setup rabbitmq", err)
			return nil, err
		}

		s.broker, err = rabbitadapter.NewEventBroker(ctx, s.rabbitMQ, cfg.RabbitMQ.Exchange, events, log)
		if err != nil {
			log.Error(ctx, "Failed to setup event broker", err)
			return nil, err
		}
		events = s.broker
		checks["rabbitmq"] = func(context.Context) error {
			if s.rabbitMQ.IsConnectionClosed() {
				return rabbit.ErrClosed
			}
			return nil
		}
	}

	tripOpts := []trip.Option{trip.WithFreshnessWindow(cfg.Dispatch.FreshnessWindow)}
	if cfg.ExternalAPI.LocationIQAPIKey != "" {
		geocoder := locationIQ.New(cfg.ExternalAPI.LocationIQAPIKey, cfg.ExternalAPI.LocationIQBaseURL, cfg.ExternalAPI.Timeout)
		tripOpts = append(tripOpts, trip.WithGeoCoder(geocoder))
	}

	tripService := trip.New(
		repo.NewTripRepo(pool),
		repo.NewTripEventRepo(pool),
		repo.NewDriverRepo(pool),
		locations,
		calculator.New(calculator.Tariff{Base: cfg.Dispatch.BaseFare, PerKm: cfg.Dispatch.PerKmRate}),
		events,
		trm.New(pool),
		log,
		tripOpts...,
	)

	trackingService := tracking.New(
		locations,
		repo.NewVehicleRepo(pool),
		events,
		log,
		tracking.WithFreshnessWindow(cfg.Dispatch.FreshnessWindow),
	)

	s.httpServer, err = server.New(cfg, server.Deps{
		Trips:    tripService,
		Tracking: trackingService,
		Registry: s.hub,
		Auth:     auth.NewTokenService(cfg.Auth.JWTSecret, log),
		Checks:   checks,
	}, log)
	if err != nil {
		log.Error(ctx, "Failed to setup http server", err)
		return nil, err
	}

	return s, nil
}

func (s *DispatchService) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)

	s.httpServer.Run(ctx, errCh)
	defer func() {
		cancel()
		s.close(ctx)
		s.log.Info(ctx, "dispatch service closed")
	}()

	if s.broker != nil {
		go func() {
			if err := s.broker.Consume(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- err
			}
		}()
	}

	// Waiting signal
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(shutdownCh)

	s.log.Info(ctx, "dispatch service started")

	select {
	case errRun := <-errCh:
		return errRun
	case sig := <-shutdownCh:
		s.log.Info(ctx, "shuting down application", "signal", sig.String())
		return nil
	case <-ctx.Done():
		return nil
	}
}

func (s *DispatchService) close(ctx context.Context) {
	ctx = wrap.WithAction(context.WithoutCancel(ctx), "dispatch_close")

	if s.httpServer != nil {
		if err := s.httpServer.Stop(ctx); err != nil {
			s.log.Warn(ctx, "Failed to gracefully close http server", "error", err.Error())
		}
	}

	// hijacked websocket connections outlive server shutdown
	if s.hub != nil {
		s.hub.Close()
	}

	if s.rabbitMQ != nil {
		if err := s.rabbitMQ.Close(ctx); err != nil {
			s.log.Warn(ctx, "Failed to close rabbitmq", "error", err.Error())
		}
	}

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.log.Warn(ctx, "Failed to close redis", "error", err.Error())
		}
	}

	s.postgresDB.Close()
}
