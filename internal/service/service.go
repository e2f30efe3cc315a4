package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"beacon-alerts/internal/cache"
	"beacon-alerts/internal/config"
	"beacon-alerts/internal/consumer"
	"beacon-alerts/internal/correlator"
	"beacon-alerts/internal/database"
	"beacon-alerts/internal/mqttutil"
	"beacon-alerts/internal/notifier"
	"beacon-alerts/internal/redisutil"
	"beacon-alerts/internal/repository"
	"beacon-alerts/internal/vitals"
)

// Service wires the ingestion consumers, the correlation engine, and
// the vitals sweeper over shared PostgreSQL and Redis connections.
type Service struct {
	cfg         *config.Config
	db          *sql.DB
	redisClient *redis.Client
	mqttClient  *mqttutil.Client
	logger      *zap.Logger

	sessionsRepo *repository.SessionsRepository
	devicesRepo  *repository.DevicesRepository
	tenantsRepo  *repository.TenantsRepository
	vitalsRepo   *repository.VitalsRepository
	hubsRepo     *repository.HubsRepository

	vitalsCache    *cache.VitalsCache
	correlator     *correlator.Correlator
	sweeper        *vitals.Sweeper
	pressConsumer  *consumer.PressConsumer
	vitalsConsumer *consumer.VitalsConsumer
}

// New connects to PostgreSQL, Redis, and MQTT and assembles the engine.
func New(ctx context.Context, cfg *config.Config, n notifier.Notifier, logger *zap.Logger) (*Service, error) {
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	redisClient := redisutil.NewClient(&cfg.Redis)
	if err := redisutil.Ping(ctx, redisClient); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	mqttClient, err := mqttutil.NewClient(&cfg.MQTT, logger)
	if err != nil {
		db.Close()
		redisClient.Close()
		return nil, fmt.Errorf("failed to connect to mqtt broker: %w", err)
	}

	sessionsRepo := repository.NewSessionsRepository(db, logger)
	devicesRepo := repository.NewDevicesRepository(db, logger)
	tenantsRepo := repository.NewTenantsRepository(db, logger)
	vitalsRepo := repository.NewVitalsRepository(db, logger)
	hubsRepo := repository.NewHubsRepository(db, logger)

	vitalsCache := cache.NewVitalsCache(cfg, cache.NewRedisKVStore(redisClient), vitalsRepo, logger)

	corr := correlator.New(cfg, sessionsRepo, tenantsRepo, n, logger)
	sweeper := vitals.NewSweeper(cfg, devicesRepo, hubsRepo, vitalsCache, tenantsRepo, n, logger)

	pressConsumer, err := consumer.NewPressConsumer(ctx, cfg, redisClient, devicesRepo, corr, logger)
	if err != nil {
		db.Close()
		redisClient.Close()
		mqttClient.Disconnect()
		return nil, err
	}

	vitalsConsumer := consumer.NewVitalsConsumer(cfg, mqttClient, vitalsRepo, vitalsCache, hubsRepo, logger)

	return &Service{
		cfg:            cfg,
		db:             db,
		redisClient:    redisClient,
		mqttClient:     mqttClient,
		logger:         logger,
		sessionsRepo:   sessionsRepo,
		devicesRepo:    devicesRepo,
		tenantsRepo:    tenantsRepo,
		vitalsRepo:     vitalsRepo,
		hubsRepo:       hubsRepo,
		vitalsCache:    vitalsCache,
		correlator:     corr,
		sweeper:        sweeper,
		pressConsumer:  pressConsumer,
		vitalsConsumer: vitalsConsumer,
	}, nil
}

// Start launches the consumers and the sweeper and blocks until the
// context is cancelled.
func (s *Service) Start(ctx context.Context) error {
	s.logger.Info("starting beacon-alerts")

	if err := s.vitalsConsumer.Start(ctx); err != nil {
		return err
	}

	go s.sweeper.Start(ctx)
	s.pressConsumer.Start(ctx)

	s.vitalsConsumer.Stop()
	return nil
}

// Stop closes the shared connections.
func (s *Service) Stop() {
	s.logger.Info("stopping beacon-alerts")

	s.mqttClient.Disconnect()

	if err := s.redisClient.Close(); err != nil {
		s.logger.Error("failed to close redis", zap.Error(err))
	}
	if err := s.db.Close(); err != nil {
		s.logger.Error("failed to close database", zap.Error(err))
	}
}
