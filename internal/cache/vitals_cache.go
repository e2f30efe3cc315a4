package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"beacon-alerts/internal/config"
	"beacon-alerts/internal/models"
)

// SampleFallback is consulted on a cache miss.
type SampleFallback interface {
	LatestSampleForDevice(ctx context.Context, deviceID string) (*models.VitalsSample, error)
}

// VitalsCache keeps the freshest sample per device in Redis so the
// sweep does not hit PostgreSQL once per device per minute. The ingest
// path writes through on every sample; reads fall back to the database
// on a miss.
type VitalsCache struct {
	cfg      *config.Config
	kv       KVStore
	fallback SampleFallback
	logger   *zap.Logger
}

// NewVitalsCache creates the cache.
func NewVitalsCache(cfg *config.Config, kv KVStore, fallback SampleFallback, logger *zap.Logger) *VitalsCache {
	return &VitalsCache{
		cfg:      cfg,
		kv:       kv,
		fallback: fallback,
		logger:   logger,
	}
}

func (c *VitalsCache) key(deviceID string) string {
	return c.cfg.Cache.VitalsKeyPrefix + deviceID + c.cfg.Cache.VitalsSuffix
}

// Store writes a sample through to Redis.
func (c *VitalsCache) Store(ctx context.Context, sample *models.VitalsSample) error {
	data, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("failed to marshal vitals sample: %w", err)
	}

	ttl := time.Duration(c.cfg.Cache.VitalsTTL) * time.Second
	if err := c.kv.Set(ctx, c.key(sample.DeviceID), string(data), ttl); err != nil {
		return fmt.Errorf("failed to cache vitals sample: %w", err)
	}

	c.logger.Debug("cached vitals sample",
		zap.String("device_id", sample.DeviceID))
	return nil
}

// LatestSample returns the freshest sample for a device. A cache miss
// or a corrupt entry falls back to the database; a device with no
// samples at all returns (nil, nil).
func (c *VitalsCache) LatestSample(ctx context.Context, deviceID string) (*models.VitalsSample, error) {
	val, err := c.kv.Get(ctx, c.key(deviceID))
	if err == nil {
		var sample models.VitalsSample
		if err := json.Unmarshal([]byte(val), &sample); err == nil {
			return &sample, nil
		}
		c.logger.Warn("discarding corrupt vitals cache entry",
			zap.String("device_id", deviceID))
	} else if !errors.Is(err, ErrCacheMiss) {
		c.logger.Warn("vitals cache read failed, falling back to database",
			zap.String("device_id", deviceID), zap.Error(err))
	}

	sample, err := c.fallback.LatestSampleForDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if sample != nil {
		if err := c.Store(ctx, sample); err != nil {
			c.logger.Warn("failed to refill vitals cache",
				zap.String("device_id", deviceID), zap.Error(err))
		}
	}
	return sample, nil
}
