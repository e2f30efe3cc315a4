package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"beacon-alerts/internal/config"
	"beacon-alerts/internal/models"
	"beacon-alerts/internal/redisutil"
)

// PressEvent is the wire shape the gateway bridge publishes to the
// press stream. BatteryLevel rides along on button presses when the
// radio reports it; absent or out-of-range readings are ignored
// downstream.
type PressEvent struct {
	DeviceID     string `json:"deviceId"`
	PressCount   int    `json:"pressCount"`
	BatteryLevel *int   `json:"batteryLevel,omitempty"`
}

// PressHandler is the correlation engine from the consumer's point of
// view. It owns its own error handling; the consumer acks regardless so
// a poison press cannot wedge the stream.
type PressHandler interface {
	HandlePress(ctx context.Context, device *models.Device, pressCount int, batteryLevel *int)
}

// DeviceLookup resolves a press to its device row.
type DeviceLookup interface {
	GetDevice(ctx context.Context, deviceID string) (*models.Device, error)
}

// PressConsumer reads press events from the Redis Stream consumer group
// and feeds them to the correlation engine one at a time, preserving
// stream order for a device's presses.
type PressConsumer struct {
	cfg     *config.Config
	client  *redis.Client
	devices DeviceLookup
	handler PressHandler
	logger  *zap.Logger
}

// NewPressConsumer creates the consumer and ensures its group exists.
func NewPressConsumer(ctx context.Context, cfg *config.Config, client *redis.Client, devices DeviceLookup, handler PressHandler, logger *zap.Logger) (*PressConsumer, error) {
	if err := redisutil.CreateConsumerGroup(ctx, client, cfg.Streams.PressStream, cfg.Streams.ConsumerGroup); err != nil {
		return nil, fmt.Errorf("failed to create press consumer group: %w", err)
	}

	return &PressConsumer{
		cfg:     cfg,
		client:  client,
		devices: devices,
		handler: handler,
		logger:  logger,
	}, nil
}

// Start consumes until the context is cancelled.
func (c *PressConsumer) Start(ctx context.Context) {
	c.logger.Info("press consumer started",
		zap.String("stream", c.cfg.Streams.PressStream),
		zap.String("group", c.cfg.Streams.ConsumerGroup))

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("press consumer stopped")
			return
		default:
		}

		msgs, err := redisutil.ReadFromStream(ctx, c.client,
			c.cfg.Streams.PressStream, c.cfg.Streams.ConsumerGroup, c.cfg.Streams.ConsumerName, 10)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("failed to read press stream", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		for _, msg := range msgs {
			c.processMessage(ctx, msg)
			if err := redisutil.AckMessage(ctx, c.client,
				c.cfg.Streams.PressStream, c.cfg.Streams.ConsumerGroup, msg.ID); err != nil {
				c.logger.Error("failed to ack press message",
					zap.String("message_id", msg.ID), zap.Error(err))
			}
		}
	}
}

func (c *PressConsumer) processMessage(ctx context.Context, msg redisutil.StreamMessage) {
	data, ok := msg.Values["data"].(string)
	if !ok {
		c.logger.Warn("press message missing data field",
			zap.String("message_id", msg.ID))
		return
	}

	var event PressEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		c.logger.Warn("failed to decode press event",
			zap.String("message_id", msg.ID), zap.Error(err))
		return
	}
	if event.DeviceID == "" {
		c.logger.Warn("press event missing device id",
			zap.String("message_id", msg.ID))
		return
	}

	device, err := c.devices.GetDevice(ctx, event.DeviceID)
	if err != nil {
		c.logger.Error("failed to load device for press",
			zap.String("device_id", event.DeviceID), zap.Error(err))
		return
	}
	if device == nil {
		c.logger.Warn("press from unknown device",
			zap.String("device_id", event.DeviceID))
		return
	}

	c.handler.HandlePress(ctx, device, event.PressCount, event.BatteryLevel)
}
