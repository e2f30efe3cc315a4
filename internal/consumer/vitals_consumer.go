package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"beacon-alerts/internal/config"
	"beacon-alerts/internal/models"
	"beacon-alerts/internal/mqttutil"
)

// VitalsPayload is the wire shape of one device vitals message. The
// device ID comes from the topic's last segment.
type VitalsPayload struct {
	BatteryLevel  *int            `json:"batteryLevel,omitempty"`
	SignalMetrics json.RawMessage `json:"signalMetrics,omitempty"`
}

// HeartbeatPayload is the wire shape of one hub heartbeat. The hub
// reports how long ago it last saw each metric, in seconds.
type HeartbeatPayload struct {
	FlicLastSeenSecs      float64 `json:"flicLastSeenSecs"`
	FlicLastPingSecs      float64 `json:"flicLastPingSecs"`
	HeartbeatLastSeenSecs float64 `json:"heartbeatLastSeenSecs"`
}

// SampleSink persists inbound samples.
type SampleSink interface {
	InsertSample(ctx context.Context, sample *models.VitalsSample) error
}

// SampleCache is written through on every inbound sample so sweeps read
// fresh data without a database round trip.
type SampleCache interface {
	Store(ctx context.Context, sample *models.VitalsSample) error
}

// HeartbeatSink persists hub heartbeat timestamps.
type HeartbeatSink interface {
	SaveHeartbeat(ctx context.Context, hubID string, flicLastSeenAt, flicLastPingAt, heartbeatLastSeenAt time.Time) error
}

// VitalsConsumer subscribes to the vitals and hub-heartbeat topics and
// turns messages into sample rows, cache entries, and hub timestamps.
type VitalsConsumer struct {
	cfg    *config.Config
	client *mqttutil.Client
	sink   SampleSink
	cache  SampleCache
	hubs   HeartbeatSink
	logger *zap.Logger
}

// NewVitalsConsumer creates the consumer.
func NewVitalsConsumer(cfg *config.Config, client *mqttutil.Client, sink SampleSink, cache SampleCache, hubs HeartbeatSink, logger *zap.Logger) *VitalsConsumer {
	return &VitalsConsumer{
		cfg:    cfg,
		client: client,
		sink:   sink,
		cache:  cache,
		hubs:   hubs,
		logger: logger,
	}
}

// Start subscribes to both topics. Message handling runs on paho's
// callback goroutines; subscription errors are returned to the caller.
func (c *VitalsConsumer) Start(ctx context.Context) error {
	if err := c.client.Subscribe(c.cfg.MQTT.Topic, c.cfg.MQTT.QoS, func(topic string, payload []byte) error {
		return c.handleVitals(ctx, topic, payload)
	}); err != nil {
		return fmt.Errorf("failed to subscribe to vitals topic: %w", err)
	}

	if err := c.client.Subscribe(c.cfg.MQTT.HeartbeatTopic, c.cfg.MQTT.QoS, func(topic string, payload []byte) error {
		return c.handleHeartbeat(ctx, topic, payload)
	}); err != nil {
		return fmt.Errorf("failed to subscribe to heartbeat topic: %w", err)
	}

	c.logger.Info("vitals consumer started",
		zap.String("vitals_topic", c.cfg.MQTT.Topic),
		zap.String("heartbeat_topic", c.cfg.MQTT.HeartbeatTopic))
	return nil
}

// Stop unsubscribes from both topics.
func (c *VitalsConsumer) Stop() {
	if err := c.client.Unsubscribe(c.cfg.MQTT.Topic, c.cfg.MQTT.HeartbeatTopic); err != nil {
		c.logger.Warn("failed to unsubscribe vitals topics", zap.Error(err))
	}
}

func (c *VitalsConsumer) handleVitals(ctx context.Context, topic string, payload []byte) error {
	deviceID := lastTopicSegment(topic)
	if deviceID == "" {
		return fmt.Errorf("vitals topic has no device id: %s", topic)
	}

	var msg VitalsPayload
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("failed to decode vitals payload: %w", err)
	}

	sample := &models.VitalsSample{
		ID:            uuid.New().String(),
		DeviceID:      deviceID,
		BatteryLevel:  msg.BatteryLevel,
		SignalMetrics: msg.SignalMetrics,
	}

	if err := c.sink.InsertSample(ctx, sample); err != nil {
		return fmt.Errorf("failed to store vitals sample: %w", err)
	}

	// Cache write-through is best effort; the sweep falls back to the
	// database on a miss.
	if err := c.cache.Store(ctx, sample); err != nil {
		c.logger.Warn("failed to cache vitals sample",
			zap.String("device_id", deviceID), zap.Error(err))
	}

	return nil
}

func (c *VitalsConsumer) handleHeartbeat(ctx context.Context, topic string, payload []byte) error {
	hubID := lastTopicSegment(topic)
	if hubID == "" {
		return fmt.Errorf("heartbeat topic has no hub id: %s", topic)
	}

	var msg HeartbeatPayload
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("failed to decode heartbeat payload: %w", err)
	}

	now := time.Now()
	flicLastSeenAt := now.Add(-secsToDuration(msg.FlicLastSeenSecs))
	flicLastPingAt := now.Add(-secsToDuration(msg.FlicLastPingSecs))
	heartbeatLastSeenAt := now.Add(-secsToDuration(msg.HeartbeatLastSeenSecs))

	if err := c.hubs.SaveHeartbeat(ctx, hubID, flicLastSeenAt, flicLastPingAt, heartbeatLastSeenAt); err != nil {
		return fmt.Errorf("failed to store hub heartbeat: %w", err)
	}
	return nil
}

func lastTopicSegment(topic string) string {
	idx := strings.LastIndex(topic, "/")
	if idx < 0 || idx == len(topic)-1 {
		return ""
	}
	return topic[idx+1:]
}

func secsToDuration(secs float64) time.Duration {
	return time.Duration(secs * float64(time.Second))
}
