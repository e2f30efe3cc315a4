package consumer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"beacon-alerts/internal/config"
	"beacon-alerts/internal/models"
)

type fakeSampleSink struct {
	samples []*models.VitalsSample
}

func (f *fakeSampleSink) InsertSample(ctx context.Context, sample *models.VitalsSample) error {
	sample.CreatedAt = time.Now()
	f.samples = append(f.samples, sample)
	return nil
}

type fakeSampleCache struct {
	stored []*models.VitalsSample
}

func (f *fakeSampleCache) Store(ctx context.Context, sample *models.VitalsSample) error {
	f.stored = append(f.stored, sample)
	return nil
}

type fakeHeartbeatSink struct {
	hubIDs []string
	seen   []time.Time
	pings  []time.Time
	beats  []time.Time
}

func (f *fakeHeartbeatSink) SaveHeartbeat(ctx context.Context, hubID string, flicLastSeenAt, flicLastPingAt, heartbeatLastSeenAt time.Time) error {
	f.hubIDs = append(f.hubIDs, hubID)
	f.seen = append(f.seen, flicLastSeenAt)
	f.pings = append(f.pings, flicLastPingAt)
	f.beats = append(f.beats, heartbeatLastSeenAt)
	return nil
}

func newTestVitalsConsumer() (*VitalsConsumer, *fakeSampleSink, *fakeSampleCache, *fakeHeartbeatSink) {
	sink := &fakeSampleSink{}
	cache := &fakeSampleCache{}
	hubs := &fakeHeartbeatSink{}
	c := &VitalsConsumer{
		cfg:    &config.Config{},
		sink:   sink,
		cache:  cache,
		hubs:   hubs,
		logger: zap.NewNop(),
	}
	return c, sink, cache, hubs
}

func TestHandleVitals_StoresAndCaches(t *testing.T) {
	c, sink, cache, _ := newTestVitalsConsumer()

	err := c.handleVitals(context.Background(), "beacon/vitals/device-1",
		[]byte(`{"batteryLevel":64,"signalMetrics":{"rssi":-70}}`))
	require.NoError(t, err)

	require.Len(t, sink.samples, 1)
	sample := sink.samples[0]
	assert.Equal(t, "device-1", sample.DeviceID)
	assert.NotEmpty(t, sample.ID)
	require.NotNil(t, sample.BatteryLevel)
	assert.Equal(t, 64, *sample.BatteryLevel)
	assert.JSONEq(t, `{"rssi":-70}`, string(sample.SignalMetrics))

	require.Len(t, cache.stored, 1)
	assert.Equal(t, sample, cache.stored[0])
}

func TestHandleVitals_NoBattery(t *testing.T) {
	c, sink, _, _ := newTestVitalsConsumer()

	err := c.handleVitals(context.Background(), "beacon/vitals/device-1", []byte(`{}`))
	require.NoError(t, err)

	require.Len(t, sink.samples, 1)
	assert.Nil(t, sink.samples[0].BatteryLevel)
}

func TestHandleVitals_BadTopicOrPayload(t *testing.T) {
	c, sink, _, _ := newTestVitalsConsumer()

	assert.Error(t, c.handleVitals(context.Background(), "beacon/vitals/", []byte(`{}`)))
	assert.Error(t, c.handleVitals(context.Background(), "beacon/vitals/device-1", []byte(`not json`)))
	assert.Empty(t, sink.samples)
}

func TestHandleHeartbeat_ConvertsAgesToTimestamps(t *testing.T) {
	c, _, _, hubs := newTestVitalsConsumer()

	before := time.Now()
	err := c.handleHeartbeat(context.Background(), "beacon/heartbeat/hub-1",
		[]byte(`{"flicLastSeenSecs":120,"flicLastPingSecs":5,"heartbeatLastSeenSecs":10}`))
	require.NoError(t, err)
	after := time.Now()

	require.Len(t, hubs.hubIDs, 1)
	assert.Equal(t, "hub-1", hubs.hubIDs[0])

	// flic seen 120s ago, within the call's time window.
	assert.WithinDuration(t, before.Add(-120*time.Second), hubs.seen[0], after.Sub(before)+time.Second)
	assert.WithinDuration(t, before.Add(-5*time.Second), hubs.pings[0], after.Sub(before)+time.Second)
	assert.WithinDuration(t, before.Add(-10*time.Second), hubs.beats[0], after.Sub(before)+time.Second)
}

func TestLastTopicSegment(t *testing.T) {
	assert.Equal(t, "device-1", lastTopicSegment("beacon/vitals/device-1"))
	assert.Equal(t, "hub-1", lastTopicSegment("beacon/heartbeat/hub-1"))
	assert.Equal(t, "", lastTopicSegment("beacon/vitals/"))
	assert.Equal(t, "", lastTopicSegment("nosegments"))
}
