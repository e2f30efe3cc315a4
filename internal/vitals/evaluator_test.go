package vitals

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"beacon-alerts/internal/config"
	"beacon-alerts/internal/models"
)

func evaluatorConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Vitals.SubsequentAlertThreshold = 24 * time.Hour
	cfg.Vitals.LowBatteryThreshold = 10
	cfg.Vitals.RecoveryBatteryThreshold = 80
	cfg.Vitals.Hub.FlicThreshold = 370 * time.Second
	cfg.Vitals.Hub.PingThreshold = 75 * time.Second
	cfg.Vitals.Hub.HeartbeatThreshold = 75 * time.Second
	cfg.Vitals.Hub.ExternalThreshold = 900 * time.Second
	return cfg
}

func sampleAgedBy(now time.Time, age time.Duration) *models.VitalsSample {
	return &models.VitalsSample{
		ID:        "sample-1",
		DeviceID:  "device-1",
		CreatedAt: now.Add(-age),
	}
}

func TestEvaluateHeartbeat(t *testing.T) {
	e := NewEvaluator(evaluatorConfig())
	now := time.Now()
	threshold := time.Hour
	staleAlert := now.Add(-25 * time.Hour)
	freshAlert := now.Add(-time.Hour)

	tests := []struct {
		name        string
		state       models.AlertFlagState
		lastAlertAt *time.Time
		sample      *models.VitalsSample
		want        HeartbeatOutcome
	}{
		{"healthy and fresh", models.FlagHealthy, nil, sampleAgedBy(now, 10*time.Minute), HeartbeatNoChange},
		{"healthy and stale", models.FlagHealthy, nil, sampleAgedBy(now, 2*time.Hour), HeartbeatDisconnected},
		{"never reported", models.FlagHealthy, nil, nil, HeartbeatNoChange},
		{"alerted and still stale within backoff", models.FlagAlerted, &freshAlert, sampleAgedBy(now, 2*time.Hour), HeartbeatNoChange},
		{"alerted and still stale past backoff", models.FlagAlerted, &staleAlert, sampleAgedBy(now, 30*time.Hour), HeartbeatDisconnectedReminder},
		{"alerted and fresh again", models.FlagAlerted, &freshAlert, sampleAgedBy(now, time.Minute), HeartbeatReconnected},
		{"alerted never reported stays put", models.FlagAlerted, &freshAlert, nil, HeartbeatNoChange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.EvaluateHeartbeat(tt.state, tt.lastAlertAt, tt.sample, now, threshold)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateBattery(t *testing.T) {
	e := NewEvaluator(evaluatorConfig())
	now := time.Now()
	staleAlert := now.Add(-25 * time.Hour)
	freshAlert := now.Add(-time.Hour)

	level := func(n int) *int { return &n }

	tests := []struct {
		name        string
		state       models.AlertFlagState
		lastAlertAt *time.Time
		level       *int
		want        BatteryOutcome
	}{
		{"healthy high", models.FlagHealthy, nil, level(90), BatteryNoChange},
		{"healthy just above threshold", models.FlagHealthy, nil, level(10), BatteryNoChange},
		{"healthy below threshold", models.FlagHealthy, nil, level(9), BatteryLow},
		{"no reading never transitions", models.FlagHealthy, nil, nil, BatteryNoChange},
		{"alerted still low within backoff", models.FlagAlerted, &freshAlert, level(9), BatteryNoChange},
		{"alerted still low past backoff", models.FlagAlerted, &staleAlert, level(9), BatteryLowReminder},
		{"alerted between thresholds holds", models.FlagAlerted, &staleAlert, level(50), BatteryNoChange},
		{"alerted at recovery boundary holds", models.FlagAlerted, &staleAlert, level(80), BatteryNoChange},
		{"alerted above recovery clears", models.FlagAlerted, &staleAlert, level(81), BatteryRecovered},
		{"alerted no reading holds", models.FlagAlerted, &staleAlert, nil, BatteryNoChange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.EvaluateBattery(tt.state, tt.lastAlertAt, tt.level, now)
			assert.Equal(t, tt.want, got)
		})
	}
}

// A level oscillating around the low threshold must not flap: once
// alerted, dipping back below and rising just above the threshold makes
// no transitions until the recovery boundary is crossed.
func TestEvaluateBattery_NoFlapAroundThreshold(t *testing.T) {
	e := NewEvaluator(evaluatorConfig())
	now := time.Now()
	alertAt := now.Add(-time.Minute)

	nine := 9
	eleven := 11

	assert.Equal(t, BatteryLow, e.EvaluateBattery(models.FlagHealthy, nil, &nine, now))
	assert.Equal(t, BatteryNoChange, e.EvaluateBattery(models.FlagAlerted, &alertAt, &eleven, now))
	assert.Equal(t, BatteryNoChange, e.EvaluateBattery(models.FlagAlerted, &alertAt, &nine, now))
}

func TestEvaluateHubInternal(t *testing.T) {
	e := NewEvaluator(evaluatorConfig())
	now := time.Now()

	hub := &models.Hub{
		ID:                  "hub-1",
		FlicLastSeenAt:      now.Add(-400 * time.Second),
		FlicLastPingAt:      now.Add(-10 * time.Second),
		HeartbeatLastSeenAt: now.Add(-100 * time.Second),
	}

	transitions := e.EvaluateHubInternal(hub, now)
	assert.Len(t, transitions, 2)
	assert.True(t, hub.SentInternalFlicAlert)
	assert.False(t, hub.SentInternalPingAlert)
	assert.True(t, hub.SentInternalHeartbeatAlert)

	// Same readings again: no new flips.
	transitions = e.EvaluateHubInternal(hub, now)
	assert.Empty(t, transitions)

	// Heartbeat recovers.
	hub.HeartbeatLastSeenAt = now.Add(-5 * time.Second)
	transitions = e.EvaluateHubInternal(hub, now)
	assert.Len(t, transitions, 1)
	assert.Equal(t, "heartbeat", transitions[0].Metric)
	assert.False(t, transitions[0].Exceeded)
	assert.False(t, hub.SentInternalHeartbeatAlert)
}

func TestEvaluateHubExternal(t *testing.T) {
	e := NewEvaluator(evaluatorConfig())
	now := time.Now()

	// All internal flags set but delays under the external threshold:
	// no customer-facing alert yet.
	hub := &models.Hub{
		ID:                         "hub-1",
		FlicLastSeenAt:             now.Add(-500 * time.Second),
		FlicLastPingAt:             now.Add(-500 * time.Second),
		HeartbeatLastSeenAt:        now.Add(-500 * time.Second),
		SentInternalFlicAlert:      true,
		SentInternalPingAlert:      true,
		SentInternalHeartbeatAlert: true,
		VitalsAlertState:           models.FlagHealthy,
	}
	assert.Equal(t, HeartbeatNoChange, e.EvaluateHubExternal(hub, now))

	// External threshold exceeded as well.
	hub.FlicLastSeenAt = now.Add(-1000 * time.Second)
	assert.Equal(t, HeartbeatDisconnected, e.EvaluateHubExternal(hub, now))

	// One internal flag clear blocks the external alert even when a
	// delay is huge.
	hub.SentInternalPingAlert = false
	assert.Equal(t, HeartbeatNoChange, e.EvaluateHubExternal(hub, now))

	// An alerted hub that reports again clears regardless of flags.
	hub.VitalsAlertState = models.FlagAlerted
	alertAt := now.Add(-time.Minute)
	hub.VitalsAlertAt = &alertAt
	assert.Equal(t, HeartbeatReconnected, e.EvaluateHubExternal(hub, now))

	// Still down past the backoff: reminder.
	hub.SentInternalPingAlert = true
	staleAlert := now.Add(-25 * time.Hour)
	hub.VitalsAlertAt = &staleAlert
	assert.Equal(t, HeartbeatDisconnectedReminder, e.EvaluateHubExternal(hub, now))
}
