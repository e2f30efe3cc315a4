package models

import (
	"encoding/json"
	"time"
)

// VitalsSample is one heartbeat/battery reading for a device. Immutable
// once written; the engine only ever reads the most recent sample per
// device.
type VitalsSample struct {
	ID           string
	DeviceID     string
	BatteryLevel *int

	// SignalMetrics is vendor telemetry (RSSI, SNR, ...) passed through
	// opaquely for the dashboard side.
	SignalMetrics json.RawMessage

	CreatedAt time.Time
}
