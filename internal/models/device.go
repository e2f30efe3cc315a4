package models

import "time"

// DeviceCategory distinguishes the kinds of field hardware we monitor.
type DeviceCategory string

const (
	DeviceCategoryButton  DeviceCategory = "button"
	DeviceCategoryGateway DeviceCategory = "gateway"
)

// AlertFlagState is the two-state hysteresis machine tracked per vitals
// metric: HEALTHY means no alert is outstanding, ALERTED means a
// disconnection or low-battery alert has been sent and not yet cleared.
type AlertFlagState string

const (
	FlagHealthy AlertFlagState = "HEALTHY"
	FlagAlerted AlertFlagState = "ALERTED"
)

// Device is a panic button or radio gateway belonging to a tenant.
type Device struct {
	ID          string
	TenantID    string
	DisplayName string
	Category    DeviceCategory

	// PhoneNumber is the number the device's alert sessions send from.
	PhoneNumber string

	IsSendingAlerts bool
	IsSendingVitals bool

	// Heartbeat hysteresis state plus the time the last alert went out.
	VitalsAlertState AlertFlagState
	VitalsAlertAt    *time.Time

	// Low-battery hysteresis state (buttons only).
	BatteryAlertState AlertFlagState
	BatteryAlertAt    *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Hub is an aggregating button hub. It carries three internal
// (operator-facing) heartbeat metrics and one external (tenant-facing)
// alert flag.
type Hub struct {
	ID                  string
	TenantID            string
	SystemName          string
	LocationDescription string
	Muted               bool

	FlicLastSeenAt      time.Time
	FlicLastPingAt      time.Time
	HeartbeatLastSeenAt time.Time

	SentInternalFlicAlert      bool
	SentInternalPingAlert      bool
	SentInternalHeartbeatAlert bool

	VitalsAlertState AlertFlagState
	VitalsAlertAt    *time.Time
}
