package models

// SessionAlert is the outbound intent for a session escalation. The
// reminder/fallback fields are handed to the external conversational
// engine untouched.
type SessionAlert struct {
	SessionID       string
	AlertType       AlertType
	DeviceName      string
	ToPhoneNumbers  []string
	FromPhoneNumber string
	Message         string

	ReminderTimeoutMillis int
	FallbackTimeoutMillis int
	ReminderMessage       string
	FallbackMessage       string

	FallbackToPhoneNumbers  []string
	FallbackFromPhoneNumber string
}

// VitalsNotificationKind enumerates the vitals-flavored notifications.
type VitalsNotificationKind string

const (
	NotifDisconnectionInitial  VitalsNotificationKind = "disconnectionInitial"
	NotifDisconnectionReminder VitalsNotificationKind = "disconnectionReminder"
	NotifReconnection          VitalsNotificationKind = "reconnection"
	NotifLowBatteryInitial     VitalsNotificationKind = "lowBatteryInitial"
	NotifLowBatteryReminder    VitalsNotificationKind = "lowBatteryReminder"
	NotifLowBatteryRecovered   VitalsNotificationKind = "lowBatteryRecovered"
)

// VitalsNotification is the outbound intent for a single device's
// health change.
type VitalsNotification struct {
	Kind            VitalsNotificationKind
	DeviceID        string
	DeviceName      string
	ToPhoneNumbers  []string
	FromPhoneNumber string
	Message         string
}

// TenantStatusSummary is the once-per-sweep aggregated connection-change
// message for one tenant.
type TenantStatusSummary struct {
	TenantID        string
	ToPhoneNumbers  []string
	FromPhoneNumber string
	Message         string
}
