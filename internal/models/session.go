package models

import "time"

// SessionState mirrors the conversational engine's states. The engine
// owns the full transition table; this service only cares about the
// terminal/non-terminal split.
type SessionState string

const (
	SessionStarted            SessionState = "STARTED"
	SessionWaitingForReply    SessionState = "WAITING_FOR_REPLY"
	SessionWaitingForCategory SessionState = "WAITING_FOR_CATEGORY"
	SessionWaitingForDetails  SessionState = "WAITING_FOR_DETAILS"
	SessionCompleted          SessionState = "COMPLETED"
)

// AlertType classifies the urgency of a session alert.
type AlertType string

const (
	AlertTypeNotUrgent AlertType = "NOT_URGENT"
	AlertTypeUrgent    AlertType = "URGENT"
)

// Session is one alert incident for a device, from first press until the
// conversational engine completes it. At most one non-terminal session
// exists per device at any instant.
type Session struct {
	ID           string
	DeviceID     string
	TenantID     string
	State        SessionState
	NumPresses   int
	AlertType    AlertType
	BatteryLevel *int
	RespondedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsTerminal reports whether the session can no longer absorb presses.
func (s *Session) IsTerminal() bool {
	return s.State == SessionCompleted
}

// IncrementPresses adds n presses to the running count.
func (s *Session) IncrementPresses(n int) {
	s.NumPresses += n
}

// UpdateBatteryLevel stores the reading only when it is valid. Invalid or
// absent readings must never erase a previously known level.
func (s *Session) UpdateBatteryLevel(level *int) {
	if ValidBatteryLevel(level) {
		v := *level
		s.BatteryLevel = &v
	}
}

// ValidBatteryLevel reports whether the reading is present and in [0,100].
func ValidBatteryLevel(level *int) bool {
	return level != nil && *level >= 0 && *level <= 100
}
