package models

import "time"

// Tenant owns devices and carries the notification recipient lists.
// Read-only from this service's perspective.
type Tenant struct {
	ID          string
	DisplayName string

	// Language selects the notification text catalog ("en", "es_us").
	Language string

	IsSendingAlerts bool
	IsSendingVitals bool

	ResponderPhoneNumbers []string
	HeartbeatPhoneNumbers []string
	FallbackPhoneNumbers  []string

	FromPhoneNumber         string
	FallbackFromPhoneNumber string

	// Session reply timeouts, handed through to the conversational
	// engine on the initial alert. Seconds.
	ReminderTimeout int
	FallbackTimeout int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HeartbeatRecipients is everyone who should hear about vitals changes:
// the heartbeat list plus the responders.
func (t *Tenant) HeartbeatRecipients() []string {
	recipients := make([]string, 0, len(t.HeartbeatPhoneNumbers)+len(t.ResponderPhoneNumbers))
	recipients = append(recipients, t.HeartbeatPhoneNumbers...)
	recipients = append(recipients, t.ResponderPhoneNumbers...)
	return recipients
}
