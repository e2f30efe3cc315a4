package notifier

import (
	"context"

	"beacon-alerts/internal/models"
)

// Notifier is the outbound messaging collaborator. The engine decides
// whether and what to send; delivery mechanics (channel, retries,
// receipts) live behind this interface.
type Notifier interface {
	// StartAlertSession announces a brand-new incident and hands the
	// reminder/fallback plumbing to the conversational engine.
	StartAlertSession(ctx context.Context, alert models.SessionAlert) error

	// SendAlertSessionUpdate escalates an already-announced incident.
	SendAlertSessionUpdate(ctx context.Context, alert models.SessionAlert) error

	// SendVitalsNotification delivers one device-health message.
	SendVitalsNotification(ctx context.Context, notification models.VitalsNotification) error

	// SendTenantSummary delivers the per-sweep aggregated status message.
	SendTenantSummary(ctx context.Context, summary models.TenantStatusSummary) error
}
