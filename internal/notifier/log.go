package notifier

import (
	"context"

	"beacon-alerts/internal/models"

	"go.uber.org/zap"
)

// LogNotifier writes every intent to the log instead of delivering it.
// Used in dry-run deployments and in tests.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates the notifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) StartAlertSession(ctx context.Context, alert models.SessionAlert) error {
	n.logger.Info("ALERT SESSION START",
		zap.String("session_id", alert.SessionID),
		zap.String("alert_type", string(alert.AlertType)),
		zap.Strings("to", alert.ToPhoneNumbers),
		zap.String("message", alert.Message),
	)
	return nil
}

func (n *LogNotifier) SendAlertSessionUpdate(ctx context.Context, alert models.SessionAlert) error {
	n.logger.Info("ALERT SESSION UPDATE",
		zap.String("session_id", alert.SessionID),
		zap.Strings("to", alert.ToPhoneNumbers),
		zap.String("message", alert.Message),
	)
	return nil
}

func (n *LogNotifier) SendVitalsNotification(ctx context.Context, notification models.VitalsNotification) error {
	n.logger.Info("VITALS NOTIFICATION",
		zap.String("kind", string(notification.Kind)),
		zap.String("device_id", notification.DeviceID),
		zap.Strings("to", notification.ToPhoneNumbers),
		zap.String("message", notification.Message),
	)
	return nil
}

func (n *LogNotifier) SendTenantSummary(ctx context.Context, summary models.TenantStatusSummary) error {
	n.logger.Info("TENANT STATUS SUMMARY",
		zap.String("tenant_id", summary.TenantID),
		zap.Strings("to", summary.ToPhoneNumbers),
		zap.String("message", summary.Message),
	)
	return nil
}
