package notifier

import (
	"context"
	"fmt"
	"time"

	"beacon-alerts/internal/config"
	"beacon-alerts/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// SMSNotifier delivers every intent as SMS through a Twilio-compatible
// REST API, one message per recipient.
type SMSNotifier struct {
	httpClient *resty.Client
	accountSID string
	logger     *zap.Logger
}

type smsResponse struct {
	SID          string `json:"sid"`
	Status       string `json:"status"`
	ErrorCode    *int   `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

// NewSMSNotifier creates the notifier.
func NewSMSNotifier(cfg *config.Config, logger *zap.Logger) *SMSNotifier {
	client := resty.New().
		SetBaseURL(cfg.Notifier.BaseURL).
		SetTimeout(15 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(1 * time.Second).
		SetBasicAuth(cfg.Notifier.AccountSID, cfg.Notifier.AuthToken)

	return &SMSNotifier{
		httpClient: client,
		accountSID: cfg.Notifier.AccountSID,
		logger:     logger,
	}
}

// StartAlertSession sends the initial alert to every responder.
func (n *SMSNotifier) StartAlertSession(ctx context.Context, alert models.SessionAlert) error {
	n.logger.Info("Starting alert session",
		zap.String("session_id", alert.SessionID),
		zap.String("alert_type", string(alert.AlertType)),
	)
	return n.sendToAll(ctx, alert.ToPhoneNumbers, alert.FromPhoneNumber, alert.Message)
}

// SendAlertSessionUpdate sends an escalation update.
func (n *SMSNotifier) SendAlertSessionUpdate(ctx context.Context, alert models.SessionAlert) error {
	n.logger.Info("Sending alert session update",
		zap.String("session_id", alert.SessionID),
		zap.String("alert_type", string(alert.AlertType)),
	)
	return n.sendToAll(ctx, alert.ToPhoneNumbers, alert.FromPhoneNumber, alert.Message)
}

// SendVitalsNotification sends one device-health message.
func (n *SMSNotifier) SendVitalsNotification(ctx context.Context, notification models.VitalsNotification) error {
	n.logger.Info("Sending vitals notification",
		zap.String("kind", string(notification.Kind)),
		zap.String("device_id", notification.DeviceID),
	)
	return n.sendToAll(ctx, notification.ToPhoneNumbers, notification.FromPhoneNumber, notification.Message)
}

// SendTenantSummary sends the aggregated status-change message.
func (n *SMSNotifier) SendTenantSummary(ctx context.Context, summary models.TenantStatusSummary) error {
	n.logger.Info("Sending tenant status summary",
		zap.String("tenant_id", summary.TenantID),
	)
	return n.sendToAll(ctx, summary.ToPhoneNumbers, summary.FromPhoneNumber, summary.Message)
}

func (n *SMSNotifier) sendToAll(ctx context.Context, toNumbers []string, fromNumber, message string) error {
	var firstErr error
	for _, to := range toNumbers {
		if err := n.send(ctx, to, fromNumber, message); err != nil {
			n.logger.Error("Failed to send SMS",
				zap.String("to", to),
				zap.Error(err),
			)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (n *SMSNotifier) send(ctx context.Context, to, from, body string) error {
	var result smsResponse
	resp, err := n.httpClient.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"To":   to,
			"From": from,
			"Body": body,
		}).
		SetResult(&result).
		Post(fmt.Sprintf("/2010-04-01/Accounts/%s/Messages.json", n.accountSID))
	if err != nil {
		return fmt.Errorf("sms request failed: %w", err)
	}

	if resp.IsError() {
		return fmt.Errorf("sms API returned %d: %s", resp.StatusCode(), result.ErrorMessage)
	}

	return nil
}
