package correlator

import (
	"context"
	"time"

	"beacon-alerts/internal/config"
	"beacon-alerts/internal/messages"
	"beacon-alerts/internal/models"
	"beacon-alerts/internal/notifier"
	"beacon-alerts/internal/repository"

	"go.uber.org/zap"
)

// SessionStore opens the serialized press transaction.
type SessionStore interface {
	BeginPressTx(ctx context.Context) (repository.PressTx, error)
}

// TenantStore reads tenant configuration.
type TenantStore interface {
	GetTenant(ctx context.Context, tenantID string) (*models.Tenant, error)
}

// Correlator merges repeated press events into a single active session
// per device and decides when an escalation is warranted.
type Correlator struct {
	cfg      *config.Config
	sessions SessionStore
	tenants  TenantStore
	notifier notifier.Notifier
	logger   *zap.Logger
}

// New creates the correlator. The notifier is injected here; there is no
// package-level dispatch target.
func New(cfg *config.Config, sessions SessionStore, tenants TenantStore, n notifier.Notifier, logger *zap.Logger) *Correlator {
	return &Correlator{
		cfg:      cfg,
		sessions: sessions,
		tenants:  tenants,
		notifier: n,
		logger:   logger,
	}
}

// HandlePress processes one validated press event. It never returns an
// error: every failure is absorbed and logged so the ingestion boundary
// can acknowledge the hardware regardless, and retried deliveries land
// on the existing session instead of creating duplicates.
func (c *Correlator) HandlePress(ctx context.Context, device *models.Device, pressCount int, batteryLevel *int) {
	c.logger.Info("Handling button press",
		zap.String("device_id", device.ID),
		zap.String("display_name", device.DisplayName),
		zap.Int("press_count", pressCount),
		zap.Any("battery_level", batteryLevel),
	)

	if pressCount < 1 {
		c.logger.Error("Ignoring press event with non-positive count",
			zap.String("device_id", device.ID),
			zap.Int("press_count", pressCount),
		)
		return
	}

	// Alert-flag guards run before any transaction is opened.
	if !device.IsSendingAlerts {
		c.logger.Info("Device is not sending alerts, ignoring press",
			zap.String("device_id", device.ID),
		)
		return
	}

	tenant, err := c.tenants.GetTenant(ctx, device.TenantID)
	if err != nil {
		c.logger.Error("Failed to get tenant for press",
			zap.String("device_id", device.ID),
			zap.String("tenant_id", device.TenantID),
			zap.Error(err),
		)
		return
	}
	if !tenant.IsSendingAlerts {
		c.logger.Info("Tenant is not sending alerts, ignoring press",
			zap.String("device_id", device.ID),
			zap.String("tenant_id", tenant.ID),
		)
		return
	}

	session, createdNew, prevUpdatedAt, now, ok := c.recordPress(ctx, device, pressCount, batteryLevel)
	if !ok {
		return
	}

	c.dispatchEscalation(ctx, device, tenant, session, createdNew, prevUpdatedAt, now)
}

// recordPress runs the find-or-create sequence inside the serialized
// transaction. It returns the resulting session, whether it was created
// fresh, the session's updatedAt prior to this press, and the database
// clock used for staleness.
func (c *Correlator) recordPress(ctx context.Context, device *models.Device, pressCount int, batteryLevel *int) (session *models.Session, createdNew bool, prevUpdatedAt time.Time, now time.Time, ok bool) {
	tx, err := c.sessions.BeginPressTx(ctx)
	if err != nil {
		c.logger.Error("Failed to begin press transaction",
			zap.String("device_id", device.ID),
			zap.Error(err),
		)
		return nil, false, time.Time{}, time.Time{}, false
	}

	now, err = tx.CurrentTime(ctx)
	if err != nil {
		c.rollback(tx, device.ID, err)
		return nil, false, time.Time{}, time.Time{}, false
	}

	current, err := tx.ActiveSessionForDevice(ctx, device.ID)
	if err != nil {
		c.rollback(tx, device.ID, err)
		return nil, false, time.Time{}, time.Time{}, false
	}

	stale := current == nil || now.Sub(current.UpdatedAt) >= c.cfg.Session.ResetTimeout

	if stale {
		session = &models.Session{
			DeviceID:   device.ID,
			TenantID:   device.TenantID,
			State:      models.SessionStarted,
			NumPresses: pressCount,
			AlertType:  models.AlertTypeNotUrgent,
		}
		session.UpdateBatteryLevel(batteryLevel)
		if err := tx.CreateSession(ctx, session); err != nil {
			c.rollback(tx, device.ID, err)
			return nil, false, time.Time{}, time.Time{}, false
		}
		createdNew = true
	} else {
		prevUpdatedAt = current.UpdatedAt
		current.IncrementPresses(pressCount)
		current.UpdateBatteryLevel(batteryLevel)
		if err := tx.SaveSession(ctx, current); err != nil {
			c.rollback(tx, device.ID, err)
			return nil, false, time.Time{}, time.Time{}, false
		}
		session = current
	}

	if err := tx.Commit(); err != nil {
		c.logger.Error("Failed to commit press transaction",
			zap.String("device_id", device.ID),
			zap.Error(err),
		)
		return nil, false, time.Time{}, time.Time{}, false
	}

	return session, createdNew, prevUpdatedAt, now, true
}

// dispatchEscalation decides the tier from the resulting press count.
// At most one intent goes out per press.
func (c *Correlator) dispatchEscalation(ctx context.Context, device *models.Device, tenant *models.Tenant, session *models.Session, createdNew bool, prevUpdatedAt, now time.Time) {
	switch {
	case session.NumPresses == 1:
		// The only point where a brand-new incident is announced.
		alert := c.buildAlert(device, tenant, session, models.AlertTypeNotUrgent,
			messages.InitialAlert(tenant.Language, device.DisplayName))
		if err := c.notifier.StartAlertSession(ctx, alert); err != nil {
			c.logger.Error("Failed to start alert session",
				zap.String("session_id", session.ID),
				zap.Error(err),
			)
		}

	case session.NumPresses == 2,
		session.NumPresses%5 == 0,
		!createdNew && now.Sub(prevUpdatedAt) >= c.cfg.Session.SubsequentUrgentThreshold:
		alert := c.buildAlert(device, tenant, session, models.AlertTypeUrgent,
			messages.UrgentAlert(tenant.Language, session.NumPresses))
		if err := c.notifier.SendAlertSessionUpdate(ctx, alert); err != nil {
			c.logger.Error("Failed to send alert session update",
				zap.String("session_id", session.ID),
				zap.Error(err),
			)
		}

	default:
		// Press recorded, no escalation boundary crossed.
	}
}

func (c *Correlator) buildAlert(device *models.Device, tenant *models.Tenant, session *models.Session, alertType models.AlertType, message string) models.SessionAlert {
	return models.SessionAlert{
		SessionID:       session.ID,
		AlertType:       alertType,
		DeviceName:      device.DisplayName,
		ToPhoneNumbers:  tenant.ResponderPhoneNumbers,
		FromPhoneNumber: device.PhoneNumber,
		Message:         message,

		ReminderTimeoutMillis: tenant.ReminderTimeout * 1000,
		FallbackTimeoutMillis: tenant.FallbackTimeout * 1000,
		ReminderMessage:       messages.AlertReminder(tenant.Language),
		FallbackMessage:       messages.AlertFallback(tenant.Language, tenant.DisplayName, device.DisplayName),

		FallbackToPhoneNumbers:  tenant.FallbackPhoneNumbers,
		FallbackFromPhoneNumber: tenant.FallbackFromPhoneNumber,
	}
}

func (c *Correlator) rollback(tx repository.PressTx, deviceID string, cause error) {
	c.logger.Error("Rolling back press transaction",
		zap.String("device_id", deviceID),
		zap.Error(cause),
	)
	if err := tx.Rollback(); err != nil {
		c.logger.Error("Failed to roll back press transaction",
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
	}
}
