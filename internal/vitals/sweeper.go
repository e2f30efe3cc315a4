package vitals

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"beacon-alerts/internal/config"
	"beacon-alerts/internal/messages"
	"beacon-alerts/internal/models"
	"beacon-alerts/internal/notifier"
)

// DeviceStore is the slice of device persistence the sweeper needs.
type DeviceStore interface {
	DevicesByCategory(ctx context.Context, category models.DeviceCategory) ([]models.Device, error)
	UpdateVitalsAlert(ctx context.Context, deviceID string, state models.AlertFlagState, alertedAt *time.Time) error
	UpdateBatteryAlert(ctx context.Context, deviceID string, state models.AlertFlagState, alertedAt *time.Time) error
	HasDisconnectedGateway(ctx context.Context, tenantID string) (bool, error)
}

// HubStore is the slice of hub persistence the sweeper needs.
type HubStore interface {
	Hubs(ctx context.Context) ([]models.Hub, error)
	UpdateInternalFlags(ctx context.Context, hub *models.Hub) error
	UpdateVitalsAlert(ctx context.Context, hubID string, state models.AlertFlagState, alertedAt *time.Time) error
}

// SampleSource serves the freshest vitals sample per device. Backed by
// the Redis cache with a database fallback.
type SampleSource interface {
	LatestSample(ctx context.Context, deviceID string) (*models.VitalsSample, error)
}

// TenantStore resolves tenants for recipient lists and flags.
type TenantStore interface {
	GetTenant(ctx context.Context, tenantID string) (*models.Tenant, error)
}

// tenantChanges accumulates one tenant's connection flips across a
// single sweep, so the tenant hears one summary rather than one message
// per device.
type tenantChanges struct {
	tenant       *models.Tenant
	disconnected []string
	reconnected  []string
}

// Sweeper walks every gateway, button, and hub on a fixed interval and
// applies the hysteresis transitions the Evaluator decides on.
type Sweeper struct {
	cfg       *config.Config
	evaluator *Evaluator
	devices   DeviceStore
	hubs      HubStore
	samples   SampleSource
	tenants   TenantStore
	notifier  notifier.Notifier
	logger    *zap.Logger

	now func() time.Time
}

// NewSweeper creates the sweeper.
func NewSweeper(cfg *config.Config, devices DeviceStore, hubs HubStore, samples SampleSource, tenants TenantStore, n notifier.Notifier, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		cfg:       cfg,
		evaluator: NewEvaluator(cfg),
		devices:   devices,
		hubs:      hubs,
		samples:   samples,
		tenants:   tenants,
		notifier:  n,
		logger:    logger,
		now:       time.Now,
	}
}

// Start runs sweeps until the context is cancelled. Ticks never overlap:
// a slow sweep delays the next one rather than racing it.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Vitals.SweepInterval)
	defer ticker.Stop()

	s.logger.Info("vitals sweeper started",
		zap.Duration("interval", s.cfg.Vitals.SweepInterval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("vitals sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one full pass. Gateways go first so that button
// evaluations in the same pass see fresh gateway outage state; hubs run
// independently last. A failure on one device is logged and skipped, so
// one bad row cannot starve the rest of the fleet.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := s.now()
	changes := make(map[string]*tenantChanges)
	tenantCache := make(map[string]*models.Tenant)

	s.sweepGateways(ctx, now, changes, tenantCache)
	s.sweepButtons(ctx, now, changes, tenantCache)
	s.sweepHubs(ctx, now, tenantCache)
	s.sendSummaries(ctx, changes)
}

// gatewayOutage reports whether the tenant has a gateway alert
// outstanding, memoized for the current pass. The gateway pass runs
// first, so the flags read here already reflect this sweep's flips.
func (s *Sweeper) gatewayOutage(ctx context.Context, memo map[string]bool, tenantID string) bool {
	if down, ok := memo[tenantID]; ok {
		return down
	}
	down, err := s.devices.HasDisconnectedGateway(ctx, tenantID)
	if err != nil {
		s.logger.Error("failed to check gateway outage",
			zap.String("tenant_id", tenantID), zap.Error(err))
		down = false
	}
	memo[tenantID] = down
	return down
}

func (s *Sweeper) tenant(ctx context.Context, cache map[string]*models.Tenant, tenantID string) *models.Tenant {
	if t, ok := cache[tenantID]; ok {
		return t
	}
	t, err := s.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		s.logger.Error("failed to load tenant", zap.String("tenant_id", tenantID), zap.Error(err))
		cache[tenantID] = nil
		return nil
	}
	cache[tenantID] = t
	return t
}

func (s *Sweeper) changesFor(changes map[string]*tenantChanges, tenant *models.Tenant) *tenantChanges {
	c, ok := changes[tenant.ID]
	if !ok {
		c = &tenantChanges{tenant: tenant}
		changes[tenant.ID] = c
	}
	return c
}

func (s *Sweeper) sweepGateways(ctx context.Context, now time.Time, changes map[string]*tenantChanges, tenantCache map[string]*models.Tenant) {
	gateways, err := s.devices.DevicesByCategory(ctx, models.DeviceCategoryGateway)
	if err != nil {
		s.logger.Error("failed to list gateways", zap.Error(err))
		return
	}

	for i := range gateways {
		gateway := &gateways[i]
		tenant := s.tenant(ctx, tenantCache, gateway.TenantID)
		if tenant == nil || !gateway.IsSendingVitals || !tenant.IsSendingVitals {
			continue
		}

		sample, err := s.samples.LatestSample(ctx, gateway.ID)
		if err != nil {
			s.logger.Error("failed to load gateway vitals",
				zap.String("device_id", gateway.ID), zap.Error(err))
			continue
		}

		outcome := s.evaluator.EvaluateHeartbeat(gateway.VitalsAlertState, gateway.VitalsAlertAt,
			sample, now, s.cfg.Vitals.GatewayHeartbeatThreshold)

		switch outcome {
		case HeartbeatDisconnected:
			if err := s.devices.UpdateVitalsAlert(ctx, gateway.ID, models.FlagAlerted, &now); err != nil {
				s.logger.Error("failed to flag gateway disconnection",
					zap.String("device_id", gateway.ID), zap.Error(err))
				continue
			}
			s.logger.Warn("gateway disconnected",
				zap.String("device_id", gateway.ID),
				zap.String("display_name", gateway.DisplayName))
			s.sendVitalsNotification(ctx, tenant, gateway, models.NotifDisconnectionInitial,
				messages.GatewayDisconnection(tenant.Language, gateway.DisplayName))
			c := s.changesFor(changes, tenant)
			c.disconnected = append(c.disconnected, gateway.DisplayName)

		case HeartbeatDisconnectedReminder:
			if err := s.devices.UpdateVitalsAlert(ctx, gateway.ID, models.FlagAlerted, &now); err != nil {
				s.logger.Error("failed to refresh gateway alert",
					zap.String("device_id", gateway.ID), zap.Error(err))
				continue
			}
			s.sendVitalsNotification(ctx, tenant, gateway, models.NotifDisconnectionReminder,
				messages.GatewayDisconnectionReminder(tenant.Language, gateway.DisplayName))

		case HeartbeatReconnected:
			if err := s.devices.UpdateVitalsAlert(ctx, gateway.ID, models.FlagHealthy, nil); err != nil {
				s.logger.Error("failed to clear gateway alert",
					zap.String("device_id", gateway.ID), zap.Error(err))
				continue
			}
			s.logger.Info("gateway reconnected",
				zap.String("device_id", gateway.ID),
				zap.String("display_name", gateway.DisplayName))
			s.sendVitalsNotification(ctx, tenant, gateway, models.NotifReconnection,
				messages.GatewayReconnection(tenant.Language, gateway.DisplayName))
			c := s.changesFor(changes, tenant)
			c.reconnected = append(c.reconnected, gateway.DisplayName)
		}
	}
}

func (s *Sweeper) sweepButtons(ctx context.Context, now time.Time, changes map[string]*tenantChanges, tenantCache map[string]*models.Tenant) {
	buttons, err := s.devices.DevicesByCategory(ctx, models.DeviceCategoryButton)
	if err != nil {
		s.logger.Error("failed to list buttons", zap.Error(err))
		return
	}

	outageMemo := make(map[string]bool)
	for i := range buttons {
		button := &buttons[i]
		tenant := s.tenant(ctx, tenantCache, button.TenantID)
		if tenant == nil || !button.IsSendingVitals || !tenant.IsSendingVitals {
			continue
		}

		sample, err := s.samples.LatestSample(ctx, button.ID)
		if err != nil {
			s.logger.Error("failed to load button vitals",
				zap.String("device_id", button.ID), zap.Error(err))
			continue
		}

		s.applyButtonHeartbeat(ctx, now, button, tenant, sample, changes, s.gatewayOutage(ctx, outageMemo, button.TenantID))
		s.applyButtonBattery(ctx, now, button, tenant, sample)
	}
}

// applyButtonHeartbeat handles a button's connectivity transition. While
// the tenant has a gateway outage every button behind it looks dead too,
// so the per-button message and summary entry are suppressed; the flag
// still flips so the eventual reconnection reads correctly.
func (s *Sweeper) applyButtonHeartbeat(ctx context.Context, now time.Time, button *models.Device, tenant *models.Tenant, sample *models.VitalsSample, changes map[string]*tenantChanges, gatewayOut bool) {
	outcome := s.evaluator.EvaluateHeartbeat(button.VitalsAlertState, button.VitalsAlertAt,
		sample, now, s.cfg.Vitals.ButtonHeartbeatThreshold)

	switch outcome {
	case HeartbeatDisconnected:
		if err := s.devices.UpdateVitalsAlert(ctx, button.ID, models.FlagAlerted, &now); err != nil {
			s.logger.Error("failed to flag button disconnection",
				zap.String("device_id", button.ID), zap.Error(err))
			return
		}
		if gatewayOut {
			s.logger.Info("button disconnection suppressed during gateway outage",
				zap.String("device_id", button.ID),
				zap.String("tenant_id", button.TenantID))
			return
		}
		s.logger.Warn("button disconnected",
			zap.String("device_id", button.ID),
			zap.String("display_name", button.DisplayName))
		s.sendVitalsNotification(ctx, tenant, button, models.NotifDisconnectionInitial,
			messages.ButtonDisconnection(tenant.Language, button.DisplayName))
		c := s.changesFor(changes, tenant)
		c.disconnected = append(c.disconnected, button.DisplayName)

	case HeartbeatDisconnectedReminder:
		if err := s.devices.UpdateVitalsAlert(ctx, button.ID, models.FlagAlerted, &now); err != nil {
			s.logger.Error("failed to refresh button alert",
				zap.String("device_id", button.ID), zap.Error(err))
			return
		}
		if gatewayOut {
			return
		}
		s.sendVitalsNotification(ctx, tenant, button, models.NotifDisconnectionReminder,
			messages.ButtonDisconnectionReminder(tenant.Language, button.DisplayName))

	case HeartbeatReconnected:
		if err := s.devices.UpdateVitalsAlert(ctx, button.ID, models.FlagHealthy, nil); err != nil {
			s.logger.Error("failed to clear button alert",
				zap.String("device_id", button.ID), zap.Error(err))
			return
		}
		s.logger.Info("button reconnected",
			zap.String("device_id", button.ID),
			zap.String("display_name", button.DisplayName))
		s.sendVitalsNotification(ctx, tenant, button, models.NotifReconnection,
			messages.ButtonReconnection(tenant.Language, button.DisplayName))
		c := s.changesFor(changes, tenant)
		c.reconnected = append(c.reconnected, button.DisplayName)
	}
}

func (s *Sweeper) applyButtonBattery(ctx context.Context, now time.Time, button *models.Device, tenant *models.Tenant, sample *models.VitalsSample) {
	var level *int
	if sample != nil {
		level = sample.BatteryLevel
	}

	outcome := s.evaluator.EvaluateBattery(button.BatteryAlertState, button.BatteryAlertAt, level, now)

	switch outcome {
	case BatteryLow:
		if err := s.devices.UpdateBatteryAlert(ctx, button.ID, models.FlagAlerted, &now); err != nil {
			s.logger.Error("failed to flag low battery",
				zap.String("device_id", button.ID), zap.Error(err))
			return
		}
		s.logger.Warn("button battery low",
			zap.String("device_id", button.ID),
			zap.Intp("battery_level", level))
		s.sendVitalsNotification(ctx, tenant, button, models.NotifLowBatteryInitial,
			messages.LowBatteryInitial(tenant.Language, button.DisplayName))

	case BatteryLowReminder:
		if err := s.devices.UpdateBatteryAlert(ctx, button.ID, models.FlagAlerted, &now); err != nil {
			s.logger.Error("failed to refresh battery alert",
				zap.String("device_id", button.ID), zap.Error(err))
			return
		}
		s.sendVitalsNotification(ctx, tenant, button, models.NotifLowBatteryReminder,
			messages.LowBatteryReminder(tenant.Language, button.DisplayName))

	case BatteryRecovered:
		if err := s.devices.UpdateBatteryAlert(ctx, button.ID, models.FlagHealthy, nil); err != nil {
			s.logger.Error("failed to clear battery alert",
				zap.String("device_id", button.ID), zap.Error(err))
			return
		}
		s.logger.Info("button battery recovered",
			zap.String("device_id", button.ID),
			zap.Intp("battery_level", level))
		s.sendVitalsNotification(ctx, tenant, button, models.NotifLowBatteryRecovered,
			messages.LowBatteryRecovered(tenant.Language, button.DisplayName))
	}
}

func (s *Sweeper) sweepHubs(ctx context.Context, now time.Time, tenantCache map[string]*models.Tenant) {
	hubs, err := s.hubs.Hubs(ctx)
	if err != nil {
		s.logger.Error("failed to list hubs", zap.Error(err))
		return
	}

	for i := range hubs {
		hub := &hubs[i]
		if hub.Muted {
			continue
		}

		// Internal flags are operator-facing and always maintained.
		transitions := s.evaluator.EvaluateHubInternal(hub, now)
		if len(transitions) > 0 {
			if err := s.hubs.UpdateInternalFlags(ctx, hub); err != nil {
				s.logger.Error("failed to save hub internal flags",
					zap.String("hub_id", hub.ID), zap.Error(err))
				continue
			}
			for _, tr := range transitions {
				s.logger.Warn("hub internal metric flipped",
					zap.String("hub_id", hub.ID),
					zap.String("system_name", hub.SystemName),
					zap.String("metric", tr.Metric),
					zap.Bool("exceeded", tr.Exceeded),
					zap.Duration("delay", tr.Delay))
			}
		}

		tenant := s.tenant(ctx, tenantCache, hub.TenantID)
		if tenant == nil || !tenant.IsSendingVitals {
			continue
		}

		switch s.evaluator.EvaluateHubExternal(hub, now) {
		case HeartbeatDisconnected:
			if err := s.hubs.UpdateVitalsAlert(ctx, hub.ID, models.FlagAlerted, &now); err != nil {
				s.logger.Error("failed to flag hub outage",
					zap.String("hub_id", hub.ID), zap.Error(err))
				continue
			}
			s.logger.Warn("hub disconnected",
				zap.String("hub_id", hub.ID),
				zap.String("system_name", hub.SystemName))
			s.sendHubNotification(ctx, tenant, hub, models.NotifDisconnectionInitial,
				messages.HubDisconnection(tenant.Language, hub.LocationDescription))

		case HeartbeatDisconnectedReminder:
			if err := s.hubs.UpdateVitalsAlert(ctx, hub.ID, models.FlagAlerted, &now); err != nil {
				s.logger.Error("failed to refresh hub alert",
					zap.String("hub_id", hub.ID), zap.Error(err))
				continue
			}
			s.sendHubNotification(ctx, tenant, hub, models.NotifDisconnectionReminder,
				messages.HubDisconnectionReminder(tenant.Language, hub.LocationDescription))

		case HeartbeatReconnected:
			if err := s.hubs.UpdateVitalsAlert(ctx, hub.ID, models.FlagHealthy, nil); err != nil {
				s.logger.Error("failed to clear hub alert",
					zap.String("hub_id", hub.ID), zap.Error(err))
				continue
			}
			s.logger.Info("hub reconnected",
				zap.String("hub_id", hub.ID),
				zap.String("system_name", hub.SystemName))
			s.sendHubNotification(ctx, tenant, hub, models.NotifReconnection,
				messages.HubReconnection(tenant.Language, hub.LocationDescription))
		}
	}
}

// sendSummaries emits at most one aggregated connection-change message
// per tenant per sweep. Names are sorted so the text is stable across
// runs with the same fleet state.
func (s *Sweeper) sendSummaries(ctx context.Context, changes map[string]*tenantChanges) {
	for tenantID, c := range changes {
		if len(c.disconnected) == 0 && len(c.reconnected) == 0 {
			continue
		}
		sort.Strings(c.disconnected)
		sort.Strings(c.reconnected)

		summary := models.TenantStatusSummary{
			TenantID:        tenantID,
			ToPhoneNumbers:  c.tenant.HeartbeatRecipients(),
			FromPhoneNumber: c.tenant.FromPhoneNumber,
			Message: messages.TenantStatusSummary(c.tenant.Language, c.tenant.DisplayName,
				c.disconnected, c.reconnected),
		}
		if err := s.notifier.SendTenantSummary(ctx, summary); err != nil {
			s.logger.Error("failed to send tenant status summary",
				zap.String("tenant_id", tenantID), zap.Error(err))
		}
	}
}

func (s *Sweeper) sendVitalsNotification(ctx context.Context, tenant *models.Tenant, device *models.Device, kind models.VitalsNotificationKind, message string) {
	notification := models.VitalsNotification{
		Kind:            kind,
		DeviceID:        device.ID,
		DeviceName:      device.DisplayName,
		ToPhoneNumbers:  tenant.HeartbeatRecipients(),
		FromPhoneNumber: tenant.FromPhoneNumber,
		Message:         message,
	}
	if err := s.notifier.SendVitalsNotification(ctx, notification); err != nil {
		s.logger.Error("failed to send vitals notification",
			zap.String("device_id", device.ID),
			zap.String("kind", string(kind)),
			zap.Error(err))
	}
}

func (s *Sweeper) sendHubNotification(ctx context.Context, tenant *models.Tenant, hub *models.Hub, kind models.VitalsNotificationKind, message string) {
	notification := models.VitalsNotification{
		Kind:            kind,
		DeviceID:        hub.ID,
		DeviceName:      hub.SystemName,
		ToPhoneNumbers:  tenant.HeartbeatRecipients(),
		FromPhoneNumber: tenant.FromPhoneNumber,
		Message:         message,
	}
	if err := s.notifier.SendVitalsNotification(ctx, notification); err != nil {
		s.logger.Error("failed to send hub notification",
			zap.String("hub_id", hub.ID),
			zap.String("kind", string(kind)),
			zap.Error(err))
	}
}
