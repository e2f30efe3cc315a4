package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"beacon-alerts/internal/models"

	"go.uber.org/zap"
)

// HubsRepository persists button hubs and their heartbeat bookkeeping.
type HubsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHubsRepository creates the repository.
func NewHubsRepository(db *sql.DB, logger *zap.Logger) *HubsRepository {
	return &HubsRepository{db: db, logger: logger}
}

// Hubs returns every hub, ordered by system name.
func (r *HubsRepository) Hubs(ctx context.Context) ([]models.Hub, error) {
	query := `
		SELECT id, tenant_id, system_name, location_description, muted,
		       flic_last_seen_at, flic_last_ping_at, heartbeat_last_seen_at,
		       sent_internal_flic_alert, sent_internal_ping_alert, sent_internal_heartbeat_alert,
		       vitals_alert_state, vitals_alert_at
		FROM hubs
		ORDER BY system_name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list hubs: %w", err)
	}
	defer rows.Close()

	var hubs []models.Hub
	for rows.Next() {
		var hub models.Hub
		var vitalsAlertAt sql.NullTime

		err := rows.Scan(
			&hub.ID,
			&hub.TenantID,
			&hub.SystemName,
			&hub.LocationDescription,
			&hub.Muted,
			&hub.FlicLastSeenAt,
			&hub.FlicLastPingAt,
			&hub.HeartbeatLastSeenAt,
			&hub.SentInternalFlicAlert,
			&hub.SentInternalPingAlert,
			&hub.SentInternalHeartbeatAlert,
			&hub.VitalsAlertState,
			&vitalsAlertAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan hub: %w", err)
		}

		if vitalsAlertAt.Valid {
			hub.VitalsAlertAt = &vitalsAlertAt.Time
		}
		hubs = append(hubs, hub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate hubs: %w", err)
	}

	return hubs, nil
}

// SaveHeartbeat records the three last-seen timestamps reported by a hub.
func (r *HubsRepository) SaveHeartbeat(ctx context.Context, hubID string, flicLastSeenAt, flicLastPingAt, heartbeatLastSeenAt time.Time) error {
	if hubID == "" {
		return fmt.Errorf("hub id is required")
	}

	query := `
		UPDATE hubs
		SET flic_last_seen_at = $2,
		    flic_last_ping_at = $3,
		    heartbeat_last_seen_at = $4
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, hubID, flicLastSeenAt, flicLastPingAt, heartbeatLastSeenAt)
	if err != nil {
		return fmt.Errorf("failed to save hub heartbeat: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("hub not found: id=%s", hubID)
	}

	return nil
}

// UpdateInternalFlags persists the operator-facing per-metric flags.
func (r *HubsRepository) UpdateInternalFlags(ctx context.Context, hub *models.Hub) error {
	if hub.ID == "" {
		return fmt.Errorf("hub id is required")
	}

	query := `
		UPDATE hubs
		SET sent_internal_flic_alert = $2,
		    sent_internal_ping_alert = $3,
		    sent_internal_heartbeat_alert = $4
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query,
		hub.ID,
		hub.SentInternalFlicAlert,
		hub.SentInternalPingAlert,
		hub.SentInternalHeartbeatAlert,
	)
	if err != nil {
		return fmt.Errorf("failed to update hub internal flags: %w", err)
	}

	return nil
}

// UpdateVitalsAlert moves the hub's external hysteresis machine.
func (r *HubsRepository) UpdateVitalsAlert(ctx context.Context, hubID string, state models.AlertFlagState, alertedAt *time.Time) error {
	if hubID == "" {
		return fmt.Errorf("hub id is required")
	}

	query := `UPDATE hubs SET vitals_alert_state = $2, vitals_alert_at = $3 WHERE id = $1`

	var at sql.NullTime
	if alertedAt != nil {
		at = sql.NullTime{Time: *alertedAt, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query, hubID, state, at)
	if err != nil {
		return fmt.Errorf("failed to update hub vitals alert: %w", err)
	}

	return nil
}
