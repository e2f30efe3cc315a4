package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"beacon-alerts/internal/models"

	"go.uber.org/zap"
)

// DevicesRepository reads buttons and gateways and writes their vitals
// alert flags. Device CRUD itself belongs to the tenant-management
// service, not here.
type DevicesRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDevicesRepository creates the repository.
func NewDevicesRepository(db *sql.DB, logger *zap.Logger) *DevicesRepository {
	return &DevicesRepository{db: db, logger: logger}
}

const deviceColumns = `
	id, tenant_id, display_name, category, phone_number,
	is_sending_alerts, is_sending_vitals,
	vitals_alert_state, vitals_alert_at,
	battery_alert_state, battery_alert_at,
	created_at, updated_at
`

func scanDevice(row interface{ Scan(...interface{}) error }) (*models.Device, error) {
	var device models.Device
	var vitalsAlertAt, batteryAlertAt sql.NullTime

	err := row.Scan(
		&device.ID,
		&device.TenantID,
		&device.DisplayName,
		&device.Category,
		&device.PhoneNumber,
		&device.IsSendingAlerts,
		&device.IsSendingVitals,
		&device.VitalsAlertState,
		&vitalsAlertAt,
		&device.BatteryAlertState,
		&batteryAlertAt,
		&device.CreatedAt,
		&device.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if vitalsAlertAt.Valid {
		device.VitalsAlertAt = &vitalsAlertAt.Time
	}
	if batteryAlertAt.Valid {
		device.BatteryAlertAt = &batteryAlertAt.Time
	}

	return &device, nil
}

// GetDevice returns one device by ID.
func (r *DevicesRepository) GetDevice(ctx context.Context, deviceID string) (*models.Device, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("device_id is required")
	}

	query := `SELECT ` + deviceColumns + ` FROM devices WHERE id = $1`

	device, err := scanDevice(r.db.QueryRowContext(ctx, query, deviceID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("device not found: id=%s", deviceID)
		}
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	return device, nil
}

// DevicesByCategory returns every device of one category, ordered by
// display name for deterministic sweeps.
func (r *DevicesRepository) DevicesByCategory(ctx context.Context, category models.DeviceCategory) ([]models.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE category = $1 ORDER BY display_name`

	rows, err := r.db.QueryContext(ctx, query, category)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	defer rows.Close()

	var devices []models.Device
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, *device)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate devices: %w", err)
	}

	return devices, nil
}

// UpdateVitalsAlert moves the heartbeat hysteresis machine. A nil
// alertedAt clears the timestamp (the HEALTHY side).
func (r *DevicesRepository) UpdateVitalsAlert(ctx context.Context, deviceID string, state models.AlertFlagState, alertedAt *time.Time) error {
	return r.updateAlertFlag(ctx, deviceID, "vitals_alert_state", "vitals_alert_at", state, alertedAt)
}

// UpdateBatteryAlert moves the low-battery hysteresis machine.
func (r *DevicesRepository) UpdateBatteryAlert(ctx context.Context, deviceID string, state models.AlertFlagState, alertedAt *time.Time) error {
	return r.updateAlertFlag(ctx, deviceID, "battery_alert_state", "battery_alert_at", state, alertedAt)
}

func (r *DevicesRepository) updateAlertFlag(ctx context.Context, deviceID, stateCol, atCol string, state models.AlertFlagState, alertedAt *time.Time) error {
	if deviceID == "" {
		return fmt.Errorf("device_id is required")
	}

	query := fmt.Sprintf(`UPDATE devices SET %s = $2, %s = $3, updated_at = NOW() WHERE id = $1`, stateCol, atCol)

	var at sql.NullTime
	if alertedAt != nil {
		at = sql.NullTime{Time: *alertedAt, Valid: true}
	}

	result, err := r.db.ExecContext(ctx, query, deviceID, state, at)
	if err != nil {
		return fmt.Errorf("failed to update device alert flag: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("device not found: id=%s", deviceID)
	}

	return nil
}

// HasDisconnectedGateway reports whether any of the tenant's gateways
// currently has a vitals alert outstanding. Used to suppress per-button
// disconnection noise that a gateway outage already explains.
func (r *DevicesRepository) HasDisconnectedGateway(ctx context.Context, tenantID string) (bool, error) {
	if tenantID == "" {
		return false, fmt.Errorf("tenant_id is required")
	}

	query := `
		SELECT COUNT(*)
		FROM devices
		WHERE tenant_id = $1
		  AND category = $2
		  AND vitals_alert_state = $3
	`

	var count int
	err := r.db.QueryRowContext(ctx, query, tenantID, models.DeviceCategoryGateway, models.FlagAlerted).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to count disconnected gateways: %w", err)
	}

	return count > 0, nil
}
