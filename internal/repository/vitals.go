package repository

import (
	"context"
	"database/sql"
	"fmt"

	"beacon-alerts/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// VitalsRepository appends heartbeat/battery samples and serves the
// latest-sample-per-device view. Samples are immutable once written.
type VitalsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewVitalsRepository creates the repository.
func NewVitalsRepository(db *sql.DB, logger *zap.Logger) *VitalsRepository {
	return &VitalsRepository{db: db, logger: logger}
}

// InsertSample appends one sample and fills in the generated ID and
// database timestamp.
func (r *VitalsRepository) InsertSample(ctx context.Context, sample *models.VitalsSample) error {
	if sample.DeviceID == "" {
		return fmt.Errorf("device_id is required")
	}

	if sample.ID == "" {
		sample.ID = uuid.New().String()
	}
	signalMetrics := sample.SignalMetrics
	if len(signalMetrics) == 0 {
		signalMetrics = []byte("{}")
	}

	query := `
		INSERT INTO vitals_samples (id, device_id, battery_level, signal_metrics, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING created_at
	`

	var batteryLevel sql.NullInt64
	if sample.BatteryLevel != nil {
		batteryLevel = sql.NullInt64{Int64: int64(*sample.BatteryLevel), Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query,
		sample.ID,
		sample.DeviceID,
		batteryLevel,
		[]byte(signalMetrics),
	).Scan(&sample.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert vitals sample: %w", err)
	}

	return nil
}

// LatestSampleForDevice returns the most recent sample for one device,
// or nil when the device has never reported.
func (r *VitalsRepository) LatestSampleForDevice(ctx context.Context, deviceID string) (*models.VitalsSample, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("device_id is required")
	}

	query := `
		SELECT id, device_id, battery_level, signal_metrics, created_at
		FROM vitals_samples
		WHERE device_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	sample, err := scanSample(r.db.QueryRowContext(ctx, query, deviceID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest vitals sample: %w", err)
	}

	return sample, nil
}

// LatestSamplesByCategory returns the most recent sample per device for
// every device of the category, keyed by device ID.
func (r *VitalsRepository) LatestSamplesByCategory(ctx context.Context, category models.DeviceCategory) (map[string]models.VitalsSample, error) {
	query := `
		SELECT DISTINCT ON (v.device_id)
		       v.id, v.device_id, v.battery_level, v.signal_metrics, v.created_at
		FROM vitals_samples v
		JOIN devices d ON d.id = v.device_id
		WHERE d.category = $1
		ORDER BY v.device_id, v.created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, category)
	if err != nil {
		return nil, fmt.Errorf("failed to list latest vitals samples: %w", err)
	}
	defer rows.Close()

	samples := make(map[string]models.VitalsSample)
	for rows.Next() {
		sample, err := scanSample(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vitals sample: %w", err)
		}
		samples[sample.DeviceID] = *sample
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate vitals samples: %w", err)
	}

	return samples, nil
}

func scanSample(row interface{ Scan(...interface{}) error }) (*models.VitalsSample, error) {
	var sample models.VitalsSample
	var batteryLevel sql.NullInt64
	var signalMetrics []byte

	err := row.Scan(
		&sample.ID,
		&sample.DeviceID,
		&batteryLevel,
		&signalMetrics,
		&sample.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if batteryLevel.Valid {
		level := int(batteryLevel.Int64)
		sample.BatteryLevel = &level
	}
	if len(signalMetrics) > 0 {
		sample.SignalMetrics = signalMetrics
	}

	return &sample, nil
}
