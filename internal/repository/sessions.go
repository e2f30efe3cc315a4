package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"beacon-alerts/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionsRepository persists alert sessions and owns the serialized
// transaction the press path runs inside.
type SessionsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSessionsRepository creates the repository.
func NewSessionsRepository(db *sql.DB, logger *zap.Logger) *SessionsRepository {
	return &SessionsRepository{db: db, logger: logger}
}

// PressTx is the transaction handle the correlator works through. All
// reads and writes between BeginPressTx and Commit happen under the
// table lock, so two concurrent presses on the same device cannot both
// observe "no open session".
type PressTx interface {
	CurrentTime(ctx context.Context) (time.Time, error)
	ActiveSessionForDevice(ctx context.Context, deviceID string) (*models.Session, error)
	CreateSession(ctx context.Context, session *models.Session) error
	SaveSession(ctx context.Context, session *models.Session) error
	Commit() error
	Rollback() error
}

// BeginPressTx opens a transaction and takes a coarse pessimistic lock
// on the session/device table set. This serializes all press handling
// globally, which fixes the duplicate-session race when two press
// messages for one device arrive in quick succession. It is bad for
// throughput; revisit if contention becomes material.
func (r *SessionsRepository) BeginPressTx(ctx context.Context) (PressTx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "LOCK TABLE sessions, devices IN EXCLUSIVE MODE"); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.logger.Error("Failed to roll back errored transaction", zap.Error(rbErr))
		}
		return nil, fmt.Errorf("failed to lock tables: %w", err)
	}

	return &pressTx{tx: tx}, nil
}

type pressTx struct {
	tx *sql.Tx
}

// CurrentTime reads the clock from the database so that staleness is
// judged against the same clock updated_at was written with.
func (t *pressTx) CurrentTime(ctx context.Context) (time.Time, error) {
	var now time.Time
	if err := t.tx.QueryRowContext(ctx, "SELECT NOW()").Scan(&now); err != nil {
		return time.Time{}, fmt.Errorf("failed to get current time: %w", err)
	}
	return now, nil
}

// ActiveSessionForDevice returns the device's most recent non-terminal
// session, or nil when every session is completed.
func (t *pressTx) ActiveSessionForDevice(ctx context.Context, deviceID string) (*models.Session, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("device_id is required")
	}

	query := `
		SELECT id, device_id, tenant_id, state, num_presses, alert_type,
		       battery_level, responded_at, created_at, updated_at
		FROM sessions
		WHERE device_id = $1
		  AND state != $2
		ORDER BY created_at DESC
		LIMIT 1
	`

	var session models.Session
	var batteryLevel sql.NullInt64
	var respondedAt sql.NullTime

	err := t.tx.QueryRowContext(ctx, query, deviceID, models.SessionCompleted).Scan(
		&session.ID,
		&session.DeviceID,
		&session.TenantID,
		&session.State,
		&session.NumPresses,
		&session.AlertType,
		&batteryLevel,
		&respondedAt,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active session: %w", err)
	}

	if batteryLevel.Valid {
		level := int(batteryLevel.Int64)
		session.BatteryLevel = &level
	}
	if respondedAt.Valid {
		session.RespondedAt = &respondedAt.Time
	}

	return &session, nil
}

// CreateSession inserts a new session row and fills in the generated ID
// and database timestamps.
func (t *pressTx) CreateSession(ctx context.Context, session *models.Session) error {
	if session.DeviceID == "" {
		return fmt.Errorf("device_id is required")
	}
	if session.TenantID == "" {
		return fmt.Errorf("tenant_id is required")
	}
	if session.NumPresses < 1 {
		return fmt.Errorf("num_presses must be at least 1")
	}

	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	if session.State == "" {
		session.State = models.SessionStarted
	}
	if session.AlertType == "" {
		session.AlertType = models.AlertTypeNotUrgent
	}

	query := `
		INSERT INTO sessions (
			id, device_id, tenant_id, state, num_presses, alert_type,
			battery_level, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	var batteryLevel sql.NullInt64
	if session.BatteryLevel != nil {
		batteryLevel = sql.NullInt64{Int64: int64(*session.BatteryLevel), Valid: true}
	}

	err := t.tx.QueryRowContext(ctx, query,
		session.ID,
		session.DeviceID,
		session.TenantID,
		session.State,
		session.NumPresses,
		session.AlertType,
		batteryLevel,
	).Scan(&session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// SaveSession persists press-count and battery updates, refreshing
// updated_at. Saving a session that no longer exists is an invariant
// violation, not a silent no-op.
func (t *pressTx) SaveSession(ctx context.Context, session *models.Session) error {
	if session.ID == "" {
		return fmt.Errorf("session id is required")
	}

	query := `
		UPDATE sessions
		SET num_presses = $2,
		    battery_level = $3,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	var batteryLevel sql.NullInt64
	if session.BatteryLevel != nil {
		batteryLevel = sql.NullInt64{Int64: int64(*session.BatteryLevel), Valid: true}
	}

	err := t.tx.QueryRowContext(ctx, query, session.ID, session.NumPresses, batteryLevel).Scan(&session.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("session not found: id=%s", session.ID)
		}
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

func (t *pressTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (t *pressTx) Rollback() error {
	return t.tx.Rollback()
}
