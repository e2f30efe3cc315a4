package repository

import (
	"context"
	"database/sql"
	"fmt"

	"beacon-alerts/internal/models"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// TenantsRepository reads tenant configuration. Tenants are owned by an
// external management service; this engine never writes them.
type TenantsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTenantsRepository creates the repository.
func NewTenantsRepository(db *sql.DB, logger *zap.Logger) *TenantsRepository {
	return &TenantsRepository{db: db, logger: logger}
}

const tenantColumns = `
	id, display_name, language, is_sending_alerts, is_sending_vitals,
	responder_phone_numbers, heartbeat_phone_numbers, fallback_phone_numbers,
	from_phone_number, fallback_from_phone_number,
	reminder_timeout, fallback_timeout,
	created_at, updated_at
`

func scanTenant(row interface{ Scan(...interface{}) error }) (*models.Tenant, error) {
	var tenant models.Tenant
	err := row.Scan(
		&tenant.ID,
		&tenant.DisplayName,
		&tenant.Language,
		&tenant.IsSendingAlerts,
		&tenant.IsSendingVitals,
		pq.Array(&tenant.ResponderPhoneNumbers),
		pq.Array(&tenant.HeartbeatPhoneNumbers),
		pq.Array(&tenant.FallbackPhoneNumbers),
		&tenant.FromPhoneNumber,
		&tenant.FallbackFromPhoneNumber,
		&tenant.ReminderTimeout,
		&tenant.FallbackTimeout,
		&tenant.CreatedAt,
		&tenant.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

// GetTenant returns one tenant by ID.
func (r *TenantsRepository) GetTenant(ctx context.Context, tenantID string) (*models.Tenant, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant_id is required")
	}

	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`

	tenant, err := scanTenant(r.db.QueryRowContext(ctx, query, tenantID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("tenant not found: id=%s", tenantID)
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}

	return tenant, nil
}
