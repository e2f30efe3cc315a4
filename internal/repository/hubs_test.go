package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"beacon-alerts/internal/models"
)

func setupMockHubsDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *HubsRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewHubsRepository(db, zap.NewNop())
	return db, mock, repo
}

func TestHubs_Success(t *testing.T) {
	db, mock, repo := setupMockHubsDB(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "tenant_id", "system_name", "location_description", "muted",
		"flic_last_seen_at", "flic_last_ping_at", "heartbeat_last_seen_at",
		"sent_internal_flic_alert", "sent_internal_ping_alert", "sent_internal_heartbeat_alert",
		"vitals_alert_state", "vitals_alert_at",
	}).
		AddRow("hub-1", "tenant-1", "hub-a", "Front Lobby", false,
			now, now, now, false, false, false, "HEALTHY", nil).
		AddRow("hub-2", "tenant-1", "hub-b", "Back Stairwell", true,
			now, now, now, true, true, true, "ALERTED", now)
	mock.ExpectQuery("SELECT id, tenant_id, system_name").WillReturnRows(rows)

	hubs, err := repo.Hubs(context.Background())
	require.NoError(t, err)
	require.Len(t, hubs, 2)
	assert.Equal(t, "Front Lobby", hubs[0].LocationDescription)
	assert.False(t, hubs[0].Muted)
	assert.Nil(t, hubs[0].VitalsAlertAt)
	assert.True(t, hubs[1].Muted)
	assert.Equal(t, models.FlagAlerted, hubs[1].VitalsAlertState)
	require.NotNil(t, hubs[1].VitalsAlertAt)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveHeartbeat_Success(t *testing.T) {
	db, mock, repo := setupMockHubsDB(t)
	defer db.Close()

	flicSeen := time.Now().Add(-10 * time.Second)
	flicPing := time.Now().Add(-5 * time.Second)
	heartbeat := time.Now().Add(-2 * time.Second)

	mock.ExpectExec("UPDATE hubs").
		WithArgs("hub-1", flicSeen, flicPing, heartbeat).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SaveHeartbeat(context.Background(), "hub-1", flicSeen, flicPing, heartbeat)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveHeartbeat_UnknownHub(t *testing.T) {
	db, mock, repo := setupMockHubsDB(t)
	defer db.Close()

	mock.ExpectExec("UPDATE hubs").
		WithArgs("hub-missing", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	now := time.Now()
	err := repo.SaveHeartbeat(context.Background(), "hub-missing", now, now, now)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateInternalFlags(t *testing.T) {
	db, mock, repo := setupMockHubsDB(t)
	defer db.Close()

	mock.ExpectExec("UPDATE hubs SET sent_internal_flic_alert").
		WithArgs("hub-1", true, false, true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	hub := &models.Hub{
		ID:                         "hub-1",
		SentInternalFlicAlert:      true,
		SentInternalPingAlert:      false,
		SentInternalHeartbeatAlert: true,
	}
	require.NoError(t, repo.UpdateInternalFlags(context.Background(), hub))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateHubVitalsAlert(t *testing.T) {
	db, mock, repo := setupMockHubsDB(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectExec("UPDATE hubs SET vitals_alert_state").
		WithArgs("hub-1", string(models.FlagAlerted), now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateVitalsAlert(context.Background(), "hub-1", models.FlagAlerted, &now))

	mock.ExpectExec("UPDATE hubs SET vitals_alert_state").
		WithArgs("hub-1", string(models.FlagHealthy), nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateVitalsAlert(context.Background(), "hub-1", models.FlagHealthy, nil))
	require.NoError(t, mock.ExpectationsWereMet())
}
