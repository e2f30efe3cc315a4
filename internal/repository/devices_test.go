package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"beacon-alerts/internal/models"
)

func setupMockDevicesDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *DevicesRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewDevicesRepository(db, zap.NewNop())
	return db, mock, repo
}

func deviceRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "tenant_id", "display_name", "category", "phone_number",
		"is_sending_alerts", "is_sending_vitals",
		"vitals_alert_state", "vitals_alert_at",
		"battery_alert_state", "battery_alert_at",
		"created_at", "updated_at",
	})
}

func TestGetDevice_Success(t *testing.T) {
	db, mock, repo := setupMockDevicesDB(t)
	defer db.Close()

	deviceID := uuid.New().String()
	now := time.Now()
	alertedAt := now.Add(-time.Hour)

	rows := deviceRows().AddRow(
		deviceID, "tenant-1", "Unit 305", "button", "+15550001111",
		true, true,
		"ALERTED", alertedAt,
		"HEALTHY", nil,
		now, now,
	)
	mock.ExpectQuery("SELECT").WithArgs(deviceID).WillReturnRows(rows)

	device, err := repo.GetDevice(context.Background(), deviceID)
	require.NoError(t, err)
	assert.Equal(t, deviceID, device.ID)
	assert.Equal(t, models.DeviceCategoryButton, device.Category)
	assert.Equal(t, models.FlagAlerted, device.VitalsAlertState)
	require.NotNil(t, device.VitalsAlertAt)
	assert.Equal(t, models.FlagHealthy, device.BatteryAlertState)
	assert.Nil(t, device.BatteryAlertAt)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDevice_NotFound(t *testing.T) {
	db, mock, repo := setupMockDevicesDB(t)
	defer db.Close()

	deviceID := uuid.New().String()
	mock.ExpectQuery("SELECT").WithArgs(deviceID).WillReturnError(sql.ErrNoRows)

	device, err := repo.GetDevice(context.Background(), deviceID)
	assert.Error(t, err)
	assert.Nil(t, device)
	assert.Contains(t, err.Error(), "not found")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDevicesByCategory_Success(t *testing.T) {
	db, mock, repo := setupMockDevicesDB(t)
	defer db.Close()

	now := time.Now()
	rows := deviceRows().
		AddRow("g1", "tenant-1", "Gateway A", "gateway", "",
			true, true, "HEALTHY", nil, "HEALTHY", nil, now, now).
		AddRow("g2", "tenant-1", "Gateway B", "gateway", "",
			true, false, "ALERTED", now, "HEALTHY", nil, now, now)
	mock.ExpectQuery("SELECT").WithArgs(string(models.DeviceCategoryGateway)).WillReturnRows(rows)

	devices, err := repo.DevicesByCategory(context.Background(), models.DeviceCategoryGateway)
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, "Gateway A", devices[0].DisplayName)
	assert.Equal(t, models.FlagAlerted, devices[1].VitalsAlertState)
	assert.False(t, devices[1].IsSendingVitals)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateVitalsAlert_Success(t *testing.T) {
	db, mock, repo := setupMockDevicesDB(t)
	defer db.Close()

	deviceID := uuid.New().String()
	now := time.Now()

	mock.ExpectExec("UPDATE devices SET vitals_alert_state").
		WithArgs(deviceID, string(models.FlagAlerted), now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateVitalsAlert(context.Background(), deviceID, models.FlagAlerted, &now)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateVitalsAlert_ClearsTimestamp(t *testing.T) {
	db, mock, repo := setupMockDevicesDB(t)
	defer db.Close()

	deviceID := uuid.New().String()

	mock.ExpectExec("UPDATE devices SET vitals_alert_state").
		WithArgs(deviceID, string(models.FlagHealthy), nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateVitalsAlert(context.Background(), deviceID, models.FlagHealthy, nil)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateBatteryAlert_NotFound(t *testing.T) {
	db, mock, repo := setupMockDevicesDB(t)
	defer db.Close()

	deviceID := uuid.New().String()

	mock.ExpectExec("UPDATE devices SET battery_alert_state").
		WithArgs(deviceID, string(models.FlagAlerted), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	now := time.Now()
	err := repo.UpdateBatteryAlert(context.Background(), deviceID, models.FlagAlerted, &now)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHasDisconnectedGateway(t *testing.T) {
	db, mock, repo := setupMockDevicesDB(t)
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("tenant-1", string(models.DeviceCategoryGateway), string(models.FlagAlerted)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	down, err := repo.HasDisconnectedGateway(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.True(t, down)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("tenant-1", string(models.DeviceCategoryGateway), string(models.FlagAlerted)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	down, err = repo.HasDisconnectedGateway(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.False(t, down)

	require.NoError(t, mock.ExpectationsWereMet())
}
