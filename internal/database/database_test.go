package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"harborbook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"), &logger)
	require.NoError(t, err)
	return db
}

func TestNewDB_DirectoryCreation(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "test.db")
	logger := zerolog.Nop()

	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	assert.FileExists(t, dbPath)
}

func TestSessionCRUD(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()

	session := &models.UserSession{
		TelegramID: 12345,
		Token:      "tok-1",
		Role:       "customer",
		Username:   "thuyle",
		Email:      "thuy@example.com",
	}

	require.NoError(t, db.SaveSession(ctx, session))

	found, err := db.GetSession(ctx, 12345)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "tok-1", found.Token)
	assert.Equal(t, "customer", found.Role)

	// Re-login replaces the token for the same Telegram user
	session.Token = "tok-2"
	require.NoError(t, db.SaveSession(ctx, session))

	found, err = db.GetSession(ctx, 12345)
	require.NoError(t, err)
	assert.Equal(t, "tok-2", found.Token)

	require.NoError(t, db.ClearSession(ctx, 12345))

	found, err = db.GetSession(ctx, 12345)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestGetSession_NotFound(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	found, err := db.GetSession(context.Background(), 999)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestOutcomeJournal(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()

	record := &models.OutcomeRecord{
		BookingID: "BK-101",
		Result:    models.OutcomeSuccess,
		Amount:    2500000,
		Message:   "Thanh toán thành công",
	}

	require.NoError(t, db.AppendOutcome(ctx, record))
	assert.NotZero(t, record.ID)
	assert.False(t, record.CreatedAt.IsZero())

	require.NoError(t, db.AppendOutcome(ctx, &models.OutcomeRecord{
		BookingID: "BK-102",
		Result:    models.OutcomeFailure,
		Message:   "Thanh toán đã bị hủy",
	}))

	records, err := db.ListOutcomes(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "BK-101", records[0].BookingID)
	assert.Equal(t, models.OutcomeFailure, records[1].Result)

	got, err := db.GetOutcome(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2500000), got.Amount)

	// "since" filter excludes old records
	records, err = db.ListOutcomes(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSyncQueue(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()

	task := &models.SyncTask{
		TaskType:  "sheets_append",
		OutcomeID: 7,
		Payload:   `{"booking_id":"BK-101"}`,
		Status:    "pending",
	}

	require.NoError(t, db.CreateSyncTask(ctx, task))
	assert.NotZero(t, task.ID)

	tasks, err := db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "sheets_append", tasks[0].TaskType)
	assert.Equal(t, int64(7), tasks[0].OutcomeID)

	// Retry pushes the task past the visibility horizon
	next := time.Now().Add(time.Hour)
	require.NoError(t, db.UpdateSyncTaskStatus(ctx, task.ID, "retry", "sheets: quota", &next))

	tasks, err = db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	require.NoError(t, db.UpdateSyncTaskStatus(ctx, task.ID, "failed", "sheets: quota", nil))

	failed, err := db.GetFailedSyncTasks(ctx)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, 1, failed[0].RetryCount)
	assert.NotNil(t, failed[0].ProcessedAt)
}
