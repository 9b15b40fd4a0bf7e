package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holds-service/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	rawDB, mockDB, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { rawDB.Close() })
	return sqlx.NewDb(rawDB, "sqlmock"), mockDB
}

var holdColumns = []string{"hold_id", "user_id", "item_id", "status", "queue_position", "notified", "created_at", "updated_at"}

func holdRow(hold models.Hold) *sqlmock.Rows {
	return sqlmock.NewRows(holdColumns).AddRow(
		hold.HoldID, hold.UserID, hold.ItemID, hold.Status, hold.Position,
		hold.Notified, hold.CreatedAt, hold.UpdatedAt)
}

func TestCreateHold_UsesCallerTimestamps(t *testing.T) {
	db, mockDB := newMockDB(t)
	repo := NewHoldRepository(db)

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	hold := &models.Hold{
		HoldID:    uuid.New(),
		UserID:    "user-1",
		ItemID:    "BK-1",
		Status:    models.HoldStatusWaiting,
		Position:  2,
		CreatedAt: now,
	}

	mockDB.ExpectExec(`INSERT INTO holds`).
		WithArgs(hold.HoldID, "user-1", "BK-1", models.HoldStatusWaiting, 2, false, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.CreateHold(context.Background(), nil, hold))
	assert.Equal(t, now, hold.UpdatedAt)
	assert.NoError(t, mockDB.ExpectationsWereMet())
}

func TestLockItemQueue_RunsInTransaction(t *testing.T) {
	db, mockDB := newMockDB(t)
	repo := NewHoldRepository(db)

	mockDB.ExpectBegin()
	mockDB.ExpectExec(`SELECT pg_advisory_xact_lock\(hashtext\(\$1\)\)`).
		WithArgs("BK-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mockDB.ExpectCommit()

	tx, err := repo.BeginTx(context.Background())
	require.NoError(t, err)
	require.NoError(t, repo.LockItemQueue(context.Background(), tx, "BK-1"))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mockDB.ExpectationsWereMet())
}

func TestGetHold_NoRowsIsNil(t *testing.T) {
	db, mockDB := newMockDB(t)
	repo := NewHoldRepository(db)

	holdID := uuid.New()
	mockDB.ExpectQuery(`SELECT .+ FROM holds WHERE hold_id = \$1`).
		WithArgs(holdID).
		WillReturnRows(sqlmock.NewRows(holdColumns))

	hold, err := repo.GetHold(context.Background(), holdID)

	require.NoError(t, err)
	assert.Nil(t, hold)
}

func TestFindOpenHold_ExcludesCancelled(t *testing.T) {
	db, mockDB := newMockDB(t)
	repo := NewHoldRepository(db)

	existing := models.Hold{HoldID: uuid.New(), UserID: "user-1", ItemID: "BK-1", Status: models.HoldStatusWaiting, Position: 1}
	mockDB.ExpectQuery(`SELECT .+ FROM holds\s+WHERE user_id = \$1 AND item_id = \$2 AND status <> \$3`).
		WithArgs("user-1", "BK-1", models.HoldStatusCancelled).
		WillReturnRows(holdRow(existing))

	hold, err := repo.FindOpenHold(context.Background(), "user-1", "BK-1")

	require.NoError(t, err)
	require.NotNil(t, hold)
	assert.Equal(t, existing.HoldID, hold.HoldID)
}

func TestGetItemQueue_OrdersByPosition(t *testing.T) {
	db, mockDB := newMockDB(t)
	repo := NewHoldRepository(db)

	rows := sqlmock.NewRows(holdColumns).
		AddRow(uuid.New(), "user-1", "BK-1", models.HoldStatusWaiting, 1, false, time.Now(), time.Now()).
		AddRow(uuid.New(), "user-2", "BK-1", models.HoldStatusWaiting, 2, false, time.Now(), time.Now())

	mockDB.ExpectQuery(`SELECT .+ FROM holds\s+WHERE item_id = \$1 AND status <> \$2\s+ORDER BY queue_position ASC`).
		WithArgs("BK-1", models.HoldStatusCancelled).
		WillReturnRows(rows)

	queue, err := repo.GetItemQueue(context.Background(), "BK-1")

	require.NoError(t, err)
	require.Len(t, queue, 2)
	assert.Equal(t, 1, queue[0].Position)
	assert.Equal(t, 2, queue[1].Position)
}

func TestDeleteHold_ReportsMissingRow(t *testing.T) {
	db, mockDB := newMockDB(t)
	repo := NewHoldRepository(db)

	holdID := uuid.New()
	mockDB.ExpectExec(`DELETE FROM holds WHERE hold_id = \$1`).
		WithArgs(holdID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err := repo.DeleteHold(context.Background(), nil, holdID)

	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestUpdateHoldStatus_ReportsExistence(t *testing.T) {
	db, mockDB := newMockDB(t)
	repo := NewHoldRepository(db)

	holdID := uuid.New()
	mockDB.ExpectExec(`UPDATE holds SET status = \$2, notified = \$3, updated_at = NOW\(\) WHERE hold_id = \$1`).
		WithArgs(holdID, models.HoldStatusReadyForPickup, true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	updated, err := repo.UpdateHoldStatus(context.Background(), holdID, models.HoldStatusReadyForPickup, true)

	require.NoError(t, err)
	assert.True(t, updated)
}

func TestItemIDsWithHolds(t *testing.T) {
	db, mockDB := newMockDB(t)
	repo := NewHoldRepository(db)

	mockDB.ExpectQuery(`SELECT DISTINCT item_id FROM holds WHERE status <> \$1`).
		WithArgs(models.HoldStatusCancelled).
		WillReturnRows(sqlmock.NewRows([]string{"item_id"}).AddRow("BK-1").AddRow("BK-2"))

	itemIDs, err := repo.ItemIDsWithHolds(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"BK-1", "BK-2"}, itemIDs)
}
