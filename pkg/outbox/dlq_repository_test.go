package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

func setupDLQTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:dlq_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Exec(`
CREATE TABLE outbox_dlq (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL UNIQUE,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  topic TEXT,
  payload_json TEXT NOT NULL,
  error_reason TEXT NOT NULL,
  error_message TEXT,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  failed_at DATETIME,
  created_at DATETIME
);`).Error)
	return db
}

func dlqEntry(eventType enums.OutboxEventType, reason enums.OutboxDLQErrorReason, failedAt time.Time) models.OutboxDLQ {
	return models.OutboxDLQ{
		EventID:       uuid.New(),
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"version":1}`),
		ErrorReason:   reason,
		FailedAt:      failedAt,
	}
}

func TestDLQInsertIsIdempotentPerEvent(t *testing.T) {
	db := setupDLQTestDB(t)
	repo := NewDLQRepository(db)

	entry := dlqEntry(enums.EventOrderConfirmed, enums.OutboxDLQReasonMaxAttempts, time.Now().UTC())
	require.NoError(t, repo.InsertTx(db, entry))
	require.NoError(t, repo.InsertTx(db, entry))

	var count int64
	require.NoError(t, db.Model(&models.OutboxDLQ{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDLQListFilters(t *testing.T) {
	db := setupDLQTestDB(t)
	repo := NewDLQRepository(db)
	now := time.Now().UTC()

	oldest := dlqEntry(enums.EventOrderConfirmed, enums.OutboxDLQReasonDecodeFailed, now.Add(-2*time.Hour))
	middle := dlqEntry(enums.EventLoyaltyPointsApplied, enums.OutboxDLQReasonDecodeFailed, now.Add(-time.Hour))
	newest := dlqEntry(enums.EventOrderConfirmed, enums.OutboxDLQReasonMaxAttempts, now)
	for _, e := range []models.OutboxDLQ{oldest, middle, newest} {
		require.NoError(t, repo.InsertTx(db, e))
	}
	ctx := context.Background()

	all, err := repo.List(ctx, DLQQuery{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, newest.EventID, all[0].EventID)

	decode, err := repo.List(ctx, DLQQuery{Reason: enums.OutboxDLQReasonDecodeFailed})
	require.NoError(t, err)
	assert.Len(t, decode, 2)

	orders, err := repo.List(ctx, DLQQuery{Reason: enums.OutboxDLQReasonDecodeFailed, EventType: enums.EventOrderConfirmed})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, oldest.EventID, orders[0].EventID)

	limited, err := repo.List(ctx, DLQQuery{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestDLQDeleteFailedBefore(t *testing.T) {
	db := setupDLQTestDB(t)
	repo := NewDLQRepository(db)
	now := time.Now().UTC()
	require.NoError(t, repo.InsertTx(db, dlqEntry(enums.EventOrderConfirmed, enums.OutboxDLQReasonMaxAttempts, now.Add(-100*24*time.Hour))))
	require.NoError(t, repo.InsertTx(db, dlqEntry(enums.EventOrderConfirmed, enums.OutboxDLQReasonMaxAttempts, now)))

	deleted, err := repo.DeleteFailedBefore(db, now.Add(-90*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestClipError(t *testing.T) {
	short := "publish timeout"
	assert.Equal(t, short, clipError(short))

	long := strings.Repeat("é", maxDLQErrorLen)
	clipped := clipError(long)
	assert.LessOrEqual(t, len(clipped), maxDLQErrorLen)
	assert.True(t, utf8.ValidString(clipped))
	assert.True(t, strings.HasSuffix(clipped, truncationMarker))
}
