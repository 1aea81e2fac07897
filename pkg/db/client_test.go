package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type widget struct {
	ID   int
	Name string
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	dsn := fmt.Sprintf("file:db_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&widget{}))
	return &Client{conn: conn}
}

func countWidgets(t *testing.T, c *Client) int64 {
	t.Helper()
	var n int64
	require.NoError(t, c.DB().Model(&widget{}).Count(&n).Error)
	return n
}

func TestWithTxCommitsAndRollsBack(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&widget{Name: "committed"}).Error
	}))
	assert.Equal(t, int64(1), countWidgets(t, client))

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&widget{Name: "rolled back"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	assert.EqualError(t, err, "boom")
	assert.Equal(t, int64(1), countWidgets(t, client))
}

func TestWithTxRerunsConflicts(t *testing.T) {
	client := newTestClient(t)
	attempts := 0
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		attempts++
		if err := tx.Create(&widget{Name: fmt.Sprintf("attempt-%d", attempts)}).Error; err != nil {
			return err
		}
		if attempts == 1 {
			return &pgconn.PgError{Code: pgDeadlockDetected}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, int64(1), countWidgets(t, client), "the aborted attempt must not persist")
}

func TestWithTxGivesUpAfterMaxAttempts(t *testing.T) {
	client := newTestClient(t)
	attempts := 0
	err := client.WithTx(context.Background(), func(*gorm.DB) error {
		attempts++
		return &pgconn.PgError{Code: pgSerializationFailure}
	})
	assert.True(t, IsTxConflict(err))
	assert.Equal(t, maxTxAttempts, attempts)
}

func TestPing(t *testing.T) {
	assert.NoError(t, newTestClient(t).Ping(context.Background()))
}

func TestIsUniqueViolation(t *testing.T) {
	client := newTestClient(t)
	db := client.DB()
	require.NoError(t, db.Exec("CREATE TABLE uniq_test (k TEXT PRIMARY KEY)").Error)
	require.NoError(t, db.Exec("INSERT INTO uniq_test (k) VALUES ('a')").Error)

	err := db.Exec("INSERT INTO uniq_test (k) VALUES ('a')").Error
	assert.True(t, IsUniqueViolation(err, ""))
	assert.True(t, IsUniqueViolation(err, "uniq_test.k"))
	assert.False(t, IsUniqueViolation(errors.New("connection refused"), ""))

	pgErr := fmt.Errorf("create order: %w", &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "ux_orders_idempotency"})
	assert.True(t, IsUniqueViolation(pgErr, "ux_orders_idempotency"))
	assert.False(t, IsUniqueViolation(pgErr, "orders_pkey"))

	pqErr := &pq.Error{Code: pgUniqueViolation, Constraint: "ux_outbox_dlq_event"}
	assert.True(t, IsUniqueViolation(pqErr, ""))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}, ""))
}

func TestIsTxConflict(t *testing.T) {
	assert.True(t, IsTxConflict(&pgconn.PgError{Code: pgSerializationFailure}))
	assert.True(t, IsTxConflict(fmt.Errorf("wrapped: %w", &pq.Error{Code: pgDeadlockDetected})))
	assert.False(t, IsTxConflict(&pgconn.PgError{Code: pgUniqueViolation}))
	assert.False(t, IsTxConflict(errors.New("database is locked")))
	assert.False(t, IsTxConflict(nil))
}
