package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

func TestOutboxRetentionJobDeletesSettledRows(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	repo := &fakeOutboxPurger{rows: 7}
	jobIface, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:      testLogger(),
		DB:          passthroughTx{},
		Repository:  repo,
		MaxAttempts: 10,
	})
	require.NoError(t, err)
	job := jobIface.(*retentionJob)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, "outbox-retention", job.Name())
	assert.Equal(t, now.Add(-defaultOutboxRetention), repo.cutoff)
	assert.Equal(t, 10, repo.attempts)
	assert.Equal(t, 1, repo.calls)
}

func TestOutboxRetentionJobPropagatesError(t *testing.T) {
	jobIface, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     testLogger(),
		DB:         passthroughTx{},
		Repository: &fakeOutboxPurger{err: errors.New("boom")},
	})
	require.NoError(t, err)

	err = jobIface.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outbox-retention")
}

func TestDLQRetentionJobUsesConfiguredWindow(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	repo := &fakeDLQPurger{}
	jobIface, err := NewDLQRetentionJob(DLQRetentionJobParams{
		Logger:     testLogger(),
		DB:         passthroughTx{},
		Repository: repo,
		Retention:  48 * time.Hour,
	})
	require.NoError(t, err)
	job := jobIface.(*retentionJob)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, now.Add(-48*time.Hour), repo.cutoff)
}

func TestRetentionJobsRequireDependencies(t *testing.T) {
	_, err := NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: testLogger(), DB: passthroughTx{}})
	assert.Error(t, err)
	_, err = NewDLQRetentionJob(DLQRetentionJobParams{Logger: testLogger(), Repository: &fakeDLQPurger{}})
	assert.Error(t, err)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test"})
}

type fakeOutboxPurger struct {
	cutoff   time.Time
	attempts int
	calls    int
	rows     int64
	err      error
}

func (f *fakeOutboxPurger) DeleteSettledBefore(_ *gorm.DB, cutoff time.Time, terminalAttempts int) (int64, error) {
	f.calls++
	f.cutoff = cutoff
	f.attempts = terminalAttempts
	return f.rows, f.err
}

type fakeDLQPurger struct {
	cutoff time.Time
}

func (f *fakeDLQPurger) DeleteFailedBefore(_ *gorm.DB, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 2, nil
}

type passthroughTx struct{}

func (passthroughTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}
