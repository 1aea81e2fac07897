package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

const (
	defaultOutboxRetention = 30 * 24 * time.Hour
	defaultDLQRetention    = 90 * 24 * time.Hour
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPurger interface {
	DeleteSettledBefore(tx *gorm.DB, cutoff time.Time, terminalAttempts int) (int64, error)
}

type dlqPurger interface {
	DeleteFailedBefore(tx *gorm.DB, cutoff time.Time) (int64, error)
}

// OutboxRetentionJobParams configure the outbox cleanup job.
type OutboxRetentionJobParams struct {
	Logger      *logger.Logger
	DB          txRunner
	Repository  outboxPurger
	Metrics     *metrics.JobMetrics
	Retention   time.Duration
	MaxAttempts int
}

// NewOutboxRetentionJob removes published outbox rows, and rows the publisher
// gave up on, once they are older than the retention window.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Repository == nil {
		return nil, errors.New("outbox repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultOutboxRetention
	}
	repo, attempts := params.Repository, params.MaxAttempts
	job, err := newRetentionJob("outbox-retention", params.Logger, params.DB, params.Metrics, retention,
		func(tx *gorm.DB, cutoff time.Time) (int64, error) {
			return repo.DeleteSettledBefore(tx, cutoff, attempts)
		})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// DLQRetentionJobParams configure the dead letter cleanup job.
type DLQRetentionJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository dlqPurger
	Metrics    *metrics.JobMetrics
	Retention  time.Duration
}

// NewDLQRetentionJob drops dead letters older than the retention window.
func NewDLQRetentionJob(params DLQRetentionJobParams) (Job, error) {
	if params.Repository == nil {
		return nil, errors.New("dlq repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultDLQRetention
	}
	job, err := newRetentionJob("dlq-retention", params.Logger, params.DB, params.Metrics, retention, params.Repository.DeleteFailedBefore)
	if err != nil {
		return nil, err
	}
	return job, nil
}

type purgeFunc func(tx *gorm.DB, cutoff time.Time) (int64, error)

type retentionJob struct {
	name      string
	logg      *logger.Logger
	db        txRunner
	metrics   *metrics.JobMetrics
	retention time.Duration
	purge     purgeFunc
	now       func() time.Time
}

func newRetentionJob(name string, logg *logger.Logger, db txRunner, m *metrics.JobMetrics, retention time.Duration, purge purgeFunc) (*retentionJob, error) {
	if logg == nil {
		return nil, errors.New("logger required")
	}
	if db == nil {
		return nil, errors.New("db runner required")
	}
	return &retentionJob{
		name:      name,
		logg:      logg,
		db:        db,
		metrics:   m,
		retention: retention,
		purge:     purge,
		now:       time.Now,
	}, nil
}

func (j *retentionJob) Name() string { return j.name }

func (j *retentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.purge(tx, cutoff)
		deleted = rows
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}
	j.metrics.AddDeleted(j.name, deleted)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"retention":    j.retention.String(),
		"rows_deleted": deleted,
	})
	j.logg.Info(logCtx, "retention cleanup complete")
	return nil
}
