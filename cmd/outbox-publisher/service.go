package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize   = 50
	defaultPollMs      = 500
	defaultMaxAttempts = 10
	publishTimeout     = 15 * time.Second
	maxBackoff         = 10 * time.Second
	jitterWindow       = 250 * time.Millisecond
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

// publishGuard remembers events already handed to Pub/Sub so a crash between
// publish and commit does not deliver them twice.
type publishGuard interface {
	Claim(ctx context.Context, topic string, eventID uuid.UUID) (bool, error)
	Release(ctx context.Context, topic string, eventID uuid.UUID) error
}

type ServiceParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               dbClient
	PubSub           pubSubClient
	Repository       outboxRepository
	Registry         registryResolver
	PublisherFactory publisherFactory
	DLQRepository    dlqRepository
	Guard            publishGuard
	Metrics          *metrics.CheckoutMetrics
}

// Service drains outbox_events into Pub/Sub. A batch is locked, published and
// marked inside one transaction, so row state and dead letters commit together.
type Service struct {
	logg             *logger.Logger
	db               dbClient
	repo             outboxRepository
	pubsub           pubSubClient
	registry         registryResolver
	dlq              dlqRepository
	guard            publishGuard
	metrics          *metrics.CheckoutMetrics
	publisherFactory publisherFactory
	batchSize        int
	maxAttempts      int
	pollInterval     time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	required := []struct {
		missing bool
		name    string
	}{
		{params.Config == nil, "config"},
		{params.Logger == nil, "logger"},
		{params.DB == nil, "database client"},
		{params.PubSub == nil, "pubsub client"},
		{params.Repository == nil, "outbox repository"},
		{params.Registry == nil, "event registry"},
		{params.DLQRepository == nil, "dlq repository"},
	}
	for _, r := range required {
		if r.missing {
			return nil, fmt.Errorf("%s is required", r.name)
		}
	}

	factory := params.PublisherFactory
	if factory == nil {
		factory = gcpPublisherFactory(params.PubSub)
	}
	cfg := params.Config.Outbox
	return &Service{
		logg:             params.Logger,
		db:               params.DB,
		repo:             params.Repository,
		pubsub:           params.PubSub,
		registry:         params.Registry,
		dlq:              params.DLQRepository,
		guard:            params.Guard,
		metrics:          params.Metrics,
		publisherFactory: factory,
		batchSize:        positiveOr(cfg.BatchSize, defaultBatchSize),
		maxAttempts:      positiveOr(cfg.MaxAttempts, defaultMaxAttempts),
		pollInterval:     time.Duration(positiveOr(cfg.PollIntervalMS, defaultPollMs)) * time.Millisecond,
	}, nil
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

func (s *Service) ready(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping: %w", err)
	}
	if err := s.pubsub.Ping(ctx); err != nil {
		return fmt.Errorf("pubsub ping: %w", err)
	}
	return nil
}

// Run polls until ctx is canceled. A full batch is followed immediately by
// the next; an empty one waits a poll interval; a failed one backs off.
func (s *Service) Run(ctx context.Context) error {
	if err := s.ready(ctx); err != nil {
		return err
	}

	wait := time.Duration(0)
	backoff := s.pollInterval
	for {
		if err := sleep(ctx, wait); err != nil {
			return err
		}
		processed, err := s.processBatch(ctx)
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox.batch.failed", err)
			backoff = nextBackoff(backoff, s.pollInterval, maxBackoff)
			wait = withJitter(backoff)
		case processed:
			backoff, wait = s.pollInterval, 0
		default:
			backoff, wait = s.pollInterval, withJitter(s.pollInterval)
		}
	}
}

// processBatch reports whether any row was locked.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	processed := false
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return err
		}
		processed = len(events) > 0
		for _, event := range events {
			if err := s.dispatch(ctx, tx, event); err != nil {
				return err
			}
		}
		return nil
	})
	return processed, err
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, ceiling time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	return min(current*2, ceiling)
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(jitterWindow)
}

var errNilPublisher = errors.New("publisher not configured")
