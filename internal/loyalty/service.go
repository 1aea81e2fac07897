// Package loyalty is the owner-facing view of the points balance. It only
// ever caches what the authoritative side reports.
package loyalty

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/angelmondragon/storefront-backend/internal/pricing"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/money"
)

// Snapshot is a possibly stale balance reading.
type Snapshot struct {
	OwnerID       uuid.UUID `json:"ownerId"`
	PointsBalance int64     `json:"pointsBalance"`
	FetchedAt     time.Time `json:"fetchedAt"`
	Stale         bool      `json:"stale"`
}

// BalanceSource returns the authoritative balance.
type BalanceSource interface {
	LoyaltyPoints(ctx context.Context, ownerID uuid.UUID) (int64, error)
}

// BalanceSourceFunc adapts a function to BalanceSource.
type BalanceSourceFunc func(ctx context.Context, ownerID uuid.UUID) (int64, error)

func (f BalanceSourceFunc) LoyaltyPoints(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	return f(ctx, ownerID)
}

// Service exposes the cached balance and its refresh.
type Service interface {
	Balance(ctx context.Context, ownerID uuid.UUID) (Snapshot, error)
	Refresh(ctx context.Context, ownerID uuid.UUID) (Snapshot, error)
	Invalidate(ctx context.Context, ownerID uuid.UUID) error
}

type ServiceParams struct {
	Cache  Cache
	Source BalanceSource
	Logger *logger.Logger
	Now    func() time.Time
}

// refreshTimeout bounds a shared fetch, which outlives any single caller.
const refreshTimeout = 10 * time.Second

type service struct {
	cache  Cache
	source BalanceSource
	logg   *logger.Logger
	now    func() time.Time

	// refreshes collapses concurrent fetches for the same owner.
	refreshes singleflight.Group
}

func NewService(params ServiceParams) (Service, error) {
	if params.Cache == nil {
		return nil, fmt.Errorf("loyalty cache required")
	}
	if params.Source == nil {
		return nil, fmt.Errorf("balance source required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{cache: params.Cache, source: params.Source, logg: params.Logger, now: now}, nil
}

// Balance returns the cached value, fetching only when nothing is cached.
func (s *service) Balance(ctx context.Context, ownerID uuid.UUID) (Snapshot, error) {
	if ownerID == uuid.Nil {
		return Snapshot{}, pkgerrors.New(pkgerrors.CodeValidation, "owner id is required")
	}
	snap, ok, err := s.cache.Load(ctx, ownerID)
	if err != nil {
		return Snapshot{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load loyalty balance")
	}
	if ok {
		return snap, nil
	}
	return s.Refresh(ctx, ownerID)
}

// Refresh re-reads the authoritative balance and overwrites the cache. The
// fetch is shared by concurrent callers, so it runs detached from any one of
// them; each caller still stops waiting when its own context is done.
func (s *service) Refresh(ctx context.Context, ownerID uuid.UUID) (Snapshot, error) {
	if ownerID == uuid.Nil {
		return Snapshot{}, pkgerrors.New(pkgerrors.CodeValidation, "owner id is required")
	}
	ch := s.refreshes.DoChan(ownerID.String(), func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return s.refresh(fetchCtx, ownerID)
	})
	select {
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Snapshot{}, res.Err
		}
		return res.Val.(Snapshot), nil
	}
}

func (s *service) refresh(ctx context.Context, ownerID uuid.UUID) (Snapshot, error) {
	points, err := s.source.LoyaltyPoints(ctx, ownerID)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return Snapshot{}, err
		}
		return Snapshot{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch loyalty balance")
	}
	if points < 0 {
		return Snapshot{}, pkgerrors.New(pkgerrors.CodeInternal, "authoritative balance is negative")
	}
	snap := Snapshot{OwnerID: ownerID, PointsBalance: points, FetchedAt: s.now().UTC()}
	if err := s.cache.Store(ctx, snap); err != nil {
		return Snapshot{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store loyalty balance")
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{"owner_id": ownerID.String(), "points_balance": points})
		s.logg.Info(logCtx, "loyalty balance refreshed")
	}
	return snap, nil
}

func (s *service) Invalidate(ctx context.Context, ownerID uuid.UUID) error {
	if err := s.cache.MarkStale(ctx, ownerID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "invalidate loyalty balance")
	}
	return nil
}

// EarnedPoints previews what an order with this subtotal earns.
func EarnedPoints(subtotal money.Cents) int64 {
	return pricing.PointsEarned(subtotal)
}

// EstimateAfterOrder is a display-only projection; it never touches the cache.
func EstimateAfterOrder(snap Snapshot, totals pricing.Totals) int64 {
	estimate := snap.PointsBalance - totals.PointsRedeemed + totals.PointsEarned
	if estimate < 0 {
		return 0
	}
	return estimate
}

// Summary is the loyalty view returned to the owner.
type Summary struct {
	Snapshot
	StandardAvailable bool  `json:"standardAvailable"`
	InstantEligible   bool  `json:"instantEligible"`
	MaxRedeemable     int64 `json:"maxRedeemable"`
	EarnPreview       int64 `json:"earnPreview"`
	EstimatedAfter    int64 `json:"estimatedBalanceAfterOrder"`
}

// Summarize combines a snapshot with the owner's current totals.
func Summarize(snap Snapshot, totals pricing.Totals) Summary {
	return Summary{
		Snapshot:          snap,
		StandardAvailable: pricing.StandardAvailable(snap.PointsBalance),
		InstantEligible:   pricing.InstantEligible(snap.PointsBalance, totals.Subtotal),
		MaxRedeemable:     pricing.MaxRedeemable(snap.PointsBalance, totals.Subtotal),
		EarnPreview:       EarnedPoints(totals.Subtotal),
		EstimatedAfter:    EstimateAfterOrder(snap, totals),
	}
}
