// Package ledger owns the authoritative loyalty balance. Every movement is an
// immutable ledger event and the account balance is their running sum.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Service records points movements.
type Service interface {
	Balance(ctx context.Context, customerID uuid.UUID) (int64, error)
	Account(ctx context.Context, customerID uuid.UUID) (*models.LoyaltyAccount, error)
	Lock(ctx context.Context, tx *gorm.DB, customerID uuid.UUID) (*models.LoyaltyAccount, error)
	ApplyOrder(ctx context.Context, tx *gorm.DB, account *models.LoyaltyAccount, input ApplyOrderInput) ([]models.LoyaltyLedgerEvent, error)
	History(ctx context.Context, customerID uuid.UUID, limit int) ([]models.LoyaltyLedgerEvent, error)
}

// ApplyOrderInput is the points effect of one confirmed order. EarnFirst
// credits the earn before the spend, which instant redemption relies on.
type ApplyOrderInput struct {
	OrderID   uuid.UUID
	Earned    int64
	Redeemed  int64
	EarnFirst bool
	Metadata  json.RawMessage
}

type service struct {
	repo Repository
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

// Balance returns zero for customers without an account.
func (s *service) Balance(ctx context.Context, customerID uuid.UUID) (int64, error) {
	account, err := s.Account(ctx, customerID)
	if err != nil {
		return 0, err
	}
	return account.PointsBalance, nil
}

// Account returns the balance with its lifetime counters. A customer without
// an account gets a zero one that is not persisted.
func (s *service) Account(ctx context.Context, customerID uuid.UUID) (*models.LoyaltyAccount, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	account, err := s.repo.FindAccount(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &models.LoyaltyAccount{CustomerID: customerID}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load loyalty account")
	}
	return account, nil
}

func (s *service) Lock(ctx context.Context, tx *gorm.DB, customerID uuid.UUID) (*models.LoyaltyAccount, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	account, err := s.repo.WithTx(tx).LockAccount(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock loyalty account")
	}
	return account, nil
}

// ApplyOrder records the spend and the earn against a locked account. The
// redemption is checked against the locked balance, not any cached value.
func (s *service) ApplyOrder(ctx context.Context, tx *gorm.DB, account *models.LoyaltyAccount, input ApplyOrderInput) ([]models.LoyaltyLedgerEvent, error) {
	if account == nil {
		return nil, fmt.Errorf("locked account required")
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if input.Earned < 0 || input.Redeemed < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "points movements must be non-negative")
	}
	spendable := account.PointsBalance
	if input.EarnFirst {
		spendable += input.Earned
	}
	if input.Redeemed > spendable {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientPoints, "requested points exceed balance").
			WithDetails(map[string]any{
				"requested":      input.Redeemed,
				"max_redeemable": spendable,
			})
	}

	orderID := input.OrderID
	balance := account.PointsBalance
	var events []models.LoyaltyLedgerEvent
	earn := func() {
		if input.Earned > 0 {
			balance += input.Earned
			events = append(events, newEvent(account.CustomerID, &orderID, enums.LedgerEventTypePointsEarned, input.Earned, balance, input.Metadata))
		}
	}
	if input.EarnFirst {
		earn()
	}
	if input.Redeemed > 0 {
		balance -= input.Redeemed
		events = append(events, newEvent(account.CustomerID, &orderID, enums.LedgerEventTypePointsRedeemed, input.Redeemed, balance, input.Metadata))
	}
	if !input.EarnFirst {
		earn()
	}
	if len(events) == 0 {
		return nil, nil
	}

	repo := s.repo.WithTx(tx)
	if err := repo.CreateEvents(ctx, events); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record ledger events")
	}
	account.PointsBalance = balance
	account.LifetimeEarned += input.Earned
	account.LifetimeSpent += input.Redeemed
	if err := repo.SaveBalance(ctx, account); err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "loyalty account changed concurrently")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update loyalty balance")
	}
	return events, nil
}

func (s *service) History(ctx context.Context, customerID uuid.UUID, limit int) ([]models.LoyaltyLedgerEvent, error) {
	events, err := s.repo.ListByCustomer(ctx, customerID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger events")
	}
	return events, nil
}

func newEvent(customerID uuid.UUID, orderID *uuid.UUID, eventType enums.LedgerEventType, points, balanceAfter int64, metadata json.RawMessage) models.LoyaltyLedgerEvent {
	return models.LoyaltyLedgerEvent{
		ID:           uuid.New(),
		CustomerID:   customerID,
		OrderID:      orderID,
		Type:         eventType,
		Points:       eventType.Sign() * points,
		BalanceAfter: balanceAfter,
		Metadata:     metadata,
	}
}
