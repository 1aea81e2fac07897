package checkout

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
	paymentcheck "github.com/angelmondragon/storefront-backend/pkg/checkout"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/money"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

var allowedTransitions = map[enums.CheckoutState][]enums.CheckoutState{
	enums.CheckoutStateCartReview: {
		enums.CheckoutStateInfoCollection,
	},
	enums.CheckoutStateInfoCollection: {
		enums.CheckoutStatePaymentCollection,
		enums.CheckoutStateCartReview,
	},
	enums.CheckoutStatePaymentCollection: {
		enums.CheckoutStateSubmitting,
		enums.CheckoutStateInfoCollection,
		enums.CheckoutStateCartReview,
	},
	enums.CheckoutStateSubmitting: {
		enums.CheckoutStateConfirmed,
		enums.CheckoutStatePaymentCollection,
		enums.CheckoutStateCartReview,
	},
	enums.CheckoutStateConfirmed: {},
}

// CanTransition reports whether the table permits from→to.
func CanTransition(from, to enums.CheckoutState) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// Info is what the customer enters in the info step.
type Info struct {
	Name            string                 `json:"name"`
	Email           string                 `json:"email,omitempty"`
	Phone           string                 `json:"phone,omitempty"`
	DeliveryMethod  enums.DeliveryMethod   `json:"deliveryMethod"`
	DeliveryAddress *types.DeliveryAddress `json:"deliveryAddress,omitempty"`
}

// Draft is the order being assembled. CartSnapshot is a deep copy taken when
// the session began and is only replaced by an explicit re-snapshot.
type Draft struct {
	CartSnapshot     []cart.LineItem             `json:"cartSnapshot"`
	Info             *Info                       `json:"info,omitempty"`
	PaymentMethod    enums.PaymentMethod         `json:"paymentMethod,omitempty"`
	PaymentDetails   paymentcheck.PaymentDetails `json:"paymentDetails"`
	Redemption       pricing.Selection           `json:"redemption"`
	IdempotencyToken uuid.UUID                   `json:"idempotencyToken"`
	Totals           *pricing.Totals             `json:"totals,omitempty"`

	// Unsettled marks a draft whose token may have reached the order service
	// without a definite answer. It is resubmitted unchanged so the service
	// can return the order it may already hold.
	Unsettled bool `json:"unsettled,omitempty"`
}

// Clone deep-copies the draft.
func (d *Draft) Clone() *Draft {
	if d == nil {
		return nil
	}
	out := *d
	snap := &cart.Cart{Items: d.CartSnapshot}
	out.CartSnapshot = snap.Clone().Items
	if d.Info != nil {
		info := *d.Info
		if d.Info.DeliveryAddress != nil {
			addr := d.Info.DeliveryAddress.Clone()
			info.DeliveryAddress = &addr
		}
		out.Info = &info
	}
	if d.PaymentDetails.Card != nil {
		card := *d.PaymentDetails.Card
		out.PaymentDetails.Card = &card
	}
	if d.Totals != nil {
		totals := *d.Totals
		out.Totals = &totals
	}
	return &out
}

// DeliveryMethod defaults to pickup until info is collected.
func (d *Draft) DeliveryMethod() enums.DeliveryMethod {
	if d.Info == nil || d.Info.DeliveryMethod == "" {
		return enums.DeliveryMethodPickup
	}
	return d.Info.DeliveryMethod
}

// Handoff is the payload carried from info collection into payment.
type Handoff struct {
	CartSnapshot    []cart.LineItem        `json:"cartSnapshot"`
	UserInfo        Info                   `json:"userInfo"`
	DeliveryMethod  enums.DeliveryMethod   `json:"deliveryMethod"`
	SelectedAddress *types.DeliveryAddress `json:"selectedAddress,omitempty"`
	Total           money.Cents            `json:"total"`
}

// SessionError is the last failure surfaced to the customer.
type SessionError struct {
	Code      pkgerrors.Code `json:"code"`
	Message   string         `json:"message"`
	Details   any            `json:"details,omitempty"`
	Retryable bool           `json:"retryable"`
}

// Session is the whole checkout state for one owner.
type Session struct {
	OwnerID   uuid.UUID              `json:"ownerId"`
	State     enums.CheckoutState    `json:"state"`
	Draft     *Draft                 `json:"draft,omitempty"`
	Handoff   *Handoff               `json:"handoff,omitempty"`
	LastError *SessionError          `json:"lastError,omitempty"`
	Order     *orders.ConfirmedOrder `json:"order,omitempty"`
	UpdatedAt time.Time              `json:"updatedAt"`
}

func newSession(ownerID uuid.UUID) *Session {
	return &Session{OwnerID: ownerID, State: enums.CheckoutStateCartReview}
}

// transition is the only place State changes.
func (s *Session) transition(to enums.CheckoutState) error {
	if !CanTransition(s.State, to) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "checkout step not allowed from current state").
			WithDetails(map[string]any{"from": s.State, "to": to})
	}
	s.State = to
	return nil
}

func (s *Session) require(states ...enums.CheckoutState) error {
	for _, state := range states {
		if s.State == state {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, "operation not allowed in current checkout state").
		WithDetails(map[string]any{"state": s.State, "allowed": states})
}

// outcomeUnknown reports whether a failed submission may still have created
// the order: untyped failures and retryable codes leave that open.
func outcomeUnknown(err error) bool {
	typed := pkgerrors.As(err)
	return typed == nil || pkgerrors.MetadataFor(typed.Code()).Retryable
}

// requireSettled blocks edits to a draft whose last submission outcome is
// unknown; changing it would change the request behind its token.
func (s *Session) requireSettled() error {
	if s.Draft != nil && s.Draft.Unsettled {
		return unsettledConflict()
	}
	return nil
}

func unsettledConflict() error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "previous submission is unresolved; retry or cancel").
		WithDetails(map[string]any{"reason": "submission_unsettled"})
}

func (s *Session) recordError(err error) {
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())
	s.LastError = &SessionError{
		Code:      typed.Code(),
		Message:   typed.PublicMessage(),
		Retryable: meta.Retryable,
	}
	if meta.DetailsAllowed {
		s.LastError.Details = typed.Details()
	}
}
