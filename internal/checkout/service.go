// Package checkout runs the per-owner checkout workflow: cart review, info
// collection, payment collection, submission and confirmation.
package checkout

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/loyalty"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
	paymentcheck "github.com/angelmondragon/storefront-backend/pkg/checkout"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/money"
)

// Submitter sends a frozen draft to the order boundary.
type Submitter interface {
	Submit(ctx context.Context, ownerID uuid.UUID, draft *Draft) (*orders.ConfirmedOrder, error)
}

type cartReader interface {
	Get(ctx context.Context, ownerID uuid.UUID) (*cart.Cart, error)
}

type balanceReader interface {
	Balance(ctx context.Context, ownerID uuid.UUID) (loyalty.Snapshot, error)
}

// PaymentInput is what the customer enters in the payment step.
type PaymentInput struct {
	Method  enums.PaymentMethod         `json:"method"`
	Details paymentcheck.PaymentDetails `json:"details"`
}

// Service drives the workflow. Every call loads the owner's session, applies
// one step and saves it.
type Service interface {
	Get(ctx context.Context, ownerID uuid.UUID) (*Session, error)
	Begin(ctx context.Context, ownerID uuid.UUID) (*Session, error)
	SubmitInfo(ctx context.Context, ownerID uuid.UUID, info Info) (*Session, error)
	SelectRedemption(ctx context.Context, ownerID uuid.UUID, sel pricing.Selection) (*Session, error)
	Pay(ctx context.Context, ownerID uuid.UUID, payment PaymentInput) (*Session, error)
	Retry(ctx context.Context, ownerID uuid.UUID) (*Session, error)
	Back(ctx context.Context, ownerID uuid.UUID) (*Session, error)
	Cancel(ctx context.Context, ownerID uuid.UUID) (*Session, error)
}

type ServiceParams struct {
	Store     SessionStore
	Cart      cartReader
	Loyalty   balanceReader
	Engine    *pricing.Engine
	Submitter Submitter
	Metrics   *metrics.CheckoutMetrics
	Logger    *logger.Logger
	Now       func() time.Time

	// SubmitTimeout bounds one order call. A session left in submitting for
	// longer than this plus submitGrace is treated as interrupted.
	SubmitTimeout time.Duration
}

type service struct {
	store     SessionStore
	cart      cartReader
	loyalty   balanceReader
	engine    *pricing.Engine
	submitter Submitter
	metrics   *metrics.CheckoutMetrics
	logg      *logger.Logger
	now       func() time.Time

	stuckAfter time.Duration
}

const (
	defaultSubmitTimeout = 15 * time.Second
	submitGrace          = 30 * time.Second
)

var (
	infoValidator = validator.New()
	phonePattern  = regexp.MustCompile(`^\+?[0-9 ()\-.]{7,20}$`)
)

func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("session store required")
	}
	if params.Cart == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if params.Loyalty == nil {
		return nil, fmt.Errorf("loyalty service required")
	}
	if params.Engine == nil {
		return nil, fmt.Errorf("pricing engine required")
	}
	if params.Submitter == nil {
		return nil, fmt.Errorf("submitter required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	submitTimeout := params.SubmitTimeout
	if submitTimeout <= 0 {
		submitTimeout = defaultSubmitTimeout
	}
	return &service{
		store:     params.Store,
		cart:      params.Cart,
		loyalty:   params.Loyalty,
		engine:    params.Engine,
		submitter: params.Submitter,
		metrics:   params.Metrics,
		logg:      params.Logger,
		now:       now,

		stuckAfter: submitTimeout + submitGrace,
	}, nil
}

func (s *service) Get(ctx context.Context, ownerID uuid.UUID) (*Session, error) {
	return s.load(ctx, ownerID)
}

// Begin snapshots a non-empty cart and moves to info collection. A confirmed
// session is replaced by a fresh one.
func (s *service) Begin(ctx context.Context, ownerID uuid.UUID) (*Session, error) {
	sess, err := s.load(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if sess.State == enums.CheckoutStateConfirmed {
		sess = newSession(ownerID)
	}
	if err := sess.require(enums.CheckoutStateCartReview); err != nil {
		return nil, err
	}

	current, err := s.cart.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if current.IsEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty").
			WithDetails(map[string]string{"cart": "must contain at least one item"})
	}

	draft := sess.Draft
	if draft == nil {
		draft = &Draft{Redemption: pricing.None}
	}
	s.snapshot(draft, current)
	if err := s.reprice(ctx, ownerID, draft, true); err != nil {
		return nil, err
	}
	sess.Draft = draft
	sess.LastError = nil
	sess.Order = nil

	if err := s.move(ctx, sess, enums.CheckoutStateInfoCollection); err != nil {
		return nil, err
	}
	return sess, s.save(ctx, sess)
}

func (s *service) SubmitInfo(ctx context.Context, ownerID uuid.UUID, info Info) (*Session, error) {
	sess, err := s.load(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if err := sess.require(enums.CheckoutStateInfoCollection); err != nil {
		return nil, err
	}
	info, err = normalizeInfo(info)
	if err != nil {
		return nil, err
	}

	draft := sess.Draft.Clone()
	draft.Info = &info
	if err := s.reprice(ctx, ownerID, draft, true); err != nil {
		return nil, err
	}
	sess.Draft = draft
	sess.Handoff = &Handoff{
		CartSnapshot:    draft.CartSnapshot,
		UserInfo:        info,
		DeliveryMethod:  info.DeliveryMethod,
		SelectedAddress: info.DeliveryAddress,
		Total:           draft.Totals.Total,
	}

	if err := s.move(ctx, sess, enums.CheckoutStatePaymentCollection); err != nil {
		return nil, err
	}
	return sess, s.save(ctx, sess)
}

// SelectRedemption validates against the cached balance. Rejections leave the
// session unchanged.
func (s *service) SelectRedemption(ctx context.Context, ownerID uuid.UUID, sel pricing.Selection) (*Session, error) {
	sess, err := s.load(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if err := sess.require(enums.CheckoutStateInfoCollection, enums.CheckoutStatePaymentCollection); err != nil {
		return nil, err
	}
	if err := sess.requireSettled(); err != nil {
		return nil, err
	}

	draft := sess.Draft.Clone()
	draft.Redemption = sel.Normalized()
	if err := s.reprice(ctx, ownerID, draft, false); err != nil {
		return nil, err
	}
	sess.Draft = draft
	if sess.Handoff != nil {
		sess.Handoff.Total = draft.Totals.Total
	}
	return sess, s.save(ctx, sess)
}

func (s *service) Pay(ctx context.Context, ownerID uuid.UUID, payment PaymentInput) (*Session, error) {
	sess, err := s.load(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if err := sess.require(enums.CheckoutStatePaymentCollection); err != nil {
		return nil, err
	}
	if err := paymentcheck.ValidatePayment(payment.Method, payment.Details, s.now()); err != nil {
		return nil, err
	}
	if sess.Draft.Unsettled && payment.Method != sess.Draft.PaymentMethod {
		return nil, unsettledConflict()
	}
	sess.Draft.PaymentMethod = payment.Method
	sess.Draft.PaymentDetails = payment.Details.Redacted()
	return s.submit(ctx, sess)
}

// Retry resubmits the retained draft with its original idempotency token.
// On a recorded failure the saved session is returned with the error.
func (s *service) Retry(ctx context.Context, ownerID uuid.UUID) (*Session, error) {
	sess, err := s.load(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if err := sess.require(enums.CheckoutStatePaymentCollection); err != nil {
		return nil, err
	}
	if sess.LastError == nil || sess.Draft.PaymentMethod == "" {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no failed submission to retry")
	}
	return s.submit(ctx, sess)
}

// Back steps one state backwards keeping everything entered so far.
func (s *service) Back(ctx context.Context, ownerID uuid.UUID) (*Session, error) {
	sess, err := s.load(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if err := sess.requireSettled(); err != nil {
		return nil, err
	}
	var to enums.CheckoutState
	switch sess.State {
	case enums.CheckoutStatePaymentCollection:
		to = enums.CheckoutStateInfoCollection
	case enums.CheckoutStateInfoCollection:
		to = enums.CheckoutStateCartReview
	default:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cannot go back from current state").
			WithDetails(map[string]any{"state": sess.State})
	}
	sess.Handoff = nil
	sess.LastError = nil
	if err := s.move(ctx, sess, to); err != nil {
		return nil, err
	}
	return sess, s.save(ctx, sess)
}

// Cancel discards the draft and returns to cart review.
func (s *service) Cancel(ctx context.Context, ownerID uuid.UUID) (*Session, error) {
	sess, err := s.load(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if sess.State.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout already confirmed")
	}
	if sess.State != enums.CheckoutStateCartReview {
		if err := s.move(ctx, sess, enums.CheckoutStateCartReview); err != nil {
			return nil, err
		}
	}
	sess.Draft = nil
	sess.Handoff = nil
	sess.LastError = nil
	return sess, s.save(ctx, sess)
}

// submit refuses to send anything but the current cart at its current price.
// An unsettled draft skips both checks and goes out exactly as before. Once
// the order call has been made the session is saved even if the caller has
// gone away, so the draft and its token survive for a retry.
func (s *service) submit(ctx context.Context, sess *Session) (*Session, error) {
	ownerID := sess.OwnerID
	draft := sess.Draft

	if !draft.Unsettled {
		current, err := s.cart.Get(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		if !current.Equal(&cart.Cart{Items: draft.CartSnapshot}) {
			return s.resnapshot(ctx, sess, current)
		}

		previous := draft.Totals
		if err := s.reprice(ctx, ownerID, draft, false); err != nil {
			draft.Totals = nil
			return s.fail(ctx, sess, err)
		}
		if previous == nil || !previous.Equal(*draft.Totals) {
			return s.fail(ctx, sess, pkgerrors.New(pkgerrors.CodeStateConflict, "order total changed; review and confirm again").
				WithDetails(map[string]any{"reason": "totals_changed", "totals": draft.Totals}))
		}
	}

	if err := s.move(ctx, sess, enums.CheckoutStateSubmitting); err != nil {
		return nil, err
	}
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}

	order, err := s.submitter.Submit(ctx, ownerID, draft.Clone())
	ctx = context.WithoutCancel(ctx)
	if err != nil {
		if mvErr := s.move(ctx, sess, enums.CheckoutStatePaymentCollection); mvErr != nil {
			return nil, mvErr
		}
		draft.Unsettled = outcomeUnknown(err)
		if pkgerrors.IsCode(err, pkgerrors.CodePricingInvariant) {
			draft.Totals = nil
		}
		return s.fail(ctx, sess, err)
	}

	sess.Order = order
	sess.LastError = nil
	draft.Unsettled = false
	if err := s.move(ctx, sess, enums.CheckoutStateConfirmed); err != nil {
		return nil, err
	}
	return sess, s.save(ctx, sess)
}

// fail records err on the session, saves it and returns both.
func (s *service) fail(ctx context.Context, sess *Session, err error) (*Session, error) {
	sess.recordError(err)
	if serr := s.save(ctx, sess); serr != nil {
		return nil, serr
	}
	return sess, err
}

func (s *service) resnapshot(ctx context.Context, sess *Session, current *cart.Cart) (*Session, error) {
	if current.IsEmpty() {
		if err := s.move(ctx, sess, enums.CheckoutStateCartReview); err != nil {
			return nil, err
		}
		sess.Draft = nil
		sess.Handoff = nil
	} else {
		s.snapshot(sess.Draft, current)
		if err := s.reprice(ctx, sess.OwnerID, sess.Draft, true); err != nil {
			return nil, err
		}
		if sess.Handoff != nil {
			sess.Handoff.CartSnapshot = sess.Draft.CartSnapshot
			sess.Handoff.Total = sess.Draft.Totals.Total
		}
	}
	return s.fail(ctx, sess, pkgerrors.New(pkgerrors.CodeStateConflict, "cart changed since checkout began; review and confirm again").
		WithDetails(map[string]any{"reason": "cart_changed"}))
}

// snapshot freezes the cart into the draft under a fresh idempotency token.
func (s *service) snapshot(draft *Draft, current *cart.Cart) {
	draft.CartSnapshot = current.Clone().Items
	draft.IdempotencyToken = uuid.New()
}

// reprice recomputes draft totals from the cached balance. With fit set an
// out-of-range redemption is clamped instead of rejected.
func (s *service) reprice(ctx context.Context, ownerID uuid.UUID, draft *Draft, fit bool) error {
	snap, err := s.loyalty.Balance(ctx, ownerID)
	if err != nil {
		return err
	}
	snapshot := &cart.Cart{Items: draft.CartSnapshot}
	sel := draft.Redemption.Normalized()
	if fit {
		sel = fitSelection(sel, snap.PointsBalance, snapshot.Subtotal())
	}
	totals, err := s.engine.Compute(pricing.Input{
		Lines:          snapshot.PricingLines(),
		Selection:      sel,
		PointsBalance:  snap.PointsBalance,
		DeliveryMethod: draft.DeliveryMethod(),
	})
	if err != nil {
		return err
	}
	draft.Redemption = sel
	draft.Totals = totals
	return nil
}

// fitSelection keeps a selection that is still valid, clamps a standard one
// to the new maximum and otherwise falls back to no redemption.
func fitSelection(sel pricing.Selection, balance int64, subtotal money.Cents) pricing.Selection {
	if pricing.ValidateSelection(sel, balance, subtotal) == nil {
		return sel
	}
	if sel.Mode == enums.RedemptionModeStandard {
		return pricing.ClampSelection(sel, balance, subtotal)
	}
	return pricing.None
}

func (s *service) move(ctx context.Context, sess *Session, to enums.CheckoutState) error {
	from := sess.State
	if err := sess.transition(to); err != nil {
		return err
	}
	s.metrics.ObserveTransition(string(from), string(to))
	if s.logg != nil {
		logCtx := s.logg.WithFields(s.logg.WithOwnerID(ctx, sess.OwnerID.String()), map[string]any{
			"from": from,
			"to":   to,
		})
		s.logg.Info(logCtx, "checkout.transition")
	}
	return nil
}

func (s *service) load(ctx context.Context, ownerID uuid.UUID) (*Session, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id is required")
	}
	sess, err := s.store.Load(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load checkout session")
	}
	if sess == nil {
		sess = newSession(ownerID)
	}
	if sess.State != enums.CheckoutStateCartReview && sess.Draft == nil {
		sess = newSession(ownerID)
	}
	if sess.State == enums.CheckoutStateSubmitting && s.now().Sub(sess.UpdatedAt) > s.stuckAfter {
		s.recoverInterrupted(ctx, sess)
	}
	return sess, nil
}

// recoverInterrupted returns a session whose order call never reported back
// to payment collection. The draft keeps its token and is marked unsettled.
func (s *service) recoverInterrupted(ctx context.Context, sess *Session) {
	if err := s.move(ctx, sess, enums.CheckoutStatePaymentCollection); err != nil {
		return
	}
	sess.Draft.Unsettled = true
	sess.recordError(pkgerrors.New(pkgerrors.CodeDependency, "previous submission did not finish; retry to confirm"))
	if s.logg != nil {
		s.logg.Warn(s.logg.WithOwnerID(ctx, sess.OwnerID.String()), "checkout.submission_interrupted")
	}
}

func (s *service) save(ctx context.Context, sess *Session) error {
	sess.UpdatedAt = s.now().UTC()
	if err := s.store.Save(ctx, sess); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save checkout session")
	}
	return nil
}

func normalizeInfo(info Info) (Info, error) {
	fields := map[string]string{}
	info.Name = strings.TrimSpace(info.Name)
	info.Email = strings.TrimSpace(info.Email)
	info.Phone = strings.TrimSpace(info.Phone)

	if info.Name == "" {
		fields["name"] = "is required"
	}
	if info.Email == "" && info.Phone == "" {
		fields["contact"] = "email or phone is required"
	}
	if info.Email != "" && infoValidator.Var(info.Email, "email") != nil {
		fields["email"] = "must be a valid email"
	}
	if info.Phone != "" {
		digits := len(paymentcheck.DigitsOnly(info.Phone))
		if !phonePattern.MatchString(info.Phone) || digits < 7 || digits > 15 {
			fields["phone"] = "must be a valid phone number"
		}
	}
	if !info.DeliveryMethod.IsValid() {
		fields["deliveryMethod"] = "must be home or pickup"
	}
	if info.DeliveryMethod.RequiresAddress() {
		if info.DeliveryAddress == nil {
			fields["deliveryAddress"] = "is required for home delivery"
		} else {
			for _, missing := range info.DeliveryAddress.Missing() {
				fields["deliveryAddress."+missing] = "is required"
			}
		}
	} else {
		info.DeliveryAddress = nil
	}

	if len(fields) > 0 {
		return Info{}, pkgerrors.New(pkgerrors.CodeValidation, "checkout info invalid").WithDetails(fields)
	}
	if info.DeliveryAddress != nil {
		addr := info.DeliveryAddress.Clone()
		info.DeliveryAddress = &addr
	}
	return info, nil
}
