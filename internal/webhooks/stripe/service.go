package stripewebhook

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/hearthstay/hearthstay-backend/internal/bookings"
	"github.com/hearthstay/hearthstay-backend/internal/payments"
	"github.com/hearthstay/hearthstay-backend/internal/subscriptions"
	"github.com/hearthstay/hearthstay-backend/pkg/db/models"
	"github.com/hearthstay/hearthstay-backend/pkg/enums"
	pkgerrors "github.com/hearthstay/hearthstay-backend/pkg/errors"
	"github.com/hearthstay/hearthstay-backend/pkg/logger"
	"github.com/hearthstay/hearthstay-backend/pkg/metrics"
	"github.com/hearthstay/hearthstay-backend/pkg/outbox"
	"github.com/hearthstay/hearthstay-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type userLookup interface {
	FindByStripeCustomerID(ctx context.Context, customerID string) (*models.User, error)
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type ServiceParams struct {
	BookingsRepo      bookings.Repository
	PaymentsRepo      payments.Repository
	SubscriptionsRepo subscriptions.Repository
	UsersRepo         userLookup
	StripeClient      subscriptions.StripeSubscriptionClient
	Outbox            outboxEmitter
	TransactionRunner txRunner
	Metrics           *metrics.WebhookMetrics
	Logger            *logger.Logger
}

// Service reconciles processor webhook events into local state. Every
// handler tolerates replays: the ledger upserts, booking transitions are
// status-guarded, and receipt emission is once-per-booking.
type Service struct {
	bookingsRepo bookings.Repository
	paymentsRepo payments.Repository
	subsRepo     subscriptions.Repository
	usersRepo    userLookup
	stripe       subscriptions.StripeSubscriptionClient
	outbox       outboxEmitter
	txRunner     txRunner
	metrics      *metrics.WebhookMetrics
	logg         *logger.Logger
	now          func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.BookingsRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "bookings repo required")
	}
	if params.PaymentsRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments repo required")
	}
	if params.SubscriptionsRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscriptions repo required")
	}
	if params.UsersRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "users repo required")
	}
	if params.StripeClient == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe client required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox service required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	return &Service{
		bookingsRepo: params.BookingsRepo,
		paymentsRepo: params.PaymentsRepo,
		subsRepo:     params.SubscriptionsRepo,
		usersRepo:    params.UsersRepo,
		stripe:       params.StripeClient,
		outbox:       params.Outbox,
		txRunner:     params.TransactionRunner,
		metrics:      params.Metrics,
		logg:         params.Logger,
		now:          time.Now,
	}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	start := time.Now()
	err := s.dispatch(ctx, event)
	s.metrics.ObserveDuration(string(event.Type), time.Since(start))
	if err != nil {
		s.metrics.IncFailed(string(event.Type))
		return err
	}
	s.metrics.IncProcessed(string(event.Type))
	return nil
}

func (s *Service) dispatch(ctx context.Context, event *stripe.Event) error {
	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		if event.GetObjectValue("invoice") != "" {
			// Invoice-backed intents are subscription cycle charges; the
			// invoice.paid handler owns their ledger rows.
			s.metrics.IncSkipped(string(event.Type))
			return nil
		}
		intent, err := decodePaymentIntent(event)
		if err != nil {
			return err
		}
		return s.handlePaymentSucceeded(ctx, intent)
	case stripe.EventTypePaymentIntentPaymentFailed:
		intent, err := decodePaymentIntent(event)
		if err != nil {
			return err
		}
		return s.handlePaymentFailed(ctx, intent)
	case stripe.EventTypeChargeRefunded:
		var charge stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode charge event")
		}
		return s.handleChargeRefunded(ctx, &charge)
	case stripe.EventTypeCustomerSubscriptionCreated,
		stripe.EventTypeCustomerSubscriptionUpdated,
		stripe.EventTypeCustomerSubscriptionDeleted:
		var stripeSub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode subscription event")
		}
		return s.syncSubscription(ctx, &stripeSub, nil)
	case stripe.EventTypeInvoicePaid, stripe.EventTypeInvoicePaymentFailed:
		return s.handleInvoiceEvent(ctx, event)
	default:
		s.metrics.IncSkipped(string(event.Type))
		return nil
	}
}

// handlePaymentSucceeded records the ledger row, confirms the pending
// booking, and queues the receipt exactly once.
func (s *Service) handlePaymentSucceeded(ctx context.Context, intent *stripe.PaymentIntent) error {
	booking, err := s.lookupBooking(ctx, intent)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		payment := paymentFromIntent(intent, booking, enums.PaymentStatusSucceeded)
		if err := s.paymentsRepo.WithTx(tx).UpsertByPaymentIntent(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert payment")
		}

		if booking == nil {
			// Money moved for an intent this platform never opened a
			// booking for. The ledger row above is the ops trail.
			if s.logg != nil {
				logCtx := s.logg.WithField(ctx, "payment_intent_id", intent.ID)
				s.logg.Warn(logCtx, "payment succeeded without a matching booking")
			}
			return nil
		}

		confirmed, err := s.bookingsRepo.WithTx(tx).ConfirmIfPending(ctx, booking.ID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm booking")
		}
		if !confirmed && booking.Status == enums.BookingStatusCancelled {
			if s.logg != nil {
				logCtx := s.logg.WithBookingID(ctx, booking.ID.String())
				s.logg.Warn(logCtx, "payment succeeded for a cancelled booking; refund required")
			}
			return nil
		}

		receipt := payloads.ReceiptRequestedEvent{
			BookingID:       booking.ID,
			PropertyID:      booking.PropertyID,
			GuestID:         booking.GuestID,
			PaymentIntentID: intent.ID,
			AmountCents:     intent.Amount,
			Currency:        string(intent.Currency),
			ConfirmedAt:     now,
		}
		if payment.ReceiptURL != nil {
			receipt.ReceiptURL = *payment.ReceiptURL
		}
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReceiptRequested,
			AggregateType: enums.AggregateBooking,
			AggregateID:   booking.ID,
			Version:       1,
			OccurredAt:    now,
			Data:          receipt,
		})
	})
}

// handlePaymentFailed records the failure; the booking stays pending so the
// guest can retry until the expiry sweep reaps it.
func (s *Service) handlePaymentFailed(ctx context.Context, intent *stripe.PaymentIntent) error {
	booking, err := s.lookupBooking(ctx, intent)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		payment := paymentFromIntent(intent, booking, enums.PaymentStatusFailed)
		if reason := failureReason(intent); reason != "" {
			payment.FailureReason = &reason
		}
		if err := s.paymentsRepo.WithTx(tx).UpsertByPaymentIntent(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert payment")
		}

		data := payloads.PaymentFailedEvent{
			PaymentIntentID: intent.ID,
			FailedAt:        now,
		}
		if payment.FailureReason != nil {
			data.FailureReason = *payment.FailureReason
		}
		aggregateID := uuid.New()
		if booking != nil {
			data.BookingID = &booking.ID
			aggregateID = booking.ID
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentFailed,
			AggregateType: enums.AggregatePayment,
			AggregateID:   aggregateID,
			Version:       1,
			OccurredAt:    now,
			Data:          data,
		})
	})
}

func (s *Service) handleChargeRefunded(ctx context.Context, charge *stripe.Charge) error {
	if charge == nil || charge.PaymentIntent == nil || charge.PaymentIntent.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "charge payment intent missing")
	}

	payment, err := s.paymentsRepo.FindByPaymentIntentID(ctx, charge.PaymentIntent.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if payment == nil {
		if s.logg != nil {
			logCtx := s.logg.WithField(ctx, "payment_intent_id", charge.PaymentIntent.ID)
			s.logg.Warn(logCtx, "refund for unknown payment intent; skipping")
		}
		return nil
	}

	payment.Status = enums.PaymentStatusRefunded
	if charge.ID != "" {
		payment.StripeChargeID = &charge.ID
	}
	return s.paymentsRepo.UpsertByPaymentIntent(ctx, payment)
}

func (s *Service) handleInvoiceEvent(ctx context.Context, event *stripe.Event) error {
	subscriptionID := invoiceSubscriptionID(event)
	if subscriptionID == "" {
		// One-off invoice; nothing to reconcile.
		return nil
	}
	stripeSub, err := s.stripe.Get(ctx, subscriptionID, &stripe.SubscriptionParams{})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch stripe subscription")
	}

	renewal := (*invoiceRenewal)(nil)
	if event.Type == stripe.EventTypeInvoicePaid {
		renewal = renewalFromInvoiceEvent(event)
	}
	return s.syncSubscription(ctx, stripeSub, renewal)
}

type invoiceRenewal struct {
	PaymentIntentID string
	AmountCents     int64
	Currency        string
}

// syncSubscription upserts the subscription row from the processor copy and,
// for paid renewal invoices, appends the ledger row and renewal event.
func (s *Service) syncSubscription(ctx context.Context, stripeSub *stripe.Subscription, renewal *invoiceRenewal) error {
	if stripeSub == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "subscription is required")
	}

	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.subsRepo.WithTx(tx)
		stored, err := repo.FindSubscriptionByStripeID(ctx, stripeSub.ID)
		if err != nil {
			return err
		}

		userID, err := s.resolveSubscriptionUser(ctx, stripeSub, stored)
		if err != nil {
			return err
		}

		var record *models.UserSubscription
		if stored == nil {
			planID, err := s.resolvePlanID(ctx, repo, stripeSub)
			if err != nil {
				return err
			}
			built, err := subscriptions.BuildFromStripe(stripeSub, userID, planID)
			if err != nil {
				return err
			}
			if err := repo.CreateSubscription(ctx, built); err != nil {
				return err
			}
			record = built
		} else {
			previous := stored.Status
			subscriptions.ApplyStripeState(stored, stripeSub)
			if err := repo.UpdateSubscription(ctx, stored); err != nil {
				return err
			}
			record = stored

			if previous != enums.SubscriptionStatusInactive && record.Status == enums.SubscriptionStatusInactive {
				stop := outbox.DomainEvent{
					EventType:     enums.EventSubscriptionStopped,
					AggregateType: enums.AggregateSubscription,
					AggregateID:   record.ID,
					Version:       1,
					OccurredAt:    s.now().UTC(),
					Data: payloads.SubscriptionStoppedEvent{
						SubscriptionID:       record.ID,
						UserID:               record.UserID,
						StripeSubscriptionID: record.StripeSubscriptionID,
						EndedAt:              record.EndDate,
					},
				}
				if err := s.outbox.Emit(ctx, tx, stop); err != nil {
					return err
				}
			}
		}

		if record.Status == enums.SubscriptionStatusActive {
			// One live subscription per user: the processor's current one
			// supersedes whatever rows the user still carried.
			if err := repo.DeactivateOthersForUser(ctx, record.UserID, record.StripeSubscriptionID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate superseded subscriptions")
			}
		}

		if renewal == nil {
			return nil
		}

		if renewal.PaymentIntentID != "" {
			payment := &models.Payment{
				UserID:                &record.UserID,
				SubscriptionID:        &record.ID,
				Kind:                  enums.PaymentKindSubscription,
				StripePaymentIntentID: renewal.PaymentIntentID,
				AmountCents:           renewal.AmountCents,
				Currency:              renewal.Currency,
				Status:                enums.PaymentStatusSucceeded,
			}
			if err := s.paymentsRepo.WithTx(tx).UpsertByPaymentIntent(ctx, payment); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert renewal payment")
			}
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSubscriptionRenewed,
			AggregateType: enums.AggregateSubscription,
			AggregateID:   record.ID,
			Version:       1,
			OccurredAt:    s.now().UTC(),
			Data: payloads.SubscriptionRenewedEvent{
				SubscriptionID:       record.ID,
				UserID:               record.UserID,
				StripeSubscriptionID: record.StripeSubscriptionID,
				CurrentPeriodEnd:     record.CurrentPeriodEnd,
			},
		})
	})
}

func (s *Service) resolveSubscriptionUser(ctx context.Context, stripeSub *stripe.Subscription, stored *models.UserSubscription) (uuid.UUID, error) {
	if id, ok := subscriptions.UserIDFromMetadata(stripeSub); ok {
		return id, nil
	}
	if stored != nil {
		return stored.UserID, nil
	}
	if stripeSub.Customer != nil && stripeSub.Customer.ID != "" {
		user, err := s.usersRepo.FindByStripeCustomerID(ctx, stripeSub.Customer.ID)
		if err != nil {
			return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "map customer to user")
		}
		if user != nil {
			return user.ID, nil
		}
	}
	return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription has no resolvable user")
}

func (s *Service) resolvePlanID(ctx context.Context, repo subscriptions.Repository, stripeSub *stripe.Subscription) (*uuid.UUID, error) {
	if stripeSub.Items == nil || len(stripeSub.Items.Data) == 0 || stripeSub.Items.Data[0].Price == nil {
		return nil, nil
	}
	plan, err := repo.FindPlanByPriceID(ctx, stripeSub.Items.Data[0].Price.ID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, nil
	}
	return &plan.ID, nil
}

func (s *Service) lookupBooking(ctx context.Context, intent *stripe.PaymentIntent) (*models.Booking, error) {
	if raw, ok := intent.Metadata["booking_id"]; ok {
		id, err := uuid.Parse(strings.TrimSpace(raw))
		if err == nil && id != uuid.Nil {
			booking, err := s.bookingsRepo.FindByID(ctx, id)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
			}
			if booking != nil {
				return booking, nil
			}
		}
	}
	booking, err := s.bookingsRepo.FindByPaymentIntentID(ctx, intent.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking by intent")
	}
	return booking, nil
}

func decodePaymentIntent(event *stripe.Event) (*stripe.PaymentIntent, error) {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode payment intent event")
	}
	if intent.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id missing")
	}
	return &intent, nil
}

func paymentFromIntent(intent *stripe.PaymentIntent, booking *models.Booking, status enums.PaymentStatus) *models.Payment {
	payment := &models.Payment{
		Kind:                  enums.PaymentKindBooking,
		StripePaymentIntentID: intent.ID,
		AmountCents:           intent.Amount,
		Currency:              string(intent.Currency),
		Status:                status,
	}
	if booking != nil {
		payment.BookingID = &booking.ID
		payment.UserID = &booking.GuestID
	}
	if intent.LatestCharge != nil && intent.LatestCharge.ID != "" {
		payment.StripeChargeID = &intent.LatestCharge.ID
		if intent.LatestCharge.ReceiptURL != "" {
			payment.ReceiptURL = &intent.LatestCharge.ReceiptURL
		}
	}
	return payment
}

func failureReason(intent *stripe.PaymentIntent) string {
	if intent.LastPaymentError == nil {
		return ""
	}
	if intent.LastPaymentError.DeclineCode != "" {
		return string(intent.LastPaymentError.DeclineCode)
	}
	if intent.LastPaymentError.Code != "" {
		return string(intent.LastPaymentError.Code)
	}
	return intent.LastPaymentError.Msg
}

// invoiceSubscriptionID tolerates both the legacy top-level field and the
// parent-details shape newer API versions emit.
func invoiceSubscriptionID(event *stripe.Event) string {
	if id := event.GetObjectValue("subscription"); id != "" {
		return id
	}
	return event.GetObjectValue("parent", "subscription_details", "subscription")
}

func renewalFromInvoiceEvent(event *stripe.Event) *invoiceRenewal {
	renewal := &invoiceRenewal{
		PaymentIntentID: event.GetObjectValue("payment_intent"),
		Currency:        event.GetObjectValue("currency"),
	}
	if raw := event.GetObjectValue("amount_paid"); raw != "" {
		if amount, err := strconv.ParseInt(raw, 10, 64); err == nil {
			renewal.AmountCents = amount
		}
	}
	return renewal
}
