package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"giftshop-bot/internal/cryptopay"
	"giftshop-bot/internal/metrics"
	"giftshop-bot/internal/model"
	"giftshop-bot/internal/repository"
)

const day = 24 * time.Hour

// Gateway is the payment gateway contract.
type Gateway interface {
	CreateInvoice(ctx context.Context, in cryptopay.InvoiceRequest) (*cryptopay.Invoice, error)
	GetInvoice(ctx context.Context, invoiceID string) (*cryptopay.Invoice, error)
}

type subscriberStore interface {
	FindByPlatformID(ctx context.Context, platformID int64) (*model.User, error)
	ExtendSubscription(ctx context.Context, platformID int64, d time.Duration, now time.Time) (time.Time, error)
	Revoke(ctx context.Context, platformID int64) error
}

type invoiceStore interface {
	Save(ctx context.Context, invoice *model.Invoice) error
	ApplyStatus(ctx context.Context, invoiceID, status string) (string, bool, error)
	FindByID(ctx context.Context, invoiceID string) (*model.Invoice, error)
}

type eventRecorder interface {
	Record(ctx context.Context, actor int64, action, details string)
}

// Checkout is a freshly created invoice ready to be paid.
type Checkout struct {
	InvoiceID string
	PayURL    string
	Plan      Plan
	Asset     string
}

// PaymentOutcome classifies the result of a payment check.
type PaymentOutcome int

const (
	PaymentConfirmed PaymentOutcome = iota
	PaymentAlreadyApplied
	PaymentPending
	PaymentOther
)

func (o PaymentOutcome) String() string {
	switch o {
	case PaymentConfirmed:
		return "confirmed"
	case PaymentAlreadyApplied:
		return "already_applied"
	case PaymentPending:
		return "pending"
	}
	return "other"
}

// PaymentResult is what a payment check reports back.
type PaymentResult struct {
	InvoiceID  string
	Status     string
	Outcome    PaymentOutcome
	Owner      int64
	Days       int
	ValidUntil *time.Time
}

// SubscriptionStatus is the computed validity of an identity.
type SubscriptionStatus struct {
	Valid bool
	Until *time.Time
}

// SubscriptionService runs the plan → invoice → confirmation → grant lifecycle.
type SubscriptionService struct {
	gateway  Gateway
	users    subscriberStore
	invoices invoiceStore
	events   eventRecorder
	log      logrus.FieldLogger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewSubscriptionService builds the service. A nil gateway disables checkout and payment checks.
func NewSubscriptionService(gateway Gateway, users subscriberStore, invoices invoiceStore, events eventRecorder, log logrus.FieldLogger, m *metrics.Metrics) *SubscriptionService {
	return &SubscriptionService{
		gateway:  gateway,
		users:    users,
		invoices: invoices,
		events:   events,
		log:      log,
		metrics:  m,
		now:      time.Now,
	}
}

// PaymentsEnabled reports whether a gateway is configured.
func (s *SubscriptionService) PaymentsEnabled() bool {
	return s.gateway != nil
}

// StartCheckout creates and records an invoice for the chosen plan and asset.
func (s *SubscriptionService) StartCheckout(ctx context.Context, who Identity, plan Plan, asset string) (*Checkout, error) {
	if s.gateway == nil {
		return nil, ErrPaymentsDisabled
	}
	if !IsAsset(asset) {
		return nil, invalidf("unsupported asset %q", asset)
	}
	asset = strings.ToUpper(asset)

	inv, err := s.gateway.CreateInvoice(ctx, cryptopay.InvoiceRequest{
		Amount:      plan.Price,
		Asset:       asset,
		Description: fmt.Sprintf("VIP %dd for %s", plan.Days, who.Mention()),
		Payload:     EncodePayload(who.ID, plan.Days),
	})
	if err != nil {
		s.metrics.GatewayError("create_invoice")
		s.events.Record(ctx, who.ID, "invoice_error", err.Error())
		s.log.WithError(err).WithField("user_id", who.ID).Error("create invoice")
		return nil, &ExternalError{Service: "cryptopay", Op: "createInvoice", Err: err}
	}

	invoiceID := inv.ID()
	record := &model.Invoice{
		InvoiceID:  invoiceID,
		PlatformID: who.ID,
		Status:     model.InvoiceActive,
		Asset:      asset,
		Amount:     plan.Price,
	}
	if err := s.invoices.Save(ctx, record); err != nil {
		// the gateway still knows the invoice, so a later check can recover it
		s.log.WithError(err).WithField("invoice_id", invoiceID).Error("save invoice")
	}
	s.metrics.InvoiceCreated(asset)
	s.events.Record(ctx, who.ID, "invoice_created", fmt.Sprintf("%s; %s %s; %dd", invoiceID, plan.Price.StringFixed(2), asset, plan.Days))

	return &Checkout{InvoiceID: invoiceID, PayURL: inv.URL(), Plan: plan, Asset: asset}, nil
}

// CheckPayment polls the gateway, stores the status verbatim and grants the
// subscription when the invoice first becomes paid.
func (s *SubscriptionService) CheckPayment(ctx context.Context, requester Identity, invoiceID string) (*PaymentResult, error) {
	if s.gateway == nil {
		return nil, ErrPaymentsDisabled
	}
	invoiceID = strings.TrimSpace(invoiceID)
	if invoiceID == "" {
		return nil, invalidf("empty invoice id")
	}
	logger := s.log.WithFields(logrus.Fields{"invoice_id": invoiceID, "user_id": requester.ID})

	inv, err := s.gateway.GetInvoice(ctx, invoiceID)
	if err != nil {
		s.events.Record(ctx, requester.ID, "invoice_check_error", fmt.Sprintf("%s; %v", invoiceID, err))
		if errors.Is(err, cryptopay.ErrInvoiceNotFound) {
			s.metrics.PaymentCheck("not_found")
			return nil, fmt.Errorf("invoice %s: %w", invoiceID, ErrNotFound)
		}
		s.metrics.GatewayError("get_invoice")
		logger.WithError(err).Error("get invoice")
		return nil, &ExternalError{Service: "cryptopay", Op: "getInvoices", Err: err}
	}

	result := &PaymentResult{InvoiceID: invoiceID, Status: inv.Status}
	payloadOwner, days, payloadErr := DecodePayload(inv.Payload)
	if payloadErr != nil {
		days = 1
	}
	result.Days = days
	result.Owner = s.invoiceOwner(ctx, invoiceID, payloadOwner, requester)

	previous, found, err := s.invoices.ApplyStatus(ctx, invoiceID, inv.Status)
	if err != nil {
		if inv.Status == model.InvoicePaid {
			// without the transition record a grant could be applied twice
			logger.WithError(err).Error("store invoice status")
			return nil, &PersistenceError{Op: "store invoice status", Err: err}
		}
		logger.WithError(err).Warn("store invoice status")
	}
	if err == nil && !found {
		amount, _ := decimal.NewFromString(inv.Amount)
		record := &model.Invoice{InvoiceID: invoiceID, PlatformID: result.Owner, Status: inv.Status, Asset: inv.Asset, Amount: amount}
		if err := s.invoices.Save(ctx, record); err != nil {
			if inv.Status == model.InvoicePaid {
				logger.WithError(err).Error("save unknown invoice")
				return nil, &PersistenceError{Op: "save invoice", Err: err}
			}
			logger.WithError(err).Warn("save unknown invoice")
		}
	}
	s.events.Record(ctx, requester.ID, "invoice_status", fmt.Sprintf("%s; %s", invoiceID, inv.Status))

	switch inv.Status {
	case model.InvoicePaid:
		if found && previous == model.InvoicePaid {
			result.Outcome = PaymentAlreadyApplied
			if status, err := s.Status(ctx, result.Owner); err == nil {
				result.ValidUntil = status.Until
			}
			break
		}
		if payloadErr != nil {
			logger.WithError(payloadErr).Warn("unparsable payload, granting one day")
		}
		until, err := s.users.ExtendSubscription(ctx, result.Owner, time.Duration(days)*day, s.now())
		if err != nil {
			s.releaseClaim(ctx, invoiceID, previous, found, logger)
			logger.WithError(err).Error("extend subscription")
			return nil, &PersistenceError{Op: "extend subscription", Err: err}
		}
		result.Outcome = PaymentConfirmed
		result.ValidUntil = &until
		s.events.Record(ctx, result.Owner, "vip_activated", fmt.Sprintf("%s; +%dd; until %s", invoiceID, days, until.UTC().Format(time.RFC3339)))
	case model.InvoiceActive, model.InvoicePending:
		result.Outcome = PaymentPending
	default:
		result.Outcome = PaymentOther
	}
	s.metrics.PaymentCheck(result.Outcome.String())
	return result, nil
}

// releaseClaim puts back the previous status after a failed grant so the next check retries it.
func (s *SubscriptionService) releaseClaim(ctx context.Context, invoiceID, previous string, found bool, logger logrus.FieldLogger) {
	if !found {
		previous = model.InvoiceActive
	}
	if _, _, err := s.invoices.ApplyStatus(ctx, invoiceID, previous); err != nil {
		logger.WithError(err).Error("restore invoice status")
	}
}

func (s *SubscriptionService) invoiceOwner(ctx context.Context, invoiceID string, payloadOwner int64, requester Identity) int64 {
	stored, err := s.invoices.FindByID(ctx, invoiceID)
	if err == nil && stored.PlatformID != 0 {
		return stored.PlatformID
	}
	if err != nil && !repository.IsNotFound(err) {
		s.log.WithError(err).WithField("invoice_id", invoiceID).Warn("find invoice")
	}
	if payloadOwner != 0 {
		return payloadOwner
	}
	return requester.ID
}

// Grant extends the subscription of platformID by days, stacking on any remaining validity.
func (s *SubscriptionService) Grant(ctx context.Context, platformID int64, days int) (time.Time, error) {
	if days < 1 || days > MaxGrantDays {
		return time.Time{}, invalidf("days must be between 1 and %d", MaxGrantDays)
	}
	until, err := s.users.ExtendSubscription(ctx, platformID, time.Duration(days)*day, s.now())
	if err != nil {
		return time.Time{}, &PersistenceError{Op: "extend subscription", Err: err}
	}
	return until, nil
}

// Revoke clears the subscription unconditionally.
func (s *SubscriptionService) Revoke(ctx context.Context, platformID int64) error {
	if err := s.users.Revoke(ctx, platformID); err != nil {
		return &PersistenceError{Op: "revoke subscription", Err: err}
	}
	return nil
}

// Status computes current validity. Unknown identities are simply not subscribed.
func (s *SubscriptionService) Status(ctx context.Context, platformID int64) (SubscriptionStatus, error) {
	user, err := s.users.FindByPlatformID(ctx, platformID)
	if err != nil {
		if repository.IsNotFound(err) {
			return SubscriptionStatus{}, nil
		}
		return SubscriptionStatus{}, &PersistenceError{Op: "find user", Err: err}
	}
	return SubscriptionStatus{Valid: user.SubscriptionValid(s.now()), Until: user.SubscriptionUntil}, nil
}
