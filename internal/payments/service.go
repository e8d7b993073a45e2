package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/novamart/novamart-backend/internal/orders"
	"github.com/novamart/novamart-backend/pkg/db/models"
	pkgerrors "github.com/novamart/novamart-backend/pkg/errors"
	"github.com/novamart/novamart-backend/pkg/metrics"
	"github.com/novamart/novamart-backend/pkg/pagination"
	"github.com/novamart/novamart-backend/pkg/razorpay"
)

const (
	outcomeConfirmed        = "confirmed"
	outcomeReplayed         = "replayed"
	outcomeSignatureInvalid = "signature_invalid"
	outcomeAmountMismatch   = "amount_mismatch"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type providerClient interface {
	CreateOrder(ctx context.Context, params razorpay.OrderCreateParams) (*razorpay.ProviderOrder, error)
	KeyID() string
	KeySecret() string
}

type ledger interface {
	CreateTx(ctx context.Context, tx *gorm.DB, input orders.CreateOrderInput) (*models.Order, error)
	ConfirmPaidTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, providerPaymentID string) (*models.Order, error)
	MarkPaymentFailedTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, reason string) (*models.Order, error)
}

// Service defines the payment reconciliation operations.
type Service interface {
	CreateIntent(ctx context.Context, input CreateIntentInput) (*CheckoutIntent, error)
	VerifyAndConfirm(ctx context.Context, input VerifyInput) (*models.Order, error)
	MarkFailed(ctx context.Context, input MarkFailedInput) (*models.Order, error)
	HistoryForUser(ctx context.Context, userID string, params pagination.Params) (*PaymentList, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	provider providerClient
	ledger   ledger
	metrics  *metrics.PaymentMetrics
}

// NewService builds the payment service with the required dependencies.
func NewService(repo Repository, tx txRunner, provider providerClient, ledgerSvc ledger, m *metrics.PaymentMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if provider == nil {
		return nil, fmt.Errorf("provider client required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("order ledger required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		provider: provider,
		ledger:   ledgerSvc,
		metrics:  m,
	}, nil
}

// CreateIntent persists the pending ledger order first, then opens a
// provider-side order for its total and records the unverified intent.
// A provider failure surfaces as a dependency error and leaves the
// order pending with paymentStatus pending, ready for a retry.
func (s *service) CreateIntent(ctx context.Context, input CreateIntentInput) (*CheckoutIntent, error) {
	if input.Order.TotalCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	if input.Order.Currency == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "currency required")
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		created, err := s.ledger.CreateTx(ctx, tx, input.Order)
		if err != nil {
			return err
		}
		order = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	start := time.Now()
	providerOrder, err := s.provider.CreateOrder(ctx, razorpay.OrderCreateParams{
		AmountCents: order.TotalCents,
		Currency:    string(order.Currency),
		Receipt:     order.ID.String(),
	})
	s.metrics.ObserveProviderLatency("create_order", time.Since(start))
	if err != nil {
		return nil, err
	}

	var intent *CheckoutIntent
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		row := &models.PaymentIntent{
			OrderID:          order.ID,
			ProviderIntentID: providerOrder.ID,
			AmountCents:      order.TotalCents,
			Currency:         order.Currency,
			Verified:         false,
		}
		if _, err := s.repo.WithTx(tx).CreateIntent(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment intent")
		}

		intent = &CheckoutIntent{
			OrderID:          order.ID,
			ProviderIntentID: providerOrder.ID,
			AmountCents:      order.TotalCents,
			Currency:         order.Currency,
			KeyID:            s.provider.KeyID(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return intent, nil
}

// VerifyAndConfirm validates the provider callback signature, cross-checks
// the settled amount, and confirms the order. Replays of an already
// verified callback return the current order without changing state.
func (s *service) VerifyAndConfirm(ctx context.Context, input VerifyInput) (*models.Order, error) {
	if strings.TrimSpace(input.ProviderIntentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "provider order id required")
	}
	if strings.TrimSpace(input.ProviderPaymentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "provider payment id required")
	}
	if strings.TrimSpace(input.Signature) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "signature required")
	}

	// Signature first: a replayed callback with a bad signature is still
	// rejected.
	if !VerifySignature(s.provider.KeySecret(), input.ProviderIntentID, input.ProviderPaymentID, input.Signature) {
		s.metrics.IncVerification(outcomeSignatureInvalid)
		return nil, pkgerrors.New(pkgerrors.CodeSignature, "payment signature verification failed")
	}

	// Cross-check the callback amount against the stored intent before
	// taking the row lock. Intent amount and currency never change after
	// creation, so the unlocked read is safe.
	intent, err := s.repo.FindIntentByProviderID(ctx, input.ProviderIntentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment intent not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment intent")
	}
	if input.AmountCents != nil && *input.AmountCents != intent.AmountCents {
		s.metrics.IncVerification(outcomeAmountMismatch)
		return nil, pkgerrors.New(pkgerrors.CodeAmountMismatch, "callback amount does not match payment intent").
			WithDetails(map[string]any{
				"callback_amount_cents": *input.AmountCents,
				"intent_amount_cents":   intent.AmountCents,
			})
	}
	if input.Currency != "" && !strings.EqualFold(input.Currency, string(intent.Currency)) {
		s.metrics.IncVerification(outcomeAmountMismatch)
		return nil, pkgerrors.New(pkgerrors.CodeAmountMismatch, "callback currency does not match payment intent").
			WithDetails(map[string]any{
				"callback_currency": input.Currency,
				"intent_currency":   intent.Currency,
			})
	}

	var confirmed *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		intent, err := repo.FindIntentByProviderIDForUpdate(ctx, input.ProviderIntentID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payment intent not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment intent")
		}

		if intent.Verified {
			order, err := s.ledger.ConfirmPaidTx(ctx, tx, intent.OrderID, input.ProviderPaymentID)
			if err != nil {
				return err
			}
			confirmed = order
			s.metrics.IncVerification(outcomeReplayed)
			return nil
		}

		order, err := s.ledger.ConfirmPaidTx(ctx, tx, intent.OrderID, input.ProviderPaymentID)
		if err != nil {
			return err
		}

		if err := repo.UpdateIntent(ctx, intent.ID, map[string]any{"verified": true}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark intent verified")
		}

		payment := &models.Payment{
			OrderID:           order.ID,
			UserID:            order.UserID,
			ProviderIntentID:  intent.ProviderIntentID,
			ProviderPaymentID: input.ProviderPaymentID,
			AmountCents:       intent.AmountCents,
			Currency:          intent.Currency,
		}
		if _, err := repo.CreatePayment(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment")
		}

		confirmed = order
		s.metrics.IncVerification(outcomeConfirmed)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return confirmed, nil
}

// MarkFailed records a failed checkout attempt. Repeated reports for the
// same order are accepted; a paid order rejects the report.
func (s *service) MarkFailed(ctx context.Context, input MarkFailedInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		reason = "payment failed"
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		intent, err := repo.FindIntentByOrderForUpdate(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payment intent not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment intent")
		}

		order, err := s.ledger.MarkPaymentFailedTx(ctx, tx, input.OrderID, reason)
		if err != nil {
			return err
		}
		if strings.TrimSpace(input.UserID) != "" && order.UserID != input.UserID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}

		if !intent.Verified && intent.FailureReason == nil {
			if err := repo.UpdateIntent(ctx, intent.ID, map[string]any{"failure_reason": reason}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record failure reason")
			}
		}

		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) HistoryForUser(ctx context.Context, userID string, params pagination.Params) (*PaymentList, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	list, err := s.repo.ListUserPayments(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	return list, nil
}
