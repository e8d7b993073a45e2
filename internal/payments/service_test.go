package payments

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/novamart/novamart-backend/internal/orders"
	"github.com/novamart/novamart-backend/pkg/db/models"
	"github.com/novamart/novamart-backend/pkg/enums"
	pkgerrors "github.com/novamart/novamart-backend/pkg/errors"
	"github.com/novamart/novamart-backend/pkg/pagination"
	"github.com/novamart/novamart-backend/pkg/razorpay"
)

type stubPaymentsRepo struct {
	intent         *models.PaymentIntent
	createdIntent  *models.PaymentIntent
	createdPayment *models.Payment
	intentUpdates  map[string]any
	createIntent   func(ctx context.Context, intent *models.PaymentIntent) (*models.PaymentIntent, error)
	listPayments   func(ctx context.Context, userID string, params pagination.Params) (*PaymentList, error)
}

func (s *stubPaymentsRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubPaymentsRepo) CreateIntent(ctx context.Context, intent *models.PaymentIntent) (*models.PaymentIntent, error) {
	if s.createIntent != nil {
		return s.createIntent(ctx, intent)
	}
	if intent.ID == uuid.Nil {
		intent.ID = uuid.New()
	}
	s.createdIntent = intent
	return intent, nil
}

func (s *stubPaymentsRepo) FindIntentByProviderID(ctx context.Context, providerIntentID string) (*models.PaymentIntent, error) {
	if s.intent == nil || s.intent.ProviderIntentID != providerIntentID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.intent, nil
}

func (s *stubPaymentsRepo) FindIntentByProviderIDForUpdate(ctx context.Context, providerIntentID string) (*models.PaymentIntent, error) {
	return s.FindIntentByProviderID(ctx, providerIntentID)
}

func (s *stubPaymentsRepo) FindIntentByOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*models.PaymentIntent, error) {
	if s.intent == nil || s.intent.OrderID != orderID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.intent, nil
}

func (s *stubPaymentsRepo) UpdateIntent(ctx context.Context, intentID uuid.UUID, updates map[string]any) error {
	s.intentUpdates = updates
	return nil
}

func (s *stubPaymentsRepo) CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	s.createdPayment = payment
	return payment, nil
}

func (s *stubPaymentsRepo) ListUserPayments(ctx context.Context, userID string, params pagination.Params) (*PaymentList, error) {
	if s.listPayments != nil {
		return s.listPayments(ctx, userID, params)
	}
	return &PaymentList{}, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type stubProvider struct {
	keyID       string
	keySecret   string
	createOrder func(ctx context.Context, params razorpay.OrderCreateParams) (*razorpay.ProviderOrder, error)
	calls       int
	lastParams  razorpay.OrderCreateParams
}

func (s *stubProvider) CreateOrder(ctx context.Context, params razorpay.OrderCreateParams) (*razorpay.ProviderOrder, error) {
	s.calls++
	s.lastParams = params
	if s.createOrder != nil {
		return s.createOrder(ctx, params)
	}
	return &razorpay.ProviderOrder{
		ID:          "order_abc123",
		AmountCents: params.AmountCents,
		Currency:    params.Currency,
		Status:      "created",
	}, nil
}

func (s *stubProvider) KeyID() string     { return s.keyID }
func (s *stubProvider) KeySecret() string { return s.keySecret }

type stubLedger struct {
	order        *models.Order
	createTx     func(ctx context.Context, tx *gorm.DB, input orders.CreateOrderInput) (*models.Order, error)
	confirmTx    func(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, providerPaymentID string) (*models.Order, error)
	markFailedTx func(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, reason string) (*models.Order, error)
	confirmCalls int
}

func (s *stubLedger) CreateTx(ctx context.Context, tx *gorm.DB, input orders.CreateOrderInput) (*models.Order, error) {
	if s.createTx != nil {
		return s.createTx(ctx, tx, input)
	}
	order := &models.Order{
		ID:            uuid.New(),
		UserID:        input.UserID,
		Currency:      input.Currency,
		Status:        enums.OrderStatusPending,
		PaymentStatus: enums.PaymentStatusPending,
		TotalCents:    input.TotalCents,
	}
	s.order = order
	return order, nil
}

func (s *stubLedger) ConfirmPaidTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, providerPaymentID string) (*models.Order, error) {
	s.confirmCalls++
	if s.confirmTx != nil {
		return s.confirmTx(ctx, tx, orderID, providerPaymentID)
	}
	if s.order == nil || s.order.ID != orderID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	s.order.Status = enums.OrderStatusConfirmed
	s.order.PaymentStatus = enums.PaymentStatusPaid
	s.order.PaymentID = &providerPaymentID
	return s.order, nil
}

func (s *stubLedger) MarkPaymentFailedTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, reason string) (*models.Order, error) {
	if s.markFailedTx != nil {
		return s.markFailedTx(ctx, tx, orderID, reason)
	}
	if s.order == nil || s.order.ID != orderID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if s.order.PaymentStatus == enums.PaymentStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order already paid")
	}
	s.order.PaymentStatus = enums.PaymentStatusFailed
	return s.order, nil
}

func newTestPaymentService(t *testing.T, repo Repository, provider *stubProvider, ledgerSvc ledger) Service {
	t.Helper()
	svc, err := NewService(repo, stubTxRunner{}, provider, ledgerSvc, nil)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc
}

func validIntentInput() CreateIntentInput {
	return CreateIntentInput{
		Order: orders.CreateOrderInput{
			UserID:   "user-1",
			Currency: enums.CurrencyINR,
			Items: []orders.CreateItemInput{
				{ProductID: "prod-1", Name: "Widget", Quantity: 1, UnitPriceCents: 249900},
			},
			SubtotalCents: 249900,
			TotalCents:    249900,
		},
	}
}

func TestCreateIntent(t *testing.T) {
	repo := &stubPaymentsRepo{}
	provider := &stubProvider{keyID: "rzp_test_abc", keySecret: "secret"}
	ledgerSvc := &stubLedger{}
	svc := newTestPaymentService(t, repo, provider, ledgerSvc)

	intent, err := svc.CreateIntent(context.Background(), validIntentInput())
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}
	if intent.ProviderIntentID != "order_abc123" {
		t.Fatalf("unexpected provider intent id %q", intent.ProviderIntentID)
	}
	if intent.AmountCents != 249900 || intent.Currency != enums.CurrencyINR {
		t.Fatalf("unexpected intent amounts %+v", intent)
	}
	if intent.KeyID != "rzp_test_abc" {
		t.Fatalf("expected checkout key id, got %q", intent.KeyID)
	}
	if repo.createdIntent == nil || repo.createdIntent.Verified {
		t.Fatalf("expected unverified intent row, got %+v", repo.createdIntent)
	}
	if repo.createdIntent.OrderID != intent.OrderID {
		t.Fatalf("intent row not linked to ledger order")
	}
	if ledgerSvc.order == nil || provider.lastParams.Receipt != ledgerSvc.order.ID.String() {
		t.Fatalf("provider receipt must carry the ledger order id, got %q", provider.lastParams.Receipt)
	}
}

func TestCreateIntentRejectsNonPositiveAmount(t *testing.T) {
	repo := &stubPaymentsRepo{}
	provider := &stubProvider{keyID: "rzp_test_abc", keySecret: "secret"}
	svc := newTestPaymentService(t, repo, provider, &stubLedger{})

	input := validIntentInput()
	input.Order.TotalCents = 0
	input.Order.SubtotalCents = 0
	_, err := svc.CreateIntent(context.Background(), input)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if provider.calls != 0 {
		t.Fatalf("provider must not be called for invalid amounts")
	}
}

func TestCreateIntentProviderFailure(t *testing.T) {
	repo := &stubPaymentsRepo{}
	provider := &stubProvider{
		keyID:     "rzp_test_abc",
		keySecret: "secret",
		createOrder: func(ctx context.Context, params razorpay.OrderCreateParams) (*razorpay.ProviderOrder, error) {
			return nil, pkgerrors.New(pkgerrors.CodeDependency, "razorpay create order timed out")
		},
	}
	ledgerSvc := &stubLedger{}
	svc := newTestPaymentService(t, repo, provider, ledgerSvc)

	_, err := svc.CreateIntent(context.Background(), validIntentInput())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if ledgerSvc.order == nil {
		t.Fatalf("ledger order must exist before the provider call")
	}
	if ledgerSvc.order.Status != enums.OrderStatusPending || ledgerSvc.order.PaymentStatus != enums.PaymentStatusPending {
		t.Fatalf("order must stay pending after a provider failure, got %s/%s", ledgerSvc.order.Status, ledgerSvc.order.PaymentStatus)
	}
	if repo.createdIntent != nil {
		t.Fatalf("no intent row may be created when the provider call fails")
	}
}

func TestVerifyAndConfirm(t *testing.T) {
	orderID := uuid.New()
	secret := "test-secret"
	repo := &stubPaymentsRepo{
		intent: &models.PaymentIntent{
			ID:               uuid.New(),
			OrderID:          orderID,
			ProviderIntentID: "order_abc123",
			AmountCents:      249900,
			Currency:         enums.CurrencyINR,
		},
	}
	ledgerSvc := &stubLedger{
		order: &models.Order{
			ID:            orderID,
			UserID:        "user-1",
			Status:        enums.OrderStatusPending,
			PaymentStatus: enums.PaymentStatusPending,
			Currency:      enums.CurrencyINR,
			TotalCents:    249900,
		},
	}
	provider := &stubProvider{keyID: "rzp_test_abc", keySecret: secret}
	svc := newTestPaymentService(t, repo, provider, ledgerSvc)

	order, err := svc.VerifyAndConfirm(context.Background(), VerifyInput{
		ProviderIntentID:  "order_abc123",
		ProviderPaymentID: "pay_def456",
		Signature:         signFor(secret, "order_abc123", "pay_def456"),
	})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if order.Status != enums.OrderStatusConfirmed || order.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("expected confirmed paid order, got %s/%s", order.Status, order.PaymentStatus)
	}
	if verified, ok := repo.intentUpdates["verified"].(bool); !ok || !verified {
		t.Fatalf("expected intent to be marked verified, got %+v", repo.intentUpdates)
	}
	if repo.createdPayment == nil || repo.createdPayment.ProviderPaymentID != "pay_def456" {
		t.Fatalf("expected payment record, got %+v", repo.createdPayment)
	}
	if repo.createdPayment.UserID != "user-1" {
		t.Fatalf("payment record must carry the order owner")
	}
}

func TestVerifyAndConfirmInvalidSignature(t *testing.T) {
	repo := &stubPaymentsRepo{
		intent: &models.PaymentIntent{
			ID:               uuid.New(),
			OrderID:          uuid.New(),
			ProviderIntentID: "order_abc123",
			AmountCents:      249900,
			Currency:         enums.CurrencyINR,
		},
	}
	ledgerSvc := &stubLedger{}
	provider := &stubProvider{keyID: "rzp_test_abc", keySecret: "test-secret"}
	svc := newTestPaymentService(t, repo, provider, ledgerSvc)

	_, err := svc.VerifyAndConfirm(context.Background(), VerifyInput{
		ProviderIntentID:  "order_abc123",
		ProviderPaymentID: "pay_def456",
		Signature:         signFor("wrong-secret", "order_abc123", "pay_def456"),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeSignature {
		t.Fatalf("expected signature error, got %v", err)
	}
	if ledgerSvc.confirmCalls != 0 {
		t.Fatalf("order must not be touched on signature failure")
	}
	if repo.intentUpdates != nil || repo.createdPayment != nil {
		t.Fatalf("no writes allowed on signature failure")
	}
}

func TestVerifyAndConfirmReplay(t *testing.T) {
	orderID := uuid.New()
	secret := "test-secret"
	paymentID := "pay_def456"
	repo := &stubPaymentsRepo{
		intent: &models.PaymentIntent{
			ID:               uuid.New(),
			OrderID:          orderID,
			ProviderIntentID: "order_abc123",
			AmountCents:      249900,
			Currency:         enums.CurrencyINR,
			Verified:         true,
		},
	}
	ledgerSvc := &stubLedger{
		order: &models.Order{
			ID:            orderID,
			UserID:        "user-1",
			Status:        enums.OrderStatusConfirmed,
			PaymentStatus: enums.PaymentStatusPaid,
			PaymentID:     &paymentID,
			Currency:      enums.CurrencyINR,
			TotalCents:    249900,
		},
	}
	provider := &stubProvider{keyID: "rzp_test_abc", keySecret: secret}
	svc := newTestPaymentService(t, repo, provider, ledgerSvc)

	order, err := svc.VerifyAndConfirm(context.Background(), VerifyInput{
		ProviderIntentID:  "order_abc123",
		ProviderPaymentID: paymentID,
		Signature:         signFor(secret, "order_abc123", paymentID),
	})
	if err != nil {
		t.Fatalf("replay must succeed: %v", err)
	}
	if order.Status != enums.OrderStatusConfirmed {
		t.Fatalf("unexpected status %s", order.Status)
	}
	if repo.intentUpdates != nil {
		t.Fatalf("replay must not rewrite the intent, got %+v", repo.intentUpdates)
	}
	if repo.createdPayment != nil {
		t.Fatalf("replay must not create a second payment record")
	}
}

func TestVerifyAndConfirmUnknownIntent(t *testing.T) {
	secret := "test-secret"
	repo := &stubPaymentsRepo{}
	provider := &stubProvider{keyID: "rzp_test_abc", keySecret: secret}
	svc := newTestPaymentService(t, repo, provider, &stubLedger{})

	_, err := svc.VerifyAndConfirm(context.Background(), VerifyInput{
		ProviderIntentID:  "order_missing",
		ProviderPaymentID: "pay_def456",
		Signature:         signFor(secret, "order_missing", "pay_def456"),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestVerifyAndConfirmAmountMismatch(t *testing.T) {
	orderID := uuid.New()
	secret := "test-secret"
	repo := &stubPaymentsRepo{
		intent: &models.PaymentIntent{
			ID:               uuid.New(),
			OrderID:          orderID,
			ProviderIntentID: "order_abc123",
			AmountCents:      249900,
			Currency:         enums.CurrencyINR,
		},
	}
	ledgerSvc := &stubLedger{
		order: &models.Order{
			ID:            orderID,
			UserID:        "user-1",
			Status:        enums.OrderStatusPending,
			PaymentStatus: enums.PaymentStatusPending,
			Currency:      enums.CurrencyINR,
			TotalCents:    249900,
		},
	}
	provider := &stubProvider{keyID: "rzp_test_abc", keySecret: secret}
	svc := newTestPaymentService(t, repo, provider, ledgerSvc)

	callbackAmount := int64(100000)
	_, err := svc.VerifyAndConfirm(context.Background(), VerifyInput{
		ProviderIntentID:  "order_abc123",
		ProviderPaymentID: "pay_def456",
		Signature:         signFor(secret, "order_abc123", "pay_def456"),
		AmountCents:       &callbackAmount,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeAmountMismatch {
		t.Fatalf("expected amount mismatch, got %v", err)
	}
	if ledgerSvc.confirmCalls != 0 {
		t.Fatalf("order must not be touched on amount mismatch")
	}
	if repo.intentUpdates != nil || repo.createdPayment != nil {
		t.Fatalf("no writes allowed on amount mismatch")
	}
}

func TestVerifyAndConfirmCurrencyMismatch(t *testing.T) {
	orderID := uuid.New()
	secret := "test-secret"
	repo := &stubPaymentsRepo{
		intent: &models.PaymentIntent{
			ID:               uuid.New(),
			OrderID:          orderID,
			ProviderIntentID: "order_abc123",
			AmountCents:      249900,
			Currency:         enums.CurrencyINR,
		},
	}
	ledgerSvc := &stubLedger{
		order: &models.Order{
			ID:            orderID,
			UserID:        "user-1",
			Status:        enums.OrderStatusPending,
			PaymentStatus: enums.PaymentStatusPending,
			Currency:      enums.CurrencyINR,
			TotalCents:    249900,
		},
	}
	provider := &stubProvider{keyID: "rzp_test_abc", keySecret: secret}
	svc := newTestPaymentService(t, repo, provider, ledgerSvc)

	_, err := svc.VerifyAndConfirm(context.Background(), VerifyInput{
		ProviderIntentID:  "order_abc123",
		ProviderPaymentID: "pay_def456",
		Signature:         signFor(secret, "order_abc123", "pay_def456"),
		Currency:          "USD",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeAmountMismatch {
		t.Fatalf("expected amount mismatch, got %v", err)
	}
	if ledgerSvc.confirmCalls != 0 {
		t.Fatalf("order must not be touched on currency mismatch")
	}
	if repo.createdPayment != nil {
		t.Fatalf("no payment record on currency mismatch")
	}
}

func TestVerifyAndConfirmMatchingCallbackAmount(t *testing.T) {
	orderID := uuid.New()
	secret := "test-secret"
	repo := &stubPaymentsRepo{
		intent: &models.PaymentIntent{
			ID:               uuid.New(),
			OrderID:          orderID,
			ProviderIntentID: "order_abc123",
			AmountCents:      249900,
			Currency:         enums.CurrencyINR,
		},
	}
	ledgerSvc := &stubLedger{
		order: &models.Order{
			ID:            orderID,
			UserID:        "user-1",
			Status:        enums.OrderStatusPending,
			PaymentStatus: enums.PaymentStatusPending,
			Currency:      enums.CurrencyINR,
			TotalCents:    249900,
		},
	}
	provider := &stubProvider{keyID: "rzp_test_abc", keySecret: secret}
	svc := newTestPaymentService(t, repo, provider, ledgerSvc)

	callbackAmount := int64(249900)
	order, err := svc.VerifyAndConfirm(context.Background(), VerifyInput{
		ProviderIntentID:  "order_abc123",
		ProviderPaymentID: "pay_def456",
		Signature:         signFor(secret, "order_abc123", "pay_def456"),
		AmountCents:       &callbackAmount,
		Currency:          "inr",
	})
	if err != nil {
		t.Fatalf("verify with matching callback amount: %v", err)
	}
	if order.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("expected paid order, got %s", order.PaymentStatus)
	}
}

func TestMarkFailed(t *testing.T) {
	orderID := uuid.New()
	repo := &stubPaymentsRepo{
		intent: &models.PaymentIntent{
			ID:               uuid.New(),
			OrderID:          orderID,
			ProviderIntentID: "order_abc123",
			AmountCents:      249900,
			Currency:         enums.CurrencyINR,
		},
	}
	ledgerSvc := &stubLedger{
		order: &models.Order{
			ID:            orderID,
			UserID:        "user-1",
			Status:        enums.OrderStatusPending,
			PaymentStatus: enums.PaymentStatusPending,
		},
	}
	provider := &stubProvider{keyID: "rzp_test_abc", keySecret: "secret"}
	svc := newTestPaymentService(t, repo, provider, ledgerSvc)

	order, err := svc.MarkFailed(context.Background(), MarkFailedInput{
		OrderID: orderID,
		UserID:  "user-1",
		Reason:  "card declined",
	})
	if err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if order.PaymentStatus != enums.PaymentStatusFailed {
		t.Fatalf("expected failed payment status, got %s", order.PaymentStatus)
	}
	if reason, ok := repo.intentUpdates["failure_reason"].(string); !ok || reason != "card declined" {
		t.Fatalf("expected failure reason on intent, got %+v", repo.intentUpdates)
	}
}

func TestMarkFailedUnknownIntent(t *testing.T) {
	repo := &stubPaymentsRepo{}
	ledgerSvc := &stubLedger{}
	provider := &stubProvider{keyID: "rzp_test_abc", keySecret: "secret"}
	svc := newTestPaymentService(t, repo, provider, ledgerSvc)

	_, err := svc.MarkFailed(context.Background(), MarkFailedInput{
		OrderID: uuid.New(),
		UserID:  "user-1",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for missing intent, got %v", err)
	}
	if repo.intentUpdates != nil {
		t.Fatalf("no intent writes on missing intent")
	}
}

func TestMarkFailedPaidOrderRejected(t *testing.T) {
	orderID := uuid.New()
	repo := &stubPaymentsRepo{
		intent: &models.PaymentIntent{
			ID:               uuid.New(),
			OrderID:          orderID,
			ProviderIntentID: "order_abc123",
			AmountCents:      249900,
			Currency:         enums.CurrencyINR,
			Verified:         true,
		},
	}
	ledgerSvc := &stubLedger{
		order: &models.Order{
			ID:            orderID,
			UserID:        "user-1",
			Status:        enums.OrderStatusConfirmed,
			PaymentStatus: enums.PaymentStatusPaid,
		},
	}
	provider := &stubProvider{keyID: "rzp_test_abc", keySecret: "secret"}
	svc := newTestPaymentService(t, repo, provider, ledgerSvc)

	_, err := svc.MarkFailed(context.Background(), MarkFailedInput{OrderID: orderID, UserID: "user-1"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestHistoryForUserRequiresIdentity(t *testing.T) {
	repo := &stubPaymentsRepo{}
	provider := &stubProvider{keyID: "rzp_test_abc", keySecret: "secret"}
	svc := newTestPaymentService(t, repo, provider, &stubLedger{})

	_, err := svc.HistoryForUser(context.Background(), "", pagination.Params{})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}
