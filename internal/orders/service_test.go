package orders

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/novamart/novamart-backend/pkg/db/models"
	"github.com/novamart/novamart-backend/pkg/enums"
	pkgerrors "github.com/novamart/novamart-backend/pkg/errors"
	"github.com/novamart/novamart-backend/pkg/outbox"
	"github.com/novamart/novamart-backend/pkg/pagination"
)

type stubOrdersRepo struct {
	order           *models.Order
	orderItems      []models.OrderItem
	openReturn      *models.ReturnRequest
	history         []models.OrderStatusHistory
	orderUpdates    map[string]any
	createdReturn   *models.ReturnRequest
	createOrder     func(ctx context.Context, order *models.Order) (*models.Order, error)
	createItems     func(ctx context.Context, items []models.OrderItem) error
	findForUpdate   func(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	updateOrder     func(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	listUserOrders  func(ctx context.Context, userID string, params pagination.Params, filters ListFilters) (*OrderList, error)
	findOrder       func(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	findOpenReturn  func(ctx context.Context, orderID uuid.UUID) (*models.ReturnRequest, error)
	appendedHistory int
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubOrdersRepo) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if s.createOrder != nil {
		return s.createOrder(ctx, order)
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	s.order = order
	return order, nil
}

func (s *stubOrdersRepo) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	if s.createItems != nil {
		return s.createItems(ctx, items)
	}
	return nil
}

func (s *stubOrdersRepo) AppendStatusHistory(ctx context.Context, entry models.OrderStatusHistory) error {
	s.appendedHistory++
	s.history = append(s.history, entry)
	return nil
}

func (s *stubOrdersRepo) CreateReturnRequest(ctx context.Context, request *models.ReturnRequest) (*models.ReturnRequest, error) {
	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	s.createdReturn = request
	return request, nil
}

func (s *stubOrdersRepo) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if s.findOrder != nil {
		return s.findOrder(ctx, orderID)
	}
	if s.order == nil || s.order.ID != orderID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.order, nil
}

func (s *stubOrdersRepo) FindOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if s.findForUpdate != nil {
		return s.findForUpdate(ctx, orderID)
	}
	if s.order == nil || s.order.ID != orderID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.order, nil
}

func (s *stubOrdersRepo) FindOrderItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	return s.orderItems, nil
}

func (s *stubOrdersRepo) FindOpenReturnRequest(ctx context.Context, orderID uuid.UUID) (*models.ReturnRequest, error) {
	if s.findOpenReturn != nil {
		return s.findOpenReturn(ctx, orderID)
	}
	if s.openReturn == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.openReturn, nil
}

func (s *stubOrdersRepo) ListUserOrders(ctx context.Context, userID string, params pagination.Params, filters ListFilters) (*OrderList, error) {
	if s.listUserOrders != nil {
		return s.listUserOrders(ctx, userID, params, filters)
	}
	return &OrderList{}, nil
}

func (s *stubOrdersRepo) UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	if s.updateOrder != nil {
		return s.updateOrder(ctx, orderID, updates)
	}
	s.orderUpdates = updates
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

func (s *stubOutbox) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

func newTestService(t *testing.T, repo Repository) (Service, *stubOutbox) {
	t.Helper()
	events := &stubOutbox{}
	svc, err := NewService(repo, stubTxRunner{}, events)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, events
}

func validCreateInput() CreateOrderInput {
	return CreateOrderInput{
		UserID:   "user-1",
		Currency: enums.CurrencyINR,
		Items: []CreateItemInput{
			{ProductID: "prod-1", Name: "Widget", Quantity: 2, UnitPriceCents: 50000},
			{ProductID: "prod-2", Name: "Gadget", Quantity: 1, UnitPriceCents: 120000},
		},
		SubtotalCents: 220000,
		ShippingCents: 5000,
		TaxCents:      11000,
		DiscountCents: 6000,
		TotalCents:    230000,
	}
}

func TestCreateOrder(t *testing.T) {
	repo := &stubOrdersRepo{}
	svc, events := newTestService(t, repo)

	order, err := svc.Create(context.Background(), validCreateInput())
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if order.Status != enums.OrderStatusPending {
		t.Fatalf("expected pending status, got %s", order.Status)
	}
	if order.PaymentStatus != enums.PaymentStatusPending {
		t.Fatalf("expected pending payment, got %s", order.PaymentStatus)
	}
	if order.EstimatedDelivery.IsZero() {
		t.Fatalf("expected estimated delivery to be set")
	}
	if len(repo.history) != 1 || repo.history[0].Message != msgOrderPlaced {
		t.Fatalf("expected placement history entry, got %+v", repo.history)
	}
	if len(events.events) != 1 || events.events[0].EventType != enums.EventOrderCreated {
		t.Fatalf("expected order_created event, got %+v", events.events)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	repo := &stubOrdersRepo{}
	svc, _ := newTestService(t, repo)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*CreateOrderInput)
	}{
		{"missing items", func(in *CreateOrderInput) { in.Items = nil }},
		{"zero quantity", func(in *CreateOrderInput) { in.Items[0].Quantity = 0 }},
		{"negative unit price", func(in *CreateOrderInput) { in.Items[0].UnitPriceCents = -1 }},
		{"subtotal mismatch", func(in *CreateOrderInput) { in.SubtotalCents += 1 }},
		{"total mismatch", func(in *CreateOrderInput) { in.TotalCents += 1 }},
		{"negative discount", func(in *CreateOrderInput) { in.DiscountCents = -1 }},
	}
	for _, tc := range cases {
		input := validCreateInput()
		tc.mutate(&input)
		_, err := svc.Create(ctx, input)
		if err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("%s: expected validation code, got %v", tc.name, err)
		}
	}
}

func TestTransitionToShippedAssignsTracking(t *testing.T) {
	orderID := uuid.New()
	repo := &stubOrdersRepo{
		order: &models.Order{ID: orderID, UserID: "user-1", Status: enums.OrderStatusConfirmed},
	}
	svc, events := newTestService(t, repo)

	order, err := svc.Transition(context.Background(), TransitionInput{
		OrderID: orderID,
		Target:  enums.OrderStatusShipped,
	})
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if order.Status != enums.OrderStatusShipped {
		t.Fatalf("expected shipped, got %s", order.Status)
	}
	if order.TrackingNumber == nil || !strings.HasPrefix(*order.TrackingNumber, trackingPrefix) {
		t.Fatalf("expected tracking number with %s prefix, got %v", trackingPrefix, order.TrackingNumber)
	}
	if len(repo.history) != 1 || repo.history[0].Message != "Order shipped" {
		t.Fatalf("expected default history message, got %+v", repo.history)
	}
	if len(events.events) != 1 || events.events[0].EventType != enums.EventOrderStatusChanged {
		t.Fatalf("expected status event, got %+v", events.events)
	}
}

func TestTransitionKeepsExistingTracking(t *testing.T) {
	orderID := uuid.New()
	tracking := "TRKAAA111BBB"
	repo := &stubOrdersRepo{
		order: &models.Order{
			ID:             orderID,
			UserID:         "user-1",
			Status:         enums.OrderStatusConfirmed,
			TrackingNumber: &tracking,
		},
	}
	svc, _ := newTestService(t, repo)

	order, err := svc.Transition(context.Background(), TransitionInput{
		OrderID: orderID,
		Target:  enums.OrderStatusShipped,
	})
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if order.TrackingNumber == nil || *order.TrackingNumber != tracking {
		t.Fatalf("tracking number should not be reassigned, got %v", order.TrackingNumber)
	}
	if _, ok := repo.orderUpdates["tracking_number"]; ok {
		t.Fatalf("tracking number should not be updated again")
	}
}

func TestTransitionIllegal(t *testing.T) {
	orderID := uuid.New()
	repo := &stubOrdersRepo{
		order: &models.Order{ID: orderID, UserID: "user-1", Status: enums.OrderStatusDelivered},
	}
	svc, _ := newTestService(t, repo)

	_, err := svc.Transition(context.Background(), TransitionInput{
		OrderID: orderID,
		Target:  enums.OrderStatusShipped,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestTransitionUnknownStatus(t *testing.T) {
	repo := &stubOrdersRepo{}
	svc, _ := newTestService(t, repo)

	_, err := svc.Transition(context.Background(), TransitionInput{
		OrderID: uuid.New(),
		Target:  enums.OrderStatus("archived"),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTransitionNotFound(t *testing.T) {
	repo := &stubOrdersRepo{}
	svc, _ := newTestService(t, repo)

	_, err := svc.Transition(context.Background(), TransitionInput{
		OrderID: uuid.New(),
		Target:  enums.OrderStatusConfirmed,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCancelPendingOrder(t *testing.T) {
	orderID := uuid.New()
	repo := &stubOrdersRepo{
		order: &models.Order{ID: orderID, UserID: "user-1", Status: enums.OrderStatusPending},
	}
	svc, events := newTestService(t, repo)

	order, err := svc.Cancel(context.Background(), CancelInput{OrderID: orderID, UserID: "user-1"})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if order.Status != enums.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", order.Status)
	}
	if order.CanceledAt == nil {
		t.Fatalf("expected canceled_at to be set")
	}
	if len(repo.history) != 1 || repo.history[0].Message != msgCancelledByUser {
		t.Fatalf("expected default cancel message, got %+v", repo.history)
	}
	if len(events.events) != 1 || events.events[0].EventType != enums.EventOrderCanceled {
		t.Fatalf("expected cancel event, got %+v", events.events)
	}
}

func TestCancelShippedOrderRejected(t *testing.T) {
	orderID := uuid.New()
	repo := &stubOrdersRepo{
		order: &models.Order{ID: orderID, UserID: "user-1", Status: enums.OrderStatusShipped},
	}
	svc, _ := newTestService(t, repo)

	_, err := svc.Cancel(context.Background(), CancelInput{OrderID: orderID, UserID: "user-1"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestCancelOtherUsersOrderHidden(t *testing.T) {
	orderID := uuid.New()
	repo := &stubOrdersRepo{
		order: &models.Order{ID: orderID, UserID: "user-1", Status: enums.OrderStatusPending},
	}
	svc, _ := newTestService(t, repo)

	_, err := svc.Cancel(context.Background(), CancelInput{OrderID: orderID, UserID: "user-2"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for foreign order, got %v", err)
	}
}

func TestRequestReturnDeliveredOrder(t *testing.T) {
	orderID := uuid.New()
	repo := &stubOrdersRepo{
		order: &models.Order{ID: orderID, UserID: "user-1", Status: enums.OrderStatusDelivered},
	}
	svc, events := newTestService(t, repo)

	request, err := svc.RequestReturn(context.Background(), ReturnInput{
		OrderID: orderID,
		UserID:  "user-1",
		Reason:  "damaged on arrival",
	})
	if err != nil {
		t.Fatalf("request return: %v", err)
	}
	if request.Status != enums.ReturnStatusRequested {
		t.Fatalf("expected requested status, got %s", request.Status)
	}
	// The order itself keeps its delivered status.
	if repo.order.Status != enums.OrderStatusDelivered {
		t.Fatalf("order status must remain delivered, got %s", repo.order.Status)
	}
	if repo.orderUpdates != nil {
		t.Fatalf("return request must not update the order row, got %+v", repo.orderUpdates)
	}
	if len(events.events) != 1 || events.events[0].EventType != enums.EventReturnRequested {
		t.Fatalf("expected return event, got %+v", events.events)
	}
	if string(repo.createdReturn.Items) != "[]" {
		t.Fatalf("whole-order return must persist an empty items list, got %s", repo.createdReturn.Items)
	}
}

func TestRequestReturnPersistsItems(t *testing.T) {
	orderID := uuid.New()
	repo := &stubOrdersRepo{
		order: &models.Order{ID: orderID, UserID: "user-1", Status: enums.OrderStatusDelivered},
		orderItems: []models.OrderItem{
			{OrderID: orderID, ProductID: "prod-1", Name: "Widget", Quantity: 2, UnitPriceCents: 50000},
			{OrderID: orderID, ProductID: "prod-2", Name: "Gadget", Quantity: 1, UnitPriceCents: 120000},
		},
	}
	svc, events := newTestService(t, repo)

	request, err := svc.RequestReturn(context.Background(), ReturnInput{
		OrderID: orderID,
		UserID:  "user-1",
		Reason:  "damaged on arrival",
		Items: []ReturnItemInput{
			{ProductID: "prod-1", Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("request return: %v", err)
	}

	var stored []models.ReturnItem
	if err := json.Unmarshal(request.Items, &stored); err != nil {
		t.Fatalf("decode stored items: %v", err)
	}
	if len(stored) != 1 || stored[0].ProductID != "prod-1" || stored[0].Quantity != 1 {
		t.Fatalf("unexpected stored items %+v", stored)
	}

	if len(events.events) != 1 {
		t.Fatalf("expected return event, got %+v", events.events)
	}
	data, ok := events.events[0].Data.(ReturnRequestedEvent)
	if !ok {
		t.Fatalf("unexpected event payload %T", events.events[0].Data)
	}
	if len(data.Items) != 1 || data.Items[0].ProductID != "prod-1" {
		t.Fatalf("event must carry the returned items, got %+v", data.Items)
	}
}

func TestRequestReturnRejectsInvalidItems(t *testing.T) {
	orderID := uuid.New()
	tests := []struct {
		name  string
		items []ReturnItemInput
	}{
		{"unknown product", []ReturnItemInput{{ProductID: "prod-9", Quantity: 1}}},
		{"quantity above ordered", []ReturnItemInput{{ProductID: "prod-1", Quantity: 3}}},
		{"zero quantity", []ReturnItemInput{{ProductID: "prod-1", Quantity: 0}}},
		{"duplicate product", []ReturnItemInput{{ProductID: "prod-1", Quantity: 1}, {ProductID: "prod-1", Quantity: 1}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := &stubOrdersRepo{
				order: &models.Order{ID: orderID, UserID: "user-1", Status: enums.OrderStatusDelivered},
				orderItems: []models.OrderItem{
					{OrderID: orderID, ProductID: "prod-1", Name: "Widget", Quantity: 2, UnitPriceCents: 50000},
				},
			}
			svc, events := newTestService(t, repo)

			_, err := svc.RequestReturn(context.Background(), ReturnInput{
				OrderID: orderID,
				UserID:  "user-1",
				Reason:  "damaged on arrival",
				Items:   tc.items,
			})
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
			if repo.createdReturn != nil {
				t.Fatalf("no return request may be created for invalid items")
			}
			if len(events.events) != 0 {
				t.Fatalf("no event may be emitted for invalid items")
			}
		})
	}
}

func TestRequestReturnNonDeliveredRejected(t *testing.T) {
	orderID := uuid.New()
	repo := &stubOrdersRepo{
		order: &models.Order{ID: orderID, UserID: "user-1", Status: enums.OrderStatusShipped},
	}
	svc, _ := newTestService(t, repo)

	_, err := svc.RequestReturn(context.Background(), ReturnInput{
		OrderID: orderID,
		UserID:  "user-1",
		Reason:  "changed my mind",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestRequestReturnAlreadyOpen(t *testing.T) {
	orderID := uuid.New()
	repo := &stubOrdersRepo{
		order:      &models.Order{ID: orderID, UserID: "user-1", Status: enums.OrderStatusDelivered},
		openReturn: &models.ReturnRequest{ID: uuid.New(), OrderID: orderID, Status: enums.ReturnStatusRequested},
	}
	svc, _ := newTestService(t, repo)

	_, err := svc.RequestReturn(context.Background(), ReturnInput{
		OrderID: orderID,
		UserID:  "user-1",
		Reason:  "damaged on arrival",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict for duplicate return, got %v", err)
	}
}

func TestConfirmPaidTx(t *testing.T) {
	orderID := uuid.New()
	repo := &stubOrdersRepo{
		order: &models.Order{ID: orderID, UserID: "user-1", Status: enums.OrderStatusPending, TotalCents: 230000},
	}
	svc, events := newTestService(t, repo)

	order, err := svc.ConfirmPaidTx(context.Background(), &gorm.DB{}, orderID, "pay_abc123")
	if err != nil {
		t.Fatalf("confirm paid: %v", err)
	}
	if order.Status != enums.OrderStatusConfirmed {
		t.Fatalf("expected confirmed, got %s", order.Status)
	}
	if order.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("expected paid, got %s", order.PaymentStatus)
	}
	if order.PaymentID == nil || *order.PaymentID != "pay_abc123" {
		t.Fatalf("expected payment id to be recorded, got %v", order.PaymentID)
	}
	if order.PaidAt == nil {
		t.Fatalf("expected paid_at to be set")
	}
	if len(repo.history) != 1 || repo.history[0].Message != msgPaymentConfirmed {
		t.Fatalf("expected payment history entry, got %+v", repo.history)
	}
	if len(events.events) != 1 || events.events[0].EventType != enums.EventOrderPaid {
		t.Fatalf("expected paid event, got %+v", events.events)
	}
}

func TestConfirmPaidTxReplay(t *testing.T) {
	orderID := uuid.New()
	paymentID := "pay_abc123"
	repo := &stubOrdersRepo{
		order: &models.Order{
			ID:            orderID,
			UserID:        "user-1",
			Status:        enums.OrderStatusConfirmed,
			PaymentStatus: enums.PaymentStatusPaid,
			PaymentID:     &paymentID,
		},
	}
	svc, events := newTestService(t, repo)

	order, err := svc.ConfirmPaidTx(context.Background(), &gorm.DB{}, orderID, paymentID)
	if err != nil {
		t.Fatalf("replay should succeed: %v", err)
	}
	if order.Status != enums.OrderStatusConfirmed {
		t.Fatalf("unexpected status %s", order.Status)
	}
	if len(events.events) != 0 {
		t.Fatalf("replay must not emit new events, got %+v", events.events)
	}
}

func TestConfirmPaidTxDifferentPayment(t *testing.T) {
	orderID := uuid.New()
	paymentID := "pay_abc123"
	repo := &stubOrdersRepo{
		order: &models.Order{
			ID:            orderID,
			UserID:        "user-1",
			Status:        enums.OrderStatusConfirmed,
			PaymentStatus: enums.PaymentStatusPaid,
			PaymentID:     &paymentID,
		},
	}
	svc, _ := newTestService(t, repo)

	_, err := svc.ConfirmPaidTx(context.Background(), &gorm.DB{}, orderID, "pay_other")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestMarkPaymentFailedTx(t *testing.T) {
	orderID := uuid.New()
	repo := &stubOrdersRepo{
		order: &models.Order{ID: orderID, UserID: "user-1", Status: enums.OrderStatusPending},
	}
	svc, events := newTestService(t, repo)

	order, err := svc.MarkPaymentFailedTx(context.Background(), &gorm.DB{}, orderID, "card declined")
	if err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if order.PaymentStatus != enums.PaymentStatusFailed {
		t.Fatalf("expected failed payment status, got %s", order.PaymentStatus)
	}
	// The order itself stays pending so the user can retry.
	if order.Status != enums.OrderStatusPending {
		t.Fatalf("order status must stay pending, got %s", order.Status)
	}
	if len(events.events) != 1 || events.events[0].EventType != enums.EventPaymentFailed {
		t.Fatalf("expected payment_failed event, got %+v", events.events)
	}

	// Repeated failure reports are accepted without further writes.
	repo.orderUpdates = nil
	if _, err := svc.MarkPaymentFailedTx(context.Background(), &gorm.DB{}, orderID, "card declined"); err != nil {
		t.Fatalf("repeat mark failed: %v", err)
	}
	if repo.orderUpdates != nil {
		t.Fatalf("repeat report must not update the order, got %+v", repo.orderUpdates)
	}
}

func TestMarkPaymentFailedTxPaidOrder(t *testing.T) {
	orderID := uuid.New()
	repo := &stubOrdersRepo{
		order: &models.Order{
			ID:            orderID,
			UserID:        "user-1",
			Status:        enums.OrderStatusConfirmed,
			PaymentStatus: enums.PaymentStatusPaid,
		},
	}
	svc, _ := newTestService(t, repo)

	_, err := svc.MarkPaymentFailedTx(context.Background(), &gorm.DB{}, orderID, "late failure callback")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict on paid order, got %v", err)
	}
}

func TestGetHidesForeignOrders(t *testing.T) {
	orderID := uuid.New()
	repo := &stubOrdersRepo{
		order: &models.Order{ID: orderID, UserID: "user-1", Status: enums.OrderStatusPending},
	}
	svc, _ := newTestService(t, repo)

	if _, err := svc.Get(context.Background(), orderID, "user-1"); err != nil {
		t.Fatalf("owner get: %v", err)
	}
	_, err := svc.Get(context.Background(), orderID, "user-2")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for foreign order, got %v", err)
	}
}

func TestTrackBuildsTimeline(t *testing.T) {
	orderID := uuid.New()
	tracking := "TRKAAA111BBB"
	repo := &stubOrdersRepo{
		order: &models.Order{
			ID:             orderID,
			UserID:         "user-1",
			Status:         enums.OrderStatusShipped,
			TrackingNumber: &tracking,
			StatusHistory: []models.OrderStatusHistory{
				{Status: enums.OrderStatusPending, Message: msgOrderPlaced},
				{Status: enums.OrderStatusConfirmed, Message: msgPaymentConfirmed},
				{Status: enums.OrderStatusShipped, Message: "Order shipped"},
			},
		},
	}
	svc, _ := newTestService(t, repo)

	info, err := svc.Track(context.Background(), orderID, "user-1")
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	if info.TrackingNumber == nil || *info.TrackingNumber != tracking {
		t.Fatalf("expected tracking number, got %v", info.TrackingNumber)
	}
	if len(info.History) != 3 {
		t.Fatalf("expected 3 history entries, got %d", len(info.History))
	}
	if info.History[0].Message != msgOrderPlaced {
		t.Fatalf("unexpected first entry %+v", info.History[0])
	}
}
