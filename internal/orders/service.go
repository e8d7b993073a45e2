package orders

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/novamart/novamart-backend/pkg/db/models"
	"github.com/novamart/novamart-backend/pkg/enums"
	pkgerrors "github.com/novamart/novamart-backend/pkg/errors"
	"github.com/novamart/novamart-backend/pkg/outbox"
	"github.com/novamart/novamart-backend/pkg/pagination"
)

const (
	estimatedDeliveryDays = 7
	trackingPrefix        = "TRK"

	msgOrderPlaced      = "Order placed successfully"
	msgCancelledByUser  = "Cancelled by user"
	msgPaymentConfirmed = "Payment confirmed"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines the order ledger operations.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	CreateTx(ctx context.Context, tx *gorm.DB, input CreateOrderInput) (*models.Order, error)
	ConfirmPaidTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, providerPaymentID string) (*models.Order, error)
	MarkPaymentFailedTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, reason string) (*models.Order, error)
	Transition(ctx context.Context, input TransitionInput) (*models.Order, error)
	Cancel(ctx context.Context, input CancelInput) (*models.Order, error)
	RequestReturn(ctx context.Context, input ReturnInput) (*models.ReturnRequest, error)
	Get(ctx context.Context, orderID uuid.UUID, userID string) (*models.Order, error)
	ListForUser(ctx context.Context, userID string, params pagination.Params, filters ListFilters) (*OrderList, error)
	Track(ctx context.Context, orderID uuid.UUID, userID string) (*TrackingInfo, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
}

// OrderCreatedEvent is emitted when an order is opened.
type OrderCreatedEvent struct {
	OrderID    uuid.UUID           `json:"order_id"`
	UserID     string              `json:"user_id"`
	TotalCents int64               `json:"total_cents"`
	Currency   enums.Currency      `json:"currency"`
	ItemCount  int                 `json:"item_count"`
	Status     enums.OrderStatus   `json:"status"`
	Payment    enums.PaymentStatus `json:"payment_status"`
}

// OrderStatusEvent is emitted on every lifecycle transition.
type OrderStatusEvent struct {
	OrderID        uuid.UUID         `json:"order_id"`
	From           enums.OrderStatus `json:"from"`
	To             enums.OrderStatus `json:"to"`
	TrackingNumber *string           `json:"tracking_number,omitempty"`
}

// OrderCanceledEvent is emitted when the owner cancels an order.
type OrderCanceledEvent struct {
	OrderID uuid.UUID `json:"order_id"`
	UserID  string    `json:"user_id"`
	Reason  string    `json:"reason"`
}

// OrderPaidEvent is emitted when payment verification confirms an order.
type OrderPaidEvent struct {
	OrderID           uuid.UUID `json:"order_id"`
	UserID            string    `json:"user_id"`
	ProviderPaymentID string    `json:"provider_payment_id"`
	TotalCents        int64     `json:"total_cents"`
}

// PaymentFailedEvent is emitted when a checkout attempt fails.
type PaymentFailedEvent struct {
	OrderID uuid.UUID `json:"order_id"`
	UserID  string    `json:"user_id"`
	Reason  string    `json:"reason"`
}

// ReturnRequestedEvent is emitted when a delivered order gets a return request.
type ReturnRequestedEvent struct {
	OrderID  uuid.UUID           `json:"order_id"`
	ReturnID uuid.UUID           `json:"return_id"`
	UserID   string              `json:"user_id"`
	Reason   string              `json:"reason"`
	Items    []models.ReturnItem `json:"items"`
}

// NewService builds the order ledger service with the required dependencies.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: outboxSvc}, nil
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	var created *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.CreateTx(ctx, tx, input)
		if err != nil {
			return err
		}
		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) CreateTx(ctx context.Context, tx *gorm.DB, input CreateOrderInput) (*models.Order, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	repo := s.repo.WithTx(tx)
	currency := input.Currency
	if currency == "" {
		currency = enums.CurrencyINR
	}

	order := &models.Order{
		UserID:            input.UserID,
		Currency:          currency,
		Status:            enums.OrderStatusPending,
		PaymentStatus:     enums.PaymentStatusPending,
		SubtotalCents:     input.SubtotalCents,
		ShippingCents:     input.ShippingCents,
		TaxCents:          input.TaxCents,
		DiscountCents:     input.DiscountCents,
		TotalCents:        input.TotalCents,
		EstimatedDelivery: time.Now().UTC().AddDate(0, 0, estimatedDeliveryDays),
	}
	if _, err := repo.CreateOrder(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}

	items := make([]models.OrderItem, 0, len(input.Items))
	for _, item := range input.Items {
		items = append(items, models.OrderItem{
			OrderID:        order.ID,
			ProductID:      item.ProductID,
			Name:           item.Name,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
		})
	}
	if err := repo.CreateOrderItems(ctx, items); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
	}
	order.Items = items

	if err := repo.AppendStatusHistory(ctx, models.OrderStatusHistory{
		OrderID: order.ID,
		Status:  enums.OrderStatusPending,
		Message: msgOrderPlaced,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append order history")
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Actor:         &outbox.ActorRef{UserID: input.UserID},
		Data: OrderCreatedEvent{
			OrderID:    order.ID,
			UserID:     order.UserID,
			TotalCents: order.TotalCents,
			Currency:   order.Currency,
			ItemCount:  len(items),
			Status:     order.Status,
			Payment:    order.PaymentStatus,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) ConfirmPaidTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, providerPaymentID string) (*models.Order, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	repo := s.repo.WithTx(tx)

	order, err := repo.FindOrderForUpdate(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	if order.PaymentStatus == enums.PaymentStatusPaid {
		if order.PaymentID != nil && *order.PaymentID == providerPaymentID {
			return order, nil
		}
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order already paid with a different payment")
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot be confirmed in current state")
	}

	now := time.Now().UTC()
	updates := map[string]any{
		"status":         enums.OrderStatusConfirmed,
		"payment_status": enums.PaymentStatusPaid,
		"payment_id":     providerPaymentID,
		"paid_at":        now,
	}
	if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm order")
	}
	if err := repo.AppendStatusHistory(ctx, models.OrderStatusHistory{
		OrderID: order.ID,
		Status:  enums.OrderStatusConfirmed,
		Message: msgPaymentConfirmed,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append order history")
	}

	order.Status = enums.OrderStatusConfirmed
	order.PaymentStatus = enums.PaymentStatusPaid
	order.PaymentID = &providerPaymentID
	order.PaidAt = &now

	event := outbox.DomainEvent{
		EventType:     enums.EventOrderPaid,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Actor:         &outbox.ActorRef{UserID: order.UserID},
		Data: OrderPaidEvent{
			OrderID:           order.ID,
			UserID:            order.UserID,
			ProviderPaymentID: providerPaymentID,
			TotalCents:        order.TotalCents,
		},
	}
	if err := s.outbox.EmitIfNotExists(ctx, tx, event); err != nil {
		return nil, err
	}
	return order, nil
}

// MarkPaymentFailedTx records a failed checkout attempt. The order stays
// pending so the user can retry; repeated failure reports are accepted.
func (s *service) MarkPaymentFailedTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, reason string) (*models.Order, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	repo := s.repo.WithTx(tx)

	order, err := repo.FindOrderForUpdate(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	if order.PaymentStatus == enums.PaymentStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order already paid")
	}
	if order.PaymentStatus == enums.PaymentStatusFailed {
		return order, nil
	}

	if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
		"payment_status": enums.PaymentStatusFailed,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment failed")
	}
	order.PaymentStatus = enums.PaymentStatusFailed

	event := outbox.DomainEvent{
		EventType:     enums.EventPaymentFailed,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Actor:         &outbox.ActorRef{UserID: order.UserID},
		Data: PaymentFailedEvent{
			OrderID: order.ID,
			UserID:  order.UserID,
			Reason:  reason,
		},
	}
	if err := s.outbox.EmitIfNotExists(ctx, tx, event); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) Transition(ctx context.Context, input TransitionInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", input.Target))
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrderForUpdate(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if !order.Status.CanTransitionTo(input.Target) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot transition order from %s to %s", order.Status, input.Target))
		}

		from := order.Status
		updates := map[string]any{"status": input.Target}
		if input.Target == enums.OrderStatusShipped && order.TrackingNumber == nil {
			tracking, err := newTrackingNumber()
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate tracking number")
			}
			updates["tracking_number"] = tracking
			order.TrackingNumber = &tracking
		}
		if input.Target == enums.OrderStatusCancelled {
			now := time.Now().UTC()
			updates["canceled_at"] = now
			order.CanceledAt = &now
		}

		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}

		message := strings.TrimSpace(input.Message)
		if message == "" {
			message = fmt.Sprintf("Order %s", input.Target)
		}
		if err := repo.AppendStatusHistory(ctx, models.OrderStatusHistory{
			OrderID: order.ID,
			Status:  input.Target,
			Message: message,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append order history")
		}

		order.Status = input.Target
		updated = order

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(input.ActorUserID),
			Data: OrderStatusEvent{
				OrderID:        order.ID,
				From:           from,
				To:             input.Target,
				TrackingNumber: order.TrackingNumber,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) Cancel(ctx context.Context, input CancelInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if strings.TrimSpace(input.UserID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrderForUpdate(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.UserID != input.UserID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if !order.Status.CanTransitionTo(enums.OrderStatusCancelled) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot cancel order in %s state", order.Status))
		}

		now := time.Now().UTC()
		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
			"status":      enums.OrderStatusCancelled,
			"canceled_at": now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}

		reason := strings.TrimSpace(input.Reason)
		if reason == "" {
			reason = msgCancelledByUser
		}
		if err := repo.AppendStatusHistory(ctx, models.OrderStatusHistory{
			OrderID: order.ID,
			Status:  enums.OrderStatusCancelled,
			Message: reason,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append order history")
		}

		order.Status = enums.OrderStatusCancelled
		order.CanceledAt = &now
		updated = order

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCanceled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.UserID},
			Data: OrderCanceledEvent{
				OrderID: order.ID,
				UserID:  input.UserID,
				Reason:  reason,
			},
		}
		return s.outbox.EmitIfNotExists(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// RequestReturn attaches a return request to a delivered order. The order
// keeps its delivered status. Requested items are checked against the
// order's items; no items means the whole order.
func (s *service) RequestReturn(ctx context.Context, input ReturnInput) (*models.ReturnRequest, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if strings.TrimSpace(input.UserID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return reason required")
	}

	var created *models.ReturnRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrderForUpdate(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.UserID != input.UserID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if order.Status != enums.OrderStatusDelivered {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "returns are only allowed on delivered orders")
		}

		items := make([]models.ReturnItem, 0, len(input.Items))
		if len(input.Items) > 0 {
			ordered, err := repo.FindOrderItems(ctx, order.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
			}
			items, err = buildReturnItems(input.Items, ordered)
			if err != nil {
				return err
			}
		}

		if _, err := repo.FindOpenReturnRequest(ctx, order.ID); err == nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order already has an open return request")
		} else if err != gorm.ErrRecordNotFound {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check return request")
		}

		payload, err := json.Marshal(items)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode return items")
		}
		request := &models.ReturnRequest{
			OrderID: order.ID,
			Reason:  reason,
			Items:   payload,
			Status:  enums.ReturnStatusRequested,
		}
		if _, err := repo.CreateReturnRequest(ctx, request); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create return request")
		}
		created = request

		event := outbox.DomainEvent{
			EventType:     enums.EventReturnRequested,
			AggregateType: enums.AggregateReturnRequest,
			AggregateID:   request.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.UserID},
			Data: ReturnRequestedEvent{
				OrderID:  order.ID,
				ReturnID: request.ID,
				UserID:   input.UserID,
				Reason:   reason,
				Items:    items,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID, userID string) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) ListForUser(ctx context.Context, userID string, params pagination.Params, filters ListFilters) (*OrderList, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	list, err := s.repo.ListUserOrders(ctx, userID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

func (s *service) Track(ctx context.Context, orderID uuid.UUID, userID string) (*TrackingInfo, error) {
	order, err := s.Get(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}

	info := &TrackingInfo{
		OrderID:           order.ID,
		Status:            order.Status,
		TrackingNumber:    order.TrackingNumber,
		EstimatedDelivery: order.EstimatedDelivery,
		History:           make([]HistoryEntry, 0, len(order.StatusHistory)),
	}
	for _, entry := range order.StatusHistory {
		info.History = append(info.History, HistoryEntry{
			Status:    entry.Status,
			Message:   entry.Message,
			CreatedAt: entry.CreatedAt,
		})
	}
	return info, nil
}

func validateCreate(input CreateOrderInput) error {
	if strings.TrimSpace(input.UserID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one item")
	}
	var subtotal int64
	for i, item := range input.Items {
		if strings.TrimSpace(item.ProductID) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d missing product id", i))
		}
		if strings.TrimSpace(item.Name) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d missing name", i))
		}
		if item.Quantity < 1 {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d quantity must be at least 1", i))
		}
		if item.UnitPriceCents < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d unit price cannot be negative", i))
		}
		subtotal += int64(item.Quantity) * item.UnitPriceCents
	}
	if input.ShippingCents < 0 || input.TaxCents < 0 || input.DiscountCents < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "charges cannot be negative")
	}
	if input.SubtotalCents != subtotal {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("subtotal mismatch: expected %d, got %d", subtotal, input.SubtotalCents))
	}
	expectedTotal := input.SubtotalCents + input.ShippingCents + input.TaxCents - input.DiscountCents
	if input.TotalCents != expectedTotal {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("total mismatch: expected %d, got %d", expectedTotal, input.TotalCents))
	}
	if input.TotalCents < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "total cannot be negative")
	}
	return nil
}

// buildReturnItems validates each requested line against the order's
// items: the product must be on the order, quantities stay within what
// was ordered, and a product appears at most once.
func buildReturnItems(requested []ReturnItemInput, ordered []models.OrderItem) ([]models.ReturnItem, error) {
	quantities := make(map[string]int, len(ordered))
	for _, item := range ordered {
		quantities[item.ProductID] += item.Quantity
	}

	items := make([]models.ReturnItem, 0, len(requested))
	seen := make(map[string]bool, len(requested))
	for i, item := range requested {
		productID := strings.TrimSpace(item.ProductID)
		if productID == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("return item %d missing product id", i))
		}
		if seen[productID] {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("product %s listed more than once", productID))
		}
		seen[productID] = true

		orderedQty, ok := quantities[productID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("product %s is not part of the order", productID))
		}
		if item.Quantity < 1 || item.Quantity > orderedQty {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("return quantity for product %s must be between 1 and %d", productID, orderedQty))
		}
		items = append(items, models.ReturnItem{ProductID: productID, Quantity: item.Quantity})
	}
	return items, nil
}

func newTrackingNumber() (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return trackingPrefix + strings.ToUpper(hex.EncodeToString(buf)), nil
}

func buildActor(userID string) *outbox.ActorRef {
	if strings.TrimSpace(userID) == "" {
		return nil
	}
	return &outbox.ActorRef{UserID: userID}
}
