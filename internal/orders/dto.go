package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/novamart/novamart-backend/pkg/db/models"
	"github.com/novamart/novamart-backend/pkg/enums"
)

// ListFilters describe the inputs supported by the user orders list.
type ListFilters struct {
	Status *enums.OrderStatus
}

// OrderSummary exposes the aggregated fields returned in the order list.
type OrderSummary struct {
	ID            uuid.UUID           `json:"id"`
	CreatedAt     time.Time           `json:"created_at"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	Currency      enums.Currency      `json:"currency"`
	TotalCents    int64               `json:"total_cents"`
	TotalItems    int                 `json:"total_items"`
}

// OrderList wraps the paginated orders plus the total row count.
type OrderList struct {
	Orders []OrderSummary `json:"orders"`
	Total  int64          `json:"total"`
}

// HistoryEntry is a single step of an order's timeline.
type HistoryEntry struct {
	Status    enums.OrderStatus `json:"status"`
	Message   string            `json:"message"`
	CreatedAt time.Time         `json:"created_at"`
}

// TrackingInfo is the shipment view of a single order.
type TrackingInfo struct {
	OrderID           uuid.UUID         `json:"order_id"`
	Status            enums.OrderStatus `json:"status"`
	TrackingNumber    *string           `json:"tracking_number,omitempty"`
	EstimatedDelivery time.Time         `json:"estimated_delivery"`
	History           []HistoryEntry    `json:"history"`
}

// CreateItemInput is one priced line of a new order.
type CreateItemInput struct {
	ProductID      string
	Name           string
	Quantity       int
	UnitPriceCents int64
}

// CreateOrderInput captures everything needed to open a ledger order.
type CreateOrderInput struct {
	UserID        string
	Currency      enums.Currency
	Items         []CreateItemInput
	SubtotalCents int64
	ShippingCents int64
	TaxCents      int64
	DiscountCents int64
	TotalCents    int64
}

// TransitionInput moves an order along its lifecycle.
type TransitionInput struct {
	OrderID     uuid.UUID
	Target      enums.OrderStatus
	Message     string
	ActorUserID string
}

// CancelInput cancels an order on behalf of its owner.
type CancelInput struct {
	OrderID uuid.UUID
	UserID  string
	Reason  string
}

// ReturnItemInput names one ordered line to return.
type ReturnItemInput struct {
	ProductID string
	Quantity  int
}

// ReturnInput opens a return request against a delivered order. An
// empty Items list returns the whole order.
type ReturnInput struct {
	OrderID uuid.UUID
	UserID  string
	Reason  string
	Items   []ReturnItemInput
}

func summarize(order models.Order) OrderSummary {
	return OrderSummary{
		ID:            order.ID,
		CreatedAt:     order.CreatedAt,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		Currency:      order.Currency,
		TotalCents:    order.TotalCents,
		TotalItems:    len(order.Items),
	}
}
