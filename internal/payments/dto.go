package payments

import (
	"time"

	"github.com/google/uuid"

	"github.com/novamart/novamart-backend/internal/orders"
	"github.com/novamart/novamart-backend/pkg/enums"
)

// CreateIntentInput opens a ledger order and a provider-side checkout order.
type CreateIntentInput struct {
	Order orders.CreateOrderInput
}

// CheckoutIntent is everything a checkout client needs to collect payment.
type CheckoutIntent struct {
	OrderID          uuid.UUID      `json:"order_id"`
	ProviderIntentID string         `json:"provider_intent_id"`
	AmountCents      int64          `json:"amount_cents"`
	Currency         enums.Currency `json:"currency"`
	KeyID            string         `json:"key_id"`
}

// VerifyInput carries the provider callback fields for verification.
// AmountCents and Currency are optional; when present they are checked
// against the stored intent before the order is confirmed.
type VerifyInput struct {
	ProviderIntentID  string
	ProviderPaymentID string
	Signature         string
	AmountCents       *int64
	Currency          string
}

// MarkFailedInput records a failed checkout attempt against an order.
type MarkFailedInput struct {
	OrderID uuid.UUID
	UserID  string
	Reason  string
}

// PaymentSummary is one settled payment in the user history.
type PaymentSummary struct {
	ID                uuid.UUID      `json:"id"`
	OrderID           uuid.UUID      `json:"order_id"`
	ProviderPaymentID string         `json:"provider_payment_id"`
	AmountCents       int64          `json:"amount_cents"`
	Currency          enums.Currency `json:"currency"`
	CreatedAt         time.Time      `json:"created_at"`
}

// PaymentList wraps the paginated payments plus the total row count.
type PaymentList struct {
	Payments []PaymentSummary `json:"payments"`
	Total    int64            `json:"total"`
}
