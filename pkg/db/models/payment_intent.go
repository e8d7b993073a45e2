package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/novamart/novamart-backend/pkg/enums"
)

// PaymentIntent mirrors the provider-side order created for checkout.
// A partial unique index keeps at most one unverified intent per order.
type PaymentIntent struct {
	ID               uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID          uuid.UUID      `gorm:"column:order_id;type:uuid;not null;index"`
	ProviderIntentID string         `gorm:"column:provider_intent_id;not null;uniqueIndex"`
	AmountCents      int64          `gorm:"column:amount_cents;not null"`
	Currency         enums.Currency `gorm:"column:currency;type:text;not null"`
	Verified         bool           `gorm:"column:verified;not null;default:false"`
	FailureReason    *string        `gorm:"column:failure_reason"`
	CreatedAt        time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
