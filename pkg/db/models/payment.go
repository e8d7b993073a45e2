package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/novamart/novamart-backend/pkg/enums"
)

// Payment is the settled record written once verification succeeds.
type Payment struct {
	ID                uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID           uuid.UUID      `gorm:"column:order_id;type:uuid;not null;index"`
	UserID            string         `gorm:"column:user_id;not null;index"`
	ProviderIntentID  string         `gorm:"column:provider_intent_id;not null"`
	ProviderPaymentID string         `gorm:"column:provider_payment_id;not null;uniqueIndex"`
	AmountCents       int64          `gorm:"column:amount_cents;not null"`
	Currency          enums.Currency `gorm:"column:currency;type:text;not null"`
	CreatedAt         time.Time      `gorm:"column:created_at;autoCreateTime"`
}
