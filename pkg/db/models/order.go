package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/novamart/novamart-backend/pkg/enums"
)

// Order is the ledger record for a single purchase. Pricing columns are
// integer minor units; total = subtotal + shipping + tax - discount holds
// at creation and never changes afterwards.
type Order struct {
	ID                uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID            string               `gorm:"column:user_id;not null;index"`
	Currency          enums.Currency       `gorm:"column:currency;type:text;not null;default:'INR'"`
	Status            enums.OrderStatus    `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentStatus     enums.PaymentStatus  `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	PaymentID         *string              `gorm:"column:payment_id"`
	SubtotalCents     int64                `gorm:"column:subtotal_cents;not null"`
	ShippingCents     int64                `gorm:"column:shipping_cents;not null;default:0"`
	TaxCents          int64                `gorm:"column:tax_cents;not null;default:0"`
	DiscountCents     int64                `gorm:"column:discount_cents;not null;default:0"`
	TotalCents        int64                `gorm:"column:total_cents;not null"`
	TrackingNumber    *string              `gorm:"column:tracking_number"`
	EstimatedDelivery time.Time            `gorm:"column:estimated_delivery"`
	PaidAt            *time.Time           `gorm:"column:paid_at"`
	CanceledAt        *time.Time           `gorm:"column:canceled_at"`
	Items             []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	StatusHistory     []OrderStatusHistory `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	PaymentIntent     *PaymentIntent       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	ReturnRequest     *ReturnRequest       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
