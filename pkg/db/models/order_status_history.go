package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/novamart/novamart-backend/pkg/enums"
)

// OrderStatusHistory is append-only; rows are never updated or deleted.
type OrderStatusHistory struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	Status    enums.OrderStatus `gorm:"column:status;type:text;not null"`
	Message   string            `gorm:"column:message;not null"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (OrderStatusHistory) TableName() string {
	return "order_status_history"
}
