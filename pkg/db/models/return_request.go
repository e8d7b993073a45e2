package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/novamart/novamart-backend/pkg/enums"
)

// ReturnItem is one returned line, snapshotted into the request's items
// column. An empty list means the whole order is returned.
type ReturnItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// ReturnRequest is attached to a delivered order; the order itself keeps
// its delivered status. A partial unique index allows one open request
// per order.
type ReturnRequest struct {
	ID        uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index"`
	Reason    string             `gorm:"column:reason;not null"`
	Items     json.RawMessage    `gorm:"column:items;type:jsonb;not null;default:'[]'"`
	Status    enums.ReturnStatus `gorm:"column:status;type:text;not null;default:'requested'"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
