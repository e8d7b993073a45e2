package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/novamart/novamart-backend/pkg/db/models"
	"github.com/novamart/novamart-backend/pkg/pagination"
)

// Repository defines persistence operations for the order ledger tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateOrderItems(ctx context.Context, items []models.OrderItem) error
	AppendStatusHistory(ctx context.Context, entry models.OrderStatusHistory) error
	CreateReturnRequest(ctx context.Context, request *models.ReturnRequest) (*models.ReturnRequest, error)
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindOrderItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	FindOpenReturnRequest(ctx context.Context, orderID uuid.UUID) (*models.ReturnRequest, error)
	ListUserOrders(ctx context.Context, userID string, params pagination.Params, filters ListFilters) (*OrderList, error)
	UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
}
