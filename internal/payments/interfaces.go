package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/novamart/novamart-backend/pkg/db/models"
	"github.com/novamart/novamart-backend/pkg/pagination"
)

// Repository defines persistence operations for payment intents and
// settled payments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateIntent(ctx context.Context, intent *models.PaymentIntent) (*models.PaymentIntent, error)
	FindIntentByProviderID(ctx context.Context, providerIntentID string) (*models.PaymentIntent, error)
	FindIntentByProviderIDForUpdate(ctx context.Context, providerIntentID string) (*models.PaymentIntent, error)
	FindIntentByOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*models.PaymentIntent, error)
	UpdateIntent(ctx context.Context, intentID uuid.UUID, updates map[string]any) error
	CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	ListUserPayments(ctx context.Context, userID string, params pagination.Params) (*PaymentList, error)
}
