package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/novamart/novamart-backend/pkg/db/models"
	"github.com/novamart/novamart-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payments repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateIntent(ctx context.Context, intent *models.PaymentIntent) (*models.PaymentIntent, error) {
	if err := r.db.WithContext(ctx).Create(intent).Error; err != nil {
		return nil, err
	}
	return intent, nil
}

func (r *repository) FindIntentByProviderID(ctx context.Context, providerIntentID string) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	err := r.db.WithContext(ctx).
		Where("provider_intent_id = ?", providerIntentID).
		First(&intent).Error
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

// FindIntentByProviderIDForUpdate locks the intent row so concurrent
// verifications of the same checkout serialize.
func (r *repository) FindIntentByProviderIDForUpdate(ctx context.Context, providerIntentID string) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("provider_intent_id = ?", providerIntentID).
		First(&intent).Error
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

func (r *repository) FindIntentByOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		First(&intent).Error
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

func (r *repository) UpdateIntent(ctx context.Context, intentID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.PaymentIntent{}).
		Where("id = ?", intentID).
		Updates(updates).Error
}

func (r *repository) CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		return nil, err
	}
	return payment, nil
}

func (r *repository) ListUserPayments(ctx context.Context, userID string, params pagination.Params) (*PaymentList, error) {
	params = pagination.Normalize(params)

	query := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var rows []models.Payment
	err := query.
		Order("created_at DESC").
		Offset(params.Offset).
		Limit(params.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	list := &PaymentList{Payments: make([]PaymentSummary, 0, len(rows)), Total: total}
	for _, row := range rows {
		list.Payments = append(list.Payments, PaymentSummary{
			ID:                row.ID,
			OrderID:           row.OrderID,
			ProviderPaymentID: row.ProviderPaymentID,
			AmountCents:       row.AmountCents,
			Currency:          row.Currency,
			CreatedAt:         row.CreatedAt,
		})
	}
	return list, nil
}
