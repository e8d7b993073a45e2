package payments

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/novamart/novamart-backend/api/middleware"
	"github.com/novamart/novamart-backend/api/responses"
	"github.com/novamart/novamart-backend/api/validators"
	internalorders "github.com/novamart/novamart-backend/internal/orders"
	internalpayments "github.com/novamart/novamart-backend/internal/payments"
	"github.com/novamart/novamart-backend/pkg/enums"
	pkgerrors "github.com/novamart/novamart-backend/pkg/errors"
	"github.com/novamart/novamart-backend/pkg/logger"
)

type intentItemRequest struct {
	ProductID      string `json:"product_id" validate:"required"`
	Name           string `json:"name" validate:"required,max=200"`
	Quantity       int    `json:"quantity" validate:"required,min=1"`
	UnitPriceCents int64  `json:"unit_price_cents" validate:"gte=0"`
}

type createIntentRequest struct {
	Currency      string              `json:"currency" validate:"required"`
	Items         []intentItemRequest `json:"items" validate:"required,min=1,dive"`
	SubtotalCents int64               `json:"subtotal_cents" validate:"gt=0"`
	ShippingCents int64               `json:"shipping_cents" validate:"gte=0"`
	TaxCents      int64               `json:"tax_cents" validate:"gte=0"`
	DiscountCents int64               `json:"discount_cents" validate:"gte=0"`
	TotalCents    int64               `json:"total_cents" validate:"gt=0"`
}

// CreateIntent opens an order and its provider-side checkout in one step.
func CreateIntent(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		if userID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		var payload createIntentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		currency, err := enums.ParseCurrency(payload.Currency)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("invalid currency %q", payload.Currency)))
			return
		}

		items := make([]internalorders.CreateItemInput, 0, len(payload.Items))
		for _, item := range payload.Items {
			items = append(items, internalorders.CreateItemInput{
				ProductID:      strings.TrimSpace(item.ProductID),
				Name:           strings.TrimSpace(item.Name),
				Quantity:       item.Quantity,
				UnitPriceCents: item.UnitPriceCents,
			})
		}

		intent, err := svc.CreateIntent(r.Context(), internalpayments.CreateIntentInput{
			Order: internalorders.CreateOrderInput{
				UserID:        userID,
				Currency:      currency,
				Items:         items,
				SubtotalCents: payload.SubtotalCents,
				ShippingCents: payload.ShippingCents,
				TaxCents:      payload.TaxCents,
				DiscountCents: payload.DiscountCents,
				TotalCents:    payload.TotalCents,
			},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, intent)
	}
}

type verifyRequest struct {
	ProviderIntentID  string `json:"razorpay_order_id" validate:"required"`
	ProviderPaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature         string `json:"razorpay_signature" validate:"required"`
	AmountCents       *int64 `json:"amount_cents,omitempty" validate:"omitempty,gt=0"`
	Currency          string `json:"currency,omitempty" validate:"omitempty,len=3"`
}

// Verify checks the provider signature and settles the order.
func Verify(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		if userID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		var payload verifyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.VerifyAndConfirm(r.Context(), internalpayments.VerifyInput{
			ProviderIntentID:  strings.TrimSpace(payload.ProviderIntentID),
			ProviderPaymentID: strings.TrimSpace(payload.ProviderPaymentID),
			Signature:         strings.TrimSpace(payload.Signature),
			AmountCents:       payload.AmountCents,
			Currency:          strings.TrimSpace(payload.Currency),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type markFailedRequest struct {
	Reason string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

// MarkFailed records an abandoned or declined checkout attempt.
func MarkFailed(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		if userID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		rawOrderID := strings.TrimSpace(chi.URLParam(r, "orderId"))
		if rawOrderID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order id is required"))
			return
		}
		orderID, err := uuid.Parse(rawOrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		var payload markFailedRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		order, err := svc.MarkFailed(r.Context(), internalpayments.MarkFailedInput{
			OrderID: orderID,
			UserID:  userID,
			Reason:  strings.TrimSpace(payload.Reason),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// History lists the caller's settled payments, newest first.
func History(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		if userID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.HistoryForUser(r.Context(), userID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
