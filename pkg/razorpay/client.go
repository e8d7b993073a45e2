package razorpay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	rzp "github.com/razorpay/razorpay-go"

	"github.com/novamart/novamart-backend/pkg/config"
	pkgerrors "github.com/novamart/novamart-backend/pkg/errors"
	"github.com/novamart/novamart-backend/pkg/logger"
)

const defaultCallTimeout = 10 * time.Second

var (
	errKeyIDRequired     = errors.New("razorpay key id is required")
	errKeySecretRequired = errors.New("razorpay key secret is required")
	errLoggerRequired    = errors.New("razorpay logger is required")
)

// Client exposes the Razorpay order primitives with centralized auth,
// logging, call timeouts, and error mapping.
type Client struct {
	sdk         *rzp.Client
	keyID       string
	keySecret   string
	callTimeout time.Duration
	logger      *logger.Logger
}

// OrderCreateParams describes the provider-side order to open for checkout.
type OrderCreateParams struct {
	AmountCents int64
	Currency    string
	Receipt     string
}

// ProviderOrder is the subset of the provider response the platform keeps.
type ProviderOrder struct {
	ID          string
	AmountCents int64
	Currency    string
	Status      string
}

// NewClient initializes the Razorpay wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.RazorpayConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	keyID := strings.TrimSpace(cfg.KeyID)
	if keyID == "" {
		return nil, errKeyIDRequired
	}
	keySecret := strings.TrimSpace(cfg.KeySecret)
	if keySecret == "" {
		return nil, errKeySecretRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}

	c := &Client{
		sdk:         rzp.NewClient(keyID, keySecret),
		keyID:       keyID,
		keySecret:   keySecret,
		callTimeout: timeout,
		logger:      logg,
	}

	logg.Info(ctx, "razorpay client initialized")
	return c, nil
}

// KeyID returns the public key checkout clients need.
func (c *Client) KeyID() string {
	if c == nil {
		return ""
	}
	return c.keyID
}

// KeySecret returns the secret used for callback signature verification.
func (c *Client) KeySecret() string {
	if c == nil {
		return ""
	}
	return c.keySecret
}

// CreateOrder opens a provider-side order for the given amount. The SDK
// has no context support, so the call runs in a goroutine and is bounded
// by the configured timeout.
func (c *Client) CreateOrder(ctx context.Context, params OrderCreateParams) (*ProviderOrder, error) {
	c.log(ctx, "request", "create_order", map[string]any{
		"amount":   params.AmountCents,
		"currency": params.Currency,
		"receipt":  params.Receipt,
	})

	data := map[string]any{
		"amount":   params.AmountCents,
		"currency": params.Currency,
		"receipt":  params.Receipt,
	}

	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	type result struct {
		body map[string]any
		err  error
	}
	done := make(chan result, 1)
	go func() {
		body, err := c.sdk.Order.Create(data, nil)
		done <- result{body: body, err: err}
	}()

	var body map[string]any
	select {
	case <-callCtx.Done():
		err := callCtx.Err()
		c.log(ctx, "error", "create_order", map[string]any{"error": err.Error()})
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "razorpay create order timed out")
	case res := <-done:
		if res.err != nil {
			c.log(ctx, "error", "create_order", map[string]any{"error": res.err.Error()})
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, res.err, "razorpay create order failed")
		}
		body = res.body
	}

	order, err := orderFromResponse(body)
	if err != nil {
		c.log(ctx, "error", "create_order", map[string]any{"error": err.Error()})
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "razorpay create order returned malformed response")
	}

	c.log(ctx, "response", "create_order", map[string]any{
		"provider_order_id": order.ID,
		"status":            order.Status,
	})
	return order, nil
}

func orderFromResponse(body map[string]any) (*ProviderOrder, error) {
	id, ok := body["id"].(string)
	if !ok || id == "" {
		return nil, fmt.Errorf("missing order id in response")
	}
	order := &ProviderOrder{ID: id}
	if status, ok := body["status"].(string); ok {
		order.Status = status
	}
	if currency, ok := body["currency"].(string); ok {
		order.Currency = currency
	}
	switch amount := body["amount"].(type) {
	case float64:
		order.AmountCents = int64(amount)
	case int64:
		order.AmountCents = amount
	}
	return order, nil
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = v
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("razorpay %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("razorpay %s", phase))
	}
}
