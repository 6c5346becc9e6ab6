// File: services/payment/processor.go
package payment

import (
	"context"
	"fmt"
	"time"

	"servana/models"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"github.com/stripe/stripe-go/v76/refund"
	"go.uber.org/zap"
)

// Processor captures authorized charges into platform custody and issues
// refunds against them. Both operations are idempotent, keyed by an
// external reference, and retryable.
type Processor interface {
	Capture(ctx context.Context, req models.CaptureRequest) (*models.Invoice, error)
	Refund(ctx context.Context, paymentRef string, amount float64, currency, idempotencyKey string) error
}

// StripeProcessor is the production implementation on Stripe payment intents.
type StripeProcessor struct {
	logger *zap.Logger
}

func NewStripeProcessor(logger *zap.Logger) *StripeProcessor {
	return &StripeProcessor{logger: logger}
}

// Capture creates and captures a payment intent for the booking amount,
// holding the funds in platform custody.
func (p *StripeProcessor) Capture(ctx context.Context, req models.CaptureRequest) (*models.Invoice, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("invalid capture amount %.2f", req.Amount)
	}
	if req.UserID == "" || req.BookingID == "" {
		return nil, fmt.Errorf("capture request missing user or booking id")
	}

	inv := &models.Invoice{
		InvoiceID: uuid.New().String(),
		UserID:    req.UserID,
		BookingID: req.BookingID,
		Amount:    req.Amount,
		Currency:  req.Currency,
		Status:    "pending",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(toMinorUnits(req.Amount)),
		Currency: stripe.String(req.Currency),
		Metadata: map[string]string{"booking_id": req.BookingID},
		Params:   stripe.Params{Context: ctx},
	}
	for k, v := range req.Metadata {
		params.Metadata[k] = v
	}
	if req.Idempotency != "" {
		params.SetIdempotencyKey(req.Idempotency)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		inv.Status = "failed"
		inv.Error = err.Error()
		return inv, fmt.Errorf("stripe capture failed: %w", err)
	}

	inv.PaymentID = pi.ID
	inv.Status = "paid"
	inv.UpdatedAt = time.Now()
	p.logger.Info("payment captured into escrow",
		zap.String("bookingID", req.BookingID), zap.String("paymentID", pi.ID))
	return inv, nil
}

// Refund issues a partial or full refund against a captured charge.
func (p *StripeProcessor) Refund(ctx context.Context, paymentRef string, amount float64, currency, idempotencyKey string) error {
	if paymentRef == "" {
		return fmt.Errorf("refund requires a payment reference")
	}

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentRef),
		Amount:        stripe.Int64(toMinorUnits(amount)),
		Params:        stripe.Params{Context: ctx},
	}
	if idempotencyKey != "" {
		params.SetIdempotencyKey(idempotencyKey)
	}

	if _, err := refund.New(params); err != nil {
		return fmt.Errorf("stripe refund failed: %w", err)
	}
	p.logger.Info("refund issued",
		zap.String("paymentRef", paymentRef), zap.Float64("amount", amount))
	return nil
}

// toMinorUnits converts a major-unit amount to the processor's integer
// minor units (cents).
func toMinorUnits(amount float64) int64 {
	return int64(amount*100 + 0.5)
}
