package payment

import (
	"context"
	"fmt"

	"nestly/config"
	"nestly/models"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"go.uber.org/zap"
)

// StripeCheckoutService creates hosted checkout links for freshly billed
// invoices. The billing engine consumes it best-effort: a failed link never
// fails the run.
type StripeCheckoutService struct {
	Logger *zap.Logger
}

// CreateCheckoutLink creates a stripe checkout session for the invoice total
// and returns its hosted URL.
func (s *StripeCheckoutService) CreateCheckoutLink(ctx context.Context, inv *models.Invoice) (string, error) {
	if inv.TotalCents <= 0 {
		return "", fmt.Errorf("invoice %s has non-positive total", inv.InvoiceID)
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(config.AppConfig.Billing.Currency),
					UnitAmount: stripe.Int64(inv.TotalCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(fmt.Sprintf("Childcare invoice %s", inv.InvoiceID)),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		ClientReferenceID: stripe.String(inv.InvoiceID),
		CustomerEmail:     stripe.String(inv.UserEmail),
		SuccessURL:        stripe.String(config.AppConfig.CheckoutSuccessURL),
		CancelURL:         stripe.String(config.AppConfig.CheckoutCancelURL),
	}
	params.Context = ctx

	sess, err := session.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create checkout session for invoice %s: %w", inv.InvoiceID, err)
	}

	if s.Logger != nil {
		s.Logger.Debug("created checkout session",
			zap.String("invoiceId", inv.InvoiceID),
			zap.String("sessionId", sess.ID),
		)
	}
	return sess.URL, nil
}
