package billing

import (
	"context"
	"time"

	"nestly/models"

	"go.uber.org/zap"
)

const (
	// NETWORK failures are retried up to this many attempts before they are
	// recorded on the failure ledger.
	maxNetworkAttempts = 3
	retryBackoffBase   = 500 * time.Millisecond
)

// withRetry executes fn, retrying NETWORK-classified failures with linear
// backoff. It returns how many retries were spent and the final classified
// failure, if any.
func (s *DefaultBillingService) withRetry(ctx context.Context, phase, subject string, fn func() error) (int, *Error) {
	var last *Error
	for attempt := 1; attempt <= maxNetworkAttempts; attempt++ {
		err := fn()
		if err == nil {
			return attempt - 1, nil
		}
		last = Classify(phase, subject, err)
		if !last.Retryable || attempt == maxNetworkAttempts {
			return attempt - 1, last
		}
		s.logger().Warn("transient failure, backing off",
			zap.String("phase", phase),
			zap.String("subject", subject),
			zap.Int("attempt", attempt),
			zap.Error(last.Cause),
		)
		select {
		case <-time.After(time.Duration(attempt) * retryBackoffBase):
		case <-ctx.Done():
			return attempt - 1, Classify(phase, subject, ctx.Err())
		}
	}
	return maxNetworkAttempts - 1, last
}

// persistInvoice writes the draft and marks its reservation billed, as one
// transaction. In dry-run mode it logs the draft and touches nothing.
func (s *DefaultBillingService) persistInvoice(ctx context.Context, inv *models.Invoice, dryRun bool) (int, *Error) {
	if dryRun {
		s.logger().Info("dry-run: would persist invoice",
			zap.String("invoiceId", inv.InvoiceID),
			zap.String("reservationId", inv.ReservationID),
			zap.Int64("totalCents", inv.TotalCents),
		)
		return 0, nil
	}

	retries, failure := s.withRetry(ctx, models.PhasePersistInvoice, inv.ReservationID, func() error {
		return s.Repo.PersistInvoice(ctx, inv)
	})
	if failure != nil {
		return retries, failure
	}

	s.attachCheckoutLink(ctx, inv)
	return retries, nil
}

// attachCheckoutLink asks the payment gateway for a checkout URL and stores it
// on the invoice. Best-effort: a gateway hiccup must never fail the run.
func (s *DefaultBillingService) attachCheckoutLink(ctx context.Context, inv *models.Invoice) {
	if s.Checkout == nil {
		return
	}
	url, err := s.Checkout.CreateCheckoutLink(ctx, inv)
	if err != nil {
		s.logger().Warn("checkout link creation failed",
			zap.String("invoiceId", inv.InvoiceID), zap.Error(err))
		return
	}
	inv.CheckoutURL = url
	if err := s.Repo.SetInvoiceCheckoutURL(ctx, inv.InvoiceID, url); err != nil {
		s.logger().Warn("failed to store checkout link",
			zap.String("invoiceId", inv.InvoiceID), zap.Error(err))
	}
}
