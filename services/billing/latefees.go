package billing

import (
	"context"

	"nestly/config"
	"nestly/models"

	"go.uber.org/zap"
)

// WithLateFee returns a copy of the invoice with the flat late fee attached and
// totals recomputed. Idempotent: if a LATE_FEE line item already exists no
// second one is added and only the status is corrected. The second return value
// reports whether a fee was actually added.
func WithLateFee(inv models.Invoice, cfg config.BillingConfig) (models.Invoice, bool) {
	items := make([]models.LineItem, len(inv.LineItems))
	copy(items, inv.LineItems)
	inv.LineItems = items

	if inv.HasLineItem(models.LineItemLateFee) {
		inv.Status = models.InvoiceStatusLate
		return inv, false
	}

	inv.LineItems = append(inv.LineItems, models.LineItem{
		Tag:           models.LineItemLateFee,
		Service:       cfg.LateFeeLabel,
		SubtotalCents: cfg.LateFeeCents,
	})
	recomputeTotals(&inv, cfg.TaxRate)
	inv.Status = models.InvoiceStatusLate
	return inv, true
}

// applyLateFee flips an overdue invoice to late, attaching the fee line item if
// it is not there yet, and writes line items, totals and status atomically.
func (s *DefaultBillingService) applyLateFee(ctx context.Context, inv models.Invoice, dryRun bool) (models.Invoice, bool, int, *Error) {
	updated, feeAdded := WithLateFee(inv, s.Cfg)

	if dryRun {
		s.logger().Info("dry-run: would apply late fee",
			zap.String("invoiceId", updated.InvoiceID),
			zap.Bool("feeAdded", feeAdded),
			zap.Int64("totalCents", updated.TotalCents),
		)
		return updated, feeAdded, 0, nil
	}

	retries, failure := s.withRetry(ctx, models.PhaseApplyLateFee, inv.InvoiceID, func() error {
		return s.Repo.UpdateInvoiceLineItems(ctx, &updated)
	})
	if failure != nil {
		return updated, false, retries, failure
	}

	if feeAdded {
		s.notifyUser(ctx, updated.UserID, "Late fee applied",
			"A late fee was added to an overdue invoice. Please settle it to avoid a booking hold.",
			map[string]string{"invoiceId": updated.InvoiceID, "type": "late_fee"},
		)
	}
	return updated, feeAdded, retries, nil
}
