package billing

import (
	"context"

	"nestly/models"

	"go.uber.org/zap"
)

// recalcHold recomputes a user's payment-hold flag from their current count of
// unpaid and late invoices. Full recomputation, never an increment, so any
// number of re-runs converges on the same value.
func (s *DefaultBillingService) recalcHold(ctx context.Context, userID string, dryRun bool) (bool, int, *Error) {
	var count int
	retries, failure := s.withRetry(ctx, models.PhaseRecalcHold, userID, func() error {
		var err error
		count, err = s.Repo.CountOutstandingInvoices(ctx, userID)
		return err
	})
	if failure != nil {
		return false, retries, failure
	}

	hold := count > s.Cfg.MaxAllowedUnpaid

	if dryRun {
		s.logger().Info("dry-run: would set payment hold",
			zap.String("userId", userID),
			zap.Int("outstanding", count),
			zap.Bool("hold", hold),
		)
		return hold, retries, nil
	}

	writeRetries, failure := s.withRetry(ctx, models.PhaseRecalcHold, userID, func() error {
		return s.Repo.SetPaymentHold(ctx, userID, hold)
	})
	retries += writeRetries
	if failure != nil {
		return hold, retries, failure
	}

	if hold {
		s.notifyUser(ctx, userID, "Account on hold",
			"Too many outstanding invoices. New bookings are paused until they are settled.",
			map[string]string{"type": "payment_hold"},
		)
	}
	return hold, retries, nil
}

// notifyUser sends a push through the notification sink. Best-effort only;
// notification failures never affect run state.
func (s *DefaultBillingService) notifyUser(ctx context.Context, userID, title, body string, data map[string]string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendUserPush(ctx, userID, title, body, data); err != nil {
		s.logger().Warn("push notification failed",
			zap.String("userId", userID), zap.Error(err))
	}
}
