package billing

import (
	"context"
	"fmt"
	"time"

	"nestly/config"
	billingRepo "nestly/database/repository/billing"
	"nestly/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultBillingService is the production run coordinator. Collaborators are
// injected so tests can substitute an in-memory repository; Notifier, Checkout
// and Lock are optional.
type DefaultBillingService struct {
	Repo     billingRepo.BillingRepository
	Cfg      config.BillingConfig
	Logger   *zap.Logger
	Notifier Notifier
	Checkout CheckoutLinker
	Lock     RunLock
}

func (s *DefaultBillingService) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// RunBilling executes one end-to-end billing run and blocks until it reaches a
// terminal state. The returned BillingRun carries the full failure ledger even
// when the run aborted; the error return is reserved for failures to start at
// all (invalid config, lock contention).
func (s *DefaultBillingService) RunBilling(ctx context.Context, opts RunOptions) (*models.BillingRun, error) {
	if err := s.Cfg.Validate(); err != nil {
		return nil, err
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	if s.Lock != nil {
		ok, err := s.Lock.Acquire(ctx, now)
		if err != nil {
			return nil, fmt.Errorf("billing run lock: %w", err)
		}
		if !ok {
			return nil, ErrRunInProgress
		}
		defer func() {
			if err := s.Lock.Release(context.Background(), now); err != nil {
				s.logger().Warn("failed to release billing run lock", zap.Error(err))
			}
		}()
	}

	run := &models.BillingRun{
		RunID:     uuid.New().String(),
		Status:    models.RunStatusRunning,
		DryRun:    opts.DryRun,
		StartedAt: now,
		Failures:  []models.RunFailure{},
	}

	s.logger().Info("billing run starting",
		zap.String("runId", run.RunID), zap.Bool("dryRun", opts.DryRun))

	m := runMachine{state: stateInitializeRun}
	for !m.state.terminal() {
		ev := s.perform(ctx, &m, run, opts, now)
		prev := m.state
		m = transition(m, ev, time.Now())
		s.logStep(opts.Verbose, run.RunID, prev, m.state)
	}

	run.InvoicesCreated = m.invoicesCreated
	run.LateFeesApplied = m.lateFeesApplied
	run.HoldsImposed = m.holdsImposed
	run.Failures = m.ledger
	run.CompletedAt = time.Now()

	if m.state == stateFatalError {
		// completeRun never ran; persist whatever was gathered before the abort.
		run.Status = models.RunStatusFatal
		if err := s.Repo.FinalizeRun(ctx, run); err != nil {
			s.logger().Error("failed to finalize aborted billing run",
				zap.String("runId", run.RunID), zap.Error(err))
		}
	}

	s.logger().Info("billing run finished",
		zap.String("runId", run.RunID),
		zap.String("status", run.Status),
		zap.Int("invoicesCreated", run.InvoicesCreated),
		zap.Int("lateFeesApplied", run.LateFeesApplied),
		zap.Int("failures", len(run.Failures)),
	)
	return run, nil
}

func (s *DefaultBillingService) logStep(verbose bool, runID string, from, to runState) {
	fields := []zap.Field{
		zap.String("runId", runID),
		zap.Stringer("from", from),
		zap.Stringer("to", to),
	}
	if verbose {
		s.logger().Info("billing run transition", fields...)
	} else {
		s.logger().Debug("billing run transition", fields...)
	}
}

// perform executes the side effect of the machine's current state and reports
// the outcome. Guard and increment states have no effect and always succeed.
func (s *DefaultBillingService) perform(ctx context.Context, m *runMachine, run *models.BillingRun, opts RunOptions, now time.Time) stepEvent {
	switch m.state {
	case stateInitializeRun:
		if err := s.Repo.CreateRun(ctx, run); err != nil {
			return stepEvent{phase: models.PhaseInitialize, subject: run.RunID,
				failure: Classify(models.PhaseInitialize, run.RunID, err)}
		}
		retries, failure := s.withRetry(ctx, models.PhaseInitialize, run.RunID, func() error {
			var err error
			m.reservations, err = s.Repo.UnbilledReservations(ctx)
			return err
		})
		return stepEvent{phase: models.PhaseInitialize, subject: run.RunID, retries: retries, failure: failure}

	case stateCalculateCharges:
		res := m.reservations[m.resIdx]
		var user *models.User
		retries, failure := s.withRetry(ctx, models.PhaseCalculate, res.ID, func() error {
			var err error
			user, err = s.Repo.GetUserByID(ctx, res.UserID)
			return err
		})
		if failure != nil {
			return stepEvent{phase: models.PhaseCalculate, subject: res.ID, retries: retries, failure: failure}
		}
		draft, err := CalculateCharges(res, user, s.Cfg, now)
		if err != nil {
			return stepEvent{phase: models.PhaseCalculate, subject: res.ID,
				failure: Classify(models.PhaseCalculate, res.ID, err)}
		}
		m.draft = draft
		return stepEvent{phase: models.PhaseCalculate, subject: res.ID}

	case statePersistInvoice:
		res := m.reservations[m.resIdx]
		retries, failure := s.persistInvoice(ctx, m.draft, opts.DryRun)
		if failure == nil {
			m.invoicesCreated++
		}
		return stepEvent{phase: models.PhasePersistInvoice, subject: res.ID, retries: retries, failure: failure}

	case stateSweepOverdueInvoices:
		retries, failure := s.withRetry(ctx, models.PhaseSweepOverdue, run.RunID, func() error {
			var err error
			m.overdue, err = s.Repo.OverdueInvoices(ctx, now)
			return err
		})
		return stepEvent{phase: models.PhaseSweepOverdue, subject: run.RunID, retries: retries, failure: failure}

	case stateApplyLateFee:
		inv := m.overdue[m.overIdx]
		updated, feeAdded, retries, failure := s.applyLateFee(ctx, inv, opts.DryRun)
		if failure == nil {
			m.overdue[m.overIdx] = updated
			if feeAdded {
				m.lateFeesApplied++
			}
		}
		return stepEvent{phase: models.PhaseApplyLateFee, subject: inv.InvoiceID, retries: retries, failure: failure}

	case stateRecalcHold:
		userID := m.overdue[m.overIdx].UserID
		hold, retries, failure := s.recalcHold(ctx, userID, opts.DryRun)
		if failure == nil && hold {
			if m.heldUsers == nil {
				m.heldUsers = map[string]struct{}{}
			}
			if _, counted := m.heldUsers[userID]; !counted {
				m.heldUsers[userID] = struct{}{}
				m.holdsImposed++
			}
		}
		return stepEvent{phase: models.PhaseRecalcHold, subject: userID, retries: retries, failure: failure}

	case stateRecordFailure:
		s.logger().Warn("billing step failed, continuing with next item",
			zap.String("phase", m.pending.Phase),
			zap.String("subject", m.pending.SubjectID),
			zap.String("kind", m.pending.Kind),
			zap.Int("retries", m.pending.RetryCount),
			zap.String("message", m.pending.Message),
		)
		return stepEvent{phase: m.pending.Phase, subject: m.pending.SubjectID}

	case stateCompleteRun:
		run.Status = m.summaryStatus()
		run.InvoicesCreated = m.invoicesCreated
		run.LateFeesApplied = m.lateFeesApplied
		run.HoldsImposed = m.holdsImposed
		run.Failures = m.ledger
		retries, failure := s.withRetry(ctx, models.PhaseCompleteRun, run.RunID, func() error {
			return s.Repo.FinalizeRun(ctx, run)
		})
		return stepEvent{phase: models.PhaseCompleteRun, subject: run.RunID, retries: retries, failure: failure}

	default:
		// Guard and increment states are pure; the transition does the work.
		return stepEvent{}
	}
}

// GetRun fetches one billing run record for operator inspection.
func (s *DefaultBillingService) GetRun(ctx context.Context, runID string) (*models.BillingRun, error) {
	return s.Repo.GetRunByID(ctx, runID)
}

// LatestRun fetches the most recently started billing run.
func (s *DefaultBillingService) LatestRun(ctx context.Context) (*models.BillingRun, error) {
	return s.Repo.LatestRun(ctx)
}
