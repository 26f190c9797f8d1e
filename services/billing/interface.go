package billing

import (
	"context"
	"errors"
	"time"

	"nestly/models"
)

// ErrRunInProgress is returned when the run lock is already held for the day.
var ErrRunInProgress = errors.New("a billing run is already in progress")

// RunOptions selects per-invocation behavior of a billing run.
type RunOptions struct {
	// DryRun suppresses all writes in the persister, late-fee applier and hold
	// recalculator, logging the intended write instead.
	DryRun bool
	// Verbose raises per-step logging to info level.
	Verbose bool
	// Now overrides the run's reference time; zero means wall clock.
	Now time.Time
}

// BillingService drives billing runs and exposes run records for inspection.
type BillingService interface {
	RunBilling(ctx context.Context, opts RunOptions) (*models.BillingRun, error)
	GetRun(ctx context.Context, runID string) (*models.BillingRun, error)
	LatestRun(ctx context.Context) (*models.BillingRun, error)
}

// Notifier is the narrow interface to the notification sink. Implementations
// must tolerate being called best-effort; errors are logged and dropped.
type Notifier interface {
	SendUserPush(ctx context.Context, userID, title, body string, data map[string]string) error
}

// CheckoutLinker is the narrow interface to the payment gateway's checkout
// link creation.
type CheckoutLinker interface {
	CreateCheckoutLink(ctx context.Context, inv *models.Invoice) (string, error)
}

// RunLock serializes billing runs for a given day so a re-triggered run cannot
// double-select unbilled reservations.
type RunLock interface {
	Acquire(ctx context.Context, day time.Time) (bool, error)
	Release(ctx context.Context, day time.Time) error
}
