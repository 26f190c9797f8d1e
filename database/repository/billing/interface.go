package billingRepo

import (
	"context"
	"errors"
	"time"

	"nestly/models"
)

// Sentinel errors surfaced by the repository for outcomes the engine must
// distinguish from plain store failures.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyBilled = errors.New("reservation already billed")
)

// BillingRepository is the store contract the billing engine consumes. The run
// coordinator receives it at construction so tests can substitute an in-memory
// fake.
type BillingRepository interface {
	// Pass A reads.
	UnbilledReservations(ctx context.Context) ([]models.Reservation, error)
	GetUserByID(ctx context.Context, userID string) (*models.User, error)

	// PersistInvoice creates the invoice and flips the source reservation's
	// billed flag as one transaction; neither write applies if either fails.
	PersistInvoice(ctx context.Context, inv *models.Invoice) error
	SetInvoiceCheckoutURL(ctx context.Context, invoiceID, url string) error

	// Pass B.
	OverdueInvoices(ctx context.Context, now time.Time) ([]models.Invoice, error)
	// UpdateInvoiceLineItems writes the invoice's line items, recomputed totals
	// and status as a single document update.
	UpdateInvoiceLineItems(ctx context.Context, inv *models.Invoice) error
	CountOutstandingInvoices(ctx context.Context, userID string) (int, error)
	SetPaymentHold(ctx context.Context, userID string, hold bool) error

	// Run records.
	CreateRun(ctx context.Context, run *models.BillingRun) error
	FinalizeRun(ctx context.Context, run *models.BillingRun) error
	GetRunByID(ctx context.Context, runID string) (*models.BillingRun, error)
	LatestRun(ctx context.Context) (*models.BillingRun, error)
}
