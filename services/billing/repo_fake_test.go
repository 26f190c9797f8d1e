package billing

import (
	"context"
	"fmt"
	"sync"
	"time"

	billingRepo "nestly/database/repository/billing"
	"nestly/models"
)

// fakeRepo is an in-memory BillingRepository with per-reservation fault
// injection for persist calls.
type fakeRepo struct {
	mu sync.Mutex

	reservations []*models.Reservation
	users        map[string]*models.User
	invoices     map[string]*models.Invoice
	runs         map[string]*models.BillingRun

	// persistErrs queues errors returned by PersistInvoice per reservation id;
	// each call pops one until the queue is empty.
	persistErrs map[string][]error
	overdueErr  error

	sweepCalled  bool
	persistCalls int
	updateCalls  int
	holdCalls    int
	checkoutURLs map[string]string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:        map[string]*models.User{},
		invoices:     map[string]*models.Invoice{},
		runs:         map[string]*models.BillingRun{},
		persistErrs:  map[string][]error{},
		checkoutURLs: map[string]string{},
	}
}

func (f *fakeRepo) UnbilledReservations(ctx context.Context) ([]models.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Reservation
	for _, r := range f.reservations {
		if !r.Billed && r.Status == models.ReservationStatusLocked {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, billingRepo.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (f *fakeRepo) PersistInvoice(ctx context.Context, inv *models.Invoice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.persistCalls++

	if queue := f.persistErrs[inv.ReservationID]; len(queue) > 0 {
		err := queue[0]
		f.persistErrs[inv.ReservationID] = queue[1:]
		return err
	}

	for _, r := range f.reservations {
		if r.ID == inv.ReservationID {
			if r.Billed {
				return billingRepo.ErrAlreadyBilled
			}
			r.Billed = true
			cp := *inv
			f.invoices[inv.InvoiceID] = &cp
			return nil
		}
	}
	return billingRepo.ErrAlreadyBilled
}

func (f *fakeRepo) SetInvoiceCheckoutURL(ctx context.Context, invoiceID, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checkoutURLs[invoiceID] = url
	if inv, ok := f.invoices[invoiceID]; ok {
		inv.CheckoutURL = url
	}
	return nil
}

func (f *fakeRepo) OverdueInvoices(ctx context.Context, now time.Time) ([]models.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sweepCalled = true
	if f.overdueErr != nil {
		return nil, f.overdueErr
	}
	var out []models.Invoice
	for _, inv := range f.invoices {
		if inv.Status == models.InvoiceStatusUnpaid && inv.DueDate.Before(now) {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (f *fakeRepo) UpdateInvoiceLineItems(ctx context.Context, inv *models.Invoice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	stored, ok := f.invoices[inv.InvoiceID]
	if !ok {
		return fmt.Errorf("invoice %s: %w", inv.InvoiceID, billingRepo.ErrNotFound)
	}
	stored.LineItems = inv.LineItems
	stored.SubtotalCents = inv.SubtotalCents
	stored.TaxCents = inv.TaxCents
	stored.TotalCents = inv.TotalCents
	stored.Status = inv.Status
	return nil
}

func (f *fakeRepo) CountOutstandingInvoices(ctx context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, inv := range f.invoices {
		if inv.UserID != userID {
			continue
		}
		if inv.Status == models.InvoiceStatusUnpaid || inv.Status == models.InvoiceStatusLate {
			count++
		}
	}
	return count, nil
}

func (f *fakeRepo) SetPaymentHold(ctx context.Context, userID string, hold bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.holdCalls++
	u, ok := f.users[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID, billingRepo.ErrNotFound)
	}
	u.PaymentHold = hold
	return nil
}

func (f *fakeRepo) CreateRun(ctx context.Context, run *models.BillingRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *run
	f.runs[run.RunID] = &cp
	return nil
}

func (f *fakeRepo) FinalizeRun(ctx context.Context, run *models.BillingRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.runs[run.RunID]
	if !ok || stored.Status != models.RunStatusRunning {
		return fmt.Errorf("billing run %s not running: %w", run.RunID, billingRepo.ErrNotFound)
	}
	cp := *run
	cp.CompletedAt = time.Now()
	f.runs[run.RunID] = &cp
	return nil
}

func (f *fakeRepo) GetRunByID(ctx context.Context, runID string) (*models.BillingRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[runID]
	if !ok {
		return nil, fmt.Errorf("billing run %s: %w", runID, billingRepo.ErrNotFound)
	}
	cp := *run
	return &cp, nil
}

func (f *fakeRepo) LatestRun(ctx context.Context) (*models.BillingRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *models.BillingRun
	for _, run := range f.runs {
		if latest == nil || run.StartedAt.After(latest.StartedAt) {
			latest = run
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("no billing runs: %w", billingRepo.ErrNotFound)
	}
	cp := *latest
	return &cp, nil
}

// fakeLock implements RunLock in memory.
type fakeLock struct {
	mu   sync.Mutex
	held bool
}

func (l *fakeLock) Acquire(ctx context.Context, day time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return false, nil
	}
	l.held = true
	return true, nil
}

func (l *fakeLock) Release(ctx context.Context, day time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	return nil
}
