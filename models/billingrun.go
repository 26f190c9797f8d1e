package models

import "time"

// Billing run terminal statuses. A run is "running" until finalized.
const (
	RunStatusRunning = "running"
	RunStatusSuccess = "success"
	RunStatusPartial = "partial"
	RunStatusFatal   = "fatal"
)

// Run phases recorded on failure ledger entries.
const (
	PhaseInitialize     = "initializeRun"
	PhaseCalculate      = "calculateCharges"
	PhasePersistInvoice = "persistInvoice"
	PhaseSweepOverdue   = "sweepOverdueInvoices"
	PhaseApplyLateFee   = "applyLateFee"
	PhaseRecalcHold     = "recalcHold"
	PhaseCompleteRun    = "completeRun"
)

// RunFailure is one entry in a billing run's failure ledger.
type RunFailure struct {
	Timestamp  time.Time `bson:"timestamp" json:"timestamp"`
	Phase      string    `bson:"phase" json:"phase"`
	SubjectID  string    `bson:"subject_id" json:"subject_id"` // Reservation, invoice or user id.
	Kind       string    `bson:"kind" json:"kind"`
	Message    string    `bson:"message" json:"message"`
	Retryable  bool      `bson:"retryable" json:"retryable"`
	RetryCount int       `bson:"retry_count" json:"retry_count"`
}

// BillingRun is the persisted record of one end-to-end billing execution.
// It is created at run start and finalized exactly once; a fatal run still
// carries every failure gathered before the abort.
type BillingRun struct {
	RunID           string       `bson:"run_id" json:"run_id"`
	Status          string       `bson:"status" json:"status"`
	DryRun          bool         `bson:"dry_run" json:"dry_run"`
	StartedAt       time.Time    `bson:"started_at" json:"started_at"`
	CompletedAt     time.Time    `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	InvoicesCreated int          `bson:"invoices_created" json:"invoices_created"`
	LateFeesApplied int          `bson:"late_fees_applied" json:"late_fees_applied"`
	HoldsImposed    int          `bson:"holds_imposed" json:"holds_imposed"`
	Failures        []RunFailure `bson:"failures" json:"failures"`
}

// Succeeded reports whether the run reached a terminal state without aborting.
// Partial runs count as success at the trigger boundary; the ledger carries the detail.
func (r *BillingRun) Succeeded() bool {
	return r.Status == RunStatusSuccess || r.Status == RunStatusPartial
}
