package billing

import (
	"time"

	"nestly/models"
)

// runState enumerates the coordinator's states. The machine walks two strictly
// sequential passes: reservations to invoices, then overdue invoices to late
// fees and hold recomputations.
type runState int

const (
	stateInitializeRun runState = iota
	stateNextReservation
	stateCalculateCharges
	statePersistInvoice
	stateIncrementRes
	stateCompleteReservationPass
	stateSweepOverdueInvoices
	stateNextOverdue
	stateApplyLateFee
	stateRecalcHold
	stateIncrementOver
	stateRecordFailure
	stateCompleteRun
	stateDone
	stateFatalError
)

func (s runState) String() string {
	switch s {
	case stateInitializeRun:
		return "initializeRun"
	case stateNextReservation:
		return "nextReservation"
	case stateCalculateCharges:
		return "calculateCharges"
	case statePersistInvoice:
		return "persistInvoice"
	case stateIncrementRes:
		return "incrementRes"
	case stateCompleteReservationPass:
		return "completeReservationPass"
	case stateSweepOverdueInvoices:
		return "sweepOverdueInvoices"
	case stateNextOverdue:
		return "nextOverdue"
	case stateApplyLateFee:
		return "applyLateFee"
	case stateRecalcHold:
		return "recalcHold"
	case stateIncrementOver:
		return "incrementOver"
	case stateRecordFailure:
		return "recordFailure"
	case stateCompleteRun:
		return "completeRun"
	case stateDone:
		return "done"
	case stateFatalError:
		return "fatalError"
	default:
		return "unknown"
	}
}

func (s runState) terminal() bool {
	return s == stateDone || s == stateFatalError
}

// stepEvent is the outcome the interpreter feeds back after performing the
// side effect of the current state. A nil failure means the step succeeded.
type stepEvent struct {
	failure *Error
	phase   string
	subject string
	retries int
}

// runMachine is the coordinator's full state. The interpreter fills the data
// fields (reservations, overdue, draft, counters) while performing effects;
// transition only ever moves state and the ledger, and the ledger is updated by
// immutable append so each machine value is an independent snapshot.
type runMachine struct {
	state runState

	reservations []models.Reservation
	overdue      []models.Invoice
	resIdx       int
	overIdx      int

	draft *models.Invoice // Flows from calculateCharges into persistInvoice.

	// Counters maintained by the interpreter as effects succeed. Holds are
	// counted once per user; heldUsers tracks who was already counted so a
	// user with several overdue invoices records a single hold.
	invoicesCreated int
	lateFeesApplied int
	holdsImposed    int
	heldUsers       map[string]struct{}

	// Failure captured by the last event, consumed by recordFailure.
	pending models.RunFailure
	resume  runState // Loop re-entry point after recordFailure.

	ledger []models.RunFailure
}

func appendFailure(ledger []models.RunFailure, f models.RunFailure) []models.RunFailure {
	out := make([]models.RunFailure, len(ledger), len(ledger)+1)
	copy(out, ledger)
	return append(out, f)
}

func failureEntry(ev stepEvent, now time.Time) models.RunFailure {
	return models.RunFailure{
		Timestamp:  now,
		Phase:      ev.phase,
		SubjectID:  ev.subject,
		Kind:       string(ev.failure.Kind),
		Message:    ev.failure.Error(),
		Retryable:  ev.failure.Retryable,
		RetryCount: ev.retries,
	}
}

// transition is the pure (state, event) -> state function. Every failure is
// appended to the ledger before the state that discards it is left, so the
// ledger is a complete post-mortem record even for aborted runs.
func transition(m runMachine, ev stepEvent, now time.Time) runMachine {
	if ev.failure != nil {
		entry := failureEntry(ev, now)
		if ev.failure.Critical() {
			m.ledger = appendFailure(m.ledger, entry)
			m.state = stateFatalError
			return m
		}
		switch m.state {
		case stateInitializeRun, stateSweepOverdueInvoices, stateCompleteRun:
			// Failures outside the per-item loops abort the run regardless of kind.
			m.ledger = appendFailure(m.ledger, entry)
			m.state = stateFatalError
			return m
		case stateCalculateCharges, statePersistInvoice:
			m.pending = entry
			m.resume = stateIncrementRes
			m.state = stateRecordFailure
			return m
		default:
			m.pending = entry
			m.resume = stateIncrementOver
			m.state = stateRecordFailure
			return m
		}
	}

	switch m.state {
	case stateInitializeRun:
		m.state = stateNextReservation
	case stateNextReservation:
		if m.resIdx >= len(m.reservations) {
			m.state = stateCompleteReservationPass
		} else {
			m.state = stateCalculateCharges
		}
	case stateCalculateCharges:
		m.state = statePersistInvoice
	case statePersistInvoice:
		m.draft = nil
		m.state = stateIncrementRes
	case stateIncrementRes:
		m.resIdx++
		m.state = stateNextReservation
	case stateCompleteReservationPass:
		m.state = stateSweepOverdueInvoices
	case stateSweepOverdueInvoices:
		m.state = stateNextOverdue
	case stateNextOverdue:
		if m.overIdx >= len(m.overdue) {
			m.state = stateCompleteRun
		} else {
			m.state = stateApplyLateFee
		}
	case stateApplyLateFee:
		m.state = stateRecalcHold
	case stateRecalcHold:
		m.state = stateIncrementOver
	case stateIncrementOver:
		m.overIdx++
		m.state = stateNextOverdue
	case stateRecordFailure:
		// The offending item is abandoned; the loop resumes at the next index.
		m.ledger = appendFailure(m.ledger, m.pending)
		m.pending = models.RunFailure{}
		m.draft = nil
		m.state = m.resume
	case stateCompleteRun:
		m.state = stateDone
	}
	return m
}

// summaryStatus maps a finished machine to the run's terminal status.
func (m runMachine) summaryStatus() string {
	if m.state == stateFatalError {
		return models.RunStatusFatal
	}
	if len(m.ledger) > 0 {
		return models.RunStatusPartial
	}
	return models.RunStatusSuccess
}
