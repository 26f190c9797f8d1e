package models

import "time"

// Reservation statuses relevant to billing. Only locked reservations are
// eligible for invoicing.
const (
	ReservationStatusLocked    = "locked"
	ReservationStatusCancelled = "cancelled"
)

// Reservation is owned by the booking subsystem; the billing engine only reads
// it and flips the Billed flag, exactly once, inside the invoice transaction.
type Reservation struct {
	ID      string    `bson:"id" json:"id"`
	UserID  string    `bson:"user_id" json:"user_id"`
	ChildID string    `bson:"child_id" json:"child_id"`
	Start   time.Time `bson:"start" json:"start"`
	End     time.Time `bson:"end" json:"end"`
	Status  string    `bson:"status" json:"status"`
	Billed  bool      `bson:"billed" json:"billed"`

	// OverrideTotalCents bypasses computed pricing when set (admin escape hatch).
	OverrideTotalCents *int64 `bson:"override_total_cents,omitempty" json:"override_total_cents,omitempty"`
}
