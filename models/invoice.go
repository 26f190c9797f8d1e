package models

import "time"

// Invoice status values. Transitions are unpaid -> late (overdue sweep),
// unpaid/late -> paid (payment webhook), or -> cancelled.
const (
	InvoiceStatusUnpaid    = "unpaid"
	InvoiceStatusLate      = "late"
	InvoiceStatusPaid      = "paid"
	InvoiceStatusConfirmed = "confirmed"
	InvoiceStatusCancelled = "cancelled"
)

// Line item tags.
const (
	LineItemBase       = "BASE"
	LineItemLatePickup = "LATE_PICKUP"
	LineItemLateFee    = "LATE_FEE"
)

// LineItem is a single billable entry on an invoice. All amounts are integer cents.
type LineItem struct {
	Tag             string `bson:"tag" json:"tag"`                          // BASE, LATE_PICKUP or LATE_FEE.
	Service         string `bson:"service" json:"service"`                  // Human-readable label.
	DurationMinutes int    `bson:"duration_minutes" json:"durationMinutes"` // Zero for flat fees.
	RateCents       int64  `bson:"rate_cents" json:"rateCents"`             // Hourly rate, zero for flat fees.
	SubtotalCents   int64  `bson:"subtotal_cents" json:"subtotalCents"`
}

// Invoice is generated from a completed reservation during a billing run.
// The user fields are a snapshot taken at invoice time so the invoice does not
// change if the user's profile is edited later.
type Invoice struct {
	InvoiceID     string     `bson:"invoice_id" json:"invoice_id"`
	ReservationID string     `bson:"reservation_id" json:"reservation_id"`
	UserID        string     `bson:"user_id" json:"user_id"`
	ChildID       string     `bson:"child_id" json:"child_id"`
	UserName      string     `bson:"user_name" json:"user_name"`
	UserPhone     string     `bson:"user_phone" json:"user_phone"`
	UserEmail     string     `bson:"user_email" json:"user_email"`
	LineItems     []LineItem `bson:"line_items" json:"line_items"`
	SubtotalCents int64      `bson:"subtotal_cents" json:"subtotal_cents"`
	TaxCents      int64      `bson:"tax_cents" json:"tax_cents"`
	TotalCents    int64      `bson:"total_cents" json:"total_cents"`
	DueDate       time.Time  `bson:"due_date" json:"due_date"`
	Status        string     `bson:"status" json:"status"`
	CheckoutURL   string     `bson:"checkout_url,omitempty" json:"checkout_url,omitempty"`
	CreatedAt     time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `bson:"updated_at" json:"updated_at"`
}

// HasLineItem reports whether the invoice already carries a line item with the
// given tag. Used for the late-fee idempotency check.
func (inv *Invoice) HasLineItem(tag string) bool {
	for _, li := range inv.LineItems {
		if li.Tag == tag {
			return true
		}
	}
	return false
}
