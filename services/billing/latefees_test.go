package billing

import (
	"testing"
	"time"

	"nestly/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func overdueInvoice() models.Invoice {
	inv := models.Invoice{
		InvoiceID:     "inv-1",
		ReservationID: "res-1",
		UserID:        "user-1",
		LineItems: []models.LineItem{{
			Tag:             models.LineItemBase,
			Service:         "Child care",
			DurationMinutes: 165,
			RateCents:       1500,
			SubtotalCents:   4125,
		}},
		Status:  models.InvoiceStatusUnpaid,
		DueDate: time.Now().AddDate(0, 0, -3),
	}
	recomputeTotals(&inv, 0.0675)
	return inv
}

func TestWithLateFee(t *testing.T) {
	cfg := testBillingConfig()
	inv := overdueInvoice()

	updated, added := WithLateFee(inv, cfg)
	require.True(t, added)
	assert.Equal(t, models.InvoiceStatusLate, updated.Status)
	require.Len(t, updated.LineItems, 2)
	assert.Equal(t, models.LineItemLateFee, updated.LineItems[1].Tag)
	assert.Equal(t, cfg.LateFeeLabel, updated.LineItems[1].Service)

	assert.Equal(t, int64(4125+1000), updated.SubtotalCents)
	assert.Equal(t, roundCents(float64(updated.SubtotalCents)*cfg.TaxRate), updated.TaxCents)
	assert.Equal(t, updated.SubtotalCents+updated.TaxCents, updated.TotalCents)

	// The input invoice is untouched.
	assert.Len(t, inv.LineItems, 1)
	assert.Equal(t, models.InvoiceStatusUnpaid, inv.Status)
}

func TestWithLateFee_Idempotent(t *testing.T) {
	cfg := testBillingConfig()
	inv := overdueInvoice()

	once, added := WithLateFee(inv, cfg)
	require.True(t, added)

	twice, added := WithLateFee(once, cfg)
	assert.False(t, added)
	assert.Equal(t, models.InvoiceStatusLate, twice.Status)

	fees := 0
	for _, li := range twice.LineItems {
		if li.Tag == models.LineItemLateFee {
			fees++
		}
	}
	assert.Equal(t, 1, fees)
	assert.Equal(t, once.SubtotalCents, twice.SubtotalCents)
	assert.Equal(t, once.TotalCents, twice.TotalCents)
}
