package billing

import (
	"testing"
	"time"

	"nestly/config"
	"nestly/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBillingConfig() config.BillingConfig {
	return config.BillingConfig{
		BaseRateCentsPerHour:       1500,
		DailyCapHours:              12,
		MinBillableMinutes:         120,
		MaxBillableMinutes:         0,
		GracePeriodMinutes:         5,
		RoundingGranularityMinutes: 15,
		LatePickupThresholdHours:   9,
		LatePickupSurchargeCents:   2500,
		LateFeeCents:               1000,
		LateFeeLabel:               "Late payment fee",
		TaxRate:                    0.0675,
		MaxAllowedUnpaid:           2,
		DueInDays:                  14,
		Currency:                   "usd",
	}
}

func testUser() *models.User {
	return &models.User{
		ID:    "user-1",
		Name:  "Alice Muthoni",
		Phone: "+254700000001",
		Email: "alice@example.com",
	}
}

func testReservation(start, end time.Time) models.Reservation {
	return models.Reservation{
		ID:      "res-1",
		UserID:  "user-1",
		ChildID: "child-1",
		Start:   start,
		End:     end,
		Status:  models.ReservationStatusLocked,
	}
}

func TestBillableMinutes(t *testing.T) {
	cfg := testBillingConfig()
	cfg.MinBillableMinutes = 0

	tests := []struct {
		name string
		raw  int
		want int
	}{
		{"exact boundary stays put", 15, 15},
		{"short overrun inside grace rounds down", 17, 15},
		{"overrun past grace bills full increment", 21, 30},
		{"zero remainder on larger stay", 120, 120},
		{"one minute past grace", 20, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BillableMinutes(tt.raw, cfg))
		})
	}
}

func TestBillableMinutes_ZeroGrace(t *testing.T) {
	cfg := testBillingConfig()
	cfg.MinBillableMinutes = 0
	cfg.GracePeriodMinutes = 0
	require.NoError(t, cfg.Validate())

	// Boundary stays never round up, even with no grace window.
	assert.Equal(t, 60, BillableMinutes(60, cfg))
	assert.Equal(t, 120, BillableMinutes(120, cfg))

	// Any overrun at all bills a full increment.
	assert.Equal(t, 75, BillableMinutes(61, cfg))
}

func TestBillableMinutes_MinimumFloor(t *testing.T) {
	cfg := testBillingConfig()

	// Shorter than the minimum always bills at the minimum.
	assert.Equal(t, 120, BillableMinutes(30, cfg))
	assert.Equal(t, 120, BillableMinutes(119, cfg))

	// The minimum is a hard floor even when an explicit maximum sits below it.
	cfg.MaxBillableMinutes = 60
	assert.Equal(t, 120, BillableMinutes(200, cfg))
}

func TestBillableMinutes_MaximumClamp(t *testing.T) {
	cfg := testBillingConfig()
	cfg.MaxBillableMinutes = 480

	assert.Equal(t, 480, BillableMinutes(600, cfg))
}

func TestCalculateCharges_Scenario(t *testing.T) {
	// 09:00-11:40 is 160 raw minutes; remainder 160%15=10 >= grace 5, so it
	// rounds up to 165 minutes = 2.75h.
	cfg := testBillingConfig()
	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	res := testReservation(day.Add(9*time.Hour), day.Add(11*time.Hour+40*time.Minute))

	inv, err := CalculateCharges(res, testUser(), cfg, day)
	require.NoError(t, err)

	require.Len(t, inv.LineItems, 1)
	assert.Equal(t, models.LineItemBase, inv.LineItems[0].Tag)
	assert.Equal(t, 165, inv.LineItems[0].DurationMinutes)
	assert.Equal(t, int64(4125), inv.SubtotalCents)
	assert.Equal(t, int64(278), inv.TaxCents)
	assert.Equal(t, int64(4403), inv.TotalCents)

	assert.Equal(t, models.InvoiceStatusUnpaid, inv.Status)
	assert.Equal(t, day.AddDate(0, 0, cfg.DueInDays), inv.DueDate)
	assert.Equal(t, "Alice Muthoni", inv.UserName)
	assert.Equal(t, "res-1", inv.ReservationID)
}

func TestCalculateCharges_LatePickupSurcharge(t *testing.T) {
	cfg := testBillingConfig()
	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	// 07:00-16:30 is 9.5h, past the 9h late-pickup threshold.
	res := testReservation(day.Add(7*time.Hour), day.Add(16*time.Hour+30*time.Minute))

	inv, err := CalculateCharges(res, testUser(), cfg, day)
	require.NoError(t, err)

	require.Len(t, inv.LineItems, 2)
	assert.Equal(t, models.LineItemBase, inv.LineItems[0].Tag)
	assert.Equal(t, models.LineItemLatePickup, inv.LineItems[1].Tag)
	assert.Equal(t, cfg.LatePickupSurchargeCents, inv.LineItems[1].SubtotalCents)

	// Totals invariant holds with the surcharge included.
	var sum int64
	for _, li := range inv.LineItems {
		sum += li.SubtotalCents
	}
	assert.Equal(t, sum, inv.SubtotalCents)
	assert.Equal(t, inv.SubtotalCents+inv.TaxCents, inv.TotalCents)
}

func TestCalculateCharges_OverrideTotal(t *testing.T) {
	cfg := testBillingConfig()
	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	res := testReservation(day.Add(9*time.Hour), day.Add(12*time.Hour))
	override := int64(9999)
	res.OverrideTotalCents = &override

	inv, err := CalculateCharges(res, testUser(), cfg, day)
	require.NoError(t, err)

	assert.Equal(t, int64(9999), inv.LineItems[0].SubtotalCents)
	assert.Equal(t, int64(9999), inv.SubtotalCents)
	assert.Equal(t, roundCents(9999*cfg.TaxRate), inv.TaxCents)
}

func TestCalculateCharges_Validation(t *testing.T) {
	cfg := testBillingConfig()
	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)

	t.Run("inverted interval", func(t *testing.T) {
		res := testReservation(day.Add(11*time.Hour), day.Add(9*time.Hour))
		_, err := CalculateCharges(res, testUser(), cfg, day)
		var be *Error
		require.ErrorAs(t, err, &be)
		assert.Equal(t, KindValidation, be.Kind)
		assert.False(t, be.Retryable)
	})

	t.Run("missing child reference", func(t *testing.T) {
		res := testReservation(day.Add(9*time.Hour), day.Add(11*time.Hour))
		res.ChildID = ""
		_, err := CalculateCharges(res, testUser(), cfg, day)
		var be *Error
		require.ErrorAs(t, err, &be)
		assert.Equal(t, KindValidation, be.Kind)
	})

	t.Run("daily cap exceeded", func(t *testing.T) {
		res := testReservation(day.Add(6*time.Hour), day.Add(19*time.Hour))
		_, err := CalculateCharges(res, testUser(), cfg, day)
		var be *Error
		require.ErrorAs(t, err, &be)
		assert.Equal(t, KindBusinessLogic, be.Kind)
	})
}
