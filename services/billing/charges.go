package billing

import (
	"errors"
	"fmt"
	"math"
	"time"

	"nestly/config"
	"nestly/models"

	"github.com/google/uuid"
)

// CalculateCharges turns a completed reservation into an unpersisted invoice.
// Pure function: no side effects, safe to retry. The user argument is the
// profile snapshot denormalized onto the invoice.
func CalculateCharges(res models.Reservation, user *models.User, cfg config.BillingConfig, now time.Time) (*models.Invoice, error) {
	if res.ID == "" || res.UserID == "" || res.ChildID == "" {
		return nil, newError(KindValidation, models.PhaseCalculate, res.ID,
			errors.New("reservation is missing required fields"))
	}
	if res.Start.IsZero() || res.End.IsZero() || !res.Start.Before(res.End) {
		return nil, newError(KindValidation, models.PhaseCalculate, res.ID,
			fmt.Errorf("invalid reservation interval %v..%v", res.Start, res.End))
	}

	rawMinutes := int(res.End.Sub(res.Start).Minutes())
	if cfg.DailyCapHours > 0 && rawMinutes > cfg.DailyCapHours*60 {
		return nil, newError(KindBusinessLogic, models.PhaseCalculate, res.ID,
			fmt.Errorf("reservation of %d minutes exceeds the daily cap of %d hours", rawMinutes, cfg.DailyCapHours))
	}

	billable := BillableMinutes(rawMinutes, cfg)
	hours := float64(billable) / 60

	base := roundCents(hours * float64(cfg.BaseRateCentsPerHour))
	if res.OverrideTotalCents != nil {
		base = *res.OverrideTotalCents
	}

	items := []models.LineItem{{
		Tag:             models.LineItemBase,
		Service:         "Child care",
		DurationMinutes: billable,
		RateCents:       cfg.BaseRateCentsPerHour,
		SubtotalCents:   base,
	}}
	if hours > cfg.LatePickupThresholdHours {
		items = append(items, models.LineItem{
			Tag:           models.LineItemLatePickup,
			Service:       "Late pickup surcharge",
			SubtotalCents: cfg.LatePickupSurchargeCents,
		})
	}

	inv := &models.Invoice{
		InvoiceID:     uuid.New().String(),
		ReservationID: res.ID,
		UserID:        res.UserID,
		ChildID:       res.ChildID,
		UserName:      user.Name,
		UserPhone:     user.Phone,
		UserEmail:     user.Email,
		LineItems:     items,
		DueDate:       now.AddDate(0, 0, cfg.DueInDays),
		Status:        models.InvoiceStatusUnpaid,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	recomputeTotals(inv, cfg.TaxRate)
	return inv, nil
}

// BillableMinutes applies the floor, cap and rounding rules to a raw duration.
// The minimum is a hard floor: it wins even over an explicit maximum below it.
// Rounding: a remainder inside the grace window rounds down to the previous
// granularity boundary, anything past it bills a full extra increment.
func BillableMinutes(rawMinutes int, cfg config.BillingConfig) int {
	billable := rawMinutes
	if cfg.MaxBillableMinutes > 0 && billable > cfg.MaxBillableMinutes {
		billable = cfg.MaxBillableMinutes
	}
	if billable < cfg.MinBillableMinutes {
		billable = cfg.MinBillableMinutes
	}

	// A stay exactly on a boundary stays put regardless of the grace window.
	remainder := billable % cfg.RoundingGranularityMinutes
	if remainder == 0 || remainder < cfg.GracePeriodMinutes {
		return billable - remainder
	}
	return billable + cfg.RoundingGranularityMinutes - remainder
}

// recomputeTotals rewrites the invoice's scalar totals from its line-item set.
// Invariants: subtotal is the sum of line item subtotals, tax is the rounded
// product of subtotal and the tax rate, total is their sum.
func recomputeTotals(inv *models.Invoice, taxRate float64) {
	var subtotal int64
	for _, li := range inv.LineItems {
		subtotal += li.SubtotalCents
	}
	inv.SubtotalCents = subtotal
	inv.TaxCents = roundCents(float64(subtotal) * taxRate)
	inv.TotalCents = inv.SubtotalCents + inv.TaxCents
}

func roundCents(x float64) int64 {
	return int64(math.Round(x))
}
