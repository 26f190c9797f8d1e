package billingRepo

import (
	"context"
	"fmt"
	"time"

	"nestly/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UnbilledReservations fetches locked reservations that have not been billed
// yet, oldest first so the failure ledger ordering is stable across runs.
func (repo *MongoBillingRepo) UnbilledReservations(ctx context.Context) ([]models.Reservation, error) {
	filter := bson.M{
		"billed": false,
		"status": models.ReservationStatusLocked,
	}
	opts := options.Find().SetSort(bson.D{{Key: "start", Value: 1}})
	cursor, err := repo.reservationColl.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error fetching unbilled reservations: %w", err)
	}
	defer cursor.Close(ctx)

	var reservations []models.Reservation
	for cursor.Next(ctx) {
		var r models.Reservation
		if err := cursor.Decode(&r); err != nil {
			return nil, fmt.Errorf("error decoding reservation: %w", err)
		}
		reservations = append(reservations, r)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return reservations, nil
}

// OverdueInvoices fetches unpaid invoices whose due date is strictly before now.
// An empty result is a normal outcome, not an error.
func (repo *MongoBillingRepo) OverdueInvoices(ctx context.Context, now time.Time) ([]models.Invoice, error) {
	filter := bson.M{
		"status":   models.InvoiceStatusUnpaid,
		"due_date": bson.M{"$lt": now},
	}
	opts := options.Find().SetSort(bson.D{{Key: "due_date", Value: 1}})
	cursor, err := repo.invoiceColl.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error fetching overdue invoices: %w", err)
	}
	defer cursor.Close(ctx)

	var invoices []models.Invoice
	for cursor.Next(ctx) {
		var inv models.Invoice
		if err := cursor.Decode(&inv); err != nil {
			return nil, fmt.Errorf("error decoding invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return invoices, nil
}

// CountOutstandingInvoices counts a user's invoices with status unpaid or late.
func (repo *MongoBillingRepo) CountOutstandingInvoices(ctx context.Context, userID string) (int, error) {
	filter := bson.M{
		"user_id": userID,
		"status":  bson.M{"$in": bson.A{models.InvoiceStatusUnpaid, models.InvoiceStatusLate}},
	}
	count, err := repo.invoiceColl.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("error counting outstanding invoices for user %s: %w", userID, err)
	}
	return int(count), nil
}
