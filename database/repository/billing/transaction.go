package billingRepo

import (
	"context"
	"fmt"
	"time"

	"nestly/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// PersistInvoice inserts the invoice and marks its source reservation billed in
// a single mongo transaction. The reservation filter requires billed=false, so
// a concurrently triggered run that already committed this reservation makes
// the transaction abort with ErrAlreadyBilled instead of double billing.
func (repo *MongoBillingRepo) PersistInvoice(ctx context.Context, inv *models.Invoice) error {
	client := repo.invoiceColl.Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	txnFn := func(sc mongo.SessionContext) error {
		if _, err := repo.invoiceColl.InsertOne(sc, inv); err != nil {
			return fmt.Errorf("insert invoice failed: %w", err)
		}

		filter := bson.M{"id": inv.ReservationID, "billed": false}
		update := bson.M{"$set": bson.M{"billed": true}}
		res, err := repo.reservationColl.UpdateOne(sc, filter, update)
		if err != nil {
			return fmt.Errorf("mark reservation billed failed: %w", err)
		}
		if res.MatchedCount == 0 {
			return ErrAlreadyBilled
		}
		return nil
	}

	if err := mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(); err != nil {
			return err
		}
		if err := txnFn(sc); err != nil {
			_ = sc.AbortTransaction(sc)
			return err
		}
		return sc.CommitTransaction(sc)
	}); err != nil {
		return fmt.Errorf("invoice transaction for reservation %s: %w", inv.ReservationID, err)
	}

	return nil
}

// UpdateInvoiceLineItems writes the invoice's line items, recomputed scalar
// totals and status in one document update, so the late-fee append and the
// status flip are atomic.
func (repo *MongoBillingRepo) UpdateInvoiceLineItems(ctx context.Context, inv *models.Invoice) error {
	filter := bson.M{"invoice_id": inv.InvoiceID}
	update := bson.M{
		"$set": bson.M{
			"line_items":     inv.LineItems,
			"subtotal_cents": inv.SubtotalCents,
			"tax_cents":      inv.TaxCents,
			"total_cents":    inv.TotalCents,
			"status":         inv.Status,
			"updated_at":     time.Now(),
		},
	}
	res, err := repo.invoiceColl.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("error updating invoice %s: %w", inv.InvoiceID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("invoice %s: %w", inv.InvoiceID, ErrNotFound)
	}
	return nil
}
