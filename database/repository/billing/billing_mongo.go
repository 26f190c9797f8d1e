package billingRepo

import (
	"context"
	"fmt"
	"time"

	"nestly/database"
	"nestly/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoBillingRepo implements BillingRepository using MongoDB.
type MongoBillingRepo struct {
	reservationColl *mongo.Collection
	invoiceColl     *mongo.Collection
	userColl        *mongo.Collection
	runColl         *mongo.Collection
}

// NewMongoBillingRepo constructs a new instance of MongoBillingRepo.
func NewMongoBillingRepo() BillingRepository {
	db := database.MongoClient.Database("nestly")
	return &MongoBillingRepo{
		reservationColl: db.Collection("reservations"),
		invoiceColl:     db.Collection("invoices"),
		userColl:        db.Collection("users"),
		runColl:         db.Collection("billing_runs"),
	}
}

// GetUserByID retrieves a user document by ID.
func (repo *MongoBillingRepo) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	filter := bson.M{"id": userID}
	if err := repo.userColl.FindOne(ctx, filter).Decode(&user); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("error fetching user with id %s: %w", userID, err)
	}
	return &user, nil
}

// SetInvoiceCheckoutURL attaches a payment link to an already persisted invoice.
func (repo *MongoBillingRepo) SetInvoiceCheckoutURL(ctx context.Context, invoiceID, url string) error {
	filter := bson.M{"invoice_id": invoiceID}
	update := bson.M{"$set": bson.M{"checkout_url": url, "updated_at": time.Now()}}
	if _, err := repo.invoiceColl.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("error setting checkout url on invoice %s: %w", invoiceID, err)
	}
	return nil
}

// SetPaymentHold writes the recomputed payment-hold flag on a user document.
func (repo *MongoBillingRepo) SetPaymentHold(ctx context.Context, userID string, hold bool) error {
	filter := bson.M{"id": userID}
	update := bson.M{"$set": bson.M{"payment_hold": hold, "updated_at": time.Now()}}
	res, err := repo.userColl.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("error updating payment hold for user %s: %w", userID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	return nil
}
