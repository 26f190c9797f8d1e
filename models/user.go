package models

import "time"

// User is the billing engine's view of an account holder. The registration and
// profile subsystems own the rest of the document; only PaymentHold is written
// from here, and always as a full recomputation.
type User struct {
	ID          string    `bson:"id" json:"id"`
	Name        string    `bson:"name" json:"name"`
	Phone       string    `bson:"phone" json:"phone"`
	Email       string    `bson:"email" json:"email"`
	FCMToken    string    `bson:"fcm_token,omitempty" json:"fcm_token,omitempty"`
	PaymentHold bool      `bson:"payment_hold" json:"payment_hold"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updated_at"`
}
