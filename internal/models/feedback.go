package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Feedback is a single guest review scoped to one business. Records are
// immutable after creation; triage state (resolved set, threshold) lives on
// the Business document, never on the record itself.
type Feedback struct {
	ID             bson.ObjectID `bson:"_id,omitempty" json:"id"`
	BusinessID     bson.ObjectID `bson:"business_id" json:"business_id"`
	Rating         int           `bson:"rating" json:"rating"`
	Comments       string        `bson:"comments" json:"comments"`
	IdempotencyKey string        `bson:"idempotency_key,omitempty" json:"idempotency_key,omitempty"`
	CreatedAt      time.Time     `bson:"created_at" json:"created_at"`
}
