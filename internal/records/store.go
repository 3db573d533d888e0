// Package records is the content side of the service: the store and
// handlers for the joke records the payment gate guards.
package records

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a record id does not exist.
var ErrNotFound = errors.New("record not found")

// Record is a single paid post.
type Record struct {
	ID               string    `json:"id" db:"id"`
	Text             string    `json:"text" db:"text"`
	Laugh            int64     `json:"laugh" db:"laugh"`
	CreatedAt        time.Time `json:"createdAt" db:"created_at"`
	PaymentSignature string    `json:"paymentSignature,omitempty" db:"payment_signature"`
}

// Store persists records. The payment signature is kept as provenance
// for reconciling captured payments against delivered content.
type Store interface {
	Create(ctx context.Context, text, paymentSignature string) (*Record, error)
	List(ctx context.Context) ([]*Record, error)
	AddLaugh(ctx context.Context, id string) (*Record, error)
}
