// Package storage records delivered reports so that unchanged reports are not posted twice.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/cellveyor/internal/models"
)

// ErrNotFound is returned when no delivery matches.
var ErrNotFound = errors.New("delivery not found")

// Ledger defines delivery record persistence.
type Ledger interface {
	RecordDelivery(ctx context.Context, d *models.Delivery) error
	// LastDelivery returns the most recent delivery for repository and key value, or ErrNotFound.
	LastDelivery(ctx context.Context, repository, keyValue string) (*models.Delivery, error)
	// ListDeliveries returns deliveries newest first.
	ListDeliveries(ctx context.Context, offset, limit int) ([]*models.Delivery, error)
	CountDeliveries(ctx context.Context) (int64, error)

	Close() error
}
