// Package connections declares the store of per-company OAuth credentials
// and provides its SQL implementation.
package connections

import (
	"context"

	"github.com/dmitrijs2005/qborelay/internal/server/models"
)

// Repository persists Connection records keyed by (user, realm).
type Repository interface {
	// Upsert inserts the connection or replaces the token fields and expiry
	// of the existing record. A nil CompanyName keeps the stored name.
	// Concurrent upserts of one key are atomic; the last writer wins.
	Upsert(ctx context.Context, conn *models.Connection) error

	// Get returns common.ErrorNotFound when the key is absent.
	Get(ctx context.Context, userID, realmID string) (*models.Connection, error)

	// List returns every connection of userID in insertion order. It returns
	// an empty slice, not an error, when there are none.
	List(ctx context.Context, userID string) ([]*models.Connection, error)
}
