// Package documents is the document catalog: rows pairing a document name
// and its key material with the owning account.
package documents

import (
	"context"

	"github.com/dmitrijs2005/bodypace/internal/server/models"
)

// Criteria selects documents. Nil fields are not constrained; an empty
// Criteria matches every row.
type Criteria struct {
	ID      *int64
	Name    *string
	OwnerID *int64
}

type Repository interface {
	// Insert stores doc and sets doc.ID. A duplicate (name, owner) pair
	// yields common.ErrNameTaken.
	Insert(ctx context.Context, doc *models.Document) error

	// FindBy returns matching rows ordered by ID. No match is an empty slice.
	FindBy(ctx context.Context, c Criteria) ([]*models.Document, error)

	// Delete removes the row with doc's ID and owner. It returns
	// common.ErrorNotFound if nothing was deleted.
	Delete(ctx context.Context, doc *models.Document) error
}
