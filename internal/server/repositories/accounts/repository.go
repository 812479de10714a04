// Package accounts is the credential store: account rows keyed by a unique
// username.
package accounts

import (
	"context"

	"github.com/dmitrijs2005/bodypace/internal/server/models"
)

type Repository interface {
	// Create inserts a new account and returns it with the assigned ID.
	// A duplicate username yields common.ErrUsernameTaken.
	Create(ctx context.Context, username, passwordHash string) (*models.Account, error)

	// FindByUsername returns common.ErrorNotFound when no account matches.
	FindByUsername(ctx context.Context, username string) (*models.Account, error)
}
