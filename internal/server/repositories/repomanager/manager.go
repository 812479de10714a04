package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/bodypace/internal/dbx"
	"github.com/dmitrijs2005/bodypace/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/bodypace/internal/server/repositories/documents"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	Documents(db dbx.DBTX) documents.Repository
}
