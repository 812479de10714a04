package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/bodypace/internal/common"
	"github.com/dmitrijs2005/bodypace/internal/dbx"
	"github.com/dmitrijs2005/bodypace/internal/server/models"
)

type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

func NewSQLRepository(db dbx.DBTX, dialect dbx.Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect}
}

func (r *SQLRepository) Create(ctx context.Context, username, passwordHash string) (*models.Account, error) {
	query :=
		`INSERT INTO accounts (username, password_hash)
		 VALUES ($1, $2)
		 RETURNING id`

	account := &models.Account{Username: username, PasswordHash: passwordHash}
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query), username, passwordHash).Scan(&account.ID)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrUsernameTaken
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return account, nil
}

func (r *SQLRepository) FindByUsername(ctx context.Context, username string) (*models.Account, error) {
	query :=
		`SELECT id, username, password_hash FROM accounts
		 WHERE username = $1`

	account := &models.Account{}
	var hash sql.NullString
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query), username).Scan(&account.ID, &account.Username, &hash)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	account.PasswordHash = hash.String

	return account, nil
}
