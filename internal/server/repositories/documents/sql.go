package documents

import (
	"context"
	"fmt"
	"strings"

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

func (r *SQLRepository) Insert(ctx context.Context, doc *models.Document) error {
	query :=
		`INSERT INTO documents (name, keys, owner_id)
		 VALUES ($1, $2, $3)
		 RETURNING id`

	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query), doc.Name, doc.Keys, doc.OwnerID).Scan(&doc.ID)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrNameTaken
		}
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *SQLRepository) FindBy(ctx context.Context, c Criteria) ([]*models.Document, error) {
	var (
		conds []string
		args  []any
	)
	if c.ID != nil {
		args = append(args, *c.ID)
		conds = append(conds, fmt.Sprintf("id = $%d", len(args)))
	}
	if c.Name != nil {
		args = append(args, *c.Name)
		conds = append(conds, fmt.Sprintf("name = $%d", len(args)))
	}
	if c.OwnerID != nil {
		args = append(args, *c.OwnerID)
		conds = append(conds, fmt.Sprintf("owner_id = $%d", len(args)))
	}

	query := `SELECT id, name, keys, owner_id FROM documents`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	query += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	docs := make([]*models.Document, 0)
	for rows.Next() {
		doc := &models.Document{}
		if err := rows.Scan(&doc.ID, &doc.Name, &doc.Keys, &doc.OwnerID); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return docs, nil
}

func (r *SQLRepository) Delete(ctx context.Context, doc *models.Document) error {
	query :=
		`DELETE FROM documents
		 WHERE id = $1 AND owner_id = $2`

	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(query), doc.ID, doc.OwnerID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}
