package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/bodypace/internal/common"
	"github.com/dmitrijs2005/bodypace/internal/dbx"
	"github.com/dmitrijs2005/bodypace/internal/logging"
	"github.com/dmitrijs2005/bodypace/internal/server/blobs"
	"github.com/dmitrijs2005/bodypace/internal/server/models"
	"github.com/dmitrijs2005/bodypace/internal/server/repositories/documents"
	"github.com/dmitrijs2005/bodypace/internal/server/repositories/repomanager"
)

// DocumentService stores documents as a catalog row plus a blob in the
// owner's namespace. Every mutation runs inside a catalog transaction so the
// two stay in step; when that is not possible the caller gets
// common.ErrInconsistentStorage.
type DocumentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	blobs       blobs.Store
	log         logging.Logger
}

func NewDocumentService(db *sql.DB, m repomanager.RepositoryManager, store blobs.Store, log logging.Logger) *DocumentService {
	return &DocumentService{
		db:          db,
		repomanager: m,
		blobs:       store,
		log:         log.With("module", "documents"),
	}
}

func validateOwner(ownerID int64) error {
	if ownerID <= 0 {
		return common.NewValidationError("ownerId", "must be positive")
	}
	return nil
}

// Create stores a new document. The row is inserted before the blob is
// written, so a concurrent creator of the same name fails on the unique index
// without touching the blob. When the commit fails after the blob was
// written, the blob is removed again unless another document with the same
// name has been committed in the meantime.
func (s *DocumentService) Create(ctx context.Context, name string, content []byte, keys string, ownerID int64) (*models.Document, error) {
	if name == "" {
		return nil, common.NewValidationError("name", "must not be empty")
	}
	if len(name) > blobs.MaxNameBytes {
		return nil, common.NewValidationError("name", fmt.Sprintf("must be at most %d bytes", blobs.MaxNameBytes))
	}
	if blobs.ValidateName(name) != nil {
		return nil, common.NewValidationError("name", "must be a single path component")
	}
	if keys == "" {
		return nil, common.NewValidationError("keys", "must not be empty")
	}
	if err := validateOwner(ownerID); err != nil {
		return nil, err
	}

	existing, err := s.repomanager.Documents(s.db).FindBy(ctx, documents.Criteria{Name: &name, OwnerID: &ownerID})
	if err != nil {
		return nil, storeError(ctx, s.log, "find document", err)
	}
	if len(existing) > 0 {
		return nil, common.ErrNameTaken
	}

	doc := &models.Document{Name: name, Keys: keys, OwnerID: ownerID}

	var blobWritten bool
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Documents(tx).Insert(ctx, doc); err != nil {
			return err
		}
		if err := s.blobs.Write(ctx, ownerID, name, content); err != nil {
			return err
		}
		blobWritten = true
		return nil
	})
	if err != nil {
		if blobWritten {
			s.discardBlob(ctx, ownerID, name)
		}
		switch {
		case errors.Is(err, common.ErrNameTaken):
			return nil, common.ErrNameTaken
		case isBlobError(err):
			return nil, blobError(ctx, s.log, "write blob", err)
		default:
			return nil, storeError(ctx, s.log, "insert document", err)
		}
	}

	s.log.Info(ctx, "document stored", "document_id", doc.ID, "owner_id", ownerID, "size", len(content))
	return doc, nil
}

// discardBlob undoes a blob write whose catalog row was not committed. A
// committed row with the same name owns the blob now and it is left alone.
// A competing create that has not committed yet is not visible here.
func (s *DocumentService) discardBlob(ctx context.Context, ownerID int64, name string) {
	ctx = context.WithoutCancel(ctx)

	owners, err := s.repomanager.Documents(s.db).FindBy(ctx, documents.Criteria{Name: &name, OwnerID: &ownerID})
	if err != nil {
		s.log.Error(ctx, "cannot check blob ownership, blob kept", "owner_id", ownerID, "name", name, "error", err)
		return
	}
	if len(owners) > 0 {
		s.log.Warn(ctx, "blob now belongs to another document", "document_id", owners[0].ID, "owner_id", ownerID, "name", name)
		return
	}

	if err := s.blobs.Delete(ctx, ownerID, name); err != nil && !errors.Is(err, blobs.ErrNotFound) {
		s.log.Error(ctx, "orphan blob left behind", "owner_id", ownerID, "name", name, "error", err)
		return
	}
	if _, err := s.blobs.PruneNamespace(ctx, ownerID); err != nil {
		s.log.Warn(ctx, "prune namespace failed", "owner_id", ownerID, "error", err)
	}
}

// FindAll lists the owner's documents in insertion order.
func (s *DocumentService) FindAll(ctx context.Context, ownerID int64) ([]*models.Document, error) {
	if err := validateOwner(ownerID); err != nil {
		return nil, err
	}

	docs, err := s.repomanager.Documents(s.db).FindBy(ctx, documents.Criteria{OwnerID: &ownerID})
	if err != nil {
		return nil, storeError(ctx, s.log, "list documents", err)
	}
	if docs == nil {
		docs = []*models.Document{}
	}

	return docs, nil
}

// FindOne returns the document or nil when it does not exist for this owner.
func (s *DocumentService) FindOne(ctx context.Context, id, ownerID int64) (*models.Document, error) {
	if err := validateOwner(ownerID); err != nil {
		return nil, err
	}

	docs, err := s.repomanager.Documents(s.db).FindBy(ctx, documents.Criteria{ID: &id, OwnerID: &ownerID})
	if err != nil {
		return nil, storeError(ctx, s.log, "find document", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}

	return docs[0], nil
}

// Open returns the document with a reader over its content. The caller
// closes the reader.
func (s *DocumentService) Open(ctx context.Context, id, ownerID int64) (*models.Document, io.ReadCloser, error) {
	doc, err := s.FindOne(ctx, id, ownerID)
	if err != nil {
		return nil, nil, err
	}
	if doc == nil {
		return nil, nil, &common.NotFoundError{ID: id, OwnerID: ownerID}
	}

	rc, err := s.blobs.Read(ctx, doc.OwnerID, doc.Name)
	if err != nil {
		if errors.Is(err, blobs.ErrNotFound) {
			s.log.Error(ctx, "document has no blob", "document_id", doc.ID, "owner_id", doc.OwnerID)
			return nil, nil, fmt.Errorf("%w: document #%d has no content", common.ErrInconsistentStorage, doc.ID)
		}
		return nil, nil, blobError(ctx, s.log, "read blob", err)
	}

	return doc, rc, nil
}

// Remove deletes the document row and its blob, then prunes the owner
// namespace if it became empty.
func (s *DocumentService) Remove(ctx context.Context, id, ownerID int64) error {
	doc, err := s.FindOne(ctx, id, ownerID)
	if err != nil {
		return err
	}
	if doc == nil {
		return &common.NotFoundError{ID: id, OwnerID: ownerID}
	}

	var blobDeleted bool
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Documents(tx).Delete(ctx, doc); err != nil {
			return err
		}

		if err := s.blobs.Delete(ctx, doc.OwnerID, doc.Name); err != nil {
			if !errors.Is(err, blobs.ErrNotFound) {
				return err
			}
			s.log.Warn(ctx, "blob already missing", "document_id", doc.ID, "owner_id", doc.OwnerID)
		}
		blobDeleted = true

		if _, err := s.blobs.PruneNamespace(ctx, doc.OwnerID); err != nil {
			s.log.Warn(ctx, "prune namespace failed", "owner_id", doc.OwnerID, "error", err)
		}
		return nil
	})
	if err != nil {
		if blobDeleted {
			s.log.Error(ctx, "document row kept after its blob was deleted", "document_id", doc.ID, "owner_id", doc.OwnerID, "error", err)
			return fmt.Errorf("%w: document #%d: %v", common.ErrInconsistentStorage, doc.ID, err)
		}
		switch {
		case errors.Is(err, common.ErrorNotFound):
			return &common.NotFoundError{ID: id, OwnerID: ownerID}
		case isBlobError(err):
			return blobError(ctx, s.log, "delete blob", err)
		default:
			return storeError(ctx, s.log, "delete document", err)
		}
	}

	s.log.Info(ctx, "document removed", "document_id", doc.ID, "owner_id", doc.OwnerID)
	return nil
}

func isBlobError(err error) bool {
	return errors.Is(err, blobs.ErrIOFailure) ||
		errors.Is(err, blobs.ErrInvalidName) ||
		errors.Is(err, blobs.ErrInvalidOwner)
}
