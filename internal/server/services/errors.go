package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/bodypace/internal/common"
	"github.com/dmitrijs2005/bodypace/internal/dbx"
	"github.com/dmitrijs2005/bodypace/internal/logging"
	"github.com/dmitrijs2005/bodypace/internal/server/blobs"
)

// storeError classifies a catalog or credential store failure.
func storeError(ctx context.Context, log logging.Logger, op string, err error) error {
	if dbx.IsUnavailable(err) {
		log.Warn(ctx, "store unavailable", "op", op, "error", err)
		return fmt.Errorf("%w: %s: %v", common.ErrStorageUnavailable, op, err)
	}
	log.Error(ctx, "store failure", "op", op, "error", err)
	return fmt.Errorf("%w: %s: %v", common.ErrorInternal, op, err)
}

// blobError classifies a blob store failure.
func blobError(ctx context.Context, log logging.Logger, op string, err error) error {
	if errors.Is(err, blobs.ErrInvalidName) || errors.Is(err, blobs.ErrInvalidOwner) {
		return common.NewValidationError("name", "must be a single path component")
	}
	log.Warn(ctx, "blob store failure", "op", op, "error", err)
	return fmt.Errorf("%w: %s: %v", common.ErrStorageUnavailable, op, err)
}
