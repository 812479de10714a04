// Package blobs stores document content, one namespace per owning account.
// A blob is addressed by (ownerID, name) and the name is used verbatim, so
// it must be a single safe path component.
package blobs

import (
	"context"
	"errors"
	"io"
	"strings"
)

var (
	ErrNotFound       = errors.New("blob not found")
	ErrInvalidName    = errors.New("invalid blob name")
	ErrInvalidOwner   = errors.New("invalid blob owner")
	ErrIOFailure      = errors.New("blob i/o failure")
	ErrInvalidBaseDir = errors.New("invalid base directory")
)

// Store is implemented by FileStore and S3Store.
type Store interface {
	// Write stores content, replacing any existing blob with the same name.
	// The owner namespace is created as needed.
	Write(ctx context.Context, ownerID int64, name string, content []byte) error

	// Read opens a blob. The caller closes the reader.
	Read(ctx context.Context, ownerID int64, name string) (io.ReadCloser, error)

	// Delete removes a blob. ErrNotFound if it does not exist.
	Delete(ctx context.Context, ownerID int64, name string) error

	// ListNames lists the blob names in an owner namespace.
	ListNames(ctx context.Context, ownerID int64) ([]string, error)

	// PruneNamespace removes the owner namespace if it holds no blobs and
	// reports whether the namespace is now gone.
	PruneNamespace(ctx context.Context, ownerID int64) (bool, error)
}

// MaxNameBytes is the longest blob name accepted, the usual filesystem
// limit for a single path component.
const MaxNameBytes = 255

// ValidateName reports whether name can be used as a blob name: non-empty,
// at most MaxNameBytes long, not "." or "..", and free of path separators
// and NUL bytes.
func ValidateName(name string) error {
	if len(name) > MaxNameBytes {
		return ErrInvalidName
	}
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\\\x00") {
		return ErrInvalidName
	}
	return nil
}

func validate(ownerID int64, name string) error {
	if ownerID <= 0 {
		return ErrInvalidOwner
	}
	return ValidateName(name)
}
