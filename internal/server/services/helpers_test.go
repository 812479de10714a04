package services

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/bodypace/internal/dbx"
	"github.com/dmitrijs2005/bodypace/internal/logging"
	"github.com/dmitrijs2005/bodypace/internal/server/auth"
	"github.com/dmitrijs2005/bodypace/internal/server/blobs"
	"github.com/dmitrijs2005/bodypace/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/bodypace/internal/server/repositories/repotest"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// memStore is an in-memory blobs.Store with injectable failures.
type memStore struct {
	mu        sync.Mutex
	blobs     map[int64]map[string][]byte
	writeErr  error
	readErr   error
	deleteErr error
	pruneErr  error
	deletes   int
}

func newMemStore() *memStore {
	return &memStore{blobs: map[int64]map[string][]byte{}}
}

func (m *memStore) Write(ctx context.Context, ownerID int64, name string, content []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	if m.blobs[ownerID] == nil {
		m.blobs[ownerID] = map[string][]byte{}
	}
	m.blobs[ownerID][name] = append([]byte(nil), content...)
	return nil
}

func (m *memStore) Read(ctx context.Context, ownerID int64, name string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	b, ok := m.blobs[ownerID][name]
	if !ok {
		return nil, blobs.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *memStore) Delete(ctx context.Context, ownerID int64, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.blobs[ownerID][name]; !ok {
		return blobs.ErrNotFound
	}
	delete(m.blobs[ownerID], name)
	return nil
}

func (m *memStore) ListNames(ctx context.Context, ownerID int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.blobs[ownerID]))
	for n := range m.blobs[ownerID] {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (m *memStore) PruneNamespace(ctx context.Context, ownerID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pruneErr != nil {
		return false, m.pruneErr
	}
	ns, ok := m.blobs[ownerID]
	if !ok {
		return true, nil
	}
	if len(ns) > 0 {
		return false, nil
	}
	delete(m.blobs, ownerID)
	return true, nil
}

func (m *memStore) namespaceExists(ownerID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blobs[ownerID]
	return ok
}

func (m *memStore) count(ownerID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blobs[ownerID])
}

func newManager(t *testing.T, dialect dbx.Dialect) repomanager.RepositoryManager {
	t.Helper()
	m, err := repomanager.NewRepositoryManager(dialect)
	require.NoError(t, err)
	return m
}

func newIssuer() *auth.Issuer {
	return auth.NewIssuer([]byte("test-secret"), time.Hour)
}

// newSQLiteAccounts returns an AccountService over a fresh in-memory database.
func newSQLiteAccounts(t *testing.T) (*AccountService, *sql.DB) {
	t.Helper()
	db := repotest.OpenSQLite(t)
	svc := NewAccountService(db, newManager(t, dbx.DialectSQLite), newIssuer(), bcrypt.MinCost, logging.Nop())
	return svc, db
}

// newSQLiteDocuments returns a DocumentService over a fresh in-memory
// database with two accounts already registered.
func newSQLiteDocuments(t *testing.T) (svc *DocumentService, store *memStore, db *sql.DB, alice, bob int64) {
	t.Helper()
	db = repotest.OpenSQLite(t)
	store = newMemStore()
	svc = NewDocumentService(db, newManager(t, dbx.DialectSQLite), store, logging.Nop())
	alice = repotest.InsertAccount(t, db, "alice")
	bob = repotest.InsertAccount(t, db, "bob")
	return svc, store, db, alice, bob
}

func countRows(t *testing.T, db *sql.DB, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(query, args...).Scan(&n))
	return n
}
