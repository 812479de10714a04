package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/bodypace/internal/common"
	"github.com/dmitrijs2005/bodypace/internal/logging"
	"github.com/dmitrijs2005/bodypace/internal/server/auth"
	"github.com/dmitrijs2005/bodypace/internal/server/models"
	"github.com/dmitrijs2005/bodypace/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- fakes ----

type fakeAccounts struct {
	regErr    error
	loginResp *services.TokenResponse
	loginErr  error

	gotUsername string
	gotPassword string
}

func (f *fakeAccounts) Register(ctx context.Context, username, password string) error {
	f.gotUsername, f.gotPassword = username, password
	return f.regErr
}

func (f *fakeAccounts) Login(ctx context.Context, username, password string) (*services.TokenResponse, error) {
	f.gotUsername, f.gotPassword = username, password
	return f.loginResp, f.loginErr
}

type createCall struct {
	name    string
	content []byte
	keys    string
	owner   int64
}

type fakeDocuments struct {
	createErr error
	created   []createCall

	list    []*models.Document
	listErr error

	openDoc     *models.Document
	openContent []byte
	openErr     error

	removeErr error
	removed   []int64

	lastOwner int64
}

func (f *fakeDocuments) Create(ctx context.Context, name string, content []byte, keys string, ownerID int64) (*models.Document, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, createCall{name: name, content: content, keys: keys, owner: ownerID})
	return &models.Document{ID: int64(len(f.created)), Name: name, Keys: keys, OwnerID: ownerID}, nil
}

func (f *fakeDocuments) FindAll(ctx context.Context, ownerID int64) ([]*models.Document, error) {
	f.lastOwner = ownerID
	return f.list, f.listErr
}

func (f *fakeDocuments) Open(ctx context.Context, id, ownerID int64) (*models.Document, io.ReadCloser, error) {
	f.lastOwner = ownerID
	if f.openErr != nil {
		return nil, nil, f.openErr
	}
	return f.openDoc, io.NopCloser(bytes.NewReader(f.openContent)), nil
}

func (f *fakeDocuments) Remove(ctx context.Context, id, ownerID int64) error {
	f.lastOwner = ownerID
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removed = append(f.removed, id)
	return nil
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

// ---- helpers ----

type testEnv struct {
	srv    *HTTPServer
	accs   *fakeAccounts
	docs   *fakeDocuments
	ping   *fakePinger
	issuer *auth.Issuer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		accs:   &fakeAccounts{},
		docs:   &fakeDocuments{},
		ping:   &fakePinger{},
		issuer: auth.NewIssuer([]byte("test-secret"), time.Hour),
	}
	env.srv = NewHTTPServer("127.0.0.1:0", logging.Nop(), env.accs, env.docs, env.issuer, env.ping, 1<<20)
	return env
}

func (e *testEnv) token(t *testing.T, id int64, username string) string {
	t.Helper()
	tok, err := e.issuer.Issue(id, username)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func withBearer(req *http.Request, token string) *http.Request {
	req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	return req
}

func multipartRequest(t *testing.T, fields map[string]string, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		fw, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/documents", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

// ---- accounts ----

func TestRegister(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		regErr error
		want   int
	}{
		{"created", `{"username":"alice","password":"secret1"}`, nil, http.StatusCreated},
		{"taken", `{"username":"alice","password":"secret1"}`, common.ErrUsernameTaken, http.StatusConflict},
		{"rejected by service", `{"username":"alice","password":"secret1"}`, common.NewValidationError("password", "must be at most 72 bytes"), http.StatusBadRequest},
		{"store down", `{"username":"alice","password":"secret1"}`, fmt.Errorf("%w: ping", common.ErrStorageUnavailable), http.StatusServiceUnavailable},
		{"store failure", `{"username":"alice","password":"secret1"}`, fmt.Errorf("%w: boom", common.ErrorInternal), http.StatusInternalServerError},
		{"empty username", `{"username":"","password":"secret1"}`, nil, http.StatusUnprocessableEntity},
		{"missing password", `{"username":"alice"}`, nil, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.accs.regErr = tt.regErr

			rec := env.do(jsonRequest(http.MethodPost, "/accounts/register", tt.body))
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestRegister_DoesNotLeakInternalErrors(t *testing.T) {
	env := newTestEnv(t)
	env.accs.regErr = fmt.Errorf("%w: pq: password authentication failed for user admin", common.ErrorInternal)

	rec := env.do(jsonRequest(http.MethodPost, "/accounts/register", `{"username":"alice","password":"pw"}`))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password authentication")
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	env.accs.loginResp = &services.TokenResponse{AccessToken: "tok"}

	rec := env.do(jsonRequest(http.MethodPost, "/accounts/login", `{"username":"alice","password":"secret1"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "tok", body.AccessToken)
	assert.Equal(t, "alice", env.accs.gotUsername)
	assert.Equal(t, "secret1", env.accs.gotPassword)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.accs.loginErr = common.ErrInvalidCredentials

	rec := env.do(jsonRequest(http.MethodPost, "/accounts/login", `{"username":"alice","password":"nope"}`))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProfile(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(withBearer(httptest.NewRequest(http.MethodGet, "/accounts", nil), env.token(t, 7, "alice")))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "7", body["sub"])
	assert.Equal(t, "alice", body["username"])
	assert.InDelta(t, 3600, body["exp"].(float64)-body["iat"].(float64), 1)
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	env := newTestEnv(t)

	expired := auth.NewIssuer([]byte("test-secret"), -time.Minute)
	expiredTok, err := expired.Issue(1, "alice")
	require.NoError(t, err)

	foreign, err := auth.NewIssuer([]byte("other-secret"), time.Hour).Issue(1, "alice")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"not bearer", "Basic abc"},
		{"empty bearer", "Bearer "},
		{"garbage", "Bearer not-a-token"},
		{"expired", "Bearer " + expiredTok},
		{"wrong secret", "Bearer " + foreign},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/documents", nil)
			if tt.header != "" {
				req.Header.Set(common.AuthorizationHeaderName, tt.header)
			}
			rec := env.do(req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}

	assert.Zero(t, env.docs.lastOwner, "service must not be reached")
}

// ---- documents ----

func TestCreateDocument(t *testing.T) {
	env := newTestEnv(t)
	content := []byte{0x25, 0x50, 0x44, 0x46, 0x00, 0x01}

	req := multipartRequest(t, map[string]string{"name": "a.pdf", "keys": "k1"}, "upload.bin", content)
	rec := env.do(withBearer(req, env.token(t, 3, "alice")))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	require.Len(t, env.docs.created, 1)
	got := env.docs.created[0]
	assert.Equal(t, "a.pdf", got.name)
	assert.Equal(t, "k1", got.keys)
	assert.Equal(t, int64(3), got.owner)
	assert.Equal(t, content, got.content)
}

func TestCreateDocument_NameFallsBackToFilename(t *testing.T) {
	env := newTestEnv(t)

	req := multipartRequest(t, map[string]string{"keys": "k1"}, "scan.png", []byte("png"))
	rec := env.do(withBearer(req, env.token(t, 3, "alice")))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "scan.png", env.docs.created[0].name)
}

func TestCreateDocument_Failures(t *testing.T) {
	tests := []struct {
		name      string
		filename  string
		content   []byte
		createErr error
		want      int
	}{
		{"missing file", "", nil, nil, http.StatusBadRequest},
		{"empty file", "a.pdf", []byte{}, nil, http.StatusBadRequest},
		{"file too large", "a.pdf", bytes.Repeat([]byte("x"), 1<<20+1), nil, http.StatusRequestEntityTooLarge},
		{"name taken", "a.pdf", []byte("x"), common.ErrNameTaken, http.StatusConflict},
		{"invalid name", "a.pdf", []byte("x"), common.NewValidationError("name", "must be a single path component"), http.StatusBadRequest},
		{"blob store down", "a.pdf", []byte("x"), fmt.Errorf("%w: disk", common.ErrStorageUnavailable), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.docs.createErr = tt.createErr

			req := multipartRequest(t, map[string]string{"name": "a.pdf", "keys": "k1"}, tt.filename, tt.content)
			rec := env.do(withBearer(req, env.token(t, 3, "alice")))
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			if tt.createErr == nil {
				assert.Empty(t, env.docs.created, "service must not be reached")
			}
		})
	}
}

func TestListDocuments(t *testing.T) {
	env := newTestEnv(t)
	env.docs.list = []*models.Document{
		{ID: 1, Name: "a.pdf", Keys: "k1", OwnerID: 3},
		{ID: 2, Name: "b.pdf", Keys: "k2", OwnerID: 3},
	}

	rec := env.do(withBearer(httptest.NewRequest(http.MethodGet, "/documents", nil), env.token(t, 3, "alice")))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body []documentDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []documentDTO{
		{ID: 1, Name: "a.pdf", Keys: "k1", UserID: 3},
		{ID: 2, Name: "b.pdf", Keys: "k2", UserID: 3},
	}, body)
	assert.Contains(t, rec.Body.String(), `"userId":3`)
	assert.Equal(t, int64(3), env.docs.lastOwner)
}

func TestListDocuments_Empty(t *testing.T) {
	env := newTestEnv(t)
	env.docs.list = []*models.Document{}

	rec := env.do(withBearer(httptest.NewRequest(http.MethodGet, "/documents", nil), env.token(t, 3, "alice")))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestFetchDocument(t *testing.T) {
	env := newTestEnv(t)
	content := []byte{0x00, 0xff, 0x10, 'x'}
	env.docs.openDoc = &models.Document{ID: 5, Name: "a.pdf", Keys: "k", OwnerID: 3}
	env.docs.openContent = content

	rec := env.do(withBearer(httptest.NewRequest(http.MethodGet, "/documents/5", nil), env.token(t, 3, "alice")))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, content, rec.Body.Bytes())
	assert.Equal(t, `attachment; filename="a.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
}

func TestFetchDocument_Failures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", &common.NotFoundError{ID: 5, OwnerID: 3}, http.StatusNotFound},
		{"inconsistent", fmt.Errorf("%w: no content", common.ErrInconsistentStorage), http.StatusInternalServerError},
		{"unavailable", fmt.Errorf("%w: read", common.ErrStorageUnavailable), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.docs.openErr = tt.err

			rec := env.do(withBearer(httptest.NewRequest(http.MethodGet, "/documents/5", nil), env.token(t, 3, "alice")))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestDeleteDocument(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(withBearer(httptest.NewRequest(http.MethodDelete, "/documents/5", nil), env.token(t, 3, "alice")))
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	assert.Equal(t, []int64{5}, env.docs.removed)
	assert.Equal(t, int64(3), env.docs.lastOwner)
}

func TestDeleteDocument_NotFound(t *testing.T) {
	env := newTestEnv(t)
	env.docs.removeErr = &common.NotFoundError{ID: 5, OwnerID: 3}

	rec := env.do(withBearer(httptest.NewRequest(http.MethodDelete, "/documents/5", nil), env.token(t, 3, "alice")))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown document id #5 or owner id #3")
}

// ---- health / openapi / lifecycle ----

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)

	env.ping.err = errors.New("connection refused")
	rec = env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestWriteOpenAPI(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "docs", "openapi.yaml")

	require.NoError(t, env.srv.WriteOpenAPI(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	doc := string(b)
	assert.Contains(t, doc, "Bodypace API")
	assert.Contains(t, doc, "/documents/{id}")
	assert.Contains(t, doc, "/accounts/login")
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	env := newTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- env.srv.Run(ctx)
	}()

	select {
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}

func TestRun_ListenError(t *testing.T) {
	srv := NewHTTPServer("256.0.0.1:bad", logging.Nop(), &fakeAccounts{}, &fakeDocuments{}, auth.NewIssuer([]byte("s"), time.Hour), fakePinger{}, 0)
	assert.Error(t, srv.Run(context.Background()))
}
