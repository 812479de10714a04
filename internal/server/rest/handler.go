package rest

import (
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/danielgtaylor/huma/v2"
)

type credentials struct {
	Username string `json:"username" minLength:"1" maxLength:"255" doc:"Account name, case-sensitive"`
	Password string `json:"password" minLength:"1" maxLength:"72"`
}

type registerInput struct {
	Body credentials
}

type loginInput struct {
	Body credentials
}

type loginOutput struct {
	Body struct {
		AccessToken string `json:"access_token"`
	}
}

type profileOutput struct {
	Body struct {
		Sub      string `json:"sub" doc:"Account id"`
		Username string `json:"username"`
		Iat      int64  `json:"iat"`
		Exp      int64  `json:"exp"`
	}
}

type documentDTO struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Keys   string `json:"keys"`
	UserID int64  `json:"userId"`
}

type createDocumentInput struct {
	RawBody multipart.Form
}

type listDocumentsOutput struct {
	Body []documentDTO
}

type documentIDInput struct {
	ID int64 `path:"id" minimum:"1"`
}

type healthOutput struct {
	Body struct {
		Status string `json:"status" example:"ok"`
	}
}

func (s *HTTPServer) setupRoutes() {
	public := huma.Middlewares{s.loggingMiddleware}
	private := huma.Middlewares{s.loggingMiddleware, s.accessTokenMiddleware}
	bearer := []map[string][]string{{"bearer": {}}}

	huma.Register(s.api, huma.Operation{
		OperationID:   "account-register",
		Method:        http.MethodPost,
		Path:          "/accounts/register",
		Summary:       "Register an account",
		Tags:          []string{"accounts"},
		DefaultStatus: http.StatusCreated,
		Middlewares:   public,
	}, s.register)

	huma.Register(s.api, huma.Operation{
		OperationID:   "account-login",
		Method:        http.MethodPost,
		Path:          "/accounts/login",
		Summary:       "Exchange credentials for an access token",
		Tags:          []string{"accounts"},
		DefaultStatus: http.StatusCreated,
		Middlewares:   public,
	}, s.login)

	huma.Register(s.api, huma.Operation{
		OperationID: "account-profile",
		Method:      http.MethodGet,
		Path:        "/accounts",
		Summary:     "Claims of the current access token",
		Tags:        []string{"accounts"},
		Security:    bearer,
		Middlewares: private,
	}, s.profile)

	huma.Register(s.api, huma.Operation{
		OperationID:   "document-create",
		Method:        http.MethodPost,
		Path:          "/documents",
		Summary:       "Upload a document",
		Description:   "Multipart form with the fields name, keys and file.",
		Tags:          []string{"documents"},
		DefaultStatus: http.StatusCreated,
		MaxBodyBytes:  s.maxUploadBytes + multipartOverhead,
		Security:      bearer,
		Middlewares:   private,
	}, s.createDocument)

	huma.Register(s.api, huma.Operation{
		OperationID: "document-list",
		Method:      http.MethodGet,
		Path:        "/documents",
		Summary:     "List the caller's documents",
		Tags:        []string{"documents"},
		Security:    bearer,
		Middlewares: private,
	}, s.listDocuments)

	huma.Register(s.api, huma.Operation{
		OperationID: "document-fetch",
		Method:      http.MethodGet,
		Path:        "/documents/{id}",
		Summary:     "Download a document",
		Tags:        []string{"documents"},
		Security:    bearer,
		Middlewares: private,
	}, s.fetchDocument)

	huma.Register(s.api, huma.Operation{
		OperationID:   "document-delete",
		Method:        http.MethodDelete,
		Path:          "/documents/{id}",
		Summary:       "Delete a document",
		Tags:          []string{"documents"},
		DefaultStatus: http.StatusNoContent,
		Security:      bearer,
		Middlewares:   private,
	}, s.deleteDocument)

	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Tags:        []string{"health"},
		Middlewares: public,
	}, s.health)
}

func (s *HTTPServer) register(ctx context.Context, in *registerInput) (*struct{}, error) {
	if err := s.accounts.Register(ctx, in.Body.Username, in.Body.Password); err != nil {
		return nil, toHTTPError(err)
	}

	s.logger.Info(ctx, "Registered", "username", in.Body.Username)
	return &struct{}{}, nil
}

func (s *HTTPServer) login(ctx context.Context, in *loginInput) (*loginOutput, error) {
	tokens, err := s.accounts.Login(ctx, in.Body.Username, in.Body.Password)
	if err != nil {
		return nil, toHTTPError(err)
	}

	out := &loginOutput{}
	out.Body.AccessToken = tokens.AccessToken
	return out, nil
}

func (s *HTTPServer) profile(ctx context.Context, _ *struct{}) (*profileOutput, error) {
	c, ok := claimsFromContext(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	out := &profileOutput{}
	out.Body.Sub = c.Subject
	out.Body.Username = c.Username
	if c.IssuedAt != nil {
		out.Body.Iat = c.IssuedAt.Unix()
	}
	if c.ExpiresAt != nil {
		out.Body.Exp = c.ExpiresAt.Unix()
	}
	return out, nil
}

func formValue(form *multipart.Form, key string) string {
	if v := form.Value[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(f)
}

func (s *HTTPServer) createDocument(ctx context.Context, in *createDocumentInput) (*struct{}, error) {
	owner, err := ownerFromContext(ctx)
	if err != nil {
		return nil, toHTTPError(err)
	}

	form := &in.RawBody
	files := form.File["file"]
	if len(files) == 0 {
		return nil, huma.Error400BadRequest("file is required")
	}
	fh := files[0]
	if fh.Size == 0 {
		return nil, huma.Error400BadRequest("file is empty")
	}
	if s.maxUploadBytes > 0 && fh.Size > s.maxUploadBytes {
		return nil, huma.NewError(http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds %d bytes", s.maxUploadBytes))
	}

	content, err := readUpload(fh)
	if err != nil {
		return nil, huma.Error400BadRequest("cannot read file", err)
	}

	name := formValue(form, "name")
	if name == "" {
		name = fh.Filename
	}

	doc, err := s.documents.Create(ctx, name, content, formValue(form, "keys"), owner)
	if err != nil {
		return nil, toHTTPError(err)
	}

	s.logger.Info(ctx, "Document uploaded", "document_id", doc.ID, "owner_id", owner)
	return &struct{}{}, nil
}

func (s *HTTPServer) listDocuments(ctx context.Context, _ *struct{}) (*listDocumentsOutput, error) {
	owner, err := ownerFromContext(ctx)
	if err != nil {
		return nil, toHTTPError(err)
	}

	docs, err := s.documents.FindAll(ctx, owner)
	if err != nil {
		return nil, toHTTPError(err)
	}

	out := &listDocumentsOutput{Body: make([]documentDTO, 0, len(docs))}
	for _, d := range docs {
		out.Body = append(out.Body, documentDTO{ID: d.ID, Name: d.Name, Keys: d.Keys, UserID: d.OwnerID})
	}
	return out, nil
}

func contentType(name string) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}

func (s *HTTPServer) fetchDocument(ctx context.Context, in *documentIDInput) (*huma.StreamResponse, error) {
	owner, err := ownerFromContext(ctx)
	if err != nil {
		return nil, toHTTPError(err)
	}

	doc, rc, err := s.documents.Open(ctx, in.ID, owner)
	if err != nil {
		return nil, toHTTPError(err)
	}

	return &huma.StreamResponse{
		Body: func(hctx huma.Context) {
			defer rc.Close()

			hctx.SetHeader("Content-Type", contentType(doc.Name))
			hctx.SetHeader("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Name))
			hctx.SetStatus(http.StatusOK)

			if _, err := io.Copy(hctx.BodyWriter(), rc); err != nil {
				s.logger.Warn(ctx, "document stream interrupted", "document_id", doc.ID, "error", err)
			}
		},
	}, nil
}

func (s *HTTPServer) deleteDocument(ctx context.Context, in *documentIDInput) (*struct{}, error) {
	owner, err := ownerFromContext(ctx)
	if err != nil {
		return nil, toHTTPError(err)
	}

	if err := s.documents.Remove(ctx, in.ID, owner); err != nil {
		return nil, toHTTPError(err)
	}

	return &struct{}{}, nil
}

func (s *HTTPServer) health(ctx context.Context, _ *struct{}) (*healthOutput, error) {
	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Warn(ctx, "health check failed", "error", err)
		return nil, huma.Error503ServiceUnavailable("database unavailable")
	}

	out := &healthOutput{}
	out.Body.Status = "ok"
	return out, nil
}
