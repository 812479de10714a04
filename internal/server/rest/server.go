// Package rest exposes the account and document services over HTTP. Routes
// are registered with huma on a chi router, which also yields the OpenAPI
// description of the API.
package rest

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/dmitrijs2005/bodypace/internal/logging"
	"github.com/dmitrijs2005/bodypace/internal/server/auth"
	"github.com/dmitrijs2005/bodypace/internal/server/models"
	"github.com/dmitrijs2005/bodypace/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const shutdownTimeout = 5 * time.Second

type AccountService interface {
	Register(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) (*services.TokenResponse, error)
}

type DocumentService interface {
	Create(ctx context.Context, name string, content []byte, keys string, ownerID int64) (*models.Document, error)
	FindAll(ctx context.Context, ownerID int64) ([]*models.Document, error)
	Open(ctx context.Context, id, ownerID int64) (*models.Document, io.ReadCloser, error)
	Remove(ctx context.Context, id, ownerID int64) error
}

// Pinger reports whether the catalog database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HTTPServer struct {
	address        string
	api            huma.API
	mux            *chi.Mux
	accounts       AccountService
	documents      DocumentService
	issuer         *auth.Issuer
	db             Pinger
	maxUploadBytes int64
	logger         logging.Logger
}

// multipartOverhead is the room left for form fields and part headers on
// top of the upload limit, so an oversized file is reported by size.
const multipartOverhead = 64 << 10

func NewHTTPServer(a string, l logging.Logger, as AccountService, ds DocumentService, issuer *auth.Issuer, db Pinger, maxUploadBytes int64) *HTTPServer {
	mux := chi.NewMux()
	mux.Use(middleware.Recoverer)
	if maxUploadBytes > 0 {
		mux.Use(middleware.RequestSize(maxUploadBytes + multipartOverhead))
	}

	config := huma.DefaultConfig("Bodypace API", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {Type: "http", Scheme: "bearer", BearerFormat: "JWT"},
	}

	s := &HTTPServer{
		address:        a,
		api:            humachi.New(mux, config),
		mux:            mux,
		accounts:       as,
		documents:      ds,
		issuer:         issuer,
		db:             db,
		maxUploadBytes: maxUploadBytes,
		logger:         l.With("module", "http_server"),
	}
	s.setupRoutes()

	return s
}

// Handler returns the router serving all registered operations.
func (s *HTTPServer) Handler() http.Handler { return s.mux }

// API returns the huma API, mostly for its OpenAPI document.
func (s *HTTPServer) API() huma.API { return s.api }

// Run serves HTTP until ctx is canceled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
