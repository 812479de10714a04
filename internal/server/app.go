// Package server assembles and runs the Bodypace server: it opens the
// catalog database, applies migrations, picks the blob backend, wires the
// services into the HTTP API and handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/bodypace/internal/dbx"
	"github.com/dmitrijs2005/bodypace/internal/filex"
	"github.com/dmitrijs2005/bodypace/internal/logging"
	"github.com/dmitrijs2005/bodypace/internal/server/auth"
	"github.com/dmitrijs2005/bodypace/internal/server/blobs"
	"github.com/dmitrijs2005/bodypace/internal/server/config"
	"github.com/dmitrijs2005/bodypace/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/bodypace/internal/server/rest"
	"github.com/dmitrijs2005/bodypace/internal/server/services"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	httpServer *rest.HTTPServer
}

func NewApp(c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, c.LogLevel)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// the OpenAPI document only depends on the registered routes
	if c.OnlyGenerateOpenAPI {
		srv := rest.NewHTTPServer(c.EndpointAddrHTTP, logger, nil, nil, nil, nil, c.MaxUploadBytes)
		return &App{config: c, logger: logger, httpServer: srv}, nil
	}

	ctx := context.Background()

	dialect, err := dbx.ParseDialect(c.DatabaseDriver)
	if err != nil {
		return nil, err
	}

	if dialect == dbx.DialectSQLite {
		if path := sqliteFilePath(c.DatabaseDSN); path != "" {
			if err := filex.EnsureParentDir(path); err != nil {
				return nil, fmt.Errorf("db dir: %w", err)
			}
		}
	}

	db, err := dbx.Open(ctx, dialect, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm, err := repomanager.NewRepositoryManager(dialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	store, err := newBlobStore(ctx, c)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	issuer := auth.NewIssuer([]byte(c.SecretKey), c.AccessTokenValidityDuration)
	as := services.NewAccountService(db, rm, issuer, c.PasswordHashCost, logger)
	ds := services.NewDocumentService(db, rm, store, logger)

	srv := rest.NewHTTPServer(c.EndpointAddrHTTP, logger, as, ds, issuer, db, c.MaxUploadBytes)

	return &App{config: c, logger: logger, db: db, httpServer: srv}, nil
}

func newBlobStore(ctx context.Context, c *config.Config) (blobs.Store, error) {
	if c.BlobBackend == config.BlobBackendS3 {
		return blobs.NewS3Store(ctx, blobs.S3Config{
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
			Bucket:       c.S3Bucket,
			KeyPrefix:    c.S3KeyPrefix,
		})
	}
	return blobs.NewFileStore(c.BlobRoot)
}

// sqliteFilePath extracts the database file from a SQLite DSN. In-memory
// databases yield "".
func sqliteFilePath(dsn string) string {
	path, query, _ := strings.Cut(strings.TrimPrefix(dsn, "file:"), "?")
	if path == "" || path == ":memory:" || strings.Contains(query, "mode=memory") {
		return ""
	}
	return path
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.httpServer.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run writes the OpenAPI document and serves HTTP until ctx is canceled or
// a termination signal arrives.
func (app *App) Run(ctx context.Context) error {
	if err := app.httpServer.WriteOpenAPI(app.config.OpenAPIPath); err != nil {
		if app.config.OnlyGenerateOpenAPI {
			return err
		}
		app.logger.Warn(ctx, "OpenAPI document not written", "error", err)
	}
	if app.config.OnlyGenerateOpenAPI {
		app.logger.Info(ctx, "OpenAPI document written", "path", app.config.OpenAPIPath)
		return nil
	}

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.logger.Info(ctx, "Closing database...")
	return app.db.Close()
}
