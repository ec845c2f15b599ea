package app

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aussiebroadwan/userdir/internal/userdir/directory"
	httpapi "github.com/aussiebroadwan/userdir/internal/userdir/http"
	"github.com/aussiebroadwan/userdir/internal/userdir/service"
	"github.com/aussiebroadwan/userdir/internal/userdir/store"
	"github.com/aussiebroadwan/userdir/internal/userdir/store/drivers/sqldb"
	"github.com/aussiebroadwan/userdir/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application wires the user-directory service together: database, optional
// LDAP delegation, services and the HTTP surface.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db        store.Store
	jwtSecret []byte

	accountService *service.AccountService
	bindingService *service.BindingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized. A schema
// failure here is fatal: the service cannot run without its tables.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "userdir",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initJWTSecret(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.logger.Info("userdir service starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"db_driver", app.cfg.DBDriver,
		"directory", app.cfg.DirectoryConfig().Enabled(),
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down userdir service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("userdir service stopped")
	return nil
}

func (app *Application) initDatabase() error {
	dsn := app.cfg.DBDSN
	if app.cfg.DBDriver == "sqlite" {
		dsn = fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", dsn)
	}

	db, err := sqldb.NewStore(app.cfg.DBDriver, dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.EnsureSchema(context.Background()); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ensure database schema: %w", err)
	}

	app.logger.Info("database schema ensured", "dialect", db.Dialect())
	return nil
}

func (app *Application) initJWTSecret() error {
	if app.cfg.JWTSecret != "" {
		app.jwtSecret = []byte(app.cfg.JWTSecret)
		return nil
	}

	// No configured secret: generate one for this process. Tokens will not
	// survive a restart, which is acceptable for dev but worth a warning.
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Errorf("failed to generate session secret: %w", err)
	}
	app.jwtSecret = []byte(base64.RawURLEncoding.EncodeToString(buf))
	app.logger.Warn("USERDIR_JWT_SECRET not set, generated ephemeral session secret")
	return nil
}

func (app *Application) initServices() {
	var dir directory.Directory
	if cfg := app.cfg.DirectoryConfig(); cfg.Enabled() {
		dir = directory.NewLDAP(cfg)
		app.logger.Info("directory delegation active",
			"host", cfg.Host,
			"base", cfg.Base,
			"login_attr", cfg.Attr(),
			"anonymous_bind", cfg.UserDN == "",
		)
	}

	app.accountService = &service.AccountService{Store: app.db, Directory: dir}
	app.bindingService = &service.BindingService{Store: app.db}
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.jwtSecret,
		app.cfg.TokenTTL,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.AccountService = app.accountService
	router.BindingService = app.bindingService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
