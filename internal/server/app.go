// Package server wires storage, services and transports together and runs
// them until the process is signalled.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/valutx/internal/logging"
	"github.com/dmitrijs2005/valutx/internal/server/audit"
	"github.com/dmitrijs2005/valutx/internal/server/auth"
	"github.com/dmitrijs2005/valutx/internal/server/config"
	"github.com/dmitrijs2005/valutx/internal/server/httpapi"
	"github.com/dmitrijs2005/valutx/internal/server/objectstore"
	"github.com/dmitrijs2005/valutx/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/valutx/internal/server/requestctx"
	"github.com/dmitrijs2005/valutx/internal/server/services"
	"github.com/dmitrijs2005/valutx/internal/server/telemetry"
	"github.com/dmitrijs2005/valutx/internal/server/throttle"
	"github.com/dmitrijs2005/valutx/internal/server/verifier"

	gs "github.com/dmitrijs2005/valutx/internal/server/grpc"
)

const serviceName = "valutx"

var (
	setupTelemetry = telemetry.Setup
	openDatabase   = repomanager.Open
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	redis    *redis.Client
	shutdown func(context.Context) error
	trusted  requestctx.TrustedProxies
	services httpapi.Services
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.New(os.Stdout, c.LogLevel)

	for _, w := range c.Warnings() {
		logger.Warn(ctx, "insecure configuration", "warning", w)
	}

	trusted, err := requestctx.ParseTrustedProxies(c.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	shutdown, err := setupTelemetry(ctx, serviceName, c.OTLPEndpoint)
	if err != nil {
		return nil, fmt.Errorf("telemetry init error: %w", err)
	}

	app := &App{config: c, logger: logger, shutdown: shutdown, trusted: trusted}

	db, rm, err := openDatabase(ctx, c.DatabaseDSN)
	if err != nil {
		app.close(ctx)
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app.db = db

	if err := rm.RunMigrations(ctx, db); err != nil {
		app.close(ctx)
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	var limiter throttle.Limiter = throttle.Noop{}
	if c.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		limiter = throttle.NewRedisLimiter(app.redis, c.LoginFailureLimit, c.LoginFailureWindow)
	}

	// a nil *S3Store must not reach the export service as a non-nil Store
	var store objectstore.Store
	s3cfg := objectstore.S3Config{
		User:     c.S3RootUser,
		Password: c.S3RootPassword,
		Bucket:   c.S3Bucket,
		Region:   c.S3Region,
		Endpoint: c.S3BaseEndpoint,
	}
	if s3cfg.Enabled() {
		s3, err := objectstore.NewS3Store(ctx, s3cfg)
		if err != nil {
			app.close(ctx)
			return nil, fmt.Errorf("object store init error: %w", err)
		}
		store = s3
	} else {
		logger.Info(ctx, "object store not configured, vault export disabled")
	}

	sink := audit.NewRepositorySink(db, rm)
	issuer := auth.NewIssuer([]byte(c.SecretKey), c.AccessTokenValidityDuration)

	app.services = httpapi.Services{
		Auth:   services.NewAuthService(db, rm, verifier.New(c.BcryptCost), issuer, sink, limiter, logger),
		Items:  services.NewItemService(db, rm, sink, logger),
		Audit:  services.NewAuditLogService(db, rm, logger),
		Export: services.NewExportService(db, rm, store, sink, c.ExportURLValidityDuration, logger),
	}

	return app, nil
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
	h := httpapi.NewHandler(app.services, app.config.CORSOrigins, app.trusted, app.logger)
	s := httpapi.NewHTTPServer(app.config.EndpointAddrHTTP, h, app.logger)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.trusted,
		app.services.Auth, app.services.Items, app.services.Audit, app.services.Export)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

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

	if app.config.EndpointAddrGRPC != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startGRPCServer(ctx, cancelFunc)
		}()
	}

	wg.Wait()

	app.close(context.WithoutCancel(ctx))
	app.logger.Info(ctx, "App stopped")
}

func (app *App) close(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error(ctx, "redis close", "error", err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error(ctx, "db close", "error", err)
		}
	}
	if app.shutdown != nil {
		if err := app.shutdown(ctx); err != nil {
			app.logger.Error(ctx, "telemetry shutdown", "error", err)
		}
	}
}
