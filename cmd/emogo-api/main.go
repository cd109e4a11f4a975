package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/ntu-info/emogo-backend-yu-hsuan-ho/config"
	"github.com/ntu-info/emogo-backend-yu-hsuan-ho/internal/handlers"
	"github.com/ntu-info/emogo-backend-yu-hsuan-ho/internal/repositories/emotion"
	"github.com/ntu-info/emogo-backend-yu-hsuan-ho/internal/repositories/gps"
	"github.com/ntu-info/emogo-backend-yu-hsuan-ho/internal/repositories/vlog"
	"github.com/ntu-info/emogo-backend-yu-hsuan-ho/pkg/database"
	"github.com/ntu-info/emogo-backend-yu-hsuan-ho/pkg/export"
	"github.com/ntu-info/emogo-backend-yu-hsuan-ho/pkg/middleware"
	"github.com/ntu-info/emogo-backend-yu-hsuan-ho/pkg/reconcile"
	"github.com/ntu-info/emogo-backend-yu-hsuan-ho/pkg/routes/health"
	"github.com/ntu-info/emogo-backend-yu-hsuan-ho/pkg/startup"
	"github.com/ntu-info/emogo-backend-yu-hsuan-ho/pkg/tracing"
	"github.com/ntu-info/emogo-backend-yu-hsuan-ho/pkg/tracing/exporters"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := &application{cfg: cfg, logger: logger}

	boot := startup.NewStartup(logger, cfg.StartupMaxAttempts)
	boot.AddDependency(&dependency{name: "tracing", start: app.startTracing, stopFn: app.stopTracing})
	boot.AddDependency(&dependency{name: "database", start: app.startDatabase, stopFn: app.stopDatabase})
	boot.AddDependency(&dependency{name: "migrations", dependsOn: []string{"database"}, start: app.runMigrations})
	boot.AddDependency(&dependency{name: "http-server", dependsOn: []string{"database", "migrations"}, start: app.startHTTP, stopFn: app.stopHTTP})

	if err := boot.Start(ctx); err != nil {
		logger.WithError(err).Errorf("startup failed")
		os.Exit(1)
	}

	app.health.SetReady(true)
	logger.WithField("port", cfg.Port).Infof("%s listening on port %d", cfg.AppName, cfg.Port)

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := boot.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Errorf("shutdown did not complete cleanly")
		os.Exit(1)
	}
}

type application struct {
	cfg    *config.Config
	logger ectologger.Logger

	sqlxDB *sqlx.DB
	db     database.DB
	echo   *echo.Echo
	health *health.Checker
	tracer *sdktrace.TracerProvider
}

func (a *application) startTracing(ctx context.Context) error {
	var exporter sdktrace.SpanExporter
	if a.cfg.OTLPEnabled {
		otlp, err := exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
			Endpoint: a.cfg.OTLPEndpoint,
			Protocol: a.cfg.OTLPProtocol,
			Insecure: a.cfg.OTLPInsecure,
			Timeout:  10 * time.Second,
		})
		if err != nil {
			return err
		}
		exporter = otlp
	} else {
		exporter = &exporters.ConsoleExporter{}
	}

	res := sdkresource.NewSchemaless(
		attribute.String("service.name", a.cfg.AppName),
		attribute.String("service.version", version),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	tracing.SetTracer(tp.Tracer(a.cfg.AppName))

	a.tracer = tp
	return nil
}

func (a *application) stopTracing(ctx context.Context) error {
	if a.tracer == nil {
		return nil
	}
	return a.tracer.Shutdown(ctx)
}

func (a *application) startDatabase(ctx context.Context) error {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		a.cfg.DatabaseHost, a.cfg.DatabasePort, a.cfg.DatabaseUserName,
		a.cfg.DatabasePassword, a.cfg.DatabaseName, a.cfg.DatabaseSSLMode,
	)

	db, err := sqlx.ConnectContext(ctx, a.cfg.DatabaseDriver, dsn)
	if err != nil {
		return err
	}

	db.SetMaxOpenConns(a.cfg.DatabaseMaxOpenConns)
	db.SetMaxIdleConns(a.cfg.DatabaseMaxIdleConns)
	db.SetConnMaxLifetime(a.cfg.DatabaseConnMaxLifetime)

	a.sqlxDB = db
	a.db = database.NewDatabaseInstance(db, a.logger)
	return nil
}

func (a *application) stopDatabase(ctx context.Context) error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func (a *application) runMigrations(ctx context.Context) error {
	driver, err := migratepg.WithInstance(a.sqlxDB.DB, &migratepg.Config{})
	if err != nil {
		return err
	}

	ms := database.NewMigrationService(a.logger, &database.MigrationConfig{
		MigrationFolderPath: a.cfg.DatabaseMigrationFolderPath,
		Version:             uint(a.cfg.DatabaseMigrationVersion),
		Force:               a.cfg.DatabaseMigrationForce,
		AutoRollback:        a.cfg.DatabaseMigrationAutoRollback,
	})
	return ms.Migrate(a.cfg.DatabaseName, driver)
}

func (a *application) startHTTP(ctx context.Context) error {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(a.logger)

	e.Use(otelecho.Middleware(a.cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(a.logger))
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: a.cfg.AllowOrigins,
		AllowMethods: a.cfg.AllowMethods,
	}))

	a.health = health.NewChecker(a.db, version)
	a.health.RegisterRoutes(e)

	reconciler := reconcile.New(a.logger)
	encoder := export.NewCSVEncoder(a.cfg.CSVCoordinatePrecision, a.cfg.CSVScorePrecision)

	dataHandler := handlers.NewDataHandler(
		vlog.NewRepository(a.db, a.logger),
		emotion.NewRepository(a.db, a.logger),
		gps.NewRepository(a.db, a.logger),
		reconciler,
		encoder,
		a.logger,
	)
	dataHandler.Register(e)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Port),
		ReadTimeout:       time.Duration(a.cfg.HttpServerReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(a.cfg.HttpServerWriteTimeoutSeconds) * time.Second,
		IdleTimeout:       time.Duration(a.cfg.HttpServerIdleTimeoutSeconds) * time.Second,
		ReadHeaderTimeout: time.Duration(a.cfg.ReadHeaderTimeoutSeconds) * time.Second,
		MaxHeaderBytes:    a.cfg.MaxHeaderBytes,
	}

	a.echo = e

	go func() {
		if err := e.StartServer(server); err != nil && err != http.ErrServerClosed {
			a.logger.WithError(err).Errorf("http server stopped unexpectedly")
		}
	}()

	return nil
}

func (a *application) stopHTTP(ctx context.Context) error {
	if a.echo == nil {
		return nil
	}
	return a.echo.Shutdown(ctx)
}

func newLogger(cfg *config.Config) ectologger.Logger {
	var zl *zap.Logger
	if cfg.PrettyLogs {
		zl, _ = zap.NewDevelopment()
	} else {
		zl, _ = zap.NewProduction()
	}
	return zapadapter.NewZapEctoLogger(zl, nil)
}

// dependency adapts start/stop funcs to the startup.StartupDependency interface.
type dependency struct {
	name      string
	dependsOn []string
	start     func(ctx context.Context) error
	stopFn    func(ctx context.Context) error
}

func (d *dependency) GetName() string {
	return d.name
}

func (d *dependency) DependsOn() []string {
	return d.dependsOn
}

func (d *dependency) Start(ctx context.Context) error {
	if d.start == nil {
		return nil
	}
	return d.start(ctx)
}

func (d *dependency) Stop(ctx context.Context) error {
	if d.stopFn == nil {
		return nil
	}
	return d.stopFn(ctx)
}
