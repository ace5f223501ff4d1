// Command sessionsd serves the session lifecycle API over HTTP.
//
// Configuration comes from flags with environment fallbacks; the
// database DSN is always injected, never baked into the binary.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	persistence "github.com/goliatone/go-persistence-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	sessions "github.com/goliatone/go-sessions"
	"github.com/goliatone/go-sessions/inbound"
	sessionmigrations "github.com/goliatone/go-sessions/migrations"
	sqlstore "github.com/goliatone/go-sessions/store/sql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

type serverConfig struct {
	listen        string
	driver        string
	dsn           string
	workspaceRoot string
	provider      string
	debugSQL      bool
}

func main() {
	cfg := parseFlags()
	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "sessionsd: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() serverConfig {
	cfg := serverConfig{}
	flag.StringVar(&cfg.listen, "listen", envOr("SESSIONS_LISTEN", envOr("PORT", ":3000")), "listen address")
	flag.StringVar(&cfg.driver, "driver", envOr("SESSIONS_DB_DRIVER", "sqlite3"), "database driver (postgres|sqlite3)")
	flag.StringVar(&cfg.dsn, "dsn", os.Getenv("SESSIONS_DB_DSN"), "database DSN (required)")
	flag.StringVar(&cfg.workspaceRoot, "workspace-root", envOr("SESSIONS_BASE_PATH", "./sessions"), "credential workspace root")
	flag.StringVar(&cfg.provider, "provider", envOr("SESSIONS_PROVIDER", "devkit"), "connection provider name")
	flag.BoolVar(&cfg.debugSQL, "debug-sql", false, "log SQL statements")
	flag.Parse()

	// A bare port number still works for PORT=3000 style deployments.
	if cfg.listen != "" && !strings.Contains(cfg.listen, ":") {
		cfg.listen = ":" + cfg.listen
	}
	return cfg
}

func run(cfg serverConfig) error {
	if strings.TrimSpace(cfg.dsn) == "" {
		return fmt.Errorf("database DSN is required (set -dsn or SESSIONS_DB_DSN)")
	}

	logger := newSlogLogger("sessionsd")
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := openPersistence(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		return fmt.Errorf("build repository factory: %w", err)
	}

	cacheConfig := repositorycache.DefaultConfig()
	cacheConfig.TTL = time.Minute
	cacheService, err := repositorycache.NewCacheService(cacheConfig)
	if err != nil {
		return fmt.Errorf("build cache service: %w", err)
	}
	store, err := sqlstore.NewCachedSessionStore(factory.SessionStore(), cacheService)
	if err != nil {
		return fmt.Errorf("build session store: %w", err)
	}

	provider, err := sessions.NewProviderRegistry().Resolve(cfg.provider)
	if err != nil {
		return err
	}

	service, err := sessions.NewService(sessions.Config{WorkspaceRoot: cfg.workspaceRoot},
		sessions.WithLogger(logger),
		sessions.WithProvider(provider),
		sessions.WithSessionStore(store),
	)
	if err != nil {
		return fmt.Errorf("build service: %w", err)
	}

	go func() {
		report, err := service.RecoverActive(ctx)
		if err != nil {
			logger.Error("session recovery failed", "error", err)
			return
		}
		logger.Info("session recovery finished",
			"attempted", report.Attempted,
			"connected", report.Connected,
			"skipped", report.Skipped,
			"failed", len(report.Failures),
		)
	}()

	handler := inbound.NewHandler(service, logger)
	server := &http.Server{
		Addr:              cfg.listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.listen, "provider", cfg.provider, "driver", cfg.driver)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}
	return nil
}

func openPersistence(ctx context.Context, cfg serverConfig) (*persistence.Client, error) {
	var (
		driverName string
		dialect    schema.Dialect
		dialectTag string
	)
	switch strings.ToLower(strings.TrimSpace(cfg.driver)) {
	case "postgres", "pg", "postgresql":
		driverName = "postgres"
		dialect = pgdialect.New()
		dialectTag = sessionmigrations.DialectPostgres
	case "sqlite", "sqlite3":
		driverName = "sqlite3"
		dialect = sqlitedialect.New()
		dialectTag = sessionmigrations.DialectSQLite
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.driver)
	}

	sqlDB, err := sql.Open(driverName, cfg.dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if driverName == "sqlite3" {
		sqlDB.SetMaxOpenConns(1)
	}

	client, err := persistence.New(persistenceConfig{
		driver:   driverName,
		server:   cfg.dsn,
		debugSQL: cfg.debugSQL,
	}, sqlDB, dialect)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("new persistence client: %w", err)
	}

	_, err = sessionmigrations.Register(ctx, func(_ context.Context, migrationDialect string, _ string, fsys fs.FS) error {
		if migrationDialect != dialectTag {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, sessionmigrations.WithValidationTargets(dialectTag))
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("register migrations: %w", err)
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return client, nil
}

type persistenceConfig struct {
	driver   string
	server   string
	debugSQL bool
}

func (c persistenceConfig) GetDebug() bool                { return c.debugSQL }
func (c persistenceConfig) GetDriver() string             { return c.driver }
func (c persistenceConfig) GetServer() string             { return c.server }
func (c persistenceConfig) GetPingTimeout() time.Duration { return 5 * time.Second }
func (c persistenceConfig) GetOtelIdentifier() string     { return "sessionsd" }

func envOr(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

// slogLogger bridges log/slog into the glog contract for the binary;
// the library corpus only ships nop and resolve helpers.
type slogLogger struct {
	logger *slog.Logger
}

func newSlogLogger(name string) *slogLogger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	return &slogLogger{logger: slog.New(handler).With("logger", name)}
}

func (l *slogLogger) Trace(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *slogLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *slogLogger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *slogLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *slogLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

func (l *slogLogger) Fatal(msg string, args ...any) {
	l.logger.Error(msg, args...)
	os.Exit(1)
}

func (l *slogLogger) WithContext(context.Context) glog.Logger {
	return l
}
