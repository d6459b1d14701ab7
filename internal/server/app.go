// Package server wires the application together: configuration, storage
// backends, the event broker, and graceful shutdown for both the HTTP API
// and the notification worker.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/detailerapp/backend/internal/logging"
	"github.com/detailerapp/backend/internal/server/accounts"
	"github.com/detailerapp/backend/internal/server/blob"
	"github.com/detailerapp/backend/internal/server/config"
	"github.com/detailerapp/backend/internal/server/docstore"
	"github.com/detailerapp/backend/internal/server/events"
	"github.com/detailerapp/backend/internal/server/httpapi"
	"github.com/detailerapp/backend/internal/server/identity"
	"github.com/detailerapp/backend/internal/server/messages"
	"github.com/detailerapp/backend/internal/server/metrics"
	"github.com/detailerapp/backend/internal/server/migrations"
)

const shutdownTimeout = 10 * time.Second

// App is the HTTP API process.
type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	broker events.Broker
	server *httpapi.Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := openDatabase(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	metrics.Init()

	store := docstore.NewPostgresStore(db)
	idents := identity.NewPostgresStore(db)

	objects, err := blob.NewS3Store(ctx, blob.S3Config{
		RootUser:     cfg.S3RootUser,
		RootPassword: cfg.S3RootPassword,
		Bucket:       cfg.S3Bucket,
		Region:       cfg.S3Region,
		BaseEndpoint: cfg.S3BaseEndpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("object storage init error: %w", err)
	}

	broker, err := events.NewKafkaBroker(events.KafkaConfig{
		Brokers:           cfg.KafkaBrokers,
		Topic:             cfg.KafkaTopic,
		GroupID:           cfg.KafkaGroupID,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("broker init error: %w", err)
	}

	secret := []byte(cfg.SecretKey)
	accountsSvc := accounts.NewService(store, idents, objects, secret, cfg.AccessTokenValidityDuration, logger)
	messagesSvc := messages.NewService(store, broker, logger)

	return &App{
		config: cfg,
		logger: logger,
		db:     db,
		broker: broker,
		server: httpapi.NewServer(accountsSvc, messagesSvc, secret, logger),
	}, nil
}

func (app *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	initSignalHandler(cancel)

	srv := &http.Server{Addr: app.config.HTTPAddr, Handler: app.server.Router()}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(ctx, "http server listening", "addr", app.config.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		app.logger.Info(ctx, "shutting down")
		shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "shutdown error", "error", err)
		}
	}

	if err := app.broker.Close(); err != nil {
		app.logger.Error(ctx, "closing broker", "error", err)
	}
	return app.db.Close()
}

func openDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	if err := migrations.Run(ctx, db); err != nil {
		return nil, fmt.Errorf("migrations error: %w", err)
	}
	return db, nil
}

func initSignalHandler(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancel()
	}()
}
