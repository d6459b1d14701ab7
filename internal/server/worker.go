package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/detailerapp/backend/internal/logging"
	"github.com/detailerapp/backend/internal/server/config"
	"github.com/detailerapp/backend/internal/server/docstore"
	"github.com/detailerapp/backend/internal/server/events"
	"github.com/detailerapp/backend/internal/server/metrics"
	"github.com/detailerapp/backend/internal/server/notifications"
	"github.com/detailerapp/backend/internal/server/push"
)

// Worker is the notification dispatch process: it consumes document-created
// events and turns notification requests into push messages.
type Worker struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	broker   events.Broker
	consumer *notifications.Consumer
}

func NewWorker(ctx context.Context, cfg *config.Config) (*Worker, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := openDatabase(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	metrics.Init()

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

	store := docstore.NewPostgresStore(db)
	sender := push.NewHTTPSender(cfg.PushEndpoint, cfg.PushServerKey)
	processor := notifications.NewProcessor(store, sender, logger)

	return &Worker{
		config:   cfg,
		logger:   logger,
		db:       db,
		broker:   broker,
		consumer: notifications.NewConsumer(broker, processor, logger),
	}, nil
}

func (w *Worker) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	initSignalHandler(cancel)

	go w.startMetricsServer(ctx)

	w.logger.Info(ctx, "notification worker started")
	err := w.consumer.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		w.logger.Error(ctx, "consumer stopped", "error", err)
	}

	if err := w.broker.Close(); err != nil {
		w.logger.Error(ctx, "closing broker", "error", err)
	}
	return w.db.Close()
}

func (w *Worker) startMetricsServer(ctx context.Context) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	w.logger.Info(ctx, "metrics server listening", "addr", w.config.MetricsAddr)
	if err := http.ListenAndServe(w.config.MetricsAddr, mux); err != nil {
		w.logger.Error(ctx, "metrics server stopped", "error", err)
	}
}
