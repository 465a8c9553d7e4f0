package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/stockroom-io/stockroom/internal/inventory"
	"github.com/stockroom-io/stockroom/internal/messaging"
	"github.com/stockroom-io/stockroom/internal/orders"
	"github.com/stockroom-io/stockroom/internal/telemetry"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	postgresURL := os.Getenv("POSTGRES_URL")
	if postgresURL == "" {
		logger.Error("POSTGRES_URL environment variable is required")
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "stockroom-api", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider("stockroom-api", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	db, err := telemetry.OpenDB("postgres", postgresURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	var createdProducer, cancelledProducer *messaging.Producer
	kafkaBrokers := os.Getenv("KAFKA_BROKERS")
	if kafkaBrokers != "" {
		brokers := strings.Split(kafkaBrokers, ",")
		createdProducer = messaging.NewProducer(brokers, "order.created")
		defer func() { _ = createdProducer.Close() }()
		cancelledProducer = messaging.NewProducer(brokers, "order.cancelled")
		defer func() { _ = cancelledProducer.Close() }()
	}

	itemRepo := inventory.NewItemRepository(db)
	itemHandler := inventory.NewHandler(itemRepo, logger)

	orderRepo := orders.NewOrderRepository(db)
	orderHandler := orders.NewHandler(orderRepo, createdProducer, cancelledProducer, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /inventories", telemetry.WithHTTPRoute(itemHandler.HandleCreate))
	mux.HandleFunc("GET /inventories", telemetry.WithHTTPRoute(itemHandler.HandleList))
	mux.HandleFunc("GET /inventories/{uuid}", telemetry.WithHTTPRoute(itemHandler.HandleGet))
	mux.HandleFunc("PUT /inventories/{uuid}", telemetry.WithHTTPRoute(itemHandler.HandleUpdate))
	mux.HandleFunc("DELETE /inventories/{uuid}", telemetry.WithHTTPRoute(itemHandler.HandleDelete))
	mux.HandleFunc("POST /orders", telemetry.WithHTTPRoute(orderHandler.HandleCreate))
	mux.HandleFunc("GET /orders", telemetry.WithHTTPRoute(orderHandler.HandleList))
	mux.HandleFunc("GET /orders/{uuid}", telemetry.WithHTTPRoute(orderHandler.HandleGet))
	mux.HandleFunc("PUT /orders/{uuid}", telemetry.WithHTTPRoute(orderHandler.HandleUpdate))
	mux.HandleFunc("DELETE /orders/{uuid}", telemetry.WithHTTPRoute(orderHandler.HandleDelete))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("GET /metrics", metricsHandler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr: ":" + port,
		Handler: otelhttp.NewHandler(mux, "stockroom-api",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting stockroom api", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
