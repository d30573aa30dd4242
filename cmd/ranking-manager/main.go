// cmd/ranking-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"supplier-ranking/internal/app"
	"supplier-ranking/internal/common/camunda"
	"supplier-ranking/internal/common/config"
	"supplier-ranking/internal/common/logger"
	"supplier-ranking/internal/common/observability"
	"supplier-ranking/internal/common/validation"
	"supplier-ranking/internal/ranking/recompute"
	"supplier-ranking/pkg/registry"

	gcr "supplier-ranking/internal/workers/ranking/get-current-rankings"
	gst "supplier-ranking/internal/workers/ranking/get-supplier-trend"
	rcr "supplier-ranking/internal/workers/ranking/recompute-rankings"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting ranking manager...", zap.String("environment", cfg.App.Environment))

	obs := observability.New(observability.Options{
		ServiceName:      cfg.Observability.ServiceName,
		JaegerEndpoint:   cfg.Observability.JaegerEndpoint,
		TraceSampleRatio: cfg.Observability.TraceSampleRatio,
	})
	defer obs.Shutdown()

	ctx := context.Background()

	reg, err := registry.Default()
	if err != nil {
		zapLog.Fatal("activity registry failed to load", zap.Error(err))
	}
	if err := reg.Validate(); err != nil {
		zapLog.Fatal("activity registry is invalid", zap.Error(err))
	}

	// --- Backends ---
	svc, err := app.Connect(ctx, cfg, log, recompute.WithTracer(obs.Tracer()))
	if err != nil {
		zapLog.Fatal("backends failed to connect", zap.Error(err))
	}
	defer svc.Close()

	// --- Zeebe ---
	var zeebe *camunda.Client
	err = app.RetryWithBackoff(ctx, func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: cfg.Camunda.Plaintext,
			RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		return err
	}, 10, 2*time.Second, log, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	schemaFor := func(taskType string) *validation.Schema {
		schema, err := reg.InputSchema(taskType)
		if err != nil {
			zapLog.Fatal("input schema missing", zap.String("taskType", taskType), zap.Error(err))
		}
		return schema
	}

	// --- Workers ---
	var workers []*camunda.CamundaWorker
	start := func(taskType string, handler camunda.JobHandler, timeout time.Duration) {
		wcfg := config.GetWorkerConfig(cfg, taskType)
		if !wcfg.Enabled {
			zapLog.Info("worker disabled", zap.String("taskType", taskType))
			return
		}
		w := camunda.NewWorker(zeebe.GetClient(), taskType, camunda.WorkerOptions{
			MaxJobsActive: wcfg.MaxJobsActive,
			Timeout:       timeout,
		}, handler, log)
		w.Start()
		workers = append(workers, w)
	}

	{
		wcfg := rcr.LoadConfig(config.GetWorkerConfig(cfg, rcr.TaskType))
		start(rcr.TaskType, rcr.NewHandler(wcfg, svc.Orchestrator, schemaFor(rcr.TaskType), obs, log), wcfg.Timeout)
	}
	{
		wcfg := gcr.LoadConfig(config.GetWorkerConfig(cfg, gcr.TaskType))
		start(gcr.TaskType, gcr.NewHandler(wcfg, svc.Query, schemaFor(gcr.TaskType), obs, log), wcfg.Timeout)
	}
	{
		wcfg := gst.LoadConfig(config.GetWorkerConfig(cfg, gst.TaskType))
		start(gst.TaskType, gst.NewHandler(wcfg, svc.Query, schemaFor(gst.TaskType), obs, log), wcfg.Timeout)
	}
	zapLog.Info("Ranking workers registered", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]interface{}{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{}
		code := http.StatusOK
		for name, err := range svc.Ping(r.Context()) {
			checks[name] = "ok"
			if err != nil {
				checks[name] = err.Error()
				if name == "postgres" {
					code = http.StatusServiceUnavailable
				}
			}
		}
		if err := zeebe.HealthCheck(r.Context()); err != nil {
			checks["zeebe"] = err.Error()
			code = http.StatusServiceUnavailable
		} else {
			checks["zeebe"] = "ok"
		}
		status := "ready"
		if code != http.StatusOK {
			status = "not_ready"
		}
		writeStatus(w, code, map[string]interface{}{
			"status": status,
			"checks": checks,
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              cfg.Observability.MetricsAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop(shutdownCtx)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping Health/Metrics server", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Ranking manager stopped gracefully")
}

func writeStatus(w http.ResponseWriter, code int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
