package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/patient-records/internal/config"
	"github.com/jwalitptl/patient-records/internal/handler/health"
	"github.com/jwalitptl/patient-records/internal/handler/patient"
	"github.com/jwalitptl/patient-records/internal/repository"
	"github.com/jwalitptl/patient-records/internal/repository/memory"
	"github.com/jwalitptl/patient-records/internal/repository/postgres"
	"github.com/jwalitptl/patient-records/internal/router"
	patientService "github.com/jwalitptl/patient-records/internal/service/patient"
	"github.com/jwalitptl/patient-records/pkg/logger"
	"github.com/jwalitptl/patient-records/pkg/messaging"
	"github.com/jwalitptl/patient-records/pkg/messaging/redis"
	"github.com/jwalitptl/patient-records/pkg/metrics"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.NewLogger(nil).Fatal(err, "failed to load configuration")
	}

	log := logger.NewLogger(&logger.Config{
		Level: logger.ParseLevel(cfg.Log.Level),
		JSON:  cfg.Log.Format == "json",
	})
	gin.SetMode(gin.ReleaseMode)

	m := metrics.NewMetrics("patients", prometheus.DefaultRegisterer)

	// Initialize store
	table, closeStore, err := openStore(cfg)
	if err != nil {
		log.Fatal(err, "failed to open patient store", "driver", cfg.Store.Driver)
	}
	defer closeStore()

	patientSvc := patientService.NewService(table, log.WithFields(map[string]interface{}{"component": "patient_service"}), m)

	// Initialize change events
	var publisher messaging.Publisher
	if cfg.Redis.Enabled {
		broker, err := redis.NewRedisBroker(context.Background(), redis.Config{
			URL:          cfg.Redis.URL,
			MaxRetries:   cfg.Redis.MaxRetries,
			RetryBackoff: cfg.Redis.RetryBackoff,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		}, log)
		if err != nil {
			log.Fatal(err, "failed to connect to Redis")
		}
		defer broker.Close()
		publisher = messaging.NewPublisher(broker, cfg.Redis.Channel, log, m)
	}

	// Setup router
	r := router.NewRouter(
		patient.NewHandler(patientSvc, publisher, log),
		health.NewHandler(table),
		router.RouterConfig{
			RateLimitEnabled: cfg.RateLimit.Enabled,
			RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:        cfg.RateLimit.Burst,
			RateClientTTL:    cfg.RateLimit.ClientTTL,
			MetricsPath:      cfg.Server.MetricsPath,
			MaxBodySize:      cfg.Server.MaxBodySize,
			Metrics:          m,
			Log:              log.Zerolog(),
		},
	)
	r.Setup()

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info("server listening", "addr", srv.Addr, "store", cfg.Store.Driver, "events", cfg.Redis.Enabled)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err, "failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error(err, "server forced to shutdown")
		return
	}

	log.Info("server exited properly")
}

func openStore(cfg *config.Config) (repository.PatientTable, func(), error) {
	if cfg.Store.Driver == config.DriverMemory {
		return memory.NewPatientTable(), func() {}, nil
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return postgres.NewPatientRepository(db, cfg.Database.Table), func() { db.Close() }, nil
}
