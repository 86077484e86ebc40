package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"qorsense-cloud/internal/analysis/application"
	analysispostgres "qorsense-cloud/internal/analysis/infrastructure/postgres"
	analysishttp "qorsense-cloud/internal/analysis/interfaces/http"
	"qorsense-cloud/internal/audit"
	"qorsense-cloud/internal/auth"
	"qorsense-cloud/internal/notify"
	"qorsense-cloud/internal/observability/metrics"
	readingspostgres "qorsense-cloud/internal/readings/infrastructure/postgres"
	readingshttp "qorsense-cloud/internal/readings/interfaces/http"
	"qorsense-cloud/internal/reports"
	sensorspostgres "qorsense-cloud/internal/sensors/infrastructure/postgres"
	sensorshttp "qorsense-cloud/internal/sensors/interfaces/http"
	"qorsense-cloud/internal/synthetic"
	"qorsense-cloud/internal/tasks"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init(db, logger)
	sensorChecker := auth.NewSensorChecker(db)
	auditRepo := audit.NewRepository(db)

	sensorRepo := sensorspostgres.NewSensorRepository(db)
	readingRepo := readingspostgres.NewReadingRepository(db)
	readingQuery := readingspostgres.NewReadingQuery(db)
	resultRepo := analysispostgres.NewResultRepository(db)

	settings, err := application.LoadSettings()
	if err != nil {
		logger.Fatalf("analysis settings error: %v", err)
	}

	serviceOpts := []application.Option{}
	if cfg.AlertWebhookURL != "" {
		serviceOpts = append(serviceOpts, application.WithNotifier(notify.NewWebhookNotifier(cfg.AlertWebhookURL)))
	}
	analysisService, err := application.NewService(settings, readingQuery, resultRepo, logger, serviceOpts...)
	if err != nil {
		logger.Fatalf("analysis service error: %v", err)
	}

	watchdog := application.NewWatchdog(analysisService, sensorRepo, cfg.TenantID, settings.Watchdog, logger)
	go watchdog.Start(context.Background())

	taskStore := tasks.NewStore()
	taskDispatcher, err := tasks.NewDispatcher(taskStore, logger, tasks.WithWorkers(cfg.TaskWorkers))
	if err != nil {
		logger.Fatalf("task dispatcher error: %v", err)
	}
	taskDispatcher.Start(context.Background())

	ingestHandler, err := readingshttp.NewIngestHandler(readingRepo, logger)
	if err != nil {
		logger.Fatalf("ingest handler error: %v", err)
	}
	sensorHandler, err := sensorshttp.NewHandler(sensorRepo, auditRepo)
	if err != nil {
		logger.Fatalf("sensor handler error: %v", err)
	}
	analyzeHandler, err := analysishttp.NewHandler(analysisService, sensorChecker, auditRepo)
	if err != nil {
		logger.Fatalf("analyze handler error: %v", err)
	}
	historyHandler, err := analysishttp.NewHistoryHandler(analysisService, sensorChecker)
	if err != nil {
		logger.Fatalf("history handler error: %v", err)
	}
	taskHandler, err := tasks.NewHandler(taskDispatcher, taskStore, analysisService)
	if err != nil {
		logger.Fatalf("task handler error: %v", err)
	}
	reportHandler, err := reports.NewHandler(sensorRepo, resultRepo)
	if err != nil {
		logger.Fatalf("report handler error: %v", err)
	}
	syntheticHandler, err := synthetic.NewHandler(readingRepo, logger)
	if err != nil {
		logger.Fatalf("synthetic handler error: %v", err)
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, []string{"/ingest/"})
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)
	ingestAuth := auth.NewIngestAuthMiddleware([]byte(cfg.IngestSecret), time.Duration(cfg.IngestSkewSeconds)*time.Second)

	mux := http.NewServeMux()
	mux.Handle("/ingest/readings", ingestAuth.Wrap(ingestHandler))
	mux.Handle("/api/v1/sensors", sensorHandler)
	mux.Handle("/api/v1/sensors/", sensorHandler)
	mux.Handle("/api/v1/analyze", analyzeHandler)
	mux.Handle("/api/v1/assessments", historyHandler)
	mux.Handle("/api/v1/tasks", taskHandler)
	mux.Handle("/api/v1/tasks/", taskHandler)
	mux.Handle("/api/v1/reports/", reportHandler)
	mux.Handle("/api/v1/synthetic", syntheticHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	DatabaseURL       string
	HTTPAddr          string
	TenantID          string
	AlertWebhookURL   string
	TaskWorkers       int
	JWTSecret         string
	IngestSecret      string
	IngestSkewSeconds int
}

func loadConfig() config {
	cfg := config{
		DatabaseURL:       getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:          getenvDefault("HTTP_ADDR", ":8080"),
		TenantID:          getenvDefault("TENANT_ID", "tenant-demo"),
		AlertWebhookURL:   getenvDefault("ALERT_WEBHOOK_URL", ""),
		TaskWorkers:       getenvIntDefault("TASK_WORKERS", 4),
		JWTSecret:         getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		IngestSecret:      getenvDefault("INGEST_HMAC_SECRET", ""),
		IngestSkewSeconds: getenvIntDefault("INGEST_MAX_SKEW_SECONDS", 300),
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
