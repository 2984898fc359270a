package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clinicware/clinic-pos/cmd/mainconfig"
	"github.com/clinicware/clinic-pos/internal/api/router"
	"github.com/clinicware/clinic-pos/internal/app/bootstrap"
	"github.com/clinicware/clinic-pos/internal/appointments"
	appconfig "github.com/clinicware/clinic-pos/internal/config"
	"github.com/clinicware/clinic-pos/internal/documents"
	"github.com/clinicware/clinic-pos/internal/events"
	"github.com/clinicware/clinic-pos/internal/http/handlers"
	"github.com/clinicware/clinic-pos/internal/inventory"
	"github.com/clinicware/clinic-pos/internal/labtests"
	"github.com/clinicware/clinic-pos/internal/live"
	"github.com/clinicware/clinic-pos/internal/notify"
	"github.com/clinicware/clinic-pos/internal/observability/metrics"
	"github.com/clinicware/clinic-pos/internal/posload"
	"github.com/clinicware/clinic-pos/internal/prescriptions"
	"github.com/clinicware/clinic-pos/internal/reports"
	"github.com/clinicware/clinic-pos/internal/sessions"
	"github.com/clinicware/clinic-pos/internal/staff"
	"github.com/clinicware/clinic-pos/pkg/logging"
)

// liveSource adapts the repositories to the live hub's snapshot reads.
type liveSource struct {
	appts  *appointments.Repository
	prescs *prescriptions.Repository
}

func (s liveSource) AppointmentsByDate(ctx context.Context, orgID, date string) ([]appointments.Appointment, error) {
	return s.appts.ListByDate(ctx, orgID, date)
}

func (s liveSource) PrescriptionsByAppointment(ctx context.Context, orgID, appointmentID string) ([]prescriptions.Prescription, error) {
	return s.prescs.ListByAppointment(ctx, orgID, appointmentID)
}

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic-pos API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	reportsDB := bootstrap.BuildReportsDB(cfg, logger)
	if reportsDB != nil {
		defer func() { _ = reportsDB.Close() }()
	}

	reg := prometheus.NewRegistry()
	schedulingMetrics := metrics.NewSchedulingMetrics(reg)
	posMetrics := metrics.NewPOSMetrics(reg)
	liveMetrics := metrics.NewLiveMetrics(reg)
	outboxMetrics := metrics.NewOutboxMetrics(reg)

	// Repositories.
	apptRepo := appointments.NewRepository(pool)
	sessionRepo := sessions.NewRepository(pool)
	prescRepo := prescriptions.NewRepository(pool)
	invRepo := inventory.NewRepository(pool)
	labRepo := labtests.NewRepository(pool)
	staffRepo := staff.NewRepository(pool)
	saleRepo := posload.NewSaleRepository(pool)
	outboxStore := events.NewOutboxStore(pool)

	// POS loading cache sits on Redis; without Redis the POS flow degrades
	// to fail-open and counter exclusivity is not enforced.
	loadedCache := posload.NewLoadedCache(redisClient, logger).
		WithTTLs(cfg.POSLoadedTTL, cfg.POSConfirmedTTL)

	// Services.
	importSvc := sessions.NewImportService(sessionRepo, apptRepo, schedulingMetrics, logger)
	posSvc := posload.NewService(prescRepo, invRepo, saleRepo, loadedCache, outboxStore, posMetrics, logger)
	reportsSvc := reports.NewService(reportsDB, logger)

	// Live hub.
	hub := live.NewHub(liveSource{appts: apptRepo, prescs: prescRepo}, liveMetrics, logger)

	// AWS-backed pieces: documents on S3, export feed on SQS, email on SES.
	var (
		docStore   *documents.Store
		exportSink *events.SQSSink
		sesClient  *sesv2.Client
	)
	if cfg.DocumentsBucket != "" || cfg.ExportQueueURL != "" || cfg.EmailProvider == "ses" {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		if cfg.DocumentsBucket != "" {
			docStore = documents.NewStore(s3.NewFromConfig(awsCfg), cfg.DocumentsBucket, logger)
		}
		if cfg.ExportQueueURL != "" {
			exportSink = events.NewSQSSink(sqs.NewFromConfig(awsCfg), cfg.ExportQueueURL, outboxMetrics)
		}
		if cfg.EmailProvider == "ses" {
			sesClient = sesv2.NewFromConfig(awsCfg)
		}
	}
	if docStore == nil {
		docStore = documents.NewStore(nil, "", logger)
	}

	// Email sender selection.
	var emailSender notify.EmailSender
	switch cfg.EmailProvider {
	case "sendgrid":
		if s := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); s != nil {
			emailSender = s
		}
	case "ses":
		if s := notify.NewSESSender(sesClient, notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger); s != nil {
			emailSender = s
		}
	}
	notifier := notify.NewService(emailSender, cfg.ClinicName, logger)

	// Outbox delivery: push live snapshots, and mirror events onto the
	// export queue when configured.
	sinks := []events.DeliveryHandler{events.NewLiveSink(hub, outboxMetrics)}
	if exportSink != nil {
		sinks = append(sinks, exportSink)
	}
	deliverer := events.NewDeliverer(outboxStore, events.NewFanout(sinks...), outboxMetrics, logger).
		WithBatchSize(int32(cfg.OutboxBatchSize)).
		WithInterval(cfg.OutboxInterval)
	go deliverer.Start(ctx)

	routerCfg := &router.Config{
		Logger:             logger,
		Sessions:           handlers.NewSessionsHandler(apptRepo, logger),
		Appointments:       handlers.NewAppointmentsHandler(apptRepo, importSvc, outboxStore, notifier, logger),
		Prescriptions:      handlers.NewPrescriptionsHandler(prescRepo, loadedCache, logger),
		POS:                handlers.NewPOSHandler(posSvc, notifier, logger),
		Inventory:          handlers.NewInventoryHandler(invRepo, logger),
		LabTests:           handlers.NewLabTestsHandler(labRepo, logger),
		Staff:              handlers.NewStaffHandler(staffRepo, logger),
		Documents:          handlers.NewDocumentsHandler(docStore, logger),
		Reports:            handlers.NewReportsHandler(reportsSvc, logger),
		LiveHub:            hub,
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		AdminAuthSecret:    cfg.AdminJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimit:          20,
		RateLimitBurst:     40,
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
