package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/teleclinic/consult-api/internal/config"
	"github.com/teleclinic/consult-api/internal/event"
	adminHandler "github.com/teleclinic/consult-api/internal/handler/admin"
	authHandler "github.com/teleclinic/consult-api/internal/handler/auth"
	consultationHandler "github.com/teleclinic/consult-api/internal/handler/consultation"
	exportHandler "github.com/teleclinic/consult-api/internal/handler/export"
	healthHandler "github.com/teleclinic/consult-api/internal/handler/health"
	paymentHandler "github.com/teleclinic/consult-api/internal/handler/payment"
	recordHandler "github.com/teleclinic/consult-api/internal/handler/record"
	templateHandler "github.com/teleclinic/consult-api/internal/handler/template"
	"github.com/teleclinic/consult-api/internal/middleware"
	"github.com/teleclinic/consult-api/internal/repository/postgres"
	"github.com/teleclinic/consult-api/internal/router"
	authService "github.com/teleclinic/consult-api/internal/service/auth"
	consultationService "github.com/teleclinic/consult-api/internal/service/consultation"
	doctorService "github.com/teleclinic/consult-api/internal/service/doctor"
	exportService "github.com/teleclinic/consult-api/internal/service/export"
	paymentService "github.com/teleclinic/consult-api/internal/service/payment"
	recordService "github.com/teleclinic/consult-api/internal/service/record"
	schedulingService "github.com/teleclinic/consult-api/internal/service/scheduling"
	templateService "github.com/teleclinic/consult-api/internal/service/template"
	"github.com/teleclinic/consult-api/internal/service/video"
	pkgauth "github.com/teleclinic/consult-api/pkg/auth"
	"github.com/teleclinic/consult-api/pkg/logger"
	"github.com/teleclinic/consult-api/pkg/messaging"
	messagingredis "github.com/teleclinic/consult-api/pkg/messaging/redis"
	"github.com/teleclinic/consult-api/pkg/metrics"
	"github.com/teleclinic/consult-api/pkg/security"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := logger.NewLogger(&logger.Config{
		Level:      level,
		TimeFormat: time.RFC3339,
		Pretty:     cfg.Logging.Pretty,
	})
	zl := log.Zerolog()

	clinicTZ, err := time.LoadLocation(cfg.Clinic.Timezone)
	if err != nil {
		log.Fatal(err, "invalid clinic timezone", "timezone", cfg.Clinic.Timezone)
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal(err, "database connection failed")
	}
	defer db.Close()

	var broker messaging.Broker
	if cfg.Redis.URL != "" {
		broker, err = messagingredis.NewRedisBroker(messagingredis.Config{URL: cfg.Redis.URL}, zl)
		if err != nil {
			log.Fatal(err, "redis connection failed")
		}
		defer broker.Close()
	}
	publisher := event.NewPublisher(broker)

	registry := prometheus.NewRegistry()
	m := metrics.New("consult_api", registry)

	consultationRepo := postgres.NewConsultationRepository(db, clinicTZ)
	patientRepo := postgres.NewPatientRepository(db)
	doctorRepo := postgres.NewDoctorRepository(db)
	recordRepo := postgres.NewClinicalRecordRepository(db)
	templateRepo := postgres.NewTemplateRepository(db)
	paymentRepo := postgres.NewPaymentRepository(db)

	provisioner := video.NewRetryingProvisioner(
		video.NewJitsiProvisioner(cfg.Jitsi.Domain),
		cfg.Jitsi.MaxAttempts,
		cfg.Jitsi.RetryInterval,
	)

	hasher := security.NewBcryptHasher(0)
	jwtSvc := pkgauth.NewJWTService(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryHours)*time.Hour, "consult-api")

	schedulingSvc := schedulingService.NewService(consultationRepo, patientRepo, doctorRepo, provisioner, publisher, m, log)
	consultationSvc := consultationService.NewService(consultationRepo, doctorRepo, patientRepo, provisioner, publisher, m, log, clinicTZ, cfg.Jitsi.Domain)
	recordSvc := recordService.NewService(recordRepo, patientRepo, log)
	templateSvc := templateService.NewService(templateRepo)
	doctorSvc := doctorService.NewService(doctorRepo, hasher, log)
	authSvc := authService.NewService(doctorRepo, hasher, jwtSvc)
	exportSvc := exportService.NewService(patientRepo, recordRepo, cfg.Clinic.Name)
	paymentSvc := paymentService.NewService(
		paymentRepo, consultationRepo, patientRepo,
		paymentService.NewHostedProcessor(cfg.Payments.CheckoutBaseURL),
		cfg.Payments.WebhookSecret, cfg.Payments.DefaultFee, cfg.Payments.Currency,
		log,
	)

	authMW := middleware.NewAuthMiddleware(jwtSvc)

	engine := router.New(cfg, zl, authMW, m, registry, router.Handlers{
		Health:       healthHandler.NewHandler(db),
		Auth:         authHandler.NewHandler(authSvc),
		Consultation: consultationHandler.NewHandler(schedulingSvc, consultationSvc, doctorSvc),
		Record:       recordHandler.NewHandler(recordSvc),
		Template:     templateHandler.NewHandler(templateSvc),
		Admin:        adminHandler.NewHandler(consultationSvc, doctorSvc),
		Payment:      paymentHandler.NewHandler(paymentSvc),
		Export:       exportHandler.NewHandler(exportSvc),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("server listening", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err, "server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal(err, "forced shutdown")
	}
	log.Info("server stopped")
}
