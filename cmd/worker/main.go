package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/teleclinic/consult-api/internal/email"
	notificationService "github.com/teleclinic/consult-api/internal/service/notification"
	"github.com/teleclinic/consult-api/pkg/logger"
	messagingredis "github.com/teleclinic/consult-api/pkg/messaging/redis"
	"github.com/teleclinic/consult-api/pkg/metrics"
)

// workerConfig is intentionally flat: the worker deploys separately from
// the API and takes its few settings from the environment.
type workerConfig struct {
	RedisURL     string `envconfig:"REDIS_URL" required:"true"`
	SMTPHost     string `envconfig:"SMTP_HOST"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername string `envconfig:"SMTP_USERNAME"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	SMTPFrom     string `envconfig:"SMTP_FROM" default:"no-reply@teleclinic.example"`
	ClinicName   string `envconfig:"CLINIC_NAME" default:"Teleclinic"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`
}

func main() {
	var cfg workerConfig
	if err := envconfig.Process("worker", &cfg); err != nil {
		panic(err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := logger.NewLogger(&logger.Config{Level: level, TimeFormat: time.RFC3339})

	broker, err := messagingredis.NewRedisBroker(messagingredis.Config{URL: cfg.RedisURL}, log.Zerolog())
	if err != nil {
		log.Fatal(err, "redis connection failed")
	}
	defer broker.Close()

	var mailer email.Mailer = email.NopMailer{}
	if cfg.SMTPHost != "" {
		mailer = email.NewSMTPMailer(email.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	} else {
		log.Warn("SMTP not configured, dropping outbound mail")
	}

	m := metrics.New("consult_worker", prometheus.NewRegistry())
	svc := notificationService.NewService(broker, mailer, m, log, cfg.ClinicName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := svc.Run(ctx); err != nil && err != context.Canceled {
		log.Error(err, "worker stopped")
		os.Exit(1)
	}
	log.Info("worker stopped")
}
