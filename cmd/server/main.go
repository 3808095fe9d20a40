package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"gymbook/internal/api"
	"gymbook/internal/cache"
	"gymbook/internal/clock"
	"gymbook/internal/config"
	"gymbook/internal/database"
	"gymbook/internal/metrics"
	"gymbook/internal/notify"
	"gymbook/internal/remind"
	"gymbook/internal/report"
	"gymbook/internal/service"
)

func main() {
	_ = godotenv.Load()

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("GYMBOOK_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal().Err(err).Str("timezone", cfg.Booking.Timezone).Msg("invalid timezone")
	}

	db, err := database.New(cfg.Database.Path, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var availabilityCache service.AvailabilityCache
	if rdb != nil {
		availabilityCache = cache.NewRedis(rdb)
	}

	var notifier service.Notifier = service.NopNotifier{}
	var asynqNotifier *notify.AsynqNotifier
	var worker *notify.Worker
	if cfg.Notifications.Enabled && cfg.Redis.Address != "" {
		redisOpt := asynq.RedisClientOpt{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}

		asynqClient := asynq.NewClient(redisOpt)
		defer asynqClient.Close()
		asynqNotifier = notify.NewAsynqNotifier(asynqClient, &logger)
		notifier = asynqNotifier

		email := notify.NewEmailSender(notify.EmailConfig{
			SMTPAddr:   cfg.Notifications.Email.SMTPAddr,
			From:       cfg.Notifications.Email.From,
			Username:   cfg.Notifications.Email.Username,
			Password:   cfg.Notifications.Email.Password,
			RatePerSec: cfg.Notifications.Email.RatePerSec,
			Burst:      cfg.Notifications.Email.Burst,
		}, &logger)

		var staff *notify.StaffNotifier
		if cfg.Notifications.Telegram.BotToken != "" {
			staff, err = notify.NewStaffNotifier(
				cfg.Notifications.Telegram.BotToken,
				cfg.Notifications.Telegram.StaffChatID,
				&logger,
			)
			if err != nil {
				logger.Error().Err(err).Msg("staff notifier disabled")
			}
		}

		worker = notify.NewWorker(redisOpt, email, staff, &logger)
		if err := worker.Start(); err != nil {
			logger.Fatal().Err(err).Msg("start notification worker")
		}
		defer worker.Shutdown()
	}

	clk := clock.Real{}
	bookingSvc := service.NewBookingService(db, clk, loc, &logger)
	cancelSvc := service.NewCancellationService(db, notifier, clk, loc, cfg.RefundCutoff(), &logger)
	waitlistSvc := service.NewWaitlistService(db, &logger)
	availabilitySvc := service.NewAvailabilityService(db, availabilityCache, cfg.AvailabilityTTL(), loc, &logger)
	exporter := report.NewExporter(db)

	server := api.NewHTTPServer(
		cfg.Server.Addr,
		bookingSvc, cancelSvc, waitlistSvc, availabilitySvc,
		db, exporter, cfg.Server.AdminAPIKey, &logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Notifications.Reminders.Enabled && asynqNotifier != nil {
		reminders := remind.NewService(db, asynqNotifier, clk, loc, remind.Config{
			LeadTime:      cfg.ReminderLeadTime(),
			CheckInterval: cfg.ReminderCheckInterval(),
		}, &logger)
		reminders.Start(ctx)
		defer reminders.Stop()
	}

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, db, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("HTTP shutdown error")
		}
	}()

	logger.Info().Msg("gymbook server started")
	if err := server.Start(); err != nil {
		logger.Fatal().Err(err).Msg("HTTP server error")
	}
}

func startHealthServer(ctx context.Context, port int, db *database.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := db.PingContext(ctxPing); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db: " + err.Error()))
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("redis: " + err.Error()))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	logger.Info().Int("port", port).Msg("health server listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	logger.Info().Int("port", port).Msg("metrics server listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
