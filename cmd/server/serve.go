package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"task-marketplace-api/internal/auth"
	"task-marketplace-api/internal/config"
	"task-marketplace-api/internal/database"
	"task-marketplace-api/internal/handlers"
	"task-marketplace-api/internal/marketplace"
	"task-marketplace-api/internal/metrics"
	"task-marketplace-api/internal/notify"
	"task-marketplace-api/internal/realtime"
	"task-marketplace-api/internal/routes"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  "Starts the marketplace HTTP API, the realtime hub and the notification workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		db, err := database.Open(cfg.Database.DSN, logger.Warn)
		if err != nil {
			return err
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m := metrics.New(reg)

		hub := realtime.NewHub()
		channels, err := deliveryChannels(ctx, cfg, db, hub)
		if err != nil {
			return err
		}
		deliverer := notify.NewAsync(notify.NewFanout(m, channels...), cfg.Notify.Workers, cfg.Notify.QueueSize)

		engine := marketplace.NewEngine(db, marketplace.Options{Deliverer: deliverer, Recorder: m})
		tokens := auth.NewManager(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.Audience, cfg.Auth.TTL)
		h := handlers.New(handlers.Deps{
			DB:             db,
			Engine:         engine,
			Tokens:         tokens,
			Hub:            hub,
			Deliverer:      deliverer,
			LeaderboardTTL: cfg.Cache.LeaderboardTTL,
		})

		gin.SetMode(gin.ReleaseMode)
		srv := &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           routes.SetupRoutes(routes.Options{Handler: h, Tokens: tokens, Observer: m, Gatherer: reg}),
			ReadHeaderTimeout: 10 * time.Second,
		}

		serveErr := make(chan error, 1)
		go func() {
			slog.Info("HTTP server listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
			close(serveErr)
		}()

		select {
		case <-ctx.Done():
		case err := <-serveErr:
			if err != nil {
				return err
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown", "error", err)
		}
		deliverer.Shutdown(shutdownCtx)

		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		slog.Info("HTTP server and notification workers shut down gracefully")
		return nil
	},
}

// deliveryChannels always includes the websocket hub. Redis and email are
// added when configured.
func deliveryChannels(ctx context.Context, cfg *config.Config, db *gorm.DB, hub *realtime.Hub) ([]notify.Channel, error) {
	channels := []notify.Channel{notify.HubChannel(hub)}

	if cfg.Redis.Address != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password})
		relay := realtime.NewRedisRelay(client, cfg.Redis.Channel, hub)
		if err := relay.Ping(ctx); err != nil {
			return nil, err
		}
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("redis relay stopped", "error", err)
			}
		}()
		channels = append(channels, notify.PublisherChannel(relay))
		slog.Info("redis relay enabled", "channel", cfg.Redis.Channel)
	}

	if cfg.Mail.Host != "" {
		mailer, err := notify.NewSMTPMailer(notify.SMTPConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
		})
		if err != nil {
			return nil, err
		}
		channels = append(channels, notify.MailChannel(mailer, notify.EmailLookupFromDB(db)))
		slog.Info("email notifications enabled", "host", cfg.Mail.Host)
	}
	return channels, nil
}
