package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/cegateway/ticker-monitor/internal/api"
	"github.com/cegateway/ticker-monitor/internal/config"
	"github.com/cegateway/ticker-monitor/internal/database"
	"github.com/cegateway/ticker-monitor/internal/events"
	"github.com/cegateway/ticker-monitor/internal/kafka"
	"github.com/cegateway/ticker-monitor/internal/marketdata"
	"github.com/cegateway/ticker-monitor/internal/models"
	"github.com/cegateway/ticker-monitor/internal/monitor"
	"github.com/cegateway/ticker-monitor/internal/notify"
)

func main() {
	cfg := config.Load()

	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	defer redisClient.Close()
	priceCache := marketdata.NewRedisSource(redisClient,
		time.Duration(cfg.Redis.PriceTTLSeconds)*time.Second)

	registry := monitor.NewRegistry(db)
	if err := registry.RestoreAll(context.Background()); err != nil {
		log.WithError(err).Fatal("failed to restore entries")
	}

	emitter := events.NewEmitter()

	// external push delivery is optional; without credentials only
	// internal events fire
	var dispatcher *monitor.Dispatcher
	if cfg.Pushover.Token != "" && cfg.Pushover.UserKey != "" {
		pusher := notify.NewPushover(cfg.Pushover.Token, cfg.Pushover.UserKey)
		dispatcher = monitor.NewDispatcher(pusher,
			time.Duration(cfg.Monitor.NotifyTimeoutSeconds)*time.Second)
	} else {
		log.Info("pushover not configured, external notifications disabled")
	}

	scheduler := monitor.NewScheduler(registry, priceCache, emitter, dispatcher,
		time.Duration(cfg.Monitor.FetchTimeoutSeconds)*time.Second)
	scheduler.SetPollInterval(cfg.Monitor.PollIntervalSeconds)

	// mirror notification-worthy transitions onto the alert topic
	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.AlertTopic)
	defer producer.Close()
	if err := emitter.SubscribeEntryUpdate(func(snapshot models.EntrySnapshot) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := producer.PublishAlertTriggered(ctx, snapshot); err != nil {
			log.WithError(err).Error("failed to publish alert event")
		}
	}); err != nil {
		log.WithError(err).Fatal("failed to subscribe alert publisher")
	}

	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TickerTopic,
		cfg.Kafka.GroupID, priceCache)
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		if err := consumer.Start(consumerCtx); err != nil {
			log.WithError(err).Error("kafka consumer stopped")
		}
	}()

	scheduler.Start()

	handler := api.NewHandler(registry, scheduler)
	server := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler: api.SetupRoutes(handler),
	}
	go func() {
		log.Infof("http server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	scheduler.Stop()
	stopConsumer()
	<-consumerDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("http server shutdown failed")
	}
}
