package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/avolkov/beacon/internal/apierrors"
	"github.com/avolkov/beacon/internal/config"
	"github.com/avolkov/beacon/internal/events"
	"github.com/avolkov/beacon/internal/facebook"
	"github.com/avolkov/beacon/internal/handlers"
	"github.com/avolkov/beacon/internal/logging"
	"github.com/avolkov/beacon/internal/mail"
	"github.com/avolkov/beacon/internal/middleware/auth"
	loggingmw "github.com/avolkov/beacon/internal/middleware/logging"
	"github.com/avolkov/beacon/internal/repo"
	"github.com/avolkov/beacon/internal/service"
	httpserver "github.com/avolkov/beacon/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	ctx := context.Background()
	db, err := config.InitDB(ctx, configuration.DATABASE_URL)
	if err != nil {
		log.Fatalf("database init failed: %v", err)
	}

	var cache *redis.Client
	if configuration.REDIS_ADDR != "" {
		cache = redis.NewClient(&redis.Options{Addr: configuration.REDIS_ADDR})
		if err := cache.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, token cache disabled", "error", err)
			cache = nil
		}
	}

	var producer *events.Producer
	if configuration.KAFKA_ADDRESS != "" {
		producer = events.NewProducer(configuration.KAFKA_ADDRESS, configuration.KAFKA_TOPIC)
	}

	var sender mail.Sender = mail.Discard{}
	if configuration.SMTP_HOST != "" {
		port, err := strconv.Atoi(configuration.SMTP_PORT)
		if err != nil {
			log.Fatalf("invalid SMTP_PORT: %v", err)
		}
		sender = mail.NewSMTP(
			configuration.SMTP_HOST, port,
			configuration.SMTP_USER, configuration.SMTP_PASSWORD)
	} else {
		logger.Warn("SMTP_HOST not set, outbound mail disabled")
	}

	store := repo.New(db, cache)
	tokenService := &service.TokenService{
		Repo:      store,
		JWTSecret: []byte(configuration.JWT_SECRET),
	}
	locationService := &service.LocationService{
		Repo:    store,
		Mail:    sender,
		AppURL:  configuration.APP_URL,
		NoReply: configuration.NOREPLY_EMAIL,
	}
	if producer != nil {
		locationService.Events = producer
	}
	activityService := &service.ActivityService{Repo: store}
	fbClient := facebook.NewClient(configuration.FB_APP_ID, configuration.FB_APP_SECRET)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = apierrors.HTTPErrorHandler
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), loggingmw.RequestLogger(logger))

	deps := httpserver.Deps{
		Guard:           &auth.Guard{Tokens: tokenService},
		OAuthHandler:    &handlers.OAuthHandler{Repo: store, Tokens: tokenService, Facebook: fbClient},
		LocationHandler: &handlers.LocationHandler{Locations: locationService},
		ActivityHandler: &handlers.ActivityHandler{Activity: activityService},
		UserHandler:     &handlers.UserHandler{Repo: store, Facebook: fbClient},
	}
	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         configuration.ADDR,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Printf("kafka close error: %v", err)
		}
	}
	if cache != nil {
		if err := cache.Close(); err != nil {
			log.Printf("redis close error: %v", err)
		}
	}

	logger.Info("shutdown complete")
}
