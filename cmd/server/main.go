package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/session_guard/internal/config"
	"github.com/Skotchmaster/session_guard/internal/denylist"
	"github.com/Skotchmaster/session_guard/internal/es"
	"github.com/Skotchmaster/session_guard/internal/fingerprint"
	"github.com/Skotchmaster/session_guard/internal/handlers"
	"github.com/Skotchmaster/session_guard/internal/logging"
	"github.com/Skotchmaster/session_guard/internal/mykafka"
	"github.com/Skotchmaster/session_guard/internal/repo"
	"github.com/Skotchmaster/session_guard/internal/service"
	httpserver "github.com/Skotchmaster/session_guard/internal/transport/http"
	mw "github.com/Skotchmaster/session_guard/pkg/middleware/auth"
	loggingmw "github.com/Skotchmaster/session_guard/pkg/middleware/logging"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)
	slog.SetDefault(logger)

	db, err := config.InitDB(context.Background())
	if err != nil {
		log.Fatalf("DB init error: %v", err)
	}

	jwtSecret := []byte(configuration.JWT_SECRET)
	refreshSecret := []byte(configuration.REFRESH_SECRET)
	hasher := fingerprint.NewHasher([]byte(configuration.FINGERPRINT_SECRET))

	var producer *mykafka.Producer
	if configuration.KAFKA_ADDRESS != "" {
		producer = mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS}, "security_events")
	}

	var esClient *elasticsearch.Client
	if configuration.ES_URL != "" {
		client, err := es.NewClient(configuration)
		if err != nil {
			log.Printf("elasticsearch unavailable, audit search disabled: %v", err)
		} else {
			esClient = client
		}
	}

	gormRepo := &repo.GormRepo{DB: db}
	deny := denylist.NewMemory()

	events := &service.EventService{Repo: gormRepo, Hasher: hasher, Producer: producer, ES: esClient}
	events.Start()

	issuer := &service.IssuerService{
		Repo:          gormRepo,
		JWTSecret:     jwtSecret,
		RefreshSecret: refreshSecret,
		Hasher:        hasher,
		AccessTTL:     configuration.AccessTTL,
		RefreshTTL:    configuration.RefreshTTL,
	}
	rotator := &service.RotationService{
		Repo:          gormRepo,
		Issuer:        issuer,
		Events:        events,
		RefreshSecret: refreshSecret,
		Grace:         configuration.RotationGrace,
	}
	revoker := &service.RevocationService{
		Repo:          gormRepo,
		Deny:          deny,
		JWTSecret:     jwtSecret,
		RefreshSecret: refreshSecret,
	}
	trust := &service.TrustService{Repo: gormRepo, Hasher: hasher}

	authMW := mw.NewAutoRefreshMiddleware(jwtSecret, rotator, events, deny)

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(loggingmw.RequestLogger(logger))

	deps := httpserver.Deps{
		DB:             db,
		SessionHandler: &handlers.SessionHandler{Repo: gormRepo, Issuer: issuer, Revoker: revoker, Events: events},
		DeviceHandler:  &handlers.DeviceHandler{Trust: trust, Revoker: revoker},
		AlertHandler:   &handlers.AlertHandler{Repo: gormRepo},
		Auth:           authMW,
	}
	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":8080",
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

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	events.Close()
	deny.Close()

	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Printf("kafka close error: %v", err)
		}
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	}

	log.Println("shutdown complete")
}
