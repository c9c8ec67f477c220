package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	config "github.com/avvvet/tap-services/configs"
	"github.com/avvvet/tap-services/internal/nats"
	"github.com/avvvet/tap-services/internal/tapsvc/auth"
	"github.com/avvvet/tap-services/internal/tapsvc/broker"
	"github.com/avvvet/tap-services/internal/tapsvc/cache"
	tapconfig "github.com/avvvet/tap-services/internal/tapsvc/config"
	"github.com/avvvet/tap-services/internal/tapsvc/db"
	"github.com/avvvet/tap-services/internal/tapsvc/handlers"
	"github.com/avvvet/tap-services/internal/tapsvc/service"
	"github.com/avvvet/tap-services/internal/tapsvc/storage"
	"github.com/avvvet/tap-services/internal/tapsvc/store"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	log "github.com/sirupsen/logrus"
)

const SERVICE_NAME = "tap"

var instanceId string

func init() {
	instanceId = config.CreateUniqueInstance(SERVICE_NAME)
	config.Logging(SERVICE_NAME + "_service_" + instanceId)
	config.LoadEnv(SERVICE_NAME)
}

func main() {
	cfg, err := tapconfig.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// pg connection
	dbpool, err := db.Connect(context.Background(), cfg.DBUrl)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer dbpool.Close()
	log.Printf("pg connection established successfully")

	chipStore := store.NewChipStore(dbpool)
	scanStore := store.NewScanStore(dbpool)
	leadStore := store.NewLeadStore(dbpool)
	profileStore := store.NewProfileStore(dbpool)
	roleStore := store.NewRoleStore(dbpool)

	// redis profile cache, optional
	var profileCache service.ProfileCache
	if cfg.RedisURL != "" {
		client, err := cache.Connect(context.Background(), cfg.RedisURL)
		if err != nil {
			log.Warnf("profile cache disabled: %v", err)
		} else {
			defer client.Close()
			profileCache = cache.NewProfileCache(client, cfg.ProfileCacheTTL)
			log.Printf("redis connection established, profile ttl %s", cfg.ProfileCacheTTL)
		}
	}

	// avatar storage, optional
	var avatarStorage service.AvatarStorage
	if cfg.Storage.Enabled() {
		s3, err := storage.NewS3Storage(context.Background(), cfg.Storage)
		if err != nil {
			log.Fatalf("Failed to configure avatar storage: %v", err)
		}
		avatarStorage = s3
	} else {
		log.Warn("S3 storage not configured, avatar upload disabled")
	}

	// live feed publisher, taps still redirect without NATS
	var publisher service.ScanPublisher
	n, err := nats.Connect(SERVICE_NAME + "_service_" + instanceId)
	if err != nil {
		log.Warnf("live feed disabled, unable to connect to NATS server %v", err)
	} else {
		defer n.Conn.Close()
		publisher = broker.NewBroker(n.Conn)
		log.Printf("NATS connection established successfully %s", n.Url)
	}

	deps := handlers.Deps{
		Redirects: service.NewRedirectService(chipStore, scanStore, publisher),
		Analytics: service.NewAnalyticsService(chipStore, scanStore, leadStore, cfg.Location),
		Chips:     service.NewChipService(chipStore, roleStore),
		Leads:     service.NewLeadService(leadStore, chipStore, profileStore),
		Profiles:  service.NewProfileService(profileStore, profileCache, avatarStorage),
		Auth:      auth.NewClient(cfg.AuthURL, cfg.AuthAnonKey),

		Location:      cfg.Location,
		RateLimit:     cfg.RateLimit,
		SecureCookies: strings.HasPrefix(cfg.PublicBaseURL, "https://"),
	}

	// Setup router
	r := chi.NewRouter()
	c := config.CORS()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(c.Handler)

	// Init handlers and routes
	h := handlers.NewHandler(handlers.NewTokenAuth(cfg.JWTSecret), deps)
	h.SetRoutes(r)

	// Create server with timeout settings
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)

	// Wait for interrupt signal to gracefully shutdown the server
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
