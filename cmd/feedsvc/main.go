package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/avvvet/tap-services/configs"
	"github.com/avvvet/tap-services/internal/comm"
	"github.com/avvvet/tap-services/internal/db"
	"github.com/avvvet/tap-services/internal/feedsvc/broker"
	feedconfig "github.com/avvvet/tap-services/internal/feedsvc/config"
	"github.com/avvvet/tap-services/internal/feedsvc/handlers"
	"github.com/avvvet/tap-services/internal/feedsvc/history"
	"github.com/avvvet/tap-services/internal/feedsvc/routes"
	"github.com/avvvet/tap-services/internal/feedsvc/ws"
	"github.com/avvvet/tap-services/internal/nats"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"
)

const SERVICE_NAME = "feed"

var instanceId string

func init() {
	instanceId = config.CreateUniqueInstance(SERVICE_NAME)
	config.Logging(SERVICE_NAME + "_service_" + instanceId)
	config.LoadEnv(SERVICE_NAME)
}

func main() {
	cfg, err := feedconfig.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Connect to NATS
	n, err := nats.Connect(SERVICE_NAME + "_service_" + instanceId)
	if err != nil {
		log.Errorf("Error: unable to connect to NATS server %v", err)
		os.Exit(1)
	}
	defer n.Conn.Close()
	log.Printf("NATS connection established successfully %s", n.Url)

	// feed history is optional, the live feed works without it
	var (
		feedStore   broker.FeedStore
		feedHistory handlers.History
	)
	if cfg.MongoURI != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		mdb, err := db.ConnectToDB(ctx, cfg.MongoURI)
		if err != nil {
			cancel()
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		if err := db.CreateTTLIndexForCollection(ctx, mdb, history.Collection); err != nil {
			log.Warnf("feed history ttl index: %v", err)
		}
		store := history.NewStore(mdb)
		if err := store.EnsureIndexes(ctx); err != nil {
			log.Warnf("feed history indexes: %v", err)
		}
		cancel()
		defer mdb.Client().Disconnect(context.Background())

		feedStore, feedHistory = store, store
		log.Printf("mongodb connection established, history ttl %s", cfg.HistoryTTL)
	} else {
		log.Warn("MONGODB_URI not set, feed history disabled")
	}

	s := ws.NewWs()

	b := broker.NewBroker(n.Conn, feedStore, s, cfg.HistoryTTL)
	sub, err := b.Subscribe(comm.ScanSubject)
	if err != nil {
		log.Errorf("Error: unable to subscribe to %s %v", comm.ScanSubject, err)
		os.Exit(1)
	}

	// Setup router
	r := chi.NewRouter()
	c := config.CORS()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(c.Handler)

	// to protect the service api from any over requests
	if cfg.RateLimit > 0 {
		r.Use(httprate.LimitByIP(cfg.RateLimit, 1*time.Minute))
	}

	h := handlers.NewHandler(s, feedHistory, jwtauth.New("HS256", []byte(cfg.JWTSecret), nil), cfg.CheckOrigin)
	routes.SetRoutes(r, h)

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

	sub.Unsubscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
