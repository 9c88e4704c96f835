package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"smarthome-backend/config"
	"smarthome-backend/internal/api"
	"smarthome-backend/internal/auth"
	"smarthome-backend/internal/db"
	"smarthome-backend/internal/discovery"
	"smarthome-backend/internal/history"
	"smarthome-backend/internal/mqtt"
	"smarthome-backend/internal/notification"
	"smarthome-backend/internal/obs"
	"smarthome-backend/internal/provision"
	"smarthome-backend/internal/secret"
	"smarthome-backend/internal/store"
	"smarthome-backend/internal/sweeper"
)

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "smarthome-backend ", log.LstdFlags)

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		logger.Fatalf("invalid auth configuration: %v", err)
	}
	box, err := secret.NewBox(cfg.Provisioning.CredentialKey)
	if err != nil {
		logger.Fatalf("invalid provisioning.credential_key: %v", err)
	}

	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	obs.Init()

	deps := api.Deps{
		Store:         appStore,
		Tokens:        tokens,
		Revoked:       auth.NewRevocations(),
		Provisioner:   provision.NewService(appStore, box),
		InviteTTL:     cfg.Rooms.InviteTTL,
		SecureCookies: cfg.Server.SecureCookies,
	}

	if cfg.Push.Enabled() {
		webpushOptions := &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		workerPool := notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, webpushOptions)
		workerPool.Start(ctx)
		deps.WebPush = webpushOptions
		deps.Notifier = workerPool
	} else {
		logger.Println("VAPID keys are not configured; push notifications disabled")
	}

	if cfg.MQTT.Enabled {
		mqttClient, err := mqtt.Connect(cfg.MQTT)
		if err != nil {
			logger.Printf("MQTT unavailable, continuing without it: %v", err)
		} else {
			defer mqttClient.Close()
			deps.Publisher = mqttClient
		}
	}

	if cfg.InfluxDB.Enabled {
		recorder, err := history.Connect(cfg.InfluxDB)
		if err != nil {
			logger.Printf("InfluxDB unavailable, continuing without history: %v", err)
		} else {
			defer recorder.Close()
			deps.History = recorder
		}
	}

	if cfg.MDNS.Enabled {
		mdnsServer, err := discovery.Advertise(cfg.MDNS, cfg.Server.Port)
		if err != nil {
			logger.Printf("mDNS advertisement failed: %v", err)
		} else {
			defer mdnsServer.Shutdown()
		}
	}

	limiters := api.NewLimiters(cfg.Server)
	sweeperSvc := sweeper.NewService(cfg.Provisioning, appStore, limiters.API, limiters.Device)
	go sweeperSvc.Run(ctx)

	// Initialize router
	router := api.NewRouter(cfg.Server, api.NewHandler(deps), limiters)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start the server in a goroutine
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received.
	<-stop
	logger.Println("Shutdown signal received, stopping services...")
	cancel()

	// Create a deadline to wait for.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
