package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"mailgate/internal/api"
	"mailgate/internal/authflow"
	"mailgate/internal/config"
	"mailgate/internal/credentials"
	"mailgate/internal/provider"
	"mailgate/internal/secrets"
	"mailgate/internal/token"
	"mailgate/internal/translog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	secretStore, err := secrets.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open %s secret store: %v", cfg.Secrets.Backend, err)
	}
	log.Printf("Credential secret store: %s", cfg.Secrets.Backend)

	credStore := credentials.NewStore(secretStore)

	// Redis shares the token cache across replicas; without it each process
	// keeps its own.
	var cache token.Cache
	if cfg.Redis.Addr != "" {
		redisCache, err := token.NewRedisCache(&cfg.Redis)
		if err != nil {
			log.Printf("Failed to connect token cache to Redis: %v", err)
			log.Println("Using in-memory token cache instead")
		} else {
			cache = redisCache
			defer redisCache.Close()
			log.Println("Token cache backed by Redis")
		}
	}

	refresher := token.NewRefresher(cfg.OAuth, credStore, cache)
	flow := authflow.NewController(cfg.OAuth, credStore)

	gmailBackend := provider.NewGmailBackend(cfg.OAuth, refresher)
	smtpBackend := provider.NewSMTPBackend(cfg.SMTP)
	resolver := provider.NewResolver(gmailBackend, smtpBackend, cfg.Provider.Priority())
	log.Printf("Available providers: %v", resolver.ListAvailable())

	// Try MySQL for send analytics, fall back to a no-op recorder
	var recorder translog.Recorder
	logger, err := translog.NewLogger(&cfg.MySQL)
	if err != nil {
		log.Printf("Failed to initialize transaction log: %v", err)
		log.Println("Send analytics will not be recorded")
		recorder = translog.NopRecorder{}
	} else {
		recorder = logger
		defer logger.Close()
	}

	server := api.NewServer(cfg, flow, credStore, refresher, resolver, gmailBackend, recorder)

	go func() {
		if err := server.Start(cfg.Server.Host, cfg.Server.Port); err != nil {
			log.Fatalf("API server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down...")
}
