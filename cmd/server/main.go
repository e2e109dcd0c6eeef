package main

import (
	"fmt"
	"net/http"

	"github.com/rs/cors"
	"github.com/vedran77/spark/internal/config"
	"github.com/vedran77/spark/internal/database"
	"github.com/vedran77/spark/internal/events"
	postgresrepo "github.com/vedran77/spark/internal/repository/postgres"
	"github.com/vedran77/spark/internal/repository/redisstore"
	"github.com/vedran77/spark/internal/service"
	"github.com/vedran77/spark/internal/transport/http/handlers"
	"github.com/vedran77/spark/internal/transport/http/middleware"
	"github.com/vedran77/spark/internal/transport/ws"
	"github.com/vedran77/spark/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	// Database
	pool, err := database.Connect(cfg)
	if err != nil {
		logger.Log.Fatal("connect database", zap.Error(err))
	}
	defer pool.Close()
	logger.Info("connected to database")

	// Redis (cache + presence)
	rdb, err := redisstore.Connect(cfg.RedisURL)
	if err != nil {
		logger.Log.Fatal("connect redis", zap.Error(err))
	}
	defer rdb.Close()
	logger.Info("connected to redis")

	// Events: NATS when configured, no-op otherwise
	var publisher service.EventPublisher = events.Noop{}
	if cfg.NATSUrl != "" {
		natsPub, err := events.Connect(cfg.NATSUrl, "spark-server")
		if err != nil {
			logger.Log.Fatal("connect nats", zap.Error(err))
		}
		defer natsPub.Close()
		publisher = natsPub
		logger.Info("connected to nats")
	}

	// Repositories
	userRepo := postgresrepo.NewUserRepo(pool)
	interactionRepo := postgresrepo.NewInteractionRepo(pool)
	matchRepo := postgresrepo.NewMatchRepo(pool)
	convRepo := postgresrepo.NewConversationRepo(pool)

	cache := redisstore.NewCache(rdb, cfg.CacheTTL)
	presenceStore := redisstore.NewPresence(rdb)

	// Services
	authService := service.NewAuthService(userRepo, cfg.JWTSecret)
	matchService := service.NewMatchService(matchRepo, cache, publisher)
	interactionService := service.NewInteractionService(interactionRepo, userRepo, matchService, cache, publisher)
	convService := service.NewConversationService(convRepo, userRepo, cache, publisher)
	discoveryService := service.NewDiscoveryService(userRepo, cache)
	presenceService := service.NewPresenceService(presenceStore, convService, userRepo, publisher, cfg.HeartbeatTTL, cfg.TypingTTL)
	channelAuthService := service.NewChannelAuthService(convService, userRepo, cfg.JWTSecret, cfg.GrantTTL)

	// Real-time hub feeds match/presence/typing events back to clients
	hub := ws.NewHub()
	go hub.Run()
	notifier := ws.NewHubNotifier(hub)
	matchService.SetNotifier(notifier)
	convService.SetNotifier(notifier)
	presenceService.SetNotifier(notifier)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	interactionHandler := handlers.NewInteractionHandler(interactionService)
	matchHandler := handlers.NewMatchHandler(matchService)
	convHandler := handlers.NewConversationHandler(convService)
	discoveryHandler := handlers.NewDiscoveryHandler(discoveryService)
	presenceHandler := handlers.NewPresenceHandler(presenceService)
	realtimeHandler := handlers.NewRealtimeHandler(channelAuthService)

	// Auth middleware
	auth := middleware.Auth(cfg.JWTSecret)

	// Routes
	mux := http.NewServeMux()

	// Public
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "ok"}`))
	})
	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)

	// Protected - Interactions
	mux.Handle("POST /api/v1/interactions", auth(http.HandlerFunc(interactionHandler.Record)))
	mux.Handle("DELETE /api/v1/interactions/{target_id}", auth(http.HandlerFunc(interactionHandler.Remove)))

	// Protected - Discovery & Matches
	mux.Handle("GET /api/v1/discovery", auth(http.HandlerFunc(discoveryHandler.List)))
	mux.Handle("GET /api/v1/matches", auth(http.HandlerFunc(matchHandler.List)))
	mux.Handle("GET /api/v1/matches/{user_id}", auth(http.HandlerFunc(matchHandler.Status)))

	// Protected - Conversations
	mux.Handle("POST /api/v1/conversations", auth(http.HandlerFunc(convHandler.GetOrCreate)))
	mux.Handle("GET /api/v1/conversations", auth(http.HandlerFunc(convHandler.List)))

	// Protected - Presence & Typing
	mux.Handle("POST /api/v1/presence/heartbeat", auth(http.HandlerFunc(presenceHandler.Heartbeat)))
	mux.Handle("GET /api/v1/presence/{user_id}", auth(http.HandlerFunc(presenceHandler.Get)))
	mux.Handle("POST /api/v1/typing", auth(http.HandlerFunc(presenceHandler.SetTyping)))

	// Protected - Realtime
	mux.Handle("POST /api/v1/realtime/auth", auth(http.HandlerFunc(realtimeHandler.Authorize)))

	// WebSocket (token auth happens in the handler itself)
	mux.HandleFunc("GET /api/v1/ws", ws.ServeWS(hub, channelAuthService, presenceService, cfg.JWTSecret))

	// Start server with CORS
	addr := fmt.Sprintf(":%s", cfg.ServerPort)
	handler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
	}).Handler(mux)

	logger.Infof("starting server on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Log.Fatal("server stopped", zap.Error(err))
	}
}
