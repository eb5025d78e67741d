package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"collab-realtime/internal/auth"
	"collab-realtime/internal/config"
	"collab-realtime/internal/database"
	"collab-realtime/internal/handlers"
	"collab-realtime/internal/services"
	"collab-realtime/internal/websocket"
	"collab-realtime/pkg/logger"

	gfshutdown "github.com/gelmium/graceful-shutdown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", "error", err)
	}

	log := logger.New(cfg.Log.Level)
	logger.SetDefault(log)

	// Initialize database
	db, err := database.NewPostgresDB(context.Background(), cfg.Database.URL, log)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}

	// Initialize services
	authService := auth.NewService(db, cfg.JWT)
	roomService := services.NewRoomService(db)
	friendService := services.NewFriendService(db)
	profiles := auth.NewProfileCache(db, cfg.Realtime.ProfileCacheTTL)
	gate := auth.NewGate(authService, profiles, cfg.Realtime.MaxConnectionsPerUser, log)

	// Initialize WebSocket hub
	hub := websocket.NewHub(websocket.Options{
		Config:     cfg.Realtime,
		Rooms:      roomService,
		Friends:    friendService,
		Admissions: gate,
		Profiles:   profiles,
		Logger:     log,
	})
	hub.Start()

	// Initialize handlers
	origins := cfg.Server.Origins()
	router := handlers.NewRouter(
		handlers.NewAuthHandlers(authService, log),
		handlers.NewRoomHandlers(roomService, authService, hub, log),
		handlers.NewWebSocketHandlers(gate, hub, origins, log),
	)

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      handlers.CORS(origins, router),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server error", "error", err)
		}
	}()

	log.Info("Server started", "addr", cfg.Server.Port, "websocket", "/ws")
	printAPIEndpoints()

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.Server.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"http-server": func(ctx context.Context) error {
				return server.Shutdown(ctx)
			},
			"realtime-hub": func(ctx context.Context) error {
				return hub.Shutdown(ctx)
			},
		},
	)

	exitCode := <-wait
	if err := db.Close(); err != nil {
		log.Error("Database close failed", "error", err)
	}
	log.Info("Server stopped", "exit_code", exitCode)
	os.Exit(exitCode)
}

func printAPIEndpoints() {
	logger.Info("API endpoints",
		"routes", []string{
			"POST /login",
			"POST /register",
			"GET  /projects/{id}/online",
			"GET  /healthz",
			"GET  /ws (websocket)",
		},
	)
}
