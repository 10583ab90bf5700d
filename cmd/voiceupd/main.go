package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/Raed-Bourouis/VoiceUP/internal/auth"
	"github.com/Raed-Bourouis/VoiceUP/internal/config"
	"github.com/Raed-Bourouis/VoiceUP/internal/database"
	"github.com/Raed-Bourouis/VoiceUP/internal/handlers"
	"github.com/Raed-Bourouis/VoiceUP/internal/middleware"
	"github.com/Raed-Bourouis/VoiceUP/internal/realtime"
	"github.com/Raed-Bourouis/VoiceUP/internal/routes"
	"github.com/Raed-Bourouis/VoiceUP/internal/services"
	"github.com/Raed-Bourouis/VoiceUP/internal/storage"
	"github.com/Raed-Bourouis/VoiceUP/internal/store"
	"github.com/Raed-Bourouis/VoiceUP/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger is not up yet
		panic(err)
	}

	logger.Init(cfg.Environment)
	logger.Info().Str("environment", cfg.Environment).Msg("Starting voiceupd...")

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Hosted backend connections
	db, err := database.Connect(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to backend database")
	}
	if err := database.AutoMigrate(db); err != nil {
		logger.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	rdb, err := database.NewRedis(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to the change feed broker")
	}

	media, err := storage.NewMediaStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to configure object storage")
	}

	// Stores
	profileStore := store.NewProfileStore(db)
	chatStore := store.NewChatStore(db)
	messageStore := store.NewMessageStore(db)
	friendshipStore := store.NewFriendshipStore(db)
	deviceStore := store.NewDeviceStore(db)

	// Session manager against the hosted identity service
	sessions := auth.NewManager(auth.NewClient(cfg), profileStore)
	go sessions.AutoRefresh(ctx)

	// Services
	feed := realtime.NewFeed(rdb)
	chats := services.NewChatService(sessions, chatStore)
	messages := services.NewMessageService(sessions, messageStore, chatStore, feed, media)
	friendships := services.NewFriendshipService(sessions, friendshipStore, profileStore)
	profiles := services.NewProfileService(sessions, profileStore, media)
	pushRouter := services.NewPushRouter(sessions, deviceStore)

	// Each open chat view gets its own resolver so signed URLs are
	// cached per view.
	resolverFactory := func() *services.MediaResolver {
		return services.NewMediaResolver(media, cfg.MediaBucket, cfg.AvatarBucket)
	}
	views := services.NewViewManager(messages, feed, resolverFactory, pushRouter)

	// Router
	r := gin.New()
	r.Use(middleware.RequestLogger())
	r.Use(middleware.ErrorHandler())
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware())

	generalLimiter := middleware.NewIPRateLimiter(rate.Limit(50), 100)
	signInLimiter := middleware.NewIPRateLimiter(rate.Limit(1), 5)
	searchLimiter := middleware.NewIPRateLimiter(rate.Limit(5), 10)

	// Exempt /socket.io from the general limiter; polling transport
	// fires frequent requests by design
	r.Use(func(c *gin.Context) {
		if len(c.Request.URL.Path) >= 10 && c.Request.URL.Path[:10] == "/socket.io" {
			c.Next()
			return
		}
		middleware.RateLimit(generalLimiter)(c)
	})

	api := r.Group("/api/v1")
	api.Use(middleware.GatewayAuth(cfg))
	{
		sessionHandler := handlers.NewSessionHandler(sessions)
		chatHandler := handlers.NewChatHandler(chats, messages)
		messageHandler := handlers.NewMessageHandler(messages)
		friendshipHandler := handlers.NewFriendshipHandler(friendships)
		profileHandler := handlers.NewProfileHandler(profiles)
		deviceHandler := handlers.NewDeviceHandler(pushRouter)

		routes.RegisterSessionRoutes(api, sessionHandler, middleware.RateLimit(signInLimiter))
		routes.RegisterChatRoutes(api, chatHandler, messageHandler)
		routes.RegisterSocialRoutes(api, friendshipHandler, middleware.RateLimit(searchLimiter))
		routes.RegisterProfileRoutes(api, profileHandler)
		routes.RegisterDeviceRoutes(api, deviceHandler)
	}

	// Health check with backend connectivity status
	r.GET("/health", func(c *gin.Context) {
		dbStatus := "ok"
		redisStatus := "ok"

		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			dbStatus = "error"
		}
		if _, err := rdb.Ping(c.Request.Context()).Result(); err != nil {
			redisStatus = "error"
		}

		status := "ok"
		if dbStatus != "ok" || redisStatus != "ok" {
			status = "degraded"
		}

		c.JSON(http.StatusOK, gin.H{
			"status": status,
			"checks": gin.H{
				"database": dbStatus,
				"redis":    redisStatus,
			},
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Socket.io bridge to the UI shell
	gateway := handlers.NewSocketGateway(views, sessions, cfg)
	socketServer := gateway.Server()
	defer socketServer.Close()

	socket := r.Group("/socket.io")
	socket.Use(middleware.GatewayAuth(cfg))
	socket.GET("/*any", handlers.SocketHandler(socketServer))
	socket.POST("/*any", handlers.SocketHandler(socketServer))

	srv := &http.Server{
		Addr:         cfg.GatewayAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.GatewayAddr).Msg("Gateway listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start gateway")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down...")

	// Close open views first so subscriptions drain before the broker
	// connection goes away.
	views.CloseAll()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("Gateway forced to shutdown")
	}

	logger.Info().Msg("Gateway exited gracefully")
}
