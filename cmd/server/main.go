// Package main runs the PharmIA webinar registration HTTP server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pharmia/backend/config"
	"github.com/pharmia/backend/internal/auth"
	"github.com/pharmia/backend/internal/cart"
	"github.com/pharmia/backend/internal/middleware"
	"github.com/pharmia/backend/internal/models"
	"github.com/pharmia/backend/internal/webinars"
	"github.com/pharmia/backend/pkg/database"
	"github.com/pharmia/backend/pkg/queue"
	"github.com/pharmia/backend/pkg/redis"
	"github.com/pharmia/backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	loc := cfg.Webinars.Location()
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours, cfg.JWT.GuestTTL)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Auth / users
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Webinars + registrations
	webinarRepo := webinars.NewRepository(pool)
	webinarHandler := webinars.NewHandler(webinarRepo, authRepo, jwtService, jobQueue, logger, loc)

	// Cart
	cartStore := cart.NewStore(cart.NewRedisBackend(rdb.Client), cfg.Billing, loc, logger)
	cartHandler := cart.NewHandler(cartStore, webinarRepo, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}
	me := router.Group("/auth/me")
	me.Use(middleware.JWT(jwtService), middleware.RequireScope(auth.ScopeSession))
	{
		me.GET("", authHandler.Me)
		me.PUT("/phone", authHandler.UpdatePhone)
	}

	// Webinar reads: same endpoints serve admins, pharmacists and visitors;
	// the view layer decides what each of them sees.
	reads := router.Group("")
	reads.Use(middleware.OptionalJWT(jwtService))
	{
		reads.GET("/webinars", webinarHandler.List)
		reads.GET("/webinars/:id", webinarHandler.GetByID)
	}

	// Public registration and batch pricing (no auth)
	router.POST("/webinars/:id/public-register", webinarHandler.PublicRegister)
	router.POST("/webinars/by-ids", webinarHandler.ByIDs)

	// Cart (device-token keyed, no auth)
	cartGroup := router.Group("/cart")
	{
		cartGroup.GET("", cartHandler.Get)
		cartGroup.POST("/items", cartHandler.AddItem)
		cartGroup.DELETE("/items/:id", cartHandler.RemoveItem)
		cartGroup.PUT("/items/:id/slots", cartHandler.UpdateSlots)
		cartGroup.DELETE("", cartHandler.Clear)
		cartGroup.GET("/totals", cartHandler.GetTotals)
	}

	// Authenticated registration surface. A guest token only proves control of
	// an email while payment confirmation is pending, so it reaches exactly one
	// route: submitting proof for its own registration. Everything else demands
	// a full session.
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.POST("/webinars/:id/submit-payment", webinarHandler.SubmitPayment)

		session := api.Group("")
		session.Use(middleware.RequireScope(auth.ScopeSession))
		{
			session.POST("/webinars/:id/register", webinarHandler.Register)
			session.PUT("/webinars/:id/attendees/:userId/slots", webinarHandler.UpdateSlots)
		}

		admin := api.Group("")
		admin.Use(middleware.RequireScope(auth.ScopeSession), middleware.RequireRole(models.RoleAdmin))
		{
			admin.GET("/users", authHandler.List)
			admin.PUT("/users/:id/credits", authHandler.UpdateCredits)

			admin.POST("/webinars", webinarHandler.Create)
			admin.PUT("/webinars/:id", webinarHandler.Update)
			admin.DELETE("/webinars/:id", webinarHandler.Delete)

			admin.POST("/webinars/:id/attendees", webinarHandler.ManualAdd)
			admin.POST("/webinars/:id/attendees/:userId/confirm", webinarHandler.Confirm)
			admin.PUT("/webinars/:id/attendees/:userId/payment-proof", webinarHandler.OverrideProof)
			admin.DELETE("/webinars/:id/attendees/:userId", webinarHandler.Remove)
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
