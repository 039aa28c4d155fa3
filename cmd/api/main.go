package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kredoapp/kredo-backend/internal/config"
	"github.com/kredoapp/kredo-backend/internal/handler"
	"github.com/kredoapp/kredo-backend/internal/middleware"
	"github.com/kredoapp/kredo-backend/internal/repository/cache"
	"github.com/kredoapp/kredo-backend/internal/repository/postgres"
	"github.com/kredoapp/kredo-backend/internal/service"
	"github.com/kredoapp/kredo-backend/internal/websocket"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Initialize zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Connect to database
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	// Verify database connection
	if err := pool.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Connected to database")

	// Initialize repositories
	productRepo := postgres.NewLoanProductRepository(pool)
	applicationRepo := postgres.NewLoanApplicationRepository(pool)
	loanRepo := postgres.NewLoanRepository(pool)
	scheduleRepo := postgres.NewRepaymentScheduleRepository(pool)
	transactionRepo := postgres.NewLoanTransactionRepository(pool)

	// Initialize services
	productService := service.NewProductService(productRepo)
	applicationService := service.NewApplicationService(applicationRepo, productRepo)
	loanService := service.NewLoanService(pool, loanRepo, applicationRepo, productRepo, scheduleRepo, transactionRepo)
	repaymentService := service.NewRepaymentService(pool, loanRepo, productRepo, scheduleRepo, transactionRepo)

	// Optional Redis schedule cache
	if cfg.RedisAddr != "" {
		scheduleCache := cache.NewScheduleCache(cfg.RedisAddr, cfg.RedisPassword)
		if err := scheduleCache.Ping(context.Background()); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis unavailable, schedule caching disabled")
		} else {
			defer scheduleCache.Close()
			repaymentService.SetScheduleCache(scheduleCache)
			log.Info().Str("addr", cfg.RedisAddr).Msg("Connected to Redis")
		}
	}

	// WebSocket hub for real-time updates
	hub := websocket.NewHub()
	productService.SetEventPublisher(hub)
	applicationService.SetEventPublisher(hub)
	loanService.SetEventPublisher(hub)
	repaymentService.SetEventPublisher(hub)

	// Initialize handlers
	productHandler := handler.NewProductHandler(productService)
	applicationHandler := handler.NewApplicationHandler(applicationService)
	loanHandler := handler.NewLoanHandler(loanService)
	repaymentHandler := handler.NewRepaymentHandler(repaymentService)
	wsHandler := handler.NewWebSocketHandler(hub, cfg.CORSOrigins)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Request ID middleware
	e.Use(echomiddleware.RequestID())

	// CORS middleware
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, middleware.ActorHeader},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Security headers middleware (helmet-like)
	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))

	// Request logging middleware with zerolog
	e.Use(zerologMiddleware())

	// Recovery middleware
	e.Use(echomiddleware.Recover())

	// Rate limiting keyed by actor or client IP
	rateLimiter := middleware.NewRateLimiterWithConfig(cfg.RateLimitPerMinute, cfg.RateLimitBurst)
	defer rateLimiter.Stop()
	e.Use(middleware.RateLimitMiddleware(rateLimiter))

	// Health check endpoint
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// Register API routes
	handler.RegisterRoutes(e, productHandler, applicationHandler, loanHandler, repaymentHandler, wsHandler)

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// zerologMiddleware returns a middleware that logs requests using zerolog
func zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			log.Info().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Msg("request")

			return nil
		}
	}
}
