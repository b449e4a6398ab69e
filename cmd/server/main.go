package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/wavevms/wave-backend/internal/config"
	"github.com/wavevms/wave-backend/internal/database"
	"github.com/wavevms/wave-backend/internal/handlers"
	"github.com/wavevms/wave-backend/internal/middleware"
	"github.com/wavevms/wave-backend/internal/services"
	"github.com/wavevms/wave-backend/pkg/jwt"
	"github.com/wavevms/wave-backend/pkg/mailer"
	"github.com/wavevms/wave-backend/pkg/validator"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting WAVE Visitor Management Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}

	// Initialize repositories
	visitRepository := database.NewVisitRequestRepository(db)
	employeeRepository := database.NewEmployeeRepository(db)
	historyRepository := database.NewHistoryRepository(db)

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(
		cfg.JWT.Secret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	otpService := services.NewOTPService(db, cfg.OTP)
	rateLimitService := services.NewRateLimitService(db)
	contactValidator := validator.NewContactValidator()

	auditService := services.NewAuditService(historyRepository)
	chainBuilder := services.NewApprovalChainBuilder(employeeRepository, cfg.Workflow, logger)
	visitService := services.NewVisitService(visitRepository, chainBuilder, auditService, cfg.Workflow, logger)
	approvalService := services.NewApprovalService(visitRepository, auditService, logger)
	checkInService := services.NewCheckInService(
		visitRepository,
		auditService,
		time.Duration(cfg.Workflow.DwellMinutes)*time.Minute,
		logger,
	)

	// Initialize mail gateway
	var mailGateway mailer.MailGateway
	if cfg.Mail.Mode == "production" {
		logger.Info("Initializing SMTP mail gateway in production mode...")
		mailGateway = mailer.NewSMTPGateway(mailer.SMTPConfig{
			Host:     cfg.Mail.SMTPHost,
			Port:     cfg.Mail.SMTPPort,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
		})
	} else {
		logger.Info("Mail gateway in development mode (login codes are logged, not mailed)")
		mailGateway = mailer.NewDevGateway(logger)
	}

	logger.Info("Services initialized")

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(
		jwtService,
		otpService,
		rateLimitService,
		employeeRepository,
		mailGateway,
		contactValidator,
		cfg,
		logger,
	)
	visitHandler := handlers.NewVisitHandler(visitService, auditService, employeeRepository, logger)
	approvalHandler := handlers.NewApprovalHandler(approvalService, employeeRepository, logger)
	securityHandler := handlers.NewSecurityHandler(checkInService, visitService, logger)
	employeeHandler := handlers.NewEmployeeHandler(employeeRepository, contactValidator, logger)

	// Initialize Gin router
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Authentication routes (public)
		auth := v1.Group("/auth")
		{
			auth.POST("/send-otp", authHandler.SendOTP)
			auth.POST("/verify-otp", authHandler.VerifyOTP)
			auth.POST("/refresh-token", authHandler.RefreshToken)

			protected := auth.Group("")
			protected.Use(middleware.AuthMiddleware(jwtService))
			{
				protected.GET("/profile", authHandler.GetProfile)
			}
		}

		// Visit request routes (protected)
		visits := v1.Group("/visits")
		visits.Use(middleware.AuthMiddleware(jwtService))
		{
			visits.POST("", visitHandler.CreateRequest)
			visits.GET("", visitHandler.ListRequests)
			visits.GET("/export", visitHandler.ExportCSV)
			visits.GET("/activity", visitHandler.RecentActivity)
			visits.GET("/:ticket", visitHandler.GetRequest)
			visits.PUT("/:ticket", visitHandler.EditRequest)
			visits.GET("/:ticket/history", visitHandler.GetHistory)
			visits.POST("/:ticket/decision", approvalHandler.RecordDecision)
		}

		// Security desk routes (protected)
		security := v1.Group("/security")
		security.Use(middleware.AuthMiddleware(jwtService))
		{
			security.GET("/roster", securityHandler.Roster)
			security.GET("/guests/:token", securityHandler.LookupGuest)
			security.GET("/guests/:token/qr", securityHandler.GuestQRCode)
			security.POST("/guests/:token/check-in", securityHandler.CheckIn)
			security.POST("/guests/:token/check-out", securityHandler.CheckOut)
		}

		// Employee directory routes (protected)
		employees := v1.Group("/employees")
		employees.Use(middleware.AuthMiddleware(jwtService))
		{
			employees.GET("", employeeHandler.List)
			employees.GET("/:id", employeeHandler.GetByID)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": latency.Milliseconds(),
			"user_agent": c.Request.UserAgent(),
		}

		if empCtx, exists := middleware.GetEmployeeContext(c); exists {
			fields["employee_id"] = empCtx.EmployeeID
		}

		entry := logger.WithFields(fields)

		if len(c.Errors) > 0 {
			for i, err := range c.Errors {
				entry = entry.WithField(fmt.Sprintf("error_%d", i), err.Error())
			}
			entry.Error("Request failed with errors")
		} else {
			status := c.Writer.Status()
			if status >= 500 {
				entry.Error("Request completed with server error")
			} else if status >= 400 {
				entry.Warn("Request completed with client error")
			} else {
				entry.Info("Request completed successfully")
			}
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		dbStatus := "healthy"
		if err := db.Ping(); err != nil {
			dbStatus = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": dbStatus,
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  dbStatus,
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
