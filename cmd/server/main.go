package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/shelterfund/backend/docs"
	"github.com/shelterfund/backend/internal/config"
	"github.com/shelterfund/backend/internal/database"
	"github.com/shelterfund/backend/internal/handlers"
	mW "github.com/shelterfund/backend/internal/middleware"
	"github.com/shelterfund/backend/internal/services"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"
)

// @title ShelterFund Loan Origination API
// @version 1.0
// @description API for rent and land loan applications
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

func main() {
	// Initialize config
	viper.SetConfigFile(".env") // explicitly point to .env file
	viper.AutomaticEnv()        // allow environment variables to override .env
	viper.ReadInConfig()        // read .env file

	// Set environment variable prefix
	viper.SetEnvPrefix("")

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	viper.BindEnv("jwt.expiry_hours", "JWT_EXPIRY_HOURS")
	viper.BindEnv("argon2.time", "ARGON2_TIME")
	viper.BindEnv("argon2.memory", "ARGON2_MEMORY")
	viper.BindEnv("argon2.threads", "ARGON2_THREADS")
	viper.BindEnv("argon2.key_length", "ARGON2_KEY_LENGTH")
	viper.BindEnv("argon2.salt_length", "ARGON2_SALT_LENGTH")

	viper.BindEnv("aws.region", "AWS_REGION")
	viper.BindEnv("notify.from_email", "NOTIFY_FROM_EMAIL")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	// Initialize Swagger docs
	docs.SwaggerInfo.Title = "ShelterFund Loan Origination API"
	docs.SwaggerInfo.Description = "API for rent and land loan applications"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Host = "localhost:8080"
	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	// Initialize services
	db := database.InitDatabase()
	defer db.Close()

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	loanConfig := config.LoadLoanConfig()

	storage, err := services.NewDiskStorage(loanConfig.DocumentStoreDir, "/static/documents")
	if err != nil {
		log.Fatalf("Failed to initialize document storage: %v", err)
	}

	// SES-backed notifications when configured, log-only otherwise
	var notifier services.Notifier
	region := viper.GetString("aws.region")
	fromEmail := viper.GetString("notify.from_email")
	if region != "" && fromEmail != "" {
		emailNotifier, err := services.NewEmailNotifier(context.Background(), region, fromEmail)
		if err != nil {
			log.Printf("Warning: SES notifier unavailable, falling back to logs: %v", err)
			notifier = services.LogNotifier{}
		} else {
			notifier = emailNotifier
		}
	} else {
		notifier = services.LogNotifier{}
	}

	authService := services.NewAuthService(db, redisClient)
	draftService := services.NewDraftService(db, redisClient, loanConfig, notifier)
	reviewService := services.NewReviewService(db, notifier)
	trackingService := services.NewTrackingService(db, redisClient)
	trackingHandler := handlers.NewTrackingHandler(trackingService)
	documentHandler := handlers.NewDocumentHandler(draftService, storage, loanConfig)

	// Initialize auth middleware with Redis
	mW.InitAuthMiddleware(redisClient)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Access-Control-Allow-Origin"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"),
	))

	// Uploaded documents, auth-agnostic static serving behind unguessable names
	r.Handle("/static/documents/*", http.StripPrefix("/static/documents/",
		mW.DocumentFileServer(loanConfig.DocumentStoreDir)))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints (no auth required)
		r.Post("/auth/register", authService.Register)
		r.Post("/auth/login", authService.Login)
		r.Post("/auth/logout", authService.Logout)
		r.Post("/tracking/resolve", trackingHandler.ResolveCode)

		// Protected endpoints (auth required)
		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware)

			r.Get("/auth/account", authService.GetUserAccount)

			// Draft endpoints
			r.Post("/drafts", draftService.SaveDraft)
			r.Get("/drafts/{draftId}", draftService.GetDraft)
			r.Delete("/drafts/{draftId}", draftService.DiscardDraft)
			r.Post("/drafts/{draftId}/submit", draftService.Submit)

			// Draft document endpoints
			r.Post("/drafts/{draftId}/documents", documentHandler.Upload)
			r.Delete("/drafts/{draftId}/documents/{documentType}", documentHandler.Remove)

			// Applicant-facing application endpoints
			r.Get("/applications/mine", reviewService.ListMyApplications)
			r.Post("/tracking/generate", trackingHandler.GenerateCode)

			// Review endpoints (admin only)
			r.Group(func(r chi.Router) {
				r.Use(mW.AdminOnly)

				r.Get("/applications", reviewService.ListApplications)
				r.Get("/applications/{id}", reviewService.GetApplication)
				r.Patch("/applications/{id}/status", reviewService.UpdateStatus)
				r.Post("/applications/{id}/approve", reviewService.Approve)
				r.Post("/applications/{id}/reject", reviewService.Reject)
			})
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Start server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}
