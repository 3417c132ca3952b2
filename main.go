package main

import (
	"log"
	"net/http"

	"RedditSchedulerAPI/config"
	"RedditSchedulerAPI/database"
	"RedditSchedulerAPI/handlers"
	"RedditSchedulerAPI/middleware"
	"RedditSchedulerAPI/reddit"
	"RedditSchedulerAPI/services"
	"RedditSchedulerAPI/utils"

	"github.com/gorilla/mux"
)

func main() {
	cfg := config.Load()
	utils.SetLogLevel(cfg.LogLevel)

	db, err := database.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	redditClient := reddit.NewClient(cfg.RedditClientID, cfg.RedditClientSecret, cfg.RedditUserAgent, nil)
	mailer := services.NewHTTPMailer(cfg.EmailAPIKey, cfg.EmailFrom, nil)

	authService := services.NewAuthService(db)
	dispatcher := services.NewDispatcher(db, db, redditClient)
	publisher := services.NewPublisherService(db, redditClient, cfg.MaxPublishAttempts)
	metrics := services.NewMetricsService(db, db, db, redditClient, mailer)

	scheduler := services.NewScheduler(publisher, metrics)
	scheduler.Start()
	defer scheduler.Stop()

	handler := handlers.NewHandler(db, dispatcher, publisher, metrics, authService, cfg)

	r := setupRoutes(handler, authService)

	log.Printf("Server starting on port %s...", cfg.Port)
	printEndpoints()

	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal(err)
	}
}

func setupRoutes(h *handlers.Handler, authService *services.AuthService) *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.BodyLimit(1 << 20)) // 1 MB
	r.Use(middleware.CORS(corsConfig()))

	// Public routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")

	authLimiter := middleware.NewRateLimiter(1, 5)
	r.HandleFunc("/api/auth/register", authLimiter.LimitHandler(h.Register)).Methods("POST")
	r.HandleFunc("/api/auth/login", authLimiter.LimitHandler(h.Login)).Methods("POST")

	// Billing webhook (HMAC-signed, no JWT)
	r.HandleFunc("/webhooks/billing", h.HandleBillingWebhook).Methods("POST")

	// Sweep triggers (static bearer secret, no JWT)
	r.HandleFunc("/cron/publish-due", h.TriggerScheduledSweep).Methods("POST")
	r.HandleFunc("/cron/retry-failed", h.TriggerRecoverySweep).Methods("POST")
	r.HandleFunc("/cron/poll-metrics", h.TriggerMetricsSweep).Methods("POST")

	// Protected routes
	protected := r.PathPrefix("/api").Subrouter()
	protected.Use(middleware.AuthMiddleware(authService))

	protected.HandleFunc("/posts", h.CreatePost).Methods("POST")
	protected.HandleFunc("/posts", h.GetPosts).Methods("GET")
	protected.HandleFunc("/posts/{id}", h.GetPost).Methods("GET")
	protected.HandleFunc("/posts/{id}", h.CancelPost).Methods("DELETE")
	protected.HandleFunc("/posts/{id}/metrics", h.GetPostMetrics).Methods("GET")

	return r
}

func corsConfig() middleware.CORSConfig {
	cfg := middleware.DefaultCORSConfig()
	cfg.AllowedOrigins = []string{"*"}
	return cfg
}

func printEndpoints() {
	log.Println("Endpoints available:")
	log.Println("  POST   /api/auth/register       - Register new user")
	log.Println("  POST   /api/auth/login          - Login")
	log.Println("  POST   /api/posts               - Schedule or publish a post (auth)")
	log.Println("  GET    /api/posts               - Get user posts (auth)")
	log.Println("  GET    /api/posts/{id}          - Get specific post (auth)")
	log.Println("  DELETE /api/posts/{id}          - Cancel a scheduled post (auth)")
	log.Println("  GET    /api/posts/{id}/metrics  - Get post metrics (auth)")
	log.Println("  POST   /cron/publish-due        - Run scheduled publish sweep (secret)")
	log.Println("  POST   /cron/retry-failed       - Run failure recovery sweep (secret)")
	log.Println("  POST   /cron/poll-metrics       - Run metrics poll sweep (secret)")
	log.Println("  POST   /webhooks/billing        - Billing provider webhook (signed)")
	log.Println("  GET    /health                  - Health check")
}
