package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"habitQuestAPI/handlers"
	"habitQuestAPI/internal/cache"
	"habitQuestAPI/internal/notification"
	"habitQuestAPI/internal/timeclock"
	"habitQuestAPI/internal/workers"
	"habitQuestAPI/middleware"
	"habitQuestAPI/services"

	_ "net/http/pprof"
)

var (
	dbPool              *pgxpool.Pool
	challengeCache      *cache.Cache
	refClock            *timeclock.Clock
	userService         *services.UserService
	challengeService    *services.ChallengeService
	notificationService *services.NotificationService
	fcmService          *notification.FCMService
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	clerkSecretKey := os.Getenv("CLERK_SECRET_KEY")
	if clerkSecretKey == "" {
		log.Fatal("CLERK_SECRET_KEY environment variable is not set")
	}
	clerk.SetKey(clerkSecretKey)
	log.Println("Clerk initialized successfully")

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		log.Fatal("Failed to parse database URL:", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	dbPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Fatal("Failed to create connection pool:", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	log.Println("Successfully connected to database")

	refClock, err = timeclock.NewClock(os.Getenv("REFERENCE_TIMEZONE"))
	if err != nil {
		log.Fatal("Failed to load reference timezone:", err)
	}
	log.Printf("Reference timezone: %s", refClock.Location())

	challengeCache = cache.New(1000)

	notificationService = services.NewNotificationService(dbPool)
	userService = services.NewUserService(dbPool)
	challengeService = services.NewChallengeService(dbPool, challengeCache, refClock, notificationService)

	fcmService, err = notification.NewFCMService("./serviceAccountKey.json")
	if err != nil {
		log.Printf("Warning: Could not initialize FCM: %v", err)
	} else {
		notificationService.SetPushProvider(fcmService)
		log.Println("FCM Push Provider initialized successfully")
	}

	middleware.InitPrometheus()
	middleware.RegisterCacheMetrics(challengeCache)
}

func main() {
	challengeCache.StartSweeper(cache.DefaultSweepInterval)

	reminderWorker := workers.NewReminderWorker(dbPool, refClock, notificationService)
	reminderWorker.Start()

	defer func() {
		log.Println("Stopping reminder worker...")
		reminderWorker.Stop()
		log.Println("Stopping cache sweeper...")
		challengeCache.Stop()
		log.Println("Closing database connection pool...")
		dbPool.Close()
	}()

	// Initialize handlers
	userHandler := handlers.NewUserHandler(userService)
	challengeHandler := handlers.NewChallengeHandler(challengeService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	webhookHandler := handlers.NewWebhookHandler(userService)

	r := mux.NewRouter()

	go middleware.CleanupVisitors()

	r.Use(middleware.RateLimitMiddleware)
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(promhttp.Handler()))
	r.PathPrefix("/debug/pprof/").Handler(middleware.PprofSecurityMiddleware(http.DefaultServeMux))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := dbPool.Ping(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "habitQuest-api"}`))
	}).Methods("GET")

	r.HandleFunc("/webhooks/clerk", webhookHandler.HandleClerkWebhook).Methods("POST")

	// -------------------------------------------------------------------------
	// API V1 SUBROUTER
	// -------------------------------------------------------------------------
	api := r.PathPrefix("/api/v1").Subrouter()

	// -------------------------------------------------------------------------
	// PROTECTED ROUTES (REQUIRE AUTH HEADER)
	// -------------------------------------------------------------------------
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.ClerkAuthMiddleware)

	// The ranking is public. A valid token still gets the caller's own
	// position highlighted.
	api.Handle("/challenge/ranking",
		middleware.OptionalAuthMiddleware(http.HandlerFunc(challengeHandler.GetRanking))).Methods("GET")

	protected.HandleFunc("/user", userHandler.GetProfile).Methods("GET")
	protected.HandleFunc("/user/update-profile", userHandler.UpdateProfile).Methods("PUT")
	protected.HandleFunc("/user/delete-account", userHandler.DeleteAccount).Methods("DELETE")

	protected.HandleFunc("/challenge", challengeHandler.GetState).Methods("GET")
	protected.HandleFunc("/challenge/start", challengeHandler.StartChallenge).Methods("POST")
	protected.HandleFunc("/challenge/complete", challengeHandler.CompleteChallenge).Methods("POST")
	protected.HandleFunc("/challenge/progress", challengeHandler.GetProgress).Methods("GET")
	protected.HandleFunc("/challenge/daily-progress", challengeHandler.GetDailyProgress).Methods("GET")
	protected.HandleFunc("/challenge/daily-progress", challengeHandler.RecordDailyProgress).Methods("POST")
	protected.HandleFunc("/challenge/daily-progress", challengeHandler.UpdateDailyProgress).Methods("PUT")
	protected.HandleFunc("/challenge/daily-progress/reset", challengeHandler.ResetDailyTasks).Methods("POST")
	protected.HandleFunc("/challenge/points", challengeHandler.AddPoints).Methods("POST")
	protected.HandleFunc("/challenge/points/breakdown", challengeHandler.GetPointsBreakdown).Methods("GET")
	protected.HandleFunc("/challenge/cache-stats", challengeHandler.GetCacheStats).Methods("GET")

	protected.HandleFunc("/notifications", notificationHandler.GetNotifications).Methods("GET")
	protected.HandleFunc("/notifications/unread-count", notificationHandler.GetUnreadCount).Methods("GET")
	protected.HandleFunc("/notifications/{id}/read", notificationHandler.MarkAsRead).Methods("PUT")
	protected.HandleFunc("/notifications/read-all", notificationHandler.MarkAllAsRead).Methods("PUT")
	protected.HandleFunc("/notifications/register-device", notificationHandler.RegisterDevice).Methods("POST")

	// CORS configuration
	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins([]string{"*"}),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Pprof-Secret"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorilllaHandlers.AllowCredentials(),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3333"
	}
	port = ":" + port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	sig := <-sigChan
	log.Println("Got signal:", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server shutdown complete")
}
