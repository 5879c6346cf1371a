package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"qrfeedback-backend/internal/config"
	"qrfeedback-backend/internal/database"
	"qrfeedback-backend/internal/handlers"
	"qrfeedback-backend/internal/logging"
	custommw "qrfeedback-backend/internal/middleware"
	"qrfeedback-backend/internal/notify"
	"qrfeedback-backend/internal/repository"
)

func main() {
	// Load .env (ignore error in production — env vars set directly)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	logging.Setup(cfg.LogLevel, cfg.LogPretty)

	if err := database.Connect(cfg.MongoURI, cfg.DBName); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}

	businessRepo := repository.NewBusinessRepo()
	tokenRepo := repository.NewAuthTokenRepo()
	feedbackRepo := repository.NewFeedbackRepo()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := businessRepo.EnsureIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to create business indexes")
	}
	if err := tokenRepo.EnsureIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to create token indexes")
	}
	if err := feedbackRepo.EnsureIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to create feedback indexes")
	}

	var notifier notify.Notifier
	if cfg.ResendAPIKey != "" {
		notifier = notify.NewEmailNotifier(cfg.ResendAPIKey, cfg.FromEmail)
	} else {
		log.Warn().Msg("RESEND_API_KEY not set, low rating alerts go to the log")
		notifier = notify.NewMockNotifier()
	}

	authHandler := handlers.NewAuthHandler(tokenRepo, businessRepo, cfg)
	feedbackHandler := handlers.NewFeedbackHandler(feedbackRepo, businessRepo, notifier)
	businessHandler := handlers.NewBusinessHandler(businessRepo)
	dashboardHandler := handlers.NewDashboardHandler(feedbackRepo, businessRepo)

	submitLimiter := custommw.NewRateLimiter(cfg.RateRPS, cfg.RateBurst)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(custommw.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(custommw.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"qrfeedback-backend"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Public routes (no auth required)
	r.Post("/auth/request", authHandler.RequestLogin)
	r.Get("/auth/verify", authHandler.VerifyToken)
	r.Get("/auth/redirect", authHandler.RedirectToDashboard)
	r.Get("/form/{businessID}", businessHandler.GetForm)

	// Guest submission, rate limited per IP
	r.Group(func(r chi.Router) {
		r.Use(submitLimiter.Handler)
		r.Post("/feedback", feedbackHandler.SubmitFeedback)
	})

	// Protected routes (JWT required)
	r.Group(func(r chi.Router) {
		r.Use(custommw.JWTAuth(cfg.JWTSecret))

		r.Get("/business", businessHandler.GetBusiness)
		r.Put("/business", businessHandler.UpdateProfile)
		r.Put("/business/customization", businessHandler.UpdateCustomization)
		r.Get("/business/rewards", businessHandler.GetRewards)
		r.Put("/business/rewards", businessHandler.SaveRewards)

		r.Get("/dashboard", dashboardHandler.GetDashboard)
		r.Get("/dashboard/stream", dashboardHandler.StreamDashboard)
		r.Put("/dashboard/threshold", dashboardHandler.SetThreshold)
		r.Post("/dashboard/reviews/{id}/resolve", dashboardHandler.ResolveReview)
		r.Delete("/dashboard/reviews/{id}/resolve", dashboardHandler.UnresolveReview)
	})

	log.Info().Str("port", cfg.Port).Msg("qrfeedback backend starting")
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}
