package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	api "github.com/operating-strengths/assessment-api/internal/api/http"
	"github.com/operating-strengths/assessment-api/internal/config"
	"github.com/operating-strengths/assessment-api/internal/db"
	"github.com/operating-strengths/assessment-api/internal/mailer"
	"github.com/operating-strengths/assessment-api/internal/realtime"
	"github.com/operating-strengths/assessment-api/internal/seed"
	"github.com/operating-strengths/assessment-api/internal/team"
)

func main() {
	_ = godotenv.Load()

	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	zlog, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zlog.Sync()
	logger := zlog.Sugar()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		logger.Fatalw("db open failed", "driver", cfg.DBDriver, "error", err)
	}
	store := team.NewSQLStore(dbh)

	if err := seed.EnsureCatalog(ctx, store); err != nil {
		logger.Fatalw("seed catalog failed", "error", err)
	}

	// --- Mail ---
	var mail mailer.Mailer
	switch cfg.EmailDriver {
	case "smtp":
		mail = mailer.NewSMTPMailer(cfg.SMTPAddr, cfg.EmailFrom, cfg.SMTPUser, cfg.SMTPPass)
	default:
		mail = &mailer.LogMailer{Log: logger}
	}
	mail = mailer.WithRetry(mail, logger)

	// --- Realtime ---
	hub := realtime.NewHub()
	streams := realtime.NewTokenService(cfg.RealtimeSecret)

	svc := team.NewService(store, mail, hub, streams, logger,
		team.Secrets{Randomization: cfg.RandomizationSecret, Token: cfg.TokenSecret},
		cfg.PublicURL)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api", func(ar chi.Router) {
		// The SSE stream lives outside the request timeout.
		ar.Get("/dashboard/stream", api.StreamHandler(hub, streams))

		ar.Group(func(tr chi.Router) {
			tr.Use(middleware.Timeout(30 * time.Second))

			tr.Post("/teams", api.CreateTeamHandler(svc))

			tr.Route("/assessment/{token}", func(sr chi.Router) {
				sr.Get("/questions", api.QuestionsHandler(svc))
				sr.Post("/name", api.SetNameHandler(svc))
				sr.Post("/submit", api.SubmitHandler(svc))
			})

			tr.Route("/dashboard/{token}", func(dr chi.Router) {
				dr.Get("/", api.DashboardHandler(svc))
				dr.Post("/members", api.AddMemberHandler(svc))
				dr.Post("/members/{memberID}/resend", api.ResendInviteHandler(svc))
				dr.Post("/report", api.GenerateReportHandler(svc))
				dr.Get("/report/export", api.ExportReportHandler(svc))
				dr.Post("/realtime-token", api.RealtimeTokenHandler(svc))
			})

			tr.Get("/report/{token}", api.ReportHandler(svc))

			tr.With(api.BasicAuth(cfg.AdminUser, cfg.AdminPassHash)).
				Post("/admin/versions", api.CreateVersionHandler(svc))
		})
	})

	r.Get("/healthz", api.HealthzHandler())
	r.Get("/readyz", api.ReadyzHandler(dbh))

	logger.Infow("gateway listening", "addr", cfg.HTTPAddr, "driver", cfg.DBDriver)
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		logger.Fatalw("server stopped", "error", err)
	}
}
