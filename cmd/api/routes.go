package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"
	"go.uber.org/zap"

	"cashbox-api/internal/config"
	"cashbox-api/internal/handlers"
	"cashbox-api/internal/middleware"
	"cashbox-api/internal/observability"
	"cashbox-api/internal/services"
)

func SetupRoutes(log *zap.Logger, cfg config.Config, metrics *observability.Metrics, svc *services.CashBoxService, users middleware.UserLookup) *chi.Mux {
	r := chi.NewRouter()

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "no-referrer",
		IsDevelopment:      !cfg.IsProduction(),
	})

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(metrics.Middleware)
	r.Use(chimw.Recoverer)
	r.Use(secureMiddleware.Handler)
	r.Use(httprate.Limit(cfg.RateLimitPerMinute, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
	r.Use(middleware.ExtractToken)

	// --- Handlers ---
	requestHandler := handlers.NewOpeningRequestHandler(svc, log)
	cashBoxHandler := handlers.NewCashBoxHandler(svc, log)

	// --- Routes ---
	r.Get("/health", handlers.HealthCheck)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequirePrincipal(users, log))

		r.Route("/opening-requests", func(r chi.Router) {
			r.Post("/", requestHandler.Submit)
			r.Get("/pending", requestHandler.Pending)
			r.Get("/current", requestHandler.Current)
			r.Post("/{id}/approve", requestHandler.Approve)
			r.Post("/{id}/reject", requestHandler.Reject)
		})

		r.Route("/cash-boxes", func(r chi.Router) {
			r.Post("/", cashBoxHandler.Open)
			r.Get("/current", cashBoxHandler.Current)
			r.Get("/history", cashBoxHandler.History)
			r.Get("/day/{date}", cashBoxHandler.Day)
			r.Get("/{id}", cashBoxHandler.Summary)
			r.Post("/{id}/income", cashBoxHandler.RecordIncome)
			r.Post("/{id}/expenses", cashBoxHandler.RecordExpense)
			r.Delete("/{id}/expenses/{expenseID}", cashBoxHandler.RemoveExpense)
			r.Post("/{id}/close", cashBoxHandler.Close)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"status":"error","error":"route not found"}`))
	})

	return r
}
