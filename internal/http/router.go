package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/example/counseling-diary/internal/metrics"
)

type RouterConfig struct {
	Auth          *AuthHandler
	Rooms         *RoomHandler
	Cards         *CardHandler
	Profile       *ProfileHandler
	Authenticator Authenticator
	Health        Pinger
	Metrics       *metrics.Metrics
	Logger        *zap.Logger
	Middleware    []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	logger := defaultLogger(cfg.Logger)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(logger))
	if cfg.Metrics != nil {
		r.Use(Metrics(cfg.Metrics))
	}
	for _, mw := range cfg.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.Get("/healthz", healthHandler(cfg.Health, logger))
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		if cfg.Auth != nil {
			api.Post("/auth/signup", cfg.Auth.Signup)
			api.Post("/auth/login", cfg.Auth.Login)
		}

		api.Group(func(pr chi.Router) {
			pr.Use(RequireAuth(cfg.Authenticator, logger))

			if cfg.Auth != nil {
				pr.Post("/auth/logout", cfg.Auth.Logout)
			}

			if cfg.Rooms != nil {
				pr.Route("/rooms", func(rooms chi.Router) {
					rooms.Get("/", cfg.Rooms.List)
					rooms.Post("/", cfg.Rooms.Create)
					rooms.Post("/join", cfg.Rooms.Join)
					rooms.Get("/{roomID}", cfg.Rooms.Get)
					rooms.Delete("/{roomID}", cfg.Rooms.Delete)
					rooms.Delete("/{roomID}/leave", cfg.Rooms.Leave)

					if cfg.Cards != nil {
						rooms.Post("/{roomID}/dbt-cards", cfg.Cards.Upsert)
						rooms.Get("/{roomID}/dbt-cards", cfg.Cards.List)
						rooms.Get("/{roomID}/dbt-cards/my", cfg.Cards.ListMine)
					}
				})
			}

			if cfg.Profile != nil {
				pr.Get("/profile", cfg.Profile.Get)
				pr.Put("/profile", cfg.Profile.Update)
			}
		})
	})

	return r
}
