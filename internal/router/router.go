package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"delivery-console/internal/config"
	"delivery-console/internal/database"
	"delivery-console/internal/handler"
	mw "delivery-console/internal/middleware"
	"delivery-console/internal/service"
	"delivery-console/internal/ws"
)

// New creates a chi router with all console routes wired up.
func New(cfg *config.Config, queries *database.Queries, sessions *service.SessionService, hub *ws.Hub, log *zap.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// WebSocket route, authenticated via query token
	r.Get("/ws/drafts/{id}", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		deliveryHandler := handler.NewDeliveryHandler(queries, log)
		r.Route("/delivery", deliveryHandler.RegisterRoutes)

		draftHandler := handler.NewDraftHandler(sessions, log)
		r.Route("/drafts", draftHandler.RegisterRoutes)
	})

	return r
}
