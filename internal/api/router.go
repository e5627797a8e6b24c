// Package api wires the HTTP routes.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/snatchdl/snatch/internal/api/handler"
	mw "github.com/snatchdl/snatch/internal/api/middleware"
)

// NewRouter creates the HTTP router with all routes configured.
func NewRouter(
	downloadHandler *handler.DownloadHandler,
	utilityHandler *handler.UtilityHandler,
	proxyHandler *handler.ProxyHandler,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	healthHandler *handler.HealthHandler,
	sessions mw.SessionVerifier,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CleanPath)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))

	// CORS for the browser frontend
	r.Use(mw.CORS)

	// Health endpoint (no auth)
	r.Get("/health", healthHandler.Live)

	r.Route("/api", func(r chi.Router) {
		// Session is optional here; authenticated users get history.
		r.Use(mw.WithUser(sessions))

		r.Get("/download", downloadHandler.Download)
		r.Post("/download", downloadHandler.Download)

		r.Get("/utility", utilityHandler.Handle)
		r.Post("/utility", utilityHandler.Handle)

		// Image proxies are GET-only.
		r.Get("/pinterest-proxy", proxyHandler.Pinterest)
		r.Get("/spotify-proxy", proxyHandler.Spotify)
		r.Get("/youtube-proxy", proxyHandler.YouTube)

		r.Get("/auth", authHandler.Handle)

		// Account endpoint requires a session.
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireUser)
			r.Get("/user", userHandler.Handle)
			r.Post("/user", userHandler.Handle)
		})
	})

	// Proxy endpoints answer their own OPTIONS preflight via the CORS
	// middleware; anything else is a 405.
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		w.Write([]byte(`{"success":false,"error":"method not allowed"}`))
	})

	return r
}
