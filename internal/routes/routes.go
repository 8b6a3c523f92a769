package routes

import (
	"net/http"

	"github.com/AnshRaj112/wellsync/internal/handlers"
	"github.com/AnshRaj112/wellsync/internal/metrics"
	"github.com/AnshRaj112/wellsync/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// Options selects the middleware stack for NewRouter.
type Options struct {
	AllowedOrigins []string
	// Security, when non-empty, replaces the development rate limiting.
	Security  []func(http.Handler) http.Handler
	RateLimit func(http.Handler) http.Handler
}

// NewRouter builds the server's router with its middleware.
func NewRouter(sync *handlers.SyncHandler, opts Options) *chi.Mux {
	r := chi.NewRouter()
	r.Use(metrics.InstrumentHandler)
	r.Use(middleware.CORS(opts.AllowedOrigins))

	switch {
	case len(opts.Security) > 0:
		for _, mw := range opts.Security {
			r.Use(mw)
		}
	case opts.RateLimit != nil:
		r.Use(opts.RateLimit)
	}

	SetupRoutes(r, sync)
	return r
}

func SetupRoutes(r chi.Router, sync *handlers.SyncHandler) {
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", metrics.Handler())

	// Sync API
	r.Get("/api/sync", sync.Get)
	r.Post("/api/sync", sync.Post)

	// Admin live login feed
	r.Get("/ws/logins", sync.LoginFeed)
}
