// Package httpapi implements the JSON surface over the adapter contract.
// It is both the admin API and the server side of the HTTP adapter:
// a flipper process pointed at this API with adapters/http sees the same
// state as a process talking to the backing store directly.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/larouxn/flipper"
)

// API holds the router and its dependencies.
type API struct {
	Router *chi.Mux

	adapter flipper.Adapter
	logger  *slog.Logger
}

// New builds the API over a storage adapter.
func New(adapter flipper.Adapter, logger *slog.Logger) *API {
	if adapter == nil {
		panic("httpapi: adapter cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	a := &API{
		Router:  chi.NewRouter(),
		adapter: adapter,
		logger:  logger,
	}
	a.configureRoutes()
	return a
}

func (a *API) configureRoutes() {
	a.Router.Use(RequestID)
	a.Router.Use(middleware.RealIP)
	a.Router.Use(RequestLogger(a.logger))
	a.Router.Use(RequestMetrics)
	a.Router.Use(middleware.Recoverer)

	a.Router.Route("/api/v1", func(r chi.Router) {
		r.Get("/features", a.handleListFeatures)
		r.Post("/features", a.handleCreateFeature)

		r.Route("/features/{key}", func(r chi.Router) {
			r.Get("/", a.handleGetFeature)
			r.Delete("/", a.handleRemoveFeature)
			r.Delete("/gates", a.handleClearFeature)
			r.Post("/gates/{gate}/enable", a.handleGate(true))
			r.Post("/gates/{gate}/disable", a.handleGate(false))
		})
	})
}

// ServeHTTP makes the API mountable as a plain http.Handler.
func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.Router.ServeHTTP(w, r)
}
