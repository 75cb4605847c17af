package handler

import (
	"net/http"

	"github.com/damon-houk/fx-rate-cache/internal/infrastructure/logger"
	"github.com/damon-houk/fx-rate-cache/internal/infrastructure/middleware"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouteRegistrar is implemented by every handler
type RouteRegistrar interface {
	RegisterRoutes(router *mux.Router)
}

// NewRouter builds the router with the middleware chain and, when gatherer is set, /metrics
func NewRouter(log logger.Logger, gatherer prometheus.Gatherer, handlers ...RouteRegistrar) *mux.Router {
	log = logger.OrDefault(log)

	router := mux.NewRouter()
	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggingMiddleware(log))

	for _, h := range handlers {
		h.RegisterRoutes(router)
	}

	if gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	return router
}
