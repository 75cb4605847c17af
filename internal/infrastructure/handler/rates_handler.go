// Package handler internal/infrastructure/handler/rates_handler.go
package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/damon-houk/fx-rate-cache/internal/application/service"
	"github.com/damon-houk/fx-rate-cache/internal/domain/entity"
	"github.com/damon-houk/fx-rate-cache/internal/infrastructure/logger"
	"github.com/damon-houk/fx-rate-cache/internal/infrastructure/middleware"
	"github.com/gorilla/mux"
)

// MaxHistoricalDays bounds the days parameter of the historical endpoint
const MaxHistoricalDays = 365

// RateQuerier is the part of the rate service the handler needs
type RateQuerier interface {
	IsOnline(ctx context.Context) bool
	GetCurrentRates(ctx context.Context, base string, forceRefresh bool) *entity.CurrentRates
	GetHistoricalRates(ctx context.Context, base string, days int, forceRefresh bool) *entity.HistoricalRates
}

// CurrencyLister exposes the reference currency list
type CurrencyLister interface {
	All() []entity.Currency
	Symbol(code string) (string, bool)
}

// RatesHandler handles HTTP requests for rates, currencies and status
type RatesHandler struct {
	rates       RateQuerier
	currencies  CurrencyLister
	defaultBase string
	logger      logger.Logger
}

// NewRatesHandler creates a new rates handler
func NewRatesHandler(rates RateQuerier, currencies CurrencyLister, defaultBase string, log logger.Logger) *RatesHandler {
	if defaultBase == "" {
		defaultBase = "USD"
	}

	return &RatesHandler{
		rates:       rates,
		currencies:  currencies,
		defaultBase: service.NormalizeCode(defaultBase),
		logger:      logger.OrDefault(log),
	}
}

// parseBase reads the base query parameter, defaulting to the configured base
func (h *RatesHandler) parseBase(w http.ResponseWriter, r *http.Request, requestID string) (string, bool) {
	base := r.URL.Query().Get("base")
	if base == "" {
		return h.defaultBase, true
	}
	if !validCode(base) {
		h.logger.Warn("Invalid base currency", map[string]interface{}{
			"request_id": requestID,
			"base":       base,
		})
		sendErrorResponse(w, h.logger, "Invalid currency code",
			"Currency code should be 3 letters (e.g., USD, EUR, GBP)", http.StatusBadRequest, requestID)
		return "", false
	}
	return service.NormalizeCode(base), true
}

// parseRefresh reads the refresh query parameter; absent means false
func (h *RatesHandler) parseRefresh(w http.ResponseWriter, r *http.Request, requestID string) (bool, bool) {
	raw := r.URL.Query().Get("refresh")
	if raw == "" {
		return false, true
	}
	refresh, err := strconv.ParseBool(raw)
	if err != nil {
		sendErrorResponse(w, h.logger, "Invalid refresh parameter",
			"The 'refresh' query parameter must be true or false", http.StatusBadRequest, requestID)
		return false, false
	}
	return refresh, true
}

// GetCurrencies lists the reference currencies
func (h *RatesHandler) GetCurrencies(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	currencies := h.currencies.All()
	if currencies == nil {
		currencies = []entity.Currency{}
	}

	sendJSON(w, h.logger, CurrenciesResponse{Currencies: currencies}, http.StatusOK, requestID)
}

// GetStatus reports whether the remote API is reachable
func (h *RatesHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	online := h.rates.IsOnline(r.Context())
	mode := "OFFLINE"
	if online {
		mode = "ONLINE"
	}

	sendJSON(w, h.logger, StatusResponse{Online: online, Mode: mode}, http.StatusOK, requestID)
}

// GetCurrentRates handles current rate lookups
func (h *RatesHandler) GetCurrentRates(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	base, ok := h.parseBase(w, r, requestID)
	if !ok {
		return
	}
	refresh, ok := h.parseRefresh(w, r, requestID)
	if !ok {
		return
	}

	result := h.rates.GetCurrentRates(r.Context(), base, refresh)

	h.logger.Info("Current rates served", map[string]interface{}{
		"request_id": requestID,
		"base":       base,
		"provenance": result.Provenance,
		"count":      len(result.Rates),
	})

	sendJSON(w, h.logger, result, http.StatusOK, requestID)
}

// GetHistoricalRates handles historical series lookups
func (h *RatesHandler) GetHistoricalRates(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	base, ok := h.parseBase(w, r, requestID)
	if !ok {
		return
	}
	refresh, ok := h.parseRefresh(w, r, requestID)
	if !ok {
		return
	}

	days := 30
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > MaxHistoricalDays {
			h.logger.Warn("Invalid days parameter", map[string]interface{}{
				"request_id": requestID,
				"days":       raw,
			})
			sendErrorResponse(w, h.logger, "Invalid days parameter",
				"The 'days' query parameter must be an integer between 1 and 365", http.StatusBadRequest, requestID)
			return
		}
		days = parsed
	}

	result := h.rates.GetHistoricalRates(r.Context(), base, days, refresh)

	h.logger.Info("Historical rates served", map[string]interface{}{
		"request_id": requestID,
		"base":       base,
		"days":       days,
		"provenance": result.Provenance,
		"complete":   result.Complete,
	})

	sendJSON(w, h.logger, HistoricalRatesResponse{
		HistoricalRates: result,
		Dates:           result.Series.Dates(),
	}, http.StatusOK, requestID)
}

// RegisterRoutes registers the rates handler routes
func (h *RatesHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/currencies", h.GetCurrencies).Methods(http.MethodGet)
	router.HandleFunc("/status", h.GetStatus).Methods(http.MethodGet)
	router.HandleFunc("/rates", h.GetCurrentRates).Methods(http.MethodGet)
	router.HandleFunc("/rates/historical", h.GetHistoricalRates).Methods(http.MethodGet)

	h.logger.Info("Rate routes registered", map[string]interface{}{
		"routes": []string{
			"GET /currencies",
			"GET /status",
			"GET /rates",
			"GET /rates/historical",
		},
	})
}
