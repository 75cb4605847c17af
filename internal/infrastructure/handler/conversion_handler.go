// Package handler internal/infrastructure/handler/conversion_handler.go
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/damon-houk/fx-rate-cache/internal/domain/entity"
	"github.com/damon-houk/fx-rate-cache/internal/infrastructure/logger"
	"github.com/damon-houk/fx-rate-cache/internal/infrastructure/middleware"
	"github.com/gorilla/mux"
)

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 100
)

// Converter is the part of the conversion service the handler needs
type Converter interface {
	ConvertAndRecord(ctx context.Context, amount float64, from, to string) (*entity.ConversionRecord, error)
	History(ctx context.Context, limit int) ([]*entity.ConversionRecord, error)
}

// ConversionHandler handles HTTP requests for currency conversion
type ConversionHandler struct {
	service    Converter
	currencies CurrencyLister
	logger     logger.Logger
}

// NewConversionHandler creates a new conversion handler; currencies may be nil
func NewConversionHandler(service Converter, currencies CurrencyLister, log logger.Logger) *ConversionHandler {
	return &ConversionHandler{
		service:    service,
		currencies: currencies,
		logger:     logger.OrDefault(log),
	}
}

func (h *ConversionHandler) symbol(code string) string {
	if h.currencies == nil {
		return ""
	}
	symbol, _ := h.currencies.Symbol(code)
	return symbol
}

// Convert handles converting an amount between two currencies
func (h *ConversionHandler) Convert(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	query := r.URL.Query()

	from, to := query.Get("from"), query.Get("to")
	if from == "" || to == "" {
		sendErrorResponse(w, h.logger, "Missing currency parameter",
			"The 'from' and 'to' query parameters are required", http.StatusBadRequest, requestID)
		return
	}
	if !validCode(from) || !validCode(to) {
		h.logger.Warn("Invalid currency code", map[string]interface{}{
			"request_id": requestID,
			"from":       from,
			"to":         to,
		})
		sendErrorResponse(w, h.logger, "Invalid currency code",
			"Currency code should be 3 letters (e.g., USD, EUR, GBP)", http.StatusBadRequest, requestID)
		return
	}

	amount, err := strconv.ParseFloat(query.Get("amount"), 64)
	if err != nil {
		h.logger.Warn("Invalid amount", map[string]interface{}{
			"request_id": requestID,
			"amount":     query.Get("amount"),
		})
		sendErrorResponse(w, h.logger, "Invalid amount",
			"The 'amount' query parameter must be a number", http.StatusBadRequest, requestID)
		return
	}

	record, err := h.service.ConvertAndRecord(r.Context(), amount, from, to)
	if err != nil {
		switch {
		case errors.Is(err, entity.ErrInvalidAmount):
			sendErrorResponse(w, h.logger, "Invalid amount",
				"The amount must be a finite number", http.StatusBadRequest, requestID)
		case errors.Is(err, entity.ErrUnresolvableCurrency):
			sendErrorResponse(w, h.logger, "Unresolvable currency",
				"No exchange rate is available for the target currency", http.StatusUnprocessableEntity, requestID)
		default:
			h.logger.Error("Conversion failed", map[string]interface{}{
				"request_id": requestID,
				"from":       from,
				"to":         to,
				"error":      err.Error(),
			})
			sendErrorResponse(w, h.logger, "Conversion failed",
				"Exchange rates could not be resolved", http.StatusInternalServerError, requestID)
		}
		return
	}

	sendJSON(w, h.logger, ConversionResponse{
		ID:         record.ID,
		Timestamp:  record.Timestamp,
		From:       record.From,
		To:         record.To,
		Amount:     record.Amount,
		Result:     record.Result,
		FromSymbol: h.symbol(record.From),
		ToSymbol:   h.symbol(record.To),
	}, http.StatusOK, requestID)
}

// GetConversions lists the most recent conversions
func (h *ConversionHandler) GetConversions(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxHistoryLimit {
			sendErrorResponse(w, h.logger, "Invalid limit parameter",
				"The 'limit' query parameter must be an integer between 1 and 100", http.StatusBadRequest, requestID)
			return
		}
		limit = parsed
	}

	records, err := h.service.History(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to load conversion history", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		sendErrorResponse(w, h.logger, "Internal server error",
			"Conversion history could not be loaded", http.StatusInternalServerError, requestID)
		return
	}
	if records == nil {
		records = []*entity.ConversionRecord{}
	}

	sendJSON(w, h.logger, ConversionHistoryResponse{Conversions: records}, http.StatusOK, requestID)
}

// RegisterRoutes registers the conversion handler routes
func (h *ConversionHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/convert", h.Convert).Methods(http.MethodGet)
	router.HandleFunc("/conversions", h.GetConversions).Methods(http.MethodGet)

	h.logger.Info("Conversion routes registered", map[string]interface{}{
		"routes": []string{
			"GET /convert",
			"GET /conversions",
		},
	})
}
