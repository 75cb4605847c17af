package handler

import (
	"time"

	"github.com/damon-houk/fx-rate-cache/internal/domain/entity"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error       string `json:"error"`
	Status      int    `json:"status"`
	Description string `json:"description,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
}

// StatusResponse reports whether the remote rate API is reachable
type StatusResponse struct {
	Online bool   `json:"online"`
	Mode   string `json:"mode"`
}

// CurrenciesResponse lists the reference currencies
type CurrenciesResponse struct {
	Currencies []entity.Currency `json:"currencies"`
}

// HistoricalRatesResponse is a historical lookup with its dates in ascending order
type HistoricalRatesResponse struct {
	*entity.HistoricalRates
	Dates []string `json:"dates"`
}

// ConversionResponse represents the response for the convert endpoint
type ConversionResponse struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	Amount     float64   `json:"amount"`
	Result     float64   `json:"result"`
	FromSymbol string    `json:"from_symbol,omitempty"`
	ToSymbol   string    `json:"to_symbol,omitempty"`
}

// ConversionHistoryResponse lists recent conversions, most recent first
type ConversionHistoryResponse struct {
	Conversions []*entity.ConversionRecord `json:"conversions"`
}
