package entity

import (
	"sort"
	"time"
)

// DateLayout is the calendar date format used for historical series keys
const DateLayout = "2006-01-02"

// Provenance describes where a set of rates came from
type Provenance string

const (
	// ProvenanceLive means the rates were fetched from the remote API during this call
	ProvenanceLive Provenance = "live"
	// ProvenanceCached means the rates were served from a fresh cache entry
	ProvenanceCached Provenance = "cached"
	// ProvenanceOfflineCache means a stale cache entry was served because live data was unobtainable
	ProvenanceOfflineCache Provenance = "offline-cache"
	// ProvenanceSample means the rates were synthesized from the built-in sample table
	ProvenanceSample Provenance = "sample"
)

// RateMapping maps currency codes to multipliers relative to one base currency
type RateMapping map[string]float64

// Clone returns an independent copy of the mapping
func (m RateMapping) Clone() RateMapping {
	if m == nil {
		return nil
	}
	out := make(RateMapping, len(m))
	for code, rate := range m {
		out[code] = rate
	}
	return out
}

// Codes returns the currency codes in the mapping in sorted order
func (m RateMapping) Codes() []string {
	codes := make([]string, 0, len(m))
	for code := range m {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// HistoricalSeries maps ISO 8601 dates to the rate mapping observed on that date
type HistoricalSeries map[string]RateMapping

// Clone returns a deep copy of the series
func (s HistoricalSeries) Clone() HistoricalSeries {
	if s == nil {
		return nil
	}
	out := make(HistoricalSeries, len(s))
	for date, rates := range s {
		out[date] = rates.Clone()
	}
	return out
}

// Dates returns the dates in the series in ascending order
func (s HistoricalSeries) Dates() []string {
	dates := make([]string, 0, len(s))
	for date := range s {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates
}

// CurrentRates is the outcome of a current rate lookup
type CurrentRates struct {
	Base       string      `json:"base"`
	Rates      RateMapping `json:"rates"`
	UpdatedAt  time.Time   `json:"updated_at"`
	Provenance Provenance  `json:"provenance"`
}

// HistoricalRates is the outcome of a historical series lookup
type HistoricalRates struct {
	Base       string           `json:"base"`
	Days       int              `json:"days"`
	Series     HistoricalSeries `json:"series"`
	Provenance Provenance       `json:"provenance"`
	// Complete reports whether every day in the series was fetched live during this call
	Complete bool `json:"complete"`
}
