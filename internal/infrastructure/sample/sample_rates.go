// Package sample synthesizes deterministic exchange rates for use when neither the
// remote API nor the cache can answer.
package sample

import (
	"hash/fnv"
	"math/rand"
	"strconv"

	"github.com/damon-houk/fx-rate-cache/internal/domain/entity"
	"github.com/damon-houk/fx-rate-cache/internal/infrastructure/logger"
)

// DefaultBase is the base currency of the reference table
const DefaultBase = "USD"

// MaxDrift bounds the relative perturbation applied to historical sample rates
const MaxDrift = 0.03

var referenceRates = entity.RateMapping{
	"USD": 1.0,
	"EUR": 0.93,
	"GBP": 0.79,
	"JPY": 154.56,
	"CAD": 1.36,
	"AUD": 1.51,
	"CHF": 0.91,
	"CNY": 7.23,
	"INR": 83.34,
	"BRL": 5.04,
	"MXN": 16.62,
	"SGD": 1.34,
}

// ReferenceRates returns a copy of the fixed table against DefaultBase
func ReferenceRates() entity.RateMapping {
	return referenceRates.Clone()
}

// Generator implements service.SampleSource
type Generator struct {
	logger logger.Logger
}

// NewGenerator creates a sample data generator
func NewGenerator(log logger.Logger) *Generator {
	return &Generator{logger: logger.OrDefault(log).WithField("component", "sample")}
}

// Current returns the reference table rebased onto base. An unknown base yields the
// table against DefaultBase unchanged.
func (g *Generator) Current(base string) entity.RateMapping {
	if base == DefaultBase {
		return referenceRates.Clone()
	}

	baseValue, ok := referenceRates[base]
	if !ok {
		g.logger.Warn("Unknown base currency for sample data, using default base", map[string]interface{}{
			"base":         base,
			"default_base": DefaultBase,
		})
		return referenceRates.Clone()
	}

	rebased := make(entity.RateMapping, len(referenceRates))
	for code, rate := range referenceRates {
		rebased[code] = rate / baseValue
	}
	return rebased
}

// HistoricalDay perturbs Current(base) by up to ±MaxDrift per currency. The drift for a
// currency depends only on (code, daysAgo), so repeated calls reproduce the same values.
// The base currency itself stays at 1.0.
func (g *Generator) HistoricalDay(base string, daysAgo int) entity.RateMapping {
	current := g.Current(base)

	day := make(entity.RateMapping, len(current))
	for code, rate := range current {
		if code == base {
			day[code] = rate
			continue
		}
		day[code] = rate * (1 + Drift(code, daysAgo))
	}
	return day
}

// Drift returns the deterministic relative offset in [-MaxDrift, MaxDrift) for a currency and day
func Drift(code string, daysAgo int) float64 {
	h := fnv.New64a()
	h.Write([]byte(code))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(daysAgo)))

	// Per-call source, never the shared global generator
	r := rand.New(rand.NewSource(int64(h.Sum64())))
	return (r.Float64()*2 - 1) * MaxDrift
}
