// Package currency provides the reference list of supported currencies.
package currency

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/damon-houk/fx-rate-cache/internal/domain/entity"
	"github.com/damon-houk/fx-rate-cache/internal/infrastructure/logger"
	"gopkg.in/yaml.v3"
)

//go:embed currencies.json
var embeddedCurrencies []byte

type document struct {
	Currencies []entity.Currency `json:"currencies" yaml:"currencies"`
}

// Registry is a read-only list of currencies loaded once on first use.
// A missing or malformed source yields an empty registry.
type Registry struct {
	path   string
	logger logger.Logger

	once       sync.Once
	currencies []entity.Currency
	byCode     map[string]entity.Currency
}

// NewRegistry creates a registry reading path, or the embedded list when path is empty.
// Files ending in .yaml or .yml are parsed as YAML, anything else as JSON.
func NewRegistry(path string, log logger.Logger) *Registry {
	return &Registry{
		path:   path,
		logger: logger.OrDefault(log).WithField("component", "currency_registry"),
	}
}

func (r *Registry) load() {
	r.once.Do(func() {
		r.byCode = make(map[string]entity.Currency)

		currencies, err := r.read()
		if err != nil {
			r.logger.Warn("Currency data unavailable, continuing with no currencies", map[string]interface{}{
				"path":  r.path,
				"error": err.Error(),
			})
			return
		}

		for _, c := range currencies {
			code := strings.ToUpper(strings.TrimSpace(c.Code))
			if code == "" {
				continue
			}
			if _, dup := r.byCode[code]; dup {
				continue
			}
			c.Code = code
			r.byCode[code] = c
			r.currencies = append(r.currencies, c)
		}

		r.logger.Debug("Currency data loaded", map[string]interface{}{
			"path":  r.path,
			"count": len(r.currencies),
		})
	})
}

func (r *Registry) read() ([]entity.Currency, error) {
	data := embeddedCurrencies
	if r.path != "" {
		var err error
		data, err = os.ReadFile(r.path)
		if err != nil {
			return nil, fmt.Errorf("failed to read currency file: %w", err)
		}
	}

	var doc document
	switch strings.ToLower(filepath.Ext(r.path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse currency file: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse currency file: %w", err)
		}
	}

	return doc.Currencies, nil
}

// All returns the currencies in source order
func (r *Registry) All() []entity.Currency {
	r.load()
	out := make([]entity.Currency, len(r.currencies))
	copy(out, r.currencies)
	return out
}

// Codes returns the currency codes in source order
func (r *Registry) Codes() []string {
	r.load()
	codes := make([]string, 0, len(r.currencies))
	for _, c := range r.currencies {
		codes = append(codes, c.Code)
	}
	return codes
}

// Has reports whether code is a known currency
func (r *Registry) Has(code string) bool {
	r.load()
	_, ok := r.byCode[code]
	return ok
}

// Name returns the display name of a currency
func (r *Registry) Name(code string) (string, bool) {
	r.load()
	c, ok := r.byCode[code]
	return c.Name, ok
}

// Symbol returns the display symbol of a currency
func (r *Registry) Symbol(code string) (string, bool) {
	r.load()
	c, ok := r.byCode[code]
	return c.Symbol, ok
}
