package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/damon-houk/fx-rate-cache/internal/domain/entity"
	"github.com/damon-houk/fx-rate-cache/internal/infrastructure/logger"
	"github.com/damon-houk/fx-rate-cache/internal/infrastructure/metrics"
)

const (
	defaultCurrentURL    = "https://open.er-api.com/v6/latest"
	defaultHistoricalURL = "https://api.frankfurter.app"
	defaultProbeURL      = "https://8.8.8.8"

	defaultFetchTimeout = 5 * time.Second
	defaultProbeTimeout = time.Second

	// maxBodySize caps how much of a response is read
	maxBodySize = 1 << 20
)

// Config holds the endpoints and limits of the rate API client
type Config struct {
	CurrentURL    string
	HistoricalURL string
	ProbeURL      string
	FetchTimeout  time.Duration
	ProbeTimeout  time.Duration
	Retries       int
	RetryBackoff  time.Duration
}

// RateAPIClient implements service.RateFetcher over HTTP
type RateAPIClient struct {
	currentURL    string
	historicalURL string
	probeURL      string
	httpClient    *http.Client
	probeClient   *http.Client
	retries       int
	retryBackoff  time.Duration
	logger        logger.Logger
	metrics       *metrics.Metrics
}

// NewRateAPIClient creates a new rate API client; zero config values take the defaults
func NewRateAPIClient(cfg Config, log logger.Logger, m *metrics.Metrics) *RateAPIClient {
	if cfg.CurrentURL == "" {
		cfg.CurrentURL = defaultCurrentURL
	}
	if cfg.HistoricalURL == "" {
		cfg.HistoricalURL = defaultHistoricalURL
	}
	if cfg.ProbeURL == "" {
		cfg.ProbeURL = defaultProbeURL
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = defaultProbeTimeout
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 500 * time.Millisecond
	}

	return &RateAPIClient{
		currentURL:    strings.TrimRight(cfg.CurrentURL, "/"),
		historicalURL: strings.TrimRight(cfg.HistoricalURL, "/"),
		probeURL:      cfg.ProbeURL,
		httpClient:    &http.Client{Timeout: cfg.FetchTimeout},
		probeClient:   &http.Client{Timeout: cfg.ProbeTimeout},
		retries:       cfg.Retries,
		retryBackoff:  cfg.RetryBackoff,
		logger:        logger.OrDefault(log).WithField("component", "rate_api"),
		metrics:       m,
	}
}

// LatestResponse is the payload of the current-rate endpoint
type LatestResponse struct {
	Result            string             `json:"result"`
	BaseCode          string             `json:"base_code"`
	TimeLastUpdateUTC string             `json:"time_last_update_utc"`
	Rates             map[string]float64 `json:"rates"`
	ErrorType         string             `json:"error-type,omitempty"`
}

// HistoricalResponse is the payload of the historical endpoint
type HistoricalResponse struct {
	Result string             `json:"result,omitempty"`
	Base   string             `json:"base"`
	Date   string             `json:"date"`
	Rates  map[string]float64 `json:"rates"`
}

func fetchError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", entity.ErrFetchFailed, fmt.Sprintf(format, args...))
}

// CheckConnectivity probes a well-known host. Any HTTP response counts as reachable.
func (c *RateAPIClient) CheckConnectivity(ctx context.Context) bool {
	started := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.probeURL, nil)
	if err != nil {
		c.metrics.ObserveFetch("probe", started, err)
		return false
	}

	resp, err := c.probeClient.Do(req)
	c.metrics.ObserveFetch("probe", started, err)
	if err != nil {
		c.logger.Debug("Connectivity probe failed", map[string]interface{}{
			"url":   c.probeURL,
			"error": err.Error(),
		})
		return false
	}
	resp.Body.Close()

	return true
}

// FetchCurrent retrieves the latest rates for base and the upstream update time
func (c *RateAPIClient) FetchCurrent(ctx context.Context, base string) (entity.RateMapping, time.Time, error) {
	started := time.Now()
	rates, updated, err := c.fetchCurrent(ctx, base)
	c.metrics.ObserveFetch("current", started, err)
	return rates, updated, err
}

func (c *RateAPIClient) fetchCurrent(ctx context.Context, base string) (entity.RateMapping, time.Time, error) {
	if base == "" {
		return nil, time.Time{}, fetchError("base currency is required")
	}

	reqURL := c.currentURL + "/" + url.PathEscape(base)
	body, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, time.Time{}, err
	}

	var latest LatestResponse
	if err := json.Unmarshal(body, &latest); err != nil {
		return nil, time.Time{}, fetchError("failed to decode response: %v", err)
	}

	if latest.Result != "success" {
		return nil, time.Time{}, fetchError("API reported %q (%s) for base %s", latest.Result, latest.ErrorType, base)
	}
	if latest.TimeLastUpdateUTC == "" {
		return nil, time.Time{}, fetchError("response has no update time")
	}

	rates, err := normalize(base, latest.Rates)
	if err != nil {
		return nil, time.Time{}, err
	}

	updated, err := time.Parse(time.RFC1123Z, latest.TimeLastUpdateUTC)
	if err != nil {
		c.logger.Debug("Unparseable update time, using capture time", map[string]interface{}{
			"value": latest.TimeLastUpdateUTC,
		})
		updated = time.Now().UTC()
	}

	return rates, updated, nil
}

// FetchHistoricalDay retrieves the rates for base on one calendar date
func (c *RateAPIClient) FetchHistoricalDay(ctx context.Context, base string, date time.Time) (entity.RateMapping, error) {
	started := time.Now()
	rates, err := c.fetchHistoricalDay(ctx, base, date)
	c.metrics.ObserveFetch("historical", started, err)
	return rates, err
}

func (c *RateAPIClient) fetchHistoricalDay(ctx context.Context, base string, date time.Time) (entity.RateMapping, error) {
	if base == "" {
		return nil, fetchError("base currency is required")
	}

	reqURL := fmt.Sprintf("%s/%s?from=%s",
		c.historicalURL,
		date.Format(entity.DateLayout),
		url.QueryEscape(base))

	body, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var hist HistoricalResponse
	if err := json.Unmarshal(body, &hist); err != nil {
		return nil, fetchError("failed to decode response: %v", err)
	}
	if hist.Result != "" && hist.Result != "success" {
		return nil, fetchError("API reported %q for base %s on %s", hist.Result, base, date.Format(entity.DateLayout))
	}

	return normalize(base, hist.Rates)
}

// normalize validates the upstream mapping and makes sure it lists its own base at 1.0
func normalize(base string, raw map[string]float64) (entity.RateMapping, error) {
	if len(raw) == 0 {
		return nil, fetchError("response has no rates")
	}

	rates := make(entity.RateMapping, len(raw)+1)
	for code, rate := range raw {
		if rate <= 0 || math.IsInf(rate, 0) || math.IsNaN(rate) {
			return nil, fetchError("invalid rate %v for %s", rate, code)
		}
		rates[code] = rate
	}
	rates[base] = 1.0

	return rates, nil
}

// get executes a GET request with retries and returns the body of a 200 response
func (c *RateAPIClient) get(ctx context.Context, reqURL string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*attempt) * c.retryBackoff
			c.logger.Debug("Retrying rate request", map[string]interface{}{
				"url":     reqURL,
				"attempt": attempt + 1,
				"backoff": backoff.String(),
				"error":   lastErr.Error(),
			})

			select {
			case <-ctx.Done():
				return nil, fetchError("request cancelled: %v", ctx.Err())
			case <-time.After(backoff):
			}
		}

		body, retry, err := c.do(ctx, reqURL)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retry {
			break
		}
	}

	return nil, lastErr
}

// do performs one request; retry reports whether the failure is worth another attempt
func (c *RateAPIClient) do(ctx context.Context, reqURL string) (body []byte, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, false, fetchError("failed to create request: %v", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("Requesting rates", map[string]interface{}{"url": reqURL})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fetchError("failed to execute request: %v", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("Error closing response body", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, true, fetchError("failed to read response body: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode >= http.StatusInternalServerError,
			fetchError("API returned status %d", resp.StatusCode)
	}

	return body, false, nil
}
