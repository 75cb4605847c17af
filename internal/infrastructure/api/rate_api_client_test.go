// internal/infrastructure/api/rate_api_client_test.go
package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/damon-houk/fx-rate-cache/internal/domain/entity"
	"github.com/damon-houk/fx-rate-cache/internal/infrastructure/logger"
	"github.com/damon-houk/fx-rate-cache/internal/infrastructure/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(server *httptest.Server, m *metrics.Metrics) *RateAPIClient {
	return NewRateAPIClient(Config{
		CurrentURL:    server.URL + "/v6/latest",
		HistoricalURL: server.URL,
		ProbeURL:      server.URL,
		FetchTimeout:  time.Second,
		ProbeTimeout:  time.Second,
	}, logger.Discard(), m)
}

func TestFetchCurrent(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		switch r.URL.Path {
		case "/v6/latest/USD":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{
				"result": "success",
				"base_code": "USD",
				"time_last_update_utc": "Fri, 02 May 2025 00:02:31 +0000",
				"rates": {"USD": 1, "EUR": 0.882, "GBP": 0.752}
			}`))
		case "/v6/latest/XXX":
			w.Write([]byte(`{"result": "error", "error-type": "unsupported-code"}`))
		case "/v6/latest/BAD":
			w.Write([]byte(`{"result": "success", "rates": `))
		case "/v6/latest/NOTIME":
			w.Write([]byte(`{"result": "success", "rates": {"EUR": 0.9}}`))
		case "/v6/latest/NEG":
			w.Write([]byte(`{"result": "success", "time_last_update_utc": "Fri, 02 May 2025 00:02:31 +0000", "rates": {"EUR": -1}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer mockServer.Close()

	m := metrics.New(nil)
	client := newTestClient(mockServer, m)
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		rates, updated, err := client.FetchCurrent(ctx, "USD")
		require.NoError(t, err)
		assert.Equal(t, 0.882, rates["EUR"])
		assert.Equal(t, 1.0, rates["USD"])
		assert.Equal(t, time.Date(2025, 5, 2, 0, 2, 31, 0, time.UTC), updated.UTC())
	})

	failures := map[string]string{
		"API error result":  "XXX",
		"malformed payload": "BAD",
		"missing fields":    "NOTIME",
		"non-positive rate": "NEG",
		"HTTP error status": "NOPE",
		"empty base":        "",
	}
	for name, base := range failures {
		t.Run(name, func(t *testing.T) {
			rates, _, err := client.FetchCurrent(ctx, base)
			assert.Error(t, err)
			assert.True(t, errors.Is(err, entity.ErrFetchFailed))
			assert.Nil(t, rates)
		})
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchTotal.WithLabelValues("current", "ok")))
	assert.Equal(t, float64(len(failures)), testutil.ToFloat64(m.FetchTotal.WithLabelValues("current", "error")))
}

func TestFetchHistoricalDay(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2025-04-28" || r.URL.Query().Get("from") != "USD" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		w.Write([]byte(`{"amount": 1.0, "base": "USD", "date": "2025-04-28", "rates": {"EUR": 0.879, "JPY": 142.1}}`))
	}))
	defer mockServer.Close()

	client := newTestClient(mockServer, nil)
	ctx := context.Background()

	rates, err := client.FetchHistoricalDay(ctx, "USD", time.Date(2025, 4, 28, 15, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 0.879, rates["EUR"])
	assert.Equal(t, 142.1, rates["JPY"])
	assert.Equal(t, 1.0, rates["USD"], "base is added when the API omits it")

	_, err = client.FetchHistoricalDay(ctx, "USD", time.Date(2025, 4, 27, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, entity.ErrFetchFailed)
}

func TestRetries(t *testing.T) {
	var calls int32
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"result": "success", "time_last_update_utc": "Fri, 02 May 2025 00:02:31 +0000", "rates": {"EUR": 0.9}}`))
	}))
	defer mockServer.Close()

	client := NewRateAPIClient(Config{
		CurrentURL:   mockServer.URL,
		Retries:      1,
		RetryBackoff: time.Millisecond,
	}, logger.Discard(), nil)

	rates, _, err := client.FetchCurrent(context.Background(), "USD")
	require.NoError(t, err)
	assert.Equal(t, 0.9, rates["EUR"])
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	t.Run("client errors are not retried", func(t *testing.T) {
		atomic.StoreInt32(&calls, 0)
		notFound := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer notFound.Close()

		client := NewRateAPIClient(Config{CurrentURL: notFound.URL, Retries: 3, RetryBackoff: time.Millisecond},
			logger.Discard(), nil)
		_, _, err := client.FetchCurrent(context.Background(), "USD")
		assert.ErrorIs(t, err, entity.ErrFetchFailed)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})
}

func TestFetchTimeout(t *testing.T) {
	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()
	defer close(release)

	client := NewRateAPIClient(Config{CurrentURL: slow.URL, FetchTimeout: 50 * time.Millisecond},
		logger.Discard(), nil)

	started := time.Now()
	_, _, err := client.FetchCurrent(context.Background(), "USD")
	assert.ErrorIs(t, err, entity.ErrFetchFailed)
	assert.Less(t, time.Since(started), 2*time.Second)
}

func TestCheckConnectivity(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	m := metrics.New(nil)
	client := newTestClient(mockServer, m)
	assert.True(t, client.CheckConnectivity(context.Background()))

	mockServer.Close()
	assert.False(t, client.CheckConnectivity(context.Background()))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchTotal.WithLabelValues("probe", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchTotal.WithLabelValues("probe", "error")))
}

func TestDefaults(t *testing.T) {
	client := NewRateAPIClient(Config{}, nil, nil)
	assert.Equal(t, defaultCurrentURL, client.currentURL)
	assert.Equal(t, defaultHistoricalURL, client.historicalURL)
	assert.Equal(t, defaultProbeURL, client.probeURL)
	assert.Equal(t, defaultFetchTimeout, client.httpClient.Timeout)
	assert.Equal(t, defaultProbeTimeout, client.probeClient.Timeout)
}
