package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/damon-houk/fx-rate-cache/internal/domain/entity"
	"github.com/damon-houk/fx-rate-cache/internal/infrastructure/logger"
	"github.com/damon-houk/fx-rate-cache/internal/infrastructure/metrics"
)

// Kind identifies the type of payload a cache entry holds. Each kind has its own file and expiry.
type Kind string

const (
	// KindCurrent holds a RateMapping per base currency
	KindCurrent Kind = "exchange_rates"
	// KindHistorical holds a HistoricalSeries per base currency and day count
	KindHistorical Kind = "historical_rates"
)

const (
	// DefaultCurrentTTL is how long current rates stay fresh
	DefaultCurrentTTL = time.Hour
	// DefaultHistoricalTTL is how long historical series stay fresh
	DefaultHistoricalTTL = 24 * time.Hour
)

// Key identifies a cache entry across the memory and disk tiers
type Key struct {
	Kind Kind
	Base string
	Days int
}

// CurrentKey builds the key for current rates of a base currency
func CurrentKey(base string) Key {
	return Key{Kind: KindCurrent, Base: base}
}

// HistoricalKey builds the key for a historical series of a base currency
func HistoricalKey(base string, days int) Key {
	return Key{Kind: KindHistorical, Base: base, Days: days}
}

// String is the key used inside the cache file
func (k Key) String() string {
	if k.Kind == KindHistorical {
		return k.Base + "_" + strconv.Itoa(k.Days)
	}
	return k.Base
}

// CacheEntry is a cached payload with its capture time
type CacheEntry struct {
	Payload   interface{}
	Timestamp time.Time
}

type fileEntry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

type cacheFile struct {
	Rates map[string]fileEntry `json:"rates"`
}

// RateCache is a two-tier cache: a process-wide map in front of one JSON file per kind.
// The memory tier is authoritative for the current process; the file lags it whenever
// a write fails.
type RateCache struct {
	dir     string
	ttl     map[Kind]time.Duration
	memory  map[Key]CacheEntry
	mutex   sync.RWMutex
	fileMu  sync.Mutex
	now     func() time.Time
	logger  logger.Logger
	metrics *metrics.Metrics
}

// Option configures a RateCache
type Option func(*RateCache)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(c *RateCache) { c.now = now }
}

// WithTTL sets the expiry window of a kind
func WithTTL(kind Kind, ttl time.Duration) Option {
	return func(c *RateCache) { c.ttl[kind] = ttl }
}

// WithLogger sets the logger
func WithLogger(log logger.Logger) Option {
	return func(c *RateCache) { c.logger = log }
}

// WithMetrics sets the metrics collectors
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *RateCache) { c.metrics = m }
}

// NewRateCache creates a cache persisting into dir
func NewRateCache(dir string, opts ...Option) *RateCache {
	c := &RateCache{
		dir: dir,
		ttl: map[Kind]time.Duration{
			KindCurrent:    DefaultCurrentTTL,
			KindHistorical: DefaultHistoricalTTL,
		},
		memory: make(map[Key]CacheEntry),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logger.OrDefault(c.logger).WithField("component", "rate_cache")
	return c
}

// FilePath returns the durable file backing a kind
func (c *RateCache) FilePath(kind Kind) string {
	return filepath.Join(c.dir, string(kind)+".json")
}

func (c *RateCache) expired(kind Kind, ts time.Time) bool {
	return c.now().Sub(ts) > c.ttl[kind]
}

// Get looks the key up in memory, then on disk. A fresh disk entry is promoted into memory.
// Expired entries are returned with expired set; found is false only on a full miss.
func (c *RateCache) Get(key Key) (entry CacheEntry, expired bool, found bool) {
	c.mutex.RLock()
	entry, found = c.memory[key]
	c.mutex.RUnlock()

	if found {
		expired = c.expired(key.Kind, entry.Timestamp)
		c.metrics.ObserveCache("memory", result(expired))
		return entry, expired, true
	}
	c.metrics.ObserveCache("memory", "miss")

	entry, found = c.readDisk(key)
	if !found {
		c.metrics.ObserveCache("disk", "miss")
		return CacheEntry{}, false, false
	}

	expired = c.expired(key.Kind, entry.Timestamp)
	c.metrics.ObserveCache("disk", result(expired))
	if !expired {
		c.mutex.Lock()
		c.memory[key] = entry
		c.mutex.Unlock()
	}

	return entry, expired, true
}

func result(expired bool) string {
	if expired {
		return "stale"
	}
	return "hit"
}

// Put stores the payload in memory, then merges it into the kind's file.
// Persistence failures are logged and never returned.
func (c *RateCache) Put(key Key, payload interface{}) {
	entry := CacheEntry{
		Payload:   payload,
		Timestamp: c.now(),
	}

	c.mutex.Lock()
	c.memory[key] = entry
	c.mutex.Unlock()

	if err := c.writeDisk(key, entry); err != nil {
		c.metrics.ObservePersistFailure()
		c.logger.Error("Failed to persist cache entry", map[string]interface{}{
			"key":   key.String(),
			"kind":  string(key.Kind),
			"error": err.Error(),
		})
	}
}

func (c *RateCache) readFile(kind Kind) (*cacheFile, error) {
	data, err := os.ReadFile(c.FilePath(kind))
	if err != nil {
		return nil, err
	}

	var file cacheFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode cache file: %w", err)
	}
	return &file, nil
}

func (c *RateCache) readDisk(key Key) (CacheEntry, bool) {
	file, err := c.readFile(key.Kind)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.logger.Warn("Cache file unreadable, treating as miss", map[string]interface{}{
				"path":  c.FilePath(key.Kind),
				"error": err.Error(),
			})
		}
		return CacheEntry{}, false
	}

	stored, ok := file.Rates[key.String()]
	if !ok {
		return CacheEntry{}, false
	}

	payload, err := decodePayload(key.Kind, stored.Data)
	if err != nil {
		c.logger.Warn("Cache entry unreadable, treating as miss", map[string]interface{}{
			"key":   key.String(),
			"error": err.Error(),
		})
		return CacheEntry{}, false
	}

	return CacheEntry{Payload: payload, Timestamp: stored.Timestamp}, true
}

func decodePayload(kind Kind, data json.RawMessage) (interface{}, error) {
	switch kind {
	case KindCurrent:
		var rates entity.RateMapping
		if err := json.Unmarshal(data, &rates); err != nil {
			return nil, err
		}
		return rates, nil
	case KindHistorical:
		var series entity.HistoricalSeries
		if err := json.Unmarshal(data, &series); err != nil {
			return nil, err
		}
		return series, nil
	default:
		return nil, fmt.Errorf("unknown cache kind %q", kind)
	}
}

func (c *RateCache) writeDisk(key Key, entry CacheEntry) error {
	c.fileMu.Lock()
	defer c.fileMu.Unlock()

	data, err := json.Marshal(entry.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	// A corrupt file is replaced rather than blocking every future write
	file, err := c.readFile(key.Kind)
	if err != nil || file.Rates == nil {
		file = &cacheFile{Rates: make(map[string]fileEntry)}
	}
	file.Rates[key.String()] = fileEntry{Data: data, Timestamp: entry.Timestamp}

	encoded, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cache file: %w", err)
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	return writeFileAtomic(c.FilePath(key.Kind), encoded)
}

// writeFileAtomic writes to a temporary file in the target directory and renames it into place
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	return nil
}

// GetCurrent implements repository.RateCache
func (c *RateCache) GetCurrent(base string) (entity.RateMapping, bool, bool) {
	entry, expired, found := c.Get(CurrentKey(base))
	if !found {
		return nil, false, false
	}
	rates, ok := entry.Payload.(entity.RateMapping)
	if !ok || len(rates) == 0 {
		return nil, false, false
	}
	return rates.Clone(), expired, true
}

// PutCurrent implements repository.RateCache
func (c *RateCache) PutCurrent(base string, rates entity.RateMapping) {
	c.Put(CurrentKey(base), rates.Clone())
}

// GetHistorical implements repository.RateCache
func (c *RateCache) GetHistorical(base string, days int) (entity.HistoricalSeries, bool, bool) {
	entry, expired, found := c.Get(HistoricalKey(base, days))
	if !found {
		return nil, false, false
	}
	series, ok := entry.Payload.(entity.HistoricalSeries)
	if !ok || len(series) == 0 {
		return nil, false, false
	}
	return series.Clone(), expired, true
}

// PutHistorical implements repository.RateCache
func (c *RateCache) PutHistorical(base string, days int, series entity.HistoricalSeries) {
	c.Put(HistoricalKey(base, days), series.Clone())
}

// Size returns the number of entries in the memory tier
func (c *RateCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.memory)
}

// Clear empties the memory tier; the files are left untouched
func (c *RateCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.memory = make(map[Key]CacheEntry)
}
