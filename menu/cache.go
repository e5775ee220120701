// Package menu resolves the food catalog from local storage or the remote
// menu endpoint and exposes it for client-side filtering.
//
// The first Load on a client with no cached catalog fetches it from the
// network and writes it to storage under storefront.KeyMenu; any later
// Load, including one after a restart, is served from storage without a
// network round trip. Filtering never refetches.
//
// Usage:
//
//	c := menu.NewCache(storage, gw, menu.WithMinLoading(2*time.Second))
//	if err := c.Load(ctx); err != nil {
//		// show the error, let the user retry
//	}
//	pizzas, _ := c.Filter("Pizza")
package menu

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bluescreen10/storefront"
	"github.com/bluescreen10/storefront/metrics"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// All is the category that selects every item.
const All = "All"

// ErrNotLoaded is returned by operations that need a loaded catalog.
var ErrNotLoaded = errors.New("menu not loaded")

// State is the load state of a Cache.
type State int

const (
	Unloaded State = iota
	Loading
	Loaded
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Fetcher retrieves the authoritative catalog.
type Fetcher interface {
	FetchCatalog(ctx context.Context) (Catalog, error)
}

// FetcherFunc adapts a function to a Fetcher.
type FetcherFunc func(ctx context.Context) (Catalog, error)

func (f FetcherFunc) FetchCatalog(ctx context.Context) (Catalog, error) {
	return f(ctx)
}

// Cache holds the catalog and its load state.
type Cache struct {
	storage    *storefront.Storage
	fetcher    Fetcher
	minLoading time.Duration
	ttl        time.Duration
	defaultCat string
	logger     zerolog.Logger
	metrics    *metrics.Metrics
	sfg        singleflight.Group

	mu       sync.Mutex
	state    State
	catalog  Catalog
	selected string
	lastErr  error
	subs     []func(State)
}

type config func(*Cache)

// WithMinLoading keeps the Loading state observable for at least d after
// a network fetch starts. (default 0)
func WithMinLoading(d time.Duration) config {
	return config(func(c *Cache) {
		c.minLoading = d
	})
}

// WithTTL expires the cached catalog d after it is written. (default 0,
// the cached catalog never expires)
func WithTTL(d time.Duration) config {
	return config(func(c *Cache) {
		c.ttl = d
	})
}

// WithDefaultCategory sets the category selected after a load. (default All)
func WithDefaultCategory(category string) config {
	return config(func(c *Cache) {
		c.defaultCat = category
	})
}

// WithLogger sets the logger. (default no-op)
func WithLogger(logger zerolog.Logger) config {
	return config(func(c *Cache) {
		c.logger = logger
	})
}

// WithMetrics records load sources. (default none)
func WithMetrics(m *metrics.Metrics) config {
	return config(func(c *Cache) {
		c.metrics = m
	})
}

// NewCache returns an unloaded Cache.
func NewCache(storage *storefront.Storage, fetcher Fetcher, cfgs ...config) *Cache {
	c := &Cache{
		storage:    storage,
		fetcher:    fetcher,
		defaultCat: All,
		logger:     zerolog.Nop(),
	}

	for _, cfg := range cfgs {
		cfg(c)
	}

	c.selected = c.defaultCat
	return c
}

// Load resolves the catalog. A cached catalog moves the cache straight to
// Loaded; otherwise it goes through Loading while the catalog is fetched
// and persisted. A failed fetch returns the error and leaves the cache
// Unloaded so that a later Load retries. Concurrent calls share one fetch.
func (c *Cache) Load(ctx context.Context) error {
	_, err, _ := c.sfg.Do(storefront.KeyMenu, func() (any, error) {
		return nil, c.load(ctx)
	})
	return err
}

func (c *Cache) load(ctx context.Context) error {
	if c.State() == Loaded {
		return nil
	}

	if cat, ok := c.readCached(); ok {
		c.logger.Debug().Int("items", cat.Len()).Msg("menu served from storage")
		c.metrics.MenuLoad(metrics.SourceCache)
		c.setLoaded(cat)
		return nil
	}

	c.setState(Loading, nil)
	start := time.Now()

	cat, err := c.fetcher.FetchCatalog(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("menu fetch failed")
		c.metrics.MenuLoad(metrics.SourceError)
		c.setState(Unloaded, err)
		return fmt.Errorf("menu: load: %w", err)
	}

	c.writeCached(cat)
	c.metrics.MenuLoad(metrics.SourceNetwork)
	c.logger.Debug().Int("items", cat.Len()).Dur("took", time.Since(start)).Msg("menu fetched")

	if wait := c.minLoading - time.Since(start); wait > 0 {
		t := time.NewTimer(wait)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
		}
	}

	c.setLoaded(cat)
	return nil
}

func (c *Cache) readCached() (Catalog, bool) {
	raw, ok := c.storage.Get(storefront.KeyMenu)
	if !ok {
		return Catalog{}, false
	}

	cat, err := DecodeEntries([]byte(raw))
	if err != nil {
		c.logger.Warn().Err(err).Msg("corrupt cached menu treated as absent")
		return Catalog{}, false
	}
	return cat, true
}

func (c *Cache) writeCached(cat Catalog) {
	data, err := EncodeEntries(cat)
	if err != nil {
		c.logger.Warn().Err(err).Msg("menu encode failed")
		return
	}

	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = time.Now().Add(c.ttl)
	}
	c.storage.SetWithExpiry(storefront.KeyMenu, string(data), expiresAt)
}

// Invalidate drops the cached catalog from storage and memory. The next
// Load fetches from the network.
func (c *Cache) Invalidate() {
	c.storage.Remove(storefront.KeyMenu)

	c.mu.Lock()
	c.catalog = Catalog{}
	c.selected = c.defaultCat
	c.mu.Unlock()

	c.setState(Unloaded, nil)
}

// State returns the current load state.
func (c *Cache) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastError returns the error of the most recent failed load, or nil.
func (c *Cache) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Catalog returns the loaded catalog.
func (c *Cache) Catalog() (Catalog, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Loaded {
		return Catalog{}, ErrNotLoaded
	}
	return c.catalog, nil
}

// Items returns every loaded item.
func (c *Cache) Items() ([]Item, error) {
	return c.Filter(All)
}

// Filter returns the loaded items whose type equals category. All, or an
// empty category, returns every item.
func (c *Cache) Filter(category string) ([]Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Loaded {
		return nil, ErrNotLoaded
	}
	return filter(c.catalog, category), nil
}

// Select remembers category as the active filter.
func (c *Cache) Select(category string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = category
}

// Selected returns the active filter.
func (c *Cache) Selected() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

// Visible returns the items matching the active filter.
func (c *Cache) Visible() ([]Item, error) {
	return c.Filter(c.Selected())
}

// Categories returns the distinct item types of the loaded catalog in
// catalog order.
func (c *Cache) Categories() ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Loaded {
		return nil, ErrNotLoaded
	}
	return categories(c.catalog), nil
}

// Subscribe registers fn to be called on every state change.
func (c *Cache) Subscribe(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs = append(c.subs, fn)
}

func (c *Cache) setLoaded(cat Catalog) {
	c.mu.Lock()
	c.catalog = cat
	c.mu.Unlock()

	c.setState(Loaded, nil)
}

func (c *Cache) setState(s State, err error) {
	c.mu.Lock()
	c.state = s
	c.lastErr = err
	subs := append([]func(State){}, c.subs...)
	c.mu.Unlock()

	for _, fn := range subs {
		fn(s)
	}
}
