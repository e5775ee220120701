package main

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/bluescreen10/storefront"
	"github.com/bluescreen10/storefront/cart"
	"github.com/bluescreen10/storefront/config"
	"github.com/bluescreen10/storefront/gateway"
	"github.com/bluescreen10/storefront/menu"
	"github.com/bluescreen10/storefront/metrics"
	"github.com/bluescreen10/storefront/session"
)

// client is one "page load": every component wired over the configured
// store.
type client struct {
	log      zerolog.Logger
	store    storefront.Store
	storage  *storefront.Storage
	cart     *cart.Store
	gateway  *gateway.Client
	menu     *menu.Cache
	session  *session.Manager
	registry *prometheus.Registry
	close    func() error
}

func newClient(cfg *config.Config, log zerolog.Logger, w io.Writer) (*client, error) {
	store, closeStore, err := openStore(cfg.Store, log)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	m := metrics.New(registry)

	gw, err := newGateway(cfg, log, m)
	if err != nil {
		closeStore()
		return nil, err
	}

	storage := storefront.NewStorage(store, storefront.WithLogger(log.With().Str("component", "storage").Logger()))
	cartStore := cart.NewStore(storage, cart.WithLogger(log.With().Str("component", "cart").Logger()))

	cache := menu.NewCache(storage, gw,
		menu.WithMinLoading(cfg.Menu.MinLoading),
		menu.WithTTL(cfg.Menu.TTL),
		menu.WithDefaultCategory(cfg.Menu.DefaultCategory),
		menu.WithLogger(log.With().Str("component", "menu").Logger()),
		menu.WithMetrics(m),
	)
	cache.Subscribe(func(s menu.State) {
		log.Debug().Stringer("state", s).Msg("menu state")
	})

	mgr := session.NewManager(storage, cartStore, gw,
		session.WithLogger(log.With().Str("component", "session").Logger()),
		session.WithMetrics(m),
		session.WithOnLogout(func() {
			log.Debug().Msg("returning to home")
		}),
		session.WithNotifier(func(msg string) {
			fmt.Fprintln(w, msg)
		}),
	)

	return &client{
		log:      log,
		store:    store,
		storage:  storage,
		cart:     cartStore,
		gateway:  gw,
		menu:     cache,
		session:  mgr,
		registry: registry,
		close:    closeStore,
	}, nil
}

// newGateway builds the order service client. A zero breaker threshold
// leaves the breaker closed for good.
func newGateway(cfg *config.Config, log zerolog.Logger, m *metrics.Metrics) (*gateway.Client, error) {
	threshold := cfg.Breaker.FailureThreshold
	breaker := gobreaker.Settings{
		Name:        "storefront",
		MaxRequests: cfg.Breaker.MaxRequests,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.Timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return threshold > 0 && c.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Stringer("from", from).Stringer("to", to).Msg("circuit breaker state changed")
		},
	}

	return gateway.New(cfg.APIURL,
		gateway.WithTimeout(cfg.Timeout),
		gateway.WithTokenHeader(cfg.TokenHeader),
		gateway.WithBreaker(breaker),
		gateway.WithTracing(cfg.Tracing),
		gateway.WithLogger(log.With().Str("component", "gateway").Logger()),
		gateway.WithMetrics(m),
	)
}

type cleaner interface {
	PeriodicCleanUp(interval time.Duration, stop <-chan struct{})
}

// startCleanup purges expired records every interval until the returned
// function is called. Backends that expire keys on their own are skipped.
func (cl *client) startCleanup(interval time.Duration) func() {
	c, ok := cl.store.(cleaner)
	if !ok || interval <= 0 {
		return func() {}
	}

	stop := make(chan struct{})
	go c.PeriodicCleanUp(interval, stop)
	return func() { close(stop) }
}

func (cl *client) Close() error {
	return cl.close()
}
