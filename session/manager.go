// Package session manages the client's authenticated session: logging in,
// and logging out with a best-effort flush of the persisted cart.
//
// Logout always clears the local session. Remote failures while flushing
// the cart or revoking the token are recorded in the returned Report and
// logged, but never stop the local token and cart from being removed.
//
// Usage:
//
//	mgr := session.NewManager(storage, cartStore, gw,
//	    session.WithOnLogout(func() { navigate("/") }),
//	    session.WithNotifier(func(msg string) { toast(msg) }),
//	)
//
//	if _, err := mgr.Login(ctx, gateway.Credentials{Email: e, Password: p}); err != nil {
//	    return err
//	}
//
//	report, err := mgr.Logout(ctx)
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bluescreen10/storefront"
	"github.com/bluescreen10/storefront/cart"
	"github.com/bluescreen10/storefront/gateway"
	"github.com/bluescreen10/storefront/metrics"
	"github.com/rs/zerolog"
)

// LogoutMessage is the confirmation shown once a logout completes.
const LogoutMessage = "Bye 👋! Come back soon"

// ErrNoSession is returned by Logout when no access token is persisted.
var ErrNoSession = errors.New("no active session")

// Gateway is the subset of the remote order service used by a Manager.
type Gateway interface {
	CreateToken(ctx context.Context, creds gateway.Credentials) (storefront.AccessToken, gateway.Result)
	DeleteToken(ctx context.Context, email, tokenID string) gateway.Result
	SubmitOrder(ctx context.Context, email string, st cart.State, tokenID string) gateway.Result
}

// Manager owns the session lifecycle.
type Manager struct {
	mu       sync.Mutex
	storage  *storefront.Storage
	cart     *cart.Store
	gateway  Gateway
	onLogout func()
	notify   func(string)
	logger   zerolog.Logger
	metrics  *metrics.Metrics
}

type config func(*Manager)

// WithOnLogout sets the function called once after every completed
// logout. (default none)
func WithOnLogout(fn func()) config {
	return config(func(m *Manager) {
		m.onLogout = fn
	})
}

// WithNotifier sets the function that delivers user-facing messages.
// (default none)
func WithNotifier(fn func(msg string)) config {
	return config(func(m *Manager) {
		m.notify = fn
	})
}

// WithLogger sets the logger. (default no-op)
func WithLogger(logger zerolog.Logger) config {
	return config(func(m *Manager) {
		m.logger = logger
	})
}

// WithMetrics records logout outcomes. (default none)
func WithMetrics(mt *metrics.Metrics) config {
	return config(func(m *Manager) {
		m.metrics = mt
	})
}

// NewManager returns a Manager that keeps its session in storage and
// resets cartStore on logout.
func NewManager(storage *storefront.Storage, cartStore *cart.Store, gw Gateway, cfgs ...config) *Manager {
	m := &Manager{
		storage:  storage,
		cart:     cartStore,
		gateway:  gw,
		onLogout: func() {},
		notify:   func(string) {},
		logger:   zerolog.Nop(),
	}

	for _, cfg := range cfgs {
		cfg(m)
	}

	return m
}

// Login creates a token for creds and persists it as the current session.
func (m *Manager) Login(ctx context.Context, creds gateway.Credentials) (storefront.AccessToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tok, res := m.gateway.CreateToken(ctx, creds)
	if !res.OK() {
		return storefront.AccessToken{}, fmt.Errorf("login: %w", res.Err())
	}

	m.storage.SetJSON(storefront.KeyAccessToken, tok)
	m.logger.Debug().Str("email", tok.Email).Msg("session started")
	return tok, nil
}

// Current returns the persisted access token, if any.
func (m *Manager) Current() (storefront.AccessToken, bool) {
	var tok storefront.AccessToken
	if !m.storage.GetJSON(storefront.KeyAccessToken, &tok) || !tok.Valid() {
		return storefront.AccessToken{}, false
	}
	return tok, true
}

// Logout ends the session. It submits the persisted cart as an order when
// it is not empty, revokes the token, clears the local token and cart,
// then signals the end of the session and emits LogoutMessage.
//
// The only error is ErrNoSession. Remote failures are reported in the
// returned Report; a token the server no longer knows counts as revoked.
// The callbacks run after the session lock is released and may call back
// into the Manager.
func (m *Manager) Logout(ctx context.Context) (Report, error) {
	report, err := m.end(ctx)
	if err != nil {
		return report, err
	}

	m.onLogout()
	m.notify(LogoutMessage)

	return report, nil
}

func (m *Manager) end(ctx context.Context) (Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tok, ok := m.Current()
	if !ok {
		return Report{}, ErrNoSession
	}

	report := Report{Token: tok}
	log := m.logger.With().Str("email", tok.Email).Logger()

	snapshot := cart.Load(m.storage)
	if !snapshot.Empty() {
		report.Flushed = true
		report.Order = m.gateway.SubmitOrder(ctx, tok.Email, snapshot, tok.ID)
		if !report.Order.OK() {
			log.Warn().Err(report.Order.Err()).Msg("cart flush failed")
			report.Warnings = append(report.Warnings, report.Order.Err())
		}
	}

	report.Revoke = m.gateway.DeleteToken(ctx, tok.Email, tok.ID)
	switch report.Revoke.Outcome {
	case gateway.OutcomeOK:
	case gateway.OutcomeNotFound:
		log.Info().Str("message", report.Revoke.Message).Msg("token already gone on server")
	default:
		log.Warn().Err(report.Revoke.Err()).Msg("token revoke failed")
		report.Warnings = append(report.Warnings, report.Revoke.Err())
	}

	m.storage.Remove(storefront.KeyAccessToken)
	m.storage.Remove(storefront.KeyCart)
	m.cart.Reset()

	m.metrics.Logout(report.orderLabel(), report.Revoke.Outcome.String())
	log.Debug().Bool("flushed", report.Flushed).Stringer("revoke", report.Revoke.Outcome).Msg("session ended")

	return report, nil
}
