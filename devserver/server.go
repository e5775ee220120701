// Package devserver is an in-process reference implementation of the
// remote order service. It keeps users, tokens and orders in memory and
// answers with the same status codes and error bodies as the production
// service, including the 500 ENOENT answer to deleting a token that no
// longer exists.
//
// Usage:
//
//	srv := devserver.New(
//		devserver.WithUser("a@b.com", "secret"),
//		devserver.WithCatalog(catalog),
//	)
//	http.ListenAndServe(":3000", srv.Handler())
package devserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bluescreen10/storefront/cart"
	"github.com/bluescreen10/storefront/logger"
	"github.com/bluescreen10/storefront/menu"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Order is an order accepted by the server.
type Order struct {
	ID    string
	Email string
	Cart  cart.State
}

type token struct {
	email   string
	expires time.Time
}

// Server holds the service state.
type Server struct {
	tokenHeader string
	tokenTTL    time.Duration
	logger      zerolog.Logger
	now         func() time.Time

	mu      sync.Mutex
	users   map[string]string
	tokens  map[string]token
	orders  []Order
	catalog menu.Catalog
}

type config func(*Server)

// WithUser registers a user that may create tokens.
func WithUser(email, password string) config {
	return config(func(s *Server) {
		s.users[email] = password
	})
}

// WithUsers registers every email/password pair of users.
func WithUsers(users map[string]string) config {
	return config(func(s *Server) {
		for email, password := range users {
			s.users[email] = password
		}
	})
}

// WithCatalog sets the catalog served on GET /menu. (default empty)
func WithCatalog(c menu.Catalog) config {
	return config(func(s *Server) {
		s.catalog = c
	})
}

// WithTokenTTL sets how long created tokens are valid. (default 1h)
func WithTokenTTL(d time.Duration) config {
	return config(func(s *Server) {
		s.tokenTTL = d
	})
}

// WithTokenHeader sets the request header carrying the token id.
// (default "token")
func WithTokenHeader(name string) config {
	return config(func(s *Server) {
		s.tokenHeader = name
	})
}

// WithLogger sets the logger used for request logs. (default no-op)
func WithLogger(l zerolog.Logger) config {
	return config(func(s *Server) {
		s.logger = l
	})
}

// New returns a Server with no tokens and no orders.
func New(cfgs ...config) *Server {
	s := &Server{
		tokenHeader: "token",
		tokenTTL:    time.Hour,
		logger:      zerolog.Nop(),
		now:         time.Now,
		users:       make(map[string]string),
		tokens:      make(map[string]token),
	}

	for _, cfg := range cfgs {
		cfg(s)
	}

	return s
}

// Handler returns the routes of the service, each request logged once.
// The menu answers conditional requests with 304 Not Modified.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(logger.New(logger.WithLogger(s.logger)).Handler)
	r.Use(middleware.Recoverer)

	r.Post("/tokens", s.createToken)
	r.Delete("/tokens", s.deleteToken)
	r.With(revalidate).Get("/menu", s.getMenu)
	r.With(s.requireToken).Post("/orders", s.createOrder)

	r.Route("/_dev", func(r chi.Router) {
		r.Get("/orders", s.listOrders)
	})

	return r
}

// Orders returns the accepted orders in submission order.
func (s *Server) Orders() []Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Order(nil), s.orders...)
}

// TokenCount returns the number of live tokens.
func (s *Server) TokenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

// RevokeToken drops a token on the server side only, leaving any client
// copy dangling.
func (s *Server) RevokeToken(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, id)
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) createToken(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := parseBody(r, &req); err != nil || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	s.mu.Lock()
	pw, ok := s.users[req.Email]
	if !ok || pw != req.Password {
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "Password did not match the user's stored password")
		return
	}

	id := uuid.NewString()
	expires := s.now().Add(s.tokenTTL)
	s.tokens[id] = token{email: req.Email, expires: expires}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"email":   req.Email,
		"Id":      id,
		"expires": expires.UnixMilli(),
	})
}

func (s *Server) deleteToken(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	id := r.Header.Get(s.tokenHeader)
	if email == "" || id == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tok, ok := s.tokens[id]
	if !ok {
		msg := fmt.Sprintf("There was an error deleting file %q from tokens. Error: ENOENT: no such file or directory", id)
		writeError(w, http.StatusInternalServerError, msg)
		return
	}
	if tok.email != email {
		writeError(w, http.StatusForbidden, "Token does not belong to this user")
		return
	}

	delete(s.tokens, id)
	writeJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) getMenu(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	cat := s.catalog
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, cat)
}

type ctxKey struct{}

// requireToken rejects requests without a live token and passes the
// token's owner on to the handler.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(s.tokenHeader)

		s.mu.Lock()
		tok, ok := s.tokens[id]
		if ok && s.now().After(tok.expires) {
			delete(s.tokens, id)
			ok = false
		}
		s.mu.Unlock()

		if !ok {
			writeError(w, http.StatusForbidden, "Missing required token in header, or token is invalid")
			return
		}

		ctx := context.WithValue(r.Context(), ctxKey{}, tok.email)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type orderRequest struct {
	Email string     `json:"email"`
	Cart  cart.State `json:"cart"`
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := parseBody(r, &req); err != nil || req.Email == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	if owner, _ := r.Context().Value(ctxKey{}).(string); req.Email != owner {
		writeError(w, http.StatusForbidden, "Missing required token in header, or token is invalid")
		return
	}

	if req.Cart.Empty() {
		writeError(w, http.StatusBadRequest, "Cart is empty")
		return
	}

	order := Order{ID: uuid.NewString(), Email: req.Email, Cart: req.Cart}

	s.mu.Lock()
	s.orders = append(s.orders, order)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"orderId": order.ID})
}

type orderView struct {
	ID    string     `json:"orderId"`
	Email string     `json:"email"`
	Cart  cart.State `json:"cart"`
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	orders := s.Orders()
	views := make([]orderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, orderView(o))
	}
	writeJSON(w, http.StatusOK, views)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"Error": msg})
}
