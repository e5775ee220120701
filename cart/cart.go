// Package cart owns the client's order line items.
//
// A Store is the single in-memory owner of the cart state. Every mutation
// is mirrored to local storage under storefront.KeyCart, so a new Store
// created over the same storage (a page reload) sees the same cart.
// Derived values (Total, Count) are pure functions of a State snapshot and
// are recomputed on read; subscribers are pushed a fresh snapshot after
// every mutation.
//
// Usage:
//
//	storage := storefront.NewStorage(memstore.New())
//	c := cart.NewStore(storage)
//
//	c.Add("Margherita", decimal.RequireFromString("9.50"), "Pizza")
//	fmt.Println(cart.FormatTotal(c.Snapshot()))
package cart

import (
	"sync"

	"github.com/bluescreen10/storefront"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Store is the in-memory cart. Mutations never fail; it is safe for use by
// multiple goroutines, the last writer wins.
type Store struct {
	mu      sync.Mutex
	state   State
	storage *storefront.Storage
	logger  zerolog.Logger

	subsMu sync.Mutex
	subs   map[int]func(State)
	nextID int
}

type config func(*Store)

// WithLogger sets the logger used to report ignored mutations. (default no-op)
func WithLogger(logger zerolog.Logger) config {
	return config(func(s *Store) {
		s.logger = logger
	})
}

// NewStore returns a Store rehydrated from storage. A missing or corrupt
// storedCart record yields an empty cart.
func NewStore(storage *storefront.Storage, cfgs ...config) *Store {
	s := &Store{
		storage: storage,
		logger:  zerolog.Nop(),
		subs:    make(map[int]func(State)),
	}

	for _, cfg := range cfgs {
		cfg(s)
	}

	s.state = Load(storage)
	return s
}

// Load reads the persisted cart from storage. A missing or corrupt record
// yields an empty State.
func Load(storage *storefront.Storage) State {
	var st State
	if !storage.GetJSON(storefront.KeyCart, &st) {
		return State{}
	}
	return st
}

// Add inserts name with quantity one, or increments its quantity when it
// is already in the cart. The price and type of an existing line item are
// kept. Empty names and negative prices are ignored.
func (s *Store) Add(name string, price decimal.Decimal, typ string) {
	if name == "" || price.IsNegative() {
		s.logger.Warn().Str("name", name).Str("price", price.String()).Msg("ignoring invalid cart item")
		return
	}

	s.mutate(func(st *State) {
		li, ok := st.Get(name)
		if !ok {
			li = LineItem{InitialPrice: price, Type: typ}
		}
		li.Quantity++
		st.put(name, li)
	})
}

// Remove decrements the quantity of name, deleting the line item when it
// reaches zero. Removing a product that is not in the cart is a no-op.
func (s *Store) Remove(name string) {
	s.mutate(func(st *State) {
		li, ok := st.Get(name)
		if !ok {
			return
		}
		li.Quantity--
		if li.Quantity <= 0 {
			st.delete(name)
			return
		}
		st.put(name, li)
	})
}

// Clear empties the cart and persists the empty cart.
func (s *Store) Clear() {
	s.mutate(func(st *State) {
		*st = State{}
	})
}

// Reset empties the in-memory cart without touching storage. It is used
// once the persisted record has already been removed.
func (s *Store) Reset() {
	s.mu.Lock()
	s.state = State{}
	snap := s.state.clone()
	s.mu.Unlock()

	s.notify(snap)
}

// Reload replaces the in-memory cart with the persisted one.
func (s *Store) Reload() {
	st := Load(s.storage)

	s.mu.Lock()
	s.state = st
	snap := s.state.clone()
	s.mu.Unlock()

	s.notify(snap)
}

// Snapshot returns a copy of the current cart.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Len returns the number of distinct products in the cart.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Len()
}

// Subscribe registers fn to receive a snapshot after every change. The
// returned function removes the subscription.
func (s *Store) Subscribe(fn func(State)) func() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	id := s.nextID
	s.nextID++
	s.subs[id] = fn

	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		delete(s.subs, id)
	}
}

// mutate applies fn to the state, persists the full state and notifies
// subscribers.
func (s *Store) mutate(fn func(*State)) {
	s.mu.Lock()
	fn(&s.state)
	snap := s.state.clone()
	s.storage.SetJSON(storefront.KeyCart, snap)
	s.mu.Unlock()

	s.notify(snap)
}

func (s *Store) notify(snap State) {
	s.subsMu.Lock()
	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subsMu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}
