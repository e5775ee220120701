package cart

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// LineItem is one product in the cart. InitialPrice is the unit price at
// the time the product was first added.
type LineItem struct {
	Quantity     int
	InitialPrice decimal.Decimal
	Type         string
}

type lineItemJSON struct {
	Quantity     int             `json:"quantity"`
	InitialPrice decimal.Decimal `json:"initialPrice"`
	Type         string          `json:"type"`
}

// MarshalJSON writes the price as a JSON number so the record matches the
// shape browsers keep under storedCart.
func (li LineItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Quantity     int         `json:"quantity"`
		InitialPrice json.Number `json:"initialPrice"`
		Type         string      `json:"type"`
	}{li.Quantity, json.Number(li.InitialPrice.String()), li.Type})
}

func (li *LineItem) UnmarshalJSON(data []byte) error {
	var v lineItemJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*li = LineItem(v)
	return nil
}

// Entry pairs a product name with its line item.
type Entry struct {
	Name string
	LineItem
}

// State maps product names to line items, remembering the order in which
// products were first added. The zero value is an empty cart.
type State struct {
	names []string
	items map[string]LineItem
}

// Len returns the number of distinct products.
func (s State) Len() int {
	return len(s.names)
}

// Empty reports whether the cart holds no products.
func (s State) Empty() bool {
	return len(s.names) == 0
}

// Get returns the line item for name.
func (s State) Get(name string) (LineItem, bool) {
	li, ok := s.items[name]
	return li, ok
}

// Entries returns the line items in insertion order.
func (s State) Entries() []Entry {
	entries := make([]Entry, 0, len(s.names))
	for _, name := range s.names {
		entries = append(entries, Entry{Name: name, LineItem: s.items[name]})
	}
	return entries
}

// Equal reports whether both states hold the same products, quantities,
// prices and types in the same order.
func (s State) Equal(o State) bool {
	if len(s.names) != len(o.names) {
		return false
	}
	for i, name := range s.names {
		if o.names[i] != name {
			return false
		}
		a, b := s.items[name], o.items[name]
		if a.Quantity != b.Quantity || a.Type != b.Type || !a.InitialPrice.Equal(b.InitialPrice) {
			return false
		}
	}
	return true
}

func (s State) clone() State {
	c := State{
		names: make([]string, len(s.names)),
		items: make(map[string]LineItem, len(s.items)),
	}
	copy(c.names, s.names)
	for k, v := range s.items {
		c.items[k] = v
	}
	return c
}

func (s *State) put(name string, li LineItem) {
	if s.items == nil {
		s.items = make(map[string]LineItem)
	}
	if _, ok := s.items[name]; !ok {
		s.names = append(s.names, name)
	}
	s.items[name] = li
}

func (s *State) delete(name string) {
	if _, ok := s.items[name]; !ok {
		return
	}
	delete(s.items, name)
	for i, n := range s.names {
		if n == name {
			s.names = append(s.names[:i], s.names[i+1:]...)
			break
		}
	}
}

// MarshalJSON encodes the state as a JSON object keyed by product name, in
// insertion order.
func (s State) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range s.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(s.items[name])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keyed by product name. Entries with
// a quantity below one are dropped so a decoded state never holds them.
func (s *State) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*s = State{}
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("cart: expected object got %v", tok)
	}

	var st State
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("cart: expected product name got %v", tok)
		}

		var li LineItem
		if err := dec.Decode(&li); err != nil {
			return fmt.Errorf("cart: decode %q: %w", name, err)
		}
		if li.Quantity > 0 {
			st.put(name, li)
		}
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*s = st
	return nil
}
