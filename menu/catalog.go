package menu

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Item describes one food item on the menu.
type Item struct {
	Name  string
	Price decimal.Decimal
	Type  string
}

type itemJSON struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Type  string          `json:"type"`
}

func (it Item) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name  string      `json:"name"`
		Price json.Number `json:"price"`
		Type  string      `json:"type"`
	}{it.Name, json.Number(it.Price.String()), it.Type})
}

func (it *Item) UnmarshalJSON(data []byte) error {
	var v itemJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*it = Item(v)
	return nil
}

// Catalog maps item names to descriptors in the order the server listed
// them.
type Catalog struct {
	names []string
	items map[string]Item
}

// NewCatalog builds a catalog from items, keyed by their names. A later
// item with the same name replaces the earlier one in place.
func NewCatalog(items ...Item) Catalog {
	var c Catalog
	for _, it := range items {
		c.put(it.Name, it)
	}
	return c
}

// Len returns the number of items.
func (c Catalog) Len() int {
	return len(c.names)
}

// Get returns the item called name.
func (c Catalog) Get(name string) (Item, bool) {
	it, ok := c.items[name]
	return it, ok
}

// Items returns the items in catalog order.
func (c Catalog) Items() []Item {
	items := make([]Item, 0, len(c.names))
	for _, name := range c.names {
		items = append(items, c.items[name])
	}
	return items
}

func (c *Catalog) put(name string, it Item) {
	if it.Name == "" {
		it.Name = name
	}
	if c.items == nil {
		c.items = make(map[string]Item)
	}
	if _, ok := c.items[name]; !ok {
		c.names = append(c.names, name)
	}
	c.items[name] = it
}

// MarshalJSON encodes the catalog as an object keyed by item name, the
// shape served by the menu endpoint.
func (c Catalog) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range c.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(c.items[name])
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

// UnmarshalJSON decodes an object keyed by item name, keeping key order.
func (c *Catalog) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("menu: expected object got %v", tok)
	}

	var cat Catalog
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("menu: expected item name got %v", tok)
		}

		var it Item
		if err := dec.Decode(&it); err != nil {
			return fmt.Errorf("menu: decode %q: %w", name, err)
		}
		cat.put(name, it)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*c = cat
	return nil
}

// EncodeEntries encodes the catalog as an array of [name, descriptor]
// pairs, the shape kept under storefront.KeyMenu.
func EncodeEntries(c Catalog) ([]byte, error) {
	entries := make([][2]any, 0, len(c.names))
	for _, name := range c.names {
		entries = append(entries, [2]any{name, c.items[name]})
	}
	return json.Marshal(entries)
}

// DecodeEntries decodes an array of [name, descriptor] pairs.
func DecodeEntries(data []byte) (Catalog, error) {
	var raw [][]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Catalog{}, err
	}

	var cat Catalog
	for i, pair := range raw {
		if len(pair) != 2 {
			return Catalog{}, fmt.Errorf("menu: entry %d: expected [name, item] pair", i)
		}

		var name string
		if err := json.Unmarshal(pair[0], &name); err != nil {
			return Catalog{}, fmt.Errorf("menu: entry %d: %w", i, err)
		}

		var it Item
		if err := json.Unmarshal(pair[1], &it); err != nil {
			return Catalog{}, fmt.Errorf("menu: entry %d: %w", i, err)
		}
		cat.put(name, it)
	}
	return cat, nil
}
