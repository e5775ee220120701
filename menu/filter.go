package menu

import "strings"

func filter(c Catalog, category string) []Item {
	if category == "" || category == All {
		return c.Items()
	}

	var items []Item
	for _, name := range c.names {
		if it := c.items[name]; it.Type == category {
			items = append(items, it)
		}
	}
	return items
}

func categories(c Catalog) []string {
	seen := make(map[string]bool)
	var types []string
	for _, name := range c.names {
		t := c.items[name].Type
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		types = append(types, t)
	}
	return types
}

// CategoryLabel returns the filter button label for a category, e.g.
// "Pizza" becomes "Pizzas".
func CategoryLabel(category string) string {
	if category == All {
		return All
	}
	return category + "s"
}

// CategoryFromLabel maps a filter button label back to its category by
// dropping everything from the last "s", e.g. "Pizzas" becomes "Pizza".
func CategoryFromLabel(label string) string {
	if label == All {
		return All
	}
	if i := strings.LastIndex(label, "s"); i >= 0 {
		return label[:i]
	}
	return label
}
