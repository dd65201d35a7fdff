// Package catalog holds the read-only product table the matcher scores
// recognized text against.
package catalog

import (
	"github.com/MeKo-Tech/shelfocr/internal/normalize"
)

// DefaultNameColumn is the column holding the product name in catalog files.
const DefaultNameColumn = "name"

// Entry is one product row. Attributes carries the remaining columns
// unchanged (price, type, image and so on).
type Entry struct {
	Name           string            `json:"name"`
	NormalizedName string            `json:"normalized_name"`
	Attributes     map[string]string `json:"attributes,omitempty"`
}

// NewEntry creates an entry and computes its comparison key.
func NewEntry(name string, attrs map[string]string) Entry {
	return Entry{
		Name:           name,
		NormalizedName: normalize.Key(name),
		Attributes:     attrs,
	}
}

// Attr returns an attribute value or "" when missing.
func (e Entry) Attr(key string) string {
	if e.Attributes == nil {
		return ""
	}
	return e.Attributes[key]
}

// Catalog is an ordered product list. Iteration order breaks score ties.
type Catalog []Entry

// FromRows builds a catalog from generic rows; nameColumn selects the name
// field. Rows without a name are kept with an empty name.
func FromRows(rows []map[string]string, nameColumn string) Catalog {
	if nameColumn == "" {
		nameColumn = DefaultNameColumn
	}
	out := make(Catalog, 0, len(rows))
	for _, row := range rows {
		out = append(out, NewEntry(row[nameColumn], row))
	}
	return out
}

// FromNames builds a catalog with name-only entries.
func FromNames(names ...string) Catalog {
	out := make(Catalog, 0, len(names))
	for _, n := range names {
		out = append(out, NewEntry(n, map[string]string{DefaultNameColumn: n}))
	}
	return out
}

// Names returns the entry names in catalog order.
func (c Catalog) Names() []string {
	names := make([]string, len(c))
	for i, e := range c {
		names[i] = e.Name
	}
	return names
}

// Empty reports whether the catalog has no entries.
func (c Catalog) Empty() bool {
	return len(c) == 0
}
