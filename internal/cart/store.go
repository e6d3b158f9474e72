// Package cart holds the shopping cart state containers: the line item store,
// the drawer visibility store, and the per-session registry that owns them.
package cart

import (
	"math"
	"slices"

	"github.com/bright-bogota/storefront/internal/observable"
)

// MaxQuantity bounds a line quantity so float input always converts to a defined int.
const MaxQuantity = math.MaxInt32

// Item is one cart line. Lines are replaced on every update, never mutated in place.
type Item struct {
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	Size     int    `json:"size"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
	Image    string `json:"image"`
}

// SameLine reports whether other addresses the same (SKU, Size) line.
func (it Item) SameLine(other Item) bool {
	return it.SKU == other.SKU && it.Size == other.Size
}

// LineTotal is the price of the whole line.
func (it Item) LineTotal() int64 {
	return it.Price * int64(it.Quantity)
}

// Subtotal sums price x quantity over items. It is computed on every call.
func Subtotal(items []Item) int64 {
	var sum int64
	for _, it := range items {
		sum += it.LineTotal()
	}
	return sum
}

// Store is the single source of truth for cart contents. It guarantees at most
// one line per (SKU, Size) and publishes the full list on every change.
type Store struct {
	items *observable.Value[[]Item]
}

// NewStore returns an empty cart.
func NewStore() *Store {
	return &Store{items: observable.New([]Item{})}
}

// NewStoreWithItems seeds a cart, merging duplicate lines the same way AddItem does.
func NewStoreWithItems(items []Item) *Store {
	var merged []Item
	for _, it := range items {
		merged = addLine(merged, it)
	}
	if merged == nil {
		merged = []Item{}
	}
	return &Store{items: observable.New(merged)}
}

// AddItem merges item into the existing (SKU, Size) line by summing quantities,
// keeping the existing line's other fields. Unknown lines are appended.
// Quantity is not validated here beyond saturating at MaxQuantity.
func (s *Store) AddItem(item Item) {
	s.items.Update(func(cur []Item) ([]Item, bool) {
		return addLine(cur, item), true
	})
}

// UpdateQuantity sets the matching line to max(1, floor(quantity)).
// A missing line is a no-op and nothing is published.
func (s *Store) UpdateQuantity(item Item, quantity float64) {
	q := normalizeQuantity(quantity)
	s.items.Update(func(cur []Item) ([]Item, bool) {
		idx := indexOf(cur, item)
		if idx < 0 {
			return cur, false
		}
		next := slices.Clone(cur)
		next[idx].Quantity = q
		return next, true
	})
}

// Increase bumps the line to the passed item's quantity plus one.
func (s *Store) Increase(item Item) {
	s.UpdateQuantity(item, float64(baseQuantity(item)+1))
}

// Decrease lowers the line to the passed item's quantity minus one. The result
// never drops below 1; use Remove to drop a line.
func (s *Store) Decrease(item Item) {
	s.UpdateQuantity(item, float64(baseQuantity(item)-1))
}

// Remove drops the matching line. A missing line is a no-op and nothing is published.
func (s *Store) Remove(item Item) {
	s.items.Update(func(cur []Item) ([]Item, bool) {
		if indexOf(cur, item) < 0 {
			return cur, false
		}
		next := make([]Item, 0, len(cur)-1)
		for _, it := range cur {
			if !it.SameLine(item) {
				next = append(next, it)
			}
		}
		return next, true
	})
}

// Clear empties the cart.
func (s *Store) Clear() {
	s.items.Set([]Item{})
}

// Items returns a copy of the current lines.
func (s *Store) Items() []Item {
	return slices.Clone(s.items.Get())
}

// Subscribe delivers the current lines immediately and then every published
// list. Each delivery is a private copy.
func (s *Store) Subscribe(fn func([]Item)) (cancel func()) {
	if fn == nil {
		return func() {}
	}
	return s.items.Subscribe(func(items []Item) {
		fn(slices.Clone(items))
	})
}

// Len returns the number of distinct lines.
func (s *Store) Len() int { return len(s.items.Get()) }

// Count returns the number of units across all lines.
func (s *Store) Count() int {
	n := 0
	for _, it := range s.items.Get() {
		n += it.Quantity
	}
	return n
}

// Subtotal derives the subtotal from the current lines.
func (s *Store) Subtotal() int64 { return Subtotal(s.items.Get()) }

// Version counts publishes; callers use it to detect that a mutation happened.
func (s *Store) Version() uint64 { return s.items.Version() }

func addLine(cur []Item, item Item) []Item {
	idx := indexOf(cur, item)
	if idx >= 0 {
		next := slices.Clone(cur)
		next[idx].Quantity = saturate(cur[idx].Quantity + item.Quantity)
		return next
	}
	item.Quantity = saturate(item.Quantity)
	next := make([]Item, len(cur), len(cur)+1)
	copy(next, cur)
	return append(next, item)
}

// saturate caps a line quantity at MaxQuantity so Increase and Decrease stay monotone.
func saturate(q int) int {
	if q > MaxQuantity {
		return MaxQuantity
	}
	return q
}

func indexOf(items []Item, item Item) int {
	return slices.IndexFunc(items, item.SameLine)
}

func baseQuantity(item Item) int {
	if item.Quantity == 0 {
		return 1
	}
	return item.Quantity
}

func normalizeQuantity(q float64) int {
	switch {
	case math.IsNaN(q):
		return 1
	case q >= MaxQuantity:
		return MaxQuantity
	}
	f := math.Floor(q)
	if f < 1 {
		return 1
	}
	return int(f)
}
