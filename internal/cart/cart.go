// Package cart implements the per-session shopping cart.
//
// A Cart is a plain value: it is loaded from the session store at the start
// of a request, mutated, and saved back. Unit prices are captured when a
// product is first added and are not refreshed afterwards.
package cart

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"storefront/internal/models"
)

// MaxLineQuantity caps the quantity of a single cart line
const MaxLineQuantity = 1000

// ErrInvalidQuantity is returned when an add would leave a line outside
// 1..MaxLineQuantity. The cart is left unchanged.
var ErrInvalidQuantity = errors.New("quantity out of range")

// Entry is one product line in the cart
type Entry struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// Subtotal returns price times quantity
func (e *Entry) Subtotal() decimal.Decimal {
	return e.Price.Mul(decimal.NewFromInt(int64(e.Quantity)))
}

// Item is an entry resolved against the catalog for display
type Item struct {
	Product  *models.Product `json:"product"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// Cart keeps entries in first-add order
type Cart struct {
	entries []*Entry
	index   map[int64]int
}

// New returns an empty cart
func New() *Cart {
	return &Cart{index: make(map[int64]int)}
}

// Add puts a product in the cart. A new entry freezes the product's current
// price. For an existing entry, override replaces the quantity, otherwise the
// quantity is added to it.
func (c *Cart) Add(product *models.Product, quantity int, override bool) error {
	if quantity < 1 || quantity > MaxLineQuantity {
		return ErrInvalidQuantity
	}

	if i, ok := c.index[product.ID]; ok {
		next := quantity
		if !override {
			next += c.entries[i].Quantity
		}
		if next > MaxLineQuantity {
			return ErrInvalidQuantity
		}
		c.entries[i].Quantity = next
		return nil
	}

	c.index[product.ID] = len(c.entries)
	c.entries = append(c.entries, &Entry{
		ProductID: product.ID,
		Quantity:  quantity,
		Price:     product.Price,
	})
	return nil
}

// Quantity returns the quantity held for a product, zero when absent
func (c *Cart) Quantity(productID int64) int {
	if i, ok := c.index[productID]; ok {
		return c.entries[i].Quantity
	}
	return 0
}

// Remove deletes a product from the cart. Removing an absent product is a no-op.
func (c *Cart) Remove(productID int64) {
	i, ok := c.index[productID]
	if !ok {
		return
	}

	c.entries = append(c.entries[:i], c.entries[i+1:]...)
	c.reindex()
}

// Entries returns a copy of the raw entries in insertion order
func (c *Cart) Entries() []Entry {
	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, *e)
	}
	return out
}

// ProductIDs returns the ids of every product in the cart
func (c *Cart) ProductIDs() []int64 {
	ids := make([]int64, 0, len(c.entries))
	for _, e := range c.entries {
		ids = append(ids, e.ProductID)
	}
	return ids
}

// Items resolves entries against products. An entry whose product is missing
// from the map is returned with a nil Product so the caller can decide what to
// show; its frozen price still counts towards the total.
func (c *Cart) Items(products map[int64]*models.Product) []Item {
	items := make([]Item, 0, len(c.entries))
	for _, e := range c.entries {
		items = append(items, Item{
			Product:  products[e.ProductID],
			Quantity: e.Quantity,
			Price:    e.Price,
			Subtotal: e.Subtotal(),
		})
	}
	return items
}

// TotalPrice sums every entry's subtotal
func (c *Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, e := range c.entries {
		total = total.Add(e.Subtotal())
	}
	return total
}

// Len returns the number of distinct products
func (c *Cart) Len() int {
	return len(c.entries)
}

// Count returns the total quantity across all entries
func (c *Cart) Count() int {
	n := 0
	for _, e := range c.entries {
		n += e.Quantity
	}
	return n
}

// IsEmpty reports whether the cart has no entries
func (c *Cart) IsEmpty() bool {
	return len(c.entries) == 0
}

// Clear removes every entry
func (c *Cart) Clear() {
	c.entries = nil
	c.index = make(map[int64]int)
}

func (c *Cart) reindex() {
	c.index = make(map[int64]int, len(c.entries))
	for i, e := range c.entries {
		c.index[e.ProductID] = i
	}
}

type cartJSON struct {
	Items []*Entry `json:"items"`
}

// MarshalJSON encodes the cart with prices as decimal strings
func (c *Cart) MarshalJSON() ([]byte, error) {
	items := c.entries
	if items == nil {
		items = []*Entry{}
	}
	return json.Marshal(cartJSON{Items: items})
}

// UnmarshalJSON restores a cart, keeping the stored order
func (c *Cart) UnmarshalJSON(data []byte) error {
	var raw cartJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode cart: %w", err)
	}

	c.entries = make([]*Entry, 0, len(raw.Items))
	for _, e := range raw.Items {
		if e == nil {
			continue
		}
		if e.Quantity < 1 || e.Quantity > MaxLineQuantity {
			return fmt.Errorf("failed to decode cart: product %d: %w", e.ProductID, ErrInvalidQuantity)
		}
		c.entries = append(c.entries, e)
	}
	c.reindex()

	if len(c.index) != len(c.entries) {
		return fmt.Errorf("failed to decode cart: duplicate product entries")
	}
	return nil
}
