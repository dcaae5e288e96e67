// Package cart holds the in-memory shopping cart and the checkout workflow
// that turns it into a persisted order.
package cart

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/mohammeioi/Market-Management-sub000/internal/app/domain/catalog"
)

// Line is one cart entry. Price lives on the product until checkout freezes
// it onto the order item.
type Line struct {
	Product  catalog.Product
	Quantity int
}

// Total is the line subtotal at the product's current price.
func (l Line) Total() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart accumulates lines. Safe for concurrent use; at most one line exists
// per product id.
type Cart struct {
	mu    sync.Mutex
	lines []Line
}

// New returns an empty cart.
func New() *Cart { return &Cart{} }

// AddLine puts a product in the cart. A product already present gets its
// quantity incremented instead of a second line.
func (c *Cart) AddLine(p catalog.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.lines {
		if c.lines[i].Product.ID == p.ID {
			c.lines[i].Quantity++
			return
		}
	}
	c.lines = append(c.lines, Line{Product: p, Quantity: 1})
}

// SetQuantity sets a line's quantity. n <= 0 removes the line. Setting a
// quantity for a product that is not in the cart does nothing; lines are
// created only through AddLine.
func (c *Cart) SetQuantity(productID string, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.lines {
		if c.lines[i].Product.ID != productID {
			continue
		}
		if n <= 0 {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
		} else {
			c.lines[i].Quantity = n
		}
		return
	}
}

// RemoveLine drops a product from the cart.
func (c *Cart) RemoveLine(productID string) {
	c.SetQuantity(productID, 0)
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
}

// Lines returns a snapshot of the current lines.
func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Len returns the number of distinct lines.
func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines)
}

// Total recomputes the cart total from the current lines on every call.
func (c *Cart) Total() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Total())
	}
	return total
}
