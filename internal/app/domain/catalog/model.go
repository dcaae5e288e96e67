// Package catalog defines the product and category entities sold through the
// storefront.
package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a sellable item. Price is kept as a decimal so totals never
// accumulate float error; Stock is informational at cart time and only
// decremented after a completed sale.
type Product struct {
	ID           string
	Name         string
	Price        decimal.Decimal
	CategoryID   string // empty means unassigned
	CategoryName string // populated when the category relation is expanded
	Stock        int
	Image        string
	Barcode      string
	ParentID     string // non-empty for variant products
	Available    bool
	CreatedAt    time.Time
}

// IsVariant reports whether the product is presented as a sub-option of a
// parent product.
func (p Product) IsVariant() bool { return p.ParentID != "" }

// Category groups products under a unique display name. Deleting a category
// leaves its products unassigned rather than deleting them.
type Category struct {
	ID        string
	Name      string
	CreatedAt time.Time
}
