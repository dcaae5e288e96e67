package supabase

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mohammeioi/Market-Management-sub000/internal/app/domain/catalog"
	"github.com/mohammeioi/Market-Management-sub000/internal/app/domain/order"
)

// DecodeError reports a gateway row that does not match the expected shape.
// The gateway returns loosely-typed rows (fields optionally present, nested
// relations optionally expanded); decoding fails fast here instead of letting
// missing fields propagate as zero values.
type DecodeError struct {
	Table  string
	Field  string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s row: field %q: %s", e.Table, e.Field, e.Reason)
}

func decodeErr(table, field, reason string) error {
	return &DecodeError{Table: table, Field: field, Reason: reason}
}

// productRow mirrors the products table as PostgREST serializes it. Pointer
// fields distinguish absent from zero.
type productRow struct {
	ID          *string          `json:"id"`
	Name        *string          `json:"name"`
	Price       *decimal.Decimal `json:"price"`
	CategoryID  *string          `json:"category_id"`
	Category    *categoryEmbed   `json:"categories"`
	Stock       *int             `json:"stock"`
	Image       *string          `json:"image"`
	Barcode     *string          `json:"barcode"`
	IsAvailable *bool            `json:"is_available"`
	ParentID    *string          `json:"parent_id"`
	CreatedAt   *time.Time       `json:"created_at"`
}

type categoryEmbed struct {
	Name string `json:"name"`
}

func decodeProduct(row productRow) (catalog.Product, error) {
	if row.ID == nil || *row.ID == "" {
		return catalog.Product{}, decodeErr("products", "id", "missing")
	}
	if row.Name == nil || *row.Name == "" {
		return catalog.Product{}, decodeErr("products", "name", "missing")
	}
	if row.Price == nil {
		return catalog.Product{}, decodeErr("products", "price", "missing")
	}
	if row.Price.IsNegative() {
		return catalog.Product{}, decodeErr("products", "price", "negative")
	}

	p := catalog.Product{
		ID:        *row.ID,
		Name:      *row.Name,
		Price:     *row.Price,
		Available: true,
	}
	if row.CategoryID != nil {
		p.CategoryID = *row.CategoryID
	}
	if row.Category != nil {
		p.CategoryName = row.Category.Name
	}
	if row.Stock != nil {
		if *row.Stock < 0 {
			return catalog.Product{}, decodeErr("products", "stock", "negative")
		}
		p.Stock = *row.Stock
	}
	if row.Image != nil {
		p.Image = *row.Image
	}
	if row.Barcode != nil {
		p.Barcode = *row.Barcode
	}
	if row.IsAvailable != nil {
		p.Available = *row.IsAvailable
	}
	if row.ParentID != nil {
		p.ParentID = *row.ParentID
	}
	if row.CreatedAt != nil {
		p.CreatedAt = *row.CreatedAt
	}
	return p, nil
}

func decodeProducts(rows []productRow) ([]catalog.Product, error) {
	out := make([]catalog.Product, 0, len(rows))
	for _, row := range rows {
		p, err := decodeProduct(row)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

type categoryRow struct {
	ID        *string    `json:"id"`
	Name      *string    `json:"name"`
	CreatedAt *time.Time `json:"created_at"`
}

func decodeCategory(row categoryRow) (catalog.Category, error) {
	if row.ID == nil || *row.ID == "" {
		return catalog.Category{}, decodeErr("categories", "id", "missing")
	}
	if row.Name == nil || *row.Name == "" {
		return catalog.Category{}, decodeErr("categories", "name", "missing")
	}
	c := catalog.Category{ID: *row.ID, Name: *row.Name}
	if row.CreatedAt != nil {
		c.CreatedAt = *row.CreatedAt
	}
	return c, nil
}

type orderRow struct {
	ID            *string          `json:"id"`
	CustomerName  *string          `json:"customer_name"`
	CustomerPhone *string          `json:"customer_phone"`
	CustomerEmail *string          `json:"customer_email"`
	TotalAmount   *decimal.Decimal `json:"total_amount"`
	Status        *string          `json:"status"`
	Notes         *string          `json:"notes"`
	ApprovedBy    *string          `json:"approved_by"`
	UserID        *string          `json:"user_id"`
	Source        *string          `json:"source"`
	CreatedAt     *time.Time       `json:"created_at"`
	UpdatedAt     *time.Time       `json:"updated_at"`
	Items         []orderItemRow   `json:"order_items"`
}

type orderItemRow struct {
	ID          *string          `json:"id"`
	OrderID     *string          `json:"order_id"`
	ProductID   *string          `json:"product_id"`
	ProductName *string          `json:"product_name"`
	Quantity    *int             `json:"quantity"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
	TotalPrice  *decimal.Decimal `json:"total_price"`
}

func decodeOrder(row orderRow) (order.Order, error) {
	if row.ID == nil || *row.ID == "" {
		return order.Order{}, decodeErr("orders", "id", "missing")
	}
	if row.CustomerName == nil || *row.CustomerName == "" {
		return order.Order{}, decodeErr("orders", "customer_name", "missing")
	}
	if row.TotalAmount == nil {
		return order.Order{}, decodeErr("orders", "total_amount", "missing")
	}
	if row.Status == nil || *row.Status == "" {
		return order.Order{}, decodeErr("orders", "status", "missing")
	}

	o := order.Order{
		ID:           *row.ID,
		CustomerName: *row.CustomerName,
		TotalAmount:  *row.TotalAmount,
		Status:       order.Status(*row.Status),
	}
	if row.CustomerPhone != nil {
		o.CustomerPhone = *row.CustomerPhone
	}
	if row.CustomerEmail != nil {
		o.CustomerEmail = *row.CustomerEmail
	}
	if row.Notes != nil {
		o.Notes = *row.Notes
	}
	if row.ApprovedBy != nil {
		o.ApprovedBy = *row.ApprovedBy
	}
	if row.UserID != nil {
		o.UserID = *row.UserID
	}
	if row.Source != nil {
		o.Source = *row.Source
	}
	if row.CreatedAt != nil {
		o.CreatedAt = *row.CreatedAt
	}
	if row.UpdatedAt != nil {
		o.UpdatedAt = *row.UpdatedAt
	}
	for _, ir := range row.Items {
		item, err := decodeOrderItem(ir)
		if err != nil {
			return order.Order{}, err
		}
		o.Items = append(o.Items, item)
	}
	return o, nil
}

func decodeOrderItem(row orderItemRow) (order.Item, error) {
	if row.ID == nil || *row.ID == "" {
		return order.Item{}, decodeErr("order_items", "id", "missing")
	}
	if row.Quantity == nil || *row.Quantity <= 0 {
		return order.Item{}, decodeErr("order_items", "quantity", "missing or non-positive")
	}
	if row.UnitPrice == nil {
		return order.Item{}, decodeErr("order_items", "unit_price", "missing")
	}

	it := order.Item{
		ID:        *row.ID,
		Quantity:  *row.Quantity,
		UnitPrice: *row.UnitPrice,
	}
	if row.OrderID != nil {
		it.OrderID = *row.OrderID
	}
	// product_id stays empty when the product was deleted after the sale.
	if row.ProductID != nil {
		it.ProductID = *row.ProductID
	}
	if row.ProductName != nil {
		it.ProductName = *row.ProductName
	}
	if row.TotalPrice != nil {
		it.TotalPrice = *row.TotalPrice
	} else {
		it.TotalPrice = it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
	}
	return it, nil
}
