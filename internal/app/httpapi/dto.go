package httpapi

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mohammeioi/Market-Management-sub000/internal/app/domain/catalog"
	"github.com/mohammeioi/Market-Management-sub000/internal/app/domain/order"
	"github.com/mohammeioi/Market-Management-sub000/internal/app/services/cart"
	catalogsvc "github.com/mohammeioi/Market-Management-sub000/internal/app/services/catalog"
)

type productJSON struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	CategoryID   string          `json:"category_id,omitempty"`
	CategoryName string          `json:"category_name,omitempty"`
	Stock        int             `json:"stock"`
	Image        string          `json:"image,omitempty"`
	Barcode      string          `json:"barcode,omitempty"`
	ParentID     string          `json:"parent_id,omitempty"`
	Available    bool            `json:"is_available"`
	CreatedAt    time.Time       `json:"created_at"`
}

func toProductJSON(p catalog.Product) productJSON {
	return productJSON{
		ID:           p.ID,
		Name:         p.Name,
		Price:        p.Price,
		CategoryID:   p.CategoryID,
		CategoryName: p.CategoryName,
		Stock:        p.Stock,
		Image:        p.Image,
		Barcode:      p.Barcode,
		ParentID:     p.ParentID,
		Available:    p.Available,
		CreatedAt:    p.CreatedAt,
	}
}

func toProductsJSON(ps []catalog.Product) []productJSON {
	out := make([]productJSON, 0, len(ps))
	for _, p := range ps {
		out = append(out, toProductJSON(p))
	}
	return out
}

type pageJSON struct {
	Products []productJSON `json:"products"`
	Page     int           `json:"page"`
	HasMore  bool          `json:"has_more"`
}

func toPageJSON(p catalogsvc.Page) pageJSON {
	return pageJSON{
		Products: toProductsJSON(p.Products),
		Page:     p.Page,
		HasMore:  p.HasMore,
	}
}

type categoryJSON struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func toCategoryJSON(c catalog.Category) categoryJSON {
	return categoryJSON{ID: c.ID, Name: c.Name, CreatedAt: c.CreatedAt}
}

type cartLineJSON struct {
	Product  productJSON     `json:"product"`
	Quantity int             `json:"quantity"`
	Total    decimal.Decimal `json:"total"`
}

type cartJSON struct {
	Lines []cartLineJSON  `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

func toCartJSON(c *cart.Cart) cartJSON {
	lines := c.Lines()
	out := cartJSON{Lines: make([]cartLineJSON, 0, len(lines)), Total: c.Total()}
	for _, l := range lines {
		out.Lines = append(out.Lines, cartLineJSON{
			Product:  toProductJSON(l.Product),
			Quantity: l.Quantity,
			Total:    l.Total(),
		})
	}
	return out
}

type orderItemJSON struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product_id,omitempty"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

type orderJSON struct {
	ID            string          `json:"id"`
	CustomerName  string          `json:"customer_name"`
	CustomerPhone string          `json:"customer_phone,omitempty"`
	CustomerEmail string          `json:"customer_email,omitempty"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Status        order.Status    `json:"status"`
	Notes         string          `json:"notes,omitempty"`
	ApprovedBy    string          `json:"approved_by,omitempty"`
	UserID        string          `json:"user_id,omitempty"`
	Source        string          `json:"source,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Items         []orderItemJSON `json:"items"`
}

func toOrderJSON(o order.Order) orderJSON {
	items := make([]orderItemJSON, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemJSON{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			TotalPrice:  it.TotalPrice,
		})
	}
	return orderJSON{
		ID:            o.ID,
		CustomerName:  o.CustomerName,
		CustomerPhone: o.CustomerPhone,
		CustomerEmail: o.CustomerEmail,
		TotalAmount:   o.TotalAmount,
		Status:        o.Status,
		Notes:         o.Notes,
		ApprovedBy:    o.ApprovedBy,
		UserID:        o.UserID,
		Source:        o.Source,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
		Items:         items,
	}
}

func decimalFromNumber(n json.Number) (decimal.Decimal, error) {
	if n == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(n.String())
}
