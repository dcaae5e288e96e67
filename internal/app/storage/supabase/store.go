// Package supabase implements the storage interfaces against the hosted
// Supabase gateway. Every method is a thin PostgREST call followed by a
// strict decode into the domain types; the gateway remains the single source
// of truth.
package supabase

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mohammeioi/Market-Management-sub000/internal/app/domain/catalog"
	"github.com/mohammeioi/Market-Management-sub000/internal/app/domain/order"
	"github.com/mohammeioi/Market-Management-sub000/internal/app/storage"
	"github.com/mohammeioi/Market-Management-sub000/supabase/client"
)

const (
	productsTable   = "products"
	categoriesTable = "categories"
	ordersTable     = "orders"
	orderItemsTable = "order_items"

	productColumns = "*,categories(name)"
	orderColumns   = "*,order_items(*)"
)

// Store talks to one Supabase project.
type Store struct {
	client *client.Client
}

var _ storage.CatalogStore = (*Store)(nil)
var _ storage.OrderStore = (*Store)(nil)

// New creates a Store on top of the given gateway client.
func New(c *client.Client) *Store {
	return &Store{client: c}
}

// --- CatalogStore: products --------------------------------------------------

func (s *Store) ListProducts(ctx context.Context, q storage.ProductQuery) ([]catalog.Product, error) {
	qb := s.client.From(productsTable).
		Select(productColumns).
		Order("created_at", false)
	if q.CategoryID != "" {
		qb = qb.Eq("category_id", q.CategoryID)
	}
	if q.Limit > 0 {
		qb = qb.Range(q.Offset, q.Offset+q.Limit-1)
	}

	resp, err := qb.Execute(ctx)
	if err != nil {
		return nil, err
	}
	if err := resp.Error(); err != nil {
		return nil, err
	}

	var rows []productRow
	if err := resp.JSON(&rows); err != nil {
		return nil, decodeErr(productsTable, "", "not a row array: "+err.Error())
	}
	return decodeProducts(rows)
}

func (s *Store) SearchProductsByName(ctx context.Context, query string, limit int) ([]catalog.Product, error) {
	resp, err := s.client.From(productsTable).
		Select(productColumns).
		ILike("name", "*"+query+"*").
		Order("created_at", false).
		Limit(limit).
		Execute(ctx)
	if err != nil {
		return nil, err
	}
	if err := resp.Error(); err != nil {
		return nil, err
	}

	var rows []productRow
	if err := resp.JSON(&rows); err != nil {
		return nil, decodeErr(productsTable, "", "not a row array: "+err.Error())
	}
	return decodeProducts(rows)
}

func (s *Store) GetProductByBarcode(ctx context.Context, barcode string) (catalog.Product, error) {
	resp, err := s.client.From(productsTable).
		Select(productColumns).
		Eq("barcode", barcode).
		Limit(1).
		Execute(ctx)
	if err != nil {
		return catalog.Product{}, err
	}
	if err := resp.Error(); err != nil {
		return catalog.Product{}, err
	}

	var rows []productRow
	if err := resp.JSON(&rows); err != nil {
		return catalog.Product{}, decodeErr(productsTable, "", "not a row array: "+err.Error())
	}
	if len(rows) == 0 {
		return catalog.Product{}, storage.ErrNotFound
	}
	return decodeProduct(rows[0])
}

func (s *Store) GetProduct(ctx context.Context, id string) (catalog.Product, error) {
	resp, err := s.client.From(productsTable).
		Select(productColumns).
		Eq("id", id).
		Limit(1).
		Execute(ctx)
	if err != nil {
		return catalog.Product{}, err
	}
	if err := resp.Error(); err != nil {
		return catalog.Product{}, err
	}

	var rows []productRow
	if err := resp.JSON(&rows); err != nil {
		return catalog.Product{}, decodeErr(productsTable, "", "not a row array: "+err.Error())
	}
	if len(rows) == 0 {
		return catalog.Product{}, storage.ErrNotFound
	}
	return decodeProduct(rows[0])
}

func (s *Store) ListVariants(ctx context.Context, parentID string) ([]catalog.Product, error) {
	resp, err := s.client.From(productsTable).
		Select(productColumns).
		Eq("parent_id", parentID).
		Order("created_at", false).
		Execute(ctx)
	if err != nil {
		return nil, err
	}
	if err := resp.Error(); err != nil {
		return nil, err
	}

	var rows []productRow
	if err := resp.JSON(&rows); err != nil {
		return nil, decodeErr(productsTable, "", "not a row array: "+err.Error())
	}
	return decodeProducts(rows)
}

// productPayload is the write shape for the products table.
type productPayload struct {
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	CategoryID  *string         `json:"category_id"`
	Stock       int             `json:"stock"`
	Image       string          `json:"image,omitempty"`
	Barcode     string          `json:"barcode,omitempty"`
	IsAvailable bool            `json:"is_available"`
	ParentID    *string         `json:"parent_id"`
}

func toProductPayload(p catalog.Product) productPayload {
	payload := productPayload{
		Name:        p.Name,
		Price:       p.Price,
		Stock:       p.Stock,
		Image:       p.Image,
		Barcode:     p.Barcode,
		IsAvailable: p.Available,
	}
	if p.CategoryID != "" {
		payload.CategoryID = &p.CategoryID
	}
	if p.ParentID != "" {
		payload.ParentID = &p.ParentID
	}
	return payload
}

func (s *Store) CreateProduct(ctx context.Context, p catalog.Product) (catalog.Product, error) {
	resp, err := s.client.From(productsTable).ExecuteInsert(ctx, toProductPayload(p))
	if err != nil {
		return catalog.Product{}, err
	}
	if err := resp.Error(); err != nil {
		return catalog.Product{}, err
	}

	var rows []productRow
	if err := resp.JSON(&rows); err != nil {
		return catalog.Product{}, decodeErr(productsTable, "", "not a row array: "+err.Error())
	}
	if len(rows) == 0 {
		return catalog.Product{}, fmt.Errorf("insert returned no rows")
	}
	return decodeProduct(rows[0])
}

func (s *Store) CreateProducts(ctx context.Context, ps []catalog.Product) ([]catalog.Product, error) {
	if len(ps) == 0 {
		return nil, nil
	}
	payloads := make([]productPayload, 0, len(ps))
	for _, p := range ps {
		payloads = append(payloads, toProductPayload(p))
	}

	resp, err := s.client.From(productsTable).ExecuteInsert(ctx, payloads)
	if err != nil {
		return nil, err
	}
	if err := resp.Error(); err != nil {
		return nil, err
	}

	var rows []productRow
	if err := resp.JSON(&rows); err != nil {
		return nil, decodeErr(productsTable, "", "not a row array: "+err.Error())
	}
	return decodeProducts(rows)
}

func (s *Store) UpdateProduct(ctx context.Context, p catalog.Product) (catalog.Product, error) {
	resp, err := s.client.From(productsTable).
		Eq("id", p.ID).
		ExecuteUpdate(ctx, toProductPayload(p))
	if err != nil {
		return catalog.Product{}, err
	}
	if err := resp.Error(); err != nil {
		return catalog.Product{}, err
	}

	var rows []productRow
	if err := resp.JSON(&rows); err != nil {
		return catalog.Product{}, decodeErr(productsTable, "", "not a row array: "+err.Error())
	}
	if len(rows) == 0 {
		return catalog.Product{}, storage.ErrNotFound
	}
	return decodeProduct(rows[0])
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	resp, err := s.client.From(productsTable).Eq("id", id).ExecuteDelete(ctx)
	if err != nil {
		return err
	}
	return resp.Error()
}

func (s *Store) SetProductAvailability(ctx context.Context, id string, available bool) error {
	resp, err := s.client.From(productsTable).
		Eq("id", id).
		ExecuteUpdate(ctx, map[string]any{"is_available": available})
	if err != nil {
		return err
	}
	return resp.Error()
}

func (s *Store) AdjustStock(ctx context.Context, id string, delta int) error {
	// Read-then-write: the gateway offers no arithmetic update without an RPC.
	// Acceptable at storefront volumes; a lost decrement only overstates stock.
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	stock := p.Stock + delta
	if stock < 0 {
		stock = 0
	}
	resp, err := s.client.From(productsTable).
		Eq("id", id).
		ExecuteUpdate(ctx, map[string]any{"stock": stock})
	if err != nil {
		return err
	}
	return resp.Error()
}

// --- CatalogStore: categories ------------------------------------------------

func (s *Store) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	resp, err := s.client.From(categoriesTable).
		Select("*").
		Order("name", true).
		Execute(ctx)
	if err != nil {
		return nil, err
	}
	if err := resp.Error(); err != nil {
		return nil, err
	}

	var rows []categoryRow
	if err := resp.JSON(&rows); err != nil {
		return nil, decodeErr(categoriesTable, "", "not a row array: "+err.Error())
	}
	out := make([]catalog.Category, 0, len(rows))
	for _, row := range rows {
		c, err := decodeCategory(row)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *Store) CreateCategory(ctx context.Context, name string) (catalog.Category, error) {
	resp, err := s.client.From(categoriesTable).
		ExecuteInsert(ctx, map[string]any{"name": name})
	if err != nil {
		return catalog.Category{}, err
	}
	if err := resp.Error(); err != nil {
		return catalog.Category{}, err
	}

	var rows []categoryRow
	if err := resp.JSON(&rows); err != nil {
		return catalog.Category{}, decodeErr(categoriesTable, "", "not a row array: "+err.Error())
	}
	if len(rows) == 0 {
		return catalog.Category{}, fmt.Errorf("insert returned no rows")
	}
	return decodeCategory(rows[0])
}

func (s *Store) RenameCategory(ctx context.Context, id, name string) (catalog.Category, error) {
	resp, err := s.client.From(categoriesTable).
		Eq("id", id).
		ExecuteUpdate(ctx, map[string]any{"name": name})
	if err != nil {
		return catalog.Category{}, err
	}
	if err := resp.Error(); err != nil {
		return catalog.Category{}, err
	}

	var rows []categoryRow
	if err := resp.JSON(&rows); err != nil {
		return catalog.Category{}, decodeErr(categoriesTable, "", "not a row array: "+err.Error())
	}
	if len(rows) == 0 {
		return catalog.Category{}, storage.ErrNotFound
	}
	return decodeCategory(rows[0])
}

func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	// Unassign products first so the category delete never cascades to them.
	resp, err := s.client.From(productsTable).
		Eq("category_id", id).
		ExecuteUpdate(ctx, map[string]any{"category_id": nil})
	if err != nil {
		return err
	}
	if err := resp.Error(); err != nil {
		return err
	}

	resp, err = s.client.From(categoriesTable).Eq("id", id).ExecuteDelete(ctx)
	if err != nil {
		return err
	}
	return resp.Error()
}

// --- OrderStore --------------------------------------------------------------

type orderPayload struct {
	CustomerName  string          `json:"customer_name"`
	CustomerPhone string          `json:"customer_phone,omitempty"`
	CustomerEmail string          `json:"customer_email,omitempty"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Status        order.Status    `json:"status"`
	Notes         string          `json:"notes,omitempty"`
	UserID        string          `json:"user_id,omitempty"`
	Source        string          `json:"source,omitempty"`
}

func (s *Store) CreateOrder(ctx context.Context, o order.Order) (order.Order, error) {
	if o.Status == "" {
		o.Status = order.StatusPending
	}
	payload := orderPayload{
		CustomerName:  o.CustomerName,
		CustomerPhone: o.CustomerPhone,
		CustomerEmail: o.CustomerEmail,
		TotalAmount:   o.TotalAmount,
		Status:        o.Status,
		Notes:         o.Notes,
		UserID:        o.UserID,
		Source:        o.Source,
	}

	resp, err := s.client.From(ordersTable).ExecuteInsert(ctx, payload)
	if err != nil {
		return order.Order{}, err
	}
	if err := resp.Error(); err != nil {
		return order.Order{}, err
	}

	var rows []orderRow
	if err := resp.JSON(&rows); err != nil {
		return order.Order{}, decodeErr(ordersTable, "", "not a row array: "+err.Error())
	}
	if len(rows) == 0 {
		return order.Order{}, fmt.Errorf("insert returned no rows")
	}
	return decodeOrder(rows[0])
}

type orderItemPayload struct {
	OrderID     string          `json:"order_id"`
	ProductID   *string         `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

func (s *Store) CreateOrderItems(ctx context.Context, items []order.Item) ([]order.Item, error) {
	if len(items) == 0 {
		return nil, nil
	}
	payloads := make([]orderItemPayload, 0, len(items))
	for _, it := range items {
		payload := orderItemPayload{
			OrderID:     it.OrderID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			TotalPrice:  it.TotalPrice,
		}
		if it.ProductID != "" {
			payload.ProductID = &it.ProductID
		}
		payloads = append(payloads, payload)
	}

	resp, err := s.client.From(orderItemsTable).ExecuteInsert(ctx, payloads)
	if err != nil {
		return nil, err
	}
	if err := resp.Error(); err != nil {
		return nil, err
	}

	var rows []orderItemRow
	if err := resp.JSON(&rows); err != nil {
		return nil, decodeErr(orderItemsTable, "", "not a row array: "+err.Error())
	}
	out := make([]order.Item, 0, len(rows))
	for _, row := range rows {
		it, err := decodeOrderItem(row)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (order.Order, error) {
	resp, err := s.client.From(ordersTable).
		Select(orderColumns).
		Eq("id", id).
		Limit(1).
		Execute(ctx)
	if err != nil {
		return order.Order{}, err
	}
	if err := resp.Error(); err != nil {
		return order.Order{}, err
	}

	var rows []orderRow
	if err := resp.JSON(&rows); err != nil {
		return order.Order{}, decodeErr(ordersTable, "", "not a row array: "+err.Error())
	}
	if len(rows) == 0 {
		return order.Order{}, storage.ErrNotFound
	}
	return decodeOrder(rows[0])
}

func (s *Store) ListOrders(ctx context.Context) ([]order.Order, error) {
	resp, err := s.client.From(ordersTable).
		Select(orderColumns).
		Order("created_at", false).
		Execute(ctx)
	if err != nil {
		return nil, err
	}
	if err := resp.Error(); err != nil {
		return nil, err
	}

	var rows []orderRow
	if err := resp.JSON(&rows); err != nil {
		return nil, decodeErr(ordersTable, "", "not a row array: "+err.Error())
	}
	out := make([]order.Order, 0, len(rows))
	for _, row := range rows {
		o, err := decodeOrder(row)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id string, status order.Status) (order.Order, error) {
	resp, err := s.client.From(ordersTable).
		Eq("id", id).
		ExecuteUpdate(ctx, map[string]any{"status": status})
	if err != nil {
		return order.Order{}, err
	}
	if err := resp.Error(); err != nil {
		return order.Order{}, err
	}

	var rows []orderRow
	if err := resp.JSON(&rows); err != nil {
		return order.Order{}, decodeErr(ordersTable, "", "not a row array: "+err.Error())
	}
	if len(rows) == 0 {
		return order.Order{}, storage.ErrNotFound
	}
	return decodeOrder(rows[0])
}

func (s *Store) ApproveOrder(ctx context.Context, id, approver string) (order.Order, error) {
	// The is.null filter makes the first approver win at the gateway: a
	// second approve matches zero rows and leaves the field untouched.
	resp, err := s.client.From(ordersTable).
		Eq("id", id).
		Is("approved_by", "null").
		ExecuteUpdate(ctx, map[string]any{"approved_by": approver})
	if err != nil {
		return order.Order{}, err
	}
	if err := resp.Error(); err != nil {
		return order.Order{}, err
	}

	var rows []orderRow
	if err := resp.JSON(&rows); err != nil {
		return order.Order{}, decodeErr(ordersTable, "", "not a row array: "+err.Error())
	}
	if len(rows) > 0 {
		return decodeOrder(rows[0])
	}
	// Already approved (or missing); report the current state.
	return s.GetOrder(ctx, id)
}

func (s *Store) DeleteOrderItems(ctx context.Context, orderID string) error {
	resp, err := s.client.From(orderItemsTable).Eq("order_id", orderID).ExecuteDelete(ctx)
	if err != nil {
		return err
	}
	return resp.Error()
}

func (s *Store) DeleteOrder(ctx context.Context, id string) error {
	resp, err := s.client.From(ordersTable).Eq("id", id).ExecuteDelete(ctx)
	if err != nil {
		return err
	}
	return resp.Error()
}
