// Package memory provides an in-memory implementation of the storage
// interfaces. It is safe for concurrent use and is primarily intended for
// tests and local development without a Supabase project.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mohammeioi/Market-Management-sub000/internal/app/domain/catalog"
	"github.com/mohammeioi/Market-Management-sub000/internal/app/domain/order"
	"github.com/mohammeioi/Market-Management-sub000/internal/app/storage"
)

// Store holds all records behind one mutex.
type Store struct {
	mu         sync.RWMutex
	now        func() time.Time
	products   map[string]catalog.Product
	categories map[string]catalog.Category
	orders     map[string]order.Order
	orderItems map[string][]order.Item
	images     map[string]imageBlob
}

var _ storage.CatalogStore = (*Store)(nil)
var _ storage.OrderStore = (*Store)(nil)
var _ storage.ImageStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		now:        func() time.Time { return time.Now().UTC() },
		products:   make(map[string]catalog.Product),
		categories: make(map[string]catalog.Category),
		orders:     make(map[string]order.Order),
		orderItems: make(map[string][]order.Item),
		images:     make(map[string]imageBlob),
	}
}

// WithClock overrides the store clock. Tests use this to control CreatedAt
// ordering.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// --- CatalogStore: products --------------------------------------------------

func (s *Store) ListProducts(_ context.Context, q storage.ProductQuery) ([]catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []catalog.Product
	for _, p := range s.products {
		if q.CategoryID != "" && p.CategoryID != q.CategoryID {
			continue
		}
		out = append(out, s.expandCategoryLocked(p))
	}
	sortNewestFirst(out)

	if q.Offset >= len(out) {
		return nil, nil
	}
	out = out[q.Offset:]
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *Store) SearchProductsByName(_ context.Context, query string, limit int) ([]catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(query)
	var out []catalog.Product
	for _, p := range s.products {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			out = append(out, s.expandCategoryLocked(p))
		}
	}
	sortNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) GetProductByBarcode(_ context.Context, barcode string) (catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.products {
		if p.Barcode != "" && p.Barcode == barcode {
			return s.expandCategoryLocked(p), nil
		}
	}
	return catalog.Product{}, storage.ErrNotFound
}

func (s *Store) GetProduct(_ context.Context, id string) (catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return catalog.Product{}, storage.ErrNotFound
	}
	return s.expandCategoryLocked(p), nil
}

func (s *Store) ListVariants(_ context.Context, parentID string) ([]catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []catalog.Product
	for _, p := range s.products {
		if p.ParentID == parentID {
			out = append(out, s.expandCategoryLocked(p))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *Store) CreateProduct(_ context.Context, p catalog.Product) (catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createProductLocked(p)
}

func (s *Store) CreateProducts(_ context.Context, ps []catalog.Product) ([]catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]catalog.Product, 0, len(ps))
	for _, p := range ps {
		created, err := s.createProductLocked(p)
		if err != nil {
			return nil, err
		}
		out = append(out, created)
	}
	return out, nil
}

func (s *Store) createProductLocked(p catalog.Product) (catalog.Product, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	} else if _, exists := s.products[p.ID]; exists {
		return catalog.Product{}, fmt.Errorf("product %s already exists", p.ID)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	s.products[p.ID] = p
	return s.expandCategoryLocked(p), nil
}

func (s *Store) UpdateProduct(_ context.Context, p catalog.Product) (catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.products[p.ID]
	if !ok {
		return catalog.Product{}, storage.ErrNotFound
	}
	p.CreatedAt = existing.CreatedAt
	s.products[p.ID] = p
	return s.expandCategoryLocked(p), nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *Store) SetProductAvailability(_ context.Context, id string, available bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return storage.ErrNotFound
	}
	p.Available = available
	s.products[id] = p
	return nil
}

func (s *Store) AdjustStock(_ context.Context, id string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return storage.ErrNotFound
	}
	p.Stock += delta
	if p.Stock < 0 {
		p.Stock = 0
	}
	s.products[id] = p
	return nil
}

// --- ImageStore --------------------------------------------------------------

type imageBlob struct {
	data        []byte
	contentType string
}

func (s *Store) UploadProductImage(_ context.Context, productID string, data []byte, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[productID]
	if !ok {
		return "", storage.ErrNotFound
	}
	s.images[productID] = imageBlob{
		data:        append([]byte(nil), data...),
		contentType: contentType,
	}
	p.Image = "/api/products/" + productID + "/image"
	s.products[productID] = p
	return p.Image, nil
}

func (s *Store) DownloadProductImage(_ context.Context, productID string) ([]byte, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	blob, ok := s.images[productID]
	if !ok {
		return nil, "", storage.ErrNotFound
	}
	return append([]byte(nil), blob.data...), blob.contentType, nil
}

// --- CatalogStore: categories ------------------------------------------------

func (s *Store) ListCategories(_ context.Context) ([]catalog.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]catalog.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CreateCategory(_ context.Context, name string) (catalog.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.categories {
		if strings.EqualFold(c.Name, name) {
			return catalog.Category{}, fmt.Errorf("category %q already exists", name)
		}
	}
	c := catalog.Category{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: s.now(),
	}
	s.categories[c.ID] = c
	return c, nil
}

func (s *Store) RenameCategory(_ context.Context, id, name string) (catalog.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.categories[id]
	if !ok {
		return catalog.Category{}, storage.ErrNotFound
	}
	c.Name = name
	s.categories[id] = c
	return c, nil
}

func (s *Store) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.categories, id)

	// Cascade to unassigned rather than deleting products.
	for pid, p := range s.products {
		if p.CategoryID == id {
			p.CategoryID = ""
			s.products[pid] = p
		}
	}
	return nil
}

// --- OrderStore --------------------------------------------------------------

func (s *Store) CreateOrder(_ context.Context, o order.Order) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if o.ID == "" {
		o.ID = uuid.NewString()
	} else if _, exists := s.orders[o.ID]; exists {
		return order.Order{}, fmt.Errorf("order %s already exists", o.ID)
	}
	now := s.now()
	o.CreatedAt = now
	o.UpdatedAt = now
	if o.Status == "" {
		o.Status = order.StatusPending
	}
	o.Items = nil
	s.orders[o.ID] = o
	return o, nil
}

func (s *Store) CreateOrderItems(_ context.Context, items []order.Item) ([]order.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]order.Item, 0, len(items))
	for _, it := range items {
		if _, ok := s.orders[it.OrderID]; !ok {
			return nil, fmt.Errorf("order %s not found", it.OrderID)
		}
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		s.orderItems[it.OrderID] = append(s.orderItems[it.OrderID], it)
		out = append(out, it)
	}
	return out, nil
}

func (s *Store) GetOrder(_ context.Context, id string) (order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return order.Order{}, storage.ErrNotFound
	}
	o.Items = append([]order.Item(nil), s.orderItems[id]...)
	return o, nil
}

func (s *Store) ListOrders(_ context.Context) ([]order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]order.Order, 0, len(s.orders))
	for id, o := range s.orders {
		o.Items = append([]order.Item(nil), s.orderItems[id]...)
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateOrderStatus(_ context.Context, id string, status order.Status) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return order.Order{}, storage.ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = s.now()
	s.orders[id] = o
	return o, nil
}

func (s *Store) ApproveOrder(_ context.Context, id, approver string) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return order.Order{}, storage.ErrNotFound
	}
	// First approver wins; later calls leave the field untouched.
	if o.ApprovedBy == "" {
		o.ApprovedBy = approver
		o.UpdatedAt = s.now()
		s.orders[id] = o
	}
	return o, nil
}

func (s *Store) DeleteOrderItems(_ context.Context, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.orderItems, orderID)
	return nil
}

func (s *Store) DeleteOrder(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.orders, id)
	return nil
}

// --- helpers -----------------------------------------------------------------

func (s *Store) expandCategoryLocked(p catalog.Product) catalog.Product {
	if p.CategoryID != "" {
		if c, ok := s.categories[p.CategoryID]; ok {
			p.CategoryName = c.Name
		}
	}
	return p
}

func sortNewestFirst(ps []catalog.Product) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].CreatedAt.Equal(ps[j].CreatedAt) {
			return ps[i].ID > ps[j].ID
		}
		return ps[i].CreatedAt.After(ps[j].CreatedAt)
	})
}
