package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mohammeioi/Market-Management-sub000/internal/app/domain/catalog"
	"github.com/mohammeioi/Market-Management-sub000/internal/app/domain/order"
	"github.com/mohammeioi/Market-Management-sub000/internal/app/storage"
)

func newClockedStore() (*Store, *time.Time) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	s := New().WithClock(func() time.Time { return now })
	return s, &now
}

func seedProducts(t *testing.T, s *Store, now *time.Time, n int) []catalog.Product {
	t.Helper()
	out := make([]catalog.Product, 0, n)
	for i := 0; i < n; i++ {
		p, err := s.CreateProduct(context.Background(), catalog.Product{
			Name:      fmt.Sprintf("Product %02d", i),
			Price:     decimal.NewFromInt(int64(100 * (i + 1))),
			Stock:     10,
			Available: true,
		})
		if err != nil {
			t.Fatalf("create product %d: %v", i, err)
		}
		out = append(out, p)
		*now = now.Add(time.Minute)
	}
	return out
}

func TestListProductsNewestFirstPaged(t *testing.T) {
	s, now := newClockedStore()
	created := seedProducts(t, s, now, 25)

	page, err := s.ListProducts(context.Background(), storage.ProductQuery{Limit: 20})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 20 {
		t.Fatalf("expected 20 products, got %d", len(page))
	}
	if page[0].ID != created[24].ID {
		t.Fatalf("expected newest product first")
	}

	rest, err := s.ListProducts(context.Background(), storage.ProductQuery{Limit: 20, Offset: 20})
	if err != nil {
		t.Fatalf("list offset: %v", err)
	}
	if len(rest) != 5 {
		t.Fatalf("expected 5 products on the second page, got %d", len(rest))
	}
	if rest[4].ID != created[0].ID {
		t.Fatalf("expected oldest product last")
	}
}

func TestListProductsByCategory(t *testing.T) {
	s, now := newClockedStore()
	c, err := s.CreateCategory(context.Background(), "Drinks")
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	if _, err := s.CreateProduct(context.Background(), catalog.Product{Name: "Espresso", CategoryID: c.ID}); err != nil {
		t.Fatalf("create product: %v", err)
	}
	*now = now.Add(time.Minute)
	if _, err := s.CreateProduct(context.Background(), catalog.Product{Name: "Cake"}); err != nil {
		t.Fatalf("create product: %v", err)
	}

	got, err := s.ListProducts(context.Background(), storage.ProductQuery{CategoryID: c.ID, Limit: 20})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Espresso" {
		t.Fatalf("expected only the Drinks product, got %+v", got)
	}
	if got[0].CategoryName != "Drinks" {
		t.Fatalf("expected category name joined in, got %q", got[0].CategoryName)
	}
}

func TestSearchProductsByNameCaseInsensitive(t *testing.T) {
	s, _ := newClockedStore()
	for _, name := range []string{"Espresso", "Double Espresso", "Cake"} {
		if _, err := s.CreateProduct(context.Background(), catalog.Product{Name: name}); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	got, err := s.SearchProductsByName(context.Background(), "ESPRES", 20)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(got))
	}
}

func TestGetProductByBarcode(t *testing.T) {
	s, _ := newClockedStore()
	p, err := s.CreateProduct(context.Background(), catalog.Product{Name: "Espresso", Barcode: "62210001"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.GetProductByBarcode(context.Background(), "62210001")
	if err != nil {
		t.Fatalf("barcode lookup: %v", err)
	}
	if got.ID != p.ID {
		t.Fatalf("expected %s, got %s", p.ID, got.ID)
	}
	if _, err := s.GetProductByBarcode(context.Background(), "99999999"); err != storage.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	// Empty barcodes never match the empty query.
	if _, err := s.GetProductByBarcode(context.Background(), ""); err != storage.ErrNotFound {
		t.Fatalf("expected ErrNotFound for empty barcode, got %v", err)
	}
}

func TestAdjustStockFloorsAtZero(t *testing.T) {
	s, _ := newClockedStore()
	p, err := s.CreateProduct(context.Background(), catalog.Product{Name: "Espresso", Stock: 3})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := s.AdjustStock(context.Background(), p.ID, -5); err != nil {
		t.Fatalf("adjust: %v", err)
	}
	got, err := s.GetProduct(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Stock != 0 {
		t.Fatalf("expected stock floored at 0, got %d", got.Stock)
	}
}

func TestDeleteCategoryUnassignsProducts(t *testing.T) {
	s, _ := newClockedStore()
	c, err := s.CreateCategory(context.Background(), "Drinks")
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	p, err := s.CreateProduct(context.Background(), catalog.Product{Name: "Espresso", CategoryID: c.ID})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	if err := s.DeleteCategory(context.Background(), c.ID); err != nil {
		t.Fatalf("delete category: %v", err)
	}
	got, err := s.GetProduct(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if got.CategoryID != "" {
		t.Fatalf("expected product unassigned, still in %q", got.CategoryID)
	}
}

func TestCreateCategoryRejectsDuplicateName(t *testing.T) {
	s, _ := newClockedStore()
	if _, err := s.CreateCategory(context.Background(), "Drinks"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.CreateCategory(context.Background(), "drinks"); err == nil {
		t.Fatalf("duplicate name must be rejected")
	}
}

func TestOrderRoundTrip(t *testing.T) {
	s, _ := newClockedStore()
	o, err := s.CreateOrder(context.Background(), order.Order{
		CustomerName: "Ali",
		TotalAmount:  decimal.NewFromInt(2500),
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if o.Status != order.StatusPending {
		t.Fatalf("expected default pending status, got %s", o.Status)
	}

	if _, err := s.CreateOrderItems(context.Background(), []order.Item{
		{OrderID: o.ID, ProductName: "Espresso", Quantity: 2},
	}); err != nil {
		t.Fatalf("create items: %v", err)
	}

	got, err := s.GetOrder(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if len(got.Items) != 1 || got.Items[0].ProductName != "Espresso" {
		t.Fatalf("expected items attached, got %+v", got.Items)
	}
}

func TestCreateOrderItemsUnknownOrder(t *testing.T) {
	s, _ := newClockedStore()
	if _, err := s.CreateOrderItems(context.Background(), []order.Item{{OrderID: "missing"}}); err == nil {
		t.Fatalf("items for an unknown order must fail")
	}
}

func TestApproveOrderKeepsFirstApprover(t *testing.T) {
	s, _ := newClockedStore()
	o, err := s.CreateOrder(context.Background(), order.Order{CustomerName: "Ali"})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if _, err := s.ApproveOrder(context.Background(), o.ID, "alice"); err != nil {
		t.Fatalf("first approve: %v", err)
	}
	got, err := s.ApproveOrder(context.Background(), o.ID, "bob")
	if err != nil {
		t.Fatalf("second approve: %v", err)
	}
	if got.ApprovedBy != "alice" {
		t.Fatalf("expected alice to stay, got %q", got.ApprovedBy)
	}
}

func TestProductImageRoundTrip(t *testing.T) {
	s, now := newClockedStore()
	p := seedProducts(t, s, now, 1)[0]

	url, err := s.UploadProductImage(context.Background(), p.ID, []byte{0x89, 'P', 'N', 'G'}, "image/png")
	if err != nil {
		t.Fatalf("upload image: %v", err)
	}
	if url == "" {
		t.Fatalf("upload must return a URL")
	}

	got, err := s.GetProduct(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if got.Image != url {
		t.Fatalf("expected product image %q, got %q", url, got.Image)
	}

	data, contentType, err := s.DownloadProductImage(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("download image: %v", err)
	}
	if contentType != "image/png" {
		t.Fatalf("expected image/png, got %q", contentType)
	}
	if len(data) != 4 || data[1] != 'P' {
		t.Fatalf("unexpected image bytes %v", data)
	}
}

func TestProductImageUnknownProduct(t *testing.T) {
	s, _ := newClockedStore()

	if _, err := s.UploadProductImage(context.Background(), "missing", []byte("x"), "image/png"); err != storage.ErrNotFound {
		t.Fatalf("expected ErrNotFound on upload, got %v", err)
	}
	if _, _, err := s.DownloadProductImage(context.Background(), "missing"); err != storage.ErrNotFound {
		t.Fatalf("expected ErrNotFound on download, got %v", err)
	}
}
