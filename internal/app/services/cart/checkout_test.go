package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mohammeioi/Market-Management-sub000/internal/app/domain/order"
	"github.com/mohammeioi/Market-Management-sub000/internal/app/storage"
	"github.com/mohammeioi/Market-Management-sub000/internal/app/storage/memory"
	"github.com/mohammeioi/Market-Management-sub000/pkg/logger"
)

func TestCheckoutEmptyNameRejected(t *testing.T) {
	store := memory.New()
	svc := NewService(store, store, logger.Nop())

	c := New()
	c.AddLine(product("a", 100))

	_, err := svc.Checkout(context.Background(), c, order.CustomerInfo{Name: "  "})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected a validation error, got %v", err)
	}
	if c.Len() != 1 {
		t.Fatalf("a rejected checkout must leave the cart untouched")
	}

	orders, err := store.ListOrders(context.Background())
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(orders) != 0 {
		t.Fatalf("no order may exist after a rejected checkout, got %d", len(orders))
	}
}

func TestCheckoutEmptyCartRejected(t *testing.T) {
	store := memory.New()
	svc := NewService(store, store, logger.Nop())

	_, err := svc.Checkout(context.Background(), New(), order.CustomerInfo{Name: "Ali"})
	if !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
}

func TestCheckoutPersistsOrderAndClearsCart(t *testing.T) {
	store := memory.New()
	svc := NewService(store, store, logger.Nop())

	c := New()
	a := product("a", 1000)
	a.Stock = 10
	b := product("b", 500)
	b.Stock = 10
	createdA, err := store.CreateProduct(context.Background(), a)
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	createdB, err := store.CreateProduct(context.Background(), b)
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	c.AddLine(createdA)
	c.AddLine(createdA)
	c.AddLine(createdB)
	if got := c.Total(); !got.Equal(decimal.NewFromInt(2500)) {
		t.Fatalf("expected pre-checkout total 2500, got %s", got)
	}

	o, err := svc.Checkout(context.Background(), c, order.CustomerInfo{Name: "Ali"})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if c.Len() != 0 {
		t.Fatalf("cart must be empty after a successful checkout")
	}
	if !o.TotalAmount.Equal(decimal.NewFromInt(2500)) {
		t.Fatalf("expected order total 2500, got %s", o.TotalAmount)
	}
	if len(o.Items) != 2 {
		t.Fatalf("expected 2 items (distinct lines), got %d", len(o.Items))
	}
	if o.Status != order.StatusPending {
		t.Fatalf("a new order starts pending, got %s", o.Status)
	}

	// Stock decremented per sold quantity.
	got, err := store.GetProduct(context.Background(), createdA.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if got.Stock != 8 {
		t.Fatalf("expected stock 8 after selling 2, got %d", got.Stock)
	}
}

func TestCheckoutStampsOrderWithUserID(t *testing.T) {
	store := memory.New()
	svc := NewService(store, store, logger.Nop())

	c := New()
	c.AddLine(product("a", 100))

	o, err := svc.Checkout(context.Background(), c, order.CustomerInfo{UserID: "u1", Name: "Ali"})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if o.UserID != "u1" {
		t.Fatalf("expected order user id %q, got %q", "u1", o.UserID)
	}

	reloaded, err := store.GetOrder(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if reloaded.UserID != "u1" {
		t.Fatalf("persisted order lost its user id, got %q", reloaded.UserID)
	}
}

func TestCheckoutFreezesUnitPrice(t *testing.T) {
	store := memory.New()
	svc := NewService(store, store, logger.Nop())

	p, err := store.CreateProduct(context.Background(), product("a", 1000))
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	c := New()
	c.AddLine(p)
	o, err := svc.Checkout(context.Background(), c, order.CustomerInfo{Name: "Ali"})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	p.Price = decimal.NewFromInt(9999)
	if _, err := store.UpdateProduct(context.Background(), p); err != nil {
		t.Fatalf("update product: %v", err)
	}

	reloaded, err := store.GetOrder(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if !reloaded.Items[0].UnitPrice.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("unit price must stay frozen at checkout time, got %s", reloaded.Items[0].UnitPrice)
	}
}

// failingOrderStore wraps the memory store to force item-insert failures.
type failingOrderStore struct {
	*memory.Store
	itemsErr  error
	deleteErr error
	deleted   []string
}

func (f *failingOrderStore) CreateOrderItems(ctx context.Context, items []order.Item) ([]order.Item, error) {
	if f.itemsErr != nil {
		return nil, f.itemsErr
	}
	return f.Store.CreateOrderItems(ctx, items)
}

func (f *failingOrderStore) DeleteOrder(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.Store.DeleteOrder(ctx, id)
}

func TestCheckoutCompensatesHeaderOnItemFailure(t *testing.T) {
	store := &failingOrderStore{Store: memory.New(), itemsErr: errors.New("items insert failed")}
	svc := NewService(store, nil, logger.Nop())

	c := New()
	c.AddLine(product("a", 100))

	_, err := svc.Checkout(context.Background(), c, order.CustomerInfo{Name: "Ali"})
	if err == nil {
		t.Fatalf("expected checkout to fail")
	}
	if errors.Is(err, ErrPartialFailure) {
		t.Fatalf("a successful compensation is a total failure, not a partial one: %v", err)
	}
	if len(store.deleted) != 1 {
		t.Fatalf("expected one compensating delete, got %d", len(store.deleted))
	}

	orders, _ := store.ListOrders(context.Background())
	if len(orders) != 0 {
		t.Fatalf("compensation must remove the orphan header, found %d orders", len(orders))
	}
	if c.Len() != 1 {
		t.Fatalf("a failed checkout must keep the cart")
	}
}

func TestCheckoutPartialFailureWhenCompensationFails(t *testing.T) {
	store := &failingOrderStore{
		Store:     memory.New(),
		itemsErr:  errors.New("items insert failed"),
		deleteErr: errors.New("delete failed too"),
	}
	svc := NewService(store, nil, logger.Nop())

	c := New()
	c.AddLine(product("a", 100))

	_, err := svc.Checkout(context.Background(), c, order.CustomerInfo{Name: "Ali"})
	if !errors.Is(err, ErrPartialFailure) {
		t.Fatalf("expected ErrPartialFailure, got %v", err)
	}
}

// txStore exposes the transactional path.
type txStore struct {
	*memory.Store
	txCalls int
}

func (s *txStore) CreateOrderWithItems(ctx context.Context, o order.Order) (order.Order, error) {
	s.txCalls++
	items := o.Items
	o.Items = nil
	created, err := s.Store.CreateOrder(ctx, o)
	if err != nil {
		return order.Order{}, err
	}
	for i := range items {
		items[i].OrderID = created.ID
	}
	created.Items, err = s.Store.CreateOrderItems(ctx, items)
	return created, err
}

var _ storage.TxOrderStore = (*txStore)(nil)

func TestCheckoutPrefersTransactionalStore(t *testing.T) {
	store := &txStore{Store: memory.New()}
	svc := NewService(store, nil, logger.Nop())

	c := New()
	c.AddLine(product("a", 100))

	if _, err := svc.Checkout(context.Background(), c, order.CustomerInfo{Name: "Ali"}); err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if store.txCalls != 1 {
		t.Fatalf("expected the transactional path, got %d tx calls", store.txCalls)
	}
}
