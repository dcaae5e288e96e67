package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mohammeioi/Market-Management-sub000/internal/app/domain/order"
	"github.com/mohammeioi/Market-Management-sub000/internal/app/metrics"
	"github.com/mohammeioi/Market-Management-sub000/internal/app/storage"
	"github.com/mohammeioi/Market-Management-sub000/pkg/logger"
)

// ErrPartialFailure reports that the order header was persisted but its items
// were not, and the compensating header delete also failed. The order exists
// remotely with zero items and needs manual cleanup.
var ErrPartialFailure = errors.New("order persisted without items")

// ErrEmptyCart rejects a checkout with nothing in the cart.
var ErrEmptyCart = errors.New("cart is empty")

// ValidationError is a pre-persistence rejection of the checkout form.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Service runs checkouts against the order store.
type Service struct {
	orders  storage.OrderStore
	catalog storage.CatalogStore
	log     *logger.Logger
}

// NewService constructs a checkout service. The catalog store may be nil; it
// is only used to decrement stock after a sale.
func NewService(orders storage.OrderStore, catalog storage.CatalogStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("cart")
	}
	return &Service{orders: orders, catalog: catalog, log: log}
}

// Checkout persists the cart as an order. Unit prices are frozen from the
// products at this moment; later price edits do not touch the order. On
// success the cart is cleared. Persistence is header first, then items; if
// the items insert fails the header is deleted best-effort, and if that
// delete also fails the error wraps ErrPartialFailure.
func (s *Service) Checkout(ctx context.Context, c *Cart, info order.CustomerInfo) (order.Order, error) {
	if strings.TrimSpace(info.Name) == "" {
		return order.Order{}, &ValidationError{Field: "customer_name", Reason: "must not be empty"}
	}
	lines := c.Lines()
	if len(lines) == 0 {
		return order.Order{}, ErrEmptyCart
	}

	o := order.Order{
		UserID:        info.UserID,
		CustomerName:  strings.TrimSpace(info.Name),
		CustomerPhone: strings.TrimSpace(info.Phone),
		CustomerEmail: strings.TrimSpace(info.Email),
		Notes:         info.Notes,
		Source:        info.Source,
		Status:        order.StatusPending,
		TotalAmount:   c.Total(),
	}
	items := make([]order.Item, 0, len(lines))
	for _, l := range lines {
		items = append(items, order.Item{
			ProductID:   l.Product.ID,
			ProductName: l.Product.Name,
			Quantity:    l.Quantity,
			UnitPrice:   l.Product.Price,
			TotalPrice:  l.Total(),
		})
	}

	created, err := s.persist(ctx, o, items)
	if err != nil {
		result := "error"
		if errors.Is(err, ErrPartialFailure) {
			result = "partial"
		}
		metrics.RecordOrderCreated(info.Source, result)
		return order.Order{}, err
	}

	s.decrementStock(ctx, lines)
	c.Clear()
	metrics.RecordOrderCreated(info.Source, "ok")
	s.log.WithField("order_id", created.ID).
		WithField("items", len(created.Items)).
		WithField("total", created.TotalAmount.String()).
		Info("checkout complete")
	return created, nil
}

func (s *Service) persist(ctx context.Context, o order.Order, items []order.Item) (order.Order, error) {
	// A store with real transactions writes header and items atomically.
	if tx, ok := s.orders.(storage.TxOrderStore); ok {
		o.Items = items
		created, err := tx.CreateOrderWithItems(ctx, o)
		if err != nil {
			return order.Order{}, fmt.Errorf("create order: %w", err)
		}
		return created, nil
	}

	created, err := s.orders.CreateOrder(ctx, o)
	if err != nil {
		return order.Order{}, fmt.Errorf("create order: %w", err)
	}
	for i := range items {
		items[i].OrderID = created.ID
	}
	createdItems, err := s.orders.CreateOrderItems(ctx, items)
	if err == nil {
		created.Items = createdItems
		return created, nil
	}

	// Compensate: without the items the header is garbage. If the delete
	// fails too the order is left partially applied.
	if delErr := s.orders.DeleteOrder(ctx, created.ID); delErr != nil {
		s.log.WithError(delErr).WithField("order_id", created.ID).
			Error("compensating order delete failed")
		return order.Order{}, fmt.Errorf("create order items: %v: %w", err, ErrPartialFailure)
	}
	return order.Order{}, fmt.Errorf("create order items: %w", err)
}

// decrementStock is best effort: a failed decrement overstates stock, which
// is informational only at cart time.
func (s *Service) decrementStock(ctx context.Context, lines []Line) {
	if s.catalog == nil {
		return
	}
	for _, l := range lines {
		if err := s.catalog.AdjustStock(ctx, l.Product.ID, -l.Quantity); err != nil {
			s.log.WithError(err).WithField("product_id", l.Product.ID).
				Warn("stock decrement failed")
		}
	}
}
