// Package orders carries the fulfillment dashboard operations: listing,
// status transitions, approval and deletion.
package orders

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/mohammeioi/Market-Management-sub000/internal/app/domain/order"
	"github.com/mohammeioi/Market-Management-sub000/internal/app/metrics"
	"github.com/mohammeioi/Market-Management-sub000/internal/app/storage"
	"github.com/mohammeioi/Market-Management-sub000/pkg/logger"
)

// Service manages persisted orders.
type Service struct {
	store storage.OrderStore
	log   *logger.Logger
}

// New constructs an order service.
func New(store storage.OrderStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("orders")
	}
	return &Service{store: store, log: log}
}

// List returns all orders, newest first, with their items.
func (s *Service) List(ctx context.Context) ([]order.Order, error) {
	return s.store.ListOrders(ctx)
}

// Get returns one order with its items.
func (s *Service) Get(ctx context.Context, id string) (order.Order, error) {
	return s.store.GetOrder(ctx, id)
}

// UpdateStatus writes a new status unconditionally. The data model enforces
// no transition table: any status may move to any other, including out of
// delivered or cancelled.
func (s *Service) UpdateStatus(ctx context.Context, id string, status order.Status) (order.Order, error) {
	if !status.Known() {
		return order.Order{}, fmt.Errorf("unknown status %q", status)
	}
	o, err := s.store.UpdateOrderStatus(ctx, id, status)
	if err != nil {
		return order.Order{}, err
	}
	metrics.RecordOrderStatusChange(string(status))
	s.log.WithField("order_id", id).WithField("status", string(status)).
		Info("order status updated")
	return o, nil
}

// Approve stamps the approver onto the order if no one approved it yet. The
// first approver wins; later calls return the order unchanged.
func (s *Service) Approve(ctx context.Context, id, approver string) (order.Order, error) {
	approver = strings.TrimSpace(approver)
	if approver == "" {
		return order.Order{}, fmt.Errorf("approver is required")
	}
	o, err := s.store.ApproveOrder(ctx, id, approver)
	if err != nil {
		return order.Order{}, err
	}
	if o.ApprovedBy == approver {
		s.log.WithField("order_id", id).WithField("approved_by", approver).
			Info("order approved")
	}
	return o, nil
}

// Delete removes an order: line items first, then the header. If the header
// delete fails after the items are gone, the order is left with no items and
// the error is surfaced to the caller.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteOrderItems(ctx, id); err != nil {
		return fmt.Errorf("delete order items: %w", err)
	}
	if err := s.store.DeleteOrder(ctx, id); err != nil {
		return fmt.Errorf("delete order header: %w", err)
	}
	s.log.WithField("order_id", id).Info("order deleted")
	return nil
}

// WhatsAppLink builds a wa.me deep link that opens a chat with the customer
// prefilled with an order summary. Returns empty when the order has no phone.
func WhatsAppLink(o order.Order) string {
	phone := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, o.CustomerPhone)
	if phone == "" {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Order %s for %s\n", o.ID, o.CustomerName)
	for _, it := range o.Items {
		fmt.Fprintf(&b, "%dx %s\n", it.Quantity, it.ProductName)
	}
	fmt.Fprintf(&b, "Total: %s", o.TotalAmount.String())
	return "https://wa.me/" + phone + "?text=" + url.QueryEscape(b.String())
}
