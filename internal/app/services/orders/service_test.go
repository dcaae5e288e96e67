package orders

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mohammeioi/Market-Management-sub000/internal/app/domain/order"
	"github.com/mohammeioi/Market-Management-sub000/internal/app/storage"
	"github.com/mohammeioi/Market-Management-sub000/internal/app/storage/memory"
	"github.com/mohammeioi/Market-Management-sub000/pkg/logger"
)

func seedOrder(t *testing.T, store *memory.Store) order.Order {
	t.Helper()
	o, err := store.CreateOrder(context.Background(), order.Order{
		CustomerName:  "Ali",
		CustomerPhone: "+964 770 123 4567",
		TotalAmount:   decimal.NewFromInt(2500),
		Status:        order.StatusPending,
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	items := []order.Item{{
		OrderID:     o.ID,
		ProductName: "Espresso",
		Quantity:    2,
		UnitPrice:   decimal.NewFromInt(1000),
		TotalPrice:  decimal.NewFromInt(2000),
	}}
	if _, err := store.CreateOrderItems(context.Background(), items); err != nil {
		t.Fatalf("create items: %v", err)
	}
	return o
}

func TestUpdateStatusUnconditional(t *testing.T) {
	store := memory.New()
	svc := New(store, logger.Nop())
	o := seedOrder(t, store)

	// Any status may move to any other, including backwards.
	for _, status := range []order.Status{
		order.StatusDelivered,
		order.StatusPending,
		order.StatusCancelled,
		order.StatusPreparing,
	} {
		updated, err := svc.UpdateStatus(context.Background(), o.ID, status)
		if err != nil {
			t.Fatalf("update to %s: %v", status, err)
		}
		if updated.Status != status {
			t.Fatalf("expected status %s, got %s", status, updated.Status)
		}
	}
}

func TestUpdateStatusRejectsUnknown(t *testing.T) {
	store := memory.New()
	svc := New(store, logger.Nop())
	o := seedOrder(t, store)

	if _, err := svc.UpdateStatus(context.Background(), o.ID, "shipped-to-mars"); err == nil {
		t.Fatalf("unknown status must be rejected")
	}
}

func TestApproveFirstWriterWins(t *testing.T) {
	store := memory.New()
	svc := New(store, logger.Nop())
	o := seedOrder(t, store)

	first, err := svc.Approve(context.Background(), o.ID, "alice")
	if err != nil {
		t.Fatalf("first approve: %v", err)
	}
	if first.ApprovedBy != "alice" {
		t.Fatalf("expected approver alice, got %q", first.ApprovedBy)
	}

	second, err := svc.Approve(context.Background(), o.ID, "bob")
	if err != nil {
		t.Fatalf("second approve: %v", err)
	}
	if second.ApprovedBy != "alice" {
		t.Fatalf("first approver must win, got %q", second.ApprovedBy)
	}
}

func TestApproveRequiresApprover(t *testing.T) {
	store := memory.New()
	svc := New(store, logger.Nop())
	o := seedOrder(t, store)

	if _, err := svc.Approve(context.Background(), o.ID, "  "); err == nil {
		t.Fatalf("blank approver must be rejected")
	}
}

func TestDeleteRemovesItemsAndHeader(t *testing.T) {
	store := memory.New()
	svc := New(store, logger.Nop())
	o := seedOrder(t, store)

	if err := svc.Delete(context.Background(), o.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetOrder(context.Background(), o.ID); err != storage.ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestWhatsAppLink(t *testing.T) {
	o := order.Order{
		ID:            "o1",
		CustomerName:  "Ali",
		CustomerPhone: "+964 (770) 123-4567",
		TotalAmount:   decimal.NewFromInt(2500),
		Items: []order.Item{
			{ProductName: "Espresso", Quantity: 2},
		},
	}

	link := WhatsAppLink(o)
	if !strings.HasPrefix(link, "https://wa.me/9647701234567?text=") {
		t.Fatalf("unexpected link prefix: %s", link)
	}
	if !strings.Contains(link, "Espresso") {
		t.Fatalf("summary must mention the items: %s", link)
	}
}

func TestWhatsAppLinkNoPhone(t *testing.T) {
	if link := WhatsAppLink(order.Order{ID: "o1"}); link != "" {
		t.Fatalf("expected empty link without a phone, got %s", link)
	}
}
