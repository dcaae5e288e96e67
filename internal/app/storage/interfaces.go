package storage

import (
	"context"
	"errors"

	"github.com/mohammeioi/Market-Management-sub000/internal/app/domain/catalog"
	"github.com/mohammeioi/Market-Management-sub000/internal/app/domain/order"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ProductQuery selects one page of the catalog. Offset/Limit map to the
// gateway's range pagination; CategoryID narrows to one category when set.
type ProductQuery struct {
	CategoryID string
	Offset     int
	Limit      int
}

// CatalogStore persists products and categories.
type CatalogStore interface {
	ListProducts(ctx context.Context, q ProductQuery) ([]catalog.Product, error)
	SearchProductsByName(ctx context.Context, query string, limit int) ([]catalog.Product, error)
	GetProductByBarcode(ctx context.Context, barcode string) (catalog.Product, error)
	GetProduct(ctx context.Context, id string) (catalog.Product, error)
	ListVariants(ctx context.Context, parentID string) ([]catalog.Product, error)

	CreateProduct(ctx context.Context, p catalog.Product) (catalog.Product, error)
	CreateProducts(ctx context.Context, ps []catalog.Product) ([]catalog.Product, error)
	UpdateProduct(ctx context.Context, p catalog.Product) (catalog.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	SetProductAvailability(ctx context.Context, id string, available bool) error
	AdjustStock(ctx context.Context, id string, delta int) error

	ListCategories(ctx context.Context) ([]catalog.Category, error)
	CreateCategory(ctx context.Context, name string) (catalog.Category, error)
	RenameCategory(ctx context.Context, id, name string) (catalog.Category, error)
	// DeleteCategory removes the category and unassigns its products.
	DeleteCategory(ctx context.Context, id string) error
}

// ImageStore is implemented by backends that can hold product image
// binaries. UploadProductImage records the resulting URL on the product row
// and returns it; DownloadProductImage returns the bytes and content type.
type ImageStore interface {
	UploadProductImage(ctx context.Context, productID string, data []byte, contentType string) (string, error)
	DownloadProductImage(ctx context.Context, productID string) ([]byte, string, error)
}

// OrderStore persists orders and their line items. Header and item writes are
// separate operations; callers own the two-step checkout and its
// compensating delete.
type OrderStore interface {
	CreateOrder(ctx context.Context, o order.Order) (order.Order, error)
	CreateOrderItems(ctx context.Context, items []order.Item) ([]order.Item, error)
	GetOrder(ctx context.Context, id string) (order.Order, error)
	ListOrders(ctx context.Context) ([]order.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status order.Status) (order.Order, error)
	// ApproveOrder sets approved_by only when it is currently unset and
	// returns the resulting order either way.
	ApproveOrder(ctx context.Context, id, approver string) (order.Order, error)
	DeleteOrderItems(ctx context.Context, orderID string) error
	DeleteOrder(ctx context.Context, id string) error
}

// TxOrderStore is implemented by stores that can persist an order and its
// items atomically. The checkout path prefers this when available and falls
// back to the two-step insert otherwise.
type TxOrderStore interface {
	CreateOrderWithItems(ctx context.Context, o order.Order) (order.Order, error)
}
