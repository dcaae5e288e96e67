// Package catalog serves paginated and searched product listings on top of a
// time-boxed page cache, and carries the product/category admin operations.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mohammeioi/Market-Management-sub000/internal/app/domain/catalog"
	"github.com/mohammeioi/Market-Management-sub000/internal/app/metrics"
	"github.com/mohammeioi/Market-Management-sub000/internal/app/storage"
	"github.com/mohammeioi/Market-Management-sub000/pkg/logger"
)

const (
	// PageSize is a fixed contract with the storefront: a page shorter than
	// PageSize records means there are no further pages.
	PageSize = 20

	// DefaultTTL is how long a cached page stays valid.
	DefaultTTL = 60 * time.Second
)

// ErrSuperseded reports that a newer fetch was issued for the same page while
// this one was in flight. The caller should drop the result; the newer fetch
// will populate the listing.
var ErrSuperseded = errors.New("fetch superseded by a newer request")

// Page is one screen of products.
type Page struct {
	Products []catalog.Product
	Page     int
	HasMore  bool
}

type cacheKey struct {
	categoryID string
	page       int
}

type cacheEntry struct {
	products []catalog.Product
	storedAt time.Time
}

// Service is the catalog cache and pager.
type Service struct {
	store storage.CatalogStore
	log   *logger.Logger

	mu    sync.Mutex
	cache map[cacheKey]cacheEntry
	seq   map[cacheKey]uint64
	ttl   time.Duration
	now   func() time.Time
}

// New constructs a catalog service with the default validity window.
func New(store storage.CatalogStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("catalog")
	}
	return &Service{
		store: store,
		log:   log,
		cache: make(map[cacheKey]cacheEntry),
		seq:   make(map[cacheKey]uint64),
		ttl:   DefaultTTL,
		now:   func() time.Time { return time.Now() },
	}
}

// WithClock overrides the cache clock. Tests use this to step past the
// validity window without sleeping.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithTTL overrides the cache validity window.
func (s *Service) WithTTL(ttl time.Duration) *Service {
	s.ttl = ttl
	return s
}

// FetchPage returns one page of products, newest first, optionally filtered
// by category. A fresh cache entry is returned without a remote call. Page 0
// is the start of a listing; the storefront appends pages > 0 to what it
// already shows.
func (s *Service) FetchPage(ctx context.Context, categoryID string, page int) (Page, error) {
	if page < 0 {
		return Page{}, fmt.Errorf("page must be >= 0, got %d", page)
	}
	key := cacheKey{categoryID: categoryID, page: page}

	s.mu.Lock()
	if entry, ok := s.cache[key]; ok && s.now().Sub(entry.storedAt) < s.ttl {
		s.mu.Unlock()
		metrics.RecordCacheLookup(true)
		return Page{Products: entry.products, Page: page, HasMore: len(entry.products) == PageSize}, nil
	}
	s.seq[key]++
	seq := s.seq[key]
	s.mu.Unlock()
	metrics.RecordCacheLookup(false)

	start := s.now()
	products, err := s.store.ListProducts(ctx, storage.ProductQuery{
		CategoryID: categoryID,
		Offset:     page * PageSize,
		Limit:      PageSize,
	})
	metrics.RecordCatalogFetch(s.now().Sub(start))
	if err != nil {
		// Prior cache entries stay untouched so the storefront keeps its
		// last good listing.
		return Page{}, fmt.Errorf("fetch products page %d: %w", page, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seq[key] != seq {
		return Page{}, ErrSuperseded
	}
	s.cache[key] = cacheEntry{products: products, storedAt: s.now()}
	return Page{Products: products, Page: page, HasMore: len(products) == PageSize}, nil
}

// Search performs a one-shot lookup, bypassing the page cache. An empty query
// falls back to the first uncategorized page. An all-digit query longer than
// three characters is treated as a barcode and matched exactly; anything else
// is a case-insensitive substring match on the product name. Results are
// capped at PageSize and never paginate.
func (s *Service) Search(ctx context.Context, query string) (Page, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.FetchPage(ctx, "", 0)
	}

	if isBarcode(query) {
		p, err := s.store.GetProductByBarcode(ctx, query)
		if errors.Is(err, storage.ErrNotFound) {
			return Page{}, nil
		}
		if err != nil {
			return Page{}, fmt.Errorf("barcode lookup: %w", err)
		}
		return Page{Products: []catalog.Product{p}}, nil
	}

	products, err := s.store.SearchProductsByName(ctx, query, PageSize)
	if err != nil {
		return Page{}, fmt.Errorf("search products: %w", err)
	}
	if len(products) > PageSize {
		products = products[:PageSize]
	}
	return Page{Products: products}, nil
}

func isBarcode(q string) bool {
	if len(q) <= 3 {
		return false
	}
	for _, r := range q {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Invalidate drops every cached page. Called after any catalog write so the
// next read observes the mutation; in-flight fetches started before the call
// are discarded on arrival.
func (s *Service) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[cacheKey]cacheEntry)
	for key := range s.seq {
		s.seq[key]++
	}
	s.log.Debug("catalog cache invalidated")
}

// HandleRemoteChange is the realtime subscription hook: any reported change
// to a catalog table drops the cache rather than patching it incrementally.
func (s *Service) HandleRemoteChange(table string) {
	s.log.WithField("table", table).Debug("remote change received")
	s.Invalidate()
}

// --- admin: products ---------------------------------------------------------

func validateProduct(p catalog.Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("price must not be negative")
	}
	if p.Stock < 0 {
		return fmt.Errorf("stock must not be negative")
	}
	return nil
}

// GetProduct returns one product by id.
func (s *Service) GetProduct(ctx context.Context, id string) (catalog.Product, error) {
	return s.store.GetProduct(ctx, id)
}

// ListVariants returns the variant products of a parent.
func (s *Service) ListVariants(ctx context.Context, parentID string) ([]catalog.Product, error) {
	return s.store.ListVariants(ctx, parentID)
}

// CreateProduct validates and persists a new product, then drops the cache.
func (s *Service) CreateProduct(ctx context.Context, p catalog.Product) (catalog.Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	if err := validateProduct(p); err != nil {
		return catalog.Product{}, err
	}
	created, err := s.store.CreateProduct(ctx, p)
	if err != nil {
		return catalog.Product{}, err
	}
	s.Invalidate()
	s.log.WithField("product_id", created.ID).WithField("name", created.Name).
		Info("product created")
	return created, nil
}

// UpdateProduct validates and persists changes to a product.
func (s *Service) UpdateProduct(ctx context.Context, p catalog.Product) (catalog.Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.ID == "" {
		return catalog.Product{}, fmt.Errorf("id is required")
	}
	if err := validateProduct(p); err != nil {
		return catalog.Product{}, err
	}
	updated, err := s.store.UpdateProduct(ctx, p)
	if err != nil {
		return catalog.Product{}, err
	}
	s.Invalidate()
	s.log.WithField("product_id", updated.ID).Info("product updated")
	return updated, nil
}

// DeleteProduct removes a product.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.Invalidate()
	s.log.WithField("product_id", id).Info("product deleted")
	return nil
}

// SetAvailability toggles the storefront availability flag.
func (s *Service) SetAvailability(ctx context.Context, id string, available bool) error {
	if err := s.store.SetProductAvailability(ctx, id, available); err != nil {
		return err
	}
	s.Invalidate()
	s.log.WithField("product_id", id).WithField("available", available).
		Info("product availability changed")
	return nil
}

// ErrImagesUnsupported reports that the configured backend has nowhere to
// keep image binaries.
var ErrImagesUnsupported = errors.New("backend does not store product images")

// UploadProductImage stores a product's display image and drops the cache so
// listings pick up the new URL.
func (s *Service) UploadProductImage(ctx context.Context, id string, data []byte, contentType string) (string, error) {
	images, ok := s.store.(storage.ImageStore)
	if !ok {
		return "", ErrImagesUnsupported
	}
	if len(data) == 0 {
		return "", fmt.Errorf("image payload is empty")
	}
	url, err := images.UploadProductImage(ctx, id, data, contentType)
	if err != nil {
		return "", err
	}
	s.Invalidate()
	s.log.WithField("product_id", id).WithField("bytes", len(data)).
		Info("product image uploaded")
	return url, nil
}

// ProductImage returns the stored image bytes and their content type.
func (s *Service) ProductImage(ctx context.Context, id string) ([]byte, string, error) {
	images, ok := s.store.(storage.ImageStore)
	if !ok {
		return nil, "", ErrImagesUnsupported
	}
	return images.DownloadProductImage(ctx, id)
}

// --- admin: categories -------------------------------------------------------

// ListCategories returns all categories.
func (s *Service) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	return s.store.ListCategories(ctx)
}

// CreateCategory persists a new category.
func (s *Service) CreateCategory(ctx context.Context, name string) (catalog.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return catalog.Category{}, fmt.Errorf("name is required")
	}
	c, err := s.store.CreateCategory(ctx, name)
	if err != nil {
		return catalog.Category{}, err
	}
	s.Invalidate()
	s.log.WithField("category_id", c.ID).WithField("name", c.Name).
		Info("category created")
	return c, nil
}

// RenameCategory changes a category's display name.
func (s *Service) RenameCategory(ctx context.Context, id, name string) (catalog.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return catalog.Category{}, fmt.Errorf("name is required")
	}
	c, err := s.store.RenameCategory(ctx, id, name)
	if err != nil {
		return catalog.Category{}, err
	}
	s.Invalidate()
	return c, nil
}

// DeleteCategory removes a category. Products referencing it are left
// unassigned rather than deleted.
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	if err := s.store.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.Invalidate()
	s.log.WithField("category_id", id).Info("category deleted")
	return nil
}
