// Command seed loads a demo catalog into the configured backend. Writes go
// through the retrying client since a bulk load is the one place where
// automatic retry is safe.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/mohammeioi/Market-Management-sub000/internal/app/domain/catalog"
	"github.com/mohammeioi/Market-Management-sub000/internal/app/storage"
	"github.com/mohammeioi/Market-Management-sub000/internal/app/storage/postgres"
	storesupabase "github.com/mohammeioi/Market-Management-sub000/internal/app/storage/supabase"
	"github.com/mohammeioi/Market-Management-sub000/internal/config"
	"github.com/mohammeioi/Market-Management-sub000/supabase/client"
)

type seedProduct struct {
	name     string
	price    string
	category string
	stock    int
	barcode  string
}

var seedCatalog = []seedProduct{
	{"Espresso", "2.50", "Drinks", 100, "1000001"},
	{"Cappuccino", "3.50", "Drinks", 100, "1000002"},
	{"Fresh Orange Juice", "4.00", "Drinks", 40, "1000003"},
	{"Margherita Pizza", "9.00", "Food", 25, "2000001"},
	{"Chicken Shawarma", "6.50", "Food", 50, "2000002"},
	{"Falafel Wrap", "5.00", "Food", 50, "2000003"},
	{"Baklava", "3.00", "Desserts", 30, "3000001"},
	{"Kunafa", "4.50", "Desserts", 20, "3000002"},
	{"Mineral Water", "1.00", "Drinks", 200, "1000004"},
	{"Lentil Soup", "3.50", "Food", 35, "2000004"},
}

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "path to the YAML config file")
		envFile    = flag.String("env", ".env", "path to an optional .env file")
	)
	flag.Parse()

	_ = godotenv.Load(*envFile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load configuration: %v", err)
	}

	ctx := context.Background()
	store, cleanup, err := buildStore(ctx, cfg)
	if err != nil {
		log.Fatalf("initialise storage: %v", err)
	}
	defer cleanup()

	categories := make(map[string]string)
	for _, sp := range seedCatalog {
		if _, ok := categories[sp.category]; ok {
			continue
		}
		c, err := store.CreateCategory(ctx, sp.category)
		if err != nil {
			log.Fatalf("create category %q: %v", sp.category, err)
		}
		categories[sp.category] = c.ID
	}

	products := make([]catalog.Product, 0, len(seedCatalog))
	for _, sp := range seedCatalog {
		price, err := decimal.NewFromString(sp.price)
		if err != nil {
			log.Fatalf("bad seed price %q: %v", sp.price, err)
		}
		products = append(products, catalog.Product{
			Name:       sp.name,
			Price:      price,
			CategoryID: categories[sp.category],
			Stock:      sp.stock,
			Barcode:    sp.barcode,
			Available:  true,
		})
	}

	created, err := store.CreateProducts(ctx, products)
	if err != nil {
		log.Fatalf("insert products: %v", err)
	}
	log.Printf("seeded %d categories and %d products", len(categories), len(created))
}

func buildStore(ctx context.Context, cfg config.Config) (storage.CatalogStore, func(), error) {
	noop := func() {}

	switch cfg.Storage.Backend {
	case "postgres":
		store, err := postgres.Open(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, noop, err
		}
		return store, func() { _ = store.Close() }, nil

	case "supabase":
		serviceKey := os.Getenv("SUPABASE_SERVICE_ROLE_KEY")
		if serviceKey == "" {
			serviceKey = cfg.Supabase.APIKey
		}
		c, err := client.NewResilient(client.Config{
			URL:    cfg.Supabase.URL,
			APIKey: serviceKey,
		}, client.DefaultRetryConfig(), client.DefaultCircuitBreakerConfig())
		if err != nil {
			return nil, noop, err
		}
		return storesupabase.New(c), noop, nil

	default:
		log.Fatalf("seed requires a persistent backend, got %q", cfg.Storage.Backend)
		return nil, noop, nil
	}
}
