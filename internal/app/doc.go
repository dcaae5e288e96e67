// Package app composes the storefront services into a running application.
//
// It owns wiring and lifecycle only; business logic lives in
// internal/app/services/. The layout follows a repository pattern:
//
//	internal/app/
//	├── application.go      # Application struct, wiring, and lifecycle
//	├── domain/             # Domain models (pure data structures)
//	│   ├── catalog/        # Products and categories
//	│   ├── order/          # Orders, items and checkout forms
//	│   └── attendance/     # Clock-in records
//	├── storage/            # Store interfaces and implementations
//	│   ├── interfaces.go   # CatalogStore, OrderStore, TxOrderStore
//	│   ├── memory/         # In-memory implementation for tests
//	│   ├── supabase/       # Hosted gateway implementation
//	│   └── postgres/       # Direct PostgreSQL implementation
//	├── services/           # Business logic (catalog, cart, orders, attendance)
//	├── httpapi/            # REST handlers and routing
//	├── realtime/           # Gateway change subscription to cache invalidation
//	├── system/             # Lifecycle manager
//	└── metrics/            # Prometheus collectors
//
// Adding a new domain means: models under domain/, a store interface in
// storage/interfaces.go, implementations under storage/, a service under
// services/, wiring in application.go and handlers in httpapi/.
package app
