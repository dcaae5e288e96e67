package app

import (
	"context"
	"fmt"

	"github.com/mohammeioi/Market-Management-sub000/internal/app/realtime"
	attendancesvc "github.com/mohammeioi/Market-Management-sub000/internal/app/services/attendance"
	"github.com/mohammeioi/Market-Management-sub000/internal/app/services/cart"
	catalogsvc "github.com/mohammeioi/Market-Management-sub000/internal/app/services/catalog"
	orderssvc "github.com/mohammeioi/Market-Management-sub000/internal/app/services/orders"
	"github.com/mohammeioi/Market-Management-sub000/internal/app/storage"
	"github.com/mohammeioi/Market-Management-sub000/internal/app/storage/memory"
	"github.com/mohammeioi/Market-Management-sub000/internal/app/system"
	"github.com/mohammeioi/Market-Management-sub000/pkg/logger"
	"github.com/mohammeioi/Market-Management-sub000/supabase/client"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Catalog storage.CatalogStore
	Orders  storage.OrderStore
}

// Options carries application-level settings that are not store wiring.
type Options struct {
	// AttendancePath is the local state file for the clock-in gate.
	AttendancePath string
}

// Application ties the storefront services together and manages their
// lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Catalog    *catalogsvc.Service
	Cart       *cart.Cart
	Checkout   *cart.Service
	Orders     *orderssvc.Service
	Attendance *attendancesvc.Service
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Catalog == nil {
		stores.Catalog = mem
	}
	if stores.Orders == nil {
		stores.Orders = mem
	}
	if opts.AttendancePath == "" {
		opts.AttendancePath = "data/attendance.json"
	}

	manager := system.NewManager()

	catalogService := catalogsvc.New(stores.Catalog, log)
	checkoutService := cart.NewService(stores.Orders, stores.Catalog, log)
	orderService := orderssvc.New(stores.Orders, log)
	attendanceService, err := attendancesvc.New(opts.AttendancePath, log)
	if err != nil {
		return nil, fmt.Errorf("init attendance gate: %w", err)
	}

	for _, name := range []string{"catalog", "checkout", "orders", "attendance"} {
		if err := manager.Register(system.NoopService{ServiceName: name}); err != nil {
			return nil, fmt.Errorf("register %s service: %w", name, err)
		}
	}

	return &Application{
		manager:    manager,
		log:        log,
		Catalog:    catalogService,
		Cart:       cart.New(),
		Checkout:   checkoutService,
		Orders:     orderService,
		Attendance: attendanceService,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// AttachRealtime wires the gateway's change channel to catalog cache
// invalidation and surfaces new orders in the log. Call before Start.
func (a *Application) AttachRealtime(rc *client.RealtimeClient) error {
	watcher := realtime.NewWatcher(rc, a.Catalog, nil, a.log)
	watcher.NotifyOrders(func() {
		a.log.Info("new order received")
	})
	return a.manager.Register(watcher)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
