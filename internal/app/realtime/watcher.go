// Package realtime bridges the gateway's change-subscription channel to the
// catalog cache. Any reported change to a watched table drops the cache; the
// next read re-fetches the full list instead of patching incrementally.
package realtime

import (
	"context"

	"github.com/mohammeioi/Market-Management-sub000/pkg/logger"
	"github.com/mohammeioi/Market-Management-sub000/supabase/client"
)

// Invalidator receives change notifications for a table.
type Invalidator interface {
	HandleRemoteChange(table string)
}

// Watcher subscribes to postgres change events for the catalog tables and
// forwards them to the invalidator. It satisfies the lifecycle service
// contract so the application manager owns its teardown.
type Watcher struct {
	rc       *client.RealtimeClient
	target   Invalidator
	tables   []string
	onOrder  func()
	log      *logger.Logger
	channels []*client.Channel
}

// NewWatcher builds a watcher over the given tables.
func NewWatcher(rc *client.RealtimeClient, target Invalidator, tables []string, log *logger.Logger) *Watcher {
	if log == nil {
		log = logger.NewDefault("realtime")
	}
	if len(tables) == 0 {
		tables = []string{"products", "categories"}
	}
	return &Watcher{rc: rc, target: target, tables: tables, log: log}
}

// NotifyOrders registers a callback fired on every new order row. Call before
// Start. The dashboard uses it to re-fetch its order list.
func (w *Watcher) NotifyOrders(fn func()) {
	w.onOrder = fn
}

func (w *Watcher) Name() string { return "realtime-watcher" }

// Start connects the websocket and joins one channel per table.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.rc.Connect(ctx); err != nil {
		return err
	}
	for _, table := range w.tables {
		table := table
		ch, err := w.rc.SubscribeToPostgresChanges(ctx, client.PostgresChangesConfig{
			Event:  "*",
			Schema: "public",
			Table:  table,
		}, func(_ *client.RealtimeEvent) {
			w.target.HandleRemoteChange(table)
		})
		if err != nil {
			return err
		}
		w.channels = append(w.channels, ch)
		w.log.WithField("table", table).Info("watching table changes")
	}

	if w.onOrder != nil {
		ch, err := w.rc.SubscribeToPostgresChanges(ctx, client.PostgresChangesConfig{
			Event:  "INSERT",
			Schema: "public",
			Table:  "orders",
		}, func(_ *client.RealtimeEvent) {
			w.onOrder()
		})
		if err != nil {
			return err
		}
		w.channels = append(w.channels, ch)
		w.log.Info("watching new orders")
	}
	return nil
}

// Stop leaves all channels and closes the connection.
func (w *Watcher) Stop(ctx context.Context) error {
	for _, ch := range w.channels {
		if err := ch.Unsubscribe(ctx); err != nil {
			w.log.WithError(err).Warn("channel unsubscribe failed")
		}
	}
	w.channels = nil
	return w.rc.Disconnect()
}
