package bookstore

import (
	"fmt"

	"github.com/iced-penguin/bookstore-order-management/pkg/bookstore/bus"
	"github.com/iced-penguin/bookstore-order-management/pkg/bookstore/config"
	"github.com/iced-penguin/bookstore-order-management/pkg/bookstore/observability"
	"github.com/iced-penguin/bookstore-order-management/pkg/bookstore/saga"
	"github.com/iced-penguin/bookstore-order-management/pkg/bookstore/store"
)

// SagaStores bundles the dependencies the choreography handlers share.
type SagaStores struct {
	Orders      store.OrderStore
	Inventories store.InventoryStore
	Tracker     saga.ProcessedEventStore
	Logger      observability.Logger
}

// RegisterSagaHandlers subscribes the full fulfillment choreography on the
// bus: the forward steps (reservation, shipping, delivery), their
// compensation handlers, the coordinator, and the observers (notification,
// eventual-consistency verification, compensation completion).
func RegisterSagaHandlers(b *bus.InMemoryBus, deps SagaStores) {
	b.SubscribeOrderConfirmed(saga.NewInventoryReservationHandler(
		deps.Orders, deps.Inventories, b, deps.Tracker, deps.Logger))
	b.SubscribeInventoryReserved(saga.NewShippingHandler(
		deps.Orders, b, deps.Tracker, deps.Logger))
	b.SubscribeOrderShipped(saga.NewDeliveryHandler(
		deps.Orders, b, deps.Tracker, deps.Logger))

	b.SubscribeInventoryReservationFailed(saga.NewInventoryReservationFailureCompensationHandler(
		deps.Orders, b, deps.Tracker, deps.Logger))
	b.SubscribeShippingFailed(saga.NewShippingFailureCompensationHandler(
		deps.Orders, deps.Inventories, b, deps.Tracker, deps.Logger))
	b.SubscribeDeliveryFailed(saga.NewDeliveryFailureCompensationHandler(deps.Logger))

	b.SubscribeSagaCompensationStarted(saga.NewSagaCompensationCoordinator(b, deps.Logger))
	b.SubscribeSagaCompensationCompleted(saga.NewCompensationCompletionHandler(deps.Logger))

	b.Subscribe(saga.NewNotificationHandler(deps.Logger))
	b.Subscribe(saga.NewEventualConsistencyVerifier(deps.Orders, deps.Inventories, deps.Logger))
}

// App is a fully wired in-process instance of the system.
type App struct {
	Bus       *bus.InMemoryBus
	Orders    *OrderService
	Inventory *InventoryService

	tracker saga.ProcessedEventStore
}

// Setup builds an App from configuration: an event bus with the configured
// retry and dead-letter settings, in-memory stores, a processed-event
// tracker (SQLite when tracker.path is set), and all saga handlers
// registered.
func Setup(cfg config.Config, logger observability.Logger) (*App, error) {
	if logger == nil {
		logger = observability.NoopLogger{}
	}

	var tracker saga.ProcessedEventStore
	if path := cfg.TrackerPath(); path != "" {
		sqliteTracker, err := saga.NewSQLiteTracker(path)
		if err != nil {
			return nil, fmt.Errorf("open tracker: %w", err)
		}
		tracker = sqliteTracker
	} else {
		tracker = saga.NewTracker()
	}

	orders := store.NewMemoryOrderStore()
	inventories := store.NewMemoryInventoryStore()

	b := bus.New(
		bus.WithConfig(cfg.BusConfig()),
		bus.WithLogger(logger),
		bus.WithMetrics(observability.NewMetricsRecorder()),
	)
	RegisterSagaHandlers(b, SagaStores{
		Orders:      orders,
		Inventories: inventories,
		Tracker:     tracker,
		Logger:      logger,
	})

	return &App{
		Bus:       b,
		Orders:    NewOrderService(orders, b, logger),
		Inventory: NewInventoryService(inventories, cfg.LowStockThreshold(), logger),
		tracker:   tracker,
	}, nil
}

// Close releases resources held by the app, such as the SQLite tracker.
func (a *App) Close() error {
	if closer, ok := a.tracker.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
