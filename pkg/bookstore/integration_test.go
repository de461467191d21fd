package bookstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iced-penguin/bookstore-order-management/pkg/bookstore/bus"
	"github.com/iced-penguin/bookstore-order-management/pkg/bookstore/config"
	"github.com/iced-penguin/bookstore-order-management/pkg/bookstore/domain"
	"github.com/iced-penguin/bookstore-order-management/pkg/bookstore/saga"
	"github.com/iced-penguin/bookstore-order-management/pkg/bookstore/store"
)

func setupApp(t *testing.T) *App {
	t.Helper()
	app, err := Setup(config.New(nil), nil)
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })
	return app
}

// preparedOrder creates an order with one line and a shipping address,
// ready to confirm.
func preparedOrder(t *testing.T, ctx context.Context, app *App, quantity int, unitPrice int64) (domain.OrderID, domain.BookID) {
	t.Helper()

	orderID, err := app.Orders.CreateOrder(ctx, domain.NewCustomerID())
	require.NoError(t, err)

	bookID := domain.NewBookID()
	require.NoError(t, app.Orders.AddBook(ctx, orderID, bookID, quantity, domain.Yen(unitPrice)))

	addr, err := domain.NewShippingAddress("1500001", "Tokyo", "Shibuya", "1-2-3 Jinnan", "Hikarie 5F")
	require.NoError(t, err)
	require.NoError(t, app.Orders.SetShippingAddress(ctx, orderID, addr))

	return orderID, bookID
}

func TestFulfillment_ConfirmCascadesToDelivered(t *testing.T) {
	ctx := context.Background()
	app := setupApp(t)

	orderID, bookID := preparedOrder(t, ctx, app, 3, 1000)
	require.NoError(t, app.Inventory.AddStock(ctx, bookID, 10))

	require.NoError(t, app.Orders.ConfirmOrder(ctx, orderID))

	// with the full choreography registered, the confirmation cascades
	// synchronously: reserve, ship, deliver
	order, err := app.Orders.GetOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusDelivered, order.Status())

	inventory, err := app.Inventory.GetInventory(ctx, bookID)
	require.NoError(t, err)
	assert.Equal(t, 7, inventory.QuantityOnHand())

	assert.Equal(t, 0, app.Bus.DeadLetterLen())
}

func TestFulfillment_ReservationOnlyWiring(t *testing.T) {
	ctx := context.Background()

	orders := store.NewMemoryOrderStore()
	inventories := store.NewMemoryInventoryStore()
	b := bus.New()
	b.SubscribeOrderConfirmed(saga.NewInventoryReservationHandler(
		orders, inventories, b, saga.NewTracker(), nil))

	orderService := NewOrderService(orders, b, nil)
	inventoryService := NewInventoryService(inventories, 5, nil)

	orderID, err := orderService.CreateOrder(ctx, domain.NewCustomerID())
	require.NoError(t, err)
	bookID := domain.NewBookID()
	require.NoError(t, orderService.AddBook(ctx, orderID, bookID, 3, domain.Yen(1000)))
	addr, err := domain.NewShippingAddress("1500001", "Tokyo", "Shibuya", "1-2-3 Jinnan", "")
	require.NoError(t, err)
	require.NoError(t, orderService.SetShippingAddress(ctx, orderID, addr))
	require.NoError(t, inventoryService.AddStock(ctx, bookID, 10))

	require.NoError(t, orderService.ConfirmOrder(ctx, orderID))

	// without shipping and delivery handlers the saga stops after the
	// reservation step
	order, err := orderService.GetOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, order.Status())

	inventory, err := inventoryService.GetInventory(ctx, bookID)
	require.NoError(t, err)
	assert.Equal(t, 7, inventory.QuantityOnHand())
}

func TestFulfillment_InsufficientStockCancelsOrder(t *testing.T) {
	ctx := context.Background()
	app := setupApp(t)

	orderID, bookID := preparedOrder(t, ctx, app, 5, 1000)
	require.NoError(t, app.Inventory.AddStock(ctx, bookID, 2))

	require.NoError(t, app.Orders.ConfirmOrder(ctx, orderID))

	// the reservation fails, InventoryReservationFailed triggers the
	// compensation handler, and the order ends up cancelled
	order, err := app.Orders.GetOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, order.Status())

	inventory, err := app.Inventory.GetInventory(ctx, bookID)
	require.NoError(t, err)
	assert.Equal(t, 2, inventory.QuantityOnHand(), "failed reservations leave stock untouched")

	// the reservation handler's terminal failure lands in the dead letter
	// queue for inspection
	entries := app.Bus.DeadLetterEntries()
	require.NotEmpty(t, entries)
	assert.Equal(t, "inventory-reservation-handler", entries[0].HandlerName)
}

func TestFulfillment_UnknownBookCancelsOrder(t *testing.T) {
	ctx := context.Background()
	app := setupApp(t)

	// no stock record is ever created for the book
	orderID, _ := preparedOrder(t, ctx, app, 1, 1000)

	require.NoError(t, app.Orders.ConfirmOrder(ctx, orderID))

	order, err := app.Orders.GetOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, order.Status())
}

func TestFulfillment_CancelConfirmedOrderBeforeFulfillment(t *testing.T) {
	ctx := context.Background()

	// only the notification observer is registered, so confirmation does
	// not cascade and the order can still be cancelled
	orders := store.NewMemoryOrderStore()
	b := bus.New()
	b.Subscribe(saga.NewNotificationHandler(nil))
	service := NewOrderService(orders, b, nil)

	orderID, err := service.CreateOrder(ctx, domain.NewCustomerID())
	require.NoError(t, err)
	require.NoError(t, service.AddBook(ctx, orderID, domain.NewBookID(), 1, domain.Yen(2000)))
	addr, err := domain.NewShippingAddress("1500001", "Tokyo", "Shibuya", "1-2-3 Jinnan", "")
	require.NoError(t, err)
	require.NoError(t, service.SetShippingAddress(ctx, orderID, addr))

	require.NoError(t, service.ConfirmOrder(ctx, orderID))
	require.NoError(t, service.CancelOrder(ctx, orderID))

	order, err := service.GetOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, order.Status())
}

func TestSetup_SQLiteTracker(t *testing.T) {
	ctx := context.Background()

	cfg, err := config.FromYAML([]byte("tracker:\n  path: " + filepath.Join(t.TempDir(), "tracker.db") + "\n"))
	require.NoError(t, err)

	app, err := Setup(cfg, nil)
	require.NoError(t, err)
	defer app.Close()

	orderID, bookID := preparedOrder(t, ctx, app, 2, 1500)
	require.NoError(t, app.Inventory.AddStock(ctx, bookID, 5))
	require.NoError(t, app.Orders.ConfirmOrder(ctx, orderID))

	order, err := app.Orders.GetOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusDelivered, order.Status())

	require.NoError(t, app.Close())
}

func TestSetup_BusConfigFromFile(t *testing.T) {
	cfg, err := config.FromYAML([]byte(`
event_bus:
  max_retry_attempts: 1
  retry_delay: 1ms
  handler_timeout: 100ms
  dead_letter_queue_max_size: 2
`))
	require.NoError(t, err)

	app, err := Setup(cfg, nil)
	require.NoError(t, err)
	defer app.Close()

	assert.Equal(t, 1, app.Bus.Config().MaxRetryAttempts)
}
