package bookstore

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iced-penguin/bookstore-order-management/pkg/bookstore/domain"
	"github.com/iced-penguin/bookstore-order-management/pkg/bookstore/store"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(_ context.Context, evt domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) published() []domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.Event, len(p.events))
	copy(out, p.events)
	return out
}

func serviceAddress(t *testing.T) domain.ShippingAddress {
	t.Helper()
	addr, err := domain.NewShippingAddress("1000001", "Tokyo", "Chiyoda", "1-1 Chiyoda", "")
	require.NoError(t, err)
	return addr
}

func TestOrderService_CreateAndQuery(t *testing.T) {
	ctx := context.Background()
	orders := store.NewMemoryOrderStore()
	service := NewOrderService(orders, &recordingPublisher{}, nil)

	customerID := domain.NewCustomerID()
	orderID, err := service.CreateOrder(ctx, customerID)
	require.NoError(t, err)

	order, err := service.GetOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, customerID, order.CustomerID())
	assert.Equal(t, domain.OrderStatusPending, order.Status())

	all, err := service.ListOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestOrderService_GetOrder_NotFound(t *testing.T) {
	service := NewOrderService(store.NewMemoryOrderStore(), &recordingPublisher{}, nil)

	_, err := service.GetOrder(context.Background(), domain.NewOrderID())

	var notFound *OrderNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestOrderService_ConfirmPublishesWithFreshCorrelation(t *testing.T) {
	ctx := context.Background()
	orders := store.NewMemoryOrderStore()
	publisher := &recordingPublisher{}
	service := NewOrderService(orders, publisher, nil)

	orderID, err := service.CreateOrder(ctx, domain.NewCustomerID())
	require.NoError(t, err)
	require.NoError(t, service.AddBook(ctx, orderID, domain.NewBookID(), 2, domain.Yen(1200)))
	require.NoError(t, service.SetShippingAddress(ctx, orderID, serviceAddress(t)))
	require.NoError(t, service.ConfirmOrder(ctx, orderID))

	events := publisher.published()
	require.Len(t, events, 1)
	confirmed, ok := events[0].(domain.OrderConfirmed)
	require.True(t, ok)
	assert.Equal(t, orderID, confirmed.OrderID)
	assert.NotEqual(t, confirmed.Meta().EventID, confirmed.Meta().CorrelationID,
		"the service stamps its own correlation id per action")

	order, err := service.GetOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, order.Status())
}

func TestOrderService_ConfirmRejectsEmptyOrder(t *testing.T) {
	ctx := context.Background()
	service := NewOrderService(store.NewMemoryOrderStore(), &recordingPublisher{}, nil)

	orderID, err := service.CreateOrder(ctx, domain.NewCustomerID())
	require.NoError(t, err)

	err = service.ConfirmOrder(ctx, orderID)
	var validation *domain.OrderValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestOrderService_AddBookMergesLines(t *testing.T) {
	ctx := context.Background()
	service := NewOrderService(store.NewMemoryOrderStore(), &recordingPublisher{}, nil)

	orderID, err := service.CreateOrder(ctx, domain.NewCustomerID())
	require.NoError(t, err)
	bookID := domain.NewBookID()
	require.NoError(t, service.AddBook(ctx, orderID, bookID, 1, domain.Yen(800)))
	require.NoError(t, service.AddBook(ctx, orderID, bookID, 2, domain.Yen(800)))

	order, err := service.GetOrder(ctx, orderID)
	require.NoError(t, err)
	lines := order.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Quantity)
}

func TestOrderService_CancelPendingOrder(t *testing.T) {
	ctx := context.Background()
	publisher := &recordingPublisher{}
	service := NewOrderService(store.NewMemoryOrderStore(), publisher, nil)

	orderID, err := service.CreateOrder(ctx, domain.NewCustomerID())
	require.NoError(t, err)
	require.NoError(t, service.CancelOrder(ctx, orderID))

	order, err := service.GetOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, order.Status())

	events := publisher.published()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventTypeOrderCancelled, events[0].EventType())
}

func TestInventoryService_AddStockAndQueries(t *testing.T) {
	ctx := context.Background()
	inventories := store.NewMemoryInventoryStore()
	service := NewInventoryService(inventories, 5, nil)

	bookID := domain.NewBookID()

	exists, err := service.BookExists(ctx, bookID)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, service.AddStock(ctx, bookID, 3))
	require.NoError(t, service.AddStock(ctx, bookID, 4))

	inventory, err := service.GetInventory(ctx, bookID)
	require.NoError(t, err)
	require.NotNil(t, inventory)
	assert.Equal(t, 7, inventory.QuantityOnHand())

	exists, err = service.BookExists(ctx, bookID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestInventoryService_ListLowStock(t *testing.T) {
	ctx := context.Background()
	inventories := store.NewMemoryInventoryStore()
	service := NewInventoryService(inventories, 5, nil)

	lowBook := domain.NewBookID()
	highBook := domain.NewBookID()
	require.NoError(t, service.AddStock(ctx, lowBook, 3))
	require.NoError(t, service.AddStock(ctx, highBook, 12))

	low, err := service.ListLowStock(ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, lowBook, low[0].BookID())
}

func TestInventoryService_AddStockRejectsNonPositive(t *testing.T) {
	service := NewInventoryService(store.NewMemoryInventoryStore(), 5, nil)

	err := service.AddStock(context.Background(), domain.NewBookID(), 0)
	assert.Error(t, err)
}
