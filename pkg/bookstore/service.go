// Package bookstore wires the order fulfillment saga together: application
// services for mutating orders and inventory, and setup helpers that
// register the choreography handlers on an event bus.
package bookstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/iced-penguin/bookstore-order-management/pkg/bookstore/domain"
	"github.com/iced-penguin/bookstore-order-management/pkg/bookstore/observability"
	"github.com/iced-penguin/bookstore-order-management/pkg/bookstore/saga"
	"github.com/iced-penguin/bookstore-order-management/pkg/bookstore/store"
)

const orderServiceComponent = "order-service"

// OrderNotFoundError is returned when an operation targets an order id
// that has no stored order.
type OrderNotFoundError struct {
	OrderID domain.OrderID
}

func (e *OrderNotFoundError) Error() string {
	return fmt.Sprintf("order %s not found", e.OrderID)
}

// OrderService exposes the order lifecycle as application operations.
// Every mutating operation loads the aggregate, applies the change, saves
// it, and publishes the resulting events under a single fresh correlation
// id so the whole fulfillment flow of one user action can be traced.
type OrderService struct {
	orders    store.OrderStore
	publisher saga.EventPublisher
	logger    observability.Logger
}

// NewOrderService creates the service. A nil logger falls back to the
// no-op logger.
func NewOrderService(orders store.OrderStore, publisher saga.EventPublisher, logger observability.Logger) *OrderService {
	if logger == nil {
		logger = observability.NoopLogger{}
	}
	return &OrderService{orders: orders, publisher: publisher, logger: logger}
}

// CreateOrder creates an empty pending order for the customer and returns
// its id.
func (s *OrderService) CreateOrder(ctx context.Context, customerID domain.CustomerID) (domain.OrderID, error) {
	id := s.orders.NextIdentity()
	order := domain.NewOrder(id, customerID)
	if err := s.orders.Save(ctx, order); err != nil {
		return domain.OrderID{}, fmt.Errorf("save order: %w", err)
	}
	s.logger.Info(orderServiceComponent, "order created", nil, map[string]string{
		"order_id":    id.String(),
		"customer_id": customerID.String(),
	})
	return id, nil
}

// AddBook adds (or merges) an order line.
func (s *OrderService) AddBook(ctx context.Context, orderID domain.OrderID, bookID domain.BookID, quantity int, unitPrice domain.Money) error {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return err
	}
	if err := order.AddBook(bookID, quantity, unitPrice); err != nil {
		return err
	}
	return s.save(ctx, order)
}

// SetShippingAddress sets or replaces the shipping address.
func (s *OrderService) SetShippingAddress(ctx context.Context, orderID domain.OrderID, address domain.ShippingAddress) error {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return err
	}
	order.SetShippingAddress(address)
	return s.save(ctx, order)
}

// ConfirmOrder confirms the order and publishes OrderConfirmed, which
// starts the fulfillment choreography.
func (s *OrderService) ConfirmOrder(ctx context.Context, orderID domain.OrderID) error {
	return s.transition(ctx, orderID, "confirm", (*domain.Order).Confirm)
}

// CancelOrder cancels a pending or confirmed order and publishes
// OrderCancelled.
func (s *OrderService) CancelOrder(ctx context.Context, orderID domain.OrderID) error {
	return s.transition(ctx, orderID, "cancel", (*domain.Order).Cancel)
}

// ShipOrder marks a confirmed order as shipped and publishes OrderShipped.
func (s *OrderService) ShipOrder(ctx context.Context, orderID domain.OrderID) error {
	return s.transition(ctx, orderID, "ship", (*domain.Order).MarkAsShipped)
}

// DeliverOrder marks a shipped order as delivered and publishes
// OrderDelivered.
func (s *OrderService) DeliverOrder(ctx context.Context, orderID domain.OrderID) error {
	return s.transition(ctx, orderID, "deliver", (*domain.Order).MarkAsDelivered)
}

// GetOrder returns the stored order.
func (s *OrderService) GetOrder(ctx context.Context, orderID domain.OrderID) (*domain.Order, error) {
	return s.load(ctx, orderID)
}

// ListOrders returns every stored order.
func (s *OrderService) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	return s.orders.FindAll(ctx)
}

// ListOrdersByStatus returns the stored orders in the given status.
func (s *OrderService) ListOrdersByStatus(ctx context.Context, status domain.OrderStatus) ([]*domain.Order, error) {
	return s.orders.FindByStatus(ctx, status)
}

func (s *OrderService) load(ctx context.Context, orderID domain.OrderID) (*domain.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order %s: %w", orderID, err)
	}
	if order == nil {
		return nil, &OrderNotFoundError{OrderID: orderID}
	}
	return order, nil
}

func (s *OrderService) save(ctx context.Context, order *domain.Order) error {
	if err := s.orders.Save(ctx, order); err != nil {
		return fmt.Errorf("save order %s: %w", order.ID(), err)
	}
	return nil
}

// transition applies a state change, saves the order, and publishes the
// drained events under one fresh correlation id.
func (s *OrderService) transition(ctx context.Context, orderID domain.OrderID, operation string, apply func(*domain.Order) error) error {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return err
	}
	if err := apply(order); err != nil {
		return err
	}
	if err := s.save(ctx, order); err != nil {
		return err
	}

	correlation := uuid.New()
	for _, evt := range order.TakeEvents() {
		if err := s.publisher.Publish(ctx, evt.WithCorrelationID(correlation)); err != nil {
			return fmt.Errorf("publish %s: %w", evt.EventType(), err)
		}
	}

	s.logger.Info(orderServiceComponent, "order "+operation+" applied", &correlation, map[string]string{
		"order_id": orderID.String(),
		"status":   order.Status().String(),
	})
	return nil
}

const inventoryServiceComponent = "inventory-service"

// InventoryService exposes stock management and inventory queries.
type InventoryService struct {
	inventories       store.InventoryStore
	lowStockThreshold int
	logger            observability.Logger
}

// NewInventoryService creates the service. A nil logger falls back to the
// no-op logger.
func NewInventoryService(inventories store.InventoryStore, lowStockThreshold int, logger observability.Logger) *InventoryService {
	if logger == nil {
		logger = observability.NoopLogger{}
	}
	return &InventoryService{
		inventories:       inventories,
		lowStockThreshold: lowStockThreshold,
		logger:            logger,
	}
}

// AddStock increases the quantity on hand for the book, creating the
// inventory record when none exists yet.
func (s *InventoryService) AddStock(ctx context.Context, bookID domain.BookID, quantity int) error {
	inventory, err := s.inventories.FindByBookID(ctx, bookID)
	if err != nil {
		return fmt.Errorf("load inventory %s: %w", bookID, err)
	}
	if inventory == nil {
		inventory, err = domain.NewInventory(bookID, 0)
		if err != nil {
			return err
		}
	}
	if err := inventory.Restock(quantity); err != nil {
		return err
	}
	if err := s.inventories.Save(ctx, inventory); err != nil {
		return fmt.Errorf("save inventory %s: %w", bookID, err)
	}
	s.logger.Info(inventoryServiceComponent, "stock added", nil, map[string]string{
		"book_id":  bookID.String(),
		"quantity": fmt.Sprintf("%d", quantity),
		"on_hand":  fmt.Sprintf("%d", inventory.QuantityOnHand()),
	})
	return nil
}

// BookExists reports whether an inventory record exists for the book.
func (s *InventoryService) BookExists(ctx context.Context, bookID domain.BookID) (bool, error) {
	inventory, err := s.inventories.FindByBookID(ctx, bookID)
	if err != nil {
		return false, fmt.Errorf("load inventory %s: %w", bookID, err)
	}
	return inventory != nil, nil
}

// GetInventory returns the inventory record for the book, or nil when
// none exists.
func (s *InventoryService) GetInventory(ctx context.Context, bookID domain.BookID) (*domain.Inventory, error) {
	return s.inventories.FindByBookID(ctx, bookID)
}

// ListLowStock returns every inventory record at or below the low-stock
// threshold.
func (s *InventoryService) ListLowStock(ctx context.Context) ([]*domain.Inventory, error) {
	return s.inventories.FindByMaxQuantity(ctx, s.lowStockThreshold)
}
