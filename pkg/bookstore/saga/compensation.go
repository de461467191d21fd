package saga

import (
	"context"
	"fmt"
	"sync"

	"github.com/iced-penguin/bookstore-order-management/pkg/bookstore/bus"
	"github.com/iced-penguin/bookstore-order-management/pkg/bookstore/domain"
	"github.com/iced-penguin/bookstore-order-management/pkg/bookstore/observability"
	"github.com/iced-penguin/bookstore-order-management/pkg/bookstore/store"
)

const (
	reservationFailureCompensationName = "inventory-reservation-failure-compensation-handler"
	shippingFailureCompensationName    = "shipping-failure-compensation-handler"
	deliveryFailureCompensationName    = "delivery-failure-compensation-handler"
	compensationCompletionName         = "compensation-completion-handler"
)

// InventoryReservationFailureCompensationHandler reacts to
// InventoryReservationFailed by cancelling the order, which publishes
// OrderCancelled.
type InventoryReservationFailureCompensationHandler struct {
	orders    store.OrderStore
	publisher EventPublisher
	tracker   ProcessedEventStore
	logger    observability.Logger
}

// Compile-time interface check.
var _ bus.EventHandler[domain.InventoryReservationFailed] = (*InventoryReservationFailureCompensationHandler)(nil)

// NewInventoryReservationFailureCompensationHandler creates the handler.
// A nil logger falls back to the no-op logger.
func NewInventoryReservationFailureCompensationHandler(
	orders store.OrderStore,
	publisher EventPublisher,
	tracker ProcessedEventStore,
	logger observability.Logger,
) *InventoryReservationFailureCompensationHandler {
	if logger == nil {
		logger = observability.NoopLogger{}
	}
	return &InventoryReservationFailureCompensationHandler{
		orders:    orders,
		publisher: publisher,
		tracker:   tracker,
		logger:    logger,
	}
}

// Name implements bus.EventHandler.
func (h *InventoryReservationFailureCompensationHandler) Name() string {
	return reservationFailureCompensationName
}

// Handle implements bus.EventHandler.
func (h *InventoryReservationFailureCompensationHandler) Handle(ctx context.Context, evt domain.InventoryReservationFailed) error {
	meta := evt.Meta()
	correlation := meta.CorrelationID

	processed, err := alreadyProcessed(ctx, h.tracker, h.logger, h.Name(), meta)
	if err != nil || processed {
		return err
	}

	order, err := h.orders.FindByID(ctx, evt.OrderID)
	if err != nil {
		return fmt.Errorf("load order %s: %w", evt.OrderID, err)
	}
	if order == nil {
		return bus.Permanent(fmt.Errorf("order %s not found", evt.OrderID))
	}
	if order.Status() != domain.OrderStatusPending && order.Status() != domain.OrderStatusConfirmed {
		h.logger.Info(h.Name(), "order is not cancellable, skipping compensation", &correlation, map[string]string{
			"order_id": evt.OrderID.String(),
			"status":   order.Status().String(),
		})
		markProcessed(ctx, h.tracker, h.logger, h.Name(), meta)
		return nil
	}

	if err := order.Cancel(); err != nil {
		markProcessed(ctx, h.tracker, h.logger, h.Name(), meta)
		return err
	}
	if err := h.orders.Save(ctx, order); err != nil {
		return fmt.Errorf("save order %s: %w", evt.OrderID, err)
	}
	for _, next := range order.TakeEvents() {
		if err := h.publisher.Publish(ctx, next.WithCorrelationID(correlation)); err != nil {
			return fmt.Errorf("publish %s: %w", next.EventType(), err)
		}
	}

	h.logger.Info(h.Name(), "order cancelled after reservation failure", &correlation, map[string]string{
		"order_id": evt.OrderID.String(),
		"reason":   evt.Reason,
	})
	markProcessed(ctx, h.tracker, h.logger, h.Name(), meta)
	return nil
}

// ShippingFailureCompensationHandler reacts to ShippingFailed by releasing
// the reserved stock for every line of the order, then publishing
// InventoryReleased.
type ShippingFailureCompensationHandler struct {
	orders      store.OrderStore
	inventories store.InventoryStore
	publisher   EventPublisher
	tracker     ProcessedEventStore
	logger      observability.Logger
}

// Compile-time interface check.
var _ bus.EventHandler[domain.ShippingFailed] = (*ShippingFailureCompensationHandler)(nil)

// NewShippingFailureCompensationHandler creates the handler. A nil logger
// falls back to the no-op logger.
func NewShippingFailureCompensationHandler(
	orders store.OrderStore,
	inventories store.InventoryStore,
	publisher EventPublisher,
	tracker ProcessedEventStore,
	logger observability.Logger,
) *ShippingFailureCompensationHandler {
	if logger == nil {
		logger = observability.NoopLogger{}
	}
	return &ShippingFailureCompensationHandler{
		orders:      orders,
		inventories: inventories,
		publisher:   publisher,
		tracker:     tracker,
		logger:      logger,
	}
}

// Name implements bus.EventHandler.
func (h *ShippingFailureCompensationHandler) Name() string {
	return shippingFailureCompensationName
}

// Handle implements bus.EventHandler.
func (h *ShippingFailureCompensationHandler) Handle(ctx context.Context, evt domain.ShippingFailed) error {
	meta := evt.Meta()
	correlation := meta.CorrelationID

	processed, err := alreadyProcessed(ctx, h.tracker, h.logger, h.Name(), meta)
	if err != nil || processed {
		return err
	}

	order, err := h.orders.FindByID(ctx, evt.OrderID)
	if err != nil {
		return fmt.Errorf("load order %s: %w", evt.OrderID, err)
	}
	if order == nil {
		return bus.Permanent(fmt.Errorf("order %s not found", evt.OrderID))
	}

	lines := order.Lines()
	for _, line := range lines {
		inventory, err := h.inventories.FindByBookID(ctx, line.BookID)
		if err != nil {
			return fmt.Errorf("load inventory %s: %w", line.BookID, err)
		}
		if inventory == nil {
			h.logger.Warn(h.Name(), "no inventory record to release, skipping line", &correlation, map[string]string{
				"order_id": evt.OrderID.String(),
				"book_id":  line.BookID.String(),
			})
			continue
		}
		if err := inventory.Release(line.Quantity); err != nil {
			return err
		}
		if err := h.inventories.Save(ctx, inventory); err != nil {
			return fmt.Errorf("save inventory %s: %w", line.BookID, err)
		}
	}

	released := domain.NewInventoryReleased(evt.OrderID, lines).WithCorrelationID(correlation)
	if err := h.publisher.Publish(ctx, released); err != nil {
		return fmt.Errorf("publish InventoryReleased: %w", err)
	}

	h.logger.Info(h.Name(), "inventory released after shipping failure", &correlation, map[string]string{
		"order_id": evt.OrderID.String(),
		"reason":   evt.Reason,
	})
	markProcessed(ctx, h.tracker, h.logger, h.Name(), meta)
	return nil
}

// DeliveryFailureCompensationHandler reacts to DeliveryFailed. No rollback
// for a failed delivery exists yet: the order stays Delivered and the
// handler only records that compensation was skipped, so the gap shows up
// in logs and is assertable in tests instead of passing silently.
type DeliveryFailureCompensationHandler struct {
	logger observability.Logger

	mu      sync.Mutex
	skipped []domain.OrderID
}

// Compile-time interface check.
var _ bus.EventHandler[domain.DeliveryFailed] = (*DeliveryFailureCompensationHandler)(nil)

// NewDeliveryFailureCompensationHandler creates the handler. A nil logger
// falls back to the no-op logger.
func NewDeliveryFailureCompensationHandler(logger observability.Logger) *DeliveryFailureCompensationHandler {
	if logger == nil {
		logger = observability.NoopLogger{}
	}
	return &DeliveryFailureCompensationHandler{logger: logger}
}

// Name implements bus.EventHandler.
func (h *DeliveryFailureCompensationHandler) Name() string {
	return deliveryFailureCompensationName
}

// Handle implements bus.EventHandler.
func (h *DeliveryFailureCompensationHandler) Handle(_ context.Context, evt domain.DeliveryFailed) error {
	correlation := evt.Meta().CorrelationID
	h.logger.Warn(h.Name(), "delivery failure compensation is not implemented", &correlation, map[string]string{
		"order_id":     evt.OrderID.String(),
		"reason":       evt.Reason,
		"compensation": "skipped",
	})

	h.mu.Lock()
	h.skipped = append(h.skipped, evt.OrderID)
	h.mu.Unlock()
	return nil
}

// SkippedOrders returns the orders whose delivery failure went
// uncompensated.
func (h *DeliveryFailureCompensationHandler) SkippedOrders() []domain.OrderID {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]domain.OrderID(nil), h.skipped...)
}

// CompensationCompletionHandler logs the outcome of a compensation run.
// Partial and failed outcomes log at elevated levels so they stand out.
type CompensationCompletionHandler struct {
	logger observability.Logger
}

// Compile-time interface check.
var _ bus.EventHandler[domain.SagaCompensationCompleted] = (*CompensationCompletionHandler)(nil)

// NewCompensationCompletionHandler creates the handler. A nil logger falls
// back to the no-op logger.
func NewCompensationCompletionHandler(logger observability.Logger) *CompensationCompletionHandler {
	if logger == nil {
		logger = observability.NoopLogger{}
	}
	return &CompensationCompletionHandler{logger: logger}
}

// Name implements bus.EventHandler.
func (h *CompensationCompletionHandler) Name() string { return compensationCompletionName }

// Handle implements bus.EventHandler.
func (h *CompensationCompletionHandler) Handle(_ context.Context, evt domain.SagaCompensationCompleted) error {
	correlation := evt.Meta().CorrelationID
	attrs := map[string]string{
		"saga_id": evt.SagaID.String(),
		"result":  evt.Result.String(),
	}
	switch evt.Result.Outcome {
	case domain.CompensationSuccess:
		h.logger.Info(h.Name(), "saga compensation completed", &correlation, attrs)
	case domain.CompensationPartialSuccess:
		h.logger.Warn(h.Name(), "saga compensation partially completed", &correlation, attrs)
	default:
		h.logger.Error(h.Name(), "saga compensation failed", &correlation, attrs)
	}
	return nil
}
