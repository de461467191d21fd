package saga

import (
	"context"
	"fmt"

	"github.com/iced-penguin/bookstore-order-management/pkg/bookstore/bus"
	"github.com/iced-penguin/bookstore-order-management/pkg/bookstore/domain"
	"github.com/iced-penguin/bookstore-order-management/pkg/bookstore/observability"
	"github.com/iced-penguin/bookstore-order-management/pkg/bookstore/store"
)

const shippingHandlerName = "shipping-handler"

// ShippingHandler reacts to InventoryReserved by marking the order as
// shipped. It publishes OrderShipped on success and ShippingFailed when the
// order rejects the transition.
type ShippingHandler struct {
	orders    store.OrderStore
	publisher EventPublisher
	tracker   ProcessedEventStore
	logger    observability.Logger
}

// Compile-time interface check.
var _ bus.EventHandler[domain.InventoryReserved] = (*ShippingHandler)(nil)

// NewShippingHandler creates the handler. A nil logger falls back to the
// no-op logger.
func NewShippingHandler(
	orders store.OrderStore,
	publisher EventPublisher,
	tracker ProcessedEventStore,
	logger observability.Logger,
) *ShippingHandler {
	if logger == nil {
		logger = observability.NoopLogger{}
	}
	return &ShippingHandler{orders: orders, publisher: publisher, tracker: tracker, logger: logger}
}

// Name implements bus.EventHandler.
func (h *ShippingHandler) Name() string { return shippingHandlerName }

// Handle implements bus.EventHandler.
func (h *ShippingHandler) Handle(ctx context.Context, evt domain.InventoryReserved) error {
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
	if order.Status() != domain.OrderStatusConfirmed {
		h.logger.Info(h.Name(), "order is not confirmed, skipping shipment", &correlation, map[string]string{
			"order_id": evt.OrderID.String(),
			"status":   order.Status().String(),
		})
		markProcessed(ctx, h.tracker, h.logger, h.Name(), meta)
		return nil
	}

	if err := order.MarkAsShipped(); err != nil {
		failed := domain.NewShippingFailed(evt.OrderID, err.Error()).WithCorrelationID(correlation)
		if pubErr := h.publisher.Publish(ctx, failed); pubErr != nil {
			h.logger.Error(h.Name(), "failed to publish shipping failure", &correlation, map[string]string{
				"order_id": evt.OrderID.String(),
				"error":    pubErr.Error(),
			})
		}
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

	h.logger.Info(h.Name(), "order shipped", &correlation, map[string]string{
		"order_id": evt.OrderID.String(),
	})
	markProcessed(ctx, h.tracker, h.logger, h.Name(), meta)
	return nil
}
