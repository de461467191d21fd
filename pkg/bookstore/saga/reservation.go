package saga

import (
	"context"
	"fmt"

	"github.com/iced-penguin/bookstore-order-management/pkg/bookstore/bus"
	"github.com/iced-penguin/bookstore-order-management/pkg/bookstore/domain"
	"github.com/iced-penguin/bookstore-order-management/pkg/bookstore/observability"
	"github.com/iced-penguin/bookstore-order-management/pkg/bookstore/store"
)

const reservationHandlerName = "inventory-reservation-handler"

// InventoryReservationHandler reacts to OrderConfirmed by reserving stock
// for every order line. On full success it publishes InventoryReserved; if
// any line fails it publishes InventoryReservationFailed and surfaces the
// domain error.
type InventoryReservationHandler struct {
	orders      store.OrderStore
	inventories store.InventoryStore
	publisher   EventPublisher
	tracker     ProcessedEventStore
	logger      observability.Logger
}

// Compile-time interface check.
var _ bus.EventHandler[domain.OrderConfirmed] = (*InventoryReservationHandler)(nil)

// NewInventoryReservationHandler creates the handler. A nil logger falls
// back to the no-op logger.
func NewInventoryReservationHandler(
	orders store.OrderStore,
	inventories store.InventoryStore,
	publisher EventPublisher,
	tracker ProcessedEventStore,
	logger observability.Logger,
) *InventoryReservationHandler {
	if logger == nil {
		logger = observability.NoopLogger{}
	}
	return &InventoryReservationHandler{
		orders:      orders,
		inventories: inventories,
		publisher:   publisher,
		tracker:     tracker,
		logger:      logger,
	}
}

// Name implements bus.EventHandler.
func (h *InventoryReservationHandler) Name() string { return reservationHandlerName }

// Handle implements bus.EventHandler.
func (h *InventoryReservationHandler) Handle(ctx context.Context, evt domain.OrderConfirmed) error {
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
		h.logger.Info(h.Name(), "order is not confirmed, skipping reservation", &correlation, map[string]string{
			"order_id": evt.OrderID.String(),
			"status":   order.Status().String(),
		})
		markProcessed(ctx, h.tracker, h.logger, h.Name(), meta)
		return nil
	}

	for _, line := range evt.OrderLines {
		inventory, err := h.inventories.FindByBookID(ctx, line.BookID)
		if err != nil {
			return fmt.Errorf("load inventory %s: %w", line.BookID, err)
		}
		if inventory == nil {
			// unknown books get a zero-quantity record so the reservation
			// fails through the normal insufficient-stock path
			inventory, err = domain.NewInventory(line.BookID, 0)
			if err != nil {
				return fmt.Errorf("create inventory %s: %w", line.BookID, err)
			}
		}

		if err := inventory.Reserve(line.Quantity); err != nil {
			// lines reserved before this one stay reserved; rollback is
			// left to compensation
			h.logger.Warn(h.Name(), "reservation failed", &correlation, map[string]string{
				"order_id": evt.OrderID.String(),
				"book_id":  line.BookID.String(),
				"error":    err.Error(),
			})
			failed := domain.NewInventoryReservationFailed(evt.OrderID, evt.OrderLines, err.Error(), meta.EventID).
				WithCorrelationID(correlation)
			if pubErr := h.publisher.Publish(ctx, failed); pubErr != nil {
				h.logger.Error(h.Name(), "failed to publish reservation failure", &correlation, map[string]string{
					"order_id": evt.OrderID.String(),
					"error":    pubErr.Error(),
				})
			}
			markProcessed(ctx, h.tracker, h.logger, h.Name(), meta)
			return err
		}
		if err := h.inventories.Save(ctx, inventory); err != nil {
			return fmt.Errorf("save inventory %s: %w", line.BookID, err)
		}
	}

	reserved := domain.NewInventoryReserved(evt.OrderID, evt.OrderLines).WithCorrelationID(correlation)
	if err := h.publisher.Publish(ctx, reserved); err != nil {
		return fmt.Errorf("publish InventoryReserved: %w", err)
	}

	h.logger.Info(h.Name(), "inventory reserved", &correlation, map[string]string{
		"order_id": evt.OrderID.String(),
		"lines":    fmt.Sprintf("%d", len(evt.OrderLines)),
	})
	markProcessed(ctx, h.tracker, h.logger, h.Name(), meta)
	return nil
}
