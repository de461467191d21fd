package saga

import (
	"context"
	"fmt"

	"github.com/iced-penguin/bookstore-order-management/pkg/bookstore/bus"
	"github.com/iced-penguin/bookstore-order-management/pkg/bookstore/domain"
	"github.com/iced-penguin/bookstore-order-management/pkg/bookstore/observability"
	"github.com/iced-penguin/bookstore-order-management/pkg/bookstore/store"
)

const verifierName = "eventual-consistency-verifier"

// EventualConsistencyVerifier cross-checks, on OrderConfirmed and
// OrderDelivered, that every order line has a backing inventory record.
// Between a saga step and its follow-up the two aggregates may legitimately
// disagree; the verifier surfaces such windows in the logs. It is strictly
// read-only and never fails the saga.
type EventualConsistencyVerifier struct {
	orders      store.OrderStore
	inventories store.InventoryStore
	logger      observability.Logger
}

// Compile-time interface check.
var _ bus.Handler = (*EventualConsistencyVerifier)(nil)

// NewEventualConsistencyVerifier creates the verifier. A nil logger falls
// back to the no-op logger.
func NewEventualConsistencyVerifier(
	orders store.OrderStore,
	inventories store.InventoryStore,
	logger observability.Logger,
) *EventualConsistencyVerifier {
	if logger == nil {
		logger = observability.NoopLogger{}
	}
	return &EventualConsistencyVerifier{orders: orders, inventories: inventories, logger: logger}
}

// Name implements bus.Handler.
func (v *EventualConsistencyVerifier) Name() string { return verifierName }

// CanHandle implements bus.Handler.
func (v *EventualConsistencyVerifier) CanHandle(evt domain.Event) bool {
	switch evt.(type) {
	case domain.OrderConfirmed, domain.OrderDelivered:
		return true
	default:
		return false
	}
}

// SupportsSchemaVersion implements bus.Handler.
func (v *EventualConsistencyVerifier) SupportsSchemaVersion(version int) bool {
	return version == domain.SchemaVersion
}

// HandleEvent implements bus.Handler.
func (v *EventualConsistencyVerifier) HandleEvent(ctx context.Context, evt domain.Event) error {
	var orderID domain.OrderID
	switch e := evt.(type) {
	case domain.OrderConfirmed:
		orderID = e.OrderID
	case domain.OrderDelivered:
		orderID = e.OrderID
	default:
		return nil
	}
	correlation := evt.Meta().CorrelationID

	order, err := v.orders.FindByID(ctx, orderID)
	if err != nil || order == nil {
		v.logger.Warn(v.Name(), "could not load order for verification", &correlation, map[string]string{
			"order_id": orderID.String(),
			"error":    fmt.Sprintf("%v", err),
		})
		return nil
	}

	for _, line := range order.Lines() {
		inventory, err := v.inventories.FindByBookID(ctx, line.BookID)
		if err != nil {
			v.logger.Warn(v.Name(), "could not load inventory for verification", &correlation, map[string]string{
				"order_id": orderID.String(),
				"book_id":  line.BookID.String(),
				"error":    err.Error(),
			})
			continue
		}
		if inventory == nil {
			v.logger.Warn(v.Name(), "order line has no backing inventory record", &correlation, map[string]string{
				"order_id": orderID.String(),
				"book_id":  line.BookID.String(),
				"quantity": fmt.Sprintf("%d", line.Quantity),
			})
			continue
		}
		v.logger.Debug(v.Name(), "order line verified", &correlation, map[string]string{
			"order_id":         orderID.String(),
			"book_id":          line.BookID.String(),
			"quantity_on_hand": fmt.Sprintf("%d", inventory.QuantityOnHand()),
		})
	}
	return nil
}
