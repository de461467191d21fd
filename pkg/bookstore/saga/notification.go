package saga

import (
	"context"
	"fmt"
	"sync"

	"github.com/iced-penguin/bookstore-order-management/pkg/bookstore/bus"
	"github.com/iced-penguin/bookstore-order-management/pkg/bookstore/domain"
	"github.com/iced-penguin/bookstore-order-management/pkg/bookstore/observability"
)

const notificationHandlerName = "notification-handler"

// NotificationHandler sends a customer-facing message for order lifecycle
// events. It reacts to several event types, so it implements the
// type-erased bus.Handler directly instead of going through a typed
// adapter. Notifications are safe to duplicate, so it carries no
// idempotency gate.
type NotificationHandler struct {
	logger observability.Logger

	mu   sync.Mutex
	sent []string
}

// Compile-time interface check.
var _ bus.Handler = (*NotificationHandler)(nil)

// NewNotificationHandler creates the handler. A nil logger falls back to
// the no-op logger.
func NewNotificationHandler(logger observability.Logger) *NotificationHandler {
	if logger == nil {
		logger = observability.NoopLogger{}
	}
	return &NotificationHandler{logger: logger}
}

// Name implements bus.Handler.
func (h *NotificationHandler) Name() string { return notificationHandlerName }

// CanHandle implements bus.Handler.
func (h *NotificationHandler) CanHandle(evt domain.Event) bool {
	switch evt.(type) {
	case domain.OrderConfirmed, domain.OrderShipped, domain.OrderDelivered, domain.OrderCancelled:
		return true
	default:
		return false
	}
}

// SupportsSchemaVersion implements bus.Handler.
func (h *NotificationHandler) SupportsSchemaVersion(version int) bool {
	return version == domain.SchemaVersion
}

// HandleEvent implements bus.Handler.
func (h *NotificationHandler) HandleEvent(_ context.Context, evt domain.Event) error {
	var message string
	switch e := evt.(type) {
	case domain.OrderConfirmed:
		message = fmt.Sprintf("order %s confirmed, total %s", e.OrderID, e.TotalAmount)
	case domain.OrderShipped:
		message = fmt.Sprintf("order %s shipped to %s", e.OrderID, e.ShippingAddress)
	case domain.OrderDelivered:
		message = fmt.Sprintf("order %s delivered", e.OrderID)
	case domain.OrderCancelled:
		message = fmt.Sprintf("order %s cancelled", e.OrderID)
	default:
		return nil
	}

	correlation := evt.Meta().CorrelationID
	h.logger.Info(h.Name(), "notification sent", &correlation, map[string]string{
		"message": message,
	})

	h.mu.Lock()
	h.sent = append(h.sent, message)
	h.mu.Unlock()
	return nil
}

// Sent returns a copy of the messages sent so far.
func (h *NotificationHandler) Sent() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.sent...)
}
