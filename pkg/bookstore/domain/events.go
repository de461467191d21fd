package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// Event type names as they appear in the serialized envelope.
const (
	EventTypeOrderConfirmed             = "OrderConfirmed"
	EventTypeOrderCancelled             = "OrderCancelled"
	EventTypeOrderShipped               = "OrderShipped"
	EventTypeOrderDelivered             = "OrderDelivered"
	EventTypeInventoryReserved          = "InventoryReserved"
	EventTypeInventoryReleased          = "InventoryReleased"
	EventTypeInventoryReservationFailed = "InventoryReservationFailed"
	EventTypeShippingFailed             = "ShippingFailed"
	EventTypeDeliveryFailed             = "DeliveryFailed"
	EventTypeSagaCompensationStarted    = "SagaCompensationStarted"
	EventTypeSagaCompensationCompleted  = "SagaCompensationCompleted"
)

// OrderConfirmed is emitted when an order passes confirmation.
type OrderConfirmed struct {
	Metadata    `json:"metadata"`
	OrderID     OrderID     `json:"order_id"`
	CustomerID  CustomerID  `json:"customer_id"`
	OrderLines  []OrderLine `json:"order_lines"`
	TotalAmount Money       `json:"total_amount"`
}

// NewOrderConfirmed creates the event with fresh metadata.
func NewOrderConfirmed(orderID OrderID, customerID CustomerID, lines []OrderLine, total Money) OrderConfirmed {
	return OrderConfirmed{
		Metadata:    NewMetadata(),
		OrderID:     orderID,
		CustomerID:  customerID,
		OrderLines:  lines,
		TotalAmount: total,
	}
}

// EventType returns the variant name.
func (e OrderConfirmed) EventType() string { return EventTypeOrderConfirmed }

// WithCorrelationID returns a copy stamped with the given correlation id.
func (e OrderConfirmed) WithCorrelationID(id uuid.UUID) Event {
	e.Metadata = e.Metadata.WithCorrelationID(id)
	return e
}

// OrderCancelled is emitted when an order is cancelled, either by the
// customer or by saga compensation.
type OrderCancelled struct {
	Metadata   `json:"metadata"`
	OrderID    OrderID     `json:"order_id"`
	CustomerID CustomerID  `json:"customer_id"`
	OrderLines []OrderLine `json:"order_lines"`
}

// NewOrderCancelled creates the event with fresh metadata.
func NewOrderCancelled(orderID OrderID, customerID CustomerID, lines []OrderLine) OrderCancelled {
	return OrderCancelled{
		Metadata:   NewMetadata(),
		OrderID:    orderID,
		CustomerID: customerID,
		OrderLines: lines,
	}
}

// EventType returns the variant name.
func (e OrderCancelled) EventType() string { return EventTypeOrderCancelled }

// WithCorrelationID returns a copy stamped with the given correlation id.
func (e OrderCancelled) WithCorrelationID(id uuid.UUID) Event {
	e.Metadata = e.Metadata.WithCorrelationID(id)
	return e
}

// OrderShipped is emitted when an order leaves the warehouse.
type OrderShipped struct {
	Metadata        `json:"metadata"`
	OrderID         OrderID         `json:"order_id"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
}

// NewOrderShipped creates the event with fresh metadata.
func NewOrderShipped(orderID OrderID, address ShippingAddress) OrderShipped {
	return OrderShipped{
		Metadata:        NewMetadata(),
		OrderID:         orderID,
		ShippingAddress: address,
	}
}

// EventType returns the variant name.
func (e OrderShipped) EventType() string { return EventTypeOrderShipped }

// WithCorrelationID returns a copy stamped with the given correlation id.
func (e OrderShipped) WithCorrelationID(id uuid.UUID) Event {
	e.Metadata = e.Metadata.WithCorrelationID(id)
	return e
}

// OrderDelivered is emitted when the carrier confirms delivery.
type OrderDelivered struct {
	Metadata `json:"metadata"`
	OrderID  OrderID `json:"order_id"`
}

// NewOrderDelivered creates the event with fresh metadata.
func NewOrderDelivered(orderID OrderID) OrderDelivered {
	return OrderDelivered{
		Metadata: NewMetadata(),
		OrderID:  orderID,
	}
}

// EventType returns the variant name.
func (e OrderDelivered) EventType() string { return EventTypeOrderDelivered }

// WithCorrelationID returns a copy stamped with the given correlation id.
func (e OrderDelivered) WithCorrelationID(id uuid.UUID) Event {
	e.Metadata = e.Metadata.WithCorrelationID(id)
	return e
}

// InventoryReserved is emitted after stock was reserved for every line of
// an order.
type InventoryReserved struct {
	Metadata   `json:"metadata"`
	OrderID    OrderID     `json:"order_id"`
	OrderLines []OrderLine `json:"order_lines"`
}

// NewInventoryReserved creates the event with fresh metadata.
func NewInventoryReserved(orderID OrderID, lines []OrderLine) InventoryReserved {
	return InventoryReserved{
		Metadata:   NewMetadata(),
		OrderID:    orderID,
		OrderLines: lines,
	}
}

// EventType returns the variant name.
func (e InventoryReserved) EventType() string { return EventTypeInventoryReserved }

// WithCorrelationID returns a copy stamped with the given correlation id.
func (e InventoryReserved) WithCorrelationID(id uuid.UUID) Event {
	e.Metadata = e.Metadata.WithCorrelationID(id)
	return e
}

// InventoryReleased is emitted after reserved stock was returned during
// compensation.
type InventoryReleased struct {
	Metadata   `json:"metadata"`
	OrderID    OrderID     `json:"order_id"`
	OrderLines []OrderLine `json:"order_lines"`
}

// NewInventoryReleased creates the event with fresh metadata.
func NewInventoryReleased(orderID OrderID, lines []OrderLine) InventoryReleased {
	return InventoryReleased{
		Metadata:   NewMetadata(),
		OrderID:    orderID,
		OrderLines: lines,
	}
}

// EventType returns the variant name.
func (e InventoryReleased) EventType() string { return EventTypeInventoryReleased }

// WithCorrelationID returns a copy stamped with the given correlation id.
func (e InventoryReleased) WithCorrelationID(id uuid.UUID) Event {
	e.Metadata = e.Metadata.WithCorrelationID(id)
	return e
}

// InventoryReservationFailed is emitted when at least one order line could
// not be reserved. OriginalEventID references the OrderConfirmed event that
// triggered the reservation.
type InventoryReservationFailed struct {
	Metadata        `json:"metadata"`
	OrderID         OrderID     `json:"order_id"`
	OrderLines      []OrderLine `json:"order_lines"`
	Reason          string      `json:"reason"`
	OriginalEventID uuid.UUID   `json:"original_event_id"`
}

// NewInventoryReservationFailed creates the event with fresh metadata.
func NewInventoryReservationFailed(orderID OrderID, lines []OrderLine, reason string, originalEventID uuid.UUID) InventoryReservationFailed {
	return InventoryReservationFailed{
		Metadata:        NewMetadata(),
		OrderID:         orderID,
		OrderLines:      lines,
		Reason:          reason,
		OriginalEventID: originalEventID,
	}
}

// EventType returns the variant name.
func (e InventoryReservationFailed) EventType() string { return EventTypeInventoryReservationFailed }

// WithCorrelationID returns a copy stamped with the given correlation id.
func (e InventoryReservationFailed) WithCorrelationID(id uuid.UUID) Event {
	e.Metadata = e.Metadata.WithCorrelationID(id)
	return e
}

// ShippingFailed is emitted when marking an order as shipped was rejected.
type ShippingFailed struct {
	Metadata `json:"metadata"`
	OrderID  OrderID `json:"order_id"`
	Reason   string  `json:"reason"`
}

// NewShippingFailed creates the event with fresh metadata.
func NewShippingFailed(orderID OrderID, reason string) ShippingFailed {
	return ShippingFailed{
		Metadata: NewMetadata(),
		OrderID:  orderID,
		Reason:   reason,
	}
}

// EventType returns the variant name.
func (e ShippingFailed) EventType() string { return EventTypeShippingFailed }

// WithCorrelationID returns a copy stamped with the given correlation id.
func (e ShippingFailed) WithCorrelationID(id uuid.UUID) Event {
	e.Metadata = e.Metadata.WithCorrelationID(id)
	return e
}

// DeliveryFailed is emitted when marking an order as delivered was rejected.
type DeliveryFailed struct {
	Metadata `json:"metadata"`
	OrderID  OrderID `json:"order_id"`
	Reason   string  `json:"reason"`
}

// NewDeliveryFailed creates the event with fresh metadata.
func NewDeliveryFailed(orderID OrderID, reason string) DeliveryFailed {
	return DeliveryFailed{
		Metadata: NewMetadata(),
		OrderID:  orderID,
		Reason:   reason,
	}
}

// EventType returns the variant name.
func (e DeliveryFailed) EventType() string { return EventTypeDeliveryFailed }

// WithCorrelationID returns a copy stamped with the given correlation id.
func (e DeliveryFailed) WithCorrelationID(id uuid.UUID) Event {
	e.Metadata = e.Metadata.WithCorrelationID(id)
	return e
}

// SagaCompensationStarted announces that compensation for a failed saga
// step is beginning. CompensationSteps lists the prior steps to undo, in
// execution order.
type SagaCompensationStarted struct {
	Metadata          `json:"metadata"`
	SagaID            uuid.UUID `json:"saga_id"`
	FailedStep        string    `json:"failed_step"`
	Reason            string    `json:"reason"`
	CompensationSteps []string  `json:"compensation_steps"`
}

// NewSagaCompensationStarted creates the event with fresh metadata.
func NewSagaCompensationStarted(sagaID uuid.UUID, failedStep, reason string, steps []string) SagaCompensationStarted {
	return SagaCompensationStarted{
		Metadata:          NewMetadata(),
		SagaID:            sagaID,
		FailedStep:        failedStep,
		Reason:            reason,
		CompensationSteps: steps,
	}
}

// EventType returns the variant name.
func (e SagaCompensationStarted) EventType() string { return EventTypeSagaCompensationStarted }

// WithCorrelationID returns a copy stamped with the given correlation id.
func (e SagaCompensationStarted) WithCorrelationID(id uuid.UUID) Event {
	e.Metadata = e.Metadata.WithCorrelationID(id)
	return e
}

// SagaCompensationCompleted reports the outcome of a compensation run.
type SagaCompensationCompleted struct {
	Metadata `json:"metadata"`
	SagaID   uuid.UUID          `json:"saga_id"`
	Result   CompensationResult `json:"result"`
}

// NewSagaCompensationCompleted creates the event with fresh metadata.
func NewSagaCompensationCompleted(sagaID uuid.UUID, result CompensationResult) SagaCompensationCompleted {
	return SagaCompensationCompleted{
		Metadata: NewMetadata(),
		SagaID:   sagaID,
		Result:   result,
	}
}

// EventType returns the variant name.
func (e SagaCompensationCompleted) EventType() string { return EventTypeSagaCompensationCompleted }

// WithCorrelationID returns a copy stamped with the given correlation id.
func (e SagaCompensationCompleted) WithCorrelationID(id uuid.UUID) Event {
	e.Metadata = e.Metadata.WithCorrelationID(id)
	return e
}

// CompensationOutcome classifies how a compensation run ended.
type CompensationOutcome string

const (
	CompensationSuccess        CompensationOutcome = "success"
	CompensationPartialSuccess CompensationOutcome = "partial_success"
	CompensationFailure        CompensationOutcome = "failed"
)

// CompensationResult is the outcome of a compensation run.
// FailedSteps is set for partial success, Message for outright failure.
type CompensationResult struct {
	Outcome     CompensationOutcome `json:"outcome"`
	FailedSteps []string            `json:"failed_steps,omitempty"`
	Message     string              `json:"message,omitempty"`
}

// String renders the result for log output.
func (r CompensationResult) String() string {
	switch r.Outcome {
	case CompensationPartialSuccess:
		return fmt.Sprintf("partial_success (failed steps: %v)", r.FailedSteps)
	case CompensationFailure:
		return fmt.Sprintf("failed: %s", r.Message)
	default:
		return string(r.Outcome)
	}
}
