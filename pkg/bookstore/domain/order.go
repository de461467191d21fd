// Package domain holds the bookstore's aggregates, value objects, and the
// domain event model they emit.
//
// Order and Inventory are independent consistency boundaries. No transaction
// spans both: cross-aggregate consistency is reached through the saga
// handlers reacting to the events these aggregates emit.
package domain

// shippingFeeThreshold is the subtotal (in minor units) at which shipping
// becomes free; below it freeShippingFee applies.
const (
	shippingFeeThreshold = 10000
	standardShippingFee  = 500
)

// Order is the order aggregate root.
//
// All mutation goes through its methods; each successful mutation changes
// state and appends exactly one domain event to the pending buffer, drained
// by the caller via TakeEvents.
type Order struct {
	id         OrderID
	customerID CustomerID
	lines      []OrderLine
	address    *ShippingAddress
	status     OrderStatus
	events     []Event
}

// NewOrder creates a pending order with no lines.
func NewOrder(id OrderID, customerID CustomerID) *Order {
	return &Order{
		id:         id,
		customerID: customerID,
		status:     OrderStatusPending,
	}
}

// ReconstructOrder rehydrates an order from persisted state without
// emitting events.
func ReconstructOrder(id OrderID, customerID CustomerID, lines []OrderLine, address *ShippingAddress, status OrderStatus) *Order {
	o := &Order{
		id:         id,
		customerID: customerID,
		lines:      append([]OrderLine(nil), lines...),
		status:     status,
	}
	if address != nil {
		addr := *address
		o.address = &addr
	}
	return o
}

// ID returns the order identity.
func (o *Order) ID() OrderID { return o.id }

// CustomerID returns the owning customer.
func (o *Order) CustomerID() CustomerID { return o.customerID }

// Status returns the current lifecycle state.
func (o *Order) Status() OrderStatus { return o.status }

// Lines returns a copy of the order lines.
func (o *Order) Lines() []OrderLine {
	return append([]OrderLine(nil), o.lines...)
}

// ShippingAddress returns the address and whether one is set.
func (o *Order) ShippingAddress() (ShippingAddress, bool) {
	if o.address == nil {
		return ShippingAddress{}, false
	}
	return *o.address, true
}

// AddBook merges the given book into an existing line or appends a new one.
// Allowed in any status.
func (o *Order) AddBook(bookID BookID, quantity int, unitPrice Money) error {
	if quantity <= 0 {
		return &InvalidValueError{Field: "quantity", Reason: "must be positive"}
	}
	for i := range o.lines {
		if o.lines[i].BookID == bookID {
			return o.lines[i].IncreaseQuantity(quantity)
		}
	}
	line, err := NewOrderLine(bookID, quantity, unitPrice)
	if err != nil {
		return err
	}
	o.lines = append(o.lines, line)
	return nil
}

// SetShippingAddress sets or overwrites the delivery address.
func (o *Order) SetShippingAddress(address ShippingAddress) {
	addr := address
	o.address = &addr
}

// Confirm transitions Pending -> Confirmed and emits OrderConfirmed.
// Requires at least one line and a shipping address.
func (o *Order) Confirm() error {
	if o.status != OrderStatusPending {
		return &InvalidStateError{Operation: "confirm", Current: o.status}
	}
	if len(o.lines) == 0 {
		return &OrderValidationError{Reason: "order has no lines"}
	}
	if o.address == nil {
		return &OrderValidationError{Reason: "shipping address is not set"}
	}
	o.status = OrderStatusConfirmed
	o.record(NewOrderConfirmed(o.id, o.customerID, o.Lines(), o.CalculateTotal()))
	return nil
}

// Cancel transitions Pending or Confirmed -> Cancelled and emits
// OrderCancelled. Shipped and delivered orders cannot be cancelled.
func (o *Order) Cancel() error {
	if o.status != OrderStatusPending && o.status != OrderStatusConfirmed {
		return &InvalidStateError{Operation: "cancel", Current: o.status}
	}
	o.status = OrderStatusCancelled
	o.record(NewOrderCancelled(o.id, o.customerID, o.Lines()))
	return nil
}

// MarkAsShipped transitions Confirmed -> Shipped and emits OrderShipped.
func (o *Order) MarkAsShipped() error {
	if o.status != OrderStatusConfirmed {
		return &InvalidStateError{Operation: "ship", Current: o.status}
	}
	var addr ShippingAddress
	if o.address != nil {
		addr = *o.address
	}
	o.status = OrderStatusShipped
	o.record(NewOrderShipped(o.id, addr))
	return nil
}

// MarkAsDelivered transitions Shipped -> Delivered and emits OrderDelivered.
func (o *Order) MarkAsDelivered() error {
	if o.status != OrderStatusShipped {
		return &InvalidStateError{Operation: "deliver", Current: o.status}
	}
	o.status = OrderStatusDelivered
	o.record(NewOrderDelivered(o.id))
	return nil
}

// CalculateTotal returns subtotal plus shipping fee. The fee is waived at
// or above the free-shipping threshold. Pure; callable in any state.
func (o *Order) CalculateTotal() Money {
	subtotal := Money{Currency: JPY}
	for _, line := range o.lines {
		sum, err := subtotal.Add(line.Subtotal())
		if err != nil {
			// lines are validated at construction, currencies always match
			continue
		}
		subtotal = sum
	}
	if subtotal.Amount >= shippingFeeThreshold {
		return subtotal
	}
	return Money{Amount: subtotal.Amount + standardShippingFee, Currency: subtotal.Currency}
}

// TakeEvents drains and returns the pending-events buffer.
func (o *Order) TakeEvents() []Event {
	events := o.events
	o.events = nil
	return events
}

// Clone returns a deep copy, pending events excluded.
func (o *Order) Clone() *Order {
	return ReconstructOrder(o.id, o.customerID, o.lines, o.address, o.status)
}

func (o *Order) record(evt Event) {
	o.events = append(o.events, evt)
}
