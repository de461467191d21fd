package domain

import "github.com/google/uuid"

// OrderID identifies an Order aggregate.
type OrderID struct {
	uuid.UUID
}

// NewOrderID generates a fresh order identity.
func NewOrderID() OrderID {
	return OrderID{uuid.New()}
}

// ParseOrderID parses an order id from its string form.
func ParseOrderID(s string) (OrderID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return OrderID{}, &InvalidValueError{Field: "order_id", Reason: err.Error()}
	}
	return OrderID{id}, nil
}

// IsNil reports whether the id is the zero value.
func (id OrderID) IsNil() bool {
	return id.UUID == uuid.Nil
}

// BookID identifies a book and its Inventory aggregate.
type BookID struct {
	uuid.UUID
}

// NewBookID generates a fresh book identity.
func NewBookID() BookID {
	return BookID{uuid.New()}
}

// ParseBookID parses a book id from its string form.
func ParseBookID(s string) (BookID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return BookID{}, &InvalidValueError{Field: "book_id", Reason: err.Error()}
	}
	return BookID{id}, nil
}

// IsNil reports whether the id is the zero value.
func (id BookID) IsNil() bool {
	return id.UUID == uuid.Nil
}

// CustomerID identifies the customer that placed an order.
type CustomerID struct {
	uuid.UUID
}

// NewCustomerID generates a fresh customer identity.
func NewCustomerID() CustomerID {
	return CustomerID{uuid.New()}
}

// ParseCustomerID parses a customer id from its string form.
func ParseCustomerID(s string) (CustomerID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return CustomerID{}, &InvalidValueError{Field: "customer_id", Reason: err.Error()}
	}
	return CustomerID{id}, nil
}

// IsNil reports whether the id is the zero value.
func (id CustomerID) IsNil() bool {
	return id.UUID == uuid.Nil
}
