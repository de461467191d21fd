package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// OrderLine is one book position on an order. Quantity is always positive.
type OrderLine struct {
	BookID    BookID `json:"book_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice Money  `json:"unit_price"`
}

// NewOrderLine creates an order line. Quantity must be positive.
func NewOrderLine(bookID BookID, quantity int, unitPrice Money) (OrderLine, error) {
	if bookID.IsNil() {
		return OrderLine{}, &InvalidValueError{Field: "book_id", Reason: "must not be nil"}
	}
	if quantity <= 0 {
		return OrderLine{}, &InvalidValueError{Field: "quantity", Reason: fmt.Sprintf("must be positive, got %d", quantity)}
	}
	return OrderLine{BookID: bookID, Quantity: quantity, UnitPrice: unitPrice}, nil
}

// IncreaseQuantity adds to the line quantity.
func (l *OrderLine) IncreaseQuantity(n int) error {
	if n <= 0 {
		return &InvalidValueError{Field: "quantity", Reason: fmt.Sprintf("increase must be positive, got %d", n)}
	}
	l.Quantity += n
	return nil
}

// Subtotal is unit price times quantity.
func (l OrderLine) Subtotal() Money {
	return l.UnitPrice.Multiply(l.Quantity)
}

var postalCodePattern = regexp.MustCompile(`^[0-9]{7}$`)

// ShippingAddress is a Japanese-style delivery address.
// Building is optional; every other field is required.
type ShippingAddress struct {
	PostalCode string `json:"postal_code"`
	Prefecture string `json:"prefecture"`
	City       string `json:"city"`
	Street     string `json:"street"`
	Building   string `json:"building,omitempty"`
}

// NewShippingAddress validates and creates a shipping address.
// The postal code must be exactly seven digits.
func NewShippingAddress(postalCode, prefecture, city, street, building string) (ShippingAddress, error) {
	if !postalCodePattern.MatchString(postalCode) {
		return ShippingAddress{}, &InvalidValueError{Field: "postal_code", Reason: fmt.Sprintf("must be 7 digits, got %q", postalCode)}
	}
	for field, value := range map[string]string{
		"prefecture": prefecture,
		"city":       city,
		"street":     street,
	} {
		if strings.TrimSpace(value) == "" {
			return ShippingAddress{}, &InvalidValueError{Field: field, Reason: "must not be empty"}
		}
	}
	return ShippingAddress{
		PostalCode: postalCode,
		Prefecture: prefecture,
		City:       city,
		Street:     street,
		Building:   building,
	}, nil
}

// String renders the address on one line.
func (a ShippingAddress) String() string {
	s := fmt.Sprintf("%s %s%s%s", a.PostalCode, a.Prefecture, a.City, a.Street)
	if a.Building != "" {
		s += " " + a.Building
	}
	return s
}

// OrderStatus is the lifecycle state of an order.
type OrderStatus int

const (
	OrderStatusPending OrderStatus = iota
	OrderStatusConfirmed
	OrderStatusShipped
	OrderStatusDelivered
	OrderStatusCancelled
)

// String returns the status name.
func (s OrderStatus) String() string {
	switch s {
	case OrderStatusPending:
		return "pending"
	case OrderStatusConfirmed:
		return "confirmed"
	case OrderStatusShipped:
		return "shipped"
	case OrderStatusDelivered:
		return "delivered"
	case OrderStatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// OrderStatusFromString parses a status name as produced by String.
func OrderStatusFromString(s string) (OrderStatus, error) {
	switch s {
	case "pending":
		return OrderStatusPending, nil
	case "confirmed":
		return OrderStatusConfirmed, nil
	case "shipped":
		return OrderStatusShipped, nil
	case "delivered":
		return OrderStatusDelivered, nil
	case "cancelled":
		return OrderStatusCancelled, nil
	default:
		return OrderStatusPending, &InvalidValueError{Field: "order_status", Reason: fmt.Sprintf("unknown status %q", s)}
	}
}
