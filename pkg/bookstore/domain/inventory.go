package domain

import "fmt"

// Inventory tracks the stock on hand for one book.
// The quantity never goes negative.
type Inventory struct {
	bookID         BookID
	quantityOnHand int
}

// NewInventory creates an inventory record. Quantity must not be negative.
func NewInventory(bookID BookID, quantity int) (*Inventory, error) {
	if quantity < 0 {
		return nil, &InvalidValueError{Field: "quantity_on_hand", Reason: fmt.Sprintf("must not be negative, got %d", quantity)}
	}
	return &Inventory{bookID: bookID, quantityOnHand: quantity}, nil
}

// BookID returns the inventory identity.
func (i *Inventory) BookID() BookID { return i.bookID }

// QuantityOnHand returns the current stock level.
func (i *Inventory) QuantityOnHand() int { return i.quantityOnHand }

// HasAvailableStock reports whether quantity units can be reserved.
func (i *Inventory) HasAvailableStock(quantity int) bool {
	return quantity <= i.quantityOnHand
}

// Reserve decrements the stock. It fails without mutating when the request
// exceeds the quantity on hand.
func (i *Inventory) Reserve(quantity int) error {
	if quantity <= 0 {
		return &InvalidValueError{Field: "quantity", Reason: fmt.Sprintf("must be positive, got %d", quantity)}
	}
	if quantity > i.quantityOnHand {
		return &InsufficientInventoryError{
			BookID:    i.bookID,
			Requested: quantity,
			Available: i.quantityOnHand,
		}
	}
	i.quantityOnHand -= quantity
	return nil
}

// Release increments the stock. Callers are responsible for only releasing
// what was actually reserved; no per-order reservation ledger is kept.
func (i *Inventory) Release(quantity int) error {
	if quantity <= 0 {
		return &InvalidValueError{Field: "quantity", Reason: fmt.Sprintf("must be positive, got %d", quantity)}
	}
	i.quantityOnHand += quantity
	return nil
}

// Restock adds newly received stock. Same effect as Release but named for
// intent at the application layer.
func (i *Inventory) Restock(quantity int) error {
	return i.Release(quantity)
}

// Clone returns a copy.
func (i *Inventory) Clone() *Inventory {
	c := *i
	return &c
}
