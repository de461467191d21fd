// Package store defines the persistence ports the saga core depends on and
// provides in-memory implementations. Concrete SQL-backed storage lives
// behind the same interfaces, outside the core.
package store

import (
	"context"

	"github.com/iced-penguin/bookstore-order-management/pkg/bookstore/domain"
)

// OrderStore persists orders. FindByID returns (nil, nil) when no order
// exists for the id.
type OrderStore interface {
	Save(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id domain.OrderID) (*domain.Order, error)
	FindAll(ctx context.Context) ([]*domain.Order, error)
	FindByStatus(ctx context.Context, status domain.OrderStatus) ([]*domain.Order, error)
	NextIdentity() domain.OrderID
}

// InventoryStore persists inventory records. FindByBookID returns
// (nil, nil) when no record exists for the book.
type InventoryStore interface {
	Save(ctx context.Context, inventory *domain.Inventory) error
	FindByBookID(ctx context.Context, id domain.BookID) (*domain.Inventory, error)
	FindAll(ctx context.Context) ([]*domain.Inventory, error)

	// FindByMaxQuantity returns records whose quantity on hand is at or
	// below the threshold, for low-stock reporting.
	FindByMaxQuantity(ctx context.Context, maxQuantity int) ([]*domain.Inventory, error)
}
