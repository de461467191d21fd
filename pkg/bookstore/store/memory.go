package store

import (
	"context"
	"sync"

	"github.com/iced-penguin/bookstore-order-management/pkg/bookstore/domain"
)

// MemoryOrderStore is a thread-safe in-memory OrderStore.
// Orders are cloned on the way in and out so callers never share state
// with the store.
type MemoryOrderStore struct {
	mu     sync.RWMutex
	orders map[domain.OrderID]*domain.Order
}

// Compile-time interface check.
var _ OrderStore = (*MemoryOrderStore)(nil)

// NewMemoryOrderStore creates an empty store.
func NewMemoryOrderStore() *MemoryOrderStore {
	return &MemoryOrderStore{orders: make(map[domain.OrderID]*domain.Order)}
}

// Save stores a clone of the order, overwriting any previous version.
func (s *MemoryOrderStore) Save(_ context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[order.ID()] = order.Clone()
	return nil
}

// FindByID returns a clone of the stored order, or (nil, nil) when absent.
func (s *MemoryOrderStore) FindByID(_ context.Context, id domain.OrderID) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	return order.Clone(), nil
}

// FindAll returns clones of every stored order.
func (s *MemoryOrderStore) FindAll(_ context.Context) ([]*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	orders := make([]*domain.Order, 0, len(s.orders))
	for _, order := range s.orders {
		orders = append(orders, order.Clone())
	}
	return orders, nil
}

// FindByStatus returns clones of orders in the given status.
func (s *MemoryOrderStore) FindByStatus(_ context.Context, status domain.OrderStatus) ([]*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var orders []*domain.Order
	for _, order := range s.orders {
		if order.Status() == status {
			orders = append(orders, order.Clone())
		}
	}
	return orders, nil
}

// NextIdentity generates a fresh order id.
func (s *MemoryOrderStore) NextIdentity() domain.OrderID {
	return domain.NewOrderID()
}

// MemoryInventoryStore is a thread-safe in-memory InventoryStore.
type MemoryInventoryStore struct {
	mu      sync.RWMutex
	records map[domain.BookID]*domain.Inventory
}

// Compile-time interface check.
var _ InventoryStore = (*MemoryInventoryStore)(nil)

// NewMemoryInventoryStore creates an empty store.
func NewMemoryInventoryStore() *MemoryInventoryStore {
	return &MemoryInventoryStore{records: make(map[domain.BookID]*domain.Inventory)}
}

// Save stores a clone of the inventory record.
func (s *MemoryInventoryStore) Save(_ context.Context, inventory *domain.Inventory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[inventory.BookID()] = inventory.Clone()
	return nil
}

// FindByBookID returns a clone of the record, or (nil, nil) when absent.
func (s *MemoryInventoryStore) FindByBookID(_ context.Context, id domain.BookID) (*domain.Inventory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.records[id]
	if !ok {
		return nil, nil
	}
	return inv.Clone(), nil
}

// FindAll returns clones of every record.
func (s *MemoryInventoryStore) FindAll(_ context.Context) ([]*domain.Inventory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]*domain.Inventory, 0, len(s.records))
	for _, inv := range s.records {
		records = append(records, inv.Clone())
	}
	return records, nil
}

// FindByMaxQuantity returns records at or below the threshold.
func (s *MemoryInventoryStore) FindByMaxQuantity(_ context.Context, maxQuantity int) ([]*domain.Inventory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var records []*domain.Inventory
	for _, inv := range s.records {
		if inv.QuantityOnHand() <= maxQuantity {
			records = append(records, inv.Clone())
		}
	}
	return records, nil
}
