package portfolio

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/anaysomani05/opti-invest/internal/contracts"
)

// ErrNotFound is returned when no holding carries the requested id.
var ErrNotFound = errors.New("holding not found")

// MemoryStore is an in-process HoldingStore. Holdings keep insertion order.
type MemoryStore struct {
	mu       sync.RWMutex
	holdings map[string]contracts.Holding
	order    []string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		holdings: make(map[string]contracts.Holding),
	}
}

func (s *MemoryStore) List(ctx context.Context) ([]contracts.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]contracts.Holding, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.holdings[id])
	}
	return out, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*contracts.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.holdings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &h, nil
}

func (s *MemoryStore) Add(ctx context.Context, h contracts.Holding) (*contracts.Holding, error) {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	h.Symbol = strings.ToUpper(strings.TrimSpace(h.Symbol))

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.holdings[h.ID]; !exists {
		s.order = append(s.order, h.ID)
	}
	s.holdings[h.ID] = h
	return &h, nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, h contracts.Holding) (*contracts.Holding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.holdings[id]
	if !ok {
		return nil, ErrNotFound
	}

	if h.Symbol != "" {
		existing.Symbol = strings.ToUpper(strings.TrimSpace(h.Symbol))
	}
	if h.Quantity > 0 {
		existing.Quantity = h.Quantity
	}
	if h.BuyPrice > 0 {
		existing.BuyPrice = h.BuyPrice
	}
	if h.BuyDate != nil {
		existing.BuyDate = h.BuyDate
	}

	s.holdings[id] = existing
	return &existing, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.holdings[id]; !ok {
		return ErrNotFound
	}
	delete(s.holdings, id)

	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.holdings = make(map[string]contracts.Holding)
	s.order = nil
	return nil
}
