package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"restobook/internal/models"
)

// MemoryRepository keeps restaurants in process memory.
type MemoryRepository struct {
	mu          sync.RWMutex
	restaurants map[int64]*models.Restaurant
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{restaurants: make(map[int64]*models.Restaurant)}
}

func (m *MemoryRepository) Load(_ context.Context, id int64) (*models.Restaurant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.restaurants[id]
	if !ok {
		return nil, models.NewNotFound("restaurant", id)
	}
	return r.Clone(), nil
}

func (m *MemoryRepository) Save(_ context.Context, r *models.Restaurant) (*models.Restaurant, error) {
	if r == nil || r.ID <= 0 {
		return nil, fmt.Errorf("restaurant id is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var current int64
	if existing, ok := m.restaurants[r.ID]; ok {
		current = existing.Version
	}
	if r.Version != current {
		return nil, ErrConcurrentModification
	}

	stored := r.Clone()
	stored.Version = current + 1
	m.restaurants[r.ID] = stored
	return stored.Clone(), nil
}

func (m *MemoryRepository) List(_ context.Context) ([]*models.Restaurant, error) {
	return m.filter(func(*models.Restaurant) bool { return true }), nil
}

func (m *MemoryRepository) ListByCity(_ context.Context, city string) ([]*models.Restaurant, error) {
	return m.filter(func(r *models.Restaurant) bool { return r.InCity(city) }), nil
}

func (m *MemoryRepository) filter(keep func(*models.Restaurant) bool) []*models.Restaurant {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.Restaurant, 0, len(m.restaurants))
	for _, r := range m.restaurants {
		if keep(r) {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
