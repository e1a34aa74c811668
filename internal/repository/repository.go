// Package repository persists restaurant aggregates. Every store keeps a
// version per restaurant and rejects writes made against a stale copy.
package repository

import (
	"context"
	"errors"

	"restobook/internal/models"
)

var ErrConcurrentModification = errors.New("concurrent modification")

// RestaurantRepository loads and saves whole restaurant aggregates.
//
// Load returns a private copy the caller may mutate freely. Save persists r
// when r.Version still matches the stored version and returns the stored
// copy with the bumped version. A restaurant saved for the first time must
// carry Version 0.
type RestaurantRepository interface {
	Load(ctx context.Context, id int64) (*models.Restaurant, error)
	Save(ctx context.Context, r *models.Restaurant) (*models.Restaurant, error)
	List(ctx context.Context) ([]*models.Restaurant, error)
	ListByCity(ctx context.Context, city string) ([]*models.Restaurant, error)
}

const maxUpdateAttempts = 3

// Update runs fn against a fresh copy of the restaurant and saves the result.
// When another writer got there first the whole load-modify-save cycle is
// retried, so fn must not keep state between calls other than its result.
func Update(ctx context.Context, repo RestaurantRepository, id int64, fn func(r *models.Restaurant) error) (*models.Restaurant, error) {
	for attempt := 1; ; attempt++ {
		r, err := repo.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := fn(r); err != nil {
			return nil, err
		}
		saved, err := repo.Save(ctx, r)
		if errors.Is(err, ErrConcurrentModification) && attempt < maxUpdateAttempts {
			continue
		}
		return saved, err
	}
}
