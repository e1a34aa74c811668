package service

import (
	"context"

	"restobook/internal/events"
	"restobook/internal/metrics"
	"restobook/internal/models"
	"restobook/internal/schema"
)

// Schema returns the floor plan of a restaurant.
func (s *RestaurantService) Schema(ctx context.Context, id int64) (schema.Schema, error) {
	r, err := s.load(ctx, id)
	if err != nil {
		return schema.Schema{}, err
	}
	return schema.Get(r), nil
}

// UpdateSchema reconciles the submitted floor plan with the stored one.
func (s *RestaurantService) UpdateSchema(ctx context.Context, id int64, proposal schema.Schema) (schema.Schema, error) {
	var result schema.Schema
	_, err := s.update(ctx, id, "update_schema", func(r *models.Restaurant) error {
		updated, err := schema.Update(r, proposal, s.ids)
		if err != nil {
			return err
		}
		result = updated
		return nil
	})
	if err != nil {
		return schema.Schema{}, err
	}

	s.schemaChanged(id, "update")
	s.logger.Info().Int64("restaurant_id", id).Int("tables", len(result.Tables)).Msg("Schema updated")
	return result, nil
}

// AddFloor creates an empty floor.
func (s *RestaurantService) AddFloor(ctx context.Context, id int64, name string) (*models.Floor, error) {
	var floor *models.Floor
	_, err := s.update(ctx, id, "add_floor", func(r *models.Restaurant) error {
		f, err := schema.AddFloor(r, name, s.ids)
		if err != nil {
			return err
		}
		floor = f
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.schemaChanged(id, "add_floor")
	s.logger.Info().Int64("restaurant_id", id).Int64("floor_id", floor.ID).Msg("Floor added")
	return floor, nil
}

// DeleteFloor removes a floor with its items and spots.
func (s *RestaurantService) DeleteFloor(ctx context.Context, id, floorID int64) error {
	_, err := s.update(ctx, id, "delete_floor", func(r *models.Restaurant) error {
		return schema.DeleteFloor(r, floorID, s.clock.Now())
	})
	if err != nil {
		return err
	}

	s.schemaChanged(id, "delete_floor")
	s.logger.Info().Int64("restaurant_id", id).Int64("floor_id", floorID).Msg("Floor deleted")
	return nil
}

// DeleteSpot removes a spot and the tables linked to it.
func (s *RestaurantService) DeleteSpot(ctx context.Context, id, spotID int64) error {
	_, err := s.update(ctx, id, "delete_spot", func(r *models.Restaurant) error {
		return schema.DeleteSpot(r, spotID, s.clock.Now())
	})
	if err != nil {
		return err
	}

	s.schemaChanged(id, "delete_spot")
	s.logger.Info().Int64("restaurant_id", id).Int64("spot_id", spotID).Msg("Spot deleted")
	return nil
}

// UpdateSpot changes the number and seating bounds of a spot.
func (s *RestaurantService) UpdateSpot(ctx context.Context, id, spotID int64, info schema.SpotInfo) (*models.Spot, error) {
	var spot *models.Spot
	_, err := s.update(ctx, id, "update_spot", func(r *models.Restaurant) error {
		updated, err := schema.UpdateSpot(r, spotID, info, s.clock.Now())
		if err != nil {
			return err
		}
		spot = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.schemaChanged(id, "update_spot")
	return spot, nil
}

func (s *RestaurantService) schemaChanged(id int64, op string) {
	metrics.IncSchemaUpdate(op)
	s.publish(events.SchemaUpdated, RestaurantEvent{RestaurantID: id, Operation: op})
}
