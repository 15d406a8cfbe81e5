package repository

import (
	"context"

	"carlink/internal/domain/entity"
)

type VehicleRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Vehicle, error)
	List(ctx context.Context, filter map[string]interface{}, limit, offset int) ([]*entity.Vehicle, int64, error)
}
