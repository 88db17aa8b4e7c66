package repository

import (
	"context"

	"rentline/internal/domain/entity"
)

type ListingRepository interface {
	Create(ctx context.Context, listing *entity.Listing) error
	GetByID(ctx context.Context, id string) (*entity.Listing, error)
	ListByLandlordID(ctx context.Context, landlordID string, limit, offset int) ([]*entity.Listing, int64, error)
	ListByCity(ctx context.Context, city string, limit, offset int) ([]*entity.Listing, int64, error)
	Update(ctx context.Context, listing *entity.Listing) error
	Delete(ctx context.Context, id string) error
	IncrementViews(ctx context.Context, id string) error
}
