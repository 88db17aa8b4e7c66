package usecase

import (
	"context"

	"rentline/internal/domain/entity"
	"rentline/internal/domain/repository"
	"rentline/pkg/errors"
)

type ListingUseCase struct {
	listingRepo repository.ListingRepository
	userRepo    repository.UserRepository
}

func NewListingUseCase(listingRepo repository.ListingRepository, userRepo repository.UserRepository) *ListingUseCase {
	return &ListingUseCase{
		listingRepo: listingRepo,
		userRepo:    userRepo,
	}
}

type CreateListingInput struct {
	Title       string
	Description string
	Address     string
	City        string
	MonthlyRent float64
	Bedrooms    int
	Bathrooms   int
	Furnished   bool
}

type UpdateListingInput struct {
	Title       string
	Description string
	MonthlyRent float64
	Status      string
}

func (uc *ListingUseCase) CreateListing(ctx context.Context, landlordID string, input CreateListingInput) (*entity.Listing, error) {
	landlord, err := uc.userRepo.GetByID(ctx, landlordID)
	if err != nil {
		return nil, err
	}
	if landlord.Role != entity.RoleLandlord && landlord.Role != entity.RoleAdmin {
		return nil, errors.Forbidden("Only landlords can publish listings", nil)
	}

	listing := &entity.Listing{
		LandlordID:  landlordID,
		Title:       input.Title,
		Description: input.Description,
		Address:     input.Address,
		City:        input.City,
		MonthlyRent: input.MonthlyRent,
		Bedrooms:    input.Bedrooms,
		Bathrooms:   input.Bathrooms,
		Furnished:   input.Furnished,
		Status:      entity.ListingStatusAvailable,
	}

	if err := uc.listingRepo.Create(ctx, listing); err != nil {
		return nil, err
	}

	return listing, nil
}

func (uc *ListingUseCase) GetListing(ctx context.Context, id string) (*entity.Listing, error) {
	listing, err := uc.listingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// View counting is best effort; a failed increment never blocks the read.
	if err := uc.listingRepo.IncrementViews(ctx, id); err == nil {
		listing.Views++
	}

	return listing, nil
}

func (uc *ListingUseCase) BrowseByCity(ctx context.Context, city string, limit, offset int) ([]*entity.Listing, int64, error) {
	return uc.listingRepo.ListByCity(ctx, city, limit, offset)
}

func (uc *ListingUseCase) ListByLandlord(ctx context.Context, landlordID string, limit, offset int) ([]*entity.Listing, int64, error) {
	return uc.listingRepo.ListByLandlordID(ctx, landlordID, limit, offset)
}

func (uc *ListingUseCase) UpdateListing(ctx context.Context, landlordID, listingID string, input UpdateListingInput) (*entity.Listing, error) {
	listing, err := uc.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.LandlordID != landlordID {
		return nil, errors.Forbidden("You can only update your own listings", nil)
	}

	if input.Title != "" {
		listing.Title = input.Title
	}
	if input.Description != "" {
		listing.Description = input.Description
	}
	if input.MonthlyRent > 0 {
		listing.MonthlyRent = input.MonthlyRent
	}
	if input.Status != "" {
		switch input.Status {
		case entity.ListingStatusAvailable, entity.ListingStatusRented, entity.ListingStatusArchived:
			listing.Status = input.Status
		default:
			return nil, errors.BadRequest("Invalid listing status", nil)
		}
	}

	if err := uc.listingRepo.Update(ctx, listing); err != nil {
		return nil, err
	}

	return listing, nil
}

func (uc *ListingUseCase) DeleteListing(ctx context.Context, landlordID, listingID string) error {
	listing, err := uc.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return err
	}
	if listing.LandlordID != landlordID {
		return errors.Forbidden("You can only delete your own listings", nil)
	}

	return uc.listingRepo.Delete(ctx, listingID)
}
