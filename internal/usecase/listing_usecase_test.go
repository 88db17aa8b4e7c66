package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentline/internal/domain/entity"
	"rentline/pkg/errors"
)

func newTestListingUseCase(t *testing.T) (*ListingUseCase, *memListingRepo) {
	t.Helper()

	listingRepo := newMemListingRepo()
	userRepo := newMemUserRepo(
		&entity.User{ID: "bob", Email: "bob@example.com", Username: "bob", Role: entity.RoleLandlord},
		&entity.User{ID: "alice", Email: "alice@example.com", Username: "alice", Role: entity.RoleTenant},
	)

	return NewListingUseCase(listingRepo, userRepo), listingRepo
}

func TestCreateListingLandlordOnly(t *testing.T) {
	uc, _ := newTestListingUseCase(t)
	ctx := context.Background()

	listing, err := uc.CreateListing(ctx, "bob", CreateListingInput{
		Title:       "Sunny 2BR",
		Address:     "Kerkstraat 1",
		City:        "Rotterdam",
		MonthlyRent: 1450,
		Bedrooms:    2,
		Bathrooms:   1,
	})
	require.NoError(t, err)
	assert.Equal(t, entity.ListingStatusAvailable, listing.Status)
	assert.Equal(t, "bob", listing.LandlordID)

	// Tenants cannot publish.
	_, err = uc.CreateListing(ctx, "alice", CreateListingInput{Title: "Nope", Address: "x", City: "y", MonthlyRent: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, "FORBIDDEN"))
}

func TestUpdateListingOwnerChecked(t *testing.T) {
	uc, _ := newTestListingUseCase(t)
	ctx := context.Background()

	listing, err := uc.CreateListing(ctx, "bob", CreateListingInput{Title: "Original", Address: "a", City: "c", MonthlyRent: 1000})
	require.NoError(t, err)

	updated, err := uc.UpdateListing(ctx, "bob", listing.ID, UpdateListingInput{Title: "Renamed", Status: entity.ListingStatusRented})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, entity.ListingStatusRented, updated.Status)

	_, err = uc.UpdateListing(ctx, "alice", listing.ID, UpdateListingInput{Title: "Hijack"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, "FORBIDDEN"))

	_, err = uc.UpdateListing(ctx, "bob", listing.ID, UpdateListingInput{Status: "bogus"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, "BAD_REQUEST"))
}

func TestDeleteListingOwnerChecked(t *testing.T) {
	uc, _ := newTestListingUseCase(t)
	ctx := context.Background()

	listing, err := uc.CreateListing(ctx, "bob", CreateListingInput{Title: "Short stay", Address: "a", City: "c", MonthlyRent: 900})
	require.NoError(t, err)

	err = uc.DeleteListing(ctx, "alice", listing.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, "FORBIDDEN"))

	require.NoError(t, uc.DeleteListing(ctx, "bob", listing.ID))

	_, err = uc.GetListing(ctx, listing.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, "NOT_FOUND"))
}
