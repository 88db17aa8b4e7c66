package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"rentline/internal/domain/entity"
	"rentline/internal/domain/repository"
	"rentline/pkg/errors"
	"rentline/pkg/logger"
)

type firestoreListingRepository struct {
	client *firestore.Client
}

func NewFirestoreListingRepository(client *firestore.Client) repository.ListingRepository {
	return &firestoreListingRepository{
		client: client,
	}
}

func (r *firestoreListingRepository) Create(ctx context.Context, listing *entity.Listing) error {
	if listing.ID == "" {
		listing.ID = uuid.New().String()
	}
	listing.CreatedAt = time.Time{}
	listing.UpdatedAt = time.Time{}

	if _, err := r.client.Collection("listings").Doc(listing.ID).Set(ctx, listing); err != nil {
		return errors.Store("Failed to create listing", err)
	}
	return nil
}

func (r *firestoreListingRepository) GetByID(ctx context.Context, id string) (*entity.Listing, error) {
	doc, err := r.client.Collection("listings").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Listing", err)
		}
		return nil, errors.Store("Failed to get listing", err)
	}

	var listing entity.Listing
	if err := doc.DataTo(&listing); err != nil {
		return nil, errors.Store("Failed to parse listing data", err)
	}

	return &listing, nil
}

func (r *firestoreListingRepository) ListByLandlordID(ctx context.Context, landlordID string, limit, offset int) ([]*entity.Listing, int64, error) {
	return r.listByField(ctx, "landlordId", landlordID, limit, offset)
}

func (r *firestoreListingRepository) ListByCity(ctx context.Context, city string, limit, offset int) ([]*entity.Listing, int64, error) {
	return r.listByField(ctx, "city", city, limit, offset)
}

func (r *firestoreListingRepository) listByField(ctx context.Context, field, value string, limit, offset int) ([]*entity.Listing, int64, error) {
	query := r.client.Collection("listings").Where(field, "==", value)

	allDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		logger.Error("Firestore error while fetching listings by %s=%s: %v", field, value, err)
		return nil, 0, errors.Store("Failed to fetch listings", err)
	}

	total := int64(len(allDocs))

	// Paginate in memory rather than issuing a second store query.
	start := offset
	if start > len(allDocs) {
		start = len(allDocs)
	}
	end := len(allDocs)
	if limit > 0 && start+limit < end {
		end = start + limit
	}

	var listings []*entity.Listing
	for i := start; i < end; i++ {
		var listing entity.Listing
		if err := allDocs[i].DataTo(&listing); err != nil {
			logger.Warn("Skipping malformed listing document %s: %v", allDocs[i].Ref.ID, err)
			continue
		}
		listings = append(listings, &listing)
	}

	return listings, total, nil
}

func (r *firestoreListingRepository) Update(ctx context.Context, listing *entity.Listing) error {
	listing.UpdatedAt = time.Time{}

	if _, err := r.client.Collection("listings").Doc(listing.ID).Set(ctx, listing); err != nil {
		return errors.Store("Failed to update listing", err)
	}
	return nil
}

func (r *firestoreListingRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.client.Collection("listings").Doc(id).Delete(ctx); err != nil {
		return errors.Store("Failed to delete listing", err)
	}
	return nil
}

func (r *firestoreListingRepository) IncrementViews(ctx context.Context, id string) error {
	_, err := r.client.Collection("listings").Doc(id).Update(ctx, []firestore.Update{
		{Path: "views", Value: firestore.Increment(1)},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Listing", err)
		}
		return errors.Store("Failed to increment listing views", err)
	}
	return nil
}
