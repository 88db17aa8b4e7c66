package entity

import "time"

const (
	ListingStatusAvailable = "available"
	ListingStatusRented    = "rented"
	ListingStatusArchived  = "archived"
)

// Listing is a rental property published by a landlord. Conversations may
// reference a listing as the subject they are about.
type Listing struct {
	ID          string  `json:"id" firestore:"id"`
	LandlordID  string  `json:"landlord_id" firestore:"landlordId"`
	Title       string  `json:"title" firestore:"title"`
	Description string  `json:"description,omitempty" firestore:"description,omitempty"`
	Address     string  `json:"address" firestore:"address"`
	City        string  `json:"city" firestore:"city"`
	MonthlyRent float64 `json:"monthly_rent" firestore:"monthlyRent"`
	Bedrooms    int     `json:"bedrooms" firestore:"bedrooms"`
	Bathrooms   int     `json:"bathrooms" firestore:"bathrooms"`
	Furnished   bool    `json:"furnished" firestore:"furnished"`
	Status      string  `json:"status" firestore:"status"`

	Views     int       `json:"views" firestore:"views"`
	CreatedAt time.Time `json:"created_at" firestore:"createdAt,serverTimestamp"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt,serverTimestamp"`
}
