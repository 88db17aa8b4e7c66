package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"rentline/internal/usecase"
	"rentline/pkg/response"
	"rentline/pkg/utils"
)

type ListingHandler struct {
	listingUseCase *usecase.ListingUseCase
}

func NewListingHandler(listingUseCase *usecase.ListingUseCase) *ListingHandler {
	return &ListingHandler{
		listingUseCase: listingUseCase,
	}
}

type createListingRequest struct {
	Title       string  `json:"title" validate:"required"`
	Description string  `json:"description"`
	Address     string  `json:"address" validate:"required"`
	City        string  `json:"city" validate:"required"`
	MonthlyRent float64 `json:"monthly_rent" validate:"required,gt=0"`
	Bedrooms    int     `json:"bedrooms" validate:"gte=0"`
	Bathrooms   int     `json:"bathrooms" validate:"gte=0"`
	Furnished   bool    `json:"furnished"`
}

type updateListingRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	MonthlyRent float64 `json:"monthly_rent" validate:"omitempty,gt=0"`
	Status      string  `json:"status" validate:"omitempty,oneof=available rented archived"`
}

func (h *ListingHandler) CreateListing(c echo.Context) error {
	var req createListingRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	listing, err := h.listingUseCase.CreateListing(c.Request().Context(), userID, usecase.CreateListingInput{
		Title:       req.Title,
		Description: req.Description,
		Address:     req.Address,
		City:        req.City,
		MonthlyRent: req.MonthlyRent,
		Bedrooms:    req.Bedrooms,
		Bathrooms:   req.Bathrooms,
		Furnished:   req.Furnished,
	})

	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, listing)
}

func (h *ListingHandler) GetListing(c echo.Context) error {
	listing, err := h.listingUseCase.GetListing(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, listing)
}

// BrowseListings lists available listings in a city.
func (h *ListingHandler) BrowseListings(c echo.Context) error {
	city := c.QueryParam("city")
	pagination := utils.GetPaginationParams(c)

	listings, total, err := h.listingUseCase.BrowseByCity(c.Request().Context(), city, pagination.Limit, pagination.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.SuccessPaginated(c, listings, total, pagination.Limit, pagination.Offset)
}

// MyListings lists the authenticated landlord's own listings.
func (h *ListingHandler) MyListings(c echo.Context) error {
	userID := c.Get("uid").(string)
	pagination := utils.GetPaginationParams(c)

	listings, total, err := h.listingUseCase.ListByLandlord(c.Request().Context(), userID, pagination.Limit, pagination.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.SuccessPaginated(c, listings, total, pagination.Limit, pagination.Offset)
}

func (h *ListingHandler) UpdateListing(c echo.Context) error {
	var req updateListingRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	listing, err := h.listingUseCase.UpdateListing(c.Request().Context(), userID, c.Param("id"), usecase.UpdateListingInput{
		Title:       req.Title,
		Description: req.Description,
		MonthlyRent: req.MonthlyRent,
		Status:      req.Status,
	})

	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, listing)
}

func (h *ListingHandler) DeleteListing(c echo.Context) error {
	userID := c.Get("uid").(string)

	if err := h.listingUseCase.DeleteListing(c.Request().Context(), userID, c.Param("id")); err != nil {
		return response.Error(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}
