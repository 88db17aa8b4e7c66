package router

import (
	"github.com/labstack/echo/v4"

	"rentline/internal/adapter/api/handler"
	"rentline/internal/adapter/api/middleware"
)

func SetupListingRouter(e *echo.Echo, listingHandler *handler.ListingHandler, authMiddleware *middleware.AuthMiddleware) {
	// Public browsing
	e.GET("/v1/listings", listingHandler.BrowseListings)
	e.GET("/v1/listings/:id", listingHandler.GetListing)

	// Landlord management
	listings := e.Group("/v1/listings")
	listings.Use(authMiddleware.Authenticate)
	listings.POST("", listingHandler.CreateListing)
	listings.PATCH("/:id", listingHandler.UpdateListing)
	listings.DELETE("/:id", listingHandler.DeleteListing)

	me := e.Group("/v1/my-listings")
	me.Use(authMiddleware.Authenticate)
	me.GET("", listingHandler.MyListings)
}
