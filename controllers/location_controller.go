package controllers

import (
	"net/http"

	"checkout-service/services"

	"github.com/gin-gonic/gin"
)

type LocationController struct {
	locations *services.LocationService
}

func NewLocationController(locations *services.LocationService) *LocationController {
	return &LocationController{locations: locations}
}

// ListDeliveryLocations handles GET /delivery-locations
func (lc *LocationController) ListDeliveryLocations(c *gin.Context) {
	locations, svcErr := lc.locations.ActiveLocations(c.Request.Context())
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"locations": locations})
}
