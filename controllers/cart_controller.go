package controllers

import (
	"net/http"

	"checkout-service/models"
	"checkout-service/services"

	"github.com/gin-gonic/gin"
)

type CartController struct {
	carts *services.CartService
}

func NewCartController(carts *services.CartService) *CartController {
	return &CartController{carts: carts}
}

// GetCart handles GET /cart
func (cc *CartController) GetCart(c *gin.Context) {
	auth, ok := authFrom(c)
	if !ok {
		return
	}
	cart, svcErr := cc.carts.Get(c.Request.Context(), auth)
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	c.JSON(http.StatusOK, cart)
}

// ReplaceCart handles PUT /cart
func (cc *CartController) ReplaceCart(c *gin.Context) {
	auth, ok := authFrom(c)
	if !ok {
		return
	}
	var req models.ReplaceCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	cart, svcErr := cc.carts.Replace(c.Request.Context(), auth, req.Items)
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	c.JSON(http.StatusOK, cart)
}

// ClearCart handles DELETE /cart
func (cc *CartController) ClearCart(c *gin.Context) {
	auth, ok := authFrom(c)
	if !ok {
		return
	}
	if svcErr := cc.carts.Clear(c.Request.Context(), auth); svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	c.Status(http.StatusNoContent)
}

// PruneCart handles POST /cart/prune
func (cc *CartController) PruneCart(c *gin.Context) {
	auth, ok := authFrom(c)
	if !ok {
		return
	}
	cart, removed, svcErr := cc.carts.Prune(c.Request.Context(), auth)
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": cart, "removed": removed})
}
