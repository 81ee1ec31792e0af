package routes

import (
	"checkout-service/controllers"
	"checkout-service/middleware"

	"github.com/gin-gonic/gin"
)

// Controllers groups every handler the service exposes.
type Controllers struct {
	Checkout      *controllers.CheckoutController
	Cart          *controllers.CartController
	Locations     *controllers.LocationController
	ProofFailures *controllers.ProofFailureController
}

// RegisterRoutes mounts the shopper and operator routes. auth must resolve a
// models.AuthContext for every request.
func RegisterRoutes(r *gin.Engine, h Controllers, auth gin.HandlerFunc, submitLimiter *middleware.RateLimiter) {
	r.GET("/delivery-locations", h.Locations.ListDeliveryLocations)

	cart := r.Group("/cart", auth)
	cart.GET("", h.Cart.GetCart)
	cart.PUT("", h.Cart.ReplaceCart)
	cart.DELETE("", h.Cart.ClearCart)
	cart.POST("/prune", h.Cart.PruneCart)

	sessions := r.Group("/checkout/sessions", auth)
	sessions.POST("", h.Checkout.StartSession)
	sessions.GET("/:id", h.Checkout.GetSession)
	sessions.PUT("/:id/shipping-address", h.Checkout.UpdateShippingAddress)
	sessions.PUT("/:id/delivery-location", h.Checkout.SelectDeliveryLocation)
	sessions.PUT("/:id/payment", h.Checkout.SetPayment)
	sessions.POST("/:id/proof", h.Checkout.SelectProof)
	sessions.POST("/:id/proof/confirm", h.Checkout.ConfirmProof)
	sessions.DELETE("/:id/proof", h.Checkout.RemoveProof)
	sessions.POST("/:id/submit", middleware.RateLimit(submitLimiter), h.Checkout.Submit)

	// Operator tooling for proofs that never reached their order.
	internal := r.Group("/internal", auth, middleware.RequireRole("admin"))
	internal.GET("/proof-failures", h.ProofFailures.ListPending)
	internal.POST("/proof-failures/:id/resolve", h.ProofFailures.Resolve)
}
