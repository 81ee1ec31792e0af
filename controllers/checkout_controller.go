package controllers

import (
	"errors"
	"net/http"

	"checkout-service/middleware"
	"checkout-service/models"
	"checkout-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CheckoutController serves /checkout/sessions.
type CheckoutController struct {
	checkout     *services.CheckoutService
	carts        services.CartStore
	maxProofSize int64
	logger       *zap.Logger
}

func NewCheckoutController(checkout *services.CheckoutService, carts services.CartStore, maxProofSize int64, logger *zap.Logger) *CheckoutController {
	if maxProofSize <= 0 {
		maxProofSize = DefaultProofLimit
	}
	return &CheckoutController{checkout: checkout, carts: carts, maxProofSize: maxProofSize, logger: logger}
}

// StartSession handles POST /checkout/sessions
func (cc *CheckoutController) StartSession(c *gin.Context) {
	auth, ok := authFrom(c)
	if !ok {
		return
	}

	sess, svcErr := cc.checkout.StartSession(c.Request.Context(), auth)
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	cc.respondView(c, http.StatusCreated, auth, sess)
}

// GetSession handles GET /checkout/sessions/:id
func (cc *CheckoutController) GetSession(c *gin.Context) {
	auth, sess, ok := cc.session(c)
	if !ok {
		return
	}
	cc.respondView(c, http.StatusOK, auth, sess)
}

// UpdateShippingAddress handles PUT /checkout/sessions/:id/shipping-address
func (cc *CheckoutController) UpdateShippingAddress(c *gin.Context) {
	var addr models.ShippingAddress
	if err := c.ShouldBindJSON(&addr); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	cc.update(c, func(sess *services.CheckoutSession) error {
		return sess.SetAddress(addr)
	})
}

// SelectDeliveryLocation handles PUT /checkout/sessions/:id/delivery-location
func (cc *CheckoutController) SelectDeliveryLocation(c *gin.Context) {
	var req models.SelectLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	cc.update(c, func(sess *services.CheckoutSession) error {
		return sess.SelectLocation(req.LocationID)
	})
}

// SetPayment handles PUT /checkout/sessions/:id/payment
func (cc *CheckoutController) SetPayment(c *gin.Context) {
	var req models.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	sel, err := req.Selection()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported payment method"})
		return
	}
	cc.update(c, func(sess *services.CheckoutSession) error {
		return sess.SetPayment(sel)
	})
}

// SelectProof handles POST /checkout/sessions/:id/proof
func (cc *CheckoutController) SelectProof(c *gin.Context) {
	auth, sess, ok := cc.session(c)
	if !ok {
		return
	}
	file, err := readProofFile(c, cc.maxProofSize)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := sess.SelectProof(file); err != nil {
		cc.writeError(c, err)
		return
	}
	cc.respondView(c, http.StatusOK, auth, sess)
}

// ConfirmProof handles POST /checkout/sessions/:id/proof/confirm
func (cc *CheckoutController) ConfirmProof(c *gin.Context) {
	cc.update(c, func(sess *services.CheckoutSession) error {
		return sess.ConfirmProof()
	})
}

// RemoveProof handles DELETE /checkout/sessions/:id/proof
func (cc *CheckoutController) RemoveProof(c *gin.Context) {
	cc.update(c, func(sess *services.CheckoutSession) error {
		return sess.RemoveProof()
	})
}

// Submit handles POST /checkout/sessions/:id/submit
func (cc *CheckoutController) Submit(c *gin.Context) {
	auth, sess, ok := cc.session(c)
	if !ok {
		return
	}

	result, err := cc.checkout.Submit(c.Request.Context(), sess, services.CheckoutContext{
		Auth: auth,
		Cart: services.NewCartContext(cc.carts, auth),
	})
	if err != nil {
		cc.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (cc *CheckoutController) update(c *gin.Context, apply func(sess *services.CheckoutSession) error) {
	auth, sess, ok := cc.session(c)
	if !ok {
		return
	}
	if err := apply(sess); err != nil {
		cc.writeError(c, err)
		return
	}
	cc.respondView(c, http.StatusOK, auth, sess)
}

func (cc *CheckoutController) session(c *gin.Context) (models.AuthContext, *services.CheckoutSession, bool) {
	auth, ok := authFrom(c)
	if !ok {
		return auth, nil, false
	}
	sess, err := cc.checkout.Session(auth, c.Param("id"))
	if err != nil {
		cc.writeError(c, err)
		return auth, nil, false
	}
	return auth, sess, true
}

func (cc *CheckoutController) respondView(c *gin.Context, status int, auth models.AuthContext, sess *services.CheckoutSession) {
	view, svcErr := cc.checkout.View(c.Request.Context(), sess, services.NewCartContext(cc.carts, auth))
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	c.JSON(status, view)
}

func (cc *CheckoutController) writeError(c *gin.Context, err error) {
	var validationErrs services.ValidationErrors
	var svcErr *services.ServiceError

	switch {
	case errors.As(err, &validationErrs):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": validationErrs})
	case errors.As(err, &svcErr):
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
	case errors.Is(err, services.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrCheckoutInProgress),
		errors.Is(err, services.ErrCheckoutCompleted),
		errors.Is(err, services.ErrProofLocked):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrUnknownLocation),
		errors.Is(err, services.ErrNoProofSelected):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrEmptyProofFile):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		middleware.LoggerFrom(c, cc.logger).Error("Unhandled checkout error", zap.String("session_id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func authFrom(c *gin.Context) (models.AuthContext, bool) {
	auth, err := middleware.GetAuth(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return auth, false
	}
	return auth, true
}
