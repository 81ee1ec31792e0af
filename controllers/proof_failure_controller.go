package controllers

import (
	"net/http"

	"checkout-service/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ProofFailureController exposes failed proof uploads to operators.
type ProofFailureController struct {
	recovery *services.ProofRecovery
}

func NewProofFailureController(recovery *services.ProofRecovery) *ProofFailureController {
	return &ProofFailureController{recovery: recovery}
}

// ListPending handles GET /internal/proof-failures
func (pc *ProofFailureController) ListPending(c *gin.Context) {
	page, limit := parsePaginationParams(c)
	list, svcErr := pc.recovery.ListPending(c.Request.Context(), page, limit)
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	c.JSON(http.StatusOK, list)
}

// Resolve handles POST /internal/proof-failures/:id/resolve
func (pc *ProofFailureController) Resolve(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid proof failure id"})
		return
	}
	failure, svcErr := pc.recovery.Resolve(c.Request.Context(), id)
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"failure": failure})
}
