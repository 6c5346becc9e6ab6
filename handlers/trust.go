// File: handlers/trust.go
package handlers

import (
	"net/http"

	"servana/models"
	"servana/services/trust"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// EvaluateTrustGateHandler tells the caller what an action would require
// of them (warning, no-show fee, consultation) before they attempt it.
func (hb *HandlerBundle) EvaluateTrustGateHandler(c *gin.Context) {
	logger := getLogger(c)

	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var input struct {
		Role            string `json:"role" binding:"required"`
		PostingJob      bool   `json:"posting_job"`
		AcceptingWork   bool   `json:"accepting_work"`
		NoShowFeeSet    bool   `json:"no_show_fee_set"`
		HasAcknowledged bool   `json:"has_acknowledged"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	if input.Role != models.RoleCustomer && input.Role != models.RoleProvider {
		c.JSON(http.StatusBadRequest, gin.H{"error": "role must be 'customer' or 'provider'"})
		return
	}

	actx := trust.ActionContext{
		PostingJob:      input.PostingJob,
		AcceptingWork:   input.AcceptingWork,
		NoShowFeeSet:    input.NoShowFeeSet,
		HasAcknowledged: input.HasAcknowledged,
	}
	decision, err := hb.Trust.EvaluateFor(c.Request.Context(), userID.(string), input.Role, actx)
	if err != nil {
		logger.Error("Failed to evaluate trust gate", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to evaluate trust gate"})
		return
	}
	c.JSON(http.StatusOK, decision)
}
