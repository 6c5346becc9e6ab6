// File: handlers/refund.go
package handlers

import (
	"context"
	"errors"
	"net/http"

	escrowRepo "servana/database/repository/escrow"
	refundRepo "servana/database/repository/refund"
	"servana/services/refund"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CheckRefundEligibilityHandler quotes the refund a cancellation would earn
// right now, without committing to anything.
func (hb *HandlerBundle) CheckRefundEligibilityHandler(c *gin.Context) {
	logger := getLogger(c)

	bookingID := c.Param("bookingID")
	eligibility, err := hb.Refunds.CheckEligibility(c.Request.Context(), bookingID)
	if err != nil {
		logger.Error("Failed to check refund eligibility", zap.String("bookingID", bookingID), zap.Error(err))
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, eligibility)
}

// SubmitRefundRequestHandler cancels the booking and opens a refund request.
func (hb *HandlerBundle) SubmitRefundRequestHandler(c *gin.Context) {
	logger := getLogger(c)

	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var input struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	bookingID := c.Param("bookingID")
	request, err := hb.Refunds.SubmitRefundRequest(c.Request.Context(), bookingID, userID.(string), input.Reason)
	if err != nil {
		var notEligible *refund.ErrNotEligible
		if errors.As(err, &notEligible) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": notEligible.Reason})
			return
		}
		if errors.Is(err, refundRepo.ErrOpenRequestExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "a refund request is already open for this booking"})
			return
		}
		logger.Error("Failed to submit refund request", zap.String("bookingID", bookingID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to submit refund request"})
		return
	}
	c.JSON(http.StatusCreated, request)
}

// ListPendingRefundsHandler returns the admin review queue of unresolved
// requests.
func (hb *HandlerBundle) ListPendingRefundsHandler(c *gin.Context) {
	requests, err := hb.Refunds.ListPending(c.Request.Context())
	if err != nil {
		getLogger(c).Error("Failed to list pending refund requests", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list pending refund requests"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

// ApproveRefundHandler is the admin decision that pays the refund out.
func (hb *HandlerBundle) ApproveRefundHandler(c *gin.Context) {
	hb.resolveRefund(c, hb.Refunds.ApproveRefund)
}

// RejectRefundHandler is the admin decision that closes the request unpaid.
func (hb *HandlerBundle) RejectRefundHandler(c *gin.Context) {
	hb.resolveRefund(c, hb.Refunds.RejectRefund)
}

// resolveRefund runs an admin resolution; a request that was already
// resolved by a concurrent admin comes back as a 409.
func (hb *HandlerBundle) resolveRefund(c *gin.Context, fn func(ctx context.Context, requestID, adminID string) error) {
	logger := getLogger(c)

	adminID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	requestID := c.Param("requestID")
	if err := fn(c.Request.Context(), requestID, adminID.(string)); err != nil {
		if errors.Is(err, refundRepo.ErrRequestResolved) {
			c.JSON(http.StatusConflict, gin.H{"error": "refund request already resolved"})
			return
		}
		if errors.Is(err, escrowRepo.ErrStateConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "settlement can no longer be refunded"})
			return
		}
		logger.Error("Failed to resolve refund request", zap.String("requestID", requestID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve refund request"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
