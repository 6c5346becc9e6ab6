// File: handlers/escrow.go
package handlers

import (
	"context"
	"errors"
	"net/http"

	escrowRepo "servana/database/repository/escrow"
	"servana/models"
	"servana/services/escrow"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// escrowStatus maps settlement errors to HTTP codes: state conflicts are
// 409, everything else 500.
func escrowStatus(err error) int {
	if errors.Is(err, escrowRepo.ErrStateConflict) || errors.Is(err, escrow.ErrAdjustmentAlreadyApplied) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// GetSettlementHandler returns the settlement record for a booking.
func (hb *HandlerBundle) GetSettlementHandler(c *gin.Context) {
	logger := getLogger(c)

	bookingID := c.Param("bookingID")
	settlement, err := hb.SettlementDB.GetByBookingID(c.Request.Context(), bookingID)
	if err != nil {
		logger.Error("Failed to fetch settlement", zap.String("bookingID", bookingID), zap.Error(err))
		c.JSON(http.StatusNotFound, gin.H{"error": "settlement not found"})
		return
	}
	c.JSON(http.StatusOK, settlement)
}

// BeginConsultationHandler moves a held settlement into consultation.
func (hb *HandlerBundle) BeginConsultationHandler(c *gin.Context) {
	hb.settlementTransition(c, hb.Settlements.BeginConsultation)
}

// CompleteConsultationHandler records the consultation outcome and returns
// the settlement to Held.
func (hb *HandlerBundle) CompleteConsultationHandler(c *gin.Context) {
	hb.settlementTransition(c, hb.Settlements.CompleteConsultation)
}

// ProposeAdjustmentHandler proposes a one-time price change after
// consultation. At most one adjustment per booking.
func (hb *HandlerBundle) ProposeAdjustmentHandler(c *gin.Context) {
	logger := getLogger(c)

	actor, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var input struct {
		NewAmount float64 `json:"new_amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	bookingID := c.Param("bookingID")
	if err := hb.Settlements.ProposeAdjustment(c.Request.Context(), bookingID, input.NewAmount, actor.(string)); err != nil {
		logger.Error("Failed to propose adjustment", zap.String("bookingID", bookingID), zap.Error(err))
		c.JSON(escrowStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": models.SettlementAwaitingPriceApproval})
}

// ApproveAdjustmentHandler accepts the proposed price.
func (hb *HandlerBundle) ApproveAdjustmentHandler(c *gin.Context) {
	hb.settlementTransition(c, hb.Settlements.ApproveAdjustment)
}

// RejectAdjustmentHandler declines the proposed price, restoring the
// settlement to the state it held before the proposal.
func (hb *HandlerBundle) RejectAdjustmentHandler(c *gin.Context) {
	hb.settlementTransition(c, hb.Settlements.RejectAdjustment)
}

// ReleaseSettlementHandler releases held funds to the provider.
func (hb *HandlerBundle) ReleaseSettlementHandler(c *gin.Context) {
	hb.settlementTransition(c, hb.Settlements.Release)
}

// OpenDisputeHandler freezes the settlement until an admin resolves it.
func (hb *HandlerBundle) OpenDisputeHandler(c *gin.Context) {
	logger := getLogger(c)

	actor, exists := c.Get("userID")
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
	if err := hb.Settlements.OpenDispute(c.Request.Context(), bookingID, actor.(string), input.Reason); err != nil {
		logger.Error("Failed to open dispute", zap.String("bookingID", bookingID), zap.Error(err))
		c.JSON(escrowStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": models.SettlementDisputed})
}

// ResolveDisputeHandler is the admin-only terminal decision on a dispute:
// release to the provider or refund the customer.
func (hb *HandlerBundle) ResolveDisputeHandler(c *gin.Context) {
	logger := getLogger(c)

	actor, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var input struct {
		Resolution   string  `json:"resolution" binding:"required"` // "release" or "refund"
		RefundAmount float64 `json:"refund_amount"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	if input.Resolution != models.ResolutionRelease && input.Resolution != models.ResolutionRefund {
		c.JSON(http.StatusBadRequest, gin.H{"error": "resolution must be 'release' or 'refund'"})
		return
	}

	bookingID := c.Param("bookingID")
	err := hb.Settlements.ResolveDispute(c.Request.Context(), bookingID, actor.(string), input.Resolution, input.RefundAmount)
	if err != nil {
		logger.Error("Failed to resolve dispute", zap.String("bookingID", bookingID), zap.Error(err))
		c.JSON(escrowStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"resolution": input.Resolution})
}

// settlementTransition runs a simple actor-only transition shared by
// several endpoints.
func (hb *HandlerBundle) settlementTransition(c *gin.Context, fn func(ctx context.Context, bookingID, actor string) error) {
	logger := getLogger(c)

	actor, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	bookingID := c.Param("bookingID")
	if err := fn(c.Request.Context(), bookingID, actor.(string)); err != nil {
		logger.Error("Settlement transition failed", zap.String("bookingID", bookingID), zap.Error(err))
		c.JSON(escrowStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
