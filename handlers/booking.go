// File: handlers/booking.go
package handlers

import (
	"errors"
	"net/http"

	"servana/models"
	"servana/services/booking"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CreateBookingHandler creates a single confirmed booking: trust gate,
// slot reservation, payment capture, escrow hold.
func (hb *HandlerBundle) CreateBookingHandler(c *gin.Context) {
	logger := getLogger(c)

	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	req.UserID = userID.(string)

	created, err := hb.Bookings.CreateBooking(c.Request.Context(), req)
	if err != nil {
		var policyErr *booking.PolicyError
		if errors.As(err, &policyErr) {
			c.JSON(http.StatusConflict, gin.H{"error": policyErr.Message, "code": policyErr.Code})
			return
		}
		logger.Error("Failed to create booking", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create booking"})
		return
	}
	c.JSON(http.StatusCreated, created)
}

// CompleteBookingHandler marks service delivery done and releases escrow.
func (hb *HandlerBundle) CompleteBookingHandler(c *gin.Context) {
	logger := getLogger(c)

	actor, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	bookingID := c.Param("bookingID")
	if err := hb.Bookings.CompleteBooking(c.Request.Context(), bookingID, actor.(string)); err != nil {
		logger.Error("Failed to complete booking", zap.String("bookingID", bookingID), zap.Error(err))
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": models.BookingStatusCompleted})
}

// MarkNoShowHandler records a customer no-show for a confirmed booking.
func (hb *HandlerBundle) MarkNoShowHandler(c *gin.Context) {
	logger := getLogger(c)

	actor, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	bookingID := c.Param("bookingID")
	if err := hb.Bookings.MarkNoShow(c.Request.Context(), bookingID, actor.(string)); err != nil {
		logger.Error("Failed to mark no-show", zap.String("bookingID", bookingID), zap.Error(err))
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": models.BookingStatusNoShow})
}

// ListMyBookingsHandler returns the authenticated user's bookings.
func (hb *HandlerBundle) ListMyBookingsHandler(c *gin.Context) {
	logger := getLogger(c)

	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	bookings, err := hb.Bookings.ListBookingsForUser(c.Request.Context(), userID.(string))
	if err != nil {
		logger.Error("Failed to list bookings", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list bookings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

// GetTimelineHandler returns a booking's append-only event history.
func (hb *HandlerBundle) GetTimelineHandler(c *gin.Context) {
	logger := getLogger(c)

	bookingID := c.Param("bookingID")
	events, err := hb.Bookings.GetTimeline(c.Request.Context(), bookingID)
	if err != nil {
		logger.Error("Failed to fetch booking timeline", zap.String("bookingID", bookingID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch timeline"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking_id": bookingID, "events": events})
}

// CreateSeriesHandler creates a recurring booking series.
func (hb *HandlerBundle) CreateSeriesHandler(c *gin.Context) {
	logger := getLogger(c)

	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var series models.RecurringSeries
	if err := c.ShouldBindJSON(&series); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	series.UserID = userID.(string)

	created, err := hb.Bookings.CreateRecurringSeries(c.Request.Context(), series)
	if err != nil {
		var policyErr *booking.PolicyError
		if errors.As(err, &policyErr) {
			c.JSON(http.StatusConflict, gin.H{"error": policyErr.Message, "code": policyErr.Code})
			return
		}
		logger.Error("Failed to create recurring series", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, created)
}

// MaterializeSeriesHandler generates the next N occurrences of a series.
func (hb *HandlerBundle) MaterializeSeriesHandler(c *gin.Context) {
	logger := getLogger(c)

	var input struct {
		Count int `json:"count"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	if input.Count <= 0 {
		input.Count = 1
	}

	seriesID := c.Param("seriesID")
	bookings, err := hb.Expander.Materialize(c.Request.Context(), seriesID, input.Count)
	if err != nil {
		logger.Error("Failed to materialize series", zap.String("seriesID", seriesID), zap.Error(err))
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

// PauseSeriesHandler stops future materialization for a series.
func (hb *HandlerBundle) PauseSeriesHandler(c *gin.Context) {
	seriesID := c.Param("seriesID")
	if err := hb.Expander.Pause(c.Request.Context(), seriesID); err != nil {
		getLogger(c).Error("Failed to pause series", zap.String("seriesID", seriesID), zap.Error(err))
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"is_active": false})
}

// ResumeSeriesHandler reactivates a paused series from the current date;
// occurrences missed while paused are not backfilled.
func (hb *HandlerBundle) ResumeSeriesHandler(c *gin.Context) {
	seriesID := c.Param("seriesID")
	if err := hb.Expander.Resume(c.Request.Context(), seriesID); err != nil {
		getLogger(c).Error("Failed to resume series", zap.String("seriesID", seriesID), zap.Error(err))
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"is_active": true})
}
