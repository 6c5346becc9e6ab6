// File: handlers/availability.go
package handlers

import (
	"net/http"
	"time"

	"servana/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ResolveAvailabilityHandler returns the bookable day schedule for a
// provider on a given date.
func (hb *HandlerBundle) ResolveAvailabilityHandler(c *gin.Context) {
	logger := getLogger(c)

	providerID := c.Param("providerID")
	date := c.Param("date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD"})
		return
	}
	listingID := c.Query("listing")

	slots, err := hb.Resolver.ResolveSlots(c.Request.Context(), providerID, date, listingID)
	if err != nil {
		logger.Error("Failed to resolve availability", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve availability"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"provider_id": providerID,
		"date":        date,
		"slots":       slots,
	})
}

// CreateRuleHandler creates an availability rule for the authenticated provider.
func (hb *HandlerBundle) CreateRuleHandler(c *gin.Context) {
	logger := getLogger(c)

	providerID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var rule models.AvailabilityRule
	if err := c.ShouldBindJSON(&rule); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	rule.ProviderID = providerID.(string)

	if err := hb.Availability.CreateRule(c.Request.Context(), &rule); err != nil {
		logger.Error("Failed to create availability rule", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, rule)
}

// ListRulesHandler lists the authenticated provider's availability rules.
func (hb *HandlerBundle) ListRulesHandler(c *gin.Context) {
	logger := getLogger(c)

	providerID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	rules, err := hb.Availability.GetRulesByProvider(c.Request.Context(), providerID.(string))
	if err != nil {
		logger.Error("Failed to list availability rules", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list rules"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rules": rules})
}

// DeleteRuleHandler removes one of the authenticated provider's rules.
func (hb *HandlerBundle) DeleteRuleHandler(c *gin.Context) {
	logger := getLogger(c)

	providerID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := hb.Availability.DeleteRule(c.Request.Context(), providerID.(string), c.Param("ruleID")); err != nil {
		logger.Error("Failed to delete availability rule", zap.Error(err))
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// CreateExceptionHandler marks a single date unavailable for the
// authenticated provider, overriding any recurring rules.
func (hb *HandlerBundle) CreateExceptionHandler(c *gin.Context) {
	logger := getLogger(c)

	providerID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var exc models.AvailabilityException
	if err := c.ShouldBindJSON(&exc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	if _, err := time.Parse("2006-01-02", exc.Date); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD"})
		return
	}
	exc.ProviderID = providerID.(string)
	exc.Type = models.ExceptionTypeUnavailable

	if err := hb.Availability.CreateException(c.Request.Context(), &exc); err != nil {
		logger.Error("Failed to create availability exception", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create exception"})
		return
	}
	c.JSON(http.StatusCreated, exc)
}

// DeleteExceptionHandler removes a date override.
func (hb *HandlerBundle) DeleteExceptionHandler(c *gin.Context) {
	logger := getLogger(c)

	providerID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := hb.Availability.DeleteException(c.Request.Context(), providerID.(string), c.Param("excID")); err != nil {
		logger.Error("Failed to delete availability exception", zap.Error(err))
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
